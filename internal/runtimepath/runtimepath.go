// Package runtimepath resolves the filesystem locations mstackd uses
// for its control socket and tuning file, following macOS convention
// rather than the XDG layout the teacher's Linux daemon used.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir returns the per-user runtime directory mstackd writes into,
// creating it if necessary. macOS has no XDG_RUNTIME_DIR convention,
// so this falls back to TMPDIR (set by launchd for every session).
func Dir() (string, error) {
	base := os.Getenv("TMPDIR")
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, fmt.Sprintf("mstack-%d", os.Getuid()))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("runtimepath: create runtime dir: %w", err)
	}
	return dir, nil
}

// SocketPath returns the default control socket path, honored when
// config.Config.SocketPath isn't set by the operator.
func SocketPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mstackd.sock"), nil
}

// ConfigDir returns the directory mstackd looks for its tuning file
// in by default: ~/Library/Application Support/mstack.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("runtimepath: user home dir: %w", err)
	}
	return filepath.Join(home, "Library", "Application Support", "mstack"), nil
}

// ConfigPath returns the default tuning-file path: ConfigDir()/config.yaml.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
