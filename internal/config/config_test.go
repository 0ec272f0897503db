package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_MatchesSpecConstants(t *testing.T) {
	cfg := Default()

	if cfg.Gap != 12 {
		t.Fatalf("expected gap=12, got %d", cfg.Gap)
	}
	if cfg.ZombieTTL != 2*time.Second {
		t.Fatalf("expected zombie_ttl=2s, got %s", cfg.ZombieTTL)
	}
	if cfg.StackMin != 400 {
		t.Fatalf("expected stack_min=400, got %d", cfg.StackMin)
	}
	if cfg.DefaultMinMasterWidth != 400 {
		t.Fatalf("expected default_min_master_width=400, got %d", cfg.DefaultMinMasterWidth)
	}
	if cfg.BurstCount != 7 {
		t.Fatalf("expected burst_count=7, got %d", cfg.BurstCount)
	}
	if cfg.BurstInterval != 200*time.Millisecond {
		t.Fatalf("expected burst_interval=200ms, got %s", cfg.BurstInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gap != Default().Gap {
		t.Fatalf("expected default gap, got %d", cfg.Gap)
	}
}

func TestLoad_OverridesMergeOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mstack.yaml")
	contents := "gap: 20\nzombie_ttl: 3s\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gap != 20 {
		t.Fatalf("expected overridden gap=20, got %d", cfg.Gap)
	}
	if cfg.ZombieTTL != 3*time.Second {
		t.Fatalf("expected overridden zombie_ttl=3s, got %s", cfg.ZombieTTL)
	}
	// Untouched fields retain defaults.
	if cfg.StackMin != Default().StackMin {
		t.Fatalf("expected default stack_min, got %d", cfg.StackMin)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("MSTACK_GAP", "30")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gap != 30 {
		t.Fatalf("expected env-overridden gap=30, got %d", cfg.Gap)
	}
}

func TestValidate_RejectsBadLogFormat(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unsupported log format")
	}
}

func TestMinMasterWidth_KnownAndUnknownApps(t *testing.T) {
	cfg := Default()
	if w := cfg.MinMasterWidth("Xcode"); w != 950 {
		t.Fatalf("expected Xcode min width 950, got %d", w)
	}
	if w := cfg.MinMasterWidth("SomeRandomApp"); w != cfg.DefaultMinMasterWidth {
		t.Fatalf("expected fallback to default min width, got %d", w)
	}
}

func TestIsBrowserWhitelisted(t *testing.T) {
	cfg := Default()
	if !cfg.IsBrowserWhitelisted("Safari") {
		t.Fatalf("expected Safari to be whitelisted")
	}
	if cfg.IsBrowserWhitelisted("TextEdit") {
		t.Fatalf("expected TextEdit to not be whitelisted")
	}
}
