// Command mstackd is the master-stack tiling daemon: it owns window
// discovery, layout computation, and animated placement on macOS, and
// exposes a small control surface over a unix socket.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/mstack/internal/ax"
	"github.com/1broseidon/mstack/internal/config"
	"github.com/1broseidon/mstack/internal/daemon"
	"github.com/1broseidon/mstack/internal/ipc"
	"github.com/1broseidon/mstack/internal/mcpsrv"
	"github.com/1broseidon/mstack/internal/runtimepath"
	"github.com/1broseidon/mstack/internal/tui"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		runDaemon()
	case "status":
		os.Exit(runStatus())
	case "reload":
		os.Exit(runReload())
	case "apply":
		os.Exit(runApply())
	case "tui":
		os.Exit(runTUICommand())
	case "mcp-serve":
		os.Exit(runMCPServe())
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(2)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mstackd <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon      Run the tiling daemon in the foreground")
	fmt.Fprintln(w, "  status      Print the running daemon's status as JSON")
	fmt.Fprintln(w, "  reload      Force an immediate discovery rescan")
	fmt.Fprintln(w, "  apply       Force an immediate layout re-application")
	fmt.Fprintln(w, "  tui         Open the live dashboard")
	fmt.Fprintln(w, "  mcp-serve   Run an MCP server fronting the daemon's control surface")
}

func loadConfig() (*config.Config, error) {
	path := os.Getenv("MSTACK_CONFIG")
	if path == "" {
		if p, err := runtimepath.ConfigPath(); err == nil {
			path = p
		}
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func runDaemon() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mstackd: load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	logger.Info("mstackd starting", "socket", cfg.SocketPath)

	backend := ax.NewBackend()
	d := daemon.New(cfg, backend, logger)

	server := ipc.NewServer(cfg.SocketPath, d, logger)

	ctx, cancel := context.WithCancel(context.Background())
	server.Quit = cancel

	if err := server.Start(); err != nil {
		logger.Error("mstackd: failed to start control socket", "error", err)
		os.Exit(1)
	}
	defer server.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("mstackd: shutting down")
		cancel()
	}()

	d.Run(ctx)
}

func runStatus() int {
	client := ipc.NewClient("")
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mstackd: %v\n", err)
		return 1
	}
	fmt.Printf("trusted=%v managed=%d zombies=%d animating=%d uptime=%.0fs\n",
		status.Trusted, status.ManagedWindowCount, status.ZombieCount, status.ActiveAnimations, status.UptimeSeconds)
	return 0
}

func runReload() int {
	client := ipc.NewClient("")
	if err := client.ForceRescan(); err != nil {
		fmt.Fprintf(os.Stderr, "mstackd: %v\n", err)
		return 1
	}
	return 0
}

func runApply() int {
	client := ipc.NewClient("")
	if err := client.ApplyLayout(); err != nil {
		fmt.Fprintf(os.Stderr, "mstackd: %v\n", err)
		return 1
	}
	return 0
}

func runTUICommand() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "mstackd: tui requires an interactive terminal")
		return 1
	}
	client := ipc.NewClient("")
	if err := tui.Run(client); err != nil {
		fmt.Fprintf(os.Stderr, "mstackd: %v\n", err)
		return 1
	}
	return 0
}

func runMCPServe() int {
	client := ipc.NewClient("")
	server := mcpsrv.NewServer(client)
	if err := server.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "mstackd: mcp server: %v\n", err)
		return 1
	}
	return 0
}
