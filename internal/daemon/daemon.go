// Package daemon wires Discovery, the Layout Engine, and the Animator
// into the four-worker concurrency model of spec.md §5, and hosts the
// external-collaborator contracts of spec.md §6.2 that the core reads
// from or calls into.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/mstack/internal/animator"
	"github.com/1broseidon/mstack/internal/ax"
	"github.com/1broseidon/mstack/internal/config"
	"github.com/1broseidon/mstack/internal/discovery"
	"github.com/1broseidon/mstack/internal/hotkeys"
	"github.com/1broseidon/mstack/internal/layout"
	"github.com/1broseidon/mstack/internal/model"
	"github.com/1broseidon/mstack/internal/permissions"
	"github.com/1broseidon/mstack/internal/space"
)

// Daemon is the lifecycle object spec.md §9 calls for: a single,
// explicitly owned instance of each component, wired by reference
// rather than through process-wide singletons.
type Daemon struct {
	cfg     *config.Config
	backend ax.Backend
	logger  *slog.Logger

	Discovery *discovery.Discovery
	Engine    *layout.Engine
	Animator  *animator.Animator
	Perms     *permissions.Helper
	Space     *space.Manager
	Router    *hotkeys.Router

	ctx       context.Context
	snapshots chan []model.WindowRecord

	subscriptions map[string]func()
}

// New constructs every component and wires the channels and callbacks
// between them, but starts nothing — call Run to start the workers.
func New(cfg *config.Config, backend ax.Backend, logger *slog.Logger) *Daemon {
	d := &Daemon{
		cfg:           cfg,
		backend:       backend,
		logger:        logger,
		snapshots:     make(chan []model.WindowRecord, 8),
		subscriptions: map[string]func(){},
	}

	d.Animator = animator.New(backend, cfg, logger)
	d.Perms = permissions.New(backend)
	d.Space = space.New(d.onSpaceChange)
	d.Discovery = discovery.New(backend, cfg, logger, d.onSnapshot)
	d.Engine = layout.New(cfg, backend, d.Animator, logger, d.Discovery.FocusedWindow, d.Space.IsThrowing)

	d.Router = &hotkeys.Router{
		Engine:        d.Engine,
		SwitchSpace:   d.Space.SwitchToSpace,
		MoveToSpace:   func(i int) { d.Space.MoveWindowToSpace(nil, i) },
		NextWorkspace: func() {},
		PrevWorkspace: func() {},
		Reload:        d.Discovery.ForceImmediateScan,
	}

	return d
}

// onSnapshot is Discovery's posted-callback target (spec.md §5.2): it
// only ever hands the snapshot to the main/UI thread's channel, never
// touching ManagedList itself.
func (d *Daemon) onSnapshot(snapshot []model.WindowRecord) {
	select {
	case d.snapshots <- snapshot:
	default:
		d.logger.Warn("daemon: snapshot channel full, dropping snapshot")
	}
}

// onSpaceChange implements spec.md §6.2's "On space change it calls
// Discovery.startBurstScan() and LayoutEngine.resetCache()", plus a
// suppression window so in-flight animations don't fight the OS
// during the transition (spec.md §8 scenario 6).
func (d *Daemon) onSpaceChange() {
	d.Engine.ResetCache()
	d.Animator.Suppress(d.cfg.SpaceSuppression)
	time.AfterFunc(d.cfg.SpaceSuppression, d.Space.EndThrow)
	if d.ctx != nil {
		d.Discovery.StartBurstScan(d.ctx)
	}
}

// NotifyMouseUp implements the mouse-up monitor contract of spec.md
// §6.2: a deferred applyLayout 200ms after a left-button release,
// unless a throw is in progress. The actual mouse event tap is an
// external platform adapter; callers wire it to this method.
func (d *Daemon) NotifyMouseUp() {
	if d.Space.IsThrowing() {
		return
	}
	time.AfterFunc(d.cfg.MouseUpDelay, func() {
		d.Engine.ApplyLayout()
	})
}

// Run starts the Discovery worker, the Animator's logic and write
// workers, and the main/UI loop that applies posted snapshots to the
// Layout Engine. It blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) {
	d.ctx = ctx

	go d.Discovery.Run(ctx)
	go d.Animator.Run(ctx)

	d.Perms.WhenTrusted(func() {
		d.Discovery.StartPeriodicScan(ctx)
		d.Discovery.ForceImmediateScan()
	})

	d.logger.Info("daemon main loop started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon main loop stopped")
			return
		case snapshot := <-d.snapshots:
			d.Engine.Update(snapshot)
			d.syncSubscriptions(snapshot)
		}
	}
}

// syncSubscriptions installs move/resize observers on every on-screen
// window found in the latest snapshot that isn't already subscribed,
// and cancels observers for handles no longer present (spec.md §6.2
// "Move/resize observers: installed by Discovery on every window found
// on-screen; fire into LayoutEngine.applyLayout() (debounced)").
func (d *Daemon) syncSubscriptions(snapshot []model.WindowRecord) {
	seen := make(map[string]bool, len(snapshot))
	for _, rec := range snapshot {
		if rec.Handle == nil || !rec.OnScreen {
			continue
		}
		key := rec.Handle.String()
		seen[key] = true
		if _, ok := d.subscriptions[key]; ok {
			continue
		}
		cancel, err := d.backend.Subscribe(rec.Handle, d.Engine.ApplyLayoutDebounced)
		if err != nil {
			d.logger.Debug("daemon: subscribe failed", "handle", key, "error", err)
			continue
		}
		d.subscriptions[key] = cancel
	}
	for key, cancel := range d.subscriptions {
		if seen[key] {
			continue
		}
		cancel()
		delete(d.subscriptions, key)
	}
}
