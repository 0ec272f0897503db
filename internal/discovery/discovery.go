// Package discovery implements periodic and on-demand enumeration of
// candidate tileable windows through the two independent system
// oracles described in spec.md §4.1: the compositor's on-screen list
// and each application's accessibility window tree.
package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/mstack/internal/ax"
	"github.com/1broseidon/mstack/internal/config"
	"github.com/1broseidon/mstack/internal/model"
)

// role/subrole constants the tileability filter rejects on.
const (
	roleWindow = "AXWindow"

	subroleSystemDialog   = "AXSystemDialog"
	subroleFloatingWindow = "AXFloatingWindow"
	subroleDialog         = "AXDialog"
)

// minTileableDimension rejects splash screens and helper panels
// (spec.md §4.1 step 3, "frame width ≥ 50 and height ≥ 50").
const minTileableDimension = 50

// SnapshotFunc receives one scan's output. It is called on Discovery's
// own worker; consumers that mutate Layout Engine state must hop back
// to their own thread, mirroring spec.md §5's worker boundaries.
type SnapshotFunc func(snapshot []model.WindowRecord)

// Discovery is the serial background scanner described in spec.md §4.1.
// Its internal state (scan queue, timers) is never shared with the
// caller's thread; it only ever talks back through onSnapshot.
type Discovery struct {
	backend    ax.Backend
	cfg        *config.Config
	logger     *slog.Logger
	onSnapshot SnapshotFunc

	queue chan func()
	done  chan struct{}
}

// New constructs a Discovery bound to backend, using cfg for the
// timing and filter constants in spec.md §6.3. onSnapshot is invoked
// once per completed scan.
func New(backend ax.Backend, cfg *config.Config, logger *slog.Logger, onSnapshot SnapshotFunc) *Discovery {
	return &Discovery{
		backend:    backend,
		cfg:        cfg,
		logger:     logger,
		onSnapshot: onSnapshot,
		queue:      make(chan func(), 64),
		done:       make(chan struct{}),
	}
}

// Run drains the scan queue on a single goroutine, the "serial
// background queue" of spec.md §5.2. It blocks until ctx is done.
func (d *Discovery) Run(ctx context.Context) {
	d.logger.Info("discovery worker started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("discovery worker stopped")
			close(d.done)
			return
		case job := <-d.queue:
			d.runJob(job)
		}
	}
}

func (d *Discovery) runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("discovery: scan panic recovered", "error", r)
		}
	}()
	job()
}

func (d *Discovery) enqueue(job func()) {
	select {
	case d.queue <- job:
	default:
		d.logger.Warn("discovery: scan queue full, dropping job")
	}
}

// StartPeriodicScan begins scanning every DiscoveryPeriod on the
// background worker until ctx is cancelled (spec.md §4.1
// startPeriodicScan).
func (d *Discovery) StartPeriodicScan(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.cfg.DiscoveryPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.enqueue(func() { d.scanAndEmit(false) })
			}
		}
	}()
}

// ForceImmediateScan schedules a single snapshot as soon as the
// worker is free (spec.md §4.1 forceImmediateScan).
func (d *Discovery) ForceImmediateScan() {
	d.enqueue(func() { d.scanAndEmit(false) })
}

// StartBurstScan schedules BurstCount snapshots spaced BurstInterval
// apart, each with forceVisible = true (spec.md §4.1 startBurstScan).
// Used by the space/throw manager collaborator after a disruptive
// transition.
func (d *Discovery) StartBurstScan(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.cfg.BurstInterval)
		defer ticker.Stop()
		for i := 0; i < d.cfg.BurstCount; i++ {
			d.enqueue(func() { d.scanAndEmit(true) })
			if i == d.cfg.BurstCount-1 {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (d *Discovery) scanAndEmit(forceVisible bool) {
	snapshot := d.scan(forceVisible)
	d.onSnapshot(snapshot)
}

// scan runs one snapshot of the algorithm in spec.md §4.1.
func (d *Discovery) scan(forceVisible bool) []model.WindowRecord {
	if !d.backend.Trusted() {
		return nil
	}

	apps, err := d.backend.RunningApplications()
	if err != nil {
		d.logger.Warn("discovery: enumerate applications failed", "error", err)
		return nil
	}

	var onScreenByCompositor map[uint32]bool
	if !forceVisible {
		onScreenByCompositor, err = d.backend.OnScreenWindowIDs()
		if err != nil {
			d.logger.Warn("discovery: compositor query failed", "error", err)
			onScreenByCompositor = map[uint32]bool{}
		}
	}

	primaryFrame, err := d.backend.PrimaryScreenFrame()
	if err != nil {
		d.logger.Warn("discovery: primary screen frame unavailable", "error", err)
		return nil
	}

	var out []model.WindowRecord
	for _, app := range apps {
		if app.ActivationPolicy != ax.ActivationPolicyRegular || app.Hidden {
			continue
		}

		raws, err := d.backend.AppWindows(app.PID)
		if err != nil {
			d.logger.Debug("discovery: app window read failed", "pid", app.PID, "error", err)
			continue
		}

		for _, raw := range raws {
			rec, ok := d.buildRecord(app, raw, forceVisible, onScreenByCompositor, primaryFrame)
			if !ok {
				continue
			}
			out = append(out, rec)
		}
	}
	return out
}

// buildRecord applies the tileability filters and visibility
// derivation of spec.md §4.1 steps 3–6 to one raw accessibility
// window entry.
func (d *Discovery) buildRecord(
	app ax.AppInfo,
	raw ax.RawWindow,
	forceVisible bool,
	onScreenByCompositor map[uint32]bool,
	primaryFrame model.Rect,
) (model.WindowRecord, bool) {
	if !tileable(raw) {
		return model.WindowRecord{}, false
	}

	isOnScreen := primaryFrame.Intersects(raw.Frame)
	if !forceVisible {
		if !d.cfg.IsBrowserWhitelisted(app.Name) && raw.WindowNumber != 0 {
			isOnScreen = onScreenByCompositor[raw.WindowNumber]
		}
	} else if primaryFrame.Intersects(raw.Frame) {
		isOnScreen = true
	}

	windowID := model.WindowID(raw.WindowNumber)
	if windowID == 0 {
		windowID = model.SurrogateID(raw.Handle)
	}

	return model.WindowRecord{
		WindowID: windowID,
		PID:      app.PID,
		AppName:  app.Name,
		BundleID: app.BundleID,
		Frame:    raw.Frame,
		OnScreen: isOnScreen,
		Handle:   raw.Handle,
	}, true
}

// tileable applies spec.md §4.1 step 3's filters in order; the first
// failure rejects the entry.
func tileable(raw ax.RawWindow) bool {
	if raw.Role != roleWindow {
		return false
	}
	switch raw.Subrole {
	case subroleSystemDialog, subroleFloatingWindow, subroleDialog:
		return false
	}
	if raw.Minimized {
		return false
	}
	if raw.Title == "" {
		return false
	}
	if !raw.SizeSettable {
		return false
	}
	if raw.Frame.Width < minTileableDimension || raw.Frame.Height < minTileableDimension {
		return false
	}
	return true
}

// FocusedWindow reads the currently focused application's focused
// window without mutating any Discovery state (spec.md §4.1
// focusedWindow). Safe to call from any goroutine; it talks to the
// backend directly rather than through the scan queue because it must
// not wait behind a pending periodic scan.
func (d *Discovery) FocusedWindow() (*model.WindowRecord, error) {
	return d.backend.FocusedWindow()
}
