// Package layout implements the Layout Engine of spec.md §4.2: the
// durable ManagedList, zombie-preserving reconciliation, master–stack
// geometry, and the cache that suppresses redundant animation
// commands. Every exported method runs on the caller's thread, which
// per spec.md §5 must be the daemon's main/UI thread — the Layout
// Engine owns no goroutine of its own.
package layout

import (
	"log/slog"
	"time"

	"github.com/1broseidon/mstack/internal/ax"
	"github.com/1broseidon/mstack/internal/config"
	"github.com/1broseidon/mstack/internal/model"
)

// Direction is the manual-reordering direction of moveFocused
// (spec.md §4.2.2).
type Direction int

const (
	DirectionLeft Direction = iota
	DirectionRight
	DirectionUp
	DirectionDown
)

// Scheduler is the Animator's half of the contract: the Layout Engine
// calls Schedule once per changed window per applyLayout pass. It is
// an interface so tests can substitute a recording fake instead of a
// real Animator.
type Scheduler interface {
	Schedule(handle model.Handle, target model.Rect)
}

// FocusedWindowFunc reads the currently focused window, as produced by
// Discovery.FocusedWindow — kept as a function value rather than a
// direct dependency on the discovery package to avoid an import cycle
// and to let tests inject a fixed focus.
type FocusedWindowFunc func() (*model.WindowRecord, error)

// ThrowingFunc reports the space/throw manager's isThrowing flag
// (spec.md §4.2.4, §6.2).
type ThrowingFunc func() bool

// Engine is the Layout Engine described in spec.md §4.2. ManagedList,
// ZombieTable, and TargetFrameCache are private state mutated only by
// this type's methods, matching the single-threaded-owner model of
// spec.md §5.
type Engine struct {
	cfg      *config.Config
	backend  ax.Backend
	sched    Scheduler
	logger   *slog.Logger
	focused  FocusedWindowFunc
	throwing ThrowingFunc
	now      func() time.Time

	managed []model.WindowRecord
	zombies map[model.WindowID]time.Time
	cache   map[model.WindowID]model.Rect

	debounceTimer *time.Timer
	settleTimer   *time.Timer
}

// New constructs an Engine. focused and throwing may be nil, in which
// case moveFocused is a no-op and applyLayout never
// bails out for a throw in progress — useful for tests that only
// exercise reconciliation and geometry.
func New(cfg *config.Config, backend ax.Backend, sched Scheduler, logger *slog.Logger, focused FocusedWindowFunc, throwing ThrowingFunc) *Engine {
	return &Engine{
		cfg:      cfg,
		backend:  backend,
		sched:    sched,
		logger:   logger,
		focused:  focused,
		throwing: throwing,
		now:      time.Now,
		zombies:  map[model.WindowID]time.Time{},
		cache:    map[model.WindowID]model.Rect{},
	}
}

// ManagedList returns a copy of the engine's current ordered window
// list, for inspection by tests and the read-only dashboard.
func (e *Engine) ManagedList() []model.WindowRecord {
	out := make([]model.WindowRecord, len(e.managed))
	copy(out, e.managed)
	return out
}

// IsZombie reports whether id is currently a zombie.
func (e *Engine) IsZombie(id model.WindowID) bool {
	_, ok := e.zombies[id]
	return ok
}

// ZombieInfo describes one pending zombie purge, for the dashboard and
// MCP status tool to surface (spec.md §3's tombstone retention window).
type ZombieInfo struct {
	WindowID     model.WindowID
	RemainingTTL time.Duration
}

// Zombies returns the current zombie table as a snapshot, with each
// entry's remaining time before purge.
func (e *Engine) Zombies() []ZombieInfo {
	out := make([]ZombieInfo, 0, len(e.zombies))
	now := e.now()
	for id, firstMissed := range e.zombies {
		remaining := e.cfg.ZombieTTL - now.Sub(firstMissed)
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, ZombieInfo{WindowID: id, RemainingTTL: remaining})
	}
	return out
}

// Update reconciles snapshot into ManagedList per spec.md §4.2.1, then
// applies the scheduling policy of spec.md §4.2.5: immediate layout if
// no window id was new, or a 50ms settle delay if one was.
func (e *Engine) Update(snapshot []model.WindowRecord) {
	byID := make(map[model.WindowID]model.WindowRecord, len(snapshot))
	for _, rec := range snapshot {
		byID[rec.WindowID] = rec
	}

	newList := make([]model.WindowRecord, 0, len(e.managed)+len(snapshot))
	present := make(map[model.WindowID]bool, len(e.managed))

	now := e.now()
	for _, existing := range e.managed {
		present[existing.WindowID] = true
		if rec, ok := byID[existing.WindowID]; ok {
			newList = append(newList, rec)
			delete(e.zombies, existing.WindowID)
			continue
		}

		firstMissed, isZombie := e.zombies[existing.WindowID]
		if !isZombie {
			e.zombies[existing.WindowID] = now
			newList = append(newList, existing)
			continue
		}
		if now.Sub(firstMissed) < e.cfg.ZombieTTL {
			newList = append(newList, existing)
			continue
		}
		delete(e.zombies, existing.WindowID)
		// dropped: permanently departed.
	}

	sawNewWindow := false
	for _, rec := range snapshot {
		if present[rec.WindowID] {
			continue
		}
		present[rec.WindowID] = true
		newList = append(newList, rec)
		sawNewWindow = true
	}

	e.managed = newList

	if sawNewWindow {
		e.scheduleSettledLayout()
		return
	}
	e.applyLayoutNow()
}

// scheduleSettledLayout defers applyLayout by NewWindowSettle, the
// "new window settle" path of spec.md §4.2.5. A later call replaces
// any pending timer — the single replaceable scheduled task handle of
// spec.md §9.
func (e *Engine) scheduleSettledLayout() {
	if e.settleTimer != nil {
		e.settleTimer.Stop()
	}
	if e.cfg.NewWindowSettle <= 0 {
		e.applyLayoutNow()
		return
	}
	e.settleTimer = time.AfterFunc(e.cfg.NewWindowSettle, func() {
		e.applyLayoutNow()
	})
}

// ApplyLayoutDebounced coalesces external triggers (the move/resize
// observers) within ApplyLayoutDebounce, per spec.md §4.2.5.
// Safe to call from any thread that can tolerate the callback running
// later on its own timer goroutine; callers that must stay on the
// Layout Engine's owning thread should instead post back to it before
// touching ManagedList.
func (e *Engine) ApplyLayoutDebounced() {
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	if e.cfg.ApplyLayoutDebounce <= 0 {
		e.applyLayoutNow()
		return
	}
	e.debounceTimer = time.AfterFunc(e.cfg.ApplyLayoutDebounce, func() {
		e.applyLayoutNow()
	})
}

// applyLayoutNow runs spec.md §4.2.4 synchronously.
func (e *Engine) applyLayoutNow() {
	if e.throwing != nil && e.throwing() {
		return
	}

	screens, err := e.backend.Screens()
	if err != nil || len(screens) == 0 {
		if e.logger != nil {
			e.logger.Warn("layout: no screens available", "error", err)
		}
		return
	}

	screenFrames := make([]model.Rect, len(screens))
	for i, s := range screens {
		screenFrames[i] = s.Frame
	}

	active := make([]model.WindowRecord, 0, len(e.managed))
	for _, rec := range e.managed {
		if e.IsZombie(rec.WindowID) {
			continue
		}
		if !rec.OnScreen {
			continue
		}
		active = append(active, rec)
	}

	byScreen := make([][]model.WindowRecord, len(screens))
	for _, rec := range active {
		idx := assignScreen(rec.Frame, screenFrames)
		byScreen[idx] = append(byScreen[idx], rec)
	}

	for i, windows := range byScreen {
		if len(windows) == 0 {
			continue
		}
		bounds := insetBounds(screenFrames[i], e.cfg.Gap)
		rects := computeRects(bounds, windows, e.cfg)
		for j, rec := range windows {
			target := rects[j]
			if cached, ok := e.cache[rec.WindowID]; ok && cached.Within(target, e.cfg.LayoutDeadZone) {
				continue
			}
			e.cache[rec.WindowID] = target
			if rec.Handle != nil {
				e.sched.Schedule(rec.Handle, target)
			}
		}
	}
}

// ApplyLayout runs applyLayout immediately — used by the status/menu
// collaborator and force-reload (spec.md §6.2).
func (e *Engine) ApplyLayout() {
	e.applyLayoutNow()
}

// ResetCache empties TargetFrameCache, forcing the next applyLayout
// pass to rewrite every active window (spec.md §4.2.6). Called by the
// space-manager collaborator after a space change.
func (e *Engine) ResetCache() {
	e.cache = map[model.WindowID]model.Rect{}
}

// MoveFocused implements spec.md §4.2.2's directional reordering.
func (e *Engine) MoveFocused(dir Direction) {
	if e.focused == nil {
		return
	}
	rec, err := e.focused()
	if err != nil || rec == nil {
		return
	}
	idx := e.indexOf(rec.WindowID)
	if idx < 0 {
		return
	}

	switch dir {
	case DirectionLeft:
		e.moveTo(idx, 0)
	case DirectionRight:
		e.moveTo(idx, 1)
	case DirectionUp:
		e.swap(idx, idx-1)
	case DirectionDown:
		e.swap(idx, idx+1)
	}
}

// PromoteToMaster implements spec.md §4.2.2's promoteToMaster: remove
// and reinsert at index 0, a no-op if already master.
func (e *Engine) PromoteToMaster(id model.WindowID) {
	idx := e.indexOf(id)
	if idx <= 0 {
		return
	}
	e.moveTo(idx, 0)
}

func (e *Engine) indexOf(id model.WindowID) int {
	for i, rec := range e.managed {
		if rec.WindowID == id {
			return i
		}
	}
	return -1
}

// moveTo relocates the record at idx to dest, shifting the
// intervening records, then runs applyLayout. dest is clamped to the
// list's bounds; moveTo is a no-op if idx already equals dest.
func (e *Engine) moveTo(idx, dest int) {
	if dest < 0 {
		dest = 0
	}
	if dest > len(e.managed)-1 {
		dest = len(e.managed) - 1
	}
	if idx == dest {
		return
	}
	rec := e.managed[idx]
	without := append(append([]model.WindowRecord{}, e.managed[:idx]...), e.managed[idx+1:]...)
	out := make([]model.WindowRecord, 0, len(e.managed))
	out = append(out, without[:dest]...)
	out = append(out, rec)
	out = append(out, without[dest:]...)
	e.managed = out
	e.applyLayoutNow()
}

// swap exchanges the records at i and j, clamped to the list's bounds
// and a no-op when the clamped index equals i (spec.md §4.2.2 "a swap
// at an unchanged index is a no-op").
func (e *Engine) swap(i, j int) {
	if j < 0 {
		j = 0
	}
	if j > len(e.managed)-1 {
		j = len(e.managed) - 1
	}
	if i == j {
		return
	}
	e.managed[i], e.managed[j] = e.managed[j], e.managed[i]
	e.applyLayoutNow()
}
