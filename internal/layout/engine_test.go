package layout

import (
	"testing"
	"time"

	"github.com/1broseidon/mstack/internal/ax"
	"github.com/1broseidon/mstack/internal/config"
	"github.com/1broseidon/mstack/internal/model"
)

type recordingScheduler struct {
	calls []scheduleCall
}

type scheduleCall struct {
	handle model.Handle
	target model.Rect
}

func (r *recordingScheduler) Schedule(handle model.Handle, target model.Rect) {
	r.calls = append(r.calls, scheduleCall{handle: handle, target: target})
}

func newTestEngine(t *testing.T, backend *ax.Fake, sched Scheduler) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.NewWindowSettle = 0
	cfg.ApplyLayoutDebounce = 0
	e := New(cfg, backend, sched, nil, nil, nil)
	return e
}

func rec(id model.WindowID, app string, frame model.Rect, onScreen bool) model.WindowRecord {
	return model.WindowRecord{
		WindowID: id,
		AppName:  app,
		Frame:    frame,
		OnScreen: onScreen,
		Handle:   ax.NewFakeHandle(app),
	}
}

func fullScreenBackend() *ax.Fake {
	backend := ax.NewFake()
	backend.SetScreens([]ax.Screen{{ID: 0, Frame: model.Rect{X: 0, Y: 0, Width: 1440, Height: 900}}})
	return backend
}

func TestUpdate_TwoWindowMasterPromotion(t *testing.T) {
	backend := fullScreenBackend()
	sched := &recordingScheduler{}
	e := newTestEngine(t, backend, sched)

	a := rec(1, "A", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	b := rec(2, "B", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	e.Update([]model.WindowRecord{a, b})

	if len(sched.calls) != 2 {
		t.Fatalf("expected 2 schedule calls, got %d", len(sched.calls))
	}
	master := sched.calls[0].target
	stack := sched.calls[1].target
	wantMaster := model.Rect{X: 12, Y: 12, Width: 708, Height: 876}
	wantStack := model.Rect{X: 732, Y: 12, Width: 696, Height: 876}
	if !master.Within(wantMaster, 0.001) {
		t.Fatalf("master rect = %+v, want %+v", master, wantMaster)
	}
	if !stack.Within(wantStack, 0.001) {
		t.Fatalf("stack rect = %+v, want %+v", stack, wantStack)
	}

	e.PromoteToMaster(2)
	list := e.ManagedList()
	if list[0].WindowID != 2 || list[1].WindowID != 1 {
		t.Fatalf("expected [2,1] after promote, got %+v", list)
	}
}

func TestUpdate_ZombiePreservation(t *testing.T) {
	backend := fullScreenBackend()
	sched := &recordingScheduler{}
	e := newTestEngine(t, backend, sched)

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	a := rec(1, "A", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	b := rec(2, "B", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	c := rec(3, "C", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	e.Update([]model.WindowRecord{a, b, c})

	// Snapshot omits B.
	e.Update([]model.WindowRecord{a, c})

	list := e.ManagedList()
	if len(list) != 3 || list[0].WindowID != 1 || list[1].WindowID != 2 || list[2].WindowID != 3 {
		t.Fatalf("expected list to still contain B as zombie at its index, got %+v", list)
	}
	if !e.IsZombie(2) {
		t.Fatalf("expected window 2 to be a zombie")
	}
	zombies := e.Zombies()
	if len(zombies) != 1 || zombies[0].WindowID != 2 {
		t.Fatalf("expected Zombies() to report window 2, got %+v", zombies)
	}
	if zombies[0].RemainingTTL <= 0 || zombies[0].RemainingTTL > e.cfg.ZombieTTL {
		t.Fatalf("expected RemainingTTL in (0, ZombieTTL], got %v", zombies[0].RemainingTTL)
	}

	// 2.5s later, still missing.
	e.now = func() time.Time { return fixed.Add(2500 * time.Millisecond) }
	e.Update([]model.WindowRecord{a, c})

	list = e.ManagedList()
	if len(list) != 2 || list[0].WindowID != 1 || list[1].WindowID != 3 {
		t.Fatalf("expected zombie purged after TTL, got %+v", list)
	}
}

func TestComputeRects_XcodeMinimum(t *testing.T) {
	cfg := config.Default()
	bounds := model.Rect{X: 0, Y: 0, Width: 1440, Height: 900}
	windows := []model.WindowRecord{
		{WindowID: 1, AppName: "Xcode"},
		{WindowID: 2, AppName: "Safari"},
	}
	rects := computeRects(bounds, windows, cfg)
	if rects[0].Width != 950 {
		t.Fatalf("expected master width 950, got %v", rects[0].Width)
	}
	wantStackWidth := 1440.0 - 950 - 12
	if rects[1].Width != wantStackWidth {
		t.Fatalf("expected stack width %v, got %v", wantStackWidth, rects[1].Width)
	}
}

func TestApplyLayout_IdempotenceLaw(t *testing.T) {
	backend := fullScreenBackend()
	sched := &recordingScheduler{}
	e := newTestEngine(t, backend, sched)

	a := rec(1, "A", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	b := rec(2, "B", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	e.Update([]model.WindowRecord{a, b})

	firstCount := len(sched.calls)
	if firstCount == 0 {
		t.Fatalf("expected schedule calls on first layout")
	}

	e.ApplyLayout()
	if len(sched.calls) != firstCount {
		t.Fatalf("expected zero new writes on second idempotent applyLayout, got %d new", len(sched.calls)-firstCount)
	}
}

func TestResetCache_CacheFlushLaw(t *testing.T) {
	backend := fullScreenBackend()
	sched := &recordingScheduler{}
	e := newTestEngine(t, backend, sched)

	a := rec(1, "A", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	b := rec(2, "B", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	e.Update([]model.WindowRecord{a, b})
	firstCount := len(sched.calls)

	e.ResetCache()
	e.ApplyLayout()

	if len(sched.calls) != firstCount*2 {
		t.Fatalf("expected resetCache to force a full rewrite, got %d calls total, want %d", len(sched.calls), firstCount*2)
	}
}

func TestUpdate_ManagedListNeverDuplicatesWindowID(t *testing.T) {
	backend := fullScreenBackend()
	sched := &recordingScheduler{}
	e := newTestEngine(t, backend, sched)

	a := rec(1, "A", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	e.Update([]model.WindowRecord{a})
	e.Update([]model.WindowRecord{a, a})

	seen := map[model.WindowID]bool{}
	for _, w := range e.ManagedList() {
		if seen[w.WindowID] {
			t.Fatalf("duplicate window id %d in ManagedList", w.WindowID)
		}
		seen[w.WindowID] = true
	}
}

func TestMoveFocused_RoundTripLaw(t *testing.T) {
	backend := fullScreenBackend()
	sched := &recordingScheduler{}
	cfg := config.Default()
	cfg.NewWindowSettle = 0
	cfg.ApplyLayoutDebounce = 0
	var focusedID model.WindowID = 2
	var e *Engine
	e = New(cfg, backend, sched, nil, func() (*model.WindowRecord, error) {
		for _, w := range e.ManagedList() {
			if w.WindowID == focusedID {
				return &w, nil
			}
		}
		return nil, nil
	}, nil)

	a := rec(1, "A", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	b := rec(2, "B", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	e.Update([]model.WindowRecord{a, b})

	e.PromoteToMaster(2)
	e.MoveFocused(DirectionRight)

	list := e.ManagedList()
	if list[1].WindowID != 2 {
		t.Fatalf("expected window 2 back at index 1, got %+v", list)
	}
}

func TestApplyLayout_ThrowInProgressBailsOut(t *testing.T) {
	backend := fullScreenBackend()
	sched := &recordingScheduler{}
	cfg := config.Default()
	cfg.NewWindowSettle = 0
	cfg.ApplyLayoutDebounce = 0
	e := New(cfg, backend, sched, nil, nil, func() bool { return true })

	a := rec(1, "A", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	e.Update([]model.WindowRecord{a})

	if len(sched.calls) != 0 {
		t.Fatalf("expected no schedule calls while throwing, got %d", len(sched.calls))
	}
}

func TestUpdate_NewWindowSettlesBeforeLayout(t *testing.T) {
	backend := fullScreenBackend()
	sched := &recordingScheduler{}
	cfg := config.Default()
	cfg.NewWindowSettle = 20 * time.Millisecond
	e := New(cfg, backend, sched, nil, nil, nil)

	a := rec(1, "A", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, true)
	e.Update([]model.WindowRecord{a})

	if len(sched.calls) != 0 {
		t.Fatalf("expected no immediate schedule call for a brand-new window, got %d", len(sched.calls))
	}

	time.Sleep(60 * time.Millisecond)
	if len(sched.calls) == 0 {
		t.Fatalf("expected settled layout to have dispatched by now")
	}
}
