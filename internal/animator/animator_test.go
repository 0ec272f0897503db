package animator

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/mstack/internal/ax"
	"github.com/1broseidon/mstack/internal/config"
	"github.com/1broseidon/mstack/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// slowWriteBackend wraps a Fake and delays WriteFrame for one chosen
// handle, used to exercise the BusySet backpressure scenario of
// spec.md §8 scenario 5.
type slowWriteBackend struct {
	*ax.Fake
	mu      sync.Mutex
	delay   map[string]time.Duration
	writeCt map[string]int
}

func newSlowWriteBackend() *slowWriteBackend {
	return &slowWriteBackend{
		Fake:    ax.NewFake(),
		delay:   map[string]time.Duration{},
		writeCt: map[string]int{},
	}
}

func (s *slowWriteBackend) SlowDown(handleID string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay[handleID] = d
}

func (s *slowWriteBackend) WriteCount(handleID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCt[handleID]
}

func (s *slowWriteBackend) WriteFrame(h model.Handle, r model.Rect) error {
	s.mu.Lock()
	d := s.delay[h.String()]
	s.writeCt[h.String()]++
	s.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
	return s.Fake.WriteFrame(h, r)
}

func newTestAnimator(t *testing.T, backend ax.Backend, cfg *config.Config) (*Animator, context.CancelFunc) {
	t.Helper()
	a := New(backend, cfg, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	return a, cancel
}

func TestSchedule_BelowThresholdInstantWrite(t *testing.T) {
	backend := ax.NewFake()
	handle := ax.NewFakeHandle("w1")
	backend.SetWindows([]ax.FakeWindow{{
		Handle: handle,
		Frame:  model.Rect{X: 100, Y: 100, Width: 400, Height: 400},
	}})

	cfg := config.Default()
	a, cancel := newTestAnimator(t, backend, cfg)
	defer cancel()

	a.Schedule(handle, model.Rect{X: 100.3, Y: 100.7, Width: 400.1, Height: 400.2})

	if n := a.ActiveJobCount(); n != 0 {
		t.Fatalf("expected no animation job for a below-threshold target, got %d", n)
	}

	deadline := time.Now().Add(time.Second)
	for len(backend.WriteLog) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if len(backend.WriteLog) != 1 {
		t.Fatalf("expected exactly one instantaneous write, got %d", len(backend.WriteLog))
	}
}

func TestSchedule_CreatesJobForLargeDelta(t *testing.T) {
	backend := ax.NewFake()
	handle := ax.NewFakeHandle("w1")
	backend.SetWindows([]ax.FakeWindow{{
		Handle: handle,
		Frame:  model.Rect{X: 0, Y: 0, Width: 400, Height: 400},
	}})

	cfg := config.Default()
	cfg.AnimationDuration = 40 * time.Millisecond
	a, cancel := newTestAnimator(t, backend, cfg)
	defer cancel()

	a.Schedule(handle, model.Rect{X: 500, Y: 500, Width: 400, Height: 400})

	if n := a.ActiveJobCount(); n != 1 {
		t.Fatalf("expected 1 active job for a large delta, got %d", n)
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.ActiveJobCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	final, err := backend.ReadFrame(handle)
	if err != nil {
		t.Fatalf("unexpected error reading final frame: %v", err)
	}
	want := model.Rect{X: 500, Y: 500, Width: 400, Height: 400}
	if final != want {
		t.Fatalf("expected final frame %+v, got %+v", want, final)
	}
}

func TestBackpressure_SlowWriteSkipsTicksButConverges(t *testing.T) {
	backend := newSlowWriteBackend()
	handleA := ax.NewFakeHandle("A")
	handleB := ax.NewFakeHandle("B")
	backend.SetWindows([]ax.FakeWindow{
		{Handle: handleA, Frame: model.Rect{X: 0, Y: 0, Width: 400, Height: 400}},
		{Handle: handleB, Frame: model.Rect{X: 0, Y: 0, Width: 400, Height: 400}},
	})
	backend.SlowDown("fake(A)", 120*time.Millisecond)

	cfg := config.Default()
	cfg.AnimationDuration = 60 * time.Millisecond
	a, cancel := newTestAnimator(t, backend, cfg)
	defer cancel()

	a.Schedule(handleA, model.Rect{X: 600, Y: 600, Width: 400, Height: 400})
	a.Schedule(handleB, model.Rect{X: 600, Y: 600, Width: 400, Height: 400})

	deadline := time.Now().Add(3 * time.Second)
	for a.ActiveJobCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if a.ActiveJobCount() != 0 {
		t.Fatalf("expected both jobs to complete, %d still active", a.ActiveJobCount())
	}

	wantFinal := model.Rect{X: 600, Y: 600, Width: 400, Height: 400}
	finalA, _ := backend.ReadFrame(handleA)
	finalB, _ := backend.ReadFrame(handleB)
	if finalA != wantFinal {
		t.Fatalf("window A final frame = %+v, want %+v", finalA, wantFinal)
	}
	if finalB != wantFinal {
		t.Fatalf("window B final frame = %+v, want %+v", finalB, wantFinal)
	}
	if backend.WriteCount("fake(B)") <= backend.WriteCount("fake(A)") {
		t.Fatalf("expected B (fast sink) to have more writes than A (slow sink): A=%d B=%d",
			backend.WriteCount("fake(A)"), backend.WriteCount("fake(B)"))
	}
}

func TestSuppress_InstantWritesUntilDeadlinePasses(t *testing.T) {
	backend := ax.NewFake()
	handle := ax.NewFakeHandle("w1")
	backend.SetWindows([]ax.FakeWindow{{
		Handle: handle,
		Frame:  model.Rect{X: 0, Y: 0, Width: 400, Height: 400},
	}})

	cfg := config.Default()
	cfg.AnimationDuration = 200 * time.Millisecond
	a, cancel := newTestAnimator(t, backend, cfg)
	defer cancel()

	a.Suppress(40 * time.Millisecond)
	a.Schedule(handle, model.Rect{X: 900, Y: 900, Width: 400, Height: 400})

	if n := a.ActiveJobCount(); n != 0 {
		t.Fatalf("expected schedule during suppression to skip animation, got %d active jobs", n)
	}
	frame, _ := backend.ReadFrame(handle)
	if frame != (model.Rect{X: 900, Y: 900, Width: 400, Height: 400}) {
		t.Fatalf("expected instantaneous write to target during suppression, got %+v", frame)
	}
}

func TestForceIntoPlace_WritesTwice(t *testing.T) {
	backend := ax.NewFake()
	handle := ax.NewFakeHandle("w1")
	backend.SetWindows([]ax.FakeWindow{{
		Handle: handle,
		Frame:  model.Rect{X: 0, Y: 0, Width: 400, Height: 400},
	}})

	cfg := config.Default()
	a, cancel := newTestAnimator(t, backend, cfg)
	defer cancel()

	a.ForceIntoPlace(handle, model.Rect{X: 50, Y: 50, Width: 300, Height: 300})

	if len(backend.WriteLog) != 2 {
		t.Fatalf("expected exactly 2 writes from forceIntoPlace, got %d", len(backend.WriteLog))
	}
}
