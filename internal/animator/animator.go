// Package animator implements the display-refresh-driven interpolation
// loop of spec.md §4.3: it drives each window's frame from its current
// rectangle toward the latest target requested by the Layout Engine,
// with backpressure against the slow, synchronous accessibility write
// sink.
package animator

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/1broseidon/mstack/internal/ax"
	"github.com/1broseidon/mstack/internal/config"
	"github.com/1broseidon/mstack/internal/model"
)

// fallbackTickRate is the timer-driven tick used when no real
// display-refresh driver is available (spec.md §7 "Display-refresh
// driver unavailable: fall back to a timer-driven tick at 60 Hz").
// This implementation never has access to a real vsync callback, so
// it always runs this fallback.
const fallbackTickRate = time.Second / 60

const queueDepth = 256

// job is the Animator-owned AnimationJob of spec.md §3, keyed by the
// target window's accessibility handle identity.
type job struct {
	handle      model.Handle
	startFrame  model.Rect
	targetFrame model.Rect
	startedAt   time.Time
	duration    time.Duration
}

type writeTask struct {
	handle model.Handle
	rect   model.Rect
}

type completion struct {
	key string
}

// Animator is the component described in spec.md §4.3. Its animation
// tables (jobs, LastAppliedCache, BusySet, suppressionDeadline) are
// touched only inside the logic worker goroutine started by Run; every
// public method hands its work to that goroutine and waits for it to
// finish, which is this implementation's rendering of spec.md §5's
// "Animator logic worker" as a single-owner goroutine reached through
// channels rather than a mutex.
type Animator struct {
	backend ax.Backend
	cfg     *config.Config
	logger  *slog.Logger
	now     func() time.Time

	cmd        chan func()
	tick       chan struct{}
	done       chan completion
	writeQueue chan writeTask

	jobs        map[string]*job
	lastApplied map[string]model.Rect
	busy        map[string]bool

	suppressionDeadline time.Time
	driverStop          chan struct{}
}

// New constructs an Animator bound to backend. Call Run to start its
// logic and write workers before using any other method.
func New(backend ax.Backend, cfg *config.Config, logger *slog.Logger) *Animator {
	return &Animator{
		backend:     backend,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		cmd:         make(chan func(), queueDepth),
		tick:        make(chan struct{}, 1),
		done:        make(chan completion, queueDepth),
		writeQueue:  make(chan writeTask, queueDepth),
		jobs:        map[string]*job{},
		lastApplied: map[string]model.Rect{},
		busy:        map[string]bool{},
	}
}

// Run drives the logic worker until ctx is cancelled, and starts the
// write worker alongside it (spec.md §5's "Animator write worker").
func (a *Animator) Run(ctx context.Context) {
	go a.runWriteWorker(ctx)
	a.runLogicWorker(ctx)
}

func (a *Animator) runLogicWorker(ctx context.Context) {
	a.logger.Info("animator logic worker started")
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("animator logic worker stopped")
			return
		case f := <-a.cmd:
			a.safe(f)
		case <-a.tick:
			a.safe(a.onTick)
		case c := <-a.done:
			a.safe(func() { delete(a.busy, c.key) })
		}
	}
}

func (a *Animator) safe(f func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("animator: logic panic recovered", "error", r)
		}
	}()
	f()
}

func (a *Animator) runWriteWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-a.writeQueue:
			if err := a.backend.WriteFrame(task.handle, task.rect); err != nil {
				a.logger.Warn("animator: write failed", "handle", task.handle.String(), "error", err)
			}
			select {
			case a.done <- completion{key: task.handle.String()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// do submits f to the logic worker and blocks until it has run,
// giving callers (the Layout Engine, tests) a synchronous call even
// though the work happens on a different goroutine.
func (a *Animator) do(f func()) {
	done := make(chan struct{})
	a.cmd <- func() {
		f()
		close(done)
	}
	<-done
}

// Schedule implements spec.md §4.3.1.
func (a *Animator) Schedule(handle model.Handle, target model.Rect) {
	a.do(func() { a.scheduleLocked(handle, target) })
}

func (a *Animator) scheduleLocked(handle model.Handle, target model.Rect) {
	key := handle.String()

	if !a.suppressionDeadline.IsZero() && a.now().Before(a.suppressionDeadline) {
		a.writeInstant(handle, target)
		return
	}

	rounded := target.Round()
	if existing, ok := a.jobs[key]; ok && existing.targetFrame == rounded {
		return
	}

	current, err := a.backend.ReadFrame(handle)
	if err != nil {
		a.writeInstant(handle, rounded)
		delete(a.jobs, key)
		return
	}

	if current.ChebyshevDistance(rounded) < a.cfg.AnimatorDeadZone {
		a.writeInstant(handle, rounded)
		delete(a.jobs, key)
		return
	}

	a.jobs[key] = &job{
		handle:      handle,
		startFrame:  current,
		targetFrame: rounded,
		startedAt:   a.now(),
		duration:    a.cfg.AnimationDuration,
	}
	a.ensureDriverRunning()
}

// writeInstant dispatches a single write straight to the write queue,
// bypassing the busy set and interpolation entirely — used by the
// suppression and below-dead-zone paths of spec.md §4.3.1.
func (a *Animator) writeInstant(handle model.Handle, rect model.Rect) {
	a.submitWrite(handle, rect)
}

func (a *Animator) submitWrite(handle model.Handle, rect model.Rect) {
	select {
	case a.writeQueue <- writeTask{handle: handle, rect: rect}:
	default:
		a.logger.Warn("animator: write queue full, dropping write", "handle", handle.String())
		delete(a.busy, handle.String())
	}
}

// onTick implements spec.md §4.3.2, run once per display-refresh
// callback on the logic worker.
func (a *Animator) onTick() {
	if len(a.jobs) == 0 {
		a.stopDriver()
		return
	}

	now := a.now()
	var completedKeys []string

	for key, j := range a.jobs {
		if a.busy[key] {
			continue
		}

		t := now.Sub(j.startedAt).Seconds() / j.duration.Seconds()
		if t < 0 {
			t = 0
		}
		complete := t >= 1
		if complete {
			t = 1
		}

		e := 1 - math.Pow(1-t, a.cfg.EaseExponent)
		interp := model.Rect{
			X:      lerp(j.startFrame.X, j.targetFrame.X, e),
			Y:      lerp(j.startFrame.Y, j.targetFrame.Y, e),
			Width:  lerp(j.startFrame.Width, j.targetFrame.Width, e),
			Height: lerp(j.startFrame.Height, j.targetFrame.Height, e),
		}.Round()

		if last, ok := a.lastApplied[key]; !ok || last != interp {
			a.lastApplied[key] = interp
			a.busy[key] = true
			a.submitWrite(j.handle, interp)
		}

		if complete {
			completedKeys = append(completedKeys, key)
		}
	}

	for _, key := range completedKeys {
		j := a.jobs[key]
		delete(a.jobs, key)
		delete(a.lastApplied, key)
		// Final write at exactly targetFrame defeats sub-pt drift
		// accumulated across the interpolation (spec.md §4.3.2 step 3).
		a.submitWrite(j.handle, j.targetFrame)
	}
}

func lerp(from, to, e float64) float64 {
	return from + (to-from)*e
}

// Suppress implements spec.md §4.3.3's suppress(duration).
func (a *Animator) Suppress(d time.Duration) {
	a.do(func() {
		a.suppressionDeadline = a.now().Add(d)
	})
}

// ForceIntoPlace implements spec.md §4.3.3's forceIntoPlace: clears
// any job for handle and writes rect twice, ~10ms apart, to counter
// races where the OS repositions the window mid-transition.
func (a *Animator) ForceIntoPlace(handle model.Handle, rect model.Rect) {
	key := handle.String()
	a.do(func() {
		delete(a.jobs, key)
		delete(a.busy, key)
		delete(a.lastApplied, key)
		a.submitWrite(handle, rect)
	})
	time.Sleep(10 * time.Millisecond)
	a.do(func() {
		a.submitWrite(handle, rect)
	})
}

func (a *Animator) ensureDriverRunning() {
	if a.driverStop != nil {
		return
	}
	stop := make(chan struct{})
	a.driverStop = stop
	go a.runDriver(stop)
}

func (a *Animator) runDriver(stop chan struct{}) {
	ticker := time.NewTicker(fallbackTickRate)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.postTick()
		}
	}
}

func (a *Animator) stopDriver() {
	if a.driverStop != nil {
		close(a.driverStop)
		a.driverStop = nil
	}
}

func (a *Animator) postTick() {
	select {
	case a.tick <- struct{}{}:
	default:
	}
}

// ActiveJobCount reports the number of in-flight animation jobs, for
// the read-only dashboard and tests.
func (a *Animator) ActiveJobCount() int {
	n := make(chan int, 1)
	a.do(func() { n <- len(a.jobs) })
	return <-n
}
