// Package ax abstracts the macOS accessibility and window-server
// interfaces consumed by Discovery and the Animator (spec.md §6.1).
// Discovery reads application and window attributes through it;
// the Animator writes geometry through it. Exactly one implementation
// talks to real macOS frameworks (backend_darwin.go, cgo, built only
// on darwin); every other platform gets backend_unsupported.go so the
// module still type-checks, and tests use the in-memory Fake.
package ax

import (
	"context"
	"time"

	"github.com/1broseidon/mstack/internal/model"
)

// AppInfo describes one running application as enumerated by
// Discovery step 1 (spec.md §4.1).
type AppInfo struct {
	PID              int
	BundleID         string
	Name             string
	ActivationPolicy ActivationPolicy
	Hidden           bool
}

// ActivationPolicy mirrors NSApplicationActivationPolicy; Discovery
// only tiles "regular" applications.
type ActivationPolicy int

const (
	ActivationPolicyRegular ActivationPolicy = iota
	ActivationPolicyAccessory
	ActivationPolicyProhibited
)

// RawWindow is one accessibility-tree window entry, before the
// tileability filters in spec.md §4.1 step 3 are applied.
type RawWindow struct {
	Handle          model.Handle
	Role            string
	Subrole         string
	Minimized       bool
	Title           string
	Frame           model.Rect
	SizeSettable    bool
	WindowNumber    uint32 // 0 means "unavailable"
}

// Screen is a physical display's usable (work-area) rectangle.
type Screen struct {
	ID     int
	Frame  model.Rect
}

// MovedResizedCallback is invoked on the main thread when the window
// server reports a moved/resized notification for a subscribed handle
// (spec.md §6.1, §6.2 "move/resize observers").
type MovedResizedCallback func()

// Backend is the platform accessibility interface spec.md §6.1
// requires of the operating system. All methods may block. Discovery's
// worker and the Animator's logic and write workers make most calls;
// the Layout Engine also reads Screens, and the daemon's main loop
// calls Subscribe.
type Backend interface {
	// Trusted reports whether the process currently holds accessibility
	// permission. Discovery must not scan before this is true.
	Trusted() bool

	// WhenTrusted invokes cb exactly once, as soon as trust is granted
	// (immediately, if already trusted).
	WhenTrusted(cb func())

	// RunningApplications enumerates applications for Discovery step 1.
	RunningApplications() ([]AppInfo, error)

	// AppWindows reads one application's accessibility window list
	// (spec.md §4.1 step 3), before any tileability filter is applied.
	AppWindows(pid int) ([]RawWindow, error)

	// OnScreenWindowIDs queries the compositor for layer-0 on-screen
	// window numbers (spec.md §4.1 step 2).
	OnScreenWindowIDs() (map[uint32]bool, error)

	// FocusedWindow reads the focused application's focused window
	// without mutating any internal state (spec.md §4.1).
	FocusedWindow() (*model.WindowRecord, error)

	// ReadFrame reads a handle's current frame (spec.md §4.3.1).
	ReadFrame(h model.Handle) (model.Rect, error)

	// WriteFrame writes a handle's frame. Implementations must set size
	// before position (spec.md §4.3.4).
	WriteFrame(h model.Handle, r model.Rect) error

	// Subscribe installs moved/resized observers on h, delivered on the
	// main thread via onChange. The returned cancel func removes them.
	Subscribe(h model.Handle, onChange MovedResizedCallback) (cancel func(), err error)

	// Screens enumerates active displays with their usable work area.
	Screens() ([]Screen, error)

	// PrimaryScreenFrame is the usable frame of the main display, used
	// by Discovery's optimistic intersection test (spec.md §4.1 step 4).
	PrimaryScreenFrame() (model.Rect, error)
}

// ErrUnsupportedPlatform is returned by the stub backend used on
// non-darwin builds.
type ErrUnsupportedPlatform struct{ Op string }

func (e *ErrUnsupportedPlatform) Error() string {
	return "ax: " + e.Op + " is only supported on macOS"
}

// WaitTrusted blocks until the backend reports trust or ctx is done,
// polling Trusted at the given interval, so callers don't each
// reimplement the poll loop.
func WaitTrusted(ctx context.Context, b Backend, poll time.Duration) error {
	if b.Trusted() {
		return nil
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if b.Trusted() {
				return nil
			}
		}
	}
}
