package ax

import (
	"fmt"
	"sync"

	"github.com/1broseidon/mstack/internal/model"
)

// fakeHandle is a plain comparable handle identity for tests — the
// Fake backend's equivalent of the darwin backend's pointer identity
// (spec.md §9 "Handle equality").
type fakeHandle struct {
	id string
}

func (h fakeHandle) String() string { return "fake(" + h.id + ")" }

// NewFakeHandle returns a Handle with the given stable identity, for
// use by test setup code that needs to refer to the same window
// across multiple Fake calls.
func NewFakeHandle(id string) model.Handle { return fakeHandle{id: id} }

// FakeWindow is the test double's notion of one window: everything
// Discovery and the Animator might read or write.
type FakeWindow struct {
	Handle       model.Handle
	PID          int
	AppName      string
	BundleID     string
	Role         string
	Subrole      string
	Minimized    bool
	Title        string
	Frame        model.Rect
	SizeSettable bool
	WindowNumber uint32
	OnScreen     bool // membership in the compositor's on-screen set
}

// Fake is an in-memory Backend used by every non-darwin test in this
// repository — the teacher never exercises a real X display in
// internal/tiling's tests either, so this plays the same role.
type Fake struct {
	mu sync.Mutex

	trusted bool
	windows []FakeWindow
	screens []Screen
	focused *model.WindowRecord

	// WriteLog records every WriteFrame call in order, for assertions
	// about write ordering and suppression.
	WriteLog []FakeWrite

	// ReadFrameErr, when set, makes ReadFrame fail for the matching
	// handle — used to exercise the Animator's "unreadable: substitute
	// the target" path (spec.md §4.3.1).
	ReadFrameErr map[string]error

	// WriteFrameErr, when set, makes WriteFrame fail for the matching
	// handle — exercises spec.md §7's "log; do not retry" path.
	WriteFrameErr map[string]error
}

// FakeWrite is one recorded WriteFrame call.
type FakeWrite struct {
	Handle model.Handle
	Rect   model.Rect
}

// NewFake constructs an empty, trusted Fake backend.
func NewFake() *Fake {
	return &Fake{
		trusted:       true,
		ReadFrameErr:  map[string]error{},
		WriteFrameErr: map[string]error{},
	}
}

func (f *Fake) SetTrusted(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trusted = v
}

func (f *Fake) SetScreens(screens []Screen) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.screens = screens
}

func (f *Fake) SetFocused(rec *model.WindowRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused = rec
}

// SetWindows replaces the full window set the Fake reports.
func (f *Fake) SetWindows(windows []FakeWindow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = windows
}

// MoveWindow mutates a tracked window's frame directly, simulating an
// external move (e.g. the user dragging it) independent of any
// animation in flight.
func (f *Fake) MoveWindow(id string, r model.Rect) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.windows {
		if f.windows[i].Handle.String() == "fake("+id+")" {
			f.windows[i].Frame = r
		}
	}
}

func (f *Fake) Trusted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trusted
}

// WhenTrusted invokes cb immediately if the Fake is trusted. If it is
// not, cb is dropped: a later SetTrusted(true) does not invoke it.
func (f *Fake) WhenTrusted(cb func()) {
	if f.Trusted() {
		cb()
	}
}

func (f *Fake) RunningApplications() ([]AppInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := map[int]AppInfo{}
	for _, w := range f.windows {
		seen[w.PID] = AppInfo{
			PID:              w.PID,
			BundleID:         w.BundleID,
			Name:             w.AppName,
			ActivationPolicy: ActivationPolicyRegular,
		}
	}
	out := make([]AppInfo, 0, len(seen))
	for _, a := range seen {
		out = append(out, a)
	}
	return out, nil
}

func (f *Fake) AppWindows(pid int) ([]RawWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []RawWindow
	for _, w := range f.windows {
		if w.PID != pid {
			continue
		}
		out = append(out, RawWindow{
			Handle:       w.Handle,
			Role:         w.Role,
			Subrole:      w.Subrole,
			Minimized:    w.Minimized,
			Title:        w.Title,
			Frame:        w.Frame,
			SizeSettable: w.SizeSettable,
			WindowNumber: w.WindowNumber,
		})
	}
	return out, nil
}

func (f *Fake) OnScreenWindowIDs() (map[uint32]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := map[uint32]bool{}
	for _, w := range f.windows {
		if w.OnScreen && w.WindowNumber != 0 {
			out[w.WindowNumber] = true
		}
	}
	return out, nil
}

func (f *Fake) FocusedWindow() (*model.WindowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.focused == nil {
		return nil, fmt.Errorf("ax/fake: no focused window set")
	}
	cp := *f.focused
	return &cp, nil
}

func (f *Fake) ReadFrame(h model.Handle) (model.Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.ReadFrameErr[h.String()]; ok {
		return model.Rect{}, err
	}
	for _, w := range f.windows {
		if w.Handle.String() == h.String() {
			return w.Frame, nil
		}
	}
	return model.Rect{}, fmt.Errorf("ax/fake: unknown handle %s", h.String())
}

func (f *Fake) WriteFrame(h model.Handle, r model.Rect) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.WriteLog = append(f.WriteLog, FakeWrite{Handle: h, Rect: r})

	if err, ok := f.WriteFrameErr[h.String()]; ok {
		return err
	}
	for i := range f.windows {
		if f.windows[i].Handle.String() == h.String() {
			f.windows[i].Frame = r
			return nil
		}
	}
	return fmt.Errorf("ax/fake: unknown handle %s", h.String())
}

func (f *Fake) Subscribe(h model.Handle, onChange MovedResizedCallback) (func(), error) {
	return func() {}, nil
}

func (f *Fake) Screens() ([]Screen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.screens) == 0 {
		return []Screen{{ID: 0, Frame: model.Rect{X: 0, Y: 0, Width: 1440, Height: 900}}}, nil
	}
	out := make([]Screen, len(f.screens))
	copy(out, f.screens)
	return out, nil
}

func (f *Fake) PrimaryScreenFrame() (model.Rect, error) {
	screens, err := f.Screens()
	if err != nil {
		return model.Rect{}, err
	}
	return screens[0].Frame, nil
}
