//go:build !darwin

package ax

import "github.com/1broseidon/mstack/internal/model"

// unsupportedBackend satisfies Backend on non-darwin build targets so
// the module (and its tests, which all run against Fake) still type
// checks outside of a macOS toolchain.
type unsupportedBackend struct{}

// NewBackend returns a backend whose every method fails. mstackd is a
// macOS-only daemon; this only exists so `go build ./...` on a Linux
// CI runner doesn't fall over on a missing GOOS-specific file.
func NewBackend() Backend { return unsupportedBackend{} }

func (unsupportedBackend) Trusted() bool          { return false }
func (unsupportedBackend) WhenTrusted(cb func()) {}

func (unsupportedBackend) RunningApplications() ([]AppInfo, error) {
	return nil, &ErrUnsupportedPlatform{Op: "RunningApplications"}
}

func (unsupportedBackend) AppWindows(pid int) ([]RawWindow, error) {
	return nil, &ErrUnsupportedPlatform{Op: "AppWindows"}
}

func (unsupportedBackend) OnScreenWindowIDs() (map[uint32]bool, error) {
	return nil, &ErrUnsupportedPlatform{Op: "OnScreenWindowIDs"}
}

func (unsupportedBackend) FocusedWindow() (*model.WindowRecord, error) {
	return nil, &ErrUnsupportedPlatform{Op: "FocusedWindow"}
}

func (unsupportedBackend) ReadFrame(h model.Handle) (model.Rect, error) {
	return model.Rect{}, &ErrUnsupportedPlatform{Op: "ReadFrame"}
}

func (unsupportedBackend) WriteFrame(h model.Handle, r model.Rect) error {
	return &ErrUnsupportedPlatform{Op: "WriteFrame"}
}

func (unsupportedBackend) Subscribe(h model.Handle, onChange MovedResizedCallback) (func(), error) {
	return func() {}, &ErrUnsupportedPlatform{Op: "Subscribe"}
}

func (unsupportedBackend) Screens() ([]Screen, error) {
	return nil, &ErrUnsupportedPlatform{Op: "Screens"}
}

func (unsupportedBackend) PrimaryScreenFrame() (model.Rect, error) {
	return model.Rect{}, &ErrUnsupportedPlatform{Op: "PrimaryScreenFrame"}
}
