// Package model holds the value types shared by every component of
// the tiling core: the window record Discovery produces, the rectangle
// type the Layout Engine and Animator both speak, and the opaque
// accessibility handle identity.
package model

import (
	"fmt"
	"hash/fnv"
)

// Rect is a screen-space rectangle in points.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Within reports whether r and o are within tolerance on all four
// components (the Layout Engine's "< 1pt" cache dead zone of spec.md
// §4.2.4 builds on this; the Animator's 2pt dead zone uses
// ChebyshevDistance instead).
func (r Rect) Within(o Rect, tolerance float64) bool {
	return absf(r.X-o.X) < tolerance &&
		absf(r.Y-o.Y) < tolerance &&
		absf(r.Width-o.Width) < tolerance &&
		absf(r.Height-o.Height) < tolerance
}

// ChebyshevDistance returns the maximum absolute component-wise
// difference between r and o — the metric the Animator's 2pt dead
// zone check uses (spec.md §4.3.1).
func (r Rect) ChebyshevDistance(o Rect) float64 {
	d := absf(r.X - o.X)
	if v := absf(r.Y - o.Y); v > d {
		d = v
	}
	if v := absf(r.Width - o.Width); v > d {
		d = v
	}
	if v := absf(r.Height - o.Height); v > d {
		d = v
	}
	return d
}

// Round rounds every component to the nearest integer point, as
// required before dispatching a write (spec.md §4.3.1).
func (r Rect) Round() Rect {
	return Rect{
		X:      roundf(r.X),
		Y:      roundf(r.Y),
		Width:  roundf(r.Width),
		Height: roundf(r.Height),
	}
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func roundf(v float64) float64 {
	if v < 0 {
		return -roundf(-v)
	}
	return float64(int64(v + 0.5))
}

// Handle is an opaque identity token for an accessibility element,
// equality semantics owned by the ax backend (spec.md §9 "Handle
// equality"). The darwin backend's handles satisfy this via pointer
// identity on the retained AXUIElementRef wrapper; the fake backend
// used in tests satisfies it with a plain comparable struct.
type Handle interface {
	// String returns a stable, human-readable identity for logging.
	String() string
}

// WindowID is the stable identifier spec.md §3 keys ManagedList and
// ZombieTable entries by.
type WindowID uint32

// SurrogateID derives a deterministic WindowID from a handle's
// identity when the compositor does not report a window number
// (spec.md §3 "if absent... derive a deterministic surrogate").
func SurrogateID(h Handle) WindowID {
	sum := fnv.New32a()
	_, _ = sum.Write([]byte(h.String()))
	v := sum.Sum32()
	if v == 0 {
		// Reserve 0 for "unknown"; FNV offset basis never hashes to it in
		// practice, but guard explicitly for determinism.
		v = 1
	}
	return WindowID(v)
}

// WindowRecord is a snapshot-time value describing one candidate
// tileable window (spec.md §3).
type WindowRecord struct {
	WindowID  WindowID
	PID       int
	AppName   string
	BundleID  string
	Frame     Rect
	OnScreen  bool
	Handle    Handle
}

func (w WindowRecord) String() string {
	return fmt.Sprintf("window{id=%d app=%q pid=%d frame=%+v onscreen=%v}",
		w.WindowID, w.AppName, w.PID, w.Frame, w.OnScreen)
}
