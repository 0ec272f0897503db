// Package space models the external space/throw-manager collaborator
// of spec.md §6.2: the subsystem (outside the core) that synthesizes
// the HID events behind macOS space switches and window throws. The
// core only needs its isThrowing flag and two trigger points; the
// actual event synthesis is explicitly out of scope (spec.md §1).
package space

import "sync/atomic"

// ChangeFunc is invoked after a space switch or window throw
// completes. The daemon wiring registers one to run
// Discovery.StartBurstScan and LayoutEngine.ResetCache, per spec.md
// §6.2.
type ChangeFunc func()

// Manager tracks the isThrowing flag spec.md §4.2.4 and §6.2 describe,
// and drives the burst-scan/cache-reset sequence on space change.
// Reads and writes of isThrowing happen on the main/UI thread per
// spec.md §5; atomic.Bool makes that safe even if a caller slips.
type Manager struct {
	throwing atomic.Bool
	onChange ChangeFunc
}

// New constructs an idle Manager. onChange is called after every
// switchToSpace/moveWindowToSpace.
func New(onChange ChangeFunc) *Manager {
	return &Manager{onChange: onChange}
}

// SwitchToSpace switches the active space to index i. Event synthesis
// is out of scope (spec.md §1); this marks isThrowing and invokes
// onChange, which the daemon wires to Discovery.startBurstScan and
// LayoutEngine.resetCache (spec.md §6.2). The caller is responsible
// for calling EndThrow once the transition has settled.
func (m *Manager) SwitchToSpace(i int) {
	m.BeginThrow()
	if m.onChange != nil {
		m.onChange()
	}
}

// MoveWindowToSpace throws record to space i. Like SwitchToSpace, the
// actual HID-level move is out of scope; this exists so the core's
// applyLayout bail-out and post-throw rescan are exercised.
func (m *Manager) MoveWindowToSpace(record any, i int) {
	m.BeginThrow()
	if m.onChange != nil {
		m.onChange()
	}
}

// IsThrowing reports the current throw-in-progress state, consumed by
// the Layout Engine's applyLayout bail-out check.
func (m *Manager) IsThrowing() bool {
	return m.throwing.Load()
}

// BeginThrow sets isThrowing, e.g. when the user starts dragging a
// window to another space.
func (m *Manager) BeginThrow() {
	m.throwing.Store(true)
}

// EndThrow clears isThrowing.
func (m *Manager) EndThrow() {
	m.throwing.Store(false)
}
