// Package permissions gates Discovery startup on the accessibility
// trust state described in spec.md §6.2's "Permissions helper".
package permissions

import (
	"github.com/1broseidon/mstack/internal/ax"
)

// Helper exposes isTrusted/whenTrusted over a backend, matching the
// external collaborator contract spec.md §6.2 requires. It is a thin
// wrapper: the real logic lives in the ax.Backend implementation,
// which already tracks AXIsProcessTrusted.
type Helper struct {
	backend ax.Backend
}

// New constructs a Helper bound to backend.
func New(backend ax.Backend) *Helper {
	return &Helper{backend: backend}
}

// IsTrusted reports whether the process currently holds accessibility
// permission.
func (h *Helper) IsTrusted() bool {
	return h.backend.Trusted()
}

// WhenTrusted invokes cb exactly once, as soon as trust is granted.
func (h *Helper) WhenTrusted(cb func()) {
	h.backend.WhenTrusted(cb)
}
