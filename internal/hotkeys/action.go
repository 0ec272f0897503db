// Package hotkeys models the external hotkey dispatcher of spec.md
// §6.2: the global key tap and keybind table are platform adapters
// outside the core's scope. What the core owns is the Action sum type
// the dispatcher produces and the routing of each variant to the
// Layout Engine, the space manager, or the process lifecycle.
package hotkeys

import "github.com/1broseidon/mstack/internal/layout"

// ActionKind enumerates the Action sum type of spec.md §6.2.
type ActionKind int

const (
	ActionFocus ActionKind = iota
	ActionMove
	ActionWorkspace
	ActionMoveToWorkspace
	ActionNextWorkspace
	ActionPreviousWorkspace
	ActionReload
	ActionQuit
)

// Action is one dispatched hotkey event. Direction is populated for
// Focus/Move; Workspace is populated for Workspace/MoveToWorkspace.
type Action struct {
	Kind      ActionKind
	Direction layout.Direction
	Workspace int
}

// Router is the set of collaborators an Action may be routed to
// (spec.md §6.2: "routed to the Layout Engine, the space-manager, and
// the process lifecycle respectively").
type Router struct {
	Engine        *layout.Engine
	SwitchSpace   func(i int)
	MoveToSpace   func(i int)
	NextWorkspace func()
	PrevWorkspace func()
	Reload        func()
	Quit          func()
}

// Dispatch routes a produced Action to its collaborator. Unwired
// routes (nil func fields) are silently skipped, so a daemon that
// only cares about tiling can still construct a Router.
func (r *Router) Dispatch(a Action) {
	switch a.Kind {
	case ActionFocus:
		// Focus management is a non-goal (spec.md §1); the core only
		// handles reordering, so a bare "focus" action has nothing to do
		// here and is intentionally a no-op.
	case ActionMove:
		if r.Engine != nil {
			r.Engine.MoveFocused(a.Direction)
		}
	case ActionWorkspace:
		if r.SwitchSpace != nil {
			r.SwitchSpace(a.Workspace)
		}
	case ActionMoveToWorkspace:
		if r.MoveToSpace != nil {
			r.MoveToSpace(a.Workspace)
		}
	case ActionNextWorkspace:
		if r.NextWorkspace != nil {
			r.NextWorkspace()
		}
	case ActionPreviousWorkspace:
		if r.PrevWorkspace != nil {
			r.PrevWorkspace()
		}
	case ActionReload:
		if r.Reload != nil {
			r.Reload()
		}
	case ActionQuit:
		if r.Quit != nil {
			r.Quit()
		}
	}
}
