package hotkeys

import "testing"

func TestDispatch_RoutesReloadAndQuit(t *testing.T) {
	reloaded, quit := false, false
	r := &Router{
		Reload: func() { reloaded = true },
		Quit:   func() { quit = true },
	}

	r.Dispatch(Action{Kind: ActionReload})
	r.Dispatch(Action{Kind: ActionQuit})

	if !reloaded || !quit {
		t.Fatalf("expected both reload and quit to fire, got reload=%v quit=%v", reloaded, quit)
	}
}

func TestDispatch_UnwiredRouteIsNoop(t *testing.T) {
	r := &Router{}
	r.Dispatch(Action{Kind: ActionWorkspace, Workspace: 2})
}
