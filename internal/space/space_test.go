package space

import "testing"

func TestSwitchToSpace_SetsThrowingAndInvokesOnChange(t *testing.T) {
	called := false
	m := New(func() { called = true })

	m.SwitchToSpace(2)

	if !m.IsThrowing() {
		t.Fatalf("expected isThrowing to be true immediately after SwitchToSpace")
	}
	if !called {
		t.Fatalf("expected onChange to be invoked")
	}

	m.EndThrow()
	if m.IsThrowing() {
		t.Fatalf("expected isThrowing to clear after EndThrow")
	}
}

func TestMoveWindowToSpace_SetsThrowing(t *testing.T) {
	m := New(nil)
	m.MoveWindowToSpace(nil, 1)
	if !m.IsThrowing() {
		t.Fatalf("expected isThrowing to be true after MoveWindowToSpace")
	}
}
