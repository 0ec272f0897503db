package discovery

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/1broseidon/mstack/internal/ax"
	"github.com/1broseidon/mstack/internal/config"
	"github.com/1broseidon/mstack/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestDiscovery(t *testing.T, backend *ax.Fake) (*Discovery, chan []model.WindowRecord) {
	t.Helper()
	cfg := config.Default()
	cfg.DiscoveryPeriod = 5 * time.Millisecond
	cfg.BurstInterval = time.Millisecond
	out := make(chan []model.WindowRecord, 16)
	d := New(backend, cfg, testLogger(), func(snap []model.WindowRecord) {
		out <- snap
	})
	return d, out
}

func regularWindow(id string, pid int, appName string, frame model.Rect, windowNumber uint32) ax.FakeWindow {
	return ax.FakeWindow{
		Handle:       ax.NewFakeHandle(id),
		PID:          pid,
		AppName:      appName,
		BundleID:     "com.example." + appName,
		Role:         roleWindow,
		Minimized:    false,
		Title:        appName + " window",
		Frame:        frame,
		SizeSettable: true,
		WindowNumber: windowNumber,
		OnScreen:     true,
	}
}

func TestScan_NotTrustedYieldsEmpty(t *testing.T) {
	backend := ax.NewFake()
	backend.SetTrusted(false)
	backend.SetWindows([]ax.FakeWindow{
		regularWindow("a", 1, "Safari", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 10),
	})

	d, _ := newTestDiscovery(t, backend)
	snap := d.scan(false)
	if snap != nil {
		t.Fatalf("expected nil snapshot when untrusted, got %v", snap)
	}
}

func TestScan_FiltersRejectNonTileableWindows(t *testing.T) {
	backend := ax.NewFake()
	okWindow := regularWindow("ok", 1, "Safari", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 10)

	minimized := regularWindow("min", 1, "Safari", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 11)
	minimized.Minimized = true

	tiny := regularWindow("tiny", 1, "Safari", model.Rect{X: 0, Y: 0, Width: 10, Height: 10}, 12)

	untitled := regularWindow("untitled", 1, "Safari", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 13)
	untitled.Title = ""

	notResizable := regularWindow("fixed", 1, "Safari", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 14)
	notResizable.SizeSettable = false

	dialog := regularWindow("dlg", 1, "Safari", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 15)
	dialog.Subrole = subroleDialog

	backend.SetWindows([]ax.FakeWindow{okWindow, minimized, tiny, untitled, notResizable, dialog})
	backend.SetScreens([]ax.Screen{{ID: 0, Frame: model.Rect{X: 0, Y: 0, Width: 1440, Height: 900}}})

	d, _ := newTestDiscovery(t, backend)
	snap := d.scan(false)

	if len(snap) != 1 {
		t.Fatalf("expected exactly 1 tileable window, got %d: %+v", len(snap), snap)
	}
	if snap[0].WindowID != model.WindowID(10) {
		t.Fatalf("expected surviving window id 10, got %d", snap[0].WindowID)
	}
}

func TestScan_OnScreenDerivedFromCompositorWhenNotWhitelisted(t *testing.T) {
	backend := ax.NewFake()
	w := regularWindow("a", 1, "Xcode", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 20)
	w.OnScreen = false // compositor does not report it
	backend.SetWindows([]ax.FakeWindow{w})
	backend.SetScreens([]ax.Screen{{ID: 0, Frame: model.Rect{X: 0, Y: 0, Width: 1440, Height: 900}}})

	d, _ := newTestDiscovery(t, backend)
	snap := d.scan(false)
	if len(snap) != 1 {
		t.Fatalf("expected 1 record, got %d", len(snap))
	}
	if snap[0].OnScreen {
		t.Fatalf("expected OnScreen=false since compositor does not list window 20")
	}
}

func TestScan_BrowserWhitelistBypassesCompositorCheck(t *testing.T) {
	backend := ax.NewFake()
	w := regularWindow("a", 1, "Google Chrome", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 21)
	w.OnScreen = false // compositor says absent, but whitelist ignores that
	backend.SetWindows([]ax.FakeWindow{w})
	backend.SetScreens([]ax.Screen{{ID: 0, Frame: model.Rect{X: 0, Y: 0, Width: 1440, Height: 900}}})

	d, _ := newTestDiscovery(t, backend)
	snap := d.scan(false)
	if len(snap) != 1 || !snap[0].OnScreen {
		t.Fatalf("expected whitelisted browser window to be onScreen via geometry intersection, got %+v", snap)
	}
}

func TestScan_ForceVisibleOverridesCompositor(t *testing.T) {
	backend := ax.NewFake()
	w := regularWindow("a", 1, "Xcode", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 22)
	w.OnScreen = false
	backend.SetWindows([]ax.FakeWindow{w})
	backend.SetScreens([]ax.Screen{{ID: 0, Frame: model.Rect{X: 0, Y: 0, Width: 1440, Height: 900}}})

	d, _ := newTestDiscovery(t, backend)
	snap := d.scan(true)
	if len(snap) != 1 || !snap[0].OnScreen {
		t.Fatalf("expected forceVisible scan to mark onscreen when frame intersects screen, got %+v", snap)
	}
}

func TestScan_SurrogateIDWhenWindowNumberMissing(t *testing.T) {
	backend := ax.NewFake()
	w := regularWindow("a", 1, "Safari", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 0)
	backend.SetWindows([]ax.FakeWindow{w})
	backend.SetScreens([]ax.Screen{{ID: 0, Frame: model.Rect{X: 0, Y: 0, Width: 1440, Height: 900}}})

	d, _ := newTestDiscovery(t, backend)
	snap := d.scan(false)
	if len(snap) != 1 {
		t.Fatalf("expected 1 record, got %d", len(snap))
	}
	if snap[0].WindowID == 0 {
		t.Fatalf("expected a derived surrogate id, got 0")
	}
}

func TestForceImmediateScan_DeliversSnapshot(t *testing.T) {
	backend := ax.NewFake()
	backend.SetWindows([]ax.FakeWindow{
		regularWindow("a", 1, "Safari", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 30),
	})
	backend.SetScreens([]ax.Screen{{ID: 0, Frame: model.Rect{X: 0, Y: 0, Width: 1440, Height: 900}}})

	d, out := newTestDiscovery(t, backend)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.ForceImmediateScan()

	select {
	case snap := <-out:
		if len(snap) != 1 {
			t.Fatalf("expected 1 record in snapshot, got %d", len(snap))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

func TestStartBurstScan_EmitsBurstCountSnapshots(t *testing.T) {
	backend := ax.NewFake()
	backend.SetWindows([]ax.FakeWindow{
		regularWindow("a", 1, "Safari", model.Rect{X: 0, Y: 0, Width: 400, Height: 400}, 40),
	})
	backend.SetScreens([]ax.Screen{{ID: 0, Frame: model.Rect{X: 0, Y: 0, Width: 1440, Height: 900}}})

	d, out := newTestDiscovery(t, backend)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.StartBurstScan(ctx)

	received := 0
	timeout := time.After(2 * time.Second)
	for received < 7 {
		select {
		case <-out:
			received++
		case <-timeout:
			t.Fatalf("expected 7 burst snapshots, got %d", received)
		}
	}
}

func TestFocusedWindow_DelegatesToBackend(t *testing.T) {
	backend := ax.NewFake()
	want := &model.WindowRecord{WindowID: 99, AppName: "Safari"}
	backend.SetFocused(want)

	d, _ := newTestDiscovery(t, backend)
	got, err := d.FocusedWindow()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.WindowID != want.WindowID {
		t.Fatalf("expected window id %d, got %d", want.WindowID, got.WindowID)
	}
}
