package layout

import (
	"github.com/1broseidon/mstack/internal/config"
	"github.com/1broseidon/mstack/internal/model"
)

// computeRects implements the master–stack geometry calculation of
// spec.md §4.2.3. bounds must already be inset by GAP on each side;
// windows is the subsequence of ManagedList assigned to this screen,
// in ManagedList order (index 0 is master).
func computeRects(bounds model.Rect, windows []model.WindowRecord, cfg *config.Config) []model.Rect {
	switch len(windows) {
	case 0:
		return nil
	case 1:
		return []model.Rect{bounds}
	}

	gap := float64(cfg.Gap)
	stackMin := float64(cfg.StackMin)
	desiredMin := float64(cfg.MinMasterWidth(windows[0].AppName))

	masterWidth := bounds.Width / 2
	if desiredMin > masterWidth {
		masterWidth = desiredMin
	}
	if max := bounds.Width - stackMin - gap; masterWidth > max {
		masterWidth = max
	}

	out := make([]model.Rect, len(windows))
	out[0] = model.Rect{
		X:      bounds.X,
		Y:      bounds.Y,
		Width:  masterWidth,
		Height: bounds.Height,
	}

	stackX := bounds.X + masterWidth + gap
	stackWidth := bounds.Width - masterWidth - gap
	n := len(windows) - 1
	cellHeight := (bounds.Height - gap*float64(n-1)) / float64(n)

	for i := 0; i < n; i++ {
		out[i+1] = model.Rect{
			X:      stackX,
			Y:      bounds.Y + float64(i)*(cellHeight+gap),
			Width:  stackWidth,
			Height: cellHeight,
		}
	}
	return out
}

// insetBounds applies the GAP inset spec.md §4.2.3 requires on every
// edge of a screen's usable frame before geometry is computed.
func insetBounds(frame model.Rect, gap int) model.Rect {
	g := float64(gap)
	return model.Rect{
		X:      frame.X + g,
		Y:      frame.Y + g,
		Width:  frame.Width - 2*g,
		Height: frame.Height - 2*g,
	}
}

// assignScreen picks the screen a record's last known frame overlaps
// the most, defaulting to the first screen when there is no overlap
// at all (e.g. a brand-new window still reporting a zero frame).
func assignScreen(frame model.Rect, screens []model.Rect) int {
	best := 0
	bestArea := -1.0
	for i, s := range screens {
		if !s.Intersects(frame) {
			continue
		}
		area := overlapArea(s, frame)
		if area > bestArea {
			bestArea = area
			best = i
		}
	}
	return best
}

func overlapArea(a, b model.Rect) float64 {
	x0, x1 := max2(a.X, b.X), min2(a.X+a.Width, b.X+b.Width)
	y0, y1 := max2(a.Y, b.Y), min2(a.Y+a.Height, b.Y+b.Height)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	return (x1 - x0) * (y1 - y0)
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
