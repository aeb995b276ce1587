package layout

import (
	"fmt"
	"math"

	"github.com/floatwm/floatwm/internal/geometry"
	"github.com/floatwm/floatwm/internal/wm"
)

// GridDims determines the grid dimensions for the given number of windows
func GridDims(numWindows int) (rows, cols int) {
	if numWindows == 0 {
		return 0, 0
	}

	// Columns first (ceiling of square root), then the rows needed to
	// hold everything.
	cols = int(math.Ceil(math.Sqrt(float64(numWindows))))
	rows = int(math.Ceil(float64(numWindows) / float64(cols)))

	return rows, cols
}

// Positions computes window rects for a grid layout with gaps
func Positions(numWindows int, bounds geometry.Rect, gapSize int) ([]geometry.Rect, error) {
	if numWindows == 0 {
		return nil, nil
	}

	rows, cols := GridDims(numWindows)

	// Gaps: one before each column and one after, same vertically.
	totalHorizontalGaps := (cols + 1) * gapSize
	totalVerticalGaps := (rows + 1) * gapSize

	cellWidth := (bounds.Width - totalHorizontalGaps) / cols
	cellHeight := (bounds.Height - totalVerticalGaps) / rows

	if cellWidth <= 0 || cellHeight <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for grid: bounds=%dx%d rows=%d cols=%d gap=%d (cell=%dx%d)",
			bounds.Width, bounds.Height, rows, cols, gapSize, cellWidth, cellHeight,
		)
	}

	positions := make([]geometry.Rect, numWindows)
	for i := 0; i < numWindows; i++ {
		row := i / cols
		col := i % cols

		positions[i] = geometry.Rect{
			X:      bounds.X + gapSize + col*(cellWidth+gapSize),
			Y:      bounds.Y + gapSize + row*(cellHeight+gapSize),
			Width:  cellWidth,
			Height: cellHeight,
		}
	}

	return positions, nil
}

// Grid arranges a workspace's tiled windows into an auto-sized grid.
// It implements wm.TilePolicy.
type Grid struct {
	Gateway wm.Gateway
	Bounds  wm.BoundsFunc
	Gap     int
}

// Retile recomputes the grid and moves every tiled window into its cell.
func (g *Grid) Retile(ws *wm.Workspace, windows []*wm.ManagedWindow) error {
	if len(windows) == 0 {
		return nil
	}

	bounds, err := g.Bounds(ws)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace bounds: %w", err)
	}

	positions, err := Positions(len(windows), bounds, g.Gap)
	if err != nil {
		return err
	}

	mask := wm.ConfigX | wm.ConfigY | wm.ConfigWidth | wm.ConfigHeight
	for i, win := range windows {
		pos := positions[i]
		if win.FixedHint {
			// Center fixed-size windows in their cell instead of
			// stretching them.
			pos = centerIn(win.Geom, pos)
		}
		if err := g.Gateway.ConfigureWindow(win.ID, wm.Configure{
			Mask: mask,
			X:    pos.X, Y: pos.Y, Width: pos.Width, Height: pos.Height,
		}); err != nil {
			return fmt.Errorf("failed to place window %d: %w", win.ID, err)
		}
		win.Geom = pos
	}
	g.Gateway.Flush()

	return nil
}

func centerIn(win, cell geometry.Rect) geometry.Rect {
	out := win
	if out.Width > cell.Width {
		out.Width = cell.Width
	}
	if out.Height > cell.Height {
		out.Height = cell.Height
	}
	out.X = cell.X + (cell.Width-out.Width)/2
	out.Y = cell.Y + (cell.Height-out.Height)/2
	return out
}
