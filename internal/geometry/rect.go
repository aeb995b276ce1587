package geometry

// Rect represents a window position and size in pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ContainsPoint reports whether the point (x, y) lies inside the rect.
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Center returns the center point of the rect.
func (r Rect) Center() (x, y int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Resolve corrects a requested floating-window rectangle against the usable
// display bounds so the result is always a sensible on-screen placement.
//
// Each axis is handled independently, size first, position second:
//   - an extent larger than the bound is clamped to the full bound at
//     position 0
//   - a zero extent becomes half the bound
//   - a rect lying entirely outside the bound is re-centered
//
// All other values pass through unchanged. The vertical bound is rounded
// down to an even number first so later split and centering arithmetic
// stays exact under integer division.
func Resolve(req, bounds Rect) Rect {
	res := req

	boundW := bounds.Width
	boundH := bounds.Height &^ 1

	res.X, res.Width = resolveAxis(req.X, req.Width, boundW)
	res.Y, res.Height = resolveAxis(req.Y, req.Height, boundH)
	return res
}

func resolveAxis(pos, extent, bound int) (int, int) {
	if extent > bound {
		pos = 0
		extent = bound
	} else if extent == 0 {
		extent = bound / 2
	}

	// Fully off-screen on this axis: center what we have.
	if pos > bound || pos+extent < 0 {
		pos = (bound - extent) / 2
	}

	return pos, extent
}
