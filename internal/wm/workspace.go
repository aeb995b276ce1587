package wm

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/floatwm/floatwm/internal/geometry"
)

// Workspace is one virtual desktop on one output.
type Workspace struct {
	Num    int
	Root   xproto.Window // placement surface for this workspace's output
	Bounds geometry.Rect // output bounds; usable area is derived per call
	Visible bool
	// Urgent marks a workspace where a state change happened while it was
	// not the one visible to the user.
	Urgent bool
}

// BoundsFunc computes the usable display bounds for a workspace, excluding
// panel chrome and border allowances. It is invoked fresh on every float
// because chrome size can change between invocations.
type BoundsFunc func(ws *Workspace) (geometry.Rect, error)

// TilePolicy re-arranges the tiled windows of a workspace. The floating
// controller hands a window back to it after unfloating.
type TilePolicy interface {
	Retile(ws *Workspace, windows []*ManagedWindow) error
}

// History records recently touched workspaces, most recent first.
type History struct {
	nums []int
}

// Touch moves num to the front of the history.
func (h *History) Touch(num int) {
	out := make([]int, 0, len(h.nums)+1)
	out = append(out, num)
	for _, n := range h.nums {
		if n != num {
			out = append(out, n)
		}
	}
	h.nums = out
}

// Recent returns the history, most recent first.
func (h *History) Recent() []int {
	out := make([]int, len(h.nums))
	copy(out, h.nums)
	return out
}
