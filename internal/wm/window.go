package wm

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/floatwm/floatwm/internal/geometry"
)

// Mode is a window's placement mode.
type Mode int

const (
	// ModeTiled means the window is positioned by the workspace layout.
	ModeTiled Mode = iota
	// ModeFloating means the window sits in its own frame, positioned
	// independently of the layout.
	ModeFloating
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeTiled:
		return "tiled"
	case ModeFloating:
		return "floating"
	default:
		return "unknown"
	}
}

// Edges records how the client surface sits inside its frame. Frame sizing
// is asynchronous, so these insets are cached at creation time instead of
// queried; they are cleared once a drag session makes the server-side
// geometry authoritative.
type Edges struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Container is the frame window hosting exactly one floating client.
// It exists if and only if its window's mode is ModeFloating.
type Container struct {
	Frame       xproto.Window
	BorderWidth int
	Geom        geometry.Rect // frame rect in root coordinates, border included
	Edges       *Edges
}

// ClientRect returns the client rect implied by the frame rect.
func (c *Container) ClientRect() geometry.Rect {
	return geometry.Rect{
		X:      c.Geom.X + c.BorderWidth,
		Y:      c.Geom.Y + c.BorderWidth,
		Width:  c.Geom.Width - 2*c.BorderWidth,
		Height: c.Geom.Height - 2*c.BorderWidth,
	}
}

// ManagedWindow is a client window under management.
type ManagedWindow struct {
	ID   xproto.Window
	Geom geometry.Rect // client rect in root coordinates
	Mode Mode

	Workspace *Workspace
	Transient *ManagedWindow // window this one is modal to, if any
	Container *Container     // non-nil iff Mode == ModeFloating

	// Utility windows conventionally must not steal focus on creation.
	Utility bool
	// FixedSize marks the frame's display area as off-limits to layout
	// auto-resizing while a floating client occupies it.
	FixedSize bool
	// FixedHint is set when WM_NORMAL_HINTS pins the window to one size.
	// The layout centers such windows in their cell instead of stretching.
	FixedHint bool
}

// frameRectFor returns the frame rect enclosing a client rect with the
// given border width on all sides.
func frameRectFor(client geometry.Rect, borderWidth int) geometry.Rect {
	return geometry.Rect{
		X:      client.X - borderWidth,
		Y:      client.Y - borderWidth,
		Width:  client.Width + 2*borderWidth,
		Height: client.Height + 2*borderWidth,
	}
}
