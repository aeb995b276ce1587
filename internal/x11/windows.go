package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/floatwm/floatwm/internal/geometry"
)

// WindowGeometry returns a window's geometry in root coordinates.
func (c *Connection) WindowGeometry(win xproto.Window) (geometry.Rect, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("failed to get geometry of %d: %w", win, err)
	}

	// GetGeometry positions are relative to the parent; translate the
	// origin into root coordinates.
	translated, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("failed to translate coordinates of %d: %w", win, err)
	}

	return geometry.Rect{
		X:      int(translated.DstX),
		Y:      int(translated.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// TransientFor returns the owner window named by WM_TRANSIENT_FOR,
// or 0 when the window is not transient.
func (c *Connection) TransientFor(win xproto.Window) xproto.Window {
	owner, err := icccm.WmTransientForGet(c.XUtil, win)
	if err != nil {
		return 0
	}
	return owner
}

// IsUtility reports whether the window declares itself a utility
// window (toolbox, palette) via _NET_WM_WINDOW_TYPE.
func (c *Connection) IsUtility(win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_UTILITY" {
			return true
		}
	}
	return false
}

// ShouldManage reports whether a mapped window belongs under window
// management at all. Docks, desktops and override-redirect windows
// are left alone.
func (c *Connection) ShouldManage(win xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err != nil || attrs.OverrideRedirect {
		return false
	}

	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return true
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION",
			"_NET_WM_WINDOW_TYPE_TOOLTIP":
			return false
		}
	}
	return true
}

// IsFixedSize reports whether WM_NORMAL_HINTS pins the window to a
// single size (min == max on both axes).
func (c *Connection) IsFixedSize(win xproto.Window) bool {
	hints, err := icccm.WmNormalHintsGet(c.XUtil, win)
	if err != nil {
		return false
	}
	hasMin := hints.Flags&icccm.SizeHintPMinSize > 0
	hasMax := hints.Flags&icccm.SizeHintPMaxSize > 0
	if !hasMin || !hasMax {
		return false
	}
	return hints.MinWidth == hints.MaxWidth && hints.MinHeight == hints.MaxHeight
}

// CurrentDesktop returns the index of the currently visible desktop.
func (c *Connection) CurrentDesktop() (int, error) {
	desktop, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get current desktop: %w", err)
	}
	return int(desktop), nil
}

// DesktopCount returns the number of desktops the environment reports,
// defaulting to 1 when the property is absent.
func (c *Connection) DesktopCount() int {
	count, err := ewmh.NumberOfDesktopsGet(c.XUtil)
	if err != nil || count == 0 {
		return 1
	}
	return int(count)
}

// WindowDesktop returns the desktop a window is assigned to, falling
// back to the current desktop when unset.
func (c *Connection) WindowDesktop(win xproto.Window) int {
	desktop, err := ewmh.WmDesktopGet(c.XUtil, win)
	if err != nil {
		current, cerr := c.CurrentDesktop()
		if cerr != nil {
			return 0
		}
		return current
	}
	return int(desktop)
}

// SetWindowDesktop records a window's desktop assignment for pagers.
func (c *Connection) SetWindowDesktop(win xproto.Window, desktop int) error {
	if err := ewmh.WmDesktopSet(c.XUtil, win, uint(desktop)); err != nil {
		return fmt.Errorf("failed to set desktop of %d: %w", win, err)
	}
	return nil
}
