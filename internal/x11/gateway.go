package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"

	"github.com/floatwm/floatwm/internal/geometry"
	"github.com/floatwm/floatwm/internal/wm"
)

// Gateway implements wm.Gateway over a live X11 connection. Requests are
// unchecked where the manager only needs ordering, checked where it needs
// the error; Flush forces a server round trip so everything issued so far
// has taken visible effect.
type Gateway struct {
	xu *xgbutil.XUtil
}

// NewGateway wraps an existing connection.
func NewGateway(conn *Connection) *Gateway {
	return &Gateway{xu: conn.XUtil}
}

// CreateFrame creates an unmapped frame window under parent. The frame
// carries no X border of its own; the visible border is the frame
// background showing around the inset client.
func (g *Gateway) CreateFrame(parent xproto.Window, geom geometry.Rect, background uint32) (xproto.Window, error) {
	conn := g.xu.Conn()
	screen := g.xu.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, fmt.Errorf("allocate frame id: %w", err)
	}

	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		parent,
		int16(geom.X), int16(geom.Y),
		uint16(max(geom.Width, 1)), uint16(max(geom.Height, 1)),
		0, // border_width
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel,
		[]uint32{background},
	).Check()
	if err != nil {
		return 0, fmt.Errorf("create frame window: %w", err)
	}

	return wid, nil
}

// DestroyFrame destroys a frame window.
func (g *Gateway) DestroyFrame(frame xproto.Window) error {
	if err := xproto.DestroyWindowChecked(g.xu.Conn(), frame).Check(); err != nil {
		return fmt.Errorf("destroy frame %d: %w", frame, err)
	}
	return nil
}

// ReparentWindow reparents win under parent at (x, y).
func (g *Gateway) ReparentWindow(win, parent xproto.Window, x, y int) error {
	err := xproto.ReparentWindowChecked(g.xu.Conn(), win, parent, int16(x), int16(y)).Check()
	if err != nil {
		return fmt.Errorf("reparent %d under %d: %w", win, parent, err)
	}
	return nil
}

// ConfigureWindow applies a partial configure. The value list follows the
// bit positions of the X mask (low to high), so values are appended in
// x, y, width, height, stack-mode order.
func (g *Gateway) ConfigureWindow(win xproto.Window, cfg wm.Configure) error {
	var mask uint16
	var values []uint32

	if cfg.Mask&wm.ConfigX != 0 {
		mask |= xproto.ConfigWindowX
		values = append(values, uint32(cfg.X))
	}
	if cfg.Mask&wm.ConfigY != 0 {
		mask |= xproto.ConfigWindowY
		values = append(values, uint32(cfg.Y))
	}
	if cfg.Mask&wm.ConfigWidth != 0 {
		mask |= xproto.ConfigWindowWidth
		values = append(values, uint32(max(cfg.Width, 1)))
	}
	if cfg.Mask&wm.ConfigHeight != 0 {
		mask |= xproto.ConfigWindowHeight
		values = append(values, uint32(max(cfg.Height, 1)))
	}
	if cfg.Mask&wm.ConfigAbove != 0 {
		mask |= xproto.ConfigWindowStackMode
		values = append(values, xproto.StackModeAbove)
	}
	if mask == 0 {
		return nil
	}

	if err := xproto.ConfigureWindowChecked(g.xu.Conn(), win, mask, values).Check(); err != nil {
		return fmt.Errorf("configure %d: %w", win, err)
	}
	return nil
}

// SelectInput replaces the event mask of win.
func (g *Gateway) SelectInput(win xproto.Window, mask uint32) error {
	err := xproto.ChangeWindowAttributesChecked(
		g.xu.Conn(), win, xproto.CwEventMask, []uint32{mask},
	).Check()
	if err != nil {
		return fmt.Errorf("select input on %d: %w", win, err)
	}
	return nil
}

// SetOverrideRedirect toggles the override-redirect flag of win.
func (g *Gateway) SetOverrideRedirect(win xproto.Window, enabled bool) error {
	var v uint32
	if enabled {
		v = 1
	}
	err := xproto.ChangeWindowAttributesChecked(
		g.xu.Conn(), win, xproto.CwOverrideRedirect, []uint32{v},
	).Check()
	if err != nil {
		return fmt.Errorf("set override-redirect on %d: %w", win, err)
	}
	return nil
}

// MapWindow maps win.
func (g *Gateway) MapWindow(win xproto.Window) error {
	if err := xproto.MapWindowChecked(g.xu.Conn(), win).Check(); err != nil {
		return fmt.Errorf("map %d: %w", win, err)
	}
	return nil
}

// RaiseWindow restacks win above its siblings.
func (g *Gateway) RaiseWindow(win xproto.Window) error {
	err := xproto.ConfigureWindowChecked(
		g.xu.Conn(), win,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	).Check()
	if err != nil {
		return fmt.Errorf("raise %d: %w", win, err)
	}
	return nil
}

// SetInputFocus grants input focus to win.
func (g *Gateway) SetInputFocus(win xproto.Window) error {
	err := xproto.SetInputFocusChecked(
		g.xu.Conn(), xproto.InputFocusPointerRoot, win, xproto.TimeCurrentTime,
	).Check()
	if err != nil {
		return fmt.Errorf("focus %d: %w", win, err)
	}
	return nil
}

// GrabPointer grabs the pointer on win. A held grab by another client is
// reported as ok=false, not an error.
func (g *Gateway) GrabPointer(win xproto.Window, eventMask uint16, cursor xproto.Cursor) (bool, error) {
	reply, err := xproto.GrabPointer(
		g.xu.Conn(),
		false, // owner_events
		win,
		eventMask,
		xproto.GrabModeAsync, xproto.GrabModeAsync,
		xproto.WindowNone,
		cursor,
		xproto.TimeCurrentTime,
	).Reply()
	if err != nil {
		return false, fmt.Errorf("grab pointer on %d: %w", win, err)
	}
	return reply.Status == xproto.GrabStatusSuccess, nil
}

// UngrabPointer releases any pointer grab held by this connection.
func (g *Gateway) UngrabPointer() error {
	err := xproto.UngrabPointerChecked(g.xu.Conn(), xproto.TimeCurrentTime).Check()
	if err != nil {
		return fmt.Errorf("ungrab pointer: %w", err)
	}
	return nil
}

// QueryPointer returns the pointer position in root and win-relative
// coordinates.
func (g *Gateway) QueryPointer(win xproto.Window) (wm.Pointer, error) {
	reply, err := xproto.QueryPointer(g.xu.Conn(), win).Reply()
	if err != nil {
		return wm.Pointer{}, fmt.Errorf("query pointer on %d: %w", win, err)
	}
	return wm.Pointer{
		RootX: int(reply.RootX),
		RootY: int(reply.RootY),
		WinX:  int(reply.WinX),
		WinY:  int(reply.WinY),
	}, nil
}

// Flush forces a round trip to the server so all previously issued
// requests have been applied.
func (g *Gateway) Flush() {
	g.xu.Sync()
}
