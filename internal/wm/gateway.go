package wm

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/floatwm/floatwm/internal/geometry"
)

// ConfigMask selects which fields of a Configure request are applied.
// Fields outside the mask are left untouched on the target window.
type ConfigMask uint8

const (
	ConfigX ConfigMask = 1 << iota
	ConfigY
	ConfigWidth
	ConfigHeight
	ConfigAbove // restack above siblings
)

// Configure is a partial window-configure request.
type Configure struct {
	Mask   ConfigMask
	X      int
	Y      int
	Width  int
	Height int
}

// Pointer is a pointer position in root and window-relative coordinates.
type Pointer struct {
	RootX int
	RootY int
	WinX  int
	WinY  int
}

// Gateway issues windowing-protocol requests on behalf of the manager.
// Requests are applied in issuance order; anything a later step depends on
// having taken visible effect must be followed by Flush. Only GrabPointer
// and QueryPointer wait for a server reply.
type Gateway interface {
	// CreateFrame creates an unmapped frame window under parent with the
	// given geometry and background pixel. The frame is plain: no border
	// of its own, no independent input region.
	CreateFrame(parent xproto.Window, geom geometry.Rect, background uint32) (xproto.Window, error)
	DestroyFrame(frame xproto.Window) error

	ReparentWindow(win, parent xproto.Window, x, y int) error
	ConfigureWindow(win xproto.Window, cfg Configure) error
	SelectInput(win xproto.Window, mask uint32) error
	SetOverrideRedirect(win xproto.Window, enabled bool) error
	MapWindow(win xproto.Window) error
	RaiseWindow(win xproto.Window) error
	SetInputFocus(win xproto.Window) error

	// GrabPointer reports false without error when the pointer is already
	// grabbed by someone else.
	GrabPointer(win xproto.Window, eventMask uint16, cursor xproto.Cursor) (bool, error)
	UngrabPointer() error
	QueryPointer(win xproto.Window) (Pointer, error)

	Flush()
}

// Event masks used on the two sides of a floating handoff. The client mask
// is dropped to zero around reparents so the client never observes the
// synthetic unmap generated by the handoff.
const (
	clientEventMask = uint32(xproto.EventMaskEnterWindow |
		xproto.EventMaskFocusChange |
		xproto.EventMaskStructureNotify)
	frameEventMask = uint32(xproto.EventMaskSubstructureNotify)
)

// dragEventMask is selected on the second, armed pointer grab.
const dragEventMask = uint16(xproto.EventMaskButtonRelease | xproto.EventMaskPointerMotion)
