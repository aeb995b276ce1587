package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/floatwm/floatwm/internal/geometry"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	Bounds geometry.Rect
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, Monitor{
			ID:   i,
			Name: outputName,
			Bounds: geometry.Rect{
				X:      int(crtcInfo.X),
				Y:      int(crtcInfo.Y),
				Width:  int(crtcInfo.Width),
				Height: int(crtcInfo.Height),
			},
		})
	}

	if len(monitors) == 0 {
		// Headless or RandR-less servers: fall back to the root geometry.
		rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
		if err != nil {
			return nil, fmt.Errorf("no monitors and no root geometry: %w", err)
		}
		monitors = append(monitors, Monitor{
			ID:   0,
			Name: "default",
			Bounds: geometry.Rect{
				Width:  int(rootGeom.Width),
				Height: int(rootGeom.Height),
			},
		})
	}

	return monitors, nil
}

// UsableBounds returns the monitor area with panel and dock chrome carved
// out. Struts are re-read on every call: chrome can appear or resize at
// any time, so the result is never cached.
func (c *Connection) UsableBounds(mon Monitor) geometry.Rect {
	usable := mon.Bounds

	if applied := c.applyDockStruts(&usable); applied {
		return usable
	}

	// Fallback: EWMH work area for the current desktop (excludes panels,
	// docks, etc. as reported by a cooperating environment).
	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return usable
	}
	desktopIndex := 0
	if currentDesktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil {
		if int(currentDesktop) >= 0 && int(currentDesktop) < len(workArea) {
			desktopIndex = int(currentDesktop)
		}
	}
	wa := workArea[desktopIndex]

	isect := intersect(usable, geometry.Rect{
		X:      int(wa.X),
		Y:      int(wa.Y),
		Width:  int(wa.Width),
		Height: int(wa.Height),
	})
	if isect.Width > 0 && isect.Height > 0 {
		usable = isect
	}
	return usable
}

type dockStruts struct {
	left   int
	right  int
	top    int
	bottom int
}

func (c *Connection) applyDockStruts(usable *geometry.Rect) bool {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return false
	}
	rootWidth := int(rootGeom.Width)
	rootHeight := int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return false
	}

	var struts dockStruts
	for _, windowID := range clients {
		types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
		if err != nil {
			continue
		}

		isDock := false
		for _, t := range types {
			if t == "_NET_WM_WINDOW_TYPE_DOCK" {
				isDock = true
				break
			}
		}
		if !isDock {
			continue
		}

		if sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID); err == nil {
			accumulateStruts(*usable, rootWidth, rootHeight, sp, &struts)
			continue
		}

		// Some docks only set _NET_WM_STRUT (no partial ranges).
		if s, err := ewmh.WmStrutGet(c.XUtil, windowID); err == nil {
			sp := &ewmh.WmStrutPartial{
				Left:         s.Left,
				Right:        s.Right,
				Top:          s.Top,
				Bottom:       s.Bottom,
				LeftStartY:   0,
				LeftEndY:     uint(rootHeight - 1),
				RightStartY:  0,
				RightEndY:    uint(rootHeight - 1),
				TopStartX:    0,
				TopEndX:      uint(rootWidth - 1),
				BottomStartX: 0,
				BottomEndX:   uint(rootWidth - 1),
			}
			accumulateStruts(*usable, rootWidth, rootHeight, sp, &struts)
		}
	}

	if struts.left == 0 && struts.right == 0 && struts.top == 0 && struts.bottom == 0 {
		return false
	}

	usable.X += struts.left
	usable.Y += struts.top
	usable.Width -= struts.left + struts.right
	usable.Height -= struts.top + struts.bottom

	if usable.Width < 1 {
		usable.Width = 1
	}
	if usable.Height < 1 {
		usable.Height = 1
	}

	return true
}

func accumulateStruts(mon geometry.Rect, rootWidth, rootHeight int, sp *ewmh.WmStrutPartial, acc *dockStruts) {
	// Top strut: y=[0,Top), x=[TopStartX,TopEndX]
	if sp.Top > 0 {
		band := geometry.Rect{
			X:      int(sp.TopStartX),
			Y:      0,
			Width:  int(sp.TopEndX) - int(sp.TopStartX) + 1,
			Height: int(sp.Top),
		}
		if isect := intersect(mon, band); isect.Height > 0 {
			acc.top = max(acc.top, isect.Height)
		}
	}

	// Bottom strut: y=[rootHeight-Bottom,rootHeight), x=[BottomStartX,BottomEndX]
	if sp.Bottom > 0 {
		band := geometry.Rect{
			X:      int(sp.BottomStartX),
			Y:      rootHeight - int(sp.Bottom),
			Width:  int(sp.BottomEndX) - int(sp.BottomStartX) + 1,
			Height: int(sp.Bottom),
		}
		if isect := intersect(mon, band); isect.Height > 0 {
			acc.bottom = max(acc.bottom, isect.Height)
		}
	}

	// Left strut: x=[0,Left), y=[LeftStartY,LeftEndY]
	if sp.Left > 0 {
		band := geometry.Rect{
			X:      0,
			Y:      int(sp.LeftStartY),
			Width:  int(sp.Left),
			Height: int(sp.LeftEndY) - int(sp.LeftStartY) + 1,
		}
		if isect := intersect(mon, band); isect.Width > 0 {
			acc.left = max(acc.left, isect.Width)
		}
	}

	// Right strut: x=[rootWidth-Right,rootWidth), y=[RightStartY,RightEndY]
	if sp.Right > 0 {
		band := geometry.Rect{
			X:      rootWidth - int(sp.Right),
			Y:      int(sp.RightStartY),
			Width:  int(sp.Right),
			Height: int(sp.RightEndY) - int(sp.RightStartY) + 1,
		}
		if isect := intersect(mon, band); isect.Width > 0 {
			acc.right = max(acc.right, isect.Width)
		}
	}
}

// intersect returns the overlap of two rects; a zero rect when disjoint.
func intersect(a, b geometry.Rect) geometry.Rect {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)

	if x2 <= x1 || y2 <= y1 {
		return geometry.Rect{}
	}
	return geometry.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// MonitorForRect returns the monitor containing the center of the rect,
// or the first monitor when none does.
func MonitorForRect(monitors []Monitor, r geometry.Rect) *Monitor {
	cx, cy := r.Center()
	for i := range monitors {
		if monitors[i].Bounds.ContainsPoint(cx, cy) {
			return &monitors[i]
		}
	}
	if len(monitors) == 0 {
		return nil
	}
	return &monitors[0]
}

// MonitorForPointer returns the monitor under the pointer, or nil.
func (c *Connection) MonitorForPointer(monitors []Monitor) *Monitor {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil
	}
	for i := range monitors {
		if monitors[i].Bounds.ContainsPoint(int(pointer.RootX), int(pointer.RootY)) {
			return &monitors[i]
		}
	}
	return nil
}

