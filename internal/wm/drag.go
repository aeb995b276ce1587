package wm

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/floatwm/floatwm/internal/geometry"
)

// DragType identifies what an interactive pointer session manipulates:
// the whole rect, or one of the eight resize edges/corners. Protocol
// cursor ids for these live behind the Gateway boundary.
type DragType int

const (
	DragNone DragType = iota
	DragMove
	DragResizeTopLeft
	DragResizeTop
	DragResizeTopRight
	DragResizeRight
	DragResizeBottomRight
	DragResizeBottom
	DragResizeBottomLeft
	DragResizeLeft
)

// String returns the string representation of the drag type.
func (t DragType) String() string {
	switch t {
	case DragNone:
		return "none"
	case DragMove:
		return "move"
	case DragResizeTopLeft:
		return "resize-top-left"
	case DragResizeTop:
		return "resize-top"
	case DragResizeTopRight:
		return "resize-top-right"
	case DragResizeRight:
		return "resize-right"
	case DragResizeBottomRight:
		return "resize-bottom-right"
	case DragResizeBottom:
		return "resize-bottom"
	case DragResizeBottomLeft:
		return "resize-bottom-left"
	case DragResizeLeft:
		return "resize-left"
	default:
		return "unknown"
	}
}

// defaultMinDragSize keeps interactive resizes from collapsing the frame
// to an illegal zero extent when no floor is configured.
const defaultMinDragSize = 16

// Session is a live pointer-driven move/resize. At most one exists per
// manager; it is non-nil exactly while the pointer grab is held.
type Session struct {
	frame xproto.Window
	kind  DragType

	// Anchor tuple captured at grab time. For a move, (ax, ay) is the
	// pointer's offset inside the frame. For resizes, (ax, ay) holds the
	// pointer offsets to the moving edges and (ox, oy) the root
	// coordinates of the fixed opposite edges; slots a type does not use
	// stay zero.
	ax, ay, ox, oy int
}

// Dragging reports whether a move/resize session is live.
func (m *Manager) Dragging() bool {
	return m.drag != nil
}

// StartDrag begins an interactive move/resize of a floating window. A
// window without a frame is silently ignored. An empty-mask test grab
// probes for pointer contention first; if another client holds the
// pointer this is a no-op with no observable state change. With
// kind == DragNone the type is inferred from which third of the frame
// the pointer is in; the center zone arms nothing.
func (m *Manager) StartDrag(win *ManagedWindow, kind DragType) error {
	if win == nil || win.Container == nil {
		return nil
	}
	c := win.Container

	ok, err := m.gw.GrabPointer(c.Frame, 0, xproto.CursorNone)
	if err != nil {
		return fmt.Errorf("test pointer grab: %w", err)
	}
	if !ok {
		return nil
	}

	// From here on this session is the only authority on the geometry.
	c.Edges = nil

	p, err := m.gw.QueryPointer(c.Frame)
	if err != nil {
		m.gw.UngrabPointer()
		m.gw.Flush()
		return fmt.Errorf("query pointer: %w", err)
	}

	if err := m.gw.RaiseWindow(c.Frame); err != nil {
		m.gw.UngrabPointer()
		m.gw.Flush()
		return fmt.Errorf("raise frame: %w", err)
	}
	if err := m.gw.SetInputFocus(c.Frame); err != nil {
		m.gw.UngrabPointer()
		m.gw.Flush()
		return fmt.Errorf("focus frame: %w", err)
	}

	if kind == DragNone {
		kind = dragTypeForPointer(p.WinX, p.WinY, c.Geom.Width, c.Geom.Height)
		if kind == DragNone {
			m.gw.UngrabPointer()
			m.gw.Flush()
			return nil
		}
	}

	ax, ay, ox, oy := dragAnchor(kind, p, c.Geom)

	ok, err = m.gw.GrabPointer(c.Frame, dragEventMask, m.cursors[kind])
	if err != nil {
		m.gw.UngrabPointer()
		m.gw.Flush()
		return fmt.Errorf("arm pointer grab: %w", err)
	}
	if !ok {
		m.gw.UngrabPointer()
		m.gw.Flush()
		return nil
	}

	m.drag = &Session{frame: c.Frame, kind: kind, ax: ax, ay: ay, ox: ox, oy: oy}
	m.gw.Flush()

	m.log.Debug("drag started", "frame", c.Frame, "kind", kind.String())
	return nil
}

// PointerMotion applies one motion event to the live session. Only the
// geometry fields implicated by the drag type are configured, and the
// request is flushed immediately: feedback latency beats batching here.
// No-op when no session is live.
func (m *Manager) PointerMotion(rootX, rootY int) {
	s := m.drag
	if s == nil {
		return
	}

	cfg := s.configureFor(rootX, rootY)
	if cfg.Mask&ConfigWidth != 0 && cfg.Width < m.minDragSize {
		cfg.Width = m.minDragSize
	}
	if cfg.Mask&ConfigHeight != 0 && cfg.Height < m.minDragSize {
		cfg.Height = m.minDragSize
	}

	if err := m.gw.ConfigureWindow(s.frame, cfg); err != nil {
		m.log.Error("configure frame during drag", "frame", s.frame, "err", err)
		return
	}

	if win := m.frames[s.frame]; win != nil {
		c := win.Container
		if cfg.Mask&ConfigX != 0 {
			c.Geom.X = cfg.X
		}
		if cfg.Mask&ConfigY != 0 {
			c.Geom.Y = cfg.Y
		}
		if cfg.Mask&ConfigWidth != 0 {
			c.Geom.Width = cfg.Width
		}
		if cfg.Mask&ConfigHeight != 0 {
			c.Geom.Height = cfg.Height
		}
		win.Geom = c.ClientRect()

		// The client inside the frame follows resizes.
		if cfg.Mask&(ConfigWidth|ConfigHeight) != 0 {
			if err := m.gw.ConfigureWindow(win.ID, Configure{
				Mask:   ConfigWidth | ConfigHeight,
				Width:  win.Geom.Width,
				Height: win.Geom.Height,
			}); err != nil {
				m.log.Error("configure client during drag", "id", win.ID, "err", err)
			}
		}
	}

	m.gw.Flush()
}

// StopDrag ends the session: unconditional ungrab, flush, slot cleared.
// Idempotent; safe with no session live.
func (m *Manager) StopDrag() {
	m.gw.UngrabPointer()
	m.gw.Flush()
	if m.drag != nil {
		m.log.Debug("drag stopped", "frame", m.drag.frame)
	}
	m.drag = nil
}

// configureFor inverts the anchor relation for one motion event: each
// moving edge follows the pointer minus its grab offset, while edges
// anchored on the fixed side are recomputed from the stored opposite
// coordinate so that corner stays stationary.
func (s *Session) configureFor(rx, ry int) Configure {
	var c Configure
	switch s.kind {
	case DragMove:
		c.Mask = ConfigX | ConfigY
		c.X = rx - s.ax
		c.Y = ry - s.ay
	case DragResizeTopLeft:
		c.Mask = ConfigX | ConfigY | ConfigWidth | ConfigHeight
		c.X = rx - s.ax
		c.Y = ry - s.ay
		c.Width = s.ox - c.X
		c.Height = s.oy - c.Y
	case DragResizeTopRight:
		c.Mask = ConfigY | ConfigWidth | ConfigHeight
		c.Y = ry - s.ay
		c.Width = (rx + s.ax) - s.ox
		c.Height = s.oy - c.Y
	case DragResizeBottomLeft:
		c.Mask = ConfigX | ConfigWidth | ConfigHeight
		c.X = rx - s.ax
		c.Width = s.ox - c.X
		c.Height = (ry + s.ay) - s.oy
	case DragResizeBottomRight:
		c.Mask = ConfigWidth | ConfigHeight
		c.Width = (rx + s.ax) - s.ox
		c.Height = (ry + s.ay) - s.oy
	case DragResizeTop:
		c.Mask = ConfigY | ConfigHeight
		c.Y = ry
		c.Height = s.oy - ry
	case DragResizeBottom:
		c.Mask = ConfigHeight
		c.Height = ry - s.oy
	case DragResizeLeft:
		c.Mask = ConfigX | ConfigWidth
		c.X = rx
		c.Width = s.ox - rx
	case DragResizeRight:
		c.Mask = ConfigWidth
		c.Width = rx - s.ox
	}
	return c
}

// dragAnchor captures the 4-tuple that keeps the opposite corner/edge of
// the frame fixed while the grabbed side follows the pointer.
func dragAnchor(kind DragType, p Pointer, g geometry.Rect) (ax, ay, ox, oy int) {
	left, top := g.X, g.Y
	right, bottom := g.X+g.Width, g.Y+g.Height

	switch kind {
	case DragMove:
		return p.WinX, p.WinY, 0, 0
	case DragResizeTopLeft:
		return p.WinX, p.WinY, right, bottom
	case DragResizeTopRight:
		return g.Width - p.WinX, p.WinY, left, bottom
	case DragResizeBottomLeft:
		return p.WinX, g.Height - p.WinY, right, top
	case DragResizeBottomRight:
		return g.Width - p.WinX, g.Height - p.WinY, left, top
	case DragResizeTop:
		return 0, 0, 0, bottom
	case DragResizeBottom:
		return 0, 0, 0, top
	case DragResizeLeft:
		return 0, 0, right, 0
	case DragResizeRight:
		return 0, 0, left, 0
	}
	return 0, 0, 0, 0
}

var zoneTypes = [3][3]DragType{
	{DragResizeTopLeft, DragResizeTop, DragResizeTopRight},
	{DragResizeLeft, DragNone, DragResizeRight},
	{DragResizeBottomLeft, DragResizeBottom, DragResizeBottomRight},
}

// dragTypeForPointer divides the frame into thirds along each axis and
// maps the pointer's zone to a resize type. The center zone yields
// DragNone.
func dragTypeForPointer(x, y, width, height int) DragType {
	return zoneTypes[zone(y, height)][zone(x, width)]
}

func zone(v, extent int) int {
	switch {
	case v*3 < extent:
		return 0
	case v*3 < 2*extent:
		return 1
	default:
		return 2
	}
}
