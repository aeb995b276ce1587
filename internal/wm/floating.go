package wm

import (
	"fmt"

	"github.com/floatwm/floatwm/internal/geometry"
)

// SetFloating moves a tiled window into its own floating frame. The frame
// is created under the placement workspace's root, the window's requested
// geometry is corrected against the usable display bounds, and the client
// is reparented into the frame with its event delivery suspended so it
// never observes the handoff. No-op if the window already floats.
func (m *Manager) SetFloating(win *ManagedWindow) error {
	if win == nil || win.Mode == ModeFloating {
		return nil
	}

	unlock := m.lockFocus()
	defer unlock()

	// Modal dialogs stay anchored to their owner's workspace.
	ws := win.Workspace
	if win.Transient != nil && win.Transient.Workspace != nil {
		ws = win.Transient.Workspace
	}

	bw := m.borderWidth
	frame, err := m.gw.CreateFrame(ws.Root, geometry.Rect{Width: 1, Height: 1}, m.borderColor)
	if err != nil {
		return fmt.Errorf("create floating frame: %w", err)
	}

	if !ws.Visible {
		ws.Urgent = true
		m.history.Touch(ws.Num)
	}

	bounds, err := m.bounds(ws)
	if err != nil {
		return fmt.Errorf("display bounds for workspace %d: %w", ws.Num, err)
	}
	win.Geom = geometry.Resolve(win.Geom, bounds)

	// The frame must not be repositioned or decorated by anyone else, and
	// only this manager reacts to its substructure.
	if err := m.gw.SetOverrideRedirect(frame, true); err != nil {
		return fmt.Errorf("set frame override-redirect: %w", err)
	}
	if err := m.gw.SelectInput(frame, frameEventMask); err != nil {
		return fmt.Errorf("select frame events: %w", err)
	}

	frameRect := frameRectFor(win.Geom, bw)
	if err := m.gw.ReparentWindow(frame, ws.Root, frameRect.X, frameRect.Y); err != nil {
		return fmt.Errorf("place frame: %w", err)
	}
	if err := m.gw.ConfigureWindow(frame, Configure{
		Mask:   ConfigX | ConfigY | ConfigWidth | ConfigHeight | ConfigAbove,
		X:      frameRect.X,
		Y:      frameRect.Y,
		Width:  frameRect.Width,
		Height: frameRect.Height,
	}); err != nil {
		return fmt.Errorf("size frame: %w", err)
	}
	// The frame must exist at its final geometry before the client moves in.
	m.gw.Flush()

	if err := m.gw.SelectInput(win.ID, 0); err != nil {
		return fmt.Errorf("suspend client events: %w", err)
	}
	if err := m.gw.ReparentWindow(win.ID, frame, bw, bw); err != nil {
		return fmt.Errorf("reparent client into frame: %w", err)
	}
	if err := m.gw.SelectInput(win.ID, clientEventMask); err != nil {
		return fmt.Errorf("restore client events: %w", err)
	}
	m.gw.Flush()

	// The frame geometry is not authoritative yet, so the insets come from
	// what we just asked for, not from a live query.
	c := &Container{
		Frame:       frame,
		BorderWidth: bw,
		Geom:        frameRect,
		Edges:       &Edges{Left: bw, Top: bw, Right: bw, Bottom: bw},
	}
	win.Mode = ModeFloating
	win.Container = c
	win.FixedSize = true
	win.Workspace = ws
	m.frames[frame] = win

	if err := m.gw.MapWindow(win.ID); err != nil {
		return fmt.Errorf("map client: %w", err)
	}
	if err := m.gw.MapWindow(frame); err != nil {
		return fmt.Errorf("map frame: %w", err)
	}

	if !win.Utility {
		if err := m.gw.SetInputFocus(frame); err != nil {
			return fmt.Errorf("focus frame: %w", err)
		}
	}
	m.gw.Flush()

	m.log.Info("window floated", "id", win.ID, "workspace", ws.Num,
		"geom", fmt.Sprintf("%dx%d+%d+%d", win.Geom.Width, win.Geom.Height, win.Geom.X, win.Geom.Y))
	return nil
}

// UnsetFloating returns a floating window to the workspace layout: the
// client is reparented back to the root, the frame destroyed, and the
// current workspace's tiling policy re-shows the window. No-op if the
// window is not floating.
func (m *Manager) UnsetFloating(win *ManagedWindow) error {
	if win == nil || win.Mode != ModeFloating {
		return nil
	}

	unlock := m.lockFocus()
	defer unlock()

	ws := m.workspaces[m.current]
	if ws == nil {
		ws = win.Workspace
	}

	if err := m.gw.SelectInput(win.ID, 0); err != nil {
		return fmt.Errorf("suspend client events: %w", err)
	}
	if err := m.gw.ReparentWindow(win.ID, ws.Root, 0, 0); err != nil {
		return fmt.Errorf("reparent client to root: %w", err)
	}
	if err := m.gw.SelectInput(win.ID, clientEventMask); err != nil {
		return fmt.Errorf("restore client events: %w", err)
	}
	m.gw.Flush()

	if c := win.Container; c != nil {
		c.Edges = nil
		win.FixedSize = false
		if m.drag != nil && m.drag.frame == c.Frame {
			m.StopDrag()
		}
		delete(m.frames, c.Frame)
		if err := m.gw.DestroyFrame(c.Frame); err != nil {
			return fmt.Errorf("destroy frame: %w", err)
		}
		win.Container = nil
	}

	win.Mode = ModeTiled
	win.Workspace = ws

	m.retile(ws)

	if err := m.gw.SetInputFocus(win.ID); err != nil {
		return fmt.Errorf("focus client: %w", err)
	}
	m.gw.Flush()

	m.log.Info("window unfloated", "id", win.ID, "workspace", ws.Num)
	return nil
}

// ToggleFloating flips the window between tiled and floating.
func (m *Manager) ToggleFloating(win *ManagedWindow) error {
	if win == nil {
		return nil
	}
	if win.Mode == ModeFloating {
		return m.UnsetFloating(win)
	}
	return m.SetFloating(win)
}
