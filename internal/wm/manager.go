package wm

import (
	"io"
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/floatwm/floatwm/internal/geometry"
)

// Options configures a Manager.
type Options struct {
	Gateway     Gateway
	Logger      *slog.Logger
	Cursors     map[DragType]xproto.Cursor
	BorderWidth int
	BorderColor uint32
	// MinDragSize floors interactive resizes; zero means the default.
	MinDragSize int
	Bounds      BoundsFunc
	Tiler       TilePolicy
}

// Manager owns the managed-window registry, the floating transitions and
// the single interactive drag session. It is single-threaded: every method
// must be called from the event-loop goroutine.
type Manager struct {
	gw  Gateway
	log *slog.Logger

	cursors     map[DragType]xproto.Cursor
	borderWidth int
	borderColor uint32
	minDragSize int

	bounds BoundsFunc
	tiler  TilePolicy

	windows    map[xproto.Window]*ManagedWindow
	frames     map[xproto.Window]*ManagedWindow
	workspaces map[int]*Workspace
	current    int
	history    *History

	drag *Session

	// focusLocked suppresses reentrant focus-change handling while a
	// floating transition's reparenting is in flight.
	focusLocked bool
}

// New creates a Manager. Options.Gateway is required; a nil logger
// discards output.
func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	minDrag := opts.MinDragSize
	if minDrag < 1 {
		minDrag = defaultMinDragSize
	}
	return &Manager{
		gw:          opts.Gateway,
		log:         logger,
		cursors:     opts.Cursors,
		borderWidth: opts.BorderWidth,
		borderColor: opts.BorderColor,
		minDragSize: minDrag,
		bounds:      opts.Bounds,
		tiler:       opts.Tiler,
		windows:     make(map[xproto.Window]*ManagedWindow),
		frames:      make(map[xproto.Window]*ManagedWindow),
		workspaces:  make(map[int]*Workspace),
		history:     &History{},
	}
}

// AddWorkspace registers a workspace.
func (m *Manager) AddWorkspace(num int, root xproto.Window, bounds geometry.Rect, visible bool) *Workspace {
	ws := &Workspace{Num: num, Root: root, Bounds: bounds, Visible: visible}
	m.workspaces[num] = ws
	if visible {
		m.current = num
	}
	return ws
}

// Workspace returns the workspace with the given number, or nil.
func (m *Manager) Workspace(num int) *Workspace {
	return m.workspaces[num]
}

// CurrentWorkspace returns the workspace currently visible to the user.
func (m *Manager) CurrentWorkspace() *Workspace {
	return m.workspaces[m.current]
}

// SetCurrentWorkspace records a workspace switch reported by the server.
// The newly visible workspace loses its urgent flag.
func (m *Manager) SetCurrentWorkspace(num int) {
	ws := m.workspaces[num]
	if ws == nil {
		return
	}
	if prev := m.workspaces[m.current]; prev != nil {
		prev.Visible = false
	}
	m.current = num
	ws.Visible = true
	ws.Urgent = false
	m.history.Touch(num)
}

// History returns the workspace-switch history.
func (m *Manager) History() *History {
	return m.history
}

// Manage registers a new client window reported by the server.
func (m *Manager) Manage(id xproto.Window, geom geometry.Rect, wsNum int, transientFor xproto.Window, utility bool) *ManagedWindow {
	ws := m.workspaces[wsNum]
	if ws == nil {
		ws = m.workspaces[m.current]
	}
	win := &ManagedWindow{ID: id, Geom: geom, Mode: ModeTiled, Workspace: ws, Utility: utility}
	if t := m.windows[transientFor]; t != nil {
		win.Transient = t
	}
	m.windows[id] = win
	m.log.Debug("managing window", "id", id, "workspace", wsNum, "utility", utility)
	return win
}

// Unmanage forgets a destroyed client. A floating frame left behind is
// destroyed, and a drag session targeting it is stopped first.
func (m *Manager) Unmanage(id xproto.Window) {
	win := m.windows[id]
	if win == nil {
		return
	}
	if c := win.Container; c != nil {
		if m.drag != nil && m.drag.frame == c.Frame {
			m.StopDrag()
		}
		delete(m.frames, c.Frame)
		if err := m.gw.DestroyFrame(c.Frame); err != nil {
			m.log.Error("destroy frame of unmanaged window", "id", id, "err", err)
		}
		win.Container = nil
	}
	// Drop the dangling modal back-reference on any dependents.
	for _, other := range m.windows {
		if other.Transient == win {
			other.Transient = nil
		}
	}
	delete(m.windows, id)
	m.retile(win.Workspace)
	m.log.Debug("unmanaged window", "id", id)
}

// Window returns the managed window with the given client id, or nil.
func (m *Manager) Window(id xproto.Window) *ManagedWindow {
	return m.windows[id]
}

// WindowByFrame returns the floating window hosted by the given frame,
// or nil.
func (m *Manager) WindowByFrame(frame xproto.Window) *ManagedWindow {
	return m.frames[frame]
}

// Windows returns all managed windows in no particular order.
func (m *Manager) Windows() []*ManagedWindow {
	out := make([]*ManagedWindow, 0, len(m.windows))
	for _, win := range m.windows {
		out = append(out, win)
	}
	return out
}

// FocusLocked reports whether focus-change side effects are currently
// suppressed by an in-flight floating transition.
func (m *Manager) FocusLocked() bool {
	return m.focusLocked
}

// SetBorder updates the border for frames created from now on. Existing
// frames keep theirs.
func (m *Manager) SetBorder(width int, color uint32) {
	m.borderWidth = width
	m.borderColor = color
}

// SetMinDragSize updates the interactive resize floor.
func (m *Manager) SetMinDragSize(size int) {
	if size < 1 {
		size = defaultMinDragSize
	}
	m.minDragSize = size
}

// SetTiler swaps the tile policy. The next retile uses it.
func (m *Manager) SetTiler(tiler TilePolicy) {
	m.tiler = tiler
}

// RetileAll re-runs the tile policy on every workspace, for example after
// a gap change.
func (m *Manager) RetileAll() {
	for _, ws := range m.workspaces {
		m.retile(ws)
	}
}

// lockFocus asserts the focus lock and returns its release. The release
// must run on every exit path, so callers defer it immediately.
func (m *Manager) lockFocus() func() {
	m.focusLocked = true
	return func() { m.focusLocked = false }
}

func (m *Manager) tiledWindows(ws *Workspace) []*ManagedWindow {
	var out []*ManagedWindow
	for _, win := range m.windows {
		if win.Workspace == ws && win.Mode == ModeTiled {
			out = append(out, win)
		}
	}
	return out
}

func (m *Manager) retile(ws *Workspace) {
	if m.tiler == nil || ws == nil {
		return
	}
	if err := m.tiler.Retile(ws, m.tiledWindows(ws)); err != nil {
		m.log.Warn("retile failed", "workspace", ws.Num, "err", err)
	}
}
