package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/mousebind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/floatwm/floatwm/internal/config"
	"github.com/floatwm/floatwm/internal/geometry"
	"github.com/floatwm/floatwm/internal/ipc"
	"github.com/floatwm/floatwm/internal/layout"
	"github.com/floatwm/floatwm/internal/runtimepath"
	"github.com/floatwm/floatwm/internal/wm"
	"github.com/floatwm/floatwm/internal/x11"
)

// daemon ties the manager to a live X connection. The manager itself is
// single-threaded; mu serializes the event loop against IPC goroutines.
type daemon struct {
	conn *x11.Connection
	gw   *x11.Gateway
	mgr  *wm.Manager
	log  *slog.Logger

	logLevel *slog.LevelVar

	mu       sync.Mutex
	cfg      *config.Config
	monitors []x11.Monitor
	// unmapIgnore counts synthetic unmaps still in flight per client,
	// generated by reparenting during floating transitions.
	unmapIgnore map[xproto.Window]int

	startTime time.Time
}

func runDaemon() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, logLevel, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	logger.Info("configuration loaded",
		"border_width", cfg.BorderWidth, "gap", cfg.Gap, "modifier", cfg.Modifier)

	conn, err := x11.NewConnection()
	if err != nil {
		logger.Error("failed to connect to display", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.BecomeWM(); err != nil {
		logger.Error("failed to claim the display", "error", err)
		os.Exit(1)
	}

	cursors, err := x11.LoadCursors(conn.XUtil)
	if err != nil {
		logger.Error("failed to load cursors", "error", err)
		os.Exit(1)
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		logger.Error("failed to discover monitors", "error", err)
		os.Exit(1)
	}
	for _, mon := range monitors {
		logger.Info("monitor", "id", mon.ID, "name", mon.Name,
			"bounds", fmt.Sprintf("%dx%d+%d+%d", mon.Bounds.Width, mon.Bounds.Height, mon.Bounds.X, mon.Bounds.Y))
	}

	borderColor, err := config.ParseColor(cfg.BorderColor)
	if err != nil {
		logger.Error("invalid border color", "error", err)
		os.Exit(1)
	}

	d := &daemon{
		conn:        conn,
		gw:          x11.NewGateway(conn),
		log:         logger,
		logLevel:    logLevel,
		cfg:         cfg,
		monitors:    monitors,
		unmapIgnore: make(map[xproto.Window]int),
		startTime:   time.Now(),
	}

	d.mgr = wm.New(wm.Options{
		Gateway:     d.gw,
		Logger:      logger,
		Cursors:     cursors,
		BorderWidth: cfg.BorderWidth,
		BorderColor: borderColor,
		MinDragSize: cfg.MinDragSize,
		Bounds:      d.floatBounds,
		Tiler:       &layout.Grid{Gateway: d.gw, Bounds: d.tileBounds, Gap: cfg.Gap},
	})

	d.setupWorkspaces()
	d.setupEventHandlers()
	d.setupKeybindings()
	d.adoptExisting()

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		logger.Error("failed to resolve socket path", "error", err)
		os.Exit(1)
	}
	server := ipc.NewServer(socketPath, d, logger)
	if err := server.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		os.Exit(1)
	}
	defer server.Stop()

	stopWatch := d.watchConfig()
	defer stopWatch()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutting down", "signal", sig)
		conn.Quit()
	}()

	logger.Info("floatwm started")
	conn.EventLoop()
}

func newLogger(cfg *config.Config) (*slog.Logger, *slog.LevelVar, func(), error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.LogLevel))

	out := os.Stderr
	closeLog := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, level, closeLog, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// tileBounds is the usable monitor area for a workspace, with dock and
// panel chrome carved out.
func (d *daemon) tileBounds(ws *wm.Workspace) (geometry.Rect, error) {
	mon := x11.MonitorForRect(d.monitors, ws.Bounds)
	if mon == nil {
		return geometry.Rect{}, fmt.Errorf("no monitor for workspace %d", ws.Num)
	}
	return d.conn.UsableBounds(*mon), nil
}

// floatBounds is tileBounds inset by the frame border, so a placed frame
// stays fully inside the usable area.
func (d *daemon) floatBounds(ws *wm.Workspace) (geometry.Rect, error) {
	usable, err := d.tileBounds(ws)
	if err != nil {
		return geometry.Rect{}, err
	}
	bw := d.cfg.BorderWidth
	usable.X += bw
	usable.Y += bw
	usable.Width -= 2 * bw
	usable.Height -= 2 * bw
	return usable, nil
}

func (d *daemon) setupWorkspaces() {
	count := d.conn.DesktopCount()
	current, err := d.conn.CurrentDesktop()
	if err != nil {
		current = 0
	}

	// Workspaces share the primary monitor; floats follow their owner's
	// workspace so secondary monitors resolve through ws.Bounds.
	primary := d.monitors[0].Bounds
	for i := 0; i < count; i++ {
		d.mgr.AddWorkspace(i, d.conn.Root, primary, i == current)
	}
	d.log.Info("workspaces ready", "count", count, "current", current)
}

func (d *daemon) setupEventHandlers() {
	xu := d.conn.XUtil
	root := d.conn.Root

	xevent.MapRequestFun(func(xu *xgbutil.XUtil, ev xevent.MapRequestEvent) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.handleMapRequest(ev.Window)
	}).Connect(xu, root)

	xevent.ConfigureRequestFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureRequestEvent) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.handleConfigureRequest(ev)
	}).Connect(xu, root)

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		atom, err := xprop.Atm(xu, "_NET_CURRENT_DESKTOP")
		if err != nil || ev.Atom != atom {
			return
		}
		current, err := d.conn.CurrentDesktop()
		if err != nil {
			return
		}
		d.mu.Lock()
		d.mgr.SetCurrentWorkspace(current)
		d.mu.Unlock()
	}).Connect(xu, root)
}

func (d *daemon) setupKeybindings() {
	xu := d.conn.XUtil
	combo := d.cfg.Modifier + "-space"

	err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		d.mu.Lock()
		defer d.mu.Unlock()
		win, err := d.focusedWindow()
		if err != nil {
			d.log.Debug("float toggle with no focused window", "error", err)
			return
		}
		d.toggleFloating(win)
	}).Connect(xu, d.conn.Root, combo, true)
	if err != nil {
		d.log.Warn("failed to bind float toggle", "combo", combo, "error", err)
		return
	}
	d.log.Info("float toggle bound", "combo", combo)
}

// adoptExisting picks up clients that were mapped before the daemon
// started.
func (d *daemon) adoptExisting() {
	tree, err := xproto.QueryTree(d.conn.XUtil.Conn(), d.conn.Root).Reply()
	if err != nil {
		d.log.Warn("failed to query existing clients", "error", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	adopted := 0
	for _, child := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(d.conn.XUtil.Conn(), child).Reply()
		if err != nil || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		if !d.conn.ShouldManage(child) {
			continue
		}
		d.manageClient(child)
		adopted++
	}
	if adopted > 0 {
		d.mgr.RetileAll()
		d.log.Info("adopted existing clients", "count", adopted)
	}
}

func (d *daemon) handleMapRequest(id xproto.Window) {
	if d.mgr.Window(id) != nil {
		d.gw.MapWindow(id)
		return
	}
	if !d.conn.ShouldManage(id) {
		d.gw.MapWindow(id)
		return
	}

	win := d.manageClient(id)
	d.gw.MapWindow(id)
	d.mgr.RetileAll()
	d.log.Debug("mapped new client", "id", id, "workspace", win.Workspace.Num)
}

func (d *daemon) manageClient(id xproto.Window) *wm.ManagedWindow {
	geom, err := d.conn.WindowGeometry(id)
	if err != nil {
		geom = geometry.Rect{Width: 1, Height: 1}
	}
	win := d.mgr.Manage(id, geom,
		d.conn.WindowDesktop(id),
		d.conn.TransientFor(id),
		d.conn.IsUtility(id))
	win.FixedHint = d.conn.IsFixedSize(id)

	// Unmap and destroy dispatch on the client id, not the root, so the
	// lifetime handlers attach per window.
	xu := d.conn.XUtil
	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.handleGone(ev.Window)
	}).Connect(xu, id)

	xevent.UnmapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.UnmapNotifyEvent) {
		d.mu.Lock()
		defer d.mu.Unlock()
		// Reparenting during a floating transition generates unmaps that
		// must not tear the window down.
		if d.unmapIgnore[ev.Window] > 0 {
			d.unmapIgnore[ev.Window]--
			if d.unmapIgnore[ev.Window] == 0 {
				delete(d.unmapIgnore, ev.Window)
			}
			return
		}
		d.handleGone(ev.Window)
	}).Connect(xu, id)

	return win
}

func (d *daemon) handleGone(id xproto.Window) {
	win := d.mgr.Window(id)
	if win == nil {
		return
	}
	if c := win.Container; c != nil {
		d.detachFrame(c.Frame)
	}
	d.mgr.Unmanage(id)
	delete(d.unmapIgnore, id)
	xevent.Detach(d.conn.XUtil, id)
}

func (d *daemon) handleConfigureRequest(ev xevent.ConfigureRequestEvent) {
	if win := d.mgr.Window(ev.Window); win != nil && win.Mode == wm.ModeFloating {
		// Floating geometry belongs to the user; refuse programmatic
		// moves and re-assert what we have.
		c := win.Container
		if c != nil {
			d.gw.ConfigureWindow(ev.Window, wm.Configure{
				Mask:  wm.ConfigWidth | wm.ConfigHeight,
				Width: c.ClientRect().Width, Height: c.ClientRect().Height,
			})
		}
		return
	}

	// Unmanaged and tiled windows get their request as asked; the next
	// retile overrides tiled geometry anyway.
	xwindow.New(d.conn.XUtil, ev.Window).Configure(int(ev.ValueMask),
		int(ev.X), int(ev.Y), int(ev.Width), int(ev.Height),
		ev.Sibling, ev.StackMode)
}

func (d *daemon) toggleFloating(win *wm.ManagedWindow) {
	var err error
	if win.Mode == wm.ModeFloating {
		err = d.unfloatWin(win)
	} else {
		err = d.floatWin(win)
	}
	if err != nil {
		d.log.Error("float toggle failed", "id", win.ID, "error", err)
	}
}

// floatWin floats a tiled window and wires its frame for drags. The
// reparent into the frame will generate one synthetic unmap on the
// client; it is marked to be ignored.
func (d *daemon) floatWin(win *wm.ManagedWindow) error {
	if win.Mode == wm.ModeFloating {
		return nil
	}
	if err := d.mgr.SetFloating(win); err != nil {
		return err
	}
	d.unmapIgnore[win.ID]++
	if win.Container != nil {
		d.attachFrame(win)
	}
	return nil
}

// unfloatWin returns a floating window to the layout and releases its
// frame bindings.
func (d *daemon) unfloatWin(win *wm.ManagedWindow) error {
	if win.Mode != wm.ModeFloating {
		return nil
	}
	var frame xproto.Window
	if win.Container != nil {
		frame = win.Container.Frame
	}
	if err := d.mgr.UnsetFloating(win); err != nil {
		return err
	}
	d.unmapIgnore[win.ID]++
	// Unfloating may have moved the window to the visible workspace;
	// keep the EWMH desktop hint in step for pagers.
	if err := d.conn.SetWindowDesktop(win.ID, win.Workspace.Num); err != nil {
		d.log.Debug("failed to update desktop hint", "id", win.ID, "error", err)
	}
	if frame != 0 {
		d.detachFrame(frame)
	}
	return nil
}

// attachFrame wires drag initiation and drag event delivery on a newly
// created floating frame.
func (d *daemon) attachFrame(win *wm.ManagedWindow) {
	xu := d.conn.XUtil
	frame := win.Container.Frame
	mod := d.cfg.Modifier

	err := mousebind.ButtonPressFun(func(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.mgr.StartDrag(win, wm.DragMove); err != nil {
			d.log.Error("move drag failed", "id", win.ID, "error", err)
		}
	}).Connect(xu, frame, mod+"-1", false, true)
	if err != nil {
		d.log.Warn("failed to bind move drag", "frame", frame, "error", err)
	}

	err = mousebind.ButtonPressFun(func(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		d.mu.Lock()
		defer d.mu.Unlock()
		// DragNone lets the pointer zone pick the resize direction.
		if err := d.mgr.StartDrag(win, wm.DragNone); err != nil {
			d.log.Error("resize drag failed", "id", win.ID, "error", err)
		}
	}).Connect(xu, frame, mod+"-3", false, true)
	if err != nil {
		d.log.Warn("failed to bind resize drag", "frame", frame, "error", err)
	}

	// During an active drag grab the server reports pointer events
	// against the frame.
	xevent.MotionNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		ev = compressMotion(xu, ev)
		d.mu.Lock()
		d.mgr.PointerMotion(int(ev.RootX), int(ev.RootY))
		d.mu.Unlock()
	}).Connect(xu, frame)

	xevent.ButtonReleaseFun(func(xu *xgbutil.XUtil, ev xevent.ButtonReleaseEvent) {
		d.mu.Lock()
		d.mgr.StopDrag()
		d.mu.Unlock()
	}).Connect(xu, frame)
}

func (d *daemon) detachFrame(frame xproto.Window) {
	mousebind.Detach(d.conn.XUtil, frame)
	xevent.Detach(d.conn.XUtil, frame)
}

// compressMotion drops queued motion events for the same window, keeping
// only the newest. Without this a fast pointer floods the configure
// pipeline and the frame lags the cursor.
func compressMotion(xu *xgbutil.XUtil, ev xevent.MotionNotifyEvent) xevent.MotionNotifyEvent {
	xu.Sync()
	xevent.Read(xu, false)

	latest := ev
	for i, everr := range xevent.Peek(xu) {
		if everr.Err != nil {
			continue
		}
		if mn, ok := everr.Event.(xproto.MotionNotifyEvent); ok && mn.Event == ev.Event {
			latest = xevent.MotionNotifyEvent{MotionNotifyEvent: &mn}
			// Deferred dequeues run newest-index first, so earlier
			// indices stay valid.
			defer func(idx int) { xevent.DequeueAt(xu, idx) }(i)
		}
	}
	return latest
}

func (d *daemon) focusedWindow() (*wm.ManagedWindow, error) {
	reply, err := xproto.GetInputFocus(d.conn.XUtil.Conn()).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query input focus: %w", err)
	}
	if win := d.mgr.Window(reply.Focus); win != nil {
		return win, nil
	}
	if win := d.mgr.WindowByFrame(reply.Focus); win != nil {
		return win, nil
	}
	return nil, fmt.Errorf("focused window %d is not managed", reply.Focus)
}

func (d *daemon) resolveWindow(window uint32) (*wm.ManagedWindow, error) {
	if window == 0 {
		return d.focusedWindow()
	}
	win := d.mgr.Window(xproto.Window(window))
	if win == nil {
		return nil, fmt.Errorf("window %d is not managed", window)
	}
	return win, nil
}

// ToggleFloat implements ipc.Handler.
func (d *daemon) ToggleFloat(window uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	win, err := d.resolveWindow(window)
	if err != nil {
		return err
	}
	if win.Mode == wm.ModeFloating {
		return d.unfloatWin(win)
	}
	return d.floatWin(win)
}

// Float implements ipc.Handler.
func (d *daemon) Float(window uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	win, err := d.resolveWindow(window)
	if err != nil {
		return err
	}
	return d.floatWin(win)
}

// Unfloat implements ipc.Handler.
func (d *daemon) Unfloat(window uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	win, err := d.resolveWindow(window)
	if err != nil {
		return err
	}
	return d.unfloatWin(win)
}

// Status implements ipc.Handler.
func (d *daemon) Status() (ipc.StatusData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	floating := 0
	windows := d.mgr.Windows()
	for _, win := range windows {
		if win.Mode == wm.ModeFloating {
			floating++
		}
	}

	return ipc.StatusData{
		WindowCount:      len(windows),
		FloatingCount:    floating,
		CurrentWorkspace: d.mgr.CurrentWorkspace().Num,
		Dragging:         d.mgr.Dragging(),
		UptimeSeconds:    int64(time.Since(d.startTime).Seconds()),
		DaemonRunning:    true,
	}, nil
}

// Monitors implements ipc.Handler.
func (d *daemon) Monitors() (ipc.MonitorsData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pointerMon := d.conn.MonitorForPointer(d.monitors)
	infos := make([]ipc.MonitorInfo, len(d.monitors))
	for i, mon := range d.monitors {
		infos[i] = ipc.MonitorInfo{
			ID:      mon.ID,
			Name:    mon.Name,
			X:       mon.Bounds.X,
			Y:       mon.Bounds.Y,
			Width:   mon.Bounds.Width,
			Height:  mon.Bounds.Height,
			Pointer: pointerMon != nil && pointerMon.ID == mon.ID,
		}
	}
	return ipc.MonitorsData{Monitors: infos}, nil
}

// Reload implements ipc.Handler.
func (d *daemon) Reload() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	d.applyConfig(cfg)
	return nil
}

func (d *daemon) applyConfig(cfg *config.Config) {
	borderColor, err := config.ParseColor(cfg.BorderColor)
	if err != nil {
		d.log.Warn("ignoring config with invalid border color", "error", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	oldModifier := d.cfg.Modifier
	d.cfg = cfg
	d.logLevel.Set(parseLevel(cfg.LogLevel))
	d.mgr.SetBorder(cfg.BorderWidth, borderColor)
	d.mgr.SetMinDragSize(cfg.MinDragSize)
	d.mgr.SetTiler(&layout.Grid{Gateway: d.gw, Bounds: d.tileBounds, Gap: cfg.Gap})
	d.mgr.RetileAll()

	if cfg.Modifier != oldModifier {
		d.rebindModifier()
	}

	d.log.Info("configuration applied",
		"border_width", cfg.BorderWidth, "gap", cfg.Gap, "log_level", cfg.LogLevel)
}

// rebindModifier redoes every grab that embeds the modifier string. A
// live drag is ended first so its release handler is not detached out
// from under it.
func (d *daemon) rebindModifier() {
	d.mgr.StopDrag()

	keybind.Detach(d.conn.XUtil, d.conn.Root)
	d.setupKeybindings()

	for _, win := range d.mgr.Windows() {
		if win.Mode == wm.ModeFloating && win.Container != nil {
			d.detachFrame(win.Container.Frame)
			d.attachFrame(win)
		}
	}
}

// watchConfig applies config file edits as they happen. RELOAD over IPC
// still works when the watcher cannot start.
func (d *daemon) watchConfig() func() {
	path, err := config.DefaultConfigPath()
	if err != nil {
		d.log.Warn("config watcher disabled", "error", err)
		return func() {}
	}

	updates, stop, err := config.Watch(path, d.log)
	if err != nil {
		d.log.Warn("config watcher disabled", "error", err)
		return func() {}
	}

	go func() {
		for cfg := range updates {
			d.applyConfig(cfg)
		}
	}()
	return stop
}
