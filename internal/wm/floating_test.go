package wm

import (
	"fmt"
	"testing"

	"github.com/floatwm/floatwm/internal/geometry"
)

func TestSetFloatingThenUnsetRestoresTiled(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := m.Manage(50, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300}, 0, 0, false)

	if err := m.SetFloating(win); err != nil {
		t.Fatalf("SetFloating: %v", err)
	}
	if win.Mode != ModeFloating {
		t.Fatalf("expected floating mode, got %v", win.Mode)
	}
	if win.Container == nil || win.Container.Edges == nil {
		t.Fatalf("expected container with cached edges")
	}
	if !win.FixedSize {
		t.Fatalf("expected fixed-size flag set")
	}
	frame := win.Container.Frame
	if m.WindowByFrame(frame) != win {
		t.Fatalf("frame not registered")
	}

	if err := m.UnsetFloating(win); err != nil {
		t.Fatalf("UnsetFloating: %v", err)
	}
	if win.Mode != ModeTiled {
		t.Fatalf("expected tiled mode, got %v", win.Mode)
	}
	if win.Container != nil {
		t.Fatalf("expected container destroyed")
	}
	if win.FixedSize {
		t.Fatalf("expected fixed-size flag cleared")
	}
	if m.WindowByFrame(frame) != nil {
		t.Fatalf("frame still registered after unfloat")
	}
	if !fg.hasOp(fmt.Sprintf("destroy-frame %d", frame)) {
		t.Fatalf("frame window never destroyed; ops: %v", fg.ops)
	}

	// The pair is idempotent in mode: a second round lands back in Tiled.
	if err := m.SetFloating(win); err != nil {
		t.Fatalf("second SetFloating: %v", err)
	}
	if err := m.UnsetFloating(win); err != nil {
		t.Fatalf("second UnsetFloating: %v", err)
	}
	if win.Mode != ModeTiled || win.Container != nil {
		t.Fatalf("pair not idempotent: mode=%v container=%v", win.Mode, win.Container)
	}
}

func TestSetFloatingResolvesIllegalGeometry(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	// Wider than the 1920 bound: clamps to full width at x=0.
	win := m.Manage(51, geometry.Rect{X: 800, Y: 100, Width: 2000, Height: 600}, 0, 0, false)

	if err := m.SetFloating(win); err != nil {
		t.Fatalf("SetFloating: %v", err)
	}
	if win.Geom.X != 0 || win.Geom.Width != 1920 {
		t.Fatalf("expected clamped x=0 w=1920, got x=%d w=%d", win.Geom.X, win.Geom.Width)
	}
	if win.Geom.Y != 100 || win.Geom.Height != 600 {
		t.Fatalf("vertical axis should be untouched, got y=%d h=%d", win.Geom.Y, win.Geom.Height)
	}

	// Frame rect wraps the resolved client rect by the border width.
	cfg, ok := fg.lastConfigure(win.Container.Frame)
	if !ok {
		t.Fatalf("frame never configured")
	}
	if cfg.X != -testBorderWidth || cfg.Width != 1920+2*testBorderWidth {
		t.Fatalf("unexpected frame configure: %+v", cfg)
	}
}

func TestSetFloatingFlushesFrameBeforeClientReparent(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := m.Manage(52, geometry.Rect{X: 10, Y: 10, Width: 200, Height: 100}, 0, 0, false)

	if err := m.SetFloating(win); err != nil {
		t.Fatalf("SetFloating: %v", err)
	}

	frame := win.Container.Frame
	frameConfigure := fmt.Sprintf("configure %d mask=%d %d,%d %dx%d",
		frame, ConfigX|ConfigY|ConfigWidth|ConfigHeight|ConfigAbove, 8, 8, 204, 104)
	clientReparent := fmt.Sprintf("reparent %d->%d @%d,%d", win.ID, frame, testBorderWidth, testBorderWidth)

	ci := fg.opIndex(t, frameConfigure)
	ri := fg.opIndex(t, clientReparent)
	if ri < ci {
		t.Fatalf("client reparented before frame configure; ops: %v", fg.ops)
	}

	// There must be a flush between sizing the frame and moving the
	// client in: the frame has to exist at its final geometry first.
	flushed := false
	for _, op := range fg.ops[ci+1 : ri] {
		if op == "flush" {
			flushed = true
		}
	}
	if !flushed {
		t.Fatalf("no flush between frame configure and client reparent; ops: %v", fg.ops)
	}

	// Event delivery is suspended around the reparent and restored after.
	si := fg.opIndex(t, fmt.Sprintf("select-input %d mask=%d", win.ID, 0))
	restore := fg.opIndex(t, fmt.Sprintf("select-input %d mask=%d", win.ID, clientEventMask))
	if !(si < ri && ri < restore) {
		t.Fatalf("client event mask not suspended around reparent; ops: %v", fg.ops)
	}
}

func TestSetFloatingTransientFollowsOwnerWorkspace(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)

	owner := m.Manage(60, geometry.Rect{Width: 500, Height: 400}, 1, 0, false)
	dialog := m.Manage(61, geometry.Rect{Width: 200, Height: 150}, 0, 60, false)
	if dialog.Transient != owner {
		t.Fatalf("transient back-reference not wired")
	}

	if err := m.SetFloating(dialog); err != nil {
		t.Fatalf("SetFloating: %v", err)
	}

	ws := m.Workspace(1)
	if dialog.Workspace != ws {
		t.Fatalf("dialog not placed on owner workspace")
	}
	// Workspace 1 is not the visible one: it gets flagged urgent and the
	// switch history learns about it.
	if !ws.Urgent {
		t.Fatalf("expected invisible placement workspace marked urgent")
	}
	if recent := m.History().Recent(); len(recent) == 0 || recent[0] != 1 {
		t.Fatalf("expected workspace 1 at head of history, got %v", recent)
	}
}

func TestSetFloatingVisibleWorkspaceNotUrgent(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := m.Manage(62, geometry.Rect{Width: 300, Height: 200}, 0, 0, false)

	if err := m.SetFloating(win); err != nil {
		t.Fatalf("SetFloating: %v", err)
	}
	if m.Workspace(0).Urgent {
		t.Fatalf("visible workspace must not be marked urgent")
	}
}

func TestSetFloatingUtilityWindowKeepsFocus(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := m.Manage(63, geometry.Rect{Width: 300, Height: 200}, 0, 0, true)

	if err := m.SetFloating(win); err != nil {
		t.Fatalf("SetFloating: %v", err)
	}
	if fg.hasOp(fmt.Sprintf("focus %d", win.Container.Frame)) {
		t.Fatalf("utility window must not receive focus on creation; ops: %v", fg.ops)
	}
}

func TestUnsetFloatingOnTiledWindowIsNoop(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := m.Manage(64, geometry.Rect{Width: 300, Height: 200}, 0, 0, false)

	if err := m.UnsetFloating(win); err != nil {
		t.Fatalf("UnsetFloating: %v", err)
	}
	if len(fg.ops) != 0 {
		t.Fatalf("expected no protocol traffic, got %v", fg.ops)
	}
}

func TestFocusLockClearedOnEveryExit(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := m.Manage(65, geometry.Rect{Width: 300, Height: 200}, 0, 0, false)

	if err := m.SetFloating(win); err != nil {
		t.Fatalf("SetFloating: %v", err)
	}
	if m.FocusLocked() {
		t.Fatalf("focus lock wedged after SetFloating")
	}
	if err := m.UnsetFloating(win); err != nil {
		t.Fatalf("UnsetFloating: %v", err)
	}
	if m.FocusLocked() {
		t.Fatalf("focus lock wedged after UnsetFloating")
	}
}

type recordingTiler struct {
	calls int
	last  []*ManagedWindow
}

func (r *recordingTiler) Retile(ws *Workspace, windows []*ManagedWindow) error {
	r.calls++
	r.last = windows
	return nil
}

func TestUnsetFloatingHandsWindowBackToTiler(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	tiler := &recordingTiler{}
	m.tiler = tiler
	win := m.Manage(66, geometry.Rect{Width: 300, Height: 200}, 0, 0, false)

	if err := m.SetFloating(win); err != nil {
		t.Fatalf("SetFloating: %v", err)
	}
	if err := m.UnsetFloating(win); err != nil {
		t.Fatalf("UnsetFloating: %v", err)
	}
	if tiler.calls == 0 {
		t.Fatalf("tiling policy never asked to re-show the window")
	}
	found := false
	for _, w := range tiler.last {
		if w == win {
			found = true
		}
	}
	if !found {
		t.Fatalf("unfloated window missing from retile set")
	}
}

func TestUnmanageFloatingWindowDestroysFrame(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := m.Manage(67, geometry.Rect{Width: 300, Height: 200}, 0, 0, false)

	if err := m.SetFloating(win); err != nil {
		t.Fatalf("SetFloating: %v", err)
	}
	frame := win.Container.Frame

	m.Unmanage(win.ID)

	if m.Window(win.ID) != nil || m.WindowByFrame(frame) != nil {
		t.Fatalf("window still registered after unmanage")
	}
	if !fg.hasOp(fmt.Sprintf("destroy-frame %d", frame)) {
		t.Fatalf("frame not destroyed on unmanage")
	}
}
