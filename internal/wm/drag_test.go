package wm

import (
	"fmt"
	"testing"

	"github.com/floatwm/floatwm/internal/geometry"
)

// floatWindow is a helper: manage + float a window and clear the gateway
// op log so drag tests only see their own traffic.
func floatWindow(t *testing.T, m *Manager, fg *fakeGateway, geom geometry.Rect) *ManagedWindow {
	t.Helper()
	win := m.Manage(70, geom, 0, 0, false)
	if err := m.SetFloating(win); err != nil {
		t.Fatalf("SetFloating: %v", err)
	}
	fg.ops = nil
	return win
}

func TestStartDragWithoutContainerIsNoop(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := m.Manage(71, geometry.Rect{Width: 300, Height: 200}, 0, 0, false)

	if err := m.StartDrag(win, DragMove); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	if m.Dragging() {
		t.Fatalf("session armed for a window without a frame")
	}
	if len(fg.ops) != 0 {
		t.Fatalf("expected no protocol traffic, got %v", fg.ops)
	}
}

func TestStartDragGrabContentionLeavesNoTrace(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := floatWindow(t, m, fg, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300})
	fg.grabResults = []bool{false} // another client owns the pointer

	if err := m.StartDrag(win, DragMove); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}

	if m.Dragging() {
		t.Fatalf("session armed despite grab contention")
	}
	// Exactly one request: the failed test grab. No cursor change, no
	// second grab, no raise, nothing.
	if len(fg.ops) != 1 {
		t.Fatalf("expected only the test grab, got %v", fg.ops)
	}
	// Edges survive: the session never became the geometry authority.
	if win.Container.Edges == nil {
		t.Fatalf("edges invalidated on an aborted start")
	}
}

func TestStartDragInvalidatesEdgesAndArmsCursor(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := floatWindow(t, m, fg, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300})
	fg.pointer = Pointer{RootX: 150, RootY: 120, WinX: 52, WinY: 22}

	if err := m.StartDrag(win, DragMove); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}

	if !m.Dragging() {
		t.Fatalf("expected live session")
	}
	if win.Container.Edges != nil {
		t.Fatalf("edges must be invalidated when a session starts")
	}
	armed := fmt.Sprintf("grab-pointer %d mask=%d cursor=%d ok=true",
		win.Container.Frame, dragEventMask, m.cursors[DragMove])
	if !fg.hasOp(armed) {
		t.Fatalf("armed grab with move cursor not issued; ops: %v", fg.ops)
	}
	if !fg.hasOp(fmt.Sprintf("raise %d", win.Container.Frame)) {
		t.Fatalf("frame not raised on drag start")
	}
}

func TestStartDragCenterZoneArmsNothing(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := floatWindow(t, m, fg, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300})
	// Frame is 404x304; dead center is in the middle third both ways.
	fg.pointer = Pointer{RootX: 300, RootY: 250, WinX: 202, WinY: 152}

	if err := m.StartDrag(win, DragNone); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	if m.Dragging() {
		t.Fatalf("center zone must not arm a session")
	}
	if !fg.hasOp("ungrab-pointer") {
		t.Fatalf("test grab not released after center-zone no-op")
	}
}

func TestInferredResizeTypes(t *testing.T) {
	// 300x300 frame: thirds are [0,100) [100,200) [200,300).
	tests := []struct {
		x, y int
		want DragType
	}{
		{10, 10, DragResizeTopLeft},
		{150, 10, DragResizeTop},
		{290, 10, DragResizeTopRight},
		{290, 150, DragResizeRight},
		{290, 290, DragResizeBottomRight},
		{150, 290, DragResizeBottom},
		{10, 290, DragResizeBottomLeft},
		{10, 150, DragResizeLeft},
		{150, 150, DragNone},
	}
	for _, tt := range tests {
		if got := dragTypeForPointer(tt.x, tt.y, 300, 300); got != tt.want {
			t.Errorf("pointer (%d,%d): expected %v, got %v", tt.x, tt.y, tt.want, got)
		}
	}
}

func TestMoveSessionTranslatesWithoutResizing(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := floatWindow(t, m, fg, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300})
	// Grab-time pointer offset inside the frame: (50, 20).
	fg.pointer = Pointer{RootX: 148, RootY: 118, WinX: 50, WinY: 20}

	if err := m.StartDrag(win, DragMove); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}

	startW, startH := win.Container.Geom.Width, win.Container.Geom.Height

	for _, p := range [][2]int{{400, 300}, {10, 900}, {1200, 40}} {
		m.PointerMotion(p[0], p[1])

		cfg, _ := fg.lastConfigure(win.Container.Frame)
		if cfg.Mask != ConfigX|ConfigY {
			t.Fatalf("move must only configure position, mask=%d", cfg.Mask)
		}
		if cfg.X != p[0]-50 || cfg.Y != p[1]-20 {
			t.Fatalf("motion (%d,%d): expected pos (%d,%d), got (%d,%d)",
				p[0], p[1], p[0]-50, p[1]-20, cfg.X, cfg.Y)
		}
		if win.Container.Geom.Width != startW || win.Container.Geom.Height != startH {
			t.Fatalf("move changed the size")
		}
	}
}

func TestCornerResizeKeepsOppositeCornerFixed(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := floatWindow(t, m, fg, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300})
	// Frame rect is (98,98) 404x304: bottom-right corner at (502, 402).
	fg.pointer = Pointer{RootX: 103, RootY: 103, WinX: 5, WinY: 5}

	if err := m.StartDrag(win, DragResizeTopLeft); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}

	for _, p := range [][2]int{{200, 150}, {150, 220}, {300, 300}} {
		m.PointerMotion(p[0], p[1])
		g := win.Container.Geom
		if g.X+g.Width != 502 || g.Y+g.Height != 402 {
			t.Fatalf("motion (%d,%d): opposite corner moved to (%d,%d)",
				p[0], p[1], g.X+g.Width, g.Y+g.Height)
		}
	}
}

func TestEdgeResizeTouchesOnlyItsAxis(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := floatWindow(t, m, fg, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300})
	fg.pointer = Pointer{RootX: 500, RootY: 250, WinX: 402, WinY: 152}

	if err := m.StartDrag(win, DragResizeRight); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}

	m.PointerMotion(600, 999)

	cfg, _ := fg.lastConfigure(win.Container.Frame)
	if cfg.Mask != ConfigWidth {
		t.Fatalf("right-edge resize must only configure width, mask=%d", cfg.Mask)
	}
	// Left edge at root x=98: width = 600 - 98.
	if cfg.Width != 502 {
		t.Fatalf("expected width 502, got %d", cfg.Width)
	}
}

func TestDragResizesClientInsideFrame(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := floatWindow(t, m, fg, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300})
	fg.pointer = Pointer{RootX: 500, RootY: 400, WinX: 402, WinY: 302}

	if err := m.StartDrag(win, DragResizeBottomRight); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	m.PointerMotion(600, 500)

	cfg, ok := fg.lastConfigure(win.ID)
	if !ok {
		t.Fatalf("client never resized to follow the frame")
	}
	if cfg.Mask != ConfigWidth|ConfigHeight {
		t.Fatalf("client follow-up must only resize, mask=%d", cfg.Mask)
	}
	if cfg.Width != win.Geom.Width || cfg.Height != win.Geom.Height {
		t.Fatalf("client size %dx%d does not match cached geom %dx%d",
			cfg.Width, cfg.Height, win.Geom.Width, win.Geom.Height)
	}
}

func TestMotionWithoutSessionIsNoop(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)

	m.PointerMotion(100, 100)
	if len(fg.ops) != 0 {
		t.Fatalf("expected no traffic without a session, got %v", fg.ops)
	}
}

func TestStopDragIsIdempotent(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := floatWindow(t, m, fg, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300})
	fg.pointer = Pointer{RootX: 150, RootY: 120, WinX: 52, WinY: 22}

	if err := m.StartDrag(win, DragMove); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	m.StopDrag()
	if m.Dragging() {
		t.Fatalf("session survived StopDrag")
	}
	// Stopping again is safe and still issues the unconditional ungrab.
	m.StopDrag()
	if m.Dragging() {
		t.Fatalf("session resurrected")
	}
}

func TestUnsetFloatingCancelsLiveSession(t *testing.T) {
	fg := newFakeGateway()
	m := newTestManager(fg)
	win := floatWindow(t, m, fg, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300})
	fg.pointer = Pointer{RootX: 150, RootY: 120, WinX: 52, WinY: 22}

	if err := m.StartDrag(win, DragMove); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	if err := m.UnsetFloating(win); err != nil {
		t.Fatalf("UnsetFloating: %v", err)
	}
	if m.Dragging() {
		t.Fatalf("session survived frame destruction")
	}
}
