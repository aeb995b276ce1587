package wm

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/floatwm/floatwm/internal/geometry"
)

// fakeGateway records every protocol request in order so tests can assert
// on sequencing and flush checkpoints without an X server.
type fakeGateway struct {
	ops []string

	// grabResults is consumed front-to-back by GrabPointer; when empty
	// the grab succeeds.
	grabResults []bool
	pointer     Pointer

	nextWin    xproto.Window
	configures map[xproto.Window][]Configure
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextWin:    1000,
		configures: make(map[xproto.Window][]Configure),
	}
}

func (f *fakeGateway) record(format string, args ...interface{}) {
	f.ops = append(f.ops, fmt.Sprintf(format, args...))
}

func (f *fakeGateway) CreateFrame(parent xproto.Window, geom geometry.Rect, background uint32) (xproto.Window, error) {
	f.nextWin++
	f.record("create-frame %d parent=%d", f.nextWin, parent)
	return f.nextWin, nil
}

func (f *fakeGateway) DestroyFrame(frame xproto.Window) error {
	f.record("destroy-frame %d", frame)
	return nil
}

func (f *fakeGateway) ReparentWindow(win, parent xproto.Window, x, y int) error {
	f.record("reparent %d->%d @%d,%d", win, parent, x, y)
	return nil
}

func (f *fakeGateway) ConfigureWindow(win xproto.Window, cfg Configure) error {
	f.configures[win] = append(f.configures[win], cfg)
	f.record("configure %d mask=%d %d,%d %dx%d", win, cfg.Mask, cfg.X, cfg.Y, cfg.Width, cfg.Height)
	return nil
}

func (f *fakeGateway) SelectInput(win xproto.Window, mask uint32) error {
	f.record("select-input %d mask=%d", win, mask)
	return nil
}

func (f *fakeGateway) SetOverrideRedirect(win xproto.Window, enabled bool) error {
	f.record("override-redirect %d %v", win, enabled)
	return nil
}

func (f *fakeGateway) MapWindow(win xproto.Window) error {
	f.record("map %d", win)
	return nil
}

func (f *fakeGateway) RaiseWindow(win xproto.Window) error {
	f.record("raise %d", win)
	return nil
}

func (f *fakeGateway) SetInputFocus(win xproto.Window) error {
	f.record("focus %d", win)
	return nil
}

func (f *fakeGateway) GrabPointer(win xproto.Window, eventMask uint16, cursor xproto.Cursor) (bool, error) {
	ok := true
	if len(f.grabResults) > 0 {
		ok = f.grabResults[0]
		f.grabResults = f.grabResults[1:]
	}
	f.record("grab-pointer %d mask=%d cursor=%d ok=%v", win, eventMask, cursor, ok)
	return ok, nil
}

func (f *fakeGateway) UngrabPointer() error {
	f.record("ungrab-pointer")
	return nil
}

func (f *fakeGateway) QueryPointer(win xproto.Window) (Pointer, error) {
	f.record("query-pointer %d", win)
	return f.pointer, nil
}

func (f *fakeGateway) Flush() {
	f.record("flush")
}

func (f *fakeGateway) opIndex(t *testing.T, op string) int {
	t.Helper()
	for i, o := range f.ops {
		if o == op {
			return i
		}
	}
	t.Fatalf("op %q not issued; ops: %v", op, f.ops)
	return -1
}

func (f *fakeGateway) hasOp(op string) bool {
	for _, o := range f.ops {
		if o == op {
			return true
		}
	}
	return false
}

func (f *fakeGateway) lastConfigure(win xproto.Window) (Configure, bool) {
	cfgs := f.configures[win]
	if len(cfgs) == 0 {
		return Configure{}, false
	}
	return cfgs[len(cfgs)-1], true
}

const (
	testBorderWidth = 2
	testRoot        = xproto.Window(1)
)

func newTestManager(fg *fakeGateway) *Manager {
	cursors := make(map[DragType]xproto.Cursor)
	for t := DragMove; t <= DragResizeLeft; t++ {
		cursors[t] = xproto.Cursor(100 + t)
	}
	m := New(Options{
		Gateway:     fg,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cursors:     cursors,
		BorderWidth: testBorderWidth,
		BorderColor: 0x202020,
		Bounds: func(ws *Workspace) (geometry.Rect, error) {
			return geometry.Rect{Width: 1920, Height: 1040}, nil
		},
	})
	m.AddWorkspace(0, testRoot, geometry.Rect{Width: 1920, Height: 1080}, true)
	m.AddWorkspace(1, testRoot, geometry.Rect{Width: 1920, Height: 1080}, false)
	return m
}
