package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xcursor"

	"github.com/floatwm/floatwm/internal/wm"
)

// cursorShapes maps each drag type to its cursor-font shape. The move
// cursor plus the eight directional resize cursors.
var cursorShapes = map[wm.DragType]uint16{
	wm.DragMove:              xcursor.Fleur,
	wm.DragResizeTopLeft:     xcursor.TopLeftCorner,
	wm.DragResizeTop:         xcursor.TopSide,
	wm.DragResizeTopRight:    xcursor.TopRightCorner,
	wm.DragResizeRight:       xcursor.RightSide,
	wm.DragResizeBottomRight: xcursor.BottomRightCorner,
	wm.DragResizeBottom:      xcursor.BottomSide,
	wm.DragResizeBottomLeft:  xcursor.BottomLeftCorner,
	wm.DragResizeLeft:        xcursor.LeftSide,
}

// LoadCursors creates the drag cursors once at startup. The returned
// handles are reused for the process lifetime.
func LoadCursors(xu *xgbutil.XUtil) (map[wm.DragType]xproto.Cursor, error) {
	cursors := make(map[wm.DragType]xproto.Cursor, len(cursorShapes))
	for kind, shape := range cursorShapes {
		cur, err := xcursor.CreateCursor(xu, shape)
		if err != nil {
			return nil, fmt.Errorf("load cursor for %s: %w", kind, err)
		}
		cursors[kind] = cur
	}
	return cursors, nil
}
