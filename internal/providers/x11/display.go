package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// display is one connected monitor with its rectangle in root coordinates.
type display struct {
	name string
	x, y int
	w, h int
}

// getDisplays enumerates the connected RandR outputs that are driven by a
// CRTC. Enumeration order is the server's output order and is what breaks
// overlap ties in calcDisplay.
func getDisplays(conn *xgb.Conn, root xproto.Window) ([]display, error) {
	res, err := randr.GetScreenResourcesCurrent(conn, root).Reply()
	if err != nil {
		return nil, err
	}

	displays := make([]display, 0, len(res.Outputs))

	for _, output := range res.Outputs {
		info, err := randr.GetOutputInfo(conn, output, 0).Reply()
		if err != nil {
			return nil, err
		}
		if info.Connection != randr.ConnectionConnected || info.Crtc == 0 {
			continue
		}

		crtc, err := randr.GetCrtcInfo(conn, info.Crtc, 0).Reply()
		if err != nil {
			return nil, err
		}

		displays = append(displays, display{
			name: string(info.Name),
			x:    int(crtc.X),
			y:    int(crtc.Y),
			w:    int(crtc.Width),
			h:    int(crtc.Height),
		})
	}

	return displays, nil
}

// calcDisplay picks the monitor for a window rectangle: the one containing
// the center point, else the one with the largest overlap area, else "".
func calcDisplay(displays []display, x, y, w, h int) string {
	cx := x + w/2
	cy := y + h/2

	for _, d := range displays {
		if cx >= d.x && cx < d.x+d.w && cy >= d.y && cy < d.y+d.h {
			return d.name
		}
	}

	matched := ""
	maxOverlap := 0

	for _, d := range displays {
		x1 := max(x, d.x)
		y1 := max(y, d.y)
		x2 := min(x+w, d.x+d.w)
		y2 := min(y+h, d.y+d.h)

		if x1 < x2 && y1 < y2 {
			overlap := (x2 - x1) * (y2 - y1)
			if overlap > maxOverlap {
				maxOverlap = overlap
				matched = d.name
			}
		}
	}

	return matched
}
