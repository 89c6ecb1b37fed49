package x11

import (
	"encoding/binary"
	"strconv"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/slightlyfaulty/wctx/internal/types"
)

// maxTreeNodes bounds window-tree traversal against a misbehaving server
// reporting a cyclic or absurdly deep tree. Real trees are a handful of
// levels at most.
const maxTreeNodes = 4096

// window is the tracker's view of one tracked window. id is the matched
// class-bearing window; topID is the top-level ancestor the event targeted,
// used to correlate ConfigureNotify geometry with the record.
type window struct {
	id      xproto.Window
	topID   xproto.Window
	name    string
	class   string
	pid     uint32
	title   string
	typ     types.Type
	role    string
	state   types.State
	display string
}

// record converts to the wire record published on the bus.
func (w *window) record() types.Window {
	return types.Window{
		ID:      strconv.FormatUint(uint64(w.id), 10),
		Name:    w.name,
		Class:   w.class,
		PID:     w.pid,
		Title:   w.title,
		Type:    w.typ,
		Role:    w.role,
		State:   w.state,
		Display: w.display,
	}
}

// match is the (id, name, class) triple resolved from a subtree.
type match struct {
	id    xproto.Window
	name  string
	class string
}

// parseClass splits a raw WM_CLASS value (instance NUL class NUL) into the
// normalized name and class tokens: lowercase, spaces mapped to dashes.
func parseClass(value []byte) (match, bool) {
	if len(value) == 0 {
		return match{}, false
	}

	norm := make([]byte, len(value))
	sep := -1

	for i, b := range value {
		switch {
		case b == 0:
			if sep < 0 {
				sep = i
			}
			norm[i] = b
		case b == ' ':
			norm[i] = '-'
		case b >= 'A' && b <= 'Z':
			norm[i] = b + ('a' - 'A')
		default:
			norm[i] = b
		}
	}

	if sep < 0 {
		return match{}, false
	}

	name := string(norm[:sep])
	class := ""
	if end := len(norm) - 1; sep+1 <= end {
		if norm[end] == 0 {
			class = string(norm[sep+1 : end])
		} else {
			class = string(norm[sep+1:])
		}
	}

	return match{name: name, class: class}, true
}

// getWindowProp fetches a property, treating empty values as absent.
func (t *tracker) getWindowProp(win xproto.Window, atom xproto.Atom, typ xproto.Atom) *xproto.GetPropertyReply {
	reply, err := xproto.GetProperty(t.conn, false, win, atom, typ, 0, 1024).Reply()
	if err != nil || reply == nil || reply.ValueLen == 0 {
		return nil
	}
	return reply
}

func (t *tracker) propCookie(win xproto.Window, atom xproto.Atom, typ xproto.Atom) xproto.GetPropertyCookie {
	return xproto.GetProperty(t.conn, false, win, atom, typ, 0, 1024)
}

// value32 decodes a 32-bit property value list.
func value32(reply *xproto.GetPropertyReply) []uint32 {
	if reply == nil || reply.Format != 32 {
		return nil
	}
	values := make([]uint32, 0, reply.ValueLen)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		values = append(values, binary.LittleEndian.Uint32(reply.Value[i:]))
	}
	return values
}

// windowMatch reads and parses WM_CLASS for a single window.
func (t *tracker) windowMatch(win xproto.Window) (match, bool) {
	reply := t.getWindowProp(win, xproto.AtomWmClass, xproto.AtomString)
	if reply == nil {
		return match{}, false
	}

	m, ok := parseClass(reply.Value)
	if !ok {
		return match{}, false
	}
	m.id = win
	return m, true
}

// resolveWindowMatch descends the subtree under win in pre-order until a
// node with a non-empty WM_CLASS is found. An id with no class anywhere in
// its subtree yields no match.
func (t *tracker) resolveWindowMatch(win xproto.Window) (match, bool) {
	if win == 0 {
		return match{}, false
	}

	visited := make(map[xproto.Window]bool)
	stack := []xproto.Window{win}

	for len(stack) > 0 && len(visited) < maxTreeNodes {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if id == 0 || visited[id] {
			continue
		}
		visited[id] = true

		if m, ok := t.windowMatch(id); ok {
			return m, true
		}

		tree, err := xproto.QueryTree(t.conn, id).Reply()
		if err != nil {
			continue
		}
		for i := len(tree.Children) - 1; i >= 0; i-- {
			stack = append(stack, tree.Children[i])
		}
	}

	return match{}, false
}

// cascadeEventMask installs the event mask on win and, while the window has
// no WM_CLASS of its own, on its children. Class-bearing windows are leaves:
// descending past them would surface events from internal sub-windows.
// Errors on individual nodes are swallowed; the window may be gone already.
func (t *tracker) cascadeEventMask(win xproto.Window, mask uint32) {
	visited := make(map[xproto.Window]bool)
	stack := []xproto.Window{win}

	for len(stack) > 0 && len(visited) < maxTreeNodes {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if id == 0 || visited[id] {
			continue
		}
		visited[id] = true

		if err := xproto.ChangeWindowAttributesChecked(t.conn, id, xproto.CwEventMask, []uint32{mask}).Check(); err != nil {
			continue
		}

		if reply := t.getWindowProp(id, xproto.AtomWmClass, xproto.AtomString); reply != nil {
			continue
		}

		tree, err := xproto.QueryTree(t.conn, id).Reply()
		if err != nil {
			continue
		}
		for i := len(tree.Children) - 1; i >= 0; i-- {
			stack = append(stack, tree.Children[i])
		}
	}
}

// getWindow builds a full window record for a resolved match. All property
// requests are issued before any reply is read, so the fetches ride the X
// connection pipeline together. Missing properties default.
func (t *tracker) getWindow(topID xproto.Window, m match) window {
	if m.id == 0 {
		return window{}
	}

	pidC := t.propCookie(m.id, t.atoms.wmPID, xproto.AtomCardinal)
	titleC := t.propCookie(m.id, t.atoms.wmName, t.atoms.utf8String)
	typeC := t.propCookie(m.id, t.atoms.wmWindowType, xproto.AtomAtom)
	roleC := t.propCookie(m.id, t.atoms.wmWindowRole, xproto.AtomString)
	stateC := t.propCookie(m.id, t.atoms.wmState, xproto.AtomAtom)
	geomC := xproto.GetGeometry(t.conn, xproto.Drawable(m.id))

	w := window{
		id:    m.id,
		topID: topID,
		name:  m.name,
		class: m.class,
	}

	if values := value32(propReply(pidC)); len(values) > 0 {
		w.pid = values[0]
	}
	if reply := propReply(titleC); reply != nil {
		w.title = string(reply.Value)
	}
	w.typ = t.typeFromReply(propReply(typeC))
	if reply := propReply(roleC); reply != nil {
		w.role = string(reply.Value)
	}
	w.state = t.stateFromReply(propReply(stateC))

	if geom, err := geomC.Reply(); err == nil {
		w.display = t.windowDisplayFromGeometry(m.id, geom)
	}

	return w
}

func propReply(cookie xproto.GetPropertyCookie) *xproto.GetPropertyReply {
	reply, err := cookie.Reply()
	if err != nil || reply == nil || reply.ValueLen == 0 {
		return nil
	}
	return reply
}

func (t *tracker) getWindowTitle(win xproto.Window) string {
	reply := t.getWindowProp(win, t.atoms.wmName, t.atoms.utf8String)
	if reply == nil {
		return ""
	}
	return string(reply.Value)
}

func (t *tracker) getWindowRole(win xproto.Window) string {
	reply := t.getWindowProp(win, t.atoms.wmWindowRole, xproto.AtomString)
	if reply == nil {
		return ""
	}
	return string(reply.Value)
}

func (t *tracker) getWindowState(win xproto.Window) types.State {
	return t.stateFromReply(t.getWindowProp(win, t.atoms.wmState, xproto.AtomAtom))
}

// stateFromReply maps a _NET_WM_STATE atom list to the record state:
// Fullscreen wins over Maximized, which requires both the horizontal and
// vertical atoms. An absent property reads as Normal.
func (t *tracker) stateFromReply(reply *xproto.GetPropertyReply) types.State {
	return stateFromAtoms(value32(reply), t.atoms)
}

func stateFromAtoms(values []uint32, a *atoms) types.State {
	var fullscreen, maxHorz, maxVert bool
	for _, v := range values {
		switch xproto.Atom(v) {
		case a.wmStateFullscreen:
			fullscreen = true
		case a.wmStateMaxHorz:
			maxHorz = true
		case a.wmStateMaxVert:
			maxVert = true
		}
	}

	switch {
	case fullscreen:
		return types.StateFullscreen
	case maxHorz && maxVert:
		return types.StateMaximized
	default:
		return types.StateNormal
	}
}

// typeFromReply maps the first _NET_WM_WINDOW_TYPE atom through the type
// map. A window that doesn't set the property counts as Normal; a window
// setting a type the map doesn't know stays TypeNone.
func (t *tracker) typeFromReply(reply *xproto.GetPropertyReply) types.Type {
	values := value32(reply)
	if len(values) == 0 {
		return types.TypeNormal
	}
	return t.atoms.windowTypes[xproto.Atom(values[0])]
}

// getWindowDisplay recomputes display affinity from the window's current
// geometry translated to root coordinates.
func (t *tracker) getWindowDisplay(win xproto.Window) string {
	geom, err := xproto.GetGeometry(t.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return ""
	}
	return t.windowDisplayFromGeometry(win, geom)
}

func (t *tracker) windowDisplayFromGeometry(win xproto.Window, geom *xproto.GetGeometryReply) string {
	translate, err := xproto.TranslateCoordinates(t.conn, win, t.root, geom.X, geom.Y).Reply()
	if err != nil {
		return ""
	}
	return calcDisplay(t.displays, int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height))
}
