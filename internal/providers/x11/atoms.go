package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/slightlyfaulty/wctx/internal/types"
)

// atoms holds every interned atom the tracker needs, plus the immutable map
// from _NET_WM_WINDOW_TYPE_* atoms to window types. Every listed type atom is
// interned (the server creates it if it doesn't exist yet), so the map always
// holds all of them; an atom outside the list misses the lookup and means
// types.TypeNone.
type atoms struct {
	utf8String        xproto.Atom
	activeWindow      xproto.Atom
	wmName            xproto.Atom
	wmPID             xproto.Atom
	wmState           xproto.Atom
	wmStateMaxHorz    xproto.Atom
	wmStateMaxVert    xproto.Atom
	wmStateFullscreen xproto.Atom
	wmWindowRole      xproto.Atom
	wmWindowType      xproto.Atom
	windowTypes       map[xproto.Atom]types.Type
}

var windowTypeNames = []struct {
	atom string
	typ  types.Type
}{
	{"_NET_WM_WINDOW_TYPE_COMBO", types.TypeCombo},
	{"_NET_WM_WINDOW_TYPE_DESKTOP", types.TypeDesktop},
	{"_NET_WM_WINDOW_TYPE_DIALOG", types.TypeDialog},
	{"_NET_WM_WINDOW_TYPE_DND", types.TypeDND},
	{"_NET_WM_WINDOW_TYPE_DOCK", types.TypeDock},
	{"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU", types.TypeDropdownMenu},
	{"_NET_WM_WINDOW_TYPE_MENU", types.TypeMenu},
	{"_NET_WM_WINDOW_TYPE_NORMAL", types.TypeNormal},
	{"_NET_WM_WINDOW_TYPE_NOTIFICATION", types.TypeNotification},
	{"_NET_WM_WINDOW_TYPE_POPUP_MENU", types.TypePopupMenu},
	{"_NET_WM_WINDOW_TYPE_SPLASH", types.TypeSplash},
	{"_NET_WM_WINDOW_TYPE_TOOLBAR", types.TypeToolbar},
	{"_NET_WM_WINDOW_TYPE_TOOLTIP", types.TypeTooltip},
	{"_NET_WM_WINDOW_TYPE_UTILITY", types.TypeUtility},
}

// loadAtoms interns every atom in one pipelined batch: all requests go out
// before any reply is read.
func loadAtoms(conn *xgb.Conn) (*atoms, error) {
	names := []string{
		"UTF8_STRING",
		"_NET_ACTIVE_WINDOW",
		"_NET_WM_NAME",
		"_NET_WM_PID",
		"_NET_WM_STATE",
		"_NET_WM_STATE_MAXIMIZED_HORZ",
		"_NET_WM_STATE_MAXIMIZED_VERT",
		"_NET_WM_STATE_FULLSCREEN",
		"WM_WINDOW_ROLE",
		"_NET_WM_WINDOW_TYPE",
	}

	cookies := make([]xproto.InternAtomCookie, 0, len(names)+len(windowTypeNames))
	for _, name := range names {
		cookies = append(cookies, xproto.InternAtom(conn, false, uint16(len(name)), name))
	}
	for _, wt := range windowTypeNames {
		cookies = append(cookies, xproto.InternAtom(conn, false, uint16(len(wt.atom)), wt.atom))
	}

	interned := make([]xproto.Atom, len(cookies))
	for i, cookie := range cookies {
		reply, err := cookie.Reply()
		if err != nil {
			return nil, err
		}
		interned[i] = reply.Atom
	}

	a := &atoms{
		utf8String:        interned[0],
		activeWindow:      interned[1],
		wmName:            interned[2],
		wmPID:             interned[3],
		wmState:           interned[4],
		wmStateMaxHorz:    interned[5],
		wmStateMaxVert:    interned[6],
		wmStateFullscreen: interned[7],
		wmWindowRole:      interned[8],
		wmWindowType:      interned[9],
		windowTypes:       make(map[xproto.Atom]types.Type, len(windowTypeNames)),
	}

	for i, wt := range windowTypeNames {
		a.windowTypes[interned[len(names)+i]] = wt.typ
	}

	return a, nil
}
