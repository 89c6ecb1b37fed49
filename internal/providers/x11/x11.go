// Package x11 implements the X11 window-context tracker: a single event
// loop that resolves X and RandR events into the Active and Pointer window
// records and publishes them to the D-Bus service.
package x11

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/slightlyfaulty/wctx/internal/debounce"
	"github.com/slightlyfaulty/wctx/internal/logger"
	"github.com/slightlyfaulty/wctx/internal/service"
	"github.com/slightlyfaulty/wctx/internal/types"
)

// DefaultDebounce is the quiescence interval for coalescing ConfigureNotify
// storms during window drags and resizes.
const DefaultDebounce = 15 * time.Millisecond

// Detect reports whether the session is running on X11.
func Detect() bool {
	return os.Getenv("XDG_SESSION_TYPE") == "x11"
}

type tracker struct {
	conn     *xgb.Conn
	root     xproto.Window
	atoms    *atoms
	displays []display
	service  *service.Service
	active   window
	pointer  window
}

// Serve runs the tracker until the context is cancelled or the X connection
// breaks. Publication failures are fatal; per-event attribute failures only
// drop the event.
func Serve(ctx context.Context, svc *service.Service, debounceInterval time.Duration) error {
	log := logger.WithComponent("x11")

	if debounceInterval <= 0 {
		debounceInterval = DefaultDebounce
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer conn.Close()

	if err := randr.Init(conn); err != nil {
		return fmt.Errorf("failed to initialize RandR: %w", err)
	}

	root := xproto.Setup(conn).DefaultScreen(conn).Root

	displays, err := getDisplays(conn, root)
	if err != nil {
		return fmt.Errorf("failed to enumerate displays: %w", err)
	}

	a, err := loadAtoms(conn)
	if err != nil {
		return fmt.Errorf("failed to intern atoms: %w", err)
	}

	t := &tracker{
		conn:     conn,
		root:     root,
		atoms:    a,
		displays: displays,
		service:  svc,
	}

	// register window events: the root needs SubstructureNotify to learn
	// about new top-levels, each existing top-level gets the child mask
	const rootMask = uint32(xproto.EventMaskSubstructureNotify |
		xproto.EventMaskFocusChange |
		xproto.EventMaskEnterWindow |
		xproto.EventMaskPropertyChange)
	const childMask = uint32(xproto.EventMaskFocusChange |
		xproto.EventMaskEnterWindow |
		xproto.EventMaskPropertyChange)

	if err := xproto.ChangeWindowAttributesChecked(conn, root, xproto.CwEventMask, []uint32{rootMask}).Check(); err != nil {
		return fmt.Errorf("failed to register root events: %w", err)
	}

	tree, err := xproto.QueryTree(conn, root).Reply()
	if err != nil {
		return fmt.Errorf("failed to query window tree: %w", err)
	}
	for _, child := range tree.Children {
		t.cascadeEventMask(child, childMask)
	}

	if err := randr.SelectInputChecked(conn, root,
		randr.NotifyMaskScreenChange|randr.NotifyMaskOutputChange|randr.NotifyMaskCrtcChange).Check(); err != nil {
		return fmt.Errorf("failed to select RandR events: %w", err)
	}

	// determine initial windows
	if w, ok := t.getActiveWindow(); ok {
		t.active = w
		if err := t.send(types.ContextActive, &t.active); err != nil {
			return err
		}
	}
	if w, ok := t.getPointerWindow(); ok {
		t.pointer = w
		if err := t.send(types.ContextPointer, &t.pointer); err != nil {
			return err
		}
	}

	log.Info().Int("displays", len(t.displays)).Msg("tracking window contexts")

	events := make(chan xgb.Event, 64)
	go t.pump(ctx, events)

	activeMove := debounce.New[xproto.ConfigureNotifyEvent](debounceInterval)
	defer activeMove.Close()
	pointerMove := debounce.New[xproto.ConfigureNotifyEvent](debounceInterval)
	defer pointerMove.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("X connection closed")
			}
			if err := t.handleEvent(ev, childMask, activeMove, pointerMove); err != nil {
				return err
			}

		case e := <-activeMove.C():
			if e.Window != t.active.topID {
				continue
			}
			newDisplay := calcDisplay(t.displays, int(e.X), int(e.Y), int(e.Width), int(e.Height))
			if newDisplay == t.active.display {
				continue
			}
			if t.pointer.id == t.active.id {
				t.active.display = newDisplay
				t.pointer.display = newDisplay
				if err := t.send(types.ContextBoth, &t.pointer); err != nil {
					return err
				}
			} else {
				t.active.display = newDisplay
				if err := t.send(types.ContextActive, &t.active); err != nil {
					return err
				}
			}

		case e := <-pointerMove.C():
			if e.Window != t.pointer.topID {
				continue
			}
			newDisplay := calcDisplay(t.displays, int(e.X), int(e.Y), int(e.Width), int(e.Height))
			if newDisplay == t.pointer.display {
				continue
			}
			t.pointer.display = newDisplay
			if err := t.send(types.ContextPointer, &t.pointer); err != nil {
				return err
			}
		}
	}
}

// pump forwards X events into the loop's channel. A nil event with a nil
// error means the connection is gone; X protocol errors are logged and
// dropped.
func (t *tracker) pump(ctx context.Context, out chan<- xgb.Event) {
	log := logger.WithComponent("x11")
	defer close(out)

	for {
		ev, err := t.conn.WaitForEvent()
		if ev == nil && err == nil {
			return
		}
		if err != nil {
			log.Debug().Err(err).Msg("X protocol error")
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (t *tracker) handleEvent(ev xgb.Event, childMask uint32, activeMove, pointerMove *debounce.Debouncer[xproto.ConfigureNotifyEvent]) error {
	log := logger.WithComponent("x11")

	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		// override-redirect windows (menus, tooltips) bypass the WM and
		// are never focus targets
		if e.OverrideRedirect {
			return nil
		}
		// failure is a race with destruction, not fatal
		_ = xproto.ChangeWindowAttributesChecked(t.conn, e.Window, xproto.CwEventMask, []uint32{childMask}).Check()

	case xproto.FocusInEvent:
		// Normal + NonlinearVirtual is the one combination that signals a
		// real focus handoff between top-level clients
		if e.Detail != xproto.NotifyDetailNonlinearVirtual || e.Mode != xproto.NotifyModeNormal {
			return nil
		}

		if e.Event == t.active.id || e.Event == t.active.topID {
			return nil
		}

		if e.Event == t.pointer.id || e.Event == t.pointer.topID {
			t.active = t.pointer
		} else {
			m, ok := t.resolveWindowMatch(e.Event)
			if !ok {
				return nil
			}
			if m.id == t.active.id {
				return nil
			}
			t.active = t.getWindow(e.Event, m)
		}

		return t.send(types.ContextActive, &t.active)

	case xproto.EnterNotifyEvent:
		if e.Event == t.pointer.id || e.Event == t.pointer.topID || e.Child == t.pointer.id {
			return nil
		}

		if e.Event == t.active.id || e.Event == t.active.topID {
			// the pointer can enter the active window from another monitor
			// before the active window's display catches up
			t.pointer = t.active
			t.pointer.display = t.getWindowDisplay(t.pointer.id)
		} else {
			m, ok := t.resolveWindowMatch(e.Event)
			if !ok {
				return nil
			}
			if m.id == t.pointer.id {
				return nil
			}
			t.pointer = t.getWindow(e.Event, m)
		}

		return t.send(types.ContextPointer, &t.pointer)

	case xproto.PropertyNotifyEvent:
		if e.Window != t.active.id && e.Window != t.pointer.id {
			return nil
		}

		switch e.Atom {
		case t.atoms.wmName:
			return t.propertyChanged(e.Window, "title",
				func(w *window) *string { return &w.title },
				t.getWindowTitle(e.Window))
		case t.atoms.wmWindowRole:
			return t.propertyChanged(e.Window, "role",
				func(w *window) *string { return &w.role },
				t.getWindowRole(e.Window))
		case t.atoms.wmState:
			newState := t.getWindowState(e.Window)
			return t.propertyChanged(e.Window, "state",
				func(w *window) *string { return (*string)(&w.state) },
				string(newState))
		}

	case xproto.ConfigureNotifyEvent:
		if e.OverrideRedirect {
			return nil
		}
		if e.Window == t.active.topID {
			activeMove.Push(e)
		} else if e.Window == t.pointer.topID {
			pointerMove.Push(e)
		}

	case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
		// future geometry events pick up the new display map; records are
		// not republished here
		displays, err := getDisplays(t.conn, t.root)
		if err != nil {
			return fmt.Errorf("failed to re-enumerate displays: %w", err)
		}
		log.Debug().Int("displays", len(displays)).Msg("display configuration changed")
		t.displays = displays
	}

	return nil
}

// propertyChanged diffs a refetched string-typed field against the record(s)
// identified by win and emits the corresponding UpdateWindow. When the
// Active and Pointer records alias the same window the context is promoted
// to Both so both change signals fire atomically.
func (t *tracker) propertyChanged(win xproto.Window, key string, field func(*window) *string, newValue string) error {
	if win == t.active.id {
		if newValue == *field(&t.active) {
			return nil
		}
		if t.active.id == t.pointer.id {
			*field(&t.active) = newValue
			*field(&t.pointer) = newValue
			return t.updateWindow(types.ContextBoth, key, newValue)
		}
		*field(&t.active) = newValue
		return t.updateWindow(types.ContextActive, key, newValue)
	}

	if win == t.pointer.id && newValue != *field(&t.pointer) {
		*field(&t.pointer) = newValue
		return t.updateWindow(types.ContextPointer, key, newValue)
	}

	return nil
}

// send publishes a record wholesale for the given context.
func (t *tracker) send(ctx types.Context, w *window) error {
	return t.service.SetWindow(ctx, w.record())
}

func (t *tracker) updateWindow(ctx types.Context, key, value string) error {
	return t.service.UpdateWindow(ctx, key, value)
}

// getActiveWindow resolves the current _NET_ACTIVE_WINDOW into a record.
func (t *tracker) getActiveWindow() (window, bool) {
	values := value32(t.getWindowProp(t.root, t.atoms.activeWindow, xproto.AtomWindow))
	if len(values) == 0 || values[0] == 0 {
		return window{}, false
	}

	winID := xproto.Window(values[0])
	m, ok := t.resolveWindowMatch(winID)
	if !ok {
		return window{}, false
	}

	return t.getWindow(winID, m), true
}

// getPointerWindow resolves the window currently under the pointer.
func (t *tracker) getPointerWindow() (window, bool) {
	reply, err := xproto.QueryPointer(t.conn, t.root).Reply()
	if err != nil || reply.Child == 0 {
		return window{}, false
	}

	m, ok := t.resolveWindowMatch(reply.Child)
	if !ok {
		return window{}, false
	}

	return t.getWindow(reply.Child, m), true
}
