// Package service hosts the org.wctx session-bus objects: Application
// (status string) and Windows (the two cached window records, their change
// signals and the two mutating methods used by providers).
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/slightlyfaulty/wctx/internal/logger"
	"github.com/slightlyfaulty/wctx/internal/types"
)

const (
	// BusName is the well-known session-bus name of the daemon.
	BusName = "org.wctx"
	// Path is the object path both interfaces are served at.
	Path = dbus.ObjectPath("/")
	// ApplicationIface exposes the daemon status string.
	ApplicationIface = "org.wctx.Application"
	// WindowsIface exposes the cached window records.
	WindowsIface = "org.wctx.Windows"
)

// Service owns the two cached window records. Providers publish through
// SetWindow/UpdateWindow; bus consumers read the properties or subscribe to
// their change signals. Every mutation and its signal emission happen under
// one lock so readers only ever observe complete records.
type Service struct {
	mu      sync.Mutex
	active  types.Window
	pointer types.Window
	emit    func(iface, name string, value interface{})
}

func newService(emit func(iface, name string, value interface{})) *Service {
	return &Service{emit: emit}
}

// SetWindow replaces the cached record(s) for the context and emits the
// matching change signal(s).
func (s *Service) SetWindow(ctx types.Context, w types.Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ctx {
	case types.ContextBoth:
		s.active = w
		s.pointer = w
		s.emit(WindowsIface, "ActiveWindow", w.Map())
		s.emit(WindowsIface, "PointerWindow", w.Map())
	case types.ContextActive:
		s.active = w
		s.emit(WindowsIface, "ActiveWindow", w.Map())
	case types.ContextPointer:
		s.pointer = w
		s.emit(WindowsIface, "PointerWindow", w.Map())
	default:
		return fmt.Errorf("invalid window context %q", ctx)
	}

	return nil
}

// UpdateWindow mutates a single field of the cached record(s) for the
// context. Validation happens before any record is touched, so an invalid
// value leaves both caches unchanged.
func (s *Service) UpdateWindow(ctx types.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ctx {
	case types.ContextBoth:
		probe := s.active
		if err := probe.Update(key, value); err != nil {
			return err
		}
		s.active = probe
		if err := s.pointer.Update(key, value); err != nil {
			return err
		}
		s.emit(WindowsIface, "ActiveWindow", s.active.Map())
		s.emit(WindowsIface, "PointerWindow", s.pointer.Map())
	case types.ContextActive:
		if err := s.active.Update(key, value); err != nil {
			return err
		}
		s.emit(WindowsIface, "ActiveWindow", s.active.Map())
	case types.ContextPointer:
		if err := s.pointer.Update(key, value); err != nil {
			return err
		}
		s.emit(WindowsIface, "PointerWindow", s.pointer.Map())
	default:
		return fmt.Errorf("invalid window context %q", ctx)
	}

	return nil
}

// SetStatus publishes the daemon status string. Empty means healthy.
func (s *Service) SetStatus(status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit(ApplicationIface, "Status", status)
	return nil
}

// Windows returns copies of the current Active and Pointer records.
func (s *Service) Windows() (active, pointer types.Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.pointer
}

// Serve binds org.wctx on the session bus, exports both objects and then
// delivers the service handle through ready so the provider can start
// publishing. It blocks until the context is cancelled. A name clash or
// export failure is fatal.
func Serve(ctx context.Context, ready chan<- *Service) error {
	log := logger.WithComponent("service")

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	props, err := prop.Export(conn, Path, propsSpec())
	if err != nil {
		return fmt.Errorf("failed to export properties: %w", err)
	}

	svc := newService(func(iface, name string, value interface{}) {
		props.SetMust(iface, name, value)
	})

	if err := conn.Export(windowsObject{svc}, Path, WindowsIface); err != nil {
		return fmt.Errorf("failed to export %s: %w", WindowsIface, err)
	}

	if err := conn.Export(introspect.NewIntrospectable(introspection()), Path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name %s: %w", BusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s is already owned, is another wctx daemon running?", BusName)
	}

	select {
	case ready <- svc:
		log.Info().Str("name", BusName).Msg("D-Bus service started")
	default:
		return fmt.Errorf("failed to sync D-Bus service with provider task")
	}

	<-ctx.Done()
	return nil
}

// windowsObject is the bus-facing wrapper around Service. Its two methods
// form the org.wctx.Windows method surface.
type windowsObject struct {
	svc *Service
}

func (o windowsObject) SetWindow(context string, window map[string]dbus.Variant) *dbus.Error {
	ctx, err := types.ParseContext(context)
	if err != nil {
		return invalidArgs(err)
	}

	w, err := types.WindowFromMap(window)
	if err != nil {
		return invalidArgs(err)
	}

	if err := o.svc.SetWindow(ctx, w); err != nil {
		return invalidArgs(err)
	}
	return nil
}

func (o windowsObject) UpdateWindow(context, key, value string) *dbus.Error {
	ctx, err := types.ParseContext(context)
	if err != nil {
		return invalidArgs(err)
	}

	if err := o.svc.UpdateWindow(ctx, key, value); err != nil {
		return invalidArgs(err)
	}
	return nil
}

func invalidArgs(err error) *dbus.Error {
	return dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs", []interface{}{err.Error()})
}

func propsSpec() map[string]map[string]*prop.Prop {
	return map[string]map[string]*prop.Prop{
		ApplicationIface: {
			"Status": {
				Value:    "",
				Writable: true,
				Emit:     prop.EmitTrue,
			},
		},
		WindowsIface: {
			"ActiveWindow": {
				Value:    types.Window{}.Map(),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"PointerWindow": {
				Value:    types.Window{}.Map(),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	}
}

func introspection() *introspect.Node {
	return &introspect.Node{
		Name: string(Path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name: ApplicationIface,
				Properties: []introspect.Property{
					{Name: "Status", Type: "s", Access: "readwrite"},
				},
			},
			{
				Name: WindowsIface,
				Methods: []introspect.Method{
					{
						Name: "SetWindow",
						Args: []introspect.Arg{
							{Name: "context", Type: "s", Direction: "in"},
							{Name: "window", Type: "a{sv}", Direction: "in"},
						},
					},
					{
						Name: "UpdateWindow",
						Args: []introspect.Arg{
							{Name: "context", Type: "s", Direction: "in"},
							{Name: "key", Type: "s", Direction: "in"},
							{Name: "value", Type: "s", Direction: "in"},
						},
					},
				},
				Properties: []introspect.Property{
					{Name: "ActiveWindow", Type: "a{sv}", Access: "read"},
					{Name: "PointerWindow", Type: "a{sv}", Access: "read"},
				},
			},
		},
	}
}
