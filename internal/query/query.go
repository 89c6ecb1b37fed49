// Package query implements the consumer side: it reads window snapshots
// from the org.wctx service and optionally follows its change signals.
package query

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/slightlyfaulty/wctx/internal/service"
	"github.com/slightlyfaulty/wctx/internal/types"
)

// ExitCodeUnavailable is returned when the daemon is unreachable or reports
// a non-empty status.
const ExitCodeUnavailable = 126

// ExitError carries a process exit code out of a query.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Args are the parsed query arguments.
type Args struct {
	Context  types.Context
	Property string
	Format   Format
	Watch    bool
}

// Run executes one query against the daemon. With Watch set it keeps
// printing updated records as change signals arrive.
func Run(args Args) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(service.BusName, service.Path)

	status, err := getStatus(obj)
	if err != nil {
		return &ExitError{
			Code: ExitCodeUnavailable,
			Message: "couldn't connect to the wctx daemon, you might need to start it with " +
				"\"systemctl --user start wctx\" or manually run \"wctx daemon\"",
		}
	}
	if status != "" {
		return &ExitError{Code: ExitCodeUnavailable, Message: "daemon: " + status}
	}

	propName, err := windowProperty(args.Context)
	if err != nil {
		return err
	}

	window, err := getWindow(obj, propName)
	if err != nil {
		return err
	}

	printer := NewPrinter(func(s string) {
		fmt.Print(s)
		_ = os.Stdout.Sync()
	}, args.Property, args.Format, args.Watch)

	if err := printer.Print(window); err != nil {
		return err
	}

	if !args.Watch {
		return nil
	}

	return watch(conn, obj, propName, printer)
}

func windowProperty(ctx types.Context) (string, error) {
	switch ctx {
	case types.ContextActive:
		return "ActiveWindow", nil
	case types.ContextPointer:
		return "PointerWindow", nil
	}
	return "", fmt.Errorf("expected window context active or pointer, got %q", ctx)
}

func getStatus(obj dbus.BusObject) (string, error) {
	variant, err := obj.GetProperty(service.ApplicationIface + ".Status")
	if err != nil {
		return "", err
	}
	status, _ := variant.Value().(string)
	return status, nil
}

func getWindow(obj dbus.BusObject, propName string) (types.Window, error) {
	variant, err := obj.GetProperty(service.WindowsIface + "." + propName)
	if err != nil {
		return types.Window{}, fmt.Errorf("failed to read %s: %w", propName, err)
	}

	m, ok := variant.Value().(map[string]dbus.Variant)
	if !ok {
		return types.Window{}, fmt.Errorf("unexpected value type for %s", propName)
	}

	return types.WindowFromMap(m)
}

// watch follows PropertiesChanged signals for the selected window property
// and reprints every change.
func watch(conn *dbus.Conn, obj dbus.BusObject, propName string, printer *Printer) error {
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(service.Path),
		dbus.WithMatchSender(service.BusName),
	); err != nil {
		return fmt.Errorf("failed to subscribe to window changes: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	for sig := range signals {
		if len(sig.Body) < 3 {
			continue
		}

		iface, _ := sig.Body[0].(string)
		if iface != service.WindowsIface {
			continue
		}

		changed, _ := sig.Body[1].(map[string]dbus.Variant)
		if variant, ok := changed[propName]; ok {
			m, ok := variant.Value().(map[string]dbus.Variant)
			if !ok {
				continue
			}
			window, err := types.WindowFromMap(m)
			if err != nil {
				continue
			}
			if err := printer.Print(window); err != nil {
				return err
			}
			continue
		}

		// invalidated without a value: re-read the snapshot
		if invalidated, _ := sig.Body[2].([]string); contains(invalidated, propName) {
			window, err := getWindow(obj, propName)
			if err != nil {
				continue
			}
			if err := printer.Print(window); err != nil {
				return err
			}
		}
	}

	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
