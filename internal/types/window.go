// Package types holds the canonical window record shared by the daemon
// providers, the D-Bus service and the query client.
package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cast"
)

// Context selects which cached window record an operation applies to.
type Context string

const (
	ContextActive  Context = "active"
	ContextPointer Context = "pointer"
	ContextBoth    Context = "both"
)

// ParseContext parses the wire form of a window context.
func ParseContext(s string) (Context, error) {
	switch Context(strings.ToLower(s)) {
	case ContextActive:
		return ContextActive, nil
	case ContextPointer:
		return ContextPointer, nil
	case ContextBoth:
		return ContextBoth, nil
	}
	return "", fmt.Errorf("expected valid value for `context` (active, pointer, both), got %q", s)
}

// Type is the EWMH window type. The zero value means "unknown" and
// serializes as an empty string.
type Type string

const (
	TypeNone         Type = ""
	TypeNormal       Type = "NORMAL"
	TypeCombo        Type = "COMBO"
	TypeDesktop      Type = "DESKTOP"
	TypeDialog       Type = "DIALOG"
	TypeDND          Type = "DND"
	TypeDock         Type = "DOCK"
	TypeDropdownMenu Type = "DROPDOWN_MENU"
	TypeMenu         Type = "MENU"
	TypeNotification Type = "NOTIFICATION"
	TypePopupMenu    Type = "POPUP_MENU"
	TypeSplash       Type = "SPLASH"
	TypeToolbar      Type = "TOOLBAR"
	TypeTooltip      Type = "TOOLTIP"
	TypeUtility      Type = "UTILITY"
	TypeOverride     Type = "OVERRIDE" // GNOME non-standard
)

// TypeValues lists every valid window type in serialized form.
var TypeValues = []Type{
	TypeNone, TypeNormal, TypeCombo, TypeDesktop, TypeDialog, TypeDND,
	TypeDock, TypeDropdownMenu, TypeMenu, TypeNotification, TypePopupMenu,
	TypeSplash, TypeToolbar, TypeTooltip, TypeUtility, TypeOverride,
}

// ParseType parses the serialized form of a window type.
func ParseType(s string) (Type, error) {
	for _, t := range TypeValues {
		if Type(s) == t {
			return t, nil
		}
	}
	return TypeNone, fmt.Errorf("expected valid value for `type` (%s)", joinValues(TypeValues))
}

// State is the window maximization/fullscreen state. The zero value means
// "unknown" and serializes as an empty string.
type State string

const (
	StateNone       State = ""
	StateNormal     State = "NORMAL"
	StateMaximized  State = "MAXIMIZED"
	StateFullscreen State = "FULLSCREEN"
)

// StateValues lists every valid window state in serialized form.
var StateValues = []State{StateNone, StateNormal, StateMaximized, StateFullscreen}

// ParseState parses the serialized form of a window state.
func ParseState(s string) (State, error) {
	for _, st := range StateValues {
		if State(s) == st {
			return st, nil
		}
	}
	return StateNone, fmt.Errorf("expected valid value for `state` (%s)", joinValues(StateValues))
}

// Props lists the nine window record keys in canonical order.
var Props = []string{"id", "name", "class", "pid", "title", "type", "role", "state", "display"}

// Window is one tracked window record. A zero ID means no window is tracked
// for the context and every other field holds its default.
type Window struct {
	ID      string `json:"id" toml:"id"`
	Name    string `json:"name" toml:"name"`
	Class   string `json:"class" toml:"class"`
	PID     uint32 `json:"pid" toml:"pid"`
	Title   string `json:"title" toml:"title"`
	Type    Type   `json:"type" toml:"type"`
	Role    string `json:"role" toml:"role"`
	State   State  `json:"state" toml:"state"`
	Display string `json:"display" toml:"display"`
}

// Map serializes the record as the string→variant mapping used on the bus.
// The result always carries exactly the nine canonical keys.
func (w Window) Map() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"id":      dbus.MakeVariant(w.ID),
		"name":    dbus.MakeVariant(w.Name),
		"class":   dbus.MakeVariant(w.Class),
		"pid":     dbus.MakeVariant(w.PID),
		"title":   dbus.MakeVariant(w.Title),
		"type":    dbus.MakeVariant(string(w.Type)),
		"role":    dbus.MakeVariant(w.Role),
		"state":   dbus.MakeVariant(string(w.State)),
		"display": dbus.MakeVariant(w.Display),
	}
}

// Prop returns the serialized value of a single record field.
func (w Window) Prop(key string) (string, error) {
	switch key {
	case "id":
		return w.ID, nil
	case "name":
		return w.Name, nil
	case "class":
		return w.Class, nil
	case "pid":
		return strconv.FormatUint(uint64(w.PID), 10), nil
	case "title":
		return w.Title, nil
	case "type":
		return string(w.Type), nil
	case "role":
		return w.Role, nil
	case "state":
		return string(w.State), nil
	case "display":
		return w.Display, nil
	}
	return "", fmt.Errorf("unknown window property %q", key)
}

// Update mutates a single field, validating the value per field type.
// Unknown keys and invalid values return an error without mutating.
func (w *Window) Update(key, value string) error {
	switch key {
	case "id":
		w.ID = value
	case "name":
		w.Name = value
	case "class":
		w.Class = value
	case "pid":
		pid, err := parsePID(value)
		if err != nil {
			return fmt.Errorf("expected integer value for `pid`")
		}
		w.PID = pid
	case "title":
		w.Title = value
	case "type":
		t, err := ParseType(value)
		if err != nil {
			return err
		}
		w.Type = t
	case "role":
		w.Role = value
	case "state":
		s, err := ParseState(value)
		if err != nil {
			return err
		}
		w.State = s
	case "display":
		w.Display = value
	default:
		return fmt.Errorf("unknown window property %q", key)
	}
	return nil
}

// WindowFromMap decodes the wire mapping into a typed record. Missing keys
// default; present keys are validated per field type. Signed pid values
// saturate to unsigned.
func WindowFromMap(m map[string]dbus.Variant) (Window, error) {
	var w Window
	var err error

	if w.ID, err = stringField(m, "id"); err != nil {
		return w, err
	}
	if w.Name, err = stringField(m, "name"); err != nil {
		return w, err
	}
	if w.Class, err = stringField(m, "class"); err != nil {
		return w, err
	}
	if w.PID, err = pidField(m, "pid"); err != nil {
		return w, err
	}
	if w.Title, err = stringField(m, "title"); err != nil {
		return w, err
	}
	if w.Role, err = stringField(m, "role"); err != nil {
		return w, err
	}
	if w.Display, err = stringField(m, "display"); err != nil {
		return w, err
	}

	t, err := stringField(m, "type")
	if err != nil {
		return w, err
	}
	if w.Type, err = ParseType(t); err != nil {
		return w, err
	}

	s, err := stringField(m, "state")
	if err != nil {
		return w, err
	}
	if w.State, err = ParseState(s); err != nil {
		return w, err
	}

	return w, nil
}

// Normalize lowercases ASCII letters and maps spaces to dashes. Window names
// and classes are published only in this form.
func Normalize(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c == ' ':
			b[i] = '-'
		case c >= 'A' && c <= 'Z':
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func stringField(m map[string]dbus.Variant, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", nil
	}
	s, err := cast.ToStringE(v.Value())
	if err != nil {
		return "", fmt.Errorf("expected string value for `%s`", key)
	}
	return s, nil
}

func pidField(m map[string]dbus.Variant, key string) (uint32, error) {
	v, ok := m[key]
	if !ok {
		return 0, nil
	}
	switch n := v.Value().(type) {
	case uint32:
		return n, nil
	case uint64:
		return uint32(n), nil
	case uint16:
		return uint32(n), nil
	case byte:
		return uint32(n), nil
	case int16:
		return saturate(int64(n)), nil
	case int32:
		return saturate(int64(n)), nil
	case int64:
		return saturate(n), nil
	}
	return 0, fmt.Errorf("expected integer value for `%s`", key)
}

func saturate(n int64) uint32 {
	if n < 0 {
		return 0
	}
	if n > 1<<32-1 {
		return 1<<32 - 1
	}
	return uint32(n)
}

func parsePID(value string) (uint32, error) {
	if value == "" {
		return 0, nil
	}
	pid, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(pid), nil
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%q", string(v))
	}
	return strings.Join(parts, ", ")
}
