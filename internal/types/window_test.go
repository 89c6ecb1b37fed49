package types

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowMapHasExactlyNineKeys(t *testing.T) {
	w := Window{ID: "42", Name: "fx", Class: "firefox", PID: 1234, Title: "A", Type: TypeNormal, State: StateMaximized, Display: "DP-1"}
	m := w.Map()

	require.Len(t, m, len(Props))
	for _, key := range Props {
		_, ok := m[key]
		assert.True(t, ok, "missing key %q", key)
	}
}

func TestWindowMapSerializesEnumsAsStrings(t *testing.T) {
	m := Window{Type: TypeDropdownMenu, State: StateFullscreen}.Map()
	assert.Equal(t, dbus.MakeVariant("DROPDOWN_MENU"), m["type"])
	assert.Equal(t, dbus.MakeVariant("FULLSCREEN"), m["state"])

	m = Window{}.Map()
	assert.Equal(t, dbus.MakeVariant(""), m["type"])
	assert.Equal(t, dbus.MakeVariant(""), m["state"])
}

func TestWindowFromMapRoundTrip(t *testing.T) {
	w := Window{ID: "7", Name: "fx", Class: "firefox", PID: 99, Title: "Page", Type: TypeDialog, Role: "browser", State: StateNormal, Display: "HDMI-1"}
	got, err := WindowFromMap(w.Map())
	require.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestWindowFromMapDefaultsMissingKeys(t *testing.T) {
	got, err := WindowFromMap(map[string]dbus.Variant{})
	require.NoError(t, err)
	assert.Equal(t, Window{}, got)
}

func TestWindowFromMapSaturatesSignedPID(t *testing.T) {
	got, err := WindowFromMap(map[string]dbus.Variant{"pid": dbus.MakeVariant(int32(-5))})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.PID)

	got, err = WindowFromMap(map[string]dbus.Variant{"pid": dbus.MakeVariant(int32(5))})
	require.NoError(t, err)
	assert.Equal(t, uint32(5), got.PID)
}

func TestWindowFromMapRejectsBadValues(t *testing.T) {
	_, err := WindowFromMap(map[string]dbus.Variant{"type": dbus.MakeVariant("JUNK")})
	assert.Error(t, err)

	_, err = WindowFromMap(map[string]dbus.Variant{"state": dbus.MakeVariant("JUNK")})
	assert.Error(t, err)

	_, err = WindowFromMap(map[string]dbus.Variant{"pid": dbus.MakeVariant([]string{"nope"})})
	assert.Error(t, err)
}

func TestUpdateValidation(t *testing.T) {
	w := Window{ID: "1", Title: "old"}

	require.NoError(t, w.Update("title", "new"))
	assert.Equal(t, "new", w.Title)

	require.NoError(t, w.Update("pid", "123"))
	assert.Equal(t, uint32(123), w.PID)

	require.NoError(t, w.Update("pid", ""))
	assert.Equal(t, uint32(0), w.PID)

	require.NoError(t, w.Update("state", "FULLSCREEN"))
	assert.Equal(t, StateFullscreen, w.State)

	require.NoError(t, w.Update("type", ""))
	assert.Equal(t, TypeNone, w.Type)
}

func TestUpdateRejectsWithoutMutating(t *testing.T) {
	w := Window{ID: "1", PID: 42, State: StateNormal}
	before := w

	assert.Error(t, w.Update("pid", "abc"))
	assert.Error(t, w.Update("pid", "-3"))
	assert.Error(t, w.Update("state", "SIDEWAYS"))
	assert.Error(t, w.Update("type", "normal"))
	assert.Error(t, w.Update("geometry", "0x0"))

	assert.Equal(t, before, w)
}

func TestParseContext(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Context
	}{
		{"active", ContextActive},
		{"pointer", ContextPointer},
		{"both", ContextBoth},
		{"Active", ContextActive},
	} {
		got, err := ParseContext(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseContext("everything")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "gnome-terminal", Normalize("Gnome Terminal"))
	assert.Equal(t, "firefox", Normalize("firefox"))
	assert.Equal(t, "xterm-256color", Normalize("XTerm-256Color"))
	assert.Equal(t, "", Normalize(""))
}
