package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slightlyfaulty/wctx/internal/types"
)

type emission struct {
	iface string
	name  string
}

func newRecorded() (*Service, *[]emission) {
	var emissions []emission
	svc := newService(func(iface, name string, value interface{}) {
		emissions = append(emissions, emission{iface, name})
	})
	return svc, &emissions
}

func TestSetWindowActive(t *testing.T) {
	svc, emissions := newRecorded()
	w := types.Window{ID: "42", Title: "A"}

	require.NoError(t, svc.SetWindow(types.ContextActive, w))

	active, pointer := svc.Windows()
	assert.Equal(t, w, active)
	assert.Equal(t, types.Window{}, pointer)
	assert.Equal(t, []emission{{WindowsIface, "ActiveWindow"}}, *emissions)
}

func TestSetWindowBothEmitsBothSignals(t *testing.T) {
	svc, emissions := newRecorded()
	w := types.Window{ID: "9", State: types.StateFullscreen}

	require.NoError(t, svc.SetWindow(types.ContextBoth, w))

	active, pointer := svc.Windows()
	assert.Equal(t, w, active)
	assert.Equal(t, w, pointer)
	assert.Equal(t, []emission{
		{WindowsIface, "ActiveWindow"},
		{WindowsIface, "PointerWindow"},
	}, *emissions)
}

func TestUpdateWindowSingleField(t *testing.T) {
	svc, emissions := newRecorded()
	require.NoError(t, svc.SetWindow(types.ContextActive, types.Window{ID: "42", Title: "A"}))
	*emissions = nil

	require.NoError(t, svc.UpdateWindow(types.ContextActive, "title", "B"))

	active, _ := svc.Windows()
	assert.Equal(t, "B", active.Title)
	assert.Equal(t, "42", active.ID)
	assert.Equal(t, []emission{{WindowsIface, "ActiveWindow"}}, *emissions)
}

func TestUpdateWindowBoth(t *testing.T) {
	svc, emissions := newRecorded()
	require.NoError(t, svc.SetWindow(types.ContextBoth, types.Window{ID: "9"}))
	*emissions = nil

	require.NoError(t, svc.UpdateWindow(types.ContextBoth, "state", "FULLSCREEN"))

	active, pointer := svc.Windows()
	assert.Equal(t, types.StateFullscreen, active.State)
	assert.Equal(t, types.StateFullscreen, pointer.State)
	assert.Equal(t, []emission{
		{WindowsIface, "ActiveWindow"},
		{WindowsIface, "PointerWindow"},
	}, *emissions)
}

func TestUpdateWindowInvalidValueMutatesNothing(t *testing.T) {
	svc, emissions := newRecorded()
	require.NoError(t, svc.SetWindow(types.ContextBoth, types.Window{ID: "9", PID: 7}))
	*emissions = nil

	assert.Error(t, svc.UpdateWindow(types.ContextBoth, "pid", "abc"))
	assert.Error(t, svc.UpdateWindow(types.ContextActive, "shape", "round"))

	active, pointer := svc.Windows()
	assert.Equal(t, uint32(7), active.PID)
	assert.Equal(t, uint32(7), pointer.PID)
	assert.Empty(t, *emissions)
}

func TestBusMethodsRejectBadContext(t *testing.T) {
	svc, _ := newRecorded()
	obj := windowsObject{svc}

	require.NotNil(t, obj.SetWindow("everything", types.Window{}.Map()))
	require.NotNil(t, obj.UpdateWindow("everything", "title", "x"))
	assert.Nil(t, obj.SetWindow("active", types.Window{ID: "1"}.Map()))
}

func TestBusMethodErrorsAreInvalidArgs(t *testing.T) {
	svc, _ := newRecorded()
	obj := windowsObject{svc}

	err := obj.UpdateWindow("active", "pid", "abc")
	require.NotNil(t, err)
	assert.Equal(t, "org.freedesktop.DBus.Error.InvalidArgs", err.Name)
}

func TestSetStatus(t *testing.T) {
	svc, emissions := newRecorded()
	require.NoError(t, svc.SetStatus("installing extension"))
	assert.Equal(t, []emission{{ApplicationIface, "Status"}}, *emissions)
}
