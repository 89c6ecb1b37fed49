package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSessionEnv(t *testing.T) {
	t.Setenv("XDG_SESSION_TYPE", "")
	t.Setenv("KDE_SESSION_VERSION", "")
	t.Setenv("XDG_SESSION_DESKTOP", "")
}

func TestDetectX11(t *testing.T) {
	clearSessionEnv(t)
	t.Setenv("XDG_SESSION_TYPE", "x11")

	p, ok := Detect()
	require.True(t, ok)
	assert.Equal(t, ProviderX11, p)
}

func TestDetectKWin(t *testing.T) {
	clearSessionEnv(t)
	t.Setenv("KDE_SESSION_VERSION", "6")

	p, ok := Detect()
	require.True(t, ok)
	assert.Equal(t, ProviderKWin, p)
}

func TestDetectGNOME(t *testing.T) {
	clearSessionEnv(t)
	t.Setenv("XDG_SESSION_DESKTOP", "gnome")

	p, ok := Detect()
	require.True(t, ok)
	assert.Equal(t, ProviderGNOME, p)
}

func TestDetectPrefersX11OverKWin(t *testing.T) {
	clearSessionEnv(t)
	t.Setenv("XDG_SESSION_TYPE", "x11")
	t.Setenv("KDE_SESSION_VERSION", "6")

	p, ok := Detect()
	require.True(t, ok)
	assert.Equal(t, ProviderX11, p)
}

func TestDetectNothing(t *testing.T) {
	clearSessionEnv(t)
	t.Setenv("XDG_SESSION_TYPE", "wayland")

	_, ok := Detect()
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	for _, s := range []string{"x11", "kwin", "gnome", "KWin"} {
		_, err := Parse(s)
		assert.NoError(t, err, s)
	}

	_, err := Parse("cosmic")
	assert.Error(t, err)
}
