package x11

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testDisplays = []display{
	{name: "DP-1", x: 0, y: 0, w: 1920, h: 1080},
	{name: "DP-2", x: 1920, y: 0, w: 2560, h: 1440},
}

func TestCalcDisplayCenterPoint(t *testing.T) {
	// window fully inside DP-1
	assert.Equal(t, "DP-1", calcDisplay(testDisplays, 100, 100, 800, 600))

	// center crosses into DP-2 even though the window starts on DP-1
	assert.Equal(t, "DP-2", calcDisplay(testDisplays, 1600, 100, 800, 600))

	// exactly on DP-2's left edge
	assert.Equal(t, "DP-2", calcDisplay(testDisplays, 1920, 0, 100, 100))
}

func TestCalcDisplayOverlapFallback(t *testing.T) {
	displays := []display{
		{name: "TOP", x: 0, y: 0, w: 1000, h: 500},
		{name: "BOTTOM", x: 0, y: 600, w: 1000, h: 500},
	}

	// center lands in the dead zone between monitors; BOTTOM overlaps more
	assert.Equal(t, "BOTTOM", calcDisplay(displays, 0, 470, 300, 200))
}

func TestCalcDisplayOverlapTieKeepsEnumerationOrder(t *testing.T) {
	displays := []display{
		{name: "LEFT", x: 0, y: 0, w: 100, h: 100},
		{name: "RIGHT", x: 200, y: 0, w: 100, h: 100},
	}

	// window straddles the gap with equal overlap on both sides
	assert.Equal(t, "LEFT", calcDisplay(displays, 50, 20, 200, 60))
}

func TestCalcDisplayNoOverlap(t *testing.T) {
	assert.Equal(t, "", calcDisplay(testDisplays, 10000, 10000, 100, 100))
	assert.Equal(t, "", calcDisplay(nil, 0, 0, 100, 100))
}

func TestCalcDisplayNegativeCoordinates(t *testing.T) {
	displays := []display{
		{name: "LEFT", x: -1920, y: 0, w: 1920, h: 1080},
		{name: "RIGHT", x: 0, y: 0, w: 1920, h: 1080},
	}

	assert.Equal(t, "LEFT", calcDisplay(displays, -1000, 100, 640, 480))
	assert.Equal(t, "RIGHT", calcDisplay(displays, -100, 100, 640, 480))
}
