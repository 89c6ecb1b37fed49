package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slightlyfaulty/wctx/internal/types"
)

var testWindow = types.Window{
	ID:      "42",
	Name:    "fx",
	Class:   "firefox",
	PID:     1234,
	Title:   "Example Page",
	Type:    types.TypeNormal,
	Role:    "browser",
	State:   types.StateMaximized,
	Display: "DP-1",
}

func collect(property string, format Format, watch bool) (*Printer, *strings.Builder) {
	var buf strings.Builder
	p := NewPrinter(func(s string) { buf.WriteString(s) }, property, format, watch)
	return p, &buf
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"flat", "dict", "json", "toml", "csv", "JSON"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestFlatWindowOutput(t *testing.T) {
	p, buf := collect("", FormatFlat, false)
	require.NoError(t, p.Print(testWindow))

	out := buf.String()
	assert.Contains(t, out, "id:")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "firefox")
	assert.Contains(t, out, "MAXIMIZED")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestDictWindowOutput(t *testing.T) {
	p, buf := collect("", FormatDict, false)
	require.NoError(t, p.Print(testWindow))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, len(types.Props))
}

func TestJSONWindowOutput(t *testing.T) {
	p, buf := collect("", FormatJSON, false)
	require.NoError(t, p.Print(testWindow))

	out := buf.String()
	assert.Contains(t, out, `"id": "42"`)
	assert.Contains(t, out, `"pid": 1234`)
	assert.Contains(t, out, `"state": "MAXIMIZED"`)
}

func TestTOMLWindowOutput(t *testing.T) {
	p, buf := collect("", FormatTOML, false)
	require.NoError(t, p.Print(testWindow))

	out := buf.String()
	assert.Contains(t, out, "id = '42'")
	assert.Contains(t, out, "pid = 1234")
}

func TestCSVWindowOutput(t *testing.T) {
	p, buf := collect("", FormatCSV, false)
	require.NoError(t, p.Print(testWindow))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,name,class,pid,title,type,role,state,display", lines[0])
	assert.Contains(t, lines[1], "42,fx,firefox,1234,Example Page")
}

func TestCSVHeaderOnlyOnce(t *testing.T) {
	p, buf := collect("", FormatCSV, true)
	require.NoError(t, p.Print(testWindow))

	second := testWindow
	second.Title = "Other Page"
	require.NoError(t, p.Print(second))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,class,pid,title,type,role,state,display", lines[0])
}

func TestSinglePropertyFlat(t *testing.T) {
	p, buf := collect("title", FormatFlat, false)
	require.NoError(t, p.Print(testWindow))
	assert.Equal(t, "Example Page\n", buf.String())
}

func TestSinglePropertyJSONKeepsPIDNumeric(t *testing.T) {
	p, buf := collect("pid", FormatJSON, false)
	require.NoError(t, p.Print(testWindow))
	assert.Contains(t, buf.String(), `"pid": 1234`)
}

func TestSinglePropertyCSV(t *testing.T) {
	p, buf := collect("state", FormatCSV, false)
	require.NoError(t, p.Print(testWindow))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "state", lines[0])
	assert.Equal(t, "MAXIMIZED", lines[1])
}

func TestUnknownPropertyErrors(t *testing.T) {
	p, _ := collect("shape", FormatFlat, false)
	assert.Error(t, p.Print(testWindow))
}

func TestDuplicateOutputSuppressed(t *testing.T) {
	p, buf := collect("title", FormatFlat, true)
	require.NoError(t, p.Print(testWindow))
	require.NoError(t, p.Print(testWindow))

	assert.Equal(t, "Example Page\n", buf.String())

	changed := testWindow
	changed.Title = "Changed"
	require.NoError(t, p.Print(changed))
	assert.Equal(t, "Example Page\nChanged\n", buf.String())
}

func TestNewWindowSameOutputStillPrints(t *testing.T) {
	p, buf := collect("class", FormatFlat, true)
	require.NoError(t, p.Print(testWindow))

	other := testWindow
	other.ID = "77"
	require.NoError(t, p.Print(other))

	assert.Equal(t, "firefox\nfirefox\n", buf.String())
}
