package query

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"

	"github.com/slightlyfaulty/wctx/internal/types"
)

// Format is the query output format.
type Format string

const (
	FormatFlat Format = "flat"
	FormatDict Format = "dict"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatCSV  Format = "csv"
)

// Formats lists every supported output format.
var Formats = []Format{FormatFlat, FormatDict, FormatJSON, FormatTOML, FormatCSV}

// ParseFormat parses an output format flag value.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if Format(strings.ToLower(s)) == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

var (
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Printer renders window records in the configured format, suppressing
// repeated identical output for the same window while watching.
type Printer struct {
	out       func(string)
	last      *types.Window
	property  string
	format    Format
	output    string
	linebreak bool
	first     bool
}

// NewPrinter builds a printer for an optional single property, a format and
// watch mode. Formats that produce multi-line blocks get a separating
// linebreak between watch updates.
func NewPrinter(out func(string), property string, format Format, watch bool) *Printer {
	var linebreak bool
	if property != "" {
		linebreak = format != FormatTOML && format != FormatCSV
	} else {
		linebreak = watch && (format == FormatDict || format == FormatJSON || format == FormatTOML)
	}

	return &Printer{
		out:       out,
		property:  property,
		format:    format,
		linebreak: linebreak,
		first:     true,
	}
}

// Print renders one record. Output identical to the previous render for the
// same window is suppressed.
func (p *Printer) Print(w types.Window) error {
	output, err := p.render(w)
	if err != nil {
		return err
	}

	if p.last != nil && p.last.ID == w.ID && output == p.output {
		return nil
	}

	last := w
	p.last = &last
	p.output = output
	p.first = false

	if p.linebreak {
		p.out(output + "\n")
	} else {
		p.out(output)
	}

	return nil
}

func (p *Printer) render(w types.Window) (string, error) {
	if p.property != "" {
		return p.renderProperty(w)
	}
	return p.renderWindow(w)
}

func (p *Printer) renderProperty(w types.Window) (string, error) {
	value, err := w.Prop(p.property)
	if err != nil {
		return "", err
	}

	switch p.format {
	case FormatFlat:
		return value, nil

	case FormatDict:
		return labelStyle.Render(p.property+":") + " " + value, nil

	case FormatJSON:
		data, err := json.MarshalIndent(map[string]interface{}{p.property: p.rawProp(w)}, "", "  ")
		return string(data), err

	case FormatTOML:
		data, err := toml.Marshal(map[string]interface{}{p.property: p.rawProp(w)})
		return string(data), err

	case FormatCSV:
		var buf bytes.Buffer
		wtr := csv.NewWriter(&buf)
		if p.first {
			if err := wtr.Write([]string{p.property}); err != nil {
				return "", err
			}
		}
		if err := wtr.Write([]string{value}); err != nil {
			return "", err
		}
		wtr.Flush()
		return buf.String(), wtr.Error()
	}

	return "", fmt.Errorf("unknown output format %q", p.format)
}

func (p *Printer) renderWindow(w types.Window) (string, error) {
	switch p.format {
	case FormatFlat:
		return strings.Join(p.pairs(w), separatorStyle.Render(", ")) + "\n", nil

	case FormatDict:
		return strings.Join(p.pairs(w), "\n") + "\n", nil

	case FormatJSON:
		data, err := json.MarshalIndent(w, "", "  ")
		return string(data), err

	case FormatTOML:
		data, err := toml.Marshal(w)
		return string(data), err

	case FormatCSV:
		var buf bytes.Buffer
		wtr := csv.NewWriter(&buf)
		if p.first {
			if err := wtr.Write(types.Props); err != nil {
				return "", err
			}
		}
		record := make([]string, len(types.Props))
		for i, key := range types.Props {
			record[i], _ = w.Prop(key)
		}
		if err := wtr.Write(record); err != nil {
			return "", err
		}
		wtr.Flush()
		return buf.String(), wtr.Error()
	}

	return "", fmt.Errorf("unknown output format %q", p.format)
}

// rawProp returns the natively-typed value for structured formats, so pid
// stays numeric.
func (p *Printer) rawProp(w types.Window) interface{} {
	if p.property == "pid" {
		return w.PID
	}
	value, _ := w.Prop(p.property)
	return value
}

func (p *Printer) pairs(w types.Window) []string {
	pairs := make([]string, len(types.Props))
	for i, key := range types.Props {
		value, _ := w.Prop(key)
		pairs[i] = labelStyle.Render(key+":") + " " + value
	}
	return pairs
}
