// Package output formats profiling result sets for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhpip/ezprofiler-deps/internal/control"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatRaw   Format = "raw"
)

// Formatter renders result entries to a writer.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{format: format, writer: writer}
}

// Render writes the result set in the configured format.
func (f *Formatter) Render(entries []control.ResultEntry) error {
	switch f.format {
	case FormatJSON:
		return f.renderJSON(entries)
	case FormatRaw:
		return f.renderRaw(entries)
	default:
		return f.renderTable(entries)
	}
}

func (f *Formatter) renderJSON(entries []control.ResultEntry) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// renderRaw emits each entry's formatted text verbatim, one after another.
func (f *Formatter) renderRaw(entries []control.ResultEntry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(f.writer, e.Data); err != nil {
			return err
		}
	}
	return nil
}

func (f *Formatter) renderTable(entries []control.ResultEntry) error {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	approxStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	rows := make([][]string, len(entries))
	for i, e := range entries {
		kind := string(e.Kind)
		if e.Kind == control.KindApproximate {
			kind = approxStyle.Render(kind)
		}
		rows[i] = []string{
			kind,
			e.Label,
			e.Backend,
			e.ArtifactPath,
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("KIND", "LABEL", "BACKEND", "ARTIFACT").
		Rows(rows...)

	if _, err := fmt.Fprintln(f.writer, t); err != nil {
		return err
	}

	// The formatted text follows the table so artifacts stay greppable.
	for _, e := range entries {
		if e.Data == "" {
			continue
		}
		if _, err := fmt.Fprintf(f.writer, "\n%s [%s]\n%s", e.Label, e.Backend, e.Data); err != nil {
			return err
		}
	}
	return nil
}
