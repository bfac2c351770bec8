// Package output renders command results to stdout as a table or JSON
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Format represents supported output formats
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"

	// tabwriterPadding is the padding between columns in table output
	tabwriterPadding = 2
)

// Formatter handles output formatting for command results
type Formatter struct {
	writer io.Writer
	format Format
}

// NewFormatter creates a new output formatter
// Defaults to table format if invalid format provided
func NewFormatter(format string) *Formatter {
	f := Format(format)
	if f != FormatTable && f != FormatJSON {
		f = FormatTable
	}
	return &Formatter{
		writer: os.Stdout,
		format: f,
	}
}

// NewFormatterWithWriter creates a formatter targeting w instead of stdout
func NewFormatterWithWriter(w io.Writer, format string) *Formatter {
	f := NewFormatter(format)
	f.writer = w
	return f
}

// JSON reports whether the formatter emits JSON
func (f *Formatter) JSON() bool {
	return f.format == FormatJSON
}

// Table represents a table with headers and rows
type Table struct {
	Headers []string
	Rows    [][]string
}

// PrintTable prints data in the configured format (table or json)
func (f *Formatter) PrintTable(table Table) error {
	if len(table.Rows) == 0 {
		if f.format == FormatTable {
			fmt.Fprintln(f.writer, "No data found")
			return nil
		}
		return f.PrintJSON([]map[string]string{})
	}

	if f.format == FormatJSON {
		return f.PrintJSON(tableToMaps(table))
	}

	w := tabwriter.NewWriter(f.writer, 0, 0, tabwriterPadding, ' ', 0)
	fmt.Fprintln(w, strings.Join(table.Headers, "\t"))
	for _, row := range table.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

// PrintJSON prints any value as indented JSON, regardless of format
func (f *Formatter) PrintJSON(data interface{}) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// PrintMessage prints a simple message (only in table format, ignored in JSON)
func (f *Formatter) PrintMessage(message string) {
	if f.format == FormatTable {
		fmt.Fprintln(f.writer, message)
	}
}

// tableToMaps converts a Table to a slice of maps for JSON output
func tableToMaps(table Table) []map[string]string {
	result := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		item := make(map[string]string)
		for i, header := range table.Headers {
			if i < len(row) {
				item[header] = row[i]
			}
		}
		result = append(result, item)
	}
	return result
}
