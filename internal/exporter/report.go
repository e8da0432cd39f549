package exporter

import (
	"strings"
	"unicode/utf8"

	"crmexport/internal/records"
)

// ColumnWidth is the fixed width of every column in a text report
const ColumnWidth = 20

// ReportMode is the Options.Format value that appends string payloads verbatim
const ReportMode = "report"

// Options configures an export. Title, Columns and Format are only read by
// the text report encoder.
type Options struct {
	Filename string   `json:"filename,omitempty"`
	Title    string   `json:"title,omitempty"`
	Columns  []string `json:"columns,omitempty"`
	Format   string   `json:"format,omitempty"`
}

// EncodeReport renders the plain-text report used for .pdf downloads. A string
// payload in report mode is appended verbatim; a record collection is laid out
// as a fixed-width table. It returns the resolved column list, which is a new
// slice even when opts.Columns is set.
func EncodeReport(data any, opts Options, generatedOn string) ([]byte, []string) {
	var b strings.Builder
	b.WriteString(opts.Title)
	b.WriteString("\nGenerated on: ")
	b.WriteString(generatedOn)
	b.WriteString("\n\n")

	if text, ok := data.(string); ok && opts.Format == ReportMode {
		b.WriteString(text)
		return []byte(b.String()), nil
	}

	table, ok := asCollection(data)
	if !ok {
		return []byte(b.String()), nil
	}

	var columns []string
	if len(opts.Columns) > 0 {
		columns = append(columns, opts.Columns...)
	} else {
		columns = records.Keys(table)
	}

	header := make([]string, len(columns))
	separator := make([]string, len(columns))
	for i, col := range columns {
		header[i] = padRight(col, ColumnWidth)
		separator[i] = strings.Repeat("-", ColumnWidth)
	}
	b.WriteString(strings.Join(header, "|"))
	b.WriteByte('\n')
	b.WriteString(strings.Join(separator, "+"))
	b.WriteByte('\n')

	cells := make([]string, len(columns))
	for _, record := range table {
		for i, col := range columns {
			cells[i] = padRight(truncate(records.Stringify(record.Value(col)), ColumnWidth), ColumnWidth)
		}
		b.WriteString(strings.Join(cells, "|"))
		b.WriteByte('\n')
	}

	return []byte(b.String()), columns
}

// asCollection accepts the tabular payload shapes the report encoder lays out
func asCollection(data any) (records.Collection, bool) {
	switch d := data.(type) {
	case records.Collection:
		return d, true
	case []*records.Record:
		return records.Collection(d), true
	case []map[string]any:
		out := make(records.Collection, len(d))
		for i, m := range d {
			out[i] = records.FromMap(m)
		}
		return out, true
	default:
		return nil, false
	}
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}
