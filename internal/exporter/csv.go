package exporter

import (
	"strings"

	"github.com/go-playground/locales"

	"crmexport/internal/records"
)

// bom is the UTF-8 byte order mark spreadsheet applications use to detect
// the encoding of a CSV file
const bom = "\uFEFF"

// EncodeCSV renders data as CSV. Every cell is quoted, embedded quotes are
// doubled, and unset fields become empty quoted cells. Lines are joined by
// "\n" without a trailing newline.
func EncodeCSV(data records.Collection) []byte {
	keys := records.Keys(data)

	lines := make([]string, 0, len(data)+1)
	lines = append(lines, headerLine(keys))
	for _, record := range data {
		cells := make([]string, len(keys))
		for i, key := range keys {
			cells[i] = quote(records.Stringify(record.Value(key)))
		}
		lines = append(lines, strings.Join(cells, ","))
	}

	return []byte(strings.Join(lines, "\n"))
}

// EncodeExcelCSV renders data as CSV for spreadsheet applications: the
// payload starts with a BOM, numbers are written unquoted and times are
// written as quoted short dates in the translator's locale.
func EncodeExcelCSV(data records.Collection, tr locales.Translator) []byte {
	keys := records.Keys(data)

	var b strings.Builder
	b.WriteString(bom)
	b.WriteString(headerLine(keys))
	b.WriteByte('\n')

	for i, record := range data {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, key := range keys {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(excelCell(record.Value(key), tr))
		}
	}

	return []byte(b.String())
}

func excelCell(v any, tr locales.Translator) string {
	switch {
	case v == nil:
		return `""`
	case records.IsNumber(v):
		return records.Stringify(v)
	}

	if t, ok := asTime(v); ok {
		return quote(tr.FmtDateShort(t))
	}
	return quote(records.Stringify(v))
}

func headerLine(keys []string) string {
	quoted := make([]string, len(keys))
	for i, key := range keys {
		quoted[i] = quote(key)
	}
	return strings.Join(quoted, ",")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
