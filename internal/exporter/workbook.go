package exporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"crmexport/internal/records"
)

// WorkbookSheet is the sheet name of a single-collection workbook
const WorkbookSheet = "Report"

// maxSheetName is the longest sheet name Excel accepts
const maxSheetName = 31

type sheet struct {
	name string
	data records.Collection
}

// EncodeWorkbook renders data as an .xlsx workbook with one sheet. The header
// row is bold, numbers are numeric cells and times are date cells.
func EncodeWorkbook(data records.Collection) ([]byte, error) {
	return encodeWorkbook([]sheet{{name: WorkbookSheet, data: data}})
}

// EncodeWorkbookSections renders each section on its own sheet named after
// the section title
func EncodeWorkbookSections(sections []Section) ([]byte, error) {
	sheets := make([]sheet, len(sections))
	used := make(map[string]bool)
	for i, section := range sections {
		sheets[i] = sheet{
			name: uniqueSheetName(section.Title, i+1, used),
			data: section.Data,
		}
	}
	return encodeWorkbook(sheets)
}

func encodeWorkbook(sheets []sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return nil, fmt.Errorf("failed to name sheet %q: %w", s.name, err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %w", s.name, err)
		}

		if err := writeSheet(f, s.name, s.data, bold); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, data records.Collection, headerStyle int) error {
	keys := records.Keys(data)

	for col, key := range keys {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, key); err != nil {
			return fmt.Errorf("failed to write header %q: %w", key, err)
		}
	}

	if len(keys) > 0 {
		last, err := excelize.CoordinatesToCellName(len(keys), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for row, record := range data {
		for col, key := range keys {
			value := record.Value(key)
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, cellValue(value)); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	return nil
}

// cellValue converts a record value to a type excelize writes natively
func cellValue(v any) any {
	if n, ok := v.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	if records.IsNumber(v) {
		return v
	}
	if t, ok := asTime(v); ok {
		return t
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return records.Stringify(v)
}

// uniqueSheetName makes a valid, case-insensitively unique sheet name from a
// section title. Empty titles become "Section n".
func uniqueSheetName(title string, n int, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, title)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if name == "" {
		name = fmt.Sprintf("Section %d", n)
	}
	name = truncate(name, maxSheetName)

	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncate(name, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
