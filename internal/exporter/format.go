package exporter

import (
	"strings"
)

// Format identifies an export encoding
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatExcel    Format = "excel"
	FormatXLSX     Format = "xlsx"
	FormatPDF      Format = "pdf"
	FormatWorkbook Format = "workbook"
)

// MIME types attached to each download
const (
	MIMECSV      = "text/csv;charset=utf-8;"
	MIMEExcel    = "application/vnd.ms-excel;charset=utf-8;"
	MIMEJSON     = "application/json;charset=utf-8;"
	MIMEText     = "text/plain;charset=utf-8;"
	MIMEWorkbook = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ParseFormat resolves a case-insensitive format name
func ParseFormat(name string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case FormatCSV, FormatJSON, FormatExcel, FormatXLSX, FormatPDF, FormatWorkbook:
		return f, true
	default:
		return f, false
	}
}

// MIMEType returns the content type of a download in this format
func (f Format) MIMEType() string {
	switch f {
	case FormatJSON:
		return MIMEJSON
	case FormatExcel, FormatXLSX:
		return MIMEExcel
	case FormatPDF:
		return MIMEText
	case FormatWorkbook:
		return MIMEWorkbook
	default:
		return MIMECSV
	}
}

// DefaultFilename returns the file name used when the caller supplies none.
// Excel-compatible exports are CSV text and keep the .csv suffix.
func (f Format) DefaultFilename() string {
	switch f {
	case FormatJSON:
		return "export.json"
	case FormatPDF:
		return "export.pdf"
	case FormatWorkbook:
		return "export.xlsx"
	default:
		return "export.csv"
	}
}

func (f Format) String() string {
	return string(f)
}
