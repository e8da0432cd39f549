// Package exporter turns record collections into downloadable files.
//
// Encoders are pure functions over records.Collection:
//
//	EncodeCSV         quoted CSV, "\n" separated, no trailing newline
//	EncodeExcelCSV    BOM-prefixed CSV with unquoted numbers and locale dates
//	EncodeJSON        two-space indented JSON in record field order
//	EncodeReport      fixed-width plain-text report (served as .pdf)
//	EncodeWorkbook    native .xlsx workbook
//
// An Exporter wraps the encoders with filename defaults, logging, tracing and
// metrics, and hands the payload to a Sink. Export methods never return an
// error; the Result carries the status and the cause of a failure.
//
// Example usage:
//
//	sink := exporter.NewMemorySink()
//	exp, err := exporter.New(exporter.Config{Sink: sink})
//	if err != nil {
//		return err
//	}
//
//	result := exp.ExportToCSV(ctx, data, "customers.csv")
//	if !result.OK() {
//		log.Printf("export %s: %v", result.Status, result.Err)
//	}
package exporter
