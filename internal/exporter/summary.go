package exporter

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/iancoleman/orderedmap"

	"crmexport/internal/records"
)

// FieldStats holds the statistics of one numeric field
type FieldStats struct {
	Total   float64 `json:"total"`
	Average string  `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summary describes a collection. Stats only holds fields whose first
// non-empty value is numeric.
type Summary struct {
	ExportDate   string
	TotalRecords int
	Fields       []string
	Stats        map[string]FieldStats
}

// Summarize computes per-field statistics over data. For each field the
// truthy values are collected; when the first of them is numeric, total,
// average, min and max are computed over the numeric values.
func Summarize(data records.Collection, fields []string, exportDate string) Summary {
	summary := Summary{
		ExportDate:   exportDate,
		TotalRecords: len(data),
		Fields:       append([]string{}, fields...),
		Stats:        make(map[string]FieldStats),
	}

	for _, field := range fields {
		if stats, ok := fieldStats(data, field); ok {
			summary.Stats[field] = stats
		}
	}

	return summary
}

func fieldStats(data records.Collection, field string) (FieldStats, bool) {
	var values []any
	for _, record := range data {
		if v := record.Value(field); records.Truthy(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return FieldStats{}, false
	}
	if _, ok := records.ToFloat(values[0]); !ok {
		return FieldStats{}, false
	}

	stats := FieldStats{Min: math.Inf(1), Max: math.Inf(-1)}
	count := 0
	for _, v := range values {
		f, ok := records.ToFloat(v)
		if !ok {
			continue
		}
		stats.Total += f
		stats.Min = math.Min(stats.Min, f)
		stats.Max = math.Max(stats.Max, f)
		count++
	}
	stats.Average = fmt.Sprintf("%.2f", stats.Total/float64(count))

	return stats, true
}

// MarshalJSON encodes the summary as one flat object: exportDate,
// totalRecords and fields first, then one entry per summarized field in
// request order.
func (s Summary) MarshalJSON() ([]byte, error) {
	m := orderedmap.New()
	m.SetEscapeHTML(false)

	fields := s.Fields
	if fields == nil {
		fields = []string{}
	}
	m.Set("exportDate", s.ExportDate)
	m.Set("totalRecords", s.TotalRecords)
	m.Set("fields", fields)

	for _, field := range fields {
		if stats, ok := s.Stats[field]; ok {
			m.Set(field, stats)
		}
	}

	return json.Marshal(m)
}
