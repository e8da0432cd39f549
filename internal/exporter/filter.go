package exporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/iancoleman/orderedmap"

	"crmexport/internal/records"
)

// Filter constrains one field. String values match case-insensitively as a
// substring of the field's text; other values must be equal.
type Filter struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Filters are applied in order, each narrowing the result of the previous one
type Filters []Filter

// Active reports whether the filter constrains anything. Falsy values
// ("", 0, false, nil) do not, so a filter on zero cannot be expressed.
func (f Filter) Active() bool {
	return records.Truthy(f.Value)
}

// Match reports whether record satisfies the filter
func (f Filter) Match(record *records.Record) bool {
	value := record.Value(f.Field)

	if s, ok := f.Value.(string); ok {
		return strings.Contains(
			strings.ToLower(records.Stringify(value)),
			strings.ToLower(s),
		)
	}
	return records.Equal(value, f.Value)
}

// ApplyFilters returns the records of data matching every active filter, in
// their original order. data is never modified.
func ApplyFilters(data records.Collection, filters Filters) records.Collection {
	filtered := make(records.Collection, len(data))
	copy(filtered, data)

	for _, filter := range filters {
		if !filter.Active() {
			continue
		}
		kept := filtered[:0:0]
		for _, record := range filtered {
			if filter.Match(record) {
				kept = append(kept, record)
			}
		}
		filtered = kept
	}

	return filtered
}

// ParseFilter parses a "field=value" expression
func ParseFilter(expr string) (Filter, error) {
	field, value, ok := strings.Cut(expr, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return Filter{}, fmt.Errorf("invalid filter %q: expected field=value", expr)
	}
	return Filter{Field: field, Value: value}, nil
}

// ParseFilters builds string filters from query parameters. Fields are
// applied in lexical order; repeated parameters add one filter per value.
func ParseFilters(values url.Values) Filters {
	fields := make([]string, 0, len(values))
	for field := range values {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var filters Filters
	for _, field := range fields {
		for _, value := range values[field] {
			filters = append(filters, Filter{Field: field, Value: value})
		}
	}
	return filters
}

// UnmarshalJSON accepts either an object mapping field to value, applied in
// document order, or an array of {"field", "value"} pairs.
func (f *Filters) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = nil
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Filter
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("failed to decode filters: %w", err)
		}
		*f = list
		return nil
	}

	m := orderedmap.New()
	if err := json.Unmarshal(trimmed, m); err != nil {
		return fmt.Errorf("failed to decode filters: %w", err)
	}

	filters := make(Filters, 0, len(m.Keys()))
	for _, field := range m.Keys() {
		value, _ := m.Get(field)
		filters = append(filters, Filter{Field: field, Value: value})
	}
	*f = filters
	return nil
}
