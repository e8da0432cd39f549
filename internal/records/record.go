package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/iancoleman/orderedmap"
)

// Record is a single exportable row. Fields keep their insertion order.
type Record struct {
	fields *orderedmap.OrderedMap
}

// Collection is an ordered list of records forming one exportable table.
type Collection []*Record

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{fields: newFields()}
}

// Of builds a record from alternating field names and values.
// A trailing name without a value is stored with a nil value.
func Of(pairs ...any) *Record {
	r := NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			key = fmt.Sprint(pairs[i])
		}
		var value any
		if i+1 < len(pairs) {
			value = pairs[i+1]
		}
		r.Set(key, value)
	}
	return r
}

// FromMap builds a record from a plain map using the given field order.
// Fields of m missing from order are appended in lexical order.
func FromMap(m map[string]any, order ...string) *Record {
	r := NewRecord()
	for _, key := range order {
		if value, ok := m[key]; ok {
			r.Set(key, value)
		}
	}

	rest := make([]string, 0, len(m))
	for key := range m {
		if _, ok := r.Get(key); !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		r.Set(key, m[key])
	}
	return r
}

func newFields() *orderedmap.OrderedMap {
	m := orderedmap.New()
	m.SetEscapeHTML(false)
	return m
}

// Set stores value under key. Existing keys keep their position.
func (r *Record) Set(key string, value any) *Record {
	if r.fields == nil {
		r.fields = newFields()
	}
	r.fields.Set(key, value)
	return r
}

// Get returns the value stored under key
func (r *Record) Get(key string) (any, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// Value returns the value stored under key, or nil when the field is unset
func (r *Record) Value(key string) any {
	v, _ := r.Get(key)
	return v
}

// Keys returns the field names in insertion order
func (r *Record) Keys() []string {
	if r == nil || r.fields == nil {
		return nil
	}
	keys := r.fields.Keys()
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Len returns the number of fields
func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return len(r.fields.Keys())
}

// Clone returns a shallow copy of the record
func (r *Record) Clone() *Record {
	out := NewRecord()
	for _, key := range r.Keys() {
		out.Set(key, r.Value(key))
	}
	return out
}

// MarshalJSON encodes the record as a JSON object in field order
func (r Record) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping the document's field order
func (r *Record) UnmarshalJSON(b []byte) error {
	fields := newFields()
	if err := fields.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	r.fields = fields
	return nil
}

// Len returns the number of records
func (c Collection) Len() int {
	return len(c)
}

// IsEmpty reports whether the collection has no records
func (c Collection) IsEmpty() bool {
	return len(c) == 0
}

// DecodeCollection reads a JSON array of objects
func DecodeCollection(r io.Reader) (Collection, error) {
	var data Collection
	dec := json.NewDecoder(r)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return data, nil
}

// ParseCollection decodes a JSON array of objects from raw bytes
func ParseCollection(b []byte) (Collection, error) {
	return DecodeCollection(bytes.NewReader(b))
}
