package records

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsContainer(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{"nil", nil, true},
		{"string", "x", false},
		{"int", 3, false},
		{"float", 1.5, false},
		{"bool", false, false},
		{"json number", json.Number("12"), false},
		{"time", time.Now(), false},
		{"map", map[string]any{"a": 1}, true},
		{"slice", []any{1}, true},
		{"record", Of("a", 1), true},
		{"struct", struct{ A int }{1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsContainer(tt.value))
		})
	}
}

func TestStringify(t *testing.T) {
	when := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, ""},
		{"string", "Al,ice", "Al,ice"},
		{"int", 30, "30"},
		{"int64", int64(-7), "-7"},
		{"uint", uint8(9), "9"},
		{"integral float", 30.0, "30"},
		{"fraction", 12.5, "12.5"},
		{"bool", true, "true"},
		{"json number", json.Number("1e3"), "1e3"},
		{"time", when, "2026-03-04T05:06:07Z"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Stringify(tt.value))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "-456", FormatNumber(-456))
	assert.Equal(t, "0.001234", FormatNumber(0.001234))
	assert.Equal(t, "1234567.890123", FormatNumber(1234567.890123))
	assert.Equal(t, "1e+21", FormatNumber(1e21))
	assert.Equal(t, "NaN", FormatNumber(math.NaN()))
	assert.Equal(t, "Infinity", FormatNumber(math.Inf(1)))
	assert.Equal(t, "-Infinity", FormatNumber(math.Inf(-1)))
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    float64
		wantOK  bool
	}{
		{"int", 10, 10, true},
		{"float", 2.5, 2.5, true},
		{"numeric string", " 42 ", 42, true},
		{"empty string", "", 0, true},
		{"text", "abc", 0, false},
		{"true", true, 1, true},
		{"false", false, 0, true},
		{"json number", json.Number("3.25"), 3.25, true},
		{"nan", math.NaN(), 0, false},
		{"map", map[string]any{}, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(0))
	assert.False(t, Truthy(0.0))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(math.NaN()))

	assert.True(t, Truthy("0"))
	assert.True(t, Truthy(-1))
	assert.True(t, Truthy(true))
	assert.True(t, Truthy(map[string]any{}))
	assert.True(t, Truthy(time.Now()))
}

func TestEqual(t *testing.T) {
	when := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, Equal(5, 5.0))
	assert.True(t, Equal(float64(7), int64(7)))
	assert.True(t, Equal(true, true))
	assert.True(t, Equal(when, when.In(time.FixedZone("IST", 19800))))
	assert.True(t, Equal(nil, nil))

	assert.False(t, Equal(5, "5"))
	assert.False(t, Equal(true, 1))
	assert.False(t, Equal(nil, 0))
	assert.False(t, Equal([]int{1}, []int{1}))
}
