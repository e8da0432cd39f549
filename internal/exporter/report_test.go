package exporter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmexport/internal/records"
)

func TestEncodeReport_FreeText(t *testing.T) {
	out, columns := EncodeReport("hello", Options{Title: "T", Format: ReportMode}, "X")

	assert.Equal(t, "T\nGenerated on: X\n\nhello", string(out))
	assert.Nil(t, columns)
}

func TestEncodeReport_Table(t *testing.T) {
	data := records.Collection{
		records.Of("name", "Alice", "city", "A very long city name exceeding"),
		records.Of("name", "Bob"),
	}

	out, columns := EncodeReport(data, Options{Title: "Customers", Format: ReportMode}, "now")
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")

	require.Len(t, lines, 7)
	assert.Equal(t, "Customers", lines[0])
	assert.Equal(t, "Generated on: now", lines[1])
	assert.Equal(t, "", lines[2])
	assert.Equal(t, []string{"name", "city"}, columns)

	assert.Equal(t, padRight("name", 20)+"|"+padRight("city", 20), lines[3])
	assert.Equal(t, strings.Repeat("-", 20)+"+"+strings.Repeat("-", 20), lines[4])
	assert.Equal(t, padRight("Alice", 20)+"|"+"A very long city nam", lines[5])
	assert.Equal(t, padRight("Bob", 20)+"|"+strings.Repeat(" ", 20), lines[6])

	for _, line := range lines[3:] {
		assert.Equal(t, 41, len(line), line)
	}
}

func TestEncodeReport_ZeroAndFalseCells(t *testing.T) {
	data := records.Collection{records.Of("deal", 0, "active", false, "note", nil)}

	out, _ := EncodeReport(data, Options{Title: "T", Columns: []string{"deal", "active", "note"}}, "X")
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")

	require.Len(t, lines, 6)
	assert.Equal(t, padRight("0", 20)+"|"+padRight("false", 20)+"|"+strings.Repeat(" ", 20), lines[5])
}

func TestEncodeReport_ColumnsNotShared(t *testing.T) {
	requested := []string{"b", "a"}
	data := records.Collection{records.Of("a", 1, "b", 2)}

	_, columns := EncodeReport(data, Options{Title: "T", Columns: requested}, "X")
	require.Equal(t, requested, columns)

	columns[0] = "changed"
	assert.Equal(t, []string{"b", "a"}, requested)
}

func TestEncodeReport_StringOutsideReportMode(t *testing.T) {
	out, columns := EncodeReport("ignored", Options{Title: "T", Format: "table"}, "X")

	assert.Equal(t, "T\nGenerated on: X\n\n", string(out))
	assert.Nil(t, columns)
}

func TestEncodeReport_MapRows(t *testing.T) {
	data := []map[string]any{{"b": 2, "a": 1}}

	_, columns := EncodeReport(data, Options{Title: "T"}, "X")
	assert.Equal(t, []string{"a", "b"}, columns)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "éé", truncate("ééé", 2))
}
