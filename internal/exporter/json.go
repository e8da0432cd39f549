package exporter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeJSON renders any value as JSON indented by two spaces. Record field
// order is preserved and HTML characters are not escaped.
func EncodeJSON(data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
