package services

import "errors"

// Service errors
var (
	// ErrUnsupportedFormat is returned for export format names the exporter
	// does not know
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
