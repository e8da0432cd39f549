// Package services holds the logic behind the HTTP handlers.
//
// ExportService dispatches export requests to the exporter for a
// per-request sink and tees delivered downloads into the archive.
// HealthService reports liveness, readiness of the exports directory and
// archive statistics.
package services
