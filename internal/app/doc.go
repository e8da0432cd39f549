// Package app wires the crmexport HTTP service together.
//
// NewApplication resolves the configured directories, initializes logging
// and OpenTelemetry, builds the exporter with its locale and clock, and
// mounts the handlers behind the middleware chain:
//
//	RequestID → RealIP → OTel → StructuredLogger → Recovery → SecurityHeaders → CORS → RateLimiter
//
// Routes:
//
//	GET    /api/health, /api/health/ready, /api/health/live, /api/health/stats
//	GET    /api/version
//	POST   /api/exports/{format}, /api/exports/batch, /api/exports/summary
//	GET    /api/exports/files, /api/exports/files/{name}
//	DELETE /api/exports/files/{name}
//	GET    /metrics
//
// When export.archive is enabled every delivered export is also written to
// the exports directory, where the files routes can list, download and
// delete it.
//
// Run blocks until SIGINT or SIGTERM and then shuts the server down within
// server.shutdown_timeout.
package app
