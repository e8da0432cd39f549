// Package http implements the HTTP handlers of the export service.
//
// Handlers stay thin: they decode and validate the request with the
// validation middleware, call a service and answer with either a download,
// a JSON document rendered by go-chi/render, or an RFC 7807 problem written
// by the error handler.
//
// Export routes, mounted under /api/exports:
//
//	POST   /{format}      single-table export as an attachment
//	POST   /batch         multi-section export
//	POST   /summary       per-field statistics as JSON
//	GET    /files         saved exports, newest first
//	GET    /files/{name}  download a saved export
//	DELETE /files/{name}  remove a saved export
//
// An export with nothing to deliver answers 204 with X-Export-Status set to
// skipped or ignored. Every export response carries X-Export-ID.
package http
