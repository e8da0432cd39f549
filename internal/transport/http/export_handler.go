package http

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "crmexport/internal/errors"
	"crmexport/internal/exporter"
	"crmexport/internal/files"
	"crmexport/internal/middleware"
	"crmexport/internal/records"
	"crmexport/internal/services"
)

// ExportStatusHeader reports the export status of responses without a body
const ExportStatusHeader = "X-Export-Status"

// maxListLimit caps GET /files?limit=
const maxListLimit = 1000

// ExportRequest is the body of POST /api/exports/{format}
type ExportRequest struct {
	Data       records.Collection `json:"data"`
	Filename   string             `json:"filename" validate:"omitempty,exportname"`
	ReportName string             `json:"report_name" validate:"omitempty,exportname"`
	Title      string             `json:"title" validate:"max=200"`
	Columns    []string           `json:"columns" validate:"omitempty,max=100,dive,required"`
	Filters    exporter.Filters   `json:"filters"`
}

// BatchRequest is the body of POST /api/exports/batch
type BatchRequest struct {
	Sections []exporter.Section `json:"sections" validate:"omitempty,max=100,dive"`
	Filename string             `json:"filename" validate:"omitempty,exportname"`
	Format   string             `json:"format" validate:"omitempty,oneof=csv json excel xlsx pdf workbook"`
}

// SummaryRequest is the body of POST /api/exports/summary
type SummaryRequest struct {
	Data   records.Collection `json:"data"`
	Fields []string           `json:"fields" validate:"required,min=1,max=100,dive,required"`
}

// FileList is the response of GET /api/exports/files
type FileList struct {
	Files []files.FileInfo `json:"files"`
	Count int              `json:"count"`
}

// ExportHandler handles export and archive requests
type ExportHandler struct {
	service      *services.ExportService
	archive      *files.Manager
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates a new export handler. archive may be nil, in
// which case the file routes answer 404.
func NewExportHandler(service *services.ExportService, archive *files.Manager, validation *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		service:      service,
		archive:      archive,
		validation:   validation,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes, mounted under /api/exports
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.validation.LimitBody)
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "application/json"))

		r.Post("/batch", h.ExportBatch)
		r.Post("/summary", h.Summary)
		r.Post("/{format}", h.Export)
	})

	r.Route("/files", func(r chi.Router) {
		r.Get("/", h.ListFiles)
		r.Get("/{name}", h.DownloadFile)
		r.Delete("/{name}", h.DeleteFile)
	})

	return r
}

// Export handles POST /api/exports/{format}. Query parameters add string
// filters after the body filters.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if _, ok := exporter.ParseFormat(format); !ok {
		h.errorHandler.HandleError(w, r, apierrors.UnsupportedFormatError(format, services.SupportedFormats()))
		return
	}

	var req ExportRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filters := append(req.Filters, exporter.ParseFilters(r.URL.Query())...)

	sink := newTrackingSink(w)
	result, err := h.service.Export(r.Context(), sink, services.ExportRequest{
		Format:     format,
		Data:       req.Data,
		Filename:   req.Filename,
		ReportName: req.ReportName,
		Title:      req.Title,
		Columns:    req.Columns,
		Filters:    filters,
	})
	if err != nil {
		h.handleServiceError(w, r, format, err)
		return
	}

	h.finish(w, r, sink, result)
}

// ExportBatch handles POST /api/exports/batch
func (h *ExportHandler) ExportBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sink := newTrackingSink(w)
	result := h.service.ExportBatch(r.Context(), sink, services.BatchRequest{
		Sections: req.Sections,
		Name:     req.Filename,
		Format:   req.Format,
	})

	h.finish(w, r, sink, result)
}

// Summary handles POST /api/exports/summary
func (h *ExportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, h.service.Summary(req.Data, req.Fields))
}

// ListFiles handles GET /api/exports/files
func (h *ExportHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("Export archive"))
		return
	}

	formats := []string{
		string(exporter.FormatCSV),
		string(exporter.FormatJSON),
		string(exporter.FormatExcel),
		string(exporter.FormatPDF),
		string(exporter.FormatWorkbook),
	}
	format, ok := h.query.ValidateEnum(w, r, "format", formats, "")
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, maxListLimit, 0)
	if !ok {
		return
	}

	saved, err := h.archive.List(r.Context(), exporter.Format(format), limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, FileList{Files: saved, Count: len(saved)})
}

// DownloadFile handles GET /api/exports/files/{name}
func (h *ExportHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("Export archive"))
		return
	}

	name := chi.URLParam(r, "name")
	f, info, err := h.archive.Open(r.Context(), name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer f.Close()

	h.logger.InfoContext(r.Context(), "downloading saved export",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("file_name", info.Name),
		slog.Int64("size_bytes", info.Size),
	)

	w.Header().Set("Content-Type", info.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name}))
	http.ServeContent(w, r, info.Name, info.ModTime, f)
}

// DeleteFile handles DELETE /api/exports/files/{name}
func (h *ExportHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("Export archive"))
		return
	}

	if err := h.archive.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// finish answers the request once the export ran. A delivered export has
// already been written by the sink.
func (h *ExportHandler) finish(w http.ResponseWriter, r *http.Request, sink *trackingSink, result exporter.Result) {
	switch result.Status {
	case exporter.StatusDelivered:
		return
	case exporter.StatusSkipped, exporter.StatusIgnored:
		w.Header().Set(exporter.ExportIDHeader, result.ID.String())
		w.Header().Set(ExportStatusHeader, string(result.Status))
		w.WriteHeader(http.StatusNoContent)
	default:
		if sink.written {
			// headers are gone; the client sees a truncated body
			return
		}
		w.Header().Set(exporter.ExportIDHeader, result.ID.String())
		h.handleServiceError(w, r, string(result.Format), result.Err)
	}
}

func (h *ExportHandler) handleServiceError(w http.ResponseWriter, r *http.Request, format string, err error) {
	if errors.Is(err, services.ErrUnsupportedFormat) {
		h.errorHandler.HandleError(w, r, apierrors.UnsupportedFormatError(format, services.SupportedFormats()))
		return
	}
	if errors.Is(err, exporter.ErrInvalidFilename) {
		h.errorHandler.HandleError(w, r, apierrors.InvalidFilenameError(err))
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.errorHandler.HandleError(w, r, apierrors.ExportFailedError(w.Header().Get(exporter.ExportIDHeader), err))
}

// trackingSink delivers to the response and remembers whether it started
// writing
type trackingSink struct {
	response *exporter.ResponseSink
	written  bool
}

func newTrackingSink(w http.ResponseWriter) *trackingSink {
	return &trackingSink{response: exporter.NewResponseSink(w)}
}

// Deliver implements exporter.Sink
func (s *trackingSink) Deliver(ctx context.Context, d exporter.Download) error {
	if _, err := exporter.CleanFilename(d.Filename); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.written = true
	return s.response.Deliver(ctx, d)
}
