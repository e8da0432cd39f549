package services

import (
	"context"
	"fmt"
	"log/slog"

	"crmexport/internal/exporter"
	"crmexport/internal/infrastructure"
	"crmexport/internal/records"
)

// ExportRequest describes a single-table export
type ExportRequest struct {
	Format string
	Data   records.Collection
	// Filename names the download. Ignored when ReportName is set.
	Filename string
	// ReportName switches to a dated filtered report named
	// {ReportName}_{YYYY-MM-DD}.{Format}
	ReportName string
	Title      string
	Columns    []string
	Filters    exporter.Filters
}

// BatchRequest describes a multi-section export
type BatchRequest struct {
	Sections []exporter.Section
	Name     string
	Format   string
}

// ExportService runs exports against a per-request sink and optionally
// archives every delivered download
type ExportService struct {
	exporter *exporter.Exporter
	archive  exporter.Sink
	logger   *slog.Logger
}

// NewExportService creates an export service. archive may be nil.
func NewExportService(exp *exporter.Exporter, archive exporter.Sink, logger *slog.Logger) *ExportService {
	return &ExportService{
		exporter: exp,
		archive:  archive,
		logger:   infrastructure.WithComponent(logger, "export_service"),
	}
}

// SupportedFormats lists the format names accepted by Export
func SupportedFormats() []string {
	return []string{
		string(exporter.FormatCSV),
		string(exporter.FormatJSON),
		string(exporter.FormatExcel),
		string(exporter.FormatXLSX),
		string(exporter.FormatPDF),
		string(exporter.FormatWorkbook),
	}
}

// Export filters the request data and exports it in the requested format
func (s *ExportService) Export(ctx context.Context, sink exporter.Sink, req ExportRequest) (exporter.Result, error) {
	format, ok := exporter.ParseFormat(req.Format)
	if !ok {
		return exporter.Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}

	exp := s.exporterFor(sink)

	if req.ReportName != "" {
		return exp.ExportFilteredReport(ctx, req.Data, req.Filters, req.ReportName, req.Format), nil
	}

	data := req.Data
	if len(req.Filters) > 0 && data != nil {
		data = exporter.ApplyFilters(data, req.Filters)
		s.logger.DebugContext(ctx, "Applied export filters",
			slog.Int("records_in", len(req.Data)),
			slog.Int("records_out", len(data)))
	}

	switch format {
	case exporter.FormatJSON:
		return exp.ExportToJSON(ctx, data, req.Filename), nil
	case exporter.FormatExcel, exporter.FormatXLSX:
		return exp.ExportToExcel(ctx, data, req.Filename), nil
	case exporter.FormatPDF:
		return exp.ExportToPDF(ctx, data, req.Filename, exporter.Options{
			Title:   req.Title,
			Columns: req.Columns,
		}), nil
	case exporter.FormatWorkbook:
		return exp.ExportToWorkbook(ctx, data, req.Filename), nil
	default:
		return exp.ExportToCSV(ctx, data, req.Filename), nil
	}
}

// ExportBatch exports several titled sections as one file
func (s *ExportService) ExportBatch(ctx context.Context, sink exporter.Sink, req BatchRequest) exporter.Result {
	return s.exporterFor(sink).ExportBatchReport(ctx, req.Sections, req.Name, req.Format)
}

// Summary computes per-field statistics stamped with the current time
func (s *ExportService) Summary(data records.Collection, fields []string) exporter.Summary {
	return s.exporter.GenerateSummaryReport(data, fields)
}

func (s *ExportService) exporterFor(sink exporter.Sink) *exporter.Exporter {
	if s.archive == nil {
		return s.exporter.WithSink(sink)
	}
	return s.exporter.WithSink(exporter.TeeSink{Primary: sink, Copy: s.archive, Logger: s.logger})
}
