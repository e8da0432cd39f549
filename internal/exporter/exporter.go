package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/locales"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"crmexport/internal/records"
)

// Status is the outcome of an export call
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusSkipped   Status = "skipped"
	StatusIgnored   Status = "ignored"
	StatusFailed    Status = "failed"
)

// Result describes one export call. Export methods never return errors;
// failures are reported through Status and Err.
type Result struct {
	ID       uuid.UUID `json:"id"`
	Status   Status    `json:"status"`
	Filename string    `json:"filename,omitempty"`
	Format   Format    `json:"format,omitempty"`
	Bytes    int       `json:"bytes"`
	Records  int       `json:"records"`
	Columns  []string  `json:"columns,omitempty"`
	Err      error     `json:"-"`
}

// OK reports whether the export was delivered
func (r Result) OK() bool {
	return r.Status == StatusDelivered
}

// Config holds the collaborators of an Exporter. Only Sink is required.
type Config struct {
	Sink         Sink
	Logger       *slog.Logger
	Clock        clockwork.Clock
	Translator   locales.Translator
	DefaultTitle string
	Tracer       trace.Tracer
	Meter        metric.Meter
}

// Exporter encodes record collections and hands them to a Sink
type Exporter struct {
	sink         Sink
	logger       *slog.Logger
	clock        clockwork.Clock
	translator   locales.Translator
	defaultTitle string
	tracer       trace.Tracer
	metrics      *exportMetrics
}

// New creates an Exporter, filling unset collaborators with defaults
func New(cfg Config) (*Exporter, error) {
	if cfg.Sink == nil {
		return nil, fmt.Errorf("exporter sink is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Translator == nil {
		tr, err := NewTranslator(DefaultLocale)
		if err != nil {
			return nil, err
		}
		cfg.Translator = tr
	}
	if cfg.DefaultTitle == "" {
		cfg.DefaultTitle = "Report"
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("crmexport/exporter")
	}
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter("crmexport/exporter")
	}

	metrics, err := newExportMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create export metrics: %w", err)
	}

	return &Exporter{
		sink:         cfg.Sink,
		logger:       cfg.Logger.With(slog.String("component", "exporter")),
		clock:        cfg.Clock,
		translator:   cfg.Translator,
		defaultTitle: cfg.DefaultTitle,
		tracer:       cfg.Tracer,
		metrics:      metrics,
	}, nil
}

// WithSink returns a copy of the exporter delivering to sink
func (e *Exporter) WithSink(sink Sink) *Exporter {
	c := *e
	c.sink = sink
	return &c
}

// ExportToCSV exports data as CSV. Empty data is skipped.
func (e *Exporter) ExportToCSV(ctx context.Context, data records.Collection, filename string) Result {
	filename = orDefault(filename, FormatCSV.DefaultFilename())
	if data.IsEmpty() {
		return e.skip(ctx, FormatCSV, filename)
	}
	return e.deliver(ctx, FormatCSV, filename, len(data), func() ([]byte, []string, error) {
		return EncodeCSV(data), nil, nil
	})
}

// ExportToJSON exports any value as indented JSON. Absent values (nil, "",
// zero, false) are skipped; an empty collection is exported as [].
func (e *Exporter) ExportToJSON(ctx context.Context, data any, filename string) Result {
	filename = orDefault(filename, FormatJSON.DefaultFilename())
	if isAbsent(data) {
		return e.skip(ctx, FormatJSON, filename)
	}
	return e.deliver(ctx, FormatJSON, filename, countRecords(data), func() ([]byte, []string, error) {
		body, err := EncodeJSON(data)
		return body, nil, err
	})
}

// ExportToExcel exports data as Excel-compatible CSV. Empty data is skipped.
func (e *Exporter) ExportToExcel(ctx context.Context, data records.Collection, filename string) Result {
	return e.exportExcel(ctx, FormatExcel, data, filename)
}

func (e *Exporter) exportExcel(ctx context.Context, format Format, data records.Collection, filename string) Result {
	filename = orDefault(filename, format.DefaultFilename())
	if data.IsEmpty() {
		return e.skip(ctx, format, filename)
	}
	return e.deliver(ctx, format, filename, len(data), func() ([]byte, []string, error) {
		return EncodeExcelCSV(data, e.translator), nil, nil
	})
}

// ExportToPDF exports a plain-text report under a .pdf name. data is either
// a record collection laid out as a table or, in report mode, a string
// appended verbatim. nil and empty collections are skipped.
func (e *Exporter) ExportToPDF(ctx context.Context, data any, filename string, opts Options) Result {
	filename = orDefault(filename, FormatPDF.DefaultFilename())
	opts.Title = orDefault(opts.Title, e.defaultTitle)
	opts.Format = orDefault(opts.Format, ReportMode)

	if data == nil || isEmptyCollection(data) {
		return e.skip(ctx, FormatPDF, filename)
	}

	generatedOn := FormatTimestamp(e.translator, e.clock.Now())
	return e.deliver(ctx, FormatPDF, filename, countRecords(data), func() ([]byte, []string, error) {
		body, columns := EncodeReport(data, opts, generatedOn)
		return body, columns, nil
	})
}

// ExportToPDFAdvanced behaves like ExportToPDF. No PDF renderer is wired in.
func (e *Exporter) ExportToPDFAdvanced(ctx context.Context, data any, filename string, opts Options) Result {
	e.logger.InfoContext(ctx, "Advanced PDF export requires a PDF rendering library, falling back to text report")
	return e.ExportToPDF(ctx, data, filename, opts)
}

// ExportToWorkbook exports data as a native .xlsx workbook. Empty data is skipped.
func (e *Exporter) ExportToWorkbook(ctx context.Context, data records.Collection, filename string) Result {
	filename = orDefault(filename, FormatWorkbook.DefaultFilename())
	if data.IsEmpty() {
		return e.skip(ctx, FormatWorkbook, filename)
	}
	return e.deliver(ctx, FormatWorkbook, filename, len(data), func() ([]byte, []string, error) {
		body, err := EncodeWorkbook(data)
		return body, nil, err
	})
}

// ExportFilteredReport filters data and exports it as
// {baseName}_{YYYY-MM-DD}.{format}. Unknown formats are exported as CSV.
func (e *Exporter) ExportFilteredReport(ctx context.Context, data records.Collection, filters Filters, baseName, format string) Result {
	baseName = orDefault(baseName, "report")
	format = orDefault(format, string(FormatCSV))

	filtered := ApplyFilters(data, filters)
	filename := e.datedFilename(baseName, format)

	e.logger.DebugContext(ctx, "Filtered report",
		slog.Int("records_in", len(data)),
		slog.Int("records_out", len(filtered)),
		slog.Int("filters", len(filters)))

	parsed, _ := ParseFormat(format)
	switch parsed {
	case FormatJSON:
		return e.ExportToJSON(ctx, filtered, filename)
	case FormatXLSX, FormatExcel:
		return e.exportExcel(ctx, parsed, filtered, filename)
	case FormatPDF:
		return e.ExportToPDF(ctx, filtered, filename, Options{Title: baseName})
	case FormatWorkbook:
		return e.ExportToWorkbook(ctx, filtered, filename)
	default:
		return e.ExportToCSV(ctx, filtered, filename)
	}
}

// ExportBatchReport exports several sections as one file named
// {baseName}_{YYYY-MM-DD}.{format}. CSV flattens the sections behind divider
// rows, JSON maps titles to data and workbook writes one sheet per section.
// Other formats are ignored.
func (e *Exporter) ExportBatchReport(ctx context.Context, sections []Section, baseName, format string) Result {
	baseName = orDefault(baseName, "batch_report")
	format = orDefault(format, string(FormatCSV))
	filename := e.datedFilename(baseName, format)

	parsed, _ := ParseFormat(format)
	switch parsed {
	case FormatCSV:
		return e.ExportToCSV(ctx, FlattenSections(sections), filename)
	case FormatJSON:
		return e.ExportToJSON(ctx, SectionsByTitle(sections), filename)
	case FormatWorkbook:
		if len(sections) == 0 {
			return e.skip(ctx, FormatWorkbook, filename)
		}
		return e.deliver(ctx, FormatWorkbook, filename, len(FlattenSections(sections))-len(sections), func() ([]byte, []string, error) {
			body, err := EncodeWorkbookSections(sections)
			return body, nil, err
		})
	default:
		result := Result{ID: uuid.New(), Status: StatusIgnored, Filename: filename, Format: parsed}
		e.logger.WarnContext(ctx, "Batch export format not supported",
			slog.String("format", format),
			slog.String("export_id", result.ID.String()))
		e.metrics.record(ctx, result, 0)
		return result
	}
}

// GenerateSummaryReport summarizes data, stamped with the current time
func (e *Exporter) GenerateSummaryReport(data records.Collection, fields []string) Summary {
	return Summarize(data, fields, FormatTimestamp(e.translator, e.clock.Now()))
}

// TargetFilename returns the file an export in format is delivered under
// and whether it writes a file at all. A non-empty baseName selects the
// dated report name; batch selects ExportBatchReport naming, where formats
// other than csv, json and workbook write nothing.
func (e *Exporter) TargetFilename(format, baseName string, batch bool) (string, bool) {
	format = orDefault(format, string(FormatCSV))
	parsed, _ := ParseFormat(format)

	if batch {
		switch parsed {
		case FormatCSV, FormatJSON, FormatWorkbook:
			return e.datedFilename(orDefault(baseName, "batch_report"), format), true
		default:
			return "", false
		}
	}
	if baseName != "" {
		return e.datedFilename(baseName, format), true
	}
	return parsed.DefaultFilename(), true
}

// datedFilename keeps the caller's spelling of the format as the extension,
// except for workbooks which are always .xlsx
func (e *Exporter) datedFilename(baseName, format string) string {
	ext := format
	if f, _ := ParseFormat(format); f == FormatWorkbook {
		ext = "xlsx"
	}
	return fmt.Sprintf("%s_%s.%s", baseName, e.clock.Now().UTC().Format("2006-01-02"), ext)
}

func (e *Exporter) skip(ctx context.Context, format Format, filename string) Result {
	result := Result{ID: uuid.New(), Status: StatusSkipped, Filename: filename, Format: format}
	e.logger.WarnContext(ctx, "No data to export",
		slog.String("format", string(format)),
		slog.String("file_name", filename),
		slog.String("export_id", result.ID.String()))
	e.metrics.record(ctx, result, 0)
	return result
}

// deliver encodes and hands the payload to the sink. Encoder and sink errors,
// including panics, end up in the Result.
func (e *Exporter) deliver(ctx context.Context, format Format, filename string, count int, encode func() ([]byte, []string, error)) (result Result) {
	result = Result{ID: uuid.New(), Filename: filename, Format: format, Records: count}

	ctx, span := e.tracer.Start(ctx, "export."+string(format), trace.WithAttributes(
		attribute.String("export.id", result.ID.String()),
		attribute.String("export.format", string(format)),
		attribute.String("export.filename", filename),
		attribute.Int("export.records", count),
	))
	start := e.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			result.Status = StatusFailed
			result.Err = fmt.Errorf("export panicked: %v", r)
			e.logger.ErrorContext(ctx, "Export panicked",
				slog.String("export_id", result.ID.String()),
				slog.Any("panic", r))
		}
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, result.Err.Error())
		}
		span.SetAttributes(
			attribute.String("export.status", string(result.Status)),
			attribute.Int("export.bytes", result.Bytes),
		)
		span.End()
		e.metrics.record(ctx, result, e.clock.Since(start))
	}()

	body, columns, err := encode()
	if err != nil {
		return e.fail(ctx, result, "Failed to encode export", err)
	}
	result.Bytes = len(body)
	result.Columns = columns

	if err := e.sink.Deliver(ctx, Download{ID: result.ID, Filename: filename, MIMEType: format.MIMEType(), Body: body}); err != nil {
		return e.fail(ctx, result, "Download failed", err)
	}

	result.Status = StatusDelivered
	e.logger.InfoContext(ctx, "Export delivered",
		slog.String("export_id", result.ID.String()),
		slog.String("format", string(format)),
		slog.String("file_name", filename),
		slog.Int("records", count),
		slog.Int("bytes", result.Bytes))
	return result
}

func (e *Exporter) fail(ctx context.Context, result Result, msg string, err error) Result {
	result.Status = StatusFailed
	result.Err = err
	e.logger.ErrorContext(ctx, msg,
		slog.String("export_id", result.ID.String()),
		slog.String("format", string(result.Format)),
		slog.String("file_name", result.Filename),
		slog.String("error", err.Error()))
	return result
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// isAbsent reports whether data counts as missing for JSON export
func isAbsent(data any) bool {
	if data == nil {
		return true
	}
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			return true
		}
	}
	if records.IsNumber(data) {
		return !records.Truthy(data)
	}
	switch v := data.(type) {
	case string:
		return v == ""
	case bool:
		return !v
	}
	return false
}

func isEmptyCollection(data any) bool {
	table, ok := asCollection(data)
	return ok && len(table) == 0
}

func countRecords(data any) int {
	if table, ok := asCollection(data); ok {
		return len(table)
	}
	return 0
}
