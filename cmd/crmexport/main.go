// Command crmexport exports a JSON record file to CSV, JSON, Excel CSV,
// plain-text report and xlsx workbook files.
//
//	crmexport -in leads.json -format csv,workbook -name leads -filter city=Pune
//	crmexport -in sections.json -batch -format workbook -name weekly
//	cat leads.json | crmexport -summary deal_value,score
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"crmexport/internal/config"
	"crmexport/internal/exporter"
	"crmexport/internal/infrastructure"
	"crmexport/internal/records"
	"crmexport/internal/services"
	"crmexport/internal/validation"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr, clockwork.NewRealClock()))
}

type options struct {
	in      string
	formats []string
	out     string
	name    string
	title   string
	columns []string
	summary []string
	batch   bool
	filters exporter.Filters
}

// filterFlag collects repeated -filter field=value flags
type filterFlag struct {
	filters *exporter.Filters
}

func (f filterFlag) String() string {
	if f.filters == nil {
		return ""
	}
	parts := make([]string, 0, len(*f.filters))
	for _, filter := range *f.filters {
		parts = append(parts, fmt.Sprintf("%s=%v", filter.Field, filter.Value))
	}
	return strings.Join(parts, ",")
}

func (f filterFlag) Set(expr string) error {
	filter, err := exporter.ParseFilter(expr)
	if err != nil {
		return err
	}
	*f.filters = append(*f.filters, filter)
	return nil
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	var formats, columns, summary string

	fs := flag.NewFlagSet("crmexport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.in, "in", "-", "JSON record file, - for stdin")
	fs.StringVar(&formats, "format", "csv", "comma separated formats: "+strings.Join(services.SupportedFormats(), ", "))
	fs.StringVar(&opts.out, "out", "", "output directory (defaults to the configured exports directory)")
	fs.StringVar(&opts.name, "name", "", "base name; produces dated files {name}_{YYYY-MM-DD}.{format}")
	fs.StringVar(&opts.title, "title", "", "report title for pdf exports")
	fs.StringVar(&columns, "columns", "", "comma separated report columns for pdf exports")
	fs.StringVar(&summary, "summary", "", "comma separated numeric fields; prints a summary JSON")
	fs.BoolVar(&opts.batch, "batch", false, "input is a JSON object of section title to records")
	fs.Var(filterFlag{filters: &opts.filters}, "filter", "field=value filter, repeatable")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.formats = splitList(formats)
	opts.columns = splitList(columns)
	opts.summary = splitList(summary)

	for _, name := range opts.formats {
		if _, ok := exporter.ParseFormat(name); !ok {
			return nil, fmt.Errorf("unsupported format %q (supported: %s)", name, strings.Join(services.SupportedFormats(), ", "))
		}
	}
	if len(opts.formats) == 0 && len(opts.summary) == 0 {
		return nil, errors.New("nothing to do: give -format or -summary")
	}
	if opts.batch && len(opts.filters) > 0 {
		return nil, errors.New("-filter cannot be combined with -batch")
	}

	return opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, clock clockwork.Clock) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "failed to load configuration:", err)
		return exitError
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "failed to initialize logger:", err)
		return exitError
	}
	defer infrastructure.CloseLogFile()

	paths, err := resolvePaths(cfg, opts.out)
	if err != nil {
		logger.Error("Failed to resolve output directory", slog.String("error", err.Error()))
		return exitError
	}

	validator := validation.NewFileValidator(logger, cfg.Export.MaxBodyBytes)
	if err := validator.ValidateOutputDirectory(paths.ExportsDir); err != nil {
		return exitError
	}

	input, err := readInput(validator, opts.in, stdin)
	if err != nil {
		logger.Error("Failed to read input", slog.String("in", opts.in), slog.String("error", err.Error()))
		return exitError
	}

	var (
		data     records.Collection
		sections []exporter.Section
	)
	if opts.batch {
		sections, err = parseSections(input)
		for _, section := range sections {
			data = append(data, section.Data...)
		}
	} else {
		data, err = records.ParseCollection(input)
	}
	if err != nil {
		logger.Error("Failed to parse input", slog.String("in", opts.in), slog.String("error", err.Error()))
		return exitError
	}

	translator, err := exporter.NewTranslator(cfg.Export.Locale)
	if err != nil {
		logger.Error("Failed to load locale", slog.String("error", err.Error()))
		return exitError
	}

	sink := exporter.NewFileSink(paths, logger)
	exp, err := exporter.New(exporter.Config{
		Sink:         sink,
		Logger:       logger,
		Clock:        clock,
		Translator:   translator,
		DefaultTitle: cfg.Export.DefaultTitle,
	})
	if err != nil {
		logger.Error("Failed to create exporter", slog.String("error", err.Error()))
		return exitError
	}
	service := services.NewExportService(exp, nil, logger)

	if err := checkTargets(exp, opts); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logger.Info("Starting export",
		slog.String("in", opts.in),
		slog.String("out", paths.ExportsDir),
		slog.Any("formats", opts.formats),
		slog.Int("records", len(data)),
		slog.Bool("batch", opts.batch))

	results := make([]exporter.Result, len(opts.formats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, format := range opts.formats {
		g.Go(func() error {
			if opts.batch {
				results[i] = service.ExportBatch(gctx, sink, services.BatchRequest{
					Sections: sections,
					Name:     opts.name,
					Format:   format,
				})
				return nil
			}

			result, err := service.Export(gctx, sink, services.ExportRequest{
				Format:     format,
				Data:       data,
				ReportName: opts.name,
				Title:      opts.title,
				Columns:    opts.columns,
				Filters:    opts.filters,
			})
			results[i] = result
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Export failed", slog.String("error", err.Error()))
		return exitError
	}

	code := exitOK
	enc := json.NewEncoder(stdout)
	for _, result := range results {
		if result.Status == exporter.StatusFailed {
			code = exitError
		}
		if err := enc.Encode(result); err != nil {
			logger.Error("Failed to write result", slog.String("error", err.Error()))
			return exitError
		}
	}

	if len(opts.summary) > 0 {
		if err := enc.Encode(service.Summary(data, opts.summary)); err != nil {
			logger.Error("Failed to write summary", slog.String("error", err.Error()))
			return exitError
		}
	}

	return code
}

// checkTargets rejects format lists where two exports would write the same
// file. Names compare case-insensitively.
func checkTargets(exp *exporter.Exporter, opts *options) error {
	seen := make(map[string]string, len(opts.formats))
	for _, format := range opts.formats {
		filename, writes := exp.TargetFilename(format, opts.name, opts.batch)
		if !writes {
			continue
		}
		key := strings.ToLower(filename)
		if prev, ok := seen[key]; ok {
			err := fmt.Errorf("formats %q and %q both write %s", prev, format, filename)
			if opts.name == "" && !opts.batch {
				err = fmt.Errorf("%w; give -name for one dated file per format", err)
			}
			return err
		}
		seen[key] = format
	}
	return nil
}

// resolvePaths applies -out over the configured exports directory
func resolvePaths(cfg *config.Config, out string) (*config.Paths, error) {
	if out != "" {
		abs, err := filepath.Abs(out)
		if err != nil {
			return nil, err
		}
		cfg.Paths.ExportsDir = abs
	}
	return cfg.Paths.Resolve()
}

func readInput(validator *validation.FileValidator, path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return validator.ReadLimited(stdin)
	}
	if err := validator.ValidateInputFile(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// parseSections decodes a JSON object of section title to records, keeping
// the document order of the titles
func parseSections(b []byte) ([]exporter.Section, error) {
	order := orderedmap.New()
	if err := json.Unmarshal(b, order); err != nil {
		return nil, fmt.Errorf("failed to decode sections: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode sections: %w", err)
	}

	sections := make([]exporter.Section, 0, len(order.Keys()))
	for _, title := range order.Keys() {
		data, err := records.ParseCollection(raw[title])
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", title, err)
		}
		sections = append(sections, exporter.Section{Title: title, Data: data})
	}
	return sections, nil
}
