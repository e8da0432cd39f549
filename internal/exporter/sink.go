package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"crmexport/internal/config"
)

// ExportIDHeader carries the export ID of an HTTP download
const ExportIDHeader = "X-Export-ID"

// ErrInvalidFilename is returned for download names that are not a plain
// file name
var ErrInvalidFilename = errors.New("invalid export filename")

// Download is an encoded export ready to be handed to the user
type Download struct {
	ID       uuid.UUID
	Filename string
	MIMEType string
	Body     []byte
}

// Sink delivers downloads to their destination
type Sink interface {
	Deliver(ctx context.Context, d Download) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, d Download) error

// Deliver calls fn
func (fn SinkFunc) Deliver(ctx context.Context, d Download) error {
	return fn(ctx, d)
}

// CleanFilename validates a download name. Only a base name is accepted:
// separators, "." and ".." are rejected.
func CleanFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "", name == ".", name == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return name, nil
}

// FileSink writes downloads into the exports directory
type FileSink struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewFileSink creates a sink writing below paths.ExportsDir
func NewFileSink(paths *config.Paths, logger *slog.Logger) *FileSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSink{paths: paths, logger: logger.With(slog.String("component", "file_sink"))}
}

// Deliver writes the download, replacing any file with the same name
func (s *FileSink) Deliver(ctx context.Context, d Download) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := CleanFilename(d.Filename)
	if err != nil {
		return err
	}

	fullPath := s.paths.GetExportPath(name)

	s.logger.DebugContext(ctx, "Writing export file",
		slog.String("file_name", name),
		slog.String("full_path", fullPath),
		slog.Int("bytes", len(d.Body)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(fullPath, d.Body, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	return nil
}

// ResponseSink sends downloads as HTTP attachments
type ResponseSink struct {
	w http.ResponseWriter
}

// NewResponseSink creates a sink writing to w
func NewResponseSink(w http.ResponseWriter) *ResponseSink {
	return &ResponseSink{w: w}
}

// Deliver writes the attachment headers and body
func (s *ResponseSink) Deliver(ctx context.Context, d Download) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := CleanFilename(d.Filename)
	if err != nil {
		return err
	}

	h := s.w.Header()
	h.Set("Content-Type", d.MIMEType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	h.Set("Content-Length", strconv.Itoa(len(d.Body)))
	if d.ID != uuid.Nil {
		h.Set(ExportIDHeader, d.ID.String())
	}
	s.w.WriteHeader(http.StatusOK)

	if _, err := s.w.Write(d.Body); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// MemorySink keeps deliveries in memory
type MemorySink struct {
	mu        sync.Mutex
	downloads []Download
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Deliver stores a copy of the download
func (s *MemorySink) Deliver(_ context.Context, d Download) error {
	d.Body = append([]byte(nil), d.Body...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloads = append(s.downloads, d)
	return nil
}

// Downloads returns the deliveries received so far
func (s *MemorySink) Downloads() []Download {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Download(nil), s.downloads...)
}

// Last returns the most recent delivery
func (s *MemorySink) Last() (Download, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.downloads) == 0 {
		return Download{}, false
	}
	return s.downloads[len(s.downloads)-1], true
}

// TeeSink delivers to Primary and then copies successful deliveries to
// Copy. Copy failures are logged and do not fail the delivery.
type TeeSink struct {
	Primary Sink
	Copy    Sink
	Logger  *slog.Logger
}

// Deliver implements Sink
func (s TeeSink) Deliver(ctx context.Context, d Download) error {
	if err := s.Primary.Deliver(ctx, d); err != nil {
		return err
	}
	if s.Copy == nil {
		return nil
	}

	if err := s.Copy.Deliver(context.WithoutCancel(ctx), d); err != nil {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.WarnContext(ctx, "Failed to copy export",
			slog.String("file_name", d.Filename),
			slog.String("error", err.Error()))
	}
	return nil
}
