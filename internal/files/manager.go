package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"crmexport/internal/config"
	apierrors "crmexport/internal/errors"
	"crmexport/internal/exporter"
	"crmexport/internal/infrastructure"
)

// Manager serves the saved-export archive below paths.ExportsDir
type Manager struct {
	paths     *config.Paths
	discovery *Discovery
	logger    *slog.Logger
}

// NewManager creates a new archive manager
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	return &Manager{
		paths:     paths,
		discovery: NewDiscovery(paths.ExportsDir),
		logger:    infrastructure.WithComponent(logger, "export_archive"),
	}
}

// List returns saved exports, newest first. An empty format lists all of
// them; limit <= 0 means no limit.
func (m *Manager) List(ctx context.Context, format exporter.Format, limit int) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		files []FileInfo
		err   error
	)
	if format == "" {
		files, err = m.discovery.FindExports()
	} else {
		files, err = m.discovery.FindByFormat(format)
	}
	if err != nil {
		return nil, apierrors.NewStorageError("failed to list exports", err).
			WithContext("dir", m.paths.ExportsDir)
	}

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	m.logger.DebugContext(ctx, "Listed saved exports",
		slog.String("format", string(format)),
		slog.Int("count", len(files)))

	return files, nil
}

// Stat describes one saved export
func (m *Manager) Stat(ctx context.Context, name string) (FileInfo, error) {
	path, err := m.resolve(name)
	if err != nil {
		return FileInfo{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, m.notFound(ctx, name, err)
	}
	if !info.Mode().IsRegular() {
		return FileInfo{}, apierrors.NewNotFoundError("export file").WithContext("name", name)
	}

	return describe(path, info), nil
}

// Open opens a saved export for reading. The caller closes the file.
func (m *Manager) Open(ctx context.Context, name string) (*os.File, FileInfo, error) {
	info, err := m.Stat(ctx, name)
	if err != nil {
		return nil, FileInfo{}, err
	}

	f, err := os.Open(info.Path)
	if err != nil {
		return nil, FileInfo{}, m.notFound(ctx, name, err)
	}

	m.logger.DebugContext(ctx, "Opened saved export",
		slog.String("file_name", info.Name),
		slog.Int64("size_bytes", info.Size))

	return f, info, nil
}

// Delete removes a saved export
func (m *Manager) Delete(ctx context.Context, name string) error {
	info, err := m.Stat(ctx, name)
	if err != nil {
		return err
	}

	if err := os.Remove(info.Path); err != nil {
		return m.notFound(ctx, name, err)
	}

	m.logger.InfoContext(ctx, "Deleted saved export", slog.String("file_name", info.Name))
	return nil
}

// resolve maps an archive name to its path. Only plain file names are
// accepted.
func (m *Manager) resolve(name string) (string, error) {
	clean, err := exporter.CleanFilename(name)
	if err != nil {
		return "", apierrors.NewAppValidationError(err.Error()).WithContext("name", name)
	}
	return m.paths.GetExportPath(clean), nil
}

func (m *Manager) notFound(ctx context.Context, name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apierrors.NewNotFoundError("export file").WithContext("name", name)
	}

	m.logger.ErrorContext(ctx, "Saved export access failed",
		slog.String("file_name", name),
		slog.String("error", err.Error()))
	return apierrors.NewStorageError(fmt.Sprintf("failed to access %s", name), err)
}
