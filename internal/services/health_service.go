package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/jonboulle/clockwork"

	"crmexport/internal/config"
	"crmexport/internal/exporter"
	"crmexport/internal/files"
	"crmexport/internal/infrastructure"
)

// ArchiveLister lists saved exports
type ArchiveLister interface {
	List(ctx context.Context, format exporter.Format, limit int) ([]files.FileInfo, error)
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	paths     *config.Paths
	archive   ArchiveLister
	clock     clockwork.Clock
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds  float64 `json:"uptime_seconds"`
	SavedExports   int     `json:"saved_exports"`
	SavedSizeBytes int64   `json:"saved_size_bytes"`
	GoVersion      string  `json:"go_version"`
	OS             string  `json:"os"`
	Arch           string  `json:"arch"`
}

// NewHealthService creates a health service. archive may be nil when
// exports are not archived.
func NewHealthService(version, buildTime string, paths *config.Paths, archive ArchiveLister, clock clockwork.Clock, logger *slog.Logger) *HealthService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger = infrastructure.WithComponent(logger, "health_service")

	logger.Debug("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		archive:   archive,
		clock:     clock,
		startTime: clock.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: hs.clock.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the exports directory is writable and the
// archive can be listed
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: hs.clock.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"exports_dir": hs.checkExportsDir(),
			"archive":     hs.checkArchive(ctx),
		},
	}

	for name, service := range status.Services {
		if service.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "Service not ready",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: hs.clock.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     hs.clock.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     hs.clock.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// SystemStats returns uptime and archive statistics
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	stats := SystemStats{
		UptimeSeconds: hs.clock.Since(hs.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if hs.archive == nil {
		return stats, nil
	}

	saved, err := hs.archive.List(ctx, "", 0)
	if err != nil {
		return stats, err
	}
	stats.SavedExports = len(saved)
	for _, f := range saved {
		stats.SavedSizeBytes += f.Size
	}
	return stats, nil
}

func (hs *HealthService) checkExportsDir() ServiceHealth {
	dir := hs.paths.ExportsDir
	if _, err := os.Stat(dir); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Exports directory not found: %s", dir),
		}
	}

	probe, err := os.CreateTemp(dir, ".ready-*")
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to exports directory: %v", err),
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkArchive(ctx context.Context) ServiceHealth {
	if hs.archive == nil {
		return ServiceHealth{Status: "ready", Message: "archiving disabled"}
	}
	if _, err := hs.archive.List(ctx, "", 1); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Archive error: %v", err),
		}
	}
	return ServiceHealth{Status: "ready"}
}
