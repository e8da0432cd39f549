package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crmexport/internal/config"
	"crmexport/internal/exporter"
	"crmexport/internal/files"
	"crmexport/internal/shared/testutil"
)

// MockArchive implements ArchiveLister for health service testing
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) List(ctx context.Context, format exporter.Format, limit int) ([]files.FileInfo, error) {
	args := m.Called(ctx, format, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]files.FileInfo), args.Error(1)
}

func newTestPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths := config.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func TestHealthService_HealthAndLiveness(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	clock := clockwork.NewFakeClockAt(testutil.FixtureTime)
	hs := NewHealthService("v1.2.3", "2024-03-01", newTestPaths(t), nil, clock, logger)

	clock.Advance(90 * time.Second)

	health := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "v1.2.3", health.Version)
	assert.Equal(t, testutil.FixtureTime.Add(90*time.Second), health.Timestamp)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Equal(t, 90.0, live.Runtime["uptime"])

	version := hs.Version()
	assert.Equal(t, "v1.2.3", version["version"])
	assert.Equal(t, "2024-03-01", version["build_time"])
	assert.Equal(t, testutil.FixtureTime.Format(time.RFC3339), version["start_time"])
}

func TestHealthService_ReadinessCheck(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)

	tests := []struct {
		name        string
		setup       func(t *testing.T, paths *config.Paths) ArchiveLister
		wantStatus  string
		wantService map[string]string
	}{
		{
			name: "ready without archive",
			setup: func(t *testing.T, paths *config.Paths) ArchiveLister {
				return nil
			},
			wantStatus:  "ready",
			wantService: map[string]string{"exports_dir": "ready", "archive": "ready"},
		},
		{
			name: "archive failure",
			setup: func(t *testing.T, paths *config.Paths) ArchiveLister {
				archive := &MockArchive{}
				archive.On("List", mock.Anything, exporter.Format(""), 1).Return(nil, errors.New("disk gone"))
				return archive
			},
			wantStatus:  "not_ready",
			wantService: map[string]string{"exports_dir": "ready", "archive": "not_ready"},
		},
		{
			name: "missing exports directory",
			setup: func(t *testing.T, paths *config.Paths) ArchiveLister {
				require.NoError(t, os.RemoveAll(paths.ExportsDir))
				return nil
			},
			wantStatus:  "not_ready",
			wantService: map[string]string{"exports_dir": "not_ready", "archive": "ready"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := newTestPaths(t)
			hs := NewHealthService("v1", "", paths, tt.setup(t, paths), nil, logger)

			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.wantStatus, status.Status)
			for name, want := range tt.wantService {
				assert.Equal(t, want, status.Services[name].Status, name)
			}

			// the write probe is removed again
			matches, err := filepath.Glob(filepath.Join(paths.ExportsDir, ".ready-*"))
			require.NoError(t, err)
			assert.Empty(t, matches)
		})
	}

	assert.True(t, logs.ContainsMessage("Service not ready"))
}

func TestHealthService_SystemStats(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	archive := &MockArchive{}
	archive.On("List", mock.Anything, exporter.Format(""), 0).Return([]files.FileInfo{
		{Name: "a.csv", Size: 10},
		{Name: "b.json", Size: 32},
	}, nil)

	hs := NewHealthService("v1", "", newTestPaths(t), archive, clockwork.NewFakeClock(), logger)

	stats, err := hs.SystemStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SavedExports)
	assert.Equal(t, int64(42), stats.SavedSizeBytes)
	assert.NotEmpty(t, stats.GoVersion)
	archive.AssertExpectations(t)
}
