package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmexport/internal/config"
	apierrors "crmexport/internal/errors"
	"crmexport/internal/exporter"
	"crmexport/internal/shared/testutil"
)

func newTestApp(t *testing.T, mutate func(cfg *config.Config)) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	logger, _ := testutil.NewTestLogger(t)
	a, err := NewApplication(cfg,
		WithLogger(logger),
		WithClock(clockwork.NewFakeClockAt(testutil.FixtureTime)),
		WithMetricsRegistry(promclient.NewRegistry()),
	)
	require.NoError(t, err)
	return a
}

func (a *Application) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func customersBody(filename string) string {
	return `{"data":` + testutil.CustomersJSON + `,"filename":"` + filename + `"}`
}

func TestNewApplication(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewApplication(nil)
		assert.Error(t, err)
	})

	t.Run("unknown locale", func(t *testing.T) {
		cfg := config.Default()
		cfg.Paths.BaseDir = t.TempDir()
		cfg.Export.Locale = "xx_NOPE"
		logger, _ := testutil.NewTestLogger(t)

		_, err := NewApplication(cfg, WithLogger(logger), WithMetricsRegistry(promclient.NewRegistry()))
		assert.ErrorContains(t, err, "xx_NOPE")
	})

	t.Run("wires services and directories", func(t *testing.T) {
		a := newTestApp(t, func(cfg *config.Config) { cfg.Server.Port = 9191 })

		assert.DirExists(t, a.Paths.ExportsDir)
		assert.NotNil(t, a.Services.Exporter)
		assert.NotNil(t, a.Services.Export)
		assert.NotNil(t, a.Services.Health)
		assert.NotNil(t, a.Services.Archive)
		assert.Equal(t, ":9191", a.Server.Addr)
		assert.Equal(t, a.Config.Server.MaxHeaderBytes, a.Server.MaxHeaderBytes)
	})

	t.Run("archive disabled", func(t *testing.T) {
		a := newTestApp(t, func(cfg *config.Config) { cfg.Export.Archive = false })
		assert.Nil(t, a.Services.Archive)
	})
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApp(t, nil)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantType   string
	}{
		{"health", http.MethodGet, "/api/health", http.StatusOK, "application/json"},
		{"readiness", http.MethodGet, "/api/health/ready", http.StatusOK, "application/json"},
		{"liveness", http.MethodGet, "/api/health/live", http.StatusOK, "application/json"},
		{"stats", http.MethodGet, "/api/health/stats", http.StatusOK, "application/json"},
		{"version", http.MethodGet, "/api/version", http.StatusOK, "application/json"},
		{"file list", http.MethodGet, "/api/exports/files", http.StatusOK, "application/json"},
		{"unknown route", http.MethodGet, "/api/nothing", http.StatusNotFound, apierrors.ContentTypeProblem},
		{"unsupported format", http.MethodPost, "/api/exports/docx", http.StatusBadRequest, apierrors.ContentTypeProblem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ""
			if tt.method == http.MethodPost {
				body = customersBody("x.docx")
			}
			w := a.do(tt.method, tt.target, body, nil)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), tt.wantType), w.Header().Get("Content-Type"))
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_ExportIsArchived(t *testing.T) {
	a := newTestApp(t, nil)

	w := a.do(http.MethodPost, "/api/exports/csv", customersBody("customers.csv"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, exporter.MIMECSV, w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(exporter.ExportIDHeader))

	saved, err := os.ReadFile(filepath.Join(a.Paths.ExportsDir, "customers.csv"))
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), string(saved))

	w = a.do(http.MethodGet, "/api/exports/files", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Files []struct {
			Name   string `json:"name"`
			Format string `json:"format"`
		} `json:"files"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "customers.csv", list.Files[0].Name)
	assert.Equal(t, "csv", list.Files[0].Format)

	w = a.do(http.MethodGet, "/api/exports/files/customers.csv", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(saved), w.Body.String())
}

func TestApplication_ArchiveDisabled(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) { cfg.Export.Archive = false })

	w := a.do(http.MethodPost, "/api/exports/json", customersBody("customers.json"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	entries, err := os.ReadDir(a.Paths.ExportsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/exports/files", "", nil).Code)
}

func TestApplication_CORS(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Security.AllowedOrigins = []string{"https://crm.example.com"}
	})

	w := a.do(http.MethodOptions, "/api/exports/csv", "", map[string]string{
		"Origin":                        "https://crm.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://crm.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	exposed := w.Header().Get("Access-Control-Expose-Headers")
	assert.Contains(t, exposed, exporter.ExportIDHeader)
	assert.Contains(t, exposed, "Content-Disposition")

	w = a.do(http.MethodGet, "/api/health", "", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestApplication_RateLimit(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Security.RateLimit.RPS = 0.0001
		cfg.Security.RateLimit.Burst = 1
	})

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/health", "", nil).Code)
	w := a.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// metrics bypass the limiter
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/metrics", "", nil).Code)
}

func TestApplication_Metrics(t *testing.T) {
	a := newTestApp(t, nil)

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/exports/csv", customersBody("m.csv"), nil).Code)

	w := a.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests")
	assert.Contains(t, w.Body.String(), "exports")
}

func TestApplication_StartStop(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) { cfg.Server.Port = 0 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Start(ctx, cancel))
	assert.NoError(t, a.Stop(context.Background()))
	assert.NoError(t, ctx.Err())
}
