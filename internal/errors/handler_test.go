package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmexport/internal/infrastructure"
	"crmexport/internal/shared/testutil"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var problem map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&problem))
	return problem
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
	}{
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "wrapped context canceled",
			err:        fmt.Errorf("export: %w", context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "body too large",
			err:        fmt.Errorf("decode: %w", &http.MaxBytesError{Limit: 10}),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
			wantTitle:  "Payload Too Large",
		},
		{
			name:       "APIError",
			err:        ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Bad Request",
		},
		{
			name:       "unsupported format",
			err:        UnsupportedFormatError("xml", []string{"csv"}),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeUnsupportedFormat,
			wantTitle:  "Bad Request",
		},
		{
			name:       "AppError not found",
			err:        NewNotFoundError("export weekly.csv"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantTitle:  "Resource Not Found",
		},
		{
			name:       "AppError storage",
			err:        NewStorageError("failed to read export", errors.New("EIO")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeStorage,
			wantTitle:  "Storage Error",
		},
		{
			name:       "generic error",
			err:        errors.New("something went wrong"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logHandler := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/export/csv", nil)
			r = r.WithContext(infrastructure.WithTraceID(r.Context(), "trace-123"))

			handler.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, ContentTypeProblem, w.Header().Get("Content-Type"))

			problem := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, problem["type"])
			assert.Equal(t, tt.wantTitle, problem["title"])
			assert.Equal(t, float64(tt.wantStatus), problem["status"])
			assert.Equal(t, "/api/export/csv", problem["instance"])
			assert.Equal(t, "trace-123", problem["trace_id"])
			assert.NotContains(t, problem, "stack")

			assert.True(t, logHandler.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_HandleError_Nil(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	w := httptest.NewRecorder()

	NewErrorHandler(logger, false).HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, logHandler.Count())
}

func TestErrorHandler_StorageCauseHidden(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	w := httptest.NewRecorder()

	err := NewStorageError("failed to read export", errors.New("/secret/path")).WithContext("path", "/secret/path")
	NewErrorHandler(logger, false).HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), err)

	assert.NotContains(t, w.Body.String(), "/secret/path")
}

func TestErrorHandler_APIErrorExtensions(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	w := httptest.NewRecorder()

	NewErrorHandler(logger, false).HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil),
		ErrValidation("format", "format is required"))

	problem := decodeProblem(t, w)
	assert.Equal(t, CodeValidationFailed, problem["error_code"])
	assert.Equal(t, map[string]any{"field": "format", "message": "format is required"}, problem["details"])
}

func TestErrorHandler_IncludeStack(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	w := httptest.NewRecorder()

	NewErrorHandler(logger, true).HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("x"))

	problem := decodeProblem(t, w)
	stack, ok := problem["stack"].(string)
	require.True(t, ok)
	assert.True(t, strings.Contains(stack, "goroutine"))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, w)["type"])

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/export/csv", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, TypeMethodNotAllowed, problem["type"])
	assert.Contains(t, problem["detail"], "DELETE")
}

func TestRecoveryMiddleware(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("encoder exploded")
	})

	w := httptest.NewRecorder()
	RecoveryMiddleware(handler)(panicking).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/export/json", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, TypeInternal, problem["type"])
	assert.NotContains(t, problem, "panic")
	assert.True(t, logHandler.ContainsMessage("panic recovered"))
}

func TestRecoveryMiddleware_PassThrough(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	RecoveryMiddleware(NewErrorHandler(logger, false))(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
