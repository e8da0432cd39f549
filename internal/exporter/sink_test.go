package exporter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmexport/internal/config"
)

func TestCleanFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "export.csv", want: "export.csv"},
		{name: "trimmed", input: "  report.pdf ", want: "report.pdf"},
		{name: "empty", input: "", wantErr: true},
		{name: "dot", input: ".", wantErr: true},
		{name: "parent", input: "..", wantErr: true},
		{name: "traversal", input: "../etc/passwd", wantErr: true},
		{name: "windows separator", input: `..\boot.ini`, wantErr: true},
		{name: "nul byte", input: "a\x00b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanFilename(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFilename)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileSink_Deliver(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	sink := NewFileSink(paths, nil)

	err := sink.Deliver(context.Background(), Download{Filename: "a.csv", MIMEType: MIMECSV, Body: []byte("x")})
	require.NoError(t, err)

	content, err := os.ReadFile(paths.GetExportPath("a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))

	err = sink.Deliver(context.Background(), Download{Filename: "../escape.csv", Body: []byte("x")})
	assert.ErrorIs(t, err, ErrInvalidFilename)
	assert.NoFileExists(t, paths.Resolve("data/escape.csv"))
}

func TestFileSink_CanceledContext(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFileSink(paths, nil).Deliver(ctx, Download{Filename: "a.csv"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, paths.GetExportPath("a.csv"))
}

func TestResponseSink_Deliver(t *testing.T) {
	rec := httptest.NewRecorder()

	id := uuid.New()
	err := NewResponseSink(rec).Deliver(context.Background(), Download{
		ID:       id,
		Filename: "my report.csv",
		MIMEType: MIMECSV,
		Body:     []byte("\"a\"\n\"1\""),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MIMECSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="my report.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "7", rec.Header().Get("Content-Length"))
	assert.Equal(t, id.String(), rec.Header().Get(ExportIDHeader))
	assert.Equal(t, "\"a\"\n\"1\"", rec.Body.String())
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	_, ok := sink.Last()
	assert.False(t, ok)

	body := []byte("abc")
	require.NoError(t, sink.Deliver(context.Background(), Download{Filename: "a", Body: body}))
	body[0] = 'z'

	last, ok := sink.Last()
	require.True(t, ok)
	assert.Equal(t, "abc", string(last.Body))
	assert.Len(t, sink.Downloads(), 1)
}

func TestTeeSink(t *testing.T) {
	primary := NewMemorySink()
	copySink := NewMemorySink()
	failing := SinkFunc(func(context.Context, Download) error { return errors.New("disk full") })
	d := Download{Filename: "a.csv", Body: []byte("x")}

	t.Run("copies after primary", func(t *testing.T) {
		require.NoError(t, TeeSink{Primary: primary, Copy: copySink}.Deliver(context.Background(), d))
		assert.Len(t, primary.Downloads(), 1)
		assert.Len(t, copySink.Downloads(), 1)
	})

	t.Run("copy failure is not fatal", func(t *testing.T) {
		assert.NoError(t, TeeSink{Primary: primary, Copy: failing}.Deliver(context.Background(), d))
	})

	t.Run("primary failure skips copy", func(t *testing.T) {
		before := len(copySink.Downloads())
		err := TeeSink{Primary: failing, Copy: copySink}.Deliver(context.Background(), d)
		assert.EqualError(t, err, "disk full")
		assert.Len(t, copySink.Downloads(), before)
	})

	t.Run("nil copy", func(t *testing.T) {
		assert.NoError(t, TeeSink{Primary: primary}.Deliver(context.Background(), d))
	})
}
