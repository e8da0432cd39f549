package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmexport/internal/exporter"
	"crmexport/internal/records"
	"crmexport/internal/shared/testutil"
)

func newTestExportService(t *testing.T, archive exporter.Sink) *ExportService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	exp, err := exporter.New(exporter.Config{
		Sink:   exporter.NewMemorySink(),
		Logger: logger,
		Clock:  clockwork.NewFakeClockAt(testutil.FixtureTime),
	})
	require.NoError(t, err)
	return NewExportService(exp, archive, logger)
}

func TestExportService_Export(t *testing.T) {
	tests := []struct {
		name         string
		req          ExportRequest
		wantStatus   exporter.Status
		wantFilename string
		wantMIME     string
		wantRecords  int
	}{
		{
			name:         "csv default name",
			req:          ExportRequest{Format: "csv", Data: testutil.Customers()},
			wantStatus:   exporter.StatusDelivered,
			wantFilename: "export.csv",
			wantMIME:     exporter.MIMECSV,
			wantRecords:  4,
		},
		{
			name:         "json filtered",
			req:          ExportRequest{Format: "JSON", Data: testutil.Customers(), Filename: "pune.json", Filters: exporter.Filters{{Field: "city", Value: "pune"}}},
			wantStatus:   exporter.StatusDelivered,
			wantFilename: "pune.json",
			wantMIME:     exporter.MIMEJSON,
			wantRecords:  2,
		},
		{
			name:         "excel",
			req:          ExportRequest{Format: "excel", Data: testutil.Leads(), Filename: "leads.csv"},
			wantStatus:   exporter.StatusDelivered,
			wantFilename: "leads.csv",
			wantMIME:     exporter.MIMEExcel,
			wantRecords:  2,
		},
		{
			name:         "pdf",
			req:          ExportRequest{Format: "pdf", Data: testutil.Leads(), Title: "Leads", Columns: []string{"lead"}},
			wantStatus:   exporter.StatusDelivered,
			wantFilename: "export.pdf",
			wantMIME:     exporter.MIMEText,
			wantRecords:  2,
		},
		{
			name:         "workbook",
			req:          ExportRequest{Format: "workbook", Data: testutil.Leads()},
			wantStatus:   exporter.StatusDelivered,
			wantFilename: "export.xlsx",
			wantMIME:     exporter.MIMEWorkbook,
			wantRecords:  2,
		},
		{
			name:         "dated report",
			req:          ExportRequest{Format: "json", Data: testutil.Customers(), ReportName: "customers", Filename: "ignored.json"},
			wantStatus:   exporter.StatusDelivered,
			wantFilename: "customers_2024-03-05.json",
			wantMIME:     exporter.MIMEJSON,
			wantRecords:  4,
		},
		{
			name:         "no data",
			req:          ExportRequest{Format: "csv"},
			wantStatus:   exporter.StatusSkipped,
			wantFilename: "export.csv",
		},
		{
			name:         "nil json data with filters",
			req:          ExportRequest{Format: "json", Filters: exporter.Filters{{Field: "city", Value: "Pune"}}},
			wantStatus:   exporter.StatusSkipped,
			wantFilename: "export.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestExportService(t, nil)
			sink := exporter.NewMemorySink()

			result, err := s.Export(context.Background(), sink, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantFilename, result.Filename)

			download, delivered := sink.Last()
			assert.Equal(t, result.OK(), delivered)
			if delivered {
				assert.Equal(t, tt.wantMIME, download.MIMEType)
				assert.Equal(t, result.ID, download.ID)
				assert.Equal(t, tt.wantRecords, result.Records)
			}
		})
	}
}

func TestExportService_UnsupportedFormat(t *testing.T) {
	s := newTestExportService(t, nil)
	sink := exporter.NewMemorySink()

	_, err := s.Export(context.Background(), sink, ExportRequest{Format: "docx", Data: testutil.Leads()})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	assert.Empty(t, sink.Downloads())
}

func TestExportService_Archive(t *testing.T) {
	archive := exporter.NewMemorySink()
	s := newTestExportService(t, archive)
	ctx := context.Background()

	primary := exporter.NewMemorySink()
	result, err := s.Export(ctx, primary, ExportRequest{Format: "csv", Data: testutil.Leads(), Filename: "leads.csv"})
	require.NoError(t, err)
	require.True(t, result.OK())

	archived, ok := archive.Last()
	require.True(t, ok)
	sent, _ := primary.Last()
	assert.Equal(t, sent, archived)

	// skipped exports are not archived
	_, err = s.Export(ctx, primary, ExportRequest{Format: "csv", Data: records.Collection{}})
	require.NoError(t, err)
	assert.Len(t, archive.Downloads(), 1)

	// a failed primary delivery is not archived
	failing := exporter.SinkFunc(func(context.Context, exporter.Download) error { return errors.New("client gone") })
	result, err = s.Export(ctx, failing, ExportRequest{Format: "csv", Data: testutil.Leads()})
	require.NoError(t, err)
	assert.Equal(t, exporter.StatusFailed, result.Status)
	assert.Len(t, archive.Downloads(), 1)
}

func TestExportService_ExportBatch(t *testing.T) {
	s := newTestExportService(t, nil)
	sections := []exporter.Section{
		{Title: "Customers", Data: testutil.Customers()},
		{Title: "Leads", Data: testutil.Leads()},
	}

	tests := []struct {
		format       string
		wantStatus   exporter.Status
		wantFilename string
	}{
		{"json", exporter.StatusDelivered, "weekly_2024-03-05.json"},
		{"csv", exporter.StatusDelivered, "weekly_2024-03-05.csv"},
		{"workbook", exporter.StatusDelivered, "weekly_2024-03-05.xlsx"},
		{"pdf", exporter.StatusIgnored, "weekly_2024-03-05.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			sink := exporter.NewMemorySink()
			result := s.ExportBatch(context.Background(), sink, BatchRequest{Sections: sections, Name: "weekly", Format: tt.format})
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantFilename, result.Filename)
			assert.Equal(t, result.OK(), len(sink.Downloads()) == 1)
		})
	}
}

func TestExportService_Summary(t *testing.T) {
	s := newTestExportService(t, nil)

	summary := s.Summary(testutil.Customers(), []string{"deal_value"})
	assert.Equal(t, 4, summary.TotalRecords)
	require.Contains(t, summary.Stats, "deal_value")
	assert.Equal(t, 20500.5, summary.Stats["deal_value"].Total)
}
