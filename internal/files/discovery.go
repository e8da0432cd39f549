package files

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"crmexport/internal/exporter"
)

// MIMEOctetStream is served for files whose format is not recognised
const MIMEOctetStream = "application/octet-stream"

var zipMagic = []byte("PK\x03\x04")

// FileInfo describes a saved export
type FileInfo struct {
	Name     string          `json:"name"`
	Size     int64           `json:"size"`
	ModTime  time.Time       `json:"modified"`
	Format   exporter.Format `json:"format,omitempty"`
	MIMEType string          `json:"mime_type"`
	Path     string          `json:"-"`
}

// Discovery scans a directory for saved exports
type Discovery struct {
	dir string
}

// NewDiscovery creates a discovery instance for dir
func NewDiscovery(dir string) *Discovery {
	return &Discovery{dir: dir}
}

// FindExports returns every regular file in the directory, newest first.
// Hidden files are skipped. A missing directory yields an empty list.
func (d *Discovery) FindExports() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", d.dir, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, describe(filepath.Join(d.dir, entry.Name()), info))
	}

	SortNewestFirst(files)
	return files, nil
}

// FindByFormat returns the saved exports of one format, newest first
func (d *Discovery) FindByFormat(format exporter.Format) ([]FileInfo, error) {
	all, err := d.FindExports()
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(all))
	for _, f := range all {
		if f.Format == format {
			files = append(files, f)
		}
	}
	return files, nil
}

// SortNewestFirst orders files by modification time, newest first, then
// by name
func SortNewestFirst(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}

func describe(path string, info os.FileInfo) FileInfo {
	format, ok := DetectFormat(path)
	mimeType := MIMEOctetStream
	if ok {
		mimeType = format.MIMEType()
	}

	return FileInfo{
		Name:     info.Name(),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Format:   format,
		MIMEType: mimeType,
		Path:     path,
	}
}

// DetectFormat maps a saved file to the export format that produced it.
// Filtered Excel reports are CSV text saved with an .xlsx suffix, so .xlsx
// files are only treated as workbooks when they are zip archives.
func DetectFormat(path string) (exporter.Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return exporter.FormatCSV, true
	case ".json":
		return exporter.FormatJSON, true
	case ".pdf":
		return exporter.FormatPDF, true
	case ".xlsx", ".xls":
		if isZip(path) {
			return exporter.FormatWorkbook, true
		}
		return exporter.FormatExcel, true
	default:
		return "", false
	}
}

func isZip(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, zipMagic)
}
