package exporter

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oshinlather/image-to-excel-converter/internal/table"
)

// DefaultBaseName is the file name prefix of exported documents
const DefaultBaseName = "extracted_text"

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat parses "xlsx" or "csv"; empty means xlsx
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Document is a rendered export
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Exporter renders table snapshots into downloadable documents
type Exporter struct {
	xlsx     *XLSXWriter
	csv      *CSVWriter
	baseName string
	now      func() time.Time
}

// New creates an exporter. Empty names select the defaults.
func New(sheetName, baseName string, logger *slog.Logger) *Exporter {
	if baseName == "" {
		baseName = DefaultBaseName
	}
	return &Exporter{
		xlsx:     NewXLSXWriter(sheetName, logger),
		csv:      NewCSVWriter(logger),
		baseName: baseName,
		now:      time.Now,
	}
}

// Export renders t in the given format. meta is only used by xlsx.
func (e *Exporter) Export(t *table.Table, format Format, meta *Metadata) (Document, error) {
	at := e.now()
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = e.csv.Serialize(t)
	case FormatXLSX, "":
		format = FormatXLSX
		data, err = e.xlsx.Serialize(t, meta)
	default:
		return Document{}, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return Document{}, err
	}
	return Document{
		Filename:    Filename(e.baseName, at, string(format)),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// Filename builds <base>_<YYYYMMDD_HHMMSS>.<ext>. The timestamp makes names
// unique in practice, not by guarantee.
func Filename(base string, at time.Time, ext string) string {
	base = sanitizeBase(base)
	if base == "" {
		base = DefaultBaseName
	}
	if ext == "" {
		ext = string(FormatXLSX)
	}
	return fmt.Sprintf("%s_%s.%s", base, at.Format("20060102_150405"), strings.TrimPrefix(ext, "."))
}

func sanitizeBase(base string) string {
	base = strings.TrimSpace(base)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, base)
}
