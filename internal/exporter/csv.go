package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oshinlather/image-to-excel-converter/internal/table"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

// utf8BOM helps Excel recognize UTF-8 CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export of a table
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Append    bool
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Serialize renders the table as CSV with a UTF-8 BOM
func (w *CSVWriter) Serialize(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, t, WriteOptions{BOMPrefix: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes the header row and every data row. The header is skipped when
// appending.
func (w *CSVWriter) Write(out io.Writer, t *table.Table, options WriteOptions) error {
	if options.BOMPrefix && !options.Append {
		if _, err := out.Write(utf8BOM); err != nil {
			return domain.NewExportFailureError("write_csv", "failed to write BOM", err)
		}
	}

	writer := csv.NewWriter(out)
	if !options.Append && t.ColumnCount() > 0 {
		if err := writer.Write(t.Header()); err != nil {
			return domain.NewExportFailureError("write_csv", "failed to write headers", err)
		}
	}

	for i, row := range t.Rows() {
		record := make([]string, len(row))
		for c, v := range row {
			record[c] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return domain.NewExportFailureError("write_csv", fmt.Sprintf("failed to write record %d", i), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return domain.NewExportFailureError("write_csv", "failed to flush", err)
	}
	return nil
}

// WriteFile writes the table to a CSV file, creating the directory if needed
func (w *CSVWriter) WriteFile(path string, t *table.Table, options WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", path),
		slog.Int("record_count", t.RowCount()))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return w.Write(file, t, options)
}
