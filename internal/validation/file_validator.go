package validation

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

// InputExtensions lists the file types the converter can recognize
var InputExtensions = []string{
	".txt", ".json", ".pdf",
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp",
}

// FileValidator checks converter inputs and outputs on disk
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputFile checks that path is a readable, non-empty file of a
// supported type no larger than maxBytes. A maxBytes of zero skips the
// size check.
func (v *FileValidator) ValidateInputFile(path string, maxBytes int64) error {
	info, err := v.stat(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" && !slices.Contains(InputExtensions, ext) {
		v.logger.Error("Unsupported input type",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s has unsupported type %s", path, ext)
	}
	if info.Size() == 0 {
		v.logger.Error("Input file is empty",
			slog.String("file", path))
		return fmt.Errorf("file %s is empty", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		v.logger.Error("Input file too large",
			slog.String("file", path),
			slog.Int64("size", info.Size()),
			slog.Int64("limit", maxBytes))
		return fmt.Errorf("file %s exceeds %d bytes", path, maxBytes)
	}

	v.logger.Debug("Input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	file, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := file.Name()
	file.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateWorkbook opens a written xlsx file and checks that it carries
// the data sheet.
func (v *FileValidator) ValidateWorkbook(path, sheetName string) error {
	if _, err := v.stat(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" {
		return fmt.Errorf("file %s is not an Excel file (extension: %s)", path, ext)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		v.logger.Error("Workbook is unreadable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not a valid workbook: %w", path, err)
	}
	defer wb.Close()

	if idx, err := wb.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return fmt.Errorf("workbook %s has no %q sheet", path, sheetName)
	}
	return nil
}

// ValidateCSVFile checks that a written csv file parses and has a header row
func (v *FileValidator) ValidateCSVFile(path string) error {
	if _, err := v.stat(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		return fmt.Errorf("file %s is not a CSV file (extension: %s)", path, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 0
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return fmt.Errorf("file %s has no header row", path)
		}
		v.logger.Error("CSV file is malformed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not valid CSV: %w", path, err)
	}
	return nil
}

// ValidateExport dispatches on the output extension
func (v *FileValidator) ValidateExport(path, sheetName string) error {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return v.ValidateCSVFile(path)
	}
	return v.ValidateWorkbook(path, sheetName)
}

func (v *FileValidator) stat(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return nil, fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	return info, nil
}
