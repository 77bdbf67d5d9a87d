package exporter

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"github.com/oshinlather/image-to-excel-converter/internal/table"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

const (
	// DefaultSheetName is the name of the data sheet
	DefaultSheetName = "Extracted Data"
	// MetadataSheetName is the name of the optional metadata sheet
	MetadataSheetName = "Metadata"

	maxColumns   = 16384
	maxDataRows  = 1048575 // one row is taken by the header
	maxCellChars = 32767
	maxColWidth  = 60.0
	minColWidth  = 8.0
)

// Metadata is written to a second sheet when requested
type Metadata struct {
	SourceFile     string
	ExtractionDate time.Time
	ImageSize      string
}

// XLSXWriter renders tables as Excel workbooks
type XLSXWriter struct {
	sheetName string
	logger    *slog.Logger
}

// NewXLSXWriter creates a workbook writer. An empty sheet name selects
// DefaultSheetName.
func NewXLSXWriter(sheetName string, logger *slog.Logger) *XLSXWriter {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{sheetName: sheetName, logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// SheetName returns the data sheet name
func (w *XLSXWriter) SheetName() string { return w.sheetName }

// Serialize renders the table into workbook bytes
func (w *XLSXWriter) Serialize(t *table.Table, meta *Metadata) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, t, meta); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders the table: a bold header row, one row per data row, typed
// number formats, right-aligned numeric columns and widths sized to content.
// A table without columns produces an empty data sheet.
func (w *XLSXWriter) Write(out io.Writer, t *table.Table, meta *Metadata) error {
	if err := checkLimits(t); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", w.sheetName); err != nil {
		return domain.NewExportFailureError("write_xlsx", fmt.Sprintf("invalid sheet name %q", w.sheetName), err)
	}

	if t.ColumnCount() > 0 {
		if err := w.writeData(f, t); err != nil {
			return err
		}
	}
	if meta != nil {
		if err := writeMetadata(f, meta); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return domain.NewExportFailureError("write_xlsx", "failed to write workbook", err)
	}

	w.logger.Debug("workbook written",
		slog.Int("rows", t.RowCount()),
		slog.Int("columns", t.ColumnCount()),
		slog.Bool("metadata", meta != nil))
	return nil
}

func (w *XLSXWriter) writeData(f *excelize.File, t *table.Table) error {
	sheet := w.sheetName
	fail := func(msg string, err error) error {
		return domain.NewExportFailureError("write_xlsx", msg, err)
	}

	header := make([]interface{}, t.ColumnCount())
	widths := make([]float64, t.ColumnCount())
	for c, name := range t.Header() {
		header[c] = name
		widths[c] = displayWidth(name)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fail("failed to write header", err)
	}

	for r, row := range t.Rows() {
		cells := make([]interface{}, len(row))
		for c, v := range row {
			cells[c] = v.Raw()
			if dw := displayWidth(formatCell(v)); dw > widths[c] {
				widths[c] = dw
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fail("invalid cell reference", err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fail(fmt.Sprintf("failed to write row %d", r+1), err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fail("failed to create header style", err)
	}
	last, _ := excelize.ColumnNumberToName(t.ColumnCount())
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return fail("failed to style header", err)
	}

	for c, col := range t.Columns() {
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return fail("invalid column", err)
		}
		width := widths[c] + 2
		if width < minColWidth {
			width = minColWidth
		}
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return fail("failed to size column", err)
		}

		if t.RowCount() == 0 {
			continue
		}
		style, err := f.NewStyle(columnStyle(col))
		if err != nil {
			return fail("failed to create column style", err)
		}
		bottom := fmt.Sprintf("%s%d", name, t.RowCount()+1)
		if err := f.SetCellStyle(sheet, name+"2", bottom, style); err != nil {
			return fail("failed to style column", err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fail("failed to freeze header", err)
	}
	return nil
}

// columnStyle maps a column kind to its number format and alignment
func columnStyle(col table.Column) *excelize.Style {
	right := &excelize.Alignment{Horizontal: "right"}
	switch col.Kind {
	case table.KindInteger:
		return &excelize.Style{NumFmt: 1, Alignment: right} // 0
	case table.KindDecimal:
		return &excelize.Style{NumFmt: 2, Alignment: right} // 0.00
	case table.KindCurrency:
		symbol := col.Symbol
		if symbol == "" {
			symbol = table.DefaultCurrencySymbol
		}
		format := currencyFormat(symbol)
		return &excelize.Style{CustomNumFmt: &format, Alignment: right}
	}
	return &excelize.Style{NumFmt: 49, Alignment: &excelize.Alignment{Horizontal: "left", WrapText: true}} // @
}

func writeMetadata(f *excelize.File, meta *Metadata) error {
	if _, err := f.NewSheet(MetadataSheetName); err != nil {
		return domain.NewExportFailureError("write_xlsx", "failed to add metadata sheet", err)
	}
	date := meta.ExtractionDate
	if date.IsZero() {
		date = time.Now()
	}
	rows := [][]interface{}{
		{"Metadata", "Value"},
		{"Source File", meta.SourceFile},
		{"Extraction Date", date.Format("2006-01-02 15:04:05")},
		{"Image Size", meta.ImageSize},
	}
	for i := range rows {
		if err := f.SetSheetRow(MetadataSheetName, fmt.Sprintf("A%d", i+1), &rows[i]); err != nil {
			return domain.NewExportFailureError("write_xlsx", "failed to write metadata", err)
		}
	}
	if err := f.SetColWidth(MetadataSheetName, "A", "B", 24); err != nil {
		return domain.NewExportFailureError("write_xlsx", "failed to size metadata sheet", err)
	}
	return nil
}

// checkLimits rejects tables Excel cannot hold
func checkLimits(t *table.Table) error {
	if t.ColumnCount() > maxColumns {
		return domain.NewExportFailureError("write_xlsx",
			fmt.Sprintf("table has %d columns, the sheet limit is %d", t.ColumnCount(), maxColumns), nil)
	}
	if t.RowCount() > maxDataRows {
		return domain.NewExportFailureError("write_xlsx",
			fmt.Sprintf("table has %d rows, the sheet limit is %d", t.RowCount(), maxDataRows), nil)
	}
	for _, name := range t.Header() {
		if len([]rune(name)) > maxCellChars {
			return domain.NewExportFailureError("write_xlsx", "column name exceeds the cell text limit", nil)
		}
	}
	for r, row := range t.Rows() {
		for c, v := range row {
			if v.Kind() == table.ValueText && len([]rune(v.String())) > maxCellChars {
				return domain.NewExportFailureError("write_xlsx",
					fmt.Sprintf("cell (%d, %d) exceeds %d characters", r, c, maxCellChars), nil).
					WithContext("row", r).
					WithContext("column", c)
			}
		}
	}
	return nil
}

// displayWidth approximates the Excel column width of s. Wide (CJK) runes
// count double; multi-line text uses its longest line.
func displayWidth(s string) float64 {
	longest := 0
	for _, line := range bytes.Split([]byte(s), []byte("\n")) {
		if w := runewidth.StringWidth(string(line)); w > longest {
			longest = w
		}
	}
	return float64(longest)
}
