package exporter

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Workbook is the data sheet of an exported workbook read back as strings
type Workbook struct {
	Sheets []string
	Header []string
	Rows   [][]string
}

// ReadWorkbook opens workbook bytes and returns the named sheet (the first
// sheet when name is empty). Cell values are raw, so 10.00 reads as "10".
// Rows are padded to the header width.
func ReadWorkbook(data []byte, name string) (Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Workbook{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	wb := Workbook{Sheets: f.GetSheetList()}
	if len(wb.Sheets) == 0 {
		return Workbook{}, fmt.Errorf("no sheets found")
	}
	if name == "" {
		name = wb.Sheets[0]
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Workbook{}, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		return wb, nil
	}

	wb.Header = rows[0]
	for _, r := range rows[1:] {
		if len(r) < len(wb.Header) {
			r = append(r, make([]string, len(wb.Header)-len(r))...)
		}
		wb.Rows = append(wb.Rows, r)
	}
	return wb, nil
}
