package table

import (
	"fmt"
	"strings"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

// SerialColumnName is the name of the auto-numbered first column
const SerialColumnName = "S.No."

// Column describes one column of a table
type Column struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Position int    `json:"position"`
	Symbol   string `json:"symbol,omitempty"`
	Serial   bool   `json:"serial,omitempty"`
}

// ColumnSpec is the caller-provided part of a column
type ColumnSpec struct {
	Name   string
	Kind   Kind
	Symbol string
}

// Row is an ordered list of cells, one per column
type Row []CellValue

// Table is the mutable in-memory table. Every row has exactly one cell per
// column, positions are dense, and the serial column, when present, is first
// and numbered 1..N. A failed operation leaves the table unchanged.
//
// Table is not safe for concurrent use; its owner serializes access.
type Table struct {
	columns []Column
	rows    []Row
	serial  bool
}

// New builds a table from column specs and rows. Short rows are padded with
// empty markers, every cell is coerced to its column kind, and a serial
// column is prepended when withSerial is set and there is at least one row.
func New(specs []ColumnSpec, rows []Row, withSerial bool) (*Table, error) {
	t := &Table{}
	taken := map[string]bool{}
	if withSerial && len(rows) > 0 {
		taken[SerialColumnName] = true
	}
	for i, spec := range specs {
		t.columns = append(t.columns, Column{
			Name:   uniqueName(spec.Name, taken, i),
			Kind:   spec.Kind,
			Symbol: currencySymbol(spec),
		})
	}

	for i, r := range rows {
		if len(r) > len(specs) {
			return nil, domain.NewIndexOutOfRangeError("new_table", "cell", len(r)-1, len(specs)-1).
				WithContext("row", i)
		}
		row := make(Row, len(specs))
		for c := range specs {
			if c >= len(r) {
				row[c] = Empty()
				continue
			}
			v, err := Coerce(r[c], t.columns[c])
			if err != nil {
				return nil, err
			}
			row[c] = v
		}
		t.rows = append(t.rows, row)
	}

	if withSerial && len(t.rows) > 0 {
		t.columns = append([]Column{{Name: SerialColumnName, Kind: KindInteger, Serial: true}}, t.columns...)
		for i := range t.rows {
			t.rows[i] = append(Row{Empty()}, t.rows[i]...)
		}
		t.serial = true
		t.renumber()
	}
	t.reposition()
	return t, nil
}

// RowCount returns the number of rows
func (t *Table) RowCount() int { return len(t.rows) }

// ColumnCount returns the number of columns
func (t *Table) ColumnCount() int { return len(t.columns) }

// HasSerial reports whether the first column is the serial column
func (t *Table) HasSerial() bool { return t.serial }

// Columns returns a copy of the column list
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column returns the column at index
func (t *Table) Column(index int) (Column, error) {
	if index < 0 || index >= len(t.columns) {
		return Column{}, domain.NewIndexOutOfRangeError("column", "column", index, len(t.columns)-1)
	}
	return t.columns[index], nil
}

// Header returns the column names in order
func (t *Table) Header() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Rows returns a copy of all rows
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = append(Row(nil), r...)
	}
	return out
}

// Cell returns the value at row, column
func (t *Table) Cell(row, column int) (CellValue, error) {
	if row < 0 || row >= len(t.rows) {
		return Empty(), domain.NewIndexOutOfRangeError("cell", "row", row, len(t.rows)-1)
	}
	if column < 0 || column >= len(t.columns) {
		return Empty(), domain.NewIndexOutOfRangeError("cell", "column", column, len(t.columns)-1)
	}
	return t.rows[row][column], nil
}

// InsertRow inserts values at index at (0..RowCount). values may include the
// serial slot or omit it; missing trailing cells are empty.
func (t *Table) InsertRow(at int, values []CellValue) error {
	if at < 0 || at > len(t.rows) {
		return domain.NewIndexOutOfRangeError("insert_row", "row", at, len(t.rows))
	}

	userCols := len(t.columns) - t.offset()
	if t.serial && len(values) == len(t.columns) {
		values = values[1:]
	}
	if len(values) > userCols {
		return domain.NewIndexOutOfRangeError("insert_row", "cell", len(values)-1, userCols-1)
	}

	row := make(Row, len(t.columns))
	for c := t.offset(); c < len(t.columns); c++ {
		i := c - t.offset()
		if i >= len(values) {
			row[c] = Empty()
			continue
		}
		v, err := Coerce(values[i], t.columns[c])
		if err != nil {
			return err
		}
		row[c] = v
	}

	t.rows = append(t.rows, nil)
	copy(t.rows[at+1:], t.rows[at:])
	t.rows[at] = row
	t.renumber()
	return nil
}

// AppendRow inserts values after the last row
func (t *Table) AppendRow(values []CellValue) error {
	return t.InsertRow(len(t.rows), values)
}

// DeleteRow removes the row at index at
func (t *Table) DeleteRow(at int) error {
	if at < 0 || at >= len(t.rows) {
		return domain.NewIndexOutOfRangeError("delete_row", "row", at, len(t.rows)-1)
	}
	t.rows = append(t.rows[:at], t.rows[at+1:]...)
	t.renumber()
	return nil
}

// MoveRow moves the row at from so that it ends up at index to
func (t *Table) MoveRow(from, to int) error {
	if from < 0 || from >= len(t.rows) {
		return domain.NewIndexOutOfRangeError("move_row", "row", from, len(t.rows)-1)
	}
	if to < 0 || to >= len(t.rows) {
		return domain.NewIndexOutOfRangeError("move_row", "row", to, len(t.rows)-1)
	}
	row := t.rows[from]
	t.rows = append(t.rows[:from], t.rows[from+1:]...)
	t.rows = append(t.rows, nil)
	copy(t.rows[to+1:], t.rows[to:])
	t.rows[to] = row
	t.renumber()
	return nil
}

// UpdateCell stores value coerced to the column kind. Updates to the serial
// column are ignored.
func (t *Table) UpdateCell(row, column int, value CellValue) error {
	if row < 0 || row >= len(t.rows) {
		return domain.NewIndexOutOfRangeError("update_cell", "row", row, len(t.rows)-1)
	}
	if column < 0 || column >= len(t.columns) {
		return domain.NewIndexOutOfRangeError("update_cell", "column", column, len(t.columns)-1)
	}
	if t.serial && column == 0 {
		return nil
	}
	v, err := Coerce(value, t.columns[column])
	if err != nil {
		return err
	}
	t.rows[row][column] = v
	return nil
}

// AddColumn inserts an empty column at index at. The serial column cannot be
// displaced from the first position.
func (t *Table) AddColumn(name string, kind Kind, at int) (Column, error) {
	if at < t.offset() || at > len(t.columns) {
		return Column{}, domain.NewIndexOutOfRangeError("add_column", "column", at, len(t.columns))
	}

	taken := map[string]bool{SerialColumnName: true}
	for _, c := range t.columns {
		taken[c.Name] = true
	}
	col := Column{
		Name: uniqueName(name, taken, at-t.offset()),
		Kind: kind,
	}
	if kind == KindCurrency {
		col.Symbol = DefaultCurrencySymbol
	}

	t.columns = append(t.columns, Column{})
	copy(t.columns[at+1:], t.columns[at:])
	t.columns[at] = col
	for i := range t.rows {
		r := append(t.rows[i], Empty())
		copy(r[at+1:], r[at:])
		r[at] = Empty()
		t.rows[i] = r
	}
	t.reposition()
	return t.columns[at], nil
}

// RemoveColumn drops the column at index and its cell from every row.
// Removing the serial column turns numbering off.
func (t *Table) RemoveColumn(index int) error {
	if index < 0 || index >= len(t.columns) {
		return domain.NewIndexOutOfRangeError("remove_column", "column", index, len(t.columns)-1)
	}
	if t.serial && index == 0 {
		t.serial = false
	}
	t.columns = append(t.columns[:index], t.columns[index+1:]...)
	for i, r := range t.rows {
		t.rows[i] = append(r[:index], r[index+1:]...)
	}
	t.reposition()
	return nil
}

// Clear resets the table to zero rows and zero columns
func (t *Table) Clear() {
	t.columns = nil
	t.rows = nil
	t.serial = false
}

// Clone returns an independent copy
func (t *Table) Clone() *Table {
	return &Table{columns: t.Columns(), rows: t.Rows(), serial: t.serial}
}

// RowsAs2DArray returns the data rows as strings and numbers, empty cells as "".
func (t *Table) RowsAs2DArray() [][]interface{} {
	out := make([][]interface{}, len(t.rows))
	for i, r := range t.rows {
		cells := make([]interface{}, len(r))
		for c, v := range r {
			if raw := v.Raw(); raw != nil {
				cells[c] = raw
			} else {
				cells[c] = ""
			}
		}
		out[i] = cells
	}
	return out
}

func (t *Table) offset() int {
	if t.serial {
		return 1
	}
	return 0
}

func (t *Table) renumber() {
	if !t.serial {
		return
	}
	for i := range t.rows {
		t.rows[i][0] = Integer(int64(i + 1))
	}
}

func (t *Table) reposition() {
	for i := range t.columns {
		t.columns[i].Position = i
	}
}

// uniqueName fills blank names with "Column N" and suffixes duplicates with _2, _3, ...
func uniqueName(name string, taken map[string]bool, index int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Column %d", index+1)
	}
	candidate := name
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d", name, n)
	}
	taken[candidate] = true
	return candidate
}

func currencySymbol(spec ColumnSpec) string {
	if spec.Kind != KindCurrency {
		return ""
	}
	if spec.Symbol != "" {
		return spec.Symbol
	}
	return DefaultCurrencySymbol
}
