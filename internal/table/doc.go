// Package table holds the canonical editable table produced by an extraction.
//
// # Model
//
// A Table is an ordered list of typed columns and an ordered list of rows.
// Cells are CellValue variants (empty, text, integer, decimal, currency) and
// every write goes through Coerce, so a cell always matches its column kind:
//
//	t, err := table.New(specs, rows, true) // prepends "S.No."
//	err = t.UpdateCell(0, 2, table.Text("$12.50"))
//
// # Invariants
//
//   - every row has exactly ColumnCount cells
//   - column positions are 0..ColumnCount-1 with no gaps
//   - the serial column, if present, is column 0 and numbered 1..RowCount
//
// Operations validate before mutating, so an error leaves the table as it was.
package table
