// Package aggregation derives summary metrics from a table. Snapshots are
// computed on demand and never stored.
package aggregation

import (
	"math"

	"github.com/oshinlather/image-to-excel-converter/internal/table"
)

// ColumnSum is the total of one numeric column
type ColumnSum struct {
	Name     string     `json:"name"`
	Position int        `json:"position"`
	Kind     table.Kind `json:"kind"`
	Symbol   string     `json:"symbol,omitempty"`
	Sum      float64    `json:"sum"`
	Skipped  int        `json:"skipped"`
}

// Snapshot holds the live summary of a table
type Snapshot struct {
	RowCount         int         `json:"row_count"`
	ColumnCount      int         `json:"column_count"`
	Sums             []ColumnSum `json:"sums"`
	GrandTotal       float64     `json:"grand_total"`
	SkippedCellCount int         `json:"skipped_cell_count"`
}

// Sum returns the total for a column by name
func (s Snapshot) Sum(name string) (float64, bool) {
	for _, c := range s.Sums {
		if c.Name == name {
			return c.Sum, true
		}
	}
	return 0, false
}

// Summarize computes row count, per-column sums and the grand total. Empty or
// non-numeric cells count as zero and are tallied as skipped. The grand total
// covers currency columns only. The serial column is not summed.
func Summarize(t *table.Table) Snapshot {
	snap := Snapshot{
		RowCount:    t.RowCount(),
		ColumnCount: t.ColumnCount(),
		Sums:        []ColumnSum{},
	}
	rows := t.Rows()

	for _, col := range t.Columns() {
		if col.Serial || !col.Kind.IsNumeric() {
			continue
		}
		cs := ColumnSum{Name: col.Name, Position: col.Position, Kind: col.Kind, Symbol: col.Symbol}
		for _, r := range rows {
			v, ok := r[col.Position].Float()
			if !ok {
				cs.Skipped++
				continue
			}
			cs.Sum += v
		}
		if col.Kind != table.KindInteger {
			cs.Sum = roundCents(cs.Sum)
		}
		snap.SkippedCellCount += cs.Skipped
		if col.Kind == table.KindCurrency {
			snap.GrandTotal += cs.Sum
		}
		snap.Sums = append(snap.Sums, cs)
	}
	snap.GrandTotal = roundCents(snap.GrandTotal)
	return snap
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
