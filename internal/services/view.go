package services

import (
	"github.com/oshinlather/image-to-excel-converter/internal/aggregation"
	"github.com/oshinlather/image-to-excel-converter/internal/inference"
	"github.com/oshinlather/image-to-excel-converter/internal/table"
	api "github.com/oshinlather/image-to-excel-converter/pkg/contracts/api/v1"
)

// sessionView renders the session; callers hold s.mu
func sessionView(s *Session) api.Session {
	return api.Session{
		ID:        s.ID,
		Name:      s.Name,
		Source:    s.source,
		ImageSize: s.imageSize,
		Revision:  s.revision,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.updatedAt,
		Table:     tableView(s.table),
		Summary:   summaryView(aggregation.Summarize(s.table)),
	}
}

func tableView(t *table.Table) api.Table {
	cols := t.Columns()
	view := api.Table{
		Columns: make([]api.Column, len(cols)),
		Rows:    make([][]interface{}, 0, t.RowCount()),
	}
	for i, c := range cols {
		view.Columns[i] = api.Column{
			Name:     c.Name,
			Kind:     c.Kind.String(),
			Position: c.Position,
			Symbol:   c.Symbol,
			Serial:   c.Serial,
		}
	}
	for _, r := range t.Rows() {
		cells := make([]interface{}, len(r))
		for i, v := range r {
			cells[i] = v.Raw()
		}
		view.Rows = append(view.Rows, cells)
	}
	return view
}

func summaryView(s aggregation.Snapshot) api.Summary {
	view := api.Summary{
		RowCount:         s.RowCount,
		ColumnCount:      s.ColumnCount,
		Sums:             make([]api.ColumnSum, len(s.Sums)),
		GrandTotal:       s.GrandTotal,
		SkippedCellCount: s.SkippedCellCount,
	}
	for i, c := range s.Sums {
		view.Sums[i] = api.ColumnSum{
			Name:     c.Name,
			Position: c.Position,
			Kind:     c.Kind.String(),
			Symbol:   c.Symbol,
			Sum:      c.Sum,
			Skipped:  c.Skipped,
		}
	}
	return view
}

func reportView(r inference.Report, engine string) api.ExtractionReport {
	return api.ExtractionReport{
		Engine:        engine,
		Strategy:      r.Strategy,
		SourceRows:    r.SourceRows,
		Columns:       r.Columns,
		MergedRows:    r.MergedRows,
		PaddedRows:    r.PaddedRows,
		HeaderFromRow: r.HeaderFromRow,
		DroppedSerial: r.DroppedSerial,
	}
}

// cellsFromText turns edit values into cells; "" is the empty marker
func cellsFromText(values []string) []table.CellValue {
	cells := make([]table.CellValue, len(values))
	for i, v := range values {
		cells[i] = cellFromText(v)
	}
	return cells
}

func cellFromText(v string) table.CellValue {
	if v == "" {
		return table.Empty()
	}
	return table.Text(v)
}
