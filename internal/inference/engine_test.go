package inference

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshinlather/image-to-excel-converter/internal/aggregation"
	"github.com/oshinlather/image-to-excel-converter/internal/recognition"
	"github.com/oshinlather/image-to-excel-converter/internal/table"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

func lines(ls ...string) recognition.IntermediateTable {
	it, err := recognition.Normalize(recognition.FromText(strings.Join(ls, "\n")))
	if err != nil {
		panic(err)
	}
	return it
}

func cellStrings(t *testing.T, tbl *table.Table, row int) []string {
	t.Helper()
	rows := tbl.Rows()
	require.Greater(t, len(rows), row)
	out := make([]string, len(rows[row]))
	for i, v := range rows[row] {
		out[i] = v.String()
	}
	return out
}

func TestInfer_DeclaredSchemaInvoice(t *testing.T) {
	it := recognition.IntermediateTable{
		Header: []string{"Item", "Qty", "Price"},
		Rows:   [][]string{{"Pen", "2", "1.50"}, {"Book", "1", "9.99"}},
	}

	tbl, err := NewEngine(DefaultOptions(), nil).Infer(it, Strategy{Kind: DeclaredSchema})
	require.NoError(t, err)

	assert.Equal(t, []string{"S.No.", "Item", "Qty", "Price"}, tbl.Header())
	cols := tbl.Columns()
	assert.Equal(t, table.KindInteger, cols[0].Kind)
	assert.Equal(t, table.KindText, cols[1].Kind)
	assert.Equal(t, table.KindInteger, cols[2].Kind)
	assert.Equal(t, table.KindCurrency, cols[3].Kind)

	snap := aggregation.Summarize(tbl)
	assert.Equal(t, 11.49, snap.GrandTotal)
}

func TestInfer_CommaDecimalsStayText(t *testing.T) {
	it := recognition.IntermediateTable{
		Header: []string{"Item", "Qty", "Price"},
		Rows:   [][]string{{"Pen", "1,000", "1,50"}, {"Book", "2,500", "9,99"}},
	}

	tbl, err := NewEngine(DefaultOptions(), nil).Infer(it, Strategy{Kind: DeclaredSchema})
	require.NoError(t, err)

	cols := tbl.Columns()
	assert.Equal(t, table.KindInteger, cols[2].Kind, "thousands grouping is numeric")
	assert.Equal(t, table.KindText, cols[3].Kind)
	assert.Equal(t, []string{"1", "Pen", "1000", "1,50"}, cellStrings(t, tbl, 0))
	assert.Equal(t, []string{"2", "Book", "2500", "9,99"}, cellStrings(t, tbl, 1))

	snap := aggregation.Summarize(tbl)
	assert.Equal(t, 0.0, snap.GrandTotal)
	sum, ok := snap.Sum("Qty")
	require.True(t, ok)
	assert.Equal(t, 3500.0, sum)
}

func TestInfer_DeclaredSchemaWithoutHeader(t *testing.T) {
	_, err := NewEngine(DefaultOptions(), nil).Infer(lines("Pen 2"), Strategy{Kind: DeclaredSchema})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaMissing))
}

func TestInfer_AutoSplitModeMerge(t *testing.T) {
	it := lines(
		"Item  Qty  Price",
		"Pen  2  1.50",
		"Book  1  9.99",
		"Blue  ink  pot  3  4.00",
	)

	res, err := NewEngine(DefaultOptions(), nil).InferReport(it, Strategy{Kind: AutoSplit})
	require.NoError(t, err)
	tbl := res.Table

	assert.Equal(t, []string{"S.No.", "Item", "Qty", "Price"}, tbl.Header())
	assert.Equal(t, 3, tbl.RowCount())
	assert.Equal(t, []string{"3", "Blue", "ink", "pot 3 4.00"}, cellStrings(t, tbl, 2))
	assert.Equal(t, 1, res.Report.MergedRows)
	assert.True(t, res.Report.HeaderFromRow)

	cols := tbl.Columns()
	assert.Equal(t, table.KindText, cols[2].Kind, "merged text makes Qty textual")
	assert.Equal(t, table.KindText, cols[3].Kind)
}

func TestInfer_AutoSplitWithoutHeaderRow(t *testing.T) {
	opts := DefaultOptions()
	opts.HeaderFromFirstRow = false

	it := lines("a  b  c", "d  e  f", "g  h  i", "j  k  l  m  n")
	res, err := NewEngine(opts, nil).InferReport(it, Strategy{Kind: AutoSplit})
	require.NoError(t, err)

	assert.Equal(t, []string{"S.No.", "Column 1", "Column 2", "Column 3"}, res.Table.Header())
	assert.Equal(t, []string{"4", "j", "k", "l m n"}, cellStrings(t, res.Table, 3))
	assert.Equal(t, 1, res.Report.MergedRows)
}

func TestInfer_AutoSplitWiden(t *testing.T) {
	opts := DefaultOptions()
	opts.Overflow = OverflowWiden

	it := lines("Item  Qty", "Pen  2", "Book  1  note")
	tbl, err := NewEngine(opts, nil).Infer(it, Strategy{Kind: AutoSplit})
	require.NoError(t, err)

	assert.Equal(t, []string{"S.No.", "Item", "Qty", "Column 3"}, tbl.Header())
	assert.Equal(t, []string{"1", "Pen", "2", ""}, cellStrings(t, tbl, 0))
	assert.Equal(t, []string{"2", "Book", "1", "note"}, cellStrings(t, tbl, 1))
}

func TestInfer_AutoSplitDelimiter(t *testing.T) {
	opts := DefaultOptions()
	opts.Delimiter = ","

	it := lines("Item,Amount", "Pen, Rs. 10", "Book,Rs. 250")
	tbl, err := NewEngine(opts, nil).Infer(it, Strategy{Kind: AutoSplit})
	require.NoError(t, err)

	col, err := tbl.Column(2)
	require.NoError(t, err)
	assert.Equal(t, table.KindCurrency, col.Kind)
	assert.Equal(t, "Rs.", col.Symbol)
	assert.Equal(t, 260.0, aggregation.Summarize(tbl).GrandTotal)
}

func TestInfer_AutoSplitSingleSpaces(t *testing.T) {
	it := lines("Pen 2 1.50", "Book 1 9.99")
	opts := DefaultOptions()
	opts.HeaderFromFirstRow = false

	tbl, err := NewEngine(opts, nil).Infer(it, Strategy{Kind: AutoSplit})
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.ColumnCount())
	assert.Equal(t, []string{"2", "Book", "1", "9.99"}, cellStrings(t, tbl, 1))
}

func TestInfer_DropsSourceSerial(t *testing.T) {
	it := recognition.IntermediateTable{
		Header: []string{"Sr. No.", "Item"},
		Rows:   [][]string{{"1", "Pen"}, {"2", "Book"}},
	}
	res, err := NewEngine(DefaultOptions(), nil).InferReport(it, Strategy{Kind: AutoSplit})
	require.NoError(t, err)
	assert.True(t, res.Report.DroppedSerial)
	assert.Equal(t, []string{"S.No.", "Item"}, res.Table.Header())
}

func TestInfer_SingleColumn(t *testing.T) {
	tbl, err := NewEngine(DefaultOptions(), nil).Infer(lines("Pen  2", "", "Book\t1"), Strategy{Kind: SingleColumn})
	require.NoError(t, err)

	assert.Equal(t, []string{"S.No.", ExtractedTextColumn}, tbl.Header())
	assert.Equal(t, 2, tbl.RowCount())
	assert.Equal(t, []string{"2", "Book 1"}, cellStrings(t, tbl, 1))
	col, _ := tbl.Column(1)
	assert.Equal(t, table.KindText, col.Kind)
}

func TestInfer_SingleCell(t *testing.T) {
	tbl, err := NewEngine(DefaultOptions(), nil).Infer(lines("Pen  2", "Book  1"), Strategy{Kind: SingleCell})
	require.NoError(t, err)

	assert.Equal(t, 1, tbl.RowCount())
	assert.Equal(t, []string{"1", "Pen  2\nBook  1"}, cellStrings(t, tbl, 0))
}

func TestInfer_ManualSchema(t *testing.T) {
	it := lines("item  qty", "Pen  2  extra", "Book")
	res, err := NewEngine(DefaultOptions(), nil).InferReport(it, Manual("Item", "Qty"))
	require.NoError(t, err)
	tbl := res.Table

	assert.Equal(t, []string{"S.No.", "Item", "Qty"}, tbl.Header())
	assert.Equal(t, 2, tbl.RowCount(), "repeated header line is not data")
	assert.Equal(t, []string{"1", "Pen", "2"}, cellStrings(t, tbl, 0))
	assert.Equal(t, []string{"2", "Book", ""}, cellStrings(t, tbl, 1))
	assert.Equal(t, 1, res.Report.PaddedRows)

	_, err = NewEngine(DefaultOptions(), nil).Infer(it, Strategy{Kind: ManualSchema})
	assert.True(t, errors.Is(err, domain.ErrSchemaMissing))
}

func TestInfer_ManualOverridesDeclaredHeader(t *testing.T) {
	it := recognition.IntermediateTable{
		Header: []string{"a", "b"},
		Rows:   [][]string{{"Pen", "2"}},
	}
	tbl, err := NewEngine(DefaultOptions(), nil).Infer(it, Manual("Item", "Qty", "Price"))
	require.NoError(t, err)
	assert.Equal(t, []string{"S.No.", "Item", "Qty", "Price"}, tbl.Header())
	assert.Equal(t, 1, tbl.RowCount())
}

func TestInfer_Empty(t *testing.T) {
	engine := NewEngine(DefaultOptions(), nil)
	empty, err := recognition.Normalize(recognition.RawResult{})
	require.NoError(t, err)

	for _, s := range []Strategy{{Kind: AutoSplit}, {Kind: SingleColumn}, {Kind: SingleCell}} {
		tbl, err := engine.Infer(empty, s)
		require.NoError(t, err, s.Kind.String())
		assert.Equal(t, 0, tbl.RowCount())
		assert.Equal(t, 0, tbl.ColumnCount())
		assert.False(t, tbl.HasSerial())
	}
}

func TestInfer_RowLengthInvariant(t *testing.T) {
	it := lines("a  b", "c", "d  e  f  g", "h  i  j", "", "k  l")
	for _, policy := range []OverflowPolicy{OverflowMerge, OverflowWiden} {
		opts := DefaultOptions()
		opts.Overflow = policy
		tbl, err := NewEngine(opts, nil).Infer(it, Strategy{Kind: AutoSplit})
		require.NoError(t, err)
		for _, r := range tbl.Rows() {
			assert.Len(t, r, tbl.ColumnCount(), string(policy))
		}
	}
}
