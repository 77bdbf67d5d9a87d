package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshinlather/image-to-excel-converter/internal/table"
)

func TestSummarize_CurrencyWithEmptyCell(t *testing.T) {
	tbl, err := table.New([]table.ColumnSpec{{Name: "Amount", Kind: table.KindCurrency}}, []table.Row{
		{table.Text("$10.00")},
		{table.Text("$20.00")},
		{table.Text("")},
	}, true)
	require.NoError(t, err)

	snap := Summarize(tbl)

	assert.Equal(t, 3, snap.RowCount)
	sum, ok := snap.Sum("Amount")
	require.True(t, ok)
	assert.InDelta(t, 30.00, sum, 1e-9)
	assert.InDelta(t, 30.00, snap.GrandTotal, 1e-9)
	assert.Equal(t, 1, snap.SkippedCellCount)
	_, ok = snap.Sum(table.SerialColumnName)
	assert.False(t, ok, "serial column is not summed")
}

func TestSummarize_GrandTotalOnlyCurrency(t *testing.T) {
	tbl, err := table.New([]table.ColumnSpec{
		{Name: "Item", Kind: table.KindText},
		{Name: "Qty", Kind: table.KindInteger},
		{Name: "Weight", Kind: table.KindDecimal},
		{Name: "Price", Kind: table.KindCurrency},
	}, []table.Row{
		{table.Text("Pen"), table.Text("2"), table.Text("0.10"), table.Text("1.50")},
		{table.Text("Book"), table.Text("1"), table.Text("0.20"), table.Text("9.99")},
	}, true)
	require.NoError(t, err)

	snap := Summarize(tbl)

	require.Len(t, snap.Sums, 3)
	qty, _ := snap.Sum("Qty")
	weight, _ := snap.Sum("Weight")
	assert.Equal(t, 3.0, qty)
	assert.Equal(t, 0.3, weight)
	assert.Equal(t, 11.49, snap.GrandTotal)
	assert.Zero(t, snap.SkippedCellCount)
}

func TestSummarize_Empty(t *testing.T) {
	tbl, err := table.New(nil, nil, true)
	require.NoError(t, err)

	snap := Summarize(tbl)
	assert.Equal(t, 0, snap.RowCount)
	assert.Equal(t, 0.0, snap.GrandTotal)
	assert.Empty(t, snap.Sums)
}

func TestSummarize_DoesNotMutate(t *testing.T) {
	tbl, err := table.New([]table.ColumnSpec{{Name: "Total", Kind: table.KindCurrency}}, []table.Row{
		{table.Text("5")},
	}, true)
	require.NoError(t, err)
	before := tbl.Clone()

	Summarize(tbl)
	assert.Equal(t, before, tbl)
}
