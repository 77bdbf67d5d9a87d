package table

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

func invoiceTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New([]ColumnSpec{
		{Name: "Item", Kind: KindText},
		{Name: "Qty", Kind: KindInteger},
		{Name: "Price", Kind: KindCurrency},
	}, []Row{
		{Text("Pen"), Text("2"), Text("1.50")},
		{Text("Book"), Text("1"), Text("9.99")},
	}, true)
	require.NoError(t, err)
	return tbl
}

func assertInvariants(t *testing.T, tbl *Table) {
	t.Helper()
	for i, c := range tbl.Columns() {
		assert.Equal(t, i, c.Position, "column positions must be dense")
	}
	for i, r := range tbl.Rows() {
		assert.Len(t, r, tbl.ColumnCount(), "row %d width", i)
		if tbl.HasSerial() {
			n, ok := r[0].Int()
			assert.True(t, ok)
			assert.Equal(t, int64(i+1), n, "serial of row %d", i)
		}
	}
	if tbl.HasSerial() {
		assert.Equal(t, SerialColumnName, tbl.Columns()[0].Name)
	}
}

func TestNew(t *testing.T) {
	tbl := invoiceTable(t)

	assert.Equal(t, []string{"S.No.", "Item", "Qty", "Price"}, tbl.Header())
	assert.True(t, tbl.HasSerial())
	assert.Equal(t, 2, tbl.RowCount())

	v, err := tbl.Cell(1, 3)
	require.NoError(t, err)
	assert.Equal(t, Currency(9.99, "$"), v)
	assertInvariants(t, tbl)
}

func TestNew_DuplicateAndBlankNames(t *testing.T) {
	tbl, err := New([]ColumnSpec{
		{Name: "Amount"}, {Name: "Amount"}, {Name: ""}, {Name: "S.No."},
	}, []Row{{Text("a")}}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"S.No.", "Amount", "Amount_2", "Column 3", "S.No._2"}, tbl.Header())
	assertInvariants(t, tbl)
}

func TestNew_EmptyHasNoSerial(t *testing.T) {
	tbl, err := New(nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.ColumnCount())
	assert.Equal(t, 0, tbl.RowCount())
	assert.False(t, tbl.HasSerial())
}

func TestNew_RejectsBadCell(t *testing.T) {
	_, err := New([]ColumnSpec{{Name: "Qty", Kind: KindInteger}}, []Row{{Text("many")}}, false)
	assert.True(t, errors.Is(err, domain.ErrTypeMismatch))
}

func TestInsertRow(t *testing.T) {
	tests := []struct {
		name    string
		at      int
		values  []CellValue
		wantErr error
		check   func(t *testing.T, tbl *Table)
	}{
		{
			name:   "insert at front renumbers",
			at:     0,
			values: []CellValue{Text("Ink"), Text("3"), Text("$4.00")},
			check: func(t *testing.T, tbl *Table) {
				v, _ := tbl.Cell(0, 1)
				assert.Equal(t, Text("Ink"), v)
				assert.Equal(t, 3, tbl.RowCount())
			},
		},
		{
			name:   "append with serial slot",
			at:     2,
			values: []CellValue{Integer(99), Text("Ink"), Integer(3), Empty()},
			check: func(t *testing.T, tbl *Table) {
				v, _ := tbl.Cell(2, 0)
				assert.Equal(t, Integer(3), v)
			},
		},
		{
			name:   "short row is padded",
			at:     1,
			values: []CellValue{Text("Tape")},
			check: func(t *testing.T, tbl *Table) {
				v, _ := tbl.Cell(1, 3)
				assert.True(t, v.IsEmpty())
			},
		},
		{name: "past end", at: 3, values: nil, wantErr: domain.ErrIndexOutOfRange},
		{name: "negative", at: -1, values: nil, wantErr: domain.ErrIndexOutOfRange},
		{name: "too many cells", at: 0, values: []CellValue{Text("a"), Text("b"), Text("c"), Text("d"), Text("e")}, wantErr: domain.ErrIndexOutOfRange},
		{name: "bad type", at: 0, values: []CellValue{Text("Ink"), Text("three")}, wantErr: domain.ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := invoiceTable(t)
			before := tbl.Clone()

			err := tbl.InsertRow(tt.at, tt.values)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Equal(t, before, tbl, "failed insert must not change the table")
				return
			}
			require.NoError(t, err)
			tt.check(t, tbl)
			assertInvariants(t, tbl)
		})
	}
}

func TestDeleteRow(t *testing.T) {
	tbl := invoiceTable(t)

	require.NoError(t, tbl.DeleteRow(0))
	v, _ := tbl.Cell(0, 1)
	assert.Equal(t, Text("Book"), v)
	assertInvariants(t, tbl)

	require.NoError(t, tbl.DeleteRow(0))
	assert.Equal(t, 0, tbl.RowCount())
	assert.Equal(t, 4, tbl.ColumnCount(), "columns are retained")

	err := tbl.DeleteRow(0)
	assert.True(t, errors.Is(err, domain.ErrIndexOutOfRange))
}

func TestMoveRow(t *testing.T) {
	tbl := invoiceTable(t)
	require.NoError(t, tbl.AppendRow([]CellValue{Text("Ink")}))

	require.NoError(t, tbl.MoveRow(2, 0))
	assert.Equal(t, "Ink", mustCell(t, tbl, 0, 1).String())
	assert.Equal(t, "Pen", mustCell(t, tbl, 1, 1).String())
	assertInvariants(t, tbl)

	assert.True(t, errors.Is(tbl.MoveRow(0, 3), domain.ErrIndexOutOfRange))
}

func TestUpdateCell(t *testing.T) {
	tbl := invoiceTable(t)

	require.NoError(t, tbl.UpdateCell(0, 2, Text("5")))
	assert.Equal(t, Integer(5), mustCell(t, tbl, 0, 2))

	err := tbl.UpdateCell(0, 2, Text("five"))
	assert.True(t, errors.Is(err, domain.ErrTypeMismatch))
	assert.Equal(t, Integer(5), mustCell(t, tbl, 0, 2), "failed update keeps old value")

	require.NoError(t, tbl.UpdateCell(0, 0, Integer(42)), "serial column is read-only")
	assert.Equal(t, Integer(1), mustCell(t, tbl, 0, 0))

	require.NoError(t, tbl.UpdateCell(1, 1, Integer(7)))
	assert.Equal(t, Text("7"), mustCell(t, tbl, 1, 1), "text accepts anything")

	assert.True(t, errors.Is(tbl.UpdateCell(5, 1, Text("x")), domain.ErrIndexOutOfRange))
	assert.True(t, errors.Is(tbl.UpdateCell(0, 9, Text("x")), domain.ErrIndexOutOfRange))
}

func TestUpdateCell_Idempotent(t *testing.T) {
	tbl := invoiceTable(t)

	require.NoError(t, tbl.UpdateCell(0, 3, Text("$12.345")))
	first := mustCell(t, tbl, 0, 3)
	require.NoError(t, tbl.UpdateCell(0, 3, Text("$12.345")))
	assert.Equal(t, first, mustCell(t, tbl, 0, 3))
}

func TestAddAndRemoveColumn(t *testing.T) {
	tbl := invoiceTable(t)

	col, err := tbl.AddColumn("Tax", KindCurrency, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, col.Position)
	assert.Equal(t, "$", col.Symbol)
	assert.True(t, mustCell(t, tbl, 0, 4).IsEmpty())
	assertInvariants(t, tbl)

	col, err = tbl.AddColumn("Item", KindText, 1)
	require.NoError(t, err)
	assert.Equal(t, "Item_2", col.Name)
	assert.Equal(t, "Item", tbl.Columns()[2].Name)
	assertInvariants(t, tbl)

	_, err = tbl.AddColumn("Before serial", KindText, 0)
	assert.True(t, errors.Is(err, domain.ErrIndexOutOfRange))

	require.NoError(t, tbl.RemoveColumn(1))
	assert.Equal(t, []string{"S.No.", "Item", "Qty", "Price", "Tax"}, tbl.Header())
	assertInvariants(t, tbl)

	require.NoError(t, tbl.RemoveColumn(0))
	assert.False(t, tbl.HasSerial())
	assertInvariants(t, tbl)

	assert.True(t, errors.Is(tbl.RemoveColumn(10), domain.ErrIndexOutOfRange))
}

func TestClear(t *testing.T) {
	tbl := invoiceTable(t)
	tbl.Clear()
	assert.Equal(t, 0, tbl.RowCount())
	assert.Equal(t, 0, tbl.ColumnCount())
	assert.False(t, tbl.HasSerial())
}

func TestRowsAs2DArray(t *testing.T) {
	tbl := invoiceTable(t)
	require.NoError(t, tbl.AppendRow([]CellValue{Text("Ink")}))

	rows := tbl.RowsAs2DArray()
	require.Len(t, rows, 3)
	assert.Equal(t, []interface{}{int64(1), "Pen", int64(2), 1.5}, rows[0])
	assert.Equal(t, []interface{}{int64(3), "Ink", "", ""}, rows[2])
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tbl := invoiceTable(t)
	kinds := []Kind{KindText, KindInteger, KindDecimal, KindCurrency}

	for i := 0; i < 500; i++ {
		switch rng.Intn(6) {
		case 0:
			_ = tbl.InsertRow(rng.Intn(tbl.RowCount()+2), []CellValue{Text("x")})
		case 1:
			_ = tbl.DeleteRow(rng.Intn(tbl.RowCount() + 1))
		case 2:
			_, _ = tbl.AddColumn("c", kinds[rng.Intn(len(kinds))], rng.Intn(tbl.ColumnCount()+2))
		case 3:
			if tbl.ColumnCount() > 2 {
				_ = tbl.RemoveColumn(1 + rng.Intn(tbl.ColumnCount()-1))
			}
		case 4:
			if tbl.RowCount() > 1 {
				_ = tbl.MoveRow(rng.Intn(tbl.RowCount()), rng.Intn(tbl.RowCount()))
			}
		case 5:
			_ = tbl.UpdateCell(rng.Intn(tbl.RowCount()+1), rng.Intn(tbl.ColumnCount()+1), Text("3"))
		}
		assertInvariants(t, tbl)
	}
}

func mustCell(t *testing.T, tbl *Table, r, c int) CellValue {
	t.Helper()
	v, err := tbl.Cell(r, c)
	require.NoError(t, err)
	return v
}
