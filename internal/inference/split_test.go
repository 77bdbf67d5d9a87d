package inference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshinlather/image-to-excel-converter/internal/table"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

func TestModeCount(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   int
	}{
		{"dominant layout wins", []int{3, 3, 3, 5}, 3},
		{"tie goes to the wider layout", []int{2, 2, 4, 4}, 4},
		{"single row", []int{7}, 7},
		{"no rows", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.counts))
			for i, n := range tt.counts {
				rows[i] = make([]string, n)
			}
			assert.Equal(t, tt.want, modeCount(rows))
		})
	}
}

func TestFit(t *testing.T) {
	out, merged := fit([]string{"a", "b", "c", "d", "e"}, 3)
	assert.True(t, merged)
	assert.Equal(t, []string{"a", "b", "c d e"}, out)

	out, merged = fit([]string{"a"}, 3)
	assert.False(t, merged)
	assert.Equal(t, []string{"a", "", ""}, out)

	assert.Equal(t, []string{"a", "b"}, truncate([]string{"a", "b", "c"}, 2))
}

func TestChooseSplitter(t *testing.T) {
	gap := chooseSplitter([]string{"Blue ink  3", "Pen 2"}, "")
	assert.Equal(t, []string{"Blue ink", "3"}, gap("Blue ink  3"))
	assert.Equal(t, []string{"Pen 2"}, gap("Pen 2"))

	fields := chooseSplitter([]string{"Pen 2", "Book 1"}, "")
	assert.Equal(t, []string{"Pen", "2"}, fields("Pen 2"))

	delim := chooseSplitter([]string{"a  b"}, "|")
	assert.Equal(t, []string{"a  b", "c"}, delim("a  b | c"))
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name       string
		column     string
		values     []string
		wantKind   table.Kind
		wantSymbol string
	}{
		{"whole numbers", "Qty", []string{"1", "2", ""}, table.KindInteger, ""},
		{"decimals", "Weight", []string{"1.5", "2"}, table.KindDecimal, ""},
		{"monetary name promotes decimals", "Unit Price", []string{"1.50", "9.99"}, table.KindCurrency, ""},
		{"monetary name keeps integers", "Amount", []string{"10", "20"}, table.KindInteger, ""},
		{"any symbol makes currency", "Cost", []string{"$10", "20.00"}, table.KindCurrency, "$"},
		{"most frequent symbol", "Total", []string{"₹10", "₹20", "$5"}, table.KindCurrency, "₹"},
		{"text wins on any word", "Qty", []string{"1", "two"}, table.KindText, ""},
		{"all empty is text", "Notes", []string{"", " "}, table.KindText, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, symbol := inferKind(tt.column, tt.values)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantSymbol, symbol)
		})
	}
}

func TestSerialDetection(t *testing.T) {
	for _, name := range []string{"S.No.", "S. No", "Sr. No.", "#", "No.", "Sl No"} {
		assert.True(t, isSerialName(name), name)
	}
	assert.False(t, isSerialName("Item"))

	assert.True(t, isSerialColumn([]string{"1", "2.", "3"}))
	assert.False(t, isSerialColumn([]string{"1", "3"}))
	assert.False(t, isSerialColumn(nil))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("", nil)
	require.NoError(t, err)
	assert.Equal(t, AutoSplit, s.Kind)

	s, err = ParseStrategy("", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, ManualSchema, s.Kind)

	s, err = ParseStrategy("Single-Cell", nil)
	require.NoError(t, err)
	assert.Equal(t, SingleCell, s.Kind)

	_, err = ParseStrategy("manual", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaMissing))

	_, err = ParseStrategy("guess", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
	assert.False(t, errors.Is(err, domain.ErrSchemaMissing))
	assert.Contains(t, err.Error(), `"guess"`)
}
