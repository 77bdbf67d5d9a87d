package table

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		ok     bool
		value  float64
		whole  bool
		symbol string
	}{
		{"12", true, 12, true, ""},
		{"1,234.50", true, 1234.5, false, ""},
		{"$10.00", true, 10, false, "$"},
		{"Rs. 99", true, 99, true, "Rs."},
		{"₹ 1,200", true, 1200, true, "₹"},
		{"10 EUR", true, 10, true, "EUR"},
		{"(5.00)", true, -5, false, ""},
		{"-$3.25", true, -3.25, false, "$"},
		{".5", true, 0.5, false, ""},
		{"", false, 0, false, ""},
		{"Pen", false, 0, false, ""},
		{"12a", false, 0, false, ""},
		{"$", false, 0, false, ""},
		{"1,234", true, 1234, true, ""},
		{"12,345.6", true, 12345.6, false, ""},
		{"₹ 1,20,000", true, 120000, true, "₹"},
		{"1,50", false, 0, false, ""},
		{"12,5", false, 0, false, ""},
		{"1,2,3", false, 0, false, ""},
		{"1234,567", false, 0, false, ""},
		{",500", false, 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, ok := ParseNumber(tt.in)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.InDelta(t, tt.value, n.Value, 1e-9)
			assert.Equal(t, tt.whole, n.Whole)
			assert.Equal(t, tt.symbol, n.Symbol)
		})
	}
}

func TestCoerce(t *testing.T) {
	qty := Column{Name: "Qty", Kind: KindInteger}
	price := Column{Name: "Price", Kind: KindCurrency, Symbol: "$"}
	rate := Column{Name: "Rate", Kind: KindDecimal}
	item := Column{Name: "Item", Kind: KindText}

	tests := []struct {
		name    string
		value   CellValue
		col     Column
		want    CellValue
		wantErr bool
	}{
		{"integer from text", Text("2"), qty, Integer(2), false},
		{"integer from integral decimal", Decimal(3), qty, Integer(3), false},
		{"integer rejects fraction", Text("2.5"), qty, Empty(), true},
		{"integer rejects symbol", Text("$2"), qty, Empty(), true},
		{"integer rejects words", Text("two"), qty, Empty(), true},
		{"currency from plain text", Text("1.50"), price, Currency(1.5, "$"), false},
		{"currency keeps column symbol", Text("€4"), price, Currency(4, "$"), false},
		{"decimal from integer", Integer(7), rate, Decimal(7), false},
		{"text from currency", Currency(2, "$"), item, Text("$2.00"), false},
		{"empty stays empty", Empty(), qty, Empty(), false},
		{"blank text is empty", Text("   "), price, Empty(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.col)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrTypeMismatch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerce_Idempotent(t *testing.T) {
	cols := []Column{
		{Name: "Qty", Kind: KindInteger},
		{Name: "Price", Kind: KindCurrency, Symbol: "£"},
		{Name: "Rate", Kind: KindDecimal},
		{Name: "Item", Kind: KindText},
	}
	inputs := []CellValue{Text("12"), Text("£3.40"), Text("0.75"), Text("Stapler")}

	for i, col := range cols {
		first, err := Coerce(inputs[i], col)
		require.NoError(t, err)
		second, err := Coerce(first, col)
		require.NoError(t, err)
		assert.Equal(t, first, second, col.Name)
	}
}

func TestCellValue_JSON(t *testing.T) {
	row := Row{Empty(), Text("Pen"), Integer(2), Currency(1.5, "$")}
	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `[null,"Pen",2,1.5]`, string(b))

	var decoded []CellValue
	require.NoError(t, json.Unmarshal([]byte(`[null,"Pen",2,1.5]`), &decoded))
	assert.Equal(t, []CellValue{Empty(), Text("Pen"), Integer(2), Decimal(1.5)}, decoded)
}

func TestCellValue_String(t *testing.T) {
	assert.Equal(t, "$10.00", Currency(10, "$").String())
	assert.Equal(t, "-$3.50", Currency(-3.5, "$").String())
	assert.Equal(t, "1.50", Decimal(1.5).String())
	assert.Equal(t, "42", Integer(42).String())
	assert.Equal(t, "", Empty().String())
}

func TestKind_Text(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("Currency")))
	assert.Equal(t, KindCurrency, k)
	assert.Error(t, k.UnmarshalText([]byte("money")))
	assert.True(t, KindDecimal.IsNumeric())
	assert.False(t, KindText.IsNumeric())
}
