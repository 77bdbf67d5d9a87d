package exporter

import (
	"fmt"
	"strings"

	"github.com/oshinlather/image-to-excel-converter/internal/table"
)

// formatFloat formats a float64 value with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats an int64 value
func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}

// formatCell renders a cell for text outputs: integers whole, decimals with
// two places, currency with its symbol.
func formatCell(v table.CellValue) string {
	switch v.Kind() {
	case table.ValueInteger:
		i, _ := v.Int()
		return formatInt(i)
	case table.ValueDecimal:
		f, _ := v.Float()
		return formatFloat(f)
	case table.ValueCurrency:
		f, _ := v.Float()
		if f < 0 {
			return "-" + v.Symbol() + formatFloat(-f)
		}
		return v.Symbol() + formatFloat(f)
	}
	return v.String()
}

// currencyFormat is the Excel number format for a currency symbol, e.g.
// "$"#,##0.00;-"$"#,##0.00
func currencyFormat(symbol string) string {
	quoted := `"` + strings.ReplaceAll(symbol, `"`, `""`) + `"`
	return quoted + "#,##0.00;-" + quoted + "#,##0.00"
}
