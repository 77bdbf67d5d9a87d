package inference

import (
	"strings"
	"unicode"

	"github.com/oshinlather/image-to-excel-converter/internal/table"
)

// monetaryWords mark a column name as holding money
var monetaryWords = map[string]bool{
	"price": true, "amount": true, "amt": true, "total": true, "subtotal": true,
	"cost": true, "rate": true, "mrp": true, "value": true, "tax": true,
	"fee": true, "charge": true, "balance": true, "paid": true, "due": true,
}

// serialNames are header spellings of a numbering column, compared after
// lowercasing and dropping everything but letters and '#'
var serialNames = map[string]bool{
	"sno": true, "srno": true, "slno": true, "no": true, "#": true,
	"serialno": true, "serial": true, "sn": true,
}

// inferKind classifies a column from its non-empty values. Integer when every
// value is a whole number without a symbol, Currency when every value is a
// number and any carries a symbol (or the name is monetary), Decimal for
// other numbers, Text otherwise. The returned symbol is the most frequent one
// seen.
func inferKind(name string, values []string) (table.Kind, string) {
	var (
		seen      int
		allWhole  = true
		symbols   = map[string]int{}
		symbolSeq []string
	)
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		n, ok := table.ParseNumber(v)
		if !ok {
			return table.KindText, ""
		}
		seen++
		if !n.Whole {
			allWhole = false
		}
		if n.Symbol != "" {
			if symbols[n.Symbol] == 0 {
				symbolSeq = append(symbolSeq, n.Symbol)
			}
			symbols[n.Symbol]++
		}
	}

	switch {
	case seen == 0:
		return table.KindText, ""
	case len(symbols) > 0:
		best := symbolSeq[0]
		for _, s := range symbolSeq[1:] {
			if symbols[s] > symbols[best] {
				best = s
			}
		}
		return table.KindCurrency, best
	case allWhole:
		return table.KindInteger, ""
	case isMonetary(name):
		return table.KindCurrency, ""
	}
	return table.KindDecimal, ""
}

func isMonetary(name string) bool {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if monetaryWords[w] {
			return true
		}
	}
	return false
}

func isSerialName(name string) bool {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || r == '#' {
			b.WriteRune(r)
		}
	}
	return serialNames[b.String()]
}

// isSerialColumn reports whether values count 1, 2, 3, ... in order
func isSerialColumn(values []string) bool {
	if len(values) == 0 {
		return false
	}
	for i, v := range values {
		n, ok := table.ParseNumber(strings.TrimSuffix(strings.TrimSpace(v), "."))
		if !ok || !n.Whole || n.Symbol != "" || n.Integral != int64(i+1) {
			return false
		}
	}
	return true
}
