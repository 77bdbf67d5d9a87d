package table

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

// Kind is the declared type of a column
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindDecimal
	KindCurrency
)

// DefaultCurrencySymbol is used for currency columns with no observed symbol
const DefaultCurrencySymbol = "$"

var kindNames = map[Kind]string{
	KindText:     "text",
	KindInteger:  "integer",
	KindDecimal:  "decimal",
	KindCurrency: "currency",
}

// String returns the lowercase kind name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsNumeric reports whether the kind holds numbers
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindDecimal || k == KindCurrency
}

// ParseKind parses a kind name such as "currency"
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return k, nil
		}
	}
	return KindText, fmt.Errorf("unknown column kind %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ValueKind tags the variant held by a CellValue
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueText
	ValueInteger
	ValueDecimal
	ValueCurrency
)

// CellValue is a tagged cell variant: empty, text, integer, decimal or currency.
type CellValue struct {
	kind    ValueKind
	text    string
	integer int64
	number  float64
	symbol  string
}

// Empty returns the empty marker
func Empty() CellValue { return CellValue{} }

// Text returns a text value; blank text is the empty marker
func Text(s string) CellValue {
	if strings.TrimSpace(s) == "" {
		return Empty()
	}
	return CellValue{kind: ValueText, text: s}
}

// Integer returns a whole-number value
func Integer(i int64) CellValue { return CellValue{kind: ValueInteger, integer: i} }

// Decimal returns a decimal value
func Decimal(f float64) CellValue { return CellValue{kind: ValueDecimal, number: f} }

// Currency returns a monetary value carrying its symbol
func Currency(f float64, symbol string) CellValue {
	return CellValue{kind: ValueCurrency, number: f, symbol: symbol}
}

// Kind returns the variant tag
func (v CellValue) Kind() ValueKind { return v.kind }

// IsEmpty reports whether v is the empty marker
func (v CellValue) IsEmpty() bool { return v.kind == ValueEmpty }

// Symbol returns the currency symbol of a currency value
func (v CellValue) Symbol() string { return v.symbol }

// Float returns the numeric value and whether v is numeric
func (v CellValue) Float() (float64, bool) {
	switch v.kind {
	case ValueInteger:
		return float64(v.integer), true
	case ValueDecimal, ValueCurrency:
		return v.number, true
	}
	return 0, false
}

// Int returns the integer payload of an integer value
func (v CellValue) Int() (int64, bool) {
	if v.kind == ValueInteger {
		return v.integer, true
	}
	return 0, false
}

// String renders the value the way it is displayed in the sheet
func (v CellValue) String() string {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueInteger:
		return strconv.FormatInt(v.integer, 10)
	case ValueDecimal:
		return strconv.FormatFloat(v.number, 'f', 2, 64)
	case ValueCurrency:
		if v.number < 0 {
			return "-" + v.symbol + strconv.FormatFloat(-v.number, 'f', 2, 64)
		}
		return v.symbol + strconv.FormatFloat(v.number, 'f', 2, 64)
	}
	return ""
}

// Raw returns the value as a string or a number, nil for empty
func (v CellValue) Raw() interface{} {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueInteger:
		return v.integer
	case ValueDecimal, ValueCurrency:
		return v.number
	}
	return nil
}

// MarshalJSON renders empty as null, text as a string and numbers as numbers
func (v CellValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

// UnmarshalJSON accepts null, strings and numbers
func (v *CellValue) UnmarshalJSON(b []byte) error {
	var raw interface{}
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Empty()
	case string:
		*v = Text(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			*v = Integer(i)
			return nil
		}
		f, err := x.Float64()
		if err != nil {
			return err
		}
		*v = Decimal(f)
	case bool:
		*v = Text(strconv.FormatBool(x))
	default:
		return fmt.Errorf("unsupported cell value %s", string(b))
	}
	return nil
}

// currencySymbols are matched longest first, case-insensitively for letter codes
var currencySymbols = []string{"INR", "USD", "EUR", "GBP", "Rs.", "Rs", "₹", "$", "€", "£", "¥", "₨"}

var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// groupedPattern accepts commas only as thousands separators, in western
// (1,234,567) or lakh (12,34,567) grouping. "1,50" is not a number.
var groupedPattern = regexp.MustCompile(`^[+]?(\d{1,3}(,\d{3})+|\d{1,2}(,\d{2})*,\d{3})(\.\d*)?$`)

// Number is the result of parsing a cell string as a number
type Number struct {
	Value    float64
	Whole    bool // no decimal point
	Symbol   string
	Integral int64 // valid when Whole
}

// ParseNumber parses strings such as "12", "1,234.50", "$10.00", "Rs. 99", "(5.00)".
func ParseNumber(s string) (Number, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimSpace(s[1:])
	}

	symbol := ""
	for _, sym := range currencySymbols {
		if len(s) > len(sym) && strings.EqualFold(s[:len(sym)], sym) {
			symbol, s = sym, strings.TrimSpace(s[len(sym):])
			break
		}
		if len(s) > len(sym) && strings.EqualFold(s[len(s)-len(sym):], sym) {
			symbol, s = sym, strings.TrimSpace(s[:len(s)-len(sym)])
			break
		}
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	if strings.Contains(s, ",") {
		if !groupedPattern.MatchString(s) {
			return Number{}, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	if !numberPattern.MatchString(s) {
		return Number{}, false
	}

	n := Number{Symbol: symbol, Whole: !strings.Contains(s, ".")}
	if n.Whole {
		i, err := strconv.ParseInt(strings.TrimPrefix(s, "+"), 10, 64)
		if err != nil {
			return Number{}, false
		}
		if negative {
			i = -i
		}
		n.Integral = i
		n.Value = float64(i)
		return n, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}, false
	}
	if negative {
		f = -f
	}
	n.Value = f
	return n, true
}

// Coerce converts v to the column's kind. Empty values stay empty for every kind.
func Coerce(v CellValue, col Column) (CellValue, error) {
	if v.kind == ValueEmpty {
		return v, nil
	}
	if col.Kind == KindText {
		return Text(v.String()), nil
	}

	var (
		n  Number
		ok bool
	)
	switch v.kind {
	case ValueText:
		n, ok = ParseNumber(v.text)
	case ValueInteger:
		n, ok = Number{Value: float64(v.integer), Whole: true, Integral: v.integer}, true
	case ValueDecimal:
		n, ok = Number{Value: v.number}, true
	case ValueCurrency:
		n, ok = Number{Value: v.number, Symbol: v.symbol}, true
	}
	if !ok {
		return Empty(), domain.NewTypeMismatchError("coerce", col.Name, col.Kind.String(), v.String())
	}

	switch col.Kind {
	case KindInteger:
		if n.Symbol != "" {
			return Empty(), domain.NewTypeMismatchError("coerce", col.Name, col.Kind.String(), v.String())
		}
		if n.Whole {
			return Integer(n.Integral), nil
		}
		if n.Value == math.Trunc(n.Value) && math.Abs(n.Value) < 1<<53 {
			return Integer(int64(n.Value)), nil
		}
		return Empty(), domain.NewTypeMismatchError("coerce", col.Name, col.Kind.String(), v.String())
	case KindDecimal:
		return Decimal(n.Value), nil
	case KindCurrency:
		symbol := col.Symbol
		if symbol == "" {
			symbol = n.Symbol
		}
		if symbol == "" {
			symbol = DefaultCurrencySymbol
		}
		return Currency(n.Value, symbol), nil
	}
	return Empty(), domain.NewTypeMismatchError("coerce", col.Name, col.Kind.String(), v.String())
}
