package inference

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

// ErrUnknownStrategy is returned by ParseStrategy for names it does not know
var ErrUnknownStrategy = errors.New("unknown strategy")

// StrategyKind selects how columns are detected
type StrategyKind int

const (
	// SingleColumn puts every line in one "Extracted Text" column
	SingleColumn StrategyKind = iota
	// AutoSplit splits lines into cells and settles on the dominant column count
	AutoSplit
	// DeclaredSchema uses the header the recognizer declared
	DeclaredSchema
	// ManualSchema uses caller supplied column names
	ManualSchema
	// SingleCell puts the whole text in one cell
	SingleCell
)

var strategyNames = map[StrategyKind]string{
	SingleColumn:   "single_column",
	AutoSplit:      "auto",
	DeclaredSchema: "declared",
	ManualSchema:   "manual",
	SingleCell:     "single_cell",
}

func (k StrategyKind) String() string {
	if name, ok := strategyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(k))
}

// Strategy is a detection strategy. Columns is only used by ManualSchema.
type Strategy struct {
	Kind    StrategyKind
	Columns []string
}

// Manual returns a ManualSchema strategy for the given column names
func Manual(columns ...string) Strategy {
	return Strategy{Kind: ManualSchema, Columns: columns}
}

// ParseStrategy parses a strategy name as used by the API and CLI. Accepted
// names: single_column, auto, declared, manual, single_cell. An empty name
// selects auto, or manual when columns are given.
func ParseStrategy(name string, columns []string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "_")
	switch name {
	case "":
		if len(columns) > 0 {
			return Manual(columns...), nil
		}
		return Strategy{Kind: AutoSplit}, nil
	case "single_column", "column", "lines":
		return Strategy{Kind: SingleColumn}, nil
	case "auto", "auto_split", "table":
		return Strategy{Kind: AutoSplit}, nil
	case "declared", "declared_schema", "schema":
		return Strategy{Kind: DeclaredSchema}, nil
	case "manual", "manual_schema":
		if len(columns) == 0 {
			return Strategy{}, domain.NewSchemaMissingError("parse_strategy", "manual strategy requires column names")
		}
		return Manual(columns...), nil
	case "single_cell", "cell":
		return Strategy{Kind: SingleCell}, nil
	}
	return Strategy{}, fmt.Errorf("%w %q", ErrUnknownStrategy, name)
}

// OverflowPolicy decides what happens to rows whose cell count differs from
// the others under AutoSplit.
type OverflowPolicy string

const (
	// OverflowMerge uses the most frequent cell count; longer rows have their
	// trailing cells merged into the last column, shorter rows are padded
	OverflowMerge OverflowPolicy = "merge"
	// OverflowWiden uses the largest cell count and pads every shorter row
	OverflowWiden OverflowPolicy = "widen"
)

// Valid reports whether p is a known policy
func (p OverflowPolicy) Valid() bool {
	return p == OverflowMerge || p == OverflowWiden
}

// Options tune inference
type Options struct {
	Overflow OverflowPolicy
	// Delimiter overrides whitespace splitting when set
	Delimiter string
	// HeaderFromFirstRow makes the first line the header under AutoSplit
	// when there is more than one line and no declared header
	HeaderFromFirstRow bool
	// CurrencySymbol is used for currency columns where no symbol was seen
	CurrencySymbol string
}

// DefaultOptions returns merge overflow, first-row headers and "$"
func DefaultOptions() Options {
	return Options{
		Overflow:           OverflowMerge,
		HeaderFromFirstRow: true,
		CurrencySymbol:     "$",
	}
}
