package recognition

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

// ResultKind tags the variant held by a RawResult
type ResultKind int

const (
	// KindEmpty is the zero value: nothing was recognized
	KindEmpty ResultKind = iota
	KindText
	KindStructured
)

func (k ResultKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	}
	return "empty"
}

// Token is a recognized word with its approximate horizontal extent
type Token struct {
	Text string
	X    float64
	Y    float64
	W    float64
}

// Line is one recognized line. Text is used as-is when set; otherwise the
// tokens are joined.
type Line struct {
	Text   string
	Tokens []Token
}

// TextBlob is free-form recognized text
type TextBlob struct {
	Lines []Line
}

// Field is a named value inside a record
type Field struct {
	Name  string
	Value string
}

// Record is an ordered set of fields
type Record []Field

// StructuredResult is a list of records with an optional declared field order
type StructuredResult struct {
	FieldOrder []string
	Records    []Record
}

// RawResult is what a recognizer produced. Exactly one of Text and Structured
// is set, matching Kind.
type RawResult struct {
	Kind       ResultKind
	Text       *TextBlob
	Structured *StructuredResult
}

// IsEmpty reports whether the result carries no lines and no records
func (r RawResult) IsEmpty() bool {
	switch r.Kind {
	case KindText:
		return r.Text == nil || len(r.Text.Lines) == 0
	case KindStructured:
		return r.Structured == nil || (len(r.Structured.Records) == 0 && len(r.Structured.FieldOrder) == 0)
	}
	return true
}

// IntermediateTable is the normalized output of a recognizer: rows of string
// cells and an optional header. Header is nil when absent. Lines is set when
// every row is a single unsplit line of text.
type IntermediateTable struct {
	Header []string
	Rows   [][]string
	Lines  bool
}

// HasHeader reports whether a header row is present
func (it IntermediateTable) HasHeader() bool { return it.Header != nil }

// Normalize converts a raw result into the intermediate table. Text lines
// become single-cell rows. Records become rows ordered by the declared field
// order, or by the first record's order when none is declared; missing fields
// are empty. A record field outside the header is a malformed input.
func Normalize(raw RawResult) (IntermediateTable, error) {
	switch raw.Kind {
	case KindEmpty:
		return IntermediateTable{}, nil
	case KindText:
		if raw.Text == nil {
			return IntermediateTable{}, domain.NewMalformedInputError("normalize", "text result has no text blob")
		}
		return normalizeText(raw.Text), nil
	case KindStructured:
		if raw.Structured == nil {
			return IntermediateTable{}, domain.NewMalformedInputError("normalize", "structured result has no records")
		}
		return normalizeStructured(raw.Structured)
	}
	return IntermediateTable{}, domain.NewMalformedInputError("normalize", "unknown result kind").
		WithContext("kind", int(raw.Kind))
}

func normalizeText(blob *TextBlob) IntermediateTable {
	it := IntermediateTable{Lines: true, Rows: make([][]string, 0, len(blob.Lines))}
	for _, line := range blob.Lines {
		text := line.Text
		if text == "" {
			text = joinTokens(line.Tokens)
		}
		it.Rows = append(it.Rows, []string{text})
	}
	return it
}

func normalizeStructured(sr *StructuredResult) (IntermediateTable, error) {
	var header []string
	switch {
	case len(sr.FieldOrder) > 0:
		header = append([]string{}, sr.FieldOrder...)
	case len(sr.Records) > 0:
		header = make([]string, 0, len(sr.Records[0]))
		for _, f := range sr.Records[0] {
			header = append(header, f.Name)
		}
	default:
		return IntermediateTable{}, nil
	}

	it := IntermediateTable{Header: header, Rows: make([][]string, 0, len(sr.Records))}
	for i, rec := range sr.Records {
		row := make([]string, len(header))
		filled := make([]bool, len(header))
		for _, f := range rec {
			slot := -1
			for c, name := range header {
				if name == f.Name && !filled[c] {
					slot = c
					break
				}
			}
			if slot < 0 {
				return IntermediateTable{}, domain.NewMalformedInputError("normalize",
					fmt.Sprintf("record field %q is not in the header", f.Name)).
					WithContext("record", i).
					WithContext("field", f.Name)
			}
			row[slot] = f.Value
			filled[slot] = true
		}
		it.Rows = append(it.Rows, row)
	}
	return it, nil
}

// joinTokens joins words with a space, or with a tab where the horizontal gap
// is wider than two median characters so column gaps survive.
func joinTokens(tokens []Token) string {
	if len(tokens) == 0 {
		return ""
	}
	sorted := append([]Token{}, tokens...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	charWidth := medianCharWidth(sorted)
	var b strings.Builder
	for i, tok := range sorted {
		if i > 0 {
			prev := sorted[i-1]
			gap := tok.X - (prev.X + prev.W)
			if charWidth > 0 && gap > 2*charWidth {
				b.WriteByte('\t')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}

func medianCharWidth(tokens []Token) float64 {
	widths := make([]float64, 0, len(tokens))
	for _, t := range tokens {
		if n := utf8.RuneCountInString(t.Text); n > 0 && t.W > 0 {
			widths = append(widths, t.W/float64(n))
		}
	}
	if len(widths) == 0 {
		return 0
	}
	sort.Float64s(widths)
	return widths[len(widths)/2]
}
