package recognition

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

// PDFRecognizer reads the text layer of digital PDFs (e-invoices). Scanned
// PDFs without a text layer produce an empty result.
type PDFRecognizer struct {
	logger *slog.Logger
}

// NewPDFRecognizer creates a PDF text-layer recognizer
func NewPDFRecognizer(logger *slog.Logger) *PDFRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFRecognizer{logger: logger.With(slog.String("component", "pdf"))}
}

// Recognize returns one line per text row, pages in order
func (p *PDFRecognizer) Recognize(ctx context.Context, src Source) (RawResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil {
		e := domain.NewMalformedInputError("recognize_pdf", "not a readable PDF document")
		e.Cause = err
		return RawResult{}, e
	}

	blob := &TextBlob{}
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return RawResult{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return RawResult{}, fmt.Errorf("read text of page %d: %w", i, err)
		}
		for _, row := range rows {
			tokens := mergeRuns(row.Content)
			if len(tokens) == 0 {
				continue
			}
			blob.Lines = append(blob.Lines, Line{Tokens: tokens})
		}
	}

	p.logger.DebugContext(ctx, "PDF text layer read",
		slog.String("source", src.Name),
		slog.Int("pages", reader.NumPage()),
		slog.Int("lines", len(blob.Lines)))

	return RawResult{Kind: KindText, Text: blob}, nil
}

// mergeRuns glues glyph runs that touch into words. A gap wider than a
// fraction of the font size starts a new token.
func mergeRuns(texts []pdf.Text) []Token {
	runs := append([]pdf.Text{}, texts...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var tokens []Token
	for _, t := range runs {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		if n := len(tokens); n > 0 {
			last := &tokens[n-1]
			gap := t.X - (last.X + last.W)
			if gap < 0.2*t.FontSize {
				last.Text += t.S
				last.W = t.X + t.W - last.X
				continue
			}
		}
		tokens = append(tokens, Token{Text: t.S, X: t.X, Y: t.Y, W: t.W})
	}
	for i := range tokens {
		tokens[i].Text = strings.TrimSpace(tokens[i].Text)
	}
	return tokens
}
