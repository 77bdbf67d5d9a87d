//go:build ocr

package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// OCRRecognizer runs Tesseract locally. Word boxes are grouped back into
// lines so column gaps can be recovered from their positions.
type OCRRecognizer struct {
	language string
	logger   *slog.Logger
}

// NewOCRRecognizer creates a Tesseract backed recognizer. Tesseract and the
// requested language packs must be installed on the host.
func NewOCRRecognizer(language string, logger *slog.Logger) (*OCRRecognizer, error) {
	if language == "" {
		language = DefaultLanguage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRRecognizer{language: language, logger: logger.With(slog.String("component", "ocr"))}, nil
}

// Recognize performs OCR on image data (PNG, JPEG, TIFF, ...)
func (o *OCRRecognizer) Recognize(ctx context.Context, src Source) (RawResult, error) {
	if err := ctx.Err(); err != nil {
		return RawResult{}, err
	}

	lang := src.Language
	if lang == "" {
		lang = o.language
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		return RawResult{}, fmt.Errorf("failed to set OCR language %q: %w", lang, err)
	}
	if err := client.SetImageFromBytes(src.Data); err != nil {
		return RawResult{}, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return RawResult{}, fmt.Errorf("OCR failed: %w", err)
	}

	blob := &TextBlob{}
	type lineKey struct{ block, par, line int }
	var current *lineKey
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		key := lineKey{b.BlockNum, b.ParNum, b.LineNum}
		if current == nil || *current != key {
			blob.Lines = append(blob.Lines, Line{})
			current = &key
		}
		last := &blob.Lines[len(blob.Lines)-1]
		last.Tokens = append(last.Tokens, Token{
			Text: word,
			X:    float64(b.Box.Min.X),
			Y:    float64(b.Box.Min.Y),
			W:    float64(b.Box.Dx()),
		})
	}

	o.logger.DebugContext(ctx, "OCR complete",
		slog.String("source", src.Name),
		slog.String("language", lang),
		slog.Int("words", len(boxes)),
		slog.Int("lines", len(blob.Lines)))

	return RawResult{Kind: KindText, Text: blob}, nil
}
