//go:build !ocr

package recognition

import (
	"context"
	"log/slog"
)

// OCRRecognizer is the stub used when the ocr build tag is not set.
// To enable OCR, rebuild with:
//
//	go build -tags ocr
//
// This requires Tesseract to be installed (apt-get install tesseract-ocr).
type OCRRecognizer struct{}

// NewOCRRecognizer returns ErrOCRNotEnabled
func NewOCRRecognizer(language string, logger *slog.Logger) (*OCRRecognizer, error) {
	return nil, ErrOCRNotEnabled
}

// Recognize returns ErrOCRNotEnabled
func (o *OCRRecognizer) Recognize(ctx context.Context, src Source) (RawResult, error) {
	return RawResult{}, ErrOCRNotEnabled
}
