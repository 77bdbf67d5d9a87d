package recognition

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Source is an uploaded document handed to a recognizer
type Source struct {
	Name        string
	ContentType string
	Data        []byte
	// Language is the OCR language, e.g. "eng" or "eng+hin"
	Language string
}

// ErrOCRNotEnabled is returned when the binary was built without the ocr tag
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Recognizer turns a document into a raw recognition result. Calls are not
// retried; a failure is returned to the caller as is.
type Recognizer interface {
	Recognize(ctx context.Context, src Source) (RawResult, error)
}

// RecognizerFunc adapts a function to the Recognizer interface
type RecognizerFunc func(ctx context.Context, src Source) (RawResult, error)

// Recognize calls f
func (f RecognizerFunc) Recognize(ctx context.Context, src Source) (RawResult, error) {
	return f(ctx, src)
}

// Engine names a recognition backend
type Engine string

const (
	EngineOCR    Engine = "ocr"
	EnginePDF    Engine = "pdf"
	EngineVision Engine = "vision"
	EngineText   Engine = "text"
)

// Languages lists the OCR language packs offered to users
var Languages = []string{"eng", "eng+hin", "fra", "deu", "spa"}

// DefaultLanguage is used when no language is selected
const DefaultLanguage = "eng"

// EngineFor picks an engine from the file name and content type when the
// caller did not choose one.
func EngineFor(src Source) Engine {
	ext := strings.ToLower(filepath.Ext(src.Name))
	switch {
	case ext == ".pdf" || src.ContentType == "application/pdf":
		return EnginePDF
	case ext == ".txt" || ext == ".json" || strings.HasPrefix(src.ContentType, "text/") || src.ContentType == "application/json":
		return EngineText
	}
	return EngineOCR
}

// TextRecognizer treats the upload itself as text or JSON
type TextRecognizer struct{}

// Recognize parses the source bytes
func (TextRecognizer) Recognize(_ context.Context, src Source) (RawResult, error) {
	return Parse(src.Data)
}

// Registry maps engine names to recognizers
type Registry map[Engine]Recognizer

// Get returns the recognizer for engine, or an error naming the known engines
func (r Registry) Get(engine Engine) (Recognizer, error) {
	if rec, ok := r[engine]; ok && rec != nil {
		return rec, nil
	}
	return nil, fmt.Errorf("recognition engine %q is not configured", engine)
}
