package services

import "errors"

// Converter service errors. Domain failures of the pipeline itself are
// *domain.ConversionError values; these cover the collaborators around it.
var (
	// ErrSessionLimit is returned when the store is full
	ErrSessionLimit = errors.New("session limit reached")

	// ErrEngineUnavailable means the requested recognition engine is not
	// configured or not compiled in
	ErrEngineUnavailable = errors.New("recognition engine unavailable")

	// ErrRecognitionFailed wraps a failed call to a recognition engine
	ErrRecognitionFailed = errors.New("recognition failed")

	// ErrSheetsDisabled means no Google credentials were configured
	ErrSheetsDisabled = errors.New("google sheets integration disabled")

	// ErrInvalidStrategy wraps a strategy name the inference engine does not know
	ErrInvalidStrategy = errors.New("invalid extraction strategy")

	// ErrInvalidTarget wraps an unparsable spreadsheet locator or write mode
	ErrInvalidTarget = errors.New("invalid spreadsheet target")
)
