// Package http implements the HTTP handlers of the converter service. It is
// a thin layer between chi routing and the services package: handlers decode
// and validate requests, call a service, and render JSON or RFC 7807 problem
// responses.
//
// # Handlers
//
//	SessionHandler    /api/sessions/...   sessions, extraction, edits, export, sheets
//	WebSocketHandler  /ws/sessions/{id}   snapshot push per session
//	HealthHandler     /api/health, /api/version
//	MetricsHandler    /metrics            Prometheus scrape endpoint
//
// # Errors
//
// Domain failures (*domain.ConversionError) are mapped to status codes by the
// central errors.ErrorHandler. Service sentinels are translated first:
//
//	services.ErrSessionLimit       503 SESSION_LIMIT
//	services.ErrEngineUnavailable  503 ENGINE_UNAVAILABLE
//	services.ErrRecognitionFailed  502 RECOGNITION_FAILED
//	services.ErrSheetsDisabled     503 SHEETS_DISABLED
//	services.ErrInvalidTarget      400 INVALID_TARGET
//
// # Testing
//
// Handlers depend on the ConverterService and HealthService interfaces and
// are tested with testify mocks and httptest.
package http
