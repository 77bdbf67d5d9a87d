// Package services implements the business logic layer of the converter.
// It sits between the HTTP handlers and the pipeline packages
// (recognition, inference, table, aggregation, exporter, sheets).
//
// # Sessions
//
// Every editing session owns exactly one table. The SessionStore maps
// session ids to sessions and each Session serializes its own operations
// with a mutex, so concurrent requests on different sessions never contend
// and requests on the same session apply one at a time. There is no process
// wide table.
//
// # Converter service
//
// ConverterService runs the pipeline for a session:
//
//	raw result -> recognition.Normalize -> inference.Engine -> table.Table
//
// and applies table edits, computes summaries, renders exports and writes
// to Google Sheets. Every successful mutation publishes a snapshot of the
// session to the configured Notifier (the websocket hub in production).
//
// # Error Handling
//
// Pipeline failures are *domain.ConversionError values returned unchanged
// so handlers can map them to problem details. Collaborator failures wrap
// one of the sentinel errors in errors.go.
//
// # Testing
//
// Collaborators are interfaces and are faked in tests:
//
//	svc := NewConverterService(ConverterDeps{
//	    Store:       NewSessionStore(10),
//	    Recognizers: recognition.Registry{recognition.EngineText: recognition.TextRecognizer{}},
//	    Notifier:    notifier,
//	}, ConverterOptions{})
package services
