// Package shared holds helpers used across packages that belong to no single
// layer. Its testutil subpackage captures slog output in tests and provides
// sample recognition payloads (invoice text and structured JSON) for pipeline
// tests.
package shared
