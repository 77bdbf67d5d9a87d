// Package api contains the request and response contracts of the converter
// HTTP API. Version v1 is the current stable API version.
package api

import "encoding/json"

// CreateSessionRequest opens an editing session
type CreateSessionRequest struct {
	Name string `json:"name,omitempty" validate:"omitempty,max=200"`
}

// ExtractRequest turns an already recognized result into the session table.
// Text carries OCR-style lines, Result a structured JSON result; exactly one
// of them is expected.
type ExtractRequest struct {
	Text      string          `json:"text,omitempty" validate:"required_without=Result"`
	Result    json.RawMessage `json:"result,omitempty" validate:"required_without=Text"`
	Strategy  string          `json:"strategy,omitempty" validate:"omitempty,oneof=auto single_column single_cell declared manual"`
	Columns   []string        `json:"columns,omitempty" validate:"omitempty,max=16384,dive,max=255"`
	Delimiter string          `json:"delimiter,omitempty" validate:"omitempty,max=8"`
	Source    string          `json:"source,omitempty" validate:"omitempty,max=255"`
}

// RecognizeOptions are the form fields sent next to an uploaded document
type RecognizeOptions struct {
	Engine    string   `json:"engine,omitempty" validate:"omitempty,oneof=ocr pdf vision text"`
	Language  string   `json:"language,omitempty" validate:"omitempty,max=32"`
	Strategy  string   `json:"strategy,omitempty" validate:"omitempty,oneof=auto single_column single_cell declared manual"`
	Columns   []string `json:"columns,omitempty" validate:"omitempty,max=16384,dive,max=255"`
	Delimiter string   `json:"delimiter,omitempty" validate:"omitempty,max=8"`
}

// InsertRowRequest inserts a row. At defaults to the end of the table.
// Values are cell texts in column order, with or without the serial slot;
// an empty string is an empty cell.
type InsertRowRequest struct {
	At     *int     `json:"at,omitempty" validate:"omitempty,min=0"`
	Values []string `json:"values" validate:"max=16384,dive,max=32767"`
}

// MoveRowRequest moves a row to a new index
type MoveRowRequest struct {
	To *int `json:"to" validate:"required,min=0"`
}

// UpdateCellRequest replaces one cell. The value is coerced to the column kind.
type UpdateCellRequest struct {
	Value string `json:"value" validate:"max=32767"`
}

// AddColumnRequest inserts an empty column. At defaults to the end.
type AddColumnRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Kind string `json:"kind,omitempty" validate:"omitempty,oneof=text integer decimal currency"`
	At   *int   `json:"at,omitempty" validate:"omitempty,min=0"`
}

// ExportQuery holds the export query parameters
type ExportQuery struct {
	Format   string `json:"format" query:"format" validate:"omitempty,oneof=xlsx csv"`
	Metadata bool   `json:"metadata" query:"metadata"`
}

// WriteSheetsRequest pushes the table to a Google spreadsheet. Target is a
// spreadsheet URL or id, optionally suffixed with "!Tab".
type WriteSheetsRequest struct {
	Target string `json:"target" validate:"required,max=512"`
	Mode   string `json:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}
