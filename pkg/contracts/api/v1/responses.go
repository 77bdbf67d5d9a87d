package api

import "time"

// Column describes one table column
type Column struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Position int    `json:"position"`
	Symbol   string `json:"symbol,omitempty"`
	Serial   bool   `json:"serial,omitempty"`
}

// Table is the row-major rendering of a session table. Empty cells are null.
type Table struct {
	Columns []Column        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// ColumnSum is the total of one numeric column
type ColumnSum struct {
	Name     string  `json:"name"`
	Position int     `json:"position"`
	Kind     string  `json:"kind"`
	Symbol   string  `json:"symbol,omitempty"`
	Sum      float64 `json:"sum"`
	Skipped  int     `json:"skipped"`
}

// Summary holds the live aggregates of a table
type Summary struct {
	RowCount         int         `json:"row_count"`
	ColumnCount      int         `json:"column_count"`
	Sums             []ColumnSum `json:"sums"`
	GrandTotal       float64     `json:"grand_total"`
	SkippedCellCount int         `json:"skipped_cell_count"`
}

// Session is the full state of an editing session
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Source    string    `json:"source,omitempty"`
	ImageSize string    `json:"image_size,omitempty"`
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Table     Table     `json:"table"`
	Summary   Summary   `json:"summary"`
}

// ExtractionReport describes what column inference did with the input
type ExtractionReport struct {
	Engine        string `json:"engine,omitempty"`
	Strategy      string `json:"strategy"`
	SourceRows    int    `json:"source_rows"`
	Columns       int    `json:"columns"`
	MergedRows    int    `json:"merged_rows"`
	PaddedRows    int    `json:"padded_rows"`
	HeaderFromRow bool   `json:"header_from_row"`
	DroppedSerial bool   `json:"dropped_serial"`
}

// ExtractResponse is returned by extract and recognize
type ExtractResponse struct {
	Session Session          `json:"session"`
	Report  ExtractionReport `json:"report"`
}

// SheetsResponse reports the outcome of a Google Sheets write. A failed
// write is reported here, not as an HTTP error.
type SheetsResponse struct {
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
	UpdatedRows int    `json:"updated_rows"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Sessions  int               `json:"sessions"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
