// Package sheets writes tables to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Mode selects how rows are written
type Mode string

const (
	// ModeAppend adds rows after existing data; the header is written only
	// when the sheet is empty
	ModeAppend Mode = "append"
	// ModeOverwrite clears the sheet and writes header and rows from A1
	ModeOverwrite Mode = "overwrite"
)

// ParseMode parses "append" or "overwrite"; empty means append
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAppend:
		return ModeAppend, nil
	case ModeOverwrite:
		return ModeOverwrite, nil
	}
	return "", fmt.Errorf("unknown sheets write mode %q", s)
}

// DefaultSheetName is used when the locator does not name a tab
const DefaultSheetName = "Sheet1"

// Target identifies a spreadsheet tab
type Target struct {
	SpreadsheetID string
	SheetName     string
}

var (
	urlPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	idPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
)

// ParseTarget accepts a spreadsheet URL or id, optionally followed by
// "!TabName" (e.g. "1AbC...xyz!Invoices").
func ParseTarget(locator string) (Target, error) {
	locator = strings.TrimSpace(locator)
	target := Target{SheetName: DefaultSheetName}
	if i := strings.LastIndex(locator, "!"); i >= 0 {
		if name := strings.TrimSpace(locator[i+1:]); name != "" {
			target.SheetName = name
		}
		locator = locator[:i]
	}

	if m := urlPattern.FindStringSubmatch(locator); m != nil {
		target.SpreadsheetID = m[1]
		return target, nil
	}
	if idPattern.MatchString(locator) {
		target.SpreadsheetID = locator
		return target, nil
	}
	return Target{}, fmt.Errorf("not a spreadsheet URL or id: %q", locator)
}

// sheetRange quotes the tab name for A1 notation
func (t Target) sheetRange(cells string) string {
	name := "'" + strings.ReplaceAll(t.SheetName, "'", "''") + "'"
	if cells == "" {
		return name
	}
	return name + "!" + cells
}

// Result reports the outcome of a write. Failures are not retried.
type Result struct {
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
	UpdatedRows int    `json:"updated_rows"`
}

// Rows is the table contract needed for a remote write
type Rows interface {
	Header() []string
	RowsAs2DArray() [][]interface{}
}

// Writer writes tables through the Sheets API
type Writer struct {
	service *gsheets.Service
	logger  *slog.Logger
}

// NewWriter creates a writer. Pass option.WithCredentialsFile or
// option.WithCredentialsJSON for a service account.
func NewWriter(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Writer, error) {
	service, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{service: service, logger: logger.With(slog.String("component", "sheets"))}, nil
}

// Write sends the header and rows to the target
func (w *Writer) Write(ctx context.Context, target Target, rows Rows, mode Mode) Result {
	var (
		updated int64
		err     error
	)
	switch mode {
	case ModeOverwrite:
		updated, err = w.overwrite(ctx, target, rows)
	case ModeAppend, "":
		updated, err = w.append(ctx, target, rows)
	default:
		err = fmt.Errorf("unknown sheets write mode %q", mode)
	}

	if err != nil {
		w.logger.ErrorContext(ctx, "sheets write failed",
			slog.String("spreadsheet_id", target.SpreadsheetID),
			slog.String("sheet", target.SheetName),
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()))
		return Result{OK: false, Message: err.Error()}
	}

	w.logger.InfoContext(ctx, "sheets write complete",
		slog.String("spreadsheet_id", target.SpreadsheetID),
		slog.String("sheet", target.SheetName),
		slog.String("mode", string(mode)),
		slog.Int64("updated_rows", updated))
	return Result{
		OK:          true,
		Message:     fmt.Sprintf("wrote %d rows to %s", updated, target.SheetName),
		UpdatedRows: int(updated),
	}
}

func (w *Writer) append(ctx context.Context, target Target, rows Rows) (int64, error) {
	existing, err := w.service.Spreadsheets.Values.Get(target.SpreadsheetID, target.sheetRange("A1:A1")).
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to read from sheets: %w", err)
	}

	values := toValues(rows, len(existing.Values) == 0)
	if len(values) == 0 {
		return 0, nil
	}
	resp, err := w.service.Spreadsheets.Values.Append(target.SpreadsheetID, target.sheetRange("A1"),
		&gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to append rows: %w", err)
	}
	if resp.Updates == nil {
		return 0, nil
	}
	return resp.Updates.UpdatedRows, nil
}

func (w *Writer) overwrite(ctx context.Context, target Target, rows Rows) (int64, error) {
	if _, err := w.service.Spreadsheets.Values.Clear(target.SpreadsheetID, target.sheetRange(""),
		&gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := toValues(rows, true)
	if len(values) == 0 {
		return 0, nil
	}
	resp, err := w.service.Spreadsheets.Values.Update(target.SpreadsheetID, target.sheetRange("A1"),
		&gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to update sheet: %w", err)
	}
	return resp.UpdatedRows, nil
}

func toValues(rows Rows, withHeader bool) [][]interface{} {
	data := rows.RowsAs2DArray()
	values := make([][]interface{}, 0, len(data)+1)
	if withHeader {
		header := rows.Header()
		if len(header) > 0 {
			row := make([]interface{}, len(header))
			for i, h := range header {
				row[i] = h
			}
			values = append(values, row)
		}
	}
	return append(values, data...)
}
