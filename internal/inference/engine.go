package inference

import (
	"log/slog"
	"strings"

	"github.com/oshinlather/image-to-excel-converter/internal/recognition"
	"github.com/oshinlather/image-to-excel-converter/internal/table"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

// ExtractedTextColumn names the column of the single column and single cell layouts
const ExtractedTextColumn = "Extracted Text"

// Report describes what inference did to the input beyond typing it
type Report struct {
	Strategy      string `json:"strategy"`
	SourceRows    int    `json:"source_rows"`
	Columns       int    `json:"columns"`
	MergedRows    int    `json:"merged_rows"`
	PaddedRows    int    `json:"padded_rows"`
	HeaderFromRow bool   `json:"header_from_row"`
	DroppedSerial bool   `json:"dropped_serial"`
}

// Result is an inferred table with its report
type Result struct {
	Table  *table.Table
	Report Report
}

// Engine turns intermediate tables into typed tables
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// NewEngine creates an engine. Zero option fields fall back to DefaultOptions.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	def := DefaultOptions()
	if !opts.Overflow.Valid() {
		opts.Overflow = def.Overflow
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = def.CurrencySymbol
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{opts: opts, logger: logger.With(slog.String("component", "inference"))}
}

// Options returns the effective options
func (e *Engine) Options() Options { return e.opts }

// Infer builds a table from the intermediate representation
func (e *Engine) Infer(it recognition.IntermediateTable, s Strategy) (*table.Table, error) {
	res, err := e.InferReport(it, s)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

// InferReport builds a table and reports merges, padding and header choices.
// Blank rows are ignored. A serial column is prepended when there are rows.
func (e *Engine) InferReport(it recognition.IntermediateTable, s Strategy) (Result, error) {
	rows := nonBlank(it.Rows)
	rep := Report{Strategy: s.Kind.String(), SourceRows: len(rows)}

	var (
		header []string
		data   [][]string
		err    error
	)
	switch s.Kind {
	case SingleColumn:
		header, data = singleColumn(rows)
	case SingleCell:
		header, data = singleCell(rows)
	case AutoSplit:
		header, data = e.autoSplit(it, rows, &rep)
	case DeclaredSchema:
		header, data, err = declared(it, rows, &rep)
	case ManualSchema:
		header, data, err = e.manual(it, rows, s.Columns, &rep)
	default:
		err = domain.NewMalformedInputError("infer", "unknown strategy "+s.Kind.String())
	}
	if err != nil {
		return Result{}, err
	}

	if len(header) > 1 && isSerialName(header[0]) && isSerialColumn(column(data, 0)) {
		header = header[1:]
		for i := range data {
			data[i] = data[i][1:]
		}
		rep.DroppedSerial = true
	}

	specs := make([]table.ColumnSpec, len(header))
	for c, name := range header {
		kind, symbol := table.KindText, ""
		if s.Kind != SingleColumn && s.Kind != SingleCell {
			kind, symbol = inferKind(name, column(data, c))
		}
		if kind == table.KindCurrency && symbol == "" {
			symbol = e.opts.CurrencySymbol
		}
		specs[c] = table.ColumnSpec{Name: name, Kind: kind, Symbol: symbol}
	}

	tableRows := make([]table.Row, len(data))
	for i, r := range data {
		row := make(table.Row, len(r))
		for c, cell := range r {
			row[c] = table.Text(strings.TrimSpace(cell))
		}
		tableRows[i] = row
	}

	t, err := table.New(specs, tableRows, true)
	if err != nil {
		return Result{}, err
	}
	rep.Columns = t.ColumnCount()

	e.logger.Debug("table inferred",
		slog.String("strategy", rep.Strategy),
		slog.Int("source_rows", rep.SourceRows),
		slog.Int("rows", t.RowCount()),
		slog.Int("columns", rep.Columns),
		slog.Int("merged_rows", rep.MergedRows),
		slog.Int("padded_rows", rep.PaddedRows),
		slog.Bool("dropped_serial", rep.DroppedSerial))

	return Result{Table: t, Report: rep}, nil
}

func singleColumn(rows [][]string) ([]string, [][]string) {
	if len(rows) == 0 {
		return nil, nil
	}
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{flatten(r, " ")}
	}
	return []string{ExtractedTextColumn}, data
}

func singleCell(rows [][]string) ([]string, [][]string) {
	if len(rows) == 0 {
		return nil, nil
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = flatten(r, " ")
	}
	return []string{ExtractedTextColumn}, [][]string{{strings.Join(lines, "\n")}}
}

func (e *Engine) autoSplit(it recognition.IntermediateTable, rows [][]string, rep *Report) ([]string, [][]string) {
	if len(rows) == 0 && !it.HasHeader() {
		return nil, nil
	}
	if it.Lines {
		rows = e.split(rows)
	}

	var header []string
	if it.HasHeader() {
		header = it.Header
	} else if e.opts.HeaderFromFirstRow && len(rows) > 1 {
		header, rows = rows[0], rows[1:]
		rep.HeaderFromRow = true
	}

	var n int
	switch {
	case it.HasHeader():
		n = len(header)
	case e.opts.Overflow == OverflowWiden:
		n = maxCount(append([][]string{header}, rows...))
	default:
		n = modeCount(append(nonNil(header), rows...))
	}

	if header != nil {
		header, _ = fit(header, n)
	} else {
		header = make([]string, n)
	}
	data := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) < n {
			rep.PaddedRows++
		}
		var merged bool
		data[i], merged = fit(r, n)
		if merged {
			rep.MergedRows++
		}
	}
	return header, data
}

func declared(it recognition.IntermediateTable, rows [][]string, rep *Report) ([]string, [][]string, error) {
	if !it.HasHeader() {
		return nil, nil, domain.NewSchemaMissingError("infer", "declared schema strategy needs a header from the recognizer")
	}
	n := len(it.Header)
	data := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) < n {
			rep.PaddedRows++
		}
		var merged bool
		data[i], merged = fit(r, n)
		if merged {
			rep.MergedRows++
		}
	}
	return append([]string{}, it.Header...), data, nil
}

func (e *Engine) manual(it recognition.IntermediateTable, rows [][]string, columns []string, rep *Report) ([]string, [][]string, error) {
	if len(columns) == 0 {
		return nil, nil, domain.NewSchemaMissingError("infer", "manual schema strategy needs column names")
	}
	if it.Lines {
		rows = e.split(rows)
	}
	// a leading row that repeats the given names is a header line, not data
	if !it.HasHeader() && len(rows) > 0 && sameNames(rows[0], columns) {
		rows = rows[1:]
		rep.HeaderFromRow = true
	}

	n := len(columns)
	data := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) < n {
			rep.PaddedRows++
		}
		data[i] = truncate(r, n)
	}
	return append([]string{}, columns...), data, nil
}

func (e *Engine) split(rows [][]string) [][]string {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = strings.Join(r, "\t")
	}
	split := chooseSplitter(lines, e.opts.Delimiter)
	out := make([][]string, len(lines))
	for i, l := range lines {
		out[i] = split(l)
	}
	return out
}

func nonBlank(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, append([]string{}, r...))
				break
			}
		}
	}
	return out
}

func nonNil(header []string) [][]string {
	if header == nil {
		return nil
	}
	return [][]string{header}
}

func column(rows [][]string, c int) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if c < len(r) {
			out = append(out, r[c])
		}
	}
	return out
}

// flatten joins cells with sep, turning tab gaps into single spaces
func flatten(cells []string, sep string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = strings.TrimSpace(strings.ReplaceAll(c, "\t", " "))
	}
	return strings.Join(parts, sep)
}

func sameNames(row, columns []string) bool {
	if len(row) != len(columns) {
		return false
	}
	for i := range row {
		if !strings.EqualFold(strings.TrimSpace(row[i]), strings.TrimSpace(columns[i])) {
			return false
		}
	}
	return true
}
