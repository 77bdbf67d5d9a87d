package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/oshinlather/image-to-excel-converter/internal/aggregation"
	"github.com/oshinlather/image-to-excel-converter/internal/exporter"
	"github.com/oshinlather/image-to-excel-converter/internal/inference"
	"github.com/oshinlather/image-to-excel-converter/internal/infrastructure"
	"github.com/oshinlather/image-to-excel-converter/internal/recognition"
	"github.com/oshinlather/image-to-excel-converter/internal/sheets"
	"github.com/oshinlather/image-to-excel-converter/internal/table"
	api "github.com/oshinlather/image-to-excel-converter/pkg/contracts/api/v1"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

// Notifier receives session changes. Implementations must not block.
type Notifier interface {
	PublishSnapshot(ctx context.Context, operation string, session api.Session)
	PublishClosed(ctx context.Context, sessionID string)
}

// SheetWriter is the remote spreadsheet collaborator
type SheetWriter interface {
	Write(ctx context.Context, target sheets.Target, rows sheets.Rows, mode sheets.Mode) sheets.Result
}

// ConverterDeps are the collaborators of the converter service. Store and
// Exporter are required; nil Sheets disables remote writes.
type ConverterDeps struct {
	Store       *SessionStore
	Recognizers recognition.Registry
	Exporter    *exporter.Exporter
	Sheets      SheetWriter
	Notifier    Notifier
	Metrics     *infrastructure.ConverterMetrics
	Tracer      trace.Tracer
	Logger      *slog.Logger
}

// ConverterOptions tune the pipeline
type ConverterOptions struct {
	Inference  inference.Options
	Language   string
	SheetsMode sheets.Mode
}

// ExtractInput is an already recognized result. Result, when set, is parsed
// as JSON; otherwise Text is split into lines.
type ExtractInput struct {
	Text      string
	Result    []byte
	Strategy  string
	Columns   []string
	Delimiter string
	Source    string
}

// RecognizeInput is an uploaded document. An empty Engine is chosen from the
// file name and content type.
type RecognizeInput struct {
	Source    recognition.Source
	Engine    string
	Strategy  string
	Columns   []string
	Delimiter string
}

// ConverterService runs the extraction pipeline and table edits per session
type ConverterService struct {
	store       *SessionStore
	recognizers recognition.Registry
	exporter    *exporter.Exporter
	sheets      SheetWriter
	notifier    Notifier
	metrics     *infrastructure.ConverterMetrics
	tracer      trace.Tracer
	logger      *slog.Logger
	opts        ConverterOptions
}

// NewConverterService wires the service. Missing optional collaborators
// fall back to no-ops.
func NewConverterService(deps ConverterDeps, opts ConverterOptions) *ConverterService {
	if deps.Store == nil {
		deps.Store = NewSessionStore(0)
	}
	if deps.Exporter == nil {
		deps.Exporter = exporter.New("", "", deps.Logger)
	}
	if deps.Recognizers == nil {
		deps.Recognizers = recognition.Registry{recognition.EngineText: recognition.TextRecognizer{}}
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics, _ = infrastructure.NewConverterMetrics(nil)
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer(infrastructure.ServiceName)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Language == "" {
		opts.Language = recognition.DefaultLanguage
	}
	if opts.SheetsMode == "" {
		opts.SheetsMode = sheets.ModeAppend
	}

	return &ConverterService{
		store:       deps.Store,
		recognizers: deps.Recognizers,
		exporter:    deps.Exporter,
		sheets:      deps.Sheets,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		tracer:      deps.Tracer,
		logger:      deps.Logger.With(slog.String("component", "converter_service")),
		opts:        opts,
	}
}

// SessionCount returns the number of open sessions
func (s *ConverterService) SessionCount() int {
	return s.store.Len()
}

// SheetsEnabled reports whether a sheets writer is configured
func (s *ConverterService) SheetsEnabled() bool {
	return s.sheets != nil
}

// CreateSession opens a session with an empty table
func (s *ConverterService) CreateSession(ctx context.Context, name string) (api.Session, error) {
	sess, err := s.store.Create(name)
	if err != nil {
		s.logger.WarnContext(ctx, "session rejected",
			slog.String("error", err.Error()),
			slog.Int("sessions", s.store.Len()))
		return api.Session{}, err
	}
	s.metrics.ActiveSessions.Add(ctx, 1)
	s.logger.InfoContext(ctx, "session created", slog.String("session_id", sess.ID))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sessionView(sess), nil
}

// GetSession returns the table and summary of a session
func (s *ConverterService) GetSession(ctx context.Context, id string) (api.Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return api.Session{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.see(s.store.now())
	return sessionView(sess), nil
}

// DeleteSession drops a session and its table
func (s *ConverterService) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.store.Delete(id); err != nil {
		return err
	}
	s.metrics.ActiveSessions.Add(ctx, -1)
	s.notifier.PublishClosed(ctx, id)
	s.logger.InfoContext(ctx, "session deleted", slog.String("session_id", id))
	return nil
}

// ExpireIdle drops sessions idle for longer than idle and returns how many
// were removed
func (s *ConverterService) ExpireIdle(ctx context.Context, idle time.Duration) int {
	ids := s.store.Expire(idle)
	for _, id := range ids {
		s.metrics.ActiveSessions.Add(ctx, -1)
		s.notifier.PublishClosed(ctx, id)
	}
	if len(ids) > 0 {
		s.logger.InfoContext(ctx, "idle sessions expired",
			slog.Int("count", len(ids)),
			slog.Duration("idle", idle))
	}
	return len(ids)
}

// Extract replaces the session table with one built from a recognized
// result
func (s *ConverterService) Extract(ctx context.Context, id string, in ExtractInput) (api.ExtractResponse, error) {
	ctx, span := s.tracer.Start(ctx, "converter.extract",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	sess, err := s.store.Get(id)
	if err != nil {
		return api.ExtractResponse{}, err
	}

	var raw recognition.RawResult
	if len(in.Result) > 0 {
		raw, err = recognition.ParseJSON(in.Result)
		if err != nil {
			s.metrics.RecordStage(ctx, "parse", err)
			return api.ExtractResponse{}, err
		}
	} else {
		raw = recognition.FromText(in.Text)
	}

	return s.load(ctx, sess, raw, loadInput{
		engine:    string(recognition.EngineText),
		strategy:  in.Strategy,
		columns:   in.Columns,
		delimiter: in.Delimiter,
		source:    in.Source,
	})
}

// Recognize runs a recognition engine on an uploaded document and replaces
// the session table with the result. The engine call is not retried.
func (s *ConverterService) Recognize(ctx context.Context, id string, in RecognizeInput) (api.ExtractResponse, error) {
	ctx, span := s.tracer.Start(ctx, "converter.recognize",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	sess, err := s.store.Get(id)
	if err != nil {
		return api.ExtractResponse{}, err
	}

	src := in.Source
	if src.Language == "" {
		src.Language = s.opts.Language
	}
	engine := recognition.Engine(in.Engine)
	if engine == "" {
		engine = recognition.EngineFor(src)
	}
	span.SetAttributes(attribute.String("recognition.engine", string(engine)))

	rec, err := s.recognizers.Get(engine)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		s.metrics.RecordStage(ctx, "recognize", err)
		return api.ExtractResponse{}, err
	}

	imageSize := ""
	if engine == recognition.EngineOCR || engine == recognition.EngineVision {
		if info, err := recognition.DecodeImageInfo(src.Data); err == nil {
			imageSize = info.Size()
		} else {
			s.logger.DebugContext(ctx, "image header not decoded",
				slog.String("source", src.Name),
				slog.String("error", err.Error()))
		}
	}

	start := time.Now()
	raw, err := rec.Recognize(ctx, src)
	if err != nil {
		err = classifyRecognitionError(err)
		s.metrics.RecordStage(ctx, "recognize", err)
		s.logger.WarnContext(ctx, "recognition failed",
			slog.String("session_id", id),
			slog.String("engine", string(engine)),
			slog.String("source", src.Name),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return api.ExtractResponse{}, err
	}

	return s.load(ctx, sess, raw, loadInput{
		engine:    string(engine),
		strategy:  in.Strategy,
		columns:   in.Columns,
		delimiter: in.Delimiter,
		source:    src.Name,
		imageSize: imageSize,
		started:   start,
	})
}

// classifyRecognitionError keeps domain and context errors as they are and
// wraps everything else in a service sentinel
func classifyRecognitionError(err error) error {
	if domain.GetErrorType(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, recognition.ErrOCRNotEnabled) {
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
}

type loadInput struct {
	engine    string
	strategy  string
	columns   []string
	delimiter string
	source    string
	imageSize string
	started   time.Time
}

// load normalizes raw, infers the table and installs it in the session
func (s *ConverterService) load(ctx context.Context, sess *Session, raw recognition.RawResult, in loadInput) (api.ExtractResponse, error) {
	if in.started.IsZero() {
		in.started = time.Now()
	}

	strategy, err := inference.ParseStrategy(in.strategy, in.columns)
	if err != nil {
		if errors.Is(err, inference.ErrUnknownStrategy) {
			err = fmt.Errorf("%w: %w", ErrInvalidStrategy, err)
		}
		s.recordExtraction(ctx, in, "unknown", err)
		return api.ExtractResponse{}, err
	}

	it, err := recognition.Normalize(raw)
	if err != nil {
		s.recordExtraction(ctx, in, strategy.Kind.String(), err)
		return api.ExtractResponse{}, err
	}

	opts := s.opts.Inference
	if in.delimiter != "" {
		opts.Delimiter = in.delimiter
	}
	res, err := inference.NewEngine(opts, s.logger).InferReport(it, strategy)
	if err != nil {
		s.recordExtraction(ctx, in, strategy.Kind.String(), err)
		return api.ExtractResponse{}, err
	}

	sess.mu.Lock()
	now := s.store.now()
	sess.table = res.Table
	sess.source = in.source
	sess.imageSize = in.imageSize
	sess.extractedAt = now
	sess.touch(now)
	view := sessionView(sess)
	sess.mu.Unlock()

	s.recordExtraction(ctx, in, strategy.Kind.String(), nil)
	s.metrics.ExtractedRows.Record(ctx, int64(res.Table.RowCount()))
	if res.Report.MergedRows > 0 {
		s.metrics.MergedRows.Add(ctx, int64(res.Report.MergedRows))
	}

	s.logger.InfoContext(ctx, "table extracted",
		slog.String("session_id", sess.ID),
		slog.String("engine", in.engine),
		slog.String("strategy", strategy.Kind.String()),
		slog.Int("rows", view.Summary.RowCount),
		slog.Int("columns", view.Summary.ColumnCount),
		slog.Int("merged_rows", res.Report.MergedRows))

	s.notifier.PublishSnapshot(ctx, "extract", view)
	return api.ExtractResponse{Session: view, Report: reportView(res.Report, in.engine)}, nil
}

func (s *ConverterService) recordExtraction(ctx context.Context, in loadInput, strategy string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		s.metrics.RecordStage(ctx, "extract", err)
		s.logger.WarnContext(ctx, "extraction failed",
			slog.String("engine", in.engine),
			slog.String("strategy", strategy),
			slog.String("error", err.Error()))
	}
	attrs := metric.WithAttributes(
		attribute.String("engine", in.engine),
		attribute.String("strategy", strategy),
		attribute.String("outcome", outcome),
	)
	s.metrics.ExtractionsTotal.Add(ctx, 1, attrs)
	s.metrics.ExtractionDuration.Record(ctx, time.Since(in.started).Seconds(), attrs)
}

// InsertRow inserts values at index at; a nil at appends
func (s *ConverterService) InsertRow(ctx context.Context, id string, at *int, values []string) (api.Session, error) {
	return s.mutate(ctx, id, "insert_row", func(t *table.Table) error {
		index := t.RowCount()
		if at != nil {
			index = *at
		}
		return t.InsertRow(index, cellsFromText(values))
	})
}

// DeleteRow removes the row at index row
func (s *ConverterService) DeleteRow(ctx context.Context, id string, row int) (api.Session, error) {
	return s.mutate(ctx, id, "delete_row", func(t *table.Table) error {
		return t.DeleteRow(row)
	})
}

// MoveRow moves a row to a new index
func (s *ConverterService) MoveRow(ctx context.Context, id string, from, to int) (api.Session, error) {
	return s.mutate(ctx, id, "move_row", func(t *table.Table) error {
		return t.MoveRow(from, to)
	})
}

// UpdateCell replaces one cell, coercing value to the column kind
func (s *ConverterService) UpdateCell(ctx context.Context, id string, row, column int, value string) (api.Session, error) {
	return s.mutate(ctx, id, "update_cell", func(t *table.Table) error {
		return t.UpdateCell(row, column, cellFromText(value))
	})
}

// AddColumn inserts an empty column; a nil at appends. An empty kind is text.
func (s *ConverterService) AddColumn(ctx context.Context, id, name, kind string, at *int) (api.Session, error) {
	k := table.KindText
	if kind != "" {
		parsed, err := table.ParseKind(kind)
		if err != nil {
			return api.Session{}, domain.NewTypeMismatchError("add_column", name, "kind", kind)
		}
		k = parsed
	}
	return s.mutate(ctx, id, "add_column", func(t *table.Table) error {
		index := t.ColumnCount()
		if at != nil {
			index = *at
		}
		_, err := t.AddColumn(name, k, index)
		return err
	})
}

// RemoveColumn drops a column and its cells
func (s *ConverterService) RemoveColumn(ctx context.Context, id string, column int) (api.Session, error) {
	return s.mutate(ctx, id, "remove_column", func(t *table.Table) error {
		return t.RemoveColumn(column)
	})
}

// Clear resets the session table to zero rows and zero columns
func (s *ConverterService) Clear(ctx context.Context, id string) (api.Session, error) {
	return s.mutate(ctx, id, "clear", func(t *table.Table) error {
		t.Clear()
		return nil
	})
}

// mutate applies fn under the session lock. Table operations are atomic, so
// a failed fn leaves the session unchanged and publishes nothing.
func (s *ConverterService) mutate(ctx context.Context, id, op string, fn func(t *table.Table) error) (api.Session, error) {
	ctx, span := s.tracer.Start(ctx, "converter."+op,
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	sess, err := s.store.Get(id)
	if err != nil {
		return api.Session{}, err
	}

	sess.mu.Lock()
	if err := fn(sess.table); err != nil {
		sess.see(s.store.now())
		sess.mu.Unlock()

		s.metrics.TableEditsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("outcome", "error")))
		s.metrics.RecordStage(ctx, op, err)
		s.logger.WarnContext(ctx, "table edit rejected",
			slog.String("session_id", id),
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return api.Session{}, err
	}
	sess.touch(s.store.now())
	view := sessionView(sess)
	sess.mu.Unlock()

	s.metrics.TableEditsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", "success")))
	s.logger.DebugContext(ctx, "table edited",
		slog.String("session_id", id),
		slog.String("operation", op),
		slog.Int64("revision", view.Revision))

	s.notifier.PublishSnapshot(ctx, op, view)
	return view, nil
}

// Summary recomputes the aggregates of the session table
func (s *ConverterService) Summary(ctx context.Context, id string) (api.Summary, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return api.Summary{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.see(s.store.now())
	return summaryView(aggregation.Summarize(sess.table)), nil
}

// snapshot is a read-only copy of a session taken under its lock
type snapshot struct {
	table       *table.Table
	source      string
	imageSize   string
	extractedAt time.Time
}

func (s *ConverterService) snapshot(id string) (snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.see(s.store.now())
	return snapshot{
		table:       sess.table.Clone(),
		source:      sess.source,
		imageSize:   sess.imageSize,
		extractedAt: sess.extractedAt,
	}, nil
}

// Export renders the session table. The metadata sheet is only written to
// xlsx documents.
func (s *ConverterService) Export(ctx context.Context, id, format string, withMetadata bool) (exporter.Document, error) {
	ctx, span := s.tracer.Start(ctx, "converter.export",
		trace.WithAttributes(attribute.String("session.id", id), attribute.String("export.format", format)))
	defer span.End()

	f, err := exporter.ParseFormat(format)
	if err != nil {
		return exporter.Document{}, domain.NewExportFailureError("export", err.Error(), nil)
	}

	snap, err := s.snapshot(id)
	if err != nil {
		return exporter.Document{}, err
	}

	var meta *exporter.Metadata
	if withMetadata {
		at := snap.extractedAt
		if at.IsZero() {
			at = s.store.now()
		}
		meta = &exporter.Metadata{
			SourceFile:     snap.source,
			ExtractionDate: at,
			ImageSize:      snap.imageSize,
		}
	}

	doc, err := s.exporter.Export(snap.table, f, meta)
	outcome := "success"
	if err != nil {
		outcome = "error"
		s.metrics.RecordStage(ctx, "export", err)
		s.logger.ErrorContext(ctx, "export failed",
			slog.String("session_id", id),
			slog.String("format", string(f)),
			slog.String("error", err.Error()))
	}
	s.metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", string(f)),
		attribute.String("outcome", outcome)))
	if err != nil {
		return exporter.Document{}, err
	}

	s.metrics.ExportBytes.Record(ctx, int64(len(doc.Data)), metric.WithAttributes(attribute.String("format", string(f))))
	s.logger.InfoContext(ctx, "table exported",
		slog.String("session_id", id),
		slog.String("filename", doc.Filename),
		slog.Int("bytes", len(doc.Data)))
	return doc, nil
}

// WriteSheets pushes the session table to a Google spreadsheet. A failed
// write is reported in the response, not as an error.
func (s *ConverterService) WriteSheets(ctx context.Context, id, locator, mode string) (api.SheetsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "converter.write_sheets",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	if s.sheets == nil {
		return api.SheetsResponse{}, ErrSheetsDisabled
	}

	target, err := sheets.ParseTarget(locator)
	if err != nil {
		return api.SheetsResponse{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	m := s.opts.SheetsMode
	if mode != "" {
		if m, err = sheets.ParseMode(mode); err != nil {
			return api.SheetsResponse{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
	}

	snap, err := s.snapshot(id)
	if err != nil {
		return api.SheetsResponse{}, err
	}

	res := s.sheets.Write(ctx, target, snap.table, m)
	outcome := "success"
	if !res.OK {
		outcome = "error"
	}
	s.metrics.SheetWritesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(m)),
		attribute.String("outcome", outcome)))

	return api.SheetsResponse{OK: res.OK, Message: res.Message, UpdatedRows: res.UpdatedRows}, nil
}

type nopNotifier struct{}

func (nopNotifier) PublishSnapshot(context.Context, string, api.Session) {}
func (nopNotifier) PublishClosed(context.Context, string)                {}
