package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/oshinlather/image-to-excel-converter/internal/errors"
	"github.com/oshinlather/image-to-excel-converter/internal/middleware"
	"github.com/oshinlather/image-to-excel-converter/internal/recognition"
	"github.com/oshinlather/image-to-excel-converter/internal/services"
	api "github.com/oshinlather/image-to-excel-converter/pkg/contracts/api/v1"
)

// uploadField is the multipart field carrying the document
const uploadField = "file"

// SessionHandler handles session, extraction, edit and export requests
type SessionHandler struct {
	service      ConverterService
	validator    *middleware.ValidationMiddleware
	params       *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	maxUpload    int64
	logger       *slog.Logger
}

// NewSessionHandler creates a new session handler. maxUpload bounds the size
// of a recognized document.
func NewSessionHandler(service ConverterService, errorHandler *apierrors.ErrorHandler, maxUpload int64, logger *slog.Logger) *SessionHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &SessionHandler{
		service:      service,
		validator:    middleware.NewValidationMiddleware(logger, errorHandler, maxUpload),
		params:       middleware.NewQueryParamValidator(logger, errorHandler),
		errorHandler: errorHandler,
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("handler", "sessions")),
	}
}

// Routes returns a chi router for the session endpoints
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSession)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)

		r.Post("/extract", h.Extract)
		r.Post("/recognize", h.Recognize)

		r.Post("/rows", h.InsertRow)
		r.Delete("/rows/{row}", h.DeleteRow)
		r.Post("/rows/{row}/move", h.MoveRow)
		r.Put("/cells/{row}/{col}", h.UpdateCell)
		r.Post("/columns", h.AddColumn)
		r.Delete("/columns/{col}", h.RemoveColumn)
		r.Post("/clear", h.Clear)

		r.Get("/summary", h.Summary)
		r.Get("/export", h.Export)
		r.Post("/sheets", h.WriteSheets)
	})
	return r
}

// fail maps service errors to API errors; domain errors are mapped by the
// error handler itself
func (h *SessionHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrSheetsDisabled):
		err = apierrors.ErrSheetsDisabled
	case errors.Is(err, services.ErrSessionLimit):
		err = apierrors.New(http.StatusServiceUnavailable, "SESSION_LIMIT", "Too many open sessions, try again later")
	case errors.Is(err, services.ErrEngineUnavailable):
		err = apierrors.New(http.StatusServiceUnavailable, "ENGINE_UNAVAILABLE", err.Error())
	case errors.Is(err, services.ErrRecognitionFailed):
		err = apierrors.New(http.StatusBadGateway, "RECOGNITION_FAILED", err.Error())
	case errors.Is(err, services.ErrInvalidStrategy):
		err = apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_STRATEGY", err.Error(),
			apierrors.ValidationError{Field: "strategy", Message: "one of auto, single_column, single_cell, declared, manual"})
	case errors.Is(err, services.ErrInvalidTarget):
		err = apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_TARGET", err.Error(),
			apierrors.ValidationError{Field: "target", Message: "not a spreadsheet URL or id"})
	}
	h.errorHandler.HandleError(w, r, err)
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := h.validator.DecodeAndValidate(r, dst); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

func (h *SessionHandler) index(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	return h.params.ValidateIndex(w, r, param, chi.URLParam(r, param))
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, session api.Session, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, session)
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.CreateSession(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+session.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, session)
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, session, err)
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Extract handles POST /api/sessions/{id}/extract
func (h *SessionHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req api.ExtractRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.Extract(r.Context(), chi.URLParam(r, "id"), services.ExtractInput{
		Text:      req.Text,
		Result:    req.Result,
		Strategy:  req.Strategy,
		Columns:   req.Columns,
		Delimiter: req.Delimiter,
		Source:    req.Source,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// Recognize handles POST /api/sessions/{id}/recognize. The document is the
// multipart field "file"; options are plain form fields.
func (h *SessionHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(fmt.Errorf("multipart form: %w", err)))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	opts := api.RecognizeOptions{
		Engine:    strings.ToLower(strings.TrimSpace(r.FormValue("engine"))),
		Language:  strings.TrimSpace(r.FormValue("language")),
		Strategy:  strings.TrimSpace(r.FormValue("strategy")),
		Columns:   splitColumns(r.FormValue("columns")),
		Delimiter: r.FormValue("delimiter"),
	}
	if err := h.validator.ValidateStruct(&opts); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(http.StatusBadRequest, "MISSING_FILE",
			"A document is required in the \"file\" field",
			apierrors.ValidationError{Field: uploadField, Message: "file is required"}))
		return
	}
	defer file.Close()

	data, err := recognition.ReadAll(file, h.maxUpload)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != "application/octet-stream" {
		contentType = mt
	} else {
		contentType = http.DetectContentType(data)
	}

	h.logger.InfoContext(ctx, "document received",
		slog.String("request_id", middleware.GetRequestID(ctx)),
		slog.String("filename", header.Filename),
		slog.String("content_type", contentType),
		slog.Int("size", len(data)),
		slog.String("engine", opts.Engine))

	resp, err := h.service.Recognize(ctx, chi.URLParam(r, "id"), services.RecognizeInput{
		Source: recognition.Source{
			Name:        header.Filename,
			ContentType: contentType,
			Data:        data,
			Language:    opts.Language,
		},
		Engine:    opts.Engine,
		Strategy:  opts.Strategy,
		Columns:   opts.Columns,
		Delimiter: opts.Delimiter,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// splitColumns reads a comma separated column list; blank names are dropped
func splitColumns(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// InsertRow handles POST /api/sessions/{id}/rows
func (h *SessionHandler) InsertRow(w http.ResponseWriter, r *http.Request) {
	var req api.InsertRowRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.service.InsertRow(r.Context(), chi.URLParam(r, "id"), req.At, req.Values)
	h.respond(w, r, session, err)
}

// DeleteRow handles DELETE /api/sessions/{id}/rows/{row}
func (h *SessionHandler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	row, ok := h.index(w, r, "row")
	if !ok {
		return
	}
	session, err := h.service.DeleteRow(r.Context(), chi.URLParam(r, "id"), row)
	h.respond(w, r, session, err)
}

// MoveRow handles POST /api/sessions/{id}/rows/{row}/move
func (h *SessionHandler) MoveRow(w http.ResponseWriter, r *http.Request) {
	row, ok := h.index(w, r, "row")
	if !ok {
		return
	}
	var req api.MoveRowRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.service.MoveRow(r.Context(), chi.URLParam(r, "id"), row, *req.To)
	h.respond(w, r, session, err)
}

// UpdateCell handles PUT /api/sessions/{id}/cells/{row}/{col}
func (h *SessionHandler) UpdateCell(w http.ResponseWriter, r *http.Request) {
	row, ok := h.index(w, r, "row")
	if !ok {
		return
	}
	col, ok := h.index(w, r, "col")
	if !ok {
		return
	}
	var req api.UpdateCellRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.service.UpdateCell(r.Context(), chi.URLParam(r, "id"), row, col, req.Value)
	h.respond(w, r, session, err)
}

// AddColumn handles POST /api/sessions/{id}/columns
func (h *SessionHandler) AddColumn(w http.ResponseWriter, r *http.Request) {
	var req api.AddColumnRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.service.AddColumn(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.Name), req.Kind, req.At)
	h.respond(w, r, session, err)
}

// RemoveColumn handles DELETE /api/sessions/{id}/columns/{col}
func (h *SessionHandler) RemoveColumn(w http.ResponseWriter, r *http.Request) {
	col, ok := h.index(w, r, "col")
	if !ok {
		return
	}
	session, err := h.service.RemoveColumn(r.Context(), chi.URLParam(r, "id"), col)
	h.respond(w, r, session, err)
}

// Clear handles POST /api/sessions/{id}/clear
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Clear(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, session, err)
}

// Summary handles GET /api/sessions/{id}/summary
func (h *SessionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Export handles GET /api/sessions/{id}/export?format=xlsx|csv&metadata=true
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, ok := h.params.ValidateEnum(w, r, "format", []string{"xlsx", "csv"}, "xlsx")
	if !ok {
		return
	}
	withMeta, ok := h.params.ValidateBool(w, r, "metadata", false)
	if !ok {
		return
	}

	doc, err := h.service.Export(r.Context(), chi.URLParam(r, "id"), format, withMeta)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		h.logger.WarnContext(r.Context(), "export response truncated",
			slog.String("filename", doc.Filename),
			slog.String("error", err.Error()))
	}
}

// WriteSheets handles POST /api/sessions/{id}/sheets
func (h *SessionHandler) WriteSheets(w http.ResponseWriter, r *http.Request) {
	var req api.WriteSheetsRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.WriteSheets(r.Context(), chi.URLParam(r, "id"), req.Target, req.Mode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}
