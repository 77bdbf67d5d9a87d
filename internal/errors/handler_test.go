package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshinlather/image-to-excel-converter/internal/shared/testutil"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

func TestErrorToProblem(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"malformed input", domain.NewMalformedInputError("normalize", "unknown field"), http.StatusBadRequest, TypeMalformedInput},
		{"schema missing", domain.NewSchemaMissingError("infer", "no columns"), http.StatusUnprocessableEntity, TypeSchemaMissing},
		{"type mismatch", domain.NewTypeMismatchError("update", "Qty", "integer", "abc"), http.StatusUnprocessableEntity, TypeTypeMismatch},
		{"index out of range", domain.NewIndexOutOfRangeError("delete", "row", 9, 2), http.StatusBadRequest, TypeIndexOutOfRange},
		{"export failure", domain.NewExportFailureError("xlsx", "too wide", nil), http.StatusUnprocessableEntity, TypeExportFailure},
		{"session not found", domain.NewSessionNotFoundError("abc"), http.StatusNotFound, TypeSessionNotFound},
		{"wrapped domain error", fmt.Errorf("extract: %w", domain.NewSchemaMissingError("infer", "x")), http.StatusUnprocessableEntity, TypeSchemaMissing},
		{"validation", NewValidationErrors([]ValidationError{{Field: "name", Message: "required"}}), http.StatusBadRequest, TypeValidation},
		{"timeout", fmt.Errorf("recognize: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, TypeTimeout},
		{"upload too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"sheets disabled", ErrSheetsDisabled, http.StatusServiceUnavailable, TypeServiceDown},
		{"anything else", fmt.Errorf("disk on fire"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, req)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/sessions/abc", problem.Instance)
		})
	}
}

func TestHandleError(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/s1/rows/7", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-42"))
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, domain.NewIndexOutOfRangeError("delete row", "row", 7, 3))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeIndexOutOfRange, body["type"])
	assert.Equal(t, "req-42", body["trace_id"])
	assert.Equal(t, "index_out_of_range", body["error_type"])
	assert.EqualValues(t, 7, body["index"])
	assert.EqualValues(t, 3, body["limit"])

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "request failed")
	testutil.AssertLogAttr(t, handler, "component", "error_handler")
}

func TestHandlePanic(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), true)
	rec := httptest.NewRecorder()

	h.HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/boom", nil), "kaboom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "kaboom", body["panic"])
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := NewErrorHandler(nil, false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodPatch, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "PATCH")
}

func TestProblemDetailsMarshal(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad", "", "").
		WithExtension("type", "overridden?").
		WithExtension("field", "name")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, TypeValidation, body["type"], "standard members win over extensions")
	assert.Equal(t, "name", body["field"])
	assert.NotContains(t, body, "detail")
}
