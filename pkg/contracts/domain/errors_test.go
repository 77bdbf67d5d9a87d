package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversionError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same type", NewTypeMismatchError("update_cell", "Qty", "integer", "abc"), ErrTypeMismatch, true},
		{"different type", NewSchemaMissingError("infer", "no header"), ErrTypeMismatch, false},
		{"wrapped", fmt.Errorf("edit failed: %w", NewIndexOutOfRangeError("delete_row", "row", 5, 2)), ErrIndexOutOfRange, true},
		{"plain error", errors.New("boom"), ErrMalformedInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestConversionError_Error(t *testing.T) {
	err := NewExportFailureError("serialize", "could not write workbook", errors.New("disk full"))
	assert.Equal(t, "[export_failure] serialize: could not write workbook: disk full", err.Error())
	assert.Equal(t, "disk full", errors.Unwrap(err).Error())

	var nilErr *ConversionError
	assert.Equal(t, "unknown conversion error", nilErr.Error())
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeSessionNotFound, GetErrorType(fmt.Errorf("x: %w", NewSessionNotFoundError("abc"))))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("other")))
	assert.Equal(t, 5, NewIndexOutOfRangeError("op", "row", 5, 3).Context["index"])
}
