package exporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	at := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "extracted_text_20250102_150405.xlsx", Filename("", at, ""))
	assert.Equal(t, "invoice_20250102_150405.csv", Filename("invoice", at, ".csv"))
	assert.Equal(t, "a_b_20250102_150405.xlsx", Filename("a/b", at, "xlsx"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestExporter_Export(t *testing.T) {
	exp := New("", "receipt", nil)
	exp.now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }

	doc, err := exp.Export(invoice(t), FormatXLSX, nil)
	require.NoError(t, err)
	assert.Equal(t, "receipt_20250601_080000.xlsx", doc.Filename)
	assert.Equal(t, FormatXLSX.ContentType(), doc.ContentType)
	assert.NotEmpty(t, doc.Data)

	doc, err = exp.Export(invoice(t), FormatCSV, nil)
	require.NoError(t, err)
	assert.Equal(t, "receipt_20250601_080000.csv", doc.Filename)
	assert.Contains(t, doc.ContentType, "text/csv")

	_, err = exp.Export(invoice(t), Format("ods"), nil)
	assert.Error(t, err)
}
