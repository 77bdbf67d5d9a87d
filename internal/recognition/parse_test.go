package recognition

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

func TestFromText(t *testing.T) {
	raw := FromText("Item  Price\r\n\n  Pen  ＄１.５０  \n   \n")

	require.Equal(t, KindText, raw.Kind)
	require.Len(t, raw.Text.Lines, 2)
	assert.Equal(t, "Item  Price", raw.Text.Lines[0].Text)
	assert.Equal(t, "Pen  $1.50", raw.Text.Lines[1].Text, "full-width characters are folded")
}

func TestFromText_Blank(t *testing.T) {
	raw := FromText("  \n\n")
	assert.True(t, raw.IsEmpty())
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantHeader []string
		wantRows   [][]string
	}{
		{
			name:       "columns and rows",
			input:      `{"columns": ["Item", "Qty"], "rows": [["Pen", "2"], ["Book", 1]]}`,
			wantHeader: []string{"Item", "Qty"},
			wantRows:   [][]string{{"Pen", "2"}, {"Book", "1"}},
		},
		{
			name:       "records keep key order",
			input:      `{"records": [{"Zeta": "z", "Alpha": 1.5, "Mid": null}]}`,
			wantHeader: []string{"Zeta", "Alpha", "Mid"},
			wantRows:   [][]string{{"z", "1.5", ""}},
		},
		{
			name:       "short rows are padded",
			input:      `{"columns": ["a", "b"], "rows": [["1"]]}`,
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{"1", ""}},
		},
		{
			name:       "fenced answer",
			input:      "```json\n{\"columns\": [\"a\"], \"rows\": [[\"x\"]]}\n```",
			wantHeader: []string{"a"},
			wantRows:   [][]string{{"x"}},
		},
		{
			name:       "bare records array",
			input:      `[{"Item": "Pen", "Price": "1.50"}, {"Price": 9.99, "Item": "Book"}]`,
			wantHeader: []string{"Item", "Price"},
			wantRows:   [][]string{{"Pen", "1.50"}, {"Book", "9.99"}},
		},
		{
			name:       "unknown keys are ignored",
			input:      `{"note": {"any": true}, "columns": ["a"], "rows": []}`,
			wantHeader: []string{"a"},
			wantRows:   [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ParseJSON([]byte(tt.input))
			require.NoError(t, err)
			require.Equal(t, KindStructured, raw.Kind)

			it, err := Normalize(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, it.Header)
			assert.Equal(t, tt.wantRows, it.Rows)
		})
	}
}

func TestParseJSON_Malformed(t *testing.T) {
	inputs := []string{
		`[1, 2, 3]`,
		`[["Pen", "2"]]`,
		`[{"a": "1"}] trailing`,
		`{}`,
		`{"columns": ["a"]}`,
		`{"rows": [["a"]]}`,
		`{"columns": ["a"], "rows": [["1", "2"]]}`,
		`{"records": [["not", "an", "object"]]}`,
		`{"columns": [{"nested": 1}], "rows": []}`,
		`{"columns": ["a"], "rows": [["x"]]`,
		`not json`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseJSON([]byte(in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedInput), "got %v", err)
		})
	}
}

func TestParse_DetectsShape(t *testing.T) {
	raw, err := Parse([]byte(`  {"records": [{"a": "1"}]}`))
	require.NoError(t, err)
	assert.Equal(t, KindStructured, raw.Kind)

	raw, err = Parse([]byte("Pen  2\nBook  1"))
	require.NoError(t, err)
	assert.Equal(t, KindText, raw.Kind)
	assert.Len(t, raw.Text.Lines, 2)

	raw, err = Parse([]byte("[Store copy]\nPen  2"))
	require.NoError(t, err)
	assert.Equal(t, KindText, raw.Kind, "bracketed text is not JSON")
}

func TestParse_RecordsArray(t *testing.T) {
	inputs := map[string]string{
		"bare":   `[{"Item": "Pen", "Price": "1.50"}]`,
		"fenced": "```json\n[{\"Item\": \"Pen\", \"Price\": \"1.50\"}]\n```",
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			raw, err := Parse([]byte(in))
			require.NoError(t, err)
			require.Equal(t, KindStructured, raw.Kind)

			it, err := Normalize(raw)
			require.NoError(t, err)
			assert.Equal(t, []string{"Item", "Price"}, it.Header)
			assert.Equal(t, [][]string{{"Pen", "1.50"}}, it.Rows)
		})
	}

	_, err := Parse([]byte(`[1, 2]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
}

func TestReadAll(t *testing.T) {
	data, err := ReadAll(strings.NewReader("abc"), 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	_, err = ReadAll(strings.NewReader("abcd"), 3)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
}
