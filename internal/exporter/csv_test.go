package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshinlather/image-to-excel-converter/internal/table"
)

func TestCSVWriter_Write(t *testing.T) {
	tests := []struct {
		name     string
		options  WriteOptions
		validate func(t *testing.T, content []byte)
	}{
		{
			name:    "basic write with headers",
			options: WriteOptions{},
			validate: func(t *testing.T, content []byte) {
				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Len(t, lines, 3) // header + 2 records
				assert.Equal(t, "S.No.,Item,Qty,Weight,Price", lines[0])
				assert.Equal(t, "1,Pen,2,0.25,₹10.00", lines[1])
				assert.Equal(t, "2,Notebook,1,,₹1249.50", lines[2])
			},
		},
		{
			name:    "write with BOM prefix",
			options: WriteOptions{BOMPrefix: true},
			validate: func(t *testing.T, content []byte) {
				assert.True(t, bytes.HasPrefix(content, utf8BOM))
				assert.True(t, bytes.HasPrefix(content[3:], []byte("S.No.,Item")))
			},
		},
		{
			name:    "append skips header and BOM",
			options: WriteOptions{Append: true, BOMPrefix: true},
			validate: func(t *testing.T, content []byte) {
				assert.False(t, bytes.HasPrefix(content, utf8BOM))
				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Len(t, lines, 2)
				assert.True(t, strings.HasPrefix(lines[0], "1,Pen"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := NewCSVWriter(nil).Write(&buf, invoice(t), tt.options)
			require.NoError(t, err)
			tt.validate(t, buf.Bytes())
		})
	}
}

func TestCSVWriter_EmptyTable(t *testing.T) {
	tbl, err := table.New(nil, nil, true)
	require.NoError(t, err)

	data, err := NewCSVWriter(nil).Serialize(tbl)
	require.NoError(t, err)
	assert.Equal(t, utf8BOM, data)
}

func TestCSVWriter_WriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")
	writer := NewCSVWriter(nil)

	require.NoError(t, writer.WriteFile(path, invoice(t), WriteOptions{BOMPrefix: true}))
	require.NoError(t, writer.WriteFile(path, invoice(t), WriteOptions{Append: true}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content[3:])), "\n")
	assert.Len(t, lines, 5, "header once, rows twice")
}
