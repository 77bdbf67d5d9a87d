package recognition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

// FromText wraps plain multi-line text as a text result. Text is NFKC
// normalized so full-width digits and symbols parse as numbers later; blank
// lines are dropped.
func FromText(text string) RawResult {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	blob := &TextBlob{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		blob.Lines = append(blob.Lines, Line{Text: strings.TrimLeft(line, " ")})
	}
	return RawResult{Kind: KindText, Text: blob}
}

// Parse accepts either plain text or a JSON document. Input that starts with
// '{' (optionally inside a ```json fence) is parsed as JSON, as is a valid
// JSON array. Text lines that merely open with '[' stay text.
func Parse(data []byte) (RawResult, error) {
	body := stripFence(bytes.TrimSpace(data))
	switch {
	case len(body) == 0:
	case body[0] == '{':
		return ParseJSON(body)
	case body[0] == '[' && json.Valid(body):
		return ParseJSON(body)
	}
	return FromText(string(data)), nil
}

// ParseJSON accepts {"columns": [...], "rows": [[...]]},
// {"records": [{...}]} or a bare array of records [{...}]. Record key order
// is preserved. Any other shape is a malformed input.
func ParseJSON(data []byte) (RawResult, error) {
	body := stripFence(bytes.TrimSpace(data))
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if len(body) > 0 && body[0] == '[' {
		records, err := readRecords(dec)
		if err != nil {
			return RawResult{}, malformed("a top-level array must hold record objects", err)
		}
		if _, err := dec.Token(); err != io.EOF {
			return RawResult{}, malformed("unexpected data after the records array", err)
		}
		return RawResult{Kind: KindStructured, Structured: &StructuredResult{Records: records}}, nil
	}

	if err := expectDelim(dec, '{'); err != nil {
		return RawResult{}, malformed("expected a JSON object", err)
	}

	var (
		columns    []string
		rows       [][]string
		records    []Record
		hasColumns bool
		hasRows    bool
		hasRecords bool
	)
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return RawResult{}, malformed("invalid object key", err)
		}
		switch key {
		case "columns":
			hasColumns = true
			if columns, err = readStrings(dec); err != nil {
				return RawResult{}, malformed("columns must be an array of strings", err)
			}
		case "rows":
			hasRows = true
			if rows, err = readRows(dec); err != nil {
				return RawResult{}, malformed("rows must be an array of arrays", err)
			}
		case "records":
			hasRecords = true
			if records, err = readRecords(dec); err != nil {
				return RawResult{}, malformed("records must be an array of objects", err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return RawResult{}, malformed("invalid JSON", err)
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return RawResult{}, malformed("invalid JSON", err)
	}

	switch {
	case hasRecords && !hasRows:
		return RawResult{Kind: KindStructured, Structured: &StructuredResult{FieldOrder: columns, Records: records}}, nil
	case hasColumns && hasRows:
		sr := &StructuredResult{FieldOrder: columns}
		for i, r := range rows {
			if len(r) > len(columns) {
				return RawResult{}, domain.NewMalformedInputError("parse_json",
					fmt.Sprintf("row %d has %d cells but only %d columns are declared", i, len(r), len(columns))).
					WithContext("row", i)
			}
			rec := make(Record, len(r))
			for c, v := range r {
				rec[c] = Field{Name: columns[c], Value: v}
			}
			sr.Records = append(sr.Records, rec)
		}
		return RawResult{Kind: KindStructured, Structured: sr}, nil
	}
	return RawResult{}, domain.NewMalformedInputError("parse_json",
		`expected {"columns": [...], "rows": [[...]]} or {"records": [{...}]}`)
}

func malformed(msg string, cause error) error {
	e := domain.NewMalformedInputError("parse_json", msg)
	e.Cause = cause
	return e
}

// stripFence removes a surrounding markdown code fence, which vision models
// tend to add around JSON answers.
func stripFence(b []byte) []byte {
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	b = b[3:]
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
		b = b[nl+1:]
	}
	if end := bytes.LastIndex(b, []byte("```")); end >= 0 {
		b = b[:end]
	}
	return bytes.TrimSpace(b)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected key, got %v", tok)
	}
	return key, nil
}

// readScalar reads a string, number, bool or null as a cell string
func readScalar(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	switch v := tok.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("expected a scalar value, got %v", tok)
}

func readStrings(dec *json.Decoder) ([]string, error) {
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	out := []string{}
	for dec.More() {
		s, err := readScalar(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, expectDelim(dec, ']')
}

func readRows(dec *json.Decoder) ([][]string, error) {
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	var out [][]string
	for dec.More() {
		row, err := readStrings(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, expectDelim(dec, ']')
}

func readRecords(dec *json.Decoder) ([]Record, error) {
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	var out []Record
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		rec := Record{}
		for dec.More() {
			name, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			value, err := readScalar(dec)
			if err != nil {
				return nil, err
			}
			rec = append(rec, Field{Name: name, Value: value})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, expectDelim(dec, ']')
}

// ReadAll is a convenience for recognizers reading an upload
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, domain.NewMalformedInputError("read", fmt.Sprintf("input exceeds %d bytes", limit))
	}
	return data, nil
}
