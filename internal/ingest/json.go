package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// JSONReader parses structured uploads. Upload forms produce arbitrary
// shapes, so each element is decoded as a tagged variant and normalized to
// the canonical row; unexpected shapes fail closed as per-row errors rather
// than aborting the batch.
type JSONReader struct{}

// NewJSONReader creates a new JSON reader.
func NewJSONReader() *JSONReader {
	return &JSONReader{}
}

// Read extracts raw rows from a JSON stream. Accepted top-level shapes are
// a bare array of objects or an object with a "transactions" array.
func (j *JSONReader) Read(_ context.Context, r io.Reader) ([]Row, []RowError, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	elements, err := topLevelElements(data)
	if err != nil {
		return nil, nil, err
	}

	var rows []Row
	var rowErrs []RowError

	for i, element := range elements {
		line := i + 1
		row, err := decodeElement(element, line)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		rows = append(rows, row)
	}

	return rows, rowErrs, nil
}

func topLevelElements(data []byte) ([]json.RawMessage, error) {
	var asArray []json.RawMessage
	if err := json.Unmarshal(data, &asArray); err == nil {
		return asArray, nil
	}

	var asObject struct {
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(data, &asObject); err == nil && asObject.Transactions != nil {
		return asObject.Transactions, nil
	}

	return nil, fmt.Errorf("JSON is neither an array nor an object with a transactions array")
}

func decodeElement(raw json.RawMessage, line int) (Row, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Row{}, fmt.Errorf("element is not an object: %w", err)
	}

	row := Row{Line: line}
	for key, value := range fields {
		canonical, ok := headerAliases[strings.ToLower(key)]
		if !ok {
			continue
		}
		text, err := scalarToString(value)
		if err != nil {
			return Row{}, fmt.Errorf("field %q: %w", key, err)
		}
		switch canonical {
		case "date":
			row.Date = text
		case "description":
			row.Description = text
		case "amount":
			row.Amount = text
		case "balance":
			row.Balance = text
		}
	}

	if row.Date == "" || row.Amount == "" {
		return Row{}, fmt.Errorf("object is missing a date or amount field")
	}

	return row, nil
}

// scalarToString accepts the string and number encodings seen in upload
// payloads and rejects everything else.
func scalarToString(raw json.RawMessage) (string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString), nil
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return strconv.FormatFloat(asNumber, 'f', -1, 64), nil
	}

	return "", fmt.Errorf("expected string or number, got %s", string(raw))
}
