package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVReader parses tabular bank exports. Header names are matched against
// Portuguese and English aliases; the delimiter is sniffed from the header
// line since European exports favor semicolons.
type CSVReader struct{}

// NewCSVReader creates a new CSV reader.
func NewCSVReader() *CSVReader {
	return &CSVReader{}
}

var headerAliases = map[string]string{
	"date":        "date",
	"data":        "date",
	"description": "description",
	"descricao":   "description",
	"descrição":   "description",
	"desc":        "description",
	"movimento":   "description",
	"amount":      "amount",
	"montante":    "amount",
	"valor":       "amount",
	"importancia": "amount",
	"balance":     "balance",
	"saldo":       "balance",
}

// Read extracts raw rows from a CSV stream.
func (c *CSVReader) Read(_ context.Context, r io.Reader) ([]Row, []RowError, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(content)))
	reader.Comma = sniffDelimiter(string(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := mapColumns(header)
	if _, ok := columns["date"]; !ok {
		return nil, nil, fmt.Errorf("CSV header has no recognizable date column")
	}
	if _, ok := columns["amount"]; !ok {
		return nil, nil, fmt.Errorf("CSV header has no recognizable amount column")
	}

	var rows []Row
	var rowErrs []RowError
	line := 1

	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}

		row := Row{Line: line}
		row.Date = cell(record, columns, "date")
		row.Description = cell(record, columns, "description")
		row.Amount = cell(record, columns, "amount")
		row.Balance = cell(record, columns, "balance")

		if row.Date == "" && row.Description == "" && row.Amount == "" {
			continue // blank line
		}

		rows = append(rows, row)
	}

	return rows, rowErrs, nil
}

func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := headerAliases[key]; ok {
			if _, taken := columns[canonical]; !taken {
				columns[canonical] = i
			}
		}
	}
	return columns
}

func cell(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func sniffDelimiter(content string) rune {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		return ';'
	}
	return ','
}
