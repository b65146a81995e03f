// Package ingest turns uploaded statement files into raw transaction rows.
// Tabular (CSV) and structured (JSON, OFX) sources are parsed here;
// unstructured sources are delegated entirely to the AI capability.
package ingest

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/escudo-app/escudo/internal/common"
)

// Row is one raw statement line before normalization. Values are kept as
// strings so malformed cells can be reported per row downstream.
type Row struct {
	Date        string
	Description string
	Amount      string
	Balance     string
	Line        int
}

// RowError ties a parse failure to its source line.
type RowError struct {
	Err  error
	Line int
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

// Reader extracts raw rows from one file format. Structural failures (a
// file that isn't the format at all) are returned as the error; row-level
// problems are collected so the rest of the file still imports.
type Reader interface {
	Read(ctx context.Context, r io.Reader) ([]Row, []RowError, error)
}

// ForFile picks a reader for the given filename.
//
// PDF and image uploads have no tabular structure to parse; they are only
// importable through the AI capability, so they get an explicit, actionable
// error here instead of a silent empty import.
func ForFile(name string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return NewCSVReader(), nil
	case ".json":
		return NewJSONReader(), nil
	case ".ofx", ".qfx":
		return NewOFXReader(), nil
	case ".pdf", ".png", ".jpg", ".jpeg":
		return nil, common.NewUserError(
			"this format can only be imported with the AI classifier configured; set ANTHROPIC_API_KEY and use the document import",
			common.ErrNotConfigured)
	default:
		return nil, common.NewUserError(
			fmt.Sprintf("unsupported file format %q; expected .csv, .json, .ofx or .qfx", filepath.Ext(name)),
			nil)
	}
}
