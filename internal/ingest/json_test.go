package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONReader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantRows []Row
		wantErrs int
		wantErr  bool
	}{
		{
			name:  "bare array",
			input: `[{"date":"2026-03-15","description":"CONTINENTE","amount":"-45.67"}]`,
			wantRows: []Row{
				{Line: 1, Date: "2026-03-15", Description: "CONTINENTE", Amount: "-45.67"},
			},
		},
		{
			name:  "transactions wrapper object",
			input: `{"transactions":[{"data":"15/03/2026","descricao":"GALP","valor":"-60,00","saldo":"1.200,00"}]}`,
			wantRows: []Row{
				{Line: 1, Date: "15/03/2026", Description: "GALP", Amount: "-60,00", Balance: "1.200,00"},
			},
		},
		{
			name:  "numeric amount accepted",
			input: `[{"date":"2026-03-15","description":"EDP","amount":-80.5}]`,
			wantRows: []Row{
				{Line: 1, Date: "2026-03-15", Description: "EDP", Amount: "-80.5"},
			},
		},
		{
			name:  "unknown keys ignored",
			input: `[{"date":"2026-03-15","description":"EDP","amount":"-80.50","memo":"monthly bill"}]`,
			wantRows: []Row{
				{Line: 1, Date: "2026-03-15", Description: "EDP", Amount: "-80.50"},
			},
		},
		{
			name: "element missing amount is a row error",
			input: `[{"date":"2026-03-15","description":"NO AMOUNT"},
				{"date":"2026-03-16","description":"OK","amount":"-1.00"}]`,
			wantRows: []Row{
				{Line: 2, Date: "2026-03-16", Description: "OK", Amount: "-1.00"},
			},
			wantErrs: 1,
		},
		{
			name:     "non-object element is a row error",
			input:    `["just a string"]`,
			wantErrs: 1,
		},
		{
			name:    "top level object without transactions",
			input:   `{"rows":[]}`,
			wantErr: true,
		},
		{
			name:    "not json at all",
			input:   `hello`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, rowErrs, err := NewJSONReader().Read(context.Background(), strings.NewReader(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, rows)
			assert.Len(t, rowErrs, tt.wantErrs)
		})
	}
}

func TestForFile(t *testing.T) {
	t.Run("known formats", func(t *testing.T) {
		for _, name := range []string{"export.csv", "export.JSON", "statement.ofx", "statement.qfx"} {
			reader, err := ForFile(name)
			require.NoError(t, err, name)
			assert.NotNil(t, reader, name)
		}
	})

	t.Run("unstructured formats point at the AI path", func(t *testing.T) {
		for _, name := range []string{"fatura.pdf", "recibo.png", "talao.jpg"} {
			_, err := ForFile(name)
			require.Error(t, err, name)
			assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY", "the named env var must be one that actually binds")
		}
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := ForFile("notes.txt")
		assert.Error(t, err)
	})
}
