package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVReader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantRows []Row
		wantErrs int
		wantErr  bool
	}{
		{
			name: "english headers with commas",
			input: "Date,Description,Amount,Balance\n" +
				"2026-03-15,CONTINENTE FARO,-45.67,1200.00\n",
			wantRows: []Row{
				{Line: 2, Date: "2026-03-15", Description: "CONTINENTE FARO", Amount: "-45.67", Balance: "1200.00"},
			},
		},
		{
			name: "portuguese headers with semicolons",
			input: "Data;Descrição;Montante;Saldo\n" +
				"15/03/2026;COMPRA CONTINENTE;-45,67;1.200,00\n" +
				"16/03/2026;VENCIMENTO;1500,00;2.700,00\n",
			wantRows: []Row{
				{Line: 2, Date: "15/03/2026", Description: "COMPRA CONTINENTE", Amount: "-45,67", Balance: "1.200,00"},
				{Line: 3, Date: "16/03/2026", Description: "VENCIMENTO", Amount: "1500,00", Balance: "2.700,00"},
			},
		},
		{
			name: "no balance column",
			input: "data,descricao,valor\n" +
				"2026-03-15,LIDL BENFICA,-18.75\n",
			wantRows: []Row{
				{Line: 2, Date: "2026-03-15", Description: "LIDL BENFICA", Amount: "-18.75"},
			},
		},
		{
			name: "blank lines skipped",
			input: "date,description,amount\n" +
				"2026-03-15,GALP,-60.00\n" +
				",,\n" +
				"2026-03-16,EDP,-80.00\n",
			wantRows: []Row{
				{Line: 2, Date: "2026-03-15", Description: "GALP", Amount: "-60.00"},
				{Line: 4, Date: "2026-03-16", Description: "EDP", Amount: "-80.00"},
			},
		},
		{
			name: "short record yields empty optional cells",
			input: "date,description,amount,balance\n" +
				"2026-03-15,GALP,-60.00\n",
			wantRows: []Row{
				{Line: 2, Date: "2026-03-15", Description: "GALP", Amount: "-60.00"},
			},
		},
		{
			name:    "missing date column is structural",
			input:   "description,amount\nGALP,-60.00\n",
			wantErr: true,
		},
		{
			name:    "missing amount column is structural",
			input:   "date,description\n2026-03-15,GALP\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, rowErrs, err := NewCSVReader().Read(context.Background(), strings.NewReader(tt.input))
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
