package ingest

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
)

// OFXReader parses OFX/QFX bank statements.
type OFXReader struct{}

// NewOFXReader creates a new OFX reader.
func NewOFXReader() *OFXReader {
	return &OFXReader{}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocess fixes common formatting issues in SGML-style OFX files:
// mixed-case SEVERITY values and opening tags missing their closing bracket.
func (o *OFXReader) preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	content = tagFixRegex.ReplaceAllString(content, "$1>")
	return content
}

// Read extracts raw rows from an OFX stream.
func (o *OFXReader) Read(_ context.Context, r io.Reader) ([]Row, []RowError, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(o.preprocess(string(content))))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var rows []Row
	line := 0

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, txn := range stmt.BankTranList.Transactions {
			line++
			rows = append(rows, ofxRow(txn, line))
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, txn := range stmt.BankTranList.Transactions {
			line++
			rows = append(rows, ofxRow(txn, line))
		}
	}

	return rows, nil, nil
}

func ofxRow(txn ofxgo.Transaction, line int) Row {
	description := strings.TrimSpace(string(txn.Name))
	if memo := strings.TrimSpace(string(txn.Memo)); memo != "" && description == "" {
		description = memo
	}

	amount, _ := txn.TrnAmt.Float64()

	return Row{
		Line:        line,
		Date:        txn.DtPosted.Time.Format("2006-01-02"),
		Description: description,
		Amount:      fmt.Sprintf("%.2f", amount),
	}
}
