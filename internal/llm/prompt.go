package llm

import (
	"fmt"
	"strings"
)

// buildPrompt renders the classification request: the transaction itself,
// the category taxonomy, and up to maxExamples recent categorized
// transactions from the same owner.
func buildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Classify the following bank transaction into the taxonomy below.\n\n")

	txn := req.Transaction
	fmt.Fprintf(&b, "Transaction:\n  date: %s\n  description: %s\n  amount: %.2f\n  bank: %s\n\n",
		txn.Date.Format("2006-01-02"), txn.Description, txn.Amount, txn.Bank)

	b.WriteString("Taxonomy (majorCategory / category / subCategory):\n")
	for _, c := range req.Taxonomy {
		if c.SubCategory != "" {
			fmt.Fprintf(&b, "  %s / %s / %s\n", c.MajorCategory, c.Category, c.SubCategory)
		} else {
			fmt.Fprintf(&b, "  %s / %s\n", c.MajorCategory, c.Category)
		}
	}

	if len(req.Examples) > 0 {
		b.WriteString("\nRecent categorized transactions from the same owner:\n")
		for _, ex := range req.Examples {
			fmt.Fprintf(&b, "  %q (%.2f) -> %s / %s\n", ex.Description, ex.Amount, ex.MajorCategory, ex.Category)
		}
	}

	b.WriteString(`
Respond with a single JSON object:
{"majorCategory": "...", "category": "...", "subCategory": "...", "confidence": 0.0, "reasoning": "..."}

Pick only categories present in the taxonomy. confidence is your certainty
in [0,1]. reasoning is one short sentence.`)

	return b.String()
}
