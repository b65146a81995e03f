// Package normalize parses the heterogeneous numeric and date representations
// found in uploaded bank files into canonical values.
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount parses a raw amount cell into a signed float.
//
// Both European ("1.234,56") and American ("1,234.56") conventions are
// accepted: whichever separator appears last in the string is the decimal
// point, and all occurrences of the other separator are stripped as
// thousands markers. Currency symbols and whitespace are removed first.
// Unparseable input yields 0 so a single malformed cell never aborts a
// batch import.
func Amount(raw string) float64 {
	cleaned := stripCurrency(raw)
	if cleaned == "" {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastPeriod := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma > lastPeriod:
		// European: the final comma is the decimal separator.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		idx := strings.LastIndex(cleaned, ",")
		cleaned = strings.ReplaceAll(cleaned[:idx], ",", "") + "." + cleaned[idx+1:]
	case lastPeriod > lastComma:
		// American: the final period is the decimal separator.
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		idx := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:idx], ".", "") + "." + cleaned[idx+1:]
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func stripCurrency(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '+', r == '.', r == ',':
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "+")
}
