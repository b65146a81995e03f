// Package match scores free-text transaction descriptions against each other
// and finds the best historical match for a candidate transaction.
package match

import (
	"strings"

	"github.com/escudo-app/escudo/internal/model"
)

const (
	// MinScore is the lowest similarity accepted as a usable match.
	MinScore = 0.7
	// nearPerfect stops the search early once found.
	nearPerfect = 0.95
	// amountWindow pre-filters the pool to amounts within ±20% of the candidate.
	amountWindow = 0.2
	// minTokenLength excludes short filler words from token overlap.
	minTokenLength = 3
)

// Match is a scored historical match for a candidate transaction.
type Match struct {
	Transaction model.Transaction
	Score       float64
}

// Similarity scores two descriptions into [0,1].
//
// Scoring order, first rule wins: exact match after normalization is 1.0;
// substring containment (either direction) is 0.8; otherwise the overlap
// ratio of words longer than three characters lands in (0.5, 0.8]; no
// overlap is 0. Containment makes the function order-sensitive, which is
// accepted.
func Similarity(a, b string) float64 {
	na := normalizeText(a)
	nb := normalizeText(b)

	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.8
	}

	tokensA := tokenize(na)
	tokensB := tokenize(nb)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	// Sets are for membership only; the ratio is over the raw token counts,
	// so repeated words dilute the score rather than inflate it.
	setA := make(map[string]struct{}, len(tokensA))
	for _, tok := range tokensA {
		setA[tok] = struct{}{}
	}

	overlap := 0
	seen := make(map[string]struct{}, len(tokensB))
	for _, tok := range tokensB {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := setA[tok]; ok {
			overlap++
		}
	}

	if overlap == 0 {
		return 0
	}

	longest := len(tokensA)
	if len(tokensB) > longest {
		longest = len(tokensB)
	}

	return 0.5 + (float64(overlap)/float64(longest))*0.3
}

// FindBestMatch returns the best-scoring historical match for the candidate,
// or nil when nothing reaches MinScore.
//
// The pool is pre-filtered to transactions within the amount window before
// any string scoring happens; if the filter leaves nothing, the full pool is
// scored instead. Iteration order is stable and ties keep the first-found
// highest score.
func FindBestMatch(candidate model.Transaction, pool []model.Transaction) *Match {
	scored := filterByAmount(candidate.Amount, pool)
	if len(scored) == 0 {
		scored = pool
	}

	var best *Match
	for i := range scored {
		score := Similarity(candidate.Description, scored[i].Description)
		if best == nil || score > best.Score {
			best = &Match{Transaction: scored[i], Score: score}
		}
		if best.Score >= nearPerfect {
			break
		}
	}

	if best == nil || best.Score < MinScore {
		return nil
	}
	return best
}

func filterByAmount(amount float64, pool []model.Transaction) []model.Transaction {
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	lo := abs * (1 - amountWindow)
	hi := abs * (1 + amountWindow)

	filtered := make([]model.Transaction, 0, len(pool))
	for _, txn := range pool {
		a := txn.Amount
		if a < 0 {
			a = -a
		}
		if a >= lo && a <= hi {
			filtered = append(filtered, txn)
		}
	}
	return filtered
}

func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "’", "")
	return s
}

func tokenize(s string) []string {
	fields := strings.Fields(s)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
