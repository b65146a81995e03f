// Package dedup partitions incoming transaction batches into new rows and
// duplicates of recent history, keyed on exact fingerprint equality.
package dedup

import (
	"time"

	"github.com/escudo-app/escudo/internal/model"
)

// HistoryWindow bounds how far back history is considered for duplicate
// detection. Duplicates older than this window are not detected; the bound
// keeps the lookup set small on large ledgers.
const HistoryWindow = 90 * 24 * time.Hour

// Detector holds the fingerprint lookup set for one import operation.
// It is built fresh per operation and never shared between requests.
type Detector struct {
	seen map[string]string // fingerprint -> transaction ID
}

// NewDetector seeds a detector from the owner's existing history. Rejected
// and soft-deleted transactions must already be excluded by the caller's
// query.
func NewDetector(history []model.Transaction) *Detector {
	seen := make(map[string]string, len(history))
	for i := range history {
		seen[history[i].Fingerprint()] = history[i].ID
	}
	return &Detector{seen: seen}
}

// Result is the outcome of partitioning one batch. Duplicates carry the ID
// of the retained transaction in PotentialDuplicateID so callers can report
// what each skipped row collided with.
type Result struct {
	ToImport   []model.Transaction
	Duplicates []model.Transaction
}

// Partition splits candidates into importable rows and duplicates. Each
// accepted candidate's fingerprint is added to the lookup set immediately,
// so duplicates within the same batch are caught in a single pass.
func (d *Detector) Partition(candidates []model.Transaction) Result {
	result := Result{ToImport: make([]model.Transaction, 0, len(candidates))}

	for i := range candidates {
		fp := candidates[i].Fingerprint()
		if id, ok := d.seen[fp]; ok {
			candidates[i].PotentialDuplicateID = id
			result.Duplicates = append(result.Duplicates, candidates[i])
			continue
		}
		d.seen[fp] = candidates[i].ID
		result.ToImport = append(result.ToImport, candidates[i])
	}

	return result
}
