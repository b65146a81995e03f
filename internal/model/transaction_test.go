package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	base := Transaction{
		Date:        time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "CONTINENTE FARO",
		Amount:      -45.67,
		Origin:      "joao",
		Bank:        "millennium",
	}

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, base.Fingerprint(), base.Fingerprint())
	})

	t.Run("independent of derived fields", func(t *testing.T) {
		categorized := base
		categorized.MajorCategory = "Custos Fixos"
		categorized.Category = "Alimentação"
		categorized.Status = StatusCategorized
		categorized.Confidence = 1.0

		assert.Equal(t, base.Fingerprint(), categorized.Fingerprint())
	})

	t.Run("sensitive to every raw field", func(t *testing.T) {
		variants := map[string]Transaction{}

		v := base
		v.Date = v.Date.Add(24 * time.Hour)
		variants["date"] = v

		v = base
		v.Description += " "
		variants["description"] = v

		v = base
		v.Amount += 0.01
		variants["amount"] = v

		v = base
		v.Origin = "maria"
		variants["origin"] = v

		v = base
		v.Bank = "activobank"
		variants["bank"] = v

		for field, variant := range variants {
			assert.NotEqual(t, base.Fingerprint(), variant.Fingerprint(), field)
		}
	})

	t.Run("timezone normalized to UTC", func(t *testing.T) {
		lisbon := time.FixedZone("WET+1", 3600)
		shifted := base
		shifted.Date = base.Date.In(lisbon)

		assert.Equal(t, base.Fingerprint(), shifted.Fingerprint())
	})
}

func TestIsCategorized(t *testing.T) {
	assert.False(t, (&Transaction{}).IsCategorized())
	assert.False(t, (&Transaction{MajorCategory: "Custos Fixos"}).IsCategorized())
	assert.False(t, (&Transaction{Category: "Alimentação"}).IsCategorized())
	assert.True(t, (&Transaction{MajorCategory: "Custos Fixos", Category: "Alimentação"}).IsCategorized())
}
