package model

// CategorySet is one entry in the three-tier category taxonomy.
type CategorySet struct {
	MajorCategory string
	Category      string
	SubCategory   string
	ID            int
}

// Taxonomy is the full category hierarchy presented to the classifier.
type Taxonomy []CategorySet

// Contains reports whether the major/category pair exists in the taxonomy.
func (tx Taxonomy) Contains(major, category string) bool {
	for _, c := range tx {
		if c.MajorCategory == major && c.Category == category {
			return true
		}
	}
	return false
}
