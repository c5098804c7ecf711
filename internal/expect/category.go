package expect

import "strings"

// Category is a listing filter bucket.
type Category string

const (
	CategoryAll   Category = "All"
	CategoryGut   Category = "Gut"
	CategoryGene  Category = "Gene"
	CategoryBlood Category = "Blood"
)

// Categories lists every filter in the order the listing renders them.
func Categories() []Category {
	return []Category{CategoryAll, CategoryBlood, CategoryGut, CategoryGene}
}

// CategoryOf maps a raw sample type to its filter category.
// Only "stool" matches by substring; "saliva" and "blood" must match exactly, so
// saliva_stress and dried_blood_spot land in All and stay visible under every filter.
func CategoryOf(sampleType string) Category {
	st := strings.ToLower(strings.TrimSpace(sampleType))
	switch {
	case strings.Contains(st, SampleStool):
		return CategoryGut
	case st == SampleSaliva:
		return CategoryGene
	case st == SampleBlood:
		return CategoryBlood
	default:
		return CategoryAll
	}
}

// VisibleUnder reports whether an item of category c is shown with the active filters:
// "All" among the active filters, or c itself, makes it visible. Items whose own
// category is All match every filter combination.
func VisibleUnder(active []Category, c Category) bool {
	if c == CategoryAll {
		return true
	}
	for _, a := range active {
		if a == CategoryAll || a == c {
			return true
		}
	}
	return false
}
