package expect

import (
	"regexp"
	"strings"

	"github.com/kuitang/labtests-e2e/internal/catalog"
)

// Panels whose fasting instructions are fixed copy rather than catalog data.
const (
	CodeLongevityPanel = "DH_LONGEVITY_PANEL"
	CodeMetabolicPanel = "DH_METABOLIC_PANEL"
)

// Fixed highlight copy.
const (
	HighlightMetabolicDraws  = "Two Blood Draws Required: Fasting and 2 Hours Post-Meal"
	HighlightFastingRequired = "Fasting Required"
	HighlightPostMealDraw    = "Post-Meal Blood Draw Required"
	HighlightNoPreparation   = "No preparation required"
	HighlightNoFasting       = "No fasting required"
)

var leadingFastingWord = regexp.MustCompile(`(?i)^\s*fasting\b`)

// DetailHighlights returns the highlight lines expected on an item's detail page,
// in render order:
//
//	highlights[0]
//	fasting/preparation line(s), only when highlights[5] is blank or absent
//	content.when_to_take
//	highlights[2], highlights[5], highlights[3], highlights[4]
//
// Absent or blank entries are skipped.
func DetailHighlights(it catalog.Item) []string {
	var out []string
	add := func(s string, ok bool) {
		if ok {
			out = append(out, s)
		}
	}

	add(it.Highlight(0))

	h5, hasHighlight5 := it.Highlight(5)
	if !hasHighlight5 {
		out = append(out, preparationLines(it)...)
	}

	if w := strings.TrimSpace(it.Content.WhenToTake); w != "" {
		out = append(out, w)
	}

	add(it.Highlight(2))
	add(h5, hasHighlight5)
	add(it.Highlight(3))
	add(it.Highlight(4))
	return out
}

func preparationLines(it catalog.Item) []string {
	switch {
	case isPanel(it, CodeMetabolicPanel):
		return []string{HighlightMetabolicDraws}
	case isPanel(it, CodeLongevityPanel):
		return []string{HighlightFastingRequired, HighlightPostMealDraw}
	case strings.EqualFold(it.SampleType, SampleStool), strings.EqualFold(it.SampleType, SampleSaliva):
		if prep := strings.TrimSpace(it.Content.Preparation); prep != "" {
			return []string{prep}
		}
		return []string{HighlightNoPreparation}
	case it.IsFastingRequired:
		return []string{FastingLine(it.Content.FastingInfo)}
	default:
		return []string{HighlightNoFasting}
	}
}

func isPanel(it catalog.Item, code string) bool {
	return it.Code == code || it.VendorProductID() == code
}

// FastingLine renders "Fasting <details>" from fasting_info, dropping a leading
// "fasting" word so it is not repeated. Empty details become "required".
func FastingLine(fastingInfo string) string {
	detail := strings.TrimSpace(leadingFastingWord.ReplaceAllString(fastingInfo, ""))
	if detail == "" {
		detail = "required"
	}
	return "Fasting " + detail
}
