package reconcile

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/expect"
)

const (
	minDescriptionRunes = 20
	descriptionPrefix   = 50
)

// UI strings that sit in the description slot but are badges or labels, not copy.
var placeholderDescriptions = []string{
	"Recommended",
	"Bestseller",
	"View Details",
	expect.LabelAtHomeKit,
	expect.LabelBlood,
	expect.LabelCheekSwab,
	expect.TitleHomeCollection,
	expect.TitleSelfTestKit,
}

// IsPlaceholderDescription reports whether a UI description is too short, or is a
// badge/sample-type phrase, to be an echo of backend copy.
func IsPlaceholderDescription(ui string) bool {
	ui = catalog.CollapseSpace(ui)
	if utf8.RuneCountInString(ui) < minDescriptionRunes {
		return true
	}
	for _, p := range placeholderDescriptions {
		if strings.EqualFold(ui, p) {
			return true
		}
	}
	return false
}

// CompareDescription checks a card description against backend copy. Either side may
// be truncated, so it matches when the first 50 characters of one side appear in the
// other. Placeholder UI text is skipped and counts as a match.
func CompareDescription(ui, backend string) (bool, string) {
	ui = strings.TrimRight(catalog.CollapseSpace(ui), ".…")
	ui = strings.TrimSpace(ui)
	if IsPlaceholderDescription(ui) {
		return true, fmt.Sprintf("skipped: %q is not a description", ui)
	}
	be := catalog.CollapseSpace(backend)
	if be == "" {
		return false, fmt.Sprintf("backend has no description, UI shows %q", ui)
	}

	uiPrefix := firstRunes(ui, descriptionPrefix)
	bePrefix := firstRunes(be, descriptionPrefix)
	if strings.Contains(be, uiPrefix) || strings.Contains(ui, bePrefix) {
		return true, "description matches"
	}
	return false, fmt.Sprintf("description differs: UI %q, backend %q", uiPrefix, bePrefix)
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// NormalizePrice reduces a price to its digits: currency symbols, letters, spaces and
// thousands separators go, and a trailing ".00" is dropped.
func NormalizePrice(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	return strings.TrimSuffix(out, ".00")
}

// ComparePrice checks a displayed price against the backend decimal string.
func ComparePrice(ui, backend string) (bool, string) {
	u, b := NormalizePrice(ui), NormalizePrice(backend)
	if u == b {
		return true, fmt.Sprintf("price %s matches", u)
	}
	return false, fmt.Sprintf("price differs: UI %q (%s), backend %q (%s)", ui, u, backend, b)
}

// CompareSampleType checks a card's sample-type label against the listing classifier.
func CompareSampleType(ui string, it catalog.Item) (bool, string) {
	want := expect.ListSampleTypeLabel(it.Code, it.SampleType)
	got := strings.TrimSpace(ui)
	if got == want {
		return true, fmt.Sprintf("sample type %q matches", want)
	}
	return false, fmt.Sprintf("sample type differs: UI %q, expected %q (raw %q)", got, want, it.SampleType)
}

// ExpectedBadge reports whether an item should carry the Recommended badge.
func ExpectedBadge(it catalog.Item) bool {
	return strings.TrimSpace(it.Content.WhyTest) != ""
}

// CompareBadge checks the Recommended badge against content.why_test.
func CompareBadge(hasBadge bool, it catalog.Item) (bool, string) {
	want := ExpectedBadge(it)
	if hasBadge == want {
		return true, fmt.Sprintf("badge=%t matches", want)
	}
	return false, fmt.Sprintf("badge differs: UI %t, expected %t", hasBadge, want)
}
