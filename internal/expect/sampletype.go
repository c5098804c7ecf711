// Package expect derives the values the storefront UI is expected to display for a
// catalog item: sample-type labels, filter categories, detail-page highlights and the
// "How it works" steps. Everything here is a pure function of catalog data.
package expect

import "strings"

// Display labels for sample types.
const (
	LabelAtHomeKit = "At-Home Test Kit"
	LabelBlood     = "Blood test"
	LabelCheekSwab = "Cheek swab test"
)

// Raw backend sample_type values with special handling.
const (
	SampleBlood          = "blood"
	SampleStool          = "stool"
	SampleSaliva         = "saliva"
	SampleSalivaStress   = "saliva_stress"
	SampleDriedBloodSpot = "dried_blood_spot"
	SampleCheekSwab      = "cheek_swab"
)

// Code prefixes of kits that ship to the customer regardless of sample_type.
var atHomeCodePrefixes = []string{"CORTISOL", "OMEGA"}

func hasAtHomeCodePrefix(code string) bool {
	for _, p := range atHomeCodePrefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// ClassifyListSampleType maps (code, sampleType) to the label shown on listing cards.
// First match wins: CORTISOL* or OMEGA* code, saliva, stool, then the blood default.
// known is false when the default fired for a sample type that is not blood.
func ClassifyListSampleType(code, sampleType string) (label string, known bool) {
	st := strings.TrimSpace(sampleType)
	switch {
	case hasAtHomeCodePrefix(code):
		return LabelAtHomeKit, true
	case strings.EqualFold(st, SampleSaliva):
		return LabelAtHomeKit, true
	case strings.EqualFold(st, SampleStool):
		return LabelAtHomeKit, true
	default:
		return LabelBlood, st == "" || strings.EqualFold(st, SampleBlood)
	}
}

// ListSampleTypeLabel is ClassifyListSampleType without the fallback flag.
func ListSampleTypeLabel(code, sampleType string) string {
	label, _ := ClassifyListSampleType(code, sampleType)
	return label
}

// DetailSampleTypeLabel maps (code, sampleType) to the label on the detail page.
// Unlike the listing variant it knows cheek swabs and keeps unrecognized raw values.
func DetailSampleTypeLabel(code, sampleType string) string {
	st := strings.TrimSpace(sampleType)
	switch {
	case hasAtHomeCodePrefix(code):
		return LabelAtHomeKit
	case strings.EqualFold(st, SampleCheekSwab):
		return LabelCheekSwab
	case strings.EqualFold(st, SampleSaliva), strings.EqualFold(st, SampleStool):
		return LabelAtHomeKit
	case st == "", strings.EqualFold(st, SampleBlood):
		return LabelBlood
	default:
		return st
	}
}
