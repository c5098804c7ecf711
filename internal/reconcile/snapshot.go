package reconcile

import "github.com/kuitang/labtests-e2e/internal/expect"

// CardSnapshot is what one rendered listing card showed at read time.
type CardSnapshot struct {
	Index               int              `json:"index"`
	Name                string           `json:"name"`
	Description         string           `json:"description"`
	Price               string           `json:"price"`
	SampleTypeLabel     string           `json:"sampleTypeLabel"`
	HasImage            bool             `json:"hasImage"`
	HasRecommendedBadge bool             `json:"hasRecommendedBadge"`
	ViewDetails         ViewDetailsState `json:"viewDetails"`
}

// ViewDetailsState is the state of a card's View-Details control when it was read.
type ViewDetailsState struct {
	Present bool `json:"present"`
	Visible bool `json:"visible"`
	Enabled bool `json:"enabled"`
}

// OK reports whether the control was present, visible and enabled.
func (v ViewDetailsState) OK() bool {
	return v.Present && v.Visible && v.Enabled
}

// Problem describes what is wrong with the control, or "" if nothing is.
func (v ViewDetailsState) Problem() string {
	switch {
	case !v.Present:
		return "view details control missing"
	case !v.Visible:
		return "view details control not visible"
	case !v.Enabled:
		return "view details control not enabled"
	default:
		return ""
	}
}

// DetailSnapshot is what an item's detail page showed at read time.
type DetailSnapshot struct {
	Title           string        `json:"title"`
	SampleTypeLabel string        `json:"sampleTypeLabel"`
	Highlights      []string      `json:"highlights"`
	Steps           []expect.Step `json:"steps"`
}
