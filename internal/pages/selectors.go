// Package pages holds Playwright page objects for the lab-tests storefront. Each
// object reads the live DOM in as few round trips as possible and hands plain
// snapshot values to the reconcile package.
package pages

import (
	"encoding/json"
	"fmt"

	"github.com/kuitang/labtests-e2e/internal/expect"
)

// Selectors locate storefront elements. Card* selectors are evaluated inside a card.
type Selectors struct {
	Card            string `json:"card"`
	CardName        string `json:"name"`
	CardDescription string `json:"description"`
	CardPrice       string `json:"price"`
	CardSampleType  string `json:"sampleType"`
	CardImage       string `json:"image"`
	CardBadge       string `json:"badge"`
	CardViewDetails string `json:"viewDetails"`

	// FilterCheckbox is a format string taking the category name.
	FilterCheckbox string `json:"-"`

	DetailTitle           string `json:"detailTitle"`
	DetailSampleType      string `json:"detailSampleType"`
	DetailHighlight       string `json:"detailHighlight"`
	DetailStep            string `json:"detailStep"`
	DetailStepTitle       string `json:"detailStepTitle"`
	DetailStepDescription string `json:"detailStepDescription"`
	DetailBack            string `json:"-"`
}

// DefaultSelectors match the data-testid attributes the storefront renders.
var DefaultSelectors = Selectors{
	Card:            `[data-testid="test-panel-card"]`,
	CardName:        `[data-testid="card-name"]`,
	CardDescription: `[data-testid="card-description"]`,
	CardPrice:       `[data-testid="card-price"]`,
	CardSampleType:  `[data-testid="card-sample-type"]`,
	CardImage:       `[data-testid="card-image"]`,
	CardBadge:       `[data-testid="recommended-badge"]`,
	CardViewDetails: `[data-testid="view-details"]`,

	FilterCheckbox: `[data-testid="filter-%s"]`,

	DetailTitle:           `[data-testid="detail-title"]`,
	DetailSampleType:      `[data-testid="detail-sample-type"]`,
	DetailHighlight:       `[data-testid="highlight-item"]`,
	DetailStep:            `[data-testid="how-it-works-step"]`,
	DetailStepTitle:       `[data-testid="step-title"]`,
	DetailStepDescription: `[data-testid="step-description"]`,
	DetailBack:            `[data-testid="back-to-list"]`,
}

func (s Selectors) filter(c expect.Category) string {
	return fmt.Sprintf(s.FilterCheckbox, string(c))
}

// jsArg is the selector set as a plain map for page evaluations.
func (s Selectors) jsArg() map[string]string {
	raw, _ := json.Marshal(s)
	out := map[string]string{}
	_ = json.Unmarshal(raw, &out)
	return out
}

// decodeEvaluated converts the loosely typed result of a page evaluation into out.
func decodeEvaluated(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("pages: re-encode evaluation result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("pages: decode evaluation result: %w", err)
	}
	return nil
}
