package pages

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/labtests-e2e/internal/expect"
	"github.com/kuitang/labtests-e2e/internal/reconcile"
)

const snapshotDetailJS = `(sel) => {
	const text = (el) => el ? (el.innerText || el.textContent || "").trim() : "";
	return {
		title: text(document.querySelector(sel.detailTitle)),
		sampleTypeLabel: text(document.querySelector(sel.detailSampleType)),
		highlights: Array.from(document.querySelectorAll(sel.detailHighlight)).map(text),
		steps: Array.from(document.querySelectorAll(sel.detailStep)).map((step) => ({
			title: text(step.querySelector(sel.detailStepTitle)),
			description: text(step.querySelector(sel.detailStepDescription)),
		})),
	};
}`

// DetailPage is a single item's detail page, reached from a ListingPage.
type DetailPage struct {
	page    playwright.Page
	sel     Selectors
	timeout float64
	listing *ListingPage
}

// WaitLoaded blocks until the detail title is visible.
func (d *DetailPage) WaitLoaded() error {
	err := d.page.Locator(d.sel.DetailTitle).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(d.timeout),
	})
	if err != nil {
		return fmt.Errorf("pages: wait for detail page at %s: %w", d.page.URL(), err)
	}
	return nil
}

// URL is the current page URL.
func (d *DetailPage) URL() string { return d.page.URL() }

// Title returns the detail heading text.
func (d *DetailPage) Title() (string, error) {
	s, err := d.page.Locator(d.sel.DetailTitle).First().InnerText()
	if err != nil {
		return "", fmt.Errorf("pages: read detail title: %w", err)
	}
	return s, nil
}

// Snapshot reads title, sample type, highlights and how-it-works steps in one evaluation.
func (d *DetailPage) Snapshot() (reconcile.DetailSnapshot, error) {
	raw, err := d.page.Evaluate(snapshotDetailJS, d.sel.jsArg())
	if err != nil {
		return reconcile.DetailSnapshot{}, fmt.Errorf("pages: snapshot detail page: %w", err)
	}
	var snap reconcile.DetailSnapshot
	if err := decodeEvaluated(raw, &snap); err != nil {
		return reconcile.DetailSnapshot{}, err
	}
	return snap, nil
}

// Back returns to the listing, using the page's back link when present and browser
// history otherwise, and waits for the cards.
func (d *DetailPage) Back() (*ListingPage, error) {
	back := d.page.Locator(d.sel.DetailBack)
	n, err := back.Count()
	if err != nil {
		return nil, fmt.Errorf("pages: look up back link: %w", err)
	}
	if n > 0 {
		err = back.First().Click(playwright.LocatorClickOptions{Timeout: playwright.Float(d.timeout)})
	} else {
		_, err = d.page.GoBack(playwright.PageGoBackOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(d.timeout),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("pages: navigate back to listing: %w", err)
	}
	if err := d.listing.WaitForCards(); err != nil {
		return nil, err
	}
	return d.listing, nil
}

// SampleTypeLabel returns the detail sample-type label.
func (d *DetailPage) SampleTypeLabel() (string, error) {
	snap, err := d.Snapshot()
	return snap.SampleTypeLabel, err
}

// Highlights returns the highlight lines in render order.
func (d *DetailPage) Highlights() ([]string, error) {
	snap, err := d.Snapshot()
	return snap.Highlights, err
}

// HowItWorks returns the rendered steps in order.
func (d *DetailPage) HowItWorks() ([]expect.Step, error) {
	snap, err := d.Snapshot()
	return snap.Steps, err
}
