package pages

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/labtests-e2e/internal/expect"
	"github.com/kuitang/labtests-e2e/internal/reconcile"
)

// DefaultListingPath is where the storefront lists lab tests.
const DefaultListingPath = "/lab-tests"

// snapshotCardsJS reads every card in one pass. A control counts as visible when it
// has a layout box and is not hidden by visibility; enabled when neither disabled
// nor aria-disabled.
const snapshotCardsJS = `(cards, sel) => cards.map((card, index) => {
	const text = (s) => {
		const el = card.querySelector(s);
		return el ? (el.innerText || el.textContent || "").trim() : "";
	};
	const vd = card.querySelector(sel.viewDetails);
	let visible = false;
	let enabled = false;
	if (vd) {
		const style = window.getComputedStyle(vd);
		visible = vd.getClientRects().length > 0 && style.visibility !== "hidden" && style.display !== "none";
		enabled = !vd.disabled && vd.getAttribute("aria-disabled") !== "true";
	}
	return {
		index,
		name: text(sel.name),
		description: text(sel.description),
		price: text(sel.price),
		sampleTypeLabel: text(sel.sampleType),
		hasImage: !!card.querySelector(sel.image),
		hasRecommendedBadge: !!card.querySelector(sel.badge),
		viewDetails: { present: !!vd, visible, enabled },
	};
})`

const visibleNamesJS = `(cards, sel) => cards
	.filter((card) => card.getClientRects().length > 0)
	.map((card) => {
		const el = card.querySelector(sel.name);
		return el ? (el.innerText || el.textContent || "").trim() : "";
	})`

// ListingPage is the lab-tests listing.
type ListingPage struct {
	page    playwright.Page
	baseURL string
	path    string
	sel     Selectors
	timeout float64
}

// ListingOptions configures a ListingPage.
type ListingOptions struct {
	Path      string
	Selectors *Selectors
	TimeoutMS float64
}

// NewListingPage wraps page. baseURL is the storefront origin.
func NewListingPage(page playwright.Page, baseURL string, opts ListingOptions) *ListingPage {
	sel := DefaultSelectors
	if opts.Selectors != nil {
		sel = *opts.Selectors
	}
	path := opts.Path
	if path == "" {
		path = DefaultListingPath
	}
	timeout := opts.TimeoutMS
	if timeout <= 0 {
		timeout = 5000
	}
	return &ListingPage{
		page:    page,
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    path,
		sel:     sel,
		timeout: timeout,
	}
}

// Page exposes the underlying Playwright page.
func (l *ListingPage) Page() playwright.Page { return l.page }

// URL is the absolute listing URL.
func (l *ListingPage) URL() string { return l.baseURL + l.path }

// Open navigates to the listing and waits for the first card.
func (l *ListingPage) Open() error {
	_, err := l.page.Goto(l.URL(), playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(l.timeout),
	})
	if err != nil {
		return fmt.Errorf("pages: open listing %s: %w", l.URL(), err)
	}
	return l.WaitForCards()
}

// WaitForCards blocks until at least one card is visible.
func (l *ListingPage) WaitForCards() error {
	err := l.page.Locator(l.sel.Card).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(l.timeout),
	})
	if err != nil {
		return fmt.Errorf("pages: wait for listing cards: %w", err)
	}
	return nil
}

// Cards returns the locator for every card, visible or not.
func (l *ListingPage) Cards() playwright.Locator {
	return l.page.Locator(l.sel.Card)
}

// CardCount returns the number of rendered cards.
func (l *ListingPage) CardCount() (int, error) {
	n, err := l.Cards().Count()
	if err != nil {
		return 0, fmt.Errorf("pages: count cards: %w", err)
	}
	return n, nil
}

// Snapshot reads every card in a single evaluation.
func (l *ListingPage) Snapshot() ([]reconcile.CardSnapshot, error) {
	raw, err := l.Cards().EvaluateAll(snapshotCardsJS, l.sel.jsArg())
	if err != nil {
		return nil, fmt.Errorf("pages: snapshot cards: %w", err)
	}
	var cards []reconcile.CardSnapshot
	if err := decodeEvaluated(raw, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// VisibleCardNames returns the names of cards currently laid out on screen.
func (l *ListingPage) VisibleCardNames() ([]string, error) {
	raw, err := l.Cards().EvaluateAll(visibleNamesJS, l.sel.jsArg())
	if err != nil {
		return nil, fmt.Errorf("pages: read visible cards: %w", err)
	}
	var names []string
	if err := decodeEvaluated(raw, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ApplyFilters checks exactly the given categories and unchecks the rest.
func (l *ListingPage) ApplyFilters(active ...expect.Category) error {
	want := make(map[expect.Category]bool, len(active))
	for _, c := range active {
		want[c] = true
	}
	for _, c := range expect.Categories() {
		box := l.page.Locator(l.sel.filter(c))
		if err := box.SetChecked(want[c], playwright.LocatorSetCheckedOptions{
			Timeout: playwright.Float(l.timeout),
		}); err != nil {
			return fmt.Errorf("pages: set filter %s=%t: %w", c, want[c], err)
		}
	}
	return nil
}

// OpenDetailsAt clicks the View-Details control of the i-th card and waits for the
// detail page.
func (l *ListingPage) OpenDetailsAt(i int) (*DetailPage, error) {
	control := l.Cards().Nth(i).Locator(l.sel.CardViewDetails).First()
	if err := control.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
		Timeout: playwright.Float(l.timeout),
	}); err != nil {
		return nil, fmt.Errorf("pages: scroll to view details of card %d: %w", i, err)
	}
	if err := control.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(l.timeout)}); err != nil {
		return nil, fmt.Errorf("pages: click view details of card %d: %w", i, err)
	}
	detail := &DetailPage{page: l.page, sel: l.sel, timeout: l.timeout, listing: l}
	if err := detail.WaitLoaded(); err != nil {
		return nil, err
	}
	return detail, nil
}

// OpenDetails opens the detail page of the card whose name is exactly name.
func (l *ListingPage) OpenDetails(name string) (*DetailPage, error) {
	cards, err := l.Snapshot()
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		if c.Name == name {
			return l.OpenDetailsAt(c.Index)
		}
	}
	return nil, fmt.Errorf("pages: no card named %q", name)
}

// Screenshot captures the full page as PNG.
func Screenshot(page playwright.Page) ([]byte, error) {
	png, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("pages: screenshot: %w", err)
	}
	return png, nil
}
