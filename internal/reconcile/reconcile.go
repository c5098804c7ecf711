// Package reconcile compares what the storefront rendered against the backend
// catalog. A pass never stops at the first problem: every card is checked, every
// fault is recorded, and the caller fails once on the aggregated Result.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/expect"
	"github.com/kuitang/labtests-e2e/internal/obs"
)

// FaultKind classifies a recorded problem.
type FaultKind string

const (
	// DataFault: the backend data itself is unusable (e.g. no catalog).
	DataFault FaultKind = "data"
	// MatchFault: a card has no backend item, or two cards claim the same item.
	MatchFault FaultKind = "match"
	// FieldMismatch: a matched card disagrees with its item on one field.
	FieldMismatch FaultKind = "field"
	// UIStateFault: the View-Details control is missing, hidden or disabled.
	UIStateFault FaultKind = "ui_state"
)

// Fault is one recorded problem.
type Fault struct {
	Kind     FaultKind `json:"kind"`
	Card     string    `json:"card,omitempty"`
	Code     string    `json:"code,omitempty"`
	Field    string    `json:"field,omitempty"`
	Expected string    `json:"expected,omitempty"`
	Actual   string    `json:"actual,omitempty"`
	Detail   string    `json:"detail"`
}

func (f Fault) String() string {
	var b strings.Builder
	b.WriteString(string(f.Kind))
	if f.Card != "" {
		fmt.Fprintf(&b, " card=%q", f.Card)
	}
	if f.Code != "" {
		fmt.Fprintf(&b, " code=%s", f.Code)
	}
	if f.Field != "" {
		fmt.Fprintf(&b, " field=%s", f.Field)
	}
	b.WriteString(": ")
	b.WriteString(f.Detail)
	return b.String()
}

// Options tunes a reconciliation pass.
type Options struct {
	// Aliases overrides DefaultAliases when non-nil.
	Aliases map[string]string
	// RequireImages records a FieldMismatch for cards without an image.
	RequireImages bool
}

// Result is the aggregate outcome of one pass.
type Result struct {
	Total                 int      `json:"total"`
	BackendTotal          int      `json:"backendTotal"`
	MatchedCount          int      `json:"matchedCount"`
	MismatchCount         int      `json:"mismatchCount"`
	ViewDetailsIssueCount int      `json:"viewDetailsIssueCount"`
	MissingBackendItems   []string `json:"missingBackendItems"`
	Faults                []Fault  `json:"faults"`
}

// Reconcile checks every card against cat and returns the aggregated result.
// It never returns early; call Result.Err to fail the scenario.
func Reconcile(ctx context.Context, cat *catalog.Catalog, cards []CardSnapshot, opts Options) *Result {
	log := obs.From(ctx).With("pkg", "reconcile")
	res := &Result{Total: len(cards)}

	if cat == nil {
		res.record(ctx, Fault{Kind: DataFault, Detail: "no backend catalog to reconcile against"})
		res.MismatchCount = len(cards)
		return res
	}
	res.BackendTotal = cat.Len()
	for _, code := range cat.Duplicates() {
		res.record(ctx, Fault{Kind: DataFault, Code: code, Detail: "backend lists this code more than once"})
	}

	matcher := NewMatcher(cat, opts.Aliases)
	claimed := make(map[string]string, cat.Len())

	for _, card := range cards {
		if problem := card.ViewDetails.Problem(); problem != "" {
			res.ViewDetailsIssueCount++
			res.record(ctx, Fault{Kind: UIStateFault, Card: card.Name, Field: "view_details", Detail: problem})
		}

		it, kind, ok := matcher.Find(card.Name)
		if !ok {
			res.MismatchCount++
			res.record(ctx, Fault{Kind: MatchFault, Card: card.Name, Detail: "no backend item matches this card"})
			continue
		}
		if prev, dup := claimed[it.Code]; dup {
			res.MismatchCount++
			res.record(ctx, Fault{
				Kind:   MatchFault,
				Card:   card.Name,
				Code:   it.Code,
				Detail: fmt.Sprintf("backend item already matched by card %q", prev),
			})
			continue
		}
		claimed[it.Code] = card.Name
		if kind != MatchExact {
			log.Debug("card_matched", "card", card.Name, "code", it.Code, "rule", kind.String())
		}
		if label, known := expect.ClassifyListSampleType(it.Code, it.SampleType); !known {
			log.Warn("sample_type_fallback", "code", it.Code, "sample_type", it.SampleType, "label", label)
		}

		faults := CheckCard(card, it, opts)
		if len(faults) == 0 {
			res.MatchedCount++
			continue
		}
		res.MismatchCount++
		for _, f := range faults {
			res.record(ctx, f)
		}
	}

	for _, code := range cat.Codes() {
		if _, ok := claimed[code]; !ok {
			res.MissingBackendItems = append(res.MissingBackendItems, code)
			log.Warn("backend_item_not_rendered", "code", code)
		}
	}

	log.Info("reconcile_done",
		"cards", res.Total,
		"backend", res.BackendTotal,
		"matched", res.MatchedCount,
		"mismatched", res.MismatchCount,
		"view_details_issues", res.ViewDetailsIssueCount,
		"missing", len(res.MissingBackendItems),
	)
	return res
}

// CheckCard runs every field comparator for a card already matched to it.
func CheckCard(card CardSnapshot, it catalog.Item, opts Options) []Fault {
	var faults []Fault
	add := func(field, expected, actual string, ok bool, detail string) {
		if ok {
			return
		}
		faults = append(faults, Fault{
			Kind:     FieldMismatch,
			Card:     card.Name,
			Code:     it.Code,
			Field:    field,
			Expected: expected,
			Actual:   actual,
			Detail:   detail,
		})
	}

	backendDesc := catalog.PlainText(it.Description)
	ok, detail := CompareDescription(card.Description, backendDesc)
	add("description", backendDesc, card.Description, ok, detail)

	ok, detail = ComparePrice(card.Price, it.Price)
	add("price", it.Price, card.Price, ok, detail)

	ok, detail = CompareSampleType(card.SampleTypeLabel, it)
	add("sample_type", expect.ListSampleTypeLabel(it.Code, it.SampleType), card.SampleTypeLabel, ok, detail)

	ok, detail = CompareBadge(card.HasRecommendedBadge, it)
	add("recommended_badge", fmt.Sprint(ExpectedBadge(it)), fmt.Sprint(card.HasRecommendedBadge), ok, detail)

	if opts.RequireImages {
		add("image", "true", fmt.Sprint(card.HasImage), card.HasImage, "card has no image")
	}
	return faults
}

// CheckDetail compares a detail page against the values derived from its item.
func CheckDetail(it catalog.Item, d DetailSnapshot) []Fault {
	var faults []Fault
	fail := func(field, expected, actual, detail string) {
		faults = append(faults, Fault{
			Kind:     FieldMismatch,
			Card:     d.Title,
			Code:     it.Code,
			Field:    field,
			Expected: expected,
			Actual:   actual,
			Detail:   detail,
		})
	}

	if !namesAgree(d.Title, it.Name) {
		fail("detail_title", it.Name, d.Title, "detail page title does not name the item")
	}

	if want := expect.DetailSampleTypeLabel(it.Code, it.SampleType); strings.TrimSpace(d.SampleTypeLabel) != want {
		fail("detail_sample_type", want, d.SampleTypeLabel, "detail sample type label differs")
	}

	wantHighlights := expect.DetailHighlights(it)
	if i, diff := firstDiff(wantHighlights, d.Highlights); diff {
		fail("highlights", strings.Join(wantHighlights, " | "), strings.Join(d.Highlights, " | "),
			fmt.Sprintf("highlights differ at position %d", i))
	}

	wantSteps := expect.ItemHowItWorks(it)
	if i, diff := firstStepDiff(wantSteps, d.Steps); diff {
		fail("how_it_works", stepsText(wantSteps), stepsText(d.Steps),
			fmt.Sprintf("how-it-works steps differ at position %d", i))
	}
	return faults
}

func namesAgree(ui, backend string) bool {
	u, b := NormalizeName(ui), NormalizeName(backend)
	if u == b || strings.Contains(u, b) {
		return true
	}
	for k, v := range DefaultAliases {
		if (u == NormalizeName(k) && b == NormalizeName(v)) || (u == NormalizeName(v) && b == NormalizeName(k)) {
			return true
		}
	}
	return false
}

func firstDiff(want, got []string) (int, bool) {
	for i := 0; i < len(want) || i < len(got); i++ {
		if i >= len(want) || i >= len(got) {
			return i, true
		}
		if catalog.CollapseSpace(want[i]) != catalog.CollapseSpace(got[i]) {
			return i, true
		}
	}
	return 0, false
}

func firstStepDiff(want, got []expect.Step) (int, bool) {
	for i := 0; i < len(want) || i < len(got); i++ {
		if i >= len(want) || i >= len(got) {
			return i, true
		}
		if catalog.CollapseSpace(want[i].Title) != catalog.CollapseSpace(got[i].Title) ||
			catalog.CollapseSpace(want[i].Description) != catalog.CollapseSpace(got[i].Description) {
			return i, true
		}
	}
	return 0, false
}

func stepsText(steps []expect.Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.Title + ": " + s.Description
	}
	return strings.Join(parts, " | ")
}

// Record adds faults found outside Reconcile (detail pages, navigation checks).
// A non-empty batch counts as one more mismatch; UI-state faults bump their own counter.
func (r *Result) Record(ctx context.Context, faults ...Fault) {
	mismatch := false
	for _, f := range faults {
		if f.Kind == UIStateFault {
			r.ViewDetailsIssueCount++
		} else {
			mismatch = true
		}
		r.record(ctx, f)
	}
	if mismatch {
		r.MismatchCount++
	}
}

func (r *Result) record(ctx context.Context, f Fault) {
	r.Faults = append(r.Faults, f)
	obs.From(ctx).Warn("reconcile_fault",
		"pkg", "reconcile",
		"kind", string(f.Kind),
		"card", f.Card,
		"code", f.Code,
		"field", f.Field,
		"expected", f.Expected,
		"actual", f.Actual,
		"detail", f.Detail,
	)
}

// FaultsOfKind returns the recorded faults of one kind.
func (r *Result) FaultsOfKind(kind FaultKind) []Fault {
	var out []Fault
	for _, f := range r.Faults {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// Passed reports whether the pass found no mismatches, unmatched items or UI faults.
func (r *Result) Passed() bool {
	return r.Err() == nil && r.UIErr() == nil
}

// Err returns one summary error when any card mismatched or any backend item went
// unmatched, and nil otherwise.
func (r *Result) Err() error {
	if r.MismatchCount == 0 && len(r.MissingBackendItems) == 0 && len(r.FaultsOfKind(DataFault)) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "reconcile: %d of %d cards mismatched, %d backend items unmatched",
		r.MismatchCount, r.Total, len(r.MissingBackendItems))
	for _, f := range r.Faults {
		if f.Kind == UIStateFault {
			continue
		}
		b.WriteString("\n  - ")
		b.WriteString(f.String())
	}
	if len(r.MissingBackendItems) > 0 {
		b.WriteString("\n  - unmatched backend items: ")
		b.WriteString(strings.Join(r.MissingBackendItems, ", "))
	}
	return errors.New(b.String())
}

// UIErr returns one summary error for View-Details control problems.
func (r *Result) UIErr() error {
	if r.ViewDetailsIssueCount == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "reconcile: %d view details issues", r.ViewDetailsIssueCount)
	for _, f := range r.FaultsOfKind(UIStateFault) {
		b.WriteString("\n  - ")
		b.WriteString(f.String())
	}
	return errors.New(b.String())
}

// Summary is a one-line human summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("cards=%d backend=%d matched=%d mismatched=%d view_details_issues=%d missing=%d",
		r.Total, r.BackendTotal, r.MatchedCount, r.MismatchCount, r.ViewDetailsIssueCount, len(r.MissingBackendItems))
}
