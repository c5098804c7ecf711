package runner

import (
	"context"

	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/obs"
	"github.com/kuitang/labtests-e2e/internal/pages"
	"github.com/kuitang/labtests-e2e/internal/reconcile"
)

// DetailTarget pairs a backend item with the card that renders it.
type DetailTarget struct {
	Item catalog.Item
	Card reconcile.CardSnapshot
}

// DetailTargets lists, in backend order, every item whose card was rendered with a
// usable View-Details control. The first card claiming an item wins, as in Reconcile.
func DetailTargets(cat *catalog.Catalog, cards []reconcile.CardSnapshot, aliases map[string]string) []DetailTarget {
	matcher := reconcile.NewMatcher(cat, aliases)
	byCode := make(map[string]reconcile.CardSnapshot, len(cards))
	for _, c := range cards {
		it, _, ok := matcher.Find(c.Name)
		if !ok {
			continue
		}
		if _, claimed := byCode[it.Code]; !claimed {
			byCode[it.Code] = c
		}
	}

	var out []DetailTarget
	for _, it := range cat.Items() {
		card, ok := byCode[it.Code]
		if !ok || !card.ViewDetails.OK() {
			continue
		}
		out = append(out, DetailTarget{Item: it, Card: card})
	}
	return out
}

// CheckDetails opens each detail page from DetailTargets, records what CheckDetail
// finds into res and returns to the listing. A click or back navigation that fails
// is recorded as a UI fault and the walk resumes from a reopened listing; an error
// is returned only when the listing itself cannot be reopened.
func CheckDetails(ctx context.Context, listing *pages.ListingPage, cat *catalog.Catalog,
	cards []reconcile.CardSnapshot, aliases map[string]string, res *reconcile.Result) error {
	log := obs.From(ctx).With("pkg", "runner")

	uiFault := func(t DetailTarget, detail string) {
		res.Record(ctx, reconcile.Fault{
			Kind:   reconcile.UIStateFault,
			Card:   t.Card.Name,
			Code:   t.Item.Code,
			Field:  "view_details",
			Detail: detail,
		})
	}

	targets := DetailTargets(cat, cards, aliases)
	for _, t := range targets {
		detail, err := listing.OpenDetailsAt(t.Card.Index)
		if err != nil {
			uiFault(t, "view details did not open the detail page: "+err.Error())
			if err := listing.Open(); err != nil {
				return err
			}
			continue
		}

		snap, err := detail.Snapshot()
		if err != nil {
			uiFault(t, "detail page could not be read: "+err.Error())
		} else {
			res.Record(ctx, reconcile.CheckDetail(t.Item, snap)...)
		}

		if _, err := detail.Back(); err != nil {
			uiFault(t, "could not return to the listing: "+err.Error())
			if err := listing.Open(); err != nil {
				return err
			}
		}
	}
	log.Info("details_checked", "pages", len(targets))
	return nil
}
