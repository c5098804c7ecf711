package pages

import (
	"testing"

	"github.com/kuitang/labtests-e2e/internal/expect"
	"github.com/kuitang/labtests-e2e/internal/reconcile"
)

func TestSelectors_JSArgCarriesCardAndDetailKeys(t *testing.T) {
	arg := DefaultSelectors.jsArg()

	want := map[string]string{
		"card":        DefaultSelectors.Card,
		"name":        DefaultSelectors.CardName,
		"viewDetails": DefaultSelectors.CardViewDetails,
		"detailTitle": DefaultSelectors.DetailTitle,
		"detailStep":  DefaultSelectors.DetailStep,
	}
	for k, v := range want {
		if arg[k] != v {
			t.Errorf("jsArg()[%q] = %q, want %q", k, arg[k], v)
		}
	}
	// format strings and navigation selectors stay on the Go side
	if _, ok := arg["FilterCheckbox"]; ok {
		t.Error("jsArg() leaked FilterCheckbox")
	}
	if _, ok := arg["DetailBack"]; ok {
		t.Error("jsArg() leaked DetailBack")
	}
}

func TestSelectors_Filter(t *testing.T) {
	tests := []struct {
		cat  expect.Category
		want string
	}{
		{expect.CategoryGut, `[data-testid="filter-` + string(expect.CategoryGut) + `"]`},
		{expect.CategoryBlood, `[data-testid="filter-` + string(expect.CategoryBlood) + `"]`},
	}
	for _, tt := range tests {
		if got := DefaultSelectors.filter(tt.cat); got != tt.want {
			t.Errorf("filter(%s) = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestDecodeEvaluated_Cards(t *testing.T) {
	raw := []any{
		map[string]any{
			"index":               float64(0),
			"name":                "Vitamin D",
			"price":               "₹1,499",
			"hasImage":            true,
			"hasRecommendedBadge": false,
			"viewDetails":         map[string]any{"present": true, "visible": true, "enabled": false},
		},
	}
	var cards []reconcile.CardSnapshot
	if err := decodeEvaluated(raw, &cards); err != nil {
		t.Fatalf("decodeEvaluated: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("got %d cards, want 1", len(cards))
	}
	c := cards[0]
	if c.Name != "Vitamin D" || c.Price != "₹1,499" || !c.HasImage || c.HasRecommendedBadge {
		t.Fatalf("unexpected card: %+v", c)
	}
	if c.ViewDetails.Problem() == "" {
		t.Fatal("disabled view details should report a problem")
	}
}

func TestDecodeEvaluated_RejectsWrongShape(t *testing.T) {
	var cards []reconcile.CardSnapshot
	if err := decodeEvaluated("not a list", &cards); err == nil {
		t.Fatal("expected an error decoding a string into cards")
	}
}

func TestNewListingPage_Defaults(t *testing.T) {
	l := NewListingPage(nil, "http://127.0.0.1:8090/", ListingOptions{})
	if l.URL() != "http://127.0.0.1:8090"+DefaultListingPath {
		t.Fatalf("URL() = %q", l.URL())
	}
	if l.timeout != 5000 {
		t.Fatalf("timeout = %v, want 5000", l.timeout)
	}

	custom := DefaultSelectors
	custom.Card = ".card"
	l = NewListingPage(nil, "https://shop.test", ListingOptions{Path: "/tests", Selectors: &custom, TimeoutMS: 1500})
	if l.URL() != "https://shop.test/tests" || l.sel.Card != ".card" || l.timeout != 1500 {
		t.Fatalf("unexpected listing page: url=%s card=%s timeout=%v", l.URL(), l.sel.Card, l.timeout)
	}
}
