package storefront

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/expect"
)

type listingView struct {
	Categories []expect.Category
	Cards      []cardView
}

type cardView struct {
	Code                string
	Name                string
	Category            expect.Category
	Description         string
	Price               string
	SampleTypeLabel     string
	ImageURL            string
	DetailURL           string
	Recommended         bool
	ViewDetailsDisabled bool
	ViewDetailsHidden   bool
}

type detailView struct {
	Code            string
	Name            string
	Price           string
	SampleTypeLabel string
	Highlights      []string
	Steps           []expect.Step
	ListingURL      string
}

// cards renders every visible item in catalog order.
func (s *Server) cards() []cardView {
	f := s.opts.Faults
	out := make([]cardView, 0, s.cat.Len())
	for _, it := range s.cat.Items() {
		if f.HiddenCodes[it.Code] {
			continue
		}
		desc := truncateRunes(catalog.PlainText(it.Description), s.opts.DescriptionRunes)
		if d, ok := f.DescriptionOverrides[it.Code]; ok {
			desc = d
		}
		price := s.prices.Format(it.Price)
		if p, ok := f.PriceOverrides[it.Code]; ok {
			price = p
		}
		out = append(out, cardView{
			Code:                it.Code,
			Name:                s.displayName(it),
			Category:            expect.CategoryOf(it.SampleType),
			Description:         desc,
			Price:               price,
			SampleTypeLabel:     expect.ListSampleTypeLabel(it.Code, it.SampleType),
			ImageURL:            ImagePath + "/" + it.Code + ".svg",
			DetailURL:           ListingPath + "/" + it.Code,
			Recommended:         strings.TrimSpace(it.Content.WhyTest) != "" && !f.DropBadges[it.Code],
			ViewDetailsDisabled: f.DisabledViewDetails[it.Code],
			ViewDetailsHidden:   f.HiddenViewDetails[it.Code],
		})
	}
	return out
}

func (s *Server) detail(it catalog.Item) detailView {
	v := detailView{
		Code:            it.Code,
		Name:            s.displayName(it),
		Price:           s.prices.Format(it.Price),
		SampleTypeLabel: expect.DetailSampleTypeLabel(it.Code, it.SampleType),
		Highlights:      expect.DetailHighlights(it),
		Steps:           expect.ItemHowItWorks(it),
		ListingURL:      ListingPath,
	}
	if s.opts.Faults.DropHighlights[it.Code] {
		v.Highlights = nil
	}
	return v
}

func (s *Server) displayName(it catalog.Item) string {
	if n, ok := s.opts.Faults.DisplayNames[it.Code]; ok {
		return n
	}
	if n, ok := s.opts.DisplayNames[it.Code]; ok {
		return n
	}
	return it.Name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	return strings.TrimRight(string(r), " ,.;:") + "…"
}

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// priceFormatter renders backend decimal strings as grouped whole-unit prices,
// keeping two decimals only when the amount has a fractional part.
type priceFormatter struct {
	symbol  string
	printer *message.Printer
}

func newPriceFormatter(unit currency.Unit) *priceFormatter {
	sym, ok := currencySymbols[unit.String()]
	if !ok {
		sym = unit.String() + " "
	}
	return &priceFormatter{symbol: sym, printer: message.NewPrinter(language.English)}
}

// Format returns raw unchanged when it is not a number.
func (f *priceFormatter) Format(raw string) string {
	clean := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return raw
	}
	if v == math.Trunc(v) {
		return f.symbol + f.printer.Sprintf("%d", int64(v))
	}
	return f.symbol + f.printer.Sprintf("%.2f", v)
}

func placeholderSVG(label string) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="320" height="160" viewBox="0 0 320 160">`+
		`<rect width="320" height="160" fill="#e3f8ff"/>`+
		`<text x="160" y="85" font-family="sans-serif" font-size="16" text-anchor="middle" fill="#035388">%s</text></svg>`,
		html.EscapeString(label))
}
