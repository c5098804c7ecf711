package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MissingCatalogError is returned when the response carries no diagnostic_product_list.
// It is a data fault: callers fail the scenario instead of retrying.
type MissingCatalogError struct {
	Reason string
}

func (e *MissingCatalogError) Error() string {
	if e.Reason == "" {
		return "catalog: response has no diagnostic_product_list"
	}
	return "catalog: response has no diagnostic_product_list: " + e.Reason
}

// Catalog is the flattened, ordered list of items from one API snapshot. Codes are
// unique: a later entry repeating a code is dropped and reported by Duplicates.
type Catalog struct {
	items      []Item
	byCode     map[string]int
	duplicates []string
}

// Items returns a copy of the items in catalog order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// At returns the i-th item in catalog order.
func (c *Catalog) At(i int) Item { return c.items[i] }

// Lookup returns the item with the given code.
func (c *Catalog) Lookup(code string) (Item, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Codes returns every item code in catalog order.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.items))
	for i, it := range c.items {
		codes[i] = it.Code
	}
	return codes
}

// New builds a catalog from already-normalized items, keeping their order. The
// first item with a given code wins.
func New(items []Item) *Catalog {
	c := &Catalog{
		items:  make([]Item, 0, len(items)),
		byCode: make(map[string]int, len(items)),
	}
	for _, it := range items {
		if _, dup := c.byCode[it.Code]; dup {
			c.duplicates = append(c.duplicates, it.Code)
			continue
		}
		c.byCode[it.Code] = len(c.items)
		c.items = append(c.items, it)
	}
	return c
}

// Duplicates lists codes that appeared more than once in the source, one entry per
// dropped repeat.
func (c *Catalog) Duplicates() []string {
	return append([]string(nil), c.duplicates...)
}

// Decode reads a catalog JSON document and flattens it.
func Decode(r io.Reader) (*Catalog, error) {
	var resp Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("catalog: decode response: %w", err)
	}
	return Flatten(&resp)
}

// Flatten merges packages, test profiles and tests (in that order, each in source
// order) into one Catalog. Entries without a code are skipped.
func Flatten(resp *Response) (*Catalog, error) {
	if resp == nil {
		return nil, &MissingCatalogError{Reason: "nil response"}
	}
	list := resp.Data.DiagnosticProductList
	if list == nil {
		return nil, &MissingCatalogError{}
	}

	entries := make([]Entry, 0, len(list.Packages)+len(list.TestProfiles)+len(list.Tests))
	for i := range list.Packages {
		entries = append(entries, &list.Packages[i])
	}
	for i := range list.TestProfiles {
		entries = append(entries, &list.TestProfiles[i])
	}
	for i := range list.Tests {
		entries = append(entries, &list.Tests[i])
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		it, ok := toItem(e)
		if !ok {
			continue
		}
		items = append(items, it)
	}
	return New(items), nil
}

func toItem(e Entry) (Item, bool) {
	f := e.Fields()
	if f.Code == nil {
		return Item{}, false
	}

	price := strings.TrimSpace(string(f.Price))
	if price == "" {
		price = strings.TrimSpace(string(f.Product.Price))
	}

	content := f.Content
	content.Highlights = append([]string(nil), f.Content.Highlights...)
	content.Who = append([]string(nil), f.Content.Who...)

	return Item{
		Code:                  *f.Code,
		Name:                  strings.TrimSpace(f.Name),
		Kind:                  e.Kind(),
		Description:           f.Description,
		Price:                 price,
		SampleType:            strings.TrimSpace(f.SampleType),
		IsFastingRequired:     f.IsFastingRequired,
		ReportGenerationHours: reportHours(f.ReportGenerationHr),
		Content:               content,
		Product:               f.Product,
	}, true
}
