package reconcile

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/kuitang/labtests-e2e/internal/catalog"
)

// DefaultAliases maps names the UI renders to the backend name of the same item.
// Lookups use the table in both directions.
var DefaultAliases = map[string]string{
	"Advanced Gut Microbiome Analysis": "Advanced Gut Microbiome",
	"Stress and Cortisol Rhythm Panel": "Stress and Cortisol Rhythm",
}

// MatchKind records which rule resolved a UI name.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchAlias
	MatchNormalized
	MatchContains
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchAlias:
		return "alias"
	case MatchNormalized:
		return "normalized"
	case MatchContains:
		return "contains"
	default:
		return "none"
	}
}

var nameReplacer = strings.NewReplacer("™", "", "®", "", "&", " and ", " ", " ")

// NormalizeName folds case, applies NFKC and collapses whitespace so names that
// differ only in presentation compare equal.
func NormalizeName(s string) string {
	s = nameReplacer.Replace(s)
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

type candidate struct {
	norm  string
	index int
}

// Matcher resolves UI display names to catalog items.
type Matcher struct {
	cat          *catalog.Catalog
	byName       map[string]int
	byNormalized map[string]int
	aliases      map[string]string
	candidates   []candidate
}

// NewMatcher indexes cat. A nil aliases map selects DefaultAliases.
func NewMatcher(cat *catalog.Catalog, aliases map[string]string) *Matcher {
	if aliases == nil {
		aliases = DefaultAliases
	}
	m := &Matcher{
		cat:          cat,
		byName:       make(map[string]int, cat.Len()),
		byNormalized: make(map[string]int, cat.Len()),
		aliases:      make(map[string]string, 2*len(aliases)),
	}
	for i := 0; i < cat.Len(); i++ {
		it := cat.At(i)
		if _, dup := m.byName[it.Name]; !dup {
			m.byName[it.Name] = i
		}
		n := NormalizeName(it.Name)
		if n == "" {
			continue
		}
		if _, dup := m.byNormalized[n]; !dup {
			m.byNormalized[n] = i
		}
		m.candidates = append(m.candidates, candidate{norm: n, index: i})
	}
	for ui, backend := range aliases {
		m.aliases[NormalizeName(ui)] = NormalizeName(backend)
		m.aliases[NormalizeName(backend)] = NormalizeName(ui)
	}
	for aliasNorm, targetNorm := range m.aliases {
		if i, ok := m.byNormalized[targetNorm]; ok {
			m.candidates = append(m.candidates, candidate{norm: aliasNorm, index: i})
		}
	}
	return m
}

// Find returns the catalog item a UI name stands for.
//
// Rules, first hit wins: exact name, alias table, normalized name, then the
// longest known name (or alias) contained in the UI name. Equal-length
// containment candidates resolve to the earlier catalog item.
func (m *Matcher) Find(uiName string) (catalog.Item, MatchKind, bool) {
	if i, ok := m.byName[uiName]; ok {
		return m.cat.At(i), MatchExact, true
	}

	n := NormalizeName(uiName)
	if n == "" {
		return catalog.Item{}, MatchNone, false
	}
	if target, ok := m.aliases[n]; ok {
		if i, ok := m.byNormalized[target]; ok {
			return m.cat.At(i), MatchAlias, true
		}
	}
	if i, ok := m.byNormalized[n]; ok {
		return m.cat.At(i), MatchNormalized, true
	}

	best := -1
	bestLen := 0
	for _, c := range m.candidates {
		if !strings.Contains(n, c.norm) {
			continue
		}
		if len(c.norm) > bestLen || (len(c.norm) == bestLen && c.index < best) {
			best, bestLen = c.index, len(c.norm)
		}
	}
	if best >= 0 {
		return m.cat.At(best), MatchContains, true
	}
	return catalog.Item{}, MatchNone, false
}
