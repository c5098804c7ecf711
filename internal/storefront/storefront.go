// Package storefront serves a self-contained lab-tests storefront: the catalog
// API, the listing page and one detail page per item. It renders the catalog the
// way the production storefront does and can inject UI faults, so the
// reconciliation suite can be exercised without external services.
package storefront

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/currency"

	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/expect"
	"github.com/kuitang/labtests-e2e/internal/obs"
	"github.com/kuitang/labtests-e2e/internal/ratelimit"
)

//go:embed fixtures/catalog.json
var fixtureCatalog []byte

// FixtureCatalog returns a copy of the embedded catalog document.
func FixtureCatalog() []byte {
	return bytes.Clone(fixtureCatalog)
}

// Paths served by the storefront.
const (
	ListingPath = "/lab-tests"
	ImagePath   = "/images"
)

// FixtureDisplayNames are the marketing names the listing shows in place of the
// backend names for two fixture items.
var FixtureDisplayNames = map[string]string{
	"GUT_MICROBIOME":  "Advanced Gut Microbiome Analysis",
	"CORTISOL_RHYTHM": "Stress and Cortisol Rhythm Panel",
}

// Faults make the rendered UI diverge from the catalog. Every map is keyed by item code.
type Faults struct {
	// PriceOverrides replaces the displayed price text.
	PriceOverrides map[string]string
	// DisplayNames replaces the card and detail title.
	DisplayNames map[string]string
	// HiddenCodes are not rendered at all.
	HiddenCodes map[string]bool
	// DisabledViewDetails renders a disabled View-Details button.
	DisabledViewDetails map[string]bool
	// HiddenViewDetails renders the View-Details link with display:none.
	HiddenViewDetails map[string]bool
	// DropBadges omits the Recommended badge.
	DropBadges map[string]bool
	// DescriptionOverrides replaces the card description.
	DescriptionOverrides map[string]string
	// DropHighlights omits the detail-page highlight list.
	DropHighlights map[string]bool
}

// Empty reports whether no fault is configured.
func (f Faults) Empty() bool {
	return len(f.PriceOverrides) == 0 && len(f.DisplayNames) == 0 && len(f.HiddenCodes) == 0 &&
		len(f.DisabledViewDetails) == 0 && len(f.HiddenViewDetails) == 0 && len(f.DropBadges) == 0 &&
		len(f.DescriptionOverrides) == 0 && len(f.DropHighlights) == 0
}

// Options configures a Server.
type Options struct {
	// CatalogJSON is the document served by the API. Defaults to the embedded fixture.
	CatalogJSON []byte
	// DisplayNames are the storefront's own marketing names. Defaults to FixtureDisplayNames.
	DisplayNames map[string]string
	// Currency selects the price symbol. Defaults to INR.
	Currency currency.Unit
	// AuthToken, when set, is required as a bearer token on the catalog API.
	AuthToken string
	// DescriptionRunes truncates card descriptions. Defaults to 110.
	DescriptionRunes int
	// APILimit throttles the catalog API per client when non-nil.
	APILimit *ratelimit.Config
	Faults   Faults
}

// Server is the storefront HTTP handler.
type Server struct {
	router   chi.Router
	raw      []byte
	cat      *catalog.Catalog
	opts     Options
	renderer *renderer
	prices   *priceFormatter
	limiter  *ratelimit.Limiter
}

// New parses the catalog and templates and wires the routes.
func New(opts Options) (*Server, error) {
	if opts.CatalogJSON == nil {
		opts.CatalogJSON = FixtureCatalog()
	}
	if opts.DisplayNames == nil {
		opts.DisplayNames = FixtureDisplayNames
	}
	if opts.Currency == (currency.Unit{}) {
		opts.Currency = currency.INR
	}
	if opts.DescriptionRunes <= 0 {
		opts.DescriptionRunes = 110
	}

	cat, err := catalog.Decode(bytes.NewReader(opts.CatalogJSON))
	if err != nil {
		return nil, fmt.Errorf("storefront: load catalog: %w", err)
	}
	r, err := newRenderer(templateFS)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   chi.NewRouter(),
		raw:      opts.CatalogJSON,
		cat:      cat,
		opts:     opts,
		renderer: r,
		prices:   newPriceFormatter(opts.Currency),
	}
	if opts.APILimit != nil {
		s.limiter = ratelimit.New(*opts.APILimit)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Catalog returns the parsed catalog the storefront renders.
func (s *Server) Catalog() *catalog.Catalog { return s.cat }

// Close releases the API limiter, if any.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(obs.RequestContextMiddleware)
	s.router.Use(obs.AccessLogMiddleware("storefront"))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "items": s.cat.Len()})
	})
	s.router.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(ratelimit.Middleware(s.limiter, nil))
		}
		r.Get(catalog.DefaultPath, s.handleCatalog)
	})
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, ListingPath, http.StatusFound)
	})
	s.router.Get(ListingPath, s.handleListing)
	s.router.Get(ListingPath+"/{code}", s.handleDetail)
	s.router.Get(ImagePath+"/{file}", s.handleImage)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if s.opts.AuthToken != "" {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got != s.opts.AuthToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(s.raw)
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	data := listingView{
		Categories: expect.Categories(),
		Cards:      s.cards(),
	}
	if err := s.renderer.render(w, "listing.html", data); err != nil {
		obs.From(r.Context()).Error("render_failed", "pkg", "storefront", "page", "listing", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	it, ok := s.cat.Lookup(code)
	if !ok || s.opts.Faults.HiddenCodes[code] {
		http.NotFound(w, r)
		return
	}
	if err := s.renderer.render(w, "detail.html", s.detail(it)); err != nil {
		obs.From(r.Context()).Error("render_failed", "pkg", "storefront", "page", "detail", "code", code, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSuffix(chi.URLParam(r, "file"), ".svg")
	it, ok := s.cat.Lookup(code)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = fmt.Fprint(w, placeholderSVG(s.displayName(it)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
