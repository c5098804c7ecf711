// Package browser runs the storefront through a real Chromium: listing snapshot,
// filters, View-Details navigation and detail pages, each reconciled against the
// backend catalog. All tests share one fixture storefront and one browser via
// SetupBrowserTestEnv(t).
package browser

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/pages"
	"github.com/kuitang/labtests-e2e/internal/storefront"
)

const (
	// Never introduce a larger timeout anywhere in tests/browser.
	browserMaxTimeoutMS = 5000
)

var (
	browserFixtureMu     sync.Mutex
	browserSharedFixture *BrowserTestEnv
)

// BrowserTestEnv is the shared environment: a fixture storefront and a browser.
type BrowserTestEnv struct {
	Server     *httptest.Server
	BaseURL    string
	Storefront *storefront.Server

	pw        *playwright.Playwright
	browser   playwright.Browser
	browserMu sync.Mutex
}

// SetupBrowserTestEnv returns the shared environment, creating it on first use.
func SetupBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if browserSharedFixture != nil {
		return browserSharedFixture
	}
	sf, err := storefront.New(storefront.Options{})
	if err != nil {
		t.Fatalf("Failed to build fixture storefront: %v", err)
	}
	server := httptest.NewServer(sf)
	browserSharedFixture = &BrowserTestEnv{Server: server, BaseURL: server.URL, Storefront: sf}
	return browserSharedFixture
}

// NewFaultyStorefront serves a storefront with faults injected into its UI. The
// server is closed when the test ends.
func NewFaultyStorefront(t *testing.T, faults storefront.Faults) (string, *catalog.Catalog) {
	t.Helper()

	sf, err := storefront.New(storefront.Options{Faults: faults})
	if err != nil {
		t.Fatalf("Failed to build faulty storefront: %v", err)
	}
	server := httptest.NewServer(sf)
	t.Cleanup(server.Close)
	return server.URL, sf.Catalog()
}

// InitBrowser starts Playwright and launches Chromium. Skips the test if not available.
func (env *BrowserTestEnv) InitBrowser(t *testing.T) {
	t.Helper()

	env.browserMu.Lock()
	defer env.browserMu.Unlock()

	if env.browser != nil {
		return
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Skip("Playwright not available:", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		t.Skip("Could not launch browser:", err)
	}
	env.pw = pw
	env.browser = browser
}

// NewContext creates a browser context closed at the end of the test.
func (env *BrowserTestEnv) NewContext(t *testing.T) playwright.BrowserContext {
	t.Helper()

	ctx, err := env.browser.NewContext()
	if err != nil {
		t.Fatalf("could not create browser context: %v", err)
	}
	ctx.SetDefaultTimeout(browserMaxTimeoutMS)
	ctx.SetDefaultNavigationTimeout(browserMaxTimeoutMS)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

// OpenListing opens the listing of the storefront at baseURL in a fresh context.
func (env *BrowserTestEnv) OpenListing(t *testing.T, baseURL string) *pages.ListingPage {
	t.Helper()

	page, err := env.NewContext(t).NewPage()
	if err != nil {
		t.Fatalf("could not create page: %v", err)
	}
	listing := pages.NewListingPage(page, baseURL, pages.ListingOptions{TimeoutMS: browserMaxTimeoutMS})
	if err := listing.Open(); err != nil {
		content, _ := page.Content()
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		t.Logf("Content preview: %s", content)
		t.Fatalf("Failed to open listing: %v", err)
	}
	return listing
}

// BackendCatalog fetches the catalog over the storefront's API, the way the suite does.
func BackendCatalog(t *testing.T, baseURL string) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.NewClient(catalog.ClientConfig{URL: baseURL + catalog.DefaultPath, RPS: 50}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Failed to fetch backend catalog: %v", err)
	}
	return cat
}

// DisplayName is the name the fixture storefront shows for it.
func DisplayName(it catalog.Item) string {
	if n, ok := storefront.FixtureDisplayNames[it.Code]; ok {
		return n
	}
	return it.Name
}

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
}
