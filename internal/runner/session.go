package runner

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/config"
	"github.com/kuitang/labtests-e2e/internal/pages"
	"github.com/kuitang/labtests-e2e/internal/urlutil"
)

type session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// openSession launches Chromium with one context carrying the run's credentials.
func openSession(cfg *config.Config, base string) (*session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	s := &session{pw: pw, browser: browser}

	s.context, err = browser.NewContext(ContextOptions(cfg.AuthToken))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	timeout := float64(cfg.Timeout.Milliseconds())
	s.context.SetDefaultTimeout(timeout)
	s.context.SetDefaultNavigationTimeout(timeout)

	if cookie := sessionCookie(cfg.SessionCookie); cookie != nil {
		err := s.context.AddCookies([]playwright.OptionalCookie{{
			Name:  cookie.Name,
			Value: cookie.Value,
			URL:   playwright.String(base),
		}})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("set session cookie: %w", err)
		}
	}

	s.page, err = s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	return s, nil
}

func (s *session) Close() {
	if s.context != nil {
		_ = s.context.Close()
	}
	_ = s.browser.Close()
	_ = s.pw.Stop()
}

// ContextOptions returns browser-context options that send token as a bearer
// credential on every request.
func ContextOptions(token string) playwright.BrowserNewContextOptions {
	var opts playwright.BrowserNewContextOptions
	if token = strings.TrimSpace(token); token != "" {
		opts.ExtraHttpHeaders = map[string]string{"Authorization": "Bearer " + token}
	}
	return opts
}

// sessionCookie parses "name=value", returning nil for an empty setting.
func sessionCookie(raw string) *http.Cookie {
	name, value, ok := strings.Cut(strings.TrimSpace(raw), "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil
	}
	return &http.Cookie{Name: name, Value: strings.TrimSpace(value)}
}

// fetchCatalog downloads the backend snapshot. With a session cookie and a
// same-origin endpoint the request goes through the browser context so it is made
// as the signed-in user; otherwise the paced HTTP client is used.
func fetchCatalog(ctx context.Context, cfg *config.Config, base string, bctx playwright.BrowserContext) (*catalog.Catalog, error) {
	endpoint := cfg.CatalogEndpoint(base)
	cookie := sessionCookie(cfg.SessionCookie)
	if cookie != nil && bctx != nil && urlutil.SameOrigin(endpoint, base) {
		return pages.FetchCatalogInContext(bctx, endpoint)
	}

	clientCfg := catalog.ClientConfig{
		URL:       endpoint,
		AuthToken: cfg.AuthToken,
		RPS:       cfg.FetchRPS,
	}
	if cookie != nil {
		clientCfg.Cookies = []*http.Cookie{cookie}
	}
	return catalog.NewClient(clientCfg).Fetch(ctx)
}
