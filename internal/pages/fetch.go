package pages

import (
	"bytes"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/logutil"
)

// FetchCatalogInContext downloads the catalog through the browser context's request
// client, so the request carries the same cookies as the signed-in page.
func FetchCatalogInContext(bc playwright.BrowserContext, url string) (*catalog.Catalog, error) {
	resp, err := bc.Request().Get(url, playwright.APIRequestContextGetOptions{
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, fmt.Errorf("pages: fetch catalog %s: %w", url, err)
	}
	body, err := resp.Body()
	if err != nil {
		return nil, fmt.Errorf("pages: read catalog body: %w", err)
	}
	if status := resp.Status(); status < 200 || status > 299 {
		return nil, &catalog.StatusError{StatusCode: status, Body: logutil.TruncateForLog(string(body), 512)}
	}
	return catalog.Decode(bytes.NewReader(body))
}
