package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kuitang/labtests-e2e/internal/logutil"
	"github.com/kuitang/labtests-e2e/internal/obs"
)

const (
	// DefaultPath is the catalog endpoint relative to the API base URL.
	DefaultPath = "/api/v1/diagnostics/products"

	maxBodyBytes    = 8 << 20
	maxLoggedBytes  = 512
	defaultTimeout  = 10 * time.Second
	defaultFetchRPS = 2
)

// StatusError is returned when the catalog endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: unexpected status %d: %s", e.StatusCode, e.Body)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// URL is the full catalog endpoint URL.
	URL string
	// AuthToken is sent as a bearer token when non-empty.
	AuthToken string
	// Cookies are attached to every request (e.g. a session cookie for the current user).
	Cookies []*http.Cookie
	// RPS caps the request rate; zero selects the default.
	RPS float64
	// HTTPClient overrides the transport; nil selects a client with a 10s timeout.
	HTTPClient *http.Client
}

// Client fetches catalog snapshots over HTTP.
type Client struct {
	url     string
	token   string
	cookies []*http.Cookie
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a catalog client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultFetchRPS
	}
	return &Client{
		url:     cfg.URL,
		token:   strings.TrimSpace(cfg.AuthToken),
		cookies: cfg.Cookies,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Fetch downloads and flattens one catalog snapshot.
func (c *Client) Fetch(ctx context.Context) (*Catalog, error) {
	body, err := c.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(body))
}

// FetchRaw downloads the catalog document without decoding it.
func (c *Client) FetchRaw(ctx context.Context) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog: wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	log := obs.From(ctx).With("pkg", "catalog")
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("catalog_fetch_failed", "url", c.url, "error", err)
		return nil, fmt.Errorf("catalog: fetch %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("catalog: read body: %w", err)
	}

	log.Debug("catalog_fetch",
		"url", c.url,
		"status", resp.StatusCode,
		"dur_ms", float64(time.Since(start).Microseconds())/1000.0,
		"resp_bytes", len(body),
		"req_headers", logutil.FormatHeadersForLog(req.Header),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		preview := logutil.FormatBodyForLog(resp.Header.Get("Content-Type"), body, maxLoggedBytes, false)
		log.Warn("catalog_fetch_status", "url", c.url, "status", resp.StatusCode, "body", preview)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: logutil.TruncateForLog(string(body), maxLoggedBytes)}
	}
	return body, nil
}
