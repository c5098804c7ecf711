// Package config loads the labcheck suite configuration from CLI flags,
// environment variables and an optional .env file, validates it, and reports
// every problem at once.
//
// CLI flags choose which outer services are skipped (--no-report, --no-email) and
// whether the built-in fixture storefront is used (--fixture). Environment
// variables carry the target deployment and secrets.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/urlutil"
)

const (
	defaultListingPath = "/lab-tests"
	defaultRegion      = "auto"
	defaultTimeout     = 5 * time.Second
	defaultFetchRPS    = 2
	defaultNotifyFrom  = "labcheck@example.com"
)

// Config holds the suite configuration.
type Config struct {
	// Target storefront
	BaseURL       string
	ListingPath   string
	CatalogURL    string // empty means BaseURL + the catalog API path
	AuthToken     string
	SessionCookie string // "name=value" injected into the browser context
	ExpectedItems int    // 0 disables the card-count check
	CheckDetails  bool
	RequireImages bool

	// Browser and pacing
	Headless bool
	Timeout  time.Duration
	FetchRPS float64

	// Flags
	NoReport bool // --no-report: keep the report local
	NoEmail  bool // --no-email: capture notifications with the mock
	Fixture  bool // --fixture: serve the fixture storefront in-process

	// Report storage (S3-compatible)
	AWSEndpointS3      string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	ReportBucket       string
	ReportPublicURL    string

	// Notifications
	ResendAPIKey string
	NotifyFrom   string
	NotifyTo     []string

	parseErrs []string
}

// Flags are the parsed command-line switches.
type Flags struct {
	NoReport bool
	NoEmail  bool
	Fixture  bool
	Headed   bool
	EnvFile  string
}

// ValidationError lists every configuration problem found.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags parses args (without the program name).
func ParseFlags(args []string) (Flags, error) {
	var f Flags
	var testMode bool
	set := flag.NewFlagSet("labcheck", flag.ContinueOnError)
	set.BoolVar(&f.NoReport, "no-report", false, "Do not upload the report and screenshots to S3")
	set.BoolVar(&f.NoEmail, "no-email", false, "Capture notifications instead of sending them")
	set.BoolVar(&f.Fixture, "fixture", false, "Run against the built-in fixture storefront")
	set.BoolVar(&f.Headed, "headed", false, "Show the browser window")
	set.BoolVar(&testMode, "test", false, "Shorthand for --no-report --no-email --fixture")
	set.StringVar(&f.EnvFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")
	if err := set.Parse(args); err != nil {
		return Flags{}, err
	}
	if testMode {
		f.NoReport = true
		f.NoEmail = true
		f.Fixture = true
	}
	return f, nil
}

// LoadConfig loads the dotenv file named by f.EnvFile when it exists, reads the
// environment, applies f and validates the result. Variables already set in the
// environment win over the dotenv file.
func LoadConfig(f Flags) (*Config, error) {
	if f.EnvFile != "" {
		if err := godotenv.Load(f.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f.EnvFile, err)
		}
	}

	cfg := &Config{
		NoReport: f.NoReport,
		NoEmail:  f.NoEmail,
		Fixture:  f.Fixture,
	}

	cfg.BaseURL = urlutil.NormalizeBaseURL(os.Getenv("LABTESTS_BASE_URL"))
	cfg.ListingPath = getEnvOrDefault("LABTESTS_LISTING_PATH", defaultListingPath)
	cfg.CatalogURL = strings.TrimSpace(os.Getenv("LABTESTS_CATALOG_URL"))
	cfg.AuthToken = strings.TrimSpace(os.Getenv("LABTESTS_AUTH_TOKEN"))
	cfg.SessionCookie = strings.TrimSpace(os.Getenv("LABTESTS_SESSION_COOKIE"))
	cfg.ExpectedItems = cfg.intOrDefault("LABTESTS_EXPECTED_ITEMS", 0)
	cfg.CheckDetails = cfg.boolOrDefault("LABTESTS_CHECK_DETAILS", true)
	cfg.RequireImages = cfg.boolOrDefault("LABTESTS_REQUIRE_IMAGES", false)

	cfg.Headless = cfg.boolOrDefault("LABTESTS_HEADLESS", true)
	if f.Headed {
		cfg.Headless = false
	}
	cfg.Timeout = cfg.durationOrDefault("LABTESTS_TIMEOUT", defaultTimeout)
	cfg.FetchRPS = cfg.floatOrDefault("LABTESTS_FETCH_RPS", defaultFetchRPS)

	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultRegion)
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.ReportBucket = strings.TrimSpace(os.Getenv("REPORT_BUCKET"))
	cfg.ReportPublicURL = strings.TrimSpace(os.Getenv("REPORT_PUBLIC_URL"))
	if cfg.ReportPublicURL == "" && cfg.AWSEndpointS3 != "" && cfg.ReportBucket != "" {
		cfg.ReportPublicURL = urlutil.BuildAbsolute(cfg.AWSEndpointS3, cfg.ReportBucket)
	}

	cfg.ResendAPIKey = strings.TrimSpace(os.Getenv("RESEND_API_KEY"))
	cfg.NotifyFrom = getEnvOrDefault("NOTIFY_FROM", defaultNotifyFrom)
	cfg.NotifyTo = splitList(os.Getenv("NOTIFY_TO"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. Services that are not skipped by a flag need
// their settings.
func (c *Config) Validate() error {
	errs := append([]string(nil), c.parseErrs...)

	if !c.Fixture {
		if c.BaseURL == "" {
			errs = append(errs, "LABTESTS_BASE_URL is required (set env var or use --fixture)")
		} else if !urlutil.IsHTTPURL(c.BaseURL) {
			errs = append(errs, "LABTESTS_BASE_URL must be an absolute http(s) URL")
		}
	}
	if c.CatalogURL != "" && !urlutil.IsHTTPURL(c.CatalogURL) {
		errs = append(errs, "LABTESTS_CATALOG_URL must be an absolute http(s) URL")
	}
	if !strings.HasPrefix(c.ListingPath, "/") {
		errs = append(errs, "LABTESTS_LISTING_PATH must start with /")
	}
	if c.SessionCookie != "" && !strings.Contains(c.SessionCookie, "=") {
		errs = append(errs, "LABTESTS_SESSION_COOKIE must look like name=value")
	}
	if c.ExpectedItems < 0 {
		errs = append(errs, "LABTESTS_EXPECTED_ITEMS must not be negative")
	}
	if c.Timeout <= 0 {
		errs = append(errs, "LABTESTS_TIMEOUT must be positive")
	}
	if c.FetchRPS <= 0 {
		errs = append(errs, "LABTESTS_FETCH_RPS must be positive")
	}

	if !c.NoReport {
		if c.ReportBucket == "" {
			errs = append(errs, "REPORT_BUCKET is required (set env var or use --no-report)")
		}
		if c.AWSEndpointS3 != "" && !urlutil.IsHTTPURL(c.AWSEndpointS3) {
			errs = append(errs, "AWS_ENDPOINT_URL_S3 must be an absolute http(s) URL")
		}
	}

	if !c.NoEmail {
		if c.ResendAPIKey == "" {
			errs = append(errs, "RESEND_API_KEY is required (set env var or use --no-email)")
		}
		if len(c.NotifyTo) == 0 {
			errs = append(errs, "NOTIFY_TO is required (set env var or use --no-email)")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ListingURL is the absolute listing URL for base.
func (c *Config) ListingURL(base string) string {
	return urlutil.BuildAbsolute(base, c.ListingPath)
}

// CatalogEndpoint is the catalog API URL, derived from base unless overridden.
func (c *Config) CatalogEndpoint(base string) string {
	if c.CatalogURL != "" {
		return c.CatalogURL
	}
	return urlutil.BuildAbsolute(base, catalog.DefaultPath)
}

// PrintStartupSummary prints a human-readable summary to stderr. Secrets are not printed.
func (c *Config) PrintStartupSummary() {
	c.WriteSummary(os.Stderr)
}

// WriteSummary writes the startup summary to w.
func (c *Config) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "labcheck starting...")
	if c.Fixture {
		fmt.Fprintln(w, "  Target:  Fixture storefront (--fixture)")
	} else {
		fmt.Fprintf(w, "  Target:  %s%s\n", c.BaseURL, c.ListingPath)
	}
	if c.CatalogURL != "" {
		fmt.Fprintf(w, "  Catalog: %s\n", c.CatalogURL)
	}
	auth := "none"
	switch {
	case c.AuthToken != "" && c.SessionCookie != "":
		auth = "bearer token + session cookie"
	case c.AuthToken != "":
		auth = "bearer token"
	case c.SessionCookie != "":
		auth = "session cookie"
	}
	fmt.Fprintf(w, "  Auth:    %s\n", auth)
	fmt.Fprintf(w, "  Browser: headless=%t timeout=%s\n", c.Headless, c.Timeout)
	if c.NoReport {
		fmt.Fprintln(w, "  Report:  Local only (--no-report)")
	} else {
		fmt.Fprintf(w, "  Report:  s3://%s\n", c.ReportBucket)
	}
	if c.NoEmail {
		fmt.Fprintln(w, "  Email:   Mock (--no-email)")
	} else {
		fmt.Fprintf(w, "  Email:   Resend (from: %s, to: %s)\n", c.NotifyFrom, strings.Join(c.NotifyTo, ", "))
	}
	fmt.Fprintln(w, "")
}

// MustLoadConfig loads configuration and panics if it is invalid.
func MustLoadConfig(f Flags) *Config {
	cfg, err := LoadConfig(f)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// The parsers below record a validation error instead of silently falling back
// when a variable is set but malformed.

func (c *Config) intOrDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Sprintf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) floatOrDefault(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Sprintf("%s must be a number, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) boolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Sprintf("%s must be a boolean, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) durationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Sprintf("%s must be a duration like 5s, got %q", key, value))
		return defaultValue
	}
	return parsed
}
