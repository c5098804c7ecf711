// Package runner drives one reconciliation pass end to end: it opens the storefront
// in a browser, snapshots the listing, fetches the backend catalog, reconciles the
// two, walks every detail page, then publishes the report and notifies.
package runner

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/labtests-e2e/internal/artifacts"
	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/config"
	"github.com/kuitang/labtests-e2e/internal/email"
	"github.com/kuitang/labtests-e2e/internal/errs"
	"github.com/kuitang/labtests-e2e/internal/obs"
	"github.com/kuitang/labtests-e2e/internal/pages"
	"github.com/kuitang/labtests-e2e/internal/reconcile"
	"github.com/kuitang/labtests-e2e/internal/storefront"
)

// DefaultReportDir is where reports land when S3 upload is disabled.
const DefaultReportDir = "labcheck-reports"

// Deps are the outer services a run publishes to. A nil Store keeps the report on
// disk under ReportDir; a nil Notifier skips notifications.
type Deps struct {
	Store     *artifacts.Store
	Notifier  email.Notifier
	ReportDir string
}

// NewDeps builds the services cfg asks for: S3 and Resend unless --no-report or
// --no-email turned them off, in which case the report stays under reportDir and
// mail is captured in reportDir/outbox.
func NewDeps(ctx context.Context, cfg *config.Config, reportDir string) (Deps, error) {
	if reportDir == "" {
		reportDir = DefaultReportDir
	}
	deps := Deps{ReportDir: reportDir}
	if !cfg.NoReport {
		store, err := artifacts.New(ctx, artifacts.Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.ReportBucket,
			PublicURL:       cfg.ReportPublicURL,
			UsePathStyle:    cfg.AWSEndpointS3 != "",
		})
		if err != nil {
			return Deps{}, errs.Wrap(errs.InvalidConfig, "runner: report store", err)
		}
		deps.Store = store
	}
	if cfg.NoEmail {
		deps.Notifier = email.NewMockNotifier(filepath.Join(reportDir, "outbox"))
	} else {
		deps.Notifier = email.NewResendNotifier(cfg.ResendAPIKey, cfg.NotifyFrom)
	}
	return deps, nil
}

// Run executes one pass. The returned report is never nil; the error carries an
// errs code for the process exit status.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*artifacts.Report, error) {
	runID := uuid.NewString()
	ctx = obs.WithRunID(ctx, runID)
	log := obs.From(ctx).With("pkg", "runner")

	report := &artifacts.Report{RunID: runID, StartedAt: time.Now().UTC(), BaseURL: cfg.BaseURL}
	log.Info("run_started", "base_url", cfg.BaseURL, "fixture", cfg.Fixture)

	var runErr error
	var shots map[string][]byte
	if cfg.Fixture {
		fx, err := StartFixture(storefront.Options{AuthToken: cfg.AuthToken})
		if err != nil {
			runErr = errs.Wrap(errs.Internal, "runner: start fixture storefront", err)
		} else {
			defer fx.Close()
			report.BaseURL = fx.URL
		}
	}
	if runErr == nil {
		report.Result, shots, runErr = check(ctx, cfg, report.BaseURL)
	}

	report.FinishedAt = time.Now().UTC()
	report.Passed = runErr == nil
	if runErr != nil {
		report.Error = runErr.Error()
	}

	reportURL, pubErr := publish(ctx, deps, report, shots)
	if pubErr != nil {
		log.Error("report_publish_failed", "error", pubErr)
	}
	if err := notify(ctx, cfg.NotifyTo, deps.Notifier, report, reportURL); err != nil {
		log.Error("notify_failed", "error", err)
	}

	log.Info("run_finished",
		"passed", report.Passed,
		"report", reportURL,
		"dur_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)
	if runErr == nil && pubErr != nil {
		return report, errs.Wrap(errs.Unavailable, "runner: publish report", pubErr)
	}
	return report, runErr
}

// check runs the browser stages and returns the aggregated result with any
// screenshots taken on failure.
func check(ctx context.Context, cfg *config.Config, base string) (*reconcile.Result, map[string][]byte, error) {
	log := obs.From(ctx).With("pkg", "runner")
	shots := map[string][]byte{}

	sess, err := openSession(cfg, base)
	if err != nil {
		return nil, shots, errs.Wrap(errs.Unavailable, "runner: start browser", err)
	}
	defer sess.Close()

	capture := func(name string) {
		png, err := pages.Screenshot(sess.page)
		if err != nil {
			log.Warn("screenshot_failed", "name", name, "error", err)
			return
		}
		shots[name] = png
	}

	listing := pages.NewListingPage(sess.page, base, pages.ListingOptions{
		Path:      cfg.ListingPath,
		TimeoutMS: float64(cfg.Timeout.Milliseconds()),
	})
	if err := listing.Open(); err != nil {
		capture("listing")
		return nil, shots, errs.Wrap(errs.Unavailable, "runner: open listing", err)
	}
	cards, err := listing.Snapshot()
	if err != nil {
		capture("listing")
		return nil, shots, errs.Wrap(errs.Unavailable, "runner: read listing", err)
	}
	log.Info("listing_snapshot", "cards", len(cards), "url", listing.URL())

	cat, err := fetchCatalog(ctx, cfg, base, sess.context)
	if err != nil {
		res := reconcile.Reconcile(ctx, nil, cards, reconcile.Options{})
		return res, shots, catalogErr(err)
	}

	res := reconcile.Reconcile(ctx, cat, cards, reconcile.Options{RequireImages: cfg.RequireImages})
	checkCardCount(ctx, res, len(cards), cfg.ExpectedItems)

	if cfg.CheckDetails {
		if err := CheckDetails(ctx, listing, cat, cards, nil, res); err != nil {
			capture("details")
			return res, shots, errs.Wrap(errs.Unavailable, "runner: walk detail pages", err)
		}
	}

	if !res.Passed() {
		if err := listing.Open(); err == nil {
			capture("listing")
		}
	}
	return res, shots, resultErr(res)
}

func checkCardCount(ctx context.Context, res *reconcile.Result, got, want int) {
	if want <= 0 || got == want {
		return
	}
	res.Record(ctx, reconcile.Fault{
		Kind:     reconcile.MatchFault,
		Field:    "card_count",
		Expected: strconv.Itoa(want),
		Actual:   strconv.Itoa(got),
		Detail:   "listing shows a different number of cards than expected",
	})
}

// resultErr folds a failed result into one Mismatch error.
func resultErr(res *reconcile.Result) error {
	return errs.Wrap(errs.Mismatch, "runner: reconciliation failed", errors.Join(res.Err(), res.UIErr()))
}

func catalogErr(err error) error {
	var missing *catalog.MissingCatalogError
	if errors.As(err, &missing) {
		return errs.Wrap(errs.DataFault, "runner: backend catalog unusable", err)
	}
	return errs.Wrap(errs.Unavailable, "runner: fetch backend catalog", err)
}
