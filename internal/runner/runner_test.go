package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/labtests-e2e/internal/artifacts"
	"github.com/kuitang/labtests-e2e/internal/catalog"
	"github.com/kuitang/labtests-e2e/internal/config"
	"github.com/kuitang/labtests-e2e/internal/email"
	"github.com/kuitang/labtests-e2e/internal/errs"
	"github.com/kuitang/labtests-e2e/internal/reconcile"
	"github.com/kuitang/labtests-e2e/internal/storefront"
)

func startFixture(t *testing.T, opts storefront.Options) *Fixture {
	t.Helper()
	fx, err := StartFixture(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fx.Close() })
	return fx
}

func testConfig() *config.Config {
	return &config.Config{
		ListingPath: storefront.ListingPath,
		Timeout:     5 * time.Second,
		FetchRPS:    50,
		NoReport:    true,
		NoEmail:     true,
	}
}

func TestStartFixture_ServesCatalog(t *testing.T) {
	fx := startFixture(t, storefront.Options{})

	resp, err := http.Get(fx.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cat, err := fetchCatalog(context.Background(), testConfig(), fx.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, fx.Storefront.Catalog().Codes(), cat.Codes())
}

func TestFetchCatalog_BearerToken(t *testing.T) {
	fx := startFixture(t, storefront.Options{AuthToken: "secret-1"})
	cfg := testConfig()

	_, err := fetchCatalog(context.Background(), cfg, fx.URL, nil)
	require.Error(t, err)
	var statusErr *catalog.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, errs.Unavailable, errs.CodeOf(catalogErr(err)))

	cfg.AuthToken = "secret-1"
	cat, err := fetchCatalog(context.Background(), cfg, fx.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, 14, cat.Len())
}

func TestFetchCatalog_CatalogURLOverride(t *testing.T) {
	fx := startFixture(t, storefront.Options{})
	cfg := testConfig()
	cfg.CatalogURL = fx.URL + catalog.DefaultPath

	cat, err := fetchCatalog(context.Background(), cfg, "http://127.0.0.1:1", nil)
	require.NoError(t, err)
	assert.Equal(t, 14, cat.Len())
}

func TestCatalogErr_MissingListIsDataFault(t *testing.T) {
	err := catalogErr(&catalog.MissingCatalogError{Reason: "null"})
	assert.Equal(t, errs.DataFault, errs.CodeOf(err))
	assert.Equal(t, 1, errs.ExitCode(err))
}

func TestSessionCookie(t *testing.T) {
	c := sessionCookie(" session_id = abc=def ")
	require.NotNil(t, c)
	assert.Equal(t, "session_id", c.Name)
	assert.Equal(t, "abc=def", c.Value)

	assert.Nil(t, sessionCookie(""))
	assert.Nil(t, sessionCookie("novalue"))
	assert.Nil(t, sessionCookie("=orphan"))
}

func TestContextOptions(t *testing.T) {
	assert.Nil(t, ContextOptions("  ").ExtraHttpHeaders)
	assert.Equal(t, "Bearer tok", ContextOptions("tok").ExtraHttpHeaders["Authorization"])
}

func card(i int, name string, ok bool) reconcile.CardSnapshot {
	return reconcile.CardSnapshot{
		Index:       i,
		Name:        name,
		ViewDetails: reconcile.ViewDetailsState{Present: true, Visible: true, Enabled: ok},
	}
}

func TestDetailTargets_BackendOrderAndUsableControlsOnly(t *testing.T) {
	cat := catalog.New([]catalog.Item{
		{Code: "A", Name: "Alpha Panel"},
		{Code: "B", Name: "Beta Panel"},
		{Code: "C", Name: "Gamma Panel"},
		{Code: "D", Name: "Delta Panel"},
	})
	cards := []reconcile.CardSnapshot{
		card(0, "Delta Panel", true),
		card(1, "Gamma Panel", false),
		card(2, "Alpha Panel", true),
		card(3, "Unknown Thing", true),
		card(4, "Alpha Panel", true),
	}

	targets := DetailTargets(cat, cards, nil)
	require.Len(t, targets, 2)
	assert.Equal(t, "A", targets[0].Item.Code)
	assert.Equal(t, 2, targets[0].Card.Index)
	assert.Equal(t, "D", targets[1].Item.Code)
	assert.Equal(t, 0, targets[1].Card.Index)
}

func TestCheckCardCount(t *testing.T) {
	res := &reconcile.Result{}
	checkCardCount(context.Background(), res, 14, 14)
	checkCardCount(context.Background(), res, 14, 0)
	assert.Empty(t, res.Faults)

	checkCardCount(context.Background(), res, 13, 14)
	require.Len(t, res.Faults, 1)
	assert.Equal(t, "card_count", res.Faults[0].Field)
	assert.Equal(t, "14", res.Faults[0].Expected)
	assert.Equal(t, 1, res.MismatchCount)
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, resultErr(&reconcile.Result{}))

	err := resultErr(&reconcile.Result{ViewDetailsIssueCount: 1})
	require.Error(t, err)
	assert.Equal(t, errs.Mismatch, errs.CodeOf(err))
}

func failedReport() *artifacts.Report {
	return &artifacts.Report{
		RunID:     "run-42",
		StartedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		BaseURL:   "http://127.0.0.1:8080",
		Error:     "runner: reconciliation failed",
		Result: &reconcile.Result{
			Total:               2,
			MismatchCount:       1,
			MissingBackendItems: []string{"IRON"},
			Faults: []reconcile.Fault{
				{Kind: reconcile.FieldMismatch, Card: "Vitamin B12", Code: "VIT_B12", Field: "price", Detail: "price differs"},
			},
		},
	}
}

func TestPublish_Local(t *testing.T) {
	dir := t.TempDir()
	report := failedReport()

	path, err := publish(context.Background(), Deps{ReportDir: dir}, report, map[string][]byte{"listing": []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "runs", "run-42", "report.json"), path)

	require.Len(t, report.Screenshots, 1)
	shot, err := os.ReadFile(report.Screenshots[0])
	require.NoError(t, err)
	assert.Equal(t, "png", string(shot))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got artifacts.Report
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "run-42", got.RunID)
	assert.Equal(t, 1, got.Result.MismatchCount)
}

func TestPublish_Store(t *testing.T) {
	store := artifacts.TestStore(t, "labcheck-reports")
	report := failedReport()

	url, err := publish(context.Background(), Deps{Store: store}, report, map[string][]byte{
		"listing": []byte("png-1"),
		"details": []byte("png-2"),
	})
	require.NoError(t, err)
	assert.Equal(t, store.URL(artifacts.ReportKey("run-42")), url)
	assert.Equal(t, []string{
		store.URL(artifacts.ScreenshotKey("run-42", "details")),
		store.URL(artifacts.ScreenshotKey("run-42", "listing")),
	}, report.Screenshots)

	got, err := store.GetReport(context.Background(), "run-42")
	require.NoError(t, err)
	assert.Equal(t, report.Screenshots, got.Screenshots)
	assert.Equal(t, "IRON", got.Result.MissingBackendItems[0])
}

func TestNotify_SendsFailureSummary(t *testing.T) {
	mock := email.NewMockNotifier("")
	report := failedReport()

	err := notify(context.Background(), []string{"qa@example.com"}, mock, report, "https://reports/run-42")
	require.NoError(t, err)
	require.Equal(t, 1, mock.Count())

	sent := mock.LastEmail()
	assert.Equal(t, email.TemplateRunFailed, sent.Template)
	data, ok := sent.Data.(email.RunData)
	require.True(t, ok)
	assert.Equal(t, "https://reports/run-42", data.ReportURL)
	assert.Len(t, data.Faults, 2)
	assert.Contains(t, data.Faults[1], "IRON")
}

func TestNotify_NoRecipientsOrNotifier(t *testing.T) {
	mock := email.NewMockNotifier("")
	require.NoError(t, notify(context.Background(), nil, mock, failedReport(), ""))
	require.NoError(t, notify(context.Background(), []string{"qa@example.com"}, nil, failedReport(), ""))
	assert.Equal(t, 0, mock.Count())
}

func TestRunData_ErrorWithoutResult(t *testing.T) {
	report := &artifacts.Report{RunID: "r", Error: "runner: start browser: no chromium"}
	data := RunData(report, "")
	assert.Equal(t, []string{"runner: start browser: no chromium"}, data.Faults)
}

func TestNewDeps_LocalOnly(t *testing.T) {
	dir := t.TempDir()
	deps, err := NewDeps(context.Background(), testConfig(), dir)
	require.NoError(t, err)
	assert.Nil(t, deps.Store)
	_, isMock := deps.Notifier.(*email.MockNotifier)
	assert.True(t, isMock)
	assert.DirExists(t, filepath.Join(dir, "outbox"))
}

func TestNewDeps_RemoteServices(t *testing.T) {
	cfg := testConfig()
	cfg.NoReport = false
	cfg.NoEmail = false
	cfg.ReportBucket = "reports"
	cfg.AWSRegion = "auto"
	cfg.AWSEndpointS3 = "http://127.0.0.1:9000"
	cfg.AWSAccessKeyID = "k"
	cfg.AWSSecretAccessKey = "s"
	cfg.ResendAPIKey = "re_test"

	deps, err := NewDeps(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, deps.Store)
	assert.Equal(t, "reports", deps.Store.Bucket())
	_, isResend := deps.Notifier.(*email.ResendNotifier)
	assert.True(t, isResend)
}

func TestRun_FixtureFailureStillProducesReport(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a browser")
	}
	cfg := testConfig()
	cfg.Fixture = true
	cfg.Headless = true
	cfg.CheckDetails = true
	dir := t.TempDir()

	report, err := Run(context.Background(), cfg, Deps{ReportDir: dir, Notifier: email.NewMockNotifier("")})
	require.NotNil(t, report)
	assert.NotEmpty(t, report.RunID)
	assert.FileExists(t, filepath.Join(dir, "runs", report.RunID, "report.json"))
	if err != nil {
		// Without a Playwright install the browser stage fails as unavailable.
		if errs.CodeOf(err) == errs.Unavailable {
			t.Skip("Playwright not available:", err)
		}
		t.Fatalf("fixture run failed: %v", err)
	}
	assert.True(t, report.Passed)
	assert.Equal(t, 14, report.Result.MatchedCount)
}
