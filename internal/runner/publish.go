package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kuitang/labtests-e2e/internal/artifacts"
	"github.com/kuitang/labtests-e2e/internal/email"
	"github.com/kuitang/labtests-e2e/internal/obs"
)

// publish stores screenshots and the report, returning where the report can be
// found: a public URL with a Store, a file path otherwise.
func publish(ctx context.Context, deps Deps, report *artifacts.Report, shots map[string][]byte) (string, error) {
	names := make([]string, 0, len(shots))
	for name := range shots {
		names = append(names, name)
	}
	sort.Strings(names)

	if deps.Store == nil {
		return writeLocal(deps.ReportDir, report, names, shots)
	}

	for _, name := range names {
		key, err := deps.Store.PutScreenshot(ctx, report.RunID, name, shots[name])
		if err != nil {
			return "", err
		}
		report.Screenshots = append(report.Screenshots, deps.Store.URL(key))
	}
	key, err := deps.Store.PutReport(ctx, report)
	if err != nil {
		return "", err
	}
	return deps.Store.URL(key), nil
}

// writeLocal mirrors the bucket layout under root.
func writeLocal(root string, report *artifacts.Report, names []string, shots map[string][]byte) (string, error) {
	if root == "" {
		root = DefaultReportDir
	}
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(artifacts.ScreenshotKey(report.RunID, name)))
		if err := writeFile(path, shots[name]); err != nil {
			return "", err
		}
		report.Screenshots = append(report.Screenshots, path)
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("runner: encode report: %w", err)
	}
	path := filepath.Join(root, filepath.FromSlash(artifacts.ReportKey(report.RunID)))
	if err := writeFile(path, body); err != nil {
		return "", err
	}
	obs.Pkg("runner").Info("report_written", "path", path)
	return path, nil
}

func writeFile(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("runner: create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("runner: write %s: %w", path, err)
	}
	return nil
}

// notify sends the pass or fail summary to recipients.
func notify(ctx context.Context, recipients []string, n email.Notifier, report *artifacts.Report, reportURL string) error {
	if n == nil || len(recipients) == 0 {
		return nil
	}
	return email.NotifyRun(ctx, n, recipients, report.Passed, RunData(report, reportURL))
}

// RunData turns a report into the notification payload.
func RunData(report *artifacts.Report, reportURL string) email.RunData {
	var summary string
	var faults []string
	if res := report.Result; res != nil {
		summary = res.Summary()
		for _, f := range res.Faults {
			faults = append(faults, f.String())
		}
		for _, code := range res.MissingBackendItems {
			faults = append(faults, "backend item "+code+" is not rendered")
		}
	}
	if report.Error != "" && len(faults) == 0 {
		faults = append(faults, report.Error)
	}
	return email.NewRunData(report.RunID, report.BaseURL, summary, reportURL, faults, report.Screenshots)
}
