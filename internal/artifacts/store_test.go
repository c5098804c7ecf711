package artifacts

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/kuitang/labtests-e2e/internal/reconcile"
)

func TestStore_ReportRoundTrip(t *testing.T) {
	store := TestStore(t, "labcheck-reports")
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	in := &Report{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		BaseURL:    "https://shop.example.test",
		Result: &reconcile.Result{
			Total:               14,
			BackendTotal:        14,
			MatchedCount:        13,
			MismatchCount:       1,
			MissingBackendItems: []string{"IRON"},
			Faults: []reconcile.Fault{{
				Kind: reconcile.FieldMismatch, Card: "Vitamin D (25-OH)", Code: "VIT_D",
				Field: "price", Expected: "1299.00", Actual: "₹1,199", Detail: "price differs",
			}},
		},
	}

	key, err := store.PutReport(ctx, in)
	if err != nil {
		t.Fatalf("PutReport: %v", err)
	}
	if key != "runs/run-1/report.json" {
		t.Fatalf("key = %q", key)
	}

	got, err := store.GetReport(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.RunID != in.RunID || !got.StartedAt.Equal(in.StartedAt) || got.BaseURL != in.BaseURL {
		t.Fatalf("report header mismatch: %+v", got)
	}
	if got.Result == nil || got.Result.MismatchCount != 1 || len(got.Result.Faults) != 1 {
		t.Fatalf("result mismatch: %+v", got.Result)
	}
	if got.Result.Faults[0].Actual != "₹1,199" {
		t.Fatalf("fault actual = %q", got.Result.Faults[0].Actual)
	}
}

func TestStore_GetReportMissing(t *testing.T) {
	store := TestStore(t, "labcheck-reports")
	_, err := store.GetReport(context.Background(), "never-ran")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PutReportNeedsRunID(t *testing.T) {
	store := TestStore(t, "labcheck-reports")
	if _, err := store.PutReport(context.Background(), &Report{}); err == nil {
		t.Fatal("expected error for report without run id")
	}
	if _, err := store.PutScreenshot(context.Background(), "", "x", []byte{1}); err == nil {
		t.Fatal("expected error for screenshot without run id")
	}
}

func TestStore_ScreenshotsListAndDelete(t *testing.T) {
	store := TestStore(t, "labcheck-reports")
	ctx := context.Background()

	png := []byte("\x89PNG\r\n\x1a\nfake")
	k1, err := store.PutScreenshot(ctx, "run-2", "listing", png)
	if err != nil {
		t.Fatalf("PutScreenshot: %v", err)
	}
	k2, err := store.PutScreenshot(ctx, "run-2", "Detail: Vitamin D (25-OH).png", png)
	if err != nil {
		t.Fatalf("PutScreenshot: %v", err)
	}
	if k2 != "runs/run-2/screenshots/detail-vitamin-d-25-oh.png" {
		t.Fatalf("unexpected sanitized key %q", k2)
	}
	if _, err := store.PutReport(ctx, &Report{RunID: "run-2"}); err != nil {
		t.Fatalf("PutReport: %v", err)
	}
	if _, err := store.PutReport(ctx, &Report{RunID: "run-3"}); err != nil {
		t.Fatalf("PutReport: %v", err)
	}

	got, err := store.GetObject(ctx, k1)
	if err != nil || string(got) != string(png) {
		t.Fatalf("GetObject = %q, %v", got, err)
	}

	keys, err := store.RunObjects(ctx, "run-2")
	if err != nil {
		t.Fatalf("RunObjects: %v", err)
	}
	sort.Strings(keys)
	want := []string{"runs/run-2/report.json", k2, k1}
	sort.Strings(want)
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("RunObjects = %v, want %v", keys, want)
	}

	if err := store.DeleteRun(ctx, "run-2"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	keys, err = store.RunObjects(ctx, "run-2")
	if err != nil || len(keys) != 0 {
		t.Fatalf("after delete: %v, %v", keys, err)
	}
	if _, err := store.GetReport(ctx, "run-3"); err != nil {
		t.Fatalf("other run was touched: %v", err)
	}
}

func TestStore_URL(t *testing.T) {
	s := NewFromS3Client(nil, "b", "https://cdn.example.test/")
	if got := s.URL("/runs/x/report.json"); got != "https://cdn.example.test/runs/x/report.json" {
		t.Fatalf("URL = %q", got)
	}
	bare := NewFromS3Client(nil, "b", "")
	if got := bare.URL("runs/x/report.json"); got != "runs/x/report.json" {
		t.Fatalf("URL without public base = %q", got)
	}
}

func testSanitizeName_SafeKeySegment(t *rapid.T) {
	name := rapid.String().Draw(t, "name")
	got := sanitizeName(name)
	if got == "" {
		t.Fatal("empty segment")
	}
	for _, r := range got {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			t.Fatalf("sanitizeName(%q) = %q contains %q", name, got, r)
		}
	}
	if strings.HasPrefix(got, "-") || strings.HasSuffix(got, "-") || strings.Contains(got, "--") {
		t.Fatalf("sanitizeName(%q) = %q has stray dashes", name, got)
	}
}

func TestSanitizeName_SafeKeySegment(t *testing.T) {
	rapid.Check(t, testSanitizeName_SafeKeySegment)
}
