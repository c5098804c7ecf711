package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithCorrelation_MergesNonEmptyFields(t *testing.T) {
	ctx := WithRunID(context.Background(), " run-1 ")
	ctx = WithScenario(ctx, "listing")
	ctx = WithCorrelation(ctx, Correlation{RequestID: "req-9"})

	got := CorrelationFromContext(ctx)
	want := Correlation{RunID: "run-1", Scenario: "listing", RequestID: "req-9"}
	if got != want {
		t.Fatalf("correlation = %+v, want %+v", got, want)
	}
	if RunIDFromContext(ctx) != "run-1" {
		t.Fatalf("RunIDFromContext = %q", RunIDFromContext(ctx))
	}
	var none context.Context
	if CorrelationFromContext(none) != (Correlation{}) {
		t.Fatal("nil context should yield empty correlation")
	}
}

func TestFrom_AddsCorrelationAttrs(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	ctx := WithScenario(WithRunID(context.Background(), "run-7"), "details")
	From(ctx).Info("hello", "pkg", "test")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if line["run_id"] != "run-7" || line["scenario"] != "details" || line["msg"] != "hello" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if ts, _ := line["time"].(string); !strings.HasSuffix(ts, "Z") {
		t.Fatalf("time should be UTC: %q", ts)
	}
}

func TestRequestContextMiddleware(t *testing.T) {
	var seen Correlation
	h := RequestContextMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/lab-tests", nil)
	req.Header.Set("X-Run-Id", "run-3")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen.RunID != "run-3" || !strings.HasPrefix(seen.RequestID, "req-") {
		t.Fatalf("correlation = %+v", seen)
	}
	if rec.Header().Get("X-Request-Id") != seen.RequestID {
		t.Fatalf("response request id = %q, want %q", rec.Header().Get("X-Request-Id"), seen.RequestID)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "given")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen.RequestID != "given" {
		t.Fatalf("incoming request id not kept: %q", seen.RequestID)
	}
}

func TestAccessLogMiddleware_RecordsStatusAndBytes(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	h := AccessLogMiddleware("storefront")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("missing"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lab-tests/NOPE", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("access log is not JSON: %v\n%s", err, buf.String())
	}
	if line["msg"] != "http_access" || line["status"] != float64(404) || line["resp_bytes"] != float64(7) {
		t.Fatalf("unexpected access log: %v", line)
	}
	if line["path"] != "/lab-tests/NOPE" || line["pkg"] != "storefront" {
		t.Fatalf("unexpected access log: %v", line)
	}
}
