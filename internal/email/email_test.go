package email

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestRender_RunTemplates(t *testing.T) {
	t.Parallel()
	data := NewRunData("run-7", "https://shop.example.test", "cards=14 mismatched=1",
		"https://cdn.example.test/runs/run-7/report.json",
		[]string{`field card="Vitamin D" code=VIT_D field=price: price differs`}, nil)

	subject, html, err := Render(TemplateRunFailed, data)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(subject, "FAILED") || !strings.Contains(subject, "run-7") {
		t.Fatalf("unexpected failed subject: %q", subject)
	}
	if !strings.Contains(html, "https://cdn.example.test/runs/run-7/report.json") {
		t.Fatalf("failed html missing report link")
	}
	if !strings.Contains(html, "code=VIT_D") {
		t.Fatalf("failed html missing fault line")
	}
	if strings.Contains(html, `card="Vitamin D"`) {
		t.Fatalf("fault text was not escaped")
	}

	subject, _, err = Render(TemplateRunPassed, data)
	if err != nil {
		t.Fatalf("Render passed: %v", err)
	}
	if !strings.Contains(subject, "passed") {
		t.Fatalf("unexpected passed subject: %q", subject)
	}
}

func TestRender_WrongDataType(t *testing.T) {
	t.Parallel()
	if _, _, err := Render(TemplateRunFailed, "not run data"); err == nil {
		t.Fatal("expected error for wrong data type")
	}
}

func testRender_UnknownTemplateFallsBack(t *rapid.T) {
	name := rapid.StringMatching(`[a-z0-9._-]{1,32}`).Draw(t, "template")
	if name == TemplateRunFailed || name == TemplateRunPassed {
		t.Skip("known template")
	}
	data := rapid.StringMatching(`[A-Za-z0-9 _:/.-]{1,64}`).Draw(t, "data")

	subject, html, err := Render(name, data)
	if err != nil {
		t.Fatalf("fallback render failed: %v", err)
	}
	if subject == "" || !strings.Contains(html, data) {
		t.Fatalf("fallback should carry the data: subject=%q html=%q", subject, html)
	}
}

func TestRender_UnknownTemplateFallsBack(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRender_UnknownTemplateFallsBack)
}

func testNewRunData_CapsFaults(t *rapid.T) {
	n := rapid.IntRange(0, 3*MaxListedFaults).Draw(t, "n")
	faults := make([]string, n)
	for i := range faults {
		faults[i] = "fault"
	}
	d := NewRunData("r", "", "", "", faults, nil)
	if len(d.Faults) > MaxListedFaults {
		t.Fatalf("listed %d faults", len(d.Faults))
	}
	if len(d.Faults)+d.MoreFaults != n {
		t.Fatalf("listed %d + more %d != %d", len(d.Faults), d.MoreFaults, n)
	}
}

func TestNewRunData_CapsFaults(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testNewRunData_CapsFaults)
}

func TestNotifyRun_SendsToEveryRecipient(t *testing.T) {
	t.Parallel()
	mock := NewMockNotifier("")
	data := NewRunData("run-9", "", "ok", "", nil, nil)

	if err := NotifyRun(context.Background(), mock, []string{"a@example.test", " ", "b@example.test"}, true, data); err != nil {
		t.Fatalf("NotifyRun: %v", err)
	}
	if mock.Count() != 2 {
		t.Fatalf("sent %d emails, want 2", mock.Count())
	}
	last := mock.LastEmail()
	if last.To != "b@example.test" || last.Template != TemplateRunPassed {
		t.Fatalf("unexpected last email: %+v", last)
	}
	mock.Clear()
	if mock.Count() != 0 {
		t.Fatal("Clear kept emails")
	}
}

type failingNotifier struct{}

func (failingNotifier) Send(string, string, any) error { return errors.New("boom") }

func TestNotifyRun_JoinsErrors(t *testing.T) {
	t.Parallel()
	err := NotifyRun(context.Background(), failingNotifier{}, []string{"a@x.test", "b@x.test"}, false, RunData{})
	if err == nil || strings.Count(err.Error(), "boom") != 2 {
		t.Fatalf("expected both failures joined, got %v", err)
	}
}

func TestMockNotifier_WritesOutbox(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mock := NewMockNotifier(dir)
	if err := mock.Send("ops@example.test", TemplateRunFailed, NewRunData("run-3", "", "bad", "", nil, nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("outbox files = %v, %v", files, err)
	}
	raw, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read outbox: %v", err)
	}
	var ev outboxEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("decode outbox: %v", err)
	}
	if ev.RunID != "run-3" || ev.Template != TemplateRunFailed || ev.Sequence != 1 {
		t.Fatalf("unexpected outbox event: %+v", ev)
	}
}
