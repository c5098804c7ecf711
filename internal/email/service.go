// Package email sends run notifications. ResendNotifier delivers through the
// Resend API; MockNotifier captures messages for tests and local runs.
package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kuitang/labtests-e2e/internal/obs"
)

// Notifier sends a templated message to one recipient.
type Notifier interface {
	Send(to, templateName string, data any) error
}

// NotifyRun sends the pass or fail template to every recipient and joins the errors.
func NotifyRun(ctx context.Context, n Notifier, recipients []string, passed bool, data RunData) error {
	tmpl := TemplateRunFailed
	if passed {
		tmpl = TemplateRunPassed
	}
	log := obs.From(ctx).With("pkg", "email")
	var errs []error
	for _, to := range recipients {
		to = strings.TrimSpace(to)
		if to == "" {
			continue
		}
		if err := n.Send(to, tmpl, data); err != nil {
			log.Error("notify_failed", "to", to, "template", tmpl, "error", err)
			errs = append(errs, fmt.Errorf("notify %s: %w", to, err))
			continue
		}
		log.Info("notify_sent", "to", to, "template", tmpl)
	}
	return errors.Join(errs...)
}

// SentEmail is a message captured by MockNotifier.
type SentEmail struct {
	To       string
	Template string
	Data     any
}

// MockNotifier records messages instead of sending them. When OutboxDir is set,
// every message is also written there as one JSON file.
type MockNotifier struct {
	mu        sync.Mutex
	Emails    []SentEmail
	outboxDir string
	seq       uint64
}

// NewMockNotifier creates a mock. An empty outboxDir disables the file outbox.
func NewMockNotifier(outboxDir string) *MockNotifier {
	if outboxDir != "" {
		if err := os.MkdirAll(outboxDir, 0o755); err != nil {
			obs.Pkg("email").Warn("outbox_dir_unavailable", "dir", outboxDir, "error", err)
			outboxDir = ""
		}
	}
	return &MockNotifier{outboxDir: outboxDir}
}

// Send captures the message.
func (m *MockNotifier) Send(to, templateName string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emails = append(m.Emails, SentEmail{To: to, Template: templateName, Data: data})

	event := outboxEvent{To: to, Template: templateName, SentAtUnixNano: time.Now().UnixNano()}
	if d, ok := data.(RunData); ok {
		event.RunID = d.RunID
		event.Summary = d.Summary
		event.ReportURL = d.ReportURL
	} else {
		event.RawData = fmt.Sprintf("%+v", data)
	}
	obs.Pkg("email").Info("mock_email", "to", to, "template", templateName, "run_id", event.RunID)
	return m.writeOutboxEvent(event)
}

// LastEmail returns the most recent message, or the zero value.
func (m *MockNotifier) LastEmail() SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Emails) == 0 {
		return SentEmail{}
	}
	return m.Emails[len(m.Emails)-1]
}

// Count returns the number of captured messages.
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Emails)
}

// Clear drops every captured message.
func (m *MockNotifier) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emails = nil
}

type outboxEvent struct {
	Sequence       uint64 `json:"sequence"`
	To             string `json:"to"`
	Template       string `json:"template"`
	RunID          string `json:"run_id,omitempty"`
	Summary        string `json:"summary,omitempty"`
	ReportURL      string `json:"report_url,omitempty"`
	RawData        string `json:"raw_data,omitempty"`
	SentAtUnixNano int64  `json:"sent_at_unix_nano"`
}

var outboxSanitizePattern = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (m *MockNotifier) writeOutboxEvent(event outboxEvent) error {
	if m.outboxDir == "" {
		return nil
	}
	m.seq++
	event.Sequence = m.seq

	name := fmt.Sprintf("%020d-%s-%s.json", event.Sequence,
		outboxSanitizePattern.ReplaceAllString(event.Template, "_"),
		outboxSanitizePattern.ReplaceAllString(event.To, "_"))
	final := filepath.Join(m.outboxDir, name)
	tmp := final + ".tmp"

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("email: marshal outbox event: %w", err)
	}
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("email: write outbox file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("email: commit outbox file: %w", err)
	}
	return nil
}
