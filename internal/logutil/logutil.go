// Package logutil formats HTTP traffic and free text for log lines: sensitive
// header and JSON fields are redacted, long values are truncated on rune boundaries.
package logutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

const redacted = "[REDACTED]"

// IsSensitiveLogField reports whether a header or JSON key likely holds a credential.
func IsSensitiveLogField(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.NewReplacer("-", "", "_", "").Replace(normalized)

	if normalized == "authorization" {
		return true
	}
	for _, marker := range []string{"token", "secret", "password", "apikey", "cookie", "session", "auth"} {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// FormatHeadersForLog returns stable, redacted header text for logs.
func FormatHeadersForLog(headers http.Header) string {
	if len(headers) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		value := strings.Join(headers.Values(k), ", ")
		if IsSensitiveLogField(k) {
			value = redacted
		}
		parts = append(parts, fmt.Sprintf("%s=%q", strings.ToLower(k), value))
	}
	return strings.Join(parts, "; ")
}

// RedactBodyForLog redacts sensitive fields from JSON payloads; other bodies are returned as-is.
func RedactBodyForLog(contentType string, body []byte) string {
	text := string(body)
	if !strings.Contains(strings.ToLower(contentType), "json") {
		return text
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return text
	}
	redactValue(payload)
	safeJSON, err := json.Marshal(payload)
	if err != nil {
		return text
	}
	return string(safeJSON)
}

func redactValue(v any) {
	switch typed := v.(type) {
	case map[string]any:
		for k, child := range typed {
			if IsSensitiveLogField(k) {
				typed[k] = redacted
				continue
			}
			redactValue(child)
		}
	case []any:
		for _, child := range typed {
			redactValue(child)
		}
	}
}

// FormatBodyForLog truncates and redacts body text for safe logging.
// Truncation happens before redaction, so a cut JSON body is logged verbatim.
func FormatBodyForLog(contentType string, body []byte, maxBytes int, truncated bool) string {
	if len(body) == 0 {
		return ""
	}
	if maxBytes > 0 && len(body) > maxBytes {
		body = body[:maxBytes]
		truncated = true
	}
	text := RedactBodyForLog(contentType, body)
	if truncated {
		return text + " [truncated]"
	}
	return text
}

// TruncateForLog returns a single-line preview of value cut to at most maxChars runes.
func TruncateForLog(value string, maxChars int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, "\n", "\\n")
	if maxChars <= 0 || utf8.RuneCountInString(normalized) <= maxChars {
		return normalized
	}
	return string([]rune(normalized)[:maxChars]) + "... [truncated]"
}
