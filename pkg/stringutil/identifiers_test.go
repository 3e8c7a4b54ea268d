package stringutil

import (
	"strings"
	"testing"
)

func TestSanitizeBanNote(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "repeated low-effort posting", "repeated low-effort posting"},
		{"strips emoji and symbols", "spamming 🚫 again!!", "spamming again"},
		{"strips newline", "line one\nline two", "line oneline two"},
		{"truncates to max length", strings.Repeat("a", 150), strings.Repeat("a", 100)},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeBanNote(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeBanNote(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			if len(got) > MaxBanNoteLength {
				t.Errorf("SanitizeBanNote(%q) exceeded max length: %d", tt.input, len(got))
			}
		})
	}
}

func TestSanitizeModLogReason(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "rule 3 violation, off-topic/spam", "rule 3 violation, off-topic/spam"},
		{"collapses newlines to space", "rule 3\nviolation", "rule 3 violation"},
		{"collapses repeated whitespace", "rule 3    violation", "rule 3 violation"},
		{"strips disallowed symbols", "rule 3 violation!! @mod", "rule 3 violation mod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeModLogReason(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeModLogReason(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeModLogReasonTruncates(t *testing.T) {
	long := strings.Repeat("a ", 200)
	got := SanitizeModLogReason(long)
	if len(got) > MaxModLogReasonLength {
		t.Errorf("SanitizeModLogReason did not truncate: len=%d", len(got))
	}
}
