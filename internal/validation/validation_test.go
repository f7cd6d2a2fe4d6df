package validation

import (
	"os"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMaxMessageLength(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected int
	}{
		{"Default when unset", "", 4000},
		{"Custom value", "2000", 2000},
		{"Invalid value falls back", "abc", 4000},
		{"Zero falls back", "0", 4000},
		{"Negative falls back", "-5", 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue == "" {
				os.Unsetenv("MAX_MESSAGE_LENGTH")
			} else {
				os.Setenv("MAX_MESSAGE_LENGTH", tt.envValue)
			}
			defer os.Unsetenv("MAX_MESSAGE_LENGTH")

			if got := MaxMessageLength(); got != tt.expected {
				t.Errorf("MaxMessageLength() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestValidateGroupName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Valid name", "weekend plans", true},
		{"Empty", "", false},
		{"Whitespace only", "   ", false},
		{"Max length", strings.Repeat("a", 100), true},
		{"Too long", strings.Repeat("a", 101), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateGroupName(tt.input); got != tt.expected {
				t.Errorf("ValidateGroupName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTrimAndLimit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"Trims whitespace", "  hello  ", 100, "hello"},
		{"Limits length", "hello world", 5, "hello"},
		{"No limit when zero", "hello", 0, "hello"},
		{"Empty input", "", 10, ""},
		{"Cap inside a rune backs up", "aaa🙂", 5, "aaa"},
		{"Cap on a rune boundary keeps it", "aaa🙂", 7, "aaa🙂"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndLimit(tt.input, tt.max); got != tt.expected {
				t.Errorf("TrimAndLimit(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
			}
		})
	}
}

func TestTrimAndLimitKeepsValidUTF8(t *testing.T) {
	s := strings.Repeat("a", 3999) + "🙂"
	got := TrimAndLimit(s, 4000)
	if !utf8.ValidString(got) {
		t.Fatalf("TrimAndLimit() produced invalid UTF-8: %q", got[len(got)-4:])
	}
	if want := strings.Repeat("a", 3999); got != want {
		t.Errorf("TrimAndLimit() len = %d, want %d", len(got), len(want))
	}
}

func TestKindAllowed(t *testing.T) {
	tests := []struct {
		kind     string
		expected bool
	}{
		{"", true},
		{"text", true},
		{"image", true},
		{"video", true},
		{"audio", true},
		{"document", true},
		{"post", true},
		{"location", true},
		{"gif", false},
		{"TEXT", false},
	}

	for _, tt := range tests {
		t.Run("kind_"+tt.kind, func(t *testing.T) {
			if got := KindAllowed(tt.kind); got != tt.expected {
				t.Errorf("KindAllowed(%q) = %v, want %v", tt.kind, got, tt.expected)
			}
		})
	}
}
