package validation

import (
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

func MaxGroupNameLength() int {
	return 100
}

func ValidateGroupName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && len(name) <= MaxGroupNameLength()
}

// TrimAndLimit trims surrounding whitespace and caps the result at max
// bytes, never splitting a multi-byte rune at the cap.
func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// KindAllowed reports whether a client-supplied message kind is one we
// store. Empty means "default to text".
func KindAllowed(kind string) bool {
	switch kind {
	case "", "text", "image", "video", "audio", "document", "post", "location":
		return true
	default:
		return false
	}
}
