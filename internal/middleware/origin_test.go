package middleware

import "testing"

func TestOriginAllowedMatching(t *testing.T) {
	allowed := splitCSV("https://app.example.com/, https://*.example.org")

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://app.example.com", true},
		{"https://app.example.com/", true},
		{"https://evil.example.com", false},
		{"https://web.example.org", true},
		{"https://a.b.example.org", true},
		{"https://example.org", false},
		{"http://web.example.org", false},
		{"https://example.net", false},
	}
	for _, tt := range tests {
		if got := originAllowed(tt.origin, allowed); got != tt.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	if got := splitCSV(""); got != nil {
		t.Errorf("splitCSV(\"\") = %v, want nil", got)
	}
	got := splitCSV(" a , ,b/ ")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitCSV() = %v, want [a b]", got)
	}
}
