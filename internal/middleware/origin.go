package middleware

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sethshivam11/social-media-backend/internal/httpx"
)

// OriginAllowed enforces the ALLOWED_ORIGINS list on browser traffic. An
// empty list or a request without an Origin header passes through; the
// websocket upgrade goes through this too, since CORS does not apply there.
func OriginAllowed() fiber.Handler {
	allowedOrigins := splitCSV(strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")))
	return func(c *fiber.Ctx) error {
		origin := strings.TrimSpace(c.Get("Origin"))
		if origin == "" || len(allowedOrigins) == 0 {
			return c.Next()
		}
		if !originAllowed(origin, allowedOrigins) {
			return httpx.Forbidden(c, "forbidden_origin", "Origin not allowed")
		}
		return c.Next()
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimRight(strings.TrimSpace(p), "/")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// originAllowed matches exact entries and "*." wildcard entries
// ("https://*.example.com" admits any subdomain, not the apex).
func originAllowed(origin string, allowed []string) bool {
	origin = strings.TrimRight(origin, "/")
	for _, a := range allowed {
		if a == origin {
			return true
		}
		if scheme, host, ok := strings.Cut(a, "://"); ok && strings.HasPrefix(host, "*.") {
			if oScheme, oHost, ok := strings.Cut(origin, "://"); ok &&
				oScheme == scheme && strings.HasSuffix(oHost, host[1:]) {
				return true
			}
		}
	}
	return false
}
