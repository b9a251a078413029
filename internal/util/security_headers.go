package util

import (
	"net/http"
	"strings"
)

// pagePolicy allows same-origin scripts and forms plus report images from any
// https host. Inline styles are needed by the editor's contenteditable surface.
const pagePolicy = "default-src 'self'; img-src 'self' https: data:; script-src 'self'; " +
	"style-src 'self' 'unsafe-inline'; object-src 'none'; frame-ancestors 'none'; " +
	"base-uri 'self'; form-action 'self'"

// WithSecurityHeaders adds security response headers for server-rendered pages.
// Referrer-Policy stays same-origin: CSRF checks compare the Referer on https.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")
		w.Header().Set("Content-Security-Policy", pagePolicy)
		w.Header().Set("Cache-Control", "no-store")

		// Only emit HSTS when request is over HTTPS (direct or forwarded).
		if r.TLS != nil || strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https") {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
