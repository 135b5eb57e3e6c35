package security

import (
	"net/http"
	"strconv"
	"time"
)

// Headers sets response headers for a JSON API whose responses carry
// per-buyer prices.
type Headers struct {
	// HSTS is the Strict-Transport-Security max-age sent on TLS requests. Zero disables it.
	HSTS time.Duration
}

func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("X-Frame-Options", "DENY")
		hdr.Set("Referrer-Policy", "no-referrer")
		hdr.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		// Quotes depend on the caller's tier; shared caches must not keep them.
		hdr.Set("Cache-Control", "no-store")
		if h.HSTS > 0 && r.TLS != nil {
			hdr.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(int(h.HSTS/time.Second)))
		}
		next.ServeHTTP(w, r)
	})
}
