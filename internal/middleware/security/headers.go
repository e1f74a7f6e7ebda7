package security

import (
	"fmt"
	"net/http"
)

type HeadersConfig struct {
	CSP            string
	FrameOptions   string
	ReferrerPolicy string
	CacheControl   string
	HSTSMaxAge     int
}

// DefaultHeadersConfig suits a JSON API that never serves documents
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:            "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:   "DENY",
		ReferrerPolicy: "no-referrer",
		CacheControl:   "no-store",
		HSTSMaxAge:     31536000,
	}
}

// Headers returns middleware that sets the configured response headers
func Headers(config HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			if config.FrameOptions != "" {
				h.Set("X-Frame-Options", config.FrameOptions)
			}
			if config.CSP != "" {
				h.Set("Content-Security-Policy", config.CSP)
			}
			if config.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", config.ReferrerPolicy)
			}
			if config.CacheControl != "" {
				h.Set("Cache-Control", config.CacheControl)
			}
			// HSTS only means something over TLS
			if r.TLS != nil && config.HSTSMaxAge > 0 {
				h.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", config.HSTSMaxAge))
			}

			next.ServeHTTP(w, r)
		})
	}
}
