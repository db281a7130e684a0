package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// NewSecure adds security headers. No CSP: the Swagger UI under /docs relies
// on inline scripts.
func NewSecure(isDevelopment bool) func(next http.Handler) http.Handler {
	s := secure.New(secure.Options{
		IsDevelopment:      isDevelopment,
		ContentTypeNosniff: true,
		FrameDeny:          true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	})
	return s.Handler
}
