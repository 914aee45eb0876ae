package middleware

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

var securityHeaderNames = []string{
	"Content-Security-Policy",
	"Strict-Transport-Security",
	"X-Frame-Options",
	"X-Content-Type-Options",
	"Referrer-Policy",
}

// SecurityHeaders sets hardening headers on responses produced by the
// gatekeeper itself (denials, redirects, the login page).
func SecurityHeaders(isDevelopment bool) gin.HandlerFunc {
	csp := buildCSP()
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", csp)
		if !isDevelopment {
			// max-age=31536000 = 1 year
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

func buildCSP() string {
	directives := map[string]string{
		"default-src":     "'self'",
		"style-src":       "'self' 'unsafe-inline'",
		"img-src":         "'self' data: https:",
		"frame-ancestors": "'none'",
		"object-src":      "'none'",
		"base-uri":        "'self'",
		"form-action":     "'self'",
	}
	parts := make([]string, 0, len(directives))
	for directive, value := range directives {
		parts = append(parts, directive+" "+value)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ClearSecurityHeaders removes what SecurityHeaders set so a proxied upstream
// response carries only its own policy.
func ClearSecurityHeaders(h http.Header) {
	for _, name := range securityHeaderNames {
		h.Del(name)
	}
}
