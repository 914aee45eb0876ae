package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/gatekeeper/internal/security"
)

// RequestLogger writes a debug diagnostic per request. Access logging in
// Combined Log Format is done by the admission gate, not here.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		GetRequestLogger(c).WithFields(map[string]interface{}{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    SanitizePath(c.Request.URL.Path),
			"latency": time.Since(start).String(),
			"client":  security.ResolveClientIP(c.Request.Header),
		}).Debug("handled request")
	}
}
