package handlers

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Wikid82/gatekeeper/internal/api/middleware"
	"github.com/Wikid82/gatekeeper/internal/cerberus"
	"github.com/Wikid82/gatekeeper/internal/logger"
)

// UserHeader tells the upstream application who is signed in.
const UserHeader = "X-Forwarded-User"

// NewProxyHandler forwards admitted requests to target.
func NewProxyHandler(target *url.URL, responseTimeout time.Duration) gin.HandlerFunc {
	proxy := httputil.NewSingleHostReverseProxy(target)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if responseTimeout > 0 {
		transport.ResponseHeaderTimeout = responseTimeout
	}
	proxy.Transport = otelhttp.NewTransport(transport,
		otelhttp.WithPropagators(propagation.TraceContext{}),
	)

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = target.Host
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Source("proxy").WithError(err).WithField("upstream", target.Host).Error("Upstream request failed")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("Bad Gateway"))
	}

	return func(c *gin.Context) {
		// Never trust a client supplied identity.
		c.Request.Header.Del(UserHeader)
		if user := c.GetString(cerberus.UsernameKey); user != "" {
			c.Request.Header.Set(UserHeader, user)
		}
		middleware.ClearSecurityHeaders(c.Writer.Header())
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

// NotFound answers unmatched routes when no upstream is configured.
func NotFound(c *gin.Context) {
	c.Data(http.StatusNotFound, "text/plain; charset=utf-8", []byte("Not Found"))
}
