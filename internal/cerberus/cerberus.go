package cerberus

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/gatekeeper/internal/accesslog"
	"github.com/Wikid82/gatekeeper/internal/config"
	"github.com/Wikid82/gatekeeper/internal/geo"
	"github.com/Wikid82/gatekeeper/internal/logger"
	"github.com/Wikid82/gatekeeper/internal/metrics"
	"github.com/Wikid82/gatekeeper/internal/notify"
	"github.com/Wikid82/gatekeeper/internal/security"
	"github.com/Wikid82/gatekeeper/internal/session"
)

// UsernameKey holds the authenticated username in the gin context.
const UsernameKey = "username"

// CountryLookup resolves an address to an ISO country code. ok is false
// whenever the country could not be determined.
type CountryLookup interface {
	LookupCountry(ctx context.Context, ip string) (code string, ok bool)
}

// AccessLogger receives one record per logged decision.
type AccessLogger interface {
	LogRequest(rec accesslog.Record)
}

// Notifier is told about every denial.
type Notifier interface {
	SecurityEvent(ev notify.Event)
}

// Decision is the outcome of evaluating one request.
type Decision struct {
	Outcome  Outcome
	ClientIP string
	// Country is only set when geofencing ran and resolved a code.
	Country    string
	Session    *session.Session
	RedirectTo string
}

// Cerberus is the admission gate in front of the application: IP allow-list,
// country allow-list, then session check for private routes.
type Cerberus struct {
	cfg      config.SecurityConfig
	routes   *RouteTable
	geo      CountryLookup
	sessions session.Provider
	access   AccessLogger
	notifier Notifier
	now      func() time.Time
}

type Option func(*Cerberus)

func WithCountryLookup(l CountryLookup) Option { return func(c *Cerberus) { c.geo = l } }

func WithSessions(p session.Provider) Option { return func(c *Cerberus) { c.sessions = p } }

func WithAccessLogger(l AccessLogger) Option { return func(c *Cerberus) { c.access = l } }

func WithNotifier(n Notifier) Option { return func(c *Cerberus) { c.notifier = n } }

func WithRoutes(t *RouteTable) Option { return func(c *Cerberus) { c.routes = t } }

// WithClock replaces time.Now for log timestamps.
func WithClock(now func() time.Time) Option { return func(c *Cerberus) { c.now = now } }

// New builds a gate for cfg. Collaborators not supplied through options get
// defaults: the configured public routes (or the built-in table), an
// ip-api.com client, a stdout access log, and no sessions.
func New(cfg config.SecurityConfig, opts ...Option) (*Cerberus, error) {
	c := &Cerberus{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	if c.routes == nil {
		var public []string
		if len(cfg.PublicRoutes) > 0 {
			public = cfg.PublicRoutes
		}
		routes, err := NewRouteTable(public, nil)
		if err != nil {
			return nil, err
		}
		c.routes = routes
	}
	if c.geo == nil && cfg.EnableGeofencing {
		c.geo = geo.NewClient(cfg.GeofencingAPIURL)
	}
	if c.access == nil && cfg.EnableRequestLogging {
		c.access = accesslog.New(os.Stdout)
	}
	if c.sessions == nil {
		c.sessions = noSessions{}
	}
	return c, nil
}

type noSessions struct{}

func (noSessions) Lookup(*http.Request) (*session.Session, bool) { return nil, false }

// Evaluate runs the admission pipeline for r. The first failing gate decides;
// later gates are not consulted. Logging and metrics happen here so every
// caller observes the same side effects.
func (c *Cerberus) Evaluate(ctx context.Context, r *http.Request) Decision {
	ip := security.ResolveClientIP(r.Header)
	d := Decision{ClientIP: ip}

	if c.cfg.EnableIPWhitelist && !security.IsIPWhitelisted(ip, c.cfg.IPWhitelist) {
		d.Outcome = DenyIPNotWhitelisted
		logger.Log().WithFields(map[string]interface{}{
			"source":    "cerberus",
			"decision":  d.Outcome.String(),
			"client_ip": ip,
			"path":      r.URL.Path,
		}).Warnf("Access denied for IP: %s", ip)
		c.deny(r, d)
		return d
	}

	if c.cfg.EnableGeofencing {
		code, _ := c.geo.LookupCountry(ctx, ip)
		d.Country = code
		if !security.IsCountryAllowed(code, c.cfg.CountryWhitelist) {
			d.Outcome = DenyCountryNotWhitelisted
			country := code
			if country == "" {
				country = "unknown"
			}
			logger.Log().WithFields(map[string]interface{}{
				"source":    "cerberus",
				"decision":  d.Outcome.String(),
				"client_ip": ip,
				"country":   country,
				"path":      r.URL.Path,
			}).Warnf("Access denied for IP: %s from country: %s", ip, country)
			c.deny(r, d)
			return d
		}
	}

	if s, ok := c.sessions.Lookup(r); ok {
		d.Session = s
	}

	if d.Session == nil && !c.routes.IsPublic(r.URL.Path) {
		d.Outcome = RedirectUnauthenticated
		d.RedirectTo = LoginPath
		metrics.IncDecision(d.Outcome.String())
		c.logAccess(r, d, "")
		return d
	}

	d.Outcome = Allow
	metrics.IncDecision(d.Outcome.String())
	user := ""
	if d.Session != nil {
		user = d.Session.User.Username
	}
	c.logAccess(r, d, user)
	return d
}

func (c *Cerberus) deny(r *http.Request, d Decision) {
	metrics.IncDecision(d.Outcome.String())
	if c.cfg.LogDeniedRequests {
		c.logAccess(r, d, "")
	}
	if c.notifier != nil {
		c.notifier.SecurityEvent(notify.Event{
			Reason:    d.Outcome.Message(),
			ClientIP:  d.ClientIP,
			Country:   d.Country,
			Method:    r.Method,
			Path:      r.URL.Path,
			Timestamp: c.now(),
		})
	}
}

func (c *Cerberus) logAccess(r *http.Request, d Decision, user string) {
	if !c.cfg.EnableRequestLogging || c.access == nil {
		return
	}
	c.access.LogRequest(accesslog.Record{
		ClientIP:  d.ClientIP,
		Method:    r.Method,
		URL:       requestTarget(r),
		Protocol:  r.Proto,
		Status:    d.Outcome.StatusCode(),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		Timestamp: c.now(),
		User:      user,
	})
}

// requestTarget is the path plus query string, as requested.
func requestTarget(r *http.Request) string {
	target := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}

// Middleware returns a Gin middleware that enforces the admission decision.
func (c *Cerberus) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c.routes.IsExcluded(ctx.Request.URL.Path) {
			ctx.Next()
			return
		}

		d := c.Evaluate(ctx.Request.Context(), ctx.Request)
		switch d.Outcome {
		case DenyIPNotWhitelisted, DenyCountryNotWhitelisted:
			ctx.Data(d.Outcome.StatusCode(), "text/plain; charset=utf-8", []byte(d.Outcome.Message()))
			ctx.Abort()
		case RedirectUnauthenticated:
			ctx.Redirect(http.StatusFound, d.RedirectTo)
			ctx.Abort()
		default:
			if d.Session != nil {
				ctx.Set(UsernameKey, d.Session.User.Username)
			}
			ctx.Next()
		}
	}
}
