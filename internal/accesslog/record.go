package accesslog

import (
	"fmt"
	"time"

	"github.com/Wikid82/gatekeeper/internal/util"
)

// timeLayout is the Common Log Format timestamp, e.g. 10/Oct/2000:13:55:36 -0700.
const timeLayout = "02/Jan/2006:15:04:05 -0700"

const defaultProtocol = "HTTP/1.1"

// Record describes one admitted or rejected request. It is built once the
// admission decision is final and written immediately.
type Record struct {
	ClientIP  string
	Method    string
	URL       string
	Protocol  string
	Status    int
	UserAgent string
	Referer   string
	Timestamp time.Time
	// User is the authenticated username, empty for anonymous requests.
	User string
}

// Format renders r as a Combined Log Format line without a trailing newline.
// The response size is never known at admission time and is always "-".
func Format(r Record) string {
	proto := r.Protocol
	if proto == "" {
		proto = defaultProtocol
	}
	return fmt.Sprintf(`%s - %s [%s] "%s %s %s" %d - "%s" "%s"`,
		orDash(util.SanitizeForLog(r.ClientIP)),
		orDash(util.SanitizeForLog(r.User)),
		r.Timestamp.Format(timeLayout),
		util.QuotedField(r.Method),
		util.QuotedField(r.URL),
		util.QuotedField(proto),
		r.Status,
		orDash(util.QuotedField(r.Referer)),
		orDash(util.QuotedField(r.UserAgent)),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
