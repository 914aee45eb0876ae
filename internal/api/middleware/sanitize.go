package middleware

import (
	"net/http"
	"strings"

	"github.com/Wikid82/gatekeeper/internal/util"
)

const maxLogValueLen = 200

// sensitiveHeaders are replaced wholesale in logs. The session cookie lives
// in Cookie; forwarding headers are kept since they explain admission results.
var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"proxy-authorization": {},
	"x-api-key":           {},
	"x-api-token":         {},
	"x-access-token":      {},
	"x-auth-token":        {},
}

// SanitizeHeaders returns a copy of h safe for logging.
func SanitizeHeaders(h http.Header) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, vals := range h {
		if _, ok := sensitiveHeaders[strings.ToLower(k)]; ok {
			out[k] = []string{"<redacted>"}
			continue
		}
		sanitized := make([]string, 0, len(vals))
		for _, v := range vals {
			sanitized = append(sanitized, truncate(util.SanitizeForLog(v)))
		}
		out[k] = sanitized
	}
	return out
}

// SanitizePath strips the query string and control characters from p.
func SanitizePath(p string) string {
	if i := strings.Index(p, "?"); i != -1 {
		p = p[:i]
	}
	return truncate(util.SanitizeForLog(p))
}

func truncate(s string) string {
	if len(s) > maxLogValueLen {
		return s[:maxLogValueLen]
	}
	return s
}
