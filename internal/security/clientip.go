package security

import (
	"net/http"
	"strings"
)

// UnknownClientIP is returned when no proxy header identifies the client.
const UnknownClientIP = "unknown"

// clientIPHeaders lists the proxy headers consulted, highest priority first.
var clientIPHeaders = []struct {
	name  string
	chain bool
}{
	{name: "CF-Connecting-IP"},
	{name: "X-Real-IP"},
	{name: "X-Forwarded-For", chain: true},
}

// ResolveClientIP returns the originating client address announced by the
// fronting CDN or reverse proxy. For X-Forwarded-For the left-most hop is used.
// The value is not validated.
func ResolveClientIP(h http.Header) string {
	for _, hdr := range clientIPHeaders {
		v := h.Get(hdr.name)
		if v == "" {
			continue
		}
		if !hdr.chain {
			return v
		}
		if first := strings.TrimSpace(strings.Split(v, ",")[0]); first != "" {
			return first
		}
	}
	return UnknownClientIP
}
