package cerberus

import "net/http"

// LoginPath is where unauthenticated visitors of private routes are sent.
const LoginPath = "/login"

// Outcome is the result of one admission evaluation.
type Outcome int

const (
	Allow Outcome = iota
	DenyIPNotWhitelisted
	DenyCountryNotWhitelisted
	RedirectUnauthenticated
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case DenyIPNotWhitelisted:
		return "deny_ip"
	case DenyCountryNotWhitelisted:
		return "deny_country"
	case RedirectUnauthenticated:
		return "redirect_login"
	default:
		return "unknown"
	}
}

// StatusCode is the HTTP status written for the outcome. Allow maps to 200
// even though the downstream handler chooses the real response.
func (o Outcome) StatusCode() int {
	switch o {
	case DenyIPNotWhitelisted, DenyCountryNotWhitelisted:
		return http.StatusForbidden
	case RedirectUnauthenticated:
		return http.StatusFound
	default:
		return http.StatusOK
	}
}

// Message is the plain text body sent with a denial.
func (o Outcome) Message() string {
	switch o {
	case DenyIPNotWhitelisted:
		return "Access Denied"
	case DenyCountryNotWhitelisted:
		return "Access Denied - Geographic Restriction"
	default:
		return ""
	}
}

// Denied reports whether the request is rejected outright.
func (o Outcome) Denied() bool {
	return o == DenyIPNotWhitelisted || o == DenyCountryNotWhitelisted
}
