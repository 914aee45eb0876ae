package security

import "strings"

// IsCountryAllowed reports whether a request geolocated to countryCode may
// pass. An empty whitelist allows everything; an undetermined country ("")
// is denied once a whitelist is active. whitelist must already be upper case.
func IsCountryAllowed(countryCode string, whitelist []string) bool {
	if len(whitelist) == 0 {
		return true
	}
	if countryCode == "" {
		return false
	}
	code := strings.ToUpper(countryCode)
	for _, allowed := range whitelist {
		if allowed == code {
			return true
		}
	}
	return false
}
