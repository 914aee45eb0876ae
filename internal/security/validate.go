package security

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

var (
	ErrInvalidIPAddress   = errors.New("invalid IP address or CIDR")
	ErrInvalidCountryCode = errors.New("invalid country code")
)

// ISO 3166-1 alpha-2 country codes, plus XK which geolocation services use
// for Kosovo.
var validCountryCodes = func() map[string]bool {
	m := make(map[string]bool)
	for _, code := range strings.Fields(countryCodes) {
		m[code] = true
	}
	return m
}()

const countryCodes = `
AD AE AF AG AI AL AM AO AQ AR AS AT AU AW AX AZ
BA BB BD BE BF BG BH BI BJ BL BM BN BO BQ BR BS BT BV BW BY BZ
CA CC CD CF CG CH CI CK CL CM CN CO CR CU CV CW CX CY CZ
DE DJ DK DM DO DZ
EC EE EG EH ER ES ET
FI FJ FK FM FO FR
GA GB GD GE GF GG GH GI GL GM GN GP GQ GR GS GT GU GW GY
HK HM HN HR HT HU
ID IE IL IM IN IO IQ IR IS IT
JE JM JO JP
KE KG KH KI KM KN KP KR KW KY KZ
LA LB LC LI LK LR LS LT LU LV LY
MA MC MD ME MF MG MH MK ML MM MN MO MP MQ MR MS MT MU MV MW MX MY MZ
NA NC NE NF NG NI NL NO NP NR NU NZ
OM
PA PE PF PG PH PK PL PM PN PR PS PT PW PY
QA
RE RO RS RU RW
SA SB SC SD SE SG SH SI SJ SK SL SM SN SO SR SS ST SV SX SY SZ
TC TD TF TG TH TJ TK TL TM TN TO TR TT TV TW TZ
UA UG UM US UY UZ
VA VC VE VG VI VN VU
WF WS
XK
YE YT
ZA ZM ZW
`

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// ValidateCountryCode checks an upper-case ISO 3166-1 alpha-2 code. An
// unrecognised code is kept in the whitelist; it simply never matches a
// lookup result.
func ValidateCountryCode(code string) error {
	if !countryCodePattern.MatchString(code) || !validCountryCodes[code] {
		return fmt.Errorf("%w: unrecognised code %q", ErrInvalidCountryCode, code)
	}
	return nil
}

// ValidateAllowListEntry reports entries the matcher will silently ignore or
// can only match by exact string: anything that is neither an IP literal nor
// an IPv4 CIDR block.
func ValidateAllowListEntry(entry string) error {
	if !strings.Contains(entry, "/") {
		if entry == "localhost" || net.ParseIP(entry) != nil {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInvalidIPAddress, entry)
	}
	base, _, ok := ParseCIDREntry(entry)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidIPAddress, entry)
	}
	if ip := net.ParseIP(base); ip == nil || ip.To4() == nil || strings.Contains(base, ":") {
		return fmt.Errorf("%w: %s (only IPv4 blocks are supported)", ErrInvalidIPAddress, entry)
	}
	return nil
}
