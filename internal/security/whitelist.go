package security

import (
	"strconv"
	"strings"
)

// loopbackAddresses are admitted regardless of the configured allow-list so
// local health checks cannot lock the service out.
var loopbackAddresses = map[string]struct{}{
	"127.0.0.1":        {},
	"::1":              {},
	"localhost":        {},
	"::ffff:127.0.0.1": {},
}

// IsLoopback reports whether ip is one of the always-allowed local forms.
func IsLoopback(ip string) bool {
	_, ok := loopbackAddresses[ip]
	return ok
}

// IsIPWhitelisted reports whether ip is admitted by entries. Entries are
// literal addresses (exact string match, the only form supported for IPv6) or
// IPv4 CIDR blocks. An empty list admits everything.
func IsIPWhitelisted(ip string, entries []string) bool {
	if len(entries) == 0 {
		return true
	}
	if IsLoopback(ip) {
		return true
	}
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			if ipInCIDR(ip, entry) {
				return true
			}
			continue
		}
		if ip == entry {
			return true
		}
	}
	return false
}

// ipInCIDR masks both sides with the prefix length and compares them.
// Malformed blocks never match.
func ipInCIDR(ip, cidr string) bool {
	base, bits, ok := ParseCIDREntry(cidr)
	if !ok {
		return false
	}
	mask := prefixMask(bits)
	return ipv4ToUint32(ip)&mask == ipv4ToUint32(base)&mask
}

// ParseCIDREntry splits an "address/bits" allow-list entry. It fails when the
// address is missing or bits is not an integer in 0..32.
func ParseCIDREntry(cidr string) (base string, bits int, ok bool) {
	base, rawBits, found := strings.Cut(cidr, "/")
	if !found || base == "" || rawBits == "" {
		return "", 0, false
	}
	bits, err := strconv.Atoi(rawBits)
	if err != nil || bits < 0 || bits > 32 {
		return "", 0, false
	}
	return base, bits, true
}

func prefixMask(bits int) uint32 {
	if bits == 0 {
		return 0
	}
	return ^uint32(0) << (32 - bits)
}

// ipv4ToUint32 folds a dotted quad into a big-endian integer. Anything that is
// not four numeric dot-separated parts yields 0, so such input can only match a
// block based at 0.0.0.0. Octets are not range checked and carry (256 in the
// last octet adds one to the third).
func ipv4ToUint32(ip string) uint32 {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return 0
	}
	var n uint32
	for _, p := range parts {
		octet, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		n = n<<8 + uint32(octet)
	}
	return n
}
