package manager

import (
	"net"
	"strings"
)

// NormalizeHostFull returns a normalized representation of a hostname suitable
// for comparison. It is meant for matching profiles to store entries, not for
// DNS or connection behavior.
//
// Normalization rules:
// - trim spaces
// - lower-case
// - remove a trailing dot (FQDN form)
// - strip surrounding brackets for IPv6 literals like "[2001:db8::1]"
// - canonicalize IP literals ("2001:DB8:0::1" -> "2001:db8::1")
func NormalizeHostFull(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.TrimSuffix(s, ".")
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		s = s[1 : len(s)-1]
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if ip := net.ParseIP(s); ip != nil {
		return ip.String()
	}
	return s
}

// SameHost reports whether two host strings name the same target after
// normalization. Two empty hosts match.
func SameHost(a, b string) bool {
	return NormalizeHostFull(a) == NormalizeHostFull(b)
}
