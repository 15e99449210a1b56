package api

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// clientIP returns the best-effort client IP for audit logging. The
// X-Forwarded-For header is only honored when the direct peer falls
// inside one of the configured trusted-proxy prefixes; otherwise a
// client could spoof its source address via headers. Rate limiting
// deliberately keys on the username, not the IP, so this value never
// feeds an authorization decision.
func (a *API) clientIP(r *http.Request) string {
	remoteIP, _ := parseIPCandidate(r.RemoteAddr)

	if len(a.trustedProxies) > 0 && remoteIP != "" {
		if addr, err := netip.ParseAddr(remoteIP); err == nil && prefixesContain(a.trustedProxies, addr) {
			if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
				for _, part := range strings.Split(xff, ",") {
					if ip, ok := parseIPCandidate(part); ok {
						return ip
					}
				}
			}
		}
	}
	return remoteIP
}

func prefixesContain(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func parseIPCandidate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.String(), true
	}
	return "", false
}

// parseTrustedProxies parses CIDR strings, accepting bare IPs as
// single-address prefixes.
func parseTrustedProxies(cidrs []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		if p, err := netip.ParsePrefix(c); err == nil {
			prefixes = append(prefixes, p)
			continue
		}
		addr, err := netip.ParseAddr(c)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", c, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
