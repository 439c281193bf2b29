package httpapi

import (
	"net"
	"net/http"
	"strings"
)

// trustedProxies holds the networks whose forwarding headers are believed.
type trustedProxies []*net.IPNet

// newTrustedProxies parses IPs and CIDRs. Invalid entries are skipped; config
// loading rejects them earlier.
func newTrustedProxies(entries []string) trustedProxies {
	out := make(trustedProxies, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if _, network, err := net.ParseCIDR(entry); err == nil {
			out = append(out, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 128
		if ip.To4() != nil {
			ip = ip.To4()
			bits = 32
		}
		out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return out
}

func (t trustedProxies) contains(raw string) bool {
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	for _, network := range t {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// resolveClientIP returns the peer address unless the peer is a trusted
// proxy. Behind a trusted proxy the rightmost untrusted X-Forwarded-For hop
// wins, so a client cannot choose its own address by prepending entries.
func resolveClientIP(r *http.Request, trusted trustedProxies) string {
	remote := normalizeIP(r.RemoteAddr)
	if remote == "" || !trusted.contains(remote) {
		return remote
	}

	if ip := normalizeIP(r.Header.Get("Fly-Client-IP")); ip != "" {
		return ip
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for idx := len(hops) - 1; idx >= 0; idx-- {
		ip := normalizeIP(hops[idx])
		if ip == "" {
			break
		}
		if !trusted.contains(ip) {
			return ip
		}
	}

	if ip := normalizeIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return remote
}

func normalizeIP(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}

	if host, _, err := net.SplitHostPort(value); err == nil {
		value = strings.TrimSpace(host)
	}

	parsed := net.ParseIP(value)
	if parsed == nil {
		return ""
	}
	return parsed.String()
}
