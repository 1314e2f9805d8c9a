package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ProxyTrust lists the peers allowed to report a client address through
// X-Forwarded-For or X-Real-IP. Headers from any other peer are ignored.
type ProxyTrust struct {
	nets []*net.IPNet
}

// NewProxyTrust parses entries given as CIDR blocks or single addresses.
func NewProxyTrust(entries []string) (*ProxyTrust, error) {
	p := &ProxyTrust{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", e)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			e = fmt.Sprintf("%s/%d", ip.String(), bits)
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", e, err)
		}
		p.nets = append(p.nets, n)
	}
	return p, nil
}

func (p *ProxyTrust) trusts(addr string) bool {
	if p == nil {
		return false
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range p.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP rewrites r.RemoteAddr to the forwarded client address when the
// connection comes from a trusted proxy. X-Forwarded-For is walked from the
// right and the first hop that is not itself a trusted proxy wins.
func (p *ProxyTrust) RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p.trusts(ClientIP(r)) {
			if client := p.forwardedFor(r); client != "" {
				r.RemoteAddr = net.JoinHostPort(client, "0")
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (p *ProxyTrust) forwardedFor(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				return ""
			}
			if !p.trusts(hop) {
				return hop
			}
		}
		return ""
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(real) != nil {
		return real
	}
	return ""
}
