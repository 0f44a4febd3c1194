// Package metadata records who is calling: the client address, resolved
// through trusted proxies, and a coarse client label from the User-Agent.
package metadata

import (
	"context"
	"net/http"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"github.com/maciegg5/regon-search/pkg/requestcontext"
)

// MaxXFFHeaderLength bounds the X-Forwarded-For header we are willing to parse.
const MaxXFFHeaderLength = 500

type Config struct {
	// TrustedProxies may set X-Forwarded-For. Empty means the header is ignored.
	TrustedProxies []netip.Prefix
}

type Middleware struct {
	trusted []netip.Prefix
}

// NewMiddleware accepts a nil cfg, which trusts no proxies.
func NewMiddleware(cfg *Config) *Middleware {
	m := &Middleware{}
	if cfg != nil {
		m.trusted = cfg.TrustedProxies
	}
	return m
}

// Handler stores the client metadata in the request context.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientMetadata(r.Context(), m.clientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithClientMetadata stores the caller IP, User-Agent and derived client label.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	return requestcontext.WithClientMetadata(ctx, requestcontext.ClientMetadata{
		IP:        ip,
		UserAgent: userAgent,
		Client:    ClientLabel(userAgent),
	})
}

// ClientLabel condenses a User-Agent into "Browser on OS", or the product
// name for non-browser clients such as curl. Empty input gives "unknown".
func ClientLabel(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	name, _ := ua.Browser()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "unknown"
	}
	if os := strings.TrimSpace(ua.OS()); os != "" {
		return name + " on " + os
	}
	return name
}

// clientIP starts at the peer address and, while the hop is a trusted proxy,
// steps left through X-Forwarded-For. The first untrusted hop is the client.
func (m *Middleware) clientIP(r *http.Request) string {
	peer, ok := parseHost(r.RemoteAddr)
	if !ok {
		return "unknown"
	}
	if !m.isTrusted(peer) {
		return peer.String()
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if xri, ok := parseHost(r.Header.Get("X-Real-IP")); ok {
			return xri.String()
		}
		return peer.String()
	}
	if len(xff) > MaxXFFHeaderLength {
		return peer.String()
	}

	hops := strings.Split(xff, ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		hop, ok := parseHost(hops[i])
		if !ok {
			break
		}
		client = hop
		if !m.isTrusted(hop) {
			break
		}
	}
	return client.String()
}

func (m *Middleware) isTrusted(addr netip.Addr) bool {
	for _, p := range m.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// parseHost accepts "ip", "ip:port" and "[ipv6]:port". The Functions host
// forwards X-Forwarded-For entries with ports.
func parseHost(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	addr, err := netip.ParseAddr(strings.Trim(s, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
