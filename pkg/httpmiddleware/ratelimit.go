package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window for one key. Zero disables limiting.
	Max    int           `json:"max" yaml:"max"`
	Window time.Duration `json:"window" yaml:"window"`
	// KeyFunc defaults to ClientIP.
	KeyFunc func(*http.Request) string `json:"-" yaml:"-"`
}

type window struct {
	prev      float64
	curr      float64
	currStart time.Time
}

// Limiter approximates a sliding window by weighting the previous fixed
// window by its remaining overlap with the current one.
type Limiter struct {
	max    int
	size   time.Duration
	now    func() time.Time
	mu     sync.Mutex
	states map[string]*window
}

// NewLimiter creates a limiter allowing max hits per size window.
func NewLimiter(max int, size time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		size:   size,
		now:    time.Now,
		states: make(map[string]*window),
	}
}

// Allow records a hit for key when the key is under its limit. It returns
// the remaining budget and when the current window ends.
func (l *Limiter) Allow(key string) (remaining int, reset time.Time, ok bool) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	s, found := l.states[key]
	if !found {
		s = &window{currStart: now.Truncate(l.size)}
		l.states[key] = s
	}
	if elapsed := now.Sub(s.currStart); elapsed >= l.size {
		if elapsed >= 2*l.size {
			s.prev = 0
		} else {
			s.prev = s.curr
		}
		s.curr = 0
		s.currStart = now.Truncate(l.size)
	}

	overlap := 1 - float64(now.Sub(s.currStart))/float64(l.size)
	if overlap < 0 {
		overlap = 0
	}
	used := s.prev*overlap + s.curr
	reset = s.currStart.Add(l.size)
	if used >= float64(l.max) {
		return 0, reset, false
	}
	s.curr++
	return max(int(float64(l.max)-used-1), 0), reset, true
}

// Sweep drops keys idle for two full windows.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	for k, s := range l.states {
		if now.Sub(s.currStart) >= 2*l.size {
			delete(l.states, k)
			n++
		}
	}
	return n
}

// Run sweeps idle keys until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	t := time.NewTicker(2 * l.size)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}

// RateLimit rejects requests over the limit with 429. Limit headers are set
// on every response.
func RateLimit(cfg RateLimitConfig) Middleware {
	return RateLimitWith(NewLimiter(cfg.Max, cfg.Window), cfg.KeyFunc)
}

// RateLimitWith is RateLimit over a caller owned Limiter, so the caller can
// Run its sweeper.
func RateLimitWith(l *Limiter, key func(*http.Request) string) Middleware {
	if key == nil {
		key = ClientIP
	}
	limit := strconv.Itoa(l.max)
	return func(next http.Handler) http.Handler {
		if l.max <= 0 || l.size <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, reset, ok := l.Allow(key(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				wait := max(reset.Sub(l.now()), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the peer address of r. Forwarding headers are ignored,
// since any client can set them; use ClientIPFrom behind a reverse proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIPFrom resolves the client address when requests arrive through the
// trusted proxies. Forwarding headers are honored only if the peer is one of
// them. X-Forwarded-For is walked from the right and the first hop outside
// trusted is the client, so hops a client prepends are never used.
func ClientIPFrom(trusted []netip.Prefix) func(*http.Request) string {
	isTrusted := func(s string) bool {
		addr, err := netip.ParseAddr(strings.TrimSpace(s))
		if err != nil {
			return false
		}
		addr = addr.Unmap()
		for _, p := range trusted {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}
	return func(r *http.Request) string {
		peer := ClientIP(r)
		if !isTrusted(peer) {
			return peer
		}
		if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
			hops := strings.Split(strings.Join(xff, ","), ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop := strings.TrimSpace(hops[i])
				if hop == "" {
					continue
				}
				if !isTrusted(hop) {
					return hop
				}
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		return peer
	}
}

// ParseTrustedProxies parses CIDRs or bare addresses into prefixes.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
