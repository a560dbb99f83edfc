package proxypool

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"igprofile/pkg/logger"
)

// ListingSource supplies fresh candidate endpoint hostnames when the
// pool runs dry. Implementations must not panic; a failed listing is
// reported as an error and treated as "no candidates".
type ListingSource interface {
	ListCandidates(ctx context.Context) ([]string, error)
}

// Pool manages a rotating ring of SOCKS5 endpoint hostnames with
// per-endpoint cooldowns. Selection cycles through the ring so every
// eligible endpoint is visited before any repeats.
type Pool struct {
	mu       sync.Mutex
	ring     []string
	cursor   int
	cooldown map[string]time.Time
	source   ListingSource
	now      func() time.Time
	shuffle  func([]string)
	logger   logger.Logger
}

// New creates a pool seeded with the given hosts. source may be nil,
// in which case the pool never refreshes.
func New(initial []string, source ListingSource, log logger.Logger) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}
	ring := make([]string, len(initial))
	copy(ring, initial)
	return &Pool{
		ring:     ring,
		cooldown: make(map[string]time.Time),
		source:   source,
		now:      time.Now,
		shuffle: func(hosts []string) {
			rand.Shuffle(len(hosts), func(i, j int) {
				hosts[i], hosts[j] = hosts[j], hosts[i]
			})
		},
		logger: log,
	}
}

// Next returns the next endpoint whose cooldown has expired, advancing
// the rotation cursor. When a full scan of the ring finds nothing it
// refreshes the ring from the listing source once and rescans; a second
// miss reports no endpoint.
func (p *Pool) Next(ctx context.Context) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if host := p.scanLocked(); host != "" {
		return host, true
	}

	p.refreshLocked(ctx)

	if host := p.scanLocked(); host != "" {
		return host, true
	}
	return "", false
}

// scanLocked walks the ring at most once looking for an endpoint out of
// cooldown. Expired cooldown entries are pruned as they are seen.
func (p *Pool) scanLocked() string {
	now := p.now()
	for i := 0; i < len(p.ring); i++ {
		host := p.ring[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.ring)

		if deadline, held := p.cooldown[host]; held {
			if deadline.After(now) {
				continue
			}
			delete(p.cooldown, host)
		}
		return host
	}
	return ""
}

// refreshLocked fetches new candidates, shuffles them and appends any
// hosts not already in the ring. Failures are non-fatal.
func (p *Pool) refreshLocked(ctx context.Context) {
	if p.source == nil {
		return
	}

	candidates, err := p.source.ListCandidates(ctx)
	if err != nil {
		p.logger.WarnWithFields("unable to refresh proxy pool", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if len(candidates) == 0 {
		return
	}

	p.shuffle(candidates)

	known := make(map[string]struct{}, len(p.ring))
	for _, host := range p.ring {
		known[host] = struct{}{}
	}

	added := 0
	for _, host := range candidates {
		if host == "" {
			continue
		}
		if _, exists := known[host]; exists {
			continue
		}
		known[host] = struct{}{}
		p.ring = append(p.ring, host)
		added++
	}

	if added > 0 {
		p.logger.InfoWithFields("proxy pool refreshed", map[string]interface{}{
			"added": added,
			"total": len(p.ring),
		})
	}
}

// MarkBad puts an endpoint in cooldown until now + duration. Repeated
// marks extend the deadline.
func (p *Pool) MarkBad(host string, cooldown time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cooldown[host] = p.now().Add(cooldown)
	p.logger.InfoWithFields("marking proxy endpoint bad", map[string]interface{}{
		"host":     host,
		"cooldown": cooldown,
	})
}

// Len returns the current ring size
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ring)
}

// SetClock overrides the pool clock. Intended for tests.
func (p *Pool) SetClock(now func() time.Time) {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
}

// SetShuffle overrides the refresh shuffle. Intended for tests.
func (p *Pool) SetShuffle(shuffle func([]string)) {
	p.mu.Lock()
	p.shuffle = shuffle
	p.mu.Unlock()
}

// Reachable performs a quick TCP connectivity check against a SOCKS5
// endpoint before it is handed to the transport.
func Reachable(host string, port int, timeout time.Duration) bool {
	if host == "" {
		return false
	}
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
