package ratelimit

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Breakers holds one gobreaker.CircuitBreaker per host, tripping a host
// after consecutive failures so a dead host stops absorbing worker
// capacity. It never influences a completed probe's classification —
// only whether a probe is attempted at all.
type Breakers struct {
	mu        sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker
	threshold uint32
	openFor   time.Duration
}

// NewBreakers builds a Breakers table. threshold is the number of
// consecutive failures before a host's breaker opens; threshold <= 0
// disables circuit breaking entirely and Call always runs probe.
func NewBreakers(threshold uint32, openFor time.Duration) *Breakers {
	return &Breakers{
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		threshold: threshold,
		openFor:   openFor,
	}
}

func (b *Breakers) breakerFor(host string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: host,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.threshold
		},
		Timeout: b.openFor,
	})
	b.breakers[host] = cb
	return cb
}

// Call runs probe through host's breaker, which counts its error return
// toward the trip threshold. When the breaker is open it returns
// gobreaker.ErrOpenState without invoking probe at all. With circuit
// breaking disabled (threshold <= 0), Call always invokes probe directly.
func (b *Breakers) Call(host string, probe func() error) error {
	if b.threshold <= 0 {
		return probe()
	}
	_, err := b.breakerFor(host).Execute(func() (any, error) {
		return nil, probe()
	})
	return err
}

// Open reports whether host's breaker is currently open. The prober
// checks it before each attempt and skips the network call when it is.
func (b *Breakers) Open(host string) bool {
	if b.threshold <= 0 {
		return false
	}
	b.mu.Lock()
	cb, ok := b.breakers[host]
	b.mu.Unlock()
	return ok && cb.State() == gobreaker.StateOpen
}
