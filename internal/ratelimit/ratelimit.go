// Package ratelimit implements the adaptive per-host rate limiter (C2):
// on every 429 it computes the next permissible probe time for the host,
// honoring a server-issued Retry-After header when present and otherwise
// doubling the previous back-off up to a ceiling; on every non-429
// success it evicts the host's entry.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rohmanhakim/linkcheck/pkg/timeutil"
)

const defaultDelay = 60 * time.Second

// Entry is the per-host throttling state.
type Entry struct {
	Delay     time.Duration
	NextCheck time.Time
}

// Limiter is the shared, mutex-guarded rate-limit table. Holding its lock
// across network I/O is forbidden: callers snapshot state, act, then
// report back via Limit/Clear.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]Entry
	maxWait time.Duration
	clock   timeutil.Clock
}

// New builds a Limiter. maxWait is the rate_limit_timeout ceiling: once a
// computed back-off would exceed it, Limit reports no further attempts.
func New(maxWait time.Duration, clock timeutil.Clock) *Limiter {
	return &Limiter{
		entries: make(map[string]Entry),
		maxWait: maxWait,
		clock:   clock,
	}
}

// NextCheck returns the earliest permitted probe time currently on record
// for host, and whether an entry exists at all.
func (l *Limiter) NextCheck(host string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[host]
	return entry.NextCheck, ok
}

// Clear removes host's entry, called after any non-429 success.
func (l *Limiter) Clear(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, host)
}

// Limit records a 429 response for host and returns the next permissible
// probe time. ok is false when the computed back-off exceeds maxWait —
// the caller must then give up and report the link BROKEN rather than
// re-enqueue it.
func (l *Limiter) Limit(host, retryAfterHeader string, now time.Time) (nextCheck time.Time, ok bool) {
	delay, explicitNext, hasExplicit := parseRetryAfter(retryAfterHeader, now)

	l.mu.Lock()
	defer l.mu.Unlock()

	if hasExplicit {
		nextCheck = explicitNext
		l.entries[host] = Entry{Delay: delay, NextCheck: nextCheck}
		return nextCheck, true
	}

	previous, exists := l.entries[host]
	if !exists {
		delay = defaultDelay
	} else {
		delay = 2 * previous.Delay
		if delay > l.maxWait && previous.Delay < l.maxWait {
			delay = l.maxWait
		}
	}

	if delay > l.maxWait {
		return time.Time{}, false
	}

	nextCheck = now.Add(delay)
	l.entries[host] = Entry{Delay: delay, NextCheck: nextCheck}
	return nextCheck, true
}

// parseRetryAfter interprets a Retry-After header value: either a
// non-negative number of delay seconds, or an RFC 1123 HTTP-date giving the
// absolute next-check time. hasExplicit is false when the header is
// empty or parses as neither.
func parseRetryAfter(header string, now time.Time) (delay time.Duration, nextCheck time.Time, hasExplicit bool) {
	if header == "" {
		return 0, time.Time{}, false
	}
	if seconds, err := strconv.ParseFloat(header, 64); err == nil && seconds >= 0 {
		delay = time.Duration(seconds * float64(time.Second))
		return delay, now.Add(delay), true
	}
	if at, err := http.ParseTime(header); err == nil {
		delay = at.Sub(now)
		if delay < 0 {
			// An HTTP-date in the past would otherwise produce a negative
			// delay and an immediate-retry storm; clamp to zero per
			// spec.md's open-question resolution.
			delay = 0
		}
		return delay, now.Add(delay), true
	}
	return 0, time.Time{}, false
}
