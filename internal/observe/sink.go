package observe

import (
	"time"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
)

// Sink is the injected logging surface the checking engine reports
// through. Every check-time event goes through a Sink, so tests can
// inject a fake and assert on recorded events without any real I/O. The
// one exception is prober.NewTransport, which warns about an unusable
// tls_cacerts file through the global zerolog logger.
type Sink interface {
	// RecordResult logs one terminal CheckResult at the severity the
	// result's status calls for (info for working/ignored/redirected,
	// warning for broken/timeout).
	RecordResult(runID string, result checkresult.CheckResult)
	// RecordRateLimited logs a non-terminal rate-limited re-enqueue.
	RecordRateLimited(runID, uri, host string, nextCheck time.Time)
	// RecordFetch logs one HTTP attempt (HEAD or GET) regardless of
	// outcome.
	RecordFetch(runID, method, uri string, statusCode int, duration time.Duration)
	// RecordError logs a failure with its canonical cause and any
	// contextual attributes.
	RecordError(runID, component, operation string, cause ErrorCause, message string, attrs []Attribute)
	// RecordQueueDepth logs a point-in-time work-queue depth sample.
	RecordQueueDepth(runID string, depth int)
}

// NopSink discards every event. Useful as a zero-value default and in
// tests that don't care about logging output.
type NopSink struct{}

func (NopSink) RecordResult(string, checkresult.CheckResult)                    {}
func (NopSink) RecordRateLimited(string, string, string, time.Time)             {}
func (NopSink) RecordFetch(string, string, string, int, time.Duration)          {}
func (NopSink) RecordError(string, string, string, ErrorCause, string, []Attribute) {}
func (NopSink) RecordQueueDepth(string, int)                                    {}
