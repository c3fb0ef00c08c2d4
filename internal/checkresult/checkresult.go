// Package checkresult holds the outcome types produced by the checking
// engine: the closed Status enum, the terminal CheckResult, and the
// priority-queue item CheckRequest.
package checkresult

import "github.com/rohmanhakim/linkcheck/internal/hyperlink"

// Status is the exhaustive classification of a URI's check result.
type Status string

const (
	Broken      Status = "broken"
	Ignored     Status = "ignored"
	RateLimited Status = "rate-limited"
	Redirected  Status = "redirected"
	Timeout     Status = "timeout"
	Unchecked   Status = "unchecked"
	Working     Status = "working"
	Unknown     Status = "unknown"
)

// CheckResult is the terminal outcome of checking one hyperlink. A
// RateLimited status is never emitted on the result queue — see
// internal/worker — so consumers only ever observe the other seven
// values.
type CheckResult struct {
	URI     string
	Docname string
	Lineno  int
	Status  Status
	Message string
	Code    int
}

// CheckRequest is a queued work item. NextCheck is the epoch-seconds
// earliest time this hyperlink may be probed; zero means "immediately".
// Hyperlink is nil for the shutdown sentinel.
type CheckRequest struct {
	NextCheck int64
	Hyperlink *hyperlink.Hyperlink
}

// IsSentinel reports whether this request signals worker shutdown.
func (r CheckRequest) IsSentinel() bool {
	return r.Hyperlink == nil
}
