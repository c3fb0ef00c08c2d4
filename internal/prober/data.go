package prober

import (
	"regexp"
	"time"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
)

// AuthRule pairs a URI pattern with the basic-auth credentials to send
// when it matches. Rules are tried in order; the first match wins.
type AuthRule struct {
	Pattern  *regexp.Regexp
	Username string
	Password string
}

// Config is the static, immutable-for-the-probe's-lifetime configuration
// the prober consults on every attempt.
type Config struct {
	AnchorsIgnore          []*regexp.Regexp
	AnchorsIgnoreForURL    []*regexp.Regexp
	Ignore                 []*regexp.Regexp
	Auth                   []AuthRule
	RequestHeaders         map[string]map[string]string
	AllowedRedirects       map[*regexp.Regexp]*regexp.Regexp
	Timeout                time.Duration
	Retries                int
	CheckAnchors           bool
	RateLimitTimeout       time.Duration
	AllowUnauthorized      bool
	ReportTimeoutsAsBroken bool
	UserAgent              string
	TLSVerify              bool
	// TLSCACerts is a path to a PEM file of additional trusted CA
	// certificates, appended to the system root pool. Empty means use
	// the system roots unmodified.
	TLSCACerts string
}

// Outcome is what a single Probe call produces. RateLimited is mutually
// exclusive with Result being terminal: a RateLimited outcome carries no
// CheckResult, only the host's next permitted check time, which the
// caller re-enqueues instead of emitting.
type Outcome struct {
	Result      checkresult.CheckResult
	RateLimited bool
	NextCheck   time.Time
}
