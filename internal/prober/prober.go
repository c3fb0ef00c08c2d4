// Package prober implements the HTTP availability check (C4): HEAD-then-GET
// escalation, redirect classification, anchor validation, and the
// response-to-status mapping that drives the rest of the checking engine.
package prober

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rohmanhakim/linkcheck/internal/anchor"
	"github.com/rohmanhakim/linkcheck/internal/checkresult"
	"github.com/rohmanhakim/linkcheck/internal/hyperlink"
	"github.com/rohmanhakim/linkcheck/internal/observe"
	"github.com/rohmanhakim/linkcheck/internal/ratelimit"
	"github.com/rohmanhakim/linkcheck/pkg/timeutil"
	"github.com/rohmanhakim/linkcheck/pkg/urlutil"
)

const maxRedirects = 10

// Prober owns one HTTP client and runs probes against it. Per the
// concurrency model, exactly one Prober is used by one worker goroutine
// at a time; it is not safe to share across concurrent callers.
type Prober struct {
	cfg       Config
	transport http.RoundTripper
	limiter   *ratelimit.Limiter
	breakers  *ratelimit.Breakers
	sink      observe.Sink
	clock     timeutil.Clock
	runID     string
}

// New builds a Prober. transport is the owning worker's HTTP transport
// (a nil transport is replaced by a fresh one from NewTransport);
// limiter and breakers are the shared per-host state tables.
func New(cfg Config, transport http.RoundTripper, limiter *ratelimit.Limiter, breakers *ratelimit.Breakers, sink observe.Sink, clock timeutil.Clock, runID string) *Prober {
	if transport == nil {
		transport = NewTransport(cfg)
	}
	return &Prober{cfg: cfg, transport: transport, limiter: limiter, breakers: breakers, sink: sink, clock: clock, runID: runID}
}

// NewTransport builds the HTTP transport for one worker's Prober;
// internal/checker calls it once per worker unless the caller overrides
// the transport (e.g. checker.Config.Transport in tests, pointed at an
// httptest.Server).
func NewTransport(cfg Config) http.RoundTripper {
	return &http.Transport{
		TLSClientConfig: buildTLSConfig(cfg),
		DialContext: (&net.Dialer{
			Timeout: 5 * time.Second,
		}).DialContext,
	}
}

// buildTLSConfig honors TLSVerify and, if TLSCACerts is set, augments the
// system root pool with the PEM file it names. A CA file that fails to
// read or parse is logged and skipped, falling back to the system roots,
// matching the tolerant treatment of the other pattern-bearing config
// fields.
func buildTLSConfig(cfg Config) *tls.Config {
	tlsConfig := &tls.Config{InsecureSkipVerify: !cfg.TLSVerify} //nolint:gosec
	if cfg.TLSCACerts == "" {
		return tlsConfig
	}

	pem, err := os.ReadFile(cfg.TLSCACerts)
	if err != nil {
		log.Warn().Str("path", cfg.TLSCACerts).Err(err).Msg("failed to read tls_cacerts, using system roots")
		return tlsConfig
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		log.Warn().Str("path", cfg.TLSCACerts).Msg("no certificates parsed from tls_cacerts, using system roots")
		return tlsConfig
	}
	tlsConfig.RootCAs = pool
	return tlsConfig
}

// Probe runs the full C4 pipeline for link: request construction, the
// HEAD-then-GET retrieval methods, and the outer retry loop. retries is
// applied to the whole probe, including any HEAD-to-GET escalation
// within a single attempt.
func (p *Prober) Probe(ctx context.Context, link hyperlink.Hyperlink) Outcome {
	retries := p.cfg.Retries
	if retries < 1 {
		retries = 1
	}

	var outcome Outcome
	for attempt := 1; attempt <= retries; attempt++ {
		outcome = p.attempt(ctx, link)
		if outcome.Result.Status != checkresult.Broken {
			break
		}
	}
	return outcome
}

func (p *Prober) attempt(ctx context.Context, link hyperlink.Hyperlink) Outcome {
	reqURL, anchorName := splitAnchor(link.URI, p.cfg)
	host := urlutil.Host(reqURL)

	if !p.breakers.Open(host) {
		var outcome Outcome
		err := p.breakers.Call(host, func() error {
			outcome = p.attemptRetrievalMethods(ctx, link, reqURL, anchorName)
			if outcome.Result.Status == checkresult.Broken {
				return errors.New(outcome.Result.Message)
			}
			return nil
		})
		if err == nil || outcome.Result.Status != "" {
			return outcome
		}
	}

	message := "circuit open for host " + host
	p.recordError("circuit_breaker", observe.CauseCircuitOpen, message, link, host)
	return p.settle(link, checkresult.Broken, message, 0)
}

// attemptRetrievalMethods tries HEAD (when anchors aren't needed) then
// GET, stopping at the first retrieval method that doesn't need to fall
// through to the next one.
func (p *Prober) attemptRetrievalMethods(ctx context.Context, link hyperlink.Hyperlink, reqURL, anchorName string) Outcome {
	encodedURL := prepareRequestURL(reqURL)
	host := urlutil.Host(encodedURL)

	methods := []string{http.MethodGet}
	if !p.cfg.CheckAnchors || anchorName == "" {
		methods = []string{http.MethodHead, http.MethodGet}
	}

	var lastMessage string
	for _, method := range methods {
		outcome, tryNext := p.do(ctx, method, link, encodedURL, host, anchorName)
		if !tryNext {
			return outcome
		}
		lastMessage = outcome.Result.Message
	}
	return p.settle(link, checkresult.Broken, lastMessage, 0)
}

func (p *Prober) do(ctx context.Context, method string, link hyperlink.Hyperlink, reqURL, host, anchorName string) (outcome Outcome, tryNext bool) {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, reqURL, nil)
	if err != nil {
		return p.settle(link, checkresult.Broken, err.Error(), 0), false
	}

	for key, value := range resolveHeaders(link.URI, p.cfg.RequestHeaders) {
		req.Header.Set(key, value)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	if rule, ok := resolveAuth(link.URI, p.cfg.Auth); ok {
		req.SetBasicAuth(rule.Username, rule.Password)
	}

	var redirectState redirectInterception
	client := &http.Client{
		Transport:     p.transport,
		CheckRedirect: p.checkRedirect(&redirectState),
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	p.sink.RecordFetch(p.runID, method, reqURL, statusCodeOf(resp), duration)

	if err != nil {
		return p.classifyRequestError(link, err, redirectState)
	}
	defer resp.Body.Close()

	return p.classifyResponse(ctx, link, reqURL, host, anchorName, resp, redirectState)
}

func statusCodeOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

type redirectInterception struct {
	penultimateStatus int
	hasPenultimate    bool
	ignored           bool
	destination       string
	destinationStatus int
}

func (p *Prober) checkRedirect(state *redirectInterception) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if req.Response != nil {
			state.penultimateStatus = req.Response.StatusCode
			state.hasPenultimate = true
		}
		for _, pattern := range p.cfg.Ignore {
			if pattern.MatchString(req.URL.String()) {
				state.ignored = true
				state.destination = req.URL.String()
				state.destinationStatus = state.penultimateStatus
				return errIgnoredRedirect
			}
		}
		if len(via) >= maxRedirects {
			return errTooManyRedirects
		}
		return nil
	}
}

func (p *Prober) classifyRequestError(link hyperlink.Hyperlink, err error, redirect redirectInterception) (Outcome, bool) {
	if redirect.ignored {
		p.recordError("redirect", observe.CauseRedirectIgnored, "ignored redirect: "+redirect.destination, link, urlutil.Host(redirect.destination))
		return p.settle(link, checkresult.Ignored, "ignored redirect: "+redirect.destination, redirect.destinationStatus), false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			status := checkresult.Timeout
			if p.cfg.ReportTimeoutsAsBroken {
				status = checkresult.Broken
			}
			p.recordError("fetch", observe.CauseTimeout, err.Error(), link, urlutil.Host(link.URI))
			return p.settle(link, status, err.Error(), 0), false
		}
		if isTLSError(urlErr.Err) {
			p.recordError("fetch", observe.CauseTLSFailure, err.Error(), link, urlutil.Host(link.URI))
			return p.settle(link, checkresult.Broken, err.Error(), 0), false
		}
		if errors.Is(urlErr.Err, errTooManyRedirects) {
			return p.settle(link, checkresult.Broken, err.Error(), 0), true
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status := checkresult.Timeout
		if p.cfg.ReportTimeoutsAsBroken {
			status = checkresult.Broken
		}
		return p.settle(link, status, err.Error(), 0), false
	}

	return p.settle(link, checkresult.Broken, err.Error(), 0), true
}

func isTLSError(err error) bool {
	var recordErr tls.RecordHeaderError
	var certInvalid x509.CertificateInvalidError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	return errors.As(err, &recordErr) || errors.As(err, &certInvalid) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr)
}

func (p *Prober) classifyResponse(ctx context.Context, link hyperlink.Hyperlink, reqURL, host, anchorName string, resp *http.Response, redirect redirectInterception) (Outcome, bool) {
	responseURL := resp.Request.URL.String()
	retryAfter := resp.Header.Get("Retry-After")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if anchorName != "" && p.cfg.CheckAnchors {
			found := anchor.Contains(resp.Body, anchorName)
			if !found {
				escaped := url.QueryEscape(anchorName)
				message := "Anchor '" + escaped + "' not found"
				p.recordError("anchor", observe.CauseAnchorMissing, message, link, host)
				return p.settle(link, checkresult.Broken, message, 0), false
			}
		}
		p.limiter.Clear(host)
		return p.classifyRedirect(link, reqURL, responseURL, redirect), false
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if p.cfg.AllowUnauthorized {
			return p.settle(link, checkresult.Working, "unauthorized", 0), false
		}
		p.recordError("fetch", observe.CauseUnauthorized, "unauthorized", link, host)
		return p.settle(link, checkresult.Broken, "unauthorized", 0), false

	case http.StatusTooManyRequests:
		next, ok := p.limiter.Limit(host, retryAfter, p.clock.Now())
		if ok {
			return Outcome{RateLimited: true, NextCheck: next}, false
		}
		message := fmt.Sprintf("rate limited (%d) and back-off exceeded ceiling", resp.StatusCode)
		p.recordError("fetch", observe.CauseRateLimited, message, link, host)
		return p.settle(link, checkresult.Broken, message, 0), false

	case http.StatusServiceUnavailable:
		p.recordError("fetch", observe.CauseServiceUnavailable, "service unavailable", link, host)
		return p.settle(link, checkresult.Ignored, "service unavailable", 0), false

	default:
		return p.settle(link, checkresult.Broken, fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)), 0), true
	}
}

func (p *Prober) classifyRedirect(link hyperlink.Hyperlink, reqURL, responseURL string, redirect redirectInterception) Outcome {
	if urlutil.SameIgnoringTrailingSlash(reqURL, responseURL) || urlutil.AllowedRedirects(reqURL, responseURL, p.cfg.AllowedRedirects) {
		return p.settle(link, checkresult.Working, "", 0)
	}
	code := 0
	if redirect.hasPenultimate {
		code = redirect.penultimateStatus
	}
	return p.settle(link, checkresult.Redirected, responseURL, code)
}

// recordError reports a classified failure to the Sink. Unlike
// RecordResult, which logs every terminal status, recordError is reserved
// for failures worth alerting on under a stable cause taxonomy
// (observe.ErrorCause), independent of how the failure is eventually
// surfaced as a CheckResult.
func (p *Prober) recordError(operation string, cause observe.ErrorCause, message string, link hyperlink.Hyperlink, host string) {
	p.sink.RecordError(p.runID, "prober", operation, cause, message, []observe.Attribute{
		observe.NewAttr(observe.AttrURL, link.URI),
		observe.NewAttr(observe.AttrHost, host),
		observe.NewAttr(observe.AttrDocname, link.Docname),
	})
}

func (p *Prober) settle(link hyperlink.Hyperlink, status checkresult.Status, message string, code int) Outcome {
	return Outcome{Result: checkresult.CheckResult{
		URI:     link.URI,
		Docname: link.Docname,
		Lineno:  link.Lineno,
		Status:  status,
		Message: message,
		Code:    code,
	}}
}
