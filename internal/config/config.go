// Package config loads and validates the checker's run configuration:
// defaults, an optional JSON or YAML config file, and CLI flag
// overrides, merged in that order with the config file winning over
// flags for any field it sets explicitly. Every loading or validation
// failure is returned as a ClassifiedError with SeverityFatal: the
// checking engine never starts a single worker against a config it
// could not fully validate.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rohmanhakim/linkcheck/internal/prober"
	"github.com/rs/zerolog/log"
)

const (
	defaultWorkers          = 5
	defaultTimeout          = 30 * time.Second
	defaultRetries          = 1
	defaultRateLimitTimeout = 300 * time.Second
	defaultUserAgent        = "linkcheck"
	defaultAnchorsIgnore    = `^!`
)

// configDTO mirrors the on-disk JSON/YAML shape. Every field is a
// pointer or a nil-able collection so newConfigFromDTO can tell "unset"
// apart from "set to the zero value".
type configDTO struct {
	Ignore                  []string                      `json:"ignore" yaml:"ignore"`
	ExcludeDocuments        []string                      `json:"exclude_documents" yaml:"exclude_documents"`
	AnchorsIgnore           []string                      `json:"anchors_ignore" yaml:"anchors_ignore"`
	AnchorsIgnoreForURL     []string                      `json:"anchors_ignore_for_url" yaml:"anchors_ignore_for_url"`
	Auth                    []authRuleDTO                 `json:"auth" yaml:"auth"`
	RequestHeaders          map[string]map[string]string  `json:"request_headers" yaml:"request_headers"`
	AllowedRedirects        map[string]string             `json:"allowed_redirects" yaml:"allowed_redirects"`
	Timeout                 *int                          `json:"timeout" yaml:"timeout"`
	Retries                 *int                          `json:"retries" yaml:"retries"`
	Workers                 *int                          `json:"workers" yaml:"workers"`
	Anchors                 *bool                         `json:"anchors" yaml:"anchors"`
	RateLimitTimeout        *int                          `json:"rate_limit_timeout" yaml:"rate_limit_timeout"`
	AllowUnauthorized       *bool                         `json:"allow_unauthorized" yaml:"allow_unauthorized"`
	ReportTimeoutsAsBroken  *bool                         `json:"report_timeouts_as_broken" yaml:"report_timeouts_as_broken"`
	UserAgent               *string                       `json:"user_agent" yaml:"user_agent"`
	TLSVerify               *bool                         `json:"tls_verify" yaml:"tls_verify"`
	TLSCACerts              *string                       `json:"tls_cacerts" yaml:"tls_cacerts"`
	CircuitBreakerThreshold *int                          `json:"circuit_breaker_threshold" yaml:"circuit_breaker_threshold"`
	MetricsAddr             *string                       `json:"metrics_addr" yaml:"metrics_addr"`
}

type authRuleDTO struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// Config is the fully resolved, validated checker configuration. Its
// fields are private; construct one via WithDefault, chain WithX
// mutators and/or WithConfigFile, then call Build.
type Config struct {
	ignore                  []string
	excludeDocuments        []string
	anchorsIgnore           []string
	anchorsIgnoreForURL     []string
	auth                    []authRuleDTO
	requestHeaders          map[string]map[string]string
	allowedRedirects        map[string]string
	timeout                 time.Duration
	retries                 int
	workers                 int
	anchors                 bool
	rateLimitTimeout        time.Duration
	allowUnauthorized       bool
	reportTimeoutsAsBroken  bool
	userAgent               string
	tlsVerify               bool
	tlsCACerts              string
	circuitBreakerThreshold int
	metricsAddr             string

	// err is set once a chain call (WithConfigFile) fails; every later
	// call in the chain becomes a no-op and Build returns err unchanged.
	err error
}

func failed(c *Config, err error) *Config {
	if c.err != nil {
		return c
	}
	next := *c
	next.err = err
	return &next
}

// WithDefault returns a Config seeded with the checker's built-in
// defaults; spec.md leaves most of these unspecified beyond
// rate_limit_timeout (300s) and anchors_ignore (`^!`).
func WithDefault() *Config {
	return &Config{
		anchorsIgnore:    []string{defaultAnchorsIgnore},
		timeout:          defaultTimeout,
		retries:          defaultRetries,
		workers:          defaultWorkers,
		rateLimitTimeout: defaultRateLimitTimeout,
		userAgent:        defaultUserAgent,
		tlsVerify:        true,
	}
}

func newConfigFromDTO(base *Config, dto configDTO) *Config {
	c := *base
	if dto.Ignore != nil {
		c.ignore = dto.Ignore
	}
	if dto.ExcludeDocuments != nil {
		c.excludeDocuments = dto.ExcludeDocuments
	}
	if dto.AnchorsIgnore != nil {
		c.anchorsIgnore = dto.AnchorsIgnore
	}
	if dto.AnchorsIgnoreForURL != nil {
		c.anchorsIgnoreForURL = dto.AnchorsIgnoreForURL
	}
	if dto.Auth != nil {
		c.auth = dto.Auth
	}
	if dto.RequestHeaders != nil {
		c.requestHeaders = dto.RequestHeaders
	}
	if dto.AllowedRedirects != nil {
		c.allowedRedirects = dto.AllowedRedirects
	}
	if dto.Timeout != nil {
		c.timeout = time.Duration(*dto.Timeout) * time.Second
	}
	if dto.Retries != nil {
		c.retries = *dto.Retries
	}
	if dto.Workers != nil {
		c.workers = *dto.Workers
	}
	if dto.Anchors != nil {
		c.anchors = *dto.Anchors
	}
	if dto.RateLimitTimeout != nil {
		c.rateLimitTimeout = time.Duration(*dto.RateLimitTimeout) * time.Second
	}
	if dto.AllowUnauthorized != nil {
		c.allowUnauthorized = *dto.AllowUnauthorized
	}
	if dto.ReportTimeoutsAsBroken != nil {
		c.reportTimeoutsAsBroken = *dto.ReportTimeoutsAsBroken
	}
	if dto.UserAgent != nil {
		c.userAgent = *dto.UserAgent
	}
	if dto.TLSVerify != nil {
		c.tlsVerify = *dto.TLSVerify
	}
	if dto.TLSCACerts != nil {
		c.tlsCACerts = *dto.TLSCACerts
	}
	if dto.CircuitBreakerThreshold != nil {
		c.circuitBreakerThreshold = *dto.CircuitBreakerThreshold
	}
	if dto.MetricsAddr != nil {
		c.metricsAddr = *dto.MetricsAddr
	}
	return &c
}

// WithConfigFile loads path (sniffed as YAML for .yml/.yaml, JSON
// otherwise) and merges it over c. A field the file does not mention is
// left untouched; fields it does mention win over whatever WithX calls
// ran earlier in the chain, including CLI flag values.
func (c *Config) WithConfigFile(path string) *Config {
	if c.err != nil {
		return c
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return failed(c, wrap(ErrFileDoesNotExist, path))
		}
		return failed(c, wrap(ErrReadConfigFail, err.Error()))
	}

	var dto configDTO
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yml" || ext == ".yaml" {
		err = yaml.Unmarshal(data, &dto)
	} else {
		err = json.Unmarshal(data, &dto)
	}
	if err != nil {
		return failed(c, wrap(ErrConfigParsingFail, err.Error()))
	}

	return newConfigFromDTO(c, dto)
}

// WithWorkers, WithTimeout, ... apply a single field's CLI-flag value
// over c. The numeric, duration and string setters are no-ops for a zero
// value; the bool setters (WithAnchors, WithAllowUnauthorized,
// WithReportTimeoutsAsBroken) always assign. A config file applied later
// in the chain still wins for any field it sets.

func (c *Config) WithWorkers(n int) *Config {
	if n > 0 {
		c.workers = n
	}
	return c
}

func (c *Config) WithTimeout(d time.Duration) *Config {
	if d > 0 {
		c.timeout = d
	}
	return c
}

func (c *Config) WithRetries(n int) *Config {
	if n > 0 {
		c.retries = n
	}
	return c
}

func (c *Config) WithAnchors(enabled bool) *Config {
	c.anchors = enabled
	return c
}

func (c *Config) WithRateLimitTimeout(d time.Duration) *Config {
	if d > 0 {
		c.rateLimitTimeout = d
	}
	return c
}

func (c *Config) WithAllowUnauthorized(allow bool) *Config {
	c.allowUnauthorized = allow
	return c
}

func (c *Config) WithReportTimeoutsAsBroken(asBroken bool) *Config {
	c.reportTimeoutsAsBroken = asBroken
	return c
}

func (c *Config) WithMetricsAddr(addr string) *Config {
	if addr != "" {
		c.metricsAddr = addr
	}
	return c
}

// Build validates c and compiles its pattern fields. Malformed
// individual patterns (an ignore/exclude/anchors-ignore/allowed-redirect
// regex that fails to compile) are logged and dropped rather than
// failing the run, matching the original linkcheck's tolerant behavior;
// a structurally invalid config (zero workers, zero retries) is fatal.
//
// Every compiled pattern is anchored at the start of the string, matching
// Python's re.match semantics the original linkcheck relies on for
// ignore/exclude_documents/anchors_ignore/anchors_ignore_for_url/auth/
// allowed_redirects, as opposed to re.search's unanchored, match-anywhere
// behavior.
func (c *Config) Build() (Built, error) {
	if c.err != nil {
		return Built{}, c.err
	}
	if c.workers <= 0 {
		return Built{}, wrap(ErrInvalidConfig, "workers must be positive")
	}
	if c.retries <= 0 {
		return Built{}, wrap(ErrInvalidConfig, "retries must be positive")
	}
	if c.timeout <= 0 {
		return Built{}, wrap(ErrInvalidConfig, "timeout must be positive")
	}

	auth := make([]prober.AuthRule, 0, len(c.auth))
	for _, a := range c.auth {
		pattern, ok := compile(a.Pattern, "auth")
		if !ok {
			continue
		}
		auth = append(auth, prober.AuthRule{Pattern: pattern, Username: a.Username, Password: a.Password})
	}

	allowedRedirects := make(map[*regexp.Regexp]*regexp.Regexp, len(c.allowedRedirects))
	for from, to := range c.allowedRedirects {
		fromPattern, ok := compile(from, "allowed_redirects")
		if !ok {
			continue
		}
		toPattern, ok := compile(to, "allowed_redirects")
		if !ok {
			continue
		}
		allowedRedirects[fromPattern] = toPattern
	}

	return Built{
		Ignore:                  compileAll(c.ignore, "ignore"),
		ExcludeDocuments:        compileAll(c.excludeDocuments, "exclude_documents"),
		AnchorsIgnore:           compileAll(c.anchorsIgnore, "anchors_ignore"),
		AnchorsIgnoreForURL:     compileAll(c.anchorsIgnoreForURL, "anchors_ignore_for_url"),
		Auth:                    auth,
		RequestHeaders:          c.requestHeaders,
		AllowedRedirects:        allowedRedirects,
		Timeout:                 c.timeout,
		Retries:                 c.retries,
		Workers:                 c.workers,
		Anchors:                 c.anchors,
		RateLimitTimeout:        c.rateLimitTimeout,
		AllowUnauthorized:       c.allowUnauthorized,
		ReportTimeoutsAsBroken:  c.reportTimeoutsAsBroken,
		UserAgent:               c.userAgent,
		TLSVerify:               c.tlsVerify,
		TLSCACerts:              c.tlsCACerts,
		CircuitBreakerThreshold: uint32(maxInt(c.circuitBreakerThreshold, 0)),
		MetricsAddr:             c.metricsAddr,
	}, nil
}

// Built is the compiled, ready-to-use configuration: patterns resolved
// to *regexp.Regexp, durations resolved from their config-file seconds.
type Built struct {
	Ignore                  []*regexp.Regexp
	ExcludeDocuments        []*regexp.Regexp
	AnchorsIgnore           []*regexp.Regexp
	AnchorsIgnoreForURL     []*regexp.Regexp
	Auth                    []prober.AuthRule
	RequestHeaders          map[string]map[string]string
	AllowedRedirects        map[*regexp.Regexp]*regexp.Regexp
	Timeout                 time.Duration
	Retries                 int
	Workers                 int
	Anchors                 bool
	RateLimitTimeout        time.Duration
	AllowUnauthorized       bool
	ReportTimeoutsAsBroken  bool
	UserAgent               string
	TLSVerify               bool
	TLSCACerts              string
	CircuitBreakerThreshold uint32
	MetricsAddr             string
}

// compile anchors pattern at the start of the string before compiling,
// so MatchString behaves like Python's re.match rather than re.search.
func compile(pattern, field string) (*regexp.Regexp, bool) {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		log.Warn().Str("field", field).Str("pattern", pattern).Err(err).Msg("dropping unparseable pattern")
		return nil, false
	}
	return re, true
}

func compileAll(patterns []string, field string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, ok := compile(p, field); ok {
			compiled = append(compiled, re)
		}
	}
	return compiled
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
