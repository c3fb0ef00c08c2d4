package prober

import (
	"net/url"
	"strings"

	"github.com/rohmanhakim/linkcheck/pkg/urlutil"
)

const defaultAccept = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"

// splitAnchor divides uri into its request URL and fragment, dropping
// the fragment when it matches anchors_ignore or when the base URL
// matches anchors_ignore_for_url. The returned anchor is percent-decoded.
func splitAnchor(uri string, cfg Config) (reqURL, anchor string) {
	reqURL, frag, found := strings.Cut(uri, "#")
	if !found || frag == "" {
		return reqURL, ""
	}

	for _, pattern := range cfg.AnchorsIgnore {
		if pattern.MatchString(frag) {
			return reqURL, ""
		}
	}
	for _, pattern := range cfg.AnchorsIgnoreForURL {
		if pattern.MatchString(reqURL) {
			return reqURL, ""
		}
	}

	if decoded, err := url.PathUnescape(frag); err == nil {
		return reqURL, decoded
	}
	return reqURL, frag
}

// resolveAuth returns the first auth rule whose pattern matches uri, and
// whether one was found at all.
func resolveAuth(uri string, rules []AuthRule) (AuthRule, bool) {
	for _, rule := range rules {
		if rule.Pattern.MatchString(uri) {
			return rule, true
		}
	}
	return AuthRule{}, false
}

// resolveHeaders merges the default Accept header with any configured
// per-URL override, matched in precedence order: scheme://host,
// scheme://host/, the exact URI, then a wildcard "*" entry.
func resolveHeaders(uri string, overrides map[string]map[string]string) map[string]string {
	headers := map[string]string{"Accept": defaultAccept}

	parsed, err := url.Parse(uri)
	if err != nil {
		return headers
	}

	origin := parsed.Scheme + "://" + parsed.Host
	candidates := []string{origin, origin + "/", uri, "*"}

	for _, candidate := range candidates {
		override, ok := overrides[candidate]
		if !ok {
			continue
		}
		for key, value := range override {
			headers[key] = value
		}
		return headers
	}
	return headers
}

// prepareRequestURL returns reqURL with its host and path percent/IDNA
// encoded when it contains non-ASCII characters; ASCII URLs pass through
// unchanged.
func prepareRequestURL(reqURL string) string {
	return urlutil.EncodeNonASCII(reqURL)
}
