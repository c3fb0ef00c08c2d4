package urlutil

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// SameIgnoringTrailingSlash reports whether two URL strings are equal once
// a single trailing slash is stripped from each.
func SameIgnoringTrailingSlash(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}

// AllowedRedirects reports whether the (from, to) pair matches any
// configured allowed-redirect rule: a map of a "from" regex to a "to"
// regex, both of which must match for the pair to be allowed.
func AllowedRedirects(from, to string, rules map[*regexp.Regexp]*regexp.Regexp) bool {
	for fromRe, toRe := range rules {
		if fromRe.MatchString(from) && toRe.MatchString(to) {
			return true
		}
	}
	return false
}

// EncodeNonASCII percent-encodes a URI that contains non-ASCII bytes: the
// host is IDNA-encoded and the path is percent-encoded once; the query
// is passed through as it was. Returns the input unchanged if it is
// already pure ASCII or fails to parse as a URL.
func EncodeNonASCII(raw string) string {
	if isASCII(raw) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if host := u.Hostname(); host != "" && !isASCII(host) {
		if ascii, err := idna.Lookup.ToASCII(host); err == nil {
			if port := u.Port(); port != "" {
				u.Host = ascii + ":" + port
			} else {
				u.Host = ascii
			}
		}
	}
	u.RawPath = escapePath(u.Path)
	return u.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func escapePath(path string) string {
	u := url.URL{Path: path}
	return u.EscapedPath()
}

// Host extracts the host (netloc, including any port) from a URI string.
// Returns "" if the URI does not parse.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
