// Package hyperlink holds the discovered-URI record the checker engine
// consumes, plus the pre-admission hook chain an upstream collector may
// register against.
package hyperlink

import (
	"net/url"
	"strings"
)

// Hyperlink is one discovered URI occurrence. It is created by the
// upstream document collector (out of scope for this module) and is
// immutable thereafter.
type Hyperlink struct {
	URI     string
	Docname string
	Docpath string
	Lineno  int
}

// New builds a Hyperlink. Lineno should be -1 when the source line is
// unknown.
func New(uri, docname, docpath string, lineno int) Hyperlink {
	return Hyperlink{URI: uri, Docname: docname, Docpath: docpath, Lineno: lineno}
}

// ProcessURIHook may rewrite a discovered URI before it is admitted to the
// checker. It returns the replacement URI, or "" to leave it unchanged.
type ProcessURIHook func(uri string) string

// ProcessURIHooks is an ordered chain of hooks mirroring the
// linkcheck-process-uri event: the first hook to return a non-empty
// string wins, and later hooks are not consulted.
type ProcessURIHooks []ProcessURIHook

// Apply runs the hook chain over uri and returns the winning replacement,
// or uri unchanged if no hook fired.
func (hooks ProcessURIHooks) Apply(uri string) string {
	for _, hook := range hooks {
		if replacement := hook(uri); replacement != "" {
			return replacement
		}
	}
	return uri
}

// RewriteGitHubAnchor rewrites a github.com URI's fragment to be
// prefixed with "user-content-", matching the way GitHub's rendered
// Markdown generates heading anchors. Disabled by default (callers must
// register it explicitly) since GitHub's anchor-generation scheme drifts
// over time and upstream Sphinx itself ships this hook disabled.
func RewriteGitHubAnchor(uri string) string {
	const host = "github.com"
	const prefix = "user-content-"

	hashIdx := strings.IndexByte(uri, '#')
	if hashIdx < 0 {
		return ""
	}
	base, fragment := uri[:hashIdx], uri[hashIdx+1:]
	if fragment == "" || strings.HasPrefix(fragment, prefix) {
		return ""
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Hostname() != host {
		return ""
	}
	return base + "#" + prefix + fragment
}
