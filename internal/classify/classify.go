// Package classify implements the pure, network-free URI classifier
// (C3): given a hyperlink and the static configuration, it either
// settles the link's status outright (ignored, unchecked, a local-path
// working/broken verdict) or passes it through to the prober.
package classify

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
	"github.com/rohmanhakim/linkcheck/internal/hyperlink"
	"github.com/rohmanhakim/linkcheck/pkg/fileutil"
)

// schemeAndSlashes matches any "scheme://" or protocol-relative "//"
// prefix, identifying URIs with an explicit (possibly unsupported)
// network scheme as opposed to a relative filesystem path.
var schemeAndSlashes = regexp.MustCompile(`^([a-z][a-z0-9+.-]*:)?//`)

// Config is the subset of static configuration the classifier consults.
// Every field is read-only for the classifier's lifetime: identical
// inputs must always produce identical outputs.
type Config struct {
	ExcludeDocuments []*regexp.Regexp
	Ignore           []*regexp.Regexp
}

// Result carries either a terminal CheckResult (the classifier settled
// the link itself) or Pass == true, meaning the prober must run.
type Result struct {
	Pass   bool
	Result checkresult.CheckResult
}

func passThrough() Result {
	return Result{Pass: true}
}

func settled(status checkresult.Status, message string, link hyperlink.Hyperlink) Result {
	return Result{Result: checkresult.CheckResult{
		URI:     link.URI,
		Docname: link.Docname,
		Lineno:  link.Lineno,
		Status:  status,
		Message: message,
	}}
}

// Classify runs the C3 decision table against link using cfg. It never
// performs network I/O; the sole exception is a local filesystem stat
// when the URI turns out to be a relative path rather than a URL.
func Classify(link hyperlink.Hyperlink, cfg Config) Result {
	for _, pattern := range cfg.ExcludeDocuments {
		if pattern.MatchString(link.Docname) {
			return settled(checkresult.Ignored, "matched exclude_documents pattern '"+pattern.String()+"'", link)
		}
	}

	uri := link.URI
	if uri == "" || strings.HasPrefix(uri, "#") || strings.HasPrefix(uri, "mailto:") || strings.HasPrefix(uri, "tel:") {
		return settled(checkresult.Unchecked, "", link)
	}

	for _, pattern := range cfg.Ignore {
		if pattern.MatchString(uri) {
			return settled(checkresult.Ignored, "matched ignore pattern '"+pattern.String()+"'", link)
		}
	}

	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return passThrough()
	}

	if schemeAndSlashes.MatchString(uri) {
		return settled(checkresult.Unchecked, "unsupported scheme", link)
	}

	localPath := filepath.Join(filepath.Dir(link.Docpath), uri)
	if fileutil.Exists(localPath) {
		return settled(checkresult.Working, "", link)
	}
	return settled(checkresult.Broken, "local file not found", link)
}
