package prober

import "errors"

// errIgnoredRedirect is returned by the CheckRedirect hook to abort
// redirect following when the destination matches an ignore pattern.
// http.Client wraps it in a *url.Error; errors.Is still finds it.
var errIgnoredRedirect = errors.New("ignored redirect")

// errTooManyRedirects mirrors net/http's own redirect-cap error; the
// prober sets its own cap because overriding CheckRedirect disables the
// standard library's default one.
var errTooManyRedirects = errors.New("stopped after too many redirects")
