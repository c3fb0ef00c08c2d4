// Package anchor implements the streaming HTML anchor scanner (C1):
// given a byte stream and a target anchor, it reports whether the anchor
// is defined by an id= or name= attribute on some start tag, reading no
// more of the stream than necessary.
package anchor

import (
	"io"

	"golang.org/x/net/html"
)

const chunkSize = 4096

// Contains scans r for a start-tag attribute named "id" or "name" whose
// value equals target, stopping at the first match. target is compared
// raw: callers are responsible for percent-decoding the fragment exactly
// once before calling Contains. Malformed HTML never surfaces an error
// here: the tokenizer degrades gracefully and Contains simply returns
// whatever it determined by the time the stream ends.
func Contains(r io.Reader, target string) bool {
	if target == "" {
		return false
	}

	z := html.NewTokenizer(&chunkedReader{r: r})
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			if hasMatchingAttr(z, target) {
				return true
			}
		}
	}
}

func hasMatchingAttr(z *html.Tokenizer, target string) bool {
	for {
		key, val, more := z.TagAttr()
		k := string(key)
		if (k == "id" || k == "name") && string(val) == target {
			return true
		}
		if !more {
			return false
		}
	}
}

// chunkedReader wraps an io.Reader so the tokenizer never sees more than
// chunkSize bytes per underlying Read call, matching the spec's "read in
// <=4KiB chunks" requirement even when the caller hands us a reader that
// would happily return larger buffers (e.g. a bytes.Reader in tests).
type chunkedReader struct {
	r io.Reader
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(p) > chunkSize {
		p = p[:chunkSize]
	}
	return c.r.Read(p)
}
