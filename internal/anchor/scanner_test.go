package anchor

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains_FoundByID(t *testing.T) {
	body := `<html><body><h1 id="intro">Intro</h1></body></html>`
	assert.True(t, Contains(strings.NewReader(body), "intro"))
}

func TestContains_FoundByName(t *testing.T) {
	body := `<a name="top"></a>`
	assert.True(t, Contains(strings.NewReader(body), "top"))
}

func TestContains_NotFound(t *testing.T) {
	body := `<h1 id="intro">Intro</h1>`
	assert.False(t, Contains(strings.NewReader(body), "missing"))
}

func TestContains_ComparesTargetRaw(t *testing.T) {
	body := `<h1 id="a b">Intro</h1>`
	assert.True(t, Contains(strings.NewReader(body), "a b"))
	assert.False(t, Contains(strings.NewReader(body), "a%20b"))
}

func TestContains_MalformedHTMLDoesNotPanic(t *testing.T) {
	body := `<div id="x" <<< not valid html at all ></div`
	assert.NotPanics(t, func() {
		Contains(strings.NewReader(body), "x")
	})
}

func TestContains_EmptyTarget(t *testing.T) {
	assert.False(t, Contains(strings.NewReader(`<a id=""></a>`), ""))
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestContains_ReaderErrorYieldsFalse(t *testing.T) {
	assert.False(t, Contains(errReader{}, "x"))
}

func TestContains_StopsEarly(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<h1 id="first">x</h1>`)
	// A huge trailing body that would be expensive to fully tokenize if
	// Contains did not stop at the first match.
	sb.WriteString(strings.Repeat("<p>filler</p>", 100000))
	assert.True(t, Contains(strings.NewReader(sb.String()), "first"))
}
