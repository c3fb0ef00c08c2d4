package classify_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
	"github.com/rohmanhakim/linkcheck/internal/classify"
	"github.com/rohmanhakim/linkcheck/internal/hyperlink"
)

func TestClassify_ExcludedDocument(t *testing.T) {
	cfg := classify.Config{ExcludeDocuments: []*regexp.Regexp{regexp.MustCompile(`^draft/`)}}
	link := hyperlink.New("https://example.com", "draft/wip", "docs/draft/wip.rst", 1)

	result := classify.Classify(link, cfg)

	require.False(t, result.Pass)
	assert.Equal(t, checkresult.Ignored, result.Result.Status)
}

func TestClassify_EmptyAndSpecialPrefixesAreUnchecked(t *testing.T) {
	cfg := classify.Config{}
	for _, uri := range []string{"", "#top", "mailto:a@b.com", "tel:+1234567890"} {
		link := hyperlink.New(uri, "index", "docs/index.rst", 1)
		result := classify.Classify(link, cfg)
		require.False(t, result.Pass, uri)
		assert.Equal(t, checkresult.Unchecked, result.Result.Status, uri)
	}
}

func TestClassify_IgnorePattern(t *testing.T) {
	cfg := classify.Config{Ignore: []*regexp.Regexp{regexp.MustCompile(`^https://internal\.example\.com/`)}}
	link := hyperlink.New("https://internal.example.com/secret", "index", "docs/index.rst", 1)

	result := classify.Classify(link, cfg)

	require.False(t, result.Pass)
	assert.Equal(t, checkresult.Ignored, result.Result.Status)
}

func TestClassify_UnsupportedScheme(t *testing.T) {
	cfg := classify.Config{}
	link := hyperlink.New("ftp://example.com/file.zip", "index", "docs/index.rst", 1)

	result := classify.Classify(link, cfg)

	require.False(t, result.Pass)
	assert.Equal(t, checkresult.Unchecked, result.Result.Status)
}

func TestClassify_ProtocolRelativeIsUnsupportedScheme(t *testing.T) {
	cfg := classify.Config{}
	link := hyperlink.New("//example.com/file.zip", "index", "docs/index.rst", 1)

	result := classify.Classify(link, cfg)

	require.False(t, result.Pass)
	assert.Equal(t, checkresult.Unchecked, result.Result.Status)
}

func TestClassify_LocalPathExists(t *testing.T) {
	dir := t.TempDir()
	docpath := filepath.Join(dir, "index.rst")
	require.NoError(t, os.WriteFile(docpath, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("x"), 0o644))

	cfg := classify.Config{}
	link := hyperlink.New("image.png", "index", docpath, 1)

	result := classify.Classify(link, cfg)

	require.False(t, result.Pass)
	assert.Equal(t, checkresult.Working, result.Result.Status)
}

func TestClassify_LocalPathMissing(t *testing.T) {
	dir := t.TempDir()
	docpath := filepath.Join(dir, "index.rst")
	require.NoError(t, os.WriteFile(docpath, []byte("x"), 0o644))

	cfg := classify.Config{}
	link := hyperlink.New("missing.png", "index", docpath, 1)

	result := classify.Classify(link, cfg)

	require.False(t, result.Pass)
	assert.Equal(t, checkresult.Broken, result.Result.Status)
}

func TestClassify_HTTPPassesThrough(t *testing.T) {
	cfg := classify.Config{}
	for _, uri := range []string{"http://example.com", "https://example.com"} {
		link := hyperlink.New(uri, "index", "docs/index.rst", 1)
		result := classify.Classify(link, cfg)
		assert.True(t, result.Pass, uri)
	}
}
