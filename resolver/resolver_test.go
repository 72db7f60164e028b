package resolver_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/sgml-go/sgml/resolver"
	"github.com/stretchr/testify/require"
)

func TestFileResolverReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.xml")
	require.NoError(t, os.WriteFile(path, []byte("<a/>"), 0o644))

	var fr resolver.FileResolver
	res, err := fr.GetContent("", path)
	require.NoError(t, err)
	defer res.Stream.Close()

	body, err := io.ReadAll(res.Stream)
	require.NoError(t, err)
	require.Equal(t, "<a/>", string(body))
	require.Equal(t, "text/xml", res.MIME)
}

func TestFileResolverMissingFileIsNotFound(t *testing.T) {
	var fr resolver.FileResolver
	_, err := fr.GetContent("", filepath.Join(t.TempDir(), "missing.xml"))
	require.ErrorIs(t, err, resolver.ErrNotFound)
}

func TestFileResolverRefusesOtherSchemes(t *testing.T) {
	var fr resolver.FileResolver
	_, err := fr.GetContent("", "http://example.com/doc.xml")
	require.ErrorIs(t, err, resolver.ErrNotFound)
}

func TestEmbeddedResolverServesIndexedEntry(t *testing.T) {
	fsys := fstest.MapFS{
		"html/Html.dtd": {Data: []byte("<!-- html dtd -->")},
	}
	r := resolver.EmbeddedResolver{
		FS:    fsys,
		Index: map[string]string{"Html.dtd": "html/Html.dtd"},
		MIME:  "text/xml",
	}
	res, err := r.GetContent("", "Html.dtd")
	require.NoError(t, err)
	defer res.Stream.Close()

	body, err := io.ReadAll(res.Stream)
	require.NoError(t, err)
	require.Equal(t, "<!-- html dtd -->", string(body))
}

func TestEmbeddedResolverUnknownURIIsNotFound(t *testing.T) {
	r := resolver.EmbeddedResolver{FS: fstest.MapFS{}, Index: map[string]string{}}
	_, err := r.GetContent("", "nope.dtd")
	require.ErrorIs(t, err, resolver.ErrNotFound)
}

func TestChainFallsThroughToNextResolver(t *testing.T) {
	first := resolver.Func(func(_, _ string) (*resolver.Resource, error) {
		return nil, resolver.ErrNotFound
	})
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.xml")
	require.NoError(t, os.WriteFile(path, []byte("<a/>"), 0o644))

	chain := resolver.Chain{first, resolver.FileResolver{}}
	res, err := chain.GetContent("", path)
	require.NoError(t, err)
	res.Stream.Close()
}
