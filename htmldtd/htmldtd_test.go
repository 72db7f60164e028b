package htmldtd_test

import (
	"io"
	"testing"

	"github.com/sgml-go/sgml/htmldtd"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesBuiltinDTD(t *testing.T) {
	d, err := htmldtd.Load()
	require.NoError(t, err)

	html, ok := d.Element("html")
	require.True(t, ok)
	require.True(t, html.StartTagOptional)

	members, ok := html.SequenceMembers()
	require.True(t, ok)
	require.Equal(t, []string{"HEAD", "BODY"}, members)

	script, ok := d.Element("script")
	require.True(t, ok)
	require.Equal(t, 2, len(script.Attrs()))
}

func TestLoadIsCached(t *testing.T) {
	d1, err := htmldtd.Load()
	require.NoError(t, err)
	d2, err := htmldtd.Load()
	require.NoError(t, err)
	require.Same(t, d1, d2)
}

func TestIsBuiltinURL(t *testing.T) {
	require.True(t, htmldtd.IsBuiltinURL("Html.dtd"))
	require.True(t, htmldtd.IsBuiltinURL("http://www.w3.org/TR/html4/strict.dtd"))
	require.False(t, htmldtd.IsBuiltinURL("http://example.com/custom.dtd"))
}

func TestResolverServesBundledDTD(t *testing.T) {
	res := htmldtd.Resolver()
	r, err := res.GetContent("", "Html.dtd")
	require.NoError(t, err)
	defer r.Stream.Close()

	body, err := io.ReadAll(r.Stream)
	require.NoError(t, err)
	require.Contains(t, string(body), "<!ELEMENT HTML")
}
