package dtd_test

import (
	"testing"

	"github.com/sgml-go/sgml/dtd"
	"github.com/sgml-go/sgml/entity"
	"github.com/stretchr/testify/require"
)

func parseDTD(t *testing.T, source string) *dtd.DTD {
	t.Helper()
	root := entity.NewInternal("dtd", source, entity.LiteralNone, nil)
	require.NoError(t, root.Open(nil, ""))

	var errs []error
	p := dtd.NewParser(nil, func(err error) { errs = append(errs, err) })
	d, err := p.Parse(root, "", "HTML")
	require.NoError(t, err)
	return d
}

func TestParseElementAndAttlist(t *testing.T) {
	d := parseDTD(t, `
		<!ELEMENT HTML O O (HEAD, BODY)>
		<!ELEMENT HEAD O O (TITLE?)>
		<!ELEMENT TITLE - - (#PCDATA)>
		<!ELEMENT BODY O O (P)*>
		<!ELEMENT P O O (#PCDATA)>
		<!ATTLIST P ID ID #IMPLIED ALIGN (LEFT|CENTER|RIGHT) "LEFT">
	`)

	html, ok := d.Element("html")
	require.True(t, ok)
	require.True(t, html.StartTagOptional)
	require.True(t, html.CanContainChild("head"))
	require.False(t, html.CanContainText())

	p, ok := d.Element("P")
	require.True(t, ok)
	require.True(t, p.CanContainText())

	attr, ok := p.Attr("align")
	require.True(t, ok)
	require.Equal(t, dtd.AttrENUMERATION, attr.Type)
	require.Equal(t, []string{"LEFT", "CENTER", "RIGHT"}, attr.Values)
	require.Equal(t, "LEFT", attr.Default)
}

func TestParseEntityDecl(t *testing.T) {
	d := parseDTD(t, `<!ENTITY eacute "&#233;">`)
	ge, ok := d.GeneralEntity("eacute")
	require.True(t, ok)
	require.Equal(t, "é", ge.Literal)
}

func TestParameterEntityExpansionInContentModel(t *testing.T) {
	d := parseDTD(t, `
		<!ENTITY % inline "B | I">
		<!ELEMENT P O O (#PCDATA | %inline;)*>
		<!ELEMENT B - - (#PCDATA)>
		<!ELEMENT I - - (#PCDATA)>
	`)
	p, ok := d.Element("P")
	require.True(t, ok)
	require.True(t, p.CanContainChild("B"))
	require.True(t, p.CanContainChild("I"))
}

func TestDeclaredContentEmptyAndCData(t *testing.T) {
	d := parseDTD(t, `
		<!ELEMENT IMG - O EMPTY>
		<!ELEMENT SCRIPT - - CDATA>
	`)
	img, _ := d.Element("IMG")
	require.Equal(t, dtd.DeclaredEMPTY, img.Declared)

	script, _ := d.Element("SCRIPT")
	require.Equal(t, dtd.DeclaredCDATA, script.Declared)
	require.True(t, script.CanContainText())
}

func TestMarkedSectionIgnoreIsSkipped(t *testing.T) {
	d := parseDTD(t, `
		<![IGNORE[
		<!ELEMENT SKIPPED - - EMPTY>
		]]>
		<!ELEMENT KEPT - - EMPTY>
	`)
	_, ok := d.Element("SKIPPED")
	require.False(t, ok)
	_, ok = d.Element("KEPT")
	require.True(t, ok)
}

func TestMarkedSectionIncludeReportsUnsupported(t *testing.T) {
	root := entity.NewInternal("dtd", `<![INCLUDE[<!ELEMENT X - - EMPTY>]]>`, entity.LiteralNone, nil)
	require.NoError(t, root.Open(nil, ""))

	var errs []error
	p := dtd.NewParser(nil, func(err error) { errs = append(errs, err) })
	_, err := p.Parse(root, "", "HTML")
	require.NoError(t, err)
	require.NotEmpty(t, errs)
	require.ErrorIs(t, errs[0], dtd.ErrIncludeUnsupported)
}

func TestFindOptionalContainersShortestChain(t *testing.T) {
	d := parseDTD(t, `
		<!ELEMENT HTML O O (HEAD, BODY)>
		<!ELEMENT HEAD O O (TITLE?)>
		<!ELEMENT TITLE - - (#PCDATA)>
		<!ELEMENT BODY O O (P)*>
		<!ELEMENT P O O (#PCDATA)>
	`)
	html, _ := d.Element("HTML")
	chain := d.FindOptionalContainers(html, "P")
	require.Len(t, chain, 1)
	require.Equal(t, "BODY", chain[0].Name)
}
