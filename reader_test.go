package sgml_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sgml-go/sgml"
	"github.com/sgml-go/sgml/dtd"
	"github.com/sgml-go/sgml/entity"
	"github.com/stretchr/testify/require"
)

func buildDTD(t *testing.T, rootName, subset string) *dtd.DTD {
	t.Helper()
	root := entity.NewInternal(rootName, subset, entity.LiteralNone, nil)
	require.NoError(t, root.Open(nil, ""))
	p := dtd.NewParser(nil, func(error) {})
	d, err := p.Parse(root, "", rootName)
	require.NoError(t, err)
	return d
}

// event is a flattened snapshot of one sgml.Reader.Read() position, used to
// assert against expected node sequences without re-deriving the Reader's
// cursor state in every test.
type event struct {
	Type      sgml.NodeType
	Name      string
	Value     string
	Depth     int
	Simulated bool
}

func drain(t *testing.T, r *sgml.Reader) []event {
	t.Helper()
	var got []event
	for r.Read() {
		got = append(got, event{
			Type:      r.NodeType(),
			Name:      r.Name(),
			Value:     r.Value(),
			Depth:     r.Depth(),
			Simulated: r.IsSimulated(),
		})
	}
	return got
}

func htmlReader(t *testing.T, src string) *sgml.Reader {
	t.Helper()
	r, err := sgml.NewReader(strings.NewReader(src), sgml.WithDocType("html"), sgml.WithCaseFolding(sgml.CaseFoldingToLower))
	require.NoError(t, err)
	return r
}

// Scenario 1: an order-sensitive sibling is skipped (no <head>), then a
// later sibling with an optional end tag (<p>) is auto-closed by the next
// <p> rather than nested under it.
func TestScenarioMissingHeadAndImplicitParagraphClose(t *testing.T) {
	r := htmlReader(t, `<html><body><p>a<p>b</body></html>`)
	got := drain(t, r)

	want := []event{
		{Type: sgml.ElementNode, Name: "html"},
		{Type: sgml.ElementNode, Name: "head", Simulated: true},
		{Type: sgml.EndElementNode, Name: "head"},
		{Type: sgml.ElementNode, Name: "body"},
		{Type: sgml.ElementNode, Name: "p"},
		{Type: sgml.TextNode, Value: "a"},
		{Type: sgml.EndElementNode, Name: "p"},
		{Type: sgml.ElementNode, Name: "p"},
		{Type: sgml.TextNode, Value: "b"},
		{Type: sgml.EndElementNode, Name: "p"},
		{Type: sgml.EndElementNode, Name: "body"},
		{Type: sgml.EndElementNode, Name: "html"},
	}
	requireSameShape(t, want, got)
}

// Scenario 2: a bare <p> with no root at all synthesizes the full
// html/head/body chain, closing head immediately and leaving body open to
// receive the paragraph.
func TestScenarioBareParagraphSynthesizesFullChain(t *testing.T) {
	r := htmlReader(t, `<p>x`)
	got := drain(t, r)

	want := []event{
		{Type: sgml.ElementNode, Name: "html", Simulated: true},
		{Type: sgml.ElementNode, Name: "head", Simulated: true},
		{Type: sgml.EndElementNode, Name: "head"},
		{Type: sgml.ElementNode, Name: "body", Simulated: true},
		{Type: sgml.ElementNode, Name: "p"},
		{Type: sgml.TextNode, Value: "x"},
		{Type: sgml.EndElementNode, Name: "p"},
		{Type: sgml.EndElementNode, Name: "body"},
		{Type: sgml.EndElementNode, Name: "html"},
	}
	requireSameShape(t, want, got)
}

// Scenario 3: a <script> element's body is declared CDATA, so a "<b" that
// would otherwise look like a start tag is scanned as raw text and never
// opens a <b> element.
func TestScenarioScriptContentIsRawCDATA(t *testing.T) {
	r := htmlReader(t, `<script>if (a<b) x;</script>`)
	got := drain(t, r)

	var sawB bool
	var script, cdata, endScript = -1, -1, -1
	for i, ev := range got {
		switch {
		case ev.Type == sgml.ElementNode && ev.Name == "b":
			sawB = true
		case ev.Type == sgml.ElementNode && ev.Name == "script":
			script = i
		case ev.Type == sgml.CDATANode:
			cdata = i
		case ev.Type == sgml.EndElementNode && ev.Name == "script":
			endScript = i
		}
	}
	require.False(t, sawB, "the '<b' inside <script> must not open a b element")
	require.NotEqual(t, -1, script)
	require.NotEqual(t, -1, cdata)
	require.NotEqual(t, -1, endScript)
	require.True(t, script < cdata && cdata < endScript)
	require.Equal(t, "if (a<b) x;", got[cdata].Value)
}

// Scenario 4: an attribute value quoted with single quotes may contain a
// literal double quote; the parsed value carries the double quote through
// unescaped (quote normalization happens at serialization time, not here).
func TestScenarioSingleQuotedAttributeHoldsEmbeddedDoubleQuote(t *testing.T) {
	r, err := sgml.NewReader(strings.NewReader(`<a href='u"1'>z</a>`), sgml.WithIgnoreDTD(true))
	require.NoError(t, err)

	require.True(t, r.Read())
	require.Equal(t, sgml.ElementNode, r.NodeType())
	require.Equal(t, "a", r.Name())
	v, ok := r.GetAttribute("href")
	require.True(t, ok)
	require.Equal(t, `u"1`, v)

	require.True(t, r.Read())
	require.Equal(t, sgml.TextNode, r.NodeType())
	require.Equal(t, "z", r.Value())

	require.True(t, r.Read())
	require.Equal(t, sgml.EndElementNode, r.NodeType())
	require.Equal(t, "a", r.Name())

	require.False(t, r.Read())
}

// Scenario 5: a named HTML entity and two equivalent numeric character
// references (decimal and hex) all resolve to the same code point.
func TestScenarioNamedAndNumericReferencesAgree(t *testing.T) {
	r := htmlReader(t, `<p>caf&eacute; &#233; &#xE9;</p>`)
	got := drain(t, r)

	var text string
	for _, ev := range got {
		if ev.Type == sgml.TextNode {
			text += ev.Value
		}
	}
	require.Equal(t, "café é é", text)
}

// Scenario 6: an unterminated reference ("&test" with no trailing ";")
// falls back to literal text instead of being silently swallowed or
// replaced with a sentinel code point.
func TestScenarioUnterminatedReferenceFallsBackToLiteralText(t *testing.T) {
	r := htmlReader(t, `&test`)
	got := drain(t, r)

	var text string
	for _, ev := range got {
		if ev.Type == sgml.TextNode || ev.Type == sgml.WhitespaceNode {
			text += ev.Value
		}
	}
	require.NotEmpty(t, text)
	runes := []rune(text)
	require.NotEqual(t, rune(0xFFFF), runes[len(runes)-1])
	require.Equal(t, "&test", text)
}

// Scenario 7: the HTML DTD's own BODY content model references a parameter
// entity ("%inline;") as a group member; it must expand transparently so an
// inline element like <b> is admitted directly under <body> instead of
// being treated as an unplaceable name.
func TestScenarioParameterEntityInBodyContentModel(t *testing.T) {
	r := htmlReader(t, `<html><body><b>hi</b></body></html>`)
	got := drain(t, r)

	var sawSimulatedP bool
	for _, ev := range got {
		if ev.Type == sgml.ElementNode && ev.Name == "b" {
			require.False(t, ev.Simulated)
		}
		if ev.Type == sgml.ElementNode && ev.Name == "p" && ev.Simulated {
			sawSimulatedP = true
		}
	}
	require.False(t, sawSimulatedP, "<b> should nest directly in <body>, not force a synthesized <p>")
}

// Scenario 8: a high surrogate numeric character reference immediately
// followed by its low surrogate partner combines into the single scalar
// value they together encode (§4.3).
func TestScenarioSurrogatePairCombinesInText(t *testing.T) {
	r := htmlReader(t, `<p>&#55357;&#56832;</p>`)
	got := drain(t, r)

	var text string
	for _, ev := range got {
		if ev.Type == sgml.TextNode {
			text += ev.Value
		}
	}
	require.Equal(t, "\U0001F600", text)
}

// Scenario 9: a <script> body wrapped in the conventional JS-comment-hidden
// CDATA markers has those markers stripped, while a comment inside the body
// is preserved as ordinary text and doesn't end the element early.
func TestScenarioScriptStripsCDATAMarkersAndKeepsComments(t *testing.T) {
	r := htmlReader(t, "<script>/*<![CDATA[*/\nvar x = 1; /* <!-- not a real comment end --> */\n/*]]>*/</script>")
	got := drain(t, r)

	var cdata string
	for _, ev := range got {
		if ev.Type == sgml.CDATANode {
			cdata = ev.Value
		}
	}
	require.NotContains(t, cdata, "<![CDATA[")
	require.NotContains(t, cdata, "]]>")
	require.Contains(t, cdata, "<!-- not a real comment end -->")
}

// Scenario 10: a required (non start-tag-optional) root that never appears
// is a fatal condition surfaced through Err(), not a recoverable diagnostic.
func TestFatalRequiredRootNeverAppeared(t *testing.T) {
	d := buildDTD(t, "root", `<!ELEMENT root - - (child)*><!ELEMENT child - - (#PCDATA)>`)
	r, err := sgml.NewReader(strings.NewReader(`<child>x</child>`), sgml.WithDTD(d))
	require.NoError(t, err)
	for r.Read() {
	}
	require.ErrorIs(t, r.Err(), sgml.ErrRequiredRootMissing)
}

// Scenario 11: a <!DOCTYPE> name that disagrees with a preloaded DTD's root
// is fatal (§4.6), distinct from the ordinary case of no DTD at all.
func TestFatalDoctypeMismatchesPreloadedDTD(t *testing.T) {
	d := buildDTD(t, "root", `<!ELEMENT root - - (#PCDATA)>`)
	r, err := sgml.NewReader(strings.NewReader(`<!DOCTYPE other><root>x</root>`), sgml.WithDTD(d))
	require.NoError(t, err)
	for r.Read() {
	}
	require.ErrorIs(t, r.Err(), sgml.ErrDoctypeMismatch)
}

// Scenario 12: a comment left open at end of input is fatal, not a dropped
// diagnostic.
func TestFatalUnclosedCommentAtEOF(t *testing.T) {
	r, err := sgml.NewReader(strings.NewReader(`<p>a<!-- never closes`), sgml.WithIgnoreDTD(true))
	require.NoError(t, err)
	for r.Read() {
	}
	require.ErrorIs(t, r.Err(), sgml.ErrUnclosedComment)
}

// Scenario 13: a CDATA-content element (<script>) whose end tag never
// appears before end of input is fatal.
func TestFatalUnclosedCDATAAtEOF(t *testing.T) {
	r := htmlReader(t, `<script>var x = 1;`)
	for r.Read() {
	}
	require.ErrorIs(t, r.Err(), sgml.ErrUnclosedCDATA)
}

// requireSameShape compares the Type/Name/Value/Simulated fields (ignoring
// Depth, which the caller can check separately) of two event slices.
func requireSameShape(t *testing.T, want, got []event) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Type, got[i].Type, "event %d type", i)
		if want[i].Name != "" {
			require.Equal(t, want[i].Name, got[i].Name, "event %d name", i)
		}
		if want[i].Value != "" {
			require.Equal(t, want[i].Value, got[i].Value, "event %d value", i)
		}
		require.Equal(t, want[i].Simulated, got[i].Simulated, "event %d simulated", i)
	}
}

// TestBalancedOutputAndDepthConsistency exercises §8's first two invariants
// across tag-inference-heavy input: every StartElement has exactly one
// EndElement at the same depth, and depth tracks open-minus-closed ancestors.
func TestBalancedOutputAndDepthConsistency(t *testing.T) {
	r := htmlReader(t, `<html><body><div><p>a<p>b</div></body></html>`)

	var openStack []string
	for r.Read() {
		switch r.NodeType() {
		case sgml.ElementNode:
			require.Equal(t, len(openStack)+1, r.Depth())
			if !r.IsEmptyElement() {
				openStack = append(openStack, r.Name())
			}
		case sgml.EndElementNode:
			require.NotEmpty(t, openStack)
			top := openStack[len(openStack)-1]
			require.Equal(t, top, r.Name())
			require.Equal(t, len(openStack), r.Depth())
			openStack = openStack[:len(openStack)-1]
		}
	}
	require.Empty(t, openStack)
}

// TestAttributeUniqueness covers §8's attribute-uniqueness invariant: a
// later duplicate (case-insensitively, under the configured fold) is
// dropped rather than overwriting or duplicating the first occurrence.
func TestAttributeUniqueness(t *testing.T) {
	r, err := sgml.NewReader(strings.NewReader(`<a X="1" x="2" Y="3">z</a>`), sgml.WithIgnoreDTD(true))
	require.NoError(t, err)

	require.True(t, r.Read())
	require.Equal(t, 2, r.AttributeCount())
	v, ok := r.GetAttribute("x")
	require.True(t, ok)
	require.Equal(t, "1", v)
	v, ok = r.GetAttribute("y")
	require.True(t, ok)
	require.Equal(t, "3", v)
}

// TestNameTableStability covers §8: reading the same input twice with the
// same configuration produces byte-identical node streams.
func TestNameTableStability(t *testing.T) {
	const src = `<html><body><p>a<p>b</body></html>`
	got1 := drain(t, htmlReader(t, src))
	got2 := drain(t, htmlReader(t, src))
	require.Equal(t, got1, got2)
}

// TestCaseIdempotence covers §8: with CaseFolding=ToLower, every emitted
// element and attribute name already equals its own lowercase form.
func TestCaseIdempotence(t *testing.T) {
	r, err := sgml.NewReader(strings.NewReader(`<HTML><BODY><P ID="X">hi</P></BODY></HTML>`),
		sgml.WithDocType("html"), sgml.WithCaseFolding(sgml.CaseFoldingToLower))
	require.NoError(t, err)

	for r.Read() {
		if r.NodeType() != sgml.ElementNode {
			continue
		}
		require.Equal(t, strings.ToLower(r.Name()), r.Name())
		for i := 0; i < r.AttributeCount(); i++ {
			a, ok := r.AttributeAt(i)
			require.True(t, ok)
			require.Equal(t, strings.ToLower(a.Name), a.Name)
		}
	}
}

// TestTagInferenceTerminatesOnUnplaceableElement covers §8's termination
// invariant: when no container in the DTD can ever hold an element (here,
// a name the HTML DTD doesn't declare at all), tag inference gives up and
// admits it directly instead of looping.
func TestTagInferenceTerminatesOnUnplaceableElement(t *testing.T) {
	done := make(chan []event, 1)
	go func() {
		done <- drain(t, htmlReader(t, `<html><body><bogus-tag>z</bogus-tag></body></html>`))
	}()
	select {
	case got := <-done:
		require.NotEmpty(t, got)
	case <-time.After(2 * time.Second):
		t.Fatal("tag inference did not terminate")
	}
}
