package entity_test

import (
	"testing"

	"github.com/sgml-go/sgml/entity"
	"github.com/stretchr/testify/require"
)

func newOpenLiteral(t *testing.T, literal string) *entity.Entity {
	t.Helper()
	e := entity.NewInternal("test", literal, entity.LiteralNone, nil)
	require.NoError(t, e.Open(nil, ""))
	return e
}

func TestReadCharNormalizesCRLF(t *testing.T) {
	e := newOpenLiteral(t, "a\r\nb\rc\nd")
	var got []rune
	var lines []int
	for {
		c := e.ReadChar()
		if c == entity.EOF {
			break
		}
		got = append(got, c)
		lines = append(lines, e.Line)
	}
	require.Equal(t, []rune("a\nb\nc\nd"), got)
	require.Equal(t, []int{1, 2, 2, 3, 3, 4, 4}, lines)
}

func TestScanTokenNMTokenStopsAtInvalidChar(t *testing.T) {
	e := newOpenLiteral(t, "foo-bar=baz")
	tok, err := e.ScanToken("= >", true)
	require.NoError(t, err)
	require.Equal(t, "foo-bar", tok)
}

func TestScanTokenNMTokenRejectsBadFirstChar(t *testing.T) {
	e := newOpenLiteral(t, "1abc")
	_, err := e.ScanToken("= >", true)
	require.Error(t, err)
	var nameErr *entity.NameCharError
	require.ErrorAs(t, err, &nameErr)
}

func TestScanLiteralExpandsNumericRefsKeepsNamedVerbatim(t *testing.T) {
	e := newOpenLiteral(t, `a&#65;&amp;b"`)
	s, err := e.ScanLiteral('"')
	require.NoError(t, err)
	require.Equal(t, "aA&amp;b", s)
}

func TestScanLiteralUnterminatedIsError(t *testing.T) {
	e := newOpenLiteral(t, `no closing quote`)
	_, err := e.ScanLiteral('"')
	require.Error(t, err)
}

// TestScanLiteralCombinesSurrogatePair covers §4.3: a high surrogate numeric
// reference immediately followed by a low surrogate one (here, the UTF-16
// encoding of U+1F600) combines into the single scalar they together encode.
func TestScanLiteralCombinesSurrogatePair(t *testing.T) {
	e := newOpenLiteral(t, `&#55357;&#56832;"`)
	s, err := e.ScanLiteral('"')
	require.NoError(t, err)
	require.Equal(t, "\U0001F600", s)
}

// TestScanLiteralLoneHighSurrogateFallsBackToLiteralText covers §4.3: a high
// surrogate numeric reference with no matching low surrogate following it
// isn't a valid scalar value on its own, so (like an unresolvable named
// reference) it is left in the output verbatim rather than expanded.
func TestScanLiteralLoneHighSurrogateFallsBackToLiteralText(t *testing.T) {
	e := newOpenLiteral(t, `&#55357;x"`)
	s, err := e.ScanLiteral('"')
	require.NoError(t, err)
	require.Equal(t, "&#55357;x", s)
}

func TestExpandCharEntityWin1252Remap(t *testing.T) {
	require.Equal(t, rune(0x20AC), entity.ExpandCharEntity(0x80, true))
	require.Equal(t, rune(0x80), entity.ExpandCharEntity(0x80, false))
	require.Equal(t, rune(0x41), entity.ExpandCharEntity(0x41, true))
}

func TestScanToEndFindsTerminator(t *testing.T) {
	e := newOpenLiteral(t, " a comment --> tail")
	body, err := e.ScanToEnd("-->")
	require.NoError(t, err)
	require.Equal(t, " a comment ", body)

	rest, _ := e.ScanToken("", false)
	require.Equal(t, " tail", rest)
}

func TestScanToEndUnclosedIsError(t *testing.T) {
	e := newOpenLiteral(t, "never closes")
	_, err := e.ScanToEnd("-->")
	require.Error(t, err)
}

// TestScanToEndPartialMatchRewind exercises a terminator whose own prefix
// reoccurs inside itself ("aab", like "]]>", starts with a repeated rune).
// Against input "aaab" the partial match "aa" fails on the third 'a'; the
// KMP failure function keeps the trailing "a" as a new partial match
// instead of discarding it, so the terminator starting at the second 'a'
// is found. A restart that dropped the whole partial match would miss it.
func TestScanToEndPartialMatchRewind(t *testing.T) {
	e := newOpenLiteral(t, "xaaabY")
	body, err := e.ScanToEnd("aab")
	require.NoError(t, err)
	require.Equal(t, "xa", body)

	rest, _ := e.ScanToken("", false)
	require.Equal(t, "Y", rest)
}

func TestResolvePredefined(t *testing.T) {
	v, ok := entity.ResolvePredefined("amp")
	require.True(t, ok)
	require.Equal(t, "&", v)

	_, ok = entity.ResolvePredefined("nope")
	require.False(t, ok)
}
