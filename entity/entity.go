// Package entity implements the Entity reader (component C): a stack of
// input sources — external resource, internal literal, or a caller-supplied
// reader — with transparent line/column tracking and the primitive scanners
// both the DTD parser and the forgiving document parser are built on.
//
// Grounded on the teacher's entity.go/parserctx.go cursor primitives
// (curPeek/curAdvance/ScanToEnd KMP fallback/parseCharRef), generalized from
// a strict-XML entity model to the SGML one described in §3/§4.3.
package entity

import (
	"io"
	"unicode"
	"unicode/utf8"

	"github.com/sgml-go/sgml/encoding"
	"github.com/sgml-go/sgml/resolver"
)

// EOF is the sentinel returned by ReadChar/LastChar at end of stream, per
// §4.3: "last-char (... or the EOF sentinel U+FFFF)".
const EOF rune = '￿'

// Kind classifies how an Entity's content was obtained (§3).
type Kind int

const (
	KindInternalLiteral Kind = iota
	KindExternalURI
	KindReaderFromCaller
)

// LiteralType narrows an internal entity's content further, per §4.4's
// <!ENTITY ... (CDATA|SDATA|PI) "..."> typed-literal form.
type LiteralType int

const (
	LiteralNone LiteralType = iota
	LiteralCDATA
	LiteralSDATA
	LiteralPI
)

// Entity is a single named input source (§3). It forms a LIFO stack via
// Parent, owned by whoever opened the root entity.
type Entity struct {
	Name string
	Kind Kind

	PublicID  string
	SystemURI string
	Literal   string

	// ResolvedURI is the absolute URI after opening, used as the base for
	// further relative references and for error-context reporting.
	ResolvedURI string

	Parent *Entity

	LastChar      rune
	IsWhitespace  bool
	IsHTML        bool
	LiteralType   LiteralType
	Encoding      string

	Line      int
	LineStart int // rune offset in the buffer at which the current line begins

	chars   []rune
	pos     int
	stream  io.Closer
	owned   bool // true if this entity opened (and must close) its stream
	closed  bool
}

// NewInternal builds an entity over an in-memory literal (the common case
// for general/parameter entity expansion and for parser-supplied fragments).
func NewInternal(name, literal string, lit LiteralType, parent *Entity) *Entity {
	return &Entity{
		Name:        name,
		Kind:        KindInternalLiteral,
		Literal:     literal,
		LiteralType: lit,
		Parent:      parent,
		Line:        1,
		LastChar:    0,
	}
}

// NewExternal builds an entity that will be populated by Open from a
// resolver.Resolver.
func NewExternal(name, publicID, systemURI string, parent *Entity) *Entity {
	return &Entity{
		Name:      name,
		Kind:      KindExternalURI,
		PublicID:  publicID,
		SystemURI: systemURI,
		Parent:    parent,
		Line:      1,
	}
}

// Open fetches the entity's content. Internal entities need no I/O: their
// rune buffer is the literal itself. External entities are fetched through
// res, decoded via encoding.Decode (component B), and adopt the decoder's
// detected charset.
func (e *Entity) Open(res resolver.Resolver, baseURI string) error {
	switch e.Kind {
	case KindInternalLiteral:
		e.chars = []rune(e.Literal)
		e.ResolvedURI = baseURI
		if e.Parent != nil {
			e.IsHTML = e.Parent.IsHTML
		}
		return nil
	case KindExternalURI:
		resource, err := res.GetContent(baseURI, e.SystemURI)
		if err != nil {
			return &OpenError{Entity: e, Cause: err}
		}
		defer func() {
			if !e.owned {
				resource.Stream.Close()
			}
		}()

		isHTML := resource.MIME == "text/html" || strEqualFold(e.Name, "html")
		decoded, err := encoding.Decode(resource.Stream, resource.Encoding, isHTML)
		if err != nil {
			return &OpenError{Entity: e, Cause: err}
		}

		e.chars = []rune(string(decoded.Text))
		e.Encoding = decoded.Charset
		e.ResolvedURI = resource.RedirectURI
		if e.ResolvedURI == "" {
			e.ResolvedURI = e.SystemURI
		}
		e.IsHTML = isHTML
		e.stream = resource.Stream
		e.owned = true
		return nil
	default:
		return nil
	}
}

// Close releases the stream this entity owns, if any. Safe to call more
// than once.
func (e *Entity) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.owned && e.stream != nil {
		return e.stream.Close()
	}
	return nil
}

func strEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// ReadChar returns the next character, updating line/column and the
// is-whitespace flag (§4.3). CRLF is normalized: a CR (alone or followed by
// LF) or a lone LF bumps the line counter exactly once.
func (e *Entity) ReadChar() rune {
	if e.pos >= len(e.chars) {
		e.LastChar = EOF
		e.IsWhitespace = false
		return EOF
	}

	c := e.chars[e.pos]
	e.pos++

	if c == '\r' {
		if e.pos < len(e.chars) && e.chars[e.pos] == '\n' {
			e.pos++
		}
		c = '\n'
	}

	if c == '\n' {
		e.Line++
		e.LineStart = e.pos
	}

	e.LastChar = c
	e.IsWhitespace = c == ' ' || c == '\t' || c == '\n' || c == '\r'
	return c
}

// Peek returns the character that would be returned by the next ReadChar,
// without consuming it.
func (e *Entity) Peek() rune {
	if e.pos >= len(e.chars) {
		return EOF
	}
	c := e.chars[e.pos]
	if c == '\r' {
		return '\n'
	}
	return c
}

// EOFReached reports whether the entity's buffer is exhausted.
func (e *Entity) EOFReached() bool {
	return e.pos >= len(e.chars)
}

// Mark is a saved cursor position within a single entity's buffer, for the
// bounded lookahead the document parser needs to test for an upcoming end
// tag or a named/numeric character reference before committing to consume
// it (§4.5.1's PartialTag/PartialText states).
type Mark struct {
	pos          int
	line         int
	lineStart    int
	lastChar     rune
	isWhitespace bool
}

// Save captures the current cursor position.
func (e *Entity) Save() Mark {
	return Mark{pos: e.pos, line: e.Line, lineStart: e.LineStart, lastChar: e.LastChar, isWhitespace: e.IsWhitespace}
}

// Restore rewinds the cursor to a previously captured Mark. The Mark must
// have been taken from this same Entity.
func (e *Entity) Restore(m Mark) {
	e.pos = m.pos
	e.Line = m.line
	e.LineStart = m.lineStart
	e.LastChar = m.lastChar
	e.IsWhitespace = m.isWhitespace
}

// SkipWhitespace advances past {space, CR, LF, tab} and returns the first
// non-whitespace character encountered (or EOF).
func (e *Entity) SkipWhitespace() rune {
	for {
		c := e.Peek()
		if c == EOF || !(c == ' ' || c == '\t' || c == '\n' || c == '\r') {
			return c
		}
		e.ReadChar()
	}
}

// ScanToken accumulates characters until a byte in terminators or EOF. When
// nmtoken is true the first character must be '_' or a letter and each
// subsequent character must be a name character; a violation returns a
// *NameCharError along with the characters accepted before it.
func (e *Entity) ScanToken(terminators string, nmtoken bool) (string, error) {
	var buf []rune
	first := true
	for {
		c := e.Peek()
		if c == EOF || containsRune(terminators, c) {
			break
		}
		if nmtoken {
			if first {
				if !(c == '_' || unicode.IsLetter(c)) {
					return string(buf), &NameCharError{Char: c}
				}
			} else if !isNameChar(c) {
				return string(buf), &NameCharError{Char: c}
			}
		}
		buf = append(buf, c)
		e.ReadChar()
		first = false
	}
	return string(buf), nil
}

func isNameChar(c rune) bool {
	return c == '_' || c == '.' || c == '-' || c == ':' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

// ScanLiteral accumulates characters until the matching quote, expanding
// numeric character references inline via ExpandCharEntity. Named entity
// references other than numeric are kept verbatim (§4.3).
func (e *Entity) ScanLiteral(quote rune) (string, error) {
	var buf []rune
	startLine := e.Line
	for {
		c := e.Peek()
		if c == EOF {
			return string(buf), &UnterminatedLiteralError{Line: startLine}
		}
		if c == quote {
			e.ReadChar()
			break
		}
		if c == '&' {
			expanded, raw, ok := e.tryExpandEntityRef()
			if ok {
				buf = append(buf, expanded...)
				continue
			}
			buf = append(buf, raw...)
			continue
		}
		buf = append(buf, c)
		e.ReadChar()
	}
	return string(buf), nil
}

// tryExpandEntityRef attempts to consume a "&...;" reference at the current
// position. It only expands numeric references; a named reference is
// reported back verbatim via raw with ok=false so the caller preserves it.
func (e *Entity) tryExpandEntityRef() (expanded []rune, raw []rune, ok bool) {
	save := e.pos
	e.ReadChar() // consume '&'
	if e.Peek() == '#' {
		r, consumed, expandErr := e.scanNumericRef()
		if expandErr == nil {
			return []rune{r}, nil, true
		}
		e.pos = save
		e.ReadChar()
		_ = consumed
		return nil, []rune{'&'}, false
	}
	e.pos = save
	e.ReadChar()
	return nil, []rune{'&'}, false
}

func (e *Entity) scanNumericRef() (rune, string, error) {
	e.ReadChar() // consume '#'
	hex := false
	if e.Peek() == 'x' || e.Peek() == 'X' {
		hex = true
		e.ReadChar()
	}
	var digits []rune
	for {
		c := e.Peek()
		if hex {
			if !isHexDigit(c) {
				break
			}
		} else if !unicode.IsDigit(c) {
			break
		}
		digits = append(digits, c)
		e.ReadChar()
	}
	if e.Peek() != ';' || len(digits) == 0 {
		return 0, "", &InvalidCharRefError{}
	}
	e.ReadChar() // consume ';'

	cp := rune(parseNumericValue(digits, hex))
	if IsHighSurrogate(cp) {
		if lo, ok := e.ReadLowSurrogateRef(); ok {
			return CombineSurrogatePair(cp, lo), string(digits), nil
		}
	}
	if !ValidRune(cp) {
		return 0, string(digits), &InvalidCharRefError{}
	}

	return ExpandCharEntity(cp, e.IsHTML), string(digits), nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func parseNumericValue(digits []rune, hex bool) int64 {
	base := int64(10)
	if hex {
		base = 16
	}
	var val int64
	for _, d := range digits {
		var v int64
		switch {
		case d >= '0' && d <= '9':
			v = int64(d - '0')
		case d >= 'a' && d <= 'f':
			v = int64(d-'a') + 10
		case d >= 'A' && d <= 'F':
			v = int64(d-'A') + 10
		}
		val = val*base + v
	}
	return val
}

// IsHighSurrogate and IsLowSurrogate classify UTF-16 surrogate code points,
// which only ever appear in SGML/HTML numeric character references as one
// half of a pair (§4.3).
func IsHighSurrogate(r rune) bool { return r >= 0xD800 && r <= 0xDBFF }
func IsLowSurrogate(r rune) bool  { return r >= 0xDC00 && r <= 0xDFFF }

// CombineSurrogatePair reconstructs the scalar value a UTF-16 surrogate
// pair encodes.
func CombineSurrogatePair(hi, lo rune) rune {
	return 0x10000 + (hi-0xD800)<<10 + (lo - 0xDC00)
}

// ReadLowSurrogateRef attempts to consume an immediately following
// "&#…;"/"&#x…;" numeric character reference that decodes to a UTF-16 low
// surrogate, completing a surrogate pair split across two references
// (§4.3). The cursor is left untouched if what follows isn't one.
func (e *Entity) ReadLowSurrogateRef() (rune, bool) {
	mark := e.Save()
	if e.Peek() != '&' {
		return 0, false
	}
	e.ReadChar()
	if e.Peek() != '#' {
		e.Restore(mark)
		return 0, false
	}
	e.ReadChar()
	hex := false
	if e.Peek() == 'x' || e.Peek() == 'X' {
		hex = true
		e.ReadChar()
	}
	var digits []rune
	for {
		c := e.Peek()
		if hex {
			if !isHexDigit(c) {
				break
			}
		} else if !unicode.IsDigit(c) {
			break
		}
		digits = append(digits, c)
		e.ReadChar()
	}
	if e.Peek() != ';' || len(digits) == 0 {
		e.Restore(mark)
		return 0, false
	}
	lo := rune(parseNumericValue(digits, hex))
	if !IsLowSurrogate(lo) {
		e.Restore(mark)
		return 0, false
	}
	e.ReadChar() // consume ';'
	return lo, true
}

// win1252C1Table remaps the HTML-specific 0x80-0x9F control range onto the
// Windows-1252 characters browsers actually render there (§4.3).
var win1252C1Table = [32]rune{
	0x20AC, 0x0081, 0x201A, 0x0192, 0x201E, 0x2026, 0x2020, 0x2021,
	0x02C6, 0x2030, 0x0160, 0x2039, 0x0152, 0x008D, 0x017D, 0x008F,
	0x0090, 0x2018, 0x2019, 0x201C, 0x201D, 0x2022, 0x2013, 0x2014,
	0x02DC, 0x2122, 0x0161, 0x203A, 0x0153, 0x009D, 0x017E, 0x0178,
}

// ExpandCharEntity maps a decoded numeric character reference's code point
// through the Windows-1252 compatibility table when it falls in 0x80-0x9F
// and isHTML is set, leaving all other values unchanged.
func ExpandCharEntity(cp rune, isHTML bool) rune {
	if isHTML && cp >= 0x80 && cp <= 0x9F {
		return win1252C1Table[cp-0x80]
	}
	return cp
}

// ScanToEnd searches for a literal multi-character terminator (e.g. "-->",
// "]]>") using a KMP-style longest-proper-prefix fallback, returning the
// accumulated text before the terminator (§9a). When a partial match fails,
// the failure function keeps the longest proper prefix of the terminator
// that is also a suffix of what matched so far, so a terminator that starts
// inside a failed partial match is still found.
func (e *Entity) ScanToEnd(terminator string) (string, error) {
	term := []rune(terminator)
	fail := kmpFailureTable(term)

	var buf []rune
	startLine := e.Line
	matched := 0
	for {
		c := e.Peek()
		if c == EOF {
			return string(buf), &UnclosedBlockError{Line: startLine, Terminator: terminator}
		}
		e.ReadChar()

		for matched > 0 && c != term[matched] {
			matched = fail[matched-1]
		}
		if c == term[matched] {
			matched++
		}
		buf = append(buf, c)
		if matched == len(term) {
			return string(buf[:len(buf)-len(term)]), nil
		}
	}
}

func kmpFailureTable(pattern []rune) []int {
	fail := make([]int, len(pattern))
	k := 0
	for i := 1; i < len(pattern); i++ {
		for k > 0 && pattern[i] != pattern[k] {
			k = fail[k-1]
		}
		if pattern[i] == pattern[k] {
			k++
		}
		fail[i] = k
	}
	return fail
}

// ValidRune reports whether r is a Unicode scalar value (in range and not a
// surrogate); the numeric character reference scanners use it to reject
// references that decode to anything else.
func ValidRune(r rune) bool {
	return utf8.ValidRune(r) && r <= 0x10FFFF
}
