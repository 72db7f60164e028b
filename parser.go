package sgml

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/sgml-go/sgml/entity"
)

// fill runs the character-level engine until at least one Event is queued,
// or the input (and every open element) is exhausted. Grounded on the
// teacher's parser.go main read loop, generalized from a single strict-XML
// grammar to the forgiving dispatch §4.5.1 describes.
func (r *Reader) fill() {
	for {
		if r.err != nil {
			r.inputExhausted = true
			return
		}
		if r.topLevelClosed && !r.cfg.AllowMultipleRoots {
			r.inputExhausted = true
			return
		}
		c := r.peekChar()
		if c == entity.EOF {
			r.flushAtEOF()
			r.inputExhausted = true
			return
		}
		if c == '<' {
			r.readMarkup()
		} else {
			text := r.scanText()
			r.emitText(text)
		}
		if len(r.queue) > 0 {
			return
		}
	}
}

// peekChar/readChar transparently pop exhausted entities back to their
// parent, so the engine never has to think about entity boundaries itself
// (§4.3's entity stack).
func (r *Reader) peekChar() rune {
	for {
		c := r.cur.Peek()
		if c != entity.EOF || r.cur.Parent == nil {
			return c
		}
		r.cur.Close()
		r.cur = r.cur.Parent
	}
}

func (r *Reader) readChar() rune {
	r.peekChar()
	return r.cur.ReadChar()
}

func (r *Reader) flushAtEOF() {
	for r.stack.len() > 0 {
		r.closeTop()
	}
}

func isNameChar(c rune) bool {
	return c == '_' || c == '.' || c == '-' || c == ':' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (r *Reader) scanNameTok() string {
	var buf []rune
	for {
		c := r.peekChar()
		if c == entity.EOF || !isNameChar(c) {
			break
		}
		buf = append(buf, c)
		r.readChar()
	}
	return string(buf)
}

// scanToEndStr is the Reader's own "scan to a literal terminator" primitive,
// deliberately simpler than entity.ScanToEnd's KMP search (§9b): comments
// and processing instructions in document content are short, so a naive
// suffix check is plenty and keeps this file independent of the entity
// package's internals.
func (r *Reader) scanToEndStr(term string) (string, error) {
	var buf []rune
	for {
		c := r.peekChar()
		if c == entity.EOF {
			return string(buf), fmt.Errorf("unclosed block, expected %q", term)
		}
		r.readChar()
		buf = append(buf, c)
		if len(buf) >= len(term) && string(buf[len(buf)-len(term):]) == term {
			return string(buf[:len(buf)-len(term)]), nil
		}
	}
}

func (r *Reader) reportDiagnostic(msg string) {
	r.cfg.ErrorLog.Report(Diagnostic{
		Message:    msg,
		EntityName: r.cur.Name,
		Chain:      entity.Chain(r.cur),
		Line:       r.cur.Line,
		Column:     r.cur.LineStart,
		SourceURI:  r.baseURI,
	})
}

// fail records a fatal parse error rooted at the reader's current entity
// position (§4.6/§7). Once set, fill stops advancing the character engine;
// already-queued events still drain, then Read returns false with Err set.
func (r *Reader) fail(sentinel error) {
	if r.err == nil {
		r.err = newParseError(r.cur, sentinel)
	}
	r.inputExhausted = true
}

// readMarkup dispatches on the character following '<' (§4.5.1's Markup
// state): '!' for comments/declarations, '?' for processing instructions,
// '/' for end tags, anything else for a start tag.
func (r *Reader) readMarkup() {
	r.readChar() // consume '<'
	c := r.peekChar()
	switch c {
	case '!':
		r.readChar()
		r.trace().Debug("markup dispatch", slog.String("kind", "declaration"))
		r.readDeclMarkup()
	case '?':
		r.readChar()
		r.trace().Debug("markup dispatch", slog.String("kind", "processing-instruction"))
		r.readPI()
	case '/':
		r.readChar()
		r.trace().Debug("markup dispatch", slog.String("kind", "end-tag"))
		r.readEndTag()
	default:
		r.trace().Debug("markup dispatch", slog.String("kind", "start-tag"))
		r.readStartTag()
	}
}

func (r *Reader) readDeclMarkup() {
	if r.peekChar() == '-' {
		r.readChar()
		if r.peekChar() == '-' {
			r.readChar()
		}
		body, err := r.scanToEndStr("-->")
		if err != nil {
			r.fail(ErrUnclosedComment)
			return
		}
		r.queue = append(r.queue, &Event{Type: CommentNode, Value: body, Depth: r.stack.len() + 1})
		return
	}

	word := r.scanNameTok()
	if strings.EqualFold(word, "DOCTYPE") {
		r.skipDoctype()
		return
	}
	// Unrecognized markup declaration (e.g. a marked section in the
	// document instance): drop it rather than fail the parse.
	r.reportDiagnostic("skipping unrecognized declaration <!" + word)
	r.scanToEndStr(">")
}

// skipDoctype consumes a <!DOCTYPE ...> declaration appearing in the
// document instance itself, respecting a bracketed internal subset, and
// surfaces it as a DocumentTypeNode unless the caller asked to strip it.
func (r *Reader) skipDoctype() {
	var buf []rune
	var name []rune
	depth := 0
	nameDone := false
	for {
		c := r.peekChar()
		if c == entity.EOF {
			break
		}
		if c == '[' {
			depth++
		}
		if c == ']' && depth > 0 {
			depth--
		}
		if c == '>' && depth == 0 {
			r.readChar()
			break
		}
		if !nameDone {
			if unicode.IsSpace(c) {
				if len(name) > 0 {
					nameDone = true
				}
			} else {
				name = append(name, c)
			}
		}
		buf = append(buf, c)
		r.readChar()
	}
	if len(name) > 0 && r.cfg.DTD != nil && r.dtdModel != nil && !strings.EqualFold(r.dtdModel.Name, string(name)) {
		r.fail(ErrDoctypeMismatch)
		return
	}
	if !r.cfg.StripDocType {
		r.queue = append(r.queue, &Event{Type: DocumentTypeNode, Value: strings.TrimSpace(string(buf)), Depth: r.stack.len() + 1})
	}
}

func (r *Reader) readPI() {
	target := r.scanNameTok()
	body, err := r.scanToEndStr("?>")
	if err != nil {
		r.reportDiagnostic("unclosed processing instruction at end of input")
		return
	}
	r.queue = append(r.queue, &Event{Type: ProcessingInstructionNode, Name: target, Value: strings.TrimSpace(body), Depth: r.stack.len() + 1})
}

func (r *Reader) skipToGT() {
	for {
		c := r.peekChar()
		if c == entity.EOF {
			return
		}
		if c == '>' {
			r.readChar()
			return
		}
		r.readChar()
	}
}

func (r *Reader) readEndTag() {
	name := r.scanNameTok()
	r.skipToGT()
	if name == "" {
		return
	}
	depth := -1
	for i := r.stack.len() - 1; i >= 0; i-- {
		if strings.EqualFold(r.stack.at(i).Name, name) {
			depth = i
			break
		}
	}
	if depth < 0 {
		r.reportDiagnostic("unmatched end tag </" + name + ">")
		return
	}
	for r.stack.len()-1 > depth {
		r.closeTop()
	}
	r.closeTop()
}

func (r *Reader) readStartTag() {
	name := r.scanNameTok()
	if name == "" {
		// A bare '<' that isn't followed by a name is just text.
		r.queue = append(r.queue, &Event{Type: TextNode, Value: "<", Depth: r.stack.len() + 1})
		return
	}
	attrs, selfClosing := r.scanAttributes()
	r.openElement(name, attrs, selfClosing)
}

// scanAttributes scans the attribute list of a start tag (§4.5.3),
// tolerating missing '=' (value defaults to the name itself), unquoted
// values, and stray punctuation between attributes, and dropping invalid
// names and duplicate attributes (reported, not fatal).
func (r *Reader) scanAttributes() ([]Attribute, bool) {
	var attrs []Attribute
	seen := map[string]bool{}
	for {
		c := r.skipAttrSeparators()
		if c == entity.EOF {
			return attrs, false
		}
		if c == '>' {
			r.readChar()
			return attrs, false
		}
		if c == '/' {
			r.readChar()
			if r.peekChar() == '>' {
				r.readChar()
				return attrs, true
			}
			continue
		}

		name := r.scanAttrName()
		if name == "" {
			r.readChar() // avoid looping forever on an unexpected character
			continue
		}

		c2 := r.skipWSOnly()
		var value string
		var quote rune
		if c2 == '=' {
			r.readChar()
			r.skipWSOnly()
			q := r.peekChar()
			if q == '"' || q == '\'' {
				r.readChar()
				value = r.scanAttrLiteral(q)
				quote = q
			} else {
				value = r.scanAttrUnquoted()
			}
		} else {
			value = name
		}

		if !isValidAttrName(name) {
			r.reportDiagnostic("dropping invalid attribute name " + name)
			continue
		}
		foldedName := r.foldCase(name)
		key := strings.ToLower(foldedName)
		if seen[key] {
			r.reportDiagnostic("dropping duplicate attribute " + name)
			continue
		}
		seen[key] = true
		attrs = append(attrs, Attribute{Name: foldedName, Value: value, QuoteChar: quote})
	}
}

func (r *Reader) skipAttrSeparators() rune {
	for {
		c := r.peekChar()
		switch c {
		case ' ', '\t', '\n', '\r', ',', ';', ':':
			r.readChar()
			continue
		}
		return c
	}
}

func (r *Reader) skipWSOnly() rune {
	for {
		c := r.peekChar()
		if isSpace(c) {
			r.readChar()
			continue
		}
		return c
	}
}

func (r *Reader) scanAttrName() string {
	var buf []rune
	for {
		c := r.peekChar()
		if c == entity.EOF || c == '=' || c == '>' || c == '/' || isSpace(c) {
			break
		}
		buf = append(buf, c)
		r.readChar()
	}
	return string(buf)
}

func (r *Reader) scanAttrUnquoted() string {
	var buf []rune
	for {
		c := r.peekChar()
		if c == entity.EOF || c == '>' || isSpace(c) {
			break
		}
		buf = append(buf, c)
		r.readChar()
	}
	return string(buf)
}

func (r *Reader) scanAttrLiteral(quote rune) string {
	var buf []rune
	for {
		c := r.peekChar()
		if c == entity.EOF {
			break
		}
		if c == quote {
			r.readChar()
			break
		}
		if c == '&' {
			if lit, ok := r.tryExpandReference(); ok {
				buf = append(buf, []rune(lit)...)
				continue
			}
		}
		buf = append(buf, c)
		r.readChar()
	}
	return string(buf)
}

func isValidAttrName(name string) bool {
	if name == "" {
		return false
	}
	runes := []rune(name)
	if !(unicode.IsLetter(runes[0]) || runes[0] == '_' || runes[0] == ':') {
		return false
	}
	for _, c := range runes[1:] {
		if !isNameChar(c) {
			return false
		}
	}
	return true
}

// scanText reads plain character data up to the next '<' or end of input,
// expanding entity references as it goes (§4.5.1's Text state).
func (r *Reader) scanText() string {
	var buf []rune
	for {
		c := r.peekChar()
		if c == entity.EOF || c == '<' {
			break
		}
		if c == '&' {
			if lit, ok := r.tryExpandReference(); ok {
				buf = append(buf, []rune(lit)...)
				continue
			}
		}
		buf = append(buf, c)
		r.readChar()
	}
	return string(buf)
}

// tryExpandReference attempts to consume a "&...;" reference at the current
// position, trying numeric references first and falling back to predefined
// and DTD-declared general entities (§9b: the document parser's reference
// scanning additionally consults the DTD and is tolerant of unterminated
// references, unlike entity.ScanLiteral's narrower numeric-only expansion).
// On failure it restores the cursor and returns ok=false, leaving the '&'
// for the caller to treat as a literal character.
func (r *Reader) tryExpandReference() (string, bool) {
	cur := r.cur
	mark := cur.Save()
	cur.ReadChar() // consume '&'

	if cur.Peek() == '#' {
		cur.ReadChar()
		hex := false
		if cur.Peek() == 'x' || cur.Peek() == 'X' {
			hex = true
			cur.ReadChar()
		}
		var digits []rune
		for {
			c := cur.Peek()
			if hex {
				if !isHexDigit(c) {
					break
				}
			} else if c < '0' || c > '9' {
				break
			}
			digits = append(digits, c)
			cur.ReadChar()
		}
		if cur.Peek() == ';' && len(digits) > 0 {
			cur.ReadChar()
			cp := rune(parseDigits(digits, hex))
			if entity.IsHighSurrogate(cp) {
				if lo, ok := cur.ReadLowSurrogateRef(); ok {
					return string(entity.CombineSurrogatePair(cp, lo)), true
				}
			}
			if !entity.ValidRune(cp) {
				r.reportDiagnostic("invalid numeric character reference")
				cur.Restore(mark)
				return "", false
			}
			return string(entity.ExpandCharEntity(cp, cur.IsHTML)), true
		}
		cur.Restore(mark)
		return "", false
	}

	var name []rune
	for {
		c := cur.Peek()
		if c == entity.EOF || !isNameChar(c) {
			break
		}
		name = append(name, c)
		cur.ReadChar()
	}
	if cur.Peek() != ';' || len(name) == 0 {
		cur.Restore(mark)
		return "", false
	}
	cur.ReadChar() // consume ';'

	nameStr := string(name)
	if lit, ok := entity.ResolvePredefined(nameStr); ok {
		return lit, true
	}
	if r.dtdModel != nil {
		if ge, ok := r.dtdModel.GeneralEntity(nameStr); ok {
			return ge.Literal, true
		}
	}
	r.reportDiagnostic("unknown entity reference &" + nameStr + ";")
	return "&" + nameStr + ";", true
}

func parseDigits(digits []rune, hex bool) int64 {
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

// readCDataContent reads raw characters (no entity expansion), recognizing
// only <!--...--> comments, <?...?> processing instructions, and the
// literal end tag for name, which it consumes. Nested <![CDATA[, ]]>, /*,
// and */ markers are stripped from the emitted text; everything else
// (including a "</other>" that doesn't match name) is preserved verbatim.
// Used for CDATA/RCDATA-declared elements like <script>/<style> (§4.5.8).
// ok is false if input ran out before the end tag appeared.
func (r *Reader) readCDataContent(name string) (string, bool) {
	var buf []rune
	for {
		c := r.peekChar()
		if c == entity.EOF {
			return string(buf), false
		}
		if c == '<' {
			if r.matchesEndTag(name) {
				return string(buf), true
			}
			if r.consumeLiteralMarker("<![CDATA[") {
				continue
			}
			if text, ok := r.consumeCommentOrPI(); ok {
				buf = append(buf, []rune(text)...)
				continue
			}
		}
		if (c == ']' && r.consumeLiteralMarker("]]>")) ||
			(c == '/' && r.consumeLiteralMarker("/*")) ||
			(c == '*' && r.consumeLiteralMarker("*/")) {
			continue
		}
		buf = append(buf, c)
		r.readChar()
	}
}

// consumeLiteralMarker consumes marker at the current position if it
// appears there literally, reporting whether it matched. Used to strip the
// <![CDATA[ / ]]> / /* / */ markers script/style content is conventionally
// wrapped in for old-browser compatibility (§4.5.8).
func (r *Reader) consumeLiteralMarker(marker string) bool {
	cur := r.cur
	mark := cur.Save()
	for _, want := range marker {
		if r.peekChar() != want {
			cur.Restore(mark)
			return false
		}
		r.readChar()
	}
	return true
}

// consumeCommentOrPI consumes a "<!--...-->" comment or "<?...?>" processing
// instruction starting at the current '<', returning its full literal text
// (delimiters included) so CDATA-content scanning keeps treating a
// "</name>"-shaped sequence inside one as ordinary text (§4.5.8). Returns
// ok=false (cursor untouched) if neither construct starts here, or if the
// terminator never appears before end of input.
func (r *Reader) consumeCommentOrPI() (string, bool) {
	cur := r.cur
	mark := cur.Save()
	r.readChar() // consume '<'

	var buf []rune
	var term string
	switch {
	case r.peekChar() == '!':
		r.readChar()
		if r.peekChar() != '-' {
			cur.Restore(mark)
			return "", false
		}
		r.readChar()
		if r.peekChar() != '-' {
			cur.Restore(mark)
			return "", false
		}
		r.readChar()
		buf = []rune("<!--")
		term = "-->"
	case r.peekChar() == '?':
		r.readChar()
		buf = []rune("<?")
		term = "?>"
	default:
		cur.Restore(mark)
		return "", false
	}

	for {
		c := r.peekChar()
		if c == entity.EOF {
			cur.Restore(mark)
			return "", false
		}
		buf = append(buf, c)
		r.readChar()
		if len(buf) >= len(term) && string(buf[len(buf)-len(term):]) == term {
			return string(buf), true
		}
	}
}

func (r *Reader) matchesEndTag(name string) bool {
	cur := r.cur
	mark := cur.Save()
	r.readChar() // consume '<'
	if r.peekChar() != '/' {
		cur.Restore(mark)
		return false
	}
	r.readChar() // consume '/'

	var got []rune
	for i := 0; i < len(name); i++ {
		c := r.peekChar()
		if c == entity.EOF {
			cur.Restore(mark)
			return false
		}
		got = append(got, c)
		r.readChar()
	}
	if !strings.EqualFold(string(got), name) {
		cur.Restore(mark)
		return false
	}
	for isSpace(r.peekChar()) {
		r.readChar()
	}
	if r.peekChar() != '>' {
		cur.Restore(mark)
		return false
	}
	r.readChar() // consume '>'
	return true
}
