package dtd

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sgml-go/sgml/entity"
	"github.com/sgml-go/sgml/resolver"
)

// Parser is a recursive consumer driven by an entity's primitive scanners
// (§4.4). It recognizes declarations starting with "<!" at the top level
// and dispatches to ENTITY/ELEMENT/ATTLIST/DOCTYPE/marked-section/comment
// handling, expanding parameter entities wherever a name, group, or
// fragment is expected.
type Parser struct {
	dtd     *DTD
	res     resolver.Resolver
	baseURI string
	cur     *entity.Entity

	groupDepth int
	pushDepths []int

	onError func(error)
}

// NewParser builds a DTD parser. onError, if non-nil, receives every
// recoverable error encountered (duplicate declarations, unsupported
// marked sections, undefined parameter entities); nil errors are never
// passed. res is used to open the external subset and any external
// parameter entities referenced during parsing.
func NewParser(res resolver.Resolver, onError func(error)) *Parser {
	return &Parser{res: res, onError: onError}
}

func (p *Parser) report(err error) {
	if err != nil && p.onError != nil {
		p.onError(err)
	}
}

// Parse consumes markup declarations from root (and any external subset or
// parameter entities it references) and returns the resulting DTD. rootName
// seeds the DTD's root element name; a <!DOCTYPE> declaration encountered
// during parsing may override it.
func (p *Parser) Parse(root *entity.Entity, baseURI, rootName string) (*DTD, error) {
	p.dtd = newDTD(rootName)
	p.baseURI = baseURI
	p.cur = root

	for {
		c := p.peek()
		if c == entity.EOF {
			break
		}
		if c == '%' {
			if err := p.expandParameterEntity(); err != nil {
				p.report(err)
				// Skip the reference itself to avoid spinning if expansion
				// failed outright (undefined entity).
				p.scanToken(";")
				if p.peek() == ';' {
					p.read()
				}
			}
			continue
		}
		if c != '<' {
			p.read()
			continue
		}
		if err := p.parseDeclaration(); err != nil {
			p.report(err)
		}
	}
	return p.dtd, nil
}

func (p *Parser) peek() rune {
	for {
		c := p.cur.Peek()
		if c != entity.EOF || p.cur.Parent == nil {
			return c
		}
		p.popEntity()
	}
}

func (p *Parser) read() rune {
	p.peek()
	return p.cur.ReadChar()
}

func (p *Parser) popEntity() {
	prevDepth := -1
	if len(p.pushDepths) > 0 {
		prevDepth = p.pushDepths[len(p.pushDepths)-1]
		p.pushDepths = p.pushDepths[:len(p.pushDepths)-1]
	}
	if prevDepth >= 0 && prevDepth != p.groupDepth {
		p.report(ErrEntityBoundaryDepth)
	}
	p.cur.Close()
	p.cur = p.cur.Parent
}

func (p *Parser) skipWS() {
	for {
		c := p.peek()
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.read()
			continue
		}
		break
	}
}

func isNameChar(c rune) bool {
	return c == '_' || c == '.' || c == '-' || c == ':' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

// scanName reads a name token and uppercases it, per §4.4: "element names
// are stored uppercased; attribute names likewise".
func (p *Parser) scanName() string {
	return strings.ToUpper(p.scanNameRaw())
}

// scanNameRaw reads a name token preserving case, used for entity names
// (which are referenced case-sensitively as &name;).
func (p *Parser) scanNameRaw() string {
	p.skipWS()
	var buf []rune
	for {
		c := p.peek()
		if c == entity.EOF || !isNameChar(c) {
			break
		}
		buf = append(buf, c)
		p.read()
	}
	return string(buf)
}

func (p *Parser) scanToken(terminators string) string {
	var buf []rune
	for {
		c := p.peek()
		if c == entity.EOF || strings.ContainsRune(terminators, c) {
			break
		}
		buf = append(buf, c)
		p.read()
	}
	return string(buf)
}

func (p *Parser) scanLiteral(quote rune) (string, error) {
	p.peek()
	lit, err := p.cur.ScanLiteral(quote)
	if err != nil {
		return lit, fmt.Errorf("dtd: %w", err)
	}
	return lit, nil
}

func (p *Parser) readLiteralOrToken() string {
	p.skipWS()
	c := p.peek()
	if c == '"' || c == '\'' {
		p.read()
		lit, _ := p.scanLiteral(c)
		return lit
	}
	return p.scanToken(" \t\r\n>")
}

// scanToEnd searches for term by repeated suffix comparison. DTD
// declarations are short enough that this is simpler than the KMP fallback
// used for entity-level scanning (which is exercised and tested there).
func (p *Parser) scanToEnd(term string) (string, error) {
	var buf []rune
	for {
		c := p.peek()
		if c == entity.EOF {
			return string(buf), fmt.Errorf("dtd: unclosed block, expected %q", term)
		}
		p.read()
		buf = append(buf, c)
		if len(buf) >= len(term) && string(buf[len(buf)-len(term):]) == term {
			return string(buf[:len(buf)-len(term)]), nil
		}
	}
}

func (p *Parser) expandParameterEntity() error {
	p.read() // consume '%'
	// A parameter entity's own name must not span an entity boundary, so
	// this scans p.cur directly rather than going through peek/read's
	// transparent cross-entity popping.
	name, err := p.cur.ScanToken(" \t\r\n;", true)
	if err != nil {
		p.scanToken(";")
		if p.peek() == ';' {
			p.read()
		}
		return fmt.Errorf("dtd: invalid parameter entity name: %w", err)
	}
	if p.peek() == ';' {
		p.read()
	}
	pe, ok := p.dtd.parameterEntities[name]
	if !ok {
		return fmt.Errorf("%w: %%%s;", errUndefinedParameterEntity, name)
	}

	var child *entity.Entity
	if pe.External {
		child = entity.NewExternal(name, pe.PublicID, pe.SystemURI, p.cur)
		if err := child.Open(p.res, p.baseURI); err != nil {
			return err
		}
	} else {
		child = entity.NewInternal(name, pe.Literal, entity.LiteralNone, p.cur)
		_ = child.Open(nil, p.baseURI)
	}
	p.pushDepths = append(p.pushDepths, p.groupDepth)
	p.cur = child
	return nil
}

func (p *Parser) parseDeclaration() error {
	p.read() // consume '<'
	c := p.peek()
	if c == '!' {
		p.read()
		return p.parseMarkupDecl()
	}
	if c == '?' {
		p.read()
		_, err := p.scanToEnd("?>")
		return err
	}
	_, err := p.scanToEnd(">")
	return err
}

func (p *Parser) parseMarkupDecl() error {
	if p.peek() == '-' {
		p.read()
		if p.peek() == '-' {
			p.read()
		}
		_, err := p.scanToEnd("-->")
		return err
	}
	if p.peek() == '[' {
		p.read()
		return p.parseMarkedSection()
	}

	word := p.scanName()
	switch word {
	case "ENTITY":
		return p.parseEntityDecl()
	case "ELEMENT":
		return p.parseElementDecl()
	case "ATTLIST":
		return p.parseAttlistDecl()
	case "DOCTYPE":
		return p.parseDoctypeDecl()
	default:
		_, err := p.scanToEnd(">")
		return err
	}
}

func (p *Parser) parseMarkedSection() error {
	p.skipWS()
	name := p.scanName()
	p.skipWS()
	if p.peek() == '[' {
		p.read()
	}
	switch name {
	case "IGNORE":
		_, err := p.scanToEnd("]]>")
		return err
	case "INCLUDE":
		_, err := p.scanToEnd("]]>")
		if err != nil {
			return err
		}
		return ErrIncludeUnsupported
	default:
		_, err := p.scanToEnd("]]>")
		return err
	}
}

func (p *Parser) parseDoctypeDecl() error {
	p.skipWS()
	name := p.scanNameRaw()
	if name != "" {
		p.dtd.Name = strings.ToUpper(name)
	}
	p.skipWS()

	switch p.peek() {
	case '"', '\'', '[', '>':
		// no external-id keyword
	default:
		word := p.scanToken(" \t\r\n[>\"'")
		switch strings.ToUpper(word) {
		case "PUBLIC":
			p.skipWS()
			q := p.peek()
			if q == '"' || q == '\'' {
				p.read()
				pub, _ := p.scanLiteral(q)
				p.dtd.PublicID = pub
			}
			p.skipWS()
			q2 := p.peek()
			if q2 == '"' || q2 == '\'' {
				p.read()
				sys, _ := p.scanLiteral(q2)
				p.dtd.SystemURI = sys
			}
		case "SYSTEM":
			p.skipWS()
			q := p.peek()
			if q == '"' || q == '\'' {
				p.read()
				sys, _ := p.scanLiteral(q)
				p.dtd.SystemURI = sys
			}
		}
	}

	p.skipWS()
	if p.peek() == '[' {
		p.read()
		if err := p.parseInternalSubset(); err != nil {
			return err
		}
		p.skipWS()
	}
	if p.peek() == '>' {
		p.read()
	}

	if p.dtd.SystemURI != "" {
		child := entity.NewExternal(p.dtd.Name, p.dtd.PublicID, p.dtd.SystemURI, p.cur)
		if err := child.Open(p.res, p.baseURI); err != nil {
			return err
		}
		p.cur = child
	}
	return nil
}

func (p *Parser) parseInternalSubset() error {
	for {
		c := p.peek()
		if c == entity.EOF {
			return errUnterminatedSubset
		}
		if c == ']' {
			p.read()
			return nil
		}
		if c == '%' {
			if err := p.expandParameterEntity(); err != nil {
				p.report(err)
			}
			continue
		}
		if c != '<' {
			p.read()
			continue
		}
		if err := p.parseDeclaration(); err != nil {
			p.report(err)
		}
	}
}

func (p *Parser) parseEntityDecl() error {
	p.skipWS()
	isParam := false
	if p.peek() == '%' {
		isParam = true
		p.read()
	}
	name := p.scanNameRaw()
	p.skipWS()

	ge := &GeneralEntity{Name: name}
	c := p.peek()
	switch {
	case c == '"' || c == '\'':
		p.read()
		lit, err := p.scanLiteral(c)
		if err != nil {
			return err
		}
		ge.Literal = lit
	default:
		word := p.scanToken(" \t\r\n\"'>")
		switch strings.ToUpper(word) {
		case "CDATA", "SDATA", "PI":
			p.skipWS()
			q := p.peek()
			if q == '"' || q == '\'' {
				p.read()
				lit, err := p.scanLiteral(q)
				if err != nil {
					return err
				}
				ge.Literal = lit
			}
		case "PUBLIC":
			p.skipWS()
			q := p.peek()
			if q == '"' || q == '\'' {
				p.read()
				pub, _ := p.scanLiteral(q)
				ge.PublicID = pub
			}
			p.skipWS()
			q2 := p.peek()
			if q2 == '"' || q2 == '\'' {
				p.read()
				sys, _ := p.scanLiteral(q2)
				ge.SystemURI = sys
			}
			ge.External = true
		case "SYSTEM":
			p.skipWS()
			q := p.peek()
			if q == '"' || q == '\'' {
				p.read()
				sys, _ := p.scanLiteral(q)
				ge.SystemURI = sys
			}
			ge.External = true
		}
	}
	p.skipWS()
	if p.peek() == '>' {
		p.read()
	}

	table := p.dtd.generalEntities
	dup := errDuplicateEntity
	if isParam {
		table = p.dtd.parameterEntities
	}
	if _, exists := table[name]; exists {
		p.report(fmt.Errorf("%w: %s", dup, name))
		return nil
	}
	table[name] = ge
	return nil
}

// skipParamEntityRefs transparently expands parameter entity references at
// the current scan position, per §4.4: parameter entity expansion can occur
// anywhere a name, group, or fragment is expected. Each reference pushes
// its replacement text onto the entity stack, so the caller's own scanning
// continues through it exactly as if the replacement text had appeared
// literally in place of the reference.
func (p *Parser) skipParamEntityRefs() {
	for p.peek() == '%' {
		if err := p.expandParameterEntity(); err != nil {
			p.report(err)
			p.scanToken(";")
			if p.peek() == ';' {
				p.read()
			}
		}
		p.skipWS()
	}
}

func (p *Parser) scanNameOrGroup() []string {
	p.skipWS()
	p.skipParamEntityRefs()
	if p.peek() != '(' {
		return []string{p.scanName()}
	}
	p.read()
	var names []string
	for {
		p.skipWS()
		p.skipParamEntityRefs()
		names = append(names, p.scanName())
		p.skipWS()
		if p.peek() == '|' {
			p.read()
			continue
		}
		break
	}
	if p.peek() == ')' {
		p.read()
	}
	return names
}

func (p *Parser) scanMinimizationChar() bool {
	p.skipWS()
	c := p.peek()
	switch c {
	case 'O', 'o':
		p.read()
		return true
	case '-':
		p.read()
		return false
	default:
		return false
	}
}

func connectorFor(c rune) Connector {
	switch c {
	case ',':
		return ConnSeq
	case '|':
		return ConnOr
	case '&':
		return ConnAnd
	}
	return ConnNone
}

func (p *Parser) scanOccurrence() Occurrence {
	switch p.peek() {
	case '?':
		p.read()
		return OccOptional
	case '+':
		p.read()
		return OccOneOrMore
	case '*':
		p.read()
		return OccZeroOrMore
	default:
		return OccRequired
	}
}

func (p *Parser) parseGroup() (*Group, error) {
	p.skipWS()
	p.skipParamEntityRefs()
	if p.peek() != '(' {
		name := p.scanToken(" \t\r\n,|&)?+*>")
		mixed := strings.ToUpper(name) == "#PCDATA"
		occ := p.scanOccurrence()
		return &Group{Member: strings.ToUpper(name), Occurrence: occ, Mixed: mixed}, nil
	}

	p.read() // consume '('
	p.groupDepth++
	defer func() { p.groupDepth-- }()

	g := &Group{}
	connector := ConnNone
	for {
		p.skipWS()
		p.skipParamEntityRefs()
		if p.peek() == '#' {
			tok := p.scanToken(" \t\r\n,|&)?+*>")
			if strings.ToUpper(tok) == "#PCDATA" {
				g.Mixed = true
			}
		} else {
			sub, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.Sub = append(g.Sub, sub)
		}
		p.skipWS()
		c := p.peek()
		if c == ',' || c == '|' || c == '&' {
			conn := connectorFor(c)
			if connector != ConnNone && connector != conn {
				return nil, errMixedConnectors
			}
			connector = conn
			p.read()
			continue
		}
		break
	}
	p.skipWS()
	if p.peek() == ')' {
		p.read()
	}
	g.Connector = connector
	g.Occurrence = p.scanOccurrence()
	return g, nil
}

func (p *Parser) parseContentModel() (DeclaredContent, *Group, error) {
	p.skipWS()
	p.skipParamEntityRefs()
	if p.peek() == '(' {
		g, err := p.parseGroup()
		return DeclaredDefault, g, err
	}
	word := p.scanToken(" \t\r\n>-+")
	switch strings.ToUpper(word) {
	case "EMPTY":
		return DeclaredEMPTY, nil, nil
	case "CDATA":
		return DeclaredCDATA, nil, nil
	case "RCDATA":
		return DeclaredRCDATA, nil, nil
	default:
		return DeclaredDefault, nil, fmt.Errorf("dtd: unknown content model %q", word)
	}
}

func (p *Parser) parseNameGroupSet() map[string]bool {
	set := map[string]bool{}
	p.skipWS()
	p.skipParamEntityRefs()
	if p.peek() != '(' {
		n := p.scanToken(" \t\r\n+->")
		if n != "" {
			set[strings.ToUpper(n)] = true
		}
		return set
	}
	p.read()
	for {
		p.skipWS()
		p.skipParamEntityRefs()
		n := p.scanToken(" \t\r\n|)")
		if n != "" {
			set[strings.ToUpper(n)] = true
		}
		p.skipWS()
		if p.peek() == '|' {
			p.read()
			continue
		}
		break
	}
	if p.peek() == ')' {
		p.read()
	}
	return set
}

func (p *Parser) parseElementDecl() error {
	p.skipWS()
	names := p.scanNameOrGroup()
	p.skipWS()
	startOpt := p.scanMinimizationChar()
	p.skipWS()
	endOpt := p.scanMinimizationChar()
	p.skipWS()

	declared, content, err := p.parseContentModel()
	if err != nil {
		return err
	}

	p.skipWS()
	var exclusions, inclusions map[string]bool
	if p.peek() == '-' {
		p.read()
		p.skipWS()
		exclusions = p.parseNameGroupSet()
		p.skipWS()
	}
	if p.peek() == '+' {
		p.read()
		p.skipWS()
		inclusions = p.parseNameGroupSet()
		p.skipWS()
	}
	if p.peek() == '>' {
		p.read()
	}

	for _, n := range names {
		if _, exists := p.dtd.elements[n]; exists {
			p.report(fmt.Errorf("%w: %s", errDuplicateElement, n))
		}
		p.dtd.elements[n] = &ElementDecl{
			Name:             n,
			StartTagOptional: startOpt,
			EndTagOptional:   endOpt,
			Content:          content,
			Declared:         declared,
			Inclusions:       inclusions,
			Exclusions:       exclusions,
		}
	}
	return nil
}

func (p *Parser) parseAttrType() (AttrType, []string) {
	p.skipWS()
	p.skipParamEntityRefs()
	if p.peek() == '(' {
		return AttrENUMERATION, p.parseNameGroupSetOrdered()
	}
	word := p.scanToken(" \t\r\n(")
	switch strings.ToUpper(word) {
	case "CDATA":
		return AttrCDATA, nil
	case "ID":
		return AttrID, nil
	case "IDREF":
		return AttrIDREF, nil
	case "IDREFS":
		return AttrIDREFS, nil
	case "NAME":
		return AttrNAME, nil
	case "NAMES":
		return AttrNAMES, nil
	case "NMTOKEN":
		return AttrNMTOKEN, nil
	case "NMTOKENS":
		return AttrNMTOKENS, nil
	case "NUMBER":
		return AttrNUMBER, nil
	case "NUMBERS":
		return AttrNUMBERS, nil
	case "NUTOKEN":
		return AttrNUTOKEN, nil
	case "NUTOKENS":
		return AttrNUTOKENS, nil
	case "ENTITY":
		return AttrENTITY, nil
	case "ENTITIES":
		return AttrENTITIES, nil
	case "NOTATION":
		p.skipWS()
		return AttrNOTATION, p.parseNameGroupSetOrdered()
	default:
		return AttrCDATA, nil
	}
}

func (p *Parser) parseNameGroupSetOrdered() []string {
	var vals []string
	p.skipWS()
	p.skipParamEntityRefs()
	if p.peek() != '(' {
		return vals
	}
	p.read()
	for {
		p.skipWS()
		p.skipParamEntityRefs()
		n := p.scanToken(" \t\r\n|)")
		if n != "" {
			vals = append(vals, strings.ToUpper(n))
		}
		p.skipWS()
		if p.peek() == '|' {
			p.read()
			continue
		}
		break
	}
	if p.peek() == ')' {
		p.read()
	}
	return vals
}

func (p *Parser) parseAttrDefault() (Presence, string) {
	p.skipWS()
	if p.peek() == '#' {
		word := p.scanToken(" \t\r\n>")
		switch strings.ToUpper(word) {
		case "#REQUIRED":
			return PresenceRequired, ""
		case "#IMPLIED":
			return PresenceImplied, ""
		case "#FIXED":
			return PresenceFixed, p.readLiteralOrToken()
		}
		return PresenceImplied, ""
	}
	return PresenceDefault, p.readLiteralOrToken()
}

func (p *Parser) parseAttlistDecl() error {
	names := p.scanNameOrGroup()
	for {
		p.skipWS()
		c := p.peek()
		if c == '>' || c == entity.EOF {
			break
		}
		name := p.scanName()
		if name == "" {
			break
		}
		p.skipWS()
		attrType, values := p.parseAttrType()
		p.skipWS()
		presence, def := p.parseAttrDefault()

		attdef := &AttDef{Name: name, Type: attrType, Values: values, Presence: presence, Default: def}
		for _, en := range names {
			decl, ok := p.dtd.elements[en]
			if !ok {
				decl = &ElementDecl{Name: en, StartTagOptional: true, EndTagOptional: true}
				p.dtd.elements[en] = decl
			}
			decl.addAttr(attdef)
		}
	}
	if p.peek() == '>' {
		p.read()
	}
	return nil
}
