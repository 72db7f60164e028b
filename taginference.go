package sgml

import (
	"log/slog"
	"strings"

	"github.com/sgml-go/sgml/dtd"
)

// openElement admits name onto the element stack: it runs tag inference
// (synthesizing a missing root, auto-closing ancestors, or inserting
// skipped optional siblings, per §4.5.5/§4.5.6) and then pushes the real,
// explicitly-tagged frame.
func (r *Reader) openElement(name string, attrs []Attribute, selfClosing bool) {
	if !r.rootSeen {
		r.ensureRoot(name)
	} else {
		r.ensureElementAdmitted(name)
	}
	if r.err != nil {
		return
	}
	r.trace().Debug("admitting element", slog.String("name", name))
	r.pushFrame(name, false, attrs, selfClosing)
}

// ensureRoot implements §4.5.5 rule 1: if a DTD is loaded and its root
// element doesn't match the first start tag seen, and the declared root's
// start tag is optional, synthesize it before admitting the real first
// element underneath it.
func (r *Reader) ensureRoot(name string) {
	r.rootSeen = true
	if r.dtdModel == nil {
		return
	}
	root, ok := r.dtdModel.Root()
	if !ok || strings.EqualFold(root.Name, name) {
		return
	}
	if root.StartTagOptional {
		r.trace().Debug("synthesizing root", slog.String("root", root.Name), slog.String("for", name))
		r.pushSynthetic(root.Name)
		r.ensureElementAdmitted(name)
		return
	}
	r.fail(ErrRequiredRootMissing)
}

// ensureElementAdmitted implements §4.5.5 rule 3 and §4.5.6: repeatedly
// check whether name is a legal child of the current top-of-stack element,
// and if not, either synthesize a chain of skipped optional-start-tag
// siblings (the order-sensitive case, via SequenceMembers) or auto-close
// ancestors whose end tag is optional until one admits name or none can.
func (r *Reader) ensureElementAdmitted(name string) {
	for {
		depth := r.stack.len() - 1
		if depth < 0 {
			return
		}
		top := r.stack.at(depth)
		decl := top.DTDType
		if decl == nil {
			return
		}

		if members, ok := decl.SequenceMembers(); ok {
			if r.admitViaSequence(depth, members, name) {
				return
			}
			// No remaining sequence member is, or can contain, name; fall
			// through to the general auto-close/BFS recovery below.
		} else if decl.CanContainChild(name) {
			return
		}

		top = r.stack.top()
		if top.includes(strings.ToUpper(name)) {
			return
		}
		if top.DTDType != nil && top.DTDType.EndTagOptional && !r.isProtectedFrame(top) {
			r.trace().Debug("auto-closing", slog.String("name", top.Name), slog.String("for", name))
			r.closeTop()
			continue
		}
		if top.DTDType != nil {
			if chain := r.dtdModel.FindOptionalContainers(top.DTDType, name); chain != nil {
				r.trace().Debug("synthesizing containers", slog.Int("count", len(chain)), slog.String("for", name))
				for _, c := range chain {
					r.pushSynthetic(c.Name)
				}
				return
			}
		}
		return
	}
}

// admitViaSequence implements §4.5.5 rule 3's order-sensitive case for a
// top-level sequence content model (e.g. HTML's (HEAD, BODY)): starting at
// the frame's current cursor into members, it walks forward looking for a
// slot that either is name itself or whose own content model can contain
// name. Slots skipped along the way are synthesized as empty open-close
// siblings, provided each is itself start-tag-optional; the slot that
// resolves the search is either an exact match (cursor advances past it,
// nothing is pushed — the caller pushes the real frame) or a container
// (pushed and left open, so the real frame nests inside it). Returns false,
// leaving the stack untouched beyond any already-synthesized siblings, if
// no remaining slot can place name at all.
func (r *Reader) admitViaSequence(depth int, members []string, name string) bool {
	top := r.stack.at(depth)
	idx := top.seqPos

	for i := idx; i < len(members); i++ {
		exact := strings.EqualFold(members[i], name)
		child, exists := r.dtdModel.Element(members[i])

		if exact {
			r.trace().Debug("sequence slot matched", slog.String("member", members[i]))
			if f := r.stack.at(depth); f != nil {
				f.seqPos = i + 1
			}
			return true
		}
		if exists && child.CanContainChild(name) {
			r.trace().Debug("sequence slot container", slog.String("member", members[i]), slog.String("for", name))
			r.pushSynthetic(members[i])
			if f := r.stack.at(depth); f != nil {
				f.seqPos = i + 1
			}
			return true
		}
		if !exists || !child.StartTagOptional {
			return false
		}
		r.trace().Debug("sequence slot skipped", slog.String("member", members[i]))
		r.pushSynthetic(members[i])
		r.closeTop()
		if f := r.stack.at(depth); f != nil {
			f.seqPos = i + 1
		}
	}
	return false
}

// isProtectedFrame reports the one carve-out to auto-close: BODY at depth 2
// is never auto-closed out from under an incoming element, because doing
// so would routinely orphan the rest of the document (§4.5.6).
func (r *Reader) isProtectedFrame(top *node) bool {
	return strings.EqualFold(top.Name, "body") && r.stack.len() == 2
}

// lookupDecl looks up name's element declaration in the loaded DTD, if any.
func (r *Reader) lookupDecl(name string) (*dtd.ElementDecl, bool) {
	if r.dtdModel == nil {
		return nil, false
	}
	return r.dtdModel.Element(name)
}

func (r *Reader) foldCase(name string) string {
	switch r.cfg.CaseFolding {
	case CaseFoldingToUpper:
		return strings.ToUpper(name)
	case CaseFoldingToLower:
		return strings.ToLower(name)
	default:
		return name
	}
}

// pushSynthetic pushes a simulated element frame: the tag-inference engine
// has already decided name belongs here, so no further admission check
// runs (avoiding infinite recursion between ensureElementAdmitted and
// itself).
func (r *Reader) pushSynthetic(name string) {
	r.pushFrame(name, true, nil, false)
}

// pushFrame pushes a new element frame, computes its namespace/inherited
// scope, applies DTD attribute defaults, emits the corresponding Event, and
// — for EMPTY or CDATA/RCDATA-declared content — immediately handles the
// element's trivial body and closes it back out.
func (r *Reader) pushFrame(name string, simulated bool, attrs []Attribute, selfClosing bool) {
	decl, _ := r.lookupDecl(name)
	foldedName := r.foldCase(name)
	parent := r.stack.top()
	isEmpty := selfClosing || (decl != nil && decl.Declared == dtd.DeclaredEMPTY)

	frame := r.stack.push()
	frame.Type = ElementNode
	frame.Name = foldedName
	frame.DTDType = decl
	frame.IsEmpty = isEmpty
	frame.Simulated = simulated
	if parent != nil {
		frame.XMLSpace = parent.XMLSpace
		frame.XMLLang = parent.XMLLang
	}

	incl := map[string]bool{}
	excl := map[string]bool{}
	if parent != nil {
		for k := range parent.Included {
			incl[k] = true
		}
		for k := range parent.Excluded {
			excl[k] = true
		}
	}
	if decl != nil {
		for k := range decl.Inclusions {
			incl[k] = true
		}
		for k := range decl.Exclusions {
			excl[k] = true
		}
	}
	frame.Included = incl
	frame.Excluded = excl

	for i := range attrs {
		a := attrs[i]
		switch strings.ToLower(a.Name) {
		case "xml:space":
			frame.XMLSpace = a.Value
		case "xml:lang":
			frame.XMLLang = a.Value
		}
		frame.setAttr(&a)
	}
	if decl != nil {
		for _, ad := range decl.Attrs() {
			if ad.Presence == dtd.PresenceDefault || ad.Presence == dtd.PresenceFixed {
				if _, exists := frame.attrByName(ad.Name); !exists {
					frame.setAttr(&Attribute{Name: r.foldCase(ad.Name), Value: ad.Default, Def: ad})
				}
			}
		}
	}

	prefix, nsURI := r.resolveNamespaceFor(foldedName)
	ev := &Event{
		Type:         ElementNode,
		Name:         foldedName,
		Prefix:       prefix,
		NamespaceURI: nsURI,
		IsEmpty:      isEmpty,
		Simulated:    simulated,
		Depth:        r.stack.len(),
		XMLSpace:     frame.XMLSpace,
		XMLLang:      frame.XMLLang,
	}
	ev.attrs = frameAttrs(frame)
	ev.attrCursor = -1
	r.queue = append(r.queue, ev)

	if isEmpty {
		r.closeTop()
		return
	}
	if decl != nil && (decl.Declared == dtd.DeclaredCDATA || decl.Declared == dtd.DeclaredRCDATA) {
		content, ok := r.readCDataContent(foldedName)
		if content != "" {
			r.queue = append(r.queue, &Event{Type: CDATANode, Value: content, Depth: r.stack.len() + 1})
		}
		if !ok {
			r.fail(ErrUnclosedCDATA)
			return
		}
		r.closeTop()
	}
}

func frameAttrs(frame *node) []Attribute {
	n := frame.attrCount()
	if n == 0 {
		return nil
	}
	out := make([]Attribute, 0, n)
	for i := 0; i < n; i++ {
		a, _ := frame.attrAt(i)
		out = append(out, *a)
	}
	return out
}

// closeTop pops the current top-of-stack frame and emits its matching
// EndElement event. Once the root element closes, further top-level
// content is subject to fragment conformance (§4.5.10).
func (r *Reader) closeTop() {
	frame := r.stack.top()
	name := frame.Name
	depth := r.stack.len()
	r.stack.pop()
	r.queue = append(r.queue, &Event{Type: EndElementNode, Name: name, Depth: depth})
	if r.stack.len() == 0 && r.rootSeen {
		r.topLevelClosed = true
	}
}

// ensureRootForText applies §4.5.5 rule 1 to character data that appears
// before any start tag: if the DTD declares a root whose start tag is
// optional, synthesize it so the text has somewhere to land (the caller's
// own rule-2 container search then carries it the rest of the way down).
func (r *Reader) ensureRootForText() {
	r.rootSeen = true
	if r.dtdModel == nil {
		return
	}
	root, ok := r.dtdModel.Root()
	if !ok || !root.StartTagOptional {
		return
	}
	r.pushSynthetic(root.Name)
}

// emitText implements §4.5.5 rule 2 (synthesizing a container for text
// where the current element can't hold #PCDATA) and §4.5.9's whitespace
// policy.
func (r *Reader) emitText(raw string) {
	if raw == "" {
		return
	}

	if r.stack.len() == 0 {
		r.ensureRootForText()
	}

	top := r.stack.top()
	if top != nil && top.DTDType != nil && !top.DTDType.CanContainText() {
		if r.dtdModel == nil {
			return
		}
		chain := r.dtdModel.FindTextContainer(top.DTDType)
		if chain == nil {
			return // no legal place for this text; drop it
		}
		for _, c := range chain {
			r.pushSynthetic(c.Name)
		}
	}

	isWS := isAllWhitespace(raw)
	if isWS && r.cfg.WhitespaceHandling != WhitespaceAll {
		return
	}

	value := applyTextWhitespace(raw, r.cfg.TextWhitespace)
	if value == "" {
		return
	}

	nodeType := TextNode
	if isWS {
		nodeType = WhitespaceNode
	}
	r.queue = append(r.queue, &Event{Type: nodeType, Value: value, Depth: r.stack.len() + 1})
}

func isAllWhitespace(s string) bool {
	for _, c := range s {
		if !isSpace(c) {
			return false
		}
	}
	return true
}

func applyTextWhitespace(s string, flags TextWhitespaceFlag) string {
	if flags == 0 {
		return s
	}
	cutset := " \t\n\r"
	if flags&OnlyLineBreaks != 0 {
		cutset = "\n\r"
	}
	if flags&TrimLeading != 0 {
		s = strings.TrimLeft(s, cutset)
	}
	if flags&TrimTrailing != 0 {
		s = strings.TrimRight(s, cutset)
	}
	return s
}
