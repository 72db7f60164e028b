package sgml

import (
	"strings"

	"github.com/sgml-go/sgml/dtd"
	"github.com/sgml-go/sgml/internal/orderedmap"
)

// NodeType enumerates the kinds of frame the forgiving document parser
// pushes onto its element stack or surfaces as a node event (§3).
type NodeType int

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	WhitespaceNode
	CDATANode
	CommentNode
	ProcessingInstructionNode
	DocumentTypeNode
	EndElementNode
	AttributeNode
)

func (t NodeType) String() string {
	switch t {
	case DocumentNode:
		return "Document"
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case WhitespaceNode:
		return "Whitespace"
	case CDATANode:
		return "CDATA"
	case CommentNode:
		return "Comment"
	case ProcessingInstructionNode:
		return "ProcessingInstruction"
	case DocumentTypeNode:
		return "DocumentType"
	case EndElementNode:
		return "EndElement"
	case AttributeNode:
		return "Attribute"
	default:
		return "Unknown"
	}
}

// Attribute is a single attribute record on an element node (§3).
type Attribute struct {
	Name      string
	Value     string
	QuoteChar rune // '\'', '"', or 0 when unquoted/synthesized
	Def       *dtd.AttDef
}

// IsDefault reports whether Value came from the DTD's declared default
// rather than appearing literally in the source.
func (a Attribute) IsDefault() bool {
	return a.Def != nil && a.QuoteChar == 0 && a.Def.Presence != dtd.PresenceRequired
}

// node is a frame on the element stack (§3's "Parser node"). It is reused
// across pushes at the same depth (component F's high-water-mark stack),
// so Reset must fully clear mutable state without discarding the
// attribute map's backing storage.
type node struct {
	Type  NodeType
	Name  string
	Value string

	Prefix       string
	NamespaceURI string

	XMLSpace string
	XMLLang  string

	IsEmpty   bool
	Simulated bool

	DTDType *dtd.ElementDecl

	// seqPos is the document parser's cursor into DTDType.SequenceMembers()
	// (§4.5.5 rule 3's order-sensitive case): the index of the next
	// expected member name this element's content model hasn't yet seen a
	// child for. Irrelevant (left at 0) for non-sequence content models.
	seqPos int

	// Included/Excluded are the inherited inclusion/exclusion sets in
	// effect at this depth (§4.5.7), unioned down from ancestors.
	Included map[string]bool
	Excluded map[string]bool

	attrs      *orderedmap.Map[string, *Attribute]
	attrCursor int // MoveToAttribute/MoveToNextAttribute position, -1 = on element
}

func newNode() *node {
	return &node{attrs: orderedmap.New[string, *Attribute](), attrCursor: -1}
}

// reset clears n for reuse at the same stack depth, keeping the attribute
// map's backing array.
func (n *node) reset() {
	n.Type = 0
	n.Name = ""
	n.Value = ""
	n.Prefix = ""
	n.NamespaceURI = ""
	n.XMLSpace = ""
	n.XMLLang = ""
	n.IsEmpty = false
	n.Simulated = false
	n.DTDType = nil
	n.seqPos = 0
	n.Included = nil
	n.Excluded = nil
	n.attrCursor = -1
	if n.attrs == nil {
		n.attrs = orderedmap.New[string, *Attribute]()
		return
	}
	n.attrs.Reset()
}

func (n *node) includes(name string) bool {
	if n.Excluded != nil && n.Excluded[name] {
		return false
	}
	return n.Included != nil && n.Included[name]
}

// attrCount returns the number of attributes on this node.
func (n *node) attrCount() int {
	if n.attrs == nil {
		return 0
	}
	return n.attrs.Len()
}

func (n *node) attrAt(i int) (*Attribute, bool) {
	if n.attrs == nil {
		return nil, false
	}
	_, v, ok := n.attrs.At(i)
	return v, ok
}

func (n *node) attrByName(name string) (*Attribute, bool) {
	if n.attrs == nil {
		return nil, false
	}
	return n.attrs.Get(strings.ToLower(name))
}

// setAttr adds a, unless an attribute with the same name (compared
// case-insensitively) is already present, in which case the existing one is
// kept and a is dropped. §4.5.3: duplicate attribute names (second and
// later occurrences) are dropped; this method is also used to apply DTD
// defaults, which therefore never replace a literal attribute. The map key
// is folded to lowercase so a DTD-declared default and a literal attribute
// that differs only in case still collide instead of producing a duplicate
// (§8); a.Name itself keeps whatever casing the caller gave it.
func (n *node) setAttr(a *Attribute) {
	if n.attrs == nil {
		n.attrs = orderedmap.New[string, *Attribute]()
	}
	key := strings.ToLower(a.Name)
	if _, exists := n.attrs.Get(key); exists {
		return
	}
	_ = n.attrs.Set(key, a)
}
