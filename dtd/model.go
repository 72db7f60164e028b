// Package dtd implements the DTD Model and DTD Parser (components D and E):
// an in-memory model of element declarations, attribute definitions, and
// content-model groups, built by parsing <!ENTITY>, <!ELEMENT>, <!ATTLIST>,
// marked sections and parameter entities out of an entity stream.
//
// Grounded on the teacher's dtd.go (entity tables, attribute registration,
// element lookup by name) and valid.go (ElementContent construction),
// generalized from strict-XML element-content groups to SGML content
// models carrying inclusions/exclusions/declared-content (§4.4).
package dtd

import "strings"

// AttrType enumerates the attribute value types §3 names.
type AttrType int

const (
	AttrCDATA AttrType = iota
	AttrID
	AttrIDREF
	AttrIDREFS
	AttrNAME
	AttrNAMES
	AttrNMTOKEN
	AttrNMTOKENS
	AttrNUMBER
	AttrNUMBERS
	AttrNUTOKEN
	AttrNUTOKENS
	AttrENTITY
	AttrENTITIES
	AttrNOTATION
	AttrENUMERATION
	AttrDefaultType
)

// Presence enumerates an attribute's default-value kind.
type Presence int

const (
	PresenceDefault Presence = iota
	PresenceFixed
	PresenceRequired
	PresenceImplied
)

// AttDef is an attribute definition (§3).
type AttDef struct {
	Name       string
	Type       AttrType
	Values     []string // enumeration/NOTATION members, uppercased
	Presence   Presence
	Default    string
}

// Connector is a content-model group's member connector.
type Connector int

const (
	ConnNone Connector = iota
	ConnSeq            // ","
	ConnOr             // "|"
	ConnAnd            // "&"
)

// Occurrence is a content-model group or member's occurrence suffix.
type Occurrence int

const (
	OccRequired Occurrence = iota
	OccOptional            // "?"
	OccOneOrMore           // "+"
	OccZeroOrMore          // "*"
)

// DeclaredContent narrows an element's content model to one of the special
// SGML declared-content values (§3).
type DeclaredContent int

const (
	DeclaredDefault DeclaredContent = iota
	DeclaredEMPTY
	DeclaredCDATA
	DeclaredRCDATA
)

// Group is a node in a content model tree (§3). Member is a bare element
// name when Sub is nil; Sub holds a nested group otherwise. Mixed is set
// when the group's member list contains the special "#PCDATA" token.
type Group struct {
	Member     string
	Sub        []*Group
	Connector  Connector
	Occurrence Occurrence
	Mixed      bool
}

// ElementDecl is an element declaration (§3). Names are stored uppercased;
// immutable once the owning DTD finishes parsing.
type ElementDecl struct {
	Name             string
	StartTagOptional bool
	EndTagOptional   bool
	Content          *Group
	Declared         DeclaredContent
	Inclusions       map[string]bool
	Exclusions       map[string]bool

	attrs map[string]*AttDef
	order []string
}

// Attr looks up an attribute definition by case-insensitive name.
func (e *ElementDecl) Attr(name string) (*AttDef, bool) {
	a, ok := e.attrs[strings.ToUpper(name)]
	return a, ok
}

// Attrs returns the element's attribute definitions in declaration order.
func (e *ElementDecl) Attrs() []*AttDef {
	out := make([]*AttDef, 0, len(e.order))
	for _, n := range e.order {
		out = append(out, e.attrs[n])
	}
	return out
}

func (e *ElementDecl) addAttr(a *AttDef) {
	if e.attrs == nil {
		e.attrs = map[string]*AttDef{}
	}
	key := strings.ToUpper(a.Name)
	if _, exists := e.attrs[key]; !exists {
		e.order = append(e.order, key)
	}
	e.attrs[key] = a
}

// CanContainText reports whether this element's declared content permits
// #PCDATA directly (§4.5.5 rule 2).
func (e *ElementDecl) CanContainText() bool {
	if e.Declared == DeclaredCDATA || e.Declared == DeclaredRCDATA {
		return true
	}
	if e.Declared == DeclaredEMPTY {
		return false
	}
	return e.Content != nil && e.Content.Mixed
}

// CanContainChild reports whether name is a legal immediate child under
// this element's content model (a shallow, non-validating membership test
// suitable for tag-inference decisions — §4.5.5 rule 3).
func (e *ElementDecl) CanContainChild(name string) bool {
	if e.Declared != DeclaredDefault {
		return false
	}
	if e.Content == nil {
		return false
	}
	return groupContains(e.Content, strings.ToUpper(name))
}

// SequenceMembers returns this element's top-level content-model member
// names, in declaration order, when the content model is a non-mixed
// sequence group (","-connected) — the shape the document parser uses to
// order-sensitively synthesize a chain of optional-start-tag siblings
// (e.g. HTML's (HEAD, BODY)). ok is false for any other content model
// shape, where only the unordered membership test (CanContainChild)
// applies.
func (e *ElementDecl) SequenceMembers() (members []string, ok bool) {
	if e.Declared != DeclaredDefault || e.Content == nil || e.Content.Mixed {
		return nil, false
	}
	if e.Content.Connector != ConnSeq && e.Content.Connector != ConnNone {
		return nil, false
	}
	if e.Content.Sub == nil {
		return nil, false
	}
	for _, sub := range e.Content.Sub {
		if sub.Sub != nil || sub.Member == "" {
			return nil, false
		}
		members = append(members, sub.Member)
	}
	return members, true
}

func groupContains(g *Group, name string) bool {
	if g == nil {
		return false
	}
	if g.Sub == nil {
		return g.Member == name
	}
	for _, sub := range g.Sub {
		if groupContains(sub, name) {
			return true
		}
	}
	return false
}

// GeneralEntity is a named replacement-text entity declared via <!ENTITY>.
type GeneralEntity struct {
	Name        string
	Literal     string
	PublicID    string
	SystemURI   string
	External    bool
}

// DTD is the fully parsed, immutable document type definition (§3, §5: "a
// pre-parsed DTD is immutable after construction and may be shared safely
// across parser instances").
type DTD struct {
	Name             string
	PublicID         string
	SystemURI        string
	elements         map[string]*ElementDecl
	generalEntities  map[string]*GeneralEntity
	parameterEntities map[string]*GeneralEntity
}

func newDTD(name string) *DTD {
	return &DTD{
		Name:              strings.ToUpper(name),
		elements:          map[string]*ElementDecl{},
		generalEntities:   map[string]*GeneralEntity{},
		parameterEntities: map[string]*GeneralEntity{},
	}
}

// Element looks up an element declaration by case-insensitive name.
func (d *DTD) Element(name string) (*ElementDecl, bool) {
	e, ok := d.elements[strings.ToUpper(name)]
	return e, ok
}

// Root returns the element declaration named by the DTD's root, if any.
func (d *DTD) Root() (*ElementDecl, bool) {
	return d.Element(d.Name)
}

// GeneralEntity looks up a general (non-parameter) entity by name.
func (d *DTD) GeneralEntity(name string) (*GeneralEntity, bool) {
	e, ok := d.generalEntities[name]
	return e, ok
}

// ParameterEntity looks up a parameter entity by name.
func (d *DTD) ParameterEntity(name string) (*GeneralEntity, bool) {
	e, ok := d.parameterEntities[name]
	return e, ok
}

// FindOptionalContainers performs the breadth-first search §4.5.5 rule 3
// describes: starting from `from`, it visits elements reachable by
// following start-tag-optional children, returning the shortest chain
// (excluding `from`) that ends at an element whose content model can
// contain `target`. It memoizes visited declarations so the search always
// terminates (§8 "tag-inference termination").
func (d *DTD) FindOptionalContainers(from *ElementDecl, target string) []*ElementDecl {
	return d.bfsOptional(from, func(decl *ElementDecl) bool {
		return decl.CanContainChild(target) || strings.EqualFold(decl.Name, target)
	})
}

// FindTextContainer is FindOptionalContainers' counterpart for §4.5.5 rule
// 2: it finds the shallowest optional-start-tag chain from `from` down to
// an element whose declared content can contain #PCDATA.
func (d *DTD) FindTextContainer(from *ElementDecl) []*ElementDecl {
	return d.bfsOptional(from, func(decl *ElementDecl) bool {
		return decl.CanContainText()
	})
}

// bfsOptional is the shared breadth-first search both tag-inference rules
// use: visit elements reachable from `from` by following start-tag-optional
// children, returning the shortest chain (excluding `from`) ending at an
// element satisfying match. Each declaration is visited at most once, which
// bounds the search and guarantees termination (§8).
func (d *DTD) bfsOptional(from *ElementDecl, match func(*ElementDecl) bool) []*ElementDecl {
	type frame struct {
		decl *ElementDecl
		path []*ElementDecl
	}
	visited := map[string]bool{from.Name: true}
	queue := []frame{{decl: from, path: nil}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if match(cur.decl) {
			return cur.path
		}
		for _, child := range d.optionalChildrenOf(cur.decl) {
			if visited[child.Name] {
				continue
			}
			visited[child.Name] = true
			next := append(append([]*ElementDecl{}, cur.path...), child)
			queue = append(queue, frame{decl: child, path: next})
		}
	}
	return nil
}

// optionalChildrenOf returns the element declarations named as direct
// members of decl's content model whose own start tag is optional.
func (d *DTD) optionalChildrenOf(decl *ElementDecl) []*ElementDecl {
	if decl.Content == nil {
		return nil
	}
	var names []string
	collectMembers(decl.Content, &names)

	var out []*ElementDecl
	for _, n := range names {
		child, ok := d.Element(n)
		if ok && child.StartTagOptional {
			out = append(out, child)
		}
	}
	return out
}

func collectMembers(g *Group, names *[]string) {
	if g == nil {
		return
	}
	if g.Sub == nil {
		if g.Member != "" && g.Member != "#PCDATA" {
			*names = append(*names, g.Member)
		}
		return
	}
	for _, sub := range g.Sub {
		collectMembers(sub, names)
	}
}
