// Package domtree builds an in-memory tree from an sgml.Reader's node
// stream, for callers who want random access to a parsed document instead
// of a single forward pass.
//
// Grounded on the teacher's tree.go SAX-consumer (a TreeBuilder tracking a
// "current node" cursor that descends into StartElement and climbs back up
// on the matching EndElement), rewritten against the pull Reader instead of
// the teacher's push-style SAX callbacks.
package domtree

import "github.com/sgml-go/sgml"

// Node is one entry in the built tree. The root Node returned by Build has
// Type sgml.DocumentNode and no Name/Value of its own; its Children are the
// document's top-level nodes.
type Node struct {
	Type         sgml.NodeType
	Name         string
	Prefix       string
	NamespaceURI string
	Value        string
	Attrs        []sgml.Attribute
	Simulated    bool

	Parent   *Node
	Children []*Node
}

func (n *Node) addChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// Attr looks up an attribute by case-sensitive name (names are already
// case-folded per the Reader's configuration by the time they reach here).
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Build drains r completely and returns the document root. An element
// whose ElementNode event reported IsEmptyElement does not become the
// parent of subsequently read nodes — its matching EndElement pops back to
// its own parent instead of descending further.
func Build(r *sgml.Reader) (*Node, error) {
	root := &Node{Type: sgml.DocumentNode}
	cur := root
	var wasEmpty []bool

	for r.Read() {
		switch r.NodeType() {
		case sgml.ElementNode:
			n := &Node{
				Type:         sgml.ElementNode,
				Name:         r.Name(),
				Prefix:       r.Prefix(),
				NamespaceURI: r.NamespaceURI(),
				Simulated:    r.IsSimulated(),
			}
			for i := 0; i < r.AttributeCount(); i++ {
				if a, ok := r.AttributeAt(i); ok {
					n.Attrs = append(n.Attrs, a)
				}
			}
			cur.addChild(n)

			empty := r.IsEmptyElement()
			wasEmpty = append(wasEmpty, empty)
			if !empty {
				cur = n
			}
		case sgml.EndElementNode:
			empty := false
			if k := len(wasEmpty); k > 0 {
				empty = wasEmpty[k-1]
				wasEmpty = wasEmpty[:k-1]
			}
			if !empty && cur.Parent != nil {
				cur = cur.Parent
			}
		default:
			cur.addChild(&Node{
				Type:      r.NodeType(),
				Name:      r.Name(),
				Value:     r.Value(),
				Simulated: r.IsSimulated(),
			})
		}
	}
	return root, nil
}

// Walk visits n and every descendant in document order, depth-first,
// stopping early if fn returns false.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}
