package xmlwrite

import (
	"fmt"
	"io"

	"github.com/sgml-go/sgml"
)

// Write drains r and serializes every node it yields back to w as
// well-formed XML text, collapsing an Element/EndElement pair whose
// ElementNode was self-closing into a single "<name/>" instead of
// "<name></name>" (§8's round-trip property: re-parsing Write's output
// against an identity DTD reproduces the same node sequence r produced).
func Write(w io.Writer, r *sgml.Reader) error {
	var wasEmpty []bool

	for r.Read() {
		switch r.NodeType() {
		case sgml.ElementNode:
			empty := r.IsEmptyElement()
			wasEmpty = append(wasEmpty, empty)
			if err := writeStartTag(w, r, empty); err != nil {
				return err
			}
		case sgml.EndElementNode:
			empty := false
			if n := len(wasEmpty); n > 0 {
				empty = wasEmpty[n-1]
				wasEmpty = wasEmpty[:n-1]
			}
			if empty {
				continue
			}
			if _, err := fmt.Fprintf(w, "</%s>", r.Name()); err != nil {
				return err
			}
		case sgml.TextNode, sgml.WhitespaceNode:
			if err := EscapeText(w, []byte(r.Value()), false); err != nil {
				return err
			}
		case sgml.CDATANode:
			if _, err := io.WriteString(w, r.Value()); err != nil {
				return err
			}
		case sgml.CommentNode:
			if _, err := fmt.Fprintf(w, "<!--%s-->", r.Value()); err != nil {
				return err
			}
		case sgml.ProcessingInstructionNode:
			if _, err := fmt.Fprintf(w, "<?%s %s?>", r.Name(), r.Value()); err != nil {
				return err
			}
		case sgml.DocumentTypeNode:
			if _, err := fmt.Fprintf(w, "<!DOCTYPE %s>", r.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeStartTag(w io.Writer, r *sgml.Reader, empty bool) error {
	if _, err := fmt.Fprintf(w, "<%s", r.Name()); err != nil {
		return err
	}
	for i := 0; i < r.AttributeCount(); i++ {
		a, ok := r.AttributeAt(i)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, " %s=", a.Name); err != nil {
			return err
		}
		if err := DumpQuotedString(w, a.Value); err != nil {
			return err
		}
	}
	if empty {
		_, err := io.WriteString(w, "/>")
		return err
	}
	_, err := io.WriteString(w, ">")
	return err
}
