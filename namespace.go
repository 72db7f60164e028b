package sgml

import (
	"fmt"
	"strings"
)

// resolveNamespaceFor implements §4.5.4: an element name's prefix (if any)
// is resolved by scanning the element stack — innermost first, including
// the frame just pushed for name itself — for an "xmlns"/"xmlns:prefix"
// attribute declaration. The "xml" and "xmlns" prefixes are always bound to
// their fixed, reserved URIs. An unresolvable prefix gets a synthetic
// "#unknown"/"#unknownN" URI, stable for the rest of the document.
func (r *Reader) resolveNamespaceFor(name string) (prefix, nsURI string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		prefix = name[:i]
	}

	switch prefix {
	case "":
		return "", r.lookupDefaultNamespace()
	case "xml":
		return prefix, "http://www.w3.org/XML/1998/namespace"
	case "xmlns":
		return prefix, "http://www.w3.org/2000/xmlns/"
	}

	if uri, ok := r.lookupPrefixedNamespace(prefix); ok {
		return prefix, uri
	}
	return prefix, r.unknownNamespaceURI(prefix)
}

func (r *Reader) lookupDefaultNamespace() string {
	for i := r.stack.len() - 1; i >= 0; i-- {
		if a, ok := r.stack.at(i).attrByName("xmlns"); ok {
			return a.Value
		}
	}
	return ""
}

func (r *Reader) lookupPrefixedNamespace(prefix string) (string, bool) {
	attrName := "xmlns:" + prefix
	for i := r.stack.len() - 1; i >= 0; i-- {
		if a, ok := r.stack.at(i).attrByName(attrName); ok {
			return a.Value, true
		}
	}
	return "", false
}

// unknownNamespaceURI assigns a stable synthetic URI to a prefix that never
// resolved to an xmlns declaration: "#unknown" for the first such prefix
// seen, "#unknown1", "#unknown2", ... for subsequent distinct ones.
func (r *Reader) unknownNamespaceURI(prefix string) string {
	if uri, ok := r.unknownNS[prefix]; ok {
		return uri
	}
	var uri string
	if len(r.unknownNS) == 0 {
		uri = "#unknown"
	} else {
		r.unknownNSSeq++
		uri = fmt.Sprintf("#unknown%d", r.unknownNSSeq)
	}
	r.unknownNS[prefix] = uri
	return uri
}
