package encoding

import (
	"bytes"
	"regexp"
)

// sniffLimit bounds how much of the document we scan for a <?xml?> or <meta>
// declaration; both are required to appear near the start of the document.
const sniffLimit = 2048

var xmlDeclEncodingRe = regexp.MustCompile(`(?i)^<\?xml[^>]*\bencoding\s*=\s*["']([^"']+)["']`)

// SniffXMLDecl implements §4.2 step (b): a provisional, ASCII-safe scan for
// an XML declaration's encoding pseudo-attribute at byte 0. It operates on
// raw bytes rather than decoded text because every charset this function
// needs to recognize (UTF-8, the ISO-8859 family, Windows code pages) agrees
// with ASCII for the bytes `<?xml ... encoding="...">` is made of.
func SniffXMLDecl(raw []byte) (charset string, ok bool) {
	limit := len(raw)
	if limit > sniffLimit {
		limit = sniffLimit
	}
	head := raw[:limit]
	if !bytes.HasPrefix(head, []byte("<?xml")) {
		return "", false
	}
	// The declaration itself must close before we give up scanning it.
	end := bytes.Index(head, []byte("?>"))
	if end < 0 {
		end = limit
	} else {
		end += 2
	}
	m := xmlDeclEncodingRe.FindSubmatch(head[:end])
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

var metaCharsetRe = regexp.MustCompile(`(?i)<meta\s+[^>]*http-equiv\s*=\s*["']?content-type["']?[^>]*>`)
var metaContentRe = regexp.MustCompile(`(?i)content\s*=\s*["']([^"']*)["']`)
var metaCharsetAttrRe = regexp.MustCompile(`(?i)charset\s*=\s*["']?([^"'\s;]+)`)

// SniffHTMLMeta implements §4.2 step (c): scan for an HTML
// <meta http-equiv="content-type" content="...charset=...">. Like
// SniffXMLDecl, this works directly on bytes.
func SniffHTMLMeta(raw []byte) (charset string, ok bool) {
	limit := len(raw)
	if limit > sniffLimit {
		limit = sniffLimit
	}
	head := raw[:limit]

	tag := metaCharsetRe.Find(head)
	if tag == nil {
		return "", false
	}
	content := metaContentRe.FindSubmatch(tag)
	if content == nil {
		return "", false
	}
	cs := metaCharsetAttrRe.FindSubmatch(content[1])
	if cs == nil {
		return "", false
	}
	return string(cs[1]), true
}
