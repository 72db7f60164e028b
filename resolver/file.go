package resolver

import (
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileResolver resolves "file" URIs (and bare paths, treated as file paths)
// relative to a base directory. It refuses any other scheme, matching §4.1's
// "an implementation may refuse non-file schemes".
//
// This is the teacher's own dispatch shape (cmd/helium-lint opens os.Open
// directly for each CLI argument); here it is generalized into the
// Resolver interface so the document parser can follow relative SYSTEM
// identifiers transparently.
type FileResolver struct{}

func (FileResolver) GetContent(baseURI, uri string) (*Resource, error) {
	target := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && u.Scheme != "file" {
		return nil, ErrNotFound
	}
	if base, err := url.Parse(baseURI); err == nil && baseURI != "" {
		if ref, err2 := url.Parse(uri); err2 == nil && !ref.IsAbs() {
			target = base.ResolveReference(ref).Path
		}
	}
	target = strings.TrimPrefix(target, "file://")

	f, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}

	return &Resource{
		Stream:      f,
		MIME:        mimeTypeFromExt(target),
		RedirectURI: "file://" + abs,
	}, nil
}

func mimeTypeFromExt(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return strings.TrimSpace(t)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "text/html"
	case ".ofx":
		return "application/x-ofx"
	case ".xml", ".dtd":
		return "text/xml"
	}
	return ""
}
