// Package resolver implements the Resource Resolver (component A): the
// single I/O boundary of the parser. Given a URI, a Resolver returns an open
// byte stream plus whatever encoding/MIME/redirect metadata the transport
// was able to determine.
package resolver

import (
	"errors"
	"io"
)

// ErrNotFound is returned when a resolver could not locate the resource at
// all, distinct from a resource that opened successfully but turned out to
// be empty (§4.1).
var ErrNotFound = errors.New("resolver: resource not found")

// Resource is what a Resolver hands back for a successfully located URI.
type Resource struct {
	// Stream is the open byte stream. The caller (the Entity that requested
	// it, per §4.3's Open) owns it and must Close it exactly once.
	Stream io.ReadCloser
	// Encoding is the declared encoding, if the transport knows one (e.g. an
	// HTTP Content-Type charset parameter). Empty means "unknown"; the
	// Character Stream Decoder (component B) then falls back to sniffing.
	Encoding string
	// MIME is the declared MIME type, if known. Used to set an Entity's
	// is-html flag (§3) when it is exactly "text/html".
	MIME string
	// RedirectURI is the URI after any server-side redirection, to be used
	// as the new base URI for resolving further relative references. Equal
	// to the requested URI when no redirection occurred.
	RedirectURI string
}

// Resolver maps a URI (possibly relative to some base) to an opened
// Resource. It is the only I/O boundary of the parser's core (§4.1, §9): an
// implementation may legitimately refuse any URI scheme it doesn't support.
type Resolver interface {
	GetContent(baseURI, uri string) (*Resource, error)
}

// Func adapts a plain function to the Resolver interface.
type Func func(baseURI, uri string) (*Resource, error)

func (f Func) GetContent(baseURI, uri string) (*Resource, error) {
	return f(baseURI, uri)
}
