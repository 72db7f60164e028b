package resolver

import (
	"errors"
	"io"
	"io/fs"
)

// EmbeddedResolver serves resources out of an embed.FS (or any fs.FS),
// keyed by a map of logical URI -> path within that filesystem. A URI
// missing from the map is reported as ErrNotFound. (The built-in HTML DTD
// is served by htmldtd.Resolver, not by this type.)
type EmbeddedResolver struct {
	FS    fs.FS
	Index map[string]string
	MIME  string
}

func (r EmbeddedResolver) GetContent(baseURI, uri string) (*Resource, error) {
	path, ok := r.Index[uri]
	if !ok {
		return nil, ErrNotFound
	}
	f, err := r.FS.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Resource{
		Stream:      readCloser{f},
		MIME:        r.MIME,
		RedirectURI: uri,
	}, nil
}

type readCloser struct {
	fs.File
}

var _ io.ReadCloser = readCloser{}

// Chain tries each Resolver in order, returning the first successful
// result. It is how a caller combines the built-in-DTD resolver with a
// general-purpose filesystem or HTTP resolver for everything else.
type Chain []Resolver

func (c Chain) GetContent(baseURI, uri string) (*Resource, error) {
	var lastErr error = ErrNotFound
	for _, r := range c {
		res, err := r.GetContent(baseURI, uri)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
