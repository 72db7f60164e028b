package sgml

import (
	"context"

	"github.com/sgml-go/sgml/dtd"
	"github.com/sgml-go/sgml/resolver"
)

// CaseFolding selects how element and attribute names are normalized as
// they're emitted (§4.5.2).
type CaseFolding int

const (
	CaseFoldingNone CaseFolding = iota
	CaseFoldingToUpper
	CaseFoldingToLower
)

// WhitespaceHandling controls whether pure-whitespace text nodes surface
// at all (§4.5.9).
type WhitespaceHandling int

const (
	WhitespaceAll WhitespaceHandling = iota
	WhitespaceSignificant
	WhitespaceNone
)

// TextWhitespaceFlag is a bitset controlling leading/trailing trimming of
// text node values (§4.5.9).
type TextWhitespaceFlag uint

const (
	TrimLeading TextWhitespaceFlag = 1 << iota
	TrimTrailing
	OnlyLineBreaks

	textWhitespaceValidMask = TrimLeading | TrimTrailing | OnlyLineBreaks
)

// normalize enforces §4.5.9's invariants: unknown bits are dropped, and
// OnlyLineBreaks is meaningless (and cleared) unless at least one trim
// flag is set.
func (f TextWhitespaceFlag) normalize() TextWhitespaceFlag {
	f &= textWhitespaceValidMask
	if f&(TrimLeading|TrimTrailing) == 0 {
		f &^= OnlyLineBreaks
	}
	return f
}

// Config is the full set of recognized options (§6's configuration table).
type Config struct {
	DocType          string
	PublicIdentifier string
	SystemLiteral    string
	InternalSubset   string

	InputStream interface{ Read([]byte) (int, error) }
	Href        string
	BaseURI     string

	CaseFolding        CaseFolding
	WhitespaceHandling WhitespaceHandling
	TextWhitespace     TextWhitespaceFlag

	StripDocType bool
	IgnoreDTD    bool

	DTD      *dtd.DTD
	Resolver resolver.Resolver
	ErrorLog ErrorSink

	// AllowMultipleRoots relaxes fragment conformance (§4.5.10); by default
	// a second top-level element forces EOF after closing everything open.
	AllowMultipleRoots bool

	// TraceContext carries a *slog.Logger (via WithTraceLogger) that the
	// forgiving document parser logs state-machine transitions and
	// tag-inference decisions against (§10.1). Defaults to a bare
	// background context, which getTraceLogFromContext resolves to a
	// no-op logger.
	TraceContext context.Context
}

// Option configures a Config. Constructed via the With* functions below and
// passed to NewReader.
type Option func(*Config)

func newConfig(opts ...Option) *Config {
	c := &Config{
		Resolver:     resolver.FileResolver{},
		ErrorLog:     DiscardErrors,
		TraceContext: context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithDocType(name string) Option {
	return func(c *Config) { c.DocType = name }
}

func WithPublicIdentifier(id string) Option {
	return func(c *Config) { c.PublicIdentifier = id }
}

func WithSystemLiteral(uri string) Option {
	return func(c *Config) { c.SystemLiteral = uri }
}

func WithInternalSubset(subset string) Option {
	return func(c *Config) { c.InternalSubset = subset }
}

func WithInputStream(r interface{ Read([]byte) (int, error) }) Option {
	return func(c *Config) { c.InputStream = r }
}

func WithHref(uri string) Option {
	return func(c *Config) { c.Href = uri }
}

func WithBaseURI(uri string) Option {
	return func(c *Config) { c.BaseURI = uri }
}

func WithCaseFolding(f CaseFolding) Option {
	return func(c *Config) { c.CaseFolding = f }
}

func WithWhitespaceHandling(w WhitespaceHandling) Option {
	return func(c *Config) { c.WhitespaceHandling = w }
}

func WithTextWhitespace(flags TextWhitespaceFlag) Option {
	return func(c *Config) { c.TextWhitespace = flags.normalize() }
}

func WithStripDocType(strip bool) Option {
	return func(c *Config) { c.StripDocType = strip }
}

func WithIgnoreDTD(ignore bool) Option {
	return func(c *Config) { c.IgnoreDTD = ignore }
}

func WithDTD(d *dtd.DTD) Option {
	return func(c *Config) { c.DTD = d }
}

func WithResolver(r resolver.Resolver) Option {
	return func(c *Config) { c.Resolver = r }
}

func WithErrorLog(sink ErrorSink) Option {
	return func(c *Config) { c.ErrorLog = sink }
}

func WithAllowMultipleRoots(allow bool) Option {
	return func(c *Config) { c.AllowMultipleRoots = allow }
}

// WithTraceContext attaches ctx (typically built with WithTraceLogger) as
// the source the forgiving document parser pulls its trace logger from
// (§10.1).
func WithTraceContext(ctx context.Context) Option {
	return func(c *Config) { c.TraceContext = ctx }
}
