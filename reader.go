package sgml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sgml-go/sgml/dtd"
	"github.com/sgml-go/sgml/encoding"
	"github.com/sgml-go/sgml/entity"
	"github.com/sgml-go/sgml/htmldtd"
	"github.com/sgml-go/sgml/resolver"
)

// Event is a single node surfaced by Reader.Read (§6's pull-reader
// surface). Unlike the element-stack frame (node, which is pooled and
// mutated in place), an Event is a self-contained snapshot: once Read
// returns true the caller can hold onto the previous Event's fields
// without fear of the parser overwriting them out from under it.
type Event struct {
	Type         NodeType
	Name         string
	Prefix       string
	NamespaceURI string
	Value        string
	XMLSpace     string
	XMLLang      string
	IsEmpty      bool
	Simulated    bool
	Depth        int

	attrs      []Attribute
	attrCursor int
}

// Reader is the forgiving document parser's pull interface (§6, component
// G). It is not safe for concurrent use (§5); each independent parse uses
// its own Reader.
type Reader struct {
	cfg      *Config
	dtdModel *dtd.DTD
	cur      *entity.Entity
	stack    elementStack
	baseURI  string

	rootSeen        bool
	topLevelClosed  bool
	inputExhausted  bool

	queue   []*Event
	current *Event

	unknownNS    map[string]string
	unknownNSSeq int

	traceCtx context.Context
	err      error
}

// NewReader builds a Reader over src (or, if src is nil, whatever source
// opts configures via WithInputStream or WithHref+WithResolver).
func NewReader(src io.Reader, opts ...Option) (*Reader, error) {
	cfg := newConfig(opts...)

	stream := src
	if stream == nil {
		stream = cfg.InputStream
	}
	var streamBaseURI string
	if stream == nil {
		if cfg.Href == "" {
			return nil, fmt.Errorf("sgml: no input source: pass a reader, WithInputStream, or WithHref")
		}
		res, err := cfg.Resolver.GetContent(cfg.BaseURI, cfg.Href)
		if err != nil {
			return nil, err
		}
		defer res.Stream.Close()
		stream = res.Stream
		streamBaseURI = res.RedirectURI
	}

	baseURI := cfg.BaseURI
	if baseURI == "" {
		baseURI = streamBaseURI
	}

	isHTML := strings.EqualFold(cfg.DocType, "html")
	decoded, err := encoding.Decode(stream, "", isHTML)
	if err != nil {
		return nil, err
	}

	doc := entity.NewInternal("#document", string(decoded.Text), entity.LiteralNone, nil)
	if err := doc.Open(nil, baseURI); err != nil {
		return nil, err
	}
	doc.IsHTML = isHTML

	dtdModel, err := loadDTD(cfg, baseURI)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		cfg:       cfg,
		dtdModel:  dtdModel,
		cur:       doc,
		baseURI:   baseURI,
		unknownNS: map[string]string{},
		traceCtx:  cfg.TraceContext,
	}
	return r, nil
}

func loadDTD(cfg *Config, baseURI string) (*dtd.DTD, error) {
	if cfg.IgnoreDTD {
		return nil, nil
	}
	if cfg.DTD != nil {
		return cfg.DTD, nil
	}
	if strings.EqualFold(cfg.DocType, "html") {
		return htmldtd.Load()
	}
	if cfg.SystemLiteral != "" {
		root := entity.NewExternal(cfg.DocType, cfg.PublicIdentifier, cfg.SystemLiteral, nil)
		if err := root.Open(cfg.Resolver, baseURI); err != nil {
			return nil, err
		}
		return parseDTDFatal(cfg, baseURI, root)
	}
	if cfg.InternalSubset != "" {
		root := entity.NewInternal(cfg.DocType, cfg.InternalSubset, entity.LiteralNone, nil)
		if err := root.Open(nil, baseURI); err != nil {
			return nil, err
		}
		return parseDTDFatal(cfg, baseURI, root)
	}
	return nil, nil
}

// parseDTDFatal runs the DTD parser, reporting every recoverable diagnostic
// to cfg.ErrorLog as before but promoting an entity-boundary depth
// violation (an unbalanced parameter entity push/pop during DTD loading,
// §4.4) to a fatal ParseError per §4.6/§7.
func parseDTDFatal(cfg *Config, baseURI string, root *entity.Entity) (*dtd.DTD, error) {
	var boundaryErr error
	p := dtd.NewParser(cfg.Resolver, func(err error) {
		if errors.Is(err, dtd.ErrEntityBoundaryDepth) && boundaryErr == nil {
			boundaryErr = err
		}
		cfg.ErrorLog.Report(Diagnostic{Message: err.Error()})
	})
	d, err := p.Parse(root, baseURI, cfg.DocType)
	if err != nil {
		return nil, err
	}
	if boundaryErr != nil {
		return nil, &ParseError{Err: ErrEntityDepthViolation, Chain: baseURI}
	}
	return d, nil
}

// Read advances to the next node, returning false at end of stream. Every
// call either pops a previously queued synthetic/real event or runs the
// engine until at least one event is ready.
func (r *Reader) Read() bool {
	if len(r.queue) > 0 {
		r.current = r.queue[0]
		r.queue = r.queue[1:]
		return true
	}
	if r.inputExhausted {
		r.current = nil
		return false
	}
	r.fill()
	if len(r.queue) == 0 {
		r.current = nil
		return false
	}
	r.current = r.queue[0]
	r.queue = r.queue[1:]
	return true
}

// EOF reports whether the stream is exhausted and no further node remains
// buffered.
func (r *Reader) EOF() bool {
	return r.current == nil && r.inputExhausted && len(r.queue) == 0
}

// Err returns the fatal error that halted parsing, if any (§4.6/§7): a
// required root that never appeared, a DOCTYPE name that doesn't match a
// preloaded DTD, an unclosed CDATA section or comment at end of input, or
// an entity-boundary depth violation while loading the DTD. Read stops
// advancing once this is set.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) trace() *slog.Logger {
	return getTraceLogFromContext(r.traceCtx)
}

func (r *Reader) NodeType() NodeType {
	if r.current == nil {
		return DocumentNode
	}
	return r.current.Type
}

func (r *Reader) Name() string {
	if r.current == nil {
		return ""
	}
	if a, ok := r.currentAttr(); ok {
		return a.Name
	}
	return r.current.Name
}

func (r *Reader) Prefix() string {
	if r.current == nil {
		return ""
	}
	return r.current.Prefix
}

func (r *Reader) NamespaceURI() string {
	if r.current == nil {
		return ""
	}
	return r.current.NamespaceURI
}

func (r *Reader) Value() string {
	if r.current == nil {
		return ""
	}
	if a, ok := r.currentAttr(); ok {
		return a.Value
	}
	return r.current.Value
}

// ReadAttributeValue returns the value of the attribute the reader is
// currently positioned on (via MoveToAttribute et al).
func (r *Reader) ReadAttributeValue() string {
	return r.Value()
}

func (r *Reader) Depth() int {
	if r.current == nil {
		return 0
	}
	return r.current.Depth
}

func (r *Reader) BaseURI() string {
	return r.baseURI
}

func (r *Reader) XMLSpace() string {
	if r.current == nil {
		return ""
	}
	return r.current.XMLSpace
}

func (r *Reader) XMLLang() string {
	if r.current == nil {
		return ""
	}
	return r.current.XMLLang
}

func (r *Reader) IsEmptyElement() bool {
	return r.current != nil && r.current.IsEmpty
}

func (r *Reader) IsSimulated() bool {
	return r.current != nil && r.current.Simulated
}

func (r *Reader) AttributeCount() int {
	if r.current == nil {
		return 0
	}
	return len(r.current.attrs)
}

func (r *Reader) AttributeAt(i int) (Attribute, bool) {
	if r.current == nil || i < 0 || i >= len(r.current.attrs) {
		return Attribute{}, false
	}
	return r.current.attrs[i], true
}

func (r *Reader) GetAttribute(name string) (string, bool) {
	if r.current == nil {
		return "", false
	}
	for _, a := range r.current.attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return "", false
}

// IsDefaultAttribute reports whether the currently positioned attribute's
// value came from a DTD default rather than appearing literally (§6).
func (r *Reader) IsDefaultAttribute() bool {
	a, ok := r.currentAttr()
	if !ok {
		return false
	}
	return a.IsDefault()
}

// QuoteChar returns the quote character used for the currently positioned
// attribute ('\'', '"', or 0).
func (r *Reader) QuoteChar() rune {
	a, ok := r.currentAttr()
	if !ok {
		return 0
	}
	return a.QuoteChar
}

func (r *Reader) currentAttr() (Attribute, bool) {
	if r.current == nil || r.current.attrCursor < 0 || r.current.attrCursor >= len(r.current.attrs) {
		return Attribute{}, false
	}
	return r.current.attrs[r.current.attrCursor], true
}

func (r *Reader) MoveToAttribute(i int) bool {
	if r.current == nil || i < 0 || i >= len(r.current.attrs) {
		return false
	}
	r.current.attrCursor = i
	return true
}

func (r *Reader) MoveToAttributeByName(name string) bool {
	if r.current == nil {
		return false
	}
	for i, a := range r.current.attrs {
		if strings.EqualFold(a.Name, name) {
			r.current.attrCursor = i
			return true
		}
	}
	return false
}

func (r *Reader) MoveToFirstAttribute() bool {
	return r.MoveToAttribute(0)
}

func (r *Reader) MoveToNextAttribute() bool {
	if r.current == nil {
		return false
	}
	return r.MoveToAttribute(r.current.attrCursor + 1)
}

func (r *Reader) MoveToElement() {
	if r.current != nil {
		r.current.attrCursor = -1
	}
}

// DTD returns the DTD model backing this reader, or nil when none was
// loaded (e.g. WithIgnoreDTD).
func (r *Reader) DTD() *dtd.DTD {
	return r.dtdModel
}

// resolver reuse: a dedicated Resolver chaining the built-in HTML DTD ahead
// of a general-purpose one is a common enough setup that it gets a
// constructor (§6, §9).
func NewHTMLAwareResolver(fallback resolver.Resolver) resolver.Resolver {
	return resolver.Chain{htmldtd.Resolver(), fallback}
}
