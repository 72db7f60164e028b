package sgml

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sgml-go/sgml/entity"
)

// ParseError is a fatal parse error (§4.6, §7 taxonomy 1): failure to open
// a required external resource, an unclosed CDATA section or comment at
// end of input, a content-model depth violation during parameter entity
// expansion, or a DOCTYPE name mismatching a preloaded DTD. It carries the
// entity chain so the caller can report exactly where parsing stopped.
type ParseError struct {
	Err        error
	EntityName string
	Chain      string
	Line       int
	Column     int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s at %s:%d:%d", e.EntityName, e.Err, e.Chain, e.Line, e.Column)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(e *entity.Entity, err error) *ParseError {
	pe := &ParseError{Err: err, Chain: entity.Chain(e)}
	if e != nil {
		pe.EntityName = e.Name
		pe.Line = e.Line
		pe.Column = e.LineStart
	}
	return pe
}

var (
	// ErrRequiredRootMissing is fatal: the DTD names a required (non
	// start-tag-optional) root element that never appeared (§4.5.5 rule 1).
	ErrRequiredRootMissing = errors.New("sgml: required root element never appeared")
	// ErrDoctypeMismatch is fatal: an explicit DOCTYPE name doesn't match a
	// preloaded DTD's root (§4.6 taxonomy 1).
	ErrDoctypeMismatch = errors.New("sgml: doctype name does not match preloaded dtd")
	// ErrUnclosedCDATA and ErrUnclosedComment are fatal: end of input was
	// reached before the corresponding terminator.
	ErrUnclosedCDATA   = errors.New("sgml: unclosed CDATA section at end of input")
	ErrUnclosedComment = errors.New("sgml: unclosed comment at end of input")
	// ErrEntityDepthViolation is fatal: a content-model group did not
	// rebalance across a parameter entity boundary (§4.4).
	ErrEntityDepthViolation = errors.New("sgml: content model depth violation across entity boundary")
)

// Diagnostic is a single recoverable condition reported through an
// ErrorSink (§4.6's "recoverable, logged" category): unknown entities,
// duplicate attributes, stray punctuation, bad comment syntax, unmatched
// end tags, unexpected declarations.
type Diagnostic struct {
	Message    string
	EntityName string
	Chain      string
	Line       int
	Column     int
	// SourceURI is the absolute URI of the outermost entity, when known
	// (§6's error-log format).
	SourceURI string
}

// String renders the diagnostic as the single free-text line §6 specifies:
// message, entity chain (line/position/name per frame), and the outermost
// entity's absolute URI when known.
func (d Diagnostic) String() string {
	s := d.Message + " (" + d.Chain + ")"
	if d.SourceURI != "" {
		s += " in " + d.SourceURI
	}
	return s
}

// ErrorSink receives recoverable diagnostics as parsing proceeds. Parsing
// never stops because of a reported Diagnostic.
type ErrorSink interface {
	Report(Diagnostic)
}

// ErrorSinkFunc adapts a plain function to ErrorSink.
type ErrorSinkFunc func(Diagnostic)

func (f ErrorSinkFunc) Report(d Diagnostic) { f(d) }

// DiscardErrors is an ErrorSink that drops every diagnostic.
var DiscardErrors ErrorSink = ErrorSinkFunc(func(Diagnostic) {})

// SlogErrorSink adapts a *slog.Logger to ErrorSink, logging every
// recoverable diagnostic at Warn level (§10.1's default sink).
type SlogErrorSink struct {
	Logger *slog.Logger
}

func (s SlogErrorSink) Report(d Diagnostic) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(d.Message,
		slog.String("entity", d.EntityName),
		slog.String("chain", d.Chain),
		slog.Int("line", d.Line),
		slog.Int("column", d.Column),
		slog.String("source", d.SourceURI),
	)
}

// NewSlogErrorSink returns an ErrorSink backed by logger (§10.1's default
// sink), following the teacher's context-scoped *slog.Logger convention.
func NewSlogErrorSink(logger *slog.Logger) ErrorSink {
	return SlogErrorSink{Logger: logger}
}
