package entity

import "fmt"

// OpenError wraps a failure to open an external entity, carrying enough
// context to walk the entity chain back to the root (§4.3's "error
// reporting produces a context chain").
type OpenError struct {
	Entity *Entity
	Cause  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("entity %q: open failed: %v", e.Entity.Name, e.Cause)
}

func (e *OpenError) Unwrap() error { return e.Cause }

// NameCharError is returned by ScanToken(nmtoken=true) when the first
// character is not '_' or a letter, or a later character is not a name
// character.
type NameCharError struct {
	Char rune
}

func (e *NameCharError) Error() string {
	return fmt.Sprintf("invalid name character %q", e.Char)
}

// UnterminatedLiteralError is returned by ScanLiteral when EOF is reached
// before the matching quote.
type UnterminatedLiteralError struct {
	Line int
}

func (e *UnterminatedLiteralError) Error() string {
	return fmt.Sprintf("unterminated literal starting at line %d", e.Line)
}

// InvalidCharRefError is returned when a "&#..." sequence isn't a
// well-formed numeric character reference.
type InvalidCharRefError struct{}

func (e *InvalidCharRefError) Error() string { return "invalid numeric character reference" }

// UnclosedBlockError is returned by ScanToEnd when EOF is reached before
// the terminator is found.
type UnclosedBlockError struct {
	Line       int
	Terminator string
}

func (e *UnclosedBlockError) Error() string {
	return fmt.Sprintf("unclosed block starting at line %d: expected %q", e.Line, e.Terminator)
}

// Chain walks e's Parent links, returning a human-readable context chain
// from innermost to outermost entity, each frame annotated with its current
// line.
func Chain(e *Entity) string {
	var s string
	for cur := e; cur != nil; cur = cur.Parent {
		if s != "" {
			s += " -> "
		}
		s += fmt.Sprintf("%s:%d", cur.Name, cur.Line)
	}
	return s
}
