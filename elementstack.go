package sgml

import (
	"github.com/sgml-go/sgml/internal/stack"
)

// elementStack is the document parser's element stack (component F): a
// high-water-mark stack of node frames, one per currently-open element,
// indexed by depth. It wraps internal/stack.Stack so the backing array is
// retained at the document's deepest nesting level across the whole parse
// (§5: "the element stack grows to the document's maximum nesting depth
// and retains capacity for the parser's lifetime").
type elementStack struct {
	frames stack.Stack[node]
}

// push returns a fresh frame at the new top of the stack, reset and ready
// to be populated by the caller.
func (s *elementStack) push() *node {
	n := s.frames.Push()
	n.reset()
	return n
}

func (s *elementStack) pop() node {
	return s.frames.Pop()
}

func (s *elementStack) top() *node {
	return s.frames.Peek()
}

func (s *elementStack) at(depth int) *node {
	return s.frames.At(depth)
}

func (s *elementStack) removeAt(depth int) {
	s.frames.RemoveAt(depth)
}

func (s *elementStack) len() int {
	return s.frames.Len()
}
