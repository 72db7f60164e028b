// Package stack provides a high-water-mark stack: a LIFO that retains its
// backing array across Pop calls and reuses the freed slots on the next
// Push, so a long parse does not churn the allocator once it has reached its
// deepest nesting.
package stack

// Stack is a LIFO of T with high-water-mark reuse. The zero value is an
// empty, usable stack.
type Stack[T any] struct {
	items []T
	n     int
}

// Push grows the stack by one slot and returns a pointer to it. If a freed
// slot is available from a previous Pop, it is reused (and reset to the zero
// value) rather than allocated.
func (s *Stack[T]) Push() *T {
	if s.n < len(s.items) {
		var zero T
		s.items[s.n] = zero
		s.n++
		return &s.items[s.n-1]
	}
	var zero T
	s.items = append(s.items, zero)
	s.n++
	return &s.items[s.n-1]
}

// Pop removes and returns the top of the stack. It panics if the stack is
// empty; callers must check Len first.
func (s *Stack[T]) Pop() T {
	v := s.items[s.n-1]
	s.n--
	return v
}

// Peek returns a pointer to the top of the stack, or nil if empty.
func (s *Stack[T]) Peek() *T {
	if s.n == 0 {
		return nil
	}
	return &s.items[s.n-1]
}

// At returns a pointer to the i-th frame from the bottom (0-indexed), or nil
// if i is out of range.
func (s *Stack[T]) At(i int) *T {
	if i < 0 || i >= s.n {
		return nil
	}
	return &s.items[i]
}

// RemoveAt removes the i-th frame from the bottom, shifting later frames
// down by one. Used when auto-close or tag inference needs to drop a frame
// that is not at the top.
func (s *Stack[T]) RemoveAt(i int) {
	if i < 0 || i >= s.n {
		return
	}
	copy(s.items[i:s.n-1], s.items[i+1:s.n])
	s.n--
}

// Len reports the number of live items.
func (s *Stack[T]) Len() int { return s.n }

// Cap reports the size of the backing array, including freed high-water-mark
// slots.
func (s *Stack[T]) Cap() int { return cap(s.items) }
