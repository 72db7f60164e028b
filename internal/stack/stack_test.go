package stack_test

import (
	"testing"

	"github.com/sgml-go/sgml/internal/stack"
	"github.com/stretchr/testify/require"
)

func TestPushPopReusesSlots(t *testing.T) {
	var s stack.Stack[int]

	p := s.Push()
	*p = 1
	p = s.Push()
	*p = 2
	require.Equal(t, 2, s.Len())

	capBefore := s.Cap()
	require.Equal(t, 2, s.Pop())
	require.Equal(t, 1, s.Len())

	// Pushing again should reuse the slot freed above, not grow the array.
	p = s.Push()
	*p = 3
	require.Equal(t, capBefore, s.Cap())
	require.Equal(t, 3, *s.Peek())
}

func TestRemoveAt(t *testing.T) {
	var s stack.Stack[string]
	*s.Push() = "a"
	*s.Push() = "b"
	*s.Push() = "c"

	s.RemoveAt(1)
	require.Equal(t, 2, s.Len())
	require.Equal(t, "a", *s.At(0))
	require.Equal(t, "c", *s.At(1))
}

func TestCapacityRetainedAfterDeepThenShallow(t *testing.T) {
	var s stack.Stack[int]
	for i := 0; i < 100; i++ {
		*s.Push() = i
	}
	for i := 0; i < 95; i++ {
		s.Pop()
	}
	require.GreaterOrEqual(t, s.Cap(), 100)
}
