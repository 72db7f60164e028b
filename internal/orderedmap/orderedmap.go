// Package orderedmap implements an insertion-order-preserving, uniquely-keyed
// map. The forgiving document parser uses it for a node's attribute list
// (component F: "order-preserving, uniquely keyed by case-folded name").
package orderedmap

import (
	"errors"
	"iter"
)

var ErrDuplicateEntry = errors.New("duplicate entry")

type Map[K comparable, V any] struct {
	entries []K
	keys    map[K]V
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		keys: make(map[K]V),
	}
}

func (m *Map[K, V]) Set(key K, value V) error {
	_, exists := m.keys[key]
	if exists {
		return ErrDuplicateEntry
	}
	m.entries = append(m.entries, key)
	m.keys[key] = value
	return nil
}

// Get returns the value for key and whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.keys[key]
	return v, ok
}

// At returns the i-th entry in insertion order.
func (m *Map[K, V]) At(i int) (K, V, bool) {
	if i < 0 || i >= len(m.entries) {
		var zk K
		var zv V
		return zk, zv, false
	}
	k := m.entries[i]
	return k, m.keys[k], true
}

// Reset empties the map while retaining its backing storage, so a node
// pooled across a high-water-mark stack (component F) can reuse its
// attribute map without reallocating it.
func (m *Map[K, V]) Reset() {
	m.entries = m.entries[:0]
	for k := range m.keys {
		delete(m.keys, k)
	}
}

func (m *Map[K, V]) Len() int {
	return len(m.entries)
}

func (m *Map[K, V]) Range() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range m.entries {
			v := m.keys[k]
			if !yield(k, v) {
				break
			}
		}
	}
}
