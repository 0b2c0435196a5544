// Package bmap implements a basic map with a []byte key type, used to
// hash-cons canonical LR(0) item sets (serialized as byte keys) to existing
// automaton state ids during SLR(1) construction.
package bmap

import (
	"unsafe"
)

// BMap implements a generic hashmap with a []byte key type.
// It is intended to store a small fixed set of keys and has some limitations:
// keys cannot be deleted.
// Added keys are copied into an internal byte slice for safety.
// Uses a map with string keys internally.
type BMap[T any] struct {
	keys []byte
	smap map[string]T
}

// New creates a byte map. size hints at the expected number of stored keys
// (not counting the empty key).
func New[T any](size int) *BMap[T] {
	return &BMap[T]{
		smap: make(map[string]T, size),
	}
}

// Get returns the stored value by key and a flag telling whether the key is
// present. Returns the zero value if the key is not present.
func (m *BMap[T]) Get(key []byte) (T, bool) {
	skey := ""
	if len(key) != 0 {
		skey = unsafe.String(&key[0], len(key))
	}
	result, has := m.smap[skey]
	return result, has
}

// Set adds or rewrites the value for the given key.
func (m *BMap[T]) Set(key []byte, value T) {
	skey := ""
	_, has := m.Get(key)
	if !has && len(key) != 0 {
		ofs := len(m.keys)
		m.keys = append(m.keys, key...)
		key = m.keys[ofs : ofs+len(key)]
	}

	if len(key) != 0 {
		skey = unsafe.String(&key[0], len(key))
	}
	m.smap[skey] = value
}

// Len returns the number of stored keys.
func (m *BMap[T]) Len() int {
	return len(m.smap)
}
