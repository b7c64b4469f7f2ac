// Package keymapper translates server-side identities into short opaque keys
// that are safe to send to a client, and back.
package keymapper

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrUnknownKey = errors.New("unknown key")

// KeyMapper assigns a key to every id it is asked about. Keys are allocated
// from a counter and are never handed out twice by the same mapper, even after
// the id they belonged to is removed.
//
// Pinned ids survive Retain, which is how rows that are selected but no longer
// visible stay addressable by the client.
//
// A KeyMapper is not safe for concurrent use.
type KeyMapper[T comparable] struct {
	lastKey int
	keys    map[T]string
	ids     map[string]T
	pinned  map[T]struct{}
}

func New[T comparable]() *KeyMapper[T] {
	return &KeyMapper[T]{
		keys:   make(map[T]string),
		ids:    make(map[string]T),
		pinned: make(map[T]struct{}),
	}
}

// Key returns the key for id, allocating a new one if id hasn't been seen.
func (m *KeyMapper[T]) Key(id T) string {
	if key, exists := m.keys[id]; exists {
		return key
	}
	m.lastKey++
	key := strconv.Itoa(m.lastKey)
	m.keys[id] = key
	m.ids[key] = id
	return key
}

// Get returns the id mapped to key.
func (m *KeyMapper[T]) Get(key string) (T, bool) {
	id, ok := m.ids[key]
	return id, ok
}

func (m *KeyMapper[T]) Contains(id T) bool {
	_, ok := m.keys[id]
	return ok
}

// Remove forgets id, including any pin. Its key is not reused.
func (m *KeyMapper[T]) Remove(id T) {
	if key, exists := m.keys[id]; exists {
		delete(m.ids, key)
		delete(m.keys, id)
	}
	delete(m.pinned, id)
}

func (m *KeyMapper[T]) RemoveAll() {
	m.keys = make(map[T]string)
	m.ids = make(map[string]T)
	m.pinned = make(map[T]struct{})
}

// Pin marks id so that Retain never removes it. The id gets a key if it
// doesn't have one yet.
func (m *KeyMapper[T]) Pin(id T) {
	m.Key(id)
	m.pinned[id] = struct{}{}
}

func (m *KeyMapper[T]) Unpin(id T) {
	delete(m.pinned, id)
}

func (m *KeyMapper[T]) IsPinned(id T) bool {
	_, ok := m.pinned[id]
	return ok
}

// Retain removes every unpinned id for which keep returns false, and returns
// the removed ids.
func (m *KeyMapper[T]) Retain(keep func(id T) bool) []T {
	var removed []T
	for id := range m.keys {
		if m.IsPinned(id) || keep(id) {
			continue
		}
		removed = append(removed, id)
	}
	for _, id := range removed {
		m.Remove(id)
	}
	return removed
}

// Keys maps ids to keys, allocating as needed.
func (m *KeyMapper[T]) Keys(ids []T) []string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, m.Key(id))
	}
	return keys
}

// Ids maps keys back to ids. Nothing is returned if any key is unknown.
func (m *KeyMapper[T]) Ids(keys []string) ([]T, error) {
	ids := make([]T, 0, len(keys))
	for _, key := range keys {
		id, ok := m.ids[key]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownKey, key)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Len returns the number of live mappings.
func (m *KeyMapper[T]) Len() int {
	return len(m.keys)
}
