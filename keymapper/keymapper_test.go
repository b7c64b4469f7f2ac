package keymapper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsStable(t *testing.T) {
	m := New[any]()
	k1 := m.Key("a")
	k2 := m.Key("a")
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, m.Key("b"))

	id, ok := m.Get(k1)
	require.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestKeysAreNotReused(t *testing.T) {
	m := New[int]()
	first := m.Key(1)
	m.Remove(1)
	_, ok := m.Get(first)
	assert.False(t, ok)
	assert.False(t, m.Contains(1))

	again := m.Key(1)
	assert.NotEqual(t, first, again)
	assert.NotEqual(t, first, m.Key(2))
}

func TestRetainKeepsPinned(t *testing.T) {
	m := New[int]()
	for i := 0; i < 5; i++ {
		m.Key(i)
	}
	m.Pin(4)

	removed := m.Retain(func(id int) bool { return id < 2 })
	assert.ElementsMatch(t, []int{2, 3}, removed)
	assert.True(t, m.Contains(0))
	assert.True(t, m.Contains(1))
	assert.True(t, m.Contains(4))
	assert.Equal(t, 3, m.Len())

	m.Unpin(4)
	m.Retain(func(int) bool { return false })
	assert.Equal(t, 0, m.Len())
}

func TestIdsUnknownKey(t *testing.T) {
	m := New[string]()
	keys := m.Keys([]string{"x", "y"})
	ids, err := m.Ids(keys)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, ids)

	_, err = m.Ids([]string{keys[0], "nope"})
	assert.True(t, errors.Is(err, ErrUnknownKey))
}

func TestRemoveAllClearsPins(t *testing.T) {
	m := New[string]()
	m.Pin("a")
	m.RemoveAll()
	assert.False(t, m.IsPinned("a"))
	assert.Equal(t, 0, m.Len())
}
