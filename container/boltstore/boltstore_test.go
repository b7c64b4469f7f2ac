package boltstore

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/CrimsonAS/qgrid/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContainer(t *testing.T) *container.IndexedContainer {
	t.Helper()
	c := container.NewIndexedContainer()
	require.NoError(t, c.AddProperty("name", reflect.TypeOf(""), ""))
	require.NoError(t, c.AddProperty("age", reflect.TypeOf(0), 0))
	return c
}

func TestTrackAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	s, err := Open(path)
	require.NoError(t, err)

	c := newContainer(t)
	reg := s.Track("people", c)
	require.NoError(t, c.AddItemWithValues("ada", map[interface{}]interface{}{"name": "Ada", "age": 36}))
	require.NoError(t, c.AddItemWithValues("alan", map[interface{}]interface{}{"name": "Alan"}))
	require.NoError(t, c.Item("ada").Property("age").SetValue(37))
	require.NoError(t, c.RemoveItem("alan"))
	require.NoError(t, c.AddItemWithValues("grace", map[interface{}]interface{}{"name": "Grace", "age": 85}))
	reg.Remove()
	require.NoError(t, c.Item("grace").Property("age").SetValue(1))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	loaded := newContainer(t)
	require.NoError(t, s.Load("people", loaded))
	assert.Equal(t, []interface{}{"ada", "grace"}, loaded.ItemIDs())
	assert.Equal(t, 37, loaded.Item("ada").Property("age").Value())
	assert.Equal(t, 85, loaded.Item("grace").Property("age").Value(), "changes after removing the registration are not stored")
}

func TestLoadMissingBucket(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer s.Close()

	c := newContainer(t)
	require.NoError(t, s.Load("nothing", c))
	assert.Zero(t, c.Size())
	assert.ErrorIs(t, s.Put("nothing", c, "ghost"), container.ErrNoSuchItem)
}
