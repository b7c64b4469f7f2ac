package container

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stringType = reflect.TypeOf("")
	intType    = reflect.TypeOf(0)
)

func people(t *testing.T) *IndexedContainer {
	t.Helper()
	c := NewIndexedContainer()
	require.NoError(t, c.AddProperty("name", stringType, ""))
	require.NoError(t, c.AddProperty("age", intType, 0))
	for _, p := range []struct {
		name string
		age  int
	}{{"Grace", 85}, {"Alan", 41}, {"Ada", 36}} {
		id, err := c.AddItem()
		require.NoError(t, err)
		c.Item(id).Property("name").SetValue(p.name)
		c.Item(id).Property("age").SetValue(p.age)
	}
	return c
}

func TestAddAndRemoveItems(t *testing.T) {
	c := people(t)
	assert.Equal(t, 3, c.Size())
	assert.Equal(t, []interface{}{0, 1, 2}, c.ItemIDs())

	var events []ItemSetChange
	reg := c.AddItemSetChangeListener(func(e ItemSetChange) {
		events = append(events, e)
	})

	require.NoError(t, c.RemoveItem(1))
	assert.Equal(t, -1, c.IndexOfID(1))
	assert.Equal(t, 1, c.IndexOfID(2))
	require.Len(t, events, 1)
	assert.Equal(t, ItemsRemoved, events[0].Kind)
	assert.Equal(t, 1, events[0].FirstIndex)

	assert.ErrorIs(t, c.RemoveItem(1), ErrNoSuchItem)

	id, err := c.AddItem()
	require.NoError(t, err)
	assert.Equal(t, 3, id, "generated ids are not reused")
	assert.Equal(t, "", c.Item(id).Property("name").Value())

	reg.Remove()
	c.RemoveAllItems()
	assert.Len(t, events, 2)
	assert.Zero(t, c.Size())
}

func TestPropertyTypes(t *testing.T) {
	c := people(t)
	p := c.Item(0).Property("age")

	require.NoError(t, p.SetValue(float64(90)))
	assert.Equal(t, 90, p.Value())
	assert.ErrorIs(t, p.SetValue("old"), ErrTypeMismatch)
	assert.ErrorIs(t, p.SetValue(90.5), ErrTypeMismatch)
	assert.Equal(t, 90, p.Value(), "a fraction isn't truncated into an int")

	require.NoError(t, c.SetPropertyReadOnly("age", true))
	assert.True(t, p.ReadOnly())
	assert.ErrorIs(t, p.SetValue(1), ErrReadOnly)

	assert.ErrorIs(t, c.AddProperty("age", intType, 0), ErrUnsupported)
	assert.ErrorIs(t, c.AddProperty("nick", intType, "x"), ErrTypeMismatch)
}

func TestConvertNumber(t *testing.T) {
	uint8Type := reflect.TypeOf(uint8(0))
	v, err := ConvertNumber(reflect.ValueOf(42.0), uint8Type)
	require.NoError(t, err)
	assert.Equal(t, uint8(42), v.Interface())

	for _, in := range []interface{}{300.0, -1.0, 2.5, -3} {
		_, err := ConvertNumber(reflect.ValueOf(in), uint8Type)
		assert.ErrorIs(t, err, ErrTypeMismatch, "%v", in)
	}
	_, err = ConvertNumber(reflect.ValueOf(uint64(1)<<63), intType)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestPropertySetChanges(t *testing.T) {
	c := people(t)
	changes := 0
	c.AddPropertySetChangeListener(func(PropertySetChange) { changes++ })

	require.NoError(t, c.AddProperty("email", stringType, "none"))
	assert.Equal(t, "none", c.Item(2).Property("email").Value())
	require.NoError(t, c.RemoveProperty("name"))
	assert.Nil(t, c.Item(2).Property("name"))
	assert.Equal(t, []interface{}{"age", "email"}, c.PropertyIDs())
	assert.ErrorIs(t, c.RemoveProperty("name"), ErrNoSuchProperty)
	assert.Equal(t, 2, changes)
}

func TestItemWithMissingProperties(t *testing.T) {
	c := people(t)
	require.NoError(t, c.AddItemWithValues("partial", map[interface{}]interface{}{"name": "Linus"}))

	it := c.Item("partial")
	assert.Equal(t, []interface{}{"name"}, it.PropertyIDs())
	assert.Nil(t, it.Property("age"))
	assert.ErrorIs(t, c.AddItemWithValues("partial", nil), ErrUnsupported)
	assert.ErrorIs(t, c.AddItemWithValues("x", map[interface{}]interface{}{"height": 1}), ErrNoSuchProperty)
}

func TestValueChangeNotifies(t *testing.T) {
	c := people(t)
	var got []ValueChange
	c.AddValueChangeListener(func(e ValueChange) { got = append(got, e) })
	require.NoError(t, c.Item(1).Property("name").SetValue("Turing"))
	assert.Equal(t, []ValueChange{{ItemID: 1, PropertyID: "name", Value: "Turing"}}, got)
}

func TestSort(t *testing.T) {
	c := people(t)
	assert.Equal(t, []interface{}{"name", "age"}, c.SortablePropertyIDs())

	require.NoError(t, c.Sort([]interface{}{"name"}, []bool{true}))
	assert.Equal(t, []interface{}{2, 1, 0}, c.ItemIDs())

	require.NoError(t, c.Sort([]interface{}{"age"}, []bool{false}))
	assert.Equal(t, []interface{}{0, 1, 2}, c.ItemIDs())

	assert.ErrorIs(t, c.Sort([]interface{}{"height"}, []bool{true}), ErrNoSuchProperty)
}

func TestReadOnly(t *testing.T) {
	inner := people(t)
	c := ReadOnly(inner)

	_, err := c.AddItem()
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, c.RemoveItem(0), ErrUnsupported)
	assert.ErrorIs(t, c.AddProperty("x", stringType, ""), ErrUnsupported)

	p := c.Item(0).Property("name")
	assert.True(t, p.ReadOnly())
	assert.ErrorIs(t, p.SetValue("x"), ErrReadOnly)
	assert.Equal(t, "Grace", p.Value())

	notified := false
	c.(ItemSetNotifier).AddItemSetChangeListener(func(e ItemSetChange) {
		notified = e.Container == c
	})
	inner.RemoveItem(0)
	assert.True(t, notified)
}
