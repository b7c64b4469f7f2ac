package grid

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrimsonAS/qgrid/container"
	"github.com/CrimsonAS/qgrid/field"
)

func editablePeopleGrid(t *testing.T) (*Grid, *container.IndexedContainer) {
	t.Helper()
	g, c := newPeopleGrid(t)
	require.NoError(t, g.Editor().SetEnabled(true))
	return g, c
}

func nameField(t *testing.T, g *Grid) *field.Basic {
	t.Helper()
	f, err := g.Editor().Field("name")
	require.NoError(t, err)
	return f.(*field.Basic)
}

func TestEditorStates(t *testing.T) {
	g, _ := newPeopleGrid(t)
	e := g.Editor()
	assert.ErrorIs(t, e.EditItem(0), ErrIllegalState, "editor is disabled")

	require.NoError(t, e.SetEnabled(true))
	assert.ErrorIs(t, e.EditItem(42), ErrIllegalArgument)
	assert.ErrorIs(t, e.Save(), ErrIllegalState)

	require.NoError(t, e.EditItem(0))
	assert.True(t, e.Editing())
	assert.Equal(t, 0, e.ItemID())
	assert.ErrorIs(t, e.EditItem(1), ErrIllegalState)
	assert.ErrorIs(t, e.SetEnabled(false), ErrIllegalState)
	assert.ErrorIs(t, g.Column("age").SetEditable(false), ErrIllegalState)

	e.Cancel()
	assert.False(t, e.Editing())
	assert.Nil(t, e.ItemID())
	e.Cancel()
	assert.NoError(t, e.SetEnabled(false))
}

func TestEditorCancel(t *testing.T) {
	g, c := editablePeopleGrid(t)
	e := g.Editor()
	require.NoError(t, e.EditItem(1))

	f := nameField(t, g)
	assert.Equal(t, "Grace", f.Value())
	require.NoError(t, f.SetValue("Hopper"))

	e.Cancel()
	assert.Equal(t, "Grace", c.Item(1).Property("name").Value())
	assert.Nil(t, f.Source())
	assert.False(t, f.Modified())
}

func TestEditorSave(t *testing.T) {
	g, c := editablePeopleGrid(t)
	e := g.Editor()
	require.NoError(t, e.EditItem(2))

	require.NoError(t, nameField(t, g).SetValue("Linus T."))
	ageField, err := g.Column("age").EditorField()
	require.NoError(t, err)
	require.NoError(t, ageField.SetValue(22))

	require.NoError(t, e.Save())
	assert.False(t, e.Editing())
	assert.Equal(t, "Linus T.", c.Item(2).Property("name").Value())
	assert.Equal(t, 22, c.Item(2).Property("age").Value())

	require.NoError(t, e.EditItem(0), "the editor can be opened again")
	assert.Equal(t, "Ada", nameField(t, g).Value())
}

func TestEditorInvalidSave(t *testing.T) {
	g, c := editablePeopleGrid(t)
	e := g.Editor()
	f := nameField(t, g)
	f.AddValidator(field.Required("name is required"))

	require.NoError(t, e.EditItem(0))
	require.NoError(t, f.SetValue(""))
	err := e.Save()
	var ce *field.CommitError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, field.ErrInvalidValue)
	assert.True(t, e.Editing(), "a failed save keeps the editor open")
	assert.Equal(t, "Ada", c.Item(0).Property("name").Value())

	event := &CommitErrorEvent{Grid: g, Err: err}
	DefaultEditorErrorHandler.CommitError(event)
	assert.Equal(t, "Name: name is required", event.UserErrorMessage)
	assert.Equal(t, []*Column{g.Column("name")}, event.ErrorColumns)

	event = &CommitErrorEvent{Grid: g, Err: errors.New("disk full")}
	DefaultEditorErrorHandler.CommitError(event)
	assert.Equal(t, "disk full", event.UserErrorMessage)
	assert.Empty(t, event.ErrorColumns)
}

func TestEditorReadOnlyFields(t *testing.T) {
	g, c := editablePeopleGrid(t)
	require.NoError(t, c.SetPropertyReadOnly("age", true))
	require.NoError(t, g.Column("name").SetEditable(false))

	require.NoError(t, g.Editor().EditItem(0))
	age, err := g.Editor().Field("age")
	require.NoError(t, err)
	assert.True(t, age.ReadOnly())
	assert.True(t, nameField(t, g).ReadOnly())
	assert.Error(t, age.SetValue(40))

	assert.NoError(t, g.Editor().Save(), "read-only fields are skipped")
}

func TestEditorFields(t *testing.T) {
	g, _ := editablePeopleGrid(t)
	e := g.Editor()

	_, err := e.Field("height")
	assert.ErrorIs(t, err, ErrIllegalArgument)
	assert.ErrorIs(t, e.SetField("height", field.NewBasic(nil)), ErrIllegalArgument)

	f := nameField(t, g)
	assert.Equal(t, "Name", f.Caption())
	assert.Same(t, f, nameField(t, g), "fields are kept")

	custom := field.NewBasic(reflect.TypeOf(""))
	require.NoError(t, g.Column("name").SetEditorField(custom))
	require.NoError(t, e.EditItem(1))
	assert.Equal(t, "Grace", custom.Value())
	assert.Contains(t, g.Children(), custom)
	assert.NotContains(t, g.Children(), f)

	e.Cancel()
	require.NoError(t, g.RemoveColumn("name"))
	assert.NotContains(t, g.Children(), custom)
}

func TestEditorFieldFactory(t *testing.T) {
	g, _ := editablePeopleGrid(t)
	e := g.Editor()
	var built []interface{}
	e.SetFieldFactory(field.FactoryFunc(func(pid interface{}, typ reflect.Type) (field.Field, error) {
		built = append(built, pid)
		return field.NewBasic(typ), nil
	}))
	require.NoError(t, e.EditItem(0))
	assert.Equal(t, []interface{}{"name", "age"}, built)

	e.Cancel()
	e.SetFieldFactory(nil)
	assert.NotNil(t, e.FieldFactory())
}

func TestEditorClosedByDataSourceChanges(t *testing.T) {
	g, c := editablePeopleGrid(t)
	e := g.Editor()

	require.NoError(t, e.EditItem(1))
	require.NoError(t, c.RemoveItem(1))
	assert.False(t, e.Editing())

	require.NoError(t, e.EditItem(0))
	require.NoError(t, g.SetDataSource(container.ReadOnly(c)))
	assert.False(t, e.Editing())
}

func TestEditorCaptions(t *testing.T) {
	g := NewGrid()
	e := g.Editor()
	assert.Equal(t, "Cancel", e.CancelCaption())
	assert.ErrorIs(t, e.SetSaveCaption(""), ErrIllegalArgument)
	assert.ErrorIs(t, e.SetCancelCaption(""), ErrIllegalArgument)
	require.NoError(t, e.SetSaveCaption("Store"))
	assert.Equal(t, "Store", g.state.EditorSaveCaption)
}
