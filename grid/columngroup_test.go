package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnGroupNesting(t *testing.T) {
	g := abcGrid(t)
	top := g.AddColumnGroupRow()
	child := g.AddColumnGroupRow()

	_, err := top.AddGroup("A", "B")
	require.NoError(t, err)

	_, err = child.AddGroup("B", "C")
	assert.ErrorIs(t, err, ErrIllegalArgument, "B is only partially shared")
	assert.Empty(t, child.Groups())

	group, err := child.AddGroup("A", "B", "C")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"A", "B", "C"}, group.Columns())
	assert.Len(t, g.state.ColumnGroupRows[1].Groups, 1)
}

func TestColumnGroupValidation(t *testing.T) {
	g := abcGrid(t)
	_, err := g.AddColumn("D")
	require.NoError(t, err)
	row := g.AddColumnGroupRow()

	tests := []struct {
		name string
		pids []interface{}
	}{
		{"empty", nil},
		{"nil id", []interface{}{"A", nil}},
		{"unknown column", []interface{}{"A", "Z"}},
		{"duplicate", []interface{}{"A", "A"}},
		{"not adjacent", []interface{}{"A", "C"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := row.AddGroup(test.pids...)
			assert.ErrorIs(t, err, ErrIllegalArgument)
			assert.Empty(t, row.Groups())
		})
	}

	group, err := row.AddGroup("C", "B")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"B", "C"}, group.Columns(), "ids are kept in column order")
	_, err = row.AddGroup("C", "D")
	assert.ErrorIs(t, err, ErrIllegalArgument, "C is already grouped")
	_, err = row.AddGroup("D")
	assert.NoError(t, err)
	assert.Len(t, row.Groups(), 2)
}

func TestColumnGroupRowBelow(t *testing.T) {
	g := abcGrid(t)
	top := g.AddColumnGroupRow()
	bottom := g.AddColumnGroupRow()
	_, err := bottom.AddGroup("A", "B")
	require.NoError(t, err)

	_, err = top.AddGroup("A", "B", "C")
	assert.ErrorIs(t, err, ErrIllegalArgument, "the group below doesn't contain it")
	_, err = top.AddGroup("A")
	assert.NoError(t, err)
	_, err = top.AddGroup("C")
	assert.NoError(t, err)
}

func TestAddGroupOfGroups(t *testing.T) {
	g := abcGrid(t)
	row := g.AddColumnGroupRow()
	ab, err := row.AddGroup("A", "B")
	require.NoError(t, err)
	c, err := row.AddGroup("C")
	require.NoError(t, err)

	_, err = row.AddGroupOfGroups()
	assert.ErrorIs(t, err, ErrIllegalArgument)
	_, err = row.AddGroupOfGroups(ab, ab)
	assert.ErrorIs(t, err, ErrIllegalArgument)

	all, err := row.AddGroupOfGroups(c, ab)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"A", "B", "C"}, all.Columns())
	assert.Equal(t, []*ColumnGroup{all}, row.Groups())
	assert.ErrorIs(t, ab.SetHeader("gone"), ErrIllegalState)

	other := g.AddColumnGroupRow()
	foreign, err := other.AddGroup("A", "B", "C")
	require.NoError(t, err)
	_, err = row.AddGroupOfGroups(foreign)
	assert.ErrorIs(t, err, ErrIllegalArgument)
}

func TestColumnGroupColumnRemoved(t *testing.T) {
	g := abcGrid(t)
	row := g.AddColumnGroupRow()
	ab, err := row.AddGroup("A", "B")
	require.NoError(t, err)
	c, err := row.AddGroup("C")
	require.NoError(t, err)

	require.NoError(t, g.RemoveColumn("A"))
	assert.Equal(t, []*ColumnGroup{c}, row.Groups())
	assert.ErrorIs(t, ab.SetFooter("x"), ErrIllegalState)
	require.NoError(t, c.SetHeader("Sea"))
	assert.Equal(t, "Sea", c.Header())
}

func TestRemoveColumnGroupRow(t *testing.T) {
	g := abcGrid(t)
	row := g.AddColumnGroupRow()
	group, err := row.AddGroup("A")
	require.NoError(t, err)
	_, err = g.AddColumnGroupRowAt(3)
	assert.ErrorIs(t, err, ErrIllegalArgument)

	require.NoError(t, g.RemoveColumnGroupRow(row))
	assert.Empty(t, g.ColumnGroupRows())
	assert.Empty(t, g.state.ColumnGroupRows)
	assert.ErrorIs(t, g.RemoveColumnGroupRow(row), ErrIllegalArgument)

	_, err = row.AddGroup("B")
	assert.ErrorIs(t, err, ErrIllegalState)
	assert.ErrorIs(t, row.SetHeaderVisible(false), ErrIllegalState)
	assert.ErrorIs(t, group.SetHeader("x"), ErrIllegalState)
}

func TestColumnGroupSanityCheck(t *testing.T) {
	g := abcGrid(t)
	_, err := g.AddColumnGroupRow().AddGroup("A", "B")
	require.NoError(t, err)

	require.NoError(t, g.SetColumnOrder("B", "C", "A"))
	assert.Error(t, g.sanityCheck())
	require.NoError(t, g.SetColumnOrder("C", "B", "A"))
	assert.NoError(t, g.sanityCheck())
}
