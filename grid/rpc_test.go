package grid

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qbackend "github.com/CrimsonAS/qgrid/backend"
	"github.com/CrimsonAS/qgrid/field"
	"github.com/CrimsonAS/qgrid/renderer"
)

type bufferCloser struct {
	bytes.Buffer
}

func (b *bufferCloser) Close() error {
	return nil
}

type message struct {
	Command    string                 `json:"command"`
	Identifier string                 `json:"identifier"`
	Method     string                 `json:"method"`
	Parameters []interface{}          `json:"parameters"`
	Data       map[string]interface{} `json:"data"`
}

// clientSession attaches g to a connection and discards the initial sync.
type clientSession struct {
	t    *testing.T
	g    *Grid
	conn *qbackend.Connection
	out  *bufferCloser
}

func attach(t *testing.T, g *Grid) *clientSession {
	t.Helper()
	out := &bufferCloser{}
	conn := qbackend.NewConnectionSplit(io.NopCloser(strings.NewReader("")), out)
	require.NoError(t, conn.Attach(g))
	require.NoError(t, conn.Flush())
	out.Reset()
	return &clientSession{t: t, g: g, conn: conn, out: out}
}

// flush runs a sync boundary and returns what was sent.
func (s *clientSession) flush() []message {
	s.t.Helper()
	require.NoError(s.t, s.conn.Flush())
	var msgs []message
	rd := bufio.NewReader(&s.out.Buffer)
	for {
		blob, err := qbackend.ReadMessage(rd)
		if err == io.EOF {
			break
		}
		require.NoError(s.t, err)
		var msg message
		require.NoError(s.t, json.Unmarshal(blob, &msg))
		msgs = append(msgs, msg)
	}
	s.out.Reset()
	return msgs
}

// gridState returns the state diff sent for the grid, or nil.
func (s *clientSession) gridState(msgs []message) map[string]interface{} {
	for _, m := range msgs {
		if m.Command == "STATE" && m.Identifier == s.g.Identifier() {
			return m.Data
		}
	}
	return nil
}

// calls returns the parameters of every client call of method on the grid.
func (s *clientSession) calls(msgs []message, method string) [][]interface{} {
	var params [][]interface{}
	for _, m := range msgs {
		if m.Command == "CALL" && m.Identifier == s.g.Identifier() && m.Method == method {
			params = append(params, m.Parameters)
		}
	}
	return params
}

func TestClientSelectIsNotEchoed(t *testing.T) {
	g, _ := newPeopleGrid(t)
	s := attach(t, g)
	events := recordSelection(g)
	key := g.RowKey(1)

	require.NoError(t, g.Invoke("select", []interface{}{key}))
	assert.Equal(t, []interface{}{1}, g.SelectedRows())
	assert.Len(t, *events, 1)

	st := s.gridState(s.flush())
	assert.NotContains(t, st, "selectedKeys")

	_, err := g.Select(0)
	require.NoError(t, err)
	st = s.gridState(s.flush())
	assert.Equal(t, []interface{}{g.RowKey(0)}, st["selectedKeys"], "server changes are sent")
}

func TestClientSelectRejectedIsCorrected(t *testing.T) {
	g, _ := newPeopleGrid(t)
	require.NoError(t, g.SelectionModel().(*SingleSelection).SetDeselectAllowed(false))
	_, err := g.Select(1)
	require.NoError(t, err)
	s := attach(t, g)
	key := g.RowKey(1)

	require.NoError(t, g.Invoke("select", []interface{}{}))
	assert.Equal(t, []interface{}{1}, g.SelectedRows())
	st := s.gridState(s.flush())
	assert.Equal(t, []interface{}{key}, st["selectedKeys"])

	err = g.Invoke("select", []interface{}{g.RowKey(0), g.RowKey(2)})
	assert.ErrorIs(t, err, ErrIllegalArgument)
	st = s.gridState(s.flush())
	assert.Equal(t, []interface{}{key}, st["selectedKeys"])

	err = g.Invoke("select", []interface{}{"no such key"})
	assert.ErrorIs(t, err, ErrIllegalArgument)
}

func TestClientSelectNotAllowed(t *testing.T) {
	g, _ := newPeopleGrid(t)
	attach(t, g)
	g.SetUserSelectionAllowed(false)

	err := g.Invoke("select", []interface{}{g.RowKey(0)})
	assert.ErrorIs(t, err, ErrIllegalState)
	assert.Empty(t, g.SelectedRows())
	assert.ErrorIs(t, g.Invoke("selectAll"), ErrIllegalState)
}

func TestClientSelectAll(t *testing.T) {
	g, _ := newPeopleGrid(t)
	s := attach(t, g)
	assert.ErrorIs(t, g.Invoke("selectAll"), ErrIllegalState, "single selection can't select all")

	_, err := g.SetSelectionMode(SelectionMulti)
	require.NoError(t, err)
	require.NoError(t, g.Invoke("selectAll"))
	st := s.gridState(s.flush())
	assert.Equal(t, true, st["selectAllChecked"])
	assert.Len(t, st["selectedKeys"], 3)

	require.NoError(t, g.Invoke("select", []interface{}{g.RowKey(0)}))
	st = s.gridState(s.flush())
	assert.Equal(t, false, st["selectAllChecked"])
	assert.NotContains(t, st, "selectedKeys")
}

func TestRequestRows(t *testing.T) {
	g, _ := newPeopleGrid(t)
	require.NoError(t, g.Column("age").SetRenderer(renderer.NewNumber("")))
	s := attach(t, g)
	nameKey, ageKey := g.Column("name").Key(), g.Column("age").Key()

	require.NoError(t, g.Invoke("requestRows", 1.0, 5.0))
	calls := s.calls(s.flush(), "setRowData")
	require.Len(t, calls, 1)
	assert.Equal(t, []interface{}{
		1.0,
		[]interface{}{
			map[string]interface{}{
				"k": g.RowKey(1),
				"d": map[string]interface{}{nameKey: "Grace", ageKey: 85.0},
			},
			map[string]interface{}{
				"k": g.RowKey(2),
				"d": map[string]interface{}{nameKey: "Linus", ageKey: 21.0},
			},
		},
	}, calls[0])

	assert.ErrorIs(t, g.Invoke("requestRows", -1.0, 5.0), ErrIllegalArgument)
}

func TestActiveRangeForgetsKeys(t *testing.T) {
	g, _ := newPeopleGrid(t)
	s := attach(t, g)
	_, err := g.Select(2)
	require.NoError(t, err)

	require.NoError(t, g.Invoke("requestRows", 0.0, 2.0))
	s.flush()
	assert.True(t, g.rows.keys.Contains(0))
	assert.True(t, g.rows.keys.Contains(1))

	require.NoError(t, g.Invoke("setActiveRange", 1.0, 1.0))
	assert.False(t, g.rows.keys.Contains(0))
	assert.True(t, g.rows.keys.Contains(1))
	assert.True(t, g.rows.keys.Contains(2), "selected rows stay known")
}

func TestValueChangeResendsRow(t *testing.T) {
	g, c := newPeopleGrid(t)
	s := attach(t, g)
	require.NoError(t, g.Invoke("requestRows", 0.0, 3.0))
	s.flush()

	require.NoError(t, c.Item(1).Property("name").SetValue("Grace H."))
	calls := s.calls(s.flush(), "setRowData")
	require.Len(t, calls, 1)
	assert.Equal(t, 1.0, calls[0][0])
	rows := calls[0][1].([]interface{})
	require.Len(t, rows, 1)
	data := rows[0].(map[string]interface{})["d"].(map[string]interface{})
	assert.Equal(t, "Grace H.", data[g.Column("name").Key()])

	_, err := g.AddRow("Barbara", 30)
	require.NoError(t, err)
	msgs := s.flush()
	assert.Equal(t, [][]interface{}{{3.0, 1.0}}, s.calls(msgs, "insertRowData"))
}

func TestClientEditor(t *testing.T) {
	g, c := editablePeopleGrid(t)
	f := nameField(t, g)
	f.AddValidator(field.Required("name is required"))
	s := attach(t, g)
	nameKey := g.Column("name").Key()

	require.NoError(t, g.Invoke("editorBind", 0.0))
	msgs := s.flush()
	assert.Equal(t, [][]interface{}{{true}}, s.calls(msgs, "confirmBind"))
	require.NotEmpty(t, f.Identifier(), "bound fields are attached")
	assert.Equal(t, f.Identifier(), g.state.Columns[0].EditorConnector)

	require.NoError(t, f.SetValue(""))
	require.NoError(t, g.Invoke("editorSave", 0.0))
	msgs = s.flush()
	assert.Equal(t, [][]interface{}{{false, "Name: name is required", []interface{}{nameKey}}},
		s.calls(msgs, "confirmSave"))
	assert.True(t, g.Editor().Editing())

	require.NoError(t, f.SetValue("Ada L."))
	require.NoError(t, g.Invoke("editorSave", 0.0))
	msgs = s.flush()
	assert.Equal(t, [][]interface{}{{true, "", []interface{}{}}}, s.calls(msgs, "confirmSave"))
	assert.False(t, g.Editor().Editing())
	assert.Equal(t, "Ada L.", c.Item(0).Property("name").Value())

	require.NoError(t, g.Invoke("editorSave", 0.0))
	assert.Equal(t, [][]interface{}{{false, "", []interface{}{}}}, s.calls(s.flush(), "confirmSave"),
		"saving a row that isn't edited fails")

	require.NoError(t, g.Invoke("editorBind", 1.0))
	require.NoError(t, g.Invoke("editorCancel", 1.0))
	assert.False(t, g.Editor().Editing())

	require.NoError(t, g.Invoke("editorBind", 9.0))
	assert.Equal(t, [][]interface{}{{true}, {false}}, s.calls(s.flush(), "confirmBind"))
}

func TestClientEditorErrorHandler(t *testing.T) {
	g, _ := editablePeopleGrid(t)
	nameField(t, g).AddValidator(field.Required("name is required"))
	g.Editor().SetErrorHandler(EditorErrorHandlerFunc(func(e *CommitErrorEvent) {
		e.UserErrorMessage = "try again"
	}))
	s := attach(t, g)

	require.NoError(t, g.Editor().EditItem(0))
	require.NoError(t, nameField(t, g).SetValue(""))
	require.NoError(t, g.Invoke("editorSave", 0.0))
	msgs := s.flush()
	assert.Equal(t, [][]interface{}{{0.0}}, s.calls(msgs, "bind"))
	assert.Equal(t, [][]interface{}{{false, "try again", []interface{}{}}}, s.calls(msgs, "confirmSave"))
}

func TestClientSort(t *testing.T) {
	g, c := newPeopleGrid(t)
	s := attach(t, g)
	var events []SortEvent
	g.AddSortListener(func(e SortEvent) { events = append(events, e) })
	ageKey := g.Column("age").Key()

	require.NoError(t, g.Invoke("sort", []interface{}{ageKey}, []interface{}{"DESCENDING"}, true))
	assert.Equal(t, []interface{}{1, 0, 2}, c.ItemIDs())
	require.Len(t, events, 1)
	assert.True(t, events[0].UserOriginated)

	msgs := s.flush()
	st := s.gridState(msgs)
	assert.NotContains(t, st, "sortColumns")
	assert.NotContains(t, st, "sortDirs")
	assert.Equal(t, [][]interface{}{{3.0}}, s.calls(msgs, "resetDataAndSize"))

	err := g.Invoke("sort", []interface{}{"nope"}, []interface{}{"ASCENDING"}, true)
	assert.ErrorIs(t, err, ErrIllegalArgument)
	err = g.Invoke("sort", []interface{}{ageKey}, []interface{}{}, true)
	assert.ErrorIs(t, err, ErrIllegalArgument)

	require.NoError(t, g.Column("age").SetSortable(false))
	err = g.Invoke("sort", []interface{}{ageKey}, []interface{}{"ASCENDING"}, true)
	assert.ErrorIs(t, err, ErrIllegalArgument)
}

func TestClientItemClick(t *testing.T) {
	g, _ := newPeopleGrid(t)
	attach(t, g)
	var clicks []ItemClickEvent
	g.AddItemClickListener(func(e ItemClickEvent) { clicks = append(clicks, e) })

	require.NoError(t, g.Invoke("itemClick", g.RowKey(1), g.Column("name").Key()))
	require.Len(t, clicks, 1)
	assert.Equal(t, 1, clicks[0].ItemID)
	assert.Equal(t, "name", clicks[0].PropertyID)
	assert.Equal(t, "Grace", clicks[0].Item.Property("name").Value())

	assert.ErrorIs(t, g.Invoke("itemClick", "nope", g.Column("name").Key()), ErrIllegalArgument)
	assert.ErrorIs(t, g.Invoke("itemClick", g.RowKey(1), "nope"), ErrIllegalArgument)
}

func TestClientColumnResized(t *testing.T) {
	g, _ := newPeopleGrid(t)
	attach(t, g)
	var resizes []ColumnResizeEvent
	g.AddColumnResizeListener(func(e ColumnResizeEvent) { resizes = append(resizes, e) })
	age := g.Column("age")

	require.NoError(t, g.Invoke("columnResized", age.Key(), 120.0))
	assert.Equal(t, 120.0, age.Width())
	require.Len(t, resizes, 1)
	assert.Equal(t, age, resizes[0].Column)
	assert.True(t, resizes[0].UserOriginated)

	assert.ErrorIs(t, g.Invoke("columnResized", age.Key(), -2.0), ErrIllegalArgument)
}

func TestScrollTo(t *testing.T) {
	g, _ := newPeopleGrid(t)
	s := attach(t, g)

	require.NoError(t, g.ScrollTo(2, ScrollMiddle))
	g.ScrollToEnd()
	msgs := s.flush()
	assert.Equal(t, [][]interface{}{{2.0, "MIDDLE"}}, s.calls(msgs, "scrollToRow"))
	assert.Len(t, s.calls(msgs, "scrollToEnd"), 1)
}

func TestHeaderComponentAttached(t *testing.T) {
	g := abcGrid(t)
	s := attach(t, g)
	cell, err := g.Footer().AppendRow().Cell("A")
	require.NoError(t, err)
	comp := field.NewBasic(nil)
	require.NoError(t, cell.SetComponent(comp))

	s.flush()
	require.NotEmpty(t, comp.Identifier())
	assert.Equal(t, comp.Identifier(), g.state.Footer.Rows[0].Cells[0].Connector)

	require.NoError(t, cell.SetText("plain"))
	assert.Empty(t, comp.Identifier(), "replaced components are detached")
}
