package grid

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/golang/glog"

	"github.com/CrimsonAS/qgrid/container"
	"github.com/CrimsonAS/qgrid/field"
)

// CommitErrorEvent is given to the EditorErrorHandler when saving fails. The
// handler fills in the message and the columns the client highlights.
type CommitErrorEvent struct {
	Grid             *Grid
	Err              error
	UserErrorMessage string
	ErrorColumns     []*Column
}

type EditorErrorHandler interface {
	CommitError(e *CommitErrorEvent)
}

type EditorErrorHandlerFunc func(e *CommitErrorEvent)

func (f EditorErrorHandlerFunc) CommitError(e *CommitErrorEvent) {
	f(e)
}

// DefaultEditorErrorHandler reports the first invalid field as
// "<column caption>: <error>" and marks every invalid column.
var DefaultEditorErrorHandler EditorErrorHandler = EditorErrorHandlerFunc(func(e *CommitErrorEvent) {
	var ce *field.CommitError
	if !errors.As(e.Err, &ce) || len(ce.Failures) == 0 {
		e.UserErrorMessage = e.Err.Error()
		return
	}
	for _, failure := range ce.Failures {
		if col := e.Grid.Column(failure.PropertyID); col != nil {
			e.ErrorColumns = append(e.ErrorColumns, col)
		}
	}
	first := ce.Failures[0]
	caption := fmt.Sprint(first.PropertyID)
	if col := e.Grid.Column(first.PropertyID); col != nil {
		caption = col.HeaderCaption()
	}
	e.UserErrorMessage = fmt.Sprintf("%s: %s", caption, first.Err)
})

// Editor edits one item of the grid's data source at a time, with one field
// per column. Fields are kept between sessions; a closed session leaves them
// unbound.
type Editor struct {
	grid    *Grid
	group   *field.Group
	fields  map[interface{}]field.Field
	editing bool
	itemID  interface{}

	errorHandler EditorErrorHandler
}

func newEditor(g *Grid) *Editor {
	e := &Editor{
		grid:         g,
		group:        field.NewGroup(),
		fields:       make(map[interface{}]field.Field),
		errorHandler: DefaultEditorErrorHandler,
	}
	e.group.SetFactory(e.defaultFactory())
	return e
}

// defaultFactory builds basic fields captioned like their column.
func (e *Editor) defaultFactory() field.Factory {
	return field.FactoryFunc(func(pid interface{}, t reflect.Type) (field.Field, error) {
		f := field.NewBasic(t)
		if col := e.grid.Column(pid); col != nil {
			f.SetCaption(col.HeaderCaption())
		} else {
			f.SetCaption(fmt.Sprint(pid))
		}
		return f, nil
	})
}

func (e *Editor) Enabled() bool {
	return e.grid.state.EditorEnabled
}

// SetEnabled fails with ErrIllegalState while an item is being edited.
func (e *Editor) SetEnabled(enabled bool) error {
	if e.editing {
		return illegalState("cannot change editor availability while editing")
	}
	e.grid.state.EditorEnabled = enabled
	e.grid.MarkAsDirty()
	return nil
}

func (e *Editor) Editing() bool {
	return e.editing
}

// ItemID returns the edited item, or nil.
func (e *Editor) ItemID() interface{} {
	return e.itemID
}

// EditItem binds the editor fields to itemID and opens the editor on the
// client. Fields of columns that aren't editable, and of read-only
// properties, are read-only.
func (e *Editor) EditItem(itemID interface{}) error {
	if !e.Enabled() {
		return illegalState("editor is not enabled")
	}
	if e.editing {
		return illegalState("editor is already editing item %v", e.itemID)
	}
	index := e.grid.dataSource.IndexOfID(itemID)
	if index < 0 {
		return illegalArgument("item %v is not in the data source", itemID)
	}
	if err := e.bind(itemID); err != nil {
		return err
	}
	e.grid.Call("bind", index)
	return nil
}

func (e *Editor) bind(itemID interface{}) error {
	item := e.grid.dataSource.Item(itemID)
	e.group.UnbindAll()
	e.group.SetItem(item)
	for _, col := range e.grid.Columns() {
		p := item.Property(col.propertyID)
		if p == nil {
			continue
		}
		if err := e.bindField(col, p); err != nil {
			e.group.UnbindAll()
			e.group.SetItem(nil)
			return err
		}
	}
	e.itemID = itemID
	e.editing = true
	e.grid.MarkAsDirty()
	return nil
}

func (e *Editor) bindField(col *Column, p container.Property) error {
	f, err := e.fieldFor(col.propertyID, p.Type())
	if err != nil {
		return err
	}
	if err := e.group.Bind(f, col.propertyID); err != nil {
		return err
	}
	f.SetReadOnly(!col.state.Editable || p.ReadOnly())
	return nil
}

func (e *Editor) fieldFor(pid interface{}, t reflect.Type) (field.Field, error) {
	if f := e.fields[pid]; f != nil {
		return f, nil
	}
	f, err := e.group.Factory().CreateField(pid, t)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("field factory built no field for property %v", pid)
	}
	e.fields[pid] = f
	e.grid.MarkAsDirty()
	return f, nil
}

// Field returns the field of the column of propertyID, building it if
// needed. While editing, the property must exist on the edited item.
func (e *Editor) Field(propertyID interface{}) (field.Field, error) {
	col := e.grid.columns[propertyID]
	if col == nil {
		return nil, illegalArgument("there is no column for property %v", propertyID)
	}
	var p container.Property
	if e.editing {
		p = e.grid.dataSource.Item(e.itemID).Property(propertyID)
		if p == nil {
			return nil, illegalArgument("edited item %v has no property %v", e.itemID, propertyID)
		}
	}
	if f := e.fields[propertyID]; f != nil {
		return f, nil
	}
	if p != nil {
		if err := e.bindField(col, p); err != nil {
			return nil, err
		}
		return e.fields[propertyID], nil
	}
	return e.fieldFor(propertyID, e.grid.dataSource.Type(propertyID))
}

// SetField replaces the field of the column of propertyID. A nil field
// makes the editor build a new one when it's needed.
func (e *Editor) SetField(propertyID interface{}, f field.Field) error {
	col := e.grid.columns[propertyID]
	if col == nil {
		return illegalArgument("there is no column for property %v", propertyID)
	}
	if e.fields[propertyID] == f {
		return nil
	}
	e.removeField(propertyID)
	if f == nil {
		return nil
	}
	e.fields[propertyID] = f
	if e.editing {
		if p := e.grid.dataSource.Item(e.itemID).Property(propertyID); p != nil {
			return e.bindField(col, p)
		}
	}
	return nil
}

func (e *Editor) removeField(pid interface{}) {
	old := e.fields[pid]
	if old == nil {
		return
	}
	e.group.Unbind(old)
	delete(e.fields, pid)
	e.grid.release(old)
	e.grid.MarkAsDirty()
}

func (e *Editor) columnRemoved(pid interface{}) {
	e.removeField(pid)
}

// Save commits the fields to the edited item and closes the editor. When
// any field is invalid, a *field.CommitError is returned, nothing is written
// and the editor stays open.
func (e *Editor) Save() error {
	if !e.editing {
		return illegalState("editor is not editing")
	}
	index := e.grid.dataSource.IndexOfID(e.itemID)
	if err := e.save(); err != nil {
		return err
	}
	e.grid.Call("cancel", index)
	return nil
}

func (e *Editor) save() error {
	if err := e.group.Commit(); err != nil {
		return err
	}
	e.close()
	return nil
}

// Cancel discards the edits and closes the editor. Nothing happens when no
// item is being edited.
func (e *Editor) Cancel() {
	if !e.editing {
		return
	}
	index := e.grid.dataSource.IndexOfID(e.itemID)
	e.close()
	e.grid.Call("cancel", index)
}

func (e *Editor) close() {
	e.group.Discard()
	e.group.UnbindAll()
	e.group.SetItem(nil)
	e.editing = false
	e.itemID = nil
	e.grid.MarkAsDirty()
}

func (e *Editor) reset() {
	e.Cancel()
}

func (e *Editor) itemsRemoved(ids []interface{}) {
	if e.editing && containsID(ids, e.itemID) {
		e.close()
	}
}

func (e *Editor) SaveCaption() string {
	return e.grid.state.EditorSaveCaption
}

func (e *Editor) SetSaveCaption(caption string) error {
	if caption == "" {
		return illegalArgument("save caption cannot be empty")
	}
	e.grid.state.EditorSaveCaption = caption
	e.grid.MarkAsDirty()
	return nil
}

func (e *Editor) CancelCaption() string {
	return e.grid.state.EditorCancelCaption
}

func (e *Editor) SetCancelCaption(caption string) error {
	if caption == "" {
		return illegalArgument("cancel caption cannot be empty")
	}
	e.grid.state.EditorCancelCaption = caption
	e.grid.MarkAsDirty()
	return nil
}

// SetFieldFactory sets how missing fields are built. A nil factory restores
// the default.
func (e *Editor) SetFieldFactory(f field.Factory) {
	if f == nil {
		f = e.defaultFactory()
	}
	e.group.SetFactory(f)
}

func (e *Editor) FieldFactory() field.Factory {
	return e.group.Factory()
}

// SetErrorHandler sets the handler for failed saves requested by the client.
// A nil handler restores DefaultEditorErrorHandler.
func (e *Editor) SetErrorHandler(h EditorErrorHandler) {
	if h == nil {
		h = DefaultEditorErrorHandler
	}
	e.errorHandler = h
}

func (e *Editor) ErrorHandler() EditorErrorHandler {
	return e.errorHandler
}

// clientBind answers the client's request to open the editor on row.
func (e *Editor) clientBind(row int) {
	err := e.bindRow(row)
	if err != nil {
		glog.V(1).Infof("grid: editor bind of row %d refused: %s", row, err)
	}
	e.grid.Call("confirmBind", err == nil)
}

func (e *Editor) bindRow(row int) error {
	if !e.Enabled() {
		return illegalState("editor is not enabled")
	}
	id, exists := e.grid.dataSource.IDByIndex(row)
	if !exists {
		return illegalArgument("there is no row %d", row)
	}
	if e.editing {
		if e.itemID == id {
			return nil
		}
		return illegalState("editor is already editing item %v", e.itemID)
	}
	return e.bind(id)
}

func (e *Editor) clientSave(row int) {
	if !e.editing || e.grid.dataSource.IndexOfID(e.itemID) != row {
		glog.V(1).Infof("grid: editor save of row %d refused, it is not being edited", row)
		e.grid.Call("confirmSave", false, "", []string{})
		return
	}
	err := e.save()
	if err == nil {
		e.grid.Call("confirmSave", true, "", []string{})
		return
	}

	event := &CommitErrorEvent{Grid: e.grid, Err: err}
	e.errorHandler.CommitError(event)
	keys := []string{}
	for _, col := range event.ErrorColumns {
		keys = append(keys, col.key)
	}
	e.grid.Call("confirmSave", false, event.UserErrorMessage, keys)
}

func (e *Editor) clientCancel(row int) {
	if e.editing && e.grid.dataSource.IndexOfID(e.itemID) == row {
		e.close()
	}
}
