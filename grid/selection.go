package grid

import (
	"github.com/golang/glog"

	"github.com/CrimsonAS/qgrid/container"
)

type SelectionMode int

const (
	SelectionSingle SelectionMode = iota
	SelectionMulti
	SelectionNone
)

func (m SelectionMode) String() string {
	switch m {
	case SelectionSingle:
		return "SINGLE"
	case SelectionMulti:
		return "MULTI"
	case SelectionNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// DefaultSelectionLimit bounds how many rows a MultiSelection selects.
const DefaultSelectionLimit = 1000

// SelectionEvent describes one change of the selection.
type SelectionEvent struct {
	Added        []interface{}
	Removed      []interface{}
	OldSelection []interface{}
	NewSelection []interface{}
}

// SelectionModel is one of *SingleSelection, *MultiSelection or
// *NoSelection. A model belongs to at most one grid; while it belongs to
// none, its mutations fail with ErrIllegalState.
type SelectionModel interface {
	// Selected returns the selected item ids in selection order.
	Selected() []interface{}
	IsSelected(itemID interface{}) bool
	Mode() SelectionMode

	base() *selectionBase
	reset()
}

type selectionBase struct {
	grid     *Grid
	selected []interface{}
}

func (s *selectionBase) base() *selectionBase {
	return s
}

func (s *selectionBase) Selected() []interface{} {
	return append([]interface{}{}, s.selected...)
}

func (s *selectionBase) IsSelected(itemID interface{}) bool {
	return containsID(s.selected, itemID)
}

func (s *selectionBase) checkAttached() error {
	if s.grid == nil {
		return illegalState("selection model is not attached to a grid")
	}
	return nil
}

// checkItems fails unless every id is in the grid's data source.
func (s *selectionBase) checkItems(ids []interface{}) error {
	for _, id := range ids {
		if !s.grid.dataSource.ContainsID(id) {
			return illegalArgument("item %v is not in the data source", id)
		}
	}
	return nil
}

// update replaces the selection and notifies the grid when it changed.
func (s *selectionBase) update(selected []interface{}) bool {
	old := s.selected
	var added, removed []interface{}
	for _, id := range selected {
		if !containsID(old, id) {
			added = append(added, id)
		}
	}
	for _, id := range old {
		if !containsID(selected, id) {
			removed = append(removed, id)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return false
	}
	s.selected = selected
	s.grid.selectionChanged(SelectionEvent{
		Added:        added,
		Removed:      removed,
		OldSelection: append([]interface{}{}, old...),
		NewSelection: append([]interface{}{}, selected...),
	})
	return true
}

// SingleSelection selects at most one row.
type SingleSelection struct {
	selectionBase
}

func NewSingleSelection() *SingleSelection {
	return &SingleSelection{}
}

func (s *SingleSelection) Mode() SelectionMode {
	return SelectionSingle
}

// Select makes itemID the selected row and reports whether the selection
// changed. A nil itemID deselects.
func (s *SingleSelection) Select(itemID interface{}) (bool, error) {
	if err := s.checkAttached(); err != nil {
		return false, err
	}
	if itemID == nil {
		return s.update(nil), nil
	}
	if err := s.checkItems([]interface{}{itemID}); err != nil {
		return false, err
	}
	return s.update([]interface{}{itemID}), nil
}

// Deselect deselects itemID if it is the selected row.
func (s *SingleSelection) Deselect(itemID interface{}) (bool, error) {
	if err := s.checkAttached(); err != nil {
		return false, err
	}
	if !s.IsSelected(itemID) {
		return false, nil
	}
	return s.update(nil), nil
}

// SelectedRow returns nil when nothing is selected.
func (s *SingleSelection) SelectedRow() interface{} {
	if len(s.selected) == 0 {
		return nil
	}
	return s.selected[0]
}

// SetDeselectAllowed controls whether the user may deselect the selected row.
func (s *SingleSelection) SetDeselectAllowed(allowed bool) error {
	if err := s.checkAttached(); err != nil {
		return err
	}
	s.grid.state.SingleSelectDeselectAllowed = allowed
	s.grid.MarkAsDirty()
	return nil
}

func (s *SingleSelection) DeselectAllowed() bool {
	return s.grid != nil && s.grid.state.SingleSelectDeselectAllowed
}

func (s *SingleSelection) reset() {
	s.update(nil)
}

// MultiSelection selects any number of rows up to its limit.
type MultiSelection struct {
	selectionBase
	limit int
}

func NewMultiSelection() *MultiSelection {
	return &MultiSelection{limit: DefaultSelectionLimit}
}

func (s *MultiSelection) Mode() SelectionMode {
	return SelectionMulti
}

// Select adds ids to the selection, in order, until the limit is reached. It
// fails without selecting anything if any id isn't in the data source.
func (s *MultiSelection) Select(ids ...interface{}) (bool, error) {
	if err := s.checkAttached(); err != nil {
		return false, err
	}
	if err := s.checkItems(ids); err != nil {
		return false, err
	}
	selected := append([]interface{}{}, s.selected...)
	for _, id := range ids {
		if len(selected) >= s.limit {
			break
		}
		if !containsID(selected, id) {
			selected = append(selected, id)
		}
	}
	return s.update(selected), nil
}

func (s *MultiSelection) Deselect(ids ...interface{}) (bool, error) {
	if err := s.checkAttached(); err != nil {
		return false, err
	}
	var selected []interface{}
	for _, id := range s.selected {
		if !containsID(ids, id) {
			selected = append(selected, id)
		}
	}
	return s.update(selected), nil
}

// SetSelected makes ids the selection, firing one event for the rows added
// and removed.
func (s *MultiSelection) SetSelected(ids ...interface{}) (bool, error) {
	if err := s.checkAttached(); err != nil {
		return false, err
	}
	var selected []interface{}
	for _, id := range ids {
		if !containsID(selected, id) {
			selected = append(selected, id)
		}
	}
	if len(selected) > s.limit {
		return false, illegalArgument("%d rows exceed the selection limit of %d", len(selected), s.limit)
	}
	var added []interface{}
	for _, id := range selected {
		if !s.IsSelected(id) {
			added = append(added, id)
		}
	}
	if err := s.checkItems(added); err != nil {
		return false, err
	}
	return s.update(selected), nil
}

// SelectAll selects every row of the data source, up to the limit.
func (s *MultiSelection) SelectAll() (bool, error) {
	if err := s.checkAttached(); err != nil {
		return false, err
	}
	return s.Select(s.grid.dataSource.ItemIDs()...)
}

func (s *MultiSelection) DeselectAll() (bool, error) {
	if err := s.checkAttached(); err != nil {
		return false, err
	}
	return s.update(nil), nil
}

// AllSelected reports whether every row is selected. It's false when the
// data source is empty.
func (s *MultiSelection) AllSelected() bool {
	if s.grid == nil {
		return false
	}
	ds := s.grid.dataSource
	present := 0
	for _, id := range s.selected {
		if ds.ContainsID(id) {
			present++
		}
	}
	return present > 0 && present == ds.Size()
}

func (s *MultiSelection) SelectionLimit() int {
	return s.limit
}

// SetSelectionLimit does not deselect rows beyond a lowered limit.
func (s *MultiSelection) SetSelectionLimit(limit int) error {
	if limit < 0 {
		return illegalArgument("selection limit cannot be negative, got %d", limit)
	}
	s.limit = limit
	return nil
}

func (s *MultiSelection) reset() {
	s.update(nil)
}

// NoSelection never selects anything.
type NoSelection struct {
	selectionBase
}

func NewNoSelection() *NoSelection {
	return &NoSelection{}
}

func (s *NoSelection) Mode() SelectionMode {
	return SelectionNone
}

func (s *NoSelection) reset() {}

// SetSelectionMode replaces the selection model with a new one of mode.
func (g *Grid) SetSelectionMode(mode SelectionMode) (SelectionModel, error) {
	var m SelectionModel
	switch mode {
	case SelectionSingle:
		m = NewSingleSelection()
	case SelectionMulti:
		m = NewMultiSelection()
	case SelectionNone:
		m = NewNoSelection()
	default:
		return nil, illegalArgument("unknown selection mode %d", mode)
	}
	return m, g.SetSelectionModel(m)
}

// SetSelectionModel clears the selection of the current model, detaches it
// and attaches m with an empty selection.
func (g *Grid) SetSelectionModel(m SelectionModel) error {
	if m == nil {
		return illegalArgument("selection model cannot be nil")
	}
	if m == g.selection {
		return nil
	}
	if owner := m.base().grid; owner != nil {
		return illegalArgument("selection model belongs to another grid")
	}
	if old := g.selection; old != nil {
		old.reset()
		old.base().grid = nil
	}
	g.selection = m
	m.base().grid = g
	m.reset()
	g.state.SelectionMode = m.Mode().String()
	g.state.SelectAllChecked = false
	g.MarkAsDirty()
	return nil
}

func (g *Grid) SelectionModel() SelectionModel {
	return g.selection
}

func (g *Grid) AddSelectionListener(fn func(SelectionEvent)) container.Registration {
	return g.selectionListeners.Add(fn)
}

// Select selects itemID in single or multi selection mode.
func (g *Grid) Select(itemID interface{}) (bool, error) {
	switch m := g.selection.(type) {
	case *SingleSelection:
		return m.Select(itemID)
	case *MultiSelection:
		return m.Select(itemID)
	default:
		return false, illegalState("cannot select in %s selection mode", m.Mode())
	}
}

func (g *Grid) Deselect(itemID interface{}) (bool, error) {
	switch m := g.selection.(type) {
	case *SingleSelection:
		return m.Deselect(itemID)
	case *MultiSelection:
		return m.Deselect(itemID)
	default:
		return false, illegalState("cannot deselect in %s selection mode", m.Mode())
	}
}

// SelectedRow is only available in single selection mode.
func (g *Grid) SelectedRow() (interface{}, error) {
	m, ok := g.selection.(*SingleSelection)
	if !ok {
		return nil, illegalState("there is no single selected row in %s selection mode", g.selection.Mode())
	}
	return m.SelectedRow(), nil
}

func (g *Grid) SelectedRows() []interface{} {
	return g.selection.Selected()
}

func (g *Grid) IsSelected(itemID interface{}) bool {
	return g.selection.IsSelected(itemID)
}

// SetUserSelectionAllowed controls whether the client may change the
// selection.
func (g *Grid) SetUserSelectionAllowed(allowed bool) {
	g.state.UserSelectionAllowed = allowed
	g.MarkAsDirty()
}

func (g *Grid) UserSelectionAllowed() bool {
	return g.state.UserSelectionAllowed
}

// selectionChanged keeps row keys of selected rows pinned and the selected
// keys in the state. Changes caused by the client's select call are not
// marked dirty; applySelection decides whether the client needs them.
func (g *Grid) selectionChanged(e SelectionEvent) {
	for _, id := range e.Added {
		g.rows.keys.Pin(id)
	}
	for _, id := range e.Removed {
		g.rows.keys.Unpin(id)
	}
	g.state.SelectedKeys = g.rows.keys.Keys(g.selection.Selected())

	dirty := g.updateSelectAllChecked()

	if g.clientSelections > 0 {
		g.clientSelections--
	} else {
		dirty = true
	}
	if dirty {
		g.MarkAsDirty()
	}
	g.selectionListeners.Fire(e)
}

// updateSelectAllChecked stores whether every row is selected and reports
// whether that changed.
func (g *Grid) updateSelectAllChecked() bool {
	allSelected := false
	if m, ok := g.selection.(*MultiSelection); ok {
		allSelected = m.AllSelected()
	}
	changed := allSelected != g.state.SelectAllChecked
	g.state.SelectAllChecked = allSelected
	return changed
}

// applySelection applies the client's select call. When the outcome matches
// what the client sent, the selected keys aren't echoed back; otherwise the
// actual selection is sent as a correction.
func (g *Grid) applySelection(keys []string) error {
	if !g.state.UserSelectionAllowed {
		return illegalState("user selection is not allowed")
	}
	ids, err := g.rows.keys.Ids(keys)
	if err != nil {
		return illegalArgument("%s", err)
	}

	g.clientSelections++
	defer func() { g.clientSelections = 0 }()

	switch m := g.selection.(type) {
	case *SingleSelection:
		if len(ids) > 1 {
			err = illegalArgument("%d rows selected in single selection mode", len(ids))
		} else if len(ids) == 1 {
			_, err = m.Select(ids[0])
		} else if m.DeselectAllowed() {
			_, err = m.Select(nil)
		}
	case *MultiSelection:
		_, err = m.SetSelected(ids...)
	default:
		err = illegalState("cannot select in %s selection mode", m.Mode())
	}

	g.reconcileSelection(keys)
	return err
}

func (g *Grid) applySelectAll() error {
	if !g.state.UserSelectionAllowed {
		return illegalState("user selection is not allowed")
	}
	m, ok := g.selection.(*MultiSelection)
	if !ok {
		return illegalState("cannot select all in %s selection mode", g.selection.Mode())
	}
	_, err := m.SelectAll()
	return err
}

func (g *Grid) reconcileSelection(received []string) {
	if sameKeys(received, g.state.SelectedKeys) {
		if err := g.Acknowledge("selectedKeys", g.state.SelectedKeys); err != nil {
			g.MarkAsDirty()
		}
		return
	}
	// The client shows what it sent; diff against that so the correction is
	// sent even when the selection didn't change.
	if err := g.Acknowledge("selectedKeys", received); err != nil {
		glog.V(1).Infof("grid: acknowledging selection failed: %s", err)
	}
	g.MarkAsDirty()
}

// sameKeys reports whether a and b hold the same set of keys.
func sameKeys(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, key := range a {
		set[key] = true
	}
	seen := make(map[string]bool, len(b))
	for _, key := range b {
		if !set[key] {
			return false
		}
		seen[key] = true
	}
	return len(seen) == len(set)
}
