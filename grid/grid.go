// Package grid implements a data grid component. A Grid shows the items of a
// container.Indexed data source, one column per property, with header and
// footer sections, column groups, row selection and an item editor.
//
// A Grid is a qbackend component: its state is diffed and sent to the client
// at every sync boundary of the connection it's attached to, and the client
// drives selection, sorting, row fetching and editing through RPC.
package grid

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode"

	"github.com/golang/glog"

	qbackend "github.com/CrimsonAS/qgrid/backend"
	"github.com/CrimsonAS/qgrid/container"
	"github.com/CrimsonAS/qgrid/keymapper"
	"github.com/CrimsonAS/qgrid/renderer"
	"github.com/CrimsonAS/qgrid/state"
)

type HeightMode string

const (
	// HeightCSS sizes the grid by its style.
	HeightCSS HeightMode = "CSS"
	// HeightRow sizes the grid to show HeightByRows rows.
	HeightRow HeightMode = "ROW"
)

// ScrollDestination is where a row ends up in the viewport after ScrollTo.
type ScrollDestination string

const (
	ScrollAny    ScrollDestination = "ANY"
	ScrollStart  ScrollDestination = "START"
	ScrollMiddle ScrollDestination = "MIDDLE"
	ScrollEnd    ScrollDestination = "END"
)

type ItemClickEvent struct {
	ItemID     interface{}
	Item       container.Item
	PropertyID interface{}
}

type ColumnResizeEvent struct {
	Column         *Column
	UserOriginated bool
}

type Grid struct {
	qbackend.Component
	state *state.GridState

	dataSource       container.Indexed
	defaultContainer bool
	registrations    []container.Registration

	columns    map[interface{}]*Column
	columnKeys *keymapper.KeyMapper[interface{}]
	header     *Section
	footer     *Section
	groupRows  []*ColumnGroupRow

	selection          SelectionModel
	selectionListeners container.Listeners[SelectionEvent]
	// clientSelections counts the selection events still expected from the
	// client's select call being applied.
	clientSelections int

	editor *Editor
	rows   *dataProvider

	sortOrder       []SortOrder
	sortListeners   container.Listeners[SortEvent]
	clickListeners  container.Listeners[ItemClickEvent]
	resizeListeners container.Listeners[ColumnResizeEvent]
}

// NewGrid returns a grid backed by an empty in-memory container. AddColumn
// adds string properties to it.
func NewGrid() *Grid {
	g := newGrid()
	g.defaultContainer = true
	g.setDataSource(container.NewIndexedContainer())
	return g
}

// NewGridWithDataSource returns a grid with a column for every property of ds.
func NewGridWithDataSource(ds container.Indexed) (*Grid, error) {
	g := newGrid()
	if err := g.SetDataSource(ds); err != nil {
		return nil, err
	}
	return g, nil
}

func newGrid() *Grid {
	g := &Grid{
		state:      state.NewGridState(),
		columns:    make(map[interface{}]*Column),
		columnKeys: keymapper.New[interface{}](),
	}
	g.header = newSection(g, true, g.state.Header)
	g.footer = newSection(g, false, g.state.Footer)
	g.header.SetDefaultRow(g.header.AppendRow())
	g.rows = newDataProvider(g)
	g.editor = newEditor(g)
	g.SetSelectionMode(SelectionSingle)
	g.registerRPC()
	return g
}

func (g *Grid) State() interface{} {
	return g.state
}

func (g *Grid) DataSource() container.Indexed {
	return g.dataSource
}

// SetDataSource replaces the data source. When the grid has no columns, one
// is added for every property of ds; otherwise ds must have a property for
// every existing column, or ErrIllegalState is returned and nothing changes.
// The editor is cancelled and the selection is cleared.
func (g *Grid) SetDataSource(ds container.Indexed) error {
	if ds == nil {
		return illegalArgument("data source cannot be nil")
	}
	if ds == g.dataSource {
		return nil
	}
	if len(g.columns) > 0 {
		props := ds.PropertyIDs()
		for _, col := range g.Columns() {
			if !containsID(props, col.propertyID) {
				return illegalState("data source has no property %v for an existing column", col.propertyID)
			}
		}
	}
	g.defaultContainer = false
	g.setDataSource(ds)
	return nil
}

func (g *Grid) setDataSource(ds container.Indexed) {
	for _, r := range g.registrations {
		r.Remove()
	}
	g.registrations = nil
	g.editor.reset()
	g.dataSource = ds

	// Keep the part of the sort order the new data source can apply
	var order []SortOrder
	if s, ok := ds.(container.Sortable); ok {
		sortable := s.SortablePropertyIDs()
		for _, o := range g.sortOrder {
			if containsID(sortable, o.PropertyID) {
				order = append(order, o)
			}
		}
	}
	g.sortOrder = order
	if len(order) > 0 {
		if err := g.sort(false); err != nil {
			glog.Warningf("grid: sorting new data source failed: %s", err)
		}
	} else {
		g.updateSortState()
	}

	g.selection.reset()
	g.rows.reset()

	if n, ok := ds.(container.PropertySetNotifier); ok {
		g.registrations = append(g.registrations, n.AddPropertySetChangeListener(g.propertySetChanged))
	}
	if n, ok := ds.(container.ItemSetNotifier); ok {
		g.registrations = append(g.registrations, n.AddItemSetChangeListener(g.itemSetChanged))
	}
	if n, ok := ds.(container.ValueChangeNotifier); ok {
		g.registrations = append(g.registrations, n.AddValueChangeListener(g.rows.valueChanged))
	}

	if len(g.columns) == 0 {
		for _, pid := range ds.PropertyIDs() {
			g.appendColumn(pid)
		}
	} else {
		for _, col := range g.columns {
			col.state.Sortable = g.propertySortable(col.propertyID)
		}
	}
	g.checkFrozen()
	g.MarkAsDirty()
}

func (g *Grid) propertySetChanged(container.PropertySetChange) {
	props := g.dataSource.PropertyIDs()
	for _, col := range g.Columns() {
		if !containsID(props, col.propertyID) {
			g.removeColumn(col)
		}
	}
	for _, pid := range props {
		if _, exists := g.columns[pid]; !exists {
			g.appendColumn(pid)
		}
	}
	g.checkFrozen()
}

func (g *Grid) itemSetChanged(e container.ItemSetChange) {
	if e.Kind == container.ItemsRemoved {
		g.editor.itemsRemoved(e.ItemIDs)
	}
	g.rows.itemSetChanged(e)
	if g.updateSelectAllChecked() {
		g.MarkAsDirty()
	}
}

func (g *Grid) propertySortable(pid interface{}) bool {
	s, ok := g.dataSource.(container.Sortable)
	return ok && containsID(s.SortablePropertyIDs(), pid)
}

// AddColumn adds a column for propertyID. A grid backed by its default
// container adds a string property first if needed; for other data sources
// the property must exist.
func (g *Grid) AddColumn(propertyID interface{}) (*Column, error) {
	if propertyID == nil {
		return nil, illegalArgument("property id cannot be nil")
	}
	if _, exists := g.columns[propertyID]; exists {
		return nil, illegalState("grid already has a column for property %v", propertyID)
	}
	if !containsID(g.dataSource.PropertyIDs(), propertyID) {
		if !g.defaultContainer {
			return nil, illegalState("data source has no property %v", propertyID)
		}
		if err := g.dataSource.AddProperty(propertyID, reflect.TypeOf(""), ""); err != nil {
			return nil, err
		}
	}
	// A notifying data source has already caused the column to be added
	if col, exists := g.columns[propertyID]; exists {
		return col, nil
	}
	return g.appendColumn(propertyID), nil
}

func (g *Grid) appendColumn(pid interface{}) *Column {
	key := g.columnKeys.Key(pid)
	col := &Column{
		grid:       g,
		propertyID: pid,
		key:        key,
		state: &state.ColumnState{
			ID:       key,
			Width:    -1,
			Visible:  true,
			Editable: true,
		},
	}
	g.columns[pid] = col
	g.state.Columns = append(g.state.Columns, col.state)
	g.state.ColumnOrder = append(g.state.ColumnOrder, key)
	g.header.addColumn(key)
	g.footer.addColumn(key)

	col.setRenderer(renderer.NewText())
	col.setHeaderCaption(humanFriendly(pid))
	col.state.Sortable = g.propertySortable(pid)

	g.rows.columnsChanged()
	g.MarkAsDirty()
	return col
}

// RemoveColumn removes the column of propertyID. The property stays in the
// data source.
func (g *Grid) RemoveColumn(propertyID interface{}) error {
	col, exists := g.columns[propertyID]
	if !exists {
		return illegalArgument("there is no column for property %v", propertyID)
	}
	g.removeColumn(col)
	return nil
}

func (g *Grid) RemoveAllColumns() {
	for _, col := range g.Columns() {
		g.removeColumn(col)
	}
}

func (g *Grid) removeColumn(col *Column) {
	pid, key := col.propertyID, col.key

	g.editor.columnRemoved(pid)
	g.header.removeColumn(key)
	g.footer.removeColumn(key)
	for _, row := range g.groupRows {
		row.columnRemoved(pid)
	}

	delete(g.columns, pid)
	for i, cs := range g.state.Columns {
		if cs == col.state {
			g.state.Columns = append(g.state.Columns[:i:i], g.state.Columns[i+1:]...)
			break
		}
	}
	g.state.ColumnOrder = removeString(g.state.ColumnOrder, key)
	g.columnKeys.Remove(pid)
	if ext, ok := col.renderer.(renderer.Extension); ok {
		ext.Detach()
	}
	col.grid = nil

	var order []SortOrder
	for _, o := range g.sortOrder {
		if o.PropertyID != pid {
			order = append(order, o)
		}
	}
	if len(order) != len(g.sortOrder) {
		g.sortOrder = order
		g.updateSortState()
	}

	g.checkFrozen()
	g.rows.columnsChanged()
	g.MarkAsDirty()
}

// Column returns the column of propertyID, or nil.
func (g *Grid) Column(propertyID interface{}) *Column {
	return g.columns[propertyID]
}

// Columns returns the columns in the order they are shown.
func (g *Grid) Columns() []*Column {
	cols := make([]*Column, 0, len(g.state.ColumnOrder))
	for _, key := range g.state.ColumnOrder {
		if col := g.columnByKey(key); col != nil {
			cols = append(cols, col)
		}
	}
	return cols
}

func (g *Grid) columnByKey(key string) *Column {
	pid, ok := g.columnKeys.Get(key)
	if !ok {
		return nil
	}
	return g.columns[pid]
}

// SetColumnOrder shows the given columns first, in the given order. The
// remaining columns follow in their current order.
func (g *Grid) SetColumnOrder(propertyIDs ...interface{}) error {
	order := make([]string, 0, len(g.state.ColumnOrder))
	for _, pid := range propertyIDs {
		col, exists := g.columns[pid]
		if !exists {
			return illegalArgument("grid does not contain a column for property %v", pid)
		}
		if containsString(order, col.key) {
			return illegalArgument("property %v is listed twice", pid)
		}
		order = append(order, col.key)
	}
	for _, key := range g.state.ColumnOrder {
		if !containsString(order, key) {
			order = append(order, key)
		}
	}
	g.state.ColumnOrder = order
	g.rows.columnsChanged()
	g.MarkAsDirty()
	return nil
}

// SetLastFrozenColumn freezes the columns up to and including the column of
// propertyID. A nil propertyID unfreezes all columns.
func (g *Grid) SetLastFrozenColumn(propertyID interface{}) error {
	key := ""
	if propertyID != nil {
		col, exists := g.columns[propertyID]
		if !exists {
			return illegalArgument("there is no column for property %v", propertyID)
		}
		key = col.key
	}
	g.state.LastFrozenColumnID = key
	g.MarkAsDirty()
	return nil
}

// LastFrozenColumn returns nil when no column is frozen.
func (g *Grid) LastFrozenColumn() *Column {
	if g.state.LastFrozenColumnID == "" {
		return nil
	}
	return g.columnByKey(g.state.LastFrozenColumnID)
}

func (g *Grid) checkFrozen() {
	if key := g.state.LastFrozenColumnID; key != "" && g.columnByKey(key) == nil {
		g.state.LastFrozenColumnID = ""
		g.MarkAsDirty()
	}
}

func (g *Grid) Header() *Section {
	return g.header
}

func (g *Grid) Footer() *Section {
	return g.footer
}

func (g *Grid) Editor() *Editor {
	return g.editor
}

func (g *Grid) SetHeightMode(mode HeightMode) error {
	if mode != HeightCSS && mode != HeightRow {
		return illegalArgument("unknown height mode %q", mode)
	}
	g.state.HeightMode = string(mode)
	g.MarkAsDirty()
	return nil
}

func (g *Grid) HeightMode() HeightMode {
	return HeightMode(g.state.HeightMode)
}

// SetHeightByRows sets the number of rows shown in HeightRow mode. Fractions
// are allowed.
func (g *Grid) SetHeightByRows(rows float64) error {
	if rows <= 0 || math.IsInf(rows, 0) || math.IsNaN(rows) {
		return illegalArgument("height by rows must be a positive number, got %v", rows)
	}
	g.state.HeightByRows = rows
	g.MarkAsDirty()
	return nil
}

func (g *Grid) HeightByRows() float64 {
	return g.state.HeightByRows
}

// ScrollTo asks the client to scroll the row of itemID into view.
func (g *Grid) ScrollTo(itemID interface{}, dest ScrollDestination) error {
	switch dest {
	case ScrollAny, ScrollStart, ScrollMiddle, ScrollEnd:
	default:
		return illegalArgument("unknown scroll destination %q", dest)
	}
	index := g.dataSource.IndexOfID(itemID)
	if index < 0 {
		return illegalArgument("item %v is not in the data source", itemID)
	}
	g.Call("scrollToRow", index, string(dest))
	return nil
}

func (g *Grid) ScrollToStart() {
	g.Call("scrollToStart")
}

func (g *Grid) ScrollToEnd() {
	g.Call("scrollToEnd")
}

// RecalculateColumnWidths asks the client to size columns without a width to
// their content again.
func (g *Grid) RecalculateColumnWidths() {
	g.Call("recalculateColumnWidths")
}

// AddRow adds an item holding values, one per column in column order. If
// any value doesn't fit its property, the item is removed again and the
// error returned.
func (g *Grid) AddRow(values ...interface{}) (interface{}, error) {
	cols := g.Columns()
	if len(values) != len(cols) {
		return nil, illegalArgument("there are %d columns, but %d values were given", len(cols), len(values))
	}
	for i, col := range cols {
		if values[i] == nil {
			continue
		}
		t := g.dataSource.Type(col.propertyID)
		if vt := reflect.TypeOf(values[i]); t != nil && !vt.AssignableTo(t) {
			return nil, illegalArgument("value %d is a %s, property %v holds %s", i, vt, col.propertyID, t)
		}
	}

	id, err := g.dataSource.AddItem()
	if err != nil {
		return nil, err
	}
	item := g.dataSource.Item(id)
	for i, col := range cols {
		var err error
		if p := item.Property(col.propertyID); p == nil {
			err = illegalArgument("item %v has no property %v", id, col.propertyID)
		} else {
			err = p.SetValue(values[i])
		}
		if err != nil {
			if rerr := g.dataSource.RemoveItem(id); rerr != nil {
				glog.Warningf("grid: removing partially added row %v failed: %s", id, rerr)
			}
			return nil, err
		}
	}
	return id, nil
}

func (g *Grid) AddItemClickListener(fn func(ItemClickEvent)) container.Registration {
	return g.clickListeners.Add(fn)
}

func (g *Grid) AddColumnResizeListener(fn func(ColumnResizeEvent)) container.Registration {
	return g.resizeListeners.Add(fn)
}

// Children returns the bound editor fields and the components shown in
// header and footer cells.
func (g *Grid) Children() []qbackend.Connector {
	var children []qbackend.Connector
	for _, col := range g.Columns() {
		if f := g.editor.fields[col.propertyID]; f != nil {
			children = append(children, f)
		}
	}
	children = g.header.components(children)
	children = g.footer.components(children)
	return children
}

// release detaches a child that the grid no longer shows.
func (g *Grid) release(child qbackend.Connector) {
	if conn := g.Connection(); conn != nil && child != nil {
		conn.Detach(child)
	}
}

func (g *Grid) BeforeClientResponse(initial bool) {
	changed := false
	for _, col := range g.columns {
		id := ""
		if f := g.editor.fields[col.propertyID]; f != nil {
			id = f.Identifier()
		}
		if col.state.EditorConnector != id {
			col.state.EditorConnector = id
			changed = true
		}
	}
	if g.header.resolveConnectors() {
		changed = true
	}
	if g.footer.resolveConnectors() {
		changed = true
	}

	msg := ""
	if err := g.sanityCheck(); err != nil {
		msg = err.Error()
	}
	if msg != g.state.ComponentError {
		if msg != "" {
			glog.Warningf("grid: %s", msg)
		}
		g.state.ComponentError = msg
		changed = true
	}
	if changed {
		g.MarkAsDirty()
	}
}

// sanityCheck verifies what mutations of column order may have broken: every
// joined cell and column group spans adjacent columns, and the header has at
// most one default row.
func (g *Grid) sanityCheck() error {
	if err := g.header.sanityCheck(); err != nil {
		return err
	}
	if err := g.footer.sanityCheck(); err != nil {
		return err
	}
	for _, row := range g.groupRows {
		for _, group := range row.groups {
			if !g.contiguous(group.state.Columns) {
				return fmt.Errorf("column group %v spans columns that are not adjacent", group.pids)
			}
		}
	}
	return nil
}

// contiguous reports whether the columns of keys are adjacent in column
// order.
func (g *Grid) contiguous(keys []string) bool {
	if len(keys) == 0 {
		return true
	}
	min, max := len(g.state.ColumnOrder), -1
	for _, key := range keys {
		pos := indexOfString(g.state.ColumnOrder, key)
		if pos < 0 {
			return false
		}
		if pos < min {
			min = pos
		}
		if pos > max {
			max = pos
		}
	}
	return max-min+1 == len(keys)
}

// humanFriendly turns a property id like "firstName" or "home.zip_code" into
// "First Name" or "Zip Code".
func humanFriendly(pid interface{}) string {
	s := fmt.Sprint(pid)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	var words []string
	var word []rune
	flush := func() {
		if len(word) > 0 {
			word[0] = unicode.ToUpper(word[0])
			words = append(words, string(word))
			word = nil
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && i > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		case unicode.IsDigit(r) && i > 0 && !unicode.IsDigit(runes[i-1]):
			flush()
		}
		word = append(word, r)
	}
	flush()
	return strings.Join(words, " ")
}

func containsID(ids []interface{}, id interface{}) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	return indexOfString(list, s) >= 0
}

func indexOfString(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func removeString(list []string, s string) []string {
	if i := indexOfString(list, s); i >= 0 {
		return append(list[:i:i], list[i+1:]...)
	}
	return list
}
