package grid

import (
	"fmt"

	qbackend "github.com/CrimsonAS/qgrid/backend"
	"github.com/CrimsonAS/qgrid/state"
)

// Section is the header or the footer of a grid: rows of static cells, one
// cell per column. Adjacent cells of a row can be joined into one.
type Section struct {
	grid       *Grid
	header     bool
	state      *state.SectionState
	rows       []*Row
	defaultRow *Row
}

func newSection(g *Grid, header bool, st *state.SectionState) *Section {
	return &Section{grid: g, header: header, state: st}
}

func (s *Section) name() string {
	if s.header {
		return "header"
	}
	return "footer"
}

func (s *Section) RowCount() int {
	return len(s.rows)
}

func (s *Section) Row(index int) (*Row, error) {
	if index < 0 || index >= len(s.rows) {
		return nil, illegalArgument("%s has no row %d", s.name(), index)
	}
	return s.rows[index], nil
}

func (s *Section) Rows() []*Row {
	return append([]*Row(nil), s.rows...)
}

func (s *Section) AppendRow() *Row {
	row, _ := s.AddRowAt(len(s.rows))
	return row
}

func (s *Section) PrependRow() *Row {
	row, _ := s.AddRowAt(0)
	return row
}

// AddRowAt inserts a row with one empty cell per column before index.
func (s *Section) AddRowAt(index int) (*Row, error) {
	if index < 0 || index > len(s.rows) {
		return nil, illegalArgument("cannot add %s row at %d, it has %d rows", s.name(), index, len(s.rows))
	}
	row := &Row{section: s, state: state.NewRowState(), cells: make(map[string]*Cell)}
	for _, key := range s.grid.state.ColumnOrder {
		row.addCell(key)
	}

	s.rows = append(s.rows, nil)
	copy(s.rows[index+1:], s.rows[index:])
	s.rows[index] = row
	s.state.Rows = append(s.state.Rows, nil)
	copy(s.state.Rows[index+1:], s.state.Rows[index:])
	s.state.Rows[index] = row.state
	s.grid.MarkAsDirty()
	return row, nil
}

func (s *Section) RemoveRowAt(index int) error {
	if index < 0 || index >= len(s.rows) {
		return illegalArgument("%s has no row %d", s.name(), index)
	}
	row := s.rows[index]
	if row == s.defaultRow {
		s.setDefaultRow(nil)
	}
	s.rows = append(s.rows[:index:index], s.rows[index+1:]...)
	s.state.Rows = append(s.state.Rows[:index:index], s.state.Rows[index+1:]...)
	for _, cell := range row.allCells() {
		if cell.component != nil {
			s.grid.release(cell.component)
		}
	}
	row.section = nil
	s.grid.MarkAsDirty()
	return nil
}

func (s *Section) RemoveRow(row *Row) error {
	for i, r := range s.rows {
		if r == row {
			return s.RemoveRowAt(i)
		}
	}
	return illegalArgument("row is not part of the %s", s.name())
}

func (s *Section) Visible() bool {
	return s.state.Visible
}

func (s *Section) SetVisible(visible bool) {
	s.state.Visible = visible
	s.grid.MarkAsDirty()
}

// DefaultRow returns the header row showing the column captions, or nil.
func (s *Section) DefaultRow() *Row {
	return s.defaultRow
}

// SetDefaultRow makes row show the column captions. Only the header has a
// default row; a nil row clears it.
func (s *Section) SetDefaultRow(row *Row) error {
	if !s.header {
		return illegalState("the footer has no default row")
	}
	if row != nil && row.section != s {
		return illegalArgument("row is not part of the header")
	}
	s.setDefaultRow(row)
	return nil
}

func (s *Section) setDefaultRow(row *Row) {
	if row == s.defaultRow {
		return
	}
	if s.defaultRow != nil {
		s.defaultRow.state.DefaultRow = false
	}
	s.defaultRow = row
	if row != nil {
		row.state.DefaultRow = true
		for _, col := range s.grid.Columns() {
			if cell := row.cells[col.key]; cell != nil {
				cell.setText(col.state.Header)
			}
		}
	}
	s.grid.MarkAsDirty()
}

func (s *Section) addColumn(key string) {
	for _, row := range s.rows {
		row.addCell(key)
	}
}

func (s *Section) removeColumn(key string) {
	for _, row := range s.rows {
		row.removeCell(key)
	}
}

func (s *Section) components(list []qbackend.Connector) []qbackend.Connector {
	for _, row := range s.rows {
		for _, cell := range row.allCells() {
			if cell.component != nil {
				list = append(list, cell.component)
			}
		}
	}
	return list
}

// resolveConnectors stores the identifiers of cell components in the state
// and reports whether any changed.
func (s *Section) resolveConnectors() bool {
	changed := false
	for _, row := range s.rows {
		for _, cell := range row.allCells() {
			id := ""
			if cell.component != nil {
				id = cell.component.Identifier()
			}
			if cell.state.Connector != id {
				cell.state.Connector = id
				changed = true
			}
		}
	}
	return changed
}

func (s *Section) sanityCheck() error {
	defaults := 0
	for _, row := range s.state.Rows {
		if row.DefaultRow {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("multiple default rows in %s", s.name())
	}
	for _, row := range s.rows {
		for _, group := range row.groups {
			if !s.grid.contiguous(group.state.Columns) {
				return fmt.Errorf("incorrectly merged cells in %s", s.name())
			}
		}
	}
	return nil
}

// Row is one row of a Section.
type Row struct {
	section *Section
	state   *state.RowState
	cells   map[string]*Cell
	groups  []*cellGroup
}

type cellGroup struct {
	state *state.CellGroupState
	cell  *Cell
	// members are the joined cells, one per column in the group
	members []*Cell
}

func (r *Row) addCell(key string) {
	cell := &Cell{row: r, state: &state.CellState{ColumnID: key, Type: state.CellText}}
	r.cells[key] = cell
	r.state.Cells = append(r.state.Cells, cell.state)
}

func (r *Row) removeCell(key string) {
	cell := r.cells[key]
	if cell == nil {
		return
	}
	if cell.component != nil {
		r.section.grid.release(cell.component)
	}
	delete(r.cells, key)
	for i, cs := range r.state.Cells {
		if cs == cell.state {
			r.state.Cells = append(r.state.Cells[:i:i], r.state.Cells[i+1:]...)
			break
		}
	}

	group := r.groupOf(cell)
	cell.row = nil
	if group == nil {
		return
	}
	if len(group.members) > 2 {
		for i, m := range group.members {
			if m == cell {
				group.members = append(group.members[:i:i], group.members[i+1:]...)
				break
			}
		}
		group.state.Columns = removeString(group.state.Columns, key)
	} else {
		r.dissolve(group)
	}
}

func (r *Row) dissolve(group *cellGroup) {
	for i, gr := range r.groups {
		if gr == group {
			r.groups = append(r.groups[:i:i], r.groups[i+1:]...)
			r.state.CellGroups = append(r.state.CellGroups[:i:i], r.state.CellGroups[i+1:]...)
			break
		}
	}
	if group.cell.component != nil {
		r.section.grid.release(group.cell.component)
	}
	group.cell.row = nil
}

func (r *Row) groupOf(cell *Cell) *cellGroup {
	for _, group := range r.groups {
		for _, m := range group.members {
			if m == cell {
				return group
			}
		}
	}
	return nil
}

func (r *Row) allCells() []*Cell {
	cells := make([]*Cell, 0, len(r.state.Cells)+len(r.groups))
	for _, cs := range r.state.Cells {
		cells = append(cells, r.cells[cs.ColumnID])
	}
	for _, group := range r.groups {
		cells = append(cells, group.cell)
	}
	return cells
}

func (r *Row) checkAttached() error {
	if r.section == nil {
		return illegalState("row has been removed")
	}
	return nil
}

// Cell returns the cell of the column showing propertyID. When the cell is
// joined with others, the joined cell is returned.
func (r *Row) Cell(propertyID interface{}) (*Cell, error) {
	cell, err := r.ownCell(propertyID)
	if err != nil {
		return nil, err
	}
	if group := r.groupOf(cell); group != nil {
		return group.cell, nil
	}
	return cell, nil
}

func (r *Row) ownCell(propertyID interface{}) (*Cell, error) {
	if err := r.checkAttached(); err != nil {
		return nil, err
	}
	col := r.section.grid.columns[propertyID]
	if col == nil {
		return nil, illegalArgument("there is no column for property %v", propertyID)
	}
	return r.cells[col.key], nil
}

// Join joins the cells of the given properties into one and returns it.
func (r *Row) Join(propertyIDs ...interface{}) (*Cell, error) {
	cells := make([]*Cell, 0, len(propertyIDs))
	for _, pid := range propertyIDs {
		cell, err := r.ownCell(pid)
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return r.JoinCells(cells...)
}

// JoinCells joins at least two cells of this row that aren't joined yet.
// The joined cell starts out empty; its content is independent of the
// column captions.
func (r *Row) JoinCells(cells ...*Cell) (*Cell, error) {
	if err := r.checkAttached(); err != nil {
		return nil, err
	}
	if len(cells) < 2 {
		return nil, illegalArgument("at least two cells are needed for joining")
	}
	seen := make(map[*Cell]bool, len(cells))
	for _, cell := range cells {
		if cell == nil || cell.row != r || r.cells[cell.state.ColumnID] != cell {
			return nil, illegalArgument("cell is not part of this row")
		}
		if seen[cell] {
			return nil, illegalArgument("cell of column %s is listed twice", cell.state.ColumnID)
		}
		seen[cell] = true
		if r.groupOf(cell) != nil {
			return nil, illegalArgument("cell of column %s is already joined", cell.state.ColumnID)
		}
	}

	// Members are kept in column order
	g := r.section.grid
	members := make([]*Cell, 0, len(cells))
	keys := make([]string, 0, len(cells))
	for _, key := range g.state.ColumnOrder {
		if cell := r.cells[key]; seen[cell] {
			members = append(members, cell)
			keys = append(keys, key)
		}
	}
	joined := &Cell{row: r, state: &state.CellState{Type: state.CellText}}
	group := &cellGroup{
		state:   &state.CellGroupState{Columns: keys, Cell: joined.state},
		cell:    joined,
		members: members,
	}
	r.groups = append(r.groups, group)
	r.state.CellGroups = append(r.state.CellGroups, group.state)
	g.MarkAsDirty()
	return joined, nil
}

func (r *Row) StyleName() string {
	return r.state.StyleName
}

func (r *Row) SetStyleName(name string) error {
	if err := r.checkAttached(); err != nil {
		return err
	}
	r.state.StyleName = name
	r.section.grid.MarkAsDirty()
	return nil
}

// Cell holds exactly one of text, HTML or a component.
type Cell struct {
	row       *Row
	state     *state.CellState
	component qbackend.Connector
}

func (c *Cell) grid() (*Grid, error) {
	if c.row == nil || c.row.section == nil {
		return nil, illegalState("cell has been removed")
	}
	return c.row.section.grid, nil
}

// Type is one of state.CellText, state.CellHTML or state.CellComponent.
func (c *Cell) Type() string {
	return c.state.Type
}

func (c *Cell) SetText(text string) error {
	if _, err := c.grid(); err != nil {
		return err
	}
	c.setText(text)
	return nil
}

func (c *Cell) setText(text string) {
	c.setContent(state.CellText, text, "", nil)
}

func (c *Cell) Text() (string, error) {
	if c.state.Type != state.CellText {
		return "", illegalState("cell holds %s, not text", c.state.Type)
	}
	return c.state.Text, nil
}

func (c *Cell) SetHTML(html string) error {
	if _, err := c.grid(); err != nil {
		return err
	}
	c.setContent(state.CellHTML, "", html, nil)
	return nil
}

func (c *Cell) HTML() (string, error) {
	if c.state.Type != state.CellHTML {
		return "", illegalState("cell holds %s, not HTML", c.state.Type)
	}
	return c.state.HTML, nil
}

// SetComponent shows comp in the cell. The component is attached with the
// grid.
func (c *Cell) SetComponent(comp qbackend.Connector) error {
	if _, err := c.grid(); err != nil {
		return err
	}
	if comp == nil {
		return illegalArgument("component cannot be nil")
	}
	c.setContent(state.CellComponent, "", "", comp)
	return nil
}

func (c *Cell) Component() (qbackend.Connector, error) {
	if c.state.Type != state.CellComponent {
		return nil, illegalState("cell holds %s, not a component", c.state.Type)
	}
	return c.component, nil
}

func (c *Cell) setContent(typ, text, html string, comp qbackend.Connector) {
	g := c.row.section.grid
	if c.component != nil && c.component != comp {
		g.release(c.component)
	}
	c.component = comp
	c.state.Type = typ
	c.state.Text = text
	c.state.HTML = html
	if comp == nil {
		c.state.Connector = ""
	}
	g.MarkAsDirty()
}

func (c *Cell) StyleName() string {
	return c.state.StyleName
}

func (c *Cell) SetStyleName(name string) error {
	g, err := c.grid()
	if err != nil {
		return err
	}
	c.state.StyleName = name
	g.MarkAsDirty()
	return nil
}
