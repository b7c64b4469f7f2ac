package grid

import (
	"github.com/CrimsonAS/qgrid/state"
)

// ColumnGroupRow is a row of column groups shown above the header or below
// the footer. Rows are stacked: a group must either contain or be disjoint
// from every group of the row above it.
type ColumnGroupRow struct {
	grid   *Grid
	state  *state.ColumnGroupRowState
	groups []*ColumnGroup
}

// ColumnGroup spans a fixed run of adjacent columns.
type ColumnGroup struct {
	row   *ColumnGroupRow
	pids  []interface{}
	state *state.ColumnGroupState
}

// AddColumnGroupRow adds a row below the existing column group rows.
func (g *Grid) AddColumnGroupRow() *ColumnGroupRow {
	row, _ := g.AddColumnGroupRowAt(len(g.groupRows))
	return row
}

func (g *Grid) AddColumnGroupRowAt(index int) (*ColumnGroupRow, error) {
	if index < 0 || index > len(g.groupRows) {
		return nil, illegalArgument("cannot add column group row at %d, there are %d", index, len(g.groupRows))
	}
	row := &ColumnGroupRow{
		grid: g,
		state: &state.ColumnGroupRowState{
			Groups:        []*state.ColumnGroupState{},
			HeaderVisible: true,
		},
	}
	g.groupRows = append(g.groupRows, nil)
	copy(g.groupRows[index+1:], g.groupRows[index:])
	g.groupRows[index] = row
	g.state.ColumnGroupRows = append(g.state.ColumnGroupRows, nil)
	copy(g.state.ColumnGroupRows[index+1:], g.state.ColumnGroupRows[index:])
	g.state.ColumnGroupRows[index] = row.state
	g.MarkAsDirty()
	return row, nil
}

func (g *Grid) RemoveColumnGroupRow(row *ColumnGroupRow) error {
	index := g.groupRowIndex(row)
	if index < 0 {
		return illegalArgument("column group row is not part of this grid")
	}
	g.groupRows = append(g.groupRows[:index:index], g.groupRows[index+1:]...)
	g.state.ColumnGroupRows = append(g.state.ColumnGroupRows[:index:index], g.state.ColumnGroupRows[index+1:]...)
	row.grid = nil
	g.MarkAsDirty()
	return nil
}

func (g *Grid) ColumnGroupRows() []*ColumnGroupRow {
	return append([]*ColumnGroupRow(nil), g.groupRows...)
}

func (g *Grid) groupRowIndex(row *ColumnGroupRow) int {
	for i, r := range g.groupRows {
		if r == row {
			return i
		}
	}
	return -1
}

func (r *ColumnGroupRow) checkAttached() (int, error) {
	if r.grid == nil {
		return -1, illegalState("column group row has been removed")
	}
	return r.grid.groupRowIndex(r), nil
}

// AddGroup groups the columns of the given properties. The columns must be
// adjacent, none of them may be grouped in this row already, and the group
// must contain or be disjoint from every group in the row above, and be
// contained in or disjoint from every group in the row below. The returned
// group lists the properties in column order.
func (r *ColumnGroupRow) AddGroup(propertyIDs ...interface{}) (*ColumnGroup, error) {
	index, err := r.checkAttached()
	if err != nil {
		return nil, err
	}
	pids, keys, err := r.validate(index, propertyIDs, nil)
	if err != nil {
		return nil, err
	}
	return r.add(pids, keys), nil
}

// AddGroupOfGroups replaces groups of this row with one group spanning all
// of their columns.
func (r *ColumnGroupRow) AddGroupOfGroups(groups ...*ColumnGroup) (*ColumnGroup, error) {
	index, err := r.checkAttached()
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, illegalArgument("no groups given")
	}
	replaced := make(map[*ColumnGroup]bool, len(groups))
	var pids []interface{}
	for _, group := range groups {
		if group == nil || group.row != r {
			return nil, illegalArgument("group is not part of this row")
		}
		if replaced[group] {
			return nil, illegalArgument("group %v is listed twice", group.pids)
		}
		replaced[group] = true
		pids = append(pids, group.pids...)
	}
	pids, keys, err := r.validate(index, pids, replaced)
	if err != nil {
		return nil, err
	}
	for group := range replaced {
		r.remove(group)
	}
	return r.add(pids, keys), nil
}

// validate checks a prospective group of this row, ignoring the groups in
// skip, and returns its property ids and column keys in column order.
func (r *ColumnGroupRow) validate(index int, propertyIDs []interface{}, skip map[*ColumnGroup]bool) ([]interface{}, []string, error) {
	g := r.grid
	if len(propertyIDs) == 0 {
		return nil, nil, illegalArgument("a column group needs at least one column")
	}
	members := make(map[interface{}]bool, len(propertyIDs))
	for _, pid := range propertyIDs {
		if pid == nil {
			return nil, nil, illegalArgument("property id cannot be nil")
		}
		if _, exists := g.columns[pid]; !exists {
			return nil, nil, illegalArgument("there is no column for property %v", pid)
		}
		if members[pid] {
			return nil, nil, illegalArgument("property %v is listed twice", pid)
		}
		members[pid] = true
		for _, group := range r.groups {
			if !skip[group] && containsID(group.pids, pid) {
				return nil, nil, illegalArgument("column of property %v is already grouped in this row", pid)
			}
		}
	}

	var pids []interface{}
	var keys []string
	for _, col := range g.Columns() {
		if members[col.propertyID] {
			pids = append(pids, col.propertyID)
			keys = append(keys, col.key)
		}
	}
	if !g.contiguous(keys) {
		return nil, nil, illegalArgument("columns %v are not adjacent", pids)
	}

	if index > 0 {
		for _, parent := range g.groupRows[index-1].groups {
			if overlap(parent.pids, members) && !containsAll(members, parent.pids) {
				return nil, nil, illegalArgument("group %v partially overlaps group %v of the row above", pids, parent.pids)
			}
		}
	}
	if index+1 < len(g.groupRows) {
		for _, child := range g.groupRows[index+1].groups {
			if overlap(child.pids, members) && !containsAll(child.members(), pids) {
				return nil, nil, illegalArgument("group %v partially overlaps group %v of the row below", pids, child.pids)
			}
		}
	}
	return pids, keys, nil
}

func (r *ColumnGroupRow) add(pids []interface{}, keys []string) *ColumnGroup {
	group := &ColumnGroup{
		row:   r,
		pids:  pids,
		state: &state.ColumnGroupState{Columns: keys},
	}
	r.groups = append(r.groups, group)
	r.state.Groups = append(r.state.Groups, group.state)
	r.grid.MarkAsDirty()
	return group
}

func (r *ColumnGroupRow) remove(group *ColumnGroup) {
	for i, gr := range r.groups {
		if gr == group {
			r.groups = append(r.groups[:i:i], r.groups[i+1:]...)
			r.state.Groups = append(r.state.Groups[:i:i], r.state.Groups[i+1:]...)
			break
		}
	}
	group.row = nil
	r.grid.MarkAsDirty()
}

func (r *ColumnGroupRow) RemoveGroup(group *ColumnGroup) error {
	if _, err := r.checkAttached(); err != nil {
		return err
	}
	if group == nil || group.row != r {
		return illegalArgument("group is not part of this row")
	}
	r.remove(group)
	return nil
}

func (r *ColumnGroupRow) Groups() []*ColumnGroup {
	return append([]*ColumnGroup(nil), r.groups...)
}

// columnRemoved drops the groups spanning the removed column.
func (r *ColumnGroupRow) columnRemoved(pid interface{}) {
	for _, group := range r.Groups() {
		if containsID(group.pids, pid) {
			r.remove(group)
		}
	}
}

func (r *ColumnGroupRow) HeaderVisible() bool {
	return r.state.HeaderVisible
}

func (r *ColumnGroupRow) SetHeaderVisible(visible bool) error {
	if _, err := r.checkAttached(); err != nil {
		return err
	}
	r.state.HeaderVisible = visible
	r.grid.MarkAsDirty()
	return nil
}

func (r *ColumnGroupRow) FooterVisible() bool {
	return r.state.FooterVisible
}

func (r *ColumnGroupRow) SetFooterVisible(visible bool) error {
	if _, err := r.checkAttached(); err != nil {
		return err
	}
	r.state.FooterVisible = visible
	r.grid.MarkAsDirty()
	return nil
}

// Columns returns the grouped property ids in column order.
func (cg *ColumnGroup) Columns() []interface{} {
	return append([]interface{}(nil), cg.pids...)
}

func (cg *ColumnGroup) members() map[interface{}]bool {
	members := make(map[interface{}]bool, len(cg.pids))
	for _, pid := range cg.pids {
		members[pid] = true
	}
	return members
}

func (cg *ColumnGroup) checkAttached() error {
	if cg.row == nil || cg.row.grid == nil {
		return illegalState("column group has been removed")
	}
	return nil
}

func (cg *ColumnGroup) Header() string {
	return cg.state.Header
}

func (cg *ColumnGroup) SetHeader(caption string) error {
	if err := cg.checkAttached(); err != nil {
		return err
	}
	cg.state.Header = caption
	cg.row.grid.MarkAsDirty()
	return nil
}

func (cg *ColumnGroup) Footer() string {
	return cg.state.Footer
}

func (cg *ColumnGroup) SetFooter(caption string) error {
	if err := cg.checkAttached(); err != nil {
		return err
	}
	cg.state.Footer = caption
	cg.row.grid.MarkAsDirty()
	return nil
}

func overlap(pids []interface{}, members map[interface{}]bool) bool {
	for _, pid := range pids {
		if members[pid] {
			return true
		}
	}
	return false
}

func containsAll(members map[interface{}]bool, pids []interface{}) bool {
	for _, pid := range pids {
		if !members[pid] {
			return false
		}
	}
	return true
}
