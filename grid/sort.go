package grid

import (
	"github.com/golang/glog"

	"github.com/CrimsonAS/qgrid/container"
)

type SortDirection string

const (
	Ascending  SortDirection = "ASCENDING"
	Descending SortDirection = "DESCENDING"
)

type SortOrder struct {
	PropertyID interface{}
	Direction  SortDirection
}

type SortEvent struct {
	Order          []SortOrder
	UserOriginated bool
}

// Sort sorts the grid by one property, replacing the current sort order.
func (g *Grid) Sort(propertyID interface{}, direction SortDirection) error {
	return g.SetSortOrder([]SortOrder{{propertyID, direction}})
}

// SetSortOrder sorts the data source by the given properties. The data source
// must be container.Sortable and sortable by each of the properties.
func (g *Grid) SetSortOrder(order []SortOrder) error {
	return g.setSortOrder(order, false)
}

func (g *Grid) setSortOrder(order []SortOrder, userOriginated bool) error {
	s, ok := g.dataSource.(container.Sortable)
	if !ok {
		return illegalState("data source is not sortable")
	}
	sortable := s.SortablePropertyIDs()
	for _, o := range order {
		if o.Direction != Ascending && o.Direction != Descending {
			return illegalArgument("unknown sort direction %q", o.Direction)
		}
		if !containsID(sortable, o.PropertyID) {
			return illegalArgument("data source cannot sort by property %v", o.PropertyID)
		}
	}
	g.sortOrder = append([]SortOrder(nil), order...)
	return g.sort(userOriginated)
}

// ClearSortOrder forgets the sort order. Items keep their current order.
func (g *Grid) ClearSortOrder() {
	g.sortOrder = nil
	if _, ok := g.dataSource.(container.Sortable); !ok {
		g.updateSortState()
		return
	}
	if err := g.sort(false); err != nil {
		glog.Warningf("grid: clearing sort order failed: %s", err)
	}
}

func (g *Grid) SortOrder() []SortOrder {
	return append([]SortOrder(nil), g.sortOrder...)
}

func (g *Grid) AddSortListener(fn func(SortEvent)) container.Registration {
	return g.sortListeners.Add(fn)
}

func (g *Grid) sort(userOriginated bool) error {
	s, ok := g.dataSource.(container.Sortable)
	if !ok {
		return nil
	}
	ids := make([]interface{}, len(g.sortOrder))
	ascending := make([]bool, len(g.sortOrder))
	for i, o := range g.sortOrder {
		ids[i] = o.PropertyID
		ascending[i] = o.Direction == Ascending
	}
	if err := s.Sort(ids, ascending); err != nil {
		return err
	}
	g.updateSortState()
	g.sortListeners.Fire(SortEvent{Order: g.SortOrder(), UserOriginated: userOriginated})
	return nil
}

// updateSortState shows the sort order on the client, unless it involves
// properties without a column.
func (g *Grid) updateSortState() {
	cols, dirs := []string{}, []string{}
	for _, o := range g.sortOrder {
		col, exists := g.columns[o.PropertyID]
		if !exists {
			cols, dirs = []string{}, []string{}
			break
		}
		cols = append(cols, col.key)
		dirs = append(dirs, string(o.Direction))
	}
	g.state.SortColumns = cols
	g.state.SortDirs = dirs
	g.MarkAsDirty()
}

// clientSort applies the sort order the user picked. When the client already
// shows the resulting order it is not sent back.
func (g *Grid) clientSort(columnKeys, directions []string, userOriginated bool) error {
	if len(columnKeys) != len(directions) {
		return illegalArgument("%d sort columns but %d directions", len(columnKeys), len(directions))
	}
	order := make([]SortOrder, len(columnKeys))
	for i, key := range columnKeys {
		col := g.columnByKey(key)
		if col == nil {
			return illegalArgument("unknown column key %q", key)
		}
		if !col.state.Sortable {
			return illegalArgument("column of property %v is not sortable", col.propertyID)
		}
		order[i] = SortOrder{col.propertyID, SortDirection(directions[i])}
	}
	if err := g.setSortOrder(order, userOriginated); err != nil {
		return err
	}
	if g.Attached() && sameOrder(columnKeys, g.state.SortColumns) && sameOrder(directions, g.state.SortDirs) {
		if err := g.Acknowledge("sortColumns", g.state.SortColumns); err != nil {
			glog.V(1).Infof("grid: acknowledging sort columns failed: %s", err)
		}
		if err := g.Acknowledge("sortDirs", g.state.SortDirs); err != nil {
			glog.V(1).Infof("grid: acknowledging sort directions failed: %s", err)
		}
	}
	return nil
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
