package grid

import (
	"github.com/golang/glog"

	"github.com/CrimsonAS/qgrid/container"
	"github.com/CrimsonAS/qgrid/keymapper"
)

// dataProvider sends row data to the client. Rows are identified by keys
// from its own key mapper; keys of rows outside the client's active range
// are forgotten unless pinned.
type dataProvider struct {
	grid  *Grid
	keys  *keymapper.KeyMapper[interface{}]
	first int
	count int
}

func newDataProvider(g *Grid) *dataProvider {
	return &dataProvider{grid: g, keys: keymapper.New[interface{}]()}
}

// RowKey returns the key the client knows the row of itemID by.
func (g *Grid) RowKey(itemID interface{}) string {
	return g.rows.keys.Key(itemID)
}

// encodeRow returns {"k": rowKey, "d": {columnKey: value}} with every value
// encoded by its column's renderer.
func (p *dataProvider) encodeRow(id interface{}) map[string]interface{} {
	data := make(map[string]interface{})
	item := p.grid.dataSource.Item(id)
	for _, col := range p.grid.Columns() {
		var value interface{}
		if item != nil {
			if prop := item.Property(col.propertyID); prop != nil {
				value = prop.Value()
			}
		}
		encoded, err := col.renderer.Encode(value)
		if err != nil {
			glog.Warningf("grid: encoding property %v of item %v failed: %s", col.propertyID, id, err)
			encoded = nil
		}
		data[col.key] = encoded
	}
	return map[string]interface{}{
		"k": p.keys.Key(id),
		"d": data,
	}
}

func (p *dataProvider) rowsAt(first, count int) []interface{} {
	rows := []interface{}{}
	for i := first; i < first+count; i++ {
		id, exists := p.grid.dataSource.IDByIndex(i)
		if !exists {
			break
		}
		rows = append(rows, p.encodeRow(id))
	}
	return rows
}

// requestRows sends the rows in the range and makes it the active range.
func (p *dataProvider) requestRows(first, count int) error {
	if first < 0 || count < 0 {
		return illegalArgument("invalid row range %d+%d", first, count)
	}
	p.setActiveRange(first, count)
	p.grid.Call("setRowData", first, p.rowsAt(first, count))
	return nil
}

// setActiveRange forgets the keys of rows outside the range that aren't
// pinned.
func (p *dataProvider) setActiveRange(first, count int) {
	p.first, p.count = first, count
	ds := p.grid.dataSource
	p.keys.Retain(func(id interface{}) bool {
		index := ds.IndexOfID(id)
		return index >= first && index < first+count
	})
}

func (p *dataProvider) inRange(index int) bool {
	return index >= p.first && index < p.first+p.count
}

func (p *dataProvider) refreshActiveRange() {
	if p.count > 0 {
		p.grid.Call("setRowData", p.first, p.rowsAt(p.first, p.count))
	}
}

func (p *dataProvider) itemSetChanged(e container.ItemSetChange) {
	switch e.Kind {
	case container.ItemsAdded:
		p.grid.Call("insertRowData", e.FirstIndex, e.Count)
		if e.FirstIndex < p.first+p.count {
			p.refreshActiveRange()
		}
	case container.ItemsRemoved:
		for _, id := range e.ItemIDs {
			if !p.keys.IsPinned(id) {
				p.keys.Remove(id)
			}
		}
		p.grid.Call("removeRowData", e.FirstIndex, e.Count)
		if e.FirstIndex < p.first+p.count {
			p.refreshActiveRange()
		}
	default:
		p.keys.Retain(func(interface{}) bool { return false })
		p.first, p.count = 0, 0
		p.grid.Call("resetDataAndSize", p.grid.dataSource.Size())
	}
}

func (p *dataProvider) valueChanged(e container.ValueChange) {
	index := p.grid.dataSource.IndexOfID(e.ItemID)
	if index >= 0 && p.inRange(index) {
		p.grid.Call("setRowData", index, []interface{}{p.encodeRow(e.ItemID)})
	}
}

func (p *dataProvider) columnsChanged() {
	if p.grid.dataSource != nil {
		p.refreshActiveRange()
	}
}

// reset follows a new data source. Every key is dropped; the selection has
// already been cleared.
func (p *dataProvider) reset() {
	p.keys.RemoveAll()
	p.first, p.count = 0, 0
	p.grid.Call("resetDataAndSize", p.grid.dataSource.Size())
}

func (p *dataProvider) itemClicked(rowKey, columnKey string) error {
	id, exists := p.keys.Get(rowKey)
	if !exists {
		return illegalArgument("unknown row key %q", rowKey)
	}
	col := p.grid.columnByKey(columnKey)
	if col == nil {
		return illegalArgument("unknown column key %q", columnKey)
	}
	p.grid.clickListeners.Fire(ItemClickEvent{
		ItemID:     id,
		Item:       p.grid.dataSource.Item(id),
		PropertyID: col.propertyID,
	})
	return nil
}
