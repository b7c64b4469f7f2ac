package container

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// IndexedContainer is an in-memory Indexed data source. It supports every
// notifier interface and Sortable. Generated item ids are ints.
type IndexedContainer struct {
	ids         []interface{}
	items       map[interface{}]*item
	propertyIDs []interface{}
	types       map[interface{}]reflect.Type
	defaults    map[interface{}]interface{}
	readOnly    map[interface{}]bool
	nextID      int

	propertySet Listeners[PropertySetChange]
	itemSet     Listeners[ItemSetChange]
	valueChange Listeners[ValueChange]
}

type item struct {
	c      *IndexedContainer
	id     interface{}
	values map[interface{}]interface{}
}

type property struct {
	item *item
	id   interface{}
}

func NewIndexedContainer() *IndexedContainer {
	return &IndexedContainer{
		items:    make(map[interface{}]*item),
		types:    make(map[interface{}]reflect.Type),
		defaults: make(map[interface{}]interface{}),
		readOnly: make(map[interface{}]bool),
	}
}

func (c *IndexedContainer) ItemIDs() []interface{} {
	return append([]interface{}(nil), c.ids...)
}

func (c *IndexedContainer) Item(id interface{}) Item {
	if it, exists := c.items[id]; exists {
		return it
	}
	return nil
}

func (c *IndexedContainer) ContainsID(id interface{}) bool {
	_, exists := c.items[id]
	return exists
}

func (c *IndexedContainer) IndexOfID(id interface{}) int {
	if !c.ContainsID(id) {
		return -1
	}
	for i, eid := range c.ids {
		if eid == id {
			return i
		}
	}
	return -1
}

func (c *IndexedContainer) IDByIndex(index int) (interface{}, bool) {
	if index < 0 || index >= len(c.ids) {
		return nil, false
	}
	return c.ids[index], true
}

func (c *IndexedContainer) Size() int {
	return len(c.ids)
}

func (c *IndexedContainer) PropertyIDs() []interface{} {
	return append([]interface{}(nil), c.propertyIDs...)
}

func (c *IndexedContainer) Type(propertyID interface{}) reflect.Type {
	return c.types[propertyID]
}

// AddProperty adds a property to the container and gives every existing item
// defaultValue for it.
func (c *IndexedContainer) AddProperty(id interface{}, t reflect.Type, defaultValue interface{}) error {
	if id == nil || t == nil {
		return fmt.Errorf("%w: property id and type are required", ErrUnsupported)
	} else if _, exists := c.types[id]; exists {
		return fmt.Errorf("%w: property %v already exists", ErrUnsupported, id)
	}
	v, err := assignable(defaultValue, t)
	if err != nil {
		return err
	}

	c.propertyIDs = append(c.propertyIDs, id)
	c.types[id] = t
	c.defaults[id] = v
	for _, it := range c.items {
		it.values[id] = v
	}
	c.propertySet.Fire(PropertySetChange{c})
	return nil
}

func (c *IndexedContainer) RemoveProperty(id interface{}) error {
	if _, exists := c.types[id]; !exists {
		return fmt.Errorf("%w: %v", ErrNoSuchProperty, id)
	}
	for i, pid := range c.propertyIDs {
		if pid == id {
			c.propertyIDs = append(c.propertyIDs[:i], c.propertyIDs[i+1:]...)
			break
		}
	}
	delete(c.types, id)
	delete(c.defaults, id)
	delete(c.readOnly, id)
	for _, it := range c.items {
		delete(it.values, id)
	}
	c.propertySet.Fire(PropertySetChange{c})
	return nil
}

// SetPropertyReadOnly makes the property read-only in every item.
func (c *IndexedContainer) SetPropertyReadOnly(id interface{}, readOnly bool) error {
	if _, exists := c.types[id]; !exists {
		return fmt.Errorf("%w: %v", ErrNoSuchProperty, id)
	}
	c.readOnly[id] = readOnly
	return nil
}

func (c *IndexedContainer) AddItem() (interface{}, error) {
	for c.ContainsID(c.nextID) {
		c.nextID++
	}
	id := c.nextID
	c.nextID++

	values := make(map[interface{}]interface{}, len(c.defaults))
	for pid, v := range c.defaults {
		values[pid] = v
	}
	c.insert(id, values)
	return id, nil
}

// AddItemWithValues adds an item with the given id. The item only has the
// properties named in values; it has no value at all for the others.
func (c *IndexedContainer) AddItemWithValues(id interface{}, values map[interface{}]interface{}) error {
	if id == nil {
		return fmt.Errorf("%w: nil item id", ErrUnsupported)
	} else if c.ContainsID(id) {
		return fmt.Errorf("%w: item %v already exists", ErrUnsupported, id)
	}

	itemValues := make(map[interface{}]interface{}, len(values))
	for pid, v := range values {
		t, exists := c.types[pid]
		if !exists {
			return fmt.Errorf("%w: %v", ErrNoSuchProperty, pid)
		}
		av, err := assignable(v, t)
		if err != nil {
			return fmt.Errorf("property %v: %w", pid, err)
		}
		itemValues[pid] = av
	}
	c.insert(id, itemValues)
	return nil
}

func (c *IndexedContainer) insert(id interface{}, values map[interface{}]interface{}) {
	c.items[id] = &item{c: c, id: id, values: values}
	c.ids = append(c.ids, id)
	c.itemSet.Fire(ItemSetChange{
		Container:  c,
		Kind:       ItemsAdded,
		FirstIndex: len(c.ids) - 1,
		Count:      1,
		ItemIDs:    []interface{}{id},
	})
}

func (c *IndexedContainer) RemoveItem(id interface{}) error {
	index := c.IndexOfID(id)
	if index < 0 {
		return fmt.Errorf("%w: %v", ErrNoSuchItem, id)
	}
	delete(c.items, id)
	c.ids = append(c.ids[:index], c.ids[index+1:]...)
	c.itemSet.Fire(ItemSetChange{
		Container:  c,
		Kind:       ItemsRemoved,
		FirstIndex: index,
		Count:      1,
		ItemIDs:    []interface{}{id},
	})
	return nil
}

func (c *IndexedContainer) RemoveAllItems() error {
	removed := c.ids
	c.ids = nil
	c.items = make(map[interface{}]*item)
	c.itemSet.Fire(ItemSetChange{
		Container: c,
		Kind:      ItemsRemoved,
		Count:     len(removed),
		ItemIDs:   removed,
	})
	return nil
}

func (c *IndexedContainer) AddPropertySetChangeListener(fn func(PropertySetChange)) Registration {
	return c.propertySet.Add(fn)
}

func (c *IndexedContainer) AddItemSetChangeListener(fn func(ItemSetChange)) Registration {
	return c.itemSet.Add(fn)
}

func (c *IndexedContainer) AddValueChangeListener(fn func(ValueChange)) Registration {
	return c.valueChange.Add(fn)
}

// SortablePropertyIDs returns the properties holding strings, numbers, bools
// or times.
func (c *IndexedContainer) SortablePropertyIDs() []interface{} {
	var ids []interface{}
	for _, pid := range c.propertyIDs {
		if sortableType(c.types[pid]) {
			ids = append(ids, pid)
		}
	}
	return ids
}

func (c *IndexedContainer) Sort(propertyIDs []interface{}, ascending []bool) error {
	if len(propertyIDs) != len(ascending) {
		return fmt.Errorf("%w: %d properties but %d directions", ErrUnsupported, len(propertyIDs), len(ascending))
	}
	for _, pid := range propertyIDs {
		t, exists := c.types[pid]
		if !exists {
			return fmt.Errorf("%w: %v", ErrNoSuchProperty, pid)
		} else if !sortableType(t) {
			return fmt.Errorf("%w: property %v is not sortable", ErrUnsupported, pid)
		}
	}

	sort.SliceStable(c.ids, func(i, j int) bool {
		a, b := c.items[c.ids[i]], c.items[c.ids[j]]
		for n, pid := range propertyIDs {
			r := compareValues(a.values[pid], b.values[pid])
			if r == 0 {
				continue
			}
			if ascending[n] {
				return r < 0
			}
			return r > 0
		}
		return false
	})
	c.itemSet.Fire(ItemSetChange{Container: c, Kind: ItemsReset, Count: len(c.ids)})
	return nil
}

func (it *item) Property(id interface{}) Property {
	if _, exists := it.values[id]; !exists {
		return nil
	}
	return &property{item: it, id: id}
}

func (it *item) PropertyIDs() []interface{} {
	var ids []interface{}
	for _, pid := range it.c.propertyIDs {
		if _, exists := it.values[pid]; exists {
			ids = append(ids, pid)
		}
	}
	return ids
}

func (p *property) Value() interface{} {
	return p.item.values[p.id]
}

func (p *property) Type() reflect.Type {
	return p.item.c.types[p.id]
}

func (p *property) ReadOnly() bool {
	return p.item.c.readOnly[p.id]
}

func (p *property) SetValue(v interface{}) error {
	if p.ReadOnly() {
		return fmt.Errorf("%w: %v", ErrReadOnly, p.id)
	}
	av, err := assignable(v, p.Type())
	if err != nil {
		return err
	}
	p.item.values[p.id] = av
	p.item.c.valueChange.Fire(ValueChange{ItemID: p.item.id, PropertyID: p.id, Value: av})
	return nil
}

// assignable returns v as a value of type t. Numeric values are converted
// between numeric kinds.
func assignable(v interface{}, t reflect.Type) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumber(rv.Kind()) && isNumber(t.Kind()) {
		cv, err := ConvertNumber(rv, t)
		if err != nil {
			return nil, err
		}
		return cv.Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s is not assignable to %s", ErrTypeMismatch, rv.Type(), t)
}

var float64Type = reflect.TypeOf(float64(0))

// ConvertNumber converts the number v to the numeric type t. A value t can't
// hold, like a fraction for an integer type or anything out of t's range, is
// a type mismatch.
func ConvertNumber(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		out := reflect.New(t).Elem()
		f := v.Convert(float64Type).Float()
		if out.OverflowFloat(f) {
			return reflect.Value{}, fmt.Errorf("%w: %v overflows %s", ErrTypeMismatch, v, t)
		}
		out.SetFloat(f)
		return out, nil
	}
	// Integer results must keep the sign and convert back to the same value
	out := v.Convert(t)
	if negative(out) != negative(v) || out.Convert(v.Type()).Interface() != v.Interface() {
		return reflect.Value{}, fmt.Errorf("%w: %v cannot be represented as %s", ErrTypeMismatch, v, t)
	}
	return out, nil
}

func negative(v reflect.Value) bool {
	switch {
	case v.CanInt():
		return v.Int() < 0
	case v.CanFloat():
		return v.Float() < 0
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

var timeType = reflect.TypeOf(time.Time{})

func sortableType(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	return t.Kind() == reflect.String || t.Kind() == reflect.Bool || isNumber(t.Kind())
}

// compareValues orders nil first, then by the natural order of the value.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if ta, ok := a.(time.Time); ok {
		tb := b.(time.Time)
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		}
		return 0
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.String:
		return compareOrdered(va.String(), vb.String())
	case reflect.Bool:
		return compareOrdered(boolInt(va.Bool()), boolInt(vb.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return compareOrdered(va.Int(), vb.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return compareOrdered(va.Uint(), vb.Uint())
	case reflect.Float32, reflect.Float64:
		return compareOrdered(va.Float(), vb.Float())
	}
	return 0
}

func compareOrdered[T string | int64 | uint64 | float64 | int](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
