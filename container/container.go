// Package container defines the data source a grid displays and edits.
//
// A data source is an ordered set of items, identified by item ids, each
// holding a value per property id. Item and property ids can be any
// comparable value. Optional capabilities, such as change notification and
// sorting, are separate interfaces that a data source may implement.
package container

import (
	"errors"
	"reflect"
)

var (
	ErrUnsupported    = errors.New("operation not supported")
	ErrNoSuchItem     = errors.New("no such item")
	ErrNoSuchProperty = errors.New("no such property")
	ErrReadOnly       = errors.New("property is read-only")
	ErrTypeMismatch   = errors.New("type mismatch")
)

// Property is one value of one item.
type Property interface {
	Value() interface{}
	SetValue(v interface{}) error
	Type() reflect.Type
	ReadOnly() bool
}

type Item interface {
	// Property returns nil when the item has no value for id.
	Property(id interface{}) Property
	PropertyIDs() []interface{}
}

// Indexed is an ordered data source.
type Indexed interface {
	ItemIDs() []interface{}
	// Item returns nil when id is not in the container.
	Item(id interface{}) Item
	ContainsID(id interface{}) bool
	// IndexOfID returns -1 when id is not in the container.
	IndexOfID(id interface{}) int
	IDByIndex(index int) (interface{}, bool)
	Size() int

	PropertyIDs() []interface{}
	// Type returns nil for unknown property ids.
	Type(propertyID interface{}) reflect.Type

	// AddItem adds an item with a generated id and default values.
	AddItem() (interface{}, error)
	RemoveItem(id interface{}) error
	RemoveAllItems() error
	AddProperty(id interface{}, t reflect.Type, defaultValue interface{}) error
	RemoveProperty(id interface{}) error
}

// Registration removes a listener.
type Registration interface {
	Remove()
}

type RegistrationFunc func()

func (f RegistrationFunc) Remove() {
	f()
}

type PropertySetChange struct {
	Container Indexed
}

type PropertySetNotifier interface {
	AddPropertySetChangeListener(func(PropertySetChange)) Registration
}

type ChangeKind int

const (
	ItemsAdded ChangeKind = iota
	ItemsRemoved
	// ItemsReset means any item may have moved, for example after sorting.
	ItemsReset
)

type ItemSetChange struct {
	Container  Indexed
	Kind       ChangeKind
	FirstIndex int
	Count      int
	ItemIDs    []interface{}
}

type ItemSetNotifier interface {
	AddItemSetChangeListener(func(ItemSetChange)) Registration
}

type ValueChange struct {
	ItemID     interface{}
	PropertyID interface{}
	Value      interface{}
}

type ValueChangeNotifier interface {
	AddValueChangeListener(func(ValueChange)) Registration
}

// Sortable is implemented by data sources that can reorder their items.
type Sortable interface {
	SortablePropertyIDs() []interface{}
	// Sort orders items by the given properties; ascending holds one flag
	// per property.
	Sort(propertyIDs []interface{}, ascending []bool) error
}

// Listeners is a registration list for one kind of event. The zero value is
// ready to use.
type Listeners[E any] struct {
	next    int
	entries []listenerEntry[E]
}

type listenerEntry[E any] struct {
	id int
	fn func(E)
}

func (l *Listeners[E]) Add(fn func(E)) Registration {
	l.next++
	id := l.next
	l.entries = append(l.entries, listenerEntry[E]{id, fn})
	return RegistrationFunc(func() {
		for i, e := range l.entries {
			if e.id == id {
				l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
				return
			}
		}
	})
}

func (l *Listeners[E]) Fire(event E) {
	// Listeners may remove themselves while firing
	for _, e := range append([]listenerEntry[E](nil), l.entries...) {
		e.fn(event)
	}
}
