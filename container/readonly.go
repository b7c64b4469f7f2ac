package container

import (
	"fmt"
	"reflect"
)

// ReadOnly wraps c so that every structural change and every property write
// fails. Change notifications of c are still delivered.
func ReadOnly(c Indexed) Indexed {
	return &readOnlyContainer{c}
}

type readOnlyContainer struct {
	Indexed
}

type readOnlyItem struct {
	Item
}

type readOnlyProperty struct {
	Property
}

func (r *readOnlyContainer) Item(id interface{}) Item {
	it := r.Indexed.Item(id)
	if it == nil {
		return nil
	}
	return readOnlyItem{it}
}

func (r *readOnlyContainer) AddItem() (interface{}, error) {
	return nil, fmt.Errorf("%w: container is read-only", ErrUnsupported)
}

func (r *readOnlyContainer) RemoveItem(id interface{}) error {
	return fmt.Errorf("%w: container is read-only", ErrUnsupported)
}

func (r *readOnlyContainer) RemoveAllItems() error {
	return fmt.Errorf("%w: container is read-only", ErrUnsupported)
}

func (r *readOnlyContainer) AddProperty(id interface{}, t reflect.Type, defaultValue interface{}) error {
	return fmt.Errorf("%w: container is read-only", ErrUnsupported)
}

func (r *readOnlyContainer) RemoveProperty(id interface{}) error {
	return fmt.Errorf("%w: container is read-only", ErrUnsupported)
}

func (r *readOnlyContainer) AddPropertySetChangeListener(fn func(PropertySetChange)) Registration {
	if n, ok := r.Indexed.(PropertySetNotifier); ok {
		return n.AddPropertySetChangeListener(func(e PropertySetChange) {
			e.Container = r
			fn(e)
		})
	}
	return RegistrationFunc(func() {})
}

func (r *readOnlyContainer) AddItemSetChangeListener(fn func(ItemSetChange)) Registration {
	if n, ok := r.Indexed.(ItemSetNotifier); ok {
		return n.AddItemSetChangeListener(func(e ItemSetChange) {
			e.Container = r
			fn(e)
		})
	}
	return RegistrationFunc(func() {})
}

func (r *readOnlyContainer) AddValueChangeListener(fn func(ValueChange)) Registration {
	if n, ok := r.Indexed.(ValueChangeNotifier); ok {
		return n.AddValueChangeListener(fn)
	}
	return RegistrationFunc(func() {})
}

func (it readOnlyItem) Property(id interface{}) Property {
	p := it.Item.Property(id)
	if p == nil {
		return nil
	}
	return readOnlyProperty{p}
}

func (p readOnlyProperty) ReadOnly() bool {
	return true
}

func (p readOnlyProperty) SetValue(v interface{}) error {
	return fmt.Errorf("%w: container is read-only", ErrReadOnly)
}
