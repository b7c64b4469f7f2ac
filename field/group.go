package field

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/CrimsonAS/qgrid/container"
)

// Factory builds fields for editing properties.
type Factory interface {
	CreateField(propertyID interface{}, t reflect.Type) (Field, error)
}

type FactoryFunc func(propertyID interface{}, t reflect.Type) (Field, error)

func (f FactoryFunc) CreateField(propertyID interface{}, t reflect.Type) (Field, error) {
	return f(propertyID, t)
}

// DefaultFactory builds a Basic field captioned with the property id.
var DefaultFactory Factory = FactoryFunc(func(propertyID interface{}, t reflect.Type) (Field, error) {
	f := NewBasic(t)
	f.SetCaption(fmt.Sprint(propertyID))
	return f, nil
})

// Failure is the reason one field could not be committed.
type Failure struct {
	PropertyID interface{}
	Field      Field
	Err        error
}

// CommitError is returned by Group.Commit. Nothing was written to the item
// when it's returned.
type CommitError struct {
	// Failures holds the fields that did not validate, in binding order.
	Failures []Failure
	// Cause is set when validation passed but writing to the item failed.
	Cause error
}

func (e *CommitError) Error() string {
	if e.Cause != nil {
		return "commit failed: " + e.Cause.Error()
	}
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("%v: %s", f.PropertyID, f.Err))
	}
	return "commit failed: " + strings.Join(msgs, "; ")
}

func (e *CommitError) Unwrap() []error {
	var errs []error
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Group binds fields to the properties of one item and commits or discards
// them together.
type Group struct {
	item    container.Item
	factory Factory
	fields  map[interface{}]Field
	order   []interface{}
}

func NewGroup() *Group {
	return &Group{
		factory: DefaultFactory,
		fields:  make(map[interface{}]Field),
	}
}

func (g *Group) SetFactory(f Factory) {
	if f == nil {
		f = DefaultFactory
	}
	g.factory = f
}

func (g *Group) Factory() Factory {
	return g.factory
}

// SetItem rebinds every bound field to the same property of item. Fields for
// properties item doesn't have are unbound. A nil item unbinds everything.
func (g *Group) SetItem(item container.Item) {
	g.item = item
	for _, pid := range append([]interface{}(nil), g.order...) {
		f := g.fields[pid]
		if item == nil {
			f.Unbind()
			continue
		}
		if p := item.Property(pid); p != nil {
			f.Bind(p)
		} else {
			g.Unbind(f)
		}
	}
}

func (g *Group) Item() container.Item {
	return g.item
}

// Bind binds f to propertyID of the group's item.
func (g *Group) Bind(f Field, propertyID interface{}) error {
	if g.item == nil {
		return fmt.Errorf("%w: no item to bind to", container.ErrNoSuchItem)
	}
	p := g.item.Property(propertyID)
	if p == nil {
		return fmt.Errorf("%w: %v", container.ErrNoSuchProperty, propertyID)
	}
	if old, exists := g.fields[propertyID]; exists && old != f {
		g.Unbind(old)
	}
	if _, exists := g.fields[propertyID]; !exists {
		g.order = append(g.order, propertyID)
	}
	g.fields[propertyID] = f
	f.Bind(p)
	return nil
}

// BuildAndBind creates a field with the factory and binds it.
func (g *Group) BuildAndBind(propertyID interface{}) (Field, error) {
	if g.item == nil {
		return nil, fmt.Errorf("%w: no item to bind to", container.ErrNoSuchItem)
	}
	p := g.item.Property(propertyID)
	if p == nil {
		return nil, fmt.Errorf("%w: %v", container.ErrNoSuchProperty, propertyID)
	}
	f, err := g.factory.CreateField(propertyID, p.Type())
	if err != nil {
		return nil, err
	}
	return f, g.Bind(f, propertyID)
}

// Unbind detaches f from its property and the group.
func (g *Group) Unbind(f Field) {
	for i, pid := range g.order {
		if g.fields[pid] == f {
			delete(g.fields, pid)
			g.order = append(g.order[:i], g.order[i+1:]...)
			f.Unbind()
			return
		}
	}
}

func (g *Group) UnbindAll() {
	for _, pid := range g.order {
		g.fields[pid].Unbind()
	}
	g.fields = make(map[interface{}]Field)
	g.order = nil
}

func (g *Group) Field(propertyID interface{}) Field {
	return g.fields[propertyID]
}

func (g *Group) PropertyID(f Field) (interface{}, bool) {
	for _, pid := range g.order {
		if g.fields[pid] == f {
			return pid, true
		}
	}
	return nil, false
}

// Fields returns the bound fields in binding order.
func (g *Group) Fields() []Field {
	fields := make([]Field, 0, len(g.order))
	for _, pid := range g.order {
		fields = append(fields, g.fields[pid])
	}
	return fields
}

func (g *Group) BoundPropertyIDs() []interface{} {
	return append([]interface{}(nil), g.order...)
}

func (g *Group) Modified() bool {
	for _, f := range g.fields {
		if f.Modified() {
			return true
		}
	}
	return false
}

// Commit validates every writable field and then writes them all. When any
// field is invalid nothing is written. When a write fails, the properties
// already written are restored.
func (g *Group) Commit() error {
	var failures []Failure
	for _, pid := range g.order {
		f := g.fields[pid]
		if f.ReadOnly() {
			continue
		}
		if err := f.Validate(); err != nil {
			failures = append(failures, Failure{pid, f, err})
		}
	}
	if len(failures) > 0 {
		return &CommitError{Failures: failures}
	}

	type written struct {
		p   container.Property
		old interface{}
	}
	var done []written
	for _, pid := range g.order {
		f := g.fields[pid]
		if f.ReadOnly() || !f.Modified() {
			continue
		}
		p := f.Source()
		var old interface{}
		if p != nil {
			old = p.Value()
		}
		if err := f.Commit(); err != nil {
			for i := len(done) - 1; i >= 0; i-- {
				done[i].p.SetValue(done[i].old)
			}
			return &CommitError{Cause: fmt.Errorf("property %v: %w", pid, err)}
		}
		if p != nil {
			done = append(done, written{p, old})
		}
	}
	return nil
}

func (g *Group) Discard() {
	for _, pid := range g.order {
		g.fields[pid].Discard()
	}
}
