// Package field provides editable, validated values that can be bound to a
// container property, and groups of fields that commit to one item together.
package field

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"

	qbackend "github.com/CrimsonAS/qgrid/backend"
	"github.com/CrimsonAS/qgrid/container"
)

var ErrInvalidValue = errors.New("invalid value")

// InvalidValueError carries the message of a failed validator. It matches
// ErrInvalidValue with errors.Is.
type InvalidValueError struct {
	Message string
}

func (e *InvalidValueError) Error() string {
	return e.Message
}

func (e *InvalidValueError) Unwrap() error {
	return ErrInvalidValue
}

// Field is a component holding a value for editing. While bound to a
// property, the value is read from it, and written back by Commit.
type Field interface {
	qbackend.Connector

	Value() interface{}
	SetValue(v interface{}) error
	Modified() bool
	ReadOnly() bool
	SetReadOnly(readOnly bool)
	Caption() string
	SetCaption(caption string)

	AddValidator(v Validator)
	Validate() error

	Bind(p container.Property)
	Unbind()
	Source() container.Property
	Commit() error
	Discard()
}

type basicState struct {
	Value    interface{} `json:"value"`
	Caption  string      `json:"caption"`
	ReadOnly bool        `json:"readOnly"`
	Modified bool        `json:"modified"`
	Error    string      `json:"error"`
}

// Basic is the general Field implementation. The client edits its value by
// invoking setValue.
type Basic struct {
	qbackend.Component
	state basicState

	typ        reflect.Type
	source     container.Property
	validators []Validator
}

// NewBasic returns a field for values of type t. A nil t accepts anything.
func NewBasic(t reflect.Type) *Basic {
	f := &Basic{typ: t}
	f.RegisterRPC("setValue", func(v interface{}) error {
		err := f.SetValue(v)
		if err != nil {
			f.state.Error = err.Error()
			f.MarkAsDirty()
		}
		return err
	})
	return f
}

func (f *Basic) State() interface{} {
	return &f.state
}

func (f *Basic) Type() reflect.Type {
	return f.typ
}

func (f *Basic) Value() interface{} {
	return f.state.Value
}

// SetValue converts v to the field's type and marks the field modified.
// Read-only fields refuse the change.
func (f *Basic) SetValue(v interface{}) error {
	if f.state.ReadOnly {
		return fmt.Errorf("%w: field %q", container.ErrReadOnly, f.state.Caption)
	}
	cv, err := convert(v, f.typ)
	if err != nil {
		return err
	}
	f.state.Value = cv
	f.state.Modified = true
	f.state.Error = ""
	f.MarkAsDirty()
	return nil
}

func (f *Basic) Modified() bool {
	return f.state.Modified
}

func (f *Basic) ReadOnly() bool {
	return f.state.ReadOnly
}

func (f *Basic) SetReadOnly(readOnly bool) {
	f.state.ReadOnly = readOnly
	f.MarkAsDirty()
}

func (f *Basic) Caption() string {
	return f.state.Caption
}

func (f *Basic) SetCaption(caption string) {
	f.state.Caption = caption
	f.MarkAsDirty()
}

func (f *Basic) AddValidator(v Validator) {
	f.validators = append(f.validators, v)
}

// Validate runs every validator on the current value and returns the first
// failure as an *InvalidValueError.
func (f *Basic) Validate() error {
	for _, v := range f.validators {
		if err := v.Validate(f.state.Value); err != nil {
			return &InvalidValueError{err.Error()}
		}
	}
	return nil
}

// Bind reads the value of p and discards any modification.
func (f *Basic) Bind(p container.Property) {
	f.source = p
	f.Discard()
}

// Unbind leaves the field unmodified, holding the zero value of its type.
func (f *Basic) Unbind() {
	f.source = nil
	f.state.Value = zero(f.typ)
	f.state.Modified = false
	f.state.Error = ""
	f.MarkAsDirty()
}

func (f *Basic) Source() container.Property {
	return f.source
}

// Commit validates the value and writes it to the bound property.
func (f *Basic) Commit() error {
	if err := f.Validate(); err != nil {
		f.state.Error = err.Error()
		f.MarkAsDirty()
		return err
	}
	if f.source != nil && f.state.Modified {
		if err := f.source.SetValue(f.state.Value); err != nil {
			return err
		}
	}
	f.state.Modified = false
	f.state.Error = ""
	f.MarkAsDirty()
	return nil
}

// Discard restores the value of the bound property.
func (f *Basic) Discard() {
	if f.source != nil {
		f.state.Value = f.source.Value()
	} else {
		f.state.Value = zero(f.typ)
	}
	f.state.Modified = false
	f.state.Error = ""
	f.MarkAsDirty()
}

var umType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

func convert(v interface{}, t reflect.Type) (interface{}, error) {
	if v == nil || t == nil {
		return v, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumber(rv.Kind()) && isNumber(t.Kind()) {
		cv, err := container.ConvertNumber(rv, t)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		return cv.Interface(), nil
	}
	if s, ok := v.(string); ok && reflect.PtrTo(t).Implements(umType) {
		pv := reflect.New(t)
		if err := pv.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		return pv.Elem().Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s is not a %s", ErrInvalidValue, rv.Type(), t)
}

func zero(t reflect.Type) interface{} {
	if t == nil || t.Kind() == reflect.Interface {
		return nil
	}
	return reflect.Zero(t).Interface()
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
