package qbackend

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/golang/glog"
)

// Connector is implemented by every type that embeds Component and
// provides a state record.
type Connector interface {
	Identifier() string
	// State returns a pointer to the component's state record. The record
	// is encoded with encoding/json at every sync boundary where the
	// component is dirty.
	State() interface{}

	base() *Component
}

// If a component implements HasInit, InitComponent is called once, the first
// time it is attached to a connection.
type HasInit interface {
	Connector
	InitComponent()
}

// If a component implements BeforeClientResponder, BeforeClientResponse is
// called at every sync boundary before its state is diffed. initial is true
// when the client has not received any state for the component yet.
type BeforeClientResponder interface {
	BeforeClientResponse(initial bool)
}

// If a component implements HasChildren, its children are attached along
// with it, and any child found unattached at a sync boundary is attached
// then.
type HasChildren interface {
	Children() []Connector
}

// Component must be embedded by value in any struct that should be
// synchronized with the client.
type Component struct {
	id          string
	conn        *Connection
	owner       Connector
	initialized bool
	rpc         map[string]reflect.Value
}

var errNotAttached = errors.New("component is not attached")

func (c *Component) base() *Component {
	return c
}

// Identifier is assigned when the component is attached and stays the same
// until it's detached.
func (c *Component) Identifier() string {
	return c.id
}

func (c *Component) Connection() *Connection {
	return c.conn
}

func (c *Component) Attached() bool {
	return c.conn != nil
}

// MarkAsDirty schedules the component's state to be diffed and sent at the
// next sync boundary. Nothing happens while the component is detached; its
// full state is sent when it's attached.
func (c *Component) MarkAsDirty() {
	if c.conn == nil {
		return
	}
	c.conn.tracker.MarkDirty(c.id)
}

// Acknowledge records that the client already has value for one field of
// the state, so that it won't be sent back at the next sync boundary.
func (c *Component) Acknowledge(field string, value interface{}) error {
	if c.conn == nil {
		return errNotAttached
	}
	return c.conn.tracker.Acknowledge(c.id, field, value)
}

// Call queues a call of method on the client side of the component. Calls
// are delivered after the state updates of the same sync boundary. Calls
// made while detached are dropped.
func (c *Component) Call(method string, args ...interface{}) {
	if c.conn == nil {
		glog.V(2).Infof("qbackend: dropping call %s on detached component", method)
		return
	}
	if args == nil {
		args = []interface{}{}
	}
	c.conn.queueCall(c.id, method, args)
}

// RegisterRPC makes fn callable by the client as method. fn must be a func;
// its parameters are converted from the client's arguments, and if any of
// its return values is a non-nil error, the invocation fails with it.
func (c *Component) RegisterRPC(method string, fn interface{}) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic(fmt.Sprintf("qbackend: rpc %s is not a func", method))
	}
	if c.rpc == nil {
		c.rpc = make(map[string]reflect.Value)
	}
	c.rpc[method] = v
}

func (c *Component) methodSignatures() map[string][]string {
	methods := make(map[string][]string, len(c.rpc))
	for name, fn := range c.rpc {
		methods[name] = rpcSignature(fn.Type())
	}
	return methods
}

// Invoke calls the named rpc method of the component, converting or
// unmarshaling parameters as necessary. An error is returned if the method
// is not invoked or if it returns an error.
func (c *Component) Invoke(methodName string, inArgs ...interface{}) error {
	method, exists := c.rpc[methodName]
	if !exists {
		return fmt.Errorf("method %s does not exist", methodName)
	}
	methodType := method.Type()

	if len(inArgs) != methodType.NumIn() {
		return fmt.Errorf("wrong number of arguments for %s; expected %d, provided %d",
			methodName, methodType.NumIn(), len(inArgs))
	}

	callArgs := make([]reflect.Value, methodType.NumIn())
	for i, inArg := range inArgs {
		callArg, err := convertArgument(inArg, methodType.In(i))
		if err != nil {
			return fmt.Errorf("wrong type for argument %d to %s: %w", i, methodName, err)
		}
		callArgs[i] = callArg
	}

	returnValues := method.Call(callArgs)

	errType := reflect.TypeOf((*error)(nil)).Elem()
	for _, value := range returnValues {
		if value.Type().Implements(errType) && !value.IsNil() {
			return value.Interface().(error)
		}
	}
	return nil
}

var umType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// convertArgument matches a decoded client value to argType, converting or
// unmarshaling if possible.
func convertArgument(inArg interface{}, argType reflect.Type) (reflect.Value, error) {
	inArgValue := reflect.ValueOf(inArg)

	if inArgValue.Kind() == reflect.Invalid {
		// Argument is nil
		return reflect.Zero(argType), nil
	} else if inArgValue.Type() == argType {
		return inArgValue, nil
	} else if isNumber(inArgValue.Kind()) && isNumber(argType.Kind()) {
		return convertNumber(inArgValue, argType)
	} else if isScalar(inArgValue.Kind()) && inArgValue.Type().ConvertibleTo(argType) && isScalar(argType.Kind()) {
		return inArgValue.Convert(argType), nil
	}

	if s, ok := inArg.(string); ok {
		// Unmarshal via TextUnmarshaler, directly or by pointer
		if reflect.PtrTo(argType).Implements(umType) {
			callArg := reflect.New(argType)
			if err := callArg.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
				return reflect.Value{}, fmt.Errorf("expected %s, unmarshal failed: %w", argType, err)
			}
			return callArg.Elem(), nil
		}
	}

	// Lists and records take another trip through JSON into the real type
	buf, err := json.Marshal(inArg)
	if err == nil {
		callArg := reflect.New(argType)
		if err = json.Unmarshal(buf, callArg.Interface()); err == nil {
			return callArg.Elem(), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("expected %s, provided %s", argType, inArgValue.Type())
}

// convertNumber converts between numeric types, refusing fractions for
// integer types and values out of range.
func convertNumber(v reflect.Value, argType reflect.Type) (reflect.Value, error) {
	if k := argType.Kind(); k == reflect.Float32 || k == reflect.Float64 {
		out := reflect.New(argType).Elem()
		f := v.Convert(reflect.TypeOf(float64(0))).Float()
		if out.OverflowFloat(f) {
			return reflect.Value{}, fmt.Errorf("expected %s, %v is out of range", argType, v)
		}
		out.SetFloat(f)
		return out, nil
	}
	out := v.Convert(argType)
	if negative(out) != negative(v) || out.Convert(v.Type()).Interface() != v.Interface() {
		return reflect.Value{}, fmt.Errorf("expected %s, provided %v", argType, v)
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

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
