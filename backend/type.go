package qbackend

import (
	"encoding/json"
	"reflect"
)

// typeInfo describes a component type to the client as part of ATTACH. It
// names the type and the rpc methods the client may invoke, with the
// client-side type of each parameter.
type typeInfo struct {
	Name    string              `json:"name"`
	Methods map[string][]string `json:"methods"`
}

var connectorType = reflect.TypeOf((*Connector)(nil)).Elem()

func typeIsComponent(t reflect.Type) bool {
	return t.Implements(connectorType) || reflect.PtrTo(t).Implements(connectorType)
}

func componentTypeInfo(c Connector) *typeInfo {
	t := reflect.TypeOf(c)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &typeInfo{
		Name:    t.Name(),
		Methods: c.base().methodSignatures(),
	}
}

func rpcSignature(t reflect.Type) []string {
	params := make([]string, 0, t.NumIn())
	for p := 0; p < t.NumIn(); p++ {
		params = append(params, typeInfoTypeName(t.In(p)))
	}
	return params
}

func typeInfoTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return typeInfoTypeName(t.Elem())

	case reflect.Bool:
		return "bool"

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"

	case reflect.Float32, reflect.Float64:
		return "double"

	case reflect.String:
		return "string"

	case reflect.Array, reflect.Slice:
		return "array"

	case reflect.Map:
		return "map"

	case reflect.Struct:
		if typeIsComponent(t) {
			return "component"
		}
		return "map"

	default:
		return "var"
	}
}

func (t *typeInfo) String() string {
	str, _ := json.MarshalIndent(t, "", "  ")
	return string(str)
}
