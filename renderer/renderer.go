// Package renderer encodes grid cell values for the client.
//
// A Renderer names the client-side renderer that draws a column's cells and
// encodes each model value into a JSON-safe presentation value for it.
package renderer

import (
	"fmt"
	"html"
	"math"
	"reflect"
	"strconv"
	"time"
)

type Renderer interface {
	// Name identifies the client-side renderer.
	Name() string
	// PresentationType is the type of value Encode expects.
	PresentationType() reflect.Type
	Encode(value interface{}) (interface{}, error)
}

// Extension is implemented by renderers that are attached to one column at a
// time.
type Extension interface {
	Attach(columnID string)
	Detach()
	Attached() bool
}

// Attachment implements Extension for embedding into renderers.
type Attachment struct {
	column string
}

func (a *Attachment) Attach(columnID string) {
	a.column = columnID
}

func (a *Attachment) Detach() {
	a.column = ""
}

func (a *Attachment) Attached() bool {
	return a.column != ""
}

func (a *Attachment) Column() string {
	return a.column
}

var (
	stringType  = reflect.TypeOf("")
	float64Type = reflect.TypeOf(float64(0))
	timeType    = reflect.TypeOf(time.Time{})
)

// Compatible reports whether r can present values of modelType. Renderers
// presenting strings accept anything; numeric presentations accept any
// number.
func Compatible(r Renderer, modelType reflect.Type) bool {
	pt := r.PresentationType()
	if pt == nil || modelType == nil || pt == stringType || pt.Kind() == reflect.Interface {
		return true
	}
	if modelType.AssignableTo(pt) {
		return true
	}
	return isNumber(modelType.Kind()) && isNumber(pt.Kind())
}

// Text renders values as plain text.
type Text struct {
	Attachment
	NullRepresentation string
}

func NewText() *Text {
	return &Text{}
}

func (r *Text) Name() string                   { return "text" }
func (r *Text) PresentationType() reflect.Type { return stringType }

func (r *Text) Encode(value interface{}) (interface{}, error) {
	if value == nil {
		return r.NullRepresentation, nil
	}
	if s, ok := value.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return fmt.Sprint(value), nil
}

// HTML renders strings as markup. Non-string values are escaped.
type HTML struct {
	Attachment
	NullRepresentation string
}

func NewHTML() *HTML {
	return &HTML{}
}

func (r *HTML) Name() string                   { return "html" }
func (r *HTML) PresentationType() reflect.Type { return stringType }

func (r *HTML) Encode(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return r.NullRepresentation, nil
	case string:
		return v, nil
	default:
		return html.EscapeString(fmt.Sprint(v)), nil
	}
}

// Number formats numbers with a fmt verb, for example "%.2f".
type Number struct {
	Attachment
	Format             string
	NullRepresentation string
}

func NewNumber(format string) *Number {
	return &Number{Format: format}
}

func (r *Number) Name() string                   { return "number" }
func (r *Number) PresentationType() reflect.Type { return float64Type }

func (r *Number) Encode(value interface{}) (interface{}, error) {
	if value == nil {
		return r.NullRepresentation, nil
	}
	rv := reflect.ValueOf(value)
	if !isNumber(rv.Kind()) {
		return nil, fmt.Errorf("number renderer: %T is not a number", value)
	}
	if r.Format == "" {
		return rv.Convert(float64Type).Interface(), nil
	}
	return fmt.Sprintf(r.Format, value), nil
}

// Date formats times with a time layout.
type Date struct {
	Attachment
	Layout             string
	NullRepresentation string
}

func NewDate(layout string) *Date {
	if layout == "" {
		layout = time.RFC3339
	}
	return &Date{Layout: layout}
}

func (r *Date) Name() string                   { return "date" }
func (r *Date) PresentationType() reflect.Type { return timeType }

func (r *Date) Encode(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return r.NullRepresentation, nil
	case time.Time:
		if v.IsZero() {
			return r.NullRepresentation, nil
		}
		return v.Format(r.Layout), nil
	case *time.Time:
		if v == nil {
			return r.NullRepresentation, nil
		}
		return v.Format(r.Layout), nil
	default:
		return nil, fmt.Errorf("date renderer: %T is not a time", value)
	}
}

// ProgressBar renders a number between 0 and 1 as a bar.
type ProgressBar struct {
	Attachment
}

func NewProgressBar() *ProgressBar {
	return &ProgressBar{}
}

func (r *ProgressBar) Name() string                   { return "progressBar" }
func (r *ProgressBar) PresentationType() reflect.Type { return float64Type }

func (r *ProgressBar) Encode(value interface{}) (interface{}, error) {
	if value == nil {
		return 0.0, nil
	}
	rv := reflect.ValueOf(value)
	if !isNumber(rv.Kind()) {
		return nil, fmt.Errorf("progress bar renderer: %T is not a number", value)
	}
	f := rv.Convert(float64Type).Float()
	if math.IsNaN(f) {
		return 0.0, nil
	}
	f = math.Max(0, math.Min(1, f))
	// Limit precision so equal-looking values encode equally
	f, _ = strconv.ParseFloat(strconv.FormatFloat(f, 'f', 4, 64), 64)
	return f, nil
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
