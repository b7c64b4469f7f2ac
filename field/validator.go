package field

import (
	"errors"
	"reflect"
	"unicode/utf8"
)

type Validator interface {
	// Validate returns an error describing why value is not acceptable.
	Validate(value interface{}) error
}

type ValidatorFunc func(value interface{}) error

func (f ValidatorFunc) Validate(value interface{}) error {
	return f(value)
}

// Required rejects nil and zero values.
func Required(message string) Validator {
	return ValidatorFunc(func(value interface{}) error {
		if value == nil || reflect.ValueOf(value).IsZero() {
			return errors.New(message)
		}
		return nil
	})
}

// StringLength accepts strings of min to max characters. A negative max has
// no upper bound. Values that are not strings are accepted.
func StringLength(min, max int, message string) Validator {
	return ValidatorFunc(func(value interface{}) error {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		n := utf8.RuneCountInString(s)
		if n < min || (max >= 0 && n > max) {
			return errors.New(message)
		}
		return nil
	})
}

// Range accepts numbers between min and max inclusive. Values that are not
// numbers are accepted.
func Range(min, max float64, message string) Validator {
	return ValidatorFunc(func(value interface{}) error {
		if value == nil {
			return nil
		}
		rv := reflect.ValueOf(value)
		var f float64
		switch {
		case rv.CanInt():
			f = float64(rv.Int())
		case rv.CanUint():
			f = float64(rv.Uint())
		case rv.CanFloat():
			f = rv.Float()
		default:
			return nil
		}
		if f < min || f > max {
			return errors.New(message)
		}
		return nil
	})
}
