package sqlexec

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"
)

// ParamType is the wire type a parameter is bound as
type ParamType int

const (
	ParamInteger ParamType = iota
	ParamFloat
	ParamText
)

func (t ParamType) String() string {
	switch t {
	case ParamInteger:
		return "integer"
	case ParamFloat:
		return "float"
	default:
		return "text"
	}
}

// Tag returns the single letter tag for the type ('i', 'd' or 's')
func (t ParamType) Tag() byte {
	switch t {
	case ParamInteger:
		return 'i'
	case ParamFloat:
		return 'd'
	default:
		return 's'
	}
}

// Classify infers the ParamType of a value from its shape
//
// integer kinds are ParamInteger, float kinds (and decimal.Decimal) are ParamFloat, anything else - including
// bool and nil - is ParamText. Pointers are classified by the value they point to and a nil pointer is treated as nil.
// Types implementing driver.Valuer are ParamText unless they are decimals.
func Classify(value any) ParamType {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ParamInteger
	case float32, float64, decimal.Decimal, *decimal.Decimal:
		return ParamFloat
	case nil, string, []byte, bool, time.Time, driver.Valuer:
		return ParamText
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		return Classify(indirect(value))
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return ParamInteger
	case reflect.Float32, reflect.Float64:
		return ParamFloat
	}
	return ParamText
}

// indirect follows pointers down to the value they point to, stopping at a driver.Valuer
//
// a nil pointer anywhere along the way yields nil
func indirect(value any) any {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Pointer {
		return value
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		if _, ok := rv.Interface().(driver.Valuer); ok {
			return rv.Interface()
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// Binding is the result of binding a parameter list
//
// Types and Values are always the same length and in the same order as the parameters
type Binding struct {
	Types  []ParamType
	Values []any
}

// Tags returns the type tags of the binding as a string, one letter per parameter
func (b Binding) Tags() string {
	var sb strings.Builder
	for _, t := range b.Types {
		sb.WriteByte(t.Tag())
	}
	return sb.String()
}

// Bind classifies each parameter and converts it to the value sent for its type
//
// fails if a driver.Valuer parameter cannot produce its value
func Bind(params []any) (Binding, error) {
	result := Binding{
		Types:  make([]ParamType, len(params)),
		Values: make([]any, len(params)),
	}
	for i, p := range params {
		p = indirect(p)
		t := Classify(p)
		result.Types[i] = t
		switch t {
		case ParamInteger:
			result.Values[i] = integerValue(p)
		case ParamFloat:
			result.Values[i] = floatValue(p)
		default:
			v, err := textValue(p)
			if err != nil {
				return Binding{}, xerrors.Errorf("binding parameter %d: %w", i+1, err)
			}
			result.Values[i] = v
		}
	}
	return result, nil
}

func integerValue(v any) any {
	switch iv := v.(type) {
	case int:
		return int64(iv)
	case int8:
		return int64(iv)
	case int16:
		return int64(iv)
	case int32:
		return int64(iv)
	case int64:
		return iv
	case uint:
		return uint64(iv)
	case uint8:
		return uint64(iv)
	case uint16:
		return uint64(iv)
	case uint32:
		return uint64(iv)
	case uint64:
		return iv
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	}
	return v
}

func floatValue(v any) any {
	switch fv := v.(type) {
	case float32:
		return float64(fv)
	case float64, decimal.Decimal:
		return fv
	case *decimal.Decimal:
		if fv == nil {
			return nil
		}
		return *fv
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
		return rv.Float()
	}
	return v
}

const textTimeLayout = "2006-01-02 15:04:05.999999"

// nil is bound as NULL rather than as text, times are sent in UTC
func textValue(v any) (any, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case string:
		return tv, nil
	case []byte:
		return string(tv), nil
	case bool:
		if tv {
			return "1", nil
		}
		return "0", nil
	case time.Time:
		return tv.UTC().Format(textTimeLayout), nil
	case driver.Valuer:
		dv, err := tv.Value()
		if err != nil {
			return nil, err
		}
		return textValue(dv)
	case fmt.Stringer:
		return tv.String(), nil
	}
	return fmt.Sprint(v), nil
}
