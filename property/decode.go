package property

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	errs "github.com/c360/sigflow/errors"
)

// TagName is the struct tag consulted when decoding a Map into a settings struct.
const TagName = "property"

// Decode copies the entries of m into the struct pointed to by out, matching
// keys against `property:"..."` struct tags. Keys with no matching field are
// ignored. A value whose type cannot be assigned to its field yields an error
// wrapping errors.ErrConfigInvalid.
//
// Numbers convert between kinds only when the value survives unchanged: 3.0
// decodes into an int field, 2.5 does not, and 300 does not fit a uint8.
func Decode(m Map, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          TagName,
		Result:           out,
		WeaklyTypedInput: false,
		ErrorUnused:      false,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			exactNumberHook,
		),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfigInvalid, err)
	}

	if err := decoder.Decode(toPlain(m)); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfigInvalid, err)
	}
	return nil
}

// exactNumberHook rejects numbers that would be truncated or wrapped on the
// way into their field.
func exactNumberHook(from, to reflect.Type, data any) (any, error) {
	fk, tk := numberKind(from.Kind()), numberKind(to.Kind())
	if fk == reflect.Invalid || tk == reflect.Invalid {
		return data, nil
	}

	v := reflect.ValueOf(data)
	field := reflect.New(to).Elem()
	fits := true

	switch tk {
	case reflect.Int:
		switch fk {
		case reflect.Int:
			fits = !field.OverflowInt(v.Int())
		case reflect.Uint:
			fits = v.Uint() <= math.MaxInt64 && !field.OverflowInt(int64(v.Uint()))
		default:
			f := v.Float()
			fits = f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63 && !field.OverflowInt(int64(f))
		}
	case reflect.Uint:
		switch fk {
		case reflect.Int:
			fits = v.Int() >= 0 && !field.OverflowUint(uint64(v.Int()))
		case reflect.Uint:
			fits = !field.OverflowUint(v.Uint())
		default:
			f := v.Float()
			fits = f == math.Trunc(f) && f >= 0 && f < 1<<64 && !field.OverflowUint(uint64(f))
		}
	default:
		if fk == reflect.Float64 {
			f := v.Float()
			fits = math.IsInf(f, 0) || math.IsNaN(f) || !field.OverflowFloat(f)
		}
	}

	if !fits {
		return nil, fmt.Errorf("%v does not fit a %s field", data, to)
	}
	return data, nil
}

// numberKind folds the sized numeric kinds into Int, Uint and Float64, and
// everything else into Invalid.
func numberKind(k reflect.Kind) reflect.Kind {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return reflect.Int
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return reflect.Uint
	case reflect.Float32, reflect.Float64:
		return reflect.Float64
	default:
		return reflect.Invalid
	}
}

// toPlain converts nested Maps to Go maps so mapstructure can walk them.
func toPlain(m Map) map[string]any {
	out := make(map[string]any, m.Len())
	m.Range(func(k string, v any) bool {
		if nested, ok := v.(Map); ok {
			out[k] = toPlain(nested)
		} else {
			out[k] = v
		}
		return true
	})
	return out
}
