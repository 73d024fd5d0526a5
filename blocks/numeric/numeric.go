// Package numeric holds the sample type constraints shared by the built-in
// blocks and the type suffixes used in their registered names.
package numeric

// Integer is every fixed-width integer sample type
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Float is every floating point sample type
type Float interface {
	~float32 | ~float64
}

// Number is every sample type the built-in blocks are registered for
type Number interface {
	Integer | Float
}

// TypeName returns the registry suffix for T, e.g. "float32"
func TypeName[T Number]() string {
	var zero T
	switch any(zero).(type) {
	case int8:
		return "int8"
	case int16:
		return "int16"
	case int32:
		return "int32"
	case int64:
		return "int64"
	case uint8:
		return "uint8"
	case uint16:
		return "uint16"
	case uint32:
		return "uint32"
	case uint64:
		return "uint64"
	case float32:
		return "float32"
	case float64:
		return "float64"
	default:
		return "unknown"
	}
}

// IsFloat reports whether T is a floating point type
func IsFloat[T Number]() bool {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return true
	default:
		return false
	}
}

