// Package mapsafe reads typed values out of loosely typed parameter maps,
// such as those decoded from JSON request bodies.
package mapsafe

// Number is the set of numeric types Get converts between.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Get retrieves a typed value from a map[string]any.
// If the key is missing or the type cannot be converted, it returns the default value.
func Get[T any](m map[string]any, key string, defaultValue T) T {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}

	if v, ok := val.(T); ok {
		return v
	}

	switch any(defaultValue).(type) {
	case int:
		if n, ok := number[int](val); ok {
			return any(n).(T)
		}
	case int32:
		if n, ok := number[int32](val); ok {
			return any(n).(T)
		}
	case int64:
		if n, ok := number[int64](val); ok {
			return any(n).(T)
		}
	case float32:
		if n, ok := number[float32](val); ok {
			return any(n).(T)
		}
	case float64:
		if n, ok := number[float64](val); ok {
			return any(n).(T)
		}
	}

	return defaultValue
}

// number converts any Go numeric value decoded from JSON or YAML into N.
func number[N Number](val any) (N, bool) {
	switch x := val.(type) {
	case int:
		return N(x), true
	case int32:
		return N(x), true
	case int64:
		return N(x), true
	case float32:
		return N(x), true
	case float64:
		return N(x), true
	}

	return 0, false
}
