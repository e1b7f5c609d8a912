package atomirx

import "reflect"

// Equality compares two values and reports whether they should be treated as
// the same for notification and re-subscription purposes.
type Equality func(a, b any) bool

// EqStrict compares by identity (interface equality). This is the default for
// atoms.
func EqStrict() Equality {
	return func(a, b any) bool {
		return strictEqual(a, b)
	}
}

// EqShallow compares one level deep: maps and structs by key/field, slices and
// arrays by index, everything else strictly. This is the default for derived
// values and pool params, since those are typically freshly constructed
// containers whose contents are what matters.
func EqShallow() Equality {
	return EqShallowN(1)
}

// EqShallowN compares up to depth levels deep before falling back to strict
// comparison.
func EqShallowN(depth int) Equality {
	return func(a, b any) bool {
		return boundedEqual(a, b, depth)
	}
}

// EqDeep performs a full recursive comparison.
func EqDeep() Equality {
	return func(a, b any) bool {
		return reflect.DeepEqual(a, b)
	}
}

func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		// Incomparable kinds (slice, map, func) are identical only when they
		// share the same backing pointer. Slices additionally need the same
		// length: two slices over one array can differ only in length.
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		switch va.Kind() {
		case reflect.Slice:
			return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
		case reflect.Map, reflect.Func:
			return va.Pointer() == vb.Pointer()
		default:
			// Structs or arrays with incomparable elements.
			return false
		}
	}

	return a == b
}

func boundedEqual(a, b any, depth int) bool {
	if depth <= 0 {
		return strictEqual(a, b)
	}
	if a == nil || b == nil {
		return a == b
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Pointer:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() == vb.IsNil()
		}
		return boundedEqual(va.Elem().Interface(), vb.Elem().Interface(), depth)

	case reflect.Slice, reflect.Array:
		if va.Kind() == reflect.Slice && (va.IsNil() != vb.IsNil()) {
			return false
		}
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !boundedEqual(va.Index(i).Interface(), vb.Index(i).Interface(), depth-1) {
				return false
			}
		}
		return true

	case reflect.Map:
		if va.IsNil() != vb.IsNil() {
			return false
		}
		if va.Len() != vb.Len() {
			return false
		}
		iter := va.MapRange()
		for iter.Next() {
			other := vb.MapIndex(iter.Key())
			if !other.IsValid() {
				return false
			}
			if !boundedEqual(iter.Value().Interface(), other.Interface(), depth-1) {
				return false
			}
		}
		return true

	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !va.Type().Field(i).IsExported() {
				// Unexported fields force a strict fallback on the whole value.
				return strictEqual(a, b)
			}
			if !boundedEqual(va.Field(i).Interface(), vb.Field(i).Interface(), depth-1) {
				return false
			}
		}
		return true

	default:
		return strictEqual(a, b)
	}
}
