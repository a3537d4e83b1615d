package tabledata

import (
	"fmt"
	"math"
	"reflect"
	"time"
)

// Value documents the closed set of transport-safe values produced by
// Normalize: nil, bool, int64, float64, string, []Value and map[string]Value.
type Value = any

// Row is a single table row keyed by column name.
type Row = map[string]Value

const maxNormalizeDepth = 64

// unknownValueString replaces values that cannot be represented at all.
const unknownValueString = "unknown"

// Normalize converts an arbitrary backend-native value into a Value.
//
// It is a total function: every input maps to some output and it never
// panics. Self-referential structures terminate (already-visited
// references normalize to nil) and recursion depth is bounded.
// Normalizing an already-normalized value yields an equal value.
func Normalize(v any) Value {
	return normalizeValue(v, make(map[uintptr]struct{}), 0)
}

// NormalizeRows normalizes every value of every row, preserving row order.
func NormalizeRows(rows []map[string]any) []Row {
	normalized := make([]Row, 0, len(rows))
	for _, row := range rows {
		out := make(Row, len(row))
		for key, val := range row {
			out[key] = Normalize(val)
		}
		normalized = append(normalized, out)
	}

	return normalized
}

//nolint:gocyclo // single dispatch point over all value shapes, splitting it would obscure the priority order
func normalizeValue(v any, visited map[uintptr]struct{}, depth int) (out Value) {
	defer func() {
		if r := recover(); r != nil {
			out = unknownValueString
		}
	}()

	if v == nil {
		return nil
	}

	if depth > maxNormalizeDepth {
		return safeString(v)
	}

	switch tv := v.(type) {
	case bool: // before the numeric kinds, bools must stay bools
		return tv
	case string:
		return tv
	case int:
		return int64(tv)
	case int8:
		return int64(tv)
	case int16:
		return int64(tv)
	case int32:
		return int64(tv)
	case int64:
		return tv
	case uint:
		return normalizeUint(uint64(tv))
	case uint8:
		return int64(tv)
	case uint16:
		return int64(tv)
	case uint32:
		return int64(tv)
	case uint64:
		return normalizeUint(tv)
	case float32:
		return float64(tv)
	case float64:
		return tv
	case []byte:
		return string(tv)
	case time.Time:
		return tv.Format(time.RFC3339Nano)
	case reflect.Type: // a value denoting a data type becomes its name
		return tv.String()
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return normalizeUint(rv.Uint())

	case reflect.Float32, reflect.Float64:
		return rv.Float()

	case reflect.String:
		return rv.String()

	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if _, seen := visited[ptr]; seen {
			return nil
		}
		visited[ptr] = struct{}{}
		defer delete(visited, ptr)

		return normalizeValue(rv.Elem().Interface(), visited, depth+1)

	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if _, seen := visited[ptr]; seen {
			return nil
		}
		visited[ptr] = struct{}{}
		defer delete(visited, ptr)

		return normalizeSequence(rv, visited, depth)

	case reflect.Array:
		return normalizeSequence(rv, visited, depth)

	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if _, seen := visited[ptr]; seen {
			return nil
		}
		visited[ptr] = struct{}{}
		defer delete(visited, ptr)

		return normalizeMap(rv, visited, depth)

	case reflect.Struct:
		return normalizeStruct(v, rv, visited, depth)

	default:
		return safeString(v)
	}
}

func normalizeUint(u uint64) Value {
	if u > math.MaxInt64 {
		return float64(u)
	}

	return int64(u)
}

func normalizeSequence(rv reflect.Value, visited map[uintptr]struct{}, depth int) Value {
	out := make([]Value, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, normalizeValue(rv.Index(i).Interface(), visited, depth+1))
	}

	return out
}

func normalizeMap(rv reflect.Value, visited map[uintptr]struct{}, depth int) Value {
	out := make(map[string]Value, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		if isCallable(iter.Value()) {
			continue
		}

		key, ok := iter.Key().Interface().(string)
		if !ok {
			key = safeString(iter.Key().Interface())
		}

		out[key] = normalizeValue(iter.Value().Interface(), visited, depth+1)
	}

	return out
}

func normalizeStruct(v any, rv reflect.Value, visited map[uintptr]struct{}, depth int) Value {
	structType := rv.Type()
	out := make(map[string]Value)

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldValue := rv.Field(i)
		if isCallable(fieldValue) {
			continue
		}

		out[field.Name] = normalizeValue(fieldValue.Interface(), visited, depth+1)
	}

	// structs without introspectable public fields (time-like opaque
	// values, handles) degrade to their string form
	if len(out) == 0 {
		return safeString(v)
	}

	return out
}

// isCallable reports whether a value is a function or channel, neither of
// which may cross the transport boundary.
func isCallable(rv reflect.Value) bool {
	if rv.Kind() == reflect.Interface && !rv.IsNil() {
		rv = rv.Elem()
	}

	return rv.Kind() == reflect.Func || rv.Kind() == reflect.Chan
}

func safeString(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = unknownValueString
		}
	}()

	return fmt.Sprint(v)
}
