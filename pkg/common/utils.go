package common

import (
	"fmt"
	"reflect"
)

// InterfaceToSlice attempts to convert an interface{} to a []interface{}.
// It handles cases where the underlying type is already []interface{}
// or a slice of a specific type (e.g., []string, []int).
func InterfaceToSlice(value interface{}) ([]interface{}, bool) {
	if value == nil {
		return nil, false
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return nil, false
	}

	length := val.Len()
	slice := make([]interface{}, length)
	for i := 0; i < length; i++ {
		slice[i] = val.Index(i).Interface()
	}
	return slice, true
}

// InterfaceToMap converts string-keyed maps of any value type to map[string]interface{}.
// Maps with non-string keys are converted by formatting the key with %v.
func InterfaceToMap(value interface{}) (map[string]interface{}, bool) {
	switch m := value.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		return m, true
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]interface{}, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		out[fmt.Sprintf("%v", iter.Key().Interface())] = iter.Value().Interface()
	}
	return out, true
}

// NumericValue returns value as float64 when it holds any integer or float kind.
func NumericValue(value interface{}) (float64, bool) {
	if value == nil {
		return 0, false
	}
	val := reflect.ValueOf(value)
	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(val.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(val.Uint()), true
	case reflect.Float32, reflect.Float64:
		return val.Float(), true
	}
	return 0, false
}

// ValuesEqual compares two decoded values, treating numbers of different kinds as equal
// when they hold the same value.
func ValuesEqual(a, b interface{}) bool {
	if af, ok := NumericValue(a); ok {
		if bf, ok := NumericValue(b); ok {
			return af == bf
		}
		return false
	}
	if as, ok := InterfaceToSlice(a); ok {
		bs, ok := InterfaceToSlice(b)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !ValuesEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// CopyMap creates a shallow copy of a map[string]interface{}.
func CopyMap(original map[string]interface{}) map[string]interface{} {
	if original == nil {
		return nil
	}
	newMap := make(map[string]interface{}, len(original))
	for key, value := range original {
		newMap[key] = value
	}
	return newMap
}
