// Package omitnilpointers turns a set of optional fields into a partial
// update: nil pointers mean "leave unchanged".
package omitnilpointers

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// OmitNilPointers drops nil values and nil pointers and dereferences the
// remaining pointers.
func OmitNilPointers(fields map[string]any) map[string]any {
	omitted := make(map[string]any, len(fields))
	for key, value := range fields {
		v := reflect.ValueOf(value)
		switch {
		case !v.IsValid():
		case v.Kind() == reflect.Pointer && v.IsNil():
		case v.Kind() == reflect.Pointer:
			omitted[key] = v.Elem().Interface()
		default:
			omitted[key] = value
		}
	}

	return omitted
}

// MarshalFields is OmitNilPointers followed by JSON encoding of each value.
func MarshalFields(fields map[string]any) (map[string]json.RawMessage, error) {
	set := OmitNilPointers(fields)

	raw := make(map[string]json.RawMessage, len(set))
	for key, value := range set {
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", key, err)
		}
		raw[key] = b
	}

	return raw, nil
}
