// Package utils holds the JSON-shaped value helpers shared by the state core,
// the HTTP client and the device server.
package utils

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/tiendc/go-deepcopy"
)

// Normalize converts v into its generic JSON form: map[string]any, []any,
// float64, string, bool or nil. Two values that encode to the same JSON
// normalize to deeply equal results regardless of their Go types.
func Normalize(v any) (any, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("Normalize: failed to marshal value: %w", err)
	}

	var out any
	if err := json.Unmarshal(jsonBytes, &out); err != nil {
		return nil, fmt.Errorf("Normalize: failed to unmarshal value: %w", err)
	}
	return out, nil
}

// Decode converts a generic JSON-shaped value (for example an element of a
// scene's arguments map) into T by way of its JSON encoding.
//
// Example:
//
//	type Pages struct {
//		Begin int `json:"begin"`
//		End   int `json:"end"`
//	}
//	p, err := Decode[Pages](map[string]any{"begin": 0.0, "end": -1.0})
//	// p == Pages{Begin: 0, End: -1}
func Decode[T any](input any) (T, error) {
	var zero T

	if input == nil {
		return zero, fmt.Errorf("Decode: input cannot be nil")
	}

	jsonBytes, err := json.Marshal(input)
	if err != nil {
		return zero, fmt.Errorf("Decode: failed to marshal input: %w", err)
	}

	var result T
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return zero, fmt.Errorf("Decode: failed to unmarshal into %T: %w", result, err)
	}
	return result, nil
}

// ToMap converts a struct (or pointer to struct) into a map[string]any keyed
// by its json field names.
func ToMap[T any](record T) (map[string]any, error) {
	val := reflect.ValueOf(record)
	if !val.IsValid() {
		return nil, fmt.Errorf("input record cannot be nil")
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("input record cannot be a nil pointer to a struct")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("input record must be a struct or a pointer to a struct, got %s", val.Kind())
	}

	return Decode[map[string]any](record)
}

// Clone returns a deep copy of v. Maps and slices in the result share no
// memory with v. When T is an interface type the copy has the same dynamic
// type as v.
func Clone[T any](v T) (T, error) {
	var out T
	rv := reflect.ValueOf(&v).Elem()
	if rv.Kind() != reflect.Interface {
		if err := deepcopy.Copy(&out, &v); err != nil {
			return out, fmt.Errorf("Clone: %w", err)
		}
		return out, nil
	}
	if rv.IsNil() {
		return out, nil
	}

	// deepcopy.Copy on *interface{} copies the interface header, not the
	// value behind it.
	dynamic := rv.Elem()
	src := reflect.New(dynamic.Type())
	src.Elem().Set(dynamic)
	dst := reflect.New(dynamic.Type())
	if err := deepcopy.Copy(dst.Interface(), src.Interface()); err != nil {
		return out, fmt.Errorf("Clone: %w", err)
	}
	cloned, ok := dst.Elem().Interface().(T)
	if !ok {
		return out, fmt.Errorf("Clone: %s does not implement %T", dynamic.Type(), v)
	}
	return cloned, nil
}

// Equal reports whether a and b encode to the same JSON document. Map key
// order and numeric Go types are ignored, so an int 5 equals a float64 5.
func Equal(a, b any) (bool, error) {
	na, err := Normalize(a)
	if err != nil {
		return false, err
	}
	nb, err := Normalize(b)
	if err != nil {
		return false, err
	}
	return reflect.DeepEqual(na, nb), nil
}
