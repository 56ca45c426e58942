// Package editor turns schema properties into editing behavior. Resolve maps
// a property's declared type to one of a closed set of Behavior variants;
// each variant coerces raw user input into a value fit for storage. Fields
// pair a behavior with a store.Binding so every accepted edit is committed
// through the store.
package editor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/schema"
	"github.com/asaidimu/go-presets/utils"
	"github.com/goccy/go-json"
)

var (
	// ErrInvalidInput is returned when input cannot be coerced and the
	// behavior has no fallback.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownType is returned when editing a property whose type is not
	// understood.
	ErrUnknownType = errors.New("unknown property type")
)

// Kind names a Behavior variant.
type Kind string

const (
	KindToggle       Kind = "toggle"
	KindNumeric      Kind = "numeric"
	KindText         Kind = "text"
	KindColor        Kind = "color"
	KindEnum         Kind = "enum"
	KindStringList   Kind = "string_list"
	KindProviderList Kind = "provider_list"
	KindJSON         Kind = "json"
	KindUnknown      Kind = "unknown"
)

// Behavior is the editing behavior of one property. The set of
// implementations is closed; switch on the concrete type or on Kind.
type Behavior interface {
	Kind() Kind
	// Coerce converts input into the value to store for prop.
	Coerce(input any, prop schema.Property) (any, error)
	behavior()
}

// Toggle edits booleans.
type Toggle struct{}

// Numeric edits bounded numbers. Integer behaviors truncate.
type Numeric struct {
	Min     float64
	Max     float64
	Integer bool
}

// Text edits free-form strings.
type Text struct{}

// Color edits 0xRRGGBB colors stored as integers.
type Color struct{}

// Enum edits a choice among Options. Without options any string is accepted.
type Enum struct {
	Name    string
	Options []schema.EnumValue
}

// StringList edits ordered lists of strings.
type StringList struct{}

// ProviderList edits a scene's providers through a Providers editor.
type ProviderList struct{}

// RawJSON edits an arbitrary JSON value.
type RawJSON struct{}

// Unknown stands in for properties whose type is not understood. It never
// accepts input.
type Unknown struct {
	TypeID schema.TypeID
}

// Resolve selects the behavior for prop.
func Resolve(prop schema.Property) Behavior {
	if prop.IsProviderList() {
		return ProviderList{}
	}

	switch prop.TypeID {
	case schema.TypeBool:
		return Toggle{}
	case schema.TypeInt:
		return bounded(prop, math.MinInt32, math.MaxInt32, true)
	case schema.TypeInt16:
		return bounded(prop, math.MinInt16, math.MaxInt16, true)
	case schema.TypeUint8:
		return bounded(prop, 0, math.MaxUint8, true)
	case schema.TypeMillis:
		return bounded(prop, 0, math.MaxInt32, true)
	case schema.TypeFloat:
		return bounded(prop, -math.MaxFloat32, math.MaxFloat32, false)
	case schema.TypeDouble:
		return bounded(prop, -math.MaxFloat64, math.MaxFloat64, false)
	case schema.TypeString:
		return Text{}
	case schema.TypeColor:
		return Color{}
	case schema.TypeEnum:
		opts, _ := prop.Enum()
		return Enum{Name: opts.Name, Options: opts.Values}
	case schema.TypeStringList:
		return StringList{}
	case schema.TypeJSON:
		return RawJSON{}
	}
	return Unknown{TypeID: prop.TypeID}
}

// bounded narrows the type's range by the schema's min/max overrides.
func bounded(prop schema.Property, lo, hi float64, integer bool) Numeric {
	n := Numeric{Min: lo, Max: hi, Integer: integer}
	if prop.Min != nil && *prop.Min > n.Min && *prop.Min <= n.Max {
		n.Min = *prop.Min
	}
	if prop.Max != nil && *prop.Max < n.Max && *prop.Max >= n.Min {
		n.Max = *prop.Max
	}
	return n
}

func (Toggle) Kind() Kind       { return KindToggle }
func (Numeric) Kind() Kind      { return KindNumeric }
func (Text) Kind() Kind         { return KindText }
func (Color) Kind() Kind        { return KindColor }
func (Enum) Kind() Kind         { return KindEnum }
func (StringList) Kind() Kind   { return KindStringList }
func (ProviderList) Kind() Kind { return KindProviderList }
func (RawJSON) Kind() Kind      { return KindJSON }
func (Unknown) Kind() Kind      { return KindUnknown }

func (Toggle) behavior()       {}
func (Numeric) behavior()      {}
func (Text) behavior()         {}
func (Color) behavior()        {}
func (Enum) behavior()         {}
func (StringList) behavior()   {}
func (ProviderList) behavior() {}
func (RawJSON) behavior()      {}
func (Unknown) behavior()      {}

func (Toggle) Coerce(input any, prop schema.Property) (any, error) {
	v, ok := schema.Coerce(input, schema.TypeBool)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %v is not a boolean", ErrInvalidInput, input)
	}
	return v, nil
}

// Coerce parses input, truncates integer kinds and clamps into [Min, Max].
// Unparsable input, NaN and ±Inf yield the property's default, itself
// clamped.
func (n Numeric) Coerce(input any, prop schema.Property) (any, error) {
	f, ok := parseNumber(input)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return n.Default(prop), nil
	}
	return n.clamp(f), nil
}

// Default returns the property's default value within range.
func (n Numeric) Default(prop schema.Property) float64 {
	f, ok := parseNumber(prop.DefaultValue)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return n.clamp(f)
}

func (n Numeric) clamp(f float64) float64 {
	if n.Integer {
		f = math.Trunc(f)
	}
	return math.Max(n.Min, math.Min(n.Max, f))
}

func parseNumber(input any) (float64, bool) {
	if s, ok := input.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return schema.AsFloat(input)
}

func (Text) Coerce(input any, prop schema.Property) (any, error) {
	switch v := input.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	}
	return fmt.Sprint(input), nil
}

// Coerce accepts a packed integer or a "#rrggbb" string.
func (Color) Coerce(input any, prop schema.Property) (any, error) {
	if s, ok := input.(string); ok {
		c, err := ParseColor(s)
		if err != nil {
			return nil, err
		}
		return float64(c), nil
	}
	f, ok := schema.AsFloat(input)
	if !ok || math.IsNaN(f) {
		return nil, fmt.Errorf("%w: %v is not a color", ErrInvalidInput, input)
	}
	return math.Max(0, math.Min(0xFFFFFF, math.Trunc(f))), nil
}

// ParseColor reads "#rrggbb" or "rrggbb" into a packed integer.
func ParseColor(s string) (int, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("%w: %q is not a #rrggbb color", ErrInvalidInput, s)
	}
	c, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a #rrggbb color", ErrInvalidInput, s)
	}
	return int(c), nil
}

// FormatColor renders a stored color as "#rrggbb". Non-numeric values
// render as black.
func FormatColor(v any) string {
	f, _ := schema.AsFloat(v)
	c := int(math.Max(0, math.Min(0xFFFFFF, f)))
	return fmt.Sprintf("#%02x%02x%02x", (c>>16)&0xFF, (c>>8)&0xFF, c&0xFF)
}

// Coerce accepts an option value or, failing that, its display name.
func (e Enum) Coerce(input any, prop schema.Property) (any, error) {
	s, ok := input.(string)
	if !ok {
		return nil, fmt.Errorf("%w: enum values are strings, got %T", ErrInvalidInput, input)
	}
	if len(e.Options) == 0 {
		return s, nil
	}
	for _, o := range e.Options {
		if o.Value == s {
			return s, nil
		}
	}
	for _, o := range e.Options {
		if strings.EqualFold(o.DisplayName, s) {
			return o.Value, nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not one of %s", ErrInvalidInput, s, e.Name)
}

// Display returns the display name of value, or value itself.
func (e Enum) Display(value string) string {
	for _, o := range e.Options {
		if o.Value == value {
			return o.DisplayName
		}
	}
	return value
}

func (StringList) Coerce(input any, prop schema.Property) (any, error) {
	items, err := toStrings(input)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out, nil
}

func toStrings(input any) ([]string, error) {
	switch v := input.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string(nil), v...), nil
	case string:
		coerced, _ := schema.Coerce(v, schema.TypeStringList)
		return toStrings(coerced)
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: list item %d is %T, not a string", ErrInvalidInput, i, item)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T is not a string list", ErrInvalidInput, input)
}

// Coerce accepts any provider list shape and stores it in generic JSON form.
func (ProviderList) Coerce(input any, prop schema.Property) (any, error) {
	list, err := preset.Providers(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return providersToValue(list)
}

func providersToValue(list []preset.Provider) (any, error) {
	if len(list) == 0 {
		return []any{}, nil
	}
	return utils.Normalize(list)
}

// Coerce parses strings as JSON documents; other values are stored in their
// generic JSON form.
func (RawJSON) Coerce(input any, prop schema.Property) (any, error) {
	if s, ok := input.(string); ok {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return v, nil
	}
	return utils.Normalize(input)
}

func (u Unknown) Coerce(input any, prop schema.Property) (any, error) {
	return nil, fmt.Errorf("%w %q for %q", ErrUnknownType, u.TypeID, prop.Name)
}
