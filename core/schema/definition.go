// Package schema describes the scene and provider property schemas served by
// a device. Schemas are read-only from the editor's point of view: they are
// decoded once from the list_scenes / list_providers endpoints and consulted
// to decide how each argument of a scene is edited and validated.
package schema

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// TypeID identifies the value type of a property as declared by the device.
type TypeID string

const (
	TypeEnum       TypeID = "enum"     // One of a declared set of values, see EnumOptions
	TypeString     TypeID = "string"   // Free text
	TypeInt        TypeID = "int"      // 32-bit signed integer
	TypeStringList TypeID = "string[]" // Ordered list of strings
	TypeDouble     TypeID = "double"   // 64-bit float
	TypeBool       TypeID = "bool"     // True/false
	TypeFloat      TypeID = "float"    // 32-bit float
	TypeMillis     TypeID = "millis"   // Non-negative duration in milliseconds
	TypeJSON       TypeID = "json"     // Arbitrary JSON, provider lists use this tag
	TypeInt16      TypeID = "int16_t"  // 16-bit signed integer
	TypeUint8      TypeID = "uint8_t"  // 8-bit unsigned integer
	TypeColor      TypeID = "color"    // 0xRRGGBB packed into an integer
	TypeProviders  TypeID = "providers"
)

// Known reports whether the type id is one this package understands.
func (t TypeID) Known() bool {
	switch t {
	case TypeEnum, TypeString, TypeInt, TypeStringList, TypeDouble, TypeBool,
		TypeFloat, TypeMillis, TypeJSON, TypeInt16, TypeUint8, TypeColor, TypeProviders:
		return true
	}
	return false
}

// Property is a single schema entry: the declared type, default value and
// optional metadata of one scene or provider argument.
type Property struct {
	Name         string         `json:"name"`
	TypeID       TypeID         `json:"type_id"`
	DefaultValue any            `json:"default_value"`
	Additional   map[string]any `json:"additional,omitempty"`
	Min          *float64       `json:"min,omitempty"`
	Max          *float64       `json:"max,omitempty"`
}

// IsProviderList reports whether the property holds a list of providers.
// Devices declare provider lists as json-typed properties named *providers.
func (p Property) IsProviderList() bool {
	if p.TypeID == TypeProviders {
		return true
	}
	return p.TypeID == TypeJSON && strings.HasSuffix(p.Name, "providers")
}

// EnumValue is one selectable option of an enum property.
type EnumValue struct {
	Value       string `json:"value"`
	DisplayName string `json:"display_name"`
}

// EnumOptions is the decoded form of an enum property's additional metadata.
type EnumOptions struct {
	Name   string      `json:"enum_name"`
	Values []EnumValue `json:"enum_values"`
}

// Enum decodes the property's enum metadata. It fails when the property is
// not an enum or carries no enum_values.
func (p Property) Enum() (EnumOptions, error) {
	var opts EnumOptions
	if p.TypeID != TypeEnum {
		return opts, fmt.Errorf("property %q is %s, not enum", p.Name, p.TypeID)
	}
	if p.Additional == nil {
		return opts, fmt.Errorf("property %q has no enum metadata", p.Name)
	}

	raw, err := json.Marshal(p.Additional)
	if err != nil {
		return opts, fmt.Errorf("error marshaling enum metadata for %q: %w", p.Name, err)
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("error unmarshaling enum metadata for %q: %w", p.Name, err)
	}
	return opts, nil
}

// Entry is the schema of one scene type or provider type.
type Entry struct {
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// Issue describes a mismatch between a stored document and its schema.
type Issue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Severity string `json:"severity,omitempty"` // e.g., "error", "warning"
}

// Issue codes reported by the Validator.
const (
	IssueUnknownSceneType    = "UNKNOWN_SCENE_TYPE"
	IssueUnknownProviderType = "UNKNOWN_PROVIDER_TYPE"
	IssueUnknownProperty     = "UNKNOWN_PROPERTY"
	IssueMissingProperty     = "MISSING_PROPERTY"
	IssueTypeMismatch        = "TYPE_MISMATCH"
	IssueEnumViolation       = "ENUM_VIOLATION"
)
