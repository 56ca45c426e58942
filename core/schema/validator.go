package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Validator checks stored scenes against the scene and provider catalogs.
// Schema skew (unknown or missing properties, unknown types) is reported with
// warning severity because documents written by another firmware version are
// still editable. Values of the wrong type are errors.
type Validator struct {
	scenes    Catalog
	providers Catalog
	issues    []Issue
}

// NewValidator creates a Validator for the given catalogs. The returned
// validator can be reused for multiple validation operations.
func NewValidator(scenes, providers Catalog) *Validator {
	return &Validator{
		scenes:    scenes,
		providers: providers,
		issues:    make([]Issue, 0),
	}
}

// ValidateScene checks one scene's arguments. path prefixes every reported
// issue path, e.g. "scenes.<uuid>". The result is valid when no issue has
// error severity.
func (v *Validator) ValidateScene(sceneType string, args map[string]any, path string) (bool, []Issue) {
	v.issues = make([]Issue, 0)

	entry, ok := v.scenes.Find(sceneType)
	if !ok {
		v.addIssue(IssueUnknownSceneType, fmt.Sprintf("scene type %q is not declared by the device", sceneType), path, "warning")
		return true, v.issues
	}

	v.validateArguments(entry, args, join(path, "arguments"))
	return v.valid(), v.issues
}

// ValidateProvider checks a single provider entry.
func (v *Validator) ValidateProvider(providerType string, args map[string]any, path string) (bool, []Issue) {
	v.issues = make([]Issue, 0)
	v.validateProvider(providerType, args, path)
	return v.valid(), v.issues
}

func (v *Validator) valid() bool {
	for _, issue := range v.issues {
		if issue.Severity == "error" {
			return false
		}
	}
	return true
}

func (v *Validator) validateProvider(providerType string, args map[string]any, path string) {
	entry, ok := v.providers.Find(providerType)
	if !ok {
		v.addIssue(IssueUnknownProviderType, fmt.Sprintf("provider type %q is not declared by the device", providerType), path, "warning")
		return
	}
	v.validateArguments(entry, args, join(path, "arguments"))
}

func (v *Validator) validateArguments(entry *Entry, args map[string]any, path string) {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		prop, ok := entry.FindProperty(name)
		if !ok {
			v.addIssue(IssueUnknownProperty, fmt.Sprintf("property %q is not part of %s", name, entry.Name), join(path, name), "warning")
			continue
		}
		v.validateValue(prop, args[name], join(path, name))
	}

	for _, prop := range entry.Properties {
		if _, ok := args[prop.Name]; !ok {
			v.addIssue(IssueMissingProperty, fmt.Sprintf("property %q of %s is missing", prop.Name, entry.Name), join(path, prop.Name), "warning")
		}
	}
}

func (v *Validator) validateValue(prop *Property, value any, path string) {
	if value == nil {
		return
	}

	if prop.IsProviderList() {
		list, ok := value.([]any)
		if !ok {
			// Typed provider slices are validated by their owners.
			if _, isMap := value.(map[string]any); isMap {
				v.addIssue(IssueTypeMismatch, "expected a list of providers", path, "error")
			}
			return
		}
		for i, item := range list {
			entry, ok := item.(map[string]any)
			itemPath := path + "[" + strconv.Itoa(i) + "]"
			if !ok {
				v.addIssue(IssueTypeMismatch, "provider entries must be objects", itemPath, "error")
				continue
			}
			typ, _ := entry["type"].(string)
			args, _ := entry["arguments"].(map[string]any)
			v.validateProvider(typ, args, itemPath)
		}
		return
	}

	switch prop.TypeID {
	case TypeBool:
		if _, ok := value.(bool); !ok {
			v.typeMismatch(prop, value, path)
		}
	case TypeString:
		if _, ok := value.(string); !ok {
			v.typeMismatch(prop, value, path)
		}
	case TypeInt, TypeInt16, TypeUint8, TypeMillis, TypeFloat, TypeDouble, TypeColor:
		if _, ok := AsFloat(value); !ok {
			v.typeMismatch(prop, value, path)
		}
	case TypeStringList:
		switch list := value.(type) {
		case []string:
		case []any:
			for _, item := range list {
				if _, ok := item.(string); !ok {
					v.typeMismatch(prop, value, path)
					return
				}
			}
		default:
			v.typeMismatch(prop, value, path)
		}
	case TypeEnum:
		s, ok := value.(string)
		if !ok {
			v.typeMismatch(prop, value, path)
			return
		}
		opts, err := prop.Enum()
		if err != nil {
			return
		}
		for _, o := range opts.Values {
			if o.Value == s {
				return
			}
		}
		v.addIssue(IssueEnumViolation, fmt.Sprintf("%q is not a value of %s", s, opts.Name), path, "error")
	}
}

func (v *Validator) typeMismatch(prop *Property, value any, path string) {
	v.addIssue(IssueTypeMismatch, fmt.Sprintf("expected %s for %q, got %T", prop.TypeID, prop.Name, value), path, "error")
}

func (v *Validator) addIssue(code, message, path, severity string) {
	issue := Issue{
		Code:     code,
		Message:  message,
		Path:     path,
		Severity: severity,
	}
	v.issues = append(v.issues, issue)
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// AsFloat reports the numeric value of v for any Go number type.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Coerce converts textual input into the value type declared by t. Values
// that already have the right shape are returned unchanged. The boolean is
// false when the input cannot be represented.
func Coerce(value any, t TypeID) (any, bool) {
	if value == nil {
		return nil, true
	}

	str, ok := value.(string)
	if !ok {
		switch t {
		case TypeBool:
			_, isBool := value.(bool)
			return value, isBool
		case TypeInt, TypeInt16, TypeUint8, TypeMillis, TypeFloat, TypeDouble, TypeColor:
			f, isNum := AsFloat(value)
			return f, isNum
		}
		return value, true
	}

	switch t {
	case TypeBool:
		switch strings.ToLower(strings.TrimSpace(str)) {
		case "true", "1", "on", "yes":
			return true, true
		case "false", "0", "off", "no":
			return false, true
		}
		return nil, false
	case TypeInt, TypeInt16, TypeUint8, TypeMillis, TypeFloat, TypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case TypeStringList:
		if str == "" {
			return []any{}, true
		}
		parts := strings.Split(str, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out, true
	}
	return str, true
}
