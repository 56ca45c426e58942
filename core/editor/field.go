package editor

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/asaidimu/go-presets/core/path"
	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/schema"
	"github.com/asaidimu/go-presets/core/store"
	"github.com/asaidimu/go-presets/utils"
)

var (
	// ErrNotLoaded is returned when the preset is not in the store.
	ErrNotLoaded = errors.New("preset not loaded")
	// ErrSceneNotFound is returned for an unknown scene identifier.
	ErrSceneNotFound = errors.New("scene not found")
)

// Field is one editable argument of a scene.
type Field struct {
	Name     string
	Property schema.Property
	Behavior Behavior
	binding  *store.Binding
}

// NewField creates a field editing the value at b according to prop.
func NewField(prop schema.Property, b *store.Binding) *Field {
	return &Field{Name: prop.Name, Property: prop, Behavior: Resolve(prop), binding: b}
}

// Known reports whether the field's property is understood. Unknown fields
// are shown as placeholders and reject edits.
func (f *Field) Known() bool { return f.Behavior.Kind() != KindUnknown }

// Binding returns the binding the field commits through.
func (f *Field) Binding() *store.Binding { return f.binding }

// Value returns the stored value.
func (f *Field) Value() (any, bool) { return f.binding.Read() }

// Commit coerces input with the field's behavior and writes the result. The
// stored value is returned.
func (f *Field) Commit(input any) (any, error) {
	v, err := f.Behavior.Coerce(input, f.Property)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	if err := f.binding.Write(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Reset writes the property's default value.
func (f *Field) Reset() error {
	if !f.Known() {
		return fmt.Errorf("%s: %w", f.Name, ErrUnknownType)
	}
	def := f.Property.DefaultValue
	if n, ok := f.Behavior.(Numeric); ok {
		return f.binding.Write(n.Default(f.Property))
	}
	if def == nil {
		return f.binding.Write(nil)
	}
	v, err := utils.Clone(def)
	if err != nil {
		return err
	}
	return f.binding.Write(v)
}

// SceneBinding returns the binding of a scene's arguments map.
func SceneBinding(s *store.Store, id, sceneUUID string) *store.Binding {
	return store.NewBinding(s, id, path.Of("scenes", sceneUUID, "arguments"))
}

// Fields lists the editable arguments of a scene in display order: weight,
// then duration, then the scene type's properties in schema order, then
// arguments the schema does not declare by name. Only arguments present in
// the scene are listed. Arguments without a schema property, and all arguments of a
// scene type missing from the catalog, get the Unknown behavior.
//
// The returned issues describe schema skew; they are informational.
func Fields(s *store.Store, id, sceneUUID string) ([]*Field, []schema.Issue, error) {
	p, ok := s.Get(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotLoaded, id)
	}
	scene, ok := p.Scenes[sceneUUID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q in %q", ErrSceneNotFound, sceneUUID, id)
	}

	catalog := s.Scenes()
	_, issues := schema.NewValidator(catalog, s.Providers()).
		ValidateScene(scene.Type, scene.Arguments, "scenes."+sceneUUID)
	entry, _ := catalog.Find(scene.Type)

	args := SceneBinding(s, id, sceneUUID)
	fields := make([]*Field, 0, len(scene.Arguments))
	for _, name := range ArgumentOrder(scene.Arguments, entry) {
		prop := schema.Property{Name: name, TypeID: "unknown"}
		if entry != nil {
			if found, ok := entry.FindProperty(name); ok {
				prop = *found
			}
		}
		fields = append(fields, NewField(prop, args.Sub(name)))
	}
	return fields, issues, nil
}

// ArgumentOrder sorts argument names for display: weight and duration
// first, then entry's properties in declaration order, then the remaining
// names alphabetically. entry may be nil.
func ArgumentOrder(args map[string]any, entry *schema.Entry) []string {
	rank := map[string]int{preset.ArgWeight: 0, preset.ArgDuration: 1}
	unranked := 2
	if entry != nil {
		for i, prop := range entry.Properties {
			if _, ok := rank[prop.Name]; !ok {
				rank[prop.Name] = 2 + i
			}
		}
		unranked += len(entry.Properties)
	}

	position := func(name string) int {
		if r, ok := rank[name]; ok {
			return r
		}
		return unranked
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if pa, pb := position(a), position(b); pa != pb {
			return pa - pb
		}
		return strings.Compare(a, b)
	})
	return names
}
