package schema

import "github.com/asaidimu/go-presets/utils"

// Catalog is an ordered set of schema entries as returned by the device.
type Catalog []Entry

// Find returns the entry with the given name.
func (c Catalog) Find(name string) (*Entry, bool) {
	for i := range c {
		if c[i].Name == name {
			return &c[i], true
		}
	}
	return nil, false
}

// Names returns the entry names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, e := range c {
		names[i] = e.Name
	}
	return names
}

// FindProperty returns the property with the given name.
func (e *Entry) FindProperty(name string) (*Property, bool) {
	for i := range e.Properties {
		if e.Properties[i].Name == name {
			return &e.Properties[i], true
		}
	}
	return nil, false
}

// Defaults returns a fresh arguments map seeded with every property's default
// value. Composite defaults are deep-copied so two scenes never share them.
func (e *Entry) Defaults() map[string]any {
	args := make(map[string]any, len(e.Properties))
	for _, p := range e.Properties {
		v, err := utils.Clone(p.DefaultValue)
		if err != nil {
			v = p.DefaultValue
		}
		args[p.Name] = v
	}
	return args
}
