package preset

import (
	"fmt"

	"github.com/asaidimu/go-presets/core/schema"
	"github.com/asaidimu/go-presets/utils"
	"github.com/google/uuid"
)

// Provider types known to the editor. Any other type string is kept as-is and
// edited through its generic arguments map.
const (
	ProviderCollection       = "collection"
	ProviderPages            = "pages"
	ProviderRandom           = "random"
	ProviderShaderCollection = "shader_collection"
)

// Provider is a data source nested inside a scene's provider-list argument.
type Provider struct {
	Type      string         `json:"type"`
	UUID      string         `json:"uuid"`
	Arguments map[string]any `json:"arguments"`
}

// CollectionArgs are the arguments of a collection provider.
type CollectionArgs struct {
	Images []string `json:"images"`
}

// PagesArgs are the arguments of a pages provider. End -1 means "last page".
type PagesArgs struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// RandomArgs are the arguments of a random provider.
type RandomArgs struct {
	MinPage int `json:"min_page"`
	MaxPage int `json:"max_page"`
}

// ShaderCollectionArgs are the arguments of a shader_collection provider.
type ShaderCollectionArgs struct {
	URLs []string `json:"urls"`
}

// Known reports whether the provider's type is one of the built-in types.
func (p Provider) Known() bool {
	switch p.Type {
	case ProviderCollection, ProviderPages, ProviderRandom, ProviderShaderCollection:
		return true
	}
	return false
}

// TypedArguments decodes the provider's arguments into the struct matching
// its type. Unknown types return the raw arguments map.
func (p Provider) TypedArguments() (any, error) {
	args := p.Arguments
	if args == nil {
		args = map[string]any{}
	}
	switch p.Type {
	case ProviderCollection:
		return utils.Decode[CollectionArgs](args)
	case ProviderPages:
		return utils.Decode[PagesArgs](args)
	case ProviderRandom:
		return utils.Decode[RandomArgs](args)
	case ProviderShaderCollection:
		return utils.Decode[ShaderCollectionArgs](args)
	}
	return args, nil
}

// DefaultProviderArguments returns the built-in defaults for a provider type
// when the device did not publish a provider schema for it.
func DefaultProviderArguments(providerType string) map[string]any {
	switch providerType {
	case ProviderCollection:
		return map[string]any{"images": []any{}}
	case ProviderPages:
		return map[string]any{"begin": 0.0, "end": -1.0}
	case ProviderRandom:
		return map[string]any{"min_page": 0.0, "max_page": 0.0}
	case ProviderShaderCollection:
		return map[string]any{"urls": []any{}}
	}
	return map[string]any{}
}

// NewProvider creates a provider with a fresh identifier. Arguments come from
// the provider schema entry when given, else from the built-in defaults.
func NewProvider(providerType string, entry *schema.Entry) Provider {
	args := DefaultProviderArguments(providerType)
	if entry != nil {
		args = entry.Defaults()
	}
	return Provider{
		Type:      providerType,
		UUID:      uuid.NewString(),
		Arguments: args,
	}
}

// Providers converts a provider-list argument value into typed providers.
// It accepts the generic JSON form ([]any of objects) as well as []Provider.
// A nil value is an empty list.
func Providers(v any) ([]Provider, error) {
	switch list := v.(type) {
	case nil:
		return []Provider{}, nil
	case []Provider:
		return list, nil
	}
	out, err := utils.Decode[[]Provider](v)
	if err != nil {
		return nil, fmt.Errorf("not a provider list: %w", err)
	}
	return out, nil
}
