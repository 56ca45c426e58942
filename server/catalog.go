package server

import (
	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/schema"
)

func bound(f float64) *float64 { return &f }

// DefaultScenes is the scene catalog served when none is configured.
func DefaultScenes() schema.Catalog {
	common := func(duration float64, props ...schema.Property) []schema.Property {
		return append([]schema.Property{
			{Name: preset.ArgWeight, TypeID: schema.TypeInt, DefaultValue: 1.0, Min: bound(0)},
			{Name: preset.ArgDuration, TypeID: schema.TypeMillis, DefaultValue: duration},
		}, props...)
	}

	return schema.Catalog{
		{Name: "wave_pattern", Properties: common(20000,
			schema.Property{Name: "num_waves", TypeID: schema.TypeInt, DefaultValue: 3.0, Min: bound(1), Max: bound(10)},
			schema.Property{Name: "speed", TypeID: schema.TypeFloat, DefaultValue: 1.0, Min: bound(0.1), Max: bound(5)},
			schema.Property{Name: "color_speed", TypeID: schema.TypeFloat, DefaultValue: 0.5, Min: bound(0), Max: bound(2)},
			schema.Property{Name: "rainbow_mode", TypeID: schema.TypeBool, DefaultValue: true},
			schema.Property{Name: "wave_height", TypeID: schema.TypeFloat, DefaultValue: 1.0, Min: bound(0.1), Max: bound(3)},
		)},
		{Name: "image_scene", Properties: common(15000,
			schema.Property{Name: "providers", TypeID: schema.TypeJSON, DefaultValue: []any{}},
			schema.Property{Name: "background", TypeID: schema.TypeColor, DefaultValue: 0.0},
		)},
		{Name: "countdown", Properties: common(10000,
			schema.Property{Name: "target_time", TypeID: schema.TypeString, DefaultValue: ""},
			schema.Property{Name: "title", TypeID: schema.TypeString, DefaultValue: "Countdown"},
			schema.Property{Name: "text_color", TypeID: schema.TypeColor, DefaultValue: float64(0xFFFFFF)},
		)},
		{Name: "shadertoy", Properties: common(30000,
			schema.Property{Name: "urls", TypeID: schema.TypeStringList, DefaultValue: []any{}},
			schema.Property{Name: "brightness", TypeID: schema.TypeUint8, DefaultValue: 255.0},
			schema.Property{Name: "mode", TypeID: schema.TypeEnum, DefaultValue: "sequential", Additional: map[string]any{
				"enum_name": "PlaybackMode",
				"enum_values": []any{
					map[string]any{"value": "sequential", "display_name": "Sequential"},
					map[string]any{"value": "shuffle", "display_name": "Shuffle"},
				},
			}},
		)},
	}
}

// DefaultProviders is the provider catalog served when none is configured.
func DefaultProviders() schema.Catalog {
	return schema.Catalog{
		{Name: preset.ProviderCollection, Properties: []schema.Property{
			{Name: "images", TypeID: schema.TypeStringList, DefaultValue: []any{}},
		}},
		{Name: preset.ProviderPages, Properties: []schema.Property{
			{Name: "begin", TypeID: schema.TypeInt, DefaultValue: 0.0},
			{Name: "end", TypeID: schema.TypeInt, DefaultValue: -1.0},
		}},
		{Name: preset.ProviderRandom, Properties: []schema.Property{
			{Name: "min_page", TypeID: schema.TypeInt, DefaultValue: 1.0, Min: bound(0)},
			{Name: "max_page", TypeID: schema.TypeInt, DefaultValue: 100.0, Min: bound(0)},
		}},
		{Name: preset.ProviderShaderCollection, Properties: []schema.Property{
			{Name: "urls", TypeID: schema.TypeStringList, DefaultValue: []any{}},
		}},
	}
}
