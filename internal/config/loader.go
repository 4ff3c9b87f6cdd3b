package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/joeblew999/plat-portal/internal/layertree"
)

// FileName is the default config file name.
const FileName = "portal.yaml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: PORTAL_CATALOG__SOURCE sets catalog.source.
const EnvPrefix = "PORTAL_"

// Defaults returns the default configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"catalog.timeout":        "30s",
		"catalog.snapshot":       true,
		"tree.type":              TreeAuto,
		"tree.show_add_button":   false,
		"tree.no_category":       layertree.DefaultNoCategory,
		"tree.valid_layer_types": slices.Clone(layertree.DefaultValidLayerTypes),
		"tree.layer_types_3d":    slices.Clone(layertree.DefaultLayerTypes3D),
		"tree.baselayer.name":    "Hintergrundkarten",
		"tree.subjects.name":     "Fachdaten",
		"tree.categories": []any{
			map[string]any{"key": "kategorie_opendata", "name": "Opendata", "active": true},
			map[string]any{"key": "kategorie_inspire", "name": "Inspire"},
			map[string]any{"key": "kategorie_organisation", "name": "Organisation"},
		},
		"cache.size": 16,
	}
}

// Load reads the configuration. Precedence (highest to lowest):
// env vars > config file > defaults.
//
// An empty path loads portal.yaml from the working directory if it exists.
// An explicit path must exist.
func Load(path string) (*Portal, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if path == "" {
		if _, err := os.Stat(FileName); err == nil {
			path = FileName
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment: PORTAL_TREE__NO_CATEGORY -> tree.no_category
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Portal
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
