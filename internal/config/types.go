// Package config loads the portal configuration: where the catalog comes
// from and how the layer tree is built from it.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joeblew999/plat-portal/internal/layertree"
)

// Tree types.
const (
	TreeAuto   = "auto"
	TreeCustom = "custom"
)

// Portal is the portal configuration.
type Portal struct {
	Catalog CatalogConfig `koanf:"catalog"`
	Tree    TreeConfig    `koanf:"tree"`
	Cache   CacheConfig   `koanf:"cache"`
}

// CatalogConfig locates the raw layer catalog.
type CatalogConfig struct {
	// Source is a file path or an http(s) URL of services.json.
	Source  string        `koanf:"source"`
	Timeout time.Duration `koanf:"timeout"`
	// Snapshot keeps the last good catalog in DuckDB and serves it while
	// the source is unreachable.
	Snapshot bool `koanf:"snapshot"`
}

// TreeConfig controls how the layer tree is built.
type TreeConfig struct {
	// Type is "auto" (grouped by category) or "custom" (configured folders).
	Type          string `koanf:"type"`
	ShowAddButton bool   `koanf:"show_add_button"`
	NoCategory    string `koanf:"no_category"`

	Categories []layertree.CategorySpec `koanf:"categories"`

	ValidLayerTypes  []string `koanf:"valid_layer_types"`
	LayerTypes3D     []string `koanf:"layer_types_3d"`
	LayerIDsToIgnore []string `koanf:"layer_ids_to_ignore"`
	MetaIDsToIgnore  []string `koanf:"meta_ids_to_ignore"`
	MetaIDsToMerge   []string `koanf:"meta_ids_to_merge"`
	// LayerIDsToStyle holds raw style overrides, see layertree.DecodeStyleOverrides.
	LayerIDsToStyle []any `koanf:"layer_ids_to_style"`
	// HiddenLayerIDs are layers a shared link switched off.
	HiddenLayerIDs []string `koanf:"hidden_layer_ids"`

	Baselayer FolderSection `koanf:"baselayer"`
	Subjects  FolderSection `koanf:"subjects"`
}

// FolderSection is a configured folder with raw elements, see
// layertree.DecodeElements.
type FolderSection struct {
	Name     string `koanf:"name"`
	Elements []any  `koanf:"elements"`
}

// CacheConfig sizes the auto tree cache.
type CacheConfig struct {
	Size int `koanf:"size"`
}

// AutoTree returns the auto tree settings.
func (p *Portal) AutoTree() (layertree.AutoTreeConfig, error) {
	styles, err := layertree.DecodeStyleOverrides(p.Tree.LayerIDsToStyle)
	if err != nil {
		return layertree.AutoTreeConfig{}, err
	}
	return layertree.AutoTreeConfig{
		ValidLayerTypes:  p.Tree.ValidLayerTypes,
		LayerIDsToIgnore: p.Tree.LayerIDsToIgnore,
		MetaIDsToIgnore:  p.Tree.MetaIDsToIgnore,
		MetaIDsToMerge:   p.Tree.MetaIDsToMerge,
		LayerIDsToStyle:  styles,
	}, nil
}

// PassConfig returns the settings of a resolution pass.
func (p *Portal) PassConfig(logger *slog.Logger) layertree.PassConfig {
	return layertree.PassConfig{
		LayerTypes3D:   p.Tree.LayerTypes3D,
		HiddenLayerIDs: p.Tree.HiddenLayerIDs,
		NoCategory:     p.Tree.NoCategory,
		Logger:         logger,
	}
}

// ActiveCategory returns the category marked active, else the first one.
// It returns nil if no categories are configured.
func (p *Portal) ActiveCategory() *layertree.CategorySpec {
	for i := range p.Tree.Categories {
		if p.Tree.Categories[i].Active {
			c := p.Tree.Categories[i]
			return &c
		}
	}
	if len(p.Tree.Categories) > 0 {
		c := p.Tree.Categories[0]
		return &c
	}
	return nil
}

// Category returns the category with the given key.
func (p *Portal) Category(key string) (*layertree.CategorySpec, bool) {
	for _, c := range p.Tree.Categories {
		if c.Key == key {
			return &c, true
		}
	}
	return nil, false
}

// Baselayer decodes the configured baselayer folder.
func (p *Portal) Baselayer() (layertree.FolderConfig, error) {
	return p.Tree.Baselayer.folder("baselayer")
}

// Subjects decodes the configured subject folder.
func (p *Portal) Subjects() (layertree.FolderConfig, error) {
	return p.Tree.Subjects.folder("subjects")
}

func (s FolderSection) folder(section string) (layertree.FolderConfig, error) {
	elements, err := layertree.DecodeElements(s.Elements)
	if err != nil {
		return layertree.FolderConfig{}, fmt.Errorf("%s: %w", section, err)
	}
	return layertree.FolderConfig{Name: s.Name, Elements: elements}, nil
}
