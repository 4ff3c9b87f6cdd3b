// Package layertree reconciles the raw service catalog with the portal
// configuration into a tree of folders and layers.
//
// A resolution runs inside a [Pass], which owns the z-index counter and the
// diagnostic sink for that run:
//
//	p := layertree.NewPass(catalog, layertree.PassConfig{})
//	layers := p.ResolveAutoCatalog(cfg.Tree.Auto, false)
//	tree := p.BuildTree(layers, layerConfig, category, nil, false)
package layertree

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// Layer types with special handling.
const (
	TypeWMS          = "WMS"
	TypeSensorThings = "SENSORTHINGS"
	TypeGroup        = "GROUP"
)

// GFIIgnore marks a layer whose feature info is switched off.
const GFIIgnore = "ignore"

// idSeparator splits derived layer ids ("123.1") from their catalog id.
const idSeparator = "."

// Catalog is read-only access to the raw layer catalog.
type Catalog interface {
	// Entry returns the catalog entry with the given id.
	Entry(id string) (*CatalogEntry, bool)
	// Entries returns the full catalog in catalog order.
	Entries() []*CatalogEntry
}

// CatalogEntry is one record of the raw layer catalog (services.json).
type CatalogEntry struct {
	ID               string         `mapstructure:"id" json:"id"`
	Name             string         `mapstructure:"name" json:"name,omitempty"`
	Typ              string         `mapstructure:"typ" json:"typ,omitempty"`
	URL              string         `mapstructure:"url" json:"url,omitempty"`
	Layers           string         `mapstructure:"layers" json:"layers,omitempty"`
	FeatureType      string         `mapstructure:"featureType" json:"featureType,omitempty"`
	MinScale         *float64       `mapstructure:"minScale" json:"minScale,omitempty"`
	MaxScale         *float64       `mapstructure:"maxScale" json:"maxScale,omitempty"`
	Datasets         []Dataset      `mapstructure:"datasets" json:"datasets,omitempty"`
	GFIAttributes    any            `mapstructure:"gfiAttributes" json:"gfiAttributes,omitempty"`
	RelatedWMSLayers []string       `mapstructure:"related_wms_layers" json:"related_wms_layers,omitempty"`
	LegendURL        any            `mapstructure:"legendURL" json:"legendURL,omitempty"`
	Extra            map[string]any `mapstructure:",remain" json:"-"`
}

// MarshalJSON flattens Extra into the entry object.
func (e *CatalogEntry) MarshalJSON() ([]byte, error) {
	type plain CatalogEntry
	return marshalWithExtra((*plain)(e), e.Extra)
}

// Dataset is the metadata record attached to a catalog entry.
type Dataset struct {
	MdID   string `mapstructure:"md_id" json:"md_id,omitempty"`
	MdName string `mapstructure:"md_name" json:"md_name,omitempty"`
	// Categories holds the category fields keyed by category key,
	// e.g. "kategorie_opendata".
	Categories map[string]any `mapstructure:",remain" json:"-"`
}

// MarshalJSON flattens the category fields into the dataset object.
func (d Dataset) MarshalJSON() ([]byte, error) {
	type plain Dataset
	return marshalWithExtra(plain(d), d.Categories)
}

// CategoryValue is the value of one category field of a dataset.
type CategoryValue struct {
	// Values are the category labels; a list value fans out to several folders.
	Values []string
	// Present is false if the dataset has no such field at all.
	Present bool
}

// Empty reports whether the field exists but carries no label: "", [] or [""].
func (v CategoryValue) Empty() bool {
	if !v.Present {
		return false
	}
	return len(v.Values) == 0 || (len(v.Values) == 1 && v.Values[0] == "")
}

// CategoryValue returns the category field named key.
func (d Dataset) CategoryValue(key string) CategoryValue {
	raw, ok := d.Categories[key]
	if !ok || raw == nil {
		return CategoryValue{}
	}
	switch v := raw.(type) {
	case string:
		return CategoryValue{Values: []string{v}, Present: true}
	case []string:
		return CategoryValue{Values: v, Present: true}
	case []any:
		values := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				values = append(values, s)
			} else if x != nil {
				values = append(values, fmt.Sprint(x))
			}
		}
		return CategoryValue{Values: values, Present: true}
	default:
		return CategoryValue{Values: []string{fmt.Sprint(v)}, Present: true}
	}
}

// LayerID is the id of a configured layer: a single catalog id or, for
// grouped layers, a list of catalog ids.
type LayerID struct {
	ids  []string
	list bool
}

// SingleID returns a LayerID referencing one catalog entry.
func SingleID(id string) LayerID {
	return LayerID{ids: []string{id}}
}

// GroupIDs returns a LayerID referencing several catalog entries.
func GroupIDs(ids ...string) LayerID {
	return LayerID{ids: ids, list: true}
}

// IsList reports whether the id is a list of catalog ids.
func (id LayerID) IsList() bool { return id.list }

// IDs returns the referenced catalog ids.
func (id LayerID) IDs() []string { return id.ids }

// String returns the single id, or the ids joined by commas.
func (id LayerID) String() string {
	return strings.Join(id.ids, ",")
}

func (id LayerID) MarshalJSON() ([]byte, error) {
	if id.list {
		if id.ids == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(id.ids)
	}
	return json.Marshal(id.String())
}

func (id *LayerID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = SingleID(s)
		return nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return fmt.Errorf("layer id must be a string or a list of strings: %w", err)
	}
	*id = GroupIDs(ids...)
	return nil
}

// LayerOverride is a portal configuration entry for one layer. Every field
// that is set takes precedence over the catalog entry it is merged onto.
type LayerOverride struct {
	ID              LayerID          `mapstructure:"id" json:"id"`
	Name            string           `mapstructure:"name" json:"name,omitempty"`
	Typ             string           `mapstructure:"typ" json:"typ,omitempty"`
	URL             string           `mapstructure:"url" json:"url,omitempty"`
	Layers          string           `mapstructure:"layers" json:"layers,omitempty"`
	Visibility      *bool            `mapstructure:"visibility" json:"visibility,omitempty"`
	ShowInLayerTree *bool            `mapstructure:"showInLayerTree" json:"showInLayerTree,omitempty"`
	StyleID         string           `mapstructure:"styleId" json:"styleId,omitempty"`
	Style           string           `mapstructure:"style" json:"style,omitempty"`
	Styles          []string         `mapstructure:"styles" json:"styles,omitempty"`
	LegendURL       any              `mapstructure:"legendURL" json:"legendURL,omitempty"`
	MinScale        *float64         `mapstructure:"minScale" json:"minScale,omitempty"`
	MaxScale        *float64         `mapstructure:"maxScale" json:"maxScale,omitempty"`
	GFIAttributes   any              `mapstructure:"gfiAttributes" json:"gfiAttributes,omitempty"`
	Datasets        []Dataset        `mapstructure:"datasets" json:"datasets,omitempty"`
	Children        []*LayerOverride `mapstructure:"children" json:"children,omitempty"`
	Extra           map[string]any   `mapstructure:",remain" json:"-"`
}

// MarshalJSON flattens Extra into the override object.
func (o *LayerOverride) MarshalJSON() ([]byte, error) {
	type plain LayerOverride
	return marshalWithExtra((*plain)(o), o.Extra)
}

// StyleOverride configures one catalog layer to be shown once per style
// (layerIDsToStyle). Styles, Names and LegendURLs are parallel lists.
type StyleOverride struct {
	ID         string   `mapstructure:"id" json:"id"`
	Styles     []string `mapstructure:"styles" json:"styles,omitempty"`
	Names      []string `mapstructure:"name" json:"name,omitempty"`
	LegendURLs []string `mapstructure:"legendURL" json:"legendURL,omitempty"`
}

// CategorySpec is one selectable grouping of the auto tree.
type CategorySpec struct {
	Key    string `koanf:"key" json:"key" doc:"Dataset field used for grouping" example:"kategorie_opendata"`
	Name   string `koanf:"name" json:"name" doc:"Display label" example:"Opendata"`
	Active bool   `koanf:"active" json:"active" doc:"Whether this category is the active one"`
}

// NodeKind tags the two node variants.
type NodeKind string

const (
	KindFolder NodeKind = "folder"
	KindLayer  NodeKind = "layer"
)

// Node is an element of a folder: either a *Folder or a *Layer.
type Node interface {
	Kind() NodeKind
	// Label is the display name the folder elements are sorted by.
	Label() string
	NodeID() string
	Parent() string
	setParent(id string)
}

// Folder is a tree node holding an ordered list of folders and layers.
type Folder struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	Elements []Node `json:"elements"`
}

func (f *Folder) Kind() NodeKind      { return KindFolder }
func (f *Folder) Label() string       { return f.Name }
func (f *Folder) NodeID() string      { return f.ID }
func (f *Folder) Parent() string      { return f.ParentID }
func (f *Folder) setParent(id string) { f.ParentID = id }

// MarshalJSON adds the "type" tag.
func (f *Folder) MarshalJSON() ([]byte, error) {
	type plain Folder
	elements := f.Elements
	if elements == nil {
		elements = []Node{}
	}
	return json.Marshal(struct {
		Type NodeKind `json:"type"`
		*plain
		Elements []Node `json:"elements"`
	}{KindFolder, (*plain)(f), elements})
}

// Layer is a catalog entry merged with its configuration and annotated for
// display.
type Layer struct {
	ID               string         `json:"id"`
	Name             string         `json:"name,omitempty"`
	Typ              string         `json:"typ,omitempty"`
	URL              string         `json:"url,omitempty"`
	Layers           string         `json:"layers,omitempty"`
	FeatureType      string         `json:"featureType,omitempty"`
	MinScale         *float64       `json:"minScale,omitempty"`
	MaxScale         *float64       `json:"maxScale,omitempty"`
	Datasets         []Dataset      `json:"datasets,omitempty"`
	GFIAttributes    any            `json:"gfiAttributes,omitempty"`
	RelatedWMSLayers []string       `json:"related_wms_layers,omitempty"`
	LegendURL        any            `json:"legendURL,omitempty"`
	StyleID          string         `json:"styleId,omitempty"`
	Style            string         `json:"style,omitempty"`
	Styles           []string       `json:"styles,omitempty"`
	Visibility       bool           `json:"visibility"`
	ShowInLayerTree  *bool          `json:"showInLayerTree,omitempty"`
	ZIndex           int            `json:"zIndex,omitempty"`
	Is3DLayer        bool           `json:"is3DLayer"`
	ParentID         string         `json:"parentId,omitempty"`
	Children         []*Layer       `json:"children,omitempty"`
	Extra            map[string]any `json:"-"`
}

func (l *Layer) Kind() NodeKind      { return KindLayer }
func (l *Layer) Label() string       { return l.Name }
func (l *Layer) NodeID() string      { return l.ID }
func (l *Layer) Parent() string      { return l.ParentID }
func (l *Layer) setParent(id string) { l.ParentID = id }

// MarshalJSON adds the "type" tag and flattens Extra.
func (l *Layer) MarshalJSON() ([]byte, error) {
	type plain Layer
	return marshalWithExtra(struct {
		Type NodeKind `json:"type"`
		*plain
	}{KindLayer, (*plain)(l)}, l.Extra)
}

// Shown reports whether the layer is listed in the layer tree.
func (l *Layer) Shown() bool {
	return l.ShowInLayerTree != nil && *l.ShowInLayerTree
}

// Dataset returns the first dataset of the layer.
func (l *Layer) Dataset() (Dataset, bool) {
	if len(l.Datasets) == 0 {
		return Dataset{}, false
	}
	return l.Datasets[0], true
}

// Clone returns a shallow copy with its own Extra map.
func (l *Layer) Clone() *Layer {
	c := *l
	c.Extra = maps.Clone(l.Extra)
	return &c
}

// marshalWithExtra encodes v and adds the keys of extra that v does not
// already define.
func marshalWithExtra(v any, extra map[string]any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return b, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, x := range extra {
		if _, ok := m[k]; !ok {
			m[k] = x
		}
	}
	return json.Marshal(m)
}
