package layertree

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

var layerIDType = reflect.TypeOf(LayerID{})

// layerIDHook decodes a string or a list into a LayerID.
func layerIDHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != layerIDType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return SingleID(v), nil
	case []string:
		return GroupIDs(v...), nil
	case []any:
		ids := make([]string, 0, len(v))
		for _, x := range v {
			ids = append(ids, fmt.Sprint(x))
		}
		return GroupIDs(ids...), nil
	case LayerID:
		return v, nil
	default:
		// Numeric ids are common in hand-written YAML.
		return SingleID(fmt.Sprint(v)), nil
	}
}

// emptyToNilHook leaves optional numbers unset when the source has "".
// The catalog writes unset scales as empty strings.
func emptyToNilHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if s, ok := data.(string); ok && s == "" && to.Kind() == reflect.Ptr {
		return nil, nil
	}
	return data, nil
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			layerIDHook,
			emptyToNilHook,
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// DecodeCatalogEntry decodes one raw services.json record.
func DecodeCatalogEntry(raw map[string]any) (*CatalogEntry, error) {
	var e CatalogEntry
	if err := decode(raw, &e); err != nil {
		return nil, fmt.Errorf("decoding catalog entry %v: %w", raw["id"], err)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("catalog entry without id")
	}
	return &e, nil
}

// DecodeOverride decodes one configured layer entry.
func DecodeOverride(raw map[string]any) (*LayerOverride, error) {
	var o LayerOverride
	if err := decode(raw, &o); err != nil {
		return nil, fmt.Errorf("decoding layer %v: %w", raw["id"], err)
	}
	return &o, nil
}

// DecodeStyleOverrides decodes the layerIDsToStyle list.
func DecodeStyleOverrides(raw []any) ([]StyleOverride, error) {
	var out []StyleOverride
	if err := decode(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding layerIDsToStyle: %w", err)
	}
	return out, nil
}

// FolderConfig is a configured folder, e.g. the baselayer or subject
// section of the portal configuration.
type FolderConfig struct {
	Name     string
	Elements []ElementConfig
}

// Overrides returns the layer entries of the folder and its subfolders in
// configuration order.
func (f FolderConfig) Overrides() []*LayerOverride {
	var out []*LayerOverride
	for _, el := range f.Elements {
		switch {
		case el.Folder != nil:
			out = append(out, el.Folder.Overrides()...)
		case el.Layer != nil:
			out = append(out, el.Layer)
		}
	}
	return out
}

// ElementConfig is one configured folder element. Exactly one of Folder and
// Layer is set.
type ElementConfig struct {
	Folder *FolderConfig
	Layer  *LayerOverride
}

// DecodeElements decodes a configured element list. Entries with
// type "folder" become folders, everything else a layer override.
func DecodeElements(raw []any) ([]ElementConfig, error) {
	elements := make([]ElementConfig, 0, len(raw))
	for i, x := range raw {
		m, ok := x.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d: expected an object, got %T", i, x)
		}
		if t, _ := m["type"].(string); t == string(KindFolder) {
			name, _ := m["name"].(string)
			children, _ := m["elements"].([]any)
			nested, err := DecodeElements(children)
			if err != nil {
				return nil, fmt.Errorf("folder %q: %w", name, err)
			}
			elements = append(elements, ElementConfig{Folder: &FolderConfig{Name: name, Elements: nested}})
			continue
		}
		o, err := DecodeOverride(m)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elements = append(elements, ElementConfig{Layer: o})
	}
	return elements, nil
}
