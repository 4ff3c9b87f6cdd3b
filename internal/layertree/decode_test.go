package layertree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCatalogEntry(t *testing.T) {
	raw := map[string]any{
		"id":       "452",
		"name":     "Straßenbäume",
		"typ":      "WMS",
		"url":      "https://geodienste.example/wms",
		"layers":   "strassenbaum",
		"minScale": "",
		"maxScale": "2500",
		"format":   "image/png",
		"datasets": []any{map[string]any{
			"md_id":              "B3FD9BD5",
			"md_name":            "Straßenbaumkataster",
			"kategorie_opendata": []any{"Umwelt"},
			"kategorie_inspire":  []any{"nicht INSPIRE-identifiziert"},
		}},
	}

	e, err := DecodeCatalogEntry(raw)

	require.NoError(t, err)
	assert.Equal(t, "452", e.ID)
	assert.Nil(t, e.MinScale)
	require.NotNil(t, e.MaxScale)
	assert.Equal(t, 2500.0, *e.MaxScale)
	assert.Equal(t, map[string]any{"format": "image/png"}, e.Extra)
	require.Len(t, e.Datasets, 1)
	assert.Equal(t, "Straßenbaumkataster", e.Datasets[0].MdName)
	assert.Equal(t, CategoryValue{Values: []string{"Umwelt"}, Present: true}, e.Datasets[0].CategoryValue("kategorie_opendata"))
}

func TestDecodeCatalogEntry_MissingID(t *testing.T) {
	_, err := DecodeCatalogEntry(map[string]any{"name": "x"})
	assert.Error(t, err)
}

func TestDecodeOverride_LayerID(t *testing.T) {
	tests := []struct {
		name string
		id   any
		want LayerID
	}{
		{"string", "452", SingleID("452")},
		{"number", 452, SingleID("452")},
		{"list", []any{"717", "718"}, GroupIDs("717", "718")},
		{"string list", []string{"717"}, GroupIDs("717")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := DecodeOverride(map[string]any{"id": tt.id, "visibility": true, "transparency": 50})
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.ID)
			require.NotNil(t, o.Visibility)
			assert.True(t, *o.Visibility)
			assert.Equal(t, map[string]any{"transparency": 50}, o.Extra)
		})
	}
}

func TestDecodeOverride_Children(t *testing.T) {
	o, err := DecodeOverride(map[string]any{
		"id":  []any{"10", "11"},
		"typ": "GROUP",
		"children": []any{
			map[string]any{"id": "10", "maxScale": 5000},
			map[string]any{"id": "11"},
		},
	})

	require.NoError(t, err)
	require.Len(t, o.Children, 2)
	assert.Equal(t, SingleID("10"), o.Children[0].ID)
	assert.Equal(t, 5000.0, *o.Children[0].MaxScale)
}

func TestDecodeStyleOverrides(t *testing.T) {
	got, err := DecodeStyleOverrides([]any{map[string]any{
		"id":        "30",
		"styles":    []any{"day", "night"},
		"name":      []any{"Tag", "Nacht"},
		"legendURL": []any{"a.png", "b.png"},
	}})

	require.NoError(t, err)
	assert.Equal(t, []StyleOverride{{
		ID:         "30",
		Styles:     []string{"day", "night"},
		Names:      []string{"Tag", "Nacht"},
		LegendURLs: []string{"a.png", "b.png"},
	}}, got)
}

func TestDecodeElements(t *testing.T) {
	got, err := DecodeElements([]any{
		map[string]any{"id": "1"},
		map[string]any{"type": "folder", "name": "Verkehr", "elements": []any{
			map[string]any{"id": []any{"2", "3"}},
		}},
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, SingleID("1"), got[0].Layer.ID)
	require.NotNil(t, got[1].Folder)
	assert.Equal(t, "Verkehr", got[1].Folder.Name)
	require.Len(t, got[1].Folder.Elements, 1)
	assert.Equal(t, GroupIDs("2", "3"), got[1].Folder.Elements[0].Layer.ID)

	_, err = DecodeElements([]any{"not an object"})
	assert.Error(t, err)
}

func TestLayerID_JSON(t *testing.T) {
	for _, id := range []LayerID{SingleID("1"), GroupIDs("1", "2")} {
		b, err := json.Marshal(id)
		require.NoError(t, err)
		var got LayerID
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, id, got)
	}
}

func TestFolder_MarshalJSON(t *testing.T) {
	f := &Folder{ID: "folder-1", Name: "Umwelt", Elements: []Node{
		&Layer{ID: "452", Name: "Bäume", Visibility: true, Extra: map[string]any{"transparency": 20}},
		&Folder{ID: "folder-2", Name: "Leer", ParentID: "folder-1"},
	}}

	b, err := json.Marshal(f)

	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "folder",
		"id": "folder-1",
		"name": "Umwelt",
		"elements": [
			{"type": "layer", "id": "452", "name": "Bäume", "visibility": true, "is3DLayer": false, "transparency": 20},
			{"type": "folder", "id": "folder-2", "name": "Leer", "parentId": "folder-1", "elements": []}
		]
	}`, string(b))
}

func TestFolderConfig_Overrides(t *testing.T) {
	f := FolderConfig{Elements: []ElementConfig{
		{Layer: &LayerOverride{ID: SingleID("1")}},
		{Folder: &FolderConfig{Name: "Sub", Elements: []ElementConfig{
			{Layer: &LayerOverride{ID: GroupIDs("2", "3")}},
		}}},
		{Layer: &LayerOverride{ID: SingleID("4")}},
	}}

	var ids []string
	for _, o := range f.Overrides() {
		ids = append(ids, o.ID.String())
	}
	assert.Equal(t, []string{"1", "2,3", "4"}, ids)
}
