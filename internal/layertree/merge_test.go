package layertree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_OverrideWins(t *testing.T) {
	entry := &CatalogEntry{
		ID:       "100",
		Name:     "Catalog name",
		Typ:      "WMS",
		URL:      "https://a.example/wms",
		MaxScale: scale(5000),
		Extra:    map[string]any{"format": "image/png", "version": "1.3.0"},
	}
	o := &LayerOverride{
		ID:         SingleID("100"),
		Name:       "Portal name",
		Visibility: boolPtrTest(true),
		Styles:     []string{"a"},
		Extra:      map[string]any{"format": "image/jpeg"},
	}

	l := Merge(entry, o)

	assert.Equal(t, "100", l.ID)
	assert.Equal(t, "Portal name", l.Name)
	assert.Equal(t, "WMS", l.Typ)
	assert.True(t, l.Visibility)
	assert.Equal(t, 5000.0, *l.MaxScale)
	assert.Equal(t, []string{"a"}, l.Styles)
	assert.Equal(t, map[string]any{"format": "image/jpeg", "version": "1.3.0"}, l.Extra)

	// Inputs are untouched.
	assert.Equal(t, "Catalog name", entry.Name)
	assert.Equal(t, "image/png", entry.Extra["format"])
}

func TestMergeLayer_Single(t *testing.T) {
	cat := memCatalog{wms("452", "Bäume", "Straßenbäume", "Umwelt")}

	t.Run("found", func(t *testing.T) {
		p := newTestPass(t, cat)
		l, err := p.MergeLayer(&LayerOverride{ID: SingleID("452"), Name: "Trees"})
		require.NoError(t, err)
		assert.Equal(t, "Trees", l.Name)
		assert.Equal(t, "layer_452", l.Layers)
		assert.Empty(t, p.Diagnostics())
	})

	t.Run("derived id resolves to first segment", func(t *testing.T) {
		p := newTestPass(t, cat)
		l, err := p.MergeLayer(&LayerOverride{ID: SingleID("452.1")})
		require.NoError(t, err)
		assert.Equal(t, "452.1", l.ID)
		assert.Equal(t, "Bäume", l.Name)
	})

	t.Run("unknown with name", func(t *testing.T) {
		p := newTestPass(t, cat)
		l, err := p.MergeLayer(&LayerOverride{ID: SingleID("999"), Name: "Own layer"})
		require.NoError(t, err)
		assert.Equal(t, "Own layer", l.Name)
		require.Len(t, p.Diagnostics(), 1)
		assert.Equal(t, "UnknownLayer", p.Diagnostics()[0].Kind())
	})

	t.Run("unknown without name", func(t *testing.T) {
		p := newTestPass(t, cat)
		l, err := p.MergeLayer(&LayerOverride{ID: SingleID("999")})
		require.NoError(t, err)
		assert.Equal(t, "Layer 999 not found", l.Name)
		kinds := []string{}
		for _, d := range p.Diagnostics() {
			kinds = append(kinds, d.Kind())
		}
		assert.Equal(t, []string{"UnknownLayer", "MissingName"}, kinds)
	})
}

func TestMergeLayer_GroupedSameService(t *testing.T) {
	cat := memCatalog{
		{ID: "717", Name: "Karte", Typ: "WMS", URL: "https://geodienste.example/basis", Layers: "a", MaxScale: scale(1000), MinScale: scale(10)},
		{ID: "718", Name: "Karte", Typ: "WMS", URL: "https://geodienste.example/basis", Layers: "b", MaxScale: scale(3000), MinScale: scale(0)},
		{ID: "719", Name: "Karte", Typ: "WMS", URL: "https://geodienste.example/basis", Layers: "c"},
	}
	p := newTestPass(t, cat)

	l, err := p.MergeLayer(&LayerOverride{
		ID:         GroupIDs("717", "718", "719"),
		Visibility: boolPtrTest(true),
		Name:       "Geobasiskarten",
	})

	require.NoError(t, err)
	assert.Equal(t, "717", l.ID)
	assert.Equal(t, "a,b,c", l.Layers)
	assert.Equal(t, "Geobasiskarten", l.Name)
	assert.True(t, l.Visibility)
	assert.Equal(t, 3000.0, *l.MaxScale)
	assert.Equal(t, 0.0, *l.MinScale)
}

func TestMergeLayer_ScaleOverride(t *testing.T) {
	cat := memCatalog{
		{ID: "1", Typ: "WMS", URL: "u", Layers: "a", MaxScale: scale(1000)},
		{ID: "2", Typ: "WMS", URL: "u", Layers: "b", MaxScale: scale(3000)},
	}
	p := newTestPass(t, cat)

	l, err := p.MergeLayer(&LayerOverride{ID: GroupIDs("1", "2"), MaxScale: scale(2000)})

	require.NoError(t, err)
	assert.Equal(t, 2000.0, *l.MaxScale)
	assert.Nil(t, l.MinScale)
}

func TestMergeLayer_GroupInvariant(t *testing.T) {
	cat := memCatalog{
		{ID: "a", Typ: "WMS", URL: "https://one.example", Layers: "x"},
		{ID: "b", Typ: "WMS", URL: "https://two.example", Layers: "y"},
	}
	p := newTestPass(t, cat)
	o := &LayerOverride{ID: GroupIDs("a", "b"), Typ: "WMS"}
	before := *o

	l, err := p.MergeLayer(o)

	assert.Nil(t, l)
	assert.True(t, errors.Is(err, ErrGroupInvariant))
	assert.Equal(t, before, *o)
	assert.Equal(t, []string{"a", "b"}, o.ID.IDs())
	require.Len(t, p.Diagnostics(), 1)
	assert.Equal(t, "GroupInvariantViolation", p.Diagnostics()[0].Kind())
}

func TestMergeLayer_Unresolved(t *testing.T) {
	cat := memCatalog{{ID: "a", Typ: "WMS", URL: "u"}}

	tests := []struct {
		name string
		ids  []string
	}{
		{"missing id", []string{"a", "b"}},
		{"empty list", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPass(t, cat)
			l, err := p.MergeLayer(&LayerOverride{ID: GroupIDs(tt.ids...)})
			assert.Nil(t, l)
			assert.ErrorIs(t, err, ErrUnresolvedReference)
		})
	}
}

func TestMergeLayer_GroupType(t *testing.T) {
	cat := memCatalog{
		{ID: "10", Name: "Roads", Typ: "WMS", URL: "https://a.example", MaxScale: scale(5000), MinScale: scale(100)},
		{ID: "11", Name: "Rails", Typ: "WFS", URL: "https://b.example", MaxScale: scale(8000)},
	}

	t.Run("style id propagates", func(t *testing.T) {
		p := newTestPass(t, cat)
		l, err := p.MergeLayer(&LayerOverride{ID: GroupIDs("10", "11"), Typ: TypeGroup, Name: "Traffic", StyleID: "traffic"})
		require.NoError(t, err)

		assert.Equal(t, "10-11", l.ID)
		assert.Equal(t, TypeGroup, l.Typ)
		assert.Equal(t, "Traffic", l.Name)
		assert.Equal(t, 8000.0, *l.MaxScale)
		assert.Equal(t, 100.0, *l.MinScale)
		require.Len(t, l.Children, 2)
		for _, c := range l.Children {
			assert.Equal(t, "traffic", c.StyleID)
		}
	})

	t.Run("children overrides", func(t *testing.T) {
		p := newTestPass(t, cat)
		l, err := p.MergeLayer(&LayerOverride{
			ID:       GroupIDs("10", "11"),
			Typ:      TypeGroup,
			MaxScale: scale(2500),
			Children: []*LayerOverride{
				{ID: SingleID("10"), Name: "Main roads"},
				{ID: SingleID("11"), MaxScale: scale(9000)},
			},
		})
		require.NoError(t, err)

		got := map[string]float64{}
		for _, c := range l.Children {
			got[c.Name] = *c.MaxScale
		}
		want := map[string]float64{"Main roads": 2500, "Rails": 9000}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("child maxScale mismatch (-want +got):\n%s", diff)
		}
	})
}

func boolPtrTest(b bool) *bool {
	return &b
}
