package layertree

import (
	"fmt"
	"slices"
	"testing"

	"github.com/joeblew999/plat-portal/internal/testutil"
)

// memCatalog is a catalog backed by a slice.
type memCatalog []*CatalogEntry

func (c memCatalog) Entry(id string) (*CatalogEntry, bool) {
	for _, e := range c {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

func (c memCatalog) Entries() []*CatalogEntry {
	return c
}

func newTestPass(t *testing.T, cat Catalog) *Pass {
	t.Helper()
	n := 0
	return NewPass(cat, PassConfig{
		Logger: testutil.NewTestLogger(t),
		NewFolderID: func() string {
			n++
			return fmt.Sprintf("folder-%d", n)
		},
	})
}

func wms(id, name, mdName string, category any) *CatalogEntry {
	return &CatalogEntry{
		ID:     id,
		Name:   name,
		Typ:    "WMS",
		URL:    "https://geodienste.example/wms",
		Layers: "layer_" + id,
		Datasets: []Dataset{{
			MdID:       "md-" + id,
			MdName:     mdName,
			Categories: map[string]any{"kategorie_opendata": category},
		}},
	}
}

func scale(f float64) *float64 {
	return &f
}

// names returns the labels of nodes.
func names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label()
	}
	return out
}

func childFolder(t *testing.T, f *Folder, name string) *Folder {
	t.Helper()
	for _, el := range f.Elements {
		if sub, ok := el.(*Folder); ok && sub.Name == name {
			return sub
		}
	}
	t.Fatalf("folder %q has no subfolder %q (elements %v)", f.Name, name, names(f.Elements))
	return nil
}

// sortedIDs returns the ids of layers in ascending order.
func sortedIDs(layers []*Layer) []string {
	ids := layerIDs(layers)
	slices.Sort(ids)
	return ids
}
