package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-portal/internal/config"
	"github.com/joeblew999/plat-portal/internal/layertree"
)

const servicesJSON = `[
	{"id": "100", "name": "Luftbild", "typ": "WMS", "url": "https://geodienste.example/dop", "layers": "dop",
	 "datasets": [{"md_id": "m100", "md_name": "Luftbild", "kategorie_opendata": ["Basis"], "kategorie_inspire": ["Orthofotos"]}]},
	{"id": "1", "name": "Bäume", "typ": "WMS", "url": "https://geodienste.example/wms", "layers": "baum",
	 "datasets": [{"md_id": "m1", "md_name": "Baumkataster", "kategorie_opendata": ["Umwelt"], "kategorie_inspire": ["Schutzgebiete"]}]},
	{"id": "2", "name": "Schulen", "typ": "WMS", "url": "https://geodienste.example/wms", "layers": "schule",
	 "datasets": [{"md_id": "m2", "md_name": "Schulen", "kategorie_opendata": ["Bildung"], "kategorie_inspire": ["Versorgungswirtschaft"]}]},
	{"id": "3", "name": "Gebäude", "typ": "TILESET3D", "url": "https://geodienste.example/3d",
	 "datasets": [{"md_id": "m3", "md_name": "Gebäude 3D", "kategorie_opendata": ["Stadt"], "kategorie_inspire": ["Gebäude"]}]}
]`

// writeCatalog writes the test catalog into dir and returns its path.
func writeCatalog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "services.json")
	require.NoError(t, os.WriteFile(path, []byte(servicesJSON), 0o644))
	return path
}

func testPortal(source string) *config.Portal {
	return &config.Portal{
		Catalog: config.CatalogConfig{Source: source, Timeout: time.Second, Snapshot: true},
		Tree: config.TreeConfig{
			Type: config.TreeAuto,
			Categories: []layertree.CategorySpec{
				{Key: "kategorie_opendata", Name: "Opendata", Active: true},
				{Key: "kategorie_inspire", Name: "Inspire"},
			},
			Baselayer: config.FolderSection{Name: "Hintergrundkarten", Elements: []any{
				map[string]any{"id": "100", "visibility": true},
			}},
			Subjects: config.FolderSection{Name: "Fachdaten"},
		},
		Cache: config.CacheConfig{Size: 4},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
