package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-portal/internal/layertree"
	"github.com/joeblew999/plat-portal/internal/testutil"
)

const servicesJSON = `[
	{"id": "1", "name": "Bäume", "typ": "WMS", "url": "https://geodienste.example/wms", "layers": "baum",
	 "datasets": [{"md_id": "m1", "md_name": "Baumkataster", "kategorie_opendata": ["Umwelt"], "kategorie_inspire": ["Schutzgebiete"]}]}
]`

func TestBuildTree(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "services.json")
	require.NoError(t, os.WriteFile(source, []byte(servicesJSON), 0o644))
	opts := &Options{DataDir: dir}

	res, err := buildTree(context.Background(), opts, testutil.NewTestLogger(t), source, "kategorie_inspire")

	require.NoError(t, err)
	assert.Equal(t, "kategorie_inspire", res.Category.Key)
	require.Len(t, res.Subjects.Elements, 1)
	assert.Equal(t, "Schutzgebiete", res.Subjects.Elements[0].(*layertree.Folder).Name)

	_, err = buildTree(context.Background(), opts, testutil.NewTestLogger(t), filepath.Join(dir, "missing.json"), "")
	assert.Error(t, err)
}

func TestPrintDoc_YAML(t *testing.T) {
	stdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = stdout })

	require.NoError(t, printDoc(&layertree.Folder{Name: "Fachdaten"}, true))
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)

	assert.Contains(t, string(out), "type: folder")
	assert.Contains(t, string(out), "name: Fachdaten")
}
