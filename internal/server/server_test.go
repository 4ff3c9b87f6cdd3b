package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-portal/internal/testutil"
)

const servicesJSON = `[
	{"id": "1", "name": "Bäume", "typ": "WMS", "url": "https://geodienste.example/wms", "layers": "baum",
	 "datasets": [{"md_id": "m1", "md_name": "Baumkataster", "kategorie_opendata": ["Umwelt"]}]}
]`

func TestServer(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "services.json")
	require.NoError(t, os.WriteFile(source, []byte(servicesJSON), 0o644))
	configFile := filepath.Join(dir, "portal.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("catalog:\n  source: "+source+"\n"), 0o644))

	s, err := New(Config{
		Host:       "127.0.0.1",
		Port:       "0",
		DataDir:    filepath.Join(dir, "data"),
		ConfigFile: configFile,
		Logger:     testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	t.Run("root links", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Values("Link"), `</openapi.json>; rel="service-desc"`)
	})

	t.Run("openapi", func(t *testing.T) {
		paths := s.OpenAPI().Paths
		for _, p := range []string{"/health", "/api/v1/tree", "/api/v1/overrides/{id}", "/api/v1/stream/tree"} {
			assert.Contains(t, paths, p)
		}
	})

	t.Run("serve", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Serve(ctx) }()

		assert.Eventually(t, func() bool {
			return s.services.Catalog.Info().Version == 1
		}, 5*time.Second, 10*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
	})
}
