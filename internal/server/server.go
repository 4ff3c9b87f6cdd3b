package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-portal/internal/api"
	"github.com/joeblew999/plat-portal/internal/api/stream"
	"github.com/joeblew999/plat-portal/internal/config"
	"github.com/joeblew999/plat-portal/internal/db"
	"github.com/joeblew999/plat-portal/internal/humastar"
	"github.com/joeblew999/plat-portal/internal/service"
	"github.com/joeblew999/plat-portal/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	// ConfigFile is the portal configuration, see config.Load.
	ConfigFile string
	Logger     *slog.Logger
}

// Server is the portal HTTP server.
type Server struct {
	config   Config
	portal   *config.Portal
	mux      *http.ServeMux
	humaAPI  huma.API
	links    *humastar.Links
	db       *sql.DB
	bus      *service.EventBus
	services *api.Services
	renderer *templates.Renderer
	logger   *slog.Logger
}

// New creates a new portal server. The catalog is loaded by Serve.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	portal, err := config.Load(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	mux := http.NewServeMux()
	links := humastar.NewLinks()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-portal API", "1.0.0")
	humaConfig.Info.Description = "Geo portal API: layer catalog, layer tree and portal layer settings."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	s := &Server{
		config:   cfg,
		portal:   portal,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		links:    links,
		bus:      service.NewEventBus(),
		renderer: renderer,
		logger:   logger,
	}

	// Catalog snapshots are optional; without DuckDB there is no fallback.
	var snapshots *db.SnapshotStore
	conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "portal"})
	if err == nil {
		s.db = conn
		snapshots, err = db.NewSnapshotStore(context.Background(), conn)
	}
	if err != nil {
		logger.Warn("catalog snapshots disabled", "error", err)
		snapshots = nil
	}

	catalogs := service.NewCatalogService(portal.Catalog, snapshots, s.bus, logger)
	overrides := service.NewOverrideService(cfg.DataDir, s.bus, logger)
	tree, err := service.NewTreeService(portal, catalogs, overrides, s.bus, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.services = &api.Services{Catalog: catalogs, Overrides: overrides, Tree: tree}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

// Serve loads the catalog and serves HTTP until ctx is cancelled. The tree
// is rebuilt whenever the catalog or the overrides change.
func (s *Server) Serve(ctx context.Context) error {
	if _, err := s.services.Catalog.Reload(ctx); err != nil {
		s.logger.Error("loading catalog", "source", s.portal.Catalog.Source, "error", err)
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    net.JoinHostPort(s.config.Host, s.config.Port),
		Handler: s,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		return s.services.Tree.Watch(egctx)
	})

	eg.Go(func() error {
		s.logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	huma.AutoRegister(s.humaAPI, api.NewInfoHandler(s.config.DataDir, s.portal.Tree.Type, s.services.Catalog))

	// Datastar SSE routes
	stream.NewTreeHandler(s.services.Tree, s.bus, s.renderer, s.logger).RegisterRoutes(s.humaAPI)

	s.links.Generate(s.humaAPI)

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.links.Root() {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-portal",
		"status":  "running",
	})
}
