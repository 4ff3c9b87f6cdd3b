package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/joeblew999/plat-portal/internal/catalog"
	"github.com/joeblew999/plat-portal/internal/config"
	"github.com/joeblew999/plat-portal/internal/db"
)

// CatalogService holds the current layer catalog.
type CatalogService struct {
	cfg       config.CatalogConfig
	client    *http.Client
	snapshots *db.SnapshotStore
	bus       *EventBus
	logger    *slog.Logger

	mu           sync.RWMutex
	catalog      *catalog.Catalog
	version      uint64
	loadedAt     time.Time
	fromSnapshot bool
}

// NewCatalogService creates a catalog service. snapshots may be nil, in
// which case nothing is stored and there is no fallback.
func NewCatalogService(cfg config.CatalogConfig, snapshots *db.SnapshotStore, bus *EventBus, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Snapshot {
		snapshots = nil
	}
	return &CatalogService{
		cfg:       cfg,
		client:    &http.Client{},
		snapshots: snapshots,
		bus:       bus,
		logger:    logger,
		catalog:   catalog.New(nil),
	}
}

// Reload reads the catalog source. If the source cannot be read the stored
// snapshot of that source is used instead.
func (s *CatalogService) Reload(ctx context.Context) (CatalogInfo, error) {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = catalog.DefaultTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	body, err := catalog.Fetch(fetchCtx, s.client, s.cfg.Source)
	cancel()

	fromSnapshot := false
	if err != nil {
		if errors.Is(err, catalog.ErrNoSource) || s.snapshots == nil {
			return CatalogInfo{}, err
		}
		snap, serr := s.snapshots.Load(ctx, s.cfg.Source)
		if serr != nil {
			return CatalogInfo{}, fmt.Errorf("%w (snapshot: %w)", err, serr)
		}
		s.logger.Warn("catalog source unavailable, using snapshot",
			"source", s.cfg.Source, "fetched_at", snap.FetchedAt, "error", err)
		body = snap.Body
		fromSnapshot = true
	}

	c, err := catalog.Parse(body, s.logger)
	if err != nil {
		return CatalogInfo{}, err
	}

	if s.snapshots != nil && !fromSnapshot {
		if err := s.snapshots.Save(ctx, s.cfg.Source, body, c.Entries()); err != nil {
			s.logger.Warn("saving catalog snapshot", "source", s.cfg.Source, "error", err)
		}
	}

	s.mu.Lock()
	s.catalog = c
	s.version++
	s.loadedAt = time.Now()
	s.fromSnapshot = fromSnapshot
	info := s.infoLocked()
	s.mu.Unlock()

	s.logger.Info("catalog loaded", "source", s.cfg.Source, "entries", c.Len(),
		"version", info.Version, "from_snapshot", fromSnapshot)
	s.bus.Publish(Event{Resource: ResourceCatalog, Action: "reloaded"})
	return info, nil
}

// Catalog returns the current catalog and its version. Before the first
// reload the catalog is empty and the version is 0.
func (s *CatalogService) Catalog() (*catalog.Catalog, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, s.version
}

// Info describes the current catalog.
func (s *CatalogService) Info() CatalogInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.infoLocked()
}

func (s *CatalogService) infoLocked() CatalogInfo {
	return CatalogInfo{
		Source:       s.cfg.Source,
		Version:      s.version,
		Entries:      s.catalog.Len(),
		LoadedAt:     s.loadedAt,
		FromSnapshot: s.fromSnapshot,
	}
}

// TypeCounts returns the number of stored entries per layer type. It
// returns nil without a snapshot store.
func (s *CatalogService) TypeCounts(ctx context.Context) ([]db.TypeCount, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	return s.snapshots.CountByType(ctx, s.cfg.Source)
}
