package service

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/joeblew999/plat-portal/internal/layertree"
)

var (
	// ErrNotFound is returned for unknown resources.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when creating a resource that already exists.
	ErrExists = errors.New("already exists")
)

// OverrideService manages the portal's layer overrides.
type OverrideService struct {
	dataDir   string
	overrides map[string]Override
	version   uint64
	bus       *EventBus
	logger    *slog.Logger
	mu        sync.RWMutex
}

// NewOverrideService creates an override service persisting to dataDir.
// An empty dataDir keeps the overrides in memory.
func NewOverrideService(dataDir string, bus *EventBus, logger *slog.Logger) *OverrideService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &OverrideService{
		dataDir:   dataDir,
		overrides: make(map[string]Override),
		bus:       bus,
		logger:    logger,
	}
	s.loadFromDisk()
	return s
}

// List returns all overrides ordered by id.
func (s *OverrideService) List() []Override {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.SortedFunc(maps.Values(s.overrides), func(a, b Override) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

// Get returns an override by ID.
func (s *OverrideService) Get(id string) (Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.overrides[id]
	return o, ok
}

// Version is incremented on every change.
func (s *OverrideService) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Shown returns the overrides for the tree engine.
func (s *OverrideService) Shown() []*layertree.LayerOverride {
	list := s.List()
	out := make([]*layertree.LayerOverride, len(list))
	for i, o := range list {
		out[i] = o.LayerOverride()
	}
	return out
}

// Create adds a new override.
func (s *OverrideService) Create(o Override) (Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.overrides[o.ID]; exists {
		return Override{}, fmt.Errorf("override for layer %q: %w", o.ID, ErrExists)
	}

	s.overrides[o.ID] = o
	if err := s.commit(); err != nil {
		delete(s.overrides, o.ID)
		return Override{}, err
	}

	s.bus.Publish(Event{Resource: ResourceOverrides, Action: "created", ID: o.ID})
	return o, nil
}

// Update replaces the override of a layer.
func (s *OverrideService) Update(id string, o Override) (Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.overrides[id]
	if !exists {
		return Override{}, fmt.Errorf("override for layer %q: %w", id, ErrNotFound)
	}

	o.ID = id
	s.overrides[id] = o
	if err := s.commit(); err != nil {
		s.overrides[id] = prev
		return Override{}, err
	}

	s.bus.Publish(Event{Resource: ResourceOverrides, Action: "updated", ID: id})
	return o, nil
}

// Delete removes the override of a layer.
func (s *OverrideService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.overrides[id]
	if !exists {
		return fmt.Errorf("override for layer %q: %w", id, ErrNotFound)
	}

	delete(s.overrides, id)
	if err := s.commit(); err != nil {
		s.overrides[id] = prev
		return err
	}

	s.bus.Publish(Event{Resource: ResourceOverrides, Action: "deleted", ID: id})
	return nil
}

// commit saves the overrides and bumps the version. Callers hold mu.
func (s *OverrideService) commit() error {
	if err := s.saveToDisk(); err != nil {
		return err
	}
	s.version++
	return nil
}

// configFile returns the path to the overrides file.
func (s *OverrideService) configFile() string {
	return filepath.Join(s.dataDir, "overrides.json")
}

// loadFromDisk loads overrides from disk.
func (s *OverrideService) loadFromDisk() {
	if s.dataDir == "" {
		return
	}
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // File doesn't exist yet, start empty
	}

	var overrides map[string]Override
	if err := json.Unmarshal(data, &overrides); err != nil {
		s.logger.Warn("ignoring invalid overrides file", "path", s.configFile(), "error", err)
		return
	}

	s.overrides = overrides
}

// saveToDisk persists overrides to disk.
func (s *OverrideService) saveToDisk() error {
	if s.dataDir == "" {
		return nil
	}
	// Ensure data directory exists
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.overrides, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}
