package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/joeblew999/plat-portal/internal/config"
	"github.com/joeblew999/plat-portal/internal/layertree"
)

// ErrUnknownCategory is returned when selecting a category that is not configured.
var ErrUnknownCategory = errors.New("unknown category")

// autoKey identifies an auto catalog resolution.
type autoKey struct {
	catalogVersion uint64
	showAddButton  bool
}

func (k autoKey) String() string {
	return fmt.Sprintf("%d/%t", k.catalogVersion, k.showAddButton)
}

// autoResult is a cached auto catalog resolution.
type autoResult struct {
	layers []*layertree.Layer
	diags  []layertree.Diagnostic
}

// buildKey identifies the inputs of the last built tree.
type buildKey struct {
	catalogVersion   uint64
	overridesVersion uint64
	category         string
}

// TreeService builds the layer tree from the current catalog, the portal
// configuration and the overrides.
//
// It owns the active category and the subject folder of the previous build;
// a category switch regroups the 2D layers and keeps the 3D ones in place.
type TreeService struct {
	cfg       *config.Portal
	catalogs  *CatalogService
	overrides *OverrideService
	bus       *EventBus
	logger    *slog.Logger

	autoCfg   layertree.AutoTreeConfig
	baselayer layertree.FolderConfig
	subjects  layertree.FolderConfig

	autoCache *lru.Cache[autoKey, autoResult]
	group     singleflight.Group

	mu              sync.Mutex
	category        *layertree.CategorySpec
	categoryChanged bool
	prevSubjects    *layertree.Folder
	last            *TreeResult
	lastKey         buildKey
}

// NewTreeService creates a tree service. The configuration must be valid.
func NewTreeService(cfg *config.Portal, catalogs *CatalogService, overrides *OverrideService, bus *EventBus, logger *slog.Logger) (*TreeService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	autoCfg, err := cfg.AutoTree()
	if err != nil {
		return nil, err
	}
	baselayer, err := cfg.Baselayer()
	if err != nil {
		return nil, err
	}
	subjects, err := cfg.Subjects()
	if err != nil {
		return nil, err
	}
	size := cfg.Cache.Size
	if size < 1 {
		size = 1
	}
	cache, err := lru.New[autoKey, autoResult](size)
	if err != nil {
		return nil, fmt.Errorf("creating tree cache: %w", err)
	}
	return &TreeService{
		cfg:       cfg,
		catalogs:  catalogs,
		overrides: overrides,
		bus:       bus,
		logger:    logger,
		autoCfg:   autoCfg,
		baselayer: baselayer,
		subjects:  subjects,
		autoCache: cache,
		category:  cfg.ActiveCategory(),
	}, nil
}

// Tree returns the layer tree, building it if its inputs changed since the
// last build.
func (t *TreeService) Tree(ctx context.Context) (*TreeResult, error) {
	cat, version := t.catalogs.Catalog()

	var auto autoResult
	if t.cfg.Tree.Type == config.TreeAuto {
		var err error
		if auto, err = t.autoLayers(ctx, cat, version); err != nil {
			return nil, err
		}
	}

	t.mu.Lock()
	key := buildKey{catalogVersion: version, overridesVersion: t.overrides.Version()}
	if t.category != nil {
		key.category = t.category.Key
	}
	if t.last != nil && t.lastKey == key && !t.categoryChanged {
		res := t.last
		t.mu.Unlock()
		return res, nil
	}
	res := t.buildLocked(cat, version, auto)
	t.last, t.lastKey = res, key
	t.mu.Unlock()

	t.logger.Info("layer tree built", "mode", res.Mode, "catalog_version", version,
		"diagnostics", len(res.Diagnostics))
	t.bus.Publish(Event{Resource: ResourceTree, Action: "rebuilt"})
	return res, nil
}

// autoLayers returns the auto catalog layers of one catalog version.
// Concurrent callers share a single resolution.
func (t *TreeService) autoLayers(ctx context.Context, cat layertree.Catalog, version uint64) (autoResult, error) {
	key := autoKey{catalogVersion: version, showAddButton: t.cfg.Tree.ShowAddButton}
	if res, ok := t.autoCache.Get(key); ok {
		return res, nil
	}
	ch := t.group.DoChan(key.String(), func() (any, error) {
		p := layertree.NewPass(cat, t.cfg.PassConfig(t.logger))
		res := autoResult{layers: p.ResolveAutoCatalog(t.autoCfg, key.showAddButton)}
		res.diags = p.Diagnostics()
		t.autoCache.Add(key, res)
		return res, nil
	})
	select {
	case <-ctx.Done():
		return autoResult{}, ctx.Err()
	case r := <-ch:
		return r.Val.(autoResult), r.Err
	}
}

func (t *TreeService) buildLocked(cat layertree.Catalog, version uint64, auto autoResult) *TreeResult {
	p := layertree.NewPass(cat, t.cfg.PassConfig(t.logger))
	showAll := !t.cfg.Tree.ShowAddButton
	res := &TreeResult{
		Mode:           t.cfg.Tree.Type,
		CatalogVersion: version,
		BuiltAt:        time.Now(),
	}

	res.Baselayer = p.ResolveFolder(t.baselayer, showAll)
	if t.cfg.Tree.Type != config.TreeAuto {
		res.Subjects = p.ResolveFolder(t.subjects, showAll)
		res.Diagnostics = diagnosticViews(p.Diagnostics())
		return res
	}

	tree := p.BuildTree(auto.layers, layertree.LayerConfig{
		Baselayer: res.Baselayer,
		Subjects:  t.subjectsLocked(p, showAll, auto.layers),
	}, t.category, t.overrides.Shown(), t.categoryChanged)

	res.Subjects = tree.SubjectFolder(t.subjects.Name)
	res.Category = t.category
	res.Diagnostics = diagnosticViews(slices.Concat(auto.diags, p.Diagnostics()))

	t.prevSubjects = res.Subjects
	t.categoryChanged = false
	return res
}

// subjectsLocked returns the subject folder a build starts from: the
// configured subject folder, resolved in p. After the first build the 3D
// layers of the previous result keep their places, rebuilt from the
// configured or auto catalog layer of the same id, and the configured 2D
// layers are added. Settings of earlier builds never carry over.
func (t *TreeService) subjectsLocked(p *layertree.Pass, showAll bool, auto []*layertree.Layer) *layertree.Folder {
	configured := p.ResolveFolder(t.subjects, showAll)
	if t.prevSubjects == nil {
		if len(configured.Elements) == 0 {
			return nil
		}
		return configured
	}

	fresh := make(map[string]*layertree.Layer, len(auto))
	for _, l := range auto {
		fresh[l.ID] = l
	}
	for _, l := range layertree.FlattenLayers(configured.Elements) {
		fresh[l.ID] = l
	}
	retained := layertree.PruneLayers(t.prevSubjects.Elements, func(l *layertree.Layer) (*layertree.Layer, bool) {
		f, ok := fresh[l.ID]
		if !l.Is3DLayer || !ok {
			return nil, false
		}
		return f.Clone(), true
	})
	layers2D := layertree.PruneLayers(configured.Elements, func(l *layertree.Layer) (*layertree.Layer, bool) {
		return l, !l.Is3DLayer
	})
	return &layertree.Folder{ID: configured.ID, Name: configured.Name, Elements: slices.Concat(retained, layers2D)}
}

// Layers returns the configured layers of a custom tree as a flat list in
// configuration order.
func (t *TreeService) Layers(ctx context.Context) ([]*layertree.Layer, []DiagnosticView, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	cat, _ := t.catalogs.Catalog()
	p := layertree.NewPass(cat, t.cfg.PassConfig(t.logger))
	overrides := slices.Concat(t.baselayer.Overrides(), t.subjects.Overrides())
	layers := p.ResolveLayers(overrides, !t.cfg.Tree.ShowAddButton)
	return layers, diagnosticViews(p.Diagnostics()), nil
}

// SelectCategory makes the category with the given key the active one and
// rebuilds the tree.
func (t *TreeService) SelectCategory(ctx context.Context, key string) (*TreeResult, error) {
	c, ok := t.cfg.Category(key)
	if !ok {
		return nil, fmt.Errorf("category %q: %w", key, ErrUnknownCategory)
	}

	t.mu.Lock()
	if t.category == nil || t.category.Key != c.Key {
		t.category = c
		t.categoryChanged = true
	}
	t.mu.Unlock()

	return t.Tree(ctx)
}

// Categories returns the configured categories with the active one selected.
func (t *TreeService) Categories() []Category {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Category, len(t.cfg.Tree.Categories))
	for i, c := range t.cfg.Tree.Categories {
		out[i] = Category{CategorySpec: c, Selected: t.category != nil && t.category.Key == c.Key}
	}
	return out
}

// Diagnostics returns the diagnostics of the last build.
func (t *TreeService) Diagnostics() []DiagnosticView {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last == nil {
		return []DiagnosticView{}
	}
	return t.last.Diagnostics
}

// Watch rebuilds the tree whenever the catalog or the overrides change,
// until ctx is cancelled.
func (t *TreeService) Watch(ctx context.Context) error {
	events := t.bus.Subscribe()
	defer t.bus.Unsubscribe(events)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if ev.Resource != ResourceCatalog && ev.Resource != ResourceOverrides {
				continue
			}
			if _, err := t.Tree(ctx); err != nil && ctx.Err() == nil {
				t.logger.Error("rebuilding layer tree", "trigger", ev.Resource, "error", err)
			}
		}
	}
}
