package layertree

import (
	"log/slog"
	"slices"
	"strings"
)

// DefaultLayerTypes3D are the layer types rendered in the 3D map only.
var DefaultLayerTypes3D = []string{"TERRAIN3D", "TILESET3D", "OBLIQUE"}

// DefaultNoCategory labels the folder of layers with an empty category value.
const DefaultNoCategory = "Nicht zugeordnet"

// PassConfig configures a resolution pass.
type PassConfig struct {
	// LayerTypes3D lists the 3D layer types (case-insensitive).
	// Defaults to DefaultLayerTypes3D.
	LayerTypes3D []string
	// HiddenLayerIDs are layers a shared link explicitly switched off.
	HiddenLayerIDs []string
	// NoCategory labels layers with an empty category value.
	NoCategory string
	// NewFolderID generates folder ids. Defaults to NewFolderID.
	NewFolderID func() string
	Logger      *slog.Logger
}

// Pass is one resolution of the catalog and the configuration. It owns the
// z-index counter and the diagnostics of that resolution. A Pass is not
// safe for concurrent use; independent resolutions use independent passes.
type Pass struct {
	catalog    Catalog
	types3D    []string
	hidden     map[string]bool
	noCategory string
	newID      func() string
	logger     *slog.Logger
	zIndex     int
	diag       diagnostics
}

// NewPass starts a resolution pass over cat. The z-index counter starts at 1.
func NewPass(cat Catalog, cfg PassConfig) *Pass {
	p := &Pass{
		catalog:    cat,
		hidden:     make(map[string]bool, len(cfg.HiddenLayerIDs)),
		noCategory: cfg.NoCategory,
		newID:      cfg.NewFolderID,
		logger:     cfg.Logger,
		zIndex:     1,
	}
	types3D := cfg.LayerTypes3D
	if len(types3D) == 0 {
		types3D = DefaultLayerTypes3D
	}
	for _, t := range types3D {
		p.types3D = append(p.types3D, strings.ToUpper(t))
	}
	for _, id := range cfg.HiddenLayerIDs {
		p.hidden[id] = true
	}
	if p.noCategory == "" {
		p.noCategory = DefaultNoCategory
	}
	if p.newID == nil {
		p.newID = NewFolderID
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.diag.logger = p.logger
	return p
}

// ResetZIndex restarts the z-index counter at 1.
func (p *Pass) ResetZIndex() {
	p.zIndex = 1
}

// Diagnostics returns the diagnostics reported so far.
func (p *Pass) Diagnostics() []Diagnostic {
	return slices.Clone(p.diag.list)
}

// Annotate sets the display attributes of l and returns it.
//
// With showAllInTree, or for a visible layer that does not say otherwise,
// the layer is listed in the tree; a hidden id from a shared link switches
// it off. Layers listed or visible get the next z-index.
func (p *Pass) Annotate(l *Layer, showAllInTree bool) *Layer {
	if showAllInTree || (l.Visibility && l.ShowInLayerTree == nil) {
		if p.hidden[l.ID] {
			l.Visibility = false
		}
		l.ShowInLayerTree = boolPtr(true)
	} else if l.ShowInLayerTree == nil && !l.Visibility {
		l.ShowInLayerTree = boolPtr(false)
	}
	if l.Shown() || l.Visibility {
		l.ZIndex = p.zIndex
		p.zIndex++
	}
	l.Is3DLayer = p.is3D(l.Typ)
	return l
}

func (p *Pass) is3D(typ string) bool {
	return slices.Contains(p.types3D, strings.ToUpper(typ))
}

func boolPtr(b bool) *bool {
	return &b
}
