// Package service contains business logic for the plat-portal layer tree.
package service

import (
	"time"

	"github.com/joeblew999/plat-portal/internal/layertree"
)

// Override is a portal setting for one catalog layer, applied when the
// layer is placed into the auto tree.
// Huma reads the tags for OpenAPI and validation.
type Override struct {
	ID              string   `json:"id" required:"true" minLength:"1" doc:"Catalog layer id" example:"452"`
	Name            string   `json:"name,omitempty" maxLength:"200" doc:"Display name" example:"Straßenbäume"`
	Visibility      *bool    `json:"visibility,omitempty" doc:"Whether the layer is initially visible"`
	ShowInLayerTree *bool    `json:"showInLayerTree,omitempty" doc:"Whether the layer is listed in the tree"`
	Transparency    *int     `json:"transparency,omitempty" minimum:"0" maximum:"100" doc:"Transparency in percent"`
	StyleID         string   `json:"styleId,omitempty" doc:"Vector style id" example:"traffic"`
	MinScale        *float64 `json:"minScale,omitempty" minimum:"0" doc:"Minimum scale denominator"`
	MaxScale        *float64 `json:"maxScale,omitempty" minimum:"0" doc:"Maximum scale denominator"`
}

// LayerOverride converts o for the tree engine.
func (o Override) LayerOverride() *layertree.LayerOverride {
	lo := &layertree.LayerOverride{
		ID:              layertree.SingleID(o.ID),
		Name:            o.Name,
		Visibility:      o.Visibility,
		ShowInLayerTree: o.ShowInLayerTree,
		StyleID:         o.StyleID,
		MinScale:        o.MinScale,
		MaxScale:        o.MaxScale,
	}
	if o.Transparency != nil {
		lo.Extra = map[string]any{"transparency": *o.Transparency}
	}
	return lo
}

// DiagnosticView is a diagnostic of the last tree build.
type DiagnosticView struct {
	Kind    string `json:"kind" doc:"Diagnostic kind" example:"UnknownLayer"`
	LayerID string `json:"layerId,omitempty" doc:"Affected layer id" example:"452"`
	Message string `json:"message" doc:"Description"`
}

func diagnosticViews(diags []layertree.Diagnostic) []DiagnosticView {
	views := make([]DiagnosticView, len(diags))
	for i, d := range diags {
		views[i] = DiagnosticView{Kind: d.Kind(), LayerID: d.LayerID, Message: d.Message}
	}
	return views
}

// TreeResult is a built layer tree.
type TreeResult struct {
	Mode           string                  `json:"mode" enum:"auto,custom" doc:"Tree type"`
	Category       *layertree.CategorySpec `json:"category,omitempty" doc:"Active category of an auto tree"`
	CatalogVersion uint64                  `json:"catalogVersion" doc:"Catalog version the tree was built from"`
	BuiltAt        time.Time               `json:"builtAt" doc:"Build time"`
	Baselayer      *layertree.Folder       `json:"baselayer" doc:"Background layers"`
	Subjects       *layertree.Folder       `json:"subjects" doc:"Subject layers"`
	Diagnostics    []DiagnosticView        `json:"diagnostics" doc:"Problems found while building"`
}

// Category is a selectable category of the auto tree.
type Category struct {
	layertree.CategorySpec
	Selected bool `json:"selected" doc:"Whether the tree is currently grouped by this category"`
}

// CatalogInfo describes the loaded catalog.
type CatalogInfo struct {
	Source       string    `json:"source" doc:"Catalog source" example:"https://geoportal.example/services.json"`
	Version      uint64    `json:"version" doc:"Incremented on every reload"`
	Entries      int       `json:"entries" doc:"Number of catalog entries"`
	LoadedAt     time.Time `json:"loadedAt,omitempty" doc:"Time of the last reload"`
	FromSnapshot bool      `json:"fromSnapshot" doc:"Whether the catalog was served from the stored snapshot"`
}
