package layertree

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Merge returns a new layer made of entry with o applied on top.
//
// Every field o sets wins; lists replace the entry's lists; Extra is merged
// key by key. A grouped id never replaces the entry id. Children are not
// resolved here. Either argument may be nil; neither is modified.
func Merge(entry *CatalogEntry, o *LayerOverride) *Layer {
	l := layerFromEntry(entry)
	if o != nil {
		applyOverride(l, o)
	}
	return l
}

// applyOverride writes every field o sets into l.
func applyOverride(l *Layer, o *LayerOverride) {
	if !o.ID.IsList() && len(o.ID.IDs()) > 0 {
		l.ID = o.ID.String()
	}
	if o.Name != "" {
		l.Name = o.Name
	}
	if o.Typ != "" {
		l.Typ = o.Typ
	}
	if o.URL != "" {
		l.URL = o.URL
	}
	if o.Layers != "" {
		l.Layers = o.Layers
	}
	if o.Visibility != nil {
		l.Visibility = *o.Visibility
	}
	if o.ShowInLayerTree != nil {
		l.ShowInLayerTree = boolPtr(*o.ShowInLayerTree)
	}
	if o.StyleID != "" {
		l.StyleID = o.StyleID
	}
	if o.Style != "" {
		l.Style = o.Style
	}
	if o.Styles != nil {
		l.Styles = slices.Clone(o.Styles)
	}
	if o.LegendURL != nil {
		l.LegendURL = o.LegendURL
	}
	if o.MinScale != nil {
		l.MinScale = floatPtr(*o.MinScale)
	}
	if o.MaxScale != nil {
		l.MaxScale = floatPtr(*o.MaxScale)
	}
	if o.GFIAttributes != nil {
		l.GFIAttributes = o.GFIAttributes
	}
	if o.Datasets != nil {
		l.Datasets = slices.Clone(o.Datasets)
	}
	if len(o.Extra) > 0 {
		if l.Extra == nil {
			l.Extra = make(map[string]any, len(o.Extra))
		}
		maps.Copy(l.Extra, o.Extra)
	}
}

func layerFromEntry(e *CatalogEntry) *Layer {
	if e == nil {
		return &Layer{}
	}
	l := &Layer{
		ID:               e.ID,
		Name:             e.Name,
		Typ:              e.Typ,
		URL:              e.URL,
		Layers:           e.Layers,
		FeatureType:      e.FeatureType,
		Datasets:         e.Datasets,
		GFIAttributes:    e.GFIAttributes,
		RelatedWMSLayers: e.RelatedWMSLayers,
		LegendURL:        e.LegendURL,
		Extra:            maps.Clone(e.Extra),
	}
	if e.MinScale != nil {
		l.MinScale = floatPtr(*e.MinScale)
	}
	if e.MaxScale != nil {
		l.MaxScale = floatPtr(*e.MaxScale)
	}
	return l
}

// overlay returns base with every set field of top applied, for layers
// that were already merged once, e.g. configured subject layers. The
// z-index stays the one base got in its pass.
func overlay(base, top *Layer) *Layer {
	l := base.Clone()
	if top.ID != "" {
		l.ID = top.ID
	}
	if top.Name != "" {
		l.Name = top.Name
	}
	if top.Typ != "" {
		l.Typ = top.Typ
	}
	if top.URL != "" {
		l.URL = top.URL
	}
	if top.Layers != "" {
		l.Layers = top.Layers
	}
	if top.FeatureType != "" {
		l.FeatureType = top.FeatureType
	}
	if top.MinScale != nil {
		l.MinScale = top.MinScale
	}
	if top.MaxScale != nil {
		l.MaxScale = top.MaxScale
	}
	if top.Datasets != nil {
		l.Datasets = top.Datasets
	}
	if top.GFIAttributes != nil {
		l.GFIAttributes = top.GFIAttributes
	}
	if top.LegendURL != nil {
		l.LegendURL = top.LegendURL
	}
	if top.StyleID != "" {
		l.StyleID = top.StyleID
	}
	if top.Style != "" {
		l.Style = top.Style
	}
	if top.Styles != nil {
		l.Styles = top.Styles
	}
	if top.ShowInLayerTree != nil {
		l.ShowInLayerTree = top.ShowInLayerTree
	}
	if top.Children != nil {
		l.Children = top.Children
	}
	l.Visibility = top.Visibility
	l.Is3DLayer = top.Is3DLayer
	if len(top.Extra) > 0 {
		if l.Extra == nil {
			l.Extra = make(map[string]any, len(top.Extra))
		}
		maps.Copy(l.Extra, top.Extra)
	}
	return l
}

// lookup resolves a configured id. Derived ids ("123.1") resolve to the
// catalog entry of their first segment.
func (p *Pass) lookup(id string) (*CatalogEntry, bool) {
	if p.catalog == nil {
		return nil, false
	}
	if i := strings.Index(id, idSeparator); i >= 0 {
		id = id[:i]
	}
	return p.catalog.Entry(id)
}

// MergeLayer resolves a configured layer against the catalog.
//
// For a single id the catalog entry is merged with o; an unknown id is
// reported and the layer is built from o alone. For a list of ids every id
// must resolve, and unless o is a GROUP layer all entries must share url
// and typ. If that fails, MergeLayer reports it and returns a nil layer
// and the error; o is left as it was.
func (p *Pass) MergeLayer(o *LayerOverride) (*Layer, error) {
	if !o.ID.IsList() {
		return p.mergeSingle(o), nil
	}

	ids := o.ID.IDs()
	entries := make([]*CatalogEntry, 0, len(ids))
	var missing []string
	for _, id := range ids {
		if e, ok := p.lookup(id); ok {
			entries = append(entries, e)
		} else {
			missing = append(missing, id)
		}
	}
	if len(ids) == 0 || len(missing) > 0 {
		d := p.diag.report(o.ID.String(), ErrUnresolvedReference,
			"grouped layer %v: ids %v not found in catalog", ids, missing)
		return nil, d
	}

	if o.Typ == TypeGroup {
		return p.mergeGroup(o, entries), nil
	}

	first := entries[0]
	for _, e := range entries[1:] {
		if e.URL != first.URL || e.Typ != first.Typ {
			d := p.diag.report(o.ID.String(), ErrGroupInvariant,
				"grouped layer %v: entries %s and %s differ in url or typ", ids, first.ID, e.ID)
			return nil, d
		}
	}
	l := Merge(first, o)
	layerNames := make([]string, len(entries))
	for i, e := range entries {
		layerNames[i] = e.Layers
	}
	l.Layers = strings.Join(layerNames, ",")
	l.MinScale, l.MaxScale = combineScales(o.MinScale, o.MaxScale, entries)
	return l, nil
}

func (p *Pass) mergeSingle(o *LayerOverride) *Layer {
	id := o.ID.String()
	e, ok := p.lookup(id)
	if !ok {
		p.diag.report(id, ErrUnknownLayer, "layer %s not found in catalog", id)
		l := Merge(nil, o)
		if l.Name == "" {
			l.Name = fmt.Sprintf("Layer %s not found", id)
			p.diag.report(id, ErrMissingName, "layer %s has no catalog entry and no name", id)
		}
		return l
	}
	return Merge(e, o)
}

// mergeGroup builds a GROUP layer whose children are the resolved entries.
func (p *Pass) mergeGroup(o *LayerOverride, entries []*CatalogEntry) *Layer {
	group := &CatalogEntry{
		ID:  strings.Join(o.ID.IDs(), "-"),
		Typ: TypeGroup,
	}
	var children []*Layer
	if len(o.Children) > 0 {
		for _, child := range o.Children {
			co := *child
			if co.MaxScale == nil {
				co.MaxScale = o.MaxScale
			}
			if co.MinScale == nil {
				co.MinScale = o.MinScale
			}
			var entry *CatalogEntry
			for _, e := range entries {
				if e.ID == child.ID.String() {
					entry = e
					break
				}
			}
			if entry == nil {
				entry, _ = p.lookup(child.ID.String())
			}
			if entry == nil {
				p.diag.report(child.ID.String(), ErrUnknownLayer,
					"child %s of group %s not found in catalog", child.ID, group.ID)
				continue
			}
			children = append(children, Merge(entry, &co))
		}
	} else {
		for _, e := range entries {
			c := layerFromEntry(e)
			if o.StyleID != "" {
				c.StyleID = o.StyleID
			}
			children = append(children, c)
		}
		group.MinScale, group.MaxScale = combineScales(o.MinScale, o.MaxScale, entries)
	}
	l := Merge(group, o)
	l.ID = group.ID
	l.Children = children
	return l
}

// combineScales returns the configured scales if set, else the smallest
// minScale and the largest maxScale of entries.
func combineScales(minScale, maxScale *float64, entries []*CatalogEntry) (*float64, *float64) {
	if minScale == nil {
		for _, e := range entries {
			if e.MinScale != nil && (minScale == nil || *e.MinScale < *minScale) {
				minScale = e.MinScale
			}
		}
	}
	if maxScale == nil {
		for _, e := range entries {
			if e.MaxScale != nil && (maxScale == nil || *e.MaxScale > *maxScale) {
				maxScale = e.MaxScale
			}
		}
	}
	return copyFloat(minScale), copyFloat(maxScale)
}

func floatPtr(f float64) *float64 {
	return &f
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	return floatPtr(*f)
}
