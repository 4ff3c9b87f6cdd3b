package layertree

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultValidLayerTypes are the layer types of the auto tree.
var DefaultValidLayerTypes = []string{"WMS", "SENSORTHINGS", "TERRAIN3D", "TILESET3D", "OBLIQUE"}

// AutoTreeConfig selects and combines catalog entries for the auto tree.
type AutoTreeConfig struct {
	ValidLayerTypes  []string
	LayerIDsToIgnore []string
	MetaIDsToIgnore  []string
	MetaIDsToMerge   []string
	LayerIDsToStyle  []StyleOverride
}

// ResolveAutoCatalog scans the whole catalog and returns the layers of the
// auto tree.
//
// Entries of other types, without datasets, or on an ignore list are
// dropped. Entries whose metadata id is to be merged are combined into one
// layer per metadata id, styled entries expand to one layer per style, and
// entries with several datasets split into one layer per dataset. WMS
// layers listed by a sensor layer as related are removed.
func (p *Pass) ResolveAutoCatalog(cfg AutoTreeConfig, showAddButton bool) []*Layer {
	validTypes := cfg.ValidLayerTypes
	if len(validTypes) == 0 {
		validTypes = DefaultValidLayerTypes
	}

	var (
		result  []*Layer
		related = make(map[string]bool)
		buffers = newMetadataBuffers()
	)
	for _, entry := range p.catalogEntries() {
		l := p.Annotate(Merge(entry, nil), !showAddButton)

		if !slices.Contains(validTypes, l.Typ) || len(l.Datasets) == 0 ||
			slices.Contains(cfg.LayerIDsToIgnore, l.ID) ||
			slices.Contains(cfg.MetaIDsToIgnore, l.Datasets[0].MdID) {
			continue
		}
		if mdID := l.Datasets[0].MdID; slices.Contains(cfg.MetaIDsToMerge, mdID) {
			buffers.add(mdID, l)
			continue
		}
		if i := slices.IndexFunc(cfg.LayerIDsToStyle, func(s StyleOverride) bool { return s.ID == l.ID }); i >= 0 {
			result = p.expandStyles(cfg.LayerIDsToStyle[i], l, result)
			continue
		}
		if l.Typ == TypeSensorThings {
			for _, id := range l.RelatedWMSLayers {
				related[id] = true
			}
		}
		if len(l.Datasets) > 1 {
			for i, ds := range l.Datasets {
				c := l.Clone()
				c.ID = fmt.Sprintf("%s_%d", l.ID, i)
				c.Datasets = []Dataset{ds}
				result = append(result, c)
			}
			continue
		}
		result = append(result, l)
	}

	result = append(result, consolidateByMetadataID(buffers)...)
	if len(related) > 0 {
		result = slices.DeleteFunc(result, func(l *Layer) bool { return related[l.ID] })
	}
	return result
}

func (p *Pass) catalogEntries() []*CatalogEntry {
	if p.catalog == nil {
		return nil
	}
	return p.catalog.Entries()
}

// expandStyles applies the style override s to l and appends the result to
// out: one layer per style for a WMS layer with several styles, l itself
// otherwise. If the parallel name or legend lists are shorter than the
// style list, the expansion is cut to the shortest list.
func (p *Pass) expandStyles(s StyleOverride, l *Layer, out []*Layer) []*Layer {
	merged := l.Clone()
	if s.Styles != nil {
		merged.Styles = slices.Clone(s.Styles)
	}
	if len(s.Styles) <= 1 || merged.Typ != TypeWMS {
		if len(s.Styles) == 1 {
			merged.Style = s.Styles[0]
		}
		if len(s.Names) > 0 {
			merged.Name = s.Names[0]
		}
		if len(s.LegendURLs) > 0 {
			merged.LegendURL = s.LegendURLs[0]
		}
		return append(out, merged)
	}

	n := len(s.Styles)
	if len(s.Names) > 0 && len(s.Names) < n {
		n = len(s.Names)
	}
	if len(s.LegendURLs) > 0 && len(s.LegendURLs) < n {
		n = len(s.LegendURLs)
	}
	if n < len(s.Styles) {
		p.diag.report(l.ID, ErrStyleIndexMismatch,
			"layer %s: %d styles, %d names, %d legends; using the first %d",
			l.ID, len(s.Styles), len(s.Names), len(s.LegendURLs), n)
	}
	for i, style := range s.Styles[:n] {
		c := merged.Clone()
		c.ID = l.ID + style
		c.Style = style
		c.Styles = []string{style}
		if len(s.Names) > 0 {
			c.Name = s.Names[i]
		}
		if len(s.LegendURLs) > 0 {
			c.LegendURL = s.LegendURLs[i]
		}
		out = append(out, c)
	}
	return out
}

// metadataBuffers groups layers by metadata id in first-seen order.
type metadataBuffers struct {
	order  []string
	layers map[string][]*Layer
}

func newMetadataBuffers() *metadataBuffers {
	return &metadataBuffers{layers: make(map[string][]*Layer)}
}

func (b *metadataBuffers) add(mdID string, l *Layer) {
	if _, ok := b.layers[mdID]; !ok {
		b.order = append(b.order, mdID)
	}
	b.layers[mdID] = append(b.layers[mdID], l)
}

// consolidateByMetadataID merges every buffer into one layer. The first
// layer seeds the result and is named after its dataset; the layers
// selectors are joined and the scale range widened to cover all of them.
func consolidateByMetadataID(b *metadataBuffers) []*Layer {
	merged := make([]*Layer, 0, len(b.order))
	for _, mdID := range b.order {
		layers := b.layers[mdID]
		m := layers[0].Clone()
		if ds, ok := m.Dataset(); ok {
			m.Name = ds.MdName
		}
		for _, l := range layers {
			if !isGFIIgnore(l.GFIAttributes) {
				m.GFIAttributes = l.GFIAttributes
				break
			}
		}
		selectors := make([]string, len(layers))
		for i, l := range layers {
			selectors[i] = l.Layers
			if l.MaxScale != nil && (m.MaxScale == nil || *l.MaxScale > *m.MaxScale) {
				m.MaxScale = floatPtr(*l.MaxScale)
			}
			if l.MinScale != nil && (m.MinScale == nil || *l.MinScale < *m.MinScale) {
				m.MinScale = floatPtr(*l.MinScale)
			}
		}
		m.Layers = strings.Join(selectors, ",")
		merged = append(merged, m)
	}
	return merged
}

func isGFIIgnore(v any) bool {
	s, ok := v.(string)
	return ok && s == GFIIgnore
}
