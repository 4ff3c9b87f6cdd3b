package layertree

// ResolveLayers merges and annotates configured layers in order. Grouped
// layers that cannot be merged are left out; the pass reports them.
func (p *Pass) ResolveLayers(overrides []*LayerOverride, showAllInTree bool) []*Layer {
	layers := make([]*Layer, 0, len(overrides))
	for _, o := range overrides {
		l, err := p.MergeLayer(o)
		if err != nil {
			continue
		}
		layers = append(layers, p.Annotate(l, showAllInTree))
	}
	return layers
}

// ResolveFolder resolves a configured folder structure into a folder tree
// with fresh ids.
func (p *Pass) ResolveFolder(cfg FolderConfig, showAllInTree bool) *Folder {
	f := p.resolveFolder(cfg, showAllInTree)
	assignIDs([]*Folder{f}, p.newID)
	return f
}

func (p *Pass) resolveFolder(cfg FolderConfig, showAllInTree bool) *Folder {
	f := &Folder{Name: cfg.Name, Elements: make([]Node, 0, len(cfg.Elements))}
	for _, el := range cfg.Elements {
		switch {
		case el.Folder != nil:
			f.Elements = append(f.Elements, p.resolveFolder(*el.Folder, showAllInTree))
		case el.Layer != nil:
			l, err := p.MergeLayer(el.Layer)
			if err != nil {
				continue
			}
			f.Elements = append(f.Elements, p.Annotate(l, showAllInTree))
		}
	}
	return f
}
