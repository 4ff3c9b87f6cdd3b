package layertree

import (
	"cmp"
	"slices"
)

// LayerConfig holds the folder structures a tree is built around: the
// baselayer folder, whose layers never take part in category grouping, and
// the subject folder of a previous configuration or resolution.
type LayerConfig struct {
	Baselayer *Folder
	Subjects  *Folder
}

// Tree is the result of BuildTree.
type Tree struct {
	// Root holds the retained subject elements and one folder per category
	// value, sorted by name.
	Root *Folder
	// Subjects are the elements of the previous subject folder that keep
	// their place, i.e. the 3D layers. Root holds them as well.
	Subjects []Node

	newID func() string
}

// SubjectFolder returns a folder named name holding copies of the root
// elements.
func (t *Tree) SubjectFolder(name string) *Folder {
	newID := t.newID
	if newID == nil {
		newID = NewFolderID
	}
	f := &Folder{ID: newID(), Name: name, Elements: cloneNodes(t.Root.Elements)}
	for _, el := range f.Elements {
		el.setParent(f.ID)
	}
	return f
}

// cloneNode copies n and, for folders, everything below it.
func cloneNode(n Node) Node {
	switch n := n.(type) {
	case *Layer:
		return n.Clone()
	case *Folder:
		c := *n
		c.Elements = cloneNodes(n.Elements)
		return &c
	}
	return n
}

func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = cloneNode(n)
	}
	return out
}

// PruneLayers returns a copy of the folder structure nodes in which every
// layer is replaced by what keep returns for it. Layers keep rejects are
// left out, and so are folders left without elements.
func PruneLayers(nodes []Node, keep func(*Layer) (*Layer, bool)) []Node {
	var out []Node
	for _, n := range nodes {
		switch n := n.(type) {
		case *Layer:
			if l, ok := keep(n); ok {
				out = append(out, l)
			}
		case *Folder:
			if elements := PruneLayers(n.Elements, keep); len(elements) > 0 {
				c := *n
				c.Elements = elements
				out = append(out, &c)
			}
		}
	}
	return out
}

// BuildTree groups layers into category folders.
//
// Each layer goes into the folder of every value of its first dataset's
// category field; empty values go to the "no category" folder and layers
// without the field are left out. Inside a category folder the first layer
// of a metadata name is attached directly and named after it; once a second
// layer of that name arrives both move into a subfolder of that name.
//
// Layers of the baselayer folder are never grouped. Layers of the subject
// folder are handled by their dimension: 3D layers keep their place, 2D
// layers are grouped again whenever the category changed or the subject
// folder mixes 2D and 3D layers.
//
// Retained elements share the root with the category folders; a category
// folder of the same name as a retained folder is that folder. Shown overrides apply to
// retained and grouped layers alike.
//
// Without a category copies of the layers are returned as root elements.
// Neither the input layers nor the subject folder are modified.
func (p *Pass) BuildTree(layers []*Layer, lc LayerConfig, category *CategorySpec, shown []*LayerOverride, categoryChanged bool) *Tree {
	if category == nil {
		root := &Folder{Elements: make([]Node, len(layers))}
		for i, l := range layers {
			root.Elements[i] = l.Clone()
		}
		return &Tree{Root: root, newID: p.newID}
	}

	baselayerIDs := make(map[string]bool)
	if lc.Baselayer != nil {
		for _, l := range FlattenLayers(lc.Baselayer.Elements) {
			baselayerIDs[l.ID] = true
		}
	}

	working := layers
	placed := make(map[string]bool)
	var retained []Node
	if lc.Subjects != nil {
		all := FlattenLayers(lc.Subjects.Elements)
		var layers3D []Node
		for _, l := range all {
			if l.Is3DLayer {
				layers3D = append(layers3D, l)
			}
		}
		switch {
		case categoryChanged:
			retained = layers3D
		case len(layers3D) == len(all):
			retained = slices.Clone(lc.Subjects.Elements)
		case len(layers3D) > 0:
			working = slices.Clone(layers)
			retained = recategorize(lc.Subjects.Elements, working)
		}
		for _, l := range FlattenLayers(retained) {
			placed[l.ID] = true
		}
	}

	shownByID := make(map[string]*LayerOverride, len(shown))
	for _, o := range shown {
		if !o.ID.IsList() {
			shownByID[o.ID.String()] = o
		}
	}
	retained = PruneLayers(retained, func(l *Layer) (*Layer, bool) {
		l = l.Clone()
		if o, ok := shownByID[l.ID]; ok {
			applyOverride(l, o)
		}
		return l, true
	})

	b := newTreeBuilder(p.newID)
	b.seed(retained)
	for _, l := range working {
		if baselayerIDs[l.ID] || placed[l.ID] {
			continue
		}
		ds, ok := l.Dataset()
		if !ok {
			continue
		}
		value := ds.CategoryValue(category.Key)
		if !value.Present {
			continue
		}
		values := value.Values
		if value.Empty() {
			values = []string{p.noCategory}
		}
		if o, ok := shownByID[l.ID]; ok {
			l = l.Clone()
			applyOverride(l, o)
		}
		for _, v := range values {
			b.add(v, ds.MdName, l)
		}
	}
	return &Tree{Root: b.root, Subjects: retained, newID: p.newID}
}

// recategorize walks a mixed 2D/3D subject structure. Folders holding only
// 3D layers and single 3D layers are returned to be kept. 2D layers found in
// working replace their entry there so they are grouped again with their
// previous settings; 2D layers missing from working are dropped.
func recategorize(elements []Node, working []*Layer) []Node {
	var keep []Node
	for _, el := range elements {
		switch n := el.(type) {
		case *Folder:
			layers := FlattenLayers(n.Elements)
			if len(layers) > 0 && !slices.ContainsFunc(layers, func(l *Layer) bool { return !l.Is3DLayer }) {
				keep = append(keep, n)
				continue
			}
			keep = append(keep, recategorize(n.Elements, working)...)
		case *Layer:
			if n.Is3DLayer {
				keep = append(keep, n)
				continue
			}
			if i := slices.IndexFunc(working, func(l *Layer) bool { return l.ID == n.ID }); i >= 0 {
				working[i] = overlay(working[i], n)
			}
		}
	}
	return keep
}

// groupState tracks the layers of one metadata name in one category folder.
type groupState int

const (
	unseen groupState = iota
	attachedDirect
	promotedToSubfolder
)

type groupKey struct {
	category string
	mdName   string
}

type mdGroup struct {
	state groupState
	// first is the layer attached directly to the category folder and
	// firstName its name before it was renamed to the metadata name.
	first     *Layer
	firstName string
	folder    *Folder
}

// treeBuilder assembles the category folders of one BuildTree call.
type treeBuilder struct {
	root       *Folder
	categories map[string]*Folder
	groups     map[groupKey]*mdGroup
	newID      func() string
}

func newTreeBuilder(newID func() string) *treeBuilder {
	return &treeBuilder{
		root:       &Folder{Elements: []Node{}},
		categories: make(map[string]*Folder),
		groups:     make(map[groupKey]*mdGroup),
		newID:      newID,
	}
}

// seed places retained elements at the root. Retained folders serve as the
// category folders of their names.
func (b *treeBuilder) seed(elements []Node) {
	for _, el := range elements {
		if f, ok := el.(*Folder); ok {
			b.adopt(f)
			if _, exists := b.categories[f.Name]; !exists {
				b.categories[f.Name] = f
			}
		}
		b.root.Elements = append(b.root.Elements, el)
	}
	sortElements(b.root.Elements)
}

// adopt points every element below f at its enclosing folder, giving
// folders without an id a fresh one.
func (b *treeBuilder) adopt(f *Folder) {
	if f.ID == "" {
		f.ID = b.newID()
	}
	for _, el := range f.Elements {
		el.setParent(f.ID)
		if sub, ok := el.(*Folder); ok {
			b.adopt(sub)
		}
	}
}

// add puts a copy of l into the category folder named category.
func (b *treeBuilder) add(category, mdName string, l *Layer) {
	cat := b.categoryFolder(category)
	layer := l.Clone()
	if mdName == "" {
		attach(cat, layer)
		return
	}
	key := groupKey{category: category, mdName: mdName}
	switch b.state(key) {
	case unseen:
		b.recordFirstOccurrence(key, layer)
		layer.Name = mdName
		attach(cat, layer)
	case attachedDirect:
		g := b.promote(key, cat)
		attach(g.folder, layer)
	case promotedToSubfolder:
		attach(b.groups[key].folder, layer)
	}
}

func (b *treeBuilder) state(key groupKey) groupState {
	if g, ok := b.groups[key]; ok {
		return g.state
	}
	return unseen
}

// recordFirstOccurrence registers l as the first layer of key and reports
// whether it was the first.
func (b *treeBuilder) recordFirstOccurrence(key groupKey, l *Layer) bool {
	if _, ok := b.groups[key]; ok {
		return false
	}
	b.groups[key] = &mdGroup{state: attachedDirect, first: l, firstName: l.Name}
	return true
}

// promote moves the directly attached layer of key into a new subfolder
// named after the metadata name.
func (b *treeBuilder) promote(key groupKey, cat *Folder) *mdGroup {
	g := b.groups[key]
	sub := &Folder{ID: b.newID(), Name: key.mdName}
	cat.Elements = slices.DeleteFunc(cat.Elements, func(n Node) bool { return n == Node(g.first) })
	g.first.Name = g.firstName
	attach(sub, g.first)
	attach(cat, sub)
	g.folder = sub
	g.state = promotedToSubfolder
	return g
}

// categoryFolder returns the root folder named name, creating it if needed.
func (b *treeBuilder) categoryFolder(name string) *Folder {
	if f, ok := b.categories[name]; ok {
		return f
	}
	f := &Folder{ID: b.newID(), Name: name}
	b.categories[name] = f
	b.root.Elements = append(b.root.Elements, f)
	sortElements(b.root.Elements)
	return f
}

func attach(f *Folder, n Node) {
	n.setParent(f.ID)
	f.Elements = append(f.Elements, n)
	sortElements(f.Elements)
}

func sortElements(elements []Node) {
	slices.SortStableFunc(elements, func(a, b Node) int {
		return cmp.Compare(a.Label(), b.Label())
	})
}
