package layertree

import "github.com/google/uuid"

// FolderIDPrefix prefixes every generated folder id.
const FolderIDPrefix = "folder-"

// NewFolderID returns a fresh, process-wide unique folder id.
func NewFolderID() string {
	return FolderIDPrefix + uuid.NewString()
}

// AssignIDs gives every folder in the given subtrees a fresh id and points
// the parentId of every element at its enclosing folder.
func AssignIDs(folders []*Folder) {
	assignIDs(folders, NewFolderID)
}

func assignIDs(folders []*Folder, newID func() string) {
	for _, f := range folders {
		f.ID = newID()
		assignChildIDs(f, newID)
	}
}

func assignChildIDs(f *Folder, newID func() string) {
	for _, el := range f.Elements {
		el.setParent(f.ID)
		if sub, ok := el.(*Folder); ok {
			sub.ID = newID()
			assignChildIDs(sub, newID)
		}
	}
}

// Walk calls fn for every node below f, depth first, in element order.
func Walk(f *Folder, fn func(Node)) {
	for _, el := range f.Elements {
		fn(el)
		if sub, ok := el.(*Folder); ok {
			Walk(sub, fn)
		}
	}
}

// FlattenLayers returns all layers below the given nodes, depth first.
func FlattenLayers(nodes []Node) []*Layer {
	var layers []*Layer
	for _, n := range nodes {
		switch n := n.(type) {
		case *Layer:
			layers = append(layers, n)
		case *Folder:
			layers = append(layers, FlattenLayers(n.Elements)...)
		}
	}
	return layers
}
