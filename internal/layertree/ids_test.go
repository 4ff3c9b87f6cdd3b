package layertree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *Folder {
	return &Folder{Name: "Fachdaten", Elements: []Node{
		&Layer{ID: "1", Name: "One"},
		&Folder{Name: "A", Elements: []Node{
			&Layer{ID: "2", Name: "Two"},
			&Folder{Name: "B", Elements: []Node{&Layer{ID: "3", Name: "Three"}}},
		}},
	}}
}

func collectFolderIDs(f *Folder) []string {
	ids := []string{f.ID}
	Walk(f, func(n Node) {
		if sub, ok := n.(*Folder); ok {
			ids = append(ids, sub.ID)
		}
	})
	return ids
}

func checkParents(t *testing.T, f *Folder) {
	t.Helper()
	for _, el := range f.Elements {
		assert.Equal(t, f.ID, el.Parent(), "parent of %s", el.Label())
		if sub, ok := el.(*Folder); ok {
			checkParents(t, sub)
		}
	}
}

func TestAssignIDs(t *testing.T) {
	f := sampleTree()
	other := sampleTree()

	AssignIDs([]*Folder{f, other})

	ids := append(collectFolderIDs(f), collectFolderIDs(other)...)
	require.Len(t, ids, 6)
	seen := map[string]bool{}
	for _, id := range ids {
		assert.True(t, strings.HasPrefix(id, FolderIDPrefix), id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	checkParents(t, f)
	checkParents(t, other)
}

func TestAssignIDs_Reassign(t *testing.T) {
	f := sampleTree()
	AssignIDs([]*Folder{f})
	before := collectFolderIDs(f)
	shape := names(flattenNodes(f))

	AssignIDs([]*Folder{f})

	after := collectFolderIDs(f)
	for _, id := range after {
		assert.NotContains(t, before, id)
	}
	assert.Equal(t, shape, names(flattenNodes(f)))
	checkParents(t, f)
}

func TestFlattenLayers(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, layerIDs(FlattenLayers(sampleTree().Elements)))
	assert.Empty(t, FlattenLayers(nil))
}

// flattenNodes lists every node below f in walk order.
func flattenNodes(f *Folder) []Node {
	var nodes []Node
	Walk(f, func(n Node) { nodes = append(nodes, n) })
	return nodes
}
