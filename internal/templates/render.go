// Package templates renders HTML fragments for Datastar SSE responses.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"sync"

	"github.com/joeblew999/plat-portal/internal/layertree"
)

//go:embed fragments/*.html
var fragments embed.FS

// funcMap lets fragments tell tree nodes apart.
var funcMap = template.FuncMap{
	"folder": func(n layertree.Node) *layertree.Folder {
		f, _ := n.(*layertree.Folder)
		return f
	},
	"layer": func(n layertree.Node) *layertree.Layer {
		l, _ := n.(*layertree.Layer)
		return l
	},
	"shown": func(l *layertree.Layer) bool {
		return l.ShowInLayerTree == nil || *l.ShowInLayerTree
	},
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New parses the embedded fragment templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fragments, "fragments/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTree renders f as nested lists. Layers switched off for the tree
// are left out.
func (r *Renderer) RenderTree(f *layertree.Folder) (string, error) {
	return r.Render("layer-tree", f)
}
