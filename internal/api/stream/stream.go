// Package stream pushes layer tree changes to Datastar clients over SSE.
package stream

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-portal/internal/humastar"
	"github.com/joeblew999/plat-portal/internal/service"
	"github.com/joeblew999/plat-portal/internal/templates"
)

// treeSelector is the element the rendered subjects folder replaces.
const treeSelector = "#layer-tree"

// TreeHandler streams the layer tree as Datastar signals plus an HTML
// fragment of the subjects folder.
type TreeHandler struct {
	tree     *service.TreeService
	bus      *service.EventBus
	renderer *templates.Renderer
	logger   *slog.Logger
}

func NewTreeHandler(tree *service.TreeService, bus *service.EventBus, renderer *templates.Renderer, logger *slog.Logger) *TreeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeHandler{tree: tree, bus: bus, renderer: renderer, logger: logger}
}

func (h *TreeHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/stream/tree", h.Tree, huma.OperationTags("stream"))
	huma.Post(api, "/api/v1/stream/category", h.SelectCategory, huma.OperationTags("stream"))
}

// Tree sends the current tree and again after every rebuild until the
// client goes away.
func (h *TreeHandler) Tree(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		events := h.bus.Subscribe()
		defer h.bus.Unsubscribe(events)

		if !h.send(ctx, sse) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-sse.Context().Done():
				return
			case ev := <-events:
				if ev.Resource != service.ResourceTree {
					continue
				}
				if !h.send(ctx, sse) {
					return
				}
			}
		}
	}), nil
}

// SelectCategory switches the category named by the "category" signal and
// answers with the rebuilt tree.
func (h *TreeHandler) SelectCategory(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	key := signals.String("category")
	if key == "" {
		return nil, huma.Error400BadRequest("category signal is required")
	}

	return humastar.Stream(func(sse humastar.SSE) {
		res, err := h.tree.SelectCategory(ctx, key)
		if errors.Is(err, service.ErrUnknownCategory) {
			sse.Error(err.Error())
			return
		}
		if err != nil {
			h.logger.Error("selecting category", "category", key, "error", err)
			sse.Error("layer tree unavailable")
			return
		}
		h.push(sse, res)
	}), nil
}

// send pushes the current tree. It reports false once the stream is done.
func (h *TreeHandler) send(ctx context.Context, sse humastar.SSE) bool {
	res, err := h.tree.Tree(ctx)
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Error("building tree for stream", "error", err)
			sse.Error("layer tree unavailable")
		}
		return ctx.Err() == nil
	}
	return h.push(sse, res)
}

// push writes res as signals and, with a renderer, as the tree fragment.
func (h *TreeHandler) push(sse humastar.SSE, res *service.TreeResult) bool {
	if err := sse.Signals(treeSignals(res)); err != nil {
		h.logger.Debug("tree stream closed", "error", err)
		return false
	}
	if h.renderer == nil || res.Subjects == nil {
		return true
	}
	html, err := h.renderer.RenderTree(res.Subjects)
	if err != nil {
		h.logger.Error("rendering tree fragment", "error", err)
		return true
	}
	sse.Patch(html, treeSelector)
	return sse.Context().Err() == nil
}

func treeSignals(res *service.TreeResult) map[string]any {
	category := ""
	if res.Category != nil {
		category = res.Category.Key
	}
	return map[string]any{
		"tree":        res,
		"category":    category,
		"diagnostics": len(res.Diagnostics),
	}
}
