package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-portal/internal/db"
	"github.com/joeblew999/plat-portal/internal/service"
)

type InfoHandler struct {
	dataDir  string
	treeType string
	catalog  *service.CatalogService
}

func NewInfoHandler(dataDir, treeType string, catalog *service.CatalogService) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, treeType: treeType, catalog: catalog}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string              `json:"name" doc:"Service name"`
	Version  string              `json:"version" doc:"Service version"`
	DataDir  string              `json:"data_dir" doc:"Data directory path"`
	TreeType string              `json:"tree_type" doc:"Layer tree type" enum:"auto,custom"`
	Catalog  service.CatalogInfo `json:"catalog" doc:"Loaded catalog"`
	Types    []db.TypeCount      `json:"types" doc:"Stored catalog entries per layer type"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	types, err := h.catalog.TypeCounts(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("reading catalog snapshot", err)
	}
	if types == nil {
		types = []db.TypeCount{}
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-portal",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		TreeType: h.treeType,
		Catalog:  h.catalog.Info(),
		Types:    types,
	}}, nil
}
