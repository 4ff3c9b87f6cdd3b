// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-portal/internal/humastar"
	"github.com/joeblew999/plat-portal/internal/layertree"
	"github.com/joeblew999/plat-portal/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Catalog   *service.CatalogService
	Overrides *service.OverrideService
	Tree      *service.TreeService
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Catalog layer id" example:"452"`
}

type CatalogListInput struct {
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Number of entries to skip"`
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Page size"`
}

type CatalogPageOutput struct {
	Body humastar.PageBody[*layertree.CatalogEntry]
}

type CatalogEntryOutput struct {
	Body *layertree.CatalogEntry
}

type CatalogInfoOutput struct {
	Body service.CatalogInfo
}

type CategoriesOutput struct {
	Body []service.Category
}

type TreeOutput struct {
	Body *service.TreeResult
}

type SelectCategoryInput struct {
	Body struct {
		Key string `json:"key" required:"true" minLength:"1" doc:"Category key" example:"kategorie_inspire"`
	}
}

type LayersBody struct {
	Layers      []*layertree.Layer       `json:"layers" doc:"Configured layers in configuration order"`
	Diagnostics []service.DiagnosticView `json:"diagnostics" doc:"Problems found while resolving"`
}

type DiagnosticsOutput struct {
	Body []service.DiagnosticView
}

// OverrideBody is an override with its edit and delete actions.
type OverrideBody struct {
	service.Override
}

var overrideActions = []humastar.ActionDef{
	{Rel: "edit", Pattern: "/api/v1/overrides/%s", Method: http.MethodPut, Title: "Change override"},
	{Rel: "delete", Pattern: "/api/v1/overrides/%s", Method: http.MethodDelete, Title: "Remove override"},
}

// Actions implements humastar.Actor.
func (b OverrideBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, overrideActions)
}

type OverrideOutput struct {
	Body OverrideBody
}

type OverridesOutput struct {
	Body []service.Override
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers the REST routes of svc on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterCatalog registers catalog routes.
func (h *APIHandler) RegisterCatalog(api huma.API) {
	huma.Get(api, "/api/v1/catalog", h.ListCatalog, huma.OperationTags("catalog"))
	huma.Get(api, "/api/v1/catalog/{id}", h.GetCatalogEntry, huma.OperationTags("catalog"))
	huma.Post(api, "/api/v1/catalog/reload", h.ReloadCatalog, huma.OperationTags("catalog"))
}

// RegisterTree registers layer tree routes.
func (h *APIHandler) RegisterTree(api huma.API) {
	huma.Get(api, "/api/v1/categories", h.GetCategories, huma.OperationTags("tree"))
	huma.Get(api, "/api/v1/tree", h.GetTree, huma.OperationTags("tree"))
	huma.Put(api, "/api/v1/tree/category", h.PutCategory, huma.OperationTags("tree"))
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("tree"))
	huma.Get(api, "/api/v1/diagnostics", h.GetDiagnostics, huma.OperationTags("tree"))
}

// RegisterOverrides registers override CRUD routes.
func (h *APIHandler) RegisterOverrides(api huma.API) {
	huma.Get(api, "/api/v1/overrides", h.ListOverrides, huma.OperationTags("overrides"))
	huma.Register(api, huma.Operation{
		OperationID:   "create-override",
		Method:        http.MethodPost,
		Path:          "/api/v1/overrides",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"overrides"},
	}, h.CreateOverride)
	huma.Get(api, "/api/v1/overrides/{id}", h.GetOverride, huma.OperationTags("overrides"))
	huma.Put(api, "/api/v1/overrides/{id}", h.PutOverride, huma.OperationTags("overrides"))
	huma.Delete(api, "/api/v1/overrides/{id}", h.DeleteOverride, huma.OperationTags("overrides"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) ListCatalog(ctx context.Context, input *CatalogListInput) (*CatalogPageOutput, error) {
	c, _ := h.svc.Catalog.Catalog()
	return &CatalogPageOutput{Body: humastar.Page(c.Entries(), input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetCatalogEntry(ctx context.Context, input *IDInput) (*CatalogEntryOutput, error) {
	c, _ := h.svc.Catalog.Catalog()
	e, ok := c.Entry(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("catalog entry not found")
	}
	return &CatalogEntryOutput{Body: e}, nil
}

func (h *APIHandler) ReloadCatalog(ctx context.Context, input *struct{}) (*CatalogInfoOutput, error) {
	info, err := h.svc.Catalog.Reload(ctx)
	if err != nil {
		return nil, huma.Error502BadGateway("catalog reload failed", err)
	}
	return &CatalogInfoOutput{Body: info}, nil
}

func (h *APIHandler) GetCategories(ctx context.Context, input *struct{}) (*CategoriesOutput, error) {
	return &CategoriesOutput{Body: h.svc.Tree.Categories()}, nil
}

func (h *APIHandler) GetTree(ctx context.Context, input *struct{}) (*TreeOutput, error) {
	res, err := h.svc.Tree.Tree(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &TreeOutput{Body: res}, nil
}

func (h *APIHandler) PutCategory(ctx context.Context, input *SelectCategoryInput) (*TreeOutput, error) {
	res, err := h.svc.Tree.SelectCategory(ctx, input.Body.Key)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &TreeOutput{Body: res}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body LayersBody }, error) {
	layers, diags, err := h.svc.Tree.Layers(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &struct{ Body LayersBody }{Body: LayersBody{Layers: layers, Diagnostics: diags}}, nil
}

func (h *APIHandler) GetDiagnostics(ctx context.Context, input *struct{}) (*DiagnosticsOutput, error) {
	return &DiagnosticsOutput{Body: h.svc.Tree.Diagnostics()}, nil
}

func (h *APIHandler) ListOverrides(ctx context.Context, input *struct{}) (*OverridesOutput, error) {
	return &OverridesOutput{Body: h.svc.Overrides.List()}, nil
}

func (h *APIHandler) CreateOverride(ctx context.Context, input *struct{ Body service.Override }) (*OverrideOutput, error) {
	created, err := h.svc.Overrides.Create(input.Body)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &OverrideOutput{Body: OverrideBody{created}}, nil
}

func (h *APIHandler) GetOverride(ctx context.Context, input *IDInput) (*OverrideOutput, error) {
	o, ok := h.svc.Overrides.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("override not found")
	}
	return &OverrideOutput{Body: OverrideBody{o}}, nil
}

func (h *APIHandler) PutOverride(ctx context.Context, input *struct {
	IDInput
	Body service.Override
}) (*OverrideOutput, error) {
	updated, err := h.svc.Overrides.Update(input.ID, input.Body)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &OverrideOutput{Body: OverrideBody{updated}}, nil
}

func (h *APIHandler) DeleteOverride(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Overrides.Delete(input.ID); err != nil {
		return nil, toHumaError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Override deleted"}}, nil
}

// toHumaError maps service errors to HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrUnknownCategory):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}
