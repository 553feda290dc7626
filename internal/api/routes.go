// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-leaflet/internal/service"
	"github.com/joeblew999/plat-leaflet/internal/templates"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Presets  *service.PresetService
	Sources  *service.SourceService
	Maps     *service.MapService
	DB       *sql.DB
	Renderer *templates.Renderer
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Preset ID" example:"osm"`
}

type PresetOutput struct {
	Body service.MapPreset
}

type PresetsOutput struct {
	Body []service.MapPreset
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type CreatedPresetBody struct {
	ID      string            `json:"id" doc:"Generated preset ID"`
	Preset  service.MapPreset `json:"preset" doc:"Created preset"`
	Message string            `json:"message" doc:"Result message"`
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

// RegisterRoutes registers every REST route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
	NewInfoHandler(svc).RegisterRoutes(api)
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterPresets registers preset CRUD routes.
func (h *APIHandler) RegisterPresets(api huma.API) {
	huma.Get(api, "/api/v1/presets", h.GetPresets, huma.OperationTags("presets"))
	huma.Post(api, "/api/v1/presets", h.CreatePreset, huma.OperationTags("presets"))
	huma.Get(api, "/api/v1/presets/{id}", h.GetPreset, huma.OperationTags("presets"))
	huma.Put(api, "/api/v1/presets/{id}", h.PutPreset, huma.OperationTags("presets"))
	huma.Delete(api, "/api/v1/presets/{id}", h.DeletePreset, huma.OperationTags("presets"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetPresets(ctx context.Context, input *struct{}) (*PresetsOutput, error) {
	if h.svc == nil || h.svc.Presets == nil {
		return &PresetsOutput{Body: []service.MapPreset{}}, nil
	}
	return &PresetsOutput{Body: h.svc.Presets.List()}, nil
}

func (h *APIHandler) CreatePreset(ctx context.Context, input *struct{ Body service.MapPreset }) (*struct{ Body CreatedPresetBody }, error) {
	if h.svc == nil || h.svc.Presets == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	created, err := h.svc.Presets.Create(input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body CreatedPresetBody }{Body: CreatedPresetBody{
		ID: created.ID, Preset: created, Message: "Preset created",
	}}, nil
}

func (h *APIHandler) GetPreset(ctx context.Context, input *IDInput) (*PresetOutput, error) {
	if h.svc == nil || h.svc.Presets == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	p, err := h.svc.Presets.Get(input.ID)
	if err != nil {
		return nil, presetError(err)
	}
	return &PresetOutput{Body: p}, nil
}

func (h *APIHandler) PutPreset(ctx context.Context, input *struct {
	IDInput
	Body service.MapPreset
}) (*PresetOutput, error) {
	if h.svc == nil || h.svc.Presets == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	updated, err := h.svc.Presets.Update(input.ID, input.Body)
	if err != nil {
		return nil, presetError(err)
	}
	return &PresetOutput{Body: updated}, nil
}

func (h *APIHandler) DeletePreset(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Presets == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	if err := h.svc.Presets.Delete(input.ID); err != nil {
		return nil, presetError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Preset deleted"}}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Sources == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Sources.List()
	if err != nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

// presetError maps service errors to HTTP errors.
func presetError(err error) error {
	if service.IsNotFound(err) {
		return huma.Error404NotFound(err.Error())
	}
	return huma.Error500InternalServerError("preset operation failed", err)
}
