package editor

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-leaflet/internal/humastar"
)

// TemplateHandler lets the editor pick up edited fragment templates without
// a restart.
type TemplateHandler struct {
	humastar.Handler
}

func NewTemplateHandler(h humastar.Handler) *TemplateHandler {
	return &TemplateHandler{Handler: h}
}

func (h *TemplateHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/editor/templates/reload", h.Reload,
		huma.OperationTags("editor"),
	)
}

func (h *TemplateHandler) Reload(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if err := h.Renderer.Reload(); err != nil {
			slog.Warn("reloading templates", "error", err)
			sse.Error("Templates not reloaded: " + err.Error())
			return
		}
		sse.Success("Templates reloaded")
	}), nil
}
