package editor

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-leaflet/internal/humastar"
	"github.com/joeblew999/plat-leaflet/internal/metrics"
	"github.com/joeblew999/plat-leaflet/internal/service"
)

// EventHandler streams preset change events to the Datastar UI via SSE.
type EventHandler struct {
	humastar.Handler
	presets *service.PresetService
	bus     *service.EventBus
}

func NewEventHandler(h humastar.Handler, presets *service.PresetService, bus *service.EventBus) *EventHandler {
	return &EventHandler{Handler: h, presets: presets, bus: bus}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/events", h.Events,
		huma.OperationTags("editor"),
	)
}

func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		metrics.ActiveStreams.Inc()
		defer metrics.ActiveStreams.Dec()

		ch := h.bus.Subscribe("presets")
		defer h.bus.Unsubscribe(ch)

		h.patchList(sse)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				h.patchList(sse)
				sse.DispatchCustomEvent("resource-changed", map[string]any{
					"resource": ev.Resource,
					"action":   ev.Action,
					"id":       ev.ID,
				})
			}
		}
	}), nil
}

func (h *EventHandler) patchList(sse humastar.SSE) {
	html, err := h.Renderer.Render("preset-list", h.presets.List())
	if err != nil {
		slog.Error("rendering preset list", "error", err)
		return
	}
	sse.Patch(html, "#preset-list")
}
