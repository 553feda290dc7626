// Package editor contains Datastar SSE handlers for the map editor UI.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-leaflet/internal/humastar"
	"github.com/joeblew999/plat-leaflet/internal/leaflet"
	"github.com/joeblew999/plat-leaflet/internal/metrics"
	"github.com/joeblew999/plat-leaflet/internal/service"
)

// PreviewHandler streams a rendered map for a preset and re-renders it
// whenever the preset changes.
type PreviewHandler struct {
	humastar.Handler
	presets *service.PresetService
	sources *service.SourceService
	maps    *service.MapService
	bus     *service.EventBus
}

func NewPreviewHandler(h humastar.Handler, presets *service.PresetService, sources *service.SourceService, maps *service.MapService, bus *service.EventBus) *PreviewHandler {
	return &PreviewHandler{Handler: h, presets: presets, sources: sources, maps: maps, bus: bus}
}

func (h *PreviewHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/maps/{id}/preview", h.Preview,
		huma.OperationTags("editor"),
	)
	huma.Post(api, "/api/v1/editor/maps/{id}/preview", h.Refresh,
		huma.OperationTags("editor"),
	)
}

type PreviewInput struct {
	ID      string `path:"id" doc:"Preset ID" example:"osm"`
	Sources string `query:"sources" doc:"Comma-separated GeoJSON source files to draw" example:"stations.geojson"`
	Watch   bool   `query:"watch" doc:"Keep the stream open and re-render on preset changes"`
}

func (h *PreviewHandler) Preview(ctx context.Context, input *PreviewInput) (*huma.StreamResponse, error) {
	return h.preview(ctx, input.ID, input.Sources, input.Watch, false)
}

// RefreshInput carries the editor's signals: sources (comma-separated file
// names) and watch.
type RefreshInput struct {
	ID string `path:"id" doc:"Preset ID" example:"osm"`
	humastar.SignalsInput
}

// Refresh drops the preview bound to the preset's current revision and
// draws it again from the sources in the posted signals.
func (h *PreviewHandler) Refresh(ctx context.Context, input *RefreshInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	return h.preview(ctx, input.ID, signals.String("sources"), signals.Bool("watch"), true)
}

func (h *PreviewHandler) preview(ctx context.Context, id, sources string, watch, fresh bool) (*huma.StreamResponse, error) {
	if _, err := h.presets.Get(id); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	records, err := h.loadSources(sources)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	return h.Stream(func(sse humastar.SSE) {
		container, ok := h.render(ctx, sse, id, records, fresh)
		if ok && fresh {
			sse.Success(fmt.Sprintf("Preview %s redrawn", container))
		}
		if !watch || h.bus == nil {
			return
		}

		metrics.ActiveStreams.Inc()
		defer metrics.ActiveStreams.Dec()
		ch := h.bus.Subscribe("presets")
		defer h.bus.Unsubscribe(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if ev.ID != id {
					continue
				}
				if ev.Action == "deleted" {
					sse.Error(fmt.Sprintf("Preset %q was deleted", id))
					return
				}
				h.render(ctx, sse, id, records, false)
			}
		}
	}), nil
}

// render binds each preset revision to its own container so an edit yields
// a new view instead of the one already bound.
func (h *PreviewHandler) render(ctx context.Context, sse humastar.SSE, id string, records []leaflet.GeometryRecord, fresh bool) (string, bool) {
	preset, err := h.presets.Get(id)
	if err != nil {
		sse.Error(err.Error())
		return "", false
	}
	container := fmt.Sprintf("preview-%s-%d", id, preset.UpdatedAt.UnixNano())
	if fresh {
		h.maps.Forget(ctx, container)
	}
	view, err := h.maps.Render(ctx, service.RenderInput{
		ContainerID: container,
		Spec:        &preset.Map,
		Records:     records,
	})
	if err != nil {
		sse.Error(err.Error())
		return "", false
	}
	html, err := h.Renderer.Render("preview", map[string]any{"Preset": preset, "View": view})
	if err != nil {
		slog.Error("rendering preview", "preset", id, "error", err)
		sse.Error("Failed to render preview")
		return "", false
	}
	sse.Replace(html, "#preview")
	sse.Signals(map[string]any{"previewMap": container})
	return container, true
}

func (h *PreviewHandler) loadSources(list string) ([]leaflet.GeometryRecord, error) {
	var records []leaflet.GeometryRecord
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		blob, err := h.sources.Load(name)
		if err != nil {
			return nil, err
		}
		blob.Label = name
		records = append(records, blob)
	}
	return records, nil
}
