package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-leaflet/internal/db"
	"github.com/joeblew999/plat-leaflet/internal/leaflet"
	"github.com/joeblew999/plat-leaflet/internal/service"
)

// RenderBody selects a preset (or an inline spec) and the records to draw.
type RenderBody struct {
	ContainerID string             `json:"containerId" minLength:"1" maxLength:"200" doc:"DOM id of the map container" example:"leaflet-map-1"`
	Preset      string             `json:"preset,omitempty" doc:"Preset ID; the default preset when empty" example:"osm"`
	Spec        *leaflet.MapSpec   `json:"spec,omitempty" doc:"Inline map spec, used instead of a preset"`
	Records     leaflet.RecordList `json:"records,omitempty"`
	Sources     []string           `json:"sources,omitempty" doc:"GeoJSON source files appended as records" example:"[\"stations.geojson\"]"`
}

type QueryBody struct {
	ContainerID string           `json:"containerId" minLength:"1" maxLength:"200" doc:"DOM id of the map container"`
	Preset      string           `json:"preset,omitempty" doc:"Preset ID; the default preset when empty"`
	Spec        *leaflet.MapSpec `json:"spec,omitempty" doc:"Inline map spec, used instead of a preset"`
	Query       string           `json:"query" minLength:"1" doc:"SQL returning a geojson column and optional id, popup, label columns" example:"SELECT ST_AsGeoJSON(geom) AS geojson, name AS label FROM stations"`
}

type MapOutput struct {
	Body *leaflet.MapView
}

type HTMLOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type TileInput struct {
	ID  string `path:"id" doc:"Preset ID" example:"osm"`
	Key string `path:"key" doc:"Layer key" example:"earth"`
	Z   uint32 `query:"z" maximum:"30" doc:"Zoom"`
	X   uint32 `query:"x" doc:"Tile column"`
	Y   uint32 `query:"y" doc:"Tile row, XYZ origin"`
}

type TileURLBody struct {
	URL string `json:"url" doc:"Substituted tile URL"`
}

// RegisterMaps registers the render routes.
func (h *APIHandler) RegisterMaps(api huma.API) {
	huma.Post(api, "/api/v1/maps", h.RenderMap, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps/html", h.RenderMapHTML, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps/query", h.QueryMap, huma.OperationTags("maps"))
}

// RegisterTiles registers the tile URL resolver.
func (h *APIHandler) RegisterTiles(api huma.API) {
	huma.Get(api, "/api/v1/presets/{id}/layers/{key}/tile", h.GetTileURL, huma.OperationTags("presets"))
}

func (h *APIHandler) RenderMap(ctx context.Context, input *struct{ Body RenderBody }) (*MapOutput, error) {
	view, err := h.render(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &MapOutput{Body: view}, nil
}

func (h *APIHandler) RenderMapHTML(ctx context.Context, input *struct{ Body RenderBody }) (*HTMLOutput, error) {
	view, err := h.render(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	if h.svc.Renderer == nil {
		return nil, huma.Error503ServiceUnavailable("templates not available")
	}
	html, err := h.svc.Renderer.Map(view)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to render map", err)
	}
	return &HTMLOutput{ContentType: "text/html; charset=utf-8", Body: []byte(html)}, nil
}

func (h *APIHandler) QueryMap(ctx context.Context, input *struct{ Body QueryBody }) (*MapOutput, error) {
	if h.svc == nil || h.svc.Maps == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	if h.svc.DB == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	records, err := db.FeatureQuery(ctx, h.svc.DB, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	view, err := h.svc.Maps.Render(ctx, service.RenderInput{
		ContainerID: input.Body.ContainerID,
		PresetID:    input.Body.Preset,
		Spec:        input.Body.Spec,
		Records:     records,
	})
	if err != nil {
		return nil, renderError(err)
	}
	return &MapOutput{Body: view}, nil
}

func (h *APIHandler) GetTileURL(ctx context.Context, input *TileInput) (*struct{ Body TileURLBody }, error) {
	if h.svc == nil || h.svc.Presets == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	p, err := h.svc.Presets.Get(input.ID)
	if err != nil {
		return nil, presetError(err)
	}
	if _, ok := p.Map.Layers.Get(input.Key); !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("layer %q not found in preset %q", input.Key, input.ID))
	}
	if n := uint32(1) << input.Z; input.X >= n || input.Y >= n {
		return nil, huma.Error400BadRequest(fmt.Sprintf("tile %d/%d/%d out of range", input.Z, input.X, input.Y))
	}

	layers, _ := leaflet.Materialize(p.Map.Layers, leaflet.FirstWins)
	for _, l := range layers {
		if l.Key == input.Key {
			t := maptile.New(input.X, input.Y, maptile.Zoom(input.Z))
			return &struct{ Body TileURLBody }{Body: TileURLBody{URL: l.TileURL(t)}}, nil
		}
	}
	return nil, huma.Error404NotFound("layer not found")
}

func (h *APIHandler) render(ctx context.Context, body RenderBody) (*leaflet.MapView, error) {
	if h.svc == nil || h.svc.Maps == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	records := []leaflet.GeometryRecord(body.Records)
	for _, name := range body.Sources {
		if h.svc.Sources == nil {
			return nil, huma.Error503ServiceUnavailable("sources not available")
		}
		blob, err := h.svc.Sources.Load(name)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		records = append(records, blob)
	}

	view, err := h.svc.Maps.Render(ctx, service.RenderInput{
		ContainerID: body.ContainerID,
		PresetID:    body.Preset,
		Spec:        body.Spec,
		Records:     records,
	})
	if err != nil {
		return nil, renderError(err)
	}
	return view, nil
}

func renderError(err error) error {
	switch {
	case service.IsNotFound(err):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, leaflet.ErrNoContainer):
		return huma.Error400BadRequest(err.Error())
	}
	return huma.Error500InternalServerError("Failed to render map", err)
}
