package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	svc *Services
}

func NewInfoHandler(svc *Services) *InfoHandler {
	return &InfoHandler{svc: svc}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir,omitempty" doc:"Source data directory"`
	DB       bool     `json:"db" doc:"Whether the feature query database is available"`
	Presets  int      `json:"presets" doc:"Number of map presets"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-leaflet",
		Version:  "0.1.0",
		Features: []string{"presets", "geojson", "tilestream", "sse-preview"},
	}
	if h.svc != nil {
		body.DB = h.svc.DB != nil
		if body.DB {
			body.Features = append(body.Features, "duckdb")
		}
		if h.svc.Presets != nil {
			body.Presets = len(h.svc.Presets.List())
		}
		if h.svc.Sources != nil {
			body.DataDir = h.svc.Sources.SourcesDir()
		}
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
