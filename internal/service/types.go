// Package service holds the map presets, GeoJSON sources and the render
// pipeline that ties them to the leaflet package.
package service

import (
	"time"

	"github.com/joeblew999/plat-leaflet/internal/leaflet"
)

// MapPreset is a named, reusable map configuration: base layers, engine
// settings and positioning. Huma reads the tags for OpenAPI and validation.
type MapPreset struct {
	ID          string          `json:"id,omitempty" yaml:"id,omitempty" doc:"Unique preset identifier" example:"osm"`
	Label       string          `json:"label" yaml:"label" required:"true" minLength:"1" maxLength:"100" doc:"Display name" example:"OpenStreetMap Mapnik"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty" doc:"Free-form description"`
	Map         leaflet.MapSpec `json:"map" yaml:"map" doc:"Layers, settings and positioning"`
	UpdatedAt   time.Time       `json:"updatedAt,omitempty" yaml:"-" doc:"Last modification time"`
}

// SourceFile represents a GeoJSON source file.
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"stations.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON"`
}

// builtinPresets is used when no preset file exists yet.
func builtinPresets() map[string]MapPreset {
	var layers leaflet.LayerSet
	layers.Set("earth", leaflet.LayerDescriptor{
		URLTemplate: "http://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Options: leaflet.Options{
			"attribution": `&copy; <a href="http://openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
			"maxZoom":     18,
		},
	})
	return map[string]MapPreset{
		"osm": {
			ID:          "osm",
			Label:       "OpenStreetMap Mapnik",
			Description: "Leaflet default map.",
			Map: leaflet.MapSpec{
				Label:  "OSM Mapnik",
				Layers: layers,
				Settings: leaflet.Settings{
					Zoom:               2,
					AttributionControl: true,
					Options: leaflet.Options{
						"minZoom":         0,
						"maxZoom":         18,
						"dragging":        true,
						"touchZoom":       true,
						"scrollWheelZoom": true,
					},
				},
				Attribution: &leaflet.Attribution{Prefix: "Leaflet"},
			},
		},
	}
}
