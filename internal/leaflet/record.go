// Package leaflet turns geometry records and a map preset into a Leaflet map view.
//
// The pipeline has three stages:
//   - Normalize: GeometryRecord values -> []Feature plus a Bounds accumulator
//   - Materialize: LayerSet -> []RenderableLayer with one active-by-default layer
//   - Assemble: MapSpec + features + bounds -> *MapView, bound to a container ID
//
// A MapView is plain data. web/static/leaflet.map.js turns it into Leaflet calls.
package leaflet

import (
	"encoding/json"

	"github.com/paulmach/orb"
)

// Kind is the wire tag of a geometry record and of a normalized feature.
type Kind string

const (
	KindPoint           Kind = "point"
	KindLineString      Kind = "linestring"
	KindPolygon         Kind = "polygon"
	KindMultiPolygon    Kind = "multipolygon"
	KindMultiLineString Kind = "multipolyline"
	KindGeoJSON         Kind = "json"
	KindGroup           Kind = "group"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat" doc:"Latitude" example:"43.263"`
	Lon float64 `json:"lon" doc:"Longitude" example:"-2.935"`
}

// Point returns the coordinate as an orb point (x=lon, y=lat).
func (ll LatLng) Point() orb.Point {
	return orb.Point{ll.Lon, ll.Lat}
}

// FromPoint converts an orb point back to a LatLng.
func FromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lon: p.Lon()}
}

// Pixel is an icon offset in pixels.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// IconDescriptor describes a custom marker icon. Nil offsets are left to
// Leaflet's defaults for the icon image.
type IconDescriptor struct {
	IconURL      string `json:"iconUrl" yaml:"iconUrl" doc:"Icon image URL"`
	ShadowURL    string `json:"shadowUrl,omitempty" yaml:"shadowUrl,omitempty" doc:"Shadow image URL"`
	IconSize     *Pixel `json:"iconSize,omitempty" yaml:"iconSize,omitempty" doc:"Icon size in pixels"`
	IconAnchor   *Pixel `json:"iconAnchor,omitempty" yaml:"iconAnchor,omitempty" doc:"Icon tip, relative to its top left corner"`
	ShadowAnchor *Pixel `json:"shadowAnchor,omitempty" yaml:"shadowAnchor,omitempty" doc:"Shadow anchor point"`
	PopupAnchor  *Pixel `json:"popupAnchor,omitempty" yaml:"popupAnchor,omitempty" doc:"Popup opening point, relative to the icon anchor"`
}

// Meta holds the optional fields every record may carry.
type Meta struct {
	ID    string  `json:"id,omitempty"`
	Popup string  `json:"popup,omitempty"`
	Label string  `json:"label,omitempty"`
	Style Options `json:"options,omitempty"`
}

func (m *Meta) meta() *Meta { return m }

// GeometryRecord is one input item. The set of implementations is closed:
// Point, LineString, Polygon, MultiPolygon, MultiLineString, GeoJSONBlob, Group.
type GeometryRecord interface {
	Kind() Kind
	meta() *Meta
}

// Point is a single marker.
type Point struct {
	Meta
	LatLng
	Icon *IconDescriptor
}

// LineString is an open polyline.
type LineString struct {
	Meta
	Points []LatLng
}

// Polygon is a single closed ring.
type Polygon struct {
	Meta
	Points []LatLng
}

// MultiPolygon keeps every component as its own ring.
type MultiPolygon struct {
	Meta
	Components [][]LatLng
}

// MultiLineString keeps every component as its own polyline.
type MultiLineString struct {
	Meta
	Components [][]LatLng
}

// GeoJSONBlob is an opaque GeoJSON payload parsed by a GeoJSONParser.
type GeoJSONBlob struct {
	Meta
	Payload json.RawMessage
}

// Group wraps member records under one label. Meta.Label is the group label.
// Cluster selects a marker cluster instead of a plain layer group.
type Group struct {
	Meta
	Cluster bool
	Members []GeometryRecord
}

func (*Point) Kind() Kind           { return KindPoint }
func (*LineString) Kind() Kind      { return KindLineString }
func (*Polygon) Kind() Kind         { return KindPolygon }
func (*MultiPolygon) Kind() Kind    { return KindMultiPolygon }
func (*MultiLineString) Kind() Kind { return KindMultiLineString }
func (*GeoJSONBlob) Kind() Kind     { return KindGeoJSON }
func (*Group) Kind() Kind           { return KindGroup }

var (
	_ GeometryRecord = (*Point)(nil)
	_ GeometryRecord = (*LineString)(nil)
	_ GeometryRecord = (*Polygon)(nil)
	_ GeometryRecord = (*MultiPolygon)(nil)
	_ GeometryRecord = (*MultiLineString)(nil)
	_ GeometryRecord = (*GeoJSONBlob)(nil)
	_ GeometryRecord = (*Group)(nil)
)
