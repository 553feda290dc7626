package leaflet

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// SubLayer is one layer produced while parsing a GeoJSON payload: the geometry
// of a single GeoJSON feature and its property bag.
type SubLayer struct {
	Geometry   orb.Geometry
	ID         string
	Properties map[string]any
}

// GeoJSONParser parses a GeoJSON payload and emits one SubLayer per feature,
// in document order.
type GeoJSONParser interface {
	Parse(payload []byte, emit func(SubLayer)) error
}

// OrbParser is the default GeoJSONParser, backed by paulmach/orb/geojson.
type OrbParser struct{}

// Parse accepts a FeatureCollection, a Feature or a bare geometry.
func (OrbParser) Parse(payload []byte, emit func(SubLayer)) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return fmt.Errorf("parsing geojson: %w", err)
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(payload)
		if err != nil {
			return fmt.Errorf("parsing feature collection: %w", err)
		}
		for _, f := range fc.Features {
			emit(subLayerOf(f))
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(payload)
		if err != nil {
			return fmt.Errorf("parsing feature: %w", err)
		}
		emit(subLayerOf(f))
	default:
		g, err := geojson.UnmarshalGeometry(payload)
		if err != nil {
			return fmt.Errorf("parsing geometry: %w", err)
		}
		emit(SubLayer{Geometry: g.Geometry()})
	}
	return nil
}

func subLayerOf(f *geojson.Feature) SubLayer {
	sl := SubLayer{Geometry: f.Geometry, Properties: map[string]any(f.Properties)}
	if f.ID != nil {
		sl.ID = fmt.Sprint(f.ID)
	}
	return sl
}

// popup returns the popup markup carried by the sub-layer, if any.
func (sl SubLayer) popup() string {
	for _, key := range []string{"popup", "description"} {
		if s, ok := sl.Properties[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// style returns the per-sub-layer style object.
func (sl SubLayer) style() Options {
	if m, ok := sl.Properties["style"].(map[string]any); ok {
		return Options(m)
	}
	return nil
}

// stableID prefers an "id" property over the GeoJSON feature id.
func (sl SubLayer) stableID() string {
	if v, ok := sl.Properties["id"]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return sl.ID
}

func (sl SubLayer) label() string {
	s, _ := sl.Properties["label"].(string)
	return s
}

// pushGeometry appends every vertex of g to b in traversal order,
// including polygon holes.
func pushGeometry(b *Bounds, g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		b.pushPoints(g)
	case orb.MultiPoint:
		b.pushPoints(g...)
	case orb.LineString:
		b.pushPoints(g...)
	case orb.MultiLineString:
		for _, ls := range g {
			b.pushPoints(ls...)
		}
	case orb.Ring:
		b.pushPoints(g...)
	case orb.Polygon:
		for _, r := range g {
			b.pushPoints(r...)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			pushGeometry(b, p)
		}
	case orb.Collection:
		for _, c := range g {
			pushGeometry(b, c)
		}
	}
}

func latLngs(ps []orb.Point) []LatLng {
	out := make([]LatLng, len(ps))
	for i, p := range ps {
		out[i] = FromPoint(p)
	}
	return out
}

// geometryFeature converts one orb geometry to a feature. Geometries Leaflet
// draws as several layers (multi points, multi polygons with holes,
// collections) become a KindGeoJSON container.
func geometryFeature(g orb.Geometry) (Feature, bool) {
	switch g := g.(type) {
	case orb.Point:
		ll := FromPoint(g)
		return Feature{Kind: KindPoint, LatLng: &ll}, true
	case orb.LineString:
		return Feature{Kind: KindLineString, LatLngs: latLngs(g)}, true
	case orb.Ring:
		return Feature{Kind: KindPolygon, LatLngs: latLngs(g)}, true
	case orb.Polygon:
		if len(g) == 0 {
			return Feature{}, false
		}
		f := Feature{Kind: KindPolygon, LatLngs: latLngs(g[0])}
		for _, hole := range g[1:] {
			f.Holes = append(f.Holes, latLngs(hole))
		}
		return f, true
	case orb.MultiLineString:
		f := Feature{Kind: KindMultiLineString}
		for _, ls := range g {
			f.Components = append(f.Components, latLngs(ls))
		}
		return f, true
	case orb.MultiPoint:
		c := Feature{Kind: KindGeoJSON}
		for _, p := range g {
			child, _ := geometryFeature(p)
			c.Features = append(c.Features, child)
		}
		return c, true
	case orb.MultiPolygon:
		c := Feature{Kind: KindGeoJSON}
		for _, p := range g {
			if child, ok := geometryFeature(p); ok {
				c.Features = append(c.Features, child)
			}
		}
		return c, true
	case orb.Collection:
		c := Feature{Kind: KindGeoJSON}
		for _, sub := range g {
			if child, ok := geometryFeature(sub); ok {
				c.Features = append(c.Features, child)
			}
		}
		return c, true
	}
	return Feature{}, false
}
