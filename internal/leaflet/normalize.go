package leaflet

import (
	"log/slog"

	"github.com/joeblew999/plat-leaflet/internal/metrics"
)

// Feature is the uniform representation of one drawable item. Which
// coordinate field is set depends on Kind:
//
//	point          LatLng
//	linestring     LatLngs
//	polygon        LatLngs, Holes (GeoJSON polygons only)
//	multipolygon   Components
//	multipolyline  Components
//	json, group    Features
type Feature struct {
	Kind       Kind            `json:"type" doc:"Feature kind"`
	ID         string          `json:"id,omitempty" doc:"Stable identifier supplied with the record"`
	Popup      string          `json:"popup,omitempty" doc:"Popup markup"`
	Label      string          `json:"label,omitempty" doc:"Title, or the overlay name for groups"`
	Options    Options         `json:"options,omitempty" doc:"Leaflet path or marker options"`
	LatLng     *LatLng         `json:"latLng,omitempty"`
	LatLngs    []LatLng        `json:"latLngs,omitempty"`
	Holes      [][]LatLng      `json:"holes,omitempty"`
	Components [][]LatLng      `json:"components,omitempty"`
	Icon       *IconDescriptor `json:"icon,omitempty"`
	Cluster    bool            `json:"cluster,omitempty" doc:"Render the group as a marker cluster"`
	Features   []Feature       `json:"features,omitempty"`
}

// Normalizer converts geometry records to features. The zero value is usable.
type Normalizer struct {
	// Parser handles GeoJSON blobs. Defaults to OrbParser.
	Parser GeoJSONParser
	// Icon, when set, replaces the icon of every point.
	Icon *IconDescriptor
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Normalize runs a zero Normalizer over records.
func Normalize(records []GeometryRecord) ([]Feature, *Bounds) {
	var n Normalizer
	return n.Normalize(records)
}

// Normalize converts records to features in order and returns every
// coordinate it saw, in traversal order.
func (n *Normalizer) Normalize(records []GeometryRecord) ([]Feature, *Bounds) {
	b := NewBounds()
	return n.normalizeList(records, b, false), b
}

func (n *Normalizer) normalizeList(records []GeometryRecord, b *Bounds, inGroup bool) []Feature {
	out := make([]Feature, 0, len(records))
	for _, r := range records {
		if g, ok := r.(*Group); ok && inGroup {
			// Only one level of grouping is rendered.
			out = append(out, n.normalizeList(g.Members, b, true)...)
			continue
		}
		f, ok := n.normalizeRecord(r, b)
		if !ok {
			continue
		}
		metrics.FeaturesNormalized.WithLabelValues(string(f.Kind)).Inc()
		out = append(out, f)
	}
	return out
}

func (n *Normalizer) normalizeRecord(r GeometryRecord, b *Bounds) (Feature, bool) {
	switch r := r.(type) {
	case *Point:
		b.Push(r.LatLng)
		f := newFeature(r.Kind(), &r.Meta)
		ll := r.LatLng
		f.LatLng = &ll
		f.Icon = copyIcon(r.Icon)
		if n.Icon != nil {
			f.Icon = copyIcon(n.Icon)
		}
		return f, true

	case *LineString:
		b.Push(r.Points...)
		f := newFeature(r.Kind(), &r.Meta)
		f.LatLngs = append([]LatLng(nil), r.Points...)
		return f, true

	case *Polygon:
		b.Push(r.Points...)
		f := newFeature(r.Kind(), &r.Meta)
		f.LatLngs = append([]LatLng(nil), r.Points...)
		return f, true

	case *MultiPolygon:
		f := newFeature(r.Kind(), &r.Meta)
		f.Components = components(b, r.Components)
		return f, true

	case *MultiLineString:
		f := newFeature(r.Kind(), &r.Meta)
		f.Components = components(b, r.Components)
		return f, true

	case *GeoJSONBlob:
		return n.normalizeBlob(r, b), true

	case *Group:
		f := newFeature(r.Kind(), &r.Meta)
		f.Cluster = r.Cluster
		f.Features = n.normalizeList(r.Members, b, true)
		return f, true
	}

	n.logger().Debug("skipping unsupported record", "record", r)
	return Feature{}, false
}

// normalizeBlob parses the payload first and only then walks the produced
// sub-layers, wiring popups and styles and back-filling bounds.
func (n *Normalizer) normalizeBlob(r *GeoJSONBlob, b *Bounds) Feature {
	f := newFeature(r.Kind(), &r.Meta)

	var subs []SubLayer
	err := n.parser().Parse(r.Payload, func(sl SubLayer) {
		subs = append(subs, sl)
	})
	if err != nil {
		n.logger().Warn("ignoring unparsable geojson", "id", r.ID, "error", err)
		return f
	}

	for _, sl := range subs {
		pushGeometry(b, sl.Geometry)
		child, ok := geometryFeature(sl.Geometry)
		if !ok {
			continue
		}
		child.ID = sl.stableID()
		child.Popup = sl.popup()
		child.Label = sl.label()
		applyStyle(&child, Options{}.Merge(r.Style).Merge(sl.style()))
		f.Features = append(f.Features, child)
	}
	return f
}

func (n *Normalizer) parser() GeoJSONParser {
	if n.Parser != nil {
		return n.Parser
	}
	return OrbParser{}
}

func (n *Normalizer) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

func newFeature(k Kind, m *Meta) Feature {
	return Feature{
		Kind:    k,
		ID:      m.ID,
		Popup:   m.Popup,
		Label:   m.Label,
		Options: styleFor(k, m.Style),
	}
}

// kindDefaults are the path options each constructor starts from.
var kindDefaults = map[Kind]Options{
	KindPolygon:         {"fill": true},
	KindMultiPolygon:    {"fill": true},
	KindLineString:      {"fill": false},
	KindMultiLineString: {"fill": false},
}

// styleFor returns the kind defaults with style merged on top.
func styleFor(k Kind, style Options) Options {
	opts := kindDefaults[k].Clone()
	if len(style) > 0 {
		opts = opts.Merge(style)
	}
	return opts
}

func applyStyle(f *Feature, style Options) {
	f.Options = styleFor(f.Kind, style)
	for i := range f.Features {
		applyStyle(&f.Features[i], style)
	}
}

func components(b *Bounds, comps [][]LatLng) [][]LatLng {
	out := make([][]LatLng, len(comps))
	for i, c := range comps {
		b.Push(c...)
		out[i] = append([]LatLng(nil), c...)
	}
	return out
}

func copyIcon(src *IconDescriptor) *IconDescriptor {
	if src == nil {
		return nil
	}
	dst := &IconDescriptor{IconURL: src.IconURL, ShadowURL: src.ShadowURL}
	dst.IconSize = copyPixel(src.IconSize)
	dst.IconAnchor = copyPixel(src.IconAnchor)
	dst.ShadowAnchor = copyPixel(src.ShadowAnchor)
	dst.PopupAnchor = copyPixel(src.PopupAnchor)
	return dst
}

func copyPixel(p *Pixel) *Pixel {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
