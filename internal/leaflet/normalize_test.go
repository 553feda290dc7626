package leaflet

import (
	"reflect"
	"testing"
)

func TestNormalizeBoundsOrder(t *testing.T) {
	records := []GeometryRecord{
		&Point{LatLng: LatLng{Lat: 1, Lon: 2}},
		&LineString{Points: []LatLng{{Lat: 3, Lon: 4}, {Lat: 5, Lon: 6}}},
		&Group{Meta: Meta{Label: "g"}, Members: []GeometryRecord{
			&Point{LatLng: LatLng{Lat: 7, Lon: 8}},
		}},
		&MultiPolygon{Components: [][]LatLng{
			{{Lat: 9, Lon: 10}},
			{{Lat: 11, Lon: 12}},
		}},
	}

	_, b := Normalize(records)

	want := []LatLng{
		{Lat: 1, Lon: 2},
		{Lat: 3, Lon: 4},
		{Lat: 5, Lon: 6},
		{Lat: 7, Lon: 8},
		{Lat: 9, Lon: 10},
		{Lat: 11, Lon: 12},
	}
	if got := b.Points(); !reflect.DeepEqual(got, want) {
		t.Fatalf("bounds = %v, want %v", got, want)
	}
}

func TestNormalizeGroupNoDuplicates(t *testing.T) {
	records := []GeometryRecord{
		&Group{Meta: Meta{Label: "Stations"}, Members: []GeometryRecord{
			&Point{LatLng: LatLng{Lat: 43.26, Lon: -2.93}},
			&Point{LatLng: LatLng{Lat: 43.30, Lon: -2.98}},
		}},
	}

	features, b := Normalize(records)

	if len(features) != 1 {
		t.Fatalf("got %d top-level features, want 1", len(features))
	}
	g := features[0]
	if g.Kind != KindGroup || g.Label != "Stations" {
		t.Fatalf("group = %s %q, want group \"Stations\"", g.Kind, g.Label)
	}
	if len(g.Features) != 2 {
		t.Fatalf("group has %d members, want 2", len(g.Features))
	}
	for i, f := range g.Features {
		if f.Kind != KindPoint {
			t.Errorf("member %d kind = %s, want point", i, f.Kind)
		}
	}
	if b.Len() != 2 {
		t.Fatalf("bounds has %d points, want 2", b.Len())
	}
}

func TestNormalizeNestedGroupFlattened(t *testing.T) {
	records := []GeometryRecord{
		&Group{Meta: Meta{Label: "outer"}, Members: []GeometryRecord{
			&Point{LatLng: LatLng{Lat: 1, Lon: 1}},
			&Group{Meta: Meta{Label: "inner"}, Members: []GeometryRecord{
				&Point{LatLng: LatLng{Lat: 2, Lon: 2}},
			}},
		}},
	}

	features, _ := Normalize(records)

	if len(features) != 1 || len(features[0].Features) != 2 {
		t.Fatalf("features = %+v, want one group with two points", features)
	}
	for _, f := range features[0].Features {
		if f.Kind == KindGroup {
			t.Fatal("nested group was not flattened")
		}
	}
}

func TestNormalizeIDRoundTrip(t *testing.T) {
	records := []GeometryRecord{
		&Point{Meta: Meta{ID: "p-1"}, LatLng: LatLng{Lat: 1, Lon: 1}},
		&Polygon{Meta: Meta{ID: "poly-7"}, Points: []LatLng{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 0}, {Lat: 1, Lon: 1}}},
		&Group{Meta: Meta{ID: "g-1"}, Members: []GeometryRecord{
			&LineString{Meta: Meta{ID: "line-3"}, Points: []LatLng{{Lat: 0, Lon: 0}, {Lat: 2, Lon: 2}}},
		}},
	}

	features, _ := Normalize(records)

	ids := []string{features[0].ID, features[1].ID, features[2].ID, features[2].Features[0].ID}
	want := []string{"p-1", "poly-7", "g-1", "line-3"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestNormalizeKindDefaultsAndStyle(t *testing.T) {
	records := []GeometryRecord{
		&Polygon{Meta: Meta{Style: Options{"color": "red", "fill": false}}, Points: []LatLng{{Lat: 0, Lon: 0}}},
		&LineString{Points: []LatLng{{Lat: 0, Lon: 0}}},
	}

	features, _ := Normalize(records)

	if got := features[0].Options; got["fill"] != false || got["color"] != "red" {
		t.Errorf("polygon options = %v, want record style over defaults", got)
	}
	if got := features[1].Options; got["fill"] != false {
		t.Errorf("linestring options = %v, want fill=false", got)
	}
}

func TestNormalizeIconPartialFields(t *testing.T) {
	icon := &IconDescriptor{IconURL: "/marker.png", IconAnchor: &Pixel{X: 12, Y: 41}}
	records := []GeometryRecord{&Point{LatLng: LatLng{Lat: 1, Lon: 1}, Icon: icon}}

	features, _ := Normalize(records)

	got := features[0].Icon
	if got == nil || got.IconURL != "/marker.png" {
		t.Fatalf("icon = %+v, want /marker.png", got)
	}
	if got.IconAnchor == nil || *got.IconAnchor != (Pixel{X: 12, Y: 41}) {
		t.Errorf("anchor = %v, want {12 41}", got.IconAnchor)
	}
	if got.IconSize != nil || got.ShadowAnchor != nil || got.PopupAnchor != nil {
		t.Errorf("unset offsets were filled in: %+v", got)
	}
	if got == icon || got.IconAnchor == icon.IconAnchor {
		t.Error("icon shares memory with the record")
	}
}

func TestNormalizerIconOverride(t *testing.T) {
	n := Normalizer{Icon: &IconDescriptor{IconURL: "/map.png"}}
	records := []GeometryRecord{
		&Point{LatLng: LatLng{Lat: 1, Lon: 1}, Icon: &IconDescriptor{IconURL: "/own.png"}},
		&Point{LatLng: LatLng{Lat: 2, Lon: 2}},
	}

	features, _ := n.Normalize(records)

	for i, f := range features {
		if f.Icon == nil || f.Icon.IconURL != "/map.png" {
			t.Errorf("feature %d icon = %+v, want /map.png", i, f.Icon)
		}
	}
}

func TestNormalizeGeoJSONBackfill(t *testing.T) {
	payload := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "id": 4,
			 "geometry": {"type": "Point", "coordinates": [-2.93, 43.26]},
			 "properties": {"popup": "<b>Abando</b>", "style": {"color": "blue"}}},
			{"type": "Feature",
			 "geometry": {"type": "Polygon", "coordinates": [
				[[0, 0], [4, 0], [4, 4], [0, 0]],
				[[1, 1], [2, 1], [2, 2], [1, 1]]
			 ]},
			 "properties": {"id": "zone-a", "description": "Zone A"}}
		]
	}`
	records := []GeometryRecord{
		&GeoJSONBlob{Meta: Meta{ID: "blob", Style: Options{"weight": 2}}, Payload: []byte(payload)},
	}

	features, b := Normalize(records)

	if len(features) != 1 || features[0].Kind != KindGeoJSON {
		t.Fatalf("features = %+v, want one json container", features)
	}
	blob := features[0]
	if blob.ID != "blob" || len(blob.Features) != 2 {
		t.Fatalf("blob = %+v, want id blob with two children", blob)
	}

	pt := blob.Features[0]
	if pt.Kind != KindPoint || pt.LatLng == nil || *pt.LatLng != (LatLng{Lat: 43.26, Lon: -2.93}) {
		t.Errorf("point = %+v", pt)
	}
	if pt.ID != "4" || pt.Popup != "<b>Abando</b>" {
		t.Errorf("point id/popup = %q/%q", pt.ID, pt.Popup)
	}
	if pt.Options["color"] != "blue" || pt.Options["weight"] != 2 {
		t.Errorf("point options = %v, want record style plus feature style", pt.Options)
	}

	poly := blob.Features[1]
	if poly.ID != "zone-a" || poly.Popup != "Zone A" || len(poly.Holes) != 1 {
		t.Errorf("polygon = %+v", poly)
	}

	// 1 point + 4 outer + 4 hole vertices.
	if b.Len() != 9 {
		t.Fatalf("bounds has %d points, want 9", b.Len())
	}
	if first := b.Points()[0]; first != (LatLng{Lat: 43.26, Lon: -2.93}) {
		t.Errorf("first bound = %v", first)
	}
}

func TestNormalizeGeoJSONInvalid(t *testing.T) {
	records := []GeometryRecord{
		&GeoJSONBlob{Payload: []byte(`{"type": "FeatureCollection", "features": [`)},
		&Point{LatLng: LatLng{Lat: 1, Lon: 1}},
	}

	features, b := Normalize(records)

	if len(features) != 2 {
		t.Fatalf("got %d features, want 2", len(features))
	}
	if len(features[0].Features) != 0 {
		t.Errorf("broken blob produced children: %+v", features[0].Features)
	}
	if b.Len() != 1 {
		t.Errorf("bounds has %d points, want 1", b.Len())
	}
}

type stubParser struct {
	subs []SubLayer
}

func (p stubParser) Parse(_ []byte, emit func(SubLayer)) error {
	for _, sl := range p.subs {
		emit(sl)
	}
	return nil
}

func TestNormalizeCustomParser(t *testing.T) {
	n := Normalizer{Parser: stubParser{subs: []SubLayer{
		{Geometry: orbLine(), Properties: map[string]any{"label": "route"}},
	}}}

	features, b := n.Normalize([]GeometryRecord{&GeoJSONBlob{Payload: []byte("ignored")}})

	if got := features[0].Features[0]; got.Kind != KindLineString || got.Label != "route" {
		t.Fatalf("child = %+v, want linestring \"route\"", got)
	}
	if b.Len() != 2 {
		t.Fatalf("bounds has %d points, want 2", b.Len())
	}
}
