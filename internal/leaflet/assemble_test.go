package leaflet

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestAssembler() *Assembler {
	return NewAssembler(NewMemoryRegistry(16, time.Minute), nil)
}

func TestAssembleFitTwoPoints(t *testing.T) {
	features, b := Normalize([]GeometryRecord{
		&Point{LatLng: LatLng{Lat: 1, Lon: 2}},
		&Point{LatLng: LatLng{Lat: -1, Lon: -2}},
	})
	spec := &MapSpec{Layers: baseSatellite()}

	v, err := newTestAssembler().Assemble(context.Background(), "map-1", spec, features, b)
	if err != nil {
		t.Fatal(err)
	}
	if v.View.Mode != ViewFit || v.View.Fit == nil {
		t.Fatalf("view = %+v, want fitBounds", v.View)
	}
	want := Box{SouthWest: LatLng{Lat: -1, Lon: -2}, NorthEast: LatLng{Lat: 1, Lon: 2}}
	if *v.View.Fit != want {
		t.Fatalf("fit = %+v, want %+v", *v.View.Fit, want)
	}
}

func TestAssembleExplicitCenter(t *testing.T) {
	features, b := Normalize([]GeometryRecord{&Point{LatLng: LatLng{Lat: 1, Lon: 2}}})
	spec := &MapSpec{
		Center:   &LatLng{Lat: 43.26, Lon: -2.93},
		Settings: Settings{Zoom: 13},
	}

	v, err := newTestAssembler().Assemble(context.Background(), "map-1", spec, features, b)
	if err != nil {
		t.Fatal(err)
	}
	if v.View.Mode != ViewSet || *v.View.Center != *spec.Center || v.View.Zoom == nil || *v.View.Zoom != 13 {
		t.Fatalf("view = %+v, want setView at the spec center", v.View)
	}
	if v.View.Fit != nil {
		t.Fatal("setView also carries a fit box")
	}
}

func TestAssembleWorldZoom(t *testing.T) {
	spec := &MapSpec{Center: &LatLng{Lat: 10, Lon: 20}}

	v, err := newTestAssembler().Assemble(context.Background(), "world", spec, nil, NewBounds())
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(v.View)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"zoom":0`) {
		t.Fatalf("view = %s, want zoom 0 kept for setView", b)
	}

	// Fitted views leave the zoom to fitBounds.
	fit, _ := newTestAssembler().Assemble(context.Background(), "fit", &MapSpec{}, nil, pointBounds())
	if b, _ := json.Marshal(fit.View); strings.Contains(string(b), `"zoom"`) {
		t.Fatalf("fit view = %s, want no zoom", b)
	}
}

func pointBounds() *Bounds {
	b := NewBounds()
	b.Push(LatLng{Lat: 1, Lon: 1})
	return b
}

func TestAssembleEmptyBounds(t *testing.T) {
	v, err := newTestAssembler().Assemble(context.Background(), "empty", &MapSpec{}, nil, NewBounds())
	if err != nil {
		t.Fatal(err)
	}
	if v.View.Mode != ViewDefault {
		t.Fatalf("mode = %q, want default", v.View.Mode)
	}
	if v.Features == nil || v.Layers == nil {
		t.Fatal("empty map should carry empty, non-nil lists")
	}
	if v.ActiveLayer != "" {
		t.Fatalf("active layer = %q with no layers", v.ActiveLayer)
	}
}

func TestAssembleBaseSatellite(t *testing.T) {
	spec := &MapSpec{Layers: baseSatellite(), Settings: Settings{LayerControl: true}}
	features, b := Normalize([]GeometryRecord{
		&Group{Meta: Meta{Label: "Stations"}, Members: []GeometryRecord{
			&Point{LatLng: LatLng{Lat: 1, Lon: 1}},
		}},
	})

	v, err := newTestAssembler().Assemble(context.Background(), "map-1", spec, features, b)
	if err != nil {
		t.Fatal(err)
	}
	if v.ActiveLayer != "base" {
		t.Fatalf("active layer = %q, want base", v.ActiveLayer)
	}
	if v.Control == nil {
		t.Fatal("layer control missing")
	}
	if got := v.Control.BaseLayers; len(got) != 2 || got[0] != "base" || got[1] != "satellite" {
		t.Fatalf("base layers = %v", got)
	}
	if got := v.Control.Overlays; len(got) != 1 || got[0] != "Stations" {
		t.Fatalf("overlays = %v, want [Stations]", got)
	}
}

func TestAssembleAttribution(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		attr    *Attribution
		want    bool
	}{
		{"enabled with prefix", true, &Attribution{Prefix: "Leaflet"}, true},
		{"enabled with text only", true, &Attribution{Text: "© OSM"}, true},
		{"enabled but empty", true, &Attribution{}, false},
		{"disabled", false, &Attribution{Prefix: "Leaflet", Text: "© OSM"}, false},
		{"enabled, none configured", true, nil, false},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &MapSpec{Attribution: tt.attr, Settings: Settings{AttributionControl: tt.enabled}}
			v, err := newTestAssembler().Assemble(context.Background(), "attr", spec, nil, NewBounds())
			if err != nil {
				t.Fatal(err)
			}
			if got := v.Attribution != nil; got != tt.want {
				t.Fatalf("case %d: attribution set = %v, want %v", i, got, tt.want)
			}
			if v.Options["attributionControl"] != tt.enabled {
				t.Fatalf("attributionControl option = %v", v.Options["attributionControl"])
			}
		})
	}
}

func TestAssembleIdempotent(t *testing.T) {
	a := newTestAssembler()
	ctx := context.Background()
	first, err := a.Assemble(ctx, "map-1", &MapSpec{Label: "first"}, nil, NewBounds())
	if err != nil {
		t.Fatal(err)
	}

	second, err := a.Assemble(ctx, "map-1", &MapSpec{Label: "second"}, nil, NewBounds())
	if err != nil {
		t.Fatal(err)
	}
	if second != first || second.Label != "first" {
		t.Fatalf("second assemble = %q, want the first view", second.Label)
	}

	other, err := a.Assemble(ctx, "map-2", &MapSpec{Label: "other"}, nil, NewBounds())
	if err != nil {
		t.Fatal(err)
	}
	if other.Label != "other" {
		t.Fatalf("map-2 label = %q", other.Label)
	}
}

func TestAssembleNoContainer(t *testing.T) {
	_, err := newTestAssembler().Assemble(context.Background(), "", &MapSpec{}, nil, nil)
	if !errors.Is(err, ErrNoContainer) {
		t.Fatalf("err = %v, want ErrNoContainer", err)
	}
}

func TestAssembleDefaultHeight(t *testing.T) {
	a := newTestAssembler()
	v, _ := a.Assemble(context.Background(), "h1", &MapSpec{}, nil, nil)
	if v.Height != DefaultHeight {
		t.Fatalf("height = %q, want %q", v.Height, DefaultHeight)
	}
	v, _ = a.Assemble(context.Background(), "h2", &MapSpec{Height: "60vh"}, nil, nil)
	if v.Height != "60vh" {
		t.Fatalf("height = %q, want 60vh", v.Height)
	}
}

func TestMemoryRegistryEvicts(t *testing.T) {
	r := NewMemoryRegistry(2, time.Minute)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, loaded := r.LoadOrStore(ctx, id, &MapView{ContainerID: id}); loaded {
			t.Fatalf("%s already bound", id)
		}
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d, want 2", r.Len())
	}
	if _, ok := r.Load(ctx, "a"); ok {
		t.Fatal("oldest view was not evicted")
	}

	r.Forget(ctx, "c")
	if _, ok := r.Load(ctx, "c"); ok {
		t.Fatal("forgotten view still bound")
	}
}
