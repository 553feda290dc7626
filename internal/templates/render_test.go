package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeblew999/plat-leaflet/internal/leaflet"
)

func testView() *leaflet.MapView {
	return &leaflet.MapView{
		ContainerID: "leaflet-map-1",
		Label:       "</script><script>alert(1)</script>",
		Layers:      []leaflet.RenderableLayer{},
		Features:    []leaflet.Feature{},
		View:        leaflet.View{Mode: leaflet.ViewDefault},
		Height:      "400px",
	}
}

func TestRendererMap(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatal(err)
	}

	html, err := r.Map(testView())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`id="leaflet-map-1"`,
		`data-leaflet-map="leaflet-map-1"`,
		`"mapId":"leaflet-map-1"`,
		`height: 400px`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("map fragment missing %s:\n%s", want, html)
		}
	}
	if strings.Contains(html, "</script><script>") {
		t.Fatal("label closed the settings script element")
	}
}

func TestRendererPage(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	v := testView()
	v.Label = "Bilbao"

	html, err := r.Page(v, "/static/leaflet.map.js")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Fatalf("page does not start with a doctype: %.40s", html)
	}
	for _, want := range []string{"<title>Bilbao</title>", `src="/static/leaflet.map.js"`, `data-leaflet-map="leaflet-map-1"`} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %s", want)
		}
	}

	// Clustered groups need the plugin loaded after leaflet and before the map script.
	leafletJS := strings.Index(html, "leaflet@1.9.4/dist/leaflet.js")
	cluster := strings.Index(html, "leaflet.markercluster@1.5.3/dist/leaflet.markercluster.js")
	mapJS := strings.Index(html, "/static/leaflet.map.js")
	if leafletJS < 0 || cluster < leafletJS || mapJS < cluster {
		t.Errorf("script order leaflet=%d markercluster=%d map=%d", leafletJS, cluster, mapJS)
	}
	for _, css := range []string{"MarkerCluster.css", "MarkerCluster.Default.css"} {
		if !strings.Contains(html, "leaflet.markercluster@1.5.3/dist/"+css) {
			t.Errorf("page missing %s", css)
		}
	}
}

func TestRendererOverrideAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.html")
	if err := os.WriteFile(path, []byte(`{{define "map"}}v1 {{.ContainerID}}{{end}}`), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := r.Map(testView()); got != "v1 leaflet-map-1" {
		t.Fatalf("override = %q", got)
	}

	if err := os.WriteFile(path, []byte(`{{define "map"}}v2{{end}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err != nil {
		t.Fatal(err)
	}
	if got, _ := r.Map(testView()); got != "v2" {
		t.Fatalf("after reload = %q", got)
	}
}

func TestRendererPreview(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	html, err := r.Render("preview", map[string]any{
		"Preset": struct{ ID, Label, Description string }{ID: "osm", Label: "Streets"},
		"View":   testView(),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<h2>Streets</h2>",
		"/api/v1/editor/maps/osm/preview",
		"Redraw leaflet-map-1",
		"data-bind-sources",
		`data-leaflet-map="leaflet-map-1"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("preview missing %s:\n%s", want, html)
		}
	}
}

func TestDict(t *testing.T) {
	dict := funcMap["dict"].(func(...any) map[string]any)
	if m := dict("a", 1, "b", 2); m["a"] != 1 || m["b"] != 2 {
		t.Fatalf("dict = %v", m)
	}
	if m := dict("odd"); m != nil {
		t.Fatalf("odd args = %v, want nil", m)
	}
}
