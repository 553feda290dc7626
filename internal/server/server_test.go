package server

import (
	"net/http"
	"os"
	"path/filepath"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joeblew999/plat-leaflet/internal/leaflet"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(Config{
		Host:     "localhost",
		Port:     "0",
		DataDir:  t.TempDir(),
		NoDB:     true,
		Registry: leaflet.NewMemoryRegistry(16, time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t)

	paths := srv.API().OpenAPI().Paths
	for _, p := range []string{
		"/health",
		"/api/v1/info",
		"/api/v1/presets",
		"/api/v1/presets/{id}",
		"/api/v1/presets/{id}/layers/{key}/tile",
		"/api/v1/maps",
		"/api/v1/maps/html",
		"/api/v1/maps/query",
		"/api/v1/sources",
		"/api/v1/editor/maps/{id}/preview",
		"/api/v1/editor/events",
	} {
		if paths[p] == nil {
			t.Errorf("route %s not registered", p)
		}
	}
}

func TestServerRootRedirect(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/docs" {
		t.Fatalf("status = %d, location = %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(rec.Header().Values("Link")) == 0 {
		t.Fatal("root redirect carries no Link headers")
	}
}

func TestServerMetrics(t *testing.T) {
	srv := newTestServer(t)

	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `/health",status="200"}`) {
		t.Fatal("request to /health was not counted")
	}
}

func TestServerHealthLinks(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	links := strings.Join(rec.Header().Values("Link"), ", ")
	for _, want := range []string{`rel="presets"`, `rel="service-desc"`, `rel="search"`} {
		if !strings.Contains(links, want) {
			t.Errorf("health links %q missing %s", links, want)
		}
	}
}

func TestServerPreviewStream(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/editor/maps/osm/preview", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"datastar-patch-elements", "#preview", "preview-osm-", "data-leaflet-map"} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q", want)
		}
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/editor/maps/nope/preview", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown preset status = %d", rec.Code)
	}
}

func TestServerPreviewRefresh(t *testing.T) {
	srv := newTestServer(t)
	dir := srv.Services().Sources.SourcesDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	station := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[151.2,-33.8]},"properties":{}}]}`
	if err := os.WriteFile(filepath.Join(dir, "stations.geojson"), []byte(station), 0o644); err != nil {
		t.Fatal(err)
	}

	get := func(url string) string {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest("GET", url, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d: %s", url, rec.Code, rec.Body.String())
		}
		return rec.Body.String()
	}

	if body := get("/api/v1/editor/maps/osm/preview"); !strings.Contains(body, " 0 features") {
		t.Fatalf("empty preview: %s", body)
	}
	// The revision's container is already bound, so new sources are not drawn.
	if body := get("/api/v1/editor/maps/osm/preview?sources=stations.geojson"); !strings.Contains(body, " 0 features") {
		t.Fatalf("bound preview changed: %s", body)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/editor/maps/osm/preview", strings.NewReader(`{"sources":"stations.geojson"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if strings.Contains(body, " 0 features") || !strings.Contains(body, "151.2") {
		t.Errorf("refresh did not draw the source: %s", body)
	}
	if !strings.Contains(body, "success") {
		t.Errorf("refresh sent no success signal: %s", body)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/v1/editor/maps/osm/preview", strings.NewReader(`not json`))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed signals status = %d", rec.Code)
	}
}

func TestServerTemplateReload(t *testing.T) {
	webDir := t.TempDir()
	fragments := filepath.Join(webDir, "templates", "fragments")
	if err := os.MkdirAll(fragments, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(fragments, "map.html")
	if err := os.WriteFile(path, []byte(`{{define "map"}}v1{{end}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	srv, err := New(Config{
		Host:     "localhost",
		Port:     "0",
		DataDir:  t.TempDir(),
		WebDir:   webDir,
		NoDB:     true,
		Registry: leaflet.NewMemoryRegistry(16, time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	renderer := srv.Services().Renderer
	view := &leaflet.MapView{ContainerID: "m"}
	if got, _ := renderer.Map(view); got != "v1" {
		t.Fatalf("override = %q", got)
	}
	if err := os.WriteFile(path, []byte(`{{define "map"}}v2{{end}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	reload := func() string {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/editor/templates/reload", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("reload status = %d: %s", rec.Code, rec.Body.String())
		}
		return rec.Body.String()
	}
	if body := reload(); !strings.Contains(body, "Templates reloaded") {
		t.Fatalf("reload stream = %s", body)
	}
	if got, _ := renderer.Map(view); got != "v2" {
		t.Fatalf("after reload = %q", got)
	}

	// A broken edit keeps the last good templates.
	if err := os.WriteFile(path, []byte(`{{define "map"}}{{.Nope`), 0o644); err != nil {
		t.Fatal(err)
	}
	if body := reload(); !strings.Contains(body, "Templates not reloaded") {
		t.Fatalf("broken reload stream = %s", body)
	}
	if got, _ := renderer.Map(view); got != "v2" {
		t.Fatalf("after broken reload = %q", got)
	}
}
