// Package templates renders assembled maps as HTML fragments, both for API
// responses and for Datastar SSE patches.
package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"os"
	"sync"

	"github.com/joeblew999/plat-leaflet/internal/leaflet"
)

//go:embed fragments/*.html
var embedded embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	// json embeds a value in a script element. encoding/json escapes <, >
	// and & so the payload cannot close the element.
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return template.JS(b), nil
	},
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	dir       string
	mu        sync.RWMutex
}

// New creates a renderer. fragmentsDir overrides the built-in fragments
// with web/templates/fragments style *.html files; "" uses the built-ins.
func New(fragmentsDir string) (*Renderer, error) {
	tmpl, err := parse(fragmentsDir)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl, dir: fragmentsDir}, nil
}

func parse(dir string) (*template.Template, error) {
	var fsys fs.FS = embedded
	pattern := "fragments/*.html"
	if dir != "" {
		fsys = os.DirFS(dir)
		pattern = "*.html"
	}
	return template.New("").Funcs(funcMap).ParseFS(fsys, pattern)
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// Map renders the container div and settings script of one map.
func (r *Renderer) Map(v *leaflet.MapView) (string, error) {
	return r.Render("map", v)
}

// Page renders a standalone HTML document for one map. script is the URL of
// leaflet.map.js.
func (r *Renderer) Page(v *leaflet.MapView, script string) (string, error) {
	return r.Render("page", map[string]any{"View": v, "Script": script})
}

// Reload re-parses templates from the renderer's source (useful for dev hot-reload).
func (r *Renderer) Reload() error {
	tmpl, err := parse(r.dir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
