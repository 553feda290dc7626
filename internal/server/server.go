package server

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-leaflet/internal/api"
	"github.com/joeblew999/plat-leaflet/internal/api/editor"
	"github.com/joeblew999/plat-leaflet/internal/db"
	"github.com/joeblew999/plat-leaflet/internal/humastar"
	"github.com/joeblew999/plat-leaflet/internal/leaflet"
	"github.com/joeblew999/plat-leaflet/internal/metrics"
	"github.com/joeblew999/plat-leaflet/internal/service"
	"github.com/joeblew999/plat-leaflet/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // Path to web/ directory for static files and template overrides
	// NoDB skips opening DuckDB; /api/v1/maps/query then answers 503.
	NoDB bool
	// Registry binds map views to container IDs. Nil uses the in-process default.
	Registry leaflet.ViewRegistry
	// DefaultPreset and DefaultPolicy apply to render requests that leave them empty.
	DefaultPreset string
	DefaultPolicy leaflet.ActivePolicy
	Logger        *slog.Logger
}

// Server is the map HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	db       *sql.DB
	bus      *service.EventBus
	services *api.Services
	links    *humastar.Links
}

// New creates a new map server.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	mux := http.NewServeMux()
	links := humastar.NewLinks()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-leaflet API", "1.0.0")
	humaConfig.Info.Description = "Turns geometry records and map presets into ready-to-render Leaflet map views."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)

	fragmentsDir := ""
	if cfg.WebDir != "" {
		fragmentsDir = filepath.Join(cfg.WebDir, "templates", "fragments")
		if _, err := os.Stat(fragmentsDir); err != nil {
			fragmentsDir = ""
		}
	}
	renderer, err := templates.New(fragmentsDir)
	if err != nil {
		cfg.Logger.Warn("fragment templates unusable, using built-ins", "dir", fragmentsDir, "error", err)
		if renderer, err = templates.New(""); err != nil {
			return nil, fmt.Errorf("loading templates: %w", err)
		}
	}

	bus := service.NewEventBus()
	presets := service.NewPresetService(cfg.DataDir, bus)
	opts := []service.MapServiceOption{service.WithLogger(cfg.Logger)}
	if cfg.DefaultPreset != "" {
		opts = append(opts, service.WithDefaultPreset(cfg.DefaultPreset))
	}
	if cfg.DefaultPolicy != "" {
		opts = append(opts, service.WithDefaultPolicy(cfg.DefaultPolicy))
	}

	s := &Server{
		config:  cfg,
		mux:     mux,
		handler: metrics.Middleware(mux),
		humaAPI: humaAPI,
		bus:     bus,
		links:   links,
		services: &api.Services{
			Presets:  presets,
			Sources:  service.NewSourceService(cfg.DataDir),
			Maps:     service.NewMapService(presets, leaflet.NewAssembler(cfg.Registry, cfg.Logger), opts...),
			Renderer: renderer,
		},
	}

	if !cfg.NoDB {
		conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "leaflet"})
		if err != nil {
			cfg.Logger.Warn("duckdb unavailable, feature queries disabled", "error", err)
		} else {
			s.db = conn
			s.services.DB = conn
		}
	}

	s.routes()
	return s, nil
}

// API returns the Huma API, for OpenAPI export and tests.
func (s *Server) API() huma.API {
	return s.humaAPI
}

// Services returns the services behind the handlers.
func (s *Server) Services() *api.Services {
	return s.services
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return db.Close()
}

func (s *Server) routes() {
	api.RegisterRoutes(s.humaAPI, s.services)

	base := humastar.Handler{Renderer: s.services.Renderer}
	editor.NewPreviewHandler(base, s.services.Presets, s.services.Sources, s.services.Maps, s.bus).RegisterRoutes(s.humaAPI)
	editor.NewEventHandler(base, s.services.Presets, s.bus).RegisterRoutes(s.humaAPI)
	editor.NewTemplateHandler(base).RegisterRoutes(s.humaAPI)

	s.links.AutoLinks(s.humaAPI)

	s.mux.Handle("GET /metrics", metrics.Handler())

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	for _, link := range s.links.For("/health") {
		w.Header().Add("Link", link)
	}
	http.Redirect(w, r, "/docs", http.StatusFound)
}
