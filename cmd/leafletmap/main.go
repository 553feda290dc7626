package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-leaflet/internal/cache"
	"github.com/joeblew999/plat-leaflet/internal/config"
	"github.com/joeblew999/plat-leaflet/internal/leaflet"
	"github.com/joeblew999/plat-leaflet/internal/logging"
	"github.com/joeblew999/plat-leaflet/internal/server"
	"github.com/joeblew999/plat-leaflet/internal/service"
	"github.com/joeblew999/plat-leaflet/internal/templates"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data-dir, --web-dir, --config, --no-db
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR, SERVICE_CONFIG, SERVICE_NO_DB
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory for presets and GeoJSON sources" default:".data"`
	WebDir  string `doc:"Path to web/ directory" default:"web"`
	Config  string `doc:"Config file (log, render, valkey sections)" default:""`
	NoDB    bool   `doc:"Do not open DuckDB" default:"false"`
}

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	closer func()
}

func setup(opts *Options) (*app, server.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, server.Config{}, err
	}
	logger := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	a := &app{cfg: cfg, logger: logger, closer: func() {}}
	scfg := server.Config{
		Host:          opts.Host,
		Port:          fmt.Sprintf("%d", opts.Port),
		DataDir:       opts.DataDir,
		WebDir:        opts.WebDir,
		NoDB:          opts.NoDB,
		DefaultPreset: cfg.Render.DefaultPreset,
		DefaultPolicy: leaflet.ActivePolicy(cfg.Render.ActivePolicy),
		Logger:        logger,
	}

	switch cfg.Render.Registry {
	case "valkey":
		vk, err := cache.NewValkey(cfg.Valkey.Addr)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err = vk.Ping(ctx)
			cancel()
			if err != nil {
				vk.Close()
			}
		}
		if err != nil {
			logger.Warn("valkey unavailable, using in-memory view registry", "error", err)
			scfg.Registry = leaflet.NewMemoryRegistry(cfg.Render.RegistrySize, cfg.Render.RegistryTTL)
			break
		}
		a.closer = vk.Close
		scfg.Registry = cache.NewRegistry(vk, cfg.Valkey.Prefix, cfg.Render.RegistryTTL, logger)
	default:
		scfg.Registry = leaflet.NewMemoryRegistry(cfg.Render.RegistrySize, cfg.Render.RegistryTTL)
	}
	return a, scfg, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		a, scfg, err := setup(opts)
		if err != nil {
			fatal("Config error: %v", err)
		}
		srv, err := server.New(scfg)
		if err != nil {
			fatal("Server error: %v", err)
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler: srv,
		}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			a.logger.Info("plat-leaflet API server starting",
				"server", baseURL,
				"data", opts.DataDir,
				"docs", baseURL+"/docs",
				"openapi", baseURL+"/openapi.json",
				"registry", a.cfg.Render.Registry,
			)

			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fatal("Server error: %v", err)
			}
		})

		hooks.OnStop(func() {
			httpSrv.Shutdown(context.Background())
			srv.Close()
			a.closer()
		})
	})

	cli.Root().Use = "leafletmap"
	cli.Root().Short = "Render geometry records and map presets as Leaflet maps"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.NoDB = true
			_, scfg, err := setup(opts)
			if err != nil {
				fatal("Config error: %v", err)
			}
			srv, err := server.New(scfg)
			if err != nil {
				fatal("Server error: %v", err)
			}
			spec := srv.API().OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec: %v", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// render subcommand: records file in, map view (or HTML) out
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render a records file with a preset and print the map view",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			a, scfg, err := setup(opts)
			if err != nil {
				fatal("Config error: %v", err)
			}
			defer a.closer()

			presetID, _ := cmd.Flags().GetString("preset")
			recordsPath, _ := cmd.Flags().GetString("records")
			container, _ := cmd.Flags().GetString("container")
			asHTML, _ := cmd.Flags().GetBool("html")

			var records []leaflet.GeometryRecord
			if recordsPath != "" {
				data, err := os.ReadFile(recordsPath)
				if err != nil {
					fatal("Error reading records: %v", err)
				}
				if records, err = leaflet.DecodeRecords(data); err != nil {
					fatal("Error decoding records: %v", err)
				}
			}

			presets := service.NewPresetService(opts.DataDir, nil)
			maps := service.NewMapService(presets,
				leaflet.NewAssembler(scfg.Registry, a.logger),
				service.WithDefaultPreset(scfg.DefaultPreset),
				service.WithDefaultPolicy(scfg.DefaultPolicy),
				service.WithLogger(a.logger),
			)
			view, err := maps.Render(context.Background(), service.RenderInput{
				ContainerID: container,
				PresetID:    presetID,
				Records:     records,
			})
			if err != nil {
				fatal("Error rendering map: %v", err)
			}

			if asHTML {
				r, err := templates.New("")
				if err != nil {
					fatal("Error loading templates: %v", err)
				}
				page, err := r.Page(view, "/static/leaflet.map.js")
				if err != nil {
					fatal("Error rendering HTML: %v", err)
				}
				fmt.Println(page)
				return
			}
			out, err := json.MarshalIndent(view, "", "  ")
			if err != nil {
				fatal("Error marshaling view: %v", err)
			}
			fmt.Println(string(out))
		}),
	}
	renderCmd.Flags().String("preset", "", "Preset ID (default from config)")
	renderCmd.Flags().String("records", "", "JSON file with geometry records")
	renderCmd.Flags().String("container", "leaflet-map", "Map container ID")
	renderCmd.Flags().Bool("html", false, "Print a standalone HTML page instead of JSON")
	cli.Root().AddCommand(renderCmd)

	// import-presets subcommand: merge presets from YAML into the data dir
	importCmd := &cobra.Command{
		Use:   "import-presets <file.yaml>",
		Short: "Import map presets from a YAML file",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				fatal("Error reading presets: %v", err)
			}
			ids, err := service.NewPresetService(opts.DataDir, nil).ImportYAML(data)
			if err != nil {
				fatal("Error importing presets: %v", err)
			}
			for _, id := range ids {
				fmt.Println(id)
			}
		}),
	}
	cli.Root().AddCommand(importCmd)

	cli.Run()
}
