package leaflet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joeblew999/plat-leaflet/internal/metrics"
)

// ErrNoContainer is returned when a map is assembled without a container ID.
var ErrNoContainer = errors.New("leaflet: empty container id")

// ViewMode says how the browser positions the map.
type ViewMode string

const (
	ViewSet     ViewMode = "setView"
	ViewFit     ViewMode = "fitBounds"
	ViewDefault ViewMode = "default"
)

// View is the initial map position.
type View struct {
	Mode   ViewMode `json:"mode" enum:"setView,fitBounds,default"`
	Center *LatLng  `json:"center,omitempty"`
	Zoom   *int     `json:"zoom,omitempty" doc:"Set in setView mode, including zoom 0"`
	Fit    *Box     `json:"fit,omitempty"`
}

// LayerControl lists what the layer switcher registers.
type LayerControl struct {
	BaseLayers []string `json:"baseLayers"`
	Overlays   []string `json:"overlays"`
}

// MapView is a fully assembled map, ready for leaflet.map.js.
type MapView struct {
	ContainerID string            `json:"mapId" doc:"DOM id of the map container"`
	Label       string            `json:"label,omitempty"`
	Options     Options           `json:"options,omitempty" doc:"L.Map options"`
	Layers      []RenderableLayer `json:"layers"`
	ActiveLayer string            `json:"activeLayer,omitempty" doc:"Key of the layer added immediately"`
	Features    []Feature         `json:"features"`
	Control     *LayerControl     `json:"layerControl,omitempty"`
	View        View              `json:"view"`
	Attribution *Attribution      `json:"attribution,omitempty"`
	Height      string            `json:"height"`
}

// ViewRegistry binds views to container IDs.
type ViewRegistry interface {
	Load(ctx context.Context, containerID string) (*MapView, bool)
	// LoadOrStore returns the existing view and true, or stores v and
	// returns it with false.
	LoadOrStore(ctx context.Context, containerID string, v *MapView) (*MapView, bool)
	// Forget unbinds a container ID so the next Assemble builds afresh.
	Forget(ctx context.Context, containerID string)
}

var defaultRegistry = NewMemoryRegistry(1024, time.Hour)

// Assembler builds map views. The zero value shares a process-wide
// in-memory registry.
type Assembler struct {
	Registry ViewRegistry
	Logger   *slog.Logger
}

// NewAssembler returns an assembler bound to reg.
func NewAssembler(reg ViewRegistry, logger *slog.Logger) *Assembler {
	return &Assembler{Registry: reg, Logger: logger}
}

// Assemble returns the view bound to containerID, building it from spec,
// features and bounds on first use. Later calls with the same container ID
// return the first view unchanged.
func (a *Assembler) Assemble(ctx context.Context, containerID string, spec *MapSpec, features []Feature, bounds *Bounds) (*MapView, error) {
	if containerID == "" {
		return nil, ErrNoContainer
	}
	reg := a.registry()
	if v, ok := reg.Load(ctx, containerID); ok {
		metrics.MapsAssembled.WithLabelValues("reused").Inc()
		return v, nil
	}

	start := time.Now()
	v := a.build(containerID, spec, features, bounds)
	metrics.AssembleDuration.Observe(time.Since(start).Seconds())

	v, loaded := reg.LoadOrStore(ctx, containerID, v)
	if loaded {
		metrics.MapsAssembled.WithLabelValues("reused").Inc()
	} else {
		metrics.MapsAssembled.WithLabelValues("created").Inc()
	}
	return v, nil
}

func (a *Assembler) build(containerID string, spec *MapSpec, features []Feature, bounds *Bounds) *MapView {
	if spec == nil {
		spec = &MapSpec{}
	}
	v := &MapView{
		ContainerID: containerID,
		Label:       spec.Label,
		Options:     spec.Settings.Options.Clone().Merge(Options{"attributionControl": spec.Settings.AttributionControl}),
		Features:    features,
		Height:      spec.height(),
	}
	if v.Features == nil {
		v.Features = []Feature{}
	}

	layers, active := Materialize(spec.Layers, spec.policy())
	v.Layers = layers
	if active >= 0 {
		v.ActiveLayer = layers[active].Key
	}

	if spec.Settings.LayerControl {
		ctl := &LayerControl{BaseLayers: spec.Layers.Keys(), Overlays: []string{}}
		if ctl.BaseLayers == nil {
			ctl.BaseLayers = []string{}
		}
		for _, f := range features {
			if f.Kind == KindGroup && f.Label != "" {
				ctl.Overlays = append(ctl.Overlays, f.Label)
			}
		}
		v.Control = ctl
	}

	v.View = a.position(containerID, spec, bounds)

	if spec.Settings.AttributionControl && spec.Attribution != nil {
		if spec.Attribution.Prefix != "" || spec.Attribution.Text != "" {
			attr := *spec.Attribution
			v.Attribution = &attr
		}
	}
	return v
}

// position uses an explicit center verbatim, else fits the bounds. With no
// center and no coordinates the map keeps the engine default position.
func (a *Assembler) position(containerID string, spec *MapSpec, bounds *Bounds) View {
	if spec.Center != nil {
		c := *spec.Center
		zoom := spec.Settings.Zoom
		return View{Mode: ViewSet, Center: &c, Zoom: &zoom}
	}
	box, err := bounds.Box()
	if errors.Is(err, ErrEmptyBounds) {
		metrics.EmptyBounds.Inc()
		a.logger().Warn("no center and no coordinates, leaving default view", "map", containerID)
		return View{Mode: ViewDefault}
	}
	return View{Mode: ViewFit, Fit: &box}
}

// Forget releases the view bound to containerID.
func (a *Assembler) Forget(ctx context.Context, containerID string) {
	a.registry().Forget(ctx, containerID)
}

func (a *Assembler) registry() ViewRegistry {
	if a.Registry != nil {
		return a.Registry
	}
	return defaultRegistry
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
