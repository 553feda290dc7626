package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joeblew999/plat-leaflet/internal/leaflet"
)

// RenderInput describes one map to render. Spec, when set, is used instead
// of the preset.
type RenderInput struct {
	ContainerID string
	PresetID    string
	Spec        *leaflet.MapSpec
	Records     []leaflet.GeometryRecord
}

// MapService resolves presets and runs the normalize and assemble stages.
type MapService struct {
	presets       *PresetService
	assembler     *leaflet.Assembler
	parser        leaflet.GeoJSONParser
	defaultPreset string
	defaultPolicy leaflet.ActivePolicy
	logger        *slog.Logger
}

// MapServiceOption configures a MapService.
type MapServiceOption func(*MapService)

// WithDefaultPreset sets the preset used when a request names none.
func WithDefaultPreset(id string) MapServiceOption {
	return func(s *MapService) { s.defaultPreset = id }
}

// WithDefaultPolicy sets the active layer policy for specs that leave it empty.
func WithDefaultPolicy(p leaflet.ActivePolicy) MapServiceOption {
	return func(s *MapService) { s.defaultPolicy = p }
}

// WithGeoJSONParser replaces the GeoJSON delegate.
func WithGeoJSONParser(p leaflet.GeoJSONParser) MapServiceOption {
	return func(s *MapService) { s.parser = p }
}

// WithLogger sets the logger handed to the pipeline.
func WithLogger(l *slog.Logger) MapServiceOption {
	return func(s *MapService) { s.logger = l }
}

// NewMapService creates a map service. A nil assembler uses the process-wide
// in-memory registry.
func NewMapService(presets *PresetService, assembler *leaflet.Assembler, opts ...MapServiceOption) *MapService {
	s := &MapService{
		presets:       presets,
		assembler:     assembler,
		defaultPreset: "osm",
		defaultPolicy: leaflet.FirstWins,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.assembler == nil {
		s.assembler = &leaflet.Assembler{Logger: s.logger}
	}
	return s
}

// ResolveSpec returns the spec a render would use.
func (s *MapService) ResolveSpec(in RenderInput) (*leaflet.MapSpec, error) {
	if in.Spec != nil {
		spec := *in.Spec
		return s.withDefaults(&spec), nil
	}
	id := in.PresetID
	if id == "" {
		id = s.defaultPreset
	}
	if s.presets == nil {
		return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, id)
	}
	p, err := s.presets.Get(id)
	if err != nil {
		return nil, err
	}
	return s.withDefaults(&p.Map), nil
}

func (s *MapService) withDefaults(spec *leaflet.MapSpec) *leaflet.MapSpec {
	if spec.ActivePolicy == "" {
		spec.ActivePolicy = s.defaultPolicy
	}
	return spec
}

// Render normalizes the records and assembles the view for the container.
func (s *MapService) Render(ctx context.Context, in RenderInput) (*leaflet.MapView, error) {
	spec, err := s.ResolveSpec(in)
	if err != nil {
		return nil, err
	}

	n := leaflet.Normalizer{Parser: s.parser, Icon: spec.Icon, Logger: s.logger}
	features, bounds := n.Normalize(in.Records)

	view, err := s.assembler.Assemble(ctx, in.ContainerID, spec, features, bounds)
	if err != nil {
		return nil, fmt.Errorf("assembling map %q: %w", in.ContainerID, err)
	}
	s.logger.Debug("map rendered",
		"map", in.ContainerID,
		"features", len(view.Features),
		"layers", len(view.Layers),
		"view", view.View.Mode,
	)
	return view, nil
}

// Forget drops the view bound to containerID, so the next Render for it
// assembles from the records it is given.
func (s *MapService) Forget(ctx context.Context, containerID string) {
	s.assembler.Forget(ctx, containerID)
}

// IsNotFound reports whether err means a preset does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPresetNotFound)
}
