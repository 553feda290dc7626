package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/joeblew999/plat-leaflet/internal/leaflet"
	"github.com/joeblew999/plat-leaflet/internal/metrics"
)

// Store is the subset of a key/value cache the registry needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Registry is a leaflet.ViewRegistry shared by every process using the same
// store. Backend errors are logged and treated as a miss, so a broken cache
// degrades to rebuilding views.
type Registry struct {
	store  Store
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRegistry returns a registry storing views under prefix+containerID.
func NewRegistry(store Store, prefix string, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, prefix: prefix, ttl: ttl, logger: logger}
}

func (r *Registry) Load(ctx context.Context, containerID string) (*leaflet.MapView, bool) {
	b, err := r.store.Get(ctx, r.prefix+containerID)
	if errors.Is(err, ErrMiss) {
		return nil, false
	}
	if err != nil {
		metrics.RegistryErrors.WithLabelValues("get").Inc()
		r.logger.Warn("view registry get failed", "map", containerID, "error", err)
		return nil, false
	}
	var v leaflet.MapView
	if err := json.Unmarshal(b, &v); err != nil {
		metrics.RegistryErrors.WithLabelValues("decode").Inc()
		r.logger.Warn("view registry entry unreadable", "map", containerID, "error", err)
		return nil, false
	}
	return &v, true
}

func (r *Registry) LoadOrStore(ctx context.Context, containerID string, v *leaflet.MapView) (*leaflet.MapView, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		metrics.RegistryErrors.WithLabelValues("encode").Inc()
		r.logger.Warn("view not storable", "map", containerID, "error", err)
		return v, false
	}
	stored, err := r.store.SetNX(ctx, r.prefix+containerID, b, r.ttl)
	if err != nil {
		metrics.RegistryErrors.WithLabelValues("set").Inc()
		r.logger.Warn("view registry set failed", "map", containerID, "error", err)
		return v, false
	}
	if stored {
		return v, false
	}
	// Another caller bound the container first.
	if existing, ok := r.Load(ctx, containerID); ok {
		return existing, true
	}
	return v, false
}

func (r *Registry) Forget(ctx context.Context, containerID string) {
	if err := r.store.Delete(ctx, r.prefix+containerID); err != nil {
		metrics.RegistryErrors.WithLabelValues("delete").Inc()
		r.logger.Warn("view registry delete failed", "map", containerID, "error", err)
	}
}

var _ leaflet.ViewRegistry = (*Registry)(nil)
