package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brunoga/deep"
	"gopkg.in/yaml.v3"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrPresetExists   = errors.New("preset already exists")
)

// PresetService manages map presets.
type PresetService struct {
	dataDir string
	bus     *EventBus
	presets map[string]MapPreset
	mu      sync.RWMutex
	now     func() time.Time
}

// NewPresetService loads presets from dataDir, falling back to the built-in
// catalog. bus may be nil.
func NewPresetService(dataDir string, bus *EventBus) *PresetService {
	s := &PresetService{
		dataDir: dataDir,
		bus:     bus,
		presets: builtinPresets(),
		now:     time.Now,
	}
	s.loadFromDisk()
	return s
}

// List returns all presets sorted by ID.
func (s *PresetService) List() []MapPreset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]MapPreset, 0, len(s.presets))
	for _, p := range s.presets {
		result = append(result, deep.MustCopy(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Get returns a copy of a preset, safe to mutate.
func (s *PresetService) Get(id string) (MapPreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.presets[id]
	if !ok {
		return MapPreset{}, fmt.Errorf("%w: %q", ErrPresetNotFound, id)
	}
	c, err := deep.Copy(p)
	if err != nil {
		return MapPreset{}, fmt.Errorf("copying preset %q: %w", id, err)
	}
	return c, nil
}

// Create adds a new preset.
func (s *PresetService) Create(p MapPreset) (MapPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Generate ID from label if not provided
	if p.ID == "" {
		p.ID = generateID(p.Label)
	}
	if p.ID == "" {
		return MapPreset{}, fmt.Errorf("preset needs an id or a label with letters or digits")
	}
	if _, exists := s.presets[p.ID]; exists {
		return MapPreset{}, fmt.Errorf("%w: %q", ErrPresetExists, p.ID)
	}

	p.UpdatedAt = s.now()
	s.presets[p.ID] = p
	if err := s.saveToDisk(); err != nil {
		delete(s.presets, p.ID)
		return MapPreset{}, err
	}

	s.publish("created", p.ID)
	return p, nil
}

// Update replaces a preset by ID.
func (s *PresetService) Update(id string, p MapPreset) (MapPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.presets[id]
	if !exists {
		return MapPreset{}, fmt.Errorf("%w: %q", ErrPresetNotFound, id)
	}

	p.ID = id
	p.UpdatedAt = s.now()
	s.presets[id] = p
	if err := s.saveToDisk(); err != nil {
		s.presets[id] = prev
		return MapPreset{}, err
	}

	s.publish("updated", id)
	return p, nil
}

// Delete removes a preset by ID.
func (s *PresetService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.presets[id]
	if !exists {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, id)
	}

	delete(s.presets, id)
	if err := s.saveToDisk(); err != nil {
		s.presets[id] = prev
		return err
	}

	s.publish("deleted", id)
	return nil
}

// ImportYAML merges presets from a YAML document shaped as
// `presets: [{id, label, map: {...}}]`. Existing IDs are replaced.
// It returns the imported IDs in document order. Either every preset is
// imported or none is.
func (s *PresetService) ImportYAML(data []byte) ([]string, error) {
	var doc struct {
		Presets []MapPreset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing presets yaml: %w", err)
	}

	ids := make([]string, 0, len(doc.Presets))
	for i := range doc.Presets {
		p := &doc.Presets[i]
		if p.ID == "" {
			p.ID = generateID(p.Label)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("preset %q: no usable id", p.Label)
		}
		ids = append(ids, p.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := maps.Clone(s.presets)
	now := s.now()
	for _, p := range doc.Presets {
		p.UpdatedAt = now
		s.presets[p.ID] = p
	}
	if err := s.saveToDisk(); err != nil {
		s.presets = prev
		return nil, err
	}

	for _, id := range ids {
		s.publish("imported", id)
	}
	return ids, nil
}

func (s *PresetService) publish(action, id string) {
	if s.bus != nil {
		s.bus.Publish(Event{Resource: "presets", Action: action, ID: id})
	}
}

// configFile returns the path to the presets file.
func (s *PresetService) configFile() string {
	return filepath.Join(s.dataDir, "presets.json")
}

// loadFromDisk replaces the built-in catalog with presets.json when present.
func (s *PresetService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // File doesn't exist yet, keep built-ins
	}

	var presets map[string]MapPreset
	if err := json.Unmarshal(data, &presets); err != nil {
		slog.Warn("ignoring invalid presets file", "path", s.configFile(), "error", err)
		return
	}
	for id, p := range presets {
		p.ID = id
		presets[id] = p
	}
	s.presets = presets
}

// saveToDisk persists presets to disk.
func (s *PresetService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.presets, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a label.
func generateID(label string) string {
	id := strings.ToLower(strings.TrimSpace(label))
	id = strings.ReplaceAll(id, " ", "_")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
