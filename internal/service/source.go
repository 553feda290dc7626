package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-leaflet/internal/leaflet"
)

// SourceService manages GeoJSON source files under <data>/sources.
type SourceService struct {
	sourcesDir string
}

// NewSourceService creates a new source service.
func NewSourceService(dataDir string) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
	}
}

var sourceExts = map[string]string{
	".geojson": "GeoJSON",
	".json":    "GeoJSON",
}

// List returns all available source files.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileType, ok := sourceExts[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}

	return files, nil
}

// Load reads a source file as a GeoJSON record. The file name becomes the
// record's ID; label and popup are left to the caller.
func (s *SourceService) Load(name string) (*leaflet.GeoJSONBlob, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid source name %q", name)
	}
	if _, ok := sourceExts[strings.ToLower(filepath.Ext(name))]; !ok {
		return nil, fmt.Errorf("source %q is not GeoJSON", name)
	}
	data, err := os.ReadFile(filepath.Join(s.sourcesDir, name))
	if err != nil {
		return nil, fmt.Errorf("reading source %q: %w", name, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("source %q is not valid JSON", name)
	}
	return &leaflet.GeoJSONBlob{
		Meta:    leaflet.Meta{ID: name},
		Payload: json.RawMessage(data),
	}, nil
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
