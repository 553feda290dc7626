package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "json", slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("map rendered", "map", "leaflet-map-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output %q is not one JSON line: %v", buf.String(), err)
	}
	if entry["msg"] != "map rendered" || entry["map"] != "leaflet-map-1" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestNewHandlerText(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "TEXT", slog.LevelDebug))

	logger.Debug("skipping record", "type", "hexagon")

	if !strings.Contains(buf.String(), "type=hexagon") {
		t.Fatalf("text output = %q", buf.String())
	}
}
