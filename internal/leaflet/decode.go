package leaflet

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-leaflet/internal/metrics"
)

// wireRecord is the JSON shape of a record as the CMS layer emits it.
type wireRecord struct {
	Type      Kind            `json:"type"`
	Group     bool            `json:"group"`
	Cluster   bool            `json:"cluster"`
	ID        json.RawMessage `json:"id"`
	Popup     string          `json:"popup"`
	Label     string          `json:"label"`
	Options   Options         `json:"options"`
	Lat       float64         `json:"lat"`
	Lon       float64         `json:"lon"`
	Icon      *IconDescriptor `json:"icon"`
	Points    []LatLng        `json:"points"`
	Component []struct {
		Points []LatLng `json:"points"`
	} `json:"component"`
	JSON     json.RawMessage   `json:"json"`
	Features []json.RawMessage `json:"features"`
}

// DecodeRecords parses a JSON array of records. Records with an unknown type
// are skipped; only malformed JSON is an error.
func DecodeRecords(data []byte) ([]GeometryRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return decodeList(raw)
}

func decodeList(raw []json.RawMessage) ([]GeometryRecord, error) {
	records := make([]GeometryRecord, 0, len(raw))
	for i, r := range raw {
		rec, err := decodeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func decodeRecord(data []byte) (GeometryRecord, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	meta := Meta{ID: recordID(w.ID), Popup: w.Popup, Label: w.Label, Style: w.Options}

	if w.Group || w.Type == KindGroup {
		members, err := decodeList(w.Features)
		if err != nil {
			return nil, err
		}
		return &Group{Meta: meta, Cluster: w.Cluster, Members: members}, nil
	}

	switch w.Type {
	case KindPoint:
		return &Point{Meta: meta, LatLng: LatLng{Lat: w.Lat, Lon: w.Lon}, Icon: w.Icon}, nil
	case KindLineString:
		return &LineString{Meta: meta, Points: w.Points}, nil
	case KindPolygon:
		return &Polygon{Meta: meta, Points: w.Points}, nil
	case KindMultiPolygon, KindMultiLineString:
		comps := make([][]LatLng, len(w.Component))
		for i, c := range w.Component {
			comps[i] = c.Points
		}
		if w.Type == KindMultiPolygon {
			return &MultiPolygon{Meta: meta, Components: comps}, nil
		}
		return &MultiLineString{Meta: meta, Components: comps}, nil
	case KindGeoJSON:
		payload := w.JSON
		// Some producers send the GeoJSON document as an encoded string.
		var s string
		if json.Unmarshal(payload, &s) == nil {
			payload = json.RawMessage(s)
		}
		return &GeoJSONBlob{Meta: meta, Payload: payload}, nil
	}

	slog.Debug("skipping record with unknown type", "type", w.Type)
	metrics.RecordsSkipped.WithLabelValues(string(w.Type)).Inc()
	return nil, nil
}

// recordID accepts string and numeric ids. Numbers keep their literal digits.
func recordID(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// RecordList is a decoded record array usable as a huma request body.
type RecordList []GeometryRecord

// UnmarshalJSON implements json.Unmarshaler.
func (l *RecordList) UnmarshalJSON(data []byte) error {
	recs, err := DecodeRecords(data)
	if err != nil {
		return err
	}
	*l = recs
	return nil
}

// Schema describes the record array for OpenAPI. Records are tagged objects;
// the exact shape depends on "type", so properties are left open.
func (RecordList) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:        huma.TypeArray,
		Description: "Geometry records: point, linestring, polygon, multipolygon, multipolyline, json, group",
		Items: &huma.Schema{
			Type:                 huma.TypeObject,
			AdditionalProperties: true,
			Properties: map[string]*huma.Schema{
				"type":  {Type: huma.TypeString, Description: "Record type"},
				"id":    {Type: huma.TypeString, Description: "Stable identifier"},
				"popup": {Type: huma.TypeString, Description: "Popup markup"},
				"label": {Type: huma.TypeString, Description: "Title or group label"},
				"group": {Type: huma.TypeBoolean, Description: "Marks a feature group"},
			},
		},
	}
}

var _ huma.SchemaProvider = RecordList(nil)
