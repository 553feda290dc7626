package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/joeblew999/plat-leaflet/internal/leaflet"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// FeatureQuery runs query and turns each row into a GeoJSON record. The
// result must have a "geojson" column (text or blob) and may have "id",
// "popup" and "label" columns. With the spatial extension a typical query is
//
//	SELECT ST_AsGeoJSON(geom) AS geojson, name AS label FROM stations
func FeatureQuery(ctx context.Context, q Queryer, query string, args ...any) ([]leaflet.GeometryRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("feature query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("feature query columns: %w", err)
	}
	geomCol := -1
	for i, c := range columns {
		if c == "geojson" {
			geomCol = i
		}
	}
	if geomCol < 0 {
		return nil, fmt.Errorf("feature query: no geojson column in %v", columns)
	}

	records := []leaflet.GeometryRecord{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("feature query scan: %w", err)
		}

		payload := asBytes(values[geomCol])
		if len(payload) == 0 {
			continue
		}
		blob := &leaflet.GeoJSONBlob{Payload: json.RawMessage(payload)}
		for i, c := range columns {
			switch c {
			case "id":
				blob.ID = asString(values[i])
			case "popup":
				blob.Popup = asString(values[i])
			case "label":
				blob.Label = asString(values[i])
			}
		}
		records = append(records, blob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("feature query rows: %w", err)
	}
	return records, nil
}

func asBytes(v any) []byte {
	switch v := v.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return nil
}

func asString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	return fmt.Sprint(v)
}
