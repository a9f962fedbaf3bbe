package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-map/internal/service"
)

// LoaderName is the options["loader"] value that selects SQLLoader.
const LoaderName = "duckdb"

// SQLLoader turns a DuckDB query into features. The query comes from
// options["query"]; the column named by options["geometry"] (default
// "geometry") must hold GeoJSON text, e.g. ST_AsGeoJSON(geom). Every other
// column becomes a feature property.
type SQLLoader struct {
	db *DB
}

// NewSQLLoader creates a loader over d.
func NewSQLLoader(d *DB) *SQLLoader {
	return &SQLLoader{db: d}
}

func (l *SQLLoader) Load(ctx context.Context, desc service.SourceDescriptor) (*geojson.FeatureCollection, error) {
	query, _ := desc.Options["query"].(string)
	if query == "" {
		return nil, errors.New("options.query is required")
	}
	geomCol, _ := desc.Options["geometry"].(string)
	if geomCol == "" {
		geomCol = "geometry"
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	geomIdx := -1
	for i, c := range columns {
		if c == geomCol {
			geomIdx = i
		}
	}
	if geomIdx < 0 {
		return nil, fmt.Errorf("query has no %q column", geomCol)
	}

	fc := geojson.NewFeatureCollection()
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		raw := text(values[geomIdx])
		if raw == "" {
			continue
		}
		g, err := geojson.UnmarshalGeometry([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(fc.Features), err)
		}

		f := geojson.NewFeature(g.Geometry())
		for i, c := range columns {
			if i == geomIdx {
				continue
			}
			if b, ok := values[i].([]byte); ok {
				f.Properties[c] = string(b)
				continue
			}
			f.Properties[c] = values[i]
		}
		fc.Append(f)
	}
	return fc, rows.Err()
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}
