package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// decodeGeoJSON turns inline or fetched data into a FeatureCollection.
// A lone Feature or Geometry is wrapped in a collection.
func decodeGeoJSON(data any) (*geojson.FeatureCollection, error) {
	switch v := data.(type) {
	case nil:
		return nil, errors.New("no data")
	case *geojson.FeatureCollection:
		return v, nil
	case geojson.FeatureCollection:
		return &v, nil
	case *geojson.Feature:
		fc := geojson.NewFeatureCollection()
		return fc.Append(v), nil
	case orb.Geometry:
		fc := geojson.NewFeatureCollection()
		return fc.Append(geojson.NewFeature(v)), nil
	case []byte:
		return parseGeoJSON(v)
	case json.RawMessage:
		return parseGeoJSON(v)
	case string:
		return parseGeoJSON([]byte(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding inline geojson: %w", err)
		}
		return parseGeoJSON(raw)
	}
}

func parseGeoJSON(raw []byte) (*geojson.FeatureCollection, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}

	switch head.Type {
	case "FeatureCollection":
		return geojson.UnmarshalFeatureCollection(raw)
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, err
		}
		return geojson.NewFeatureCollection().Append(f), nil
	case "Point", "MultiPoint", "LineString", "MultiLineString", "Polygon", "MultiPolygon", "GeometryCollection":
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, err
		}
		return geojson.NewFeatureCollection().Append(geojson.NewFeature(g.Geometry())), nil
	default:
		return nil, fmt.Errorf("parsing geojson: unsupported type %q", head.Type)
	}
}

// ParseGeoJSON parses a GeoJSON document. A lone Feature or Geometry is
// wrapped in a collection.
func ParseGeoJSON(raw []byte) (*geojson.FeatureCollection, error) {
	return parseGeoJSON(raw)
}
