package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-map/internal/provider"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/universal"
)

const mapFile = `
map:
  provider: mapbox
  center: [-74.006, 40.7128]
  zoom: 12
  apiKey: ${PLATMAP_TEST_TOKEN}
  style: streets
fixtures:
  mock://buildings-nyc: buildings.geojson
sources:
  - id: nyc
    type: mock
    data: mock://buildings-nyc
layers:
  - id: buildings
    type: polygons
    sourceId: nyc
    style:
      fillColor: "#ff0000"
    opacity: 0.7
  - id: basemap
    type: raster-tiles
    source: https://tile.openstreetmap.org/{z}/{x}/{y}.png
    minZoom: 0
    maxZoom: 19
  - id: parks
    type: geojson
    source:
      type: FeatureCollection
      features:
        - type: Feature
          geometry:
            type: Point
            coordinates: [-73.97, 40.78]
          properties:
            name: Central Park
`

const buildings = `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[-74.0,40.7]},"properties":{}}]}`

func writeMapFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "map.yaml"), []byte(mapFile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "buildings.geojson"), []byte(buildings), 0o644))
	return filepath.Join(dir, "map.yaml")
}

func TestLoad(t *testing.T) {
	t.Setenv("PLATMAP_TEST_TOKEN", "pk.secret")

	f, err := Load(writeMapFile(t))
	require.NoError(t, err)

	assert.Equal(t, provider.Mapbox, f.Map.Provider)
	assert.Equal(t, orb.Point{-74.006, 40.7128}, f.Map.Center)
	assert.Equal(t, 12.0, f.Map.Zoom)
	assert.Equal(t, "pk.secret", f.Map.APIKey)

	require.Len(t, f.Sources, 1)
	assert.Equal(t, "nyc", f.Sources[0].ID)
	assert.Equal(t, service.SourceMock, f.Sources[0].Type)

	require.Len(t, f.Layers, 3)
	assert.Equal(t, "nyc", f.Layers[0].SourceID)
	assert.Equal(t, 0.7, f.Layers[0].OpacityValue())
	assert.Equal(t, "#ff0000", f.Layers[0].Style["fillColor"])
	assert.Equal(t, 19.0, *f.Layers[1].MaxZoom)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Parse([]byte("map: [unclosed"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	t.Setenv("PLATMAP_TEST_TOKEN", "pk.secret")

	f, err := Load(writeMapFile(t))
	require.NoError(t, err)

	sources := service.NewSourceFactory(service.NewHTTPFetcher(0))
	require.NoError(t, f.RegisterFixtures(sources))

	m := universal.New(provider.NewFactory(sources), f.Map)
	require.NoError(t, m.Initialize(context.Background()))
	t.Cleanup(m.Destroy)
	require.NoError(t, f.Apply(m))

	layers, err := m.Layers()
	require.NoError(t, err)
	require.Len(t, layers, 3)
	assert.Equal(t, service.SourceTiles, layers[1].Source.(service.SourceDescriptor).Type)

	p, err := m.LayerData(context.Background(), "buildings")
	require.NoError(t, err)
	assert.Len(t, p.Features.Features, 1)

	p, err = m.LayerData(context.Background(), "parks")
	require.NoError(t, err)
	require.Len(t, p.Features.Features, 1)
	assert.Equal(t, "Central Park", p.Features.Features[0].Properties["name"])
}

func TestApply_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	f, err := Parse([]byte(`
map:
  provider: leaflet
layers:
  - id: ok
    type: points
    source: mock://ok
  - id: bad
    type: points
    source: mock://bad
    opacity: 2
`))
	require.NoError(t, err)

	m := universal.New(provider.NewFactory(service.NewSourceFactory(nil)), f.Map)
	require.NoError(t, m.Initialize(context.Background()))
	t.Cleanup(m.Destroy)

	err = f.Apply(m)
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Contains(t, err.Error(), `layer "bad"`)
}
