package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLayerManager() (*LayerManager, *SourceManager) {
	sources := NewSourceFactory(NewHTTPFetcher(0))
	registry := NewSourceManager(sources)
	return NewLayerManager(NewLayerFactory(sources, registry)), registry
}

func TestLayerRules_CoverEveryType(t *testing.T) {
	t.Parallel()
	for _, lt := range LayerTypes() {
		_, ok := layerRules[lt]
		assert.True(t, ok, "no rule for %s", lt)
	}
	assert.Len(t, layerRules, len(LayerTypes()))
}

func TestLayerManager_Add(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()

	desc, err := m.Add(LayerDescriptor{
		ID:     "buildings",
		Type:   LayerPolygons,
		Source: "mock://buildings-nyc",
		Style:  map[string]any{"fillColor": "#ff0000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "buildings", desc.ID)
	assert.True(t, desc.IsVisible())
	assert.Equal(t, 1.0, desc.OpacityValue())
	assert.Equal(t, SourceDescriptor{Type: SourceMock, Data: "mock://buildings-nyc"}, desc.Source)

	p, err := m.Load(context.Background(), "buildings")
	require.NoError(t, err)
	assert.Equal(t, SourceMock, p.Type)
}

func TestLayerManager_DuplicateKeepsFirst(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()

	_, err := m.Add(LayerDescriptor{ID: "a", Type: LayerPoints, Source: "mock://one", Name: "first"})
	require.NoError(t, err)

	_, err = m.Add(LayerDescriptor{ID: "a", Type: LayerHeatmap, Source: "mock://two", Name: "second"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	got, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, LayerPoints, got.Type)
	assert.Equal(t, 1, m.Len())
}

func TestLayerManager_AddMissingFields(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()

	tests := []struct {
		name  string
		desc  LayerDescriptor
		field string
	}{
		{name: "no id", desc: LayerDescriptor{Type: LayerPoints, Source: "mock://x"}, field: "id"},
		{name: "no type", desc: LayerDescriptor{ID: "x", Source: "mock://x"}, field: "type"},
		{name: "no source", desc: LayerDescriptor{ID: "x", Type: LayerPoints}, field: "source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Add(tt.desc)
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
	assert.Equal(t, 0, m.Len())
}

func TestLayerManager_AddRejects(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()

	_, err := m.Add(LayerDescriptor{ID: "x", Type: "hexbin", Source: "mock://x"})
	assert.ErrorIs(t, err, ErrUnsupportedLayerType)

	_, err = m.Add(LayerDescriptor{ID: "x", Type: LayerPoints, Source: SourceDescriptor{Type: "shapefile"}})
	assert.ErrorIs(t, err, ErrUnsupportedSourceType)

	_, err = m.Add(LayerDescriptor{ID: "x", Type: Layer3DTiles, Source: "mock://x"})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = m.Add(LayerDescriptor{ID: "x", Type: LayerPoints, Source: "mock://x", Opacity: Ptr(1.5)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = m.Add(LayerDescriptor{ID: "x", Type: LayerPoints, Source: "mock://x", MinZoom: Ptr(12.0), MaxZoom: Ptr(4.0)})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 0, m.Len())
}

func TestLayerManager_RetagsURLShorthand(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()

	tests := []struct {
		layer LayerType
		url   string
		want  SourceType
	}{
		{LayerVectorTiles, "https://t/{z}/{x}/{y}.pbf", SourceTiles},
		{LayerRasterTiles, "https://t/{z}/{x}/{y}.png", SourceTiles},
		{Layer3DTiles, "https://t/city/tileset.json", Source3DTiles},
		{LayerGeoJSON, "https://example.com/a.geojson", SourceURL},
	}
	for _, tt := range tests {
		desc, err := m.Add(LayerDescriptor{ID: string(tt.layer), Type: tt.layer, Source: tt.url})
		require.NoError(t, err)
		sd, ok := desc.Source.(SourceDescriptor)
		require.True(t, ok)
		assert.Equal(t, tt.want, sd.Type, tt.layer)
		assert.Equal(t, tt.url, sd.URL)
	}
}

func TestLayerManager_SourceReference(t *testing.T) {
	t.Parallel()
	m, registry := newTestLayerManager()

	_, err := m.Add(LayerDescriptor{ID: "a", Type: LayerPoints, SourceID: "nyc"})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = registry.Register("nyc", "mock://buildings-nyc")
	require.NoError(t, err)
	_, err = registry.Register("tiles", SourceDescriptor{Type: SourceTiles, URL: "https://t/{z}/{x}/{y}.png"})
	require.NoError(t, err)

	_, err = m.Add(LayerDescriptor{ID: "a", Type: LayerPoints, SourceID: "tiles"})
	assert.ErrorIs(t, err, ErrConfiguration)

	desc, err := m.Add(LayerDescriptor{ID: "a", Type: LayerPoints, SourceID: "nyc"})
	require.NoError(t, err)
	assert.Equal(t, "nyc", desc.SourceID)
	assert.Nil(t, desc.Source)

	_, err = m.Load(context.Background(), "a")
	require.NoError(t, err)

	ds, _ := registry.Get("nyc")
	assert.True(t, ds.IsLoaded())

	m.Remove("a")
	assert.True(t, ds.IsLoaded(), "removing a layer leaves referenced sources alone")
}

func TestLayerManager_SetOpacityRejectsOutOfRange(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()
	_, err := m.Add(LayerDescriptor{ID: "a", Type: LayerPoints, Source: "mock://a", Opacity: Ptr(0.4)})
	require.NoError(t, err)

	err = m.SetOpacity("a", 1.5)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "opacity", ve.Field)

	got, _ := m.Get("a")
	assert.Equal(t, 0.4, got.OpacityValue())

	require.NoError(t, m.SetOpacity("a", 0))
	got, _ = m.Get("a")
	assert.Equal(t, 0.0, got.OpacityValue())
}

func TestLayerManager_SetVisibility(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()
	_, err := m.Add(LayerDescriptor{ID: "a", Type: LayerPoints, Source: "mock://a"})
	require.NoError(t, err)

	require.NoError(t, m.SetVisibility("a", false))
	got, _ := m.Get("a")
	assert.False(t, got.IsVisible())

	assert.ErrorIs(t, m.SetVisibility("ghost", true), ErrNotFound)
}

func TestLayerManager_UpdateMergesStyle(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()
	_, err := m.Add(LayerDescriptor{
		ID:     "a",
		Type:   LayerPolygons,
		Source: "mock://a",
		Style:  map[string]any{"fillColor": "#ff0000", "opacity": 1.0},
	})
	require.NoError(t, err)

	desc, err := m.Update("a", LayerPatch{Style: map[string]any{"opacity": 0.5}, Name: Ptr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"fillColor": "#ff0000", "opacity": 0.5}, desc.Style)
	assert.Equal(t, "Renamed", desc.Name)
}

func TestLayerManager_UpdateIsAtomic(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()
	_, err := m.Add(LayerDescriptor{
		ID:     "a",
		Type:   LayerPolygons,
		Source: "mock://a",
		Style:  map[string]any{"fillColor": "#ff0000"},
	})
	require.NoError(t, err)

	_, err = m.Update("a", LayerPatch{
		Style:  map[string]any{"fillColor": "#00ff00"},
		Source: SourceDescriptor{Type: SourceURL},
	})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = m.Update("a", LayerPatch{
		Style:   map[string]any{"fillColor": "#00ff00"},
		MaxZoom: Ptr(-1.0),
	})
	assert.ErrorIs(t, err, ErrValidation)

	got, _ := m.Get("a")
	assert.Equal(t, "#ff0000", got.Style["fillColor"])
	assert.Equal(t, SourceDescriptor{Type: SourceMock, Data: "mock://a"}, got.Source)
}

func TestLayerManager_UpdateSwapsSource(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()
	_, err := m.Add(LayerDescriptor{ID: "a", Type: LayerPoints, Source: "mock://a"})
	require.NoError(t, err)

	desc, err := m.Update("a", LayerPatch{Source: "https://example.com/b.geojson"})
	require.NoError(t, err)
	sd := desc.Source.(SourceDescriptor)
	assert.Equal(t, SourceURL, sd.Type)
	assert.Empty(t, desc.SourceID)

	desc, err = m.Update("a", LayerPatch{Source: map[string]any{"type": "Point", "coordinates": []any{1.0, 2.0}}})
	require.NoError(t, err)
	sd = desc.Source.(SourceDescriptor)
	assert.Equal(t, SourceGeoJSON, sd.Type)

	p, err := m.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, p.Features.Features, 1)
}

func TestLayerManager_RemoveAndOrder(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()
	for _, id := range []string{"c", "a", "b"} {
		_, err := m.Add(LayerDescriptor{ID: id, Type: LayerPoints, Source: "mock://" + id})
		require.NoError(t, err)
	}

	m.Remove("ghost")
	assert.Equal(t, 3, m.Len())

	m.Remove("a")
	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	_, err := m.Load(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNotFound)

	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestLayer_DescriptorIsSnapshot(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()
	_, err := m.Add(LayerDescriptor{ID: "a", Type: LayerPoints, Source: "mock://a", Style: map[string]any{"radius": 4}})
	require.NoError(t, err)

	got, _ := m.Get("a")
	got.Style["radius"] = 99

	again, _ := m.Get("a")
	assert.Equal(t, 4, again.Style["radius"])
}

func TestLayer_InlineSourceIsSnapshot(t *testing.T) {
	t.Parallel()
	m, _ := newTestLayerManager()
	_, err := m.Add(LayerDescriptor{ID: "a", Type: LayerGeoJSON, Source: map[string]any{
		"type": "FeatureCollection",
		"features": []any{map[string]any{
			"type":       "Feature",
			"geometry":   map[string]any{"type": "Point", "coordinates": []any{13.4, 52.5}},
			"properties": map[string]any{"name": "Mitte"},
		}},
	}})
	require.NoError(t, err)

	got, _ := m.Get("a")
	sd, ok := got.Source.(SourceDescriptor)
	require.True(t, ok)
	data := sd.Data.(map[string]any)
	data["type"] = "MUTATED"
	data["features"].([]any)[0].(map[string]any)["properties"].(map[string]any)["name"] = "changed"

	again, _ := m.Get("a")
	data = again.Source.(SourceDescriptor).Data.(map[string]any)
	assert.Equal(t, "FeatureCollection", data["type"])
	assert.Equal(t, "Mitte", data["features"].([]any)[0].(map[string]any)["properties"].(map[string]any)["name"])
}
