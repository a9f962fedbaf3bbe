package service

import (
	"context"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceConstructors_CoverEveryType(t *testing.T) {
	t.Parallel()
	for _, st := range SourceTypes() {
		_, ok := sourceConstructors[st]
		assert.True(t, ok, "no constructor for %s", st)
	}
	assert.Len(t, sourceConstructors, len(SourceTypes()))
}

func TestSourceFactory_Create(t *testing.T) {
	t.Parallel()
	f := NewSourceFactory(NewHTTPFetcher(0))
	f.RegisterLoader("empty", CustomLoaderFunc(func(context.Context, SourceDescriptor) (*geojson.FeatureCollection, error) {
		return nil, nil
	}))

	tests := []struct {
		name    string
		desc    SourceDescriptor
		want    any
		wantErr error
	}{
		{name: "geojson", desc: SourceDescriptor{Type: SourceGeoJSON, Data: pointCollection}, want: &GeoJSONSource{}},
		{name: "url", desc: SourceDescriptor{Type: SourceURL, URL: "https://example.com/a.geojson"}, want: &URLSource{}},
		{name: "tiles", desc: SourceDescriptor{Type: SourceTiles, URL: "https://t/{z}/{x}/{y}.png"}, want: &TilesSource{}},
		{name: "3d-tiles", desc: SourceDescriptor{Type: Source3DTiles, URL: "https://t/tileset.json"}, want: &Tiles3DSource{}},
		{name: "mock", desc: SourceDescriptor{Type: SourceMock}, want: &MockSource{}},
		{name: "custom", desc: SourceDescriptor{Type: SourceCustom, Options: map[string]any{"loader": "empty"}}, want: &CustomSource{}},
		{name: "unknown tag", desc: SourceDescriptor{Type: "shapefile"}, wantErr: ErrUnsupportedSourceType},
		{name: "missing url", desc: SourceDescriptor{Type: SourceTiles}, wantErr: ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ds, err := f.Create(tt.desc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ds)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, ds)
			assert.Equal(t, tt.desc.Type, ds.Type())
			assert.Equal(t, StateConstructed, ds.State())
		})
	}
}

func TestSourceFactory_UnknownTagError(t *testing.T) {
	t.Parallel()
	_, err := NewSourceFactory(nil).Create(SourceDescriptor{Type: "shapefile"})

	var ute *UnsupportedTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "source", ute.Kind)
	assert.Equal(t, "shapefile", ute.Type)
	assert.NotErrorIs(t, err, ErrUnsupportedLayerType)
}
