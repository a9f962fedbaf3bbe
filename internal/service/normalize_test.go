package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSource(t *testing.T) {
	t.Parallel()
	inline := map[string]any{"type": "FeatureCollection", "features": []any{}}

	tests := []struct {
		name string
		in   any
		want SourceDescriptor
	}{
		{
			name: "mock reference",
			in:   "mock://buildings-nyc",
			want: SourceDescriptor{Type: SourceMock, Data: "mock://buildings-nyc"},
		},
		{
			name: "plain url",
			in:   "https://example.com/data.geojson",
			want: SourceDescriptor{Type: SourceURL, URL: "https://example.com/data.geojson"},
		},
		{
			name: "descriptor passes through",
			in:   SourceDescriptor{Type: SourceTiles, URL: "https://t/{z}/{x}/{y}.pbf"},
			want: SourceDescriptor{Type: SourceTiles, URL: "https://t/{z}/{x}/{y}.pbf"},
		},
		{
			name: "descriptor pointer passes through",
			in:   &SourceDescriptor{Type: Source3DTiles, URL: "https://t/tileset.json"},
			want: SourceDescriptor{Type: Source3DTiles, URL: "https://t/tileset.json"},
		},
		{
			name: "map with known type",
			in:   map[string]any{"type": "url", "url": "https://example.com/a.json"},
			want: SourceDescriptor{Type: SourceURL, URL: "https://example.com/a.json"},
		},
		{
			name: "inline geojson",
			in:   inline,
			want: SourceDescriptor{Type: SourceGeoJSON, Data: inline},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeSource(tt.in))
		})
	}
}

func TestNormalizeSource_NeverRejects(t *testing.T) {
	t.Parallel()
	got := NormalizeSource(42)
	assert.Equal(t, SourceGeoJSON, got.Type)
	assert.Equal(t, 42, got.Data)

	got = NormalizeSource(nil)
	assert.Equal(t, SourceGeoJSON, got.Type)
}
