// Package service contains the data-source and layer registries for plat-map.
package service

// SourceType tags a SourceDescriptor.
type SourceType string

const (
	SourceGeoJSON SourceType = "geojson"
	SourceURL     SourceType = "url"
	SourceTiles   SourceType = "tiles"
	Source3DTiles SourceType = "3d-tiles"
	SourceMock    SourceType = "mock"
	SourceCustom  SourceType = "custom"
)

// SourceTypes lists every source tag the factory dispatches on.
func SourceTypes() []SourceType {
	return []SourceType{SourceGeoJSON, SourceURL, SourceTiles, Source3DTiles, SourceMock, SourceCustom}
}

// Known reports whether t is one of SourceTypes.
func (t SourceType) Known() bool {
	for _, k := range SourceTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// LayerType tags a LayerDescriptor.
type LayerType string

const (
	LayerGeoJSON     LayerType = "geojson"
	LayerHeatmap     LayerType = "heatmap"
	Layer3DTiles     LayerType = "3d-tiles"
	LayerVectorTiles LayerType = "vector-tiles"
	LayerRasterTiles LayerType = "raster-tiles"
	LayerPoints      LayerType = "points"
	LayerLines       LayerType = "lines"
	LayerPolygons    LayerType = "polygons"
	LayerMarkers     LayerType = "markers"
	LayerCustom      LayerType = "custom"
)

// LayerTypes lists every layer tag the factory dispatches on.
func LayerTypes() []LayerType {
	return []LayerType{
		LayerGeoJSON, LayerHeatmap, Layer3DTiles, LayerVectorTiles, LayerRasterTiles,
		LayerPoints, LayerLines, LayerPolygons, LayerMarkers, LayerCustom,
	}
}

// MockScheme prefixes shorthand sources that resolve to mock fixtures.
const MockScheme = "mock://"

// SourceDescriptor is the canonical, declarative description of a DataSource.
// Exactly one of Data or URL is meaningful for a given Type.
type SourceDescriptor struct {
	Type    SourceType     `json:"type" yaml:"type" enum:"geojson,url,tiles,3d-tiles,mock,custom" doc:"Source type" example:"geojson"`
	Data    any            `json:"data,omitempty" yaml:"data,omitempty" doc:"Inline payload (GeoJSON or mock reference)"`
	URL     string         `json:"url,omitempty" yaml:"url,omitempty" doc:"Remote URL or tile template" example:"https://example.com/buildings.geojson"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty" doc:"Loader specific options"`
}

// LayerDescriptor declares a layer.
// Source accepts a SourceDescriptor, a shorthand string or inline GeoJSON;
// SourceID references a DataSource registered with the SourceManager instead.
type LayerDescriptor struct {
	ID       string         `json:"id" yaml:"id" doc:"Unique layer identifier" example:"buildings"`
	Type     LayerType      `json:"type" yaml:"type" enum:"geojson,heatmap,3d-tiles,vector-tiles,raster-tiles,points,lines,polygons,markers,custom" doc:"Layer type" example:"polygons"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty" doc:"Display name" example:"Buildings"`
	Source   any            `json:"source,omitempty" yaml:"source,omitempty" doc:"Source descriptor, URL shorthand or inline GeoJSON"`
	SourceID string         `json:"sourceId,omitempty" yaml:"sourceId,omitempty" doc:"ID of a registered data source" example:"nyc"`
	Style    map[string]any `json:"style,omitempty" yaml:"style,omitempty" doc:"Visual properties"`
	Visible  *bool          `json:"visible,omitempty" yaml:"visible,omitempty" doc:"Whether the layer is visible (default true)"`
	Opacity  *float64       `json:"opacity,omitempty" yaml:"opacity,omitempty" doc:"Layer opacity (0-1, default 1)" example:"0.7"`
	MinZoom  *float64       `json:"minZoom,omitempty" yaml:"minZoom,omitempty" doc:"Minimum zoom level"`
	MaxZoom  *float64       `json:"maxZoom,omitempty" yaml:"maxZoom,omitempty" doc:"Maximum zoom level"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty" doc:"Free-form metadata"`
}

// IsVisible returns the visibility, defaulting to true.
func (d LayerDescriptor) IsVisible() bool {
	return d.Visible == nil || *d.Visible
}

// OpacityValue returns the opacity, defaulting to 1.
func (d LayerDescriptor) OpacityValue() float64 {
	if d.Opacity == nil {
		return 1
	}
	return *d.Opacity
}

// Clone returns a copy that shares no maps or pointers with d.
func (d LayerDescriptor) Clone() LayerDescriptor {
	c := d
	c.Style = cloneMap(d.Style)
	c.Metadata = cloneMap(d.Metadata)
	if d.Visible != nil {
		v := *d.Visible
		c.Visible = &v
	}
	c.Opacity = clonePtr(d.Opacity)
	c.MinZoom = clonePtr(d.MinZoom)
	c.MaxZoom = clonePtr(d.MaxZoom)
	c.Source = cloneValue(d.Source)
	return c
}

// cloneValue deep-copies the decoded JSON and YAML shapes descriptors carry.
// Other values are returned as is.
func cloneValue(v any) any {
	switch x := v.(type) {
	case SourceDescriptor:
		x.Data = cloneValue(x.Data)
		x.Options = cloneMap(x.Options)
		return x
	case map[string]any:
		return cloneMap(x)
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = cloneValue(e)
	}
	return out
}

// LayerPatch is a partial update applied by LayerManager.Update.
// Nil fields are left untouched.
type LayerPatch struct {
	Style    map[string]any `json:"style,omitempty" doc:"Style properties merged into the current style"`
	Visible  *bool          `json:"visible,omitempty" doc:"New visibility"`
	Opacity  *float64       `json:"opacity,omitempty" doc:"New opacity (0-1)"`
	Source   any            `json:"source,omitempty" doc:"Replacement source"`
	Name     *string        `json:"name,omitempty" doc:"New display name"`
	MinZoom  *float64       `json:"minZoom,omitempty" doc:"New minimum zoom"`
	MaxZoom  *float64       `json:"maxZoom,omitempty" doc:"New maximum zoom"`
	Metadata map[string]any `json:"metadata,omitempty" doc:"Replacement metadata"`
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Handy for descriptor literals.
func Ptr[T any](v T) *T {
	return &v
}
