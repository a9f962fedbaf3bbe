package service

import (
	"github.com/paulmach/orb/geojson"
)

// SourceFactory builds DataSources from descriptors. Its collaborators are
// explicit fields; register fixtures and loaders before first use.
type SourceFactory struct {
	Fetcher  Fetcher
	Fixtures map[string]*geojson.FeatureCollection
	Loaders  map[string]CustomLoader
}

// NewSourceFactory creates a factory that fetches remote sources with fetcher.
func NewSourceFactory(fetcher Fetcher) *SourceFactory {
	return &SourceFactory{
		Fetcher:  fetcher,
		Fixtures: make(map[string]*geojson.FeatureCollection),
		Loaders:  make(map[string]CustomLoader),
	}
}

// RegisterFixture makes fc the payload of mock sources referencing name.
func (f *SourceFactory) RegisterFixture(name string, fc *geojson.FeatureCollection) {
	f.Fixtures[name] = fc
}

// RegisterLoader makes l available to custom sources as options["loader"]=name.
func (f *SourceFactory) RegisterLoader(name string, l CustomLoader) {
	f.Loaders[name] = l
}

type sourceConstructor func(f *SourceFactory, desc SourceDescriptor) (DataSource, error)

// sourceConstructors must cover SourceTypes(); factory tests enforce it.
var sourceConstructors = map[SourceType]sourceConstructor{
	SourceGeoJSON: func(f *SourceFactory, d SourceDescriptor) (DataSource, error) {
		s, err := NewGeoJSONSource(d, f.Fetcher)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	SourceURL: func(f *SourceFactory, d SourceDescriptor) (DataSource, error) {
		s, err := NewURLSource(d, f.Fetcher)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	SourceTiles: func(_ *SourceFactory, d SourceDescriptor) (DataSource, error) {
		s, err := NewTilesSource(d)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	Source3DTiles: func(_ *SourceFactory, d SourceDescriptor) (DataSource, error) {
		s, err := New3DTilesSource(d)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	SourceMock: func(f *SourceFactory, d SourceDescriptor) (DataSource, error) {
		s, err := NewMockSource(d, f.Fixtures)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	SourceCustom: func(f *SourceFactory, d SourceDescriptor) (DataSource, error) {
		s, err := NewCustomSource(d, f.Loaders)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
}

// Create dispatches on desc.Type to the matching variant.
func (f *SourceFactory) Create(desc SourceDescriptor) (DataSource, error) {
	ctor, ok := sourceConstructors[desc.Type]
	if !ok {
		return nil, &UnsupportedTypeError{Kind: "source", Type: string(desc.Type)}
	}
	return ctor(f, desc)
}
