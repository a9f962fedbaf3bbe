package service

import (
	"fmt"
	"slices"
)

// layerRule lists the source types a layer type can render. Bare url
// shorthand is re-tagged to retagURL when set.
type layerRule struct {
	accepts  []SourceType
	retagURL SourceType
}

var featureSources = []SourceType{SourceGeoJSON, SourceURL, SourceMock, SourceCustom}

// layerRules must cover LayerTypes(); factory tests enforce it.
var layerRules = map[LayerType]layerRule{
	LayerGeoJSON:     {accepts: featureSources},
	LayerHeatmap:     {accepts: featureSources},
	LayerPoints:      {accepts: featureSources},
	LayerLines:       {accepts: featureSources},
	LayerPolygons:    {accepts: featureSources},
	LayerMarkers:     {accepts: featureSources},
	LayerVectorTiles: {accepts: []SourceType{SourceTiles}, retagURL: SourceTiles},
	LayerRasterTiles: {accepts: []SourceType{SourceTiles}, retagURL: SourceTiles},
	Layer3DTiles:     {accepts: []SourceType{Source3DTiles}, retagURL: Source3DTiles},
	LayerCustom:      {accepts: SourceTypes()},
}

// LayerFactory validates layer descriptors and builds Layers. Layers that
// reference a sourceId are resolved against registry.
type LayerFactory struct {
	sources  *SourceFactory
	registry *SourceManager
}

// NewLayerFactory creates a layer factory. registry may be nil, in which
// case descriptors using sourceId are rejected.
func NewLayerFactory(sources *SourceFactory, registry *SourceManager) *LayerFactory {
	return &LayerFactory{sources: sources, registry: registry}
}

type builtSource struct {
	desc SourceDescriptor
	ds   DataSource
}

// Create validates desc and constructs the Layer and its DataSource.
func (f *LayerFactory) Create(desc LayerDescriptor) (*Layer, error) {
	if err := validateLayerDescriptor(desc); err != nil {
		return nil, err
	}
	rule, ok := layerRules[desc.Type]
	if !ok {
		return nil, &UnsupportedTypeError{Kind: "layer", Type: string(desc.Type)}
	}

	desc = desc.Clone()
	l := &Layer{factory: f}

	if desc.Source == nil {
		if err := f.checkReference(desc.SourceID, rule); err != nil {
			return nil, err
		}
		l.desc = desc
		return l, nil
	}

	built, err := f.buildSource(desc.Type, desc.Source)
	if err != nil {
		return nil, err
	}
	desc.Source = built.desc
	desc.SourceID = ""
	l.desc = desc
	l.source = built.ds
	return l, nil
}

func (f *LayerFactory) checkReference(id string, rule layerRule) error {
	if f.registry == nil {
		return &ConfigurationError{Field: "sourceId", Reason: "no source registry configured"}
	}
	ds, ok := f.registry.Get(id)
	if !ok {
		return &ConfigurationError{Field: "sourceId", Reason: fmt.Sprintf("source %q is not registered", id)}
	}
	if !slices.Contains(rule.accepts, ds.Type()) {
		return &ConfigurationError{Field: "sourceId", Reason: fmt.Sprintf("source type %s not renderable by this layer", ds.Type())}
	}
	return nil
}

// buildSource normalizes src for a layer of type lt and constructs it.
func (f *LayerFactory) buildSource(lt LayerType, src any) (*builtSource, error) {
	rule, ok := layerRules[lt]
	if !ok {
		return nil, &UnsupportedTypeError{Kind: "layer", Type: string(lt)}
	}

	sd := NormalizeSource(src)
	if sd.Type == SourceURL && rule.retagURL != "" {
		sd.Type = rule.retagURL
	}
	if sd.Type.Known() && !slices.Contains(rule.accepts, sd.Type) {
		return nil, &ConfigurationError{
			Field:  "source",
			Reason: fmt.Sprintf("%s layers cannot render %s sources", lt, sd.Type),
		}
	}

	ds, err := f.sources.Create(sd)
	if err != nil {
		return nil, err
	}
	return &builtSource{desc: sd, ds: ds}, nil
}
