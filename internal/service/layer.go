package service

import (
	"context"
	"maps"
	"sync"
)

// Layer is a styled handle over one DataSource. ID and Type never change
// after construction; mutators validate before touching state.
type Layer struct {
	mu      sync.RWMutex
	desc    LayerDescriptor
	source  DataSource // owned; nil when desc.SourceID is set
	factory *LayerFactory
}

// ID returns the layer id.
func (l *Layer) ID() string { return l.desc.ID }

// Type returns the layer type.
func (l *Layer) Type() LayerType { return l.desc.Type }

// Descriptor returns a deep copy of the current descriptor.
func (l *Layer) Descriptor() LayerDescriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.desc.Clone()
}

// Style returns a copy of the current style.
func (l *Layer) Style() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.desc.Style)
}

// Visible reports whether the layer is shown.
func (l *Layer) Visible() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.desc.IsVisible()
}

// Opacity returns the layer opacity.
func (l *Layer) Opacity() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.desc.OpacityValue()
}

// SetStyle merges patch into the current style.
func (l *Layer) SetStyle(patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.desc.Style == nil {
		l.desc.Style = make(map[string]any, len(patch))
	}
	maps.Copy(l.desc.Style, patch)
}

// SetVisible shows or hides the layer.
func (l *Layer) SetVisible(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.desc.Visible = &v
}

// SetOpacity sets the opacity. Values outside [0, 1] are rejected, not clamped.
func (l *Layer) SetOpacity(v float64) error {
	if err := validateOpacity(v); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.desc.Opacity = &v
	return nil
}

// SetSource replaces the layer's source. The new DataSource is built first;
// on failure the layer keeps its current source.
func (l *Layer) SetSource(src any) error {
	next, err := l.factory.buildSource(l.desc.Type, src)
	if err != nil {
		return err
	}
	l.swapSource(next)
	return nil
}

func (l *Layer) swapSource(next *builtSource) {
	l.mu.Lock()
	prev := l.source
	l.source = next.ds
	l.desc.Source = next.desc
	l.desc.SourceID = ""
	l.mu.Unlock()

	if prev != nil {
		prev.Destroy()
	}
}

// checkPatch validates every field of patch against the current state.
func (l *Layer) checkPatch(patch LayerPatch) error {
	if patch.Opacity != nil {
		if err := validateOpacity(*patch.Opacity); err != nil {
			return err
		}
	}

	l.mu.RLock()
	minZoom, maxZoom := l.desc.MinZoom, l.desc.MaxZoom
	l.mu.RUnlock()
	if patch.MinZoom != nil {
		minZoom = patch.MinZoom
	}
	if patch.MaxZoom != nil {
		maxZoom = patch.MaxZoom
	}
	return validateZoomRange(minZoom, maxZoom)
}

// mergeFields shallow-merges the remaining descriptor fields of patch.
func (l *Layer) mergeFields(patch LayerPatch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if patch.Name != nil {
		l.desc.Name = *patch.Name
	}
	if patch.MinZoom != nil {
		l.desc.MinZoom = clonePtr(patch.MinZoom)
	}
	if patch.MaxZoom != nil {
		l.desc.MaxZoom = clonePtr(patch.MaxZoom)
	}
	if patch.Metadata != nil {
		l.desc.Metadata = maps.Clone(patch.Metadata)
	}
}

// Load loads the layer's data, through the SourceManager when the layer
// references a registered source.
func (l *Layer) Load(ctx context.Context) (*Payload, error) {
	l.mu.RLock()
	ds, sourceID := l.source, l.desc.SourceID
	l.mu.RUnlock()

	if ds != nil {
		return ds.Load(ctx)
	}
	if sourceID == "" {
		return nil, ErrDestroyed
	}
	if l.factory.registry == nil {
		return nil, &NotFoundError{Kind: "source", ID: sourceID}
	}
	return l.factory.registry.Load(ctx, sourceID)
}

// Destroy releases the layer's owned DataSource. Referenced sources are
// left to their SourceManager.
func (l *Layer) Destroy() {
	l.mu.Lock()
	ds := l.source
	l.source = nil
	l.mu.Unlock()

	if ds != nil {
		ds.Destroy()
	}
}
