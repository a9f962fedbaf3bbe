package service

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-map/internal/metrics"
)

// LayerManager manages Layers keyed by LayerDescriptor.ID, in insertion order.
type LayerManager struct {
	factory *LayerFactory
	layers  map[string]*Layer
	order   []string
	mu      sync.RWMutex
}

// NewLayerManager creates an empty layer registry.
func NewLayerManager(factory *LayerFactory) *LayerManager {
	return &LayerManager{
		factory: factory,
		layers:  make(map[string]*Layer),
	}
}

// Add constructs a Layer from desc and stores it.
func (m *LayerManager) Add(desc LayerDescriptor) (LayerDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.layers[desc.ID]; exists && desc.ID != "" {
		return LayerDescriptor{}, &DuplicateIDError{Kind: "layer", ID: desc.ID}
	}

	layer, err := m.factory.Create(desc)
	if err != nil {
		return LayerDescriptor{}, err
	}
	m.layers[desc.ID] = layer
	m.order = append(m.order, desc.ID)
	metrics.LayersActive.Inc()

	log.Debug().Str("layer", desc.ID).Str("type", string(desc.Type)).Msg("Layer added")
	return layer.Descriptor(), nil
}

// Get returns a snapshot of the layer's descriptor.
func (m *LayerManager) Get(id string) (LayerDescriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	layer, ok := m.layers[id]
	if !ok {
		return LayerDescriptor{}, false
	}
	return layer.Descriptor(), true
}

// List returns snapshots of every layer in insertion order.
func (m *LayerManager) List() []LayerDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]LayerDescriptor, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.layers[id].Descriptor())
	}
	return result
}

// Len returns the number of layers.
func (m *LayerManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.layers)
}

// Remove destroys and unregisters id. Unknown ids are ignored; the result
// reports whether a layer was removed.
func (m *LayerManager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	layer, ok := m.layers[id]
	if !ok {
		return false
	}
	layer.Destroy()
	delete(m.layers, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	metrics.LayersActive.Dec()
	return true
}

// Update applies patch to layer id: style merge, visibility, opacity,
// source, then the remaining fields. The whole patch is validated (and any
// replacement source built) before anything changes.
func (m *LayerManager) Update(id string, patch LayerPatch) (LayerDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	layer, ok := m.layers[id]
	if !ok {
		return LayerDescriptor{}, &NotFoundError{Kind: "layer", ID: id}
	}
	if err := layer.checkPatch(patch); err != nil {
		return LayerDescriptor{}, err
	}

	var next *builtSource
	if patch.Source != nil {
		built, err := m.factory.buildSource(layer.Type(), patch.Source)
		if err != nil {
			return LayerDescriptor{}, err
		}
		next = built
	}

	layer.SetStyle(patch.Style)
	if patch.Visible != nil {
		layer.SetVisible(*patch.Visible)
	}
	if patch.Opacity != nil {
		if err := layer.SetOpacity(*patch.Opacity); err != nil {
			return LayerDescriptor{}, err
		}
	}
	if next != nil {
		layer.swapSource(next)
	}
	layer.mergeFields(patch)

	return layer.Descriptor(), nil
}

// SetVisibility is Update with only Visible set.
func (m *LayerManager) SetVisibility(id string, visible bool) error {
	_, err := m.Update(id, LayerPatch{Visible: &visible})
	return err
}

// SetOpacity is Update with only Opacity set.
func (m *LayerManager) SetOpacity(id string, opacity float64) error {
	_, err := m.Update(id, LayerPatch{Opacity: &opacity})
	return err
}

// Load loads the data behind layer id.
func (m *LayerManager) Load(ctx context.Context, id string) (*Payload, error) {
	m.mu.RLock()
	layer, ok := m.layers[id]
	m.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Kind: "layer", ID: id}
	}
	return layer.Load(ctx)
}

// Clear destroys and unregisters every layer.
func (m *LayerManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, layer := range m.layers {
		layer.Destroy()
		metrics.LayersActive.Dec()
	}
	m.layers = make(map[string]*Layer)
	m.order = nil
}
