// Package universal provides Map, the provider independent map facade.
package universal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-map/internal/event"
	"github.com/joeblew999/plat-map/internal/provider"
	"github.com/joeblew999/plat-map/internal/service"
)

// ErrNotInitialized is returned by Map operations before Initialize.
var ErrNotInitialized = errors.New("map not initialized")

// Map owns at most one active provider and delegates every layer, source
// and view operation to it. Listeners registered on the Map receive the
// events of whichever provider is active, and survive provider switches.
type Map struct {
	factory *provider.Factory
	emitter *event.Emitter

	// lifecycle serializes Initialize, SwitchProvider and Destroy.
	lifecycle sync.Mutex

	mu     sync.RWMutex
	cfg    provider.MapConfig
	active provider.Provider
}

// New creates an uninitialized map.
func New(factory *provider.Factory, cfg provider.MapConfig) *Map {
	return &Map{
		factory: factory,
		emitter: event.NewEmitter(),
		cfg:     cfg,
	}
}

// Initialize creates and initializes the configured provider. Calling it on
// an initialized map logs a warning and does nothing.
func (m *Map) Initialize(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.RLock()
	active, cfg := m.active, m.cfg
	m.mu.RUnlock()
	if active != nil {
		log.Warn().Str("provider", string(active.Kind())).Msg("Map already initialized; ignoring Initialize")
		return nil
	}

	p, err := m.start(ctx, cfg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.active = p
	m.mu.Unlock()
	return nil
}

// start builds the provider for cfg with forwarders for every event type.
func (m *Map) start(ctx context.Context, cfg provider.MapConfig) (provider.Provider, error) {
	p, err := m.factory.New(cfg.Provider)
	if err != nil {
		return nil, err
	}
	for _, t := range event.Types() {
		p.On(t, m.emitter.Emit)
	}
	if err := p.Initialize(ctx, cfg); err != nil {
		p.RemoveAllListeners()
		return nil, err
	}
	return p, nil
}

// SwitchProvider replaces the active provider with one of kind, replaying
// every source and layer into it and keeping the current view. apiKey
// overrides the configured key when set. On any failure the new provider
// is destroyed and the current one stays active.
func (m *Map) SwitchProvider(ctx context.Context, kind provider.Kind, apiKey string) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.RLock()
	old, cfg := m.active, m.cfg
	m.mu.RUnlock()
	if old == nil {
		return ErrNotInitialized
	}
	if old.Kind() == kind && apiKey == "" {
		return nil
	}

	view := old.View()
	cfg.Provider = kind
	cfg.Center, cfg.Zoom, cfg.Bearing, cfg.Pitch = view.Center, view.Zoom, view.Bearing, view.Pitch
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	next, err := m.start(ctx, cfg)
	if err != nil {
		return err
	}
	if err := replay(old, next); err != nil {
		next.Destroy()
		return err
	}

	m.mu.Lock()
	m.active = next
	m.cfg = cfg
	m.mu.Unlock()

	old.Destroy()
	log.Info().Str("from", string(old.Kind())).Str("to", string(kind)).Msg("Switched map provider")
	return nil
}

func replay(from, to provider.Provider) error {
	for _, s := range from.Sources() {
		if _, err := to.AddSource(s.ID, s.Config); err != nil {
			return fmt.Errorf("replay source %q: %w", s.ID, err)
		}
	}
	for _, l := range from.Layers() {
		if _, err := to.AddLayer(l); err != nil {
			return fmt.Errorf("replay layer %q: %w", l.ID, err)
		}
	}
	return nil
}

// Destroy tears down the active provider. Map listeners are kept.
func (m *Map) Destroy() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	p := m.active
	m.active = nil
	m.mu.Unlock()

	if p != nil {
		p.Destroy()
	}
}

// IsInitialized reports whether a provider is active.
func (m *Map) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active != nil
}

// Provider returns the active provider kind, or the configured one before
// Initialize.
func (m *Map) Provider() provider.Kind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active != nil {
		return m.active.Kind()
	}
	return m.cfg.Provider
}

// Config returns the current map configuration.
func (m *Map) Config() provider.MapConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Map) provider() (provider.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil, ErrNotInitialized
	}
	return m.active, nil
}

// AddLayer adds a layer to the active provider.
func (m *Map) AddLayer(desc service.LayerDescriptor) (service.LayerDescriptor, error) {
	p, err := m.provider()
	if err != nil {
		return service.LayerDescriptor{}, err
	}
	return p.AddLayer(desc)
}

// RemoveLayer removes layer id. Unknown ids are ignored.
func (m *Map) RemoveLayer(id string) (bool, error) {
	p, err := m.provider()
	if err != nil {
		return false, err
	}
	return p.RemoveLayer(id), nil
}

// UpdateLayer applies patch to layer id.
func (m *Map) UpdateLayer(id string, patch service.LayerPatch) (service.LayerDescriptor, error) {
	p, err := m.provider()
	if err != nil {
		return service.LayerDescriptor{}, err
	}
	return p.UpdateLayer(id, patch)
}

// SetLayerVisibility shows or hides layer id.
func (m *Map) SetLayerVisibility(id string, visible bool) (service.LayerDescriptor, error) {
	return m.UpdateLayer(id, service.LayerPatch{Visible: &visible})
}

// SetLayerOpacity sets the opacity of layer id.
func (m *Map) SetLayerOpacity(id string, opacity float64) (service.LayerDescriptor, error) {
	return m.UpdateLayer(id, service.LayerPatch{Opacity: &opacity})
}

// Layer returns layer id.
func (m *Map) Layer(id string) (service.LayerDescriptor, error) {
	p, err := m.provider()
	if err != nil {
		return service.LayerDescriptor{}, err
	}
	desc, ok := p.Layer(id)
	if !ok {
		return service.LayerDescriptor{}, &service.NotFoundError{Kind: "layer", ID: id}
	}
	return desc, nil
}

// Layers lists the layers in insertion order.
func (m *Map) Layers() ([]service.LayerDescriptor, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}
	return p.Layers(), nil
}

// LayerData loads the data behind layer id.
func (m *Map) LayerData(ctx context.Context, id string) (*service.Payload, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}
	return p.LoadLayer(ctx, id)
}

// AddSource registers a shared data source.
func (m *Map) AddSource(id string, src any) (service.SourceEntry, error) {
	p, err := m.provider()
	if err != nil {
		return service.SourceEntry{}, err
	}
	return p.AddSource(id, src)
}

// RemoveSource unregisters source id. Unknown ids are ignored.
func (m *Map) RemoveSource(id string) (bool, error) {
	p, err := m.provider()
	if err != nil {
		return false, err
	}
	return p.RemoveSource(id), nil
}

// Sources lists the registered sources.
func (m *Map) Sources() ([]service.SourceEntry, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}
	return p.Sources(), nil
}

// SourceData loads source id.
func (m *Map) SourceData(ctx context.Context, id string) (*service.Payload, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}
	return p.LoadSource(ctx, id)
}

// SetView moves the camera.
func (m *Map) SetView(v provider.View) error {
	p, err := m.provider()
	if err != nil {
		return err
	}
	return p.SetView(v)
}

// View returns the camera state.
func (m *Map) View() (provider.View, error) {
	p, err := m.provider()
	if err != nil {
		return provider.View{}, err
	}
	return p.View(), nil
}

// DispatchNative feeds a native SDK event to the active provider.
func (m *Map) DispatchNative(name string, payload any) (event.Type, bool, error) {
	p, err := m.provider()
	if err != nil {
		return "", false, err
	}
	t, ok := p.DispatchNative(name, payload)
	return t, ok, nil
}

// On registers fn for events of type t. It may be called before Initialize.
func (m *Map) On(t event.Type, fn event.Listener) event.ListenerID {
	return m.emitter.On(t, fn)
}

// Off removes a listener registered with On.
func (m *Map) Off(t event.Type, id event.ListenerID) bool {
	return m.emitter.Off(t, id)
}

// RemoveAllListeners drops the listeners of types, or of every type.
func (m *Map) RemoveAllListeners(types ...event.Type) {
	m.emitter.RemoveAllListeners(types...)
}

// Subscribe returns a channel receiving every map event.
func (m *Map) Subscribe() chan event.Event {
	return m.emitter.Subscribe()
}

// Unsubscribe closes a channel returned by Subscribe.
func (m *Map) Unsubscribe(ch chan event.Event) {
	m.emitter.Unsubscribe(ch)
}
