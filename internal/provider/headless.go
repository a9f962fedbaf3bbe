package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-map/internal/event"
	"github.com/joeblew999/plat-map/internal/loader"
	"github.com/joeblew999/plat-map/internal/service"
)

// Headless is an in-process provider. It keeps the layer and source
// registries a browser SDK would mirror and emits the unified events.
type Headless struct {
	kind    Kind
	boot    *loader.Loader
	eager   bool
	emitter *event.Emitter
	sources *service.SourceManager
	layers  *service.LayerManager

	mu     sync.RWMutex
	ready  bool
	cfg    MapConfig
	view   View
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHeadless creates an uninitialized provider of kind. boot may be nil.
func NewHeadless(kind Kind, sources *service.SourceFactory, boot *loader.Loader, eager bool) *Headless {
	registry := service.NewSourceManager(sources)
	return &Headless{
		kind:    kind,
		boot:    boot,
		eager:   eager,
		emitter: event.NewEmitter(),
		sources: registry,
		layers:  service.NewLayerManager(service.NewLayerFactory(sources, registry)),
	}
}

func (h *Headless) Kind() Kind { return h.kind }

// Initialize validates cfg, runs the SDK bootstrap and emits load.
func (h *Headless) Initialize(ctx context.Context, cfg MapConfig) error {
	if err := cfg.Validate(h.kind); err != nil {
		return err
	}
	if h.boot != nil {
		if err := h.boot.Load(ctx); err != nil {
			return err
		}
	}

	h.mu.Lock()
	if h.ready {
		h.mu.Unlock()
		return nil
	}
	h.cfg = cfg
	h.view = cfg.View()
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.ready = true
	h.mu.Unlock()

	log.Info().Str("provider", string(h.kind)).Msg("Provider initialized")
	h.emit(event.New(event.Load))
	return nil
}

// Destroy cancels background loads, waits for them and clears every registry.
func (h *Headless) Destroy() {
	h.mu.Lock()
	if !h.ready {
		h.mu.Unlock()
		return
	}
	h.ready = false
	cancel := h.cancel
	h.mu.Unlock()

	cancel()
	h.wg.Wait()
	h.layers.Clear()
	h.sources.Clear()
	h.emitter.RemoveAllListeners()
	log.Info().Str("provider", string(h.kind)).Msg("Provider destroyed")
}

func (h *Headless) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

func (h *Headless) checkReady() error {
	if !h.IsReady() {
		return ErrNotReady
	}
	return nil
}

// AddLayer registers desc and, with eager loading, loads it in the background.
func (h *Headless) AddLayer(desc service.LayerDescriptor) (service.LayerDescriptor, error) {
	if err := h.checkReady(); err != nil {
		return service.LayerDescriptor{}, err
	}
	added, err := h.layers.Add(desc)
	if err != nil {
		return service.LayerDescriptor{}, err
	}

	ev := event.New(event.LayerAdd)
	ev.LayerID = added.ID
	h.emit(ev)

	if h.eager {
		h.loadInBackground(added.ID)
	}
	return added, nil
}

func (h *Headless) RemoveLayer(id string) bool {
	if !h.layers.Remove(id) {
		return false
	}
	ev := event.New(event.LayerRemove)
	ev.LayerID = id
	h.emit(ev)
	return true
}

func (h *Headless) UpdateLayer(id string, patch service.LayerPatch) (service.LayerDescriptor, error) {
	if err := h.checkReady(); err != nil {
		return service.LayerDescriptor{}, err
	}
	updated, err := h.layers.Update(id, patch)
	if err != nil {
		return service.LayerDescriptor{}, err
	}

	ev := event.New(event.LayerUpdate)
	ev.LayerID = id
	ev.Payload = patch
	h.emit(ev)

	if h.eager && patch.Source != nil {
		h.loadInBackground(id)
	}
	return updated, nil
}

func (h *Headless) Layer(id string) (service.LayerDescriptor, bool) {
	return h.layers.Get(id)
}

func (h *Headless) Layers() []service.LayerDescriptor {
	return h.layers.List()
}

// LoadLayer loads layer id and emits sourceload or error.
func (h *Headless) LoadLayer(ctx context.Context, id string) (*service.Payload, error) {
	if err := h.checkReady(); err != nil {
		return nil, err
	}
	p, err := h.layers.Load(ctx, id)
	h.emitLoad(id, "", p, err)
	return p, err
}

func (h *Headless) AddSource(id string, src any) (service.SourceEntry, error) {
	if err := h.checkReady(); err != nil {
		return service.SourceEntry{}, err
	}
	ds, err := h.sources.Register(id, src)
	if err != nil {
		return service.SourceEntry{}, err
	}
	return service.SourceEntry{ID: id, Config: ds.Config(), State: ds.State()}, nil
}

func (h *Headless) RemoveSource(id string) bool {
	return h.sources.Remove(id)
}

func (h *Headless) Sources() []service.SourceEntry {
	return h.sources.List()
}

// LoadSource loads source id and emits sourceload or error.
func (h *Headless) LoadSource(ctx context.Context, id string) (*service.Payload, error) {
	if err := h.checkReady(); err != nil {
		return nil, err
	}
	p, err := h.sources.Load(ctx, id)
	h.emitLoad("", id, p, err)
	return p, err
}

// SetView moves the camera, emitting movestart/moveend and, when the zoom
// changes, zoomstart/zoomend.
func (h *Headless) SetView(v View) error {
	if err := h.checkReady(); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	prev := h.view
	h.view = v
	h.mu.Unlock()

	zoomed := prev.Zoom != v.Zoom
	h.emit(event.New(event.MoveStart))
	if zoomed {
		h.emit(event.New(event.ZoomStart))
	}
	end := event.New(event.MoveEnd)
	end.Payload = v
	h.emit(end)
	if zoomed {
		end := event.New(event.ZoomEnd)
		end.Payload = v
		h.emit(end)
	}
	return nil
}

func (h *Headless) View() View {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.view
}

func (h *Headless) On(t event.Type, fn event.Listener) event.ListenerID {
	return h.emitter.On(t, fn)
}

func (h *Headless) Off(t event.Type, id event.ListenerID) bool {
	return h.emitter.Off(t, id)
}

func (h *Headless) RemoveAllListeners(types ...event.Type) {
	h.emitter.RemoveAllListeners(types...)
}

func (h *Headless) DispatchNative(name string, payload any) (event.Type, bool) {
	t, ok := Translate(h.kind, name)
	if !ok {
		log.Debug().Str("provider", string(h.kind)).Str("native", name).Msg("Dropping untranslated native event")
		return "", false
	}
	ev := event.New(t)
	ev.Native = name
	ev.Payload = payload
	h.emit(ev)
	return t, true
}

func (h *Headless) emit(ev event.Event) {
	ev.Provider = string(h.kind)
	h.emitter.Emit(ev)
}

func (h *Headless) emitLoad(layerID, sourceID string, p *service.Payload, err error) {
	var ev event.Event
	switch {
	case errors.Is(err, service.ErrDestroyed), errors.Is(err, context.Canceled):
		return
	case err != nil:
		ev = event.Failed(err)
	default:
		ev = event.New(event.SourceLoad)
		ev.Payload = service.Summarize(p)
	}
	ev.LayerID = layerID
	ev.SourceID = sourceID
	h.emit(ev)
}

func (h *Headless) loadInBackground(id string) {
	h.mu.RLock()
	ctx := h.ctx
	ready := h.ready
	if ready {
		h.wg.Add(1)
	}
	h.mu.RUnlock()
	if !ready {
		return
	}

	go func() {
		defer h.wg.Done()
		p, err := h.layers.Load(ctx, id)
		if err != nil && !errors.Is(err, service.ErrDestroyed) && ctx.Err() == nil {
			log.Warn().Err(err).Str("provider", string(h.kind)).Str("layer", id).Msg("Background layer load failed")
		}
		if ctx.Err() != nil {
			return
		}
		h.emitLoad(id, "", p, err)
	}()
}
