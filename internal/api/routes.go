// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-map/internal/event"
	"github.com/joeblew999/plat-map/internal/provider"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/universal"
)

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"buildings"`
}

type SourceIDInput struct {
	ID string `path:"id" doc:"Source ID" example:"nyc"`
}

type LayerOutput struct {
	Body service.LayerDescriptor
}

type LayersOutput struct {
	Body []service.LayerDescriptor
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type MapBody struct {
	Provider    provider.Kind `json:"provider" doc:"Active or configured provider" example:"leaflet"`
	Initialized bool          `json:"initialized" doc:"Whether a provider is running"`
	View        provider.View `json:"view" doc:"Camera state"`
	Layers      int           `json:"layers" doc:"Number of layers"`
	Sources     int           `json:"sources" doc:"Number of registered sources"`
}

type ProviderBody struct {
	Provider provider.Kind `json:"provider" enum:"google,leaflet,mapbox,cesium" doc:"Provider to switch to" example:"mapbox"`
	APIKey   string        `json:"apiKey,omitempty" doc:"API key for providers that need one"`
}

type NativeEventBody struct {
	Name    string `json:"name" doc:"Provider native event name" example:"zoom_changed"`
	Payload any    `json:"payload,omitempty" doc:"Native event payload"`
}

type DispatchBody struct {
	Name       string     `json:"name" doc:"Native event name"`
	Type       event.Type `json:"type,omitempty" doc:"Universal event type it was translated to"`
	Translated bool       `json:"translated" doc:"Whether the name is known to the provider"`
}

type SourceBody struct {
	ID     string `json:"id" doc:"Source ID" example:"nyc"`
	Source any    `json:"source" doc:"Source descriptor, URL shorthand or inline GeoJSON"`
}

type DataBody struct {
	service.PayloadSummary
	Data *geojson.FeatureCollection `json:"data,omitempty" doc:"Loaded features"`
}

type VisibilityBody struct {
	Visible bool `json:"visible" doc:"Whether the layer is visible"`
}

type OpacityBody struct {
	Opacity float64 `json:"opacity" doc:"Layer opacity (0-1)" example:"0.5"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	m *universal.Map
}

func NewAPIHandler(m *universal.Map) *APIHandler {
	return &APIHandler{m: m}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterMap registers map state, camera and provider routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map", h.GetMap, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/view", h.GetView, huma.OperationTags("map"))
	huma.Put(api, "/api/v1/map/view", h.PutView, huma.OperationTags("map"))
	huma.Put(api, "/api/v1/map/provider", h.PutProvider, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/events", h.PostNativeEvent, huma.OperationTags("map"))
}

// RegisterLayers registers layer CRUD routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers", h.CreateLayer, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Patch(api, "/api/v1/layers/{id}", h.PatchLayer, huma.OperationTags("layers"))
	huma.Delete(api, "/api/v1/layers/{id}", h.DeleteLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/visibility", h.PutVisibility, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/opacity", h.PutOpacity, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}/data", h.GetLayerData, huma.OperationTags("layers"))
}

// RegisterSources registers data source routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
	huma.Post(api, "/api/v1/sources", h.CreateSource, huma.OperationTags("sources"))
	huma.Delete(api, "/api/v1/sources/{id}", h.DeleteSource, huma.OperationTags("sources"))
	huma.Get(api, "/api/v1/sources/{id}/data", h.GetSourceData, huma.OperationTags("sources"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *struct{}) (*struct{ Body MapBody }, error) {
	body := MapBody{Provider: h.m.Provider(), Initialized: h.m.IsInitialized()}
	if !body.Initialized {
		body.View = h.m.Config().View()
		return &struct{ Body MapBody }{Body: body}, nil
	}
	if v, err := h.m.View(); err == nil {
		body.View = v
	}
	if layers, err := h.m.Layers(); err == nil {
		body.Layers = len(layers)
	}
	if sources, err := h.m.Sources(); err == nil {
		body.Sources = len(sources)
	}
	return &struct{ Body MapBody }{Body: body}, nil
}

func (h *APIHandler) GetView(ctx context.Context, input *struct{}) (*struct{ Body provider.View }, error) {
	v, err := h.m.View()
	if err != nil {
		return nil, problem(err)
	}
	return &struct{ Body provider.View }{Body: v}, nil
}

func (h *APIHandler) PutView(ctx context.Context, input *struct{ Body provider.View }) (*struct{ Body provider.View }, error) {
	if err := h.m.SetView(input.Body); err != nil {
		return nil, problem(err)
	}
	return h.GetView(ctx, nil)
}

func (h *APIHandler) PutProvider(ctx context.Context, input *struct{ Body ProviderBody }) (*struct{ Body MapBody }, error) {
	if err := h.m.SwitchProvider(ctx, input.Body.Provider, input.Body.APIKey); err != nil {
		return nil, problem(err)
	}
	return h.GetMap(ctx, nil)
}

func (h *APIHandler) PostNativeEvent(ctx context.Context, input *struct{ Body NativeEventBody }) (*struct{ Body DispatchBody }, error) {
	t, ok, err := h.m.DispatchNative(input.Body.Name, input.Body.Payload)
	if err != nil {
		return nil, problem(err)
	}
	return &struct{ Body DispatchBody }{Body: DispatchBody{Name: input.Body.Name, Type: t, Translated: ok}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	layers, err := h.m.Layers()
	if err != nil {
		return nil, problem(err)
	}
	return &LayersOutput{Body: layers}, nil
}

func (h *APIHandler) CreateLayer(ctx context.Context, input *struct{ Body service.LayerDescriptor }) (*struct {
	Status int
	Body   service.LayerDescriptor
}, error) {
	created, err := h.m.AddLayer(input.Body)
	if err != nil {
		return nil, problem(err)
	}
	return &struct {
		Status int
		Body   service.LayerDescriptor
	}{Status: 201, Body: created}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	layer, err := h.m.Layer(input.ID)
	if err != nil {
		return nil, problem(err)
	}
	return &LayerOutput{Body: layer}, nil
}

func (h *APIHandler) PatchLayer(ctx context.Context, input *struct {
	IDInput
	Body service.LayerPatch
}) (*LayerOutput, error) {
	updated, err := h.m.UpdateLayer(input.ID, input.Body)
	if err != nil {
		return nil, problem(err)
	}
	return &LayerOutput{Body: updated}, nil
}

func (h *APIHandler) DeleteLayer(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	removed, err := h.m.RemoveLayer(input.ID)
	if err != nil {
		return nil, problem(err)
	}
	if !removed {
		return nil, problem(&service.NotFoundError{Kind: "layer", ID: input.ID})
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer deleted"}}, nil
}

func (h *APIHandler) PutVisibility(ctx context.Context, input *struct {
	IDInput
	Body VisibilityBody
}) (*LayerOutput, error) {
	layer, err := h.m.SetLayerVisibility(input.ID, input.Body.Visible)
	if err != nil {
		return nil, problem(err)
	}
	return &LayerOutput{Body: layer}, nil
}

func (h *APIHandler) PutOpacity(ctx context.Context, input *struct {
	IDInput
	Body OpacityBody
}) (*LayerOutput, error) {
	layer, err := h.m.SetLayerOpacity(input.ID, input.Body.Opacity)
	if err != nil {
		return nil, problem(err)
	}
	return &LayerOutput{Body: layer}, nil
}

func (h *APIHandler) GetLayerData(ctx context.Context, input *IDInput) (*struct{ Body DataBody }, error) {
	p, err := h.m.LayerData(ctx, input.ID)
	if err != nil {
		return nil, problem(err)
	}
	return &struct{ Body DataBody }{Body: dataBody(p)}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceEntry }, error) {
	sources, err := h.m.Sources()
	if err != nil {
		return nil, problem(err)
	}
	return &struct{ Body []service.SourceEntry }{Body: sources}, nil
}

func (h *APIHandler) CreateSource(ctx context.Context, input *struct{ Body SourceBody }) (*struct {
	Status int
	Body   service.SourceEntry
}, error) {
	entry, err := h.m.AddSource(input.Body.ID, input.Body.Source)
	if err != nil {
		return nil, problem(err)
	}
	return &struct {
		Status int
		Body   service.SourceEntry
	}{Status: 201, Body: entry}, nil
}

func (h *APIHandler) DeleteSource(ctx context.Context, input *SourceIDInput) (*struct{ Body MessageBody }, error) {
	removed, err := h.m.RemoveSource(input.ID)
	if err != nil {
		return nil, problem(err)
	}
	if !removed {
		return nil, problem(&service.NotFoundError{Kind: "source", ID: input.ID})
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Source deleted"}}, nil
}

func (h *APIHandler) GetSourceData(ctx context.Context, input *SourceIDInput) (*struct{ Body DataBody }, error) {
	p, err := h.m.SourceData(ctx, input.ID)
	if err != nil {
		return nil, problem(err)
	}
	return &struct{ Body DataBody }{Body: dataBody(p)}, nil
}

func dataBody(p *service.Payload) DataBody {
	return DataBody{PayloadSummary: service.Summarize(p), Data: p.Features}
}
