// Package provider defines the contract every map SDK adapter satisfies and
// the in-process Headless implementation used for all of them.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-map/internal/event"
	"github.com/joeblew999/plat-map/internal/service"
)

// ErrNotReady is returned by provider operations before Initialize.
var ErrNotReady = errors.New("provider not initialized")

// Kind names a mapping SDK.
type Kind string

const (
	Google  Kind = "google"
	Leaflet Kind = "leaflet"
	Mapbox  Kind = "mapbox"
	Cesium  Kind = "cesium"
)

// Kinds lists the supported providers.
func Kinds() []Kind {
	return []Kind{Google, Leaflet, Mapbox, Cesium}
}

// Known reports whether k is a supported provider.
func (k Kind) Known() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// RequiresAPIKey reports whether the SDK refuses to start without a key.
func (k Kind) RequiresAPIKey() bool {
	return k == Google || k == Mapbox
}

// MapConfig is the provider independent map configuration.
type MapConfig struct {
	Provider Kind      `json:"provider" yaml:"provider" enum:"google,leaflet,mapbox,cesium" doc:"Map provider" example:"leaflet"`
	Center   orb.Point `json:"center" yaml:"center" doc:"Initial center [lon, lat]"`
	Zoom     float64   `json:"zoom" yaml:"zoom" minimum:"0" doc:"Initial zoom level" example:"12"`
	Bearing  float64   `json:"bearing,omitempty" yaml:"bearing,omitempty" doc:"Initial bearing in degrees"`
	Pitch    float64   `json:"pitch,omitempty" yaml:"pitch,omitempty" doc:"Initial pitch in degrees"`
	APIKey   string    `json:"-" yaml:"apiKey,omitempty"`
	Style    string    `json:"style,omitempty" yaml:"style,omitempty" doc:"Provider style or basemap identifier"`
}

// Validate checks cfg for provider kind.
func (c MapConfig) Validate(kind Kind) error {
	if !kind.Known() {
		return &service.ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", kind)}
	}
	if c.Provider != "" && c.Provider != kind {
		return &service.ConfigurationError{Field: "provider", Reason: fmt.Sprintf("config is for %s, not %s", c.Provider, kind)}
	}
	if kind.RequiresAPIKey() && c.APIKey == "" {
		return &service.ConfigurationError{Field: "apiKey", Reason: fmt.Sprintf("is required for %s", kind)}
	}
	return c.View().Validate()
}

// View returns the initial camera of c.
func (c MapConfig) View() View {
	return View{Center: c.Center, Zoom: c.Zoom, Bearing: c.Bearing, Pitch: c.Pitch}
}

// View is the camera state.
type View struct {
	Center  orb.Point `json:"center" doc:"Center [lon, lat]"`
	Zoom    float64   `json:"zoom" doc:"Zoom level"`
	Bearing float64   `json:"bearing,omitempty" doc:"Bearing in degrees"`
	Pitch   float64   `json:"pitch,omitempty" doc:"Pitch in degrees"`
}

// Validate rejects views no provider can show.
func (v View) Validate() error {
	if math.IsNaN(v.Zoom) || v.Zoom < 0 {
		return &service.ValidationError{Field: "zoom", Value: v.Zoom, Reason: "must be a non-negative number"}
	}
	if v.Pitch < 0 || v.Pitch > 90 {
		return &service.ValidationError{Field: "pitch", Value: v.Pitch, Reason: "must be within [0, 90]"}
	}
	lon, lat := v.Center.Lon(), v.Center.Lat()
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return &service.ValidationError{Field: "center", Value: v.Center, Reason: "must be a [lon, lat] pair in degrees"}
	}
	return nil
}

// Provider is one mapping SDK behind the unified API.
type Provider interface {
	Kind() Kind
	Initialize(ctx context.Context, cfg MapConfig) error
	Destroy()
	IsReady() bool

	AddLayer(desc service.LayerDescriptor) (service.LayerDescriptor, error)
	RemoveLayer(id string) bool
	UpdateLayer(id string, patch service.LayerPatch) (service.LayerDescriptor, error)
	Layer(id string) (service.LayerDescriptor, bool)
	Layers() []service.LayerDescriptor
	LoadLayer(ctx context.Context, id string) (*service.Payload, error)

	AddSource(id string, src any) (service.SourceEntry, error)
	RemoveSource(id string) bool
	Sources() []service.SourceEntry
	LoadSource(ctx context.Context, id string) (*service.Payload, error)

	SetView(v View) error
	View() View

	On(t event.Type, fn event.Listener) event.ListenerID
	Off(t event.Type, id event.ListenerID) bool
	RemoveAllListeners(types ...event.Type)

	// DispatchNative feeds an SDK event into the provider. Names without a
	// unified equivalent are dropped.
	DispatchNative(name string, payload any) (event.Type, bool)
}
