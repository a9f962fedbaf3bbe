package provider

import (
	"sort"

	"github.com/joeblew999/plat-map/internal/event"
)

// nativeEvents maps each SDK's event names to the unified vocabulary.
var nativeEvents = map[Kind]map[string]event.Type{
	Google: {
		"tilesloaded":    event.Load,
		"click":          event.Click,
		"dblclick":       event.DblClick,
		"mousemove":      event.MouseMove,
		"mouseover":      event.MouseEnter,
		"mouseout":       event.MouseLeave,
		"zoom_changed":   event.ZoomEnd,
		"dragstart":      event.MoveStart,
		"dragend":        event.MoveEnd,
		"center_changed": event.MoveEnd,
		"addfeature":     event.LayerAdd,
		"removefeature":  event.LayerRemove,
		"setproperty":    event.LayerUpdate,
	},
	Leaflet: {
		"load":        event.Load,
		"click":       event.Click,
		"dblclick":    event.DblClick,
		"mousemove":   event.MouseMove,
		"mouseover":   event.MouseEnter,
		"mouseout":    event.MouseLeave,
		"zoomstart":   event.ZoomStart,
		"zoomend":     event.ZoomEnd,
		"movestart":   event.MoveStart,
		"moveend":     event.MoveEnd,
		"layeradd":    event.LayerAdd,
		"layerremove": event.LayerRemove,
		"tileerror":   event.Error,
	},
	Mapbox: {
		"load":       event.Load,
		"click":      event.Click,
		"dblclick":   event.DblClick,
		"mousemove":  event.MouseMove,
		"mouseenter": event.MouseEnter,
		"mouseleave": event.MouseLeave,
		"zoomstart":  event.ZoomStart,
		"zoomend":    event.ZoomEnd,
		"movestart":  event.MoveStart,
		"moveend":    event.MoveEnd,
		"styledata":  event.LayerUpdate,
		"sourcedata": event.SourceLoad,
		"error":      event.Error,
	},
	Cesium: {
		"LEFT_CLICK":        event.Click,
		"LEFT_DOUBLE_CLICK": event.DblClick,
		"MOUSE_MOVE":        event.MouseMove,
		"moveStart":         event.MoveStart,
		"moveEnd":           event.MoveEnd,
		"WHEEL":             event.ZoomStart,
		"tileLoadProgress":  event.SourceLoad,
		"allTilesLoaded":    event.Load,
		"renderError":       event.Error,
	},
}

// Translate maps a native event name of kind to its unified type.
func Translate(kind Kind, native string) (event.Type, bool) {
	t, ok := nativeEvents[kind][native]
	return t, ok
}

// NativeNames returns the native names of kind that translate to t, sorted.
func NativeNames(kind Kind, t event.Type) []string {
	var names []string
	for name, unified := range nativeEvents[kind] {
		if unified == t {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
