package api

import (
	"context"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-map/internal/event"
	"github.com/joeblew999/plat-map/internal/humastar"
	"github.com/joeblew999/plat-map/internal/universal"
)

// EventHandler streams map events to Datastar clients via SSE.
type EventHandler struct {
	m *universal.Map
}

func NewEventHandler(m *universal.Map) *EventHandler {
	return &EventHandler{m: m}
}

type EventsInput struct {
	Types string `query:"types" doc:"Comma separated event types to receive; empty means all" example:"click,moveend"`
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "stream-events",
		Method:      "GET",
		Path:        "/api/v1/events",
		Summary:     "Stream map events",
		Tags:        []string{"events"},
	}, h.Events)
	huma.Post(api, "/api/v1/map/view/signals", h.ViewSignals, huma.OperationTags("map"))
}

// Events relays every map event as a lastEvent signal and a map-event
// CustomEvent until the client disconnects.
func (h *EventHandler) Events(ctx context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	filter, err := parseTypes(input.Types)
	if err != nil {
		return nil, err
	}
	ch := h.m.Subscribe()
	return humastar.Stream(func(sse humastar.SSE) {
		defer h.m.Unsubscribe(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if len(filter) > 0 && !slices.Contains(filter, ev.Type) {
					continue
				}
				if err := sse.Signals(map[string]any{"lastEvent": ev}); err != nil {
					log.Debug().Err(err).Msg("Event stream closed")
					return
				}
				if err := sse.Event("map-event", ev); err != nil {
					return
				}
			}
		}
	}), nil
}

// ViewSignals moves the camera from Datastar signals (lon, lat, zoom,
// bearing, pitch) and answers with the resulting view as signals.
func (h *EventHandler) ViewSignals(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	v, err := h.m.View()
	if err != nil {
		return nil, problem(err)
	}
	if signals.Has("lon") || signals.Has("lat") {
		v.Center = orb.Point{signals.Float("lon"), signals.Float("lat")}
	}
	if signals.Has("zoom") {
		v.Zoom = signals.Float("zoom")
	}
	if signals.Has("bearing") {
		v.Bearing = signals.Float("bearing")
	}
	if signals.Has("pitch") {
		v.Pitch = signals.Float("pitch")
	}
	setErr := h.m.SetView(v)

	return humastar.Stream(func(sse humastar.SSE) {
		if setErr != nil {
			sse.Error(setErr.Error())
			return
		}
		cur, err := h.m.View()
		if err != nil {
			sse.Error(err.Error())
			return
		}
		_ = sse.Signals(map[string]any{
			"lon":     cur.Center.Lon(),
			"lat":     cur.Center.Lat(),
			"zoom":    cur.Zoom,
			"bearing": cur.Bearing,
			"pitch":   cur.Pitch,
			"error":   "",
		})
	}), nil
}

func parseTypes(s string) ([]event.Type, error) {
	if s == "" {
		return nil, nil
	}
	var out []event.Type
	for _, part := range strings.Split(s, ",") {
		t := event.Type(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if !t.Known() {
			return nil, huma.Error400BadRequest("unknown event type: " + string(t))
		}
		out = append(out, t)
	}
	return out, nil
}
