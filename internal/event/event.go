// Package event defines the unified map event vocabulary and the Emitter
// that fans events out to callbacks and channel subscribers.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type is a unified event name. Provider specific names are translated to
// these before dispatch.
type Type string

const (
	Load        Type = "load"
	Click       Type = "click"
	DblClick    Type = "dblclick"
	MouseMove   Type = "mousemove"
	MouseEnter  Type = "mouseenter"
	MouseLeave  Type = "mouseleave"
	ZoomStart   Type = "zoomstart"
	ZoomEnd     Type = "zoomend"
	MoveStart   Type = "movestart"
	MoveEnd     Type = "moveend"
	LayerAdd    Type = "layeradd"
	LayerRemove Type = "layerremove"
	LayerUpdate Type = "layerupdate"
	SourceLoad  Type = "sourceload"
	Error       Type = "error"
)

// Types lists the whole vocabulary.
func Types() []Type {
	return []Type{
		Load, Click, DblClick, MouseMove, MouseEnter, MouseLeave,
		ZoomStart, ZoomEnd, MoveStart, MoveEnd,
		LayerAdd, LayerRemove, LayerUpdate, SourceLoad, Error,
	}
}

// Known reports whether t belongs to the vocabulary.
func (t Type) Known() bool {
	for _, k := range Types() {
		if k == t {
			return true
		}
	}
	return false
}

// Event is one occurrence of a unified event.
type Event struct {
	ID       string    `json:"id"`
	Type     Type      `json:"type"`
	Provider string    `json:"provider,omitempty"`
	LayerID  string    `json:"layerId,omitempty"`
	SourceID string    `json:"sourceId,omitempty"`
	Native   string    `json:"native,omitempty"`
	Payload  any       `json:"payload,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`

	Err error `json:"-"`
}

// New creates an event of type t with a fresh id and timestamp.
func New(t Type) Event {
	return Event{ID: uuid.NewString(), Type: t, Time: time.Now().UTC()}
}

// Failed creates an Error event carrying err.
func Failed(err error) Event {
	e := New(Error)
	e.Err = err
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
