package event

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_OrderAndOff(t *testing.T) {
	t.Parallel()
	e := NewEmitter()

	var got []string
	e.On(Click, func(Event) { got = append(got, "first") })
	second := e.On(Click, func(Event) { got = append(got, "second") })
	e.On(Click, func(Event) { got = append(got, "third") })
	e.On(ZoomEnd, func(Event) { got = append(got, "zoom") })

	e.Emit(New(Click))
	assert.Equal(t, []string{"first", "second", "third"}, got)

	assert.True(t, e.Off(Click, second))
	assert.False(t, e.Off(Click, second))

	got = nil
	e.Emit(New(Click))
	assert.Equal(t, []string{"first", "third"}, got)
}

func TestEmitter_PanickingListenerDoesNotStopDelivery(t *testing.T) {
	t.Parallel()
	e := NewEmitter()

	delivered := 0
	e.On(Error, func(Event) { panic("listener bug") })
	e.On(Error, func(Event) { delivered++ })

	require.NotPanics(t, func() { e.Emit(Failed(errors.New("boom"))) })
	assert.Equal(t, 1, delivered)
}

func TestEmitter_RemoveAllListeners(t *testing.T) {
	t.Parallel()
	e := NewEmitter()
	e.On(Click, func(Event) {})
	e.On(Load, func(Event) {})
	e.On(MoveEnd, func(Event) {})

	e.RemoveAllListeners(Click)
	assert.Equal(t, 0, e.ListenerCount(Click))
	assert.Equal(t, 1, e.ListenerCount(Load))

	e.RemoveAllListeners()
	assert.Equal(t, 0, e.ListenerCount(Load))
	assert.Equal(t, 0, e.ListenerCount(MoveEnd))
}

func TestEmitter_Subscribe(t *testing.T) {
	t.Parallel()
	e := NewEmitter()
	ch := e.Subscribe()

	ev := New(LayerAdd)
	ev.LayerID = "buildings"
	e.Emit(ev)

	select {
	case got := <-ch:
		assert.Equal(t, ev.ID, got.ID)
		assert.Equal(t, "buildings", got.LayerID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered to subscriber")
	}

	e.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
	assert.NotPanics(t, func() { e.Unsubscribe(ch) })
}

func TestEmitter_SlowSubscriberIsSkipped(t *testing.T) {
	t.Parallel()
	e := NewEmitter()
	ch := e.Subscribe()
	defer e.Unsubscribe(ch)

	for range 32 {
		e.Emit(New(MouseMove))
	}
	assert.Len(t, ch, cap(ch))
}

func TestTypes(t *testing.T) {
	t.Parallel()
	assert.Len(t, Types(), 15)
	assert.True(t, SourceLoad.Known())
	assert.False(t, Type("zoom_changed").Known())

	ev := Failed(errors.New("boom"))
	assert.Equal(t, Error, ev.Type)
	assert.Equal(t, "boom", ev.Error)
	assert.NotEmpty(t, ev.ID)
}
