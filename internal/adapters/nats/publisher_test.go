package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-map/internal/event"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	fail     bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("nats: connection closed")
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subjects)
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()
	fc := &fakeConn{}
	p := newPublisher(fc, "")

	ev := event.New(event.LayerAdd)
	ev.LayerID = "buildings"
	require.NoError(t, p.Publish(ev))

	require.Len(t, fc.subjects, 1)
	assert.Equal(t, "platmap.events.layeradd", fc.subjects[0])

	var got event.Event
	require.NoError(t, json.Unmarshal(fc.payloads[0], &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "buildings", got.LayerID)
}

func TestPublisher_Run(t *testing.T) {
	t.Parallel()
	fc := &fakeConn{}
	p := newPublisher(fc, "city.map")
	assert.Equal(t, "city.map.click", p.Subject(event.Click))

	events := make(chan event.Event, 4)
	events <- event.New(event.Click)
	events <- event.New(event.MoveEnd)
	close(events)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}
	assert.Equal(t, 2, fc.count())
}

func TestPublisher_RunSkipsFailures(t *testing.T) {
	t.Parallel()
	fc := &fakeConn{fail: true}
	p := newPublisher(fc, "")

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan event.Event, 1)
	events <- event.New(event.Error)

	done := make(chan struct{})
	go func() {
		p.Run(ctx, events)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(events) == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 0, fc.count())
}
