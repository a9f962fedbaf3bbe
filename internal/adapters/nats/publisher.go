// Package natsadapter publishes map events to NATS.
package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-map/internal/event"
)

// DefaultSubjectPrefix is prepended to the event type to form the subject.
const DefaultSubjectPrefix = "platmap.events"

type conn interface {
	Publish(subject string, data []byte) error
}

// Publisher forwards map events to NATS subjects <prefix>.<type>.
type Publisher struct {
	conn   conn
	nc     *nats.Conn
	prefix string
}

// NewPublisher connects to NATS.
func NewPublisher(url, prefix string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("plat-map"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	p := newPublisher(nc, prefix)
	p.nc = nc
	return p, nil
}

func newPublisher(c conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{conn: c, prefix: prefix}
}

// Subject returns the subject events of type t are published on.
func (p *Publisher) Subject(t event.Type) string {
	return p.prefix + "." + string(t)
}

// Publish sends ev as JSON.
func (p *Publisher) Publish(ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.Subject(ev.Type), data)
}

// Run publishes every event received on events until ctx is done or the
// channel closes. Publish failures are logged and skipped.
func (p *Publisher) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := p.Publish(ev); err != nil {
				log.Warn().Err(err).Str("event", string(ev.Type)).Msg("Failed to publish event")
			}
		}
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
