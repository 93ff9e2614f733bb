package supervisor

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/technosupport/trackerd/internal/obs"
)

// EventBus publishes internal lifecycle events — events.SubjectTrackFinished,
// events.SubjectDispatchResult — for operator tooling such as the
// diagnostics server's websocket hub (SPEC_FULL.md §11). The Finish
// Service and the dispatch worker pool each declare their own narrow
// publisher interface (tracking.EventPublisher, dispatch.EventPublisher)
// rather than importing this one directly, since supervisor already
// imports both of those packages.
type EventBus interface {
	Publish(subject string, payload any)
	Close()
}

const defaultBusRetries = 3

// NATSBus is the github.com/nats-io/nats.go backed EventBus, grounded on
// internal/nvr/nats_publisher.go's marshal-then-retry-with-backoff
// Publish.
type NATSBus struct {
	conn       *nats.Conn
	maxRetries int
}

// ConnectNATSBus dials url. maxRetries <= 0 applies a default of 3.
func ConnectNATSBus(url string, maxRetries int) (*NATSBus, error) {
	if maxRetries <= 0 {
		maxRetries = defaultBusRetries
	}
	conn, err := nats.Connect(url, nats.Name("trackerd"))
	if err != nil {
		return nil, err
	}
	return &NATSBus{conn: conn, maxRetries: maxRetries}, nil
}

// Publish marshals payload and publishes it to subject, retrying with a
// linear backoff on failure (internal/nvr/nats_publisher.go's
// `time.Sleep(time.Duration(i*100) * time.Millisecond)` shape).
func (b *NATSBus) Publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		obs.Warn(obs.TagSupervisor, "bus marshal failed subject=%s: %v", subject, err)
		return
	}

	var pubErr error
	for i := 0; i <= b.maxRetries; i++ {
		if pubErr = b.conn.Publish(subject, data); pubErr == nil {
			return
		}
		time.Sleep(time.Duration(i*100) * time.Millisecond)
	}
	obs.Warn(obs.TagSupervisor, "bus publish failed after %d retries subject=%s: %v", b.maxRetries, subject, pubErr)
}

// Close closes the underlying NATS connection without draining it.
func (b *NATSBus) Close() {
	b.conn.Close()
}

// NoopBus is the fallback bus used when NATS_URL is unset or the
// connection attempt fails, matching cmd/server/main.go's "Warning: NATS
// Connect Failed... Event polling disabled" degrade-not-fail behavior.
type NoopBus struct{}

func (NoopBus) Publish(string, any) {}
func (NoopBus) Close()              {}
