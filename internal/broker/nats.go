// Package broker publishes post change events to NATS so other services can follow them.
package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/postboard/internal/model"
	"github.com/debemdeboas/postboard/internal/repository"
)

var brokerLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	brokerLogger = l
}

// Event is the message body published for every change.
type Event struct {
	Kind repository.ChangeKind `json:"kind"`
	ID   model.PostID          `json:"id"`
	At   time.Time             `json:"at"`
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NATSPublisher struct {
	nc      conn
	subject string
	now     func() time.Time
}

// Connect dials url and publishes under subject.<kind>.
func Connect(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("postboard"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				brokerLogger.Warn().Err(err).Msg("Disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			brokerLogger.Info().Str("url", nc.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("error connecting to nats at %s: %w", url, err)
	}

	brokerLogger.Info().Str("url", url).Str("subject", subject).Msg("Publishing post changes to NATS")
	return newPublisher(nc, subject), nil
}

func newPublisher(nc conn, subject string) *NATSPublisher {
	return &NATSPublisher{
		nc:      nc,
		subject: subject,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (p *NATSPublisher) Subject(kind repository.ChangeKind) string {
	return p.subject + "." + string(kind)
}

func (p *NATSPublisher) Publish(c repository.Change) error {
	data, err := json.Marshal(Event{Kind: c.Kind, ID: c.ID, At: p.now()})
	if err != nil {
		return fmt.Errorf("error encoding change: %w", err)
	}

	if err := p.nc.Publish(p.Subject(c.Kind), data); err != nil {
		return fmt.Errorf("error publishing %s: %w", c, err)
	}
	return nil
}

// Notify publishes c and logs failures; it fits repository.SetChangeNotifier.
func (p *NATSPublisher) Notify(c repository.Change) {
	if err := p.Publish(c); err != nil {
		brokerLogger.Error().Err(err).Str("change", c.String()).Msg("Failed to publish change")
	}
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
