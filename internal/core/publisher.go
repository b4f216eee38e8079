package core

import (
	"FS26Rx/internal/model"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher publishes reports as JSON on a NATS subject.
type NATSPublisher struct {
	conn    natsConn
	subject string
	log     zerolog.Logger
}

// ConnectNATS dials the server in cfg. The connection retries in the background, so an
// unreachable server at startup does not stop the receiver.
func ConnectNATS(cfg model.NATSConfig, logger zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error().Err(err).Msg("nats async error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	logger.Info().Str("url", cfg.URL).Str("subject", cfg.Subject).Msg("nats publisher ready")
	return newNATSPublisher(nc, cfg.Subject, logger), nil
}

func newNATSPublisher(conn natsConn, subject string, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject, log: logger}
}

// Publish sends r. Failures are logged.
func (p *NATSPublisher) Publish(r model.Report) {
	b, err := json.Marshal(r)
	if err != nil {
		p.log.Error().Err(err).Msg("encode report")
		return
	}
	if err := p.conn.Publish(p.subject, b); err != nil {
		p.log.Warn().Err(err).Str("subject", p.subject).Msg("nats publish failed")
	}
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
