// Package service provides the catalog event publisher. Errors are logged
// and returned so callers can ignore failures without interrupting the
// request flow.
package service

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/film-catalog/internal/config"
	"github.com/iliyamo/film-catalog/internal/queue"
)

// Publisher sends catalog events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev queue.CatalogEvent) error
}

// NewPublisher returns an AMQP publisher when events are enabled and a
// no-op publisher otherwise.
func NewPublisher(cfg config.EventsConfig) Publisher {
	if !cfg.Enabled {
		return NopPublisher{}
	}
	return &AMQPPublisher{URL: cfg.URL, Queue: cfg.Queue}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.CatalogEvent) error { return nil }

// AMQPPublisher publishes each event as a persistent JSON message on a
// durable queue. It dials per publish, so it holds no connection state.
type AMQPPublisher struct {
	URL   string
	Queue string
}

// Publish fills in a missing event id and timestamp, then sends the event.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.CatalogEvent) error {
	ev = stamp(ev)

	conn, err := dialContext(ctx, p.URL)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		log.Warn().Err(err).Str("queue", p.Queue).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		log.Warn().Err(err).Str("type", ev.Type).Msg("rabbitmq: publish failed")
		return err
	}
	log.Debug().Str("type", ev.Type).Str("document_id", ev.DocumentID).Msg("rabbitmq: event published")
	return nil
}

// dialContext opens a connection whose TCP dial and AMQP handshake are both
// bounded by ctx. The driver clears the deadline once the handshake is done.
func dialContext(ctx context.Context, url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if deadline, ok := ctx.Deadline(); ok {
				if err := conn.SetDeadline(deadline); err != nil {
					_ = conn.Close()
					return nil, err
				}
			}
			return conn, nil
		},
	})
}

func stamp(ev queue.CatalogEvent) queue.CatalogEvent {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return ev
}
