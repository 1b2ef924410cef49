// Package notify bridges the in-process change feed to RabbitMQ so
// out-of-process consumers (other services, dashboards) can follow order
// transitions without holding an engine subscription.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/loaderhub/order-engine/internal/core/domain"
)

const exchangeOrderEvents = "orders.events"

// Publisher fans order events out to a durable fanout exchange.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  zerolog.Logger
}

// Dial connects to RabbitMQ and declares the orders.events fanout exchange.
func Dial(url string, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchangeOrderEvents, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, log: log}, nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Publish sends one event as persistent JSON.
func (p *Publisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.ch.PublishWithContext(ctx, exchangeOrderEvents, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}

// Forward drains events from the channel until ctx is cancelled or done
// closes, publishing each to the exchange. Publish failures are logged and
// skipped; the broker is an observer, not part of the commit path.
func (p *Publisher) Forward(ctx context.Context, events <-chan domain.OrderEvent, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case event := <-events:
			if err := p.Publish(ctx, event); err != nil {
				p.log.Error().Err(err).
					Str("order", event.Order.Number).
					Str("action", event.Action).
					Msg("failed to publish order event")
			}
		}
	}
}
