// Package broker fans location updates out over AMQP so other services can
// subscribe instead of polling.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gigwork_maps/internal/events"
	"gigwork_maps/platform/config"
	"gigwork_maps/platform/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 3 * time.Second

// RoutingKey is the topic key a location update is published under.
func RoutingKey(e events.LocationUpdated) string {
	return fmt.Sprintf("%s.%s", e.EventName(), e.UserID)
}

// Broker publishes location events to a topic exchange.
type Broker struct {
	exchange string
	log      *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// New dials the broker and declares the exchange.
func New(cfg config.BrokerConfig, log *logger.Logger) (*Broker, error) {
	b := &Broker{exchange: cfg.GetAMQPExchange(), log: log}

	conn, err := amqp.Dial(cfg.GetAMQPURL())
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	b.conn = conn
	b.ch = ch
	return b, nil
}

// PublishJSON publishes msg as a persistent JSON message.
func (b *Broker) PublishJSON(ctx context.Context, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch == nil || b.ch.IsClosed() {
		return errors.New("amqp channel closed")
	}

	pubctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return b.ch.PublishWithContext(pubctx, b.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Handle forwards LocationUpdated events from the in-process bus.
func (b *Broker) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LocationUpdated)
	if !ok {
		return nil
	}
	if err := b.PublishJSON(ctx, RoutingKey(e), e); err != nil {
		b.log.UpstreamFailure("amqp", "publish location", err)
		return err
	}
	return nil
}

// Close closes the channel and the connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	if b.ch != nil && !b.ch.IsClosed() {
		errs = append(errs, b.ch.Close())
	}
	if b.conn != nil && !b.conn.IsClosed() {
		errs = append(errs, b.conn.Close())
	}
	return errors.Join(errs...)
}

var _ events.Handler = (*Broker)(nil)
