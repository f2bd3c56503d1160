// Package service publishes reservation events to RabbitMQ. Failures are
// logged and returned; the hub never lets them fail a write.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-reservations/internal/queue"
)

// EventPublisher sends ReservationEvents to the durable
// reservation.events queue. Each publish opens its own connection, so a
// broker outage never leaves a broken connection behind.
type EventPublisher struct {
	url string
	log *zap.Logger
}

// NewEventPublisher returns a publisher for the broker at url.
func NewEventPublisher(url string, log *zap.Logger) *EventPublisher {
	return &EventPublisher{url: url, log: log.Named("events")}
}

// Publish marshals ev and publishes it as a persistent message.
func (p *EventPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal event failed", zap.Error(err))
		return err
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		p.log.Warn("dial broker failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Declaring is idempotent and makes the first publish work on a fresh broker.
	if _, err := ch.QueueDeclare(queue.ReservationEventsQueue, true, false, false, false, nil); err != nil {
		p.log.Warn("queue declare failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		MessageId:    ev.ReservationID + ":" + ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.ReservationEventsQueue, false, false, pub); err != nil {
		p.log.Warn("publish failed", zap.String("type", ev.Type), zap.Error(err))
		return err
	}
	p.log.Debug("event published", zap.String("type", ev.Type), zap.String("reservation_id", ev.ReservationID))
	return nil
}
