package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
)

// QueuePublisher sends booking.confirmed messages to RabbitMQ.  Each
// publish dials its own connection; the volume is one message per
// booking.  Errors are logged and returned so the caller can ignore
// them without interrupting the booking flow.
type QueuePublisher struct {
	url   string
	queue string
	log   *slog.Logger
}

func NewQueuePublisher(cfg config.QueueConfig, logger *slog.Logger) *QueuePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueuePublisher{url: cfg.URL, queue: cfg.Name, log: logger.With("component", "rabbitmq")}
}

// PublishBookingConfirmed declares the durable queue (idempotent) and
// publishes ev as a persistent JSON message on the default exchange.
func (p *QueuePublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("dial failed", "error", err)
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", "error", err)
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.log.Warn("queue declare failed", "error", err, "queue", p.queue)
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("publish failed", "error", err, "booking_id", ev.BookingID)
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
