// Package publisher relays payment events from the Postgres outbox to Kafka.
package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_storefront/internal/reconcile/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const batchSize = 100

type EventRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*repository.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id string) error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	repo      EventRepository
	writer    MessageWriter
	log       *zap.Logger
}

func NewOutboxPoller(repo EventRepository, topic string, interval time.Duration, log *zap.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newPoller(repo, w, interval, log)
}

func newPoller(repo EventRepository, w MessageWriter, interval time.Duration, log *zap.Logger) *OutboxPoller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxPoller{
		timeout:   10 * time.Second,
		eventTick: interval,
		repo:      repo,
		writer:    w,
		log:       log,
	}
}

// Run polls until ctx is cancelled, then closes the writer.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.log.Warn("failed to close kafka writer", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents publishes one batch and returns how many events were marked processed.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			// Later events for the same order must not overtake this one.
			p.log.Error("failed to publish event", zap.String("event_id", event.ID), zap.Error(err))
			return published
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error("failed to mark event as processed", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
