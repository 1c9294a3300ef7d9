package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const headerEventType = "event-type"

// MessageWriter is the part of kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates an asynchronous writer for the task topic. Delivery
// failures are logged by the completion callback.
func NewKafkaWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("Task feed delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
}

// KafkaTaskPublisher forwards sub-order events to the department task feed.
// Messages are keyed by base order id so all parts of one checkout share a
// partition.
type KafkaTaskPublisher struct {
	writer MessageWriter
	codec  *event.Codec
	logger *zap.Logger
}

// NewKafkaTaskPublisher creates a publisher over writer
func NewKafkaTaskPublisher(writer MessageWriter, logger *zap.Logger) *KafkaTaskPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaTaskPublisher{
		writer: writer,
		codec:  event.NewFulfillmentCodec(),
		logger: logger,
	}
}

// Handle implements shared.EventHandler
func (p *KafkaTaskPublisher) Handle(ctx context.Context, e shared.DomainEvent) error {
	value, err := p.codec.Encode(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(partitionKey(e)),
		Value: value,
		Time:  e.OccurredAt(),
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(e.EventType())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.EventType(), err)
	}
	p.logger.Debug("Task event published",
		zap.String("event_type", e.EventType()),
		zap.String("aggregate_id", e.AggregateID()))
	return nil
}

// EventTypes implements shared.EventHandler
func (p *KafkaTaskPublisher) EventTypes() []string {
	return []string{fulfillment.EventTypeSubOrderCreated, fulfillment.EventTypeSubOrderAdvanced}
}

// Close flushes pending messages
func (p *KafkaTaskPublisher) Close() error {
	return p.writer.Close()
}

func partitionKey(e shared.DomainEvent) string {
	switch ev := e.(type) {
	case *fulfillment.SubOrderCreatedEvent:
		return ev.BaseOrderID
	case *fulfillment.SubOrderAdvancedEvent:
		return ev.BaseOrderID
	default:
		return e.AggregateID()
	}
}

var _ shared.EventHandler = (*KafkaTaskPublisher)(nil)
