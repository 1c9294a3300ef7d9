package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Envelope is the wire form of a domain event
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// Codec encodes events into envelopes and decodes registered types back
type Codec struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewCodec creates a codec with no registered types
func NewCodec() *Codec {
	return &Codec{types: make(map[string]reflect.Type)}
}

// NewFulfillmentCodec knows every sub-order event
func NewFulfillmentCodec() *Codec {
	c := NewCodec()
	c.Register(fulfillment.EventTypeSubOrderCreated, &fulfillment.SubOrderCreatedEvent{})
	c.Register(fulfillment.EventTypeSubOrderAdvanced, &fulfillment.SubOrderAdvancedEvent{})
	return c
}

// Register maps an event type to its Go type
func (c *Codec) Register(eventType string, instance shared.DomainEvent) {
	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	c.mu.Lock()
	c.types[eventType] = t
	c.mu.Unlock()
}

// Encode wraps an event into a JSON envelope
func (c *Codec) Encode(event shared.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}
	return json.Marshal(Envelope{
		ID:            event.EventID(),
		Type:          event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
	})
}

// Decode restores an event from its envelope
func (c *Codec) Decode(data []byte) (shared.DomainEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	c.mu.RLock()
	t, ok := c.types[env.Type]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", env.Type)
	}
	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(env.Payload, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", env.Type, err)
	}
	event, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", env.Type)
	}
	return event, nil
}
