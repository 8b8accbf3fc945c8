package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// MaxEnvelopeVersion is the newest envelope layout this binary can publish.
const MaxEnvelopeVersion = 1

// EventDescriptor routes one event type to its topic and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a validated outbox row with its typed payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks rows that will never publish; the publisher
// dead-letters them on first sight.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:      eventType,
		AggregateType:  aggregate,
		Topic:          topic,
		PayloadFactory: func() any { return new(T) },
	}
}

// NewEventRegistry wires every storefront event: order lifecycle and stock
// alerts go to the orders topic, payment transitions to the payments topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing error
	if cfg.OrdersTopic == "" {
		missing = errors.Join(missing, errors.New("orders topic is required"))
	}
	if cfg.PaymentsTopic == "" {
		missing = errors.Join(missing, errors.New("payments topic is required"))
	}
	if missing != nil {
		return nil, missing
	}

	descriptors := []EventDescriptor{
		describe[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder, cfg.OrdersTopic),
		describe[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder, cfg.OrdersTopic),
		describe[payloads.OrderDeletedEvent](enums.EventOrderDeleted, enums.AggregateOrder, cfg.OrdersTopic),
		describe[payloads.StockDepletedEvent](enums.EventStockDepleted, enums.AggregateProduct, cfg.OrdersTopic),
		describe[payloads.PaymentStatusChangedEvent](enums.EventPaymentStatusChanged, enums.AggregateOrder, cfg.PaymentsTopic),
	}
	r := &EventRegistry{byType: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		r.byType[d.EventType] = d
	}
	return r, nil
}

// Topics lists the distinct topics events can be routed to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	for _, d := range r.byType {
		seen[d.Topic] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Resolve checks the row against its descriptor and decodes the payload
// strictly. Every failure is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.byType[event.EventType]
	if !ok {
		return nil, permanent("unsupported event type %s", event.EventType)
	}
	if desc.AggregateType != event.AggregateType {
		return nil, permanent("%s: aggregate %s, want %s", event.EventType, event.AggregateType, desc.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return nil, permanent("%s: missing aggregate_id", event.EventType)
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, permanent("%s: decode envelope: %w", event.EventType, err)
	}
	if env.Version < 1 || env.Version > MaxEnvelopeVersion {
		return nil, permanent("%s: unsupported envelope version %d", event.EventType, env.Version)
	}
	body := bytes.TrimSpace(env.Data)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, permanent("%s: empty data", event.EventType)
	}

	payload := desc.PayloadFactory()
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(payload); err != nil {
		return nil, permanent("%s: decode data: %w", event.EventType, err)
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
