package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

type harness struct {
	svc  *Service
	repo *fakeRepo
	pub  *fakePublisher
	dlq  *fakeDLQRepo
	reg  *prometheus.Registry
}

func newHarness(t *testing.T, events []models.OutboxEvent, resolver registryResolver, maxAttempts int, results ...publishResult) *harness {
	t.Helper()
	h := &harness{
		repo: &fakeRepo{events: events},
		pub:  &fakePublisher{results: results},
		dlq:  &fakeDLQRepo{},
		reg:  prometheus.NewRegistry(),
	}
	svc, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 100, MaxAttempts: maxAttempts}},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               fakeDB{},
		PubSub:           fakePubSubClient{},
		Repository:       h.repo,
		Registry:         resolver,
		DLQRepository:    h.dlq,
		Metrics:          metrics.NewOutboxMetrics(h.reg),
		PublisherFactory: func(string) publisher { return h.pub },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) counter(t *testing.T, name string) float64 {
	t.Helper()
	families, err := h.reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func orderEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopeFor(t, id.String()),
		AttemptCount:  attempts,
		CreatedAt:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func envelopeFor(t *testing.T, eventID string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return raw
}

func resolvesTo(topic string, payload any) *fakeRegistry {
	return &fakeRegistry{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: topic},
		Envelope:   outbox.PayloadEnvelope{Version: 1},
		Payload:    payload,
	}}
}

func TestProcessBatchSettlesEachRowIndependently(t *testing.T) {
	first, second := orderEvent(t, 0), orderEvent(t, 0)
	h := newHarness(t, []models.OutboxEvent{first, second}, resolvesTo("storefront-orders", &payloads.OrderCreatedEvent{}), 5,
		fakeResult{err: errors.New("deadline exceeded")},
		fakeResult{},
	)

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, []uuid.UUID{first.ID}, h.repo.failed)
	require.Equal(t, []uuid.UUID{second.ID}, h.repo.published)
	require.Empty(t, h.dlq.entries)
	require.Equal(t, 1.0, h.counter(t, "outbox_publish_failures_total"))
}

func TestProcessBatchPublishesAllBeforeAwaiting(t *testing.T) {
	events := []models.OutboxEvent{orderEvent(t, 0), orderEvent(t, 0), orderEvent(t, 0)}
	h := newHarness(t, events, resolvesTo("storefront-orders", &payloads.OrderCreatedEvent{}), 5)
	var order []string
	h.pub.onPublish = func() { order = append(order, "publish") }
	h.pub.onGet = func() { order = append(order, "get") }

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"publish", "publish", "publish", "get", "get", "get"}, order)
}

func TestProcessBatchSetsMessageAttributes(t *testing.T) {
	productID := uuid.New()
	event := orderEvent(t, 0)
	event.EventType = enums.EventStockDepleted
	event.AggregateType = enums.AggregateProduct
	event.AggregateID = productID

	h := newHarness(t, []models.OutboxEvent{event}, resolvesTo("storefront-orders", &payloads.StockDepletedEvent{}), 5)
	var topics []string
	h.svc.publisherFactory = func(topic string) publisher {
		topics = append(topics, topic)
		return h.pub
	}

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"storefront-orders"}, topics)
	require.Len(t, h.pub.sent, 1)

	msg := h.pub.sent[0]
	require.Equal(t, []byte(event.Payload), msg.Data)
	require.Equal(t, map[string]string{
		"event_id":       event.ID.String(),
		"event_type":     string(enums.EventStockDepleted),
		"schema_version": "1",
		"aggregate_type": string(enums.AggregateProduct),
		"aggregate_id":   productID.String(),
		"created_at":     "2025-03-01T09:00:00Z",
	}, msg.Attributes)
	require.Equal(t, 1.0, h.counter(t, "outbox_published_total"))
}

func TestProcessBatchDeadLettersUndecodableRows(t *testing.T) {
	event := orderEvent(t, 0)
	h := newHarness(t, []models.OutboxEvent{event}, &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}, 5)

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Empty(t, h.pub.sent)
	require.Len(t, h.dlq.entries, 1)

	entry := h.dlq.entries[0]
	require.Equal(t, event.ID, entry.EventID)
	require.Equal(t, []byte(event.Payload), []byte(entry.Payload))
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	require.Equal(t, []uuid.UUID{event.ID}, h.repo.terminal)
	require.Equal(t, 1.0, h.counter(t, "outbox_dlq_total"))
}

func TestProcessBatchDeadLettersAtMaxAttempts(t *testing.T) {
	event := orderEvent(t, 1)
	h := newHarness(t, []models.OutboxEvent{event}, resolvesTo("storefront-orders", &payloads.OrderCreatedEvent{}), 2,
		fakeResult{err: errors.New("unavailable")},
	)

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Empty(t, h.repo.failed)
	require.Len(t, h.dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, h.dlq.entries[0].ErrorReason)
	require.Contains(t, *h.dlq.entries[0].ErrorMessage, "unavailable")
}

func TestProcessBatchDeadLettersWhenTopicHasNoPublisher(t *testing.T) {
	event := orderEvent(t, 0)
	h := newHarness(t, []models.OutboxEvent{event}, resolvesTo("missing-topic", &payloads.OrderCreatedEvent{}), 5)
	h.svc.publisherFactory = func(string) publisher { return nil }

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, h.dlq.entries[0].ErrorReason)
}

func TestProcessBatchReportsEmptyPoll(t *testing.T) {
	h := newHarness(t, nil, resolvesTo("storefront-orders", nil), 5)
	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.False(t, processed)
}

func TestBackoffDoublesAndResets(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 300*time.Millisecond)
	within := func(got, want time.Duration) {
		t.Helper()
		require.GreaterOrEqual(t, got, want)
		require.Less(t, got, want+jitterWindow)
	}
	within(b.failure(), 200*time.Millisecond)
	within(b.failure(), 300*time.Millisecond)
	within(b.failure(), 300*time.Millisecond)
	b.reset()
	within(b.failure(), 200*time.Millisecond)
	within(b.idle(), 100*time.Millisecond)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil, resolvesTo("storefront-orders", nil), 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, h.svc.Run(ctx), context.Canceled)
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(_ *gorm.DB, _, _ int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakePubSubClient struct{}

func (fakePubSubClient) Ping(context.Context) error { return nil }

func (fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results   []publishResult
	sent      []*gcppubsub.Message
	onPublish func()
	onGet     func()
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if f.onPublish != nil {
		f.onPublish()
	}
	var res fakeResult
	if len(f.results) > 0 {
		res, _ = f.results[0].(fakeResult)
		f.results = f.results[1:]
	}
	res.onGet = f.onGet
	return res
}

type fakeResult struct {
	err   error
	onGet func()
}

func (f fakeResult) Get(context.Context) (string, error) {
	if f.onGet != nil {
		f.onGet()
	}
	return "server-id", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := *f.resolved
	out.Descriptor.EventType = event.EventType
	out.Descriptor.AggregateType = event.AggregateType
	out.Envelope.EventID = event.ID.String()
	return &out, nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
