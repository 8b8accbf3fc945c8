package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// inflight tracks one claimed row between Publish and its acknowledgement.
type inflight struct {
	event    models.OutboxEvent
	resolved *registry.ResolvedEvent
	result   publishResult
	err      error
}

func (p inflight) topic() string {
	if p.resolved == nil {
		return ""
	}
	return p.resolved.Descriptor.Topic
}

// dispatch resolves every row and starts its publish without waiting.
func (s *Service) dispatch(ctx context.Context, events []models.OutboxEvent) []inflight {
	out := make([]inflight, 0, len(events))
	for _, event := range events {
		p := inflight{event: event}
		p.resolved, p.err = s.registry.Resolve(event)
		if p.err == nil {
			p.result, p.err = s.startPublish(ctx, event, p.resolved)
		}
		out = append(out, p)
	}
	return out
}

func (s *Service) startPublish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) (publishResult, error) {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return nil, registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", topic))
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: messageAttributes(event, resolved),
	})
	if result == nil {
		return nil, registry.NewNonRetryableError(fmt.Errorf("publisher for %q returned no result", topic))
	}
	return result, nil
}

func messageAttributes(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]string {
	return map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"schema_version": strconv.Itoa(resolved.Envelope.Version),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// settle waits for the publish acknowledgement and records the outcome on the
// row: published, retry later, or dead-lettered.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, p inflight) error {
	err := p.err
	if err == nil {
		waitCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		_, err = p.result.Get(waitCtx)
		cancel()
	}

	fields := s.logFields(p)
	eventType := string(p.event.EventType)

	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
		if markErr := s.repo.MarkPublishedTx(tx, p.event.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", p.event.ID, markErr)
		}
		s.metrics.IncPublished(eventType)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox.published")
		return nil

	case errors.As(err, &nonRetryable):
		return s.deadLetter(ctx, tx, p, enums.OutboxDLQReasonNonRetryable, err, fields)

	case p.event.AttemptCount+1 >= s.maxAttempts:
		return s.deadLetter(ctx, tx, p, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err), fields)
	}

	fields["attempt_count"] = p.event.AttemptCount + 1
	fields["error"] = err.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox.publish_failed")
	s.metrics.IncFailed(eventType)
	if markErr := s.repo.MarkFailedTx(tx, p.event.ID, err); markErr != nil {
		return fmt.Errorf("mark failed %s: %w", p.event.ID, markErr)
	}
	return nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, p inflight, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       p.event.ID,
		EventType:     p.event.EventType,
		AggregateType: p.event.AggregateType,
		AggregateID:   p.event.AggregateID,
		Payload:       p.event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  p.event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", p.event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, p.event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", p.event.ID, err)
	}

	fields["error_reason"] = reason
	fields["error"] = msg
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox.dead_lettered")
	s.metrics.IncDLQ(string(p.event.EventType), string(reason))
	return nil
}

func (s *Service) logFields(p inflight) map[string]any {
	fields := map[string]any{
		"outbox_id":      p.event.ID.String(),
		"event_type":     p.event.EventType,
		"aggregate_type": p.event.AggregateType,
		"aggregate_id":   p.event.AggregateID.String(),
		"attempt_count":  p.event.AttemptCount,
	}
	if topic := p.topic(); topic != "" {
		fields["topic"] = topic
	}
	if p.resolved != nil && p.resolved.Envelope.EventID != "" {
		fields["event_id"] = p.resolved.Envelope.EventID
	}
	if p.event.LastError != nil {
		fields["last_error"] = *p.event.LastError
	}
	return fields
}
