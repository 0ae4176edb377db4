package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	"github.com/angelmondragon/dispo-backend/pkg/outbox"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/registry"
)

// outcome is what happened to one outbox row in a batch.
type outcome string

const (
	outcomePublished    outcome = "published"
	outcomeRetried      outcome = "retried"
	outcomeDeadLettered outcome = "dead_lettered"
)

// dispatch publishes one row and records the result on it. The returned error is reserved
// for bookkeeping failures, which roll the whole batch back.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		fields := s.eventFields(event, outbox.PayloadEnvelope{}, "")
		return outcomeDeadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}

	topic := resolved.Descriptor.Topic
	fields := s.eventFields(event, resolved.Envelope, topic)

	err = s.publishResolved(ctx, event, resolved)
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
			return "", fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return outcomePublished, nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return outcomeDeadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}

	nextAttempt := event.AttemptCount + 1
	fields["attempt_count"] = nextAttempt
	if nextAttempt >= s.maxAttempts {
		terminalErr := fmt.Errorf("max publish attempts reached: %w", err)
		return outcomeDeadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, terminalErr, fields)
	}

	logCtx := s.logg.WithFields(ctx, fields)
	s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "outbox publish failed")
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		return "", fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return outcomeRetried, nil
}

// deadLetter copies the row to outbox_dlq and marks it terminal so it is never fetched again.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, err error, fields map[string]any) error {
	fields["error_reason"] = reason
	logCtx := s.logg.WithFields(ctx, fields)
	s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "outbox event will not be retried")

	msg := err.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if dlqErr := s.dlq.InsertTx(tx, entry); dlqErr != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, dlqErr)
	}
	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return nil
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
