package transactions

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/dispo-backend/internal/candidates"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	"github.com/angelmondragon/dispo-backend/pkg/outbox"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/registry"
)

const transactionsConsumerName = "transactions-worker"

type handler interface {
	Handle(ctx context.Context, event Event) ([]candidates.Candidate, error)
}

type payloadDecoder interface {
	DecodePayload(eventType enums.OutboxEventType, raw []byte) (outbox.PayloadEnvelope, interface{}, error)
}

type idempotencyChecker interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (idempotency.Claim, error)
	Release(ctx context.Context, claim idempotency.Claim) error
}

// Consumer receives transaction events from Pub/Sub and hands them to the Service.
type Consumer struct {
	handler      handler
	decoder      payloadDecoder
	subscription *pubsub.Subscriber
	idempotency  idempotencyChecker
	logg         *logger.Logger
}

func NewConsumer(h handler, decoder payloadDecoder, subscription *pubsub.Subscriber, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if h == nil {
		return nil, fmt.Errorf("transaction handler required")
	}
	if decoder == nil {
		return nil, fmt.Errorf("payload decoder required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("transactions subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		handler:      h,
		decoder:      decoder,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg.Component(transactionsConsumerName),
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Process(ctx, msg.ID, msg.Attributes, msg.Data) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process handles one message body and reports whether it should be redelivered.
// Undecodable messages and consistency faults are dropped.
func (c *Consumer) Process(ctx context.Context, messageID string, attributes map[string]string, data []byte) (retry bool) {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": attributes["event_type"],
	})

	eventType, err := enums.ParseOutboxEventType(attributes["event_type"])
	if err != nil || (eventType != enums.EventTransactionCreated && eventType != enums.EventTransactionDeleted) {
		c.logg.Info(logCtx, "skipping non-transaction event")
		return false
	}

	envelope, decoded, err := c.decoder.DecodePayload(eventType, data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode transaction event", err)
		var nonRetryable registry.NonRetryableError
		return !errors.As(err, &nonRetryable)
	}
	payload, ok := decoded.(*payloads.TransactionEvent)
	if !ok {
		c.logg.Error(logCtx, "unexpected payload type", fmt.Errorf("got %T", decoded))
		return false
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return false
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	claim, err := c.idempotency.Claim(ctx, transactionsConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if claim.Duplicate {
		c.logg.Info(logCtx, "event already processed")
		return false
	}

	event := FromPayload(*payload)
	if event.Kind == "" {
		event.Kind = enums.TransactionEventCreated
		if eventType == enums.EventTransactionDeleted {
			event.Kind = enums.TransactionEventDeleted
		}
	}

	if _, err := c.handler.Handle(logCtx, event); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConsistency) || pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			c.logg.Error(logCtx, "transaction event rejected", err)
			return false
		}
		c.logg.Error(logCtx, "transaction event handling failed", err)
		if err := c.idempotency.Release(ctx, claim); err != nil {
			c.logg.Warn(logCtx, "failed to release idempotency claim")
		}
		return true
	}
	return false
}
