package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	"github.com/angelmondragon/dispo-backend/pkg/outbox"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	payloadBytes := mustMarshal(t, payloads.PickingRequestedEvent{
		ShipmentScheduleID: 77,
		TopLevelHUIDs:      []int64{10, 11},
	})

	event := models.OutboxEvent{
		EventType:     enums.EventPickingRequested,
		AggregateType: enums.AggregateShipmentSchedule,
		AggregateID:   "77",
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "picking-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.PickingRequestedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.ShipmentScheduleID != 77 || len(payload.TopLevelHUIDs) != 2 {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurred_at")
	}
}

func TestEventRegistryResolveTransactionEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	payloadBytes := mustMarshal(t, payloads.TransactionEvent{
		Kind:          enums.TransactionEventCreated,
		TransactionID: 5,
		Material:      payloads.MaterialDescriptor{ProductID: 1, WarehouseID: 2, Quantity: decimal.NewFromInt(4)},
		ShipmentScheduleQtys: map[int64]decimal.Decimal{
			9: decimal.NewFromInt(4),
		},
	})
	event := models.OutboxEvent{
		EventType:     enums.EventTransactionCreated,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   "5",
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "transactions-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload := resolved.Payload.(*payloads.TransactionEvent)
	if !payload.ShipmentScheduleQtys[9].Equal(decimal.NewFromInt(4)) {
		t.Fatalf("schedule qty mismatch %+v", payload.ShipmentScheduleQtys)
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.OutboxEventType("order_created"),
		AggregateType: enums.AggregateTransaction,
		AggregateID:   "1",
		Payload:       mustEnvelope(t, []byte(`{"reason":"none"}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventPickingRequested,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   "1",
		Payload:       mustEnvelope(t, []byte(`{"shipment_schedule_id":1}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryResolveMissingAggregateID(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventPickingRequested,
		AggregateType: enums.AggregateShipmentSchedule,
		AggregateID:   " ",
		Payload:       mustEnvelope(t, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryResolveNullPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventPickingRequested,
		AggregateType: enums.AggregateShipmentSchedule,
		AggregateID:   "3",
		Payload:       mustEnvelope(t, []byte("null")),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryDecodeUnknownVersion(t *testing.T) {
	reg := newTestEventRegistry(t)

	raw := mustMarshal(t, outbox.PayloadEnvelope{
		Version:    2,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"shipment_schedule_id":5}`),
	})

	_, _, err := reg.DecodePayload(enums.EventPickingRequested, raw)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{PickingTopic: "p"}); err == nil {
		t.Fatalf("expected error without transactions topic")
	}
	if _, err := NewEventRegistry(config.PubSubConfig{TransactionsTopic: "t"}); err == nil {
		t.Fatalf("expected error without picking topic")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	cfg := config.PubSubConfig{
		TransactionsTopic: "transactions-topic",
		PickingTopic:      "picking-topic",
	}
	reg, err := NewEventRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
