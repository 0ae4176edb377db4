package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	"github.com/angelmondragon/dispo-backend/pkg/outbox"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/payloads"
)

// currentPayloadVersion is the envelope version every registered payload is written with.
const currentPayloadVersion = 1

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor and its versioned payload
// decoders.
type EventRegistry struct {
	entries  map[enums.OutboxEventType]EventDescriptor
	decoders *DecoderRegistry
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.TransactionsTopic == "" {
		return nil, fmt.Errorf("transactions topic is required")
	}
	if cfg.PickingTopic == "" {
		return nil, fmt.Errorf("picking topic is required")
	}

	reg := &EventRegistry{
		entries:  make(map[enums.OutboxEventType]EventDescriptor),
		decoders: NewDecoderRegistry(),
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventTransactionCreated,
			AggregateType:  enums.AggregateTransaction,
			Topic:          cfg.TransactionsTopic,
			PayloadFactory: func() interface{} { return &payloads.TransactionEvent{} },
		},
		{
			EventType:      enums.EventTransactionDeleted,
			AggregateType:  enums.AggregateTransaction,
			Topic:          cfg.TransactionsTopic,
			PayloadFactory: func() interface{} { return &payloads.TransactionEvent{} },
		},
		{
			EventType:      enums.EventPickingRequested,
			AggregateType:  enums.AggregateShipmentSchedule,
			Topic:          cfg.PickingTopic,
			PayloadFactory: func() interface{} { return &payloads.PickingRequestedEvent{} },
		},
	} {
		reg.register(desc)
	}
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
	r.decoders.Register(desc.EventType, currentPayloadVersion, JSONDecoder(desc.PayloadFactory))
}

// Descriptor returns the registered descriptor for the event type.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if strings.TrimSpace(event.AggregateID) == "" {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, payload, err := r.DecodePayload(event.EventType, event.Payload)
	if err != nil {
		return nil, err
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// DecodePayload unwraps an envelope and decodes its data into the registered payload type.
// Consumers use it on raw Pub/Sub message bodies.
func (r *EventRegistry) DecodePayload(eventType enums.OutboxEventType, raw []byte) (outbox.PayloadEnvelope, interface{}, error) {
	var envelope outbox.PayloadEnvelope
	desc, ok := r.entries[eventType]
	if !ok {
		return envelope, nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", eventType))
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return envelope, nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return envelope, nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", eventType))
	}

	version := envelope.Version
	if version <= 0 {
		version = r.decoders.Latest(desc.EventType)
	}
	payload, err := r.decoders.Decode(desc.EventType, version, envelope.Data)
	if err != nil {
		return envelope, nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", eventType, err))
	}
	return envelope, payload, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
