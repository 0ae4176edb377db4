package enums

import "fmt"

// OutboxAggregateType maps to outbox_events.aggregate_type.
type OutboxAggregateType string

const (
	AggregateShipmentSchedule OutboxAggregateType = "shipment_schedule"
	AggregateTransaction      OutboxAggregateType = "transaction"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateShipmentSchedule,
	AggregateTransaction,
}

// IsValid reports whether the value matches the canonical aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to outbox_events.event_type.
type OutboxEventType string

const (
	EventTransactionCreated OutboxEventType = "transaction_created"
	EventTransactionDeleted OutboxEventType = "transaction_deleted"
	EventPickingRequested   OutboxEventType = "picking_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTransactionCreated,
	EventTransactionDeleted,
	EventPickingRequested,
}

// IsValid reports whether the value matches the canonical event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why the publisher gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseOutboxDLQErrorReason converts a query value into OutboxDLQErrorReason.
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	reason := OutboxDLQErrorReason(value)
	if !reason.IsValid() {
		return "", fmt.Errorf("invalid dlq reason %q", value)
	}
	return reason, nil
}
