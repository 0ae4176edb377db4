package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dispo-backend/internal/candidates"
	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/outbox"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/registry"
)

type fakeHandler struct {
	err    error
	events []Event
}

func (h *fakeHandler) Handle(_ context.Context, event Event) ([]candidates.Candidate, error) {
	h.events = append(h.events, event)
	return nil, h.err
}

type fakeIdempotency struct {
	processed map[uuid.UUID]bool
	deleted   []uuid.UUID
	err       error
}

func (f *fakeIdempotency) Claim(_ context.Context, _ string, eventID uuid.UUID) (idempotency.Claim, error) {
	if f.err != nil {
		return idempotency.Claim{}, f.err
	}
	if f.processed == nil {
		f.processed = map[uuid.UUID]bool{}
	}
	already := f.processed[eventID]
	f.processed[eventID] = true
	return idempotency.Claim{Key: eventID.String(), Duplicate: already}, nil
}

func (f *fakeIdempotency) Release(_ context.Context, claim idempotency.Claim) error {
	if claim.Duplicate {
		return nil
	}
	eventID := uuid.MustParse(claim.Key)
	f.deleted = append(f.deleted, eventID)
	delete(f.processed, eventID)
	return nil
}

func newTestConsumer(t *testing.T, h *fakeHandler, idem *fakeIdempotency) *Consumer {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{TransactionsTopic: "transactions", PickingTopic: "picking"})
	require.NoError(t, err)
	return &Consumer{handler: h, decoder: reg, idempotency: idem, logg: testLogger()}
}

func messageBody(t *testing.T, eventID string, event Event) []byte {
	t.Helper()
	data, err := json.Marshal(event.Payload())
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return body
}

func attrs(eventType enums.OutboxEventType) map[string]string {
	return map[string]string{"event_type": string(eventType)}
}

func TestConsumerHandlesTransactionEventOnce(t *testing.T) {
	h := &fakeHandler{}
	c := newTestConsumer(t, h, &fakeIdempotency{})
	event := createdEvent(50, 3)
	event.PPOrderID = 7
	body := messageBody(t, uuid.NewString(), event)

	assert.False(t, c.Process(context.Background(), "m1", attrs(enums.EventTransactionCreated), body))
	assert.False(t, c.Process(context.Background(), "m2", attrs(enums.EventTransactionCreated), body))

	require.Len(t, h.events, 1)
	assert.Equal(t, int64(50), h.events[0].TransactionID)
	assert.Equal(t, int64(7), h.events[0].PPOrderID)
	assert.True(t, h.events[0].Quantity().Equal(qty(3)))
}

func TestConsumerDerivesKindFromEventType(t *testing.T) {
	h := &fakeHandler{}
	c := newTestConsumer(t, h, &fakeIdempotency{})
	event := createdEvent(51, 3)
	event.Kind = ""

	assert.False(t, c.Process(context.Background(), "m1", attrs(enums.EventTransactionDeleted), messageBody(t, uuid.NewString(), event)))
	require.Len(t, h.events, 1)
	assert.Equal(t, enums.TransactionEventDeleted, h.events[0].Kind)
}

func TestConsumerAcksConsistencyFaults(t *testing.T) {
	h := &fakeHandler{err: pkgerrors.New(pkgerrors.CodeConsistency, "deleted transaction has no candidate")}
	idem := &fakeIdempotency{}
	c := newTestConsumer(t, h, idem)

	retry := c.Process(context.Background(), "m1", attrs(enums.EventTransactionCreated), messageBody(t, uuid.NewString(), createdEvent(52, 1)))
	assert.False(t, retry)
	assert.Empty(t, idem.deleted)
}

func TestConsumerRetriesTransientFailures(t *testing.T) {
	h := &fakeHandler{err: errors.New("connection reset")}
	idem := &fakeIdempotency{}
	c := newTestConsumer(t, h, idem)
	eventID := uuid.New()

	retry := c.Process(context.Background(), "m1", attrs(enums.EventTransactionCreated), messageBody(t, eventID.String(), createdEvent(53, 1)))
	assert.True(t, retry)
	assert.Equal(t, []uuid.UUID{eventID}, idem.deleted)
}

func TestConsumerRetriesWhenIdempotencyStoreFails(t *testing.T) {
	h := &fakeHandler{}
	c := newTestConsumer(t, h, &fakeIdempotency{err: errors.New("redis down")})

	assert.True(t, c.Process(context.Background(), "m1", attrs(enums.EventTransactionCreated), messageBody(t, uuid.NewString(), createdEvent(54, 1))))
	assert.Empty(t, h.events)
}

func TestConsumerDropsUnusableMessages(t *testing.T) {
	h := &fakeHandler{}
	c := newTestConsumer(t, h, &fakeIdempotency{})
	ctx := context.Background()

	assert.False(t, c.Process(ctx, "m1", attrs(enums.EventPickingRequested), []byte(`{}`)))
	assert.False(t, c.Process(ctx, "m2", attrs(enums.EventTransactionCreated), []byte(`not-json`)))
	assert.False(t, c.Process(ctx, "m3", attrs(enums.EventTransactionCreated), []byte(`{"version":1,"eventId":"x","data":null}`)))
	assert.False(t, c.Process(ctx, "m4", attrs(enums.EventTransactionCreated), messageBody(t, "not-a-uuid", createdEvent(55, 1))))
	assert.Empty(t, h.events)
}
