package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}, &models.OutboxDLQ{}))
	return conn
}

func TestEmitStoresEnvelope(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "outbox-test"}))

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPickingRequested,
			AggregateType: enums.AggregateShipmentSchedule,
			AggregateID:   "42",
			Origin:        &Origin{ClientID: 1, OrgID: 2},
			Data:          map[string]any{"shipment_schedule_id": 42},
		})
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "42", rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Origin)
	assert.Equal(t, int64(2), envelope.Origin.OrgID)
	assert.JSONEq(t, `{"shipment_schedule_id":42}`, string(envelope.Data))
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPickingRequested,
			AggregateType: enums.AggregateShipmentSchedule,
			AggregateID:   "1",
			Data:          map[string]any{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitRequiresTransactionAndAggregate(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{AggregateID: "1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	conn := newTestDB(t)
	err = svc.Emit(context.Background(), conn, DomainEvent{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.Emit(context.Background(), conn, DomainEvent{AggregateID: "1", Data: make(chan int)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestSealKeepsExplicitVersionAndTime(t *testing.T) {
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	envelope, payload, err := seal(DomainEvent{Version: 3, OccurredAt: at, Data: []int64{7}})
	require.NoError(t, err)

	var stored PayloadEnvelope
	require.NoError(t, json.Unmarshal(payload, &stored))
	assert.Equal(t, envelope.EventID, stored.EventID)
	assert.Equal(t, 3, stored.Version)
	assert.True(t, stored.OccurredAt.Equal(at))
	assert.Nil(t, stored.Origin)
	assert.JSONEq(t, `[7]`, string(stored.Data))
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	event := DomainEvent{
		EventType:     enums.EventTransactionCreated,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   "9",
		Data:          map[string]any{"transaction_id": 9},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}))
	}

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	for _, id := range []string{"1", "2"} {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.Emit(context.Background(), tx, DomainEvent{
				EventType:     enums.EventPickingRequested,
				AggregateType: enums.AggregateShipmentSchedule,
				AggregateID:   id,
				Data:          map[string]any{},
			})
		}))
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.NoError(t, repo.MarkPublishedTx(tx, rows[0].ID))
		require.NoError(t, repo.MarkFailedTx(tx, rows[1].ID, errors.New("unavailable")))
		return nil
	})
	require.NoError(t, err)

	var failed models.OutboxEvent
	err = conn.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		failed = rows[0]
		return repo.MarkTerminalTx(tx, failed.ID, errors.New("gave up"), 3)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, failed.AttemptCount)
	require.NotNil(t, failed.LastError)
	assert.Equal(t, "unavailable", *failed.LastError)

	err = conn.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		assert.Empty(t, rows)
		return nil
	})
	require.NoError(t, err)
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	conn := newTestDB(t)
	dlq := NewDLQRepository(conn)

	long := make([]byte, maxDLQErrorLen+100)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventPickingRequested,
		AggregateType: enums.AggregateShipmentSchedule,
		AggregateID:   "5",
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return dlq.InsertTx(tx, entry)
	}))

	rows, err := dlq.List(context.Background(), DLQFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ErrorMessage)
	assert.Len(t, *rows[0].ErrorMessage, maxDLQErrorLen)

	found, err := dlq.FindByEventID(context.Background(), rows[0].EventID)
	require.NoError(t, err)
	assert.NotNil(t, found)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDLQRepositoryListFilters(t *testing.T) {
	conn := newTestDB(t)
	dlq := NewDLQRepository(conn)

	for _, reason := range []enums.OutboxDLQErrorReason{
		enums.OutboxDLQReasonMaxAttempts,
		enums.OutboxDLQReasonNonRetryable,
		enums.OutboxDLQReasonNonRetryable,
	} {
		entry := models.OutboxDLQ{
			EventID:       uuid.New(),
			EventType:     enums.EventPickingRequested,
			AggregateType: enums.AggregateShipmentSchedule,
			AggregateID:   "7",
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   reason,
		}
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return dlq.InsertTx(tx, entry)
		}))
	}

	rows, err := dlq.List(context.Background(), DLQFilter{Reason: enums.OutboxDLQReasonNonRetryable})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = dlq.List(context.Background(), DLQFilter{EventType: enums.EventTransactionCreated})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = dlq.List(context.Background(), DLQFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
