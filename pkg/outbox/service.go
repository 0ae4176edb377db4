package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/dispo-backend/pkg/db"
	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

// eventAggregateIndex keeps one queued row per (event type, aggregate).
const eventAggregateIndex = "ux_outbox_events_event_aggregate"

type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Origin        *Origin
	Data          any
	Version       int
	OccurredAt    time.Time
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	if logg != nil {
		logg = logg.Component("outbox")
	}
	return &Service{repo: repo, logg: logg}
}

// Emit queues the event in the caller's transaction. The row only becomes visible to the
// publisher once that transaction commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "outbox emit requires a transaction")
	}
	if event.AggregateID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "outbox event aggregate id required")
	}
	envelope, payload, err := seal(event)
	if err != nil {
		return err
	}
	row := models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":       envelope.EventID,
			"event_type":     event.EventType,
			"aggregate_id":   event.AggregateID,
			"aggregate_type": event.AggregateType,
		})
		s.logg.Info(logCtx, "outbox.event.queued")
	}
	return nil
}

// seal wraps the event data in a versioned envelope with a fresh event id.
func seal(event DomainEvent) (PayloadEnvelope, json.RawMessage, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode outbox event data")
	}
	envelope := PayloadEnvelope{
		Version:    max(event.Version, 1),
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Origin:     event.Origin,
		Data:       data,
	}
	if envelope.OccurredAt.IsZero() {
		envelope.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return PayloadEnvelope{}, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode outbox envelope")
	}
	return envelope, payload, nil
}

// EmitIfNotExists skips the insert when an event of the same type is already queued for the
// aggregate. Losing a concurrent insert on the unique index counts as already queued.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "outbox emit requires a transaction")
	}
	exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil || exists {
		return err
	}
	err = s.Emit(ctx, tx, event)
	if dbpkg.IsUniqueViolation(err, eventAggregateIndex) {
		return nil
	}
	return err
}
