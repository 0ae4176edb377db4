package transactions

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/dispo-backend/internal/candidates"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	"github.com/angelmondragon/dispo-backend/pkg/metrics"
	"github.com/angelmondragon/dispo-backend/pkg/outbox"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service handles transaction events end to end: reconcile, save every affected candidate
// and queue picking requests, all in one database transaction.
type Service struct {
	tx         txRunner
	candidates *candidates.Repository
	outbox     eventEmitter
	logg       *logger.Logger
	metrics    *metrics.DispoMetrics
}

func NewService(tx txRunner, repo *candidates.Repository, emitter eventEmitter, logg *logger.Logger, m *metrics.DispoMetrics) (*Service, error) {
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if repo == nil {
		return nil, errors.New("candidate repository required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Service{tx: tx, candidates: repo, outbox: emitter, logg: logg, metrics: m}, nil
}

// Handle reconciles the event and returns the saved candidates. Picking requests become
// visible to the outbox publisher only when the transaction commits.
func (s *Service) Handle(ctx context.Context, event Event) ([]candidates.Candidate, error) {
	start := time.Now()
	ctx = s.logg.WithTransactionID(ctx, event.TransactionID)

	var saved []candidates.Candidate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.candidates.WithTx(tx)
		poster := &outboxPoster{emitter: s.outbox, tx: tx, metrics: s.metrics}
		reconciler, err := NewReconciler(repo, poster, s.logg, s.metrics)
		if err != nil {
			return err
		}

		changed, err := reconciler.Reconcile(ctx, event)
		if err != nil {
			return err
		}
		saved = make([]candidates.Candidate, 0, len(changed))
		for _, candidate := range changed {
			stored, err := repo.Save(ctx, candidate)
			if err != nil {
				return err
			}
			saved = append(saved, *stored)
		}
		return nil
	})
	s.metrics.ObserveTransactionEvent(string(event.Kind), event.Branch(), err, time.Since(start))
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "handle transaction event")
		}
		return nil, err
	}

	ids := make([]int64, 0, len(saved))
	for _, candidate := range saved {
		ids = append(ids, candidate.ID)
	}
	s.logg.Info(s.logg.WithField(ctx, "candidate_ids", ids), "transaction event reconciled")
	return saved, nil
}

// Enqueue queues the event in the outbox for asynchronous handling by the dispo worker. A
// transaction already queued with the same kind is not queued again.
func (s *Service) Enqueue(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	eventType := enums.EventTransactionCreated
	if event.IsDeleted() {
		eventType = enums.EventTransactionDeleted
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   strconv.FormatInt(event.TransactionID, 10),
			Origin:        &outbox.Origin{ClientID: event.Descriptor.ClientID, OrgID: event.Descriptor.OrgID},
			Data:          event.Payload(),
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue transaction event")
	}
	return nil
}

// outboxPoster queues picking requests in the outbox of the open transaction.
type outboxPoster struct {
	emitter eventEmitter
	tx      *gorm.DB
	metrics *metrics.DispoMetrics
}

func (p *outboxPoster) PostAfterNextCommit(ctx context.Context, event payloads.PickingRequestedEvent) error {
	err := p.emitter.Emit(ctx, p.tx, outbox.DomainEvent{
		EventType:     enums.EventPickingRequested,
		AggregateType: enums.AggregateShipmentSchedule,
		AggregateID:   strconv.FormatInt(event.ShipmentScheduleID, 10),
		Origin:        &outbox.Origin{ClientID: event.ClientID, OrgID: event.OrgID},
		Data:          event,
	})
	if err != nil {
		return err
	}
	p.metrics.IncPickingRequest("queued")
	return nil
}
