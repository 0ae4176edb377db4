package transactions

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dispo-backend/internal/candidates"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	"github.com/angelmondragon/dispo-backend/pkg/metrics"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/payloads"
)

// CandidateFinder looks up the candidate a transaction belongs to.
type CandidateFinder interface {
	RetrieveLatestMatch(ctx context.Context, query candidates.Query) (*candidates.Candidate, error)
}

// EventPoster delivers a picking request once the enclosing transaction commits.
type EventPoster interface {
	PostAfterNextCommit(ctx context.Context, event payloads.PickingRequestedEvent) error
}

// Reconciler turns one transaction event into the candidates it creates or changes. It does
// not persist them.
type Reconciler struct {
	finder  CandidateFinder
	poster  EventPoster
	logg    *logger.Logger
	metrics *metrics.DispoMetrics
}

func NewReconciler(finder CandidateFinder, poster EventPoster, logg *logger.Logger, m *metrics.DispoMetrics) (*Reconciler, error) {
	if finder == nil {
		return nil, errors.New("candidate finder required")
	}
	if poster == nil {
		return nil, errors.New("event poster required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Reconciler{finder: finder, poster: poster, logg: logg, metrics: m}, nil
}

// Reconcile matches the event by the first business key it carries: shipment schedules,
// receipt schedules, production order, distribution order line, then the transaction itself.
func (r *Reconciler) Reconcile(ctx context.Context, event Event) ([]candidates.Candidate, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"transaction_id": event.TransactionID,
		"kind":           event.Kind,
		"branch":         event.Branch(),
	})

	switch event.Branch() {
	case BranchShipmentSchedule:
		return r.forShipmentSchedules(ctx, event)
	case BranchReceiptSchedule:
		return r.forReceiptSchedules(ctx, event)
	case BranchProductionOrder:
		candidate, err := r.forProductionOrder(ctx, event)
		if err != nil {
			return nil, err
		}
		if err := r.requestPickingIfFeasible(ctx, candidate, event); err != nil {
			return nil, err
		}
		return []candidates.Candidate{candidate}, nil
	case BranchDistributionOrder:
		candidate, err := r.forDistributionOrder(ctx, event)
		if err != nil {
			return nil, err
		}
		if err := r.requestPickingIfFeasible(ctx, candidate, event); err != nil {
			return nil, err
		}
		return []candidates.Candidate{candidate}, nil
	default:
		candidate, err := r.unrelated(ctx, event)
		if err != nil {
			return nil, err
		}
		return []candidates.Candidate{candidate}, nil
	}
}

func (r *Reconciler) forShipmentSchedules(ctx context.Context, event Event) ([]candidates.Candidate, error) {
	result := make([]candidates.Candidate, 0, len(event.ShipmentScheduleQtys))
	for _, scheduleID := range sortedKeys(event.ShipmentScheduleQtys) {
		qty := event.ShipmentScheduleQtys[scheduleID]
		demand := candidates.DemandDetail{ShipmentScheduleID: scheduleID, Qty: qty}
		query := candidates.Query{
			Type:   enums.CandidateTypeDemand,
			Demand: &candidates.DemandQuery{ShipmentScheduleID: scheduleID},
		}
		candidate, err := r.resolve(ctx, event, query, qty, demand)
		if err != nil {
			return nil, err
		}
		result = append(result, candidate)
	}
	return result, nil
}

func (r *Reconciler) forReceiptSchedules(ctx context.Context, event Event) ([]candidates.Candidate, error) {
	result := make([]candidates.Candidate, 0, len(event.ReceiptScheduleQtys))
	for _, scheduleID := range sortedKeys(event.ReceiptScheduleQtys) {
		purchase := candidates.PurchaseDetail{
			ReceiptScheduleID: scheduleID,
			PlannedQty:        event.ReceiptScheduleQtys[scheduleID],
			Advised:           enums.FlagFalseDontUpdate,
		}
		query := candidates.Query{
			Type:     enums.CandidateTypeSupply,
			Purchase: &candidates.PurchaseQuery{ReceiptScheduleID: scheduleID},
		}
		candidate, err := r.resolve(ctx, event, query, event.Quantity(), purchase)
		if err != nil {
			return nil, err
		}
		result = append(result, candidate)
	}
	return result, nil
}

func (r *Reconciler) forProductionOrder(ctx context.Context, event Event) (candidates.Candidate, error) {
	query := candidates.Query{
		Production: &candidates.ProductionQuery{PPOrderID: event.PPOrderID, PPOrderLineID: event.PPOrderLineID},
	}
	production := candidates.ProductionDetail{
		PPOrderID:              event.PPOrderID,
		PPOrderLineID:          event.PPOrderLineID,
		PlannedQty:             event.Quantity(),
		Advised:                enums.FlagFalseDontUpdate,
		PickDirectlyIfFeasible: enums.FlagFalseDontUpdate,
	}
	return r.resolve(ctx, event, query, event.Quantity(), production)
}

func (r *Reconciler) forDistributionOrder(ctx context.Context, event Event) (candidates.Candidate, error) {
	query := candidates.Query{
		Distribution: &candidates.DistributionQuery{DDOrderID: event.DDOrderID, DDOrderLineID: event.DDOrderLineID},
	}
	distribution := candidates.DistributionDetail{
		DDOrderID:              event.DDOrderID,
		DDOrderLineID:          event.DDOrderLineID,
		PlannedQty:             event.Quantity(),
		Advised:                enums.FlagFalseDontUpdate,
		PickDirectlyIfFeasible: enums.FlagFalseDontUpdate,
	}
	return r.resolve(ctx, event, query, event.Quantity(), distribution)
}

func (r *Reconciler) unrelated(ctx context.Context, event Event) (candidates.Candidate, error) {
	query := candidates.Query{TransactionID: event.TransactionID}
	return r.resolve(ctx, event, query, event.Quantity(), nil)
}

// resolve merges the event into the latest matching candidate, or builds a new unrelated
// candidate carrying detail when the event is a creation.
func (r *Reconciler) resolve(ctx context.Context, event Event, query candidates.Query, qty decimal.Decimal, detail candidates.BusinessCaseDetail) (candidates.Candidate, error) {
	transactionDetail := candidates.TransactionDetail{
		TransactionID: event.TransactionID,
		Quantity:      event.QuantityDelta(),
	}

	existing, err := r.retrieve(ctx, query)
	if err != nil {
		return candidates.Candidate{}, err
	}
	if existing != nil {
		r.logg.Debug(r.logg.WithCandidateID(ctx, existing.ID), "transaction merged into existing candidate")
		return existing.WithTransactionDetail(transactionDetail), nil
	}
	if event.IsDeleted() {
		return candidates.Candidate{}, pkgerrors.New(pkgerrors.CodeConsistency, "deleted transaction has no candidate").WithDetails(map[string]any{
			"event": event,
			"query": query,
		})
	}

	candidate := newUnrelatedCandidate(event, qty)
	candidate.BusinessCaseDetail = detail
	candidate.TransactionDetails = []candidates.TransactionDetail{transactionDetail}
	return candidate, nil
}

// retrieve prefers a candidate of query.Type and otherwise takes any candidate on the same
// business key. Schedules without a planned candidate are served by the unrelated candidate
// created for their first transaction.
func (r *Reconciler) retrieve(ctx context.Context, query candidates.Query) (*candidates.Candidate, error) {
	existing, err := r.finder.RetrieveLatestMatch(ctx, query)
	if err != nil || existing != nil || query.Type == "" {
		return existing, err
	}
	query.Type = ""
	return r.finder.RetrieveLatestMatch(ctx, query)
}

// newUnrelatedCandidate classifies by the sign of qty. A decrease stores the negated quantity
// so that candidate quantities stay positive.
func newUnrelatedCandidate(event Event, qty decimal.Decimal) candidates.Candidate {
	candidate := candidates.Candidate{
		Descriptor: event.Descriptor,
		Type:       enums.CandidateTypeUnrelatedIncrease,
		Material:   event.Material,
	}
	if qty.Sign() <= 0 {
		candidate.Type = enums.CandidateTypeUnrelatedDecrease
		candidate.Material = event.Material.WithQuantity(qty.Neg())
	}
	return candidate
}

func (r *Reconciler) requestPickingIfFeasible(ctx context.Context, candidate candidates.Candidate, event Event) error {
	if event.IsDeleted() {
		return nil
	}

	var pickDirectly enums.Flag
	switch detail := candidate.BusinessCaseDetail.(type) {
	case candidates.ProductionDetail:
		pickDirectly = detail.PickDirectlyIfFeasible
	case candidates.DistributionDetail:
		pickDirectly = detail.PickDirectlyIfFeasible
	default:
		return pkgerrors.New(pkgerrors.CodeConsistency, "unsupported business case for picking").WithDetails(map[string]any{
			"business_case": candidate.BusinessCase(),
			"candidate_id":  candidate.ID,
		})
	}
	if !pickDirectly.ToBool() {
		r.metrics.IncPickingRequest("skipped")
		r.logg.Info(r.logg.WithField(ctx, "pick_directly_if_feasible", pickDirectly), "picking not requested: candidate does not pick directly")
		return nil
	}

	demand := candidate.DemandDetail()
	if demand == nil || demand.ShipmentScheduleID <= 0 {
		r.metrics.IncPickingRequest("skipped")
		r.logg.Info(r.logg.WithCandidateID(ctx, candidate.ID), "picking not requested: candidate has no shipment schedule")
		return nil
	}
	if len(event.HUOnHandQtyChanges) == 0 {
		r.metrics.IncPickingRequest("skipped")
		r.logg.Info(ctx, "picking not requested: event has no handling units")
		return nil
	}

	huIDs := make([]int64, 0, len(event.HUOnHandQtyChanges))
	for _, hu := range event.HUOnHandQtyChanges {
		if hu.Quantity.Sign() > 0 {
			huIDs = append(huIDs, hu.HUID)
		}
	}
	return r.poster.PostAfterNextCommit(ctx, payloads.PickingRequestedEvent{
		ClientID:           event.Descriptor.ClientID,
		OrgID:              event.Descriptor.OrgID,
		ShipmentScheduleID: demand.ShipmentScheduleID,
		TopLevelHUIDs:      huIDs,
	})
}

func sortedKeys(m map[int64]decimal.Decimal) []int64 {
	keys := make([]int64, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
