package trace

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/dispo-backend/internal/repo"
	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/db"
	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	"github.com/angelmondragon/dispo-backend/pkg/metrics"
)

// huTraceKeyIndex keeps at most one active record per (vhu_id, event_time).
const huTraceKeyIndex = "ux_hu_traces_vhu_event_time"

// errConcurrentInsert reports that another writer inserted the same key between the lookup
// and the insert.
var errConcurrentInsert = errors.New("hu trace key inserted concurrently")

// Repository persists HU trace events in hu_traces and answers lineage queries.
type Repository struct {
	base    repo.Base
	limits  Limits
	logg    *logger.Logger
	metrics *metrics.DispoMetrics
}

func NewRepository(db *gorm.DB, cfg config.TraceConfig, logg *logger.Logger, m *metrics.DispoMetrics) *Repository {
	return &Repository{
		base:    repo.NewBase(db),
		limits:  Limits{MaxDepth: cfg.MaxDepth, MaxRecords: cfg.MaxRecords},
		logg:    logg,
		metrics: m,
	}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	clone := *r
	clone.base = r.base.WithTx(tx)
	return &clone
}

// AddEvent inserts the event or overwrites the single active record with the same
// (vhu_id, event_time). It reports whether a new record was inserted. Several matching
// records are a consistency fault. An insert that loses a race on the same key is retried
// once and becomes an update.
func (r *Repository) AddEvent(ctx context.Context, event Event) (bool, error) {
	event.EventTime = normalizeTime(event.EventTime)
	inserted, err := r.upsert(ctx, event)
	if errors.Is(err, errConcurrentInsert) {
		// the competing row is committed now, so the second pass updates it
		inserted, err = r.upsert(ctx, event)
	}
	if errors.Is(err, errConcurrentInsert) {
		return false, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "insert hu trace")
	}
	if err != nil {
		return false, err
	}

	r.metrics.IncTraceUpsert(inserted)
	if r.logg != nil {
		logCtx := r.logg.WithVHUID(ctx, event.VHUID)
		logCtx = r.logg.WithFields(logCtx, map[string]any{
			"hu_trace_type": event.Type,
			"inserted":      inserted,
		})
		r.logg.Debug(logCtx, "hu trace event stored")
	}
	return inserted, nil
}

func (r *Repository) upsert(ctx context.Context, event Event) (bool, error) {
	inserted := false
	err := r.base.Transaction(ctx, func(tx *gorm.DB) error {
		query := QueryForEvent(event)
		existing, err := r.WithTx(tx).Find(ctx, query)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup hu trace")
		}

		switch len(existing) {
		case 0:
			row := models.HUTrace{}
			applyEvent(&row, event)
			if err := tx.Create(&row).Error; err != nil {
				if db.IsUniqueViolation(err, huTraceKeyIndex) {
					return errConcurrentInsert
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert hu trace")
			}
			inserted = true
		case 1:
			row := existing[0]
			applyEvent(&row, event)
			if err := tx.Save(&row).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update hu trace")
			}
		default:
			ids := make([]int64, 0, len(existing))
			for _, row := range existing {
				ids = append(ids, row.ID)
			}
			return pkgerrors.New(pkgerrors.CodeConsistency, "more than one hu trace record matches the event key").
				WithDetails(map[string]any{"query": query, "record_ids": ids})
		}
		return nil
	})
	return inserted, err
}

// Query resolves the lineage described by query.
func (r *Repository) Query(ctx context.Context, query Query) ([]Record, error) {
	if !query.EventTime.IsZero() {
		query.EventTime = normalizeTime(query.EventTime)
	}
	rows, err := NewResolver(r, r.limits).Resolve(ctx, query)
	if err != nil {
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve hu lineage")
		}
		return nil, err
	}
	r.metrics.ObserveTraceRecords(string(query.Mode()), len(rows))

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, ToRecord(row))
	}
	return records, nil
}

// Find implements Finder against hu_traces.
func (r *Repository) Find(ctx context.Context, query Query) ([]models.HUTrace, error) {
	if query.IsEmpty() {
		return nil, nil
	}
	db := r.base.DB(ctx).Model(&models.HUTrace{}).Where("is_active = ?", true)
	if query.VHUID > 0 {
		db = db.Where("vhu_id = ?", query.VHUID)
	}
	if query.VHUSourceID > 0 {
		db = db.Where("vhu_source_id = ?", query.VHUSourceID)
	}
	if query.TopLevelHUID > 0 {
		db = db.Where("top_level_hu_id = ?", query.TopLevelHUID)
	}
	if !query.EventTime.IsZero() {
		db = db.Where("event_time = ?", query.EventTime)
	}
	if query.Type != "" {
		db = db.Where("hu_trace_type = ?", query.Type)
	}
	if query.DocTypeID > 0 {
		db = db.Where("doc_type_id = ?", query.DocTypeID)
	}
	if query.DocStatus != "" {
		db = db.Where("doc_status = ?", query.DocStatus)
	}
	if query.InOutID > 0 {
		db = db.Where("in_out_id = ?", query.InOutID)
	}
	if query.MovementID > 0 {
		db = db.Where("movement_id = ?", query.MovementID)
	}
	if query.CostCollectorID > 0 {
		db = db.Where("cost_collector_id = ?", query.CostCollectorID)
	}
	if query.ShipmentScheduleID > 0 {
		db = db.Where("shipment_schedule_id = ?", query.ShipmentScheduleID)
	}

	var rows []models.HUTrace
	if err := db.Order("event_time ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// normalizeTime matches the precision Postgres keeps for timestamptz.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
