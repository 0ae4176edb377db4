package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/dispo-backend/api/responses"
	"github.com/angelmondragon/dispo-backend/api/validators"
	"github.com/angelmondragon/dispo-backend/internal/trace"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

// HUTraceStore is the part of the trace repository the HTTP layer needs.
type HUTraceStore interface {
	AddEvent(ctx context.Context, event trace.Event) (bool, error)
	Query(ctx context.Context, query trace.Query) ([]trace.Record, error)
}

var huTraceIDParams = []string{
	"vhu_id",
	"vhu_source_id",
	"top_level_hu_id",
	"doc_type_id",
	"in_out_id",
	"movement_id",
	"cost_collector_id",
	"shipment_schedule_id",
}

// HUTraceAdd stores a trace event, answering 201 when it was new and 200 when an existing
// record was overwritten.
func HUTraceAdd(store HUTraceStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hu trace store unavailable"))
			return
		}

		var event trace.Event
		if err := validators.DecodeJSONBody(r, &event); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !event.Type.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid hu trace type").
				WithDetails(map[string]any{"type": event.Type}))
			return
		}

		inserted, err := store.AddEvent(r.Context(), event)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if inserted {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, map[string]bool{"inserted": inserted})
	}
}

// HUTraceQuery returns the records matching the query string, expanded along the HU lineage
// when recursion_mode is BACKWARD or FORWARD.
func HUTraceQuery(store HUTraceStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hu trace store unavailable"))
			return
		}

		query, err := parseHUTraceQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := store.Query(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"records": records})
	}
}

func parseHUTraceQuery(r *http.Request) (trace.Query, error) {
	ids := make(map[string]int64, len(huTraceIDParams))
	for _, key := range huTraceIDParams {
		value, err := validators.ParseQueryID(r, key)
		if err != nil {
			return trace.Query{}, err
		}
		ids[key] = value
	}

	eventTime, err := validators.ParseQueryTime(r, "event_time")
	if err != nil {
		return trace.Query{}, err
	}

	var traceType enums.HUTraceType
	if raw := validators.SanitizeCode(r.URL.Query().Get("type"), 64); raw != "" {
		parsed, err := enums.ParseHUTraceType(raw)
		if err != nil {
			return trace.Query{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid hu trace type")
		}
		traceType = parsed
	}

	mode, err := enums.ParseRecursionMode(r.URL.Query().Get("recursion_mode"))
	if err != nil {
		return trace.Query{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recursion mode")
	}

	return trace.Query{
		VHUID:              ids["vhu_id"],
		VHUSourceID:        ids["vhu_source_id"],
		TopLevelHUID:       ids["top_level_hu_id"],
		EventTime:          eventTime,
		Type:               traceType,
		DocTypeID:          ids["doc_type_id"],
		DocStatus:          validators.SanitizeCode(r.URL.Query().Get("doc_status"), 2),
		InOutID:            ids["in_out_id"],
		MovementID:         ids["movement_id"],
		CostCollectorID:    ids["cost_collector_id"],
		ShipmentScheduleID: ids["shipment_schedule_id"],
		RecursionMode:      mode,
	}, nil
}
