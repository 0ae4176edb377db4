package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/dispo-backend/api/responses"
	"github.com/angelmondragon/dispo-backend/api/validators"
	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	"github.com/angelmondragon/dispo-backend/pkg/outbox"
)

// OutboxDLQStore reads the publisher's dead letters.
type OutboxDLQStore interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

type outboxDLQEntry struct {
	ID            uuid.UUID                  `json:"id"`
	EventID       uuid.UUID                  `json:"event_id"`
	EventType     enums.OutboxEventType      `json:"event_type"`
	AggregateType enums.OutboxAggregateType  `json:"aggregate_type"`
	AggregateID   string                     `json:"aggregate_id"`
	ErrorReason   enums.OutboxDLQErrorReason `json:"error_reason"`
	ErrorMessage  *string                    `json:"error_message,omitempty"`
	AttemptCount  int                        `json:"attempt_count"`
	FailedAt      string                     `json:"failed_at"`
}

func toOutboxDLQEntry(row models.OutboxDLQ) outboxDLQEntry {
	return outboxDLQEntry{
		ID:            row.ID,
		EventID:       row.EventID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		ErrorReason:   row.ErrorReason,
		ErrorMessage:  row.ErrorMessage,
		AttemptCount:  row.AttemptCount,
		FailedAt:      row.FailedAt.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
	}
}

// OutboxDLQList lists dead letters, optionally filtered by event_type and reason.
func OutboxDLQList(store OutboxDLQStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dlq store unavailable"))
			return
		}

		filter, err := parseOutboxDLQFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := store.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		entries := make([]outboxDLQEntry, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, toOutboxDLQEntry(row))
		}
		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}

// OutboxDLQGet returns the dead letter recorded for one outbox event id.
func OutboxDLQGet(store OutboxDLQStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dlq store unavailable"))
			return
		}

		eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id must be a uuid"))
			return
		}

		row, err := store.FindByEventID(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dead letter"))
			return
		}
		if row == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found").
				WithDetails(map[string]any{"event_id": eventID}))
			return
		}
		responses.WriteSuccess(w, toOutboxDLQEntry(*row))
	}
}

func parseOutboxDLQFilter(r *http.Request) (outbox.DLQFilter, error) {
	var filter outbox.DLQFilter

	limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit

	if raw := validators.SanitizeString(r.URL.Query().Get("event_type"), 64); raw != "" {
		eventType, err := enums.ParseOutboxEventType(strings.ToLower(raw))
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event_type")
		}
		filter.EventType = eventType
	}
	if raw := validators.SanitizeString(r.URL.Query().Get("reason"), 32); raw != "" {
		reason, err := enums.ParseOutboxDLQErrorReason(strings.ToLower(raw))
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason")
		}
		filter.Reason = reason
	}
	return filter, nil
}
