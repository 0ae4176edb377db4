package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/dispo-backend/api/middleware"
	"github.com/angelmondragon/dispo-backend/api/responses"
	"github.com/angelmondragon/dispo-backend/api/validators"
	"github.com/angelmondragon/dispo-backend/internal/candidates"
	"github.com/angelmondragon/dispo-backend/internal/transactions"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

// TransactionEventService reconciles transaction events now or queues them for the worker.
type TransactionEventService interface {
	Enqueue(ctx context.Context, event transactions.Event) error
	Handle(ctx context.Context, event transactions.Event) ([]candidates.Candidate, error)
}

// TransactionEventSubmit accepts a transaction event. By default it is queued and 202 is
// returned; with sync=true it is reconciled in the request and the touched candidates are
// returned.
func TransactionEventSubmit(svc TransactionEventService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}

		sync := false
		if raw := strings.TrimSpace(r.URL.Query().Get("sync")); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sync must be a boolean"))
				return
			}
			sync = parsed
		}

		var event transactions.Event
		if err := validators.DecodeJSONBody(r, &event); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if event.Descriptor == (candidates.EventDescriptor{}) {
			event.Descriptor = candidates.EventDescriptor{
				ClientID: middleware.ClientIDFromContext(r.Context()),
				OrgID:    middleware.OrgIDFromContext(r.Context()),
			}
		}

		if !sync {
			if err := svc.Enqueue(r.Context(), event); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
				"transaction_id": event.TransactionID,
				"status":         "queued",
			})
			return
		}

		saved, err := svc.Handle(r.Context(), event)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"transaction_id": event.TransactionID,
			"candidates":     saved,
		})
	}
}
