package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/dispo-backend/api/responses"
	"github.com/angelmondragon/dispo-backend/api/validators"
	"github.com/angelmondragon/dispo-backend/internal/partnersync"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

func ProcurementSyncBPartners(agent partnersync.Agent, logg *logger.Logger) http.HandlerFunc {
	return procurementSync(agent, logg, func(ctx context.Context, req partnersync.SyncBPartnersRequest) error {
		return agent.SyncBPartners(ctx, req)
	})
}

func ProcurementSyncProducts(agent partnersync.Agent, logg *logger.Logger) http.HandlerFunc {
	return procurementSync(agent, logg, func(ctx context.Context, req partnersync.SyncProductsRequest) error {
		return agent.SyncProducts(ctx, req)
	})
}

func ProcurementSyncInfoMessage(agent partnersync.Agent, logg *logger.Logger) http.HandlerFunc {
	return procurementSync(agent, logg, func(ctx context.Context, req partnersync.SyncInfoMessageRequest) error {
		return agent.SyncInfoMessage(ctx, req)
	})
}

func ProcurementConfirm(agent partnersync.Agent, logg *logger.Logger) http.HandlerFunc {
	return procurementSync(agent, logg, func(ctx context.Context, req partnersync.SyncConfirmations) error {
		return agent.Confirm(ctx, req)
	})
}

func procurementSync[T any](agent partnersync.Agent, logg *logger.Logger, send func(context.Context, T) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if agent == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "procurement agent unavailable"))
			return
		}

		var req T
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := send(r.Context(), req); err != nil {
			if pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "procurement sync failed")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}
