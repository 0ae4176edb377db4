// Package partnersync pushes master data to the procurement web UI and receives its
// confirmations.
package partnersync

import (
	"context"
	"time"

	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

type SyncUser struct {
	UUID     string `json:"uuid" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Language string `json:"language,omitempty"`
}

type SyncBPartner struct {
	UUID    string     `json:"uuid" validate:"required"`
	Name    string     `json:"name"`
	Deleted bool       `json:"deleted"`
	Users   []SyncUser `json:"users,omitempty" validate:"dive"`
}

type SyncBPartnersRequest struct {
	BPartners []SyncBPartner `json:"bpartners" validate:"required,dive"`
}

type SyncProduct struct {
	UUID        string `json:"uuid" validate:"required"`
	Name        string `json:"name"`
	PackingInfo string `json:"packing_info,omitempty"`
	Shared      bool   `json:"shared"`
	Deleted     bool   `json:"deleted"`
}

type SyncProductsRequest struct {
	Products []SyncProduct `json:"products" validate:"required,dive"`
}

type SyncInfoMessageRequest struct {
	Message string `json:"message"`
}

type SyncConfirmation struct {
	ConfirmID     string    `json:"confirm_id" validate:"required"`
	ServerEventID string    `json:"server_event_id,omitempty"`
	DateConfirmed time.Time `json:"date_confirmed"`
}

type SyncConfirmations struct {
	Confirmations []SyncConfirmation `json:"confirmations" validate:"required,dive"`
}

// Agent is the outbound side of the procurement sync.
type Agent interface {
	SyncBPartners(ctx context.Context, req SyncBPartnersRequest) error
	SyncProducts(ctx context.Context, req SyncProductsRequest) error
	SyncInfoMessage(ctx context.Context, req SyncInfoMessageRequest) error
	Confirm(ctx context.Context, confirmations SyncConfirmations) error
}

// NullAgent logs every request and delivers nothing. It stands in where no procurement UI
// is deployed.
type NullAgent struct {
	logg *logger.Logger
}

func NewNullAgent(logg *logger.Logger) *NullAgent {
	return &NullAgent{logg: logg}
}

func (a *NullAgent) SyncBPartners(ctx context.Context, req SyncBPartnersRequest) error {
	a.log(ctx, "syncBPartners", req)
	return nil
}

func (a *NullAgent) SyncProducts(ctx context.Context, req SyncProductsRequest) error {
	a.log(ctx, "syncProducts", req)
	return nil
}

func (a *NullAgent) SyncInfoMessage(ctx context.Context, req SyncInfoMessageRequest) error {
	a.log(ctx, "syncInfoMessage", req)
	return nil
}

func (a *NullAgent) Confirm(ctx context.Context, confirmations SyncConfirmations) error {
	a.log(ctx, "confirm", confirmations)
	return nil
}

func (a *NullAgent) log(ctx context.Context, op string, request any) {
	if a == nil || a.logg == nil {
		return
	}
	a.logg.Info(a.logg.WithFields(ctx, map[string]any{"sync_op": op, "request": request}), op)
}
