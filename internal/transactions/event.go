// Package transactions reconciles material transaction events against dispo candidates.
package transactions

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dispo-backend/internal/candidates"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/payloads"
)

// HUDescriptor is the on-hand quantity change of one top-level handling unit.
type HUDescriptor struct {
	HUID     int64           `json:"hu_id" validate:"required,gt=0"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Event is a material transaction that was created or deleted in the ERP.
type Event struct {
	Kind                 enums.TransactionEventKind    `json:"kind" validate:"required,oneof=created deleted"`
	Descriptor           candidates.EventDescriptor    `json:"descriptor"`
	TransactionID        int64                         `json:"transaction_id" validate:"required,gt=0"`
	Material             candidates.MaterialDescriptor `json:"material"`
	ShipmentScheduleQtys map[int64]decimal.Decimal     `json:"shipment_schedule_qtys,omitempty"`
	ReceiptScheduleQtys  map[int64]decimal.Decimal     `json:"receipt_schedule_qtys,omitempty"`
	PPOrderID            int64                         `json:"pp_order_id,omitempty" validate:"gte=0"`
	PPOrderLineID        int64                         `json:"pp_order_line_id,omitempty" validate:"gte=0"`
	DDOrderID            int64                         `json:"dd_order_id,omitempty" validate:"gte=0"`
	DDOrderLineID        int64                         `json:"dd_order_line_id,omitempty" validate:"gte=0"`
	HUOnHandQtyChanges   []HUDescriptor                `json:"hu_on_hand_qty_changes,omitempty" validate:"dive"`
}

// Quantity is the material quantity of the transaction.
func (e Event) Quantity() decimal.Decimal {
	return e.Material.Quantity
}

// QuantityDelta is what the transaction contributes to a candidate. A deleted transaction
// contributes nothing.
func (e Event) QuantityDelta() decimal.Decimal {
	if e.IsDeleted() {
		return decimal.Zero
	}
	return e.Material.Quantity
}

func (e Event) IsDeleted() bool {
	return e.Kind == enums.TransactionEventDeleted
}

// Branch names the business key the event is reconciled by.
func (e Event) Branch() string {
	switch {
	case len(e.ShipmentScheduleQtys) > 0:
		return BranchShipmentSchedule
	case len(e.ReceiptScheduleQtys) > 0:
		return BranchReceiptSchedule
	case e.PPOrderID > 0:
		return BranchProductionOrder
	case e.DDOrderLineID > 0:
		return BranchDistributionOrder
	default:
		return BranchUnrelated
	}
}

const (
	BranchShipmentSchedule  = "shipment_schedule"
	BranchReceiptSchedule   = "receipt_schedule"
	BranchProductionOrder   = "pp_order"
	BranchDistributionOrder = "dd_order"
	BranchUnrelated         = "unrelated"
)

// Validate checks the fields reconciliation depends on.
func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown transaction event kind").WithDetails(map[string]any{"kind": e.Kind})
	}
	if e.TransactionID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if e.Material.ProductID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "material product id is required").WithDetails(map[string]any{"transaction_id": e.TransactionID})
	}
	return nil
}

// FromPayload converts the wire shape delivered through Pub/Sub.
func FromPayload(p payloads.TransactionEvent) Event {
	event := Event{
		Kind:          p.Kind,
		Descriptor:    candidates.EventDescriptor{ClientID: p.ClientID, OrgID: p.OrgID},
		TransactionID: p.TransactionID,
		Material: candidates.MaterialDescriptor{
			ProductID:   p.Material.ProductID,
			WarehouseID: p.Material.WarehouseID,
			Date:        p.Material.Date,
			Quantity:    p.Material.Quantity,
		},
		ShipmentScheduleQtys: p.ShipmentScheduleQtys,
		ReceiptScheduleQtys:  p.ReceiptScheduleQtys,
		PPOrderID:            p.PPOrderID,
		PPOrderLineID:        p.PPOrderLineID,
		DDOrderID:            p.DDOrderID,
		DDOrderLineID:        p.DDOrderLineID,
	}
	for _, hu := range p.HUOnHandQtyChanges {
		event.HUOnHandQtyChanges = append(event.HUOnHandQtyChanges, HUDescriptor{HUID: hu.HUID, Quantity: hu.Quantity})
	}
	return event
}

// Payload converts the event into its wire shape.
func (e Event) Payload() payloads.TransactionEvent {
	p := payloads.TransactionEvent{
		Kind:          e.Kind,
		ClientID:      e.Descriptor.ClientID,
		OrgID:         e.Descriptor.OrgID,
		TransactionID: e.TransactionID,
		Material: payloads.MaterialDescriptor{
			ProductID:   e.Material.ProductID,
			WarehouseID: e.Material.WarehouseID,
			Date:        e.Material.Date,
			Quantity:    e.Material.Quantity,
		},
		ShipmentScheduleQtys: e.ShipmentScheduleQtys,
		ReceiptScheduleQtys:  e.ReceiptScheduleQtys,
		PPOrderID:            e.PPOrderID,
		PPOrderLineID:        e.PPOrderLineID,
		DDOrderID:            e.DDOrderID,
		DDOrderLineID:        e.DDOrderLineID,
	}
	for _, hu := range e.HUOnHandQtyChanges {
		p.HUOnHandQtyChanges = append(p.HUOnHandQtyChanges, payloads.HUDescriptor{HUID: hu.HUID, Quantity: hu.Quantity})
	}
	return p
}
