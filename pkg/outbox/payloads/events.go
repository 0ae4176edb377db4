package payloads

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dispo-backend/pkg/enums"
)

// MaterialDescriptor identifies what material moved where and how much of it.
type MaterialDescriptor struct {
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Date        time.Time       `json:"date"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// HUDescriptor reports an on-hand quantity change of one handling unit.
type HUDescriptor struct {
	HUID     int64           `json:"hu_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// TransactionEvent is the wire shape of a material transaction being created or deleted.
// Schedule maps are keyed by the decimal schedule id.
type TransactionEvent struct {
	Kind                 enums.TransactionEventKind `json:"kind"`
	ClientID             int64                      `json:"client_id"`
	OrgID                int64                      `json:"org_id"`
	TransactionID        int64                      `json:"transaction_id"`
	Material             MaterialDescriptor         `json:"material"`
	ShipmentScheduleQtys map[int64]decimal.Decimal  `json:"shipment_schedule_qtys,omitempty"`
	ReceiptScheduleQtys  map[int64]decimal.Decimal  `json:"receipt_schedule_qtys,omitempty"`
	PPOrderID            int64                      `json:"pp_order_id,omitempty"`
	PPOrderLineID        int64                      `json:"pp_order_line_id,omitempty"`
	DDOrderID            int64                      `json:"dd_order_id,omitempty"`
	DDOrderLineID        int64                      `json:"dd_order_line_id,omitempty"`
	HUOnHandQtyChanges   []HUDescriptor             `json:"hu_on_hand_qty_changes,omitempty"`
}

// PickingRequestedEvent asks the picking subsystem to pick the given top-level HUs for a
// shipment schedule.
type PickingRequestedEvent struct {
	ClientID           int64   `json:"client_id"`
	OrgID              int64   `json:"org_id"`
	ShipmentScheduleID int64   `json:"shipment_schedule_id"`
	TopLevelHUIDs      []int64 `json:"top_level_hu_ids"`
}
