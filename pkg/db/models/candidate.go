package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dispo-backend/pkg/enums"
)

// Candidate is the root row of a material-dispo candidate. Demand* columns hold the demand the
// candidate serves; the business case detail lives in one of the candidate_*_details tables.
type Candidate struct {
	ID                       int64               `gorm:"column:id;primaryKey;autoIncrement"`
	ClientID                 int64               `gorm:"column:client_id;not null;default:0"`
	OrgID                    int64               `gorm:"column:org_id;not null;default:0"`
	Type                     enums.CandidateType `gorm:"column:type;type:varchar(32);not null;index"`
	BusinessCase             enums.BusinessCase  `gorm:"column:business_case;type:varchar(32);not null;default:''"`
	ProductID                int64               `gorm:"column:product_id;not null"`
	WarehouseID              int64               `gorm:"column:warehouse_id;not null"`
	Date                     time.Time           `gorm:"column:date;not null"`
	Quantity                 decimal.Decimal     `gorm:"column:quantity;type:numeric(20,6);not null"`
	DemandShipmentScheduleID *int64              `gorm:"column:demand_shipment_schedule_id"`
	DemandOrderLineID        *int64              `gorm:"column:demand_order_line_id"`
	DemandQty                *decimal.Decimal    `gorm:"column:demand_qty;type:numeric(20,6)"`
	CreatedAt                time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Candidate) TableName() string { return "candidates" }

// CandidateProductionDetail links a candidate to a production order (line).
type CandidateProductionDetail struct {
	CandidateID            int64           `gorm:"column:candidate_id;primaryKey"`
	PPOrderID              int64           `gorm:"column:pp_order_id;not null;index:idx_candidate_prod_details_order"`
	PPOrderLineID          int64           `gorm:"column:pp_order_line_id;not null;default:0;index:idx_candidate_prod_details_order"`
	PlannedQty             decimal.Decimal `gorm:"column:planned_qty;type:numeric(20,6);not null"`
	Advised                enums.Flag      `gorm:"column:advised;type:varchar(20);not null"`
	PickDirectlyIfFeasible enums.Flag      `gorm:"column:pick_directly_if_feasible;type:varchar(20);not null"`
}

func (CandidateProductionDetail) TableName() string { return "candidate_prod_details" }

// CandidateDistributionDetail links a candidate to a distribution order line.
type CandidateDistributionDetail struct {
	CandidateID            int64           `gorm:"column:candidate_id;primaryKey"`
	DDOrderID              int64           `gorm:"column:dd_order_id;not null;index:idx_candidate_dist_details_order"`
	DDOrderLineID          int64           `gorm:"column:dd_order_line_id;not null;default:0;index:idx_candidate_dist_details_order"`
	PlannedQty             decimal.Decimal `gorm:"column:planned_qty;type:numeric(20,6);not null"`
	Advised                enums.Flag      `gorm:"column:advised;type:varchar(20);not null"`
	PickDirectlyIfFeasible enums.Flag      `gorm:"column:pick_directly_if_feasible;type:varchar(20);not null"`
}

func (CandidateDistributionDetail) TableName() string { return "candidate_dist_details" }

// CandidateDemandDetail links a candidate to a shipment schedule / order line.
type CandidateDemandDetail struct {
	CandidateID        int64           `gorm:"column:candidate_id;primaryKey"`
	ShipmentScheduleID int64           `gorm:"column:shipment_schedule_id;not null;default:0;index"`
	OrderLineID        int64           `gorm:"column:order_line_id;not null;default:0"`
	Qty                decimal.Decimal `gorm:"column:qty;type:numeric(20,6);not null"`
}

func (CandidateDemandDetail) TableName() string { return "candidate_demand_details" }

// CandidatePurchaseDetail links a candidate to a receipt schedule.
type CandidatePurchaseDetail struct {
	CandidateID       int64           `gorm:"column:candidate_id;primaryKey"`
	ReceiptScheduleID int64           `gorm:"column:receipt_schedule_id;not null;index"`
	PlannedQty        decimal.Decimal `gorm:"column:planned_qty;type:numeric(20,6);not null"`
	Advised           enums.Flag      `gorm:"column:advised;type:varchar(20);not null"`
}

func (CandidatePurchaseDetail) TableName() string { return "candidate_purchase_details" }

// CandidateTransactionDetail records the quantity a single material transaction contributed.
type CandidateTransactionDetail struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	CandidateID   int64           `gorm:"column:candidate_id;not null;uniqueIndex:ux_candidate_transaction_details"`
	TransactionID int64           `gorm:"column:transaction_id;not null;uniqueIndex:ux_candidate_transaction_details;index"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:numeric(20,6);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (CandidateTransactionDetail) TableName() string { return "candidate_transaction_details" }
