// Package candidates models material-dispo candidates: planned or actual material movements
// that transactions are reconciled against.
package candidates

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dispo-backend/pkg/enums"
)

// MaterialDescriptor identifies what material moves where and when, and how much of it.
type MaterialDescriptor struct {
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Date        time.Time       `json:"date"`
	Quantity    decimal.Decimal `json:"quantity"`
}

func (m MaterialDescriptor) WithQuantity(quantity decimal.Decimal) MaterialDescriptor {
	m.Quantity = quantity
	return m
}

// EventDescriptor carries the ERP client and organization an event belongs to.
type EventDescriptor struct {
	ClientID int64 `json:"client_id"`
	OrgID    int64 `json:"org_id"`
}

// BusinessCaseDetail is the closed set of business case payloads a candidate can carry:
// ProductionDetail, DistributionDetail, DemandDetail and PurchaseDetail.
type BusinessCaseDetail interface {
	BusinessCase() enums.BusinessCase
	PlannedQuantity() decimal.Decimal
	isBusinessCaseDetail()
}

type ProductionDetail struct {
	PPOrderID              int64           `json:"pp_order_id"`
	PPOrderLineID          int64           `json:"pp_order_line_id,omitempty"`
	PlannedQty             decimal.Decimal `json:"planned_qty"`
	Advised                enums.Flag      `json:"advised"`
	PickDirectlyIfFeasible enums.Flag      `json:"pick_directly_if_feasible"`
}

func (ProductionDetail) BusinessCase() enums.BusinessCase   { return enums.BusinessCaseProduction }
func (d ProductionDetail) PlannedQuantity() decimal.Decimal { return d.PlannedQty }
func (ProductionDetail) isBusinessCaseDetail()              {}

type DistributionDetail struct {
	DDOrderID              int64           `json:"dd_order_id"`
	DDOrderLineID          int64           `json:"dd_order_line_id"`
	PlannedQty             decimal.Decimal `json:"planned_qty"`
	Advised                enums.Flag      `json:"advised"`
	PickDirectlyIfFeasible enums.Flag      `json:"pick_directly_if_feasible"`
}

func (DistributionDetail) BusinessCase() enums.BusinessCase   { return enums.BusinessCaseDistribution }
func (d DistributionDetail) PlannedQuantity() decimal.Decimal { return d.PlannedQty }
func (DistributionDetail) isBusinessCaseDetail()              {}

// DemandDetail points at the shipment schedule (and order line) a demand stems from.
type DemandDetail struct {
	ShipmentScheduleID int64           `json:"shipment_schedule_id"`
	OrderLineID        int64           `json:"order_line_id,omitempty"`
	Qty                decimal.Decimal `json:"qty"`
}

func (DemandDetail) BusinessCase() enums.BusinessCase   { return enums.BusinessCaseShipment }
func (d DemandDetail) PlannedQuantity() decimal.Decimal { return d.Qty }
func (DemandDetail) isBusinessCaseDetail()              {}

type PurchaseDetail struct {
	ReceiptScheduleID int64           `json:"receipt_schedule_id"`
	PlannedQty        decimal.Decimal `json:"planned_qty"`
	Advised           enums.Flag      `json:"advised"`
}

func (PurchaseDetail) BusinessCase() enums.BusinessCase   { return enums.BusinessCasePurchase }
func (d PurchaseDetail) PlannedQuantity() decimal.Decimal { return d.PlannedQty }
func (PurchaseDetail) isBusinessCaseDetail()              {}

// TransactionDetail is the quantity one material transaction contributed to a candidate.
type TransactionDetail struct {
	TransactionID int64           `json:"transaction_id"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// Candidate is the aggregate persisted by Repository. ID is zero until saved.
type Candidate struct {
	ID                 int64               `json:"id,omitempty"`
	Descriptor         EventDescriptor     `json:"descriptor"`
	Type               enums.CandidateType `json:"type"`
	Material           MaterialDescriptor  `json:"material"`
	BusinessCaseDetail BusinessCaseDetail  `json:"business_case_detail,omitempty"`
	Demand             *DemandDetail       `json:"demand,omitempty"`
	TransactionDetails []TransactionDetail `json:"transaction_details"`
}

// BusinessCase is derived from the business case detail; it is empty without one.
func (c Candidate) BusinessCase() enums.BusinessCase {
	if c.BusinessCaseDetail == nil {
		return enums.BusinessCaseNone
	}
	return c.BusinessCaseDetail.BusinessCase()
}

// PlannedQty is the business case detail's planned quantity, zero without a detail.
func (c Candidate) PlannedQty() decimal.Decimal {
	if c.BusinessCaseDetail == nil {
		return decimal.Zero
	}
	return c.BusinessCaseDetail.PlannedQuantity()
}

// ActualQty sums the quantities of all transaction details.
func (c Candidate) ActualQty() decimal.Decimal {
	sum := decimal.Zero
	for _, detail := range c.TransactionDetails {
		sum = sum.Add(detail.Quantity)
	}
	return sum
}

// DemandDetail returns the demand the candidate serves. A candidate whose own business case
// is a demand serves that demand.
func (c Candidate) DemandDetail() *DemandDetail {
	if c.Demand != nil {
		return c.Demand
	}
	if demand, ok := c.BusinessCaseDetail.(DemandDetail); ok {
		return &demand
	}
	return nil
}

// WithTransactionDetail returns a copy in which detail replaces any detail with the same
// transaction id. Details are kept ordered by transaction id and the material quantity is
// recomputed as max(actual, planned).
func (c Candidate) WithTransactionDetail(detail TransactionDetail) Candidate {
	details := make([]TransactionDetail, 0, len(c.TransactionDetails)+1)
	for _, existing := range c.TransactionDetails {
		if existing.TransactionID != detail.TransactionID {
			details = append(details, existing)
		}
	}
	details = append(details, detail)
	sort.SliceStable(details, func(i, j int) bool { return details[i].TransactionID < details[j].TransactionID })

	c.TransactionDetails = details
	c.Material = c.Material.WithQuantity(decimal.Max(c.ActualQty(), c.PlannedQty()))
	return c
}
