package candidates

import (
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
)

// DemandQuery matches candidates whose demand detail has the shipment schedule.
type DemandQuery struct {
	ShipmentScheduleID int64
}

// PurchaseQuery matches candidates whose purchase detail has the receipt schedule.
type PurchaseQuery struct {
	ReceiptScheduleID int64
}

// ProductionQuery matches a production order line. PPOrderLineID zero matches the order
// header candidate.
type ProductionQuery struct {
	PPOrderID     int64
	PPOrderLineID int64
}

// DistributionQuery matches a distribution order line. DDOrderID zero is not filtered.
type DistributionQuery struct {
	DDOrderID     int64
	DDOrderLineID int64
}

// Query selects candidates by exactly one business key shape. Type optionally narrows the
// match.
type Query struct {
	Type          enums.CandidateType
	Demand        *DemandQuery
	Purchase      *PurchaseQuery
	Production    *ProductionQuery
	Distribution  *DistributionQuery
	TransactionID int64
}

func (q Query) shapes() int {
	n := 0
	if q.Demand != nil {
		n++
	}
	if q.Purchase != nil {
		n++
	}
	if q.Production != nil {
		n++
	}
	if q.Distribution != nil {
		n++
	}
	if q.TransactionID > 0 {
		n++
	}
	return n
}

// Validate rejects queries with no or several key shapes, and shapes missing their key.
func (q Query) Validate() error {
	if q.Type != "" && !q.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown candidate type").WithDetails(q)
	}
	switch q.shapes() {
	case 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "candidate query needs a business key")
	case 1:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "candidate query shapes are mutually exclusive").WithDetails(q)
	}
	switch {
	case q.Demand != nil && q.Demand.ShipmentScheduleID <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "demand query needs a shipment schedule id")
	case q.Purchase != nil && q.Purchase.ReceiptScheduleID <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase query needs a receipt schedule id")
	case q.Production != nil && q.Production.PPOrderID <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "production query needs a pp order id")
	case q.Distribution != nil && q.Distribution.DDOrderLineID <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "distribution query needs a dd order line id")
	}
	return nil
}
