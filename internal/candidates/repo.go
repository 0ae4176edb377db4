package candidates

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/dispo-backend/internal/repo"
	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
)

// Repository persists candidate aggregates across candidates, the candidate_*_details tables
// and candidate_transaction_details.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{base: r.base.WithTx(tx)}
}

// RetrieveLatestMatch returns the matching candidate with the highest id, or nil. Inside a
// Postgres transaction the candidate row stays locked until commit.
func (r *Repository) RetrieveLatestMatch(ctx context.Context, query Query) (*Candidate, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	db := r.base.DB(ctx).Model(&models.Candidate{}).
		Select("candidates.*").
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "candidates"}})
	if query.Type != "" {
		db = db.Where("candidates.type = ?", query.Type)
	}
	switch {
	case query.Demand != nil:
		db = db.Joins("JOIN candidate_demand_details dd ON dd.candidate_id = candidates.id").
			Where("dd.shipment_schedule_id = ?", query.Demand.ShipmentScheduleID)
	case query.Purchase != nil:
		db = db.Joins("JOIN candidate_purchase_details pd ON pd.candidate_id = candidates.id").
			Where("pd.receipt_schedule_id = ?", query.Purchase.ReceiptScheduleID)
	case query.Production != nil:
		db = db.Joins("JOIN candidate_prod_details prd ON prd.candidate_id = candidates.id").
			Where("prd.pp_order_id = ? AND prd.pp_order_line_id = ?", query.Production.PPOrderID, query.Production.PPOrderLineID)
	case query.Distribution != nil:
		db = db.Joins("JOIN candidate_dist_details dsd ON dsd.candidate_id = candidates.id").
			Where("dsd.dd_order_line_id = ?", query.Distribution.DDOrderLineID)
		if query.Distribution.DDOrderID > 0 {
			db = db.Where("dsd.dd_order_id = ?", query.Distribution.DDOrderID)
		}
	case query.TransactionID > 0:
		sub := r.base.DB(ctx).Model(&models.CandidateTransactionDetail{}).
			Select("candidate_id").
			Where("transaction_id = ?", query.TransactionID)
		db = db.Where("candidates.id IN (?)", sub)
	}

	var rows []models.Candidate
	if err := db.Order("candidates.id DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve candidate")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	candidate, err := r.load(ctx, rows[0])
	if err != nil {
		return nil, err
	}
	return candidate, nil
}

// RetrieveByID loads a single candidate aggregate.
func (r *Repository) RetrieveByID(ctx context.Context, id int64) (*Candidate, error) {
	var row models.Candidate
	if err := r.base.DB(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "candidate not found").WithDetails(map[string]any{"candidate_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve candidate")
	}
	return r.load(ctx, row)
}

// Save inserts or updates the aggregate and returns it as stored. Business case flags set
// to FALSE_DONT_UPDATE keep the stored value.
func (r *Repository) Save(ctx context.Context, candidate Candidate) (*Candidate, error) {
	if !candidate.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "candidate type is required").WithDetails(candidate)
	}
	var id int64
	err := r.base.Transaction(ctx, func(tx *gorm.DB) error {
		row := toModel(candidate)
		if row.ID == 0 {
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		} else {
			res := tx.Model(&models.Candidate{ID: row.ID}).
				Select("*").
				Omit("id", "created_at").
				Updates(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "candidate not found").WithDetails(map[string]any{"candidate_id": row.ID})
			}
		}
		id = row.ID

		if err := saveBusinessCaseDetail(tx, id, candidate.BusinessCaseDetail); err != nil {
			return err
		}
		return saveTransactionDetails(tx, id, candidate.TransactionDetails)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save candidate")
	}
	return r.RetrieveByID(ctx, id)
}

func toModel(c Candidate) models.Candidate {
	row := models.Candidate{
		ID:           c.ID,
		ClientID:     c.Descriptor.ClientID,
		OrgID:        c.Descriptor.OrgID,
		Type:         c.Type,
		BusinessCase: c.BusinessCase(),
		ProductID:    c.Material.ProductID,
		WarehouseID:  c.Material.WarehouseID,
		Date:         c.Material.Date.UTC(),
		Quantity:     c.Material.Quantity,
	}
	if c.Demand != nil {
		shipmentScheduleID := c.Demand.ShipmentScheduleID
		orderLineID := c.Demand.OrderLineID
		qty := c.Demand.Qty
		row.DemandShipmentScheduleID = &shipmentScheduleID
		row.DemandOrderLineID = &orderLineID
		row.DemandQty = &qty
	}
	return row
}

func resolveFlag(flag, stored enums.Flag, hasStored bool) enums.Flag {
	if flag != enums.FlagFalseDontUpdate && flag != "" {
		return flag
	}
	if hasStored {
		return stored
	}
	return enums.FlagFalse
}

var detailTables = map[string]any{
	models.CandidateProductionDetail{}.TableName():   &models.CandidateProductionDetail{},
	models.CandidateDistributionDetail{}.TableName(): &models.CandidateDistributionDetail{},
	models.CandidateDemandDetail{}.TableName():       &models.CandidateDemandDetail{},
	models.CandidatePurchaseDetail{}.TableName():     &models.CandidatePurchaseDetail{},
}

func saveBusinessCaseDetail(tx *gorm.DB, candidateID int64, detail BusinessCaseDetail) error {
	keep := ""
	switch d := detail.(type) {
	case ProductionDetail:
		var stored models.CandidateProductionDetail
		found, err := findDetail(tx, candidateID, &stored)
		if err != nil {
			return err
		}
		row := models.CandidateProductionDetail{
			CandidateID:            candidateID,
			PPOrderID:              d.PPOrderID,
			PPOrderLineID:          d.PPOrderLineID,
			PlannedQty:             d.PlannedQty,
			Advised:                resolveFlag(d.Advised, stored.Advised, found),
			PickDirectlyIfFeasible: resolveFlag(d.PickDirectlyIfFeasible, stored.PickDirectlyIfFeasible, found),
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		keep = row.TableName()
	case DistributionDetail:
		var stored models.CandidateDistributionDetail
		found, err := findDetail(tx, candidateID, &stored)
		if err != nil {
			return err
		}
		row := models.CandidateDistributionDetail{
			CandidateID:            candidateID,
			DDOrderID:              d.DDOrderID,
			DDOrderLineID:          d.DDOrderLineID,
			PlannedQty:             d.PlannedQty,
			Advised:                resolveFlag(d.Advised, stored.Advised, found),
			PickDirectlyIfFeasible: resolveFlag(d.PickDirectlyIfFeasible, stored.PickDirectlyIfFeasible, found),
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		keep = row.TableName()
	case DemandDetail:
		row := models.CandidateDemandDetail{
			CandidateID:        candidateID,
			ShipmentScheduleID: d.ShipmentScheduleID,
			OrderLineID:        d.OrderLineID,
			Qty:                d.Qty,
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		keep = row.TableName()
	case PurchaseDetail:
		var stored models.CandidatePurchaseDetail
		found, err := findDetail(tx, candidateID, &stored)
		if err != nil {
			return err
		}
		row := models.CandidatePurchaseDetail{
			CandidateID:       candidateID,
			ReceiptScheduleID: d.ReceiptScheduleID,
			PlannedQty:        d.PlannedQty,
			Advised:           resolveFlag(d.Advised, stored.Advised, found),
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		keep = row.TableName()
	}

	// a candidate carries at most one business case detail
	for name, table := range detailTables {
		if name == keep {
			continue
		}
		if err := tx.Where("candidate_id = ?", candidateID).Delete(table).Error; err != nil {
			return err
		}
	}
	return nil
}

func findDetail(tx *gorm.DB, candidateID int64, dest any) (bool, error) {
	res := tx.Where("candidate_id = ?", candidateID).Limit(1).Find(dest)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func saveTransactionDetails(tx *gorm.DB, candidateID int64, details []TransactionDetail) error {
	var stored []models.CandidateTransactionDetail
	if err := tx.Where("candidate_id = ?", candidateID).Find(&stored).Error; err != nil {
		return err
	}
	byTransaction := make(map[int64]models.CandidateTransactionDetail, len(stored))
	for _, row := range stored {
		byTransaction[row.TransactionID] = row
	}

	wanted := make(map[int64]struct{}, len(details))
	for _, detail := range details {
		wanted[detail.TransactionID] = struct{}{}
		if existing, ok := byTransaction[detail.TransactionID]; ok {
			if existing.Quantity.Equal(detail.Quantity) {
				continue
			}
			if err := tx.Model(&models.CandidateTransactionDetail{}).
				Where("id = ?", existing.ID).
				Update("quantity", detail.Quantity).Error; err != nil {
				return err
			}
			continue
		}
		row := models.CandidateTransactionDetail{
			CandidateID:   candidateID,
			TransactionID: detail.TransactionID,
			Quantity:      detail.Quantity,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}

	var obsolete []int64
	for _, row := range stored {
		if _, ok := wanted[row.TransactionID]; !ok {
			obsolete = append(obsolete, row.ID)
		}
	}
	if len(obsolete) == 0 {
		return nil
	}
	return tx.Where("id IN ?", obsolete).Delete(&models.CandidateTransactionDetail{}).Error
}

func (r *Repository) load(ctx context.Context, row models.Candidate) (*Candidate, error) {
	db := r.base.DB(ctx)
	candidate := Candidate{
		ID:         row.ID,
		Descriptor: EventDescriptor{ClientID: row.ClientID, OrgID: row.OrgID},
		Type:       row.Type,
		Material: MaterialDescriptor{
			ProductID:   row.ProductID,
			WarehouseID: row.WarehouseID,
			Date:        row.Date,
			Quantity:    row.Quantity,
		},
	}
	if row.DemandShipmentScheduleID != nil {
		demand := DemandDetail{ShipmentScheduleID: *row.DemandShipmentScheduleID}
		if row.DemandOrderLineID != nil {
			demand.OrderLineID = *row.DemandOrderLineID
		}
		if row.DemandQty != nil {
			demand.Qty = *row.DemandQty
		}
		candidate.Demand = &demand
	}

	detail, err := loadBusinessCaseDetail(db, row.ID, row.BusinessCase)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load candidate business case detail")
	}
	candidate.BusinessCaseDetail = detail

	var details []models.CandidateTransactionDetail
	if err := db.Where("candidate_id = ?", row.ID).Order("transaction_id ASC").Find(&details).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load candidate transaction details")
	}
	candidate.TransactionDetails = make([]TransactionDetail, 0, len(details))
	for _, d := range details {
		candidate.TransactionDetails = append(candidate.TransactionDetails, TransactionDetail{
			TransactionID: d.TransactionID,
			Quantity:      d.Quantity,
		})
	}
	return &candidate, nil
}

func loadBusinessCaseDetail(db *gorm.DB, candidateID int64, businessCase enums.BusinessCase) (BusinessCaseDetail, error) {
	switch businessCase {
	case enums.BusinessCaseProduction:
		var row models.CandidateProductionDetail
		if found, err := findDetail(db, candidateID, &row); err != nil || !found {
			return nil, err
		}
		return ProductionDetail{
			PPOrderID:              row.PPOrderID,
			PPOrderLineID:          row.PPOrderLineID,
			PlannedQty:             row.PlannedQty,
			Advised:                row.Advised,
			PickDirectlyIfFeasible: row.PickDirectlyIfFeasible,
		}, nil
	case enums.BusinessCaseDistribution:
		var row models.CandidateDistributionDetail
		if found, err := findDetail(db, candidateID, &row); err != nil || !found {
			return nil, err
		}
		return DistributionDetail{
			DDOrderID:              row.DDOrderID,
			DDOrderLineID:          row.DDOrderLineID,
			PlannedQty:             row.PlannedQty,
			Advised:                row.Advised,
			PickDirectlyIfFeasible: row.PickDirectlyIfFeasible,
		}, nil
	case enums.BusinessCaseShipment:
		var row models.CandidateDemandDetail
		if found, err := findDetail(db, candidateID, &row); err != nil || !found {
			return nil, err
		}
		return DemandDetail{
			ShipmentScheduleID: row.ShipmentScheduleID,
			OrderLineID:        row.OrderLineID,
			Qty:                row.Qty,
		}, nil
	case enums.BusinessCasePurchase:
		var row models.CandidatePurchaseDetail
		if found, err := findDetail(db, candidateID, &row); err != nil || !found {
			return nil, err
		}
		return PurchaseDetail{
			ReceiptScheduleID: row.ReceiptScheduleID,
			PlannedQty:        row.PlannedQty,
			Advised:           row.Advised,
		}, nil
	}
	return nil, nil
}
