package migrate

import (
	"gorm.io/gorm"

	"github.com/angelmondragon/dispo-backend/pkg/db/models"
)

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&models.HUTrace{},
		&models.Candidate{},
		&models.CandidateProductionDetail{},
		&models.CandidateDistributionDetail{},
		&models.CandidateDemandDetail{},
		&models.CandidatePurchaseDetail{},
		&models.CandidateTransactionDetail{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// AutoMigrate creates the schema from the gorm models. It backs SQLite dev databases and
// tests; Postgres deployments run the goose migrations instead.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(Models()...)
}
