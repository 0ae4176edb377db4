package outbox

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
)

const (
	maxDLQErrorLen  = 1024
	defaultDLQLimit = 50
	maximumDLQLimit = 500
)

// DLQFilter narrows a dead-letter listing. Zero values match everything.
type DLQFilter struct {
	EventType enums.OutboxEventType
	Reason    enums.OutboxDLQErrorReason
	Limit     int
}

// DLQRepository stores outbox rows the publisher gave up on, such as picking requests
// whose payload no longer decodes.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records a dead letter inside the publisher's claim transaction.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := truncateDLQError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil without error when the event never reached the DLQ.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var dlq models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&dlq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dlq, nil
}

// List returns the newest dead letters first.
func (r *DLQRepository) List(ctx context.Context, filter DLQFilter) ([]models.OutboxDLQ, error) {
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = defaultDLQLimit
	case limit > maximumDLQLimit:
		limit = maximumDLQLimit
	}

	query := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Reason != "" {
		query = query.Where("error_reason = ?", filter.Reason)
	}

	var rows []models.OutboxDLQ
	err := query.Order("failed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func truncateDLQError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	return message[:maxDLQErrorLen]
}
