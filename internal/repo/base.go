package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx rebinds the base to an open transaction. A nil tx keeps the current binding.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// Transaction runs fn atomically. When the base is already bound to a transaction gorm
// nests it as a savepoint.
func (b Base) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.DB(ctx).Transaction(fn)
}
