package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type note struct {
	ID   int64 `gorm:"primaryKey"`
	Body string
}

func TestBaseTransactionRollsBack(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&note{}))
	base := NewBase(conn)

	boom := errors.New("boom")
	err = base.Transaction(context.Background(), func(tx *gorm.DB) error {
		bound := base.WithTx(tx)
		require.NoError(t, bound.DB(context.Background()).Create(&note{Body: "draft"}).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, base.DB(nil).Model(&note{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBaseWithNilTxKeepsBinding(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	base := NewBase(conn)
	assert.Same(t, conn, base.WithTx(nil).DB(nil))
}
