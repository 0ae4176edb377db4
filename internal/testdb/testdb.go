// Package testdb opens isolated in-memory SQLite databases with the service schema.
package testdb

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/dispo-backend/pkg/migrate"
)

// Open returns a fresh database private to the test, migrated with every service model.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:dispo_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := migrate.AutoMigrate(conn); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return conn
}
