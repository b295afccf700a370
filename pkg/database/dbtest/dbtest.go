// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/suteetoe/taskhub/pkg/database"
)

// Open returns a migrated, private in-memory database
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(logger.Silent))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	// one connection keeps the in-memory database alive and serializes writers
	if err := database.ConfigurePool(db, database.DBConfig{MaxOpenConns: 1}); err != nil {
		t.Fatalf("configure test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
