package models

import (
	"io"
	"log"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glog "gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory sqlite database with a silent gorm
// logger and migrates the given entities.
func setupTestDB(t *testing.T, entities ...interface{}) *gorm.DB {
	t.Helper()

	silent := glog.New(
		log.New(io.Discard, "", log.LstdFlags),
		glog.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  glog.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: silent})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if len(entities) == 0 {
		entities = AllModels()
	}
	if err := db.AutoMigrate(entities...); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return db
}
