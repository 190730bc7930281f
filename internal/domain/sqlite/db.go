package sqlite

import (
	"time"

	"github.com/a3ro-dev/aAlem/internal/domain/entity"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the notes database and ensures the schema exists. AutoMigrate
// is additive only: it creates the table and adds columns introduced by
// newer versions, never dropping or rewriting existing data.
func Init(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&entity.Note{})
	if err != nil {
		return nil, err
	}

	// Single connection: SQLite has one writer and every store call is a
	// short transaction.
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
