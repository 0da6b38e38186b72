package database

import (
	jww "github.com/spf13/jwalterweatherman"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusgigs/campusgigs-backend/internal/models"
)

// Connect opens the Postgres connection, runs migrations and seeds the
// status lookup. TranslateError is on so unique-key violations surface as
// gorm.ErrDuplicatedKey, which the services rely on.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	jww.INFO.Println("database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates/updates the schema and seeds reference data. Shared with
// the test harness, which runs it against sqlite.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Profile{},
		&models.JobPost{},
		&models.ApplicationStatus{},
		&models.Application{},
		&models.ApplicationHistory{},
		&models.Conversation{},
		&models.Message{},
	)
	if err != nil {
		return err
	}
	return seedStatuses(db)
}

// seedStatuses inserts the 9 fixed lifecycle rows. Existing rows are left
// untouched so stored status ids stay valid.
func seedStatuses(db *gorm.DB) error {
	statuses := models.ApplicationStatuses()
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&statuses).Error
}
