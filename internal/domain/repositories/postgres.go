package repositories

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"telehealth-consultation-service/internal/domain/entities"
)

// OpenPostgres opens the database through lib/pq and wraps the connection
// with the GORM postgres dialector. Keeping the database/sql handle explicit
// lets the store inspect driver errors (unique violations) directly.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("initializing gorm: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema for every entity the store owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entities.User{},
		&entities.Consultation{},
		&entities.VideoSession{},
		&entities.Payment{},
		&entities.AuditEvent{},
	)
}
