package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// InitDB initializes the database connection
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(config.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate runs the schema migration for all models. It runs once at process
// start; components receive the resulting *gorm.DB handle and never register
// models themselves.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Department{},
		&AvailabilitySlot{},
		&Appointment{},
		&MedicalRecord{},
		&Medication{},
		&MedicalRecordAttachment{},
	)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN string
}
