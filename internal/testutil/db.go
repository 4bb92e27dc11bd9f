// Package testutil provides shared helpers for package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hospital-booking-server/internal/models"
)

// NewTestDB opens an in-memory SQLite database with the full schema
// migrated. Each call returns an isolated database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.Migrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateUser inserts a user with a known password ("password123") and
// returns it.
func CreateUser(t *testing.T, db *gorm.DB, role models.Role, email string) *models.User {
	t.Helper()

	user := &models.User{
		Name:        "Test " + string(role),
		Email:       email,
		Role:        role,
		IsValidated: true,
	}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateDepartment inserts a department and returns it.
func CreateDepartment(t *testing.T, db *gorm.DB, name string) *models.Department {
	t.Helper()

	dept := &models.Department{Name: name, Description: name + " department"}
	require.NoError(t, db.Create(dept).Error)
	return dept
}

// CreateDoctor inserts a validated doctor assigned to the department.
func CreateDoctor(t *testing.T, db *gorm.DB, email string, dept *models.Department) *models.User {
	t.Helper()

	doctor := CreateUser(t, db, models.RoleDoctor, email)
	require.NoError(t, db.Model(doctor).Update("department_id", dept.ID).Error)
	doctor.DepartmentID = &dept.ID
	return doctor
}
