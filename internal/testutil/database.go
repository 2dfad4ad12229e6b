// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/internal/pkg/database"
)

var userSeq atomic.Int64

// SetupTestDB opens a fresh in-memory SQLite database with every table
// migrated. The database is closed when the test finishes.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts an active user holding the given number of credits.
func CreateUser(t *testing.T, db *gorm.DB, credits int) *models.User {
	t.Helper()

	n := userSeq.Add(1)
	user := &models.User{
		Name:    fmt.Sprintf("user%03d", n),
		Email:   fmt.Sprintf("user%03d@example.com", n),
		Role:    models.ROLE_USER,
		Status:  models.STATUS_ACTIVE,
		Credits: credits,
	}
	if err := db.WithContext(context.Background()).Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}
