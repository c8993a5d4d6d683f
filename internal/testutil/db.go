// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"io"
	"log/slog"

	"til/internal/database"

	"gorm.io/gorm"
)

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestDB opens a migrated in-memory SQLite database and closes it when the test ends.
func NewTestDB(t interface {
	Helper()
	Fatalf(string, ...any)
	Cleanup(func())
}) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:", DiscardLogger())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
