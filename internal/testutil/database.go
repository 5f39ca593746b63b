package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"davgate/internal/database"
	"davgate/internal/model"
)

// NewTestDatabase creates a new in-memory SQLite database with all
// migrations applied. The database is automatically closed when the test
// completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// CreateUser inserts an account whose password hash matches password.
// The cheapest bcrypt cost keeps tests fast.
func CreateUser(t *testing.T, db *database.SQLiteDatabase, id, email, password string) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &model.User{
		ID:           id,
		Email:        email,
		DisplayName:  email,
		PasswordHash: string(hash),
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", email, err)
	}
	return user
}

// CountOwnedRows counts every row in table that belongs to userID, whatever
// folder it sits in. table is one of "folders", "files" or "shares".
func CountOwnedRows(t *testing.T, db *database.SQLiteDatabase, table, userID string) int {
	t.Helper()

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE user_id = ?", table)
	if err := db.DB().QueryRowContext(context.Background(), query, userID).Scan(&n); err != nil {
		t.Fatalf("counting %s for %s: %v", table, userID, err)
	}
	return n
}
