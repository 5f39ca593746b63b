package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"davgate/internal/blob"
	"davgate/internal/config"
	"davgate/internal/dav"
	"davgate/internal/database"
	"davgate/internal/database/migrations"
	"davgate/internal/model"
)

// ErrUserExists is returned by AddUser when the e-mail is already taken.
var ErrUserExists = errors.New("user already exists")

// MigrateDatabase brings the configured database up to the latest schema
// and returns its status before and after.
func MigrateDatabase(cfg *config.Config) (before, after migrations.Status, err error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return before, after, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if before, err = db.MigrationStatus(); err != nil {
		return before, after, err
	}
	if err := db.MigrateUp(); err != nil {
		return before, after, err
	}
	after, err = db.MigrationStatus()
	return before, after, err
}

// CheckReport is the outcome of CheckSetup. Each field is nil when the
// corresponding check passed.
type CheckReport struct {
	Schema    migrations.Status
	SchemaErr error
	BlobsErr  error
}

// OK reports whether every check passed.
func (r *CheckReport) OK() bool {
	return r.SchemaErr == nil && r.BlobsErr == nil
}

// CheckSetup verifies that the configured database is at the expected
// schema version and that the blob store is reachable and writable.
func CheckSetup(ctx context.Context, cfg *config.Config) (*CheckReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	report := &CheckReport{}
	blobs, err := blob.NewBlobStoreFromConfig(ctx, cfg.Blobs)
	if err != nil {
		report.BlobsErr = err
	} else {
		report.BlobsErr = blobs.ValidateSetup(ctx)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		report.SchemaErr = err
		return report, nil
	}
	defer db.Close()
	if report.Schema, err = db.MigrationStatus(); err != nil {
		report.SchemaErr = err
		return report, nil
	}
	report.SchemaErr = db.CheckMigrations()
	return report, nil
}

// AddUser creates an account that can sign in to both the web application
// and the gateway.
func AddUser(ctx context.Context, cfg *config.Config, email, name, password string) (*model.User, error) {
	return addUser(ctx, cfg, email, name, password, dav.RealClock{}, dav.UUIDGenerator{}, bcrypt.DefaultCost)
}

func addUser(ctx context.Context, cfg *config.Config, email, name, password string, clock dav.Clock, idgen dav.IDGenerator, cost int) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}
	if name == "" {
		name = email
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := db.CheckMigrations(); err != nil {
		return nil, fmt.Errorf("database schema not usable: %w", err)
	}

	existing, err := db.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", email, ErrUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	user := &model.User{
		ID:           idgen.New(),
		Email:        email,
		DisplayName:  name,
		PasswordHash: string(hash),
		CreatedAt:    clock.Now(),
	}
	if err := db.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
