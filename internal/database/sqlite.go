package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"davgate/internal/dav"
	"davgate/internal/database/migrations"
	"davgate/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// timeLayout is how the web application writes timestamps (datetime('now')):
// UTC without a zone suffix.
const timeLayout = "2006-01-02 15:04:05"

// busyTimeout is how long a writer waits for the web application to release
// the database before giving up.
const busyTimeout = 5 * time.Second

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteDatabase implements dav.Store and dav.Authenticator on the SQLite
// database shared with the FileCloud web application.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
	queries
}

var (
	_ dav.Store         = (*SQLiteDatabase)(nil)
	_ dav.Authenticator = (*SQLiteDatabase)(nil)
)

// NewSQLiteDatabase opens the database at path. path can be a file path or
// ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteDatabaseFromDB(db, path), nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection. The caller is
// responsible for configuring it.
func NewSQLiteDatabaseFromDB(db *sql.DB, path string) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		path:    path,
		queries: queries{q: db},
	}
}

// OpenConnection opens and configures a SQLite connection pool.
// Foreign keys and the busy timeout are set through the DSN so every
// connection gets them. File databases use WAL so the web application can
// keep reading while the gateway writes.
func OpenConnection(path string) (*sql.DB, error) {
	params := []string{
		"_foreign_keys=on",
		fmt.Sprintf("_busy_timeout=%d", busyTimeout.Milliseconds()),
	}
	if path != ":memory:" {
		params = append(params, "_journal_mode=WAL")
	}
	db, err := sql.Open("sqlite3", path+"?"+strings.Join(params, "&"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer, and each connection to :memory: is a
	// separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection pool.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection pool.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// Path returns the path the database was opened with.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the schema is at the version this binary expects.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrationStatus reports the schema version of the database.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.CurrentStatus(s.db)
}

// MigrateUp applies all pending migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// InTx runs fn inside a transaction. Because the pool holds one connection,
// fn must not touch s itself or it would wait forever.
func (s *SQLiteDatabase) InTx(ctx context.Context, fn func(tx dav.Store) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("committing transaction: %w", cerr)
		}
	}()

	return fn(&txStore{queries: queries{q: tx}})
}

// txStore is the Store handed to InTx callbacks.
type txStore struct {
	queries
}

var _ dav.Store = (*txStore)(nil)

// InTx on a transactional store joins the running transaction.
func (t *txStore) InTx(ctx context.Context, fn func(tx dav.Store) error) error {
	return fn(t)
}

// queries holds the SQL shared by SQLiteDatabase and txStore.
type queries struct {
	q querier
}

// User operations

// CreateUser inserts an account. passwordHash must already be a bcrypt hash.
func (s *SQLiteDatabase) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, formatTime(user.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// FindUserByEmail returns the account with the given e-mail, or nil.
func (s *SQLiteDatabase) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &u, nil
}

// VerifyCredentials checks an e-mail and password against the stored bcrypt
// hash. Unknown e-mails and wrong passwords are indistinguishable to callers.
func (s *SQLiteDatabase) VerifyCredentials(ctx context.Context, identifier string, secret string) (string, error) {
	u, err := s.FindUserByEmail(ctx, identifier)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", fmt.Errorf("unknown user: %w", dav.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", fmt.Errorf("wrong password: %w", dav.ErrInvalidCredentials)
		}
		return "", fmt.Errorf("checking password hash: %w", err)
	}
	return u.ID, nil
}

// Folder operations

const folderColumns = `id, name, parent_id, user_id, created_at`

func (q queries) FindFolder(ctx context.Context, ownerID string, parentID sql.NullString, name string) (*model.Folder, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE user_id = ? AND parent_id IS ? AND name = ?`,
		ownerID, parentID, name)
	f, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	return f, nil
}

func (q queries) ListFolders(ctx context.Context, ownerID string, parentID sql.NullString) ([]*model.Folder, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE user_id = ? AND parent_id IS ? ORDER BY name`,
		ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	defer rows.Close()

	var folders []*model.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (q queries) CreateFolder(ctx context.Context, folder *model.Folder) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO folders (id, name, parent_id, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		folder.ID, folder.Name, folder.ParentID, folder.OwnerID, formatTime(folder.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting folder: %w", err)
	}
	return nil
}

func (q queries) RenameFolder(ctx context.Context, id string, name string, parentID sql.NullString) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE folders SET name = ?, parent_id = ? WHERE id = ?`, name, parentID, id)
	if err != nil {
		return fmt.Errorf("renaming folder: %w", err)
	}
	return expectOneRow(res, "folder", id)
}

func (q queries) DeleteFolder(ctx context.Context, id string) error {
	if _, err := q.q.ExecContext(ctx,
		`DELETE FROM shares WHERE item_id = ? AND item_type = ?`, id, model.ShareItemFolder); err != nil {
		return fmt.Errorf("deleting folder shares: %w", err)
	}
	res, err := q.q.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting folder: %w", err)
	}
	return expectOneRow(res, "folder", id)
}

// File operations

const fileColumns = `id, storage_path, original_name, mime_type, size, folder_id, user_id, created_at, updated_at`

func (q queries) FindFile(ctx context.Context, ownerID string, folderID sql.NullString, name string) (*model.File, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE user_id = ? AND folder_id IS ? AND original_name = ?`,
		ownerID, folderID, name)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding file: %w", err)
	}
	return f, nil
}

func (q queries) ListFiles(ctx context.Context, ownerID string, folderID sql.NullString) ([]*model.File, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE user_id = ? AND folder_id IS ? ORDER BY original_name`,
		ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var files []*model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// CreateFile inserts a file row. The web application reads the storage name
// from both name and storage_path, so both get the storage key.
func (q queries) CreateFile(ctx context.Context, file *model.File) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO files (id, name, original_name, mime_type, size, folder_id, user_id, storage_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.StorageKey, file.DisplayName, file.MimeType, file.SizeBytes, file.FolderID,
		file.OwnerID, file.StorageKey, formatTime(file.CreatedAt), formatTime(file.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting file: %w", err)
	}
	return nil
}

func (q queries) UpdateFile(ctx context.Context, file *model.File) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE files SET name = ?, original_name = ?, mime_type = ?, size = ?, folder_id = ?, storage_path = ?, updated_at = ?
		 WHERE id = ?`,
		file.StorageKey, file.DisplayName, file.MimeType, file.SizeBytes, file.FolderID,
		file.StorageKey, formatTime(file.UpdatedAt), file.ID)
	if err != nil {
		return fmt.Errorf("updating file: %w", err)
	}
	return expectOneRow(res, "file", file.ID)
}

func (q queries) DeleteFile(ctx context.Context, id string) error {
	if _, err := q.q.ExecContext(ctx,
		`DELETE FROM shares WHERE item_id = ? AND item_type = ?`, id, model.ShareItemFile); err != nil {
		return fmt.Errorf("deleting file shares: %w", err)
	}
	res, err := q.q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return expectOneRow(res, "file", id)
}

// Share operations

// CreateShare inserts a share row. The gateway never creates shares itself;
// this exists for the admin tooling and tests.
func (s *SQLiteDatabase) CreateShare(ctx context.Context, share *model.Share) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shares (id, token, item_id, item_type, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		share.ID, share.Token, share.ItemID, share.ItemType, share.OwnerID, formatTime(share.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting share: %w", err)
	}
	return nil
}

// CountShares returns the number of shares pointing at an item.
func (s *SQLiteDatabase) CountShares(ctx context.Context, itemID string, itemType string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM shares WHERE item_id = ? AND item_type = ?`, itemID, itemType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting shares: %w", err)
	}
	return n, nil
}

// Helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanFolder(row scanner) (*model.Folder, error) {
	var f model.Folder
	var created string
	if err := row.Scan(&f.ID, &f.Name, &f.ParentID, &f.OwnerID, &created); err != nil {
		return nil, err
	}
	var err error
	if f.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFile(row scanner) (*model.File, error) {
	var f model.File
	var created, updated string
	if err := row.Scan(&f.ID, &f.StorageKey, &f.DisplayName, &f.MimeType, &f.SizeBytes,
		&f.FolderID, &f.OwnerID, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if f.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if f.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &f, nil
}

func expectOneRow(res sql.Result, kind string, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, dav.ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads a stored timestamp. Values without a zone are UTC.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing timestamp %q", s)
}
