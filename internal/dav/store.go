package dav

import (
	"context"
	"database/sql"

	"davgate/internal/model"
)

// Store provides the metadata operations the gateway needs from the shared
// FileCloud database. Lookups that find nothing return nil with a nil error.
// Name comparisons are exact and case-sensitive.
type Store interface {
	// Folder operations

	// FindFolder returns the folder called name directly under parentID
	// (an invalid parentID means the owner's root).
	FindFolder(ctx context.Context, ownerID string, parentID sql.NullString, name string) (*model.Folder, error)

	// ListFolders returns the folders directly under parentID, ordered by name.
	ListFolders(ctx context.Context, ownerID string, parentID sql.NullString) ([]*model.Folder, error)

	// CreateFolder inserts a new folder row.
	CreateFolder(ctx context.Context, folder *model.Folder) error

	// RenameFolder changes a folder's name and parent in place.
	RenameFolder(ctx context.Context, id string, name string, parentID sql.NullString) error

	// DeleteFolder removes a folder row and any shares pointing at it.
	// The folder must already be empty.
	DeleteFolder(ctx context.Context, id string) error

	// File operations

	// FindFile returns the file called name directly under folderID.
	FindFile(ctx context.Context, ownerID string, folderID sql.NullString, name string) (*model.File, error)

	// ListFiles returns the files directly under folderID, ordered by name.
	ListFiles(ctx context.Context, ownerID string, folderID sql.NullString) ([]*model.File, error)

	// CreateFile inserts a new file row.
	CreateFile(ctx context.Context, file *model.File) error

	// UpdateFile rewrites the mutable columns of an existing file row
	// (name, folder, storage key, mime type, size, updated time).
	UpdateFile(ctx context.Context, file *model.File) error

	// DeleteFile removes a file row and any shares pointing at it.
	DeleteFile(ctx context.Context, id string) error

	// InTx runs fn against a Store bound to a single transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	// fn must only use the Store it is given.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// Authenticator checks Basic credentials against the account table.
type Authenticator interface {
	// VerifyCredentials returns the user ID for a matching identifier and
	// secret, or an error wrapping ErrInvalidCredentials.
	VerifyCredentials(ctx context.Context, identifier string, secret string) (string, error)
}

// RootID is the parent reference of items at the top of a user's tree.
var RootID = sql.NullString{}

// FolderRef turns a folder ID into a parent reference.
func FolderRef(id string) sql.NullString {
	return sql.NullString{String: id, Valid: true}
}
