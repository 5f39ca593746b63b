package model

import (
	"database/sql"
	"time"
)

// User is an account of the FileCloud web application.
type User struct {
	ID           string // UUID
	Email        string // Login identifier for Basic auth
	DisplayName  string
	PasswordHash string // bcrypt
	CreatedAt    time.Time
}

// Folder is a node of a user's folder forest.
type Folder struct {
	ID        string         // UUID
	Name      string         // Unique among siblings (shared with file names)
	ParentID  sql.NullString // NULL means the owner's root
	OwnerID   string         // Foreign key to User
	CreatedAt time.Time
}

// File is an uploaded file. Its bytes live in the blob store under StorageKey.
type File struct {
	ID          string         // UUID, also the ETag
	StorageKey  string         // Blob store key, never shared by two live rows
	DisplayName string         // Unique among siblings (shared with folder names)
	MimeType    string
	SizeBytes   int64
	FolderID    sql.NullString // NULL means the owner's root
	OwnerID     string         // Foreign key to User
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Share is a public link to a file or folder created by the web UI.
type Share struct {
	ID        string
	Token     string
	ItemID    string
	ItemType  string // "file" or "folder"
	OwnerID   string
	CreatedAt time.Time
}

// Share item types.
const (
	ShareItemFile   = "file"
	ShareItemFolder = "folder"
)
