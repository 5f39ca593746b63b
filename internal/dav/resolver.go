package dav

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"davgate/internal/model"
)

// TargetKind classifies the outcome of resolving a virtual path.
type TargetKind int

const (
	TargetNotFound TargetKind = iota
	TargetRoot
	TargetFolder
	TargetFile
)

// Target is the resolved form of a virtual path. It is recomputed on every
// request and never stored.
type Target struct {
	Kind   TargetKind
	Folder *model.Folder // set for TargetFolder
	File   *model.File   // set for TargetFile

	// ParentID is the folder holding the last segment. It is only meaningful
	// when ParentKnown is true (always the case for folders and files).
	ParentID    sql.NullString
	ParentKnown bool

	// Name is the last segment, or "" for the root.
	Name string
}

// Resolver walks the folder forest of a single store.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver over store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve maps segments to a folder, a file, the root, or a not-found target.
// Intermediate segments must name folders; the walk stops at the first
// missing one. The last segment is checked against folders before files.
func (r *Resolver) Resolve(ctx context.Context, ownerID string, segments []string) (*Target, error) {
	if len(segments) == 0 {
		return &Target{Kind: TargetRoot, ParentKnown: true}, nil
	}

	name := segments[len(segments)-1]
	parentID, err := r.ResolveParent(ctx, ownerID, segments)
	if errors.Is(err, ErrParentNotFound) {
		return &Target{Kind: TargetNotFound, Name: name}, nil
	}
	if err != nil {
		return nil, err
	}

	target := &Target{Kind: TargetNotFound, ParentID: parentID, ParentKnown: true, Name: name}

	folder, err := r.store.FindFolder(ctx, ownerID, parentID, name)
	if err != nil {
		return nil, fmt.Errorf("finding folder %q: %w", name, err)
	}
	if folder != nil {
		target.Kind = TargetFolder
		target.Folder = folder
		return target, nil
	}

	file, err := r.store.FindFile(ctx, ownerID, parentID, name)
	if err != nil {
		return nil, fmt.Errorf("finding file %q: %w", name, err)
	}
	if file != nil {
		target.Kind = TargetFile
		target.File = file
	}
	return target, nil
}

// ResolveParent walks every segment except the last and returns the ID of
// the folder that would hold it (RootID for top-level names). It returns
// ErrParentNotFound when an intermediate folder does not exist; nothing is
// ever created along the way.
func (r *Resolver) ResolveParent(ctx context.Context, ownerID string, segments []string) (sql.NullString, error) {
	current := RootID
	if len(segments) <= 1 {
		return current, nil
	}

	for _, name := range segments[:len(segments)-1] {
		folder, err := r.store.FindFolder(ctx, ownerID, current, name)
		if err != nil {
			return RootID, fmt.Errorf("finding folder %q: %w", name, err)
		}
		if folder == nil {
			return RootID, fmt.Errorf("folder %q: %w", name, ErrParentNotFound)
		}
		current = FolderRef(folder.ID)
	}
	return current, nil
}

// WithStore returns a Resolver bound to a different store, typically the
// transactional store handed to Store.InTx.
func (r *Resolver) WithStore(store Store) *Resolver {
	return &Resolver{store: store}
}
