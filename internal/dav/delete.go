package dav

import (
	"context"
	"fmt"
	"net/http"

	"davgate/internal/model"
)

// handleDelete removes a file or a whole folder tree. Rows go in one
// transaction; blobs are unlinked only after it commits.
func (h *Handler) handleDelete(w http.ResponseWriter, req *request) error {
	ctx := req.ctx()
	if len(req.segments) == 0 {
		return fmt.Errorf("delete on root: %w", ErrForbidden)
	}

	var keys []string
	err := h.store.InTx(ctx, func(tx Store) error {
		target, err := h.resolver.WithStore(tx).Resolve(ctx, req.userID, req.segments)
		if err != nil {
			return err
		}
		if target.Kind == TargetNotFound {
			return fmt.Errorf("delete %q: %w", target.Name, ErrNotFound)
		}
		keys, err = removeTarget(ctx, tx, req.userID, target)
		return err
	})
	if err != nil {
		return err
	}

	for _, key := range keys {
		h.removeBlob(ctx, key)
	}
	h.logger.Debug("deleted", "path", req.r.URL.Path, "blobs", len(keys))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// removeTarget deletes the rows behind a resolved file or folder and returns
// the storage keys that are no longer referenced.
func removeTarget(ctx context.Context, tx Store, ownerID string, target *Target) ([]string, error) {
	switch target.Kind {
	case TargetFile:
		if err := tx.DeleteFile(ctx, target.File.ID); err != nil {
			return nil, fmt.Errorf("deleting file %q: %w", target.File.DisplayName, err)
		}
		return []string{target.File.StorageKey}, nil
	case TargetFolder:
		return deleteTree(ctx, tx, ownerID, target.Folder, nil)
	default:
		return nil, fmt.Errorf("removing %q: %w", target.Name, ErrForbidden)
	}
}

// deleteTree removes folder and everything below it, children first, and
// appends the storage keys of every removed file to keys.
func deleteTree(ctx context.Context, tx Store, ownerID string, folder *model.Folder, keys []string) ([]string, error) {
	subfolders, err := tx.ListFolders(ctx, ownerID, FolderRef(folder.ID))
	if err != nil {
		return nil, fmt.Errorf("listing folders of %q: %w", folder.Name, err)
	}
	for _, sub := range subfolders {
		keys, err = deleteTree(ctx, tx, ownerID, sub, keys)
		if err != nil {
			return nil, err
		}
	}

	files, err := tx.ListFiles(ctx, ownerID, FolderRef(folder.ID))
	if err != nil {
		return nil, fmt.Errorf("listing files of %q: %w", folder.Name, err)
	}
	for _, f := range files {
		if err := tx.DeleteFile(ctx, f.ID); err != nil {
			return nil, fmt.Errorf("deleting file %q: %w", f.DisplayName, err)
		}
		keys = append(keys, f.StorageKey)
	}

	if err := tx.DeleteFolder(ctx, folder.ID); err != nil {
		return nil, fmt.Errorf("deleting folder %q: %w", folder.Name, err)
	}
	return keys, nil
}
