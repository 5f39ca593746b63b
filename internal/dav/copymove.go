package dav

import (
	"fmt"
	"net/http"
	"slices"

	"davgate/internal/model"
)

// handleCopyMove implements MOVE (move true) and COPY. A replaced
// destination is removed in the same transaction that writes the source to
// its new place. Copying a folder creates only the folder itself; its
// contents are not duplicated.
func (h *Handler) handleCopyMove(w http.ResponseWriter, req *request, move bool) error {
	ctx := req.ctx()
	op := "copy"
	if move {
		op = "move"
	}
	if len(req.segments) == 0 {
		return fmt.Errorf("%s of root: %w", op, ErrForbidden)
	}

	dest, err := parseDestination(req.r.Header.Get("Destination"), h.prefix)
	if err != nil {
		return err
	}
	if len(dest) == 0 {
		return fmt.Errorf("%s onto root: %w", op, ErrForbidden)
	}
	destName := dest[len(dest)-1]
	if h.ignore.Match(destName) {
		h.logger.Debug("ignored destination", "method", req.r.Method, "name", destName)
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	if slices.Equal(req.segments, dest) {
		return fmt.Errorf("%s onto itself: %w", op, ErrForbidden)
	}
	// Replacing an ancestor would delete the source along with it.
	if hasPrefixSegments(req.segments, dest) {
		return fmt.Errorf("%s onto an ancestor: %w", op, ErrForbidden)
	}
	// Only the exact value "F" disables overwriting.
	overwrite := req.r.Header.Get("Overwrite") != "F"

	before, err := h.resolver.Resolve(ctx, req.userID, req.segments)
	if err != nil {
		return err
	}
	switch before.Kind {
	case TargetNotFound:
		return fmt.Errorf("%s %q: %w", op, before.Name, ErrNotFound)
	case TargetFolder:
		// A folder copy is shallow, so only a move can create a cycle.
		if move && hasPrefixSegments(dest, req.segments) {
			return fmt.Errorf("%s of a folder into itself: %w", op, ErrForbidden)
		}
	}

	// A copied file gets its own blob before any row points at it.
	var copiedKey string
	if !move && before.Kind == TargetFile {
		copiedKey = h.storageKey(destName)
		if err := h.blobs.Copy(ctx, before.File.StorageKey, copiedKey); err != nil {
			return fmt.Errorf("copying blob of %q: %w", before.File.DisplayName, err)
		}
	}

	now := h.clock.Now()
	var staleKeys []string
	replaced := false
	err = h.store.InTx(ctx, func(tx Store) error {
		res := h.resolver.WithStore(tx)
		src, err := res.Resolve(ctx, req.userID, req.segments)
		if err != nil {
			return err
		}
		if src.Kind == TargetNotFound {
			return fmt.Errorf("%s %q: %w", op, src.Name, ErrNotFound)
		}
		if copiedKey != "" && (src.Kind != TargetFile || src.File.StorageKey != before.File.StorageKey) {
			return fmt.Errorf("%s %q: source changed: %w", op, src.Name, ErrConflict)
		}

		destParent, err := res.ResolveParent(ctx, req.userID, dest)
		if err != nil {
			return err
		}
		existing, err := res.Resolve(ctx, req.userID, dest)
		if err != nil {
			return err
		}
		if existing.Kind != TargetNotFound {
			if !overwrite {
				return fmt.Errorf("%s: destination %q exists: %w", op, destName, ErrPreconditionFailed)
			}
			staleKeys, err = removeTarget(ctx, tx, req.userID, existing)
			if err != nil {
				return err
			}
			replaced = true
		}

		switch {
		case move && src.Kind == TargetFolder:
			if err := tx.RenameFolder(ctx, src.Folder.ID, destName, destParent); err != nil {
				return fmt.Errorf("moving folder %q: %w", src.Folder.Name, err)
			}
		case move:
			f := *src.File
			f.DisplayName = destName
			f.FolderID = destParent
			f.UpdatedAt = now
			if err := tx.UpdateFile(ctx, &f); err != nil {
				return fmt.Errorf("moving file %q: %w", src.File.DisplayName, err)
			}
		case src.Kind == TargetFolder:
			folder := &model.Folder{
				ID:        h.idgen.New(),
				Name:      destName,
				ParentID:  destParent,
				OwnerID:   req.userID,
				CreatedAt: now,
			}
			if err := tx.CreateFolder(ctx, folder); err != nil {
				return fmt.Errorf("copying folder %q: %w", src.Folder.Name, err)
			}
		default:
			file := &model.File{
				ID:          h.idgen.New(),
				StorageKey:  copiedKey,
				DisplayName: destName,
				MimeType:    src.File.MimeType,
				SizeBytes:   src.File.SizeBytes,
				FolderID:    destParent,
				OwnerID:     req.userID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.CreateFile(ctx, file); err != nil {
				return fmt.Errorf("copying file %q: %w", src.File.DisplayName, err)
			}
		}
		return nil
	})
	if err != nil {
		if copiedKey != "" {
			h.removeBlob(ctx, copiedKey)
		}
		return err
	}

	for _, key := range staleKeys {
		h.removeBlob(ctx, key)
	}
	if replaced {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	w.WriteHeader(http.StatusCreated)
	return nil
}
