package dav

import (
	"fmt"
	"net/http"

	"davgate/internal/model"
)

// handlePut creates or replaces a file. The body is written to a fresh
// storage key before any metadata changes, so readers see either the old
// content or the new content and never a partial upload. Overwrites keep the
// file's ID (and therefore its ETag and shares).
func (h *Handler) handlePut(w http.ResponseWriter, req *request) error {
	ctx := req.ctx()
	if len(req.segments) == 0 {
		return fmt.Errorf("put on root: %w", ErrMethodNotAllowed)
	}
	name := req.segments[len(req.segments)-1]

	// Cheap checks before the body is consumed.
	parentID, err := h.resolver.ResolveParent(ctx, req.userID, req.segments)
	if err != nil {
		return err
	}
	folder, err := h.store.FindFolder(ctx, req.userID, parentID, name)
	if err != nil {
		return fmt.Errorf("finding folder %q: %w", name, err)
	}
	if folder != nil {
		return fmt.Errorf("put over folder %q: %w", name, ErrMethodNotAllowed)
	}

	key := h.storageKey(name)
	written, err := h.blobs.Put(ctx, key, req.r.Body, req.r.ContentLength)
	if err != nil {
		return fmt.Errorf("storing upload of %q: %w", name, err)
	}

	now := h.clock.Now()
	var result *model.File
	var oldKey string
	err = h.store.InTx(ctx, func(tx Store) error {
		parentID, err := h.resolver.WithStore(tx).ResolveParent(ctx, req.userID, req.segments)
		if err != nil {
			return err
		}
		folder, err := tx.FindFolder(ctx, req.userID, parentID, name)
		if err != nil {
			return fmt.Errorf("finding folder %q: %w", name, err)
		}
		if folder != nil {
			return fmt.Errorf("put over folder %q: %w", name, ErrMethodNotAllowed)
		}

		existing, err := tx.FindFile(ctx, req.userID, parentID, name)
		if err != nil {
			return fmt.Errorf("finding file %q: %w", name, err)
		}
		if existing != nil {
			oldKey = existing.StorageKey
			existing.StorageKey = key
			existing.MimeType = ContentTypeFor(name)
			existing.SizeBytes = written
			existing.UpdatedAt = now
			if err := tx.UpdateFile(ctx, existing); err != nil {
				return fmt.Errorf("updating file %q: %w", name, err)
			}
			result = existing
			return nil
		}

		file := &model.File{
			ID:          h.idgen.New(),
			StorageKey:  key,
			DisplayName: name,
			MimeType:    ContentTypeFor(name),
			SizeBytes:   written,
			FolderID:    parentID,
			OwnerID:     req.userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateFile(ctx, file); err != nil {
			return fmt.Errorf("creating file %q: %w", name, err)
		}
		result = file
		return nil
	})
	if err != nil {
		h.removeBlob(ctx, key)
		return err
	}

	w.Header().Set("ETag", etagFor(result))
	if oldKey != "" {
		h.removeBlob(ctx, oldKey)
		h.logger.Debug("file replaced", "id", result.ID, "size", written)
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	h.logger.Debug("file created", "id", result.ID, "size", written)
	w.WriteHeader(http.StatusCreated)
	return nil
}
