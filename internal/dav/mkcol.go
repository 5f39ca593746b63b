package dav

import (
	"fmt"
	"net/http"

	"davgate/internal/model"
)

// handleMkcol creates a single folder. Missing ancestors are not created.
func (h *Handler) handleMkcol(w http.ResponseWriter, req *request) error {
	ctx := req.ctx()
	if len(req.segments) == 0 {
		return fmt.Errorf("mkcol on root: %w", ErrMethodNotAllowed)
	}
	if req.r.ContentLength != 0 {
		return fmt.Errorf("mkcol with a request body: %w", ErrUnsupportedMedia)
	}
	name := req.segments[len(req.segments)-1]

	err := h.store.InTx(ctx, func(tx Store) error {
		parentID, err := h.resolver.WithStore(tx).ResolveParent(ctx, req.userID, req.segments)
		if err != nil {
			return err
		}
		folder, err := tx.FindFolder(ctx, req.userID, parentID, name)
		if err != nil {
			return fmt.Errorf("finding folder %q: %w", name, err)
		}
		file, err := tx.FindFile(ctx, req.userID, parentID, name)
		if err != nil {
			return fmt.Errorf("finding file %q: %w", name, err)
		}
		if folder != nil || file != nil {
			return fmt.Errorf("mkcol %q: name in use: %w", name, ErrMethodNotAllowed)
		}

		created := &model.Folder{
			ID:        h.idgen.New(),
			Name:      name,
			ParentID:  parentID,
			OwnerID:   req.userID,
			CreatedAt: h.clock.Now(),
		}
		if err := tx.CreateFolder(ctx, created); err != nil {
			return fmt.Errorf("creating folder %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return nil
}
