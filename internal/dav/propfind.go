package dav

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
)

// handlePropfind lists a resource and, unless Depth is 0, its immediate
// children. Deeper listings are never produced; clients walk the tree
// themselves.
func (h *Handler) handlePropfind(w http.ResponseWriter, req *request) error {
	ctx := req.ctx()
	target, err := h.resolver.Resolve(ctx, req.userID, req.segments)
	if err != nil {
		return err
	}
	childrenToo := req.r.Header.Get("Depth") != "0"

	var responses []response
	switch target.Kind {
	case TargetNotFound:
		return fmt.Errorf("propfind %q: %w", target.Name, ErrNotFound)

	case TargetFile:
		responses = append(responses, fileResponse(buildHref(h.prefix, req.segments, false), target.File))

	case TargetRoot:
		responses = append(responses, folderResponse(buildHref(h.prefix, nil, true), h.rootName, h.clock.Now()))
		if childrenToo {
			children, err := h.listChildren(ctx, req.userID, RootID, req.segments)
			if err != nil {
				return err
			}
			responses = append(responses, children...)
		}

	case TargetFolder:
		f := target.Folder
		responses = append(responses, folderResponse(buildHref(h.prefix, req.segments, true), f.Name, f.CreatedAt))
		if childrenToo {
			children, err := h.listChildren(ctx, req.userID, FolderRef(f.ID), req.segments)
			if err != nil {
				return err
			}
			responses = append(responses, children...)
		}
	}

	return h.writeXML(w, http.StatusMultiStatus, newMultistatus(responses...))
}

// listChildren describes the folders and then the files directly under
// parentID.
func (h *Handler) listChildren(ctx context.Context, ownerID string, parentID sql.NullString, segments []string) ([]response, error) {
	folders, err := h.store.ListFolders(ctx, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	files, err := h.store.ListFiles(ctx, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	responses := make([]response, 0, len(folders)+len(files))
	for _, f := range folders {
		href := buildHref(h.prefix, childSegments(segments, f.Name), true)
		responses = append(responses, folderResponse(href, f.Name, f.CreatedAt))
	}
	for _, f := range files {
		href := buildHref(h.prefix, childSegments(segments, f.DisplayName), false)
		responses = append(responses, fileResponse(href, f))
	}
	return responses, nil
}

// handleProppatch accepts and discards property updates on existing
// resources.
func (h *Handler) handleProppatch(w http.ResponseWriter, req *request) error {
	target, err := h.resolver.Resolve(req.ctx(), req.userID, req.segments)
	if err != nil {
		return err
	}
	if target.Kind == TargetNotFound {
		return fmt.Errorf("proppatch %q: %w", target.Name, ErrNotFound)
	}
	collection := target.Kind != TargetFile
	return h.writeXML(w, http.StatusMultiStatus, newMultistatus(emptyPropResponse(buildHref(h.prefix, req.segments, collection))))
}

// childSegments returns segments extended by name without aliasing the
// caller's backing array.
func childSegments(segments []string, name string) []string {
	out := make([]string, len(segments), len(segments)+1)
	copy(out, segments)
	return append(out, name)
}
