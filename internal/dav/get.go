package dav

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"davgate/internal/model"
)

// handleGet serves a file's content. With withBody false it answers HEAD:
// the blob is stat'ed instead of opened so a missing blob still yields 404.
func (h *Handler) handleGet(w http.ResponseWriter, req *request, withBody bool) error {
	ctx := req.ctx()
	target, err := h.resolver.Resolve(ctx, req.userID, req.segments)
	if err != nil {
		return err
	}
	switch target.Kind {
	case TargetNotFound:
		return fmt.Errorf("get %q: %w", target.Name, ErrNotFound)
	case TargetRoot, TargetFolder:
		w.Header().Set("Allow", "OPTIONS, PROPFIND, PROPPATCH, MKCOL, DELETE, MOVE, COPY, LOCK, UNLOCK")
		return fmt.Errorf("get on a collection: %w", ErrMethodNotAllowed)
	}
	f := target.File

	if !withBody {
		size, err := h.blobs.Stat(ctx, f.StorageKey)
		if err != nil {
			return fmt.Errorf("stat blob of %q: %w", f.DisplayName, err)
		}
		setFileHeaders(w, f, size)
		w.WriteHeader(http.StatusOK)
		return nil
	}

	rc, size, err := h.blobs.Open(ctx, f.StorageKey)
	if err != nil {
		return fmt.Errorf("opening blob of %q: %w", f.DisplayName, err)
	}
	defer rc.Close()

	setFileHeaders(w, f, size)
	w.WriteHeader(http.StatusOK)
	if n, err := io.Copy(w, rc); err != nil {
		// Headers are gone; all that is left is to note the short write.
		h.logger.Warn("streaming blob", "key", f.StorageKey, "written", n, "size", size, "error", err)
	}
	return nil
}

func setFileHeaders(w http.ResponseWriter, f *model.File, size int64) {
	hdr := w.Header()
	hdr.Set("Content-Type", f.MimeType)
	hdr.Set("Content-Length", strconv.FormatInt(size, 10))
	hdr.Set("ETag", etagFor(f))
	hdr.Set("Last-Modified", httpDate(f.UpdatedAt))
	hdr.Set("Content-Disposition", `attachment; filename="`+url.PathEscape(f.DisplayName)+`"`)
}
