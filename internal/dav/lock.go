package dav

import (
	"net/http"
)

// handleOptions advertises the supported methods. It is the only method
// answered without credentials so clients can discover the server.
func (h *Handler) handleOptions(w http.ResponseWriter) {
	w.Header().Set("Allow", Methods)
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}

// handleLock grants a lock that is never recorded. Clients such as Windows
// Explorer and macOS Finder refuse to write without one; no locking is
// enforced.
func (h *Handler) handleLock(w http.ResponseWriter, req *request) error {
	token := lockTokenScheme + h.idgen.New()
	collection := len(req.segments) == 0 || isCollectionPath(req.r.URL.Path)
	w.Header().Set("Lock-Token", "<"+token+">")
	return h.writeXML(w, http.StatusOK, newLockResponse(token, buildHref(h.prefix, req.segments, collection)))
}

// handleUnlock releases a lock. There is nothing to release.
func (h *Handler) handleUnlock(w http.ResponseWriter, req *request) error {
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func isCollectionPath(p string) bool {
	return len(p) > 0 && p[len(p)-1] == '/'
}
