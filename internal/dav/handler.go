package dav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultPrefix   = "/webdav"
	DefaultRealm    = "FileCloud WebDAV"
	DefaultRootName = "FileCloud"
)

// Methods lists every method the gateway answers, in the order advertised
// by OPTIONS and 405 responses.
const Methods = "OPTIONS, GET, HEAD, PUT, DELETE, MKCOL, PROPFIND, PROPPATCH, MOVE, COPY, LOCK, UNLOCK"

// Non-standard WebDAV methods.
const (
	methodPropfind  = "PROPFIND"
	methodProppatch = "PROPPATCH"
	methodMkcol     = "MKCOL"
	methodCopy      = "COPY"
	methodMove      = "MOVE"
	methodLock      = "LOCK"
	methodUnlock    = "UNLOCK"
)

// IgnoreMatcher reports whether a resource name is operating-system noise
// that must never reach the metadata store.
type IgnoreMatcher interface {
	Match(name string) bool
}

// HandlerConfig holds the externally visible settings of a Handler.
// Zero values fall back to the defaults above.
type HandlerConfig struct {
	Prefix   string
	Realm    string
	RootName string
}

// Handler serves the WebDAV protocol for every authenticated user of the
// shared store. It is safe for concurrent use.
type Handler struct {
	store    Store
	blobs    BlobStore
	auth     Authenticator
	ignore   IgnoreMatcher
	resolver *Resolver
	logger   Logger
	clock    Clock
	idgen    IDGenerator

	prefix   string
	realm    string
	rootName string
}

var _ http.Handler = (*Handler)(nil)

// NewHandler creates a Handler with the provided dependencies.
func NewHandler(cfg HandlerConfig, store Store, blobs BlobStore, auth Authenticator, ignore IgnoreMatcher, logger Logger, clock Clock, idgen IDGenerator) *Handler {
	h := &Handler{
		store:    store,
		blobs:    blobs,
		auth:     auth,
		ignore:   ignore,
		resolver: NewResolver(store),
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		prefix:   cfg.Prefix,
		realm:    cfg.Realm,
		rootName: cfg.RootName,
	}
	if h.prefix == "" {
		h.prefix = DefaultPrefix
	}
	if h.realm == "" {
		h.realm = DefaultRealm
	}
	if h.rootName == "" {
		h.rootName = DefaultRootName
	}
	return h
}

// Prefix returns the mount point the handler strips from request paths.
func (h *Handler) Prefix() string {
	return h.prefix
}

// request carries the per-request state shared by the method handlers.
type request struct {
	r        *http.Request
	userID   string
	segments []string
}

func (req *request) ctx() context.Context {
	return req.r.Context()
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	sw.Header().Set("DAV", "1, 2")
	sw.Header().Set("MS-Author-Via", "DAV")

	var userID string
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic serving request", "method", r.Method, "path", r.URL.Path, "panic", fmt.Sprint(rec))
			if !sw.wroteHeader {
				http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"user", userID,
			"duration", time.Since(start).String(),
		)
	}()

	var err error
	userID, err = h.serve(sw, r)
	if err != nil {
		h.writeError(sw, r, err)
	}
}

// serve authenticates the request and dispatches it to a method handler.
// It returns the authenticated user ID (empty for OPTIONS and failures).
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Method == http.MethodOptions {
		h.handleOptions(w)
		return "", nil
	}

	userID, err := h.authenticate(r)
	if err != nil {
		return "", err
	}

	segments, err := splitSegments(stripPrefix(r.URL.EscapedPath(), h.prefix))
	if err != nil {
		return userID, err
	}
	req := &request{r: r, userID: userID, segments: segments}

	if len(segments) > 0 && h.ignore.Match(segments[len(segments)-1]) {
		return userID, h.handleIgnored(w, req)
	}

	switch r.Method {
	case http.MethodGet:
		err = h.handleGet(w, req, true)
	case http.MethodHead:
		err = h.handleGet(w, req, false)
	case http.MethodPut:
		err = h.handlePut(w, req)
	case http.MethodDelete:
		err = h.handleDelete(w, req)
	case methodMkcol:
		err = h.handleMkcol(w, req)
	case methodPropfind:
		err = h.handlePropfind(w, req)
	case methodProppatch:
		err = h.handleProppatch(w, req)
	case methodMove:
		err = h.handleCopyMove(w, req, true)
	case methodCopy:
		err = h.handleCopyMove(w, req, false)
	case methodLock:
		err = h.handleLock(w, req)
	case methodUnlock:
		err = h.handleUnlock(w, req)
	default:
		w.Header().Set("Allow", Methods)
		err = fmt.Errorf("method %s: %w", r.Method, ErrMethodNotAllowed)
	}
	return userID, err
}

// authenticate checks HTTP Basic credentials. The password is never logged.
func (h *Handler) authenticate(r *http.Request) (string, error) {
	identifier, secret, ok := r.BasicAuth()
	if !ok || identifier == "" {
		return "", ErrUnauthenticated
	}
	userID, err := h.auth.VerifyCredentials(r.Context(), identifier, secret)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return "", fmt.Errorf("verifying credentials: %w", err)
	}
	return userID, nil
}

// handleIgnored answers requests for filesystem noise. Reads report the name
// as absent; writes are accepted and discarded.
func (h *Handler) handleIgnored(w http.ResponseWriter, req *request) error {
	switch req.r.Method {
	case http.MethodGet, http.MethodHead, methodPropfind:
		return fmt.Errorf("ignored name %q: %w", req.segments[len(req.segments)-1], ErrNotFound)
	}
	h.logger.Debug("ignored request", "method", req.r.Method, "name", req.segments[len(req.segments)-1])
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// writeError turns a handler error into a status code and a short body.
// Internal failures get a generic body; the cause only goes to the log.
func (h *Handler) writeError(w *statusWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Basic realm="`+h.realm+`"`)
	default:
		h.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	if w.wroteHeader {
		return
	}
	http.Error(w, http.StatusText(status), status)
}

// writeXML renders v and sends it with the given status.
func (h *Handler) writeXML(w http.ResponseWriter, status int, v any) error {
	body, err := marshalXML(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", xmlContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("writing xml response", "error", err)
	}
	return nil
}

// removeBlob deletes a blob that is no longer referenced. Failures are
// logged and never reported to the client: the metadata change has already
// been committed.
func (h *Handler) removeBlob(ctx context.Context, key string) {
	ctx = context.WithoutCancel(ctx)
	if err := h.blobs.Delete(ctx, key); err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			h.logger.Warn("blob already missing", "key", key)
			return
		}
		h.logger.Error("deleting blob", "key", key, "error", err)
	}
}

// storageKey mints a fresh blob key that keeps the extension of name.
func (h *Handler) storageKey(name string) string {
	return h.idgen.New() + extension(name)
}

// statusWriter records the status code for the request log.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
