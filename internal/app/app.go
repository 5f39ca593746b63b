package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"davgate/internal/blob"
	"davgate/internal/config"
	"davgate/internal/dav"
	"davgate/internal/database"
	"davgate/internal/ignore"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// App is the application layer between the CLI and the WebDAV handler.
// It constructs all dependencies from config, owns the HTTP server and
// closes the database on Close.
type App struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	blobs   dav.BlobStore
	handler *dav.Handler
	logger  *slog.Logger
	logFile *os.File
	server  *http.Server
}

// New creates a fully wired App from the given config. The database must
// already be at the schema version this binary knows.
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	matcher, err := newIgnoreMatcher(cfg.Filesystem)
	if err != nil {
		return nil, err
	}

	blobs, err := blob.NewBlobStoreFromConfig(ctx, cfg.Blobs)
	if err != nil {
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema not usable (run `davgate db migrate`): %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID, level)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	handler := dav.NewHandler(
		dav.HandlerConfig{Prefix: cfg.Prefix, Realm: cfg.Realm, RootName: cfg.RootName},
		db, blobs, db, matcher,
		&slogAdapter{l: logger}, dav.RealClock{}, dav.UUIDGenerator{},
	)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	if cfg.TLS.Enabled() {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return &App{
		cfg:     cfg,
		db:      db,
		blobs:   blobs,
		handler: handler,
		logger:  logger,
		logFile: logFile,
		server:  server,
	}, nil
}

// newIgnoreMatcher combines the configured patterns with those of the
// ignore file, if any.
func newIgnoreMatcher(cfg config.FilesystemConfig) (*ignore.Matcher, error) {
	patterns := append([]string{}, cfg.Ignore...)
	if cfg.IgnoreFile != "" {
		fromFile, err := ignore.ParseFile(cfg.IgnoreFile)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, fromFile...)
	}
	return ignore.NewMatcher(patterns), nil
}

// Handler returns the WebDAV handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Serve listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.ListenAddr, err)
	}
	return a.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled or the server fails.
// In-flight requests get shutdownTimeout to finish.
func (a *App) ServeListener(ctx context.Context, ln net.Listener) error {
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		a.logger.Info("listening", "addr", ln.Addr().String(), "prefix", a.handler.Prefix(), "tls", a.cfg.TLS.Enabled())
		var err error
		if a.cfg.TLS.Enabled() {
			err = a.server.ServeTLS(ln, a.cfg.TLS.CertFile, a.cfg.TLS.KeyFile)
		} else {
			err = a.server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	})

	return group.Wait()
}

// Close releases the database and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
