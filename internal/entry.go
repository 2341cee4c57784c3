// Package internal wires notewright together: logging, the configuration
// document, the index store, the vault and the surfaces built on them.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notewright/internal/api"
	"github.com/starford/notewright/internal/assembler"
	"github.com/starford/notewright/internal/debuglog"
	"github.com/starford/notewright/internal/document"
	"github.com/starford/notewright/internal/engine"
	"github.com/starford/notewright/internal/flow"
	"github.com/starford/notewright/internal/index"
	"github.com/starford/notewright/internal/mcpserver"
	"github.com/starford/notewright/internal/models"
	"github.com/starford/notewright/internal/noteservice"
	"github.com/starford/notewright/internal/prompt"
	"github.com/starford/notewright/internal/sse"
	"github.com/starford/notewright/internal/storage"
	"github.com/starford/notewright/internal/tui"
)

// App is a bootstrapped notewright instance.
type App struct {
	cfg        *Config
	version    string
	logger     *slog.Logger
	noteConfig *models.NoteConfig
	store      *index.Store
	vault      *storage.FS
	svc        *noteservice.Service
	ctrl       *flow.Controller
	closers    []func() error
}

// New loads the configuration document, opens the index and the vault and
// builds the document creation controller.
func New(ctx context.Context, opts ...Option) (*App, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config
	if app.logOutput == nil {
		app.logOutput = os.Stderr
	}
	if app.prompter == nil {
		app.prompter = tui.New()
	}
	if app.notifier == nil {
		app.notifier = tui.NewNotifier(os.Stderr)
	}
	if app.version == "" {
		app.version = "dev"
	}

	logger := newLogger(app.logOutput, cfg.App)
	slog.SetDefault(logger)
	dlog := debuglog.New(logger, cfg.App.DebugCategories()...)

	logger.Debug("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("data_path", cfg.Data.Path),
		slog.String("index_backend", cfg.Index.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	doc, err := document.Load(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("load configuration document: %w", err)
	}

	a := &App{cfg: cfg, version: app.version, logger: logger, noteConfig: &doc.NoteConfig}

	persister, err := a.openPersister(ctx, doc)
	if err != nil {
		return nil, err
	}
	a.store, err = index.Open(ctx, persister, index.WithLogger(dlog))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	var fsOpts []storage.FSOption
	if cfg.Vault.OpenCommand != "" {
		fsOpts = append(fsOpts, storage.WithOpener(storage.CommandOpener(cfg.Vault.OpenCommand)))
	}
	a.vault, err = storage.NewFS(cfg.Vault.Path, fsOpts...)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a.ctrl = flow.New(a.noteConfig,
		engine.New(a.store, app.prompter, dlog),
		assembler.New(a.vault, dlog),
		app.prompter,
		flow.WithNotifier(app.notifier),
		flow.WithLogger(dlog),
		flow.WithMaxDepth(cfg.Flow.MaxDepth),
	)
	a.svc = noteservice.NewService(a.noteConfig, a.store, a.vault)
	return a, nil
}

func newLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openPersister picks the index backend. A fresh SQLite database is seeded
// from the document's index section.
func (a *App) openPersister(ctx context.Context, doc *document.Document) (index.Persister, error) {
	if a.cfg.Index.Backend != IndexBackendSQLite {
		return index.NewDocumentPersister(a.cfg.Data.Path), nil
	}
	db, err := index.OpenDB(a.cfg.Index.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	existing, err := db.Load(ctx)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load index database: %w", err)
	}
	if len(existing.Indices) == 0 && len(doc.IndexConfig.Indices) > 0 {
		if err := db.Save(ctx, doc.IndexConfig); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("seed index database: %w", err)
		}
		a.logger.Info("index imported into database",
			slog.String("sqlite_path", a.cfg.Index.SQLitePath),
			slog.Int("indices", len(doc.IndexConfig.Indices)))
	}
	return db, nil
}

// Close releases the index database, if any.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Service returns the read and update facade.
func (a *App) Service() *noteservice.Service {
	return a.svc
}

// Store returns the index store.
func (a *App) Store() *index.Store {
	return a.store
}

// Create runs an interactive document creation flow.
func (a *App) Create(ctx context.Context) (flow.Outcome, error) {
	return a.ctrl.Run(ctx)
}

// CreateEntry creates the document for an index entry of the given note
// type and subtype, asking only what the entry does not already answer.
func (a *App) CreateEntry(ctx context.Context, entryName, typeID, subtypeID string) (flow.Outcome, error) {
	return a.ctrl.RunNewEntry(ctx, entryName, typeID, subtypeID, nil)
}

// ServeMCP serves the MCP tools on stdin/stdout until the client
// disconnects.
func (a *App) ServeMCP(_ context.Context) error {
	a.logger.Info("MCP server starting on stdio")
	return mcpserver.New(a.svc, a.version).ServeStdio()
}

// Serve runs the HTTP API, the SSE stream and the vault watcher until ctx
// is cancelled or a termination signal arrives.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	broker := sse.NewBroker()
	defer broker.Close()
	a.store.OnUpdate(broker.IndexObserver())

	apiRouter := api.NewRouter(a.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The document backend keeps the index in the configuration document;
	// reload it when another process edits the file.
	docPath := ""
	if cfg.Index.Backend == IndexBackendDocument {
		docPath = cfg.Data.Path
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := index.Watch(gCtx, a.store, a.vault.Root(), docPath, logger, broker.PublishDocument); err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// IsCancelled reports whether err means the user dismissed a prompt.
func IsCancelled(err error) bool {
	return errors.Is(err, prompt.ErrCancelled)
}
