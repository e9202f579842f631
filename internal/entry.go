// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/worklog/internal/api"
	"github.com/starford/worklog/internal/browser"
	"github.com/starford/worklog/internal/gitlog"
	"github.com/starford/worklog/internal/llm"
	"github.com/starford/worklog/internal/logdate"
	"github.com/starford/worklog/internal/mcpserver"
	"github.com/starford/worklog/internal/parser"
	"github.com/starford/worklog/internal/reminder"
	"github.com/starford/worklog/internal/sse"
	"github.com/starford/worklog/internal/storage"
	"github.com/starford/worklog/internal/store"
	"github.com/starford/worklog/internal/worklog"
	"github.com/starford/worklog/internal/xuexitong"
	pkgconfig "github.com/starford/worklog/pkg/config"
)

// components is the wired object graph shared by every run mode.
type components struct {
	cfg      *Config
	logger   *slog.Logger
	launcher *browser.PlaywrightLauncher
	manager  *browser.Manager
	db       *store.DB
	drafts   *storage.FS
	svc      *worklog.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// build initialises storage and the browser flows. notifier may be nil.
func build(app *application, notifier worklog.Notifier) (*components, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("target_url", cfg.Xuexitong.TargetURL),
		slog.String("drafts_path", cfg.Drafts.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("format_set", string(cfg.Matching.FormatSet)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if cfg.Matching.FormatSet == logdate.FormatSetBasic {
		logger.Warn("matching.format_set is basic: non-padded titles such as 2026年1月28日 will count as missing")
	}

	drafts, err := storage.NewFS(cfg.Drafts.Path)
	if err != nil {
		return nil, fmt.Errorf("init drafts: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	var generator llm.Generator
	if cfg.LLM.Enabled() {
		client, err := llm.NewOpenAIClient(cfg.LLM.Client(), logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init llm: %w", err)
		}
		generator = client
	} else {
		logger.Info("LLM not configured, draft generation disabled")
	}

	launcher := browser.NewPlaywrightLauncher()
	manager := browser.NewManager(launcher, cfg.Browser.ProfileDir, logger)
	checker, publisher := browserFlow(cfg, manager, logger)

	svc := worklog.New(worklog.Deps{
		Checker:   checker,
		Publisher: publisher,
		Browser:   manager,
		Drafts:    drafts,
		Store:     db,
		Generator: generator,
		Commits:   gitlog.NewCollector(gitlog.ExecRunner),
		Notifier:  notifier,
	}, cfg.ServiceOptions(), logger)

	return &components{
		cfg:      cfg,
		logger:   logger,
		launcher: launcher,
		manager:  manager,
		db:       db,
		drafts:   drafts,
		svc:      svc,
	}, nil
}

// browserFlow builds the checker and publisher from the browser, matching
// and target settings of cfg. The session manager is shared across rebuilds.
func browserFlow(cfg *Config, manager *browser.Manager, logger *slog.Logger) (*xuexitong.Checker, *xuexitong.Publisher) {
	site := xuexitong.DefaultSite().WithTarget(cfg.Xuexitong.TargetURL)
	timeouts := cfg.Browser.Timeouts()
	nav := xuexitong.NewNavigator(site, timeouts, logger)
	composer := xuexitong.NewComposer(site, timeouts, parser.Render, logger)
	checker := xuexitong.NewChecker(manager, nav, logdate.NewMatcher(cfg.Matching.FormatSet), site, timeouts, logger)
	return checker, xuexitong.NewPublisher(manager, nav, composer, logger)
}

// Close shuts the browser and the driver down and closes the database.
func (c *components) Close() {
	c.svc.CloseBrowser()
	if err := c.launcher.Stop(); err != nil {
		c.logger.Warn("stop browser driver", slog.String("error", err.Error()))
	}
	if err := c.db.Close(); err != nil {
		c.logger.Warn("close store", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP server, the reminder scheduler and the file watchers.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := build(app, broker)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg, logger, svc := c.cfg, c.logger, c.svc

	// Reminder scheduler.
	var mailer reminder.Mailer
	if cfg.Mail.Enabled() {
		mailer = reminder.NewSMTPMailer(cfg.Mail.SMTP())
	}
	var mailTo atomic.Pointer[[]string]
	mailTo.Store(&cfg.Mail.To)
	scheduler := reminder.New(cfg.Schedule.Reminder(cfg.Xuexitong.Headless), svc, mailer, broker,
		func() []string { return svc.MailRecipients(*mailTo.Load()) }, logger)

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Draft changes are pushed to SSE clients.
	g.Go(func() error {
		if err := storage.Watch(gCtx, c.drafts.Root(), logger, broker.PublishDraftEvent); err != nil {
			logger.Warn("drafts watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gCtx)
	})

	if app.configPath != "" {
		g.Go(func() error {
			err := pkgconfig.Watch(gCtx, app.configPath, pkgconfig.DefaultDebounce, func() {
				next := NewDefaultConfig()
				if err := pkgconfig.Load(app.configPath, next); err != nil {
					logger.Warn("config reload rejected", slog.String("error", err.Error()))
					return
				}
				svc.UpdateOptions(next.ServiceOptions())
				svc.SetBrowserFlow(browserFlow(next, c.manager, logger))
				mailTo.Store(&next.Mail.To)
				if err := scheduler.Reconfigure(next.Schedule.Reminder(next.Xuexitong.Headless)); err != nil {
					logger.Warn("reminder reconfigure failed", slog.String("error", err.Error()))
				}
				logger.Info("config reloaded", slog.String("path", app.configPath))
			})
			if err != nil {
				logger.Warn("config watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so background loops exit once the
// HTTP server has stopped.
var errShutdown = errors.New("shutdown")

// RunMCP serves the assistant tools on stdin/stdout. Logs go to the
// configured log output, which must not be stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(app, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := mcpserver.New(c.svc, c.cfg.Matching.FormatSet, app.version)
	c.logger.Info("MCP server starting on stdio")
	return srv.Serve(ctx, os.Stdin, os.Stdout)
}

// Do builds the services, runs fn once and tears everything down. The CLI
// uses it for one-shot commands.
func Do(ctx context.Context, fn func(ctx context.Context, svc *worklog.Service) error, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(app, nil)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c.svc)
}
