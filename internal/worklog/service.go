// Package worklog ties log checks, draft generation and publishing together.
// Every browser operation goes through one Service, which runs them one at
// a time against the shared session.
package worklog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/worklog/internal/apperr"
	"github.com/starford/worklog/internal/gitlog"
	"github.com/starford/worklog/internal/llm"
	"github.com/starford/worklog/internal/models"
	"github.com/starford/worklog/internal/storage"
	"github.com/starford/worklog/internal/store"
	"github.com/starford/worklog/internal/xuexitong"
)

// Checker finds workdays without a log.
type Checker interface {
	Check(ctx context.Context, window []time.Time, creds xuexitong.Credentials, headless bool) (*xuexitong.CheckResult, error)
}

// Publisher saves one note through the browser.
type Publisher interface {
	Publish(ctx context.Context, creds xuexitong.Credentials, note xuexitong.Note, headless bool) error
}

// Browser is the shutdown hook of the shared browser session.
type Browser interface {
	Shutdown()
}

// Notifier receives user-facing notifications. It must not block.
type Notifier interface {
	Notify(n models.Notification)
}

// CommitSource lists commits for draft generation.
type CommitSource interface {
	Collect(ctx context.Context, repos []string, author string, since, until time.Time) ([]gitlog.Commit, error)
}

// Settings is the part of the SQLite store the service reads and writes.
type Settings interface {
	store.Settings
	store.SyncLog
}

// Options are the tunables that may change on config reload.
type Options struct {
	Credentials xuexitong.Credentials
	Folder      string
	Headless    bool
	// Cooldown separates consecutive publishes in a batch.
	Cooldown     time.Duration
	LookbackDays int
	GitRepos     []string
	GitAuthor    string
	// GenerateConcurrency bounds parallel draft generation in a batch.
	GenerateConcurrency int
}

// Deps are the collaborators of a Service. Generator, Commits, Store and
// Notifier may be nil.
type Deps struct {
	Checker   Checker
	Publisher Publisher
	Browser   Browser
	Drafts    storage.Provider
	Store     Settings
	Generator llm.Generator
	Commits   CommitSource
	Notifier  Notifier
}

// Service is the entry point used by the API, the assistant tools, the CLI
// and the reminder scheduler.
type Service struct {
	deps   Deps
	logger *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// browserMu serialises every operation that touches the browser.
	browserMu sync.Mutex

	optsMu sync.RWMutex
	opts   Options
}

// New creates a Service.
func New(deps Deps, opts Options, logger *slog.Logger) *Service {
	return &Service{
		deps:   deps,
		logger: logger,
		now:    time.Now,
		sleep:  sleepCtx,
		opts:   opts,
	}
}

// SetClock replaces the time source and the cooldown sleeper. Tests use it
// to pin "today" and to observe cooldowns.
func (s *Service) SetClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) {
	if now != nil {
		s.now = now
	}
	if sleep != nil {
		s.sleep = sleep
	}
}

// UpdateOptions swaps the tunables, typically after a config reload.
func (s *Service) UpdateOptions(opts Options) {
	s.optsMu.Lock()
	s.opts = opts
	s.optsMu.Unlock()
	s.logger.Info("worklog options updated", slog.Bool("headless", opts.Headless), slog.Duration("cooldown", opts.Cooldown))
}

// SetBrowserFlow replaces the checker and publisher, typically rebuilt with
// new timeouts or matching rules after a config reload. It waits for any
// running browser operation to finish.
func (s *Service) SetBrowserFlow(checker Checker, publisher Publisher) {
	s.browserMu.Lock()
	defer s.browserMu.Unlock()
	s.deps.Checker = checker
	s.deps.Publisher = publisher
}

// Options returns the current tunables.
func (s *Service) Options() Options {
	s.optsMu.RLock()
	defer s.optsMu.RUnlock()
	return s.opts
}

// CloseBrowser shuts the shared browser down, waiting for any running
// operation to finish first.
func (s *Service) CloseBrowser() {
	s.browserMu.Lock()
	defer s.browserMu.Unlock()
	if s.deps.Browser != nil {
		s.deps.Browser.Shutdown()
	}
	s.logger.Info("browser closed")
}

// SetSetting stores an override for one of store.KnownKeys.
func (s *Service) SetSetting(key, value string) error {
	if s.deps.Store == nil {
		return fmt.Errorf("settings store: %w", apperr.ErrNotConfigured)
	}
	if !store.IsKnownKey(key) {
		return fmt.Errorf("%w: unknown setting %q", apperr.ErrInvalidInput, key)
	}
	return s.deps.Store.Set(key, value)
}

// SyncHistory lists recorded publish attempts, newest first.
func (s *Service) SyncHistory(limit, offset int) ([]models.SyncResult, int, error) {
	if s.deps.Store == nil {
		return nil, 0, nil
	}
	return s.deps.Store.ListSyncs(limit, offset)
}

// MailRecipients returns the reminder recipients, preferring the
// comma-separated mail.to setting over fallback.
func (s *Service) MailRecipients(fallback []string) []string {
	if s.deps.Store == nil {
		return fallback
	}
	v, ok, err := s.deps.Store.Get(store.KeyMailTo)
	if err != nil || !ok {
		return fallback
	}
	var to []string
	for _, addr := range strings.Split(v, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return fallback
	}
	return to
}

// credentials merges file configuration with settings overrides.
func (s *Service) credentials() (xuexitong.Credentials, string) {
	opts := s.Options()
	creds, folder := opts.Credentials, opts.Folder
	if s.deps.Store == nil {
		return creds, folder
	}
	override := func(key string, dst *string) {
		v, ok, err := s.deps.Store.Get(key)
		if err != nil {
			s.logger.Warn("read setting", slog.String("key", key), slog.String("error", err.Error()))
			return
		}
		if ok && v != "" {
			*dst = v
		}
	}
	override(store.KeyUsername, &creds.Username)
	override(store.KeyPassword, &creds.Password)
	override(store.KeyTargetURL, &creds.TargetURL)
	override(store.KeyExecutablePath, &creds.ExecutablePath)
	override(store.KeyFolder, &folder)
	return creds, folder
}

func (s *Service) notify(n models.Notification) {
	s.logger.Info("notification", slog.String("title", n.Title), slog.String("body", n.Body))
	if s.deps.Notifier != nil {
		s.deps.Notifier.Notify(n)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
