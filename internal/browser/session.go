package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/worklog/internal/apperr"
)

const defaultShutdownTimeout = 5 * time.Second

// Manager owns at most one browser session and decides when it must be
// relaunched. Callers only ever see pages.
type Manager struct {
	launcher        Launcher
	profileDir      string
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu           sync.Mutex
	session      Session
	lastPath     string
	lastHeadless bool
}

// NewManager creates a Manager. profileDir backs the persistent context used
// when no custom executable is configured.
func NewManager(launcher Launcher, profileDir string, logger *slog.Logger) *Manager {
	return &Manager{
		launcher:        launcher,
		profileDir:      profileDir,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger,
	}
}

// AcquirePage returns a new page from the current session, relaunching first
// when there is no session, it disconnected, or opts differ from the last launch.
func (m *Manager) AcquirePage(ctx context.Context, opts LaunchOptions) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if reason := m.relaunchReason(opts); reason != "" {
		m.logger.Info("launching browser",
			slog.String("reason", reason),
			slog.Bool("headless", opts.Headless),
			slog.String("executable_path", opts.ExecutablePath))
		if err := m.relaunch(opts); err != nil {
			return nil, err
		}
	}

	page, err := m.session.NewPage()
	if err != nil {
		m.closeLocked()
		return nil, fmt.Errorf("browser: new page: %w", err)
	}
	return page, nil
}

// Release closes a page obtained from AcquirePage. The session stays up for
// the next caller.
func (m *Manager) Release(page Page) {
	if page == nil {
		return
	}
	if err := page.Close(); err != nil {
		m.logger.Debug("browser: close page", slog.String("error", err.Error()))
	}
}

// Shutdown closes the session, giving up after the shutdown timeout. The
// session reference is dropped either way.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

// Active reports whether a session is currently held.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

func (m *Manager) relaunchReason(opts LaunchOptions) string {
	switch {
	case m.session == nil:
		return "no session"
	case !m.session.Connected():
		return "disconnected"
	case opts.ExecutablePath != m.lastPath:
		return "executable path changed"
	case opts.Headless != m.lastHeadless:
		return "headless mode changed"
	}
	return ""
}

func (m *Manager) relaunch(opts LaunchOptions) error {
	m.closeLocked()

	var (
		s   Session
		err error
	)
	if opts.ExecutablePath != "" && fileExists(opts.ExecutablePath) {
		s, err = m.launcher.LaunchIsolated(opts)
	} else {
		if opts.ExecutablePath != "" {
			m.logger.Warn("browser executable not found, using bundled browser",
				slog.String("executable_path", opts.ExecutablePath))
		}
		if mkErr := os.MkdirAll(m.profileDir, 0o755); mkErr != nil {
			return &apperr.LaunchError{ExecutablePath: opts.ExecutablePath, Headless: opts.Headless, Err: mkErr}
		}
		s, err = m.launcher.LaunchPersistent(m.profileDir, opts)
	}
	if err != nil {
		m.session = nil
		return &apperr.LaunchError{ExecutablePath: opts.ExecutablePath, Headless: opts.Headless, Err: err}
	}

	m.session = s
	m.lastPath = opts.ExecutablePath
	m.lastHeadless = opts.Headless
	return nil
}

func (m *Manager) closeLocked() {
	s := m.session
	m.session = nil
	if s == nil {
		return
	}

	done := make(chan error, 1)
	go func() { done <- s.Close() }()

	select {
	case err := <-done:
		if err != nil {
			m.logger.Warn("browser: close session", slog.String("error", err.Error()))
		}
	case <-time.After(m.shutdownTimeout):
		m.logger.Warn("browser: close session timed out", slog.Duration("timeout", m.shutdownTimeout))
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
