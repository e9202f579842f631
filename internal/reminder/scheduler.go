// Package reminder periodically checks for missing work logs and tells the
// user about them by mail and notification.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/starford/worklog/internal/models"
	"github.com/starford/worklog/internal/parser"
)

// DefaultSpec runs the check at 18:00 on weekdays.
const DefaultSpec = "0 18 * * 1-5"

// Checker runs the trailing-window log check.
type Checker interface {
	CheckRecent(ctx context.Context, days int, headless bool) (*models.CheckReport, error)
}

// Notifier receives user-facing notifications.
type Notifier interface {
	Notify(n models.Notification)
}

// Config controls the schedule.
type Config struct {
	Enabled      bool
	Spec         string
	LookbackDays int
	Headless     bool
}

// Scheduler owns a cron instance with a single check job.
type Scheduler struct {
	cron       *cron.Cron
	checker    Checker
	mailer     Mailer
	notifier   Notifier
	recipients func() []string
	logger     *slog.Logger

	mu      sync.Mutex
	cfg     Config
	entryID cron.EntryID
	started bool
	runCtx  context.Context

	stopOnce sync.Once
}

// New creates a Scheduler. mailer and notifier may be nil; recipients is
// consulted on every reminder so settings changes apply immediately.
func New(cfg Config, checker Checker, mailer Mailer, notifier Notifier, recipients func() []string, logger *slog.Logger) *Scheduler {
	specParser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		),
		checker:    checker,
		mailer:     mailer,
		notifier:   notifier,
		recipients: recipients,
		logger:     logger,
		cfg:        cfg,
	}
}

// cronLogger sends cron's own messages to slog. Routine scheduling
// chatter goes to debug, a skipped run to info.
type cronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = cronLogger{}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	level := slog.LevelDebug
	if msg == "skip" {
		level = slog.LevelInfo
	}
	c.logger.Log(context.Background(), level, "cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error("cron: "+msg, append(keysAndValues, slog.String("error", err.Error()))...)
}

// Run registers the job, starts cron and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Start registers the job and starts cron. It does nothing when disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runCtx = ctx
	if !s.cfg.Enabled {
		s.logger.Info("reminder scheduler disabled by config")
		return nil
	}
	if err := s.registerLocked(); err != nil {
		return err
	}
	s.cron.Start()
	s.started = true
	s.logger.Info("reminder scheduler started", slog.String("spec", s.spec()))
	return nil
}

// Stop waits for a running check to finish. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		s.logger.Info("reminder scheduler stopped")
	})
}

// Reconfigure applies a new schedule, typically after a config reload.
func (s *Scheduler) Reconfigure(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	s.cfg = cfg
	if !cfg.Enabled || s.runCtx == nil {
		return nil
	}
	if err := s.registerLocked(); err != nil {
		return err
	}
	if !s.started {
		s.cron.Start()
		s.started = true
	}
	s.logger.Info("reminder schedule updated", slog.String("spec", s.spec()))
	return nil
}

func (s *Scheduler) spec() string {
	if strings.TrimSpace(s.cfg.Spec) == "" {
		return DefaultSpec
	}
	return s.cfg.Spec
}

func (s *Scheduler) registerLocked() error {
	ctx := s.runCtx
	id, err := s.cron.AddFunc(s.spec(), func() {
		_, _ = s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("reminder: invalid cron expression %q: %w", s.spec(), err)
	}
	s.entryID = id
	return nil
}

// RunOnce performs one check. A failed check is logged and skipped; it
// never stops the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.CheckReport, error) {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	report, err := s.checker.CheckRecent(ctx, cfg.LookbackDays, cfg.Headless)
	if err != nil {
		s.logger.Warn("scheduled log check failed, skipping cycle", slog.String("error", err.Error()))
		return nil, err
	}
	if len(report.MissingDates) == 0 {
		s.logger.Info("scheduled log check: nothing missing", slog.Int("checked", report.CheckedCount))
		return report, nil
	}

	s.logger.Info("scheduled log check: logs missing", slog.Any("dates", report.MissingDates))
	if s.notifier != nil {
		s.notifier.Notify(models.Notification{
			Title: "工作日志缺失提醒",
			Body:  fmt.Sprintf("缺少 %d 天的工作日志：%s", len(report.MissingDates), strings.Join(report.MissingDates, "、")),
		})
	}
	s.mail(ctx, report)
	return report, nil
}

func (s *Scheduler) mail(ctx context.Context, report *models.CheckReport) {
	if s.mailer == nil || s.recipients == nil {
		return
	}
	to := s.recipients()
	if len(to) == 0 {
		s.logger.Debug("no reminder recipients configured")
		return
	}
	html, err := parser.Render(reminderMarkdown(report))
	if err != nil {
		s.logger.Error("render reminder", slog.String("error", err.Error()))
		return
	}
	msg := Mail{To: to, Subject: fmt.Sprintf("工作日志缺失提醒（%d 天）", len(report.MissingDates)), HTML: html}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("send reminder mail", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("reminder mail sent", slog.Any("to", to))
}

func reminderMarkdown(report *models.CheckReport) string {
	var b strings.Builder
	b.WriteString("## 工作日志缺失提醒\n\n")
	fmt.Fprintf(&b, "最近 %d 个工作日中，以下日期还没有提交工作日志：\n\n", report.CheckedCount)
	for _, d := range report.MissingDates {
		fmt.Fprintf(&b, "- %s\n", d)
	}
	b.WriteString("\n请及时补写。\n")
	return b.String()
}
