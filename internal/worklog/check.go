package worklog

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/worklog/internal/logdate"
	"github.com/starford/worklog/internal/models"
)

// CheckLogs reports which workdays of the current week have no log.
func (s *Service) CheckLogs(ctx context.Context, headless bool) (*models.CheckReport, error) {
	return s.checkWindow(ctx, logdate.Workdays(s.now()), headless)
}

// CheckRecent reports missing logs over the last days calendar days. A
// non-positive days uses the configured lookback.
func (s *Service) CheckRecent(ctx context.Context, days int, headless bool) (*models.CheckReport, error) {
	if days <= 0 {
		days = s.Options().LookbackDays
	}
	return s.checkWindow(ctx, logdate.TrailingWorkdays(s.now(), days), headless)
}

func (s *Service) checkWindow(ctx context.Context, window []time.Time, headless bool) (*models.CheckReport, error) {
	creds, _ := s.credentials()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	s.browserMu.Lock()
	res, err := s.deps.Checker.Check(ctx, window, creds, headless)
	s.browserMu.Unlock()
	if err != nil {
		s.logger.Error("log check failed", slog.String("error", err.Error()))
		return nil, err
	}

	return &models.CheckReport{
		MissingDates:     logdate.CompactAll(res.Missing),
		FoundTitlesCount: len(res.Titles),
		CheckedCount:     len(window),
	}, nil
}
