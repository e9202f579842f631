package worklog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/worklog/internal/apperr"
	"github.com/starford/worklog/internal/checksum"
	"github.com/starford/worklog/internal/logdate"
	"github.com/starford/worklog/internal/models"
	"github.com/starford/worklog/internal/xuexitong"
)

const defaultGenerateConcurrency = 3

// PublishRequest is one note to publish. Date (YYYY-MM-DD or YYYYMMDD)
// defaults to today and Title to the daily title for Date.
type PublishRequest struct {
	Content      string
	Title        string
	Date         string
	Headless     bool
	SilentNotify bool
}

// PublishResponse reports a successful publish. Unchanged is set when the
// same content was already published for the date.
type PublishResponse struct {
	Success   bool   `json:"success"`
	Date      string `json:"date"`
	Title     string `json:"title"`
	Unchanged bool   `json:"unchanged,omitempty"`
}

// PublishNote publishes one note. Failures are notified with the cause and
// returned unchanged.
func (s *Service) PublishNote(ctx context.Context, req PublishRequest) (*PublishResponse, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is empty", apperr.ErrInvalidInput)
	}
	day, err := s.parseDay(req.Date)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DailyTitle(day)
	}
	creds, folder := s.credentials()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	s.browserMu.Lock()
	defer s.browserMu.Unlock()

	res, unchanged, err := s.publishLocked(ctx, creds, folder, day, title, req.Content, req.Headless, req.SilentNotify)
	if err != nil {
		return nil, err
	}
	return &PublishResponse{Success: res.Success, Date: res.Date, Title: title, Unchanged: unchanged}, nil
}

// PublishDates publishes the daily log of each date. Missing drafts are
// generated concurrently up front; the publishes themselves run one after
// another with the configured cooldown in between.
func (s *Service) PublishDates(ctx context.Context, dates []time.Time, headless bool) ([]models.SyncResult, error) {
	creds, folder := s.credentials()
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return []models.SyncResult{}, nil
	}
	opts := s.Options()

	drafts := make([]*models.Draft, len(dates))
	genErrs := make([]error, len(dates))
	limit := opts.GenerateConcurrency
	if limit <= 0 {
		limit = defaultGenerateConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, day := range dates {
		g.Go(func() error {
			drafts[i], genErrs[i] = s.dailyDraft(ctx, day)
			return nil
		})
	}
	_ = g.Wait()

	s.browserMu.Lock()
	defer s.browserMu.Unlock()

	results := make([]models.SyncResult, 0, len(dates))
	published := 0
	for i, day := range dates {
		if genErrs[i] != nil {
			r := models.SyncResult{
				Date:     logdate.Compact(day),
				Title:    DailyTitle(day),
				Error:    "generate draft: " + genErrs[i].Error(),
				SyncedAt: s.now(),
			}
			s.record(r)
			results = append(results, r)
			continue
		}
		if published > 0 {
			if err := s.sleep(ctx, opts.Cooldown); err != nil {
				return results, err
			}
		}
		r, _, _ := s.publishLocked(ctx, creds, folder, day, drafts[i].Title, drafts[i].Markdown, headless, true)
		results = append(results, r)
		published++
	}

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	s.notify(models.Notification{
		Title: "工作日志补发完成",
		Body:  fmt.Sprintf("成功 %d/%d", ok, len(results)),
	})
	return results, nil
}

// PublishMissing checks the current week and publishes every missing day.
func (s *Service) PublishMissing(ctx context.Context, headless bool) ([]models.SyncResult, error) {
	report, err := s.CheckLogs(ctx, headless)
	if err != nil {
		return nil, err
	}
	loc := s.now().Location()
	dates := make([]time.Time, 0, len(report.MissingDates))
	for _, raw := range report.MissingDates {
		d, err := logdate.ParseCompact(raw, loc)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return s.PublishDates(ctx, dates, headless)
}

// publishLocked must be called with browserMu held.
func (s *Service) publishLocked(ctx context.Context, creds xuexitong.Credentials, folder string, day time.Time, title, content string, headless, silent bool) (models.SyncResult, bool, error) {
	sum := checksum.Content(title, content)
	date := logdate.Compact(day)

	unchanged := false
	if s.deps.Store != nil {
		if prev, err := s.deps.Store.LastPublishedChecksum(date); err == nil && prev == sum {
			unchanged = true
			s.logger.Warn("republishing unchanged content", slog.String("date", date), slog.String("title", title))
		}
	}

	err := s.deps.Publisher.Publish(ctx, creds, xuexitong.Note{Title: title, Markdown: content, Folder: folder}, headless)
	res := models.SyncResult{
		Date:     date,
		Title:    title,
		Success:  err == nil,
		Checksum: sum,
		SyncedAt: s.now(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	s.record(res)

	if err != nil {
		s.logger.Error("publish failed", slog.String("title", title), slog.String("error", err.Error()))
		s.notify(models.Notification{Title: "工作日志发布失败", Body: fmt.Sprintf("%s: %v", title, err), Silent: silent})
		return res, unchanged, err
	}
	s.logger.Info("note published", slog.String("title", title), slog.String("date", date))
	s.notify(models.Notification{Title: "工作日志已发布", Body: title, Silent: silent})
	return res, unchanged, nil
}

func (s *Service) record(r models.SyncResult) {
	if s.deps.Store == nil {
		return
	}
	if _, err := s.deps.Store.RecordSync(r); err != nil {
		s.logger.Warn("record sync", slog.String("date", r.Date), slog.String("error", err.Error()))
	}
}
