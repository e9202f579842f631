package worklog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/worklog/internal/apperr"
	"github.com/starford/worklog/internal/checksum"
	"github.com/starford/worklog/internal/gitlog"
	"github.com/starford/worklog/internal/llm"
	"github.com/starford/worklog/internal/logdate"
	"github.com/starford/worklog/internal/models"
	"github.com/starford/worklog/internal/parser"
)

// GenerateRequest asks for a daily or weekly draft. Date defaults to today.
type GenerateRequest struct {
	Kind      models.DraftKind `json:"kind"`
	Date      string           `json:"date,omitempty"`
	Overwrite bool             `json:"overwrite,omitempty"`
}

type draftFrontmatter struct {
	Title string           `yaml:"title"`
	Date  string           `yaml:"date"`
	Kind  models.DraftKind `yaml:"kind"`
}

// DailyTitle is the default title of a daily log.
func DailyTitle(day time.Time) string {
	return "工作日志 " + day.Format("2006-01-02")
}

// WeeklyTitle is the default title of a weekly log covering from..to.
func WeeklyTitle(from, to time.Time) string {
	return fmt.Sprintf("周报 %s~%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// DraftPath is where the draft of kind for day lives in the drafts store.
func DraftPath(kind models.DraftKind, day time.Time) string {
	if kind == models.DraftWeekly {
		year, week := day.ISOWeek()
		return fmt.Sprintf("weekly/%d-W%02d.md", year, week)
	}
	return "daily/" + day.Format("2006-01-02") + ".md"
}

// GenerateDraft drafts a log from commit history and stores it.
func (s *Service) GenerateDraft(ctx context.Context, req GenerateRequest) (*models.Draft, error) {
	if s.deps.Generator == nil {
		return nil, fmt.Errorf("llm: %w", apperr.ErrNotConfigured)
	}
	kind := req.Kind
	if kind == "" {
		kind = models.DraftDaily
	}
	if kind != models.DraftDaily && kind != models.DraftWeekly {
		return nil, fmt.Errorf("%w: unknown draft kind %q", apperr.ErrInvalidInput, kind)
	}
	day, err := s.parseDay(req.Date)
	if err != nil {
		return nil, err
	}

	path := DraftPath(kind, day)
	if !req.Overwrite {
		_, err := s.deps.Drafts.Read(path)
		switch {
		case err == nil:
			return nil, fmt.Errorf("draft %s: %w", path, apperr.ErrAlreadyExists)
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
	}

	var (
		since, until time.Time
		title        string
	)
	switch kind {
	case models.DraftWeekly:
		since, until = logdate.Monday(day), day.AddDate(0, 0, 1)
		title = WeeklyTitle(since, day)
	default:
		since, until = day, day.AddDate(0, 0, 1)
		title = DailyTitle(day)
	}

	commits, err := s.collect(ctx, since, until)
	if err != nil {
		return nil, err
	}
	prompt := llm.DailyPrompt(day, commits)
	if kind == models.DraftWeekly {
		prompt = llm.WeeklyPrompt(since, day, commits)
	}
	markdown, err := s.deps.Generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	data, err := parser.Compose(draftFrontmatter{Title: title, Date: day.Format("2006-01-02"), Kind: kind}, markdown)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Drafts.Write(path, data); err != nil {
		return nil, err
	}
	s.logger.Info("draft generated",
		slog.String("path", path),
		slog.String("kind", string(kind)),
		slog.Int("commits", len(commits)))

	return &models.Draft{
		Path:      path,
		Title:     title,
		Kind:      kind,
		Date:      day.Format("2006-01-02"),
		Markdown:  strings.TrimLeft(markdown, "\n"),
		Checksum:  checksum.Sum(data),
		UpdatedAt: s.now(),
	}, nil
}

// ListDrafts returns metadata for the drafts under dir ("" for all).
func (s *Service) ListDrafts(dir string) ([]models.DraftMetadata, error) {
	return s.deps.Drafts.List(dir)
}

// ReadDraft loads and parses a stored draft.
func (s *Service) ReadDraft(path string) (*models.Draft, error) {
	data, err := s.deps.Drafts.Read(path)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &models.Draft{
		Path:     path,
		Title:    res.Title,
		Kind:     models.DraftKind(res.String("kind")),
		Date:     res.String("date"),
		Markdown: res.Body,
		Checksum: checksum.Sum(data),
	}, nil
}

// DeleteDraft removes a stored draft.
func (s *Service) DeleteDraft(path string) error {
	return s.deps.Drafts.Delete(path)
}

// dailyDraft returns the stored daily draft for day, generating it first
// when there is none.
func (s *Service) dailyDraft(ctx context.Context, day time.Time) (*models.Draft, error) {
	d, err := s.ReadDraft(DraftPath(models.DraftDaily, day))
	if err == nil {
		if d.Title == "" {
			d.Title = DailyTitle(day)
		}
		return d, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	return s.GenerateDraft(ctx, GenerateRequest{Kind: models.DraftDaily, Date: day.Format("2006-01-02")})
}

func (s *Service) collect(ctx context.Context, since, until time.Time) ([]gitlog.Commit, error) {
	opts := s.Options()
	if s.deps.Commits == nil || len(opts.GitRepos) == 0 {
		return nil, nil
	}
	return s.deps.Commits.Collect(ctx, opts.GitRepos, opts.GitAuthor, since, until)
}

func (s *Service) parseDay(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return logdate.Day(s.now()), nil
	}
	day, err := logdate.ParseDay(raw, s.now().Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return day, nil
}
