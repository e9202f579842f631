package xuexitong

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/worklog/internal/browser"
	"github.com/starford/worklog/internal/logdate"
)

// PageSource leases pages from the shared browser session.
type PageSource interface {
	AcquirePage(ctx context.Context, opts browser.LaunchOptions) (browser.Page, error)
	Release(page browser.Page)
}

// CheckResult is the outcome of one completion check.
type CheckResult struct {
	Missing []time.Time
	Titles  []string
}

// Checker scrapes note titles and reports which workdays have no log.
type Checker struct {
	pages    PageSource
	nav      *Navigator
	matcher  logdate.Matcher
	site     Site
	timeouts Timeouts
	logger   *slog.Logger
}

// NewChecker creates a Checker.
func NewChecker(pages PageSource, nav *Navigator, matcher logdate.Matcher, site Site, timeouts Timeouts, logger *slog.Logger) *Checker {
	return &Checker{pages: pages, nav: nav, matcher: matcher, site: site, timeouts: timeouts, logger: logger}
}

// Check returns the dates in window that no note title covers. Any failure
// along the way is returned as is; deciding what a failed check means is up
// to the caller.
func (c *Checker) Check(ctx context.Context, window []time.Time, creds Credentials, headless bool) (*CheckResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	page, err := c.pages.AcquirePage(ctx, browser.LaunchOptions{Headless: headless, ExecutablePath: creds.ExecutablePath})
	if err != nil {
		return nil, err
	}
	defer c.pages.Release(page)

	if err := c.nav.Open(ctx, page, creds); err != nil {
		return nil, err
	}
	titles, err := c.scrapeTitles(page, creds.Target())
	if err != nil {
		return nil, err
	}

	missing := c.matcher.MissingDates(window, titles)
	c.logger.Info("log check finished",
		slog.Int("titles", len(titles)),
		slog.Int("checked", len(window)),
		slog.Int("missing", len(missing)))
	return &CheckResult{Missing: missing, Titles: titles}, nil
}

// scrapeTitles treats a list that never renders as empty, but only on the
// note list itself. Anywhere else the titles could not be read at all.
func (c *Checker) scrapeTitles(page browser.Page, target string) ([]string, error) {
	sel := join(c.site.ListTitles)
	if err := page.WaitForSelector(sel, c.timeouts.Element); err != nil {
		if state := classify(c.site.WithTarget(target), page); state != NoteListPage {
			return nil, fmt.Errorf("xuexitong: note list not reached (%s at %s): %w", state, page.URL(), err)
		}
		c.logger.Warn("no note titles rendered", slog.String("url", page.URL()))
		return nil, nil
	}
	raw, err := page.AllTexts(sel)
	if err != nil {
		return nil, fmt.Errorf("xuexitong: read titles: %w", err)
	}
	titles := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	return titles, nil
}
