package xuexitong

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/worklog/internal/apperr"
	"github.com/starford/worklog/internal/browser"
)

// setValueJS assigns through the native value setter so reactive inputs
// notice the change, then fires the events the remote UI syncs on.
const setValueJS = `({ selector, value }) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	el.focus();
	const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype
		: el instanceof HTMLInputElement ? HTMLInputElement.prototype : null;
	const desc = proto && Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) desc.set.call(el, value); else el.textContent = value;
	for (const type of ['input', 'change', 'blur']) {
		el.dispatchEvent(new Event(type, { bubbles: true }));
	}
	return true;
}`

const setHTMLJS = `({ selector, html }) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	el.focus();
	el.innerHTML = html;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	return true;
}`

// Renderer turns Markdown into HTML.
type Renderer func(markdown string) (string, error)

// Composer fills and saves a note on an editor page.
type Composer struct {
	site     Site
	timeouts Timeouts
	render   Renderer
	logger   *slog.Logger
}

// NewComposer creates a Composer.
func NewComposer(site Site, timeouts Timeouts, render Renderer, logger *slog.Logger) *Composer {
	return &Composer{site: site, timeouts: timeouts, render: render, logger: logger}
}

// Publish enters title and markdown and saves. Publishing again on the same
// draft overwrites what was entered before.
func (c *Composer) Publish(ctx context.Context, page browser.Page, title, markdown string) error {
	if err := c.fillTitle(ctx, page, title); err != nil {
		return &apperr.PublishError{Title: title, Err: fmt.Errorf("title: %w", err)}
	}
	if err := c.fillContent(ctx, page, markdown); err != nil {
		return &apperr.PublishError{Title: title, Err: fmt.Errorf("content: %w", err)}
	}

	sel, err := browser.ClickFirst(page, c.site.SaveButtons, c.timeouts.Element)
	if err != nil {
		return &apperr.PublishError{Title: title, Err: fmt.Errorf("save: %w", err)}
	}
	page.Wait(c.timeouts.SaveSettle)
	c.logger.Info("note saved", slog.String("title", title), slog.String("selector", sel))
	return nil
}

func (c *Composer) fillTitle(ctx context.Context, page browser.Page, title string) error {
	_, err := browser.FirstSuccess(ctx, c.logger,
		browser.Strategy{Name: "title_dom", Run: func(context.Context) error {
			for _, sel := range c.site.TitleInputs {
				if ok, _ := page.Exists(sel); !ok {
					continue
				}
				_ = page.Click(sel, c.timeouts.Element)
				if injected(page.Evaluate(setValueJS, map[string]any{"selector": sel, "value": title})) {
					return nil
				}
			}
			return browser.ErrNoMatch
		}},
		browser.Strategy{Name: "title_keyboard", Run: func(context.Context) error {
			if err := page.Press("Tab"); err != nil {
				return err
			}
			return page.Type(title)
		}},
	)
	return err
}

func (c *Composer) fillContent(ctx context.Context, page browser.Page, markdown string) error {
	_, err := browser.FirstSuccess(ctx, c.logger,
		browser.Strategy{Name: "content_html", Run: func(context.Context) error {
			html, err := c.render(markdown)
			if err != nil {
				return fmt.Errorf("render markdown: %w", err)
			}
			for _, sel := range c.site.ContentRoots {
				if ok, _ := page.Exists(sel); !ok {
					continue
				}
				if injected(page.Evaluate(setHTMLJS, map[string]any{"selector": sel, "html": html})) {
					return nil
				}
			}
			return browser.ErrNoMatch
		}},
		browser.Strategy{Name: "content_keyboard", Run: func(context.Context) error {
			if sel, err := firstExisting(page, c.site.ContentRoots); err == nil {
				_ = page.Click(sel, c.timeouts.Element)
			}
			return page.Type(markdown)
		}},
	)
	return err
}

func injected(v any, err error) bool {
	if err != nil {
		return false
	}
	ok, _ := v.(bool)
	return ok
}
