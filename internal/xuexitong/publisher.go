package xuexitong

import (
	"context"
	"log/slog"

	"github.com/starford/worklog/internal/browser"
)

// Note is one note to publish.
type Note struct {
	Title    string
	Markdown string
	// Folder is matched by substring against the editor's folder name.
	Folder string
}

// Publisher runs the full flow from a fresh page lease to a saved note.
type Publisher struct {
	pages    PageSource
	nav      *Navigator
	composer *Composer
	logger   *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(pages PageSource, nav *Navigator, composer *Composer, logger *slog.Logger) *Publisher {
	return &Publisher{pages: pages, nav: nav, composer: composer, logger: logger}
}

// Publish saves note through the browser. Every page opened on the way is
// closed before returning.
func (p *Publisher) Publish(ctx context.Context, creds Credentials, note Note, headless bool) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	page, err := p.pages.AcquirePage(ctx, browser.LaunchOptions{Headless: headless, ExecutablePath: creds.ExecutablePath})
	if err != nil {
		return err
	}
	defer p.pages.Release(page)

	if err := p.nav.Open(ctx, page, creds); err != nil {
		return err
	}
	editor, err := p.nav.EnsureEditorView(ctx, page, creds.Target())
	if err != nil {
		return err
	}
	if editor != page {
		defer p.pages.Release(editor)
	}

	if !p.nav.EnsureCorrectFolder(ctx, editor, note.Folder) {
		p.logger.Warn("publishing to the current folder", slog.String("wanted", note.Folder))
	}
	return p.composer.Publish(ctx, editor, note.Title, note.Markdown)
}
