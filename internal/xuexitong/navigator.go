package xuexitong

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/worklog/internal/apperr"
	"github.com/starford/worklog/internal/browser"
)

const framePollInterval = 250 * time.Millisecond

// NavigationState is where a page currently is on the note site.
type NavigationState int

const (
	Unknown NavigationState = iota
	LoginPage
	NoteListPage
	NoteEditorPage
)

func (s NavigationState) String() string {
	switch s {
	case LoginPage:
		return "login"
	case NoteListPage:
		return "note_list"
	case NoteEditorPage:
		return "note_editor"
	default:
		return "unknown"
	}
}

// Navigator moves a page between the login, list and editor views. State is
// recomputed from the page on every decision.
type Navigator struct {
	site     Site
	timeouts Timeouts
	logger   *slog.Logger
}

// NewNavigator creates a Navigator.
func NewNavigator(site Site, timeouts Timeouts, logger *slog.Logger) *Navigator {
	return &Navigator{site: site, timeouts: timeouts, logger: logger}
}

// Classify derives the navigation state from the page URL and DOM.
func (n *Navigator) Classify(page browser.Page) NavigationState {
	return classify(n.site, page)
}

// siteFor returns the site description with target's host accepted as a
// note domain. Targets change at runtime through settings and reloads.
func (n *Navigator) siteFor(target string) Site {
	return n.site.WithTarget(target)
}

func classify(site Site, page browser.Page) NavigationState {
	u := page.URL()
	if site.IsLoginURL(u) {
		return LoginPage
	}
	if ok, _ := page.Exists(join(site.UsernameInputs)); ok {
		return LoginPage
	}
	if site.IsEditorURL(u) {
		return NoteEditorPage
	}
	if site.IsNoteURL(u) {
		return NoteListPage
	}
	return Unknown
}

// Open brings a fresh or reused page to the authenticated note list.
func (n *Navigator) Open(ctx context.Context, page browser.Page, creds Credentials) error {
	if classify(n.siteFor(creds.Target()), page) == Unknown {
		if err := page.Goto(creds.Target(), n.timeouts.Navigation); err != nil {
			return fmt.Errorf("xuexitong: open %s: %w", creds.Target(), err)
		}
	}
	if err := n.EnsureAuthenticated(ctx, page, creds); err != nil {
		return err
	}
	return n.EnsureListView(ctx, page, creds.Target())
}

// EnsureAuthenticated submits the login form when the page shows one and
// waits for the site to land back on a note domain.
func (n *Navigator) EnsureAuthenticated(ctx context.Context, page browser.Page, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	site := n.siteFor(creds.Target())
	if classify(site, page) != LoginPage {
		return nil
	}
	loginURL := page.URL()
	n.logger.Info("login page detected", slog.String("url", loginURL))

	fail := func(err error) error {
		return &apperr.AuthenticationError{URL: loginURL, Err: err}
	}

	userSel, err := firstExisting(page, n.site.UsernameInputs)
	if err != nil {
		return fail(fmt.Errorf("username field: %w", err))
	}
	if err := page.Fill(userSel, creds.Username, n.timeouts.Element); err != nil {
		return fail(fmt.Errorf("fill username: %w", err))
	}
	passSel, err := firstExisting(page, n.site.PasswordInputs)
	if err != nil {
		return fail(fmt.Errorf("password field: %w", err))
	}
	if err := page.Fill(passSel, creds.Password, n.timeouts.Element); err != nil {
		return fail(fmt.Errorf("fill password: %w", err))
	}

	if _, err := browser.ClickFirst(page, n.site.LoginSubmits, n.timeouts.Element); err != nil {
		if err := page.Press("Enter"); err != nil {
			return fail(fmt.Errorf("submit: %w", err))
		}
	}

	landed := func(u string) bool {
		return !site.IsLoginURL(u) && site.IsNoteURL(u)
	}
	if err := page.WaitForURL(landed, n.timeouts.Login); err != nil {
		return fail(fmt.Errorf("waiting for note site after %s: %w", n.timeouts.Login, err))
	}
	n.logger.Info("login succeeded", slog.String("url", page.URL()))
	return nil
}

// EnsureListView navigates straight to targetURL unless the page is already
// on the note list.
func (n *Navigator) EnsureListView(ctx context.Context, page browser.Page, targetURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	site := n.siteFor(targetURL)
	if classify(site, page) == NoteListPage {
		return nil
	}
	if err := page.Goto(targetURL, n.timeouts.Navigation); err != nil {
		return fmt.Errorf("xuexitong: goto list %s: %w", targetURL, err)
	}
	if state := classify(site, page); state != NoteListPage {
		n.logger.Warn("list view not confirmed", slog.String("state", state.String()), slog.String("url", page.URL()))
	}
	return nil
}

// EnsureEditorView reaches the note editor and returns the page hosting it,
// which may be a newly opened tab. The caller closes a returned page that
// differs from the one passed in.
func (n *Navigator) EnsureEditorView(ctx context.Context, page browser.Page, targetURL string) (browser.Page, error) {
	site := n.siteFor(targetURL)
	if classify(site, page) == NoteEditorPage {
		return page, nil
	}
	current := page

	clickWriteNote := func(context.Context) error {
		sel, err := firstExisting(current, n.site.WriteNote)
		if err != nil {
			return err
		}
		next, err := current.ClickForPopup(sel, n.timeouts.Element)
		if err != nil {
			return fmt.Errorf("click %s: %w", sel, err)
		}
		if err := next.WaitForURL(n.site.IsEditorURL, n.timeouts.Navigation); err != nil {
			if next != current {
				_ = next.Close()
			}
			return fmt.Errorf("editor did not open: %w", err)
		}
		current = next
		return nil
	}

	gotoAddNote := func(ctx context.Context) error {
		addURL, err := site.AddNoteURL(current.URL(), targetURL)
		if err != nil {
			return err
		}
		if err := current.Goto(addURL, n.timeouts.Navigation); err != nil {
			n.logger.Debug("add-note navigation aborted", slog.String("error", err.Error()))
		}
		if classify(site, current) == NoteEditorPage {
			return nil
		}
		n.logger.Info("add-note url redirected, retrying write-note control", slog.String("url", current.URL()))
		if err := clickWriteNote(ctx); err != nil {
			return fmt.Errorf("redirected to %s: %w", current.URL(), err)
		}
		return nil
	}

	clickGeneric := func(context.Context) error {
		for _, label := range n.site.GenericWriteLabels {
			ok, err := current.ClickText(n.site.GenericWriteScope, label)
			if err != nil || !ok {
				continue
			}
			if err := current.WaitForURL(n.site.IsEditorURL, n.timeouts.Navigation); err == nil {
				return nil
			}
		}
		return browser.ErrNoMatch
	}

	winner, err := browser.FirstSuccess(ctx, n.logger,
		browser.Strategy{Name: "write_note_control", Run: clickWriteNote},
		browser.Strategy{Name: "add_note_url", Run: gotoAddNote},
		browser.Strategy{Name: "generic_text", Run: clickGeneric},
	)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &apperr.EditorUnreachableError{LastURL: current.URL(), Err: err}
	}
	n.logger.Info("editor reached", slog.String("strategy", winner), slog.String("url", current.URL()))
	return current, nil
}

// EnsureCorrectFolder switches the editor to the folder whose name contains
// label. It never fails the publish: problems are logged and reported as false.
func (n *Navigator) EnsureCorrectFolder(ctx context.Context, page browser.Page, label string) bool {
	if label == "" || ctx.Err() != nil {
		return label == ""
	}
	if current, err := browser.FirstText(page, n.site.CurrentFolder); err == nil && strings.Contains(current, label) {
		return true
	}

	if _, err := browser.ClickFirst(page, n.site.FolderSwitch, n.timeouts.Element); err != nil {
		n.logger.Warn("folder switch control not found", slog.String("folder", label))
		return false
	}
	scope := n.folderPicker(page)
	if scope == nil {
		n.logger.Warn("folder picker not found", slog.String("folder", label))
		return false
	}
	ok, err := scope.ClickText(n.site.FolderItems, label)
	if err != nil || !ok {
		n.logger.Warn("folder entry not found", slog.String("folder", label))
		return false
	}
	page.Wait(n.timeouts.FolderSettle)
	n.logger.Info("folder selected", slog.String("folder", label))
	return true
}

// folderPicker polls for the iframe that hosts the folder picker. An iframe
// whose URL or name carries a hint wins over one that merely lists items.
// The main document is only searched last, for inline pickers: the editor
// URL itself carries folder parameters.
func (n *Navigator) folderPicker(page browser.Page) browser.Scope {
	attempts := int(n.timeouts.Element / framePollInterval)
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		var fallback browser.Scope
		for _, f := range page.Frames() {
			if f.IsMain() {
				continue
			}
			for _, hint := range n.site.FolderFrameHints {
				if strings.Contains(f.URL(), hint) || strings.Contains(f.Name(), hint) {
					return f
				}
			}
			if ok, _ := f.Exists(n.site.FolderItems); ok && fallback == nil {
				fallback = f
			}
		}
		if fallback != nil {
			return fallback
		}
		if ok, _ := page.Exists(n.site.FolderItems); ok {
			return page
		}
		page.Wait(framePollInterval)
	}
	return nil
}

func firstExisting(scope browser.Scope, selectors []string) (string, error) {
	for _, sel := range selectors {
		if ok, err := scope.Exists(sel); err == nil && ok {
			return sel, nil
		}
	}
	return "", browser.ErrNoMatch
}
