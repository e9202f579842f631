package browser

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
)

const popupGrace = 1500 * time.Millisecond

var launchArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--no-first-run",
	"--no-default-browser-check",
}

var viewport = &playwright.Size{Width: 1366, Height: 900}

// clickTextJS clicks the first element under a selector whose text contains a label.
const clickTextJS = `([selector, label]) => {
	const el = Array.from(document.querySelectorAll(selector))
		.find(e => (e.innerText || e.textContent || '').includes(label));
	if (!el) return false;
	el.scrollIntoView({ block: 'center' });
	el.click();
	return true;
}`

// PlaywrightLauncher starts Chromium through playwright-go. The driver
// process is started on first launch and kept until Stop.
type PlaywrightLauncher struct {
	mu sync.Mutex
	pw *playwright.Playwright
}

// NewPlaywrightLauncher returns a launcher; nothing is started yet.
func NewPlaywrightLauncher() *PlaywrightLauncher {
	return &PlaywrightLauncher{}
}

func (l *PlaywrightLauncher) driver() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw != nil {
		return l.pw, nil
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright driver: %w", err)
	}
	l.pw = pw
	return pw, nil
}

// LaunchIsolated implements Launcher.
func (l *PlaywrightLauncher) LaunchIsolated(opts LaunchOptions) (Session, error) {
	pw, err := l.driver()
	if err != nil {
		return nil, err
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless:       playwright.Bool(opts.Headless),
		ExecutablePath: playwright.String(opts.ExecutablePath),
		Args:           launchArgs,
	})
	if err != nil {
		return nil, err
	}
	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{Viewport: viewport})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("new context: %w", err)
	}
	return newPWSession(b, bctx), nil
}

// LaunchPersistent implements Launcher.
func (l *PlaywrightLauncher) LaunchPersistent(profileDir string, opts LaunchOptions) (Session, error) {
	pw, err := l.driver()
	if err != nil {
		return nil, err
	}
	bctx, err := pw.Chromium.LaunchPersistentContext(profileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     launchArgs,
		Viewport: viewport,
	})
	if err != nil {
		return nil, err
	}
	return newPWSession(bctx.Browser(), bctx), nil
}

// Stop shuts the playwright driver down.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

type pwSession struct {
	browser playwright.Browser // nil for some persistent contexts
	ctx     playwright.BrowserContext
	closed  atomic.Bool
}

func newPWSession(b playwright.Browser, bctx playwright.BrowserContext) *pwSession {
	s := &pwSession{browser: b, ctx: bctx}
	bctx.OnClose(func(playwright.BrowserContext) { s.closed.Store(true) })
	return s
}

func (s *pwSession) NewPage() (Page, error) {
	p, err := s.ctx.NewPage()
	if err != nil {
		return nil, err
	}
	return &pwPage{page: p}, nil
}

func (s *pwSession) Connected() bool {
	if s.closed.Load() {
		return false
	}
	return s.browser == nil || s.browser.IsConnected()
}

func (s *pwSession) Close() error {
	err := s.ctx.Close()
	if s.browser != nil && s.browser.IsConnected() {
		if bErr := s.browser.Close(); err == nil {
			err = bErr
		}
	}
	return err
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) URL() string { return p.page.URL() }

func (p *pwPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   ms(timeout),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (p *pwPage) Exists(selector string) (bool, error) {
	n, err := p.page.Locator(selector).Count()
	return n > 0, err
}

func (p *pwPage) Click(selector string, timeout time.Duration) error {
	return p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{Timeout: ms(timeout)})
}

func (p *pwPage) Text(selector string) (string, error) {
	return p.page.Locator(selector).First().TextContent(playwright.LocatorTextContentOptions{Timeout: ms(2 * time.Second)})
}

func (p *pwPage) ClickText(selector, label string) (bool, error) {
	return asBool(p.page.Evaluate(clickTextJS, []any{selector, label}))
}

func (p *pwPage) Evaluate(expression string, arg any) (any, error) {
	return p.page.Evaluate(expression, arg)
}

func (p *pwPage) Fill(selector, value string, timeout time.Duration) error {
	return p.page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{Timeout: ms(timeout)})
}

func (p *pwPage) WaitForSelector(selector string, timeout time.Duration) error {
	return p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	})
}

func (p *pwPage) WaitForURL(match func(url string) bool, timeout time.Duration) error {
	return p.page.WaitForURL(match, playwright.PageWaitForURLOptions{Timeout: ms(timeout)})
}

func (p *pwPage) Wait(d time.Duration) {
	p.page.WaitForTimeout(float64(d.Milliseconds()))
}

func (p *pwPage) AllTexts(selector string) ([]string, error) {
	return p.page.Locator(selector).AllTextContents()
}

func (p *pwPage) Press(key string) error { return p.page.Keyboard().Press(key) }

func (p *pwPage) Type(text string) error { return p.page.Keyboard().Type(text) }

func (p *pwPage) Frames() []Frame {
	frames := p.page.Frames()
	out := make([]Frame, 0, len(frames))
	for _, f := range frames {
		out = append(out, &pwFrame{frame: f})
	}
	return out
}

func (p *pwPage) ClickForPopup(selector string, timeout time.Duration) (Page, error) {
	bctx := p.page.Context()
	before := len(bctx.Pages())
	if err := p.Click(selector, timeout); err != nil {
		return nil, err
	}
	p.page.WaitForTimeout(float64(popupGrace.Milliseconds()))

	pages := bctx.Pages()
	if len(pages) <= before {
		return p, nil
	}
	opened := pages[len(pages)-1]
	_ = opened.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: ms(timeout),
	})
	return &pwPage{page: opened}, nil
}

func (p *pwPage) Close() error {
	if p.page.IsClosed() {
		return nil
	}
	return p.page.Close()
}

type pwFrame struct {
	frame playwright.Frame
}

func (f *pwFrame) URL() string  { return f.frame.URL() }
func (f *pwFrame) Name() string { return f.frame.Name() }
func (f *pwFrame) IsMain() bool { return f.frame.ParentFrame() == nil }

func (f *pwFrame) Exists(selector string) (bool, error) {
	n, err := f.frame.Locator(selector).Count()
	return n > 0, err
}

func (f *pwFrame) Click(selector string, timeout time.Duration) error {
	return f.frame.Locator(selector).First().Click(playwright.LocatorClickOptions{Timeout: ms(timeout)})
}

func (f *pwFrame) Text(selector string) (string, error) {
	return f.frame.Locator(selector).First().TextContent(playwright.LocatorTextContentOptions{Timeout: ms(2 * time.Second)})
}

func (f *pwFrame) ClickText(selector, label string) (bool, error) {
	return asBool(f.frame.Evaluate(clickTextJS, []any{selector, label}))
}

func (f *pwFrame) Evaluate(expression string, arg any) (any, error) {
	return f.frame.Evaluate(expression, arg)
}

func asBool(v any, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

var (
	_ Launcher = (*PlaywrightLauncher)(nil)
	_ Page     = (*pwPage)(nil)
	_ Frame    = (*pwFrame)(nil)
)
