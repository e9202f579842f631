// Package browsertest provides scriptable in-memory pages and frames for
// exercising browser flows without a real browser.
package browsertest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/starford/worklog/internal/browser"
)

// Recorder collects operations from every fake that shares it, so tests can
// assert ordering across pages.
type Recorder struct {
	mu  sync.Mutex
	ops []string
}

// Add appends an operation.
func (r *Recorder) Add(op string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

// Ops returns a copy of the recorded operations.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

// Elements is a selector-keyed DOM stand-in. The value is the element text.
type Elements map[string]string

func (e Elements) match(selector string) (string, bool) {
	for _, part := range strings.Split(selector, ",") {
		if text, ok := e[strings.TrimSpace(part)]; ok {
			return text, true
		}
	}
	return "", false
}

// Frame is a fake frame. Pages build their main frame themselves; tests
// only list iframes in Page.FrameSet.
type Frame struct {
	FrameURL  string
	FrameName string
	Elements  Elements
	Clicked   []string
	Main      bool
}

func (f *Frame) URL() string  { return f.FrameURL }
func (f *Frame) Name() string { return f.FrameName }
func (f *Frame) IsMain() bool { return f.Main }

func (f *Frame) Exists(selector string) (bool, error) {
	_, ok := f.Elements.match(selector)
	return ok, nil
}

func (f *Frame) Click(selector string, _ time.Duration) error {
	if _, ok := f.Elements.match(selector); !ok {
		return fmt.Errorf("frame: %s not found", selector)
	}
	f.Clicked = append(f.Clicked, selector)
	return nil
}

func (f *Frame) Text(selector string) (string, error) {
	text, ok := f.Elements.match(selector)
	if !ok {
		return "", fmt.Errorf("frame: %s not found", selector)
	}
	return text, nil
}

func (f *Frame) ClickText(selector, label string) (bool, error) {
	for _, part := range strings.Split(selector, ",") {
		text, ok := f.Elements[strings.TrimSpace(part)]
		if ok && strings.Contains(text, label) {
			f.Clicked = append(f.Clicked, label)
			return true, nil
		}
	}
	return false, nil
}

func (f *Frame) Evaluate(string, any) (any, error) { return nil, nil }

// Page is a fake tab. Zero values behave like an empty about:blank page.
type Page struct {
	mu sync.Mutex

	CurrentURL string
	Elements   Elements
	// Lists backs AllTexts.
	Lists    map[string][]string
	FrameSet []*Frame

	// OnGoto maps a requested URL to where the site actually lands.
	OnGoto func(p *Page, url string) string
	// OnClick runs after a successful click on selector.
	OnClick map[string]func(p *Page)
	// OnClickText runs after a successful ClickText on label.
	OnClickText map[string]func(p *Page)
	// Popups maps a selector to the tab its click opens.
	Popups map[string]*Page
	// URLWaitFails makes WaitForURL time out.
	URLWaitFails bool
	// GotoErr is returned by Goto when set.
	GotoErr error

	Values  map[string]string
	Typed   []string
	Pressed []string
	Closed  bool

	Recorder *Recorder
	Label    string
}

// NewPage returns an empty fake page recording into rec (may be nil).
func NewPage(rec *Recorder) *Page {
	return &Page{CurrentURL: "about:blank", Elements: Elements{}, Recorder: rec}
}

func (p *Page) record(op string) {
	if p.Label != "" {
		op = p.Label + ":" + op
	}
	p.Recorder.Add(op)
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

// SetURL moves the fake to url.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	p.CurrentURL = url
	p.mu.Unlock()
}

func (p *Page) Goto(url string, _ time.Duration) error {
	p.record("goto " + url)
	if p.GotoErr != nil {
		return p.GotoErr
	}
	landed := url
	if p.OnGoto != nil {
		landed = p.OnGoto(p, url)
	}
	p.SetURL(landed)
	return nil
}

func (p *Page) Exists(selector string) (bool, error) {
	_, ok := p.Elements.match(selector)
	return ok, nil
}

func (p *Page) Click(selector string, _ time.Duration) error {
	if _, ok := p.Elements.match(selector); !ok {
		return fmt.Errorf("page: %s not found", selector)
	}
	p.record("click " + selector)
	if fn, ok := p.OnClick[selector]; ok {
		fn(p)
	}
	return nil
}

func (p *Page) Text(selector string) (string, error) {
	text, ok := p.Elements.match(selector)
	if !ok {
		return "", fmt.Errorf("page: %s not found", selector)
	}
	return text, nil
}

func (p *Page) ClickText(selector, label string) (bool, error) {
	for _, part := range strings.Split(selector, ",") {
		text, ok := p.Elements[strings.TrimSpace(part)]
		if ok && strings.Contains(text, label) {
			p.record("clicktext " + label)
			if fn, ok := p.OnClickText[label]; ok {
				fn(p)
			}
			return true, nil
		}
	}
	return false, nil
}

// Evaluate understands the injection scripts used by the composer: arg is a
// map with "selector" plus "value" or "html". It reports whether the
// selector exists and stores what was injected in Values.
func (p *Page) Evaluate(_ string, arg any) (any, error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return nil, nil
	}
	sel, _ := m["selector"].(string)
	if _, ok := p.Elements.match(sel); !ok {
		return false, nil
	}
	val, _ := m["value"].(string)
	if html, ok := m["html"].(string); ok {
		val = html
	}
	if p.Values == nil {
		p.Values = map[string]string{}
	}
	p.Values[sel] = val
	p.record("inject " + sel)
	return true, nil
}

func (p *Page) Fill(selector, value string, _ time.Duration) error {
	if _, ok := p.Elements.match(selector); !ok {
		return fmt.Errorf("page: %s not found", selector)
	}
	if p.Values == nil {
		p.Values = map[string]string{}
	}
	p.Values[selector] = value
	p.record("fill " + selector)
	return nil
}

func (p *Page) WaitForSelector(selector string, _ time.Duration) error {
	if _, ok := p.Elements.match(selector); !ok {
		return fmt.Errorf("timeout waiting for %s", selector)
	}
	return nil
}

func (p *Page) WaitForURL(match func(string) bool, _ time.Duration) error {
	if p.URLWaitFails || !match(p.URL()) {
		return errors.New("timeout waiting for url")
	}
	return nil
}

func (p *Page) Wait(d time.Duration) {
	p.record("wait " + d.String())
}

func (p *Page) AllTexts(selector string) ([]string, error) {
	for _, part := range strings.Split(selector, ",") {
		if list, ok := p.Lists[strings.TrimSpace(part)]; ok {
			return list, nil
		}
	}
	return nil, nil
}

func (p *Page) Press(key string) error {
	p.Pressed = append(p.Pressed, key)
	p.record("press " + key)
	return nil
}

func (p *Page) Type(text string) error {
	p.Typed = append(p.Typed, text)
	p.record("type")
	return nil
}

// Frames returns the main document followed by FrameSet, as playwright
// orders them. The main frame shares the page's elements.
func (p *Page) Frames() []browser.Frame {
	out := make([]browser.Frame, 0, len(p.FrameSet)+1)
	out = append(out, &Frame{FrameURL: p.URL(), Elements: p.Elements, Main: true})
	for _, f := range p.FrameSet {
		out = append(out, f)
	}
	return out
}

func (p *Page) ClickForPopup(selector string, timeout time.Duration) (browser.Page, error) {
	if err := p.Click(selector, timeout); err != nil {
		return nil, err
	}
	for _, part := range strings.Split(selector, ",") {
		if popup, ok := p.Popups[strings.TrimSpace(part)]; ok {
			return popup, nil
		}
	}
	return p, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	p.Closed = true
	p.mu.Unlock()
	p.record("close")
	return nil
}

var (
	_ browser.Page  = (*Page)(nil)
	_ browser.Frame = (*Frame)(nil)
)
