// Package browser owns the long-lived automation browser and hands out
// short-lived page leases.
package browser

import "time"

// Scope is the element surface shared by pages and embedded frames.
// Selectors may be comma-joined CSS/text selector lists.
type Scope interface {
	// Exists reports whether selector matches at least one element now.
	Exists(selector string) (bool, error)
	// Click clicks the first element matching selector.
	Click(selector string, timeout time.Duration) error
	// Text returns the text content of the first match.
	Text(selector string) (string, error)
	// ClickText clicks the first element under selector whose text contains
	// label. It reports false when nothing matched.
	ClickText(selector, label string) (bool, error)
	// Evaluate runs a JavaScript function expression with arg.
	Evaluate(expression string, arg any) (any, error)
}

// Page is a single tab.
type Page interface {
	Scope

	URL() string
	Goto(url string, timeout time.Duration) error
	Fill(selector, value string, timeout time.Duration) error
	WaitForSelector(selector string, timeout time.Duration) error
	WaitForURL(match func(url string) bool, timeout time.Duration) error
	Wait(d time.Duration)
	// AllTexts returns the text content of every element matching selector.
	AllTexts(selector string) ([]string, error)
	Press(key string) error
	Type(text string) error
	// Frames lists every frame of the page, main document first.
	Frames() []Frame
	// ClickForPopup clicks selector and returns the tab it opened. When no
	// new tab appears the receiver is returned.
	ClickForPopup(selector string, timeout time.Duration) (Page, error)
	Close() error
}

// Frame is a document inside a page: the main document or an iframe.
type Frame interface {
	Scope
	URL() string
	Name() string
	// IsMain reports whether the frame is the page's top-level document.
	IsMain() bool
}

// Session is a launched browser with one context.
type Session interface {
	NewPage() (Page, error)
	Connected() bool
	Close() error
}

// LaunchOptions are the inputs that force a relaunch when they change.
type LaunchOptions struct {
	Headless       bool
	ExecutablePath string
}

// Launcher starts browser sessions.
type Launcher interface {
	// LaunchIsolated starts a fresh browser binary with a throwaway context.
	LaunchIsolated(opts LaunchOptions) (Session, error)
	// LaunchPersistent starts a context backed by profileDir so cookies
	// survive relaunches.
	LaunchPersistent(profileDir string, opts LaunchOptions) (Session, error)
}
