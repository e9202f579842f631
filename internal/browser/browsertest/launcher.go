package browsertest

import (
	"sync"

	"github.com/starford/worklog/internal/browser"
)

// Session is a fake browser session handing out fake pages.
type Session struct {
	mu           sync.Mutex
	Disconnected bool
	ClosedCount  int
	// NewPageFunc builds pages; defaults to NewPage(nil).
	NewPageFunc func() *Page
	Pages       []*Page
}

func (s *Session) NewPage() (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p *Page
	if s.NewPageFunc != nil {
		p = s.NewPageFunc()
	} else {
		p = NewPage(nil)
	}
	s.Pages = append(s.Pages, p)
	return p, nil
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.Disconnected
}

// Disconnect simulates the browser going away.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.Disconnected = true
	s.mu.Unlock()
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.ClosedCount++
	s.mu.Unlock()
	return nil
}

// Launcher counts launches and returns fake sessions.
type Launcher struct {
	mu sync.Mutex

	IsolatedCalls   int
	PersistentCalls int
	LastProfileDir  string
	LastOptions     browser.LaunchOptions
	Err             error
	Sessions        []*Session
	// NewPageFunc is copied into every launched session.
	NewPageFunc func() *Page
}

// Calls returns the total number of launches.
func (l *Launcher) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.IsolatedCalls + l.PersistentCalls
}

// Last returns the most recently launched session.
func (l *Launcher) Last() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.Sessions) == 0 {
		return nil
	}
	return l.Sessions[len(l.Sessions)-1]
}

func (l *Launcher) LaunchIsolated(opts browser.LaunchOptions) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.IsolatedCalls++
	return l.launch(opts)
}

func (l *Launcher) LaunchPersistent(profileDir string, opts browser.LaunchOptions) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.PersistentCalls++
	l.LastProfileDir = profileDir
	return l.launch(opts)
}

func (l *Launcher) launch(opts browser.LaunchOptions) (browser.Session, error) {
	l.LastOptions = opts
	if l.Err != nil {
		return nil, l.Err
	}
	s := &Session{NewPageFunc: l.NewPageFunc}
	l.Sessions = append(l.Sessions, s)
	return s, nil
}

var (
	_ browser.Launcher = (*Launcher)(nil)
	_ browser.Session  = (*Session)(nil)
)
