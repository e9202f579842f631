// Package xuexitong drives the Xuexitong note web application: it reaches
// the note list or editor from whatever state a page is in, fills and saves
// notes, and scrapes note titles for the completion check.
package xuexitong

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/starford/worklog/internal/apperr"
)

// DefaultTargetURL is the note list entry point.
const DefaultTargetURL = "https://note.chaoxing.com/pc/index"

// Site describes the remote DOM. Every selector list is tried in order; a
// single entry never contains a comma so entries can be joined for probes.
type Site struct {
	NoteHosts     []string
	AddNotePath   string
	EditorMarkers []string
	LoginMarker   string

	UsernameInputs []string
	PasswordInputs []string
	LoginSubmits   []string

	WriteNote          []string
	GenericWriteScope  string
	GenericWriteLabels []string

	TitleInputs  []string
	ContentRoots []string
	SaveButtons  []string

	CurrentFolder    []string
	FolderSwitch     []string
	FolderFrameHints []string
	FolderItems      string

	ListTitles []string
}

// DefaultSite returns selectors for the current Xuexitong note UI.
func DefaultSite() Site {
	return Site{
		NoteHosts:     []string{"note.chaoxing.com", "noteyd.chaoxing.com"},
		AddNotePath:   "/pc/note_note/addNote",
		EditorMarkers: []string{"addNote", "editNote"},
		LoginMarker:   "login",

		UsernameInputs: []string{"#phone", "input[name='phone']", "input[name='uname']"},
		PasswordInputs: []string{"#pwd", "input[name='pwd']", "input[type='password']"},
		LoginSubmits:   []string{"#loginBtn", ".btn-big-blue", "button[type='submit']"},

		WriteNote:          []string{".writeNote", "#addNote", ".add-note-btn", "a:has-text('写笔记')"},
		GenericWriteScope:  "a, button, span, div",
		GenericWriteLabels: []string{"写笔记", "新建笔记", "新建"},

		TitleInputs:  []string{"#noteTitle", "input.note-title", "input[placeholder*='标题']", "textarea[placeholder*='标题']"},
		ContentRoots: []string{".ProseMirror", ".ql-editor", "[contenteditable='true']"},
		SaveButtons:  []string{"#saveBtn", ".save-btn", "button:has-text('保存')", "span:has-text('保存')"},

		CurrentFolder:    []string{".folder-name", ".current-folder", ".note-folder .name"},
		FolderSwitch:     []string{".folder-switch", ".change-folder", "span:has-text('切换')"},
		FolderFrameHints: []string{"selectFolder", "folderTree", "layui-layer-iframe"},
		FolderItems:      ".folder-item, .tree-node span, li span",

		ListTitles: []string{".note-title", ".noteList .title", ".dataBody_td .title"},
	}
}

// WithTarget returns a copy of s that also treats targetURL's host as a
// note domain.
func (s Site) WithTarget(targetURL string) Site {
	u, err := url.Parse(targetURL)
	if err != nil || u.Hostname() == "" {
		return s
	}
	for _, h := range s.NoteHosts {
		if h == u.Hostname() {
			return s
		}
	}
	s.NoteHosts = append(append([]string(nil), s.NoteHosts...), u.Hostname())
	return s
}

// IsNoteURL reports whether raw is on a note domain.
func (s Site) IsNoteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	for _, h := range s.NoteHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// IsEditorURL reports whether raw points at the create or edit flow.
func (s Site) IsEditorURL(raw string) bool {
	for _, m := range s.EditorMarkers {
		if strings.Contains(raw, m) {
			return true
		}
	}
	return s.AddNotePath != "" && strings.Contains(raw, s.AddNotePath)
}

// IsLoginURL reports whether raw looks like a login page.
func (s Site) IsLoginURL(raw string) bool {
	return strings.Contains(strings.ToLower(raw), s.LoginMarker)
}

// AddNoteURL builds the add-note URL on the domain of current, falling back
// to the domain of targetURL when current is not a note page.
func (s Site) AddNoteURL(current, targetURL string) (string, error) {
	base := targetURL
	if s.IsNoteURL(current) {
		base = current
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("xuexitong: no note domain in %q", base)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: s.AddNotePath}).String(), nil
}

func join(selectors []string) string {
	return strings.Join(selectors, ", ")
}

// Timeouts bounds every wait in the flow. The settle delays are the only
// synchronisation available for the remote app's async work.
type Timeouts struct {
	Login        time.Duration
	Navigation   time.Duration
	Element      time.Duration
	SaveSettle   time.Duration
	FolderSettle time.Duration
}

// DefaultTimeouts returns the timeouts used when configuration leaves them unset.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Login:        90 * time.Second,
		Navigation:   30 * time.Second,
		Element:      10 * time.Second,
		SaveSettle:   1200 * time.Millisecond,
		FolderSettle: time.Second,
	}
}

// Credentials identify the Xuexitong account and the browser to drive.
type Credentials struct {
	Username       string
	Password       string
	TargetURL      string
	ExecutablePath string
}

// Validate returns apperr.ErrMissingCredentials when username or password is blank.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
		return apperr.ErrMissingCredentials
	}
	return nil
}

// Target returns TargetURL or DefaultTargetURL.
func (c Credentials) Target() string {
	if c.TargetURL == "" {
		return DefaultTargetURL
	}
	return c.TargetURL
}
