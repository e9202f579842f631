package xuexitong_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/starford/worklog/internal/apperr"
	"github.com/starford/worklog/internal/browser"
	"github.com/starford/worklog/internal/browser/browsertest"
	"github.com/starford/worklog/internal/logdate"
	"github.com/starford/worklog/internal/parser"
	"github.com/starford/worklog/internal/xuexitong"
)

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.Local)
}

type rig struct {
	launcher *browsertest.Launcher
	manager  *browser.Manager
	checker  *xuexitong.Checker
	pub      *xuexitong.Publisher
}

func newRig(t *testing.T, page func() *browsertest.Page) *rig {
	t.Helper()
	site := xuexitong.DefaultSite()
	l := &browsertest.Launcher{NewPageFunc: page}
	m := browser.NewManager(l, t.TempDir(), testLogger())
	nav := xuexitong.NewNavigator(site, fastTimeouts(), testLogger())
	return &rig{
		launcher: l,
		manager:  m,
		checker:  xuexitong.NewChecker(m, nav, logdate.NewMatcher(logdate.FormatSetFull), site, fastTimeouts(), testLogger()),
		pub:      xuexitong.NewPublisher(m, nav, xuexitong.NewComposer(site, fastTimeouts(), parser.Render, testLogger()), testLogger()),
	}
}

func listPage(titles ...string) func() *browsertest.Page {
	return func() *browsertest.Page {
		p := browsertest.NewPage(nil)
		p.Elements[".note-title"] = ""
		p.Lists = map[string][]string{".note-title": titles}
		return p
	}
}

func TestChecker_EndToEndMissingDates(t *testing.T) {
	r := newRig(t, listPage("20260126", "  工作日志 2026-01-27 ", "", "周报"))

	res, err := r.checker.Check(context.Background(), []time.Time{day(26), day(27), day(28)}, creds, true)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !slices.Equal(res.Missing, []time.Time{day(28)}) {
		t.Errorf("missing = %v", res.Missing)
	}
	if !slices.Equal(res.Titles, []string{"20260126", "工作日志 2026-01-27", "周报"}) {
		t.Errorf("titles = %q", res.Titles)
	}
	page := r.launcher.Last().Pages[0]
	if !page.Closed {
		t.Error("page must be closed after the check")
	}
	if r.launcher.LastOptions.Headless != true {
		t.Error("headless option not passed through")
	}
}

func TestChecker_EmptyListMeansEverythingMissing(t *testing.T) {
	r := newRig(t, func() *browsertest.Page { return browsertest.NewPage(nil) })
	window := []time.Time{day(26), day(27)}
	res, err := r.checker.Check(context.Background(), window, creds, true)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !slices.Equal(res.Missing, window) || len(res.Titles) != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestChecker_OffListPageIsAnError(t *testing.T) {
	r := newRig(t, func() *browsertest.Page {
		p := browsertest.NewPage(nil)
		p.OnGoto = func(*browsertest.Page, string) string { return "https://www.chaoxing.com/portal" }
		return p
	})
	res, err := r.checker.Check(context.Background(), []time.Time{day(26), day(27)}, creds, true)
	if err == nil || !strings.Contains(err.Error(), "note list not reached") {
		t.Fatalf("res = %+v err = %v", res, err)
	}
	if !r.launcher.Last().Pages[0].Closed {
		t.Error("page must be closed on error")
	}
}

func TestChecker_MissingCredentialsBeforeLaunch(t *testing.T) {
	r := newRig(t, listPage())
	_, err := r.checker.Check(context.Background(), []time.Time{day(28)}, xuexitong.Credentials{Username: "u"}, true)
	if !errors.Is(err, apperr.ErrMissingCredentials) {
		t.Errorf("err = %v", err)
	}
	if r.launcher.Calls() != 0 {
		t.Error("browser must not launch without credentials")
	}
}

func TestChecker_NavigationErrorClosesPage(t *testing.T) {
	r := newRig(t, func() *browsertest.Page {
		p := browsertest.NewPage(nil)
		p.GotoErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
		return p
	})
	if _, err := r.checker.Check(context.Background(), []time.Time{day(28)}, creds, true); err == nil {
		t.Fatal("expected error")
	}
	if !r.launcher.Last().Pages[0].Closed {
		t.Error("page must be closed on error")
	}
}

func TestChecker_LaunchError(t *testing.T) {
	r := newRig(t, listPage())
	r.launcher.Err = errors.New("executable doesn't exist")
	_, err := r.checker.Check(context.Background(), []time.Time{day(28)}, creds, false)
	var le *apperr.LaunchError
	if !errors.As(err, &le) {
		t.Errorf("err = %v", err)
	}
}

func TestPublisher_ClosesPopupAndListPage(t *testing.T) {
	var editor *browsertest.Page
	r := newRig(t, func() *browsertest.Page {
		p := browsertest.NewPage(nil)
		p.Elements[".writeNote"] = "写笔记"
		editor = browsertest.NewPage(nil)
		editor.SetURL(editorURL)
		editor.Elements["#noteTitle"] = ""
		editor.Elements[".ProseMirror"] = ""
		editor.Elements["#saveBtn"] = "保存"
		editor.Elements[".folder-name"] = "工作日志"
		p.Popups = map[string]*browsertest.Page{".writeNote": editor}
		return p
	})

	note := xuexitong.Note{Title: "工作日志 2026-01-28", Markdown: "- 修复登录", Folder: "工作日志"}
	if err := r.pub.Publish(context.Background(), creds, note, true); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	list := r.launcher.Last().Pages[0]
	if !list.Closed || !editor.Closed {
		t.Errorf("closed: list=%v editor=%v", list.Closed, editor.Closed)
	}
	if editor.Values["#noteTitle"] != note.Title {
		t.Errorf("editor values = %v", editor.Values)
	}
}
