package xuexitong_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/starford/worklog/internal/apperr"
	"github.com/starford/worklog/internal/browser/browsertest"
	"github.com/starford/worklog/internal/parser"
	"github.com/starford/worklog/internal/xuexitong"
)

func newComposer() *xuexitong.Composer {
	return xuexitong.NewComposer(xuexitong.DefaultSite(), fastTimeouts(), parser.Render, testLogger())
}

func TestComposer_InjectsTitleAndHTML(t *testing.T) {
	rec := &browsertest.Recorder{}
	p := browsertest.NewPage(rec)
	p.SetURL(editorURL)
	p.Elements["input[placeholder*='标题']"] = ""
	p.Elements[".ql-editor"] = ""
	p.Elements[".save-btn"] = "保存"

	err := newComposer().Publish(context.Background(), p, "工作日志 2026-01-28", "## 今日\n\n- 修复登录")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if p.Values["input[placeholder*='标题']"] != "工作日志 2026-01-28" {
		t.Errorf("title values = %v", p.Values)
	}
	html := p.Values[".ql-editor"]
	if !strings.Contains(html, "<h2") || !strings.Contains(html, "<li>修复登录</li>") {
		t.Errorf("content html = %q", html)
	}
	ops := rec.Ops()
	if ops[len(ops)-2] != "click .save-btn" || ops[len(ops)-1] != "wait 1.2s" {
		t.Errorf("ops tail = %v", ops)
	}
	if len(p.Typed) != 0 {
		t.Errorf("keyboard should not be used: %v", p.Typed)
	}
}

func TestComposer_KeyboardFallbacks(t *testing.T) {
	p := browsertest.NewPage(nil)
	p.SetURL(editorURL)
	p.Elements["#saveBtn"] = "保存"

	md := "- 修复登录"
	if err := newComposer().Publish(context.Background(), p, "工作日志 2026-01-28", md); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !slices.Equal(p.Pressed, []string{"Tab"}) {
		t.Errorf("pressed = %v", p.Pressed)
	}
	if !slices.Equal(p.Typed, []string{"工作日志 2026-01-28", md}) {
		t.Errorf("typed = %v", p.Typed)
	}
}

func TestComposer_SaveMissingIsPublishError(t *testing.T) {
	p := browsertest.NewPage(nil)
	p.SetURL(editorURL)
	p.Elements["#noteTitle"] = ""

	err := newComposer().Publish(context.Background(), p, "工作日志 2026-01-28", "x")
	var pe *apperr.PublishError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PublishError", err)
	}
	if pe.Title != "工作日志 2026-01-28" || !strings.Contains(err.Error(), "save") {
		t.Errorf("err = %v", err)
	}
	if p.Values["#noteTitle"] != "工作日志 2026-01-28" {
		t.Error("title should have been entered before the save failed")
	}
}
