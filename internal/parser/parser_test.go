package parser

import (
	"strings"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: 工作日志 2026-01-28\ndate: 2026-01-28\nkind: daily\n---\n# 今日工作\n- 修复登录\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "工作日志 2026-01-28" {
		t.Errorf("title = %q", r.Title)
	}
	if got := r.String("date"); got != "2026-01-28" {
		t.Errorf("date = %q, want 2026-01-28", got)
	}
	if got := r.String("kind"); got != "daily" {
		t.Errorf("kind = %q", got)
	}
	if r.Body != "# 今日工作\n- 修复登录\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if r.String("title") != "" {
		t.Error("missing key should be empty")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != string(input) {
		t.Errorf("body should be the whole input")
	}
}

func TestCompose_ParsesBack(t *testing.T) {
	fm := map[string]string{"title": "周报 2026-01-26~2026-01-30", "kind": "weekly"}
	data, err := Compose(fm, "\n本周完成\n")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.HasPrefix(string(data), "---\n") {
		t.Fatalf("missing delimiter: %q", data)
	}
	r, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Title != fm["title"] || r.String("kind") != "weekly" {
		t.Errorf("round trip lost frontmatter: %+v", r.Frontmatter)
	}
	if r.Body != "本周完成\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestRender(t *testing.T) {
	out, err := Render("# 标题\n\n- a\n- b\n\n| x | y |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"<h1", "标题", "<li>a</li>", "<table>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParse_CRLFAndEmptyFrontmatter(t *testing.T) {
	r, _ := Parse([]byte("---\r\ntitle: 工作日志 2026-01-28\r\n---\r\n- 修复登录\r\n"))
	if r.Title != "工作日志 2026-01-28" || r.Body != "- 修复登录\n" {
		t.Errorf("crlf: title=%q body=%q", r.Title, r.Body)
	}

	r, _ = Parse([]byte("---\n---\n# 周报\n"))
	if r.Frontmatter == nil || r.Title != "周报" {
		t.Errorf("empty block: %+v", r)
	}
}

func TestParse_TitleFromInlineHeading(t *testing.T) {
	r, _ := Parse([]byte("intro\n\n## 小节\n\n# 今日 *工作* `git`\n"))
	if r.Title != "今日 工作 git" {
		t.Errorf("title = %q", r.Title)
	}
}
