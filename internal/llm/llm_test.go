package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/worklog/internal/gitlog"
)

func TestOpenAIClient_Generate(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  - 修复登录超时\n"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Config{BaseURL: srv.URL + "/v1", APIKey: "k", Model: "test-model"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	out, err := c.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "- 修复登录超时" {
		t.Errorf("out = %q", out)
	}
	if gotModel != "test-model" {
		t.Errorf("model = %q", gotModel)
	}
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("expected error without api key")
	}
}

func TestPrompts(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	commits := []gitlog.Commit{{Repo: "api", When: day.Add(10 * time.Hour), Subject: "fix: 登录超时"}}

	p := DailyPrompt(day, commits)
	if !strings.Contains(p, "2026-01-28") || !strings.Contains(p, "- [api] 01-28 10:00 fix: 登录超时") {
		t.Errorf("daily prompt = %q", p)
	}
	w := WeeklyPrompt(day.AddDate(0, 0, -2), day, nil)
	if !strings.Contains(w, "2026-01-26 至 2026-01-28") || !strings.Contains(w, "没有提交记录") {
		t.Errorf("weekly prompt = %q", w)
	}
}
