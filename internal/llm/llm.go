// Package llm drafts work-log prose from commit history.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/starford/worklog/internal/gitlog"
)

const systemPrompt = "你是一名软件工程师的助手，根据 Git 提交记录撰写简洁的中文工作日志。只输出 Markdown 正文，不要输出标题。"

// Generator produces Markdown from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects an OpenAI-compatible endpoint.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
}

// OpenAIClient implements Generator against an OpenAI-compatible API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

var _ Generator = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client. An empty BaseURL means api.openai.com.
func NewOpenAIClient(cfg Config, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key not configured")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	logger.Info("llm client initialised", slog.String("model", model), slog.String("base_url", oc.BaseURL))
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Generate implements Generator.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: no choices returned")
	}
	c.logger.Debug("llm response", slog.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// DailyPrompt asks for a single day's log.
func DailyPrompt(day time.Time, commits []gitlog.Commit) string {
	return buildPrompt(fmt.Sprintf("请根据以下 %s 的提交记录撰写当天的工作日志。", day.Format("2006-01-02")), commits)
}

// WeeklyPrompt asks for a weekly summary of from..to.
func WeeklyPrompt(from, to time.Time, commits []gitlog.Commit) string {
	return buildPrompt(fmt.Sprintf("请根据以下 %s 至 %s 的提交记录撰写本周周报，按完成事项、问题与下周计划分节。",
		from.Format("2006-01-02"), to.Format("2006-01-02")), commits)
}

func buildPrompt(instruction string, commits []gitlog.Commit) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\n")
	if len(commits) == 0 {
		b.WriteString("（没有提交记录，请写一条简短的日常工作说明。）\n")
		return b.String()
	}
	for _, c := range commits {
		fmt.Fprintf(&b, "- [%s] %s %s\n", c.Repo, c.When.Format("01-02 15:04"), c.Subject)
	}
	return b.String()
}
