package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/worklog/internal"
	"github.com/starford/worklog/internal/models"
	"github.com/starford/worklog/internal/worklog"
	pkgconfig "github.com/starford/worklog/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, string, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		// Defaults only; nothing to watch for reloads.
		fmt.Fprintf(os.Stderr, "config file %q not found, using defaults\n", configPath)
		return cfg, "", nil
	}
	return cfg, configPath, nil
}

// headless returns the --headless flag when given, else the configured value.
func headless(cmd *cli.Command, svc *worklog.Service) bool {
	if cmd.IsSet("headless") {
		return cmd.Bool("headless")
	}
	return svc.Options().Headless
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithConfigPath(path),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// oneShot runs fn against a freshly built service with logs on stderr so
// stdout carries only the result.
func oneShot(fn func(ctx context.Context, cmd *cli.Command, svc *worklog.Service) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return internal.Do(ctx, func(ctx context.Context, svc *worklog.Service) error {
			return fn(ctx, cmd, svc)
		}, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	}
}

func check(ctx context.Context, cmd *cli.Command, svc *worklog.Service) error {
	report, err := svc.CheckLogs(ctx, headless(cmd, svc))
	if err != nil {
		return err
	}
	return printJSON(report)
}

func publish(ctx context.Context, cmd *cli.Command, svc *worklog.Service) error {
	content := cmd.String("content")
	if file := cmd.String("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		content = string(data)
	}
	resp, err := svc.PublishNote(ctx, worklog.PublishRequest{
		Content:      content,
		Title:        cmd.String("title"),
		Date:         cmd.String("date"),
		Headless:     headless(cmd, svc),
		SilentNotify: true,
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func publishMissing(ctx context.Context, cmd *cli.Command, svc *worklog.Service) error {
	results, err := svc.PublishMissing(ctx, headless(cmd, svc))
	if err != nil {
		return err
	}
	if results == nil {
		results = []models.SyncResult{}
	}
	return printJSON(results)
}

func generate(ctx context.Context, cmd *cli.Command, svc *worklog.Service) error {
	draft, err := svc.GenerateDraft(ctx, worklog.GenerateRequest{
		Kind:      models.DraftKind(cmd.String("kind")),
		Date:      cmd.String("date"),
		Overwrite: cmd.Bool("overwrite"),
	})
	if err != nil {
		return err
	}
	return printJSON(draft)
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr))
}

func headlessFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "headless",
		Usage: "Run the browser without a window (defaults to xuexitong.headless)",
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "worklog",
		Usage:   "Check, draft and publish Xuexitong work logs",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, the reminder scheduler and the SSE stream",
				Action: serve,
			},
			{
				Name:   "check",
				Usage:  "Report workdays of the current week without a log",
				Flags:  []cli.Flag{headlessFlag()},
				Action: oneShot(check),
			},
			{
				Name:  "publish",
				Usage: "Publish one work log",
				Flags: []cli.Flag{
					headlessFlag(),
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Markdown file to publish"},
					&cli.StringFlag{Name: "content", Usage: "Markdown content to publish"},
					&cli.StringFlag{Name: "title", Usage: "Note title (defaults to 工作日志 YYYY-MM-DD)"},
					&cli.StringFlag{Name: "date", Usage: "Date the log covers, YYYY-MM-DD (defaults to today)"},
				},
				Action: oneShot(publish),
			},
			{
				Name:   "publish-missing",
				Usage:  "Publish a log for every missing workday of the current week",
				Flags:  []cli.Flag{headlessFlag()},
				Action: oneShot(publishMissing),
			},
			{
				Name:  "generate",
				Usage: "Generate a draft from git history",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Value: string(models.DraftDaily), Usage: "daily or weekly"},
					&cli.StringFlag{Name: "date", Usage: "Day the log covers, YYYY-MM-DD (defaults to today)"},
					&cli.BoolFlag{Name: "overwrite", Usage: "Replace an existing draft"},
				},
				Action: oneShot(generate),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the assistant tools over MCP stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
