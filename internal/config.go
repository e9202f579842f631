package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/worklog/internal/llm"
	"github.com/starford/worklog/internal/logdate"
	"github.com/starford/worklog/internal/reminder"
	"github.com/starford/worklog/internal/worklog"
	"github.com/starford/worklog/internal/xuexitong"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Mail TLS policies.
const (
	MailTLSOpportunistic = "opportunistic"
	MailTLSMandatory     = "mandatory"
	MailTLSSSL           = "ssl"
	MailTLSNone          = "none"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Xuexitong XuexitongConfig   `yaml:"xuexitong"`
	Browser   BrowserConfig     `yaml:"browser"`
	Matching  MatchingConfig    `yaml:"matching"`
	Schedule  ScheduleConfig    `yaml:"schedule"`
	Mail      MailConfig        `yaml:"mail"`
	LLM       LLMConfig         `yaml:"llm"`
	Git       GitConfig         `yaml:"git"`
	Drafts    DraftsConfig      `yaml:"drafts"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Xuexitong, &c.Browser, &c.Matching, &c.Schedule,
		&c.Mail, &c.LLM, &c.Drafts, &c.SQLite, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// XuexitongConfig holds the account and the notes page to work against.
// Username and password may be left empty here and supplied through the
// settings store instead.
type XuexitongConfig struct {
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TargetURL      string `yaml:"target_url"`
	Folder         string `yaml:"folder"`
	ExecutablePath string `yaml:"executable_path"`
	Headless       bool   `yaml:"headless"`
}

// Validate validates the Xuexitong configuration.
func (c *XuexitongConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TargetURL, validation.Required, is.URL),
	)
}

// Credentials returns the login material for the browser flows.
func (c *XuexitongConfig) Credentials() xuexitong.Credentials {
	return xuexitong.Credentials{
		Username:       c.Username,
		Password:       c.Password,
		TargetURL:      c.TargetURL,
		ExecutablePath: c.ExecutablePath,
	}
}

// BrowserConfig holds the browser profile location and every timeout of the
// browser flows.
type BrowserConfig struct {
	ProfileDir        string        `yaml:"profile_dir"`
	LoginTimeout      time.Duration `yaml:"login_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ElementTimeout    time.Duration `yaml:"element_timeout"`
	SaveSettle        time.Duration `yaml:"save_settle"`
	FolderSettle      time.Duration `yaml:"folder_settle"`
	Cooldown          time.Duration `yaml:"cooldown"`
}

// Validate validates the browser configuration.
func (c *BrowserConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ProfileDir, validation.Required),
		validation.Field(&c.LoginTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.NavigationTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.ElementTimeout, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.SaveSettle, validation.Min(time.Duration(0))),
		validation.Field(&c.FolderSettle, validation.Min(time.Duration(0))),
		validation.Field(&c.Cooldown, validation.Min(time.Duration(0))),
	)
}

// Timeouts converts the configuration for the xuexitong package.
func (c *BrowserConfig) Timeouts() xuexitong.Timeouts {
	return xuexitong.Timeouts{
		Login:        c.LoginTimeout,
		Navigation:   c.NavigationTimeout,
		Element:      c.ElementTimeout,
		SaveSettle:   c.SaveSettle,
		FolderSettle: c.FolderSettle,
	}
}

// MatchingConfig selects the date renderings tried against note titles.
type MatchingConfig struct {
	FormatSet logdate.FormatSet `yaml:"format_set"`
}

// Validate validates the matching configuration.
func (c *MatchingConfig) Validate() error {
	if c.FormatSet == "" {
		c.FormatSet = logdate.FormatSetFull
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.FormatSet, validation.In(logdate.FormatSetBasic, logdate.FormatSetFull)),
	)
}

// ScheduleConfig controls the missing-log reminder.
type ScheduleConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Cron         string `yaml:"cron"`
	LookbackDays int    `yaml:"lookback_days"`
}

// Validate validates the schedule configuration.
func (c *ScheduleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Cron, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.LookbackDays, validation.Min(1), validation.Max(60)),
	)
}

// Reminder converts the configuration for the reminder package.
func (c *ScheduleConfig) Reminder(headless bool) reminder.Config {
	return reminder.Config{
		Enabled:      c.Enabled,
		Spec:         c.Cron,
		LookbackDays: c.LookbackDays,
		Headless:     headless,
	}
}

// MailConfig configures the SMTP relay used for reminders. An empty Host
// disables mail.
type MailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	TLS      string   `yaml:"tls"`
}

// Validate validates the mail configuration.
func (c *MailConfig) Validate() error {
	if c.TLS == "" {
		c.TLS = MailTLSOpportunistic
	}
	enabled := c.Host != ""
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.From, validation.When(enabled, validation.Required, is.EmailFormat)),
		validation.Field(&c.To, validation.Each(is.EmailFormat)),
		validation.Field(&c.TLS, validation.In(MailTLSOpportunistic, MailTLSMandatory, MailTLSSSL, MailTLSNone)),
	)
}

// Enabled reports whether an SMTP relay is configured.
func (c *MailConfig) Enabled() bool {
	return c.Host != ""
}

// SMTP converts the configuration for the reminder mailer.
func (c *MailConfig) SMTP() reminder.SMTPConfig {
	return reminder.SMTPConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
		TLS:      c.TLS,
	}
}

// LLMConfig configures draft generation. An empty APIKey disables it.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.Temperature, validation.Min(float32(0)), validation.Max(float32(2))),
	)
}

// Enabled reports whether drafts can be generated.
func (c *LLMConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Client converts the configuration for the llm package.
func (c *LLMConfig) Client() llm.Config {
	return llm.Config{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
	}
}

// GitConfig lists the repositories whose commits feed the drafts.
type GitConfig struct {
	Repos  []string `yaml:"repos"`
	Author string   `yaml:"author"`
}

// DraftsConfig holds the drafts directory and generation fan-out.
type DraftsConfig struct {
	Path        string `yaml:"path"`
	Concurrency int    `yaml:"concurrency"`
}

// Validate validates the drafts configuration.
func (c *DraftsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Concurrency, validation.Min(0), validation.Max(16)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ServiceOptions returns the reloadable tunables of worklog.Service.
func (c *Config) ServiceOptions() worklog.Options {
	return worklog.Options{
		Credentials:         c.Xuexitong.Credentials(),
		Folder:              c.Xuexitong.Folder,
		Headless:            c.Xuexitong.Headless,
		Cooldown:            c.Browser.Cooldown,
		LookbackDays:        c.Schedule.LookbackDays,
		GitRepos:            c.Git.Repos,
		GitAuthor:           c.Git.Author,
		GenerateConcurrency: c.Drafts.Concurrency,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	t := xuexitong.DefaultTimeouts()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Xuexitong: XuexitongConfig{
			TargetURL: xuexitong.DefaultTargetURL,
			Folder:    "工作日志",
			Headless:  true,
		},
		Browser: BrowserConfig{
			ProfileDir:        "./data/browser-profile",
			LoginTimeout:      t.Login,
			NavigationTimeout: t.Navigation,
			ElementTimeout:    t.Element,
			SaveSettle:        t.SaveSettle,
			FolderSettle:      t.FolderSettle,
			Cooldown:          2 * time.Second,
		},
		Matching: MatchingConfig{
			FormatSet: logdate.FormatSetFull,
		},
		Schedule: ScheduleConfig{
			Enabled:      false,
			Cron:         reminder.DefaultSpec,
			LookbackDays: 7,
		},
		Mail: MailConfig{
			Port: 587,
			TLS:  MailTLSOpportunistic,
		},
		LLM: LLMConfig{
			Temperature: 0.3,
		},
		Drafts: DraftsConfig{
			Path:        "./data/drafts",
			Concurrency: 3,
		},
		SQLite: SQLiteConfig{
			Path: "./data/worklog.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
