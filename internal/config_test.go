package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Matching.FormatSet != "full" {
		t.Errorf("format set = %q", cfg.Matching.FormatSet)
	}
	if cfg.LLM.Enabled() || cfg.Mail.Enabled() {
		t.Error("llm and mail should be off by default")
	}
}

func TestMatchingConfig_EmptyDefaultsFull(t *testing.T) {
	cfg := MatchingConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.FormatSet != "full" {
		t.Errorf("format set = %q", cfg.FormatSet)
	}
	cfg.FormatSet = "fuzzy"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown format set should fail")
	}
}

func TestMailConfig_FromRequiredWhenHostSet(t *testing.T) {
	cfg := MailConfig{Host: "smtp.example.com", Port: 587}
	if err := cfg.Validate(); err == nil {
		t.Fatal("from address should be required with a host")
	}
	cfg.From = "worklog@example.com"
	cfg.To = []string{"me@example.com"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid mail config: %v", err)
	}
	if cfg.TLS != MailTLSOpportunistic {
		t.Errorf("tls = %q", cfg.TLS)
	}
	cfg.To = []string{"not-an-address"}
	if err := cfg.Validate(); err == nil {
		t.Error("invalid recipient should fail")
	}
}

func TestScheduleConfig_CronRequiredWhenEnabled(t *testing.T) {
	cfg := ScheduleConfig{Enabled: true, LookbackDays: 7}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled schedule without cron should fail")
	}
	cfg.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestBrowserConfig_TimeoutsConversion(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Browser.LoginTimeout = 2 * time.Minute
	to := cfg.Browser.Timeouts()
	if to.Login != 2*time.Minute || to.SaveSettle != cfg.Browser.SaveSettle {
		t.Errorf("timeouts = %+v", to)
	}
	cfg.Browser.LoginTimeout = 0
	if err := cfg.Browser.Validate(); err == nil {
		t.Error("zero login timeout should fail")
	}
}

func TestServiceOptions(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Xuexitong.Username = "13800000000"
	cfg.Git.Repos = []string{"/src/api"}
	opts := cfg.ServiceOptions()
	if opts.Credentials.Username != "13800000000" || opts.Credentials.TargetURL != cfg.Xuexitong.TargetURL {
		t.Errorf("credentials = %+v", opts.Credentials)
	}
	if opts.Cooldown != 2*time.Second || opts.LookbackDays != 7 || opts.GenerateConcurrency != 3 {
		t.Errorf("opts = %+v", opts)
	}
}
