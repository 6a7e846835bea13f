package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ROUNDTABLE_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ROUNDTABLE_CONFIG_DIR", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Endpoints.Primary != DefaultPrimaryEndpoint {
		t.Errorf("primary endpoint = %q, want default", cfg.Endpoints.Primary)
	}
	if cfg.Attribution.ContinuityWindow != DefaultContinuityWindow {
		t.Errorf("continuity window = %v, want %v", cfg.Attribution.ContinuityWindow, DefaultContinuityWindow)
	}
	if cfg.Insights.InsightCadence != DefaultInsightCadence {
		t.Errorf("insight cadence = %d, want %d", cfg.Insights.InsightCadence, DefaultInsightCadence)
	}
	if cfg.OutputFormat != OutputFormatText {
		t.Errorf("output format = %q, want text", cfg.OutputFormat)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	writeConfigFile(t, `
endpoints:
  primary: https://analysis.example.com/api/analyze-live
  fallback: https://analysis.example.com/api/analyze
  timeout: 20s
facilitator:
  name: Dana
  organization: Acme Research
agenda:
  - "What does your org look like in three years?"
  - "What is blocking you today?"
attribution:
  continuity_window: 45s
insights:
  cooldown: 3m
  insight_cadence: 4
snapshot:
  redis_addr: localhost:6379
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Endpoints.Primary != "https://analysis.example.com/api/analyze-live" {
		t.Errorf("primary endpoint = %q", cfg.Endpoints.Primary)
	}
	if cfg.Endpoints.Timeout != 20*time.Second {
		t.Errorf("timeout = %v, want 20s", cfg.Endpoints.Timeout)
	}
	if cfg.Facilitator.Name != "Dana" || cfg.Facilitator.Organization != "Acme Research" {
		t.Errorf("facilitator = %+v", cfg.Facilitator)
	}
	if len(cfg.Agenda) != 2 {
		t.Fatalf("agenda length = %d, want 2", len(cfg.Agenda))
	}
	if cfg.Attribution.ContinuityWindow != 45*time.Second {
		t.Errorf("continuity window = %v, want 45s", cfg.Attribution.ContinuityWindow)
	}
	if cfg.Insights.Cooldown != 3*time.Minute {
		t.Errorf("cooldown = %v, want 3m", cfg.Insights.Cooldown)
	}
	if cfg.Insights.InsightCadence != 4 {
		t.Errorf("insight cadence = %d, want 4", cfg.Insights.InsightCadence)
	}
	// Unset file values keep defaults.
	if cfg.Insights.FollowupCadence != DefaultFollowupCadence {
		t.Errorf("followup cadence = %d, want default", cfg.Insights.FollowupCadence)
	}
	if cfg.Snapshot.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Snapshot.RedisAddr)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	writeConfigFile(t, `
endpoints:
  primary: https://file.example.com/api/analyze-live
`)
	t.Setenv("ROUNDTABLE_PRIMARY_ENDPOINT", "https://env.example.com/api/analyze-live")
	t.Setenv("ROUNDTABLE_FACILITATOR_NAME", "Morgan")
	t.Setenv("ROUNDTABLE_CONTINUITY_WINDOW", "10s")
	t.Setenv("ROUNDTABLE_DEBUG", "1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Endpoints.Primary != "https://env.example.com/api/analyze-live" {
		t.Errorf("env did not override file: %q", cfg.Endpoints.Primary)
	}
	if cfg.Facilitator.Name != "Morgan" {
		t.Errorf("facilitator name = %q, want Morgan", cfg.Facilitator.Name)
	}
	if cfg.Attribution.ContinuityWindow != 10*time.Second {
		t.Errorf("continuity window = %v, want 10s", cfg.Attribution.ContinuityWindow)
	}
	if !cfg.Debug {
		t.Error("debug not enabled from env")
	}
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	writeConfigFile(t, `
endpoints:
  timeout: not-a-duration
`)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"empty primary", func(c *Config) { c.Endpoints.Primary = "" }, true},
		{"zero timeout", func(c *Config) { c.Endpoints.Timeout = 0 }, true},
		{"negative window", func(c *Config) { c.Attribution.ContinuityWindow = -time.Second }, true},
		{"zero cadence", func(c *Config) { c.Insights.InsightCadence = 0 }, true},
		{"bad output format", func(c *Config) { c.OutputFormat = "xml" }, true},
		{"continuity disabled", func(c *Config) { c.Attribution.ContinuityWindow = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
