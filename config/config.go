// Package config provides configuration management for the roundtable CLI.
// It supports loading configuration from YAML files, environment variables,
// and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
)

// Default configuration values.
const (
	DefaultPrimaryEndpoint  = "http://localhost:8080/api/analyze-live"
	DefaultFallbackEndpoint = "http://localhost:8080/api/analyze"
	DefaultRequestTimeout   = 45 * time.Second
	DefaultOutputFormat     = OutputFormatText
	DefaultConfigDir        = ".roundtable"
	DefaultConfigFile       = "config.yaml"

	DefaultContinuityWindow = 30 * time.Second
	DefaultCooldown         = 2*time.Minute + 30*time.Second
	DefaultSynthesisDelay   = 2 * time.Second
	DefaultInsightCadence   = 5
	DefaultFollowupCadence  = 8
	DefaultSnapshotPrefix   = "roundtable:session:"
)

// EndpointsConfig holds the analysis endpoint settings.
type EndpointsConfig struct {
	// Primary is the URL of the live-analysis endpoint.
	Primary string `yaml:"primary"`

	// Fallback is the URL of the legacy analysis endpoint, tried once when
	// the primary fails.
	Fallback string `yaml:"fallback"`

	// Timeout bounds each individual HTTP request.
	Timeout time.Duration `yaml:"-"`
}

// FacilitatorConfig identifies the session facilitator for speaker attribution.
type FacilitatorConfig struct {
	// Name is the facilitator's spoken name, matched against
	// self-introductions.
	Name string `yaml:"name"`

	// Organization is the facilitator's organization, matched against
	// first-person org references.
	Organization string `yaml:"organization"`
}

// AttributionConfig tunes the speaker-attribution engine.
type AttributionConfig struct {
	// ContinuityWindow is how long the previous speaker is assumed to still
	// be speaking absent contrary signals. Zero disables continuity.
	ContinuityWindow time.Duration `yaml:"-"`
}

// InsightsConfig tunes insight auto-triggering.
type InsightsConfig struct {
	// Cooldown suppresses auto-triggered requests for this long after the
	// most recent insight of any type.
	Cooldown time.Duration `yaml:"-"`

	// InsightCadence schedules an insights request every N new entries.
	InsightCadence int `yaml:"insight_cadence"`

	// FollowupCadence schedules a followup request every N new entries.
	FollowupCadence int `yaml:"followup_cadence"`

	// SynthesisDelay debounces the synthesis request scheduled on forward
	// phase advances.
	SynthesisDelay time.Duration `yaml:"-"`
}

// SnapshotConfig holds snapshot persistence settings.
type SnapshotConfig struct {
	// RedisAddr is the Redis server address (host:port). Empty disables
	// persistence; the session runs in-memory only.
	RedisAddr string `yaml:"redis_addr,omitempty"`

	// RedisDB selects the Redis logical database.
	RedisDB int `yaml:"redis_db,omitempty"`

	// KeyPrefix prefixes every snapshot key.
	KeyPrefix string `yaml:"key_prefix,omitempty"`
}

// ArchiveConfig holds the optional completed-session archive settings.
type ArchiveConfig struct {
	// DSN is the Postgres connection string. Empty disables archiving.
	DSN string `yaml:"dsn,omitempty"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	JSON  bool   `yaml:"json,omitempty"`
}

// Config holds the full roundtable configuration.
type Config struct {
	Endpoints   EndpointsConfig   `yaml:"endpoints"`
	Facilitator FacilitatorConfig `yaml:"facilitator"`

	// Agenda is the ordered list of pre-scripted guide questions.
	Agenda []string `yaml:"agenda"`

	Attribution AttributionConfig `yaml:"attribution"`
	Insights    InsightsConfig    `yaml:"insights"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Logging     LoggingConfig     `yaml:"logging"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format,omitempty"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			Primary:  DefaultPrimaryEndpoint,
			Fallback: DefaultFallbackEndpoint,
			Timeout:  DefaultRequestTimeout,
		},
		Facilitator: FacilitatorConfig{
			Name: "Facilitator",
		},
		Attribution: AttributionConfig{
			ContinuityWindow: DefaultContinuityWindow,
		},
		Insights: InsightsConfig{
			Cooldown:        DefaultCooldown,
			InsightCadence:  DefaultInsightCadence,
			FollowupCadence: DefaultFollowupCadence,
			SynthesisDelay:  DefaultSynthesisDelay,
		},
		Snapshot: SnapshotConfig{
			KeyPrefix: DefaultSnapshotPrefix,
		},
		OutputFormat: DefaultOutputFormat,
	}
}

// ConfigDir returns the configuration directory path.
// Uses $ROUNDTABLE_CONFIG_DIR if set, otherwise ~/.roundtable
func ConfigDir() (string, error) {
	if dir := os.Getenv("ROUNDTABLE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.roundtable/config.yaml or $ROUNDTABLE_CONFIG_DIR/config.yaml)
// 3. Environment variables (ROUNDTABLE_PRIMARY_ENDPOINT, ROUNDTABLE_REDIS_ADDR, ...)
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// Durations are unmarshaled as strings and parsed explicitly.
	type fileEndpoints struct {
		Primary  string `yaml:"primary"`
		Fallback string `yaml:"fallback"`
		Timeout  string `yaml:"timeout"`
	}
	type fileAttribution struct {
		ContinuityWindow string `yaml:"continuity_window"`
	}
	type fileInsights struct {
		Cooldown        string `yaml:"cooldown"`
		InsightCadence  int    `yaml:"insight_cadence"`
		FollowupCadence int    `yaml:"followup_cadence"`
		SynthesisDelay  string `yaml:"synthesis_delay"`
	}
	type configFile struct {
		Endpoints    fileEndpoints     `yaml:"endpoints"`
		Facilitator  FacilitatorConfig `yaml:"facilitator"`
		Agenda       []string          `yaml:"agenda"`
		Attribution  fileAttribution   `yaml:"attribution"`
		Insights     fileInsights      `yaml:"insights"`
		Snapshot     SnapshotConfig    `yaml:"snapshot"`
		Archive      ArchiveConfig     `yaml:"archive"`
		Logging      LoggingConfig     `yaml:"logging"`
		OutputFormat OutputFormat      `yaml:"output_format"`
		Debug        bool              `yaml:"debug"`
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.Endpoints.Primary != "" {
		cfg.Endpoints.Primary = fileCfg.Endpoints.Primary
	}
	if fileCfg.Endpoints.Fallback != "" {
		cfg.Endpoints.Fallback = fileCfg.Endpoints.Fallback
	}
	if fileCfg.Endpoints.Timeout != "" {
		d, err := time.ParseDuration(fileCfg.Endpoints.Timeout)
		if err != nil {
			return fmt.Errorf("parsing endpoints.timeout: %w", err)
		}
		cfg.Endpoints.Timeout = d
	}
	if fileCfg.Facilitator.Name != "" {
		cfg.Facilitator.Name = fileCfg.Facilitator.Name
	}
	if fileCfg.Facilitator.Organization != "" {
		cfg.Facilitator.Organization = fileCfg.Facilitator.Organization
	}
	if fileCfg.Agenda != nil {
		cfg.Agenda = fileCfg.Agenda
	}
	if fileCfg.Attribution.ContinuityWindow != "" {
		d, err := time.ParseDuration(fileCfg.Attribution.ContinuityWindow)
		if err != nil {
			return fmt.Errorf("parsing attribution.continuity_window: %w", err)
		}
		cfg.Attribution.ContinuityWindow = d
	}
	if fileCfg.Insights.Cooldown != "" {
		d, err := time.ParseDuration(fileCfg.Insights.Cooldown)
		if err != nil {
			return fmt.Errorf("parsing insights.cooldown: %w", err)
		}
		cfg.Insights.Cooldown = d
	}
	if fileCfg.Insights.SynthesisDelay != "" {
		d, err := time.ParseDuration(fileCfg.Insights.SynthesisDelay)
		if err != nil {
			return fmt.Errorf("parsing insights.synthesis_delay: %w", err)
		}
		cfg.Insights.SynthesisDelay = d
	}
	if fileCfg.Insights.InsightCadence > 0 {
		cfg.Insights.InsightCadence = fileCfg.Insights.InsightCadence
	}
	if fileCfg.Insights.FollowupCadence > 0 {
		cfg.Insights.FollowupCadence = fileCfg.Insights.FollowupCadence
	}
	if fileCfg.Snapshot.RedisAddr != "" {
		cfg.Snapshot.RedisAddr = fileCfg.Snapshot.RedisAddr
	}
	if fileCfg.Snapshot.RedisDB != 0 {
		cfg.Snapshot.RedisDB = fileCfg.Snapshot.RedisDB
	}
	if fileCfg.Snapshot.KeyPrefix != "" {
		cfg.Snapshot.KeyPrefix = fileCfg.Snapshot.KeyPrefix
	}
	if fileCfg.Archive.DSN != "" {
		cfg.Archive.DSN = fileCfg.Archive.DSN
	}
	if fileCfg.Logging.Level != "" {
		cfg.Logging.Level = fileCfg.Logging.Level
	}
	cfg.Logging.JSON = fileCfg.Logging.JSON
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	cfg.Debug = fileCfg.Debug

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("ROUNDTABLE_PRIMARY_ENDPOINT"); v != "" {
		cfg.Endpoints.Primary = v
	}

	if v := os.Getenv("ROUNDTABLE_FALLBACK_ENDPOINT"); v != "" {
		cfg.Endpoints.Fallback = v
	}

	if v := os.Getenv("ROUNDTABLE_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Endpoints.Timeout = d
		}
	}

	if v := os.Getenv("ROUNDTABLE_FACILITATOR_NAME"); v != "" {
		cfg.Facilitator.Name = v
	}

	if v := os.Getenv("ROUNDTABLE_FACILITATOR_ORG"); v != "" {
		cfg.Facilitator.Organization = v
	}

	if v := os.Getenv("ROUNDTABLE_CONTINUITY_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Attribution.ContinuityWindow = d
		}
	}

	if v := os.Getenv("ROUNDTABLE_INSIGHT_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Insights.Cooldown = d
		}
	}

	if v := os.Getenv("ROUNDTABLE_REDIS_ADDR"); v != "" {
		cfg.Snapshot.RedisAddr = v
	}

	if v := os.Getenv("ROUNDTABLE_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Snapshot.RedisDB = db
		}
	}

	if v := os.Getenv("ROUNDTABLE_ARCHIVE_DSN"); v != "" {
		cfg.Archive.DSN = v
	}

	if v := os.Getenv("ROUNDTABLE_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}

	if v := os.Getenv("ROUNDTABLE_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Endpoints.Primary == "" {
		return fmt.Errorf("endpoints.primary must not be empty")
	}
	if c.Endpoints.Timeout <= 0 {
		return fmt.Errorf("endpoints.timeout must be positive")
	}
	if c.Attribution.ContinuityWindow < 0 {
		return fmt.Errorf("attribution.continuity_window must not be negative")
	}
	if c.Insights.InsightCadence <= 0 {
		return fmt.Errorf("insights.insight_cadence must be positive")
	}
	if c.Insights.FollowupCadence <= 0 {
		return fmt.Errorf("insights.followup_cadence must be positive")
	}
	if c.Insights.Cooldown < 0 {
		return fmt.Errorf("insights.cooldown must not be negative")
	}
	switch c.OutputFormat {
	case OutputFormatText, OutputFormatJSON:
	default:
		return fmt.Errorf("unsupported output format %q", c.OutputFormat)
	}
	return nil
}

// Save writes the configuration to the config file, creating the directory
// if needed.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
