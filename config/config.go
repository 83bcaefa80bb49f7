package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	// Default API settings
	defaultAPITimeout = 30 * time.Second

	// Default listener settings
	defaultListenAddr = ":8080"

	// Default page settings
	defaultHideAfter = 5 * time.Second

	// Default session settings
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepSchedule = "*/5 * * * *"

	// Default monitoring settings
	defaultMetricsPrefix = "clubsignup"
	defaultJobName       = "clubsignup"

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"

	csrfKeyLength = 32
	redacted      = "[REDACTED]"
)

// Config represents the complete application configuration
type Config struct {
	API        APIConfig        `yaml:"api"`
	Listener   ListenerConfig   `yaml:"listener"`
	Notifier   NotifierConfig   `yaml:"notifier"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	CSRF       CSRFConfig       `yaml:"csrf"`
	Render     RenderConfig     `yaml:"render"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// APIConfig holds the activities API connection settings
type APIConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8000
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	Addr string `yaml:"addr"`
	// TLSCert and TLSKey enable HTTPS when both are set. The pair is
	// reloaded from disk when the files change.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// NotifierConfig controls the status banner
type NotifierConfig struct {
	HideAfter time.Duration `yaml:"hide_after"`
}

// SessionsConfig controls browser sessions
type SessionsConfig struct {
	// Key signs the session cookie. A random key is generated when empty,
	// which logs everyone out on restart.
	Key           string        `yaml:"key"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

// CSRFConfig controls form CSRF protection. Protection is off when Key is empty.
type CSRFConfig struct {
	Key    string `yaml:"key"`
	Secure bool   `yaml:"secure"`
}

// RenderConfig controls card rendering
type RenderConfig struct {
	MarkdownDescriptions bool `yaml:"markdown_descriptions"`
}

// MonitoringConfig holds metrics and monitoring settings
type MonitoringConfig struct {
	VictoriaMetricsURL string `yaml:"victoriametrics_url"`
	MetricsPrefix      string `yaml:"metrics_prefix"`
	JobName            string `yaml:"jobname"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// TLSEnabled reports whether the listener serves HTTPS.
func (l ListenerConfig) TLSEnabled() bool {
	return l.TLSCert != "" && l.TLSKey != ""
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("API base URL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API base URL must include scheme and host: %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("API timeout must be positive")
	}
	if c.Notifier.HideAfter <= 0 {
		return errors.New("notifier hide_after must be positive")
	}
	if c.Sessions.IdleTimeout <= 0 {
		return errors.New("session idle timeout must be positive")
	}
	if _, err := cron.ParseStandard(c.Sessions.SweepSchedule); err != nil {
		return fmt.Errorf("invalid session sweep schedule %q: %w", c.Sessions.SweepSchedule, err)
	}
	if c.CSRF.Key != "" && len(c.CSRF.Key) != csrfKeyLength {
		return fmt.Errorf("CSRF key must be %d bytes, got %d", csrfKeyLength, len(c.CSRF.Key))
	}
	if (c.Listener.TLSCert == "") != (c.Listener.TLSKey == "") {
		return errors.New("listener tls_cert and tls_key must be set together")
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.API.Timeout == 0 {
		c.API.Timeout = defaultAPITimeout
	}
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.Notifier.HideAfter == 0 {
		c.Notifier.HideAfter = defaultHideAfter
	}
	if c.Sessions.IdleTimeout == 0 {
		c.Sessions.IdleTimeout = defaultIdleTimeout
	}
	if c.Sessions.SweepSchedule == "" {
		c.Sessions.SweepSchedule = defaultSweepSchedule
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// Redacted returns a copy of the config with secrets masked.
func (c Config) Redacted() Config {
	if c.Sessions.Key != "" {
		c.Sessions.Key = redacted
	}
	if c.CSRF.Key != "" {
		c.CSRF.Key = redacted
	}
	return c
}

// LoadConfig reads the YAML config file at the given path and returns a Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config file %s: %w", path, err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
