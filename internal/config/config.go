// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Apply   ApplyConfig   `mapstructure:"apply" yaml:"apply"`
	Resume  ResumeConfig  `mapstructure:"resume" yaml:"resume"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Debug   DebugConfig   `mapstructure:"debug" yaml:"debug"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggerConfig controls the zap logger and file rotation.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the chromedp allocator and per-step waits.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ChromePath        string        `mapstructure:"chrome_path" yaml:"chrome_path"`
	UserDataDir       string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// SettleInterval is the fixed pause after a primary-button click before
	// the dialog is re-inspected for validation errors.
	SettleInterval time.Duration `mapstructure:"settle_interval" yaml:"settle_interval"`
	// DetachTimeout bounds the wait for a clicked button to leave the DOM.
	DetachTimeout time.Duration `mapstructure:"detach_timeout" yaml:"detach_timeout"`
}

// ApplyConfig carries the per-job policy knobs. MaxPages and MaxRetries are
// independent circuit breakers: the first bounds the wizard page loop, the
// second bounds validation-error retries on a single page.
type ApplyConfig struct {
	MaxPages          int           `mapstructure:"max_pages" yaml:"max_pages"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	ResumePath        string        `mapstructure:"resume_path" yaml:"resume_path"`
	CoverLetterPath   string        `mapstructure:"cover_letter_path" yaml:"cover_letter_path"`
	SkipOnError       bool          `mapstructure:"skip_on_error" yaml:"skip_on_error"`
	DryRun            bool          `mapstructure:"dry_run" yaml:"dry_run"`
	UseConstantResume bool          `mapstructure:"use_constant_resume" yaml:"use_constant_resume"`
	JobLanguages      []string      `mapstructure:"job_languages" yaml:"job_languages"`
	TailorJoinTimeout time.Duration `mapstructure:"tailor_join_timeout" yaml:"tailor_join_timeout"`
	// JobsPerMinute paces the batch loop between jobs. Zero disables pacing.
	JobsPerMinute float64 `mapstructure:"jobs_per_minute" yaml:"jobs_per_minute"`
}

// ResumeConfig controls the tailoring pipeline.
type ResumeConfig struct {
	BaseConfigPath string `mapstructure:"base_config_path" yaml:"base_config_path"`
	OutputDir      string `mapstructure:"output_dir" yaml:"output_dir"`
	// KeepRecent is the retention count for tailored artifact triples.
	KeepRecent int `mapstructure:"keep_recent" yaml:"keep_recent"`
}

// LLMConfig configures the Gemini answerer.
type LLMConfig struct {
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
}

// DebugConfig controls HTML snapshot capture for postmortems.
type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
	// MaxAge is how long snapshots are kept before the sweep deletes them.
	MaxAge time.Duration `mapstructure:"max_age" yaml:"max_age"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "easyapply")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.settle_interval", "1500ms")
	v.SetDefault("browser.detach_timeout", "5s")

	// -- Apply --
	v.SetDefault("apply.max_pages", 10)
	v.SetDefault("apply.max_retries", 2)
	v.SetDefault("apply.skip_on_error", true)
	v.SetDefault("apply.dry_run", false)
	v.SetDefault("apply.use_constant_resume", false)
	v.SetDefault("apply.job_languages", []string{})
	v.SetDefault("apply.tailor_join_timeout", "90s")
	v.SetDefault("apply.jobs_per_minute", 0.0)

	// -- Resume --
	v.SetDefault("resume.output_dir", "tailored_resumes")
	v.SetDefault("resume.keep_recent", 20)

	// -- LLM --
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.2)

	// -- Debug --
	v.SetDefault("debug.enabled", true)
	v.SetDefault("debug.dir", "debug_html")
	v.SetDefault("debug.max_age", "168h")

	// -- Metrics --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object,
// binding sensitive values from the environment and expanding home-relative
// paths.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("llm.api_key", "EASYAPPLY_LLM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves "~" in user-supplied file paths.
func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.Apply.ResumePath,
		&c.Apply.CoverLetterPath,
		&c.Resume.BaseConfigPath,
		&c.Resume.OutputDir,
		&c.Debug.Dir,
		&c.Browser.UserDataDir,
	} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("cannot expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Apply.MaxPages <= 0 {
		return fmt.Errorf("apply.max_pages must be a positive integer")
	}
	if c.Apply.MaxRetries < 0 {
		return fmt.Errorf("apply.max_retries must not be negative")
	}
	if c.Resume.KeepRecent < 1 {
		return fmt.Errorf("resume.keep_recent must be at least 1")
	}
	if c.Browser.SettleInterval <= 0 {
		return fmt.Errorf("browser.settle_interval must be a positive duration")
	}
	for _, lang := range c.Apply.JobLanguages {
		if len(lang) != 2 {
			return fmt.Errorf("apply.job_languages entries must be ISO 639-1 codes, got %q", lang)
		}
	}
	return nil
}
