// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Service  ServiceConfig  `mapstructure:"service" yaml:"service"`
	Artifact ArtifactConfig `mapstructure:"artifacts" yaml:"artifacts"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the console color names for each log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// AgentConfig holds settings for the decision loop and its LLM backend.
type AgentConfig struct {
	LLM LLMRouterConfig `mapstructure:"llm" yaml:"llm"`

	// MaxSteps and MaxMinutes are the default run budgets; the explore
	// command can override them per run.
	MaxSteps   int     `mapstructure:"max_steps" yaml:"max_steps"`
	MaxMinutes float64 `mapstructure:"max_minutes" yaml:"max_minutes"`

	// StepSummaryLookback is how many recent steps are summarized into each
	// decision prompt.
	StepSummaryLookback int `mapstructure:"step_summary_lookback" yaml:"step_summary_lookback"`

	// PaceMinMs/PaceMaxMs bound the randomized inter-step delay. Zero
	// disables pacing (used by tests).
	PaceMinMs int `mapstructure:"pace_min_ms" yaml:"pace_min_ms"`
	PaceMaxMs int `mapstructure:"pace_max_ms" yaml:"pace_max_ms"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMRouterConfig configures the model routing logic.
type LLMRouterConfig struct {
	DefaultFastModel     string                    `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string                    `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	Models               map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider        LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model           string        `mapstructure:"model" yaml:"model"`
	APIKey          string        `mapstructure:"api_key" yaml:"-"`
	Endpoint        string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout      time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature     float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMin  float64       `mapstructure:"requests_per_min" yaml:"requests_per_min"`
}

// BrowserConfig holds settings for the headless browser driver.
type BrowserConfig struct {
	// Mode selects the driver: "chromedp" or "static" (plain HTTP fetcher).
	Mode              string        `mapstructure:"mode" yaml:"mode"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleWait        time.Duration `mapstructure:"settle_wait" yaml:"settle_wait"`
	Screenshots       bool          `mapstructure:"screenshots" yaml:"screenshots"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// StoreConfig specifies the backend for run persistence.
type StoreConfig struct {
	Type     string         `mapstructure:"type" yaml:"type"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// PostgresConfig holds the connection details for a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"-"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DSN renders the config as a pgx connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// ServiceConfig bounds the run scheduler.
type ServiceConfig struct {
	MaxConcurrentRuns int `mapstructure:"max_concurrent_runs" yaml:"max_concurrent_runs"`
}

// ArtifactConfig controls where run artifacts land on disk.
type ArtifactConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "wayfinder-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Agent --
	v.SetDefault("agent.max_steps", 40)
	v.SetDefault("agent.max_minutes", 15.0)
	v.SetDefault("agent.step_summary_lookback", 8)
	v.SetDefault("agent.pace_min_ms", 300)
	v.SetDefault("agent.pace_max_ms", 700)
	v.SetDefault("agent.llm.default_fast_model", "gemini-2.5-flash")
	v.SetDefault("agent.llm.default_powerful_model", "gemini-2.5-pro")

	// -- Browser --
	v.SetDefault("browser.mode", "chromedp")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "45s")
	v.SetDefault("browser.settle_wait", "1500ms")
	v.SetDefault("browser.screenshots", true)

	// -- Store --
	v.SetDefault("store.type", "filesystem")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.dbname", "wayfinder")
	v.SetDefault("store.postgres.sslmode", "disable")

	// -- Service --
	v.SetDefault("service.max_concurrent_runs", 2)

	// -- Artifacts --
	v.SetDefault("artifacts.dir", "~/.wayfinder/runs")
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	_ = v.BindEnv("agent.llm.models.gemini.api_key", "WAYFINDER_GEMINI_API_KEY")
	_ = v.BindEnv("store.postgres.password", "WAYFINDER_PG_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	dir, err := homedir.Expand(cfg.Artifact.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand artifacts dir: %w", err)
	}
	cfg.Artifact.Dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be a positive integer")
	}
	if c.Agent.MaxMinutes <= 0 {
		return fmt.Errorf("agent.max_minutes must be positive")
	}
	if c.Agent.PaceMinMs > c.Agent.PaceMaxMs {
		return fmt.Errorf("agent.pace_min_ms must not exceed agent.pace_max_ms")
	}
	switch c.Browser.Mode {
	case "chromedp", "static":
	default:
		return fmt.Errorf("browser.mode must be 'chromedp' or 'static', got %q", c.Browser.Mode)
	}
	switch c.Store.Type {
	case "filesystem", "postgres":
	default:
		return fmt.Errorf("store.type must be 'filesystem' or 'postgres', got %q", c.Store.Type)
	}
	if c.Service.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("service.max_concurrent_runs must be a positive integer")
	}
	return nil
}

// BindViper wires the standard config file search paths and env handling
// onto the given viper instance.
func BindViper(v *viper.Viper, cfgFile string) {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("WAYFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
