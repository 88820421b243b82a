package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Sessions   SessionsConfig   `yaml:"sessions" mapstructure:"sessions"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig locates the profile document store on disk.
type StoreConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	BackupDir string `yaml:"backup_dir" mapstructure:"backup_dir"`
	ExportDir string `yaml:"export_dir" mapstructure:"export_dir"`
}

// SessionsConfig configures the discovery session database.
type SessionsConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ResearchConfig tunes the deep research backend.
type ResearchConfig struct {
	SearchBreadth    int     `yaml:"search_breadth" mapstructure:"search_breadth"`
	SearchDepth      int     `yaml:"search_depth" mapstructure:"search_depth"`
	QualifyBreadth   int     `yaml:"qualify_breadth" mapstructure:"qualify_breadth"`
	QualifyDepth     int     `yaml:"qualify_depth" mapstructure:"qualify_depth"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryAttempts    int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	CircuitThreshold int     `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
}

// DiscoveryConfig bounds a discovery run.
type DiscoveryConfig struct {
	TargetCount int `yaml:"target_count" mapstructure:"target_count"`
	MinCount    int `yaml:"min_count" mapstructure:"min_count"`
	MaxCount    int `yaml:"max_count" mapstructure:"max_count"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxQueries  int `yaml:"max_queries" mapstructure:"max_queries"`
}

// NotionConfig holds Notion API credentials and the prospect database ID.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	ProspectDB string `yaml:"prospect_db" mapstructure:"prospect_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MonitoringConfig configures the background session health checks run by serve.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	StaleAfterMins       int     `yaml:"stale_after_mins" mapstructure:"stale_after_mins"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envFiles are loaded in order; earlier files win because godotenv never
// overrides variables that are already set.
var envFiles = []string{".env.local", ".env"}

// Load reads configuration from dotenv files, config file and environment.
func Load() (*Config, error) {
	if err := loadDotenv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.dir", "profiles")
	v.SetDefault("store.backup_dir", "backups")
	v.SetDefault("store.export_dir", "exports")
	v.SetDefault("sessions.driver", "sqlite")
	v.SetDefault("sessions.database_url", "sessions.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("research.search_breadth", 2)
	v.SetDefault("research.search_depth", 1)
	v.SetDefault("research.qualify_breadth", 3)
	v.SetDefault("research.qualify_depth", 2)
	v.SetDefault("research.rate_limit", 2.0)
	v.SetDefault("research.timeout_secs", 120)
	v.SetDefault("research.retry_attempts", 3)
	v.SetDefault("research.circuit_threshold", 5)
	v.SetDefault("discovery.target_count", 10)
	v.SetDefault("discovery.min_count", 5)
	v.SetDefault("discovery.max_count", 30)
	v.SetDefault("discovery.concurrency", 3)
	v.SetDefault("discovery.max_queries", 8)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.stale_after_mins", 60)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func loadDotenv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return eris.Wrapf(err, "config: load %s", f)
		}
	}
	return nil
}

// ClampTargetCount keeps a requested prospect count inside the configured bounds.
// Zero or negative requests fall back to the default target.
func (c DiscoveryConfig) ClampTargetCount(n int) int {
	if n <= 0 {
		n = c.TargetCount
	}
	if c.MinCount > 0 && n < c.MinCount {
		n = c.MinCount
	}
	if c.MaxCount > 0 && n > c.MaxCount {
		n = c.MaxCount
	}
	return n
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
