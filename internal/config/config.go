package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Resolver   ResolverConfig   `yaml:"resolver" mapstructure:"resolver"`
	Patterns   PatternConfig    `yaml:"patterns" mapstructure:"patterns"`
	Verify     VerifyConfig     `yaml:"verify" mapstructure:"verify"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Brevo      BrevoConfig      `yaml:"brevo" mapstructure:"brevo"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ResolverConfig configures company-to-domain resolution.
type ResolverConfig struct {
	KnownDomainsFile string `yaml:"known_domains_file" mapstructure:"known_domains_file"`
	DNSTimeoutSecs   int    `yaml:"dns_timeout_secs" mapstructure:"dns_timeout_secs"`
	SearchEnabled    bool   `yaml:"search_enabled" mapstructure:"search_enabled"`
}

// PatternConfig configures candidate generation.
type PatternConfig struct {
	MaxCandidates int  `yaml:"max_candidates" mapstructure:"max_candidates"`
	Extended      bool `yaml:"extended" mapstructure:"extended"`
}

// VerifyConfig configures SMTP-level verification. The confidence values are
// policy, not protocol constants, so they are exposed as knobs.
type VerifyConfig struct {
	SMTPEnabled        bool    `yaml:"smtp_enabled" mapstructure:"smtp_enabled"`
	HeloDomain         string  `yaml:"helo_domain" mapstructure:"helo_domain"`
	MailFrom           string  `yaml:"mail_from" mapstructure:"mail_from"`
	TimeoutSecs        int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryAttempts      int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs     int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	BreakerThreshold   int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs   int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	ConfidenceValid    float64 `yaml:"confidence_valid" mapstructure:"confidence_valid"`
	ConfidenceCatchAll float64 `yaml:"confidence_catch_all" mapstructure:"confidence_catch_all"`
	ConfidenceInvalid  float64 `yaml:"confidence_invalid" mapstructure:"confidence_invalid"`
	ConfidenceMXOnly   float64 `yaml:"confidence_mx_only" mapstructure:"confidence_mx_only"`
	ConfidenceNoMX     float64 `yaml:"confidence_no_mx" mapstructure:"confidence_no_mx"`
}

// PipelineConfig configures batch orchestration.
type PipelineConfig struct {
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
	PerDomainRate      float64 `yaml:"per_domain_rate" mapstructure:"per_domain_rate"`
	PerDomainBurst     int     `yaml:"per_domain_burst" mapstructure:"per_domain_burst"`
	ContactTimeoutSecs int     `yaml:"contact_timeout_secs" mapstructure:"contact_timeout_secs"`
}

// SearchConfig configures the web-search domain fallback.
type SearchConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BrevoConfig holds Brevo API credentials for contact sync.
type BrevoConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	ListName string `yaml:"list_name" mapstructure:"list_name"`
	FolderID int    `yaml:"folder_id" mapstructure:"folder_id"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures background health checks on the serve command.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	FindRateFloor        float64 `yaml:"find_rate_floor" mapstructure:"find_rate_floor"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MAILSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "mailscout.db")
	v.SetDefault("resolver.dns_timeout_secs", 5)
	v.SetDefault("resolver.search_enabled", true)
	v.SetDefault("patterns.max_candidates", 8)
	v.SetDefault("patterns.extended", false)
	v.SetDefault("verify.smtp_enabled", true)
	v.SetDefault("verify.helo_domain", "verify.local")
	v.SetDefault("verify.mail_from", "verify@verify.local")
	v.SetDefault("verify.timeout_secs", 10)
	v.SetDefault("verify.retry_attempts", 3)
	v.SetDefault("verify.retry_backoff_ms", 500)
	v.SetDefault("verify.breaker_threshold", 5)
	v.SetDefault("verify.breaker_reset_secs", 30)
	v.SetDefault("verify.confidence_valid", 0.9)
	v.SetDefault("verify.confidence_catch_all", 0.5)
	v.SetDefault("verify.confidence_invalid", 0.85)
	v.SetDefault("verify.confidence_mx_only", 0.3)
	v.SetDefault("verify.confidence_no_mx", 1.0)
	v.SetDefault("pipeline.concurrency", 5)
	v.SetDefault("pipeline.per_domain_rate", 0.5)
	v.SetDefault("pipeline.per_domain_burst", 1)
	v.SetDefault("pipeline.contact_timeout_secs", 120)
	v.SetDefault("search.base_url", "https://html.duckduckgo.com/html")
	v.SetDefault("search.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	v.SetDefault("search.timeout_secs", 10)
	v.SetDefault("brevo.base_url", "https://api.brevo.com/v3")
	v.SetDefault("brevo.list_name", "LinkedIn Connections")
	v.SetDefault("brevo.folder_id", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.find_rate_floor", 0.2)
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
