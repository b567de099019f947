package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hydrosense/potability-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service" mapstructure:"service"`
	Policy   PolicyConfig   `yaml:"policy" mapstructure:"policy"`
	Store    store.Config   `yaml:"store" mapstructure:"store"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServiceConfig configures the remote prediction service client.
type ServiceConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// TimeoutSecs is the first attempt's deadline; each retry adds
	// TimeoutGrowthSecs on top.
	TimeoutSecs       int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	TimeoutGrowthSecs int `yaml:"timeout_growth_secs" mapstructure:"timeout_growth_secs"`
	MaxAttempts       int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// RateLimit caps outbound requests per second in batch mode; zero
	// disables the limiter.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// PolicyConfig carries the blended-trust constants. The defaults are the
// documented contract values.
type PolicyConfig struct {
	OverrideThreshold float64 `yaml:"override_threshold" mapstructure:"override_threshold"`
	LowRiskThreshold  float64 `yaml:"low_risk_threshold" mapstructure:"low_risk_threshold"`
	ScoreBase         float64 `yaml:"score_base" mapstructure:"score_base"`
	ScoreSpan         float64 `yaml:"score_span" mapstructure:"score_span"`
	ConfidenceBase    float64 `yaml:"confidence_base" mapstructure:"confidence_base"`
	ConfidenceSpan    float64 `yaml:"confidence_span" mapstructure:"confidence_span"`
	LocalScore        float64 `yaml:"local_score" mapstructure:"local_score"`
	LocalConfidence   float64 `yaml:"local_confidence" mapstructure:"local_confidence"`
}

// RegistryConfig points at an optional parameter override file.
type RegistryConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("POTABILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("service.base_url", "http://localhost:8000")
	v.SetDefault("service.timeout_secs", 10)
	v.SetDefault("service.timeout_growth_secs", 5)
	v.SetDefault("service.max_attempts", 3)
	v.SetDefault("service.rate_limit", 0)
	v.SetDefault("service.rate_burst", 1)
	v.SetDefault("policy.override_threshold", 0.7)
	v.SetDefault("policy.low_risk_threshold", 0.9)
	v.SetDefault("policy.score_base", 0.6)
	v.SetDefault("policy.score_span", 0.4)
	v.SetDefault("policy.confidence_base", 0.8)
	v.SetDefault("policy.confidence_span", 0.2)
	v.SetDefault("policy.local_score", 0.95)
	v.SetDefault("policy.local_confidence", 0.95)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "potability.db")
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
