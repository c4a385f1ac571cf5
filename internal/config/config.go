// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/datavex/intel-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Evidence  EvidenceConfig  `yaml:"evidence" mapstructure:"evidence"`
	Signals   SignalsConfig   `yaml:"signals" mapstructure:"signals"`
	Score     ScoreConfig     `yaml:"score" mapstructure:"score"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Narrative NarrativeConfig `yaml:"narrative" mapstructure:"narrative"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// CacheConfig configures the stage result cache.
type CacheConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// EvidenceConfig configures the evidence intake source. When FilePath is
// set it wins over the HTTP intake.
type EvidenceConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	FilePath    string  `yaml:"file_path" mapstructure:"file_path"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SignalsConfig configures signal classification.
type SignalsConfig struct {
	// RulesPath points at a YAML keyword rules file; empty selects the
	// built-in defaults.
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// ScoreConfig configures priority thresholds and the risk penalty.
type ScoreConfig struct {
	HighThreshold   float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold" mapstructure:"medium_threshold"`
	RiskPenalty     float64 `yaml:"risk_penalty" mapstructure:"risk_penalty"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// NarrativeConfig configures the narrative stage.
type NarrativeConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// RulesOnly skips the model entirely and narrates from templates.
	RulesOnly bool `yaml:"rules_only" mapstructure:"rules_only"`
}

// ServerConfig configures the query API server.
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
	v.SetEnvPrefix("DATAVEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "datavex.db")
	v.SetDefault("cache.path", "datavex-cache.db")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("evidence.timeout_secs", 30)
	v.SetDefault("evidence.rate_limit", 10)
	v.SetDefault("score.high_threshold", 0.75)
	v.SetDefault("score.medium_threshold", 0.45)
	v.SetDefault("score.risk_penalty", 0.25)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("narrative.timeout_secs", 30)
	v.SetDefault("narrative.max_attempts", 2)
	v.SetDefault("server.port", 8080)
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
