package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Insights   InsightsConfig   `yaml:"insights" mapstructure:"insights"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GoogleConfig holds Google Maps web service settings.
type GoogleConfig struct {
	APIKey    string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutMs int     `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Timeout returns the per-call bound.
func (c GoogleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// AnthropicConfig holds Anthropic API settings. An empty key disables model
// insights.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// InsightsConfig configures insight generation.
type InsightsConfig struct {
	TimeoutMs int `yaml:"timeout_ms" mapstructure:"timeout_ms"`
}

// Timeout returns the model call bound.
func (c InsightsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// AnalysisConfig configures discovery and caching of analyses.
type AnalysisConfig struct {
	DetailsLimit       int    `yaml:"details_limit" mapstructure:"details_limit"`
	DetailsConcurrency int    `yaml:"details_concurrency" mapstructure:"details_concurrency"`
	CacheTTLSeconds    int    `yaml:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
	NearRadiusM        int    `yaml:"near_radius_m" mapstructure:"near_radius_m"`
	FarRadiusM         int    `yaml:"far_radius_m" mapstructure:"far_radius_m"`
	CategoryFile       string `yaml:"category_file" mapstructure:"category_file"`
}

// CacheTTL returns the lifetime of cached analyses.
func (c AnalysisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
}

// StoreConfig selects the report store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ResilienceConfig configures the upstream circuit breakers.
type ResilienceConfig struct {
	Enabled          bool `yaml:"enabled" mapstructure:"enabled"`
	FailureThreshold int  `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int  `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
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

var (
	cacheDrivers = map[string]bool{"memory": true, "redis": true}
	storeDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true}
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VIABILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("google.api_key", "VIABILITY_GOOGLE_API_KEY", "GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("anthropic.key", "VIABILITY_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")

	// Defaults
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("google.timeout_ms", 10000)
	v.SetDefault("google.rate_limit", 25)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("insights.timeout_ms", 10000)
	v.SetDefault("analysis.details_limit", 20)
	v.SetDefault("analysis.details_concurrency", 5)
	v.SetDefault("analysis.cache_ttl_seconds", 86400)
	v.SetDefault("analysis.near_radius_m", 800)
	v.SetDefault("analysis.far_radius_m", 1500)
	v.SetDefault("analysis.category_file", "")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("resilience.enabled", false)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("server.port", 4000)
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

// Validate checks drivers and limits.
func (c *Config) Validate() error {
	var errs []string

	if !cacheDrivers[c.Cache.Driver] {
		errs = append(errs, "cache.driver must be memory or redis")
	}
	if c.Cache.Driver == "redis" && c.Cache.RedisAddr == "" {
		errs = append(errs, "cache.redis_addr is required for the redis driver")
	}
	if !storeDrivers[c.Store.Driver] {
		errs = append(errs, "store.driver must be memory, sqlite or postgres")
	}
	if (c.Store.Driver == "sqlite" || c.Store.Driver == "postgres") && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for the "+c.Store.Driver+" driver")
	}

	positive := []struct {
		name  string
		value int
	}{
		{"google.timeout_ms", c.Google.TimeoutMs},
		{"anthropic.max_tokens", c.Anthropic.MaxTokens},
		{"insights.timeout_ms", c.Insights.TimeoutMs},
		{"analysis.details_limit", c.Analysis.DetailsLimit},
		{"analysis.details_concurrency", c.Analysis.DetailsConcurrency},
		{"analysis.cache_ttl_seconds", c.Analysis.CacheTTLSeconds},
		{"analysis.near_radius_m", c.Analysis.NearRadiusM},
		{"analysis.far_radius_m", c.Analysis.FarRadiusM},
		{"server.port", c.Server.Port},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, p.name+" must be > 0")
		}
	}
	if c.Google.RateLimit < 0 {
		errs = append(errs, "google.rate_limit must be >= 0")
	}
	if c.Analysis.NearRadiusM > c.Analysis.FarRadiusM {
		errs = append(errs, "analysis.near_radius_m must not exceed analysis.far_radius_m")
	}
	if c.Resilience.Enabled && c.Resilience.FailureThreshold <= 0 {
		errs = append(errs, "resilience.failure_threshold must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
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
