package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Completion     CompletionConfig     `mapstructure:"completion"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Features       FeaturesConfig       `mapstructure:"features"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// RecommendationConfig controls the two cache layers and candidate selection.
type RecommendationConfig struct {
	ProfileCacheTTL time.Duration `mapstructure:"profile_cache_ttl"` // validity of the per-profile id list
	RecordTTL       time.Duration `mapstructure:"record_ttl"`        // expiry of per-(profile, product) records
	DefaultLimit    int           `mapstructure:"default_limit"`
	MaxLimit        int           `mapstructure:"max_limit"`
	CandidatePool   int           `mapstructure:"candidate_pool"` // products scanned on regeneration
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RedisConfig enables the cross-instance generation lock when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	LockWait time.Duration `mapstructure:"lock_wait"`
}

type FeaturesConfig struct {
	Workers int `mapstructure:"workers"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("completion.provider", "AI_PROVIDER")
	v.BindEnv("completion.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("completion.openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("completion.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("completion.ollama.base_url", "OLLAMA_BASE_URL")
	v.BindEnv("completion.ollama.model", "OLLAMA_MODEL")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", false)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/personashop.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "personashop")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("completion.provider", "ollama")
	v.SetDefault("completion.timeout", 60*time.Second)
	v.SetDefault("completion.temperature", 0.7)
	v.SetDefault("completion.openai.model", "gpt-4o-mini")
	v.SetDefault("completion.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("completion.anthropic.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("completion.anthropic.base_url", "https://api.anthropic.com/v1")
	v.SetDefault("completion.ollama.model", "llama3.1:8b")
	v.SetDefault("completion.ollama.base_url", "http://localhost:11434")
	v.SetDefault("completion.breaker.enabled", true)
	v.SetDefault("completion.breaker.min_requests", 5)
	v.SetDefault("completion.breaker.failure_ratio", 0.6)
	v.SetDefault("completion.breaker.open_timeout", time.Minute)

	v.SetDefault("recommendation.profile_cache_ttl", 7*24*time.Hour)
	v.SetDefault("recommendation.record_ttl", 30*24*time.Hour)
	v.SetDefault("recommendation.default_limit", 10)
	v.SetDefault("recommendation.max_limit", 50)
	v.SetDefault("recommendation.candidate_pool", 100)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.issuer", "personashop")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 30*time.Second)
	v.SetDefault("redis.lock_wait", 5*time.Second)

	v.SetDefault("features.workers", 4)
}

// Validate checks cross-field requirements that defaults cannot cover.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Completion.Validate(); err != nil {
		return err
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth: jwt_secret is required when auth is enabled (set JWT_SECRET)")
	}
	if c.Recommendation.DefaultLimit <= 0 || c.Recommendation.DefaultLimit > c.Recommendation.MaxLimit {
		return fmt.Errorf("recommendation: default_limit must be between 1 and max_limit")
	}
	return nil
}
