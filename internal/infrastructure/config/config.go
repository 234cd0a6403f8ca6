package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Market   MarketConfig   `mapstructure:"market"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// URL builds the postgres connection string
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port address
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// JWTConfig holds token issuance configuration
type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	Issuer    string        `mapstructure:"issuer"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

// MarketConfig controls the synthetic price feed
type MarketConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	HistorySize   int           `mapstructure:"history_size"`
	MaxMovePct    float64       `mapstructure:"max_move_pct"`
	QuoteCacheTTL time.Duration `mapstructure:"quote_cache_ttl"`
}

// TradingConfig controls order intake and portfolio defaults
type TradingConfig struct {
	StartingCash         string `mapstructure:"starting_cash"`
	OrderRateLimitPerMin int    `mapstructure:"order_rate_limit_per_min"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load reads configuration from environment variables and optional .env file
func Load() (*Config, error) {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PAPERTRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_per_min", 300)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "papertrade")
	v.SetDefault("database.user", "papertrade")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.issuer", "papertrade")
	v.SetDefault("jwt.access_ttl", 24*time.Hour)

	v.SetDefault("market.tick_interval", 5*time.Second)
	v.SetDefault("market.history_size", 30)
	v.SetDefault("market.max_move_pct", 5.0)
	v.SetDefault("market.quote_cache_ttl", 5*time.Second)

	v.SetDefault("trading.starting_cash", "10000")
	v.SetDefault("trading.order_rate_limit_per_min", 60)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "papertrade-api")
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_ratio", 0.1)
}

// overrideFromEnv applies the conventional unprefixed variables used by
// hosting platforms, which take precedence over prefixed ones
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		applyDatabaseURL(cfg, v)
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		applyRedisURL(cfg, v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
}

// applyDatabaseURL splits a postgres:// URL into the discrete fields
func applyDatabaseURL(cfg *Config, raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	if u.User != nil {
		cfg.Database.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			cfg.Database.Password = pw
		}
	}
	if host := u.Hostname(); host != "" {
		cfg.Database.Host = host
	}
	if port := u.Port(); port != "" {
		cfg.Database.Port = port
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		cfg.Database.Name = name
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		cfg.Database.SSLMode = mode
	}
}

// applyRedisURL splits a redis:// URL into the discrete fields
func applyRedisURL(cfg *Config, raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	if host := u.Hostname(); host != "" {
		cfg.Redis.Host = host
	}
	if port := u.Port(); port != "" {
		cfg.Redis.Port = port
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			cfg.Redis.Password = pw
		}
	}
}

// Validate checks required configuration values
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		if c.Environment == "production" {
			return fmt.Errorf("jwt secret is required in production")
		}
		c.JWT.Secret = "dev-only-secret-change-me"
	}
	if c.Market.HistorySize <= 0 {
		return fmt.Errorf("market history size must be positive")
	}
	if c.Market.MaxMovePct <= 0 || c.Market.MaxMovePct >= 100 {
		return fmt.Errorf("market max move pct must be in (0, 100)")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
