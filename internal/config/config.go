package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const EnvProduction = "production"

type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Cron        CronConfig       `mapstructure:"cron"`
	Email       EmailConfig      `mapstructure:"email"`
	Generation  GenerationConfig `mapstructure:"generation"`
	Reminders   RemindersConfig  `mapstructure:"reminders"`
	Log         LogConfig        `mapstructure:"log"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	App         AppConfig        `mapstructure:"app"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	Migrate        bool   `mapstructure:"migrate"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTAudience  string        `mapstructure:"jwt_audience"`
	RoleCacheTTL time.Duration `mapstructure:"role_cache_ttl"`
}

type CronConfig struct {
	Secret          string        `mapstructure:"secret"`
	GenerateSpec    string        `mapstructure:"generate_spec"`
	ReminderSpec    string        `mapstructure:"reminder_spec"`
	FollowupSpec    string        `mapstructure:"followup_spec"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	HealthCheckPort int           `mapstructure:"health_check_port"`
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	From         string `mapstructure:"from"`
}

type GenerationConfig struct {
	LookaheadDays int `mapstructure:"lookahead_days"`
}

type RemindersConfig struct {
	OffsetsDays      []int         `mapstructure:"offsets_days"`
	OverdueThreshold time.Duration `mapstructure:"overdue_threshold"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type AppConfig struct {
	Timezone  string `mapstructure:"timezone"`
	PublicURL string `mapstructure:"public_url"`
}

// secrets are read from CHURCH_* environment variables and win over the file.
type secrets struct {
	Environment  string `envconfig:"ENVIRONMENT"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	RedisURL     string `envconfig:"REDIS_URL"`
	CronSecret   string `envconfig:"CRON_SECRET"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// Location returns the church timezone, UTC when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.App.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.request_timeout", "55s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "church")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.migrations_path", "file://migrations")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", "100ms")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("auth.jwt_audience", "authenticated")
	v.SetDefault("auth.role_cache_ttl", "5m")
	v.SetDefault("cron.generate_spec", "0 2 * * *")
	v.SetDefault("cron.reminder_spec", "0 8 * * *")
	v.SetDefault("cron.followup_spec", "0 9 * * *")
	v.SetDefault("cron.run_timeout", "2m")
	v.SetDefault("cron.health_check_port", 8081)
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("generation.lookahead_days", 60)
	v.SetDefault("reminders.offsets_days", []int{14, 2})
	v.SetDefault("reminders.overdue_threshold", "48h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("app.timezone", "UTC")
}

// LoadConfig reads .env, config.yml and CHURCH_* overrides, in that order.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	v.AddConfigPath("/app/config")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process("church", &s); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	s.apply(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s secrets) apply(cfg *Config) {
	if s.Environment != "" {
		cfg.Environment = s.Environment
	}
	if s.DatabaseURL != "" {
		cfg.Database.URL = s.DatabaseURL
	}
	if s.RedisURL != "" {
		cfg.Redis.URL = s.RedisURL
	}
	if s.CronSecret != "" {
		cfg.Cron.Secret = s.CronSecret
	}
	if s.JWTSecret != "" {
		cfg.Auth.JWTSecret = s.JWTSecret
	}
	if s.SMTPPassword != "" {
		cfg.Email.SMTPPassword = s.SMTPPassword
	}
}

func (c *Config) validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	if c.Generation.LookaheadDays < 1 {
		return fmt.Errorf("generation.lookahead_days must be positive")
	}
	for _, d := range c.Reminders.OffsetsDays {
		if d < 0 {
			return fmt.Errorf("reminders.offsets_days must not be negative")
		}
	}
	return nil
}
