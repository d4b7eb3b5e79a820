package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/segyhp/lending-engine/pkg/utils"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Events    EventsConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Business  BusinessConfig
	Health    HealthConfig
}

type ServerConfig struct {
	Port               string
	Host               string
	Env                string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	URL string
}

type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type SchedulerConfig struct {
	ReconcileSchedule string
	Timezone          string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// BusinessConfig carries the loan eligibility rules.
type BusinessConfig struct {
	DefaultInterestRate decimal.Decimal
	MaxLoanAmount       decimal.Decimal
	MaxEntryAmount      decimal.Decimal
	MinTenureMonths     int
	MaxTenureMonths     int
	MaxActiveLoans      int
}

type HealthConfig struct {
	Timeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 25)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "2h")
	v.SetDefault("DATABASE_TX_TIMEOUT", "5s")
	v.SetDefault("DATABASE_AUTO_MIGRATE", true)
	v.SetDefault("EVENTS_EXCHANGE", "lending_events")
	v.SetDefault("JWT_ISSUER", "lending-engine")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RATE_LIMIT_REQUESTS", 60)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("RECONCILE_SCHEDULE", "0 0 * * * *")
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DEFAULT_INTEREST_RATE", "12.00")
	v.SetDefault("MAX_LOAN_AMOUNT", "500000.00")
	v.SetDefault("MAX_TRANSACTION_AMOUNT", "1000000000.00")
	v.SetDefault("MIN_TENURE_MONTHS", 1)
	v.SetDefault("MAX_TENURE_MONTHS", 60)
	v.SetDefault("MAX_ACTIVE_LOANS", 2)
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")
}

// Load reads configuration from environment variables, optionally seeded
// from .env files
func Load() (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load("deployments/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	defaultRate, err := decimal.NewFromString(v.GetString("DEFAULT_INTEREST_RATE"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_INTEREST_RATE must be a valid decimal: %w", err)
	}
	maxAmount, err := decimal.NewFromString(v.GetString("MAX_LOAN_AMOUNT"))
	if err != nil {
		return nil, fmt.Errorf("MAX_LOAN_AMOUNT must be a valid decimal: %w", err)
	}
	maxEntry, err := decimal.NewFromString(v.GetString("MAX_TRANSACTION_AMOUNT"))
	if err != nil {
		return nil, fmt.Errorf("MAX_TRANSACTION_AMOUNT must be a valid decimal: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:               v.GetString("SERVER_PORT"),
			Host:               v.GetString("SERVER_HOST"),
			Env:                v.GetString("ENV"),
			ReadTimeout:        v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:       v.GetDuration("SERVER_WRITE_TIMEOUT"),
			CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DATABASE_DRIVER")),
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
			TxTimeout:       v.GetDuration("DATABASE_TX_TIMEOUT"),
			AutoMigrate:     v.GetBool("DATABASE_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Events: EventsConfig{
			AMQPURL:  v.GetString("AMQP_URL"),
			Exchange: v.GetString("EVENTS_EXCHANGE"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Issuer:    v.GetString("JWT_ISSUER"),
			TokenTTL:  v.GetDuration("JWT_TTL"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Scheduler: SchedulerConfig{
			ReconcileSchedule: v.GetString("RECONCILE_SCHEDULE"),
			Timezone:          v.GetString("SCHEDULER_TIMEZONE"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
		Business: BusinessConfig{
			DefaultInterestRate: defaultRate,
			MaxLoanAmount:       maxAmount,
			MaxEntryAmount:      maxEntry,
			MinTenureMonths:     v.GetInt("MIN_TENURE_MONTHS"),
			MaxTenureMonths:     v.GetInt("MAX_TENURE_MONTHS"),
			MaxActiveLoans:      v.GetInt("MAX_ACTIVE_LOANS"),
		},
		Health: HealthConfig{
			Timeout: v.GetDuration("HEALTH_CHECK_TIMEOUT"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}

	if c.Database.URL == "" && c.Database.Driver == "postgres" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Database.TxTimeout <= 0 {
		return fmt.Errorf("DATABASE_TX_TIMEOUT must be a positive duration")
	}

	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be a positive duration")
	}

	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}

	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be a positive duration")
	}

	if !c.Business.DefaultInterestRate.IsPositive() {
		return fmt.Errorf("DEFAULT_INTEREST_RATE must be greater than 0")
	}

	if !c.Business.MaxLoanAmount.IsPositive() {
		return fmt.Errorf("MAX_LOAN_AMOUNT must be greater than 0")
	}

	if !c.Business.MaxEntryAmount.IsPositive() || !utils.FitsCents(c.Business.MaxEntryAmount) {
		return fmt.Errorf("MAX_TRANSACTION_AMOUNT must be greater than 0 and fit in int64 cents")
	}

	if c.Business.MaxLoanAmount.GreaterThan(c.Business.MaxEntryAmount) {
		return fmt.Errorf("MAX_LOAN_AMOUNT must not exceed MAX_TRANSACTION_AMOUNT")
	}

	if c.Business.MinTenureMonths <= 0 || c.Business.MaxTenureMonths < c.Business.MinTenureMonths {
		return fmt.Errorf("tenure bounds must satisfy 0 < MIN_TENURE_MONTHS <= MAX_TENURE_MONTHS")
	}

	if c.Business.MaxActiveLoans <= 0 {
		return fmt.Errorf("MAX_ACTIVE_LOANS must be greater than 0")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	if c.Health.Timeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a positive duration")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetDefaultInterestRate returns the default interest rate as decimal
func (c *Config) GetDefaultInterestRate() decimal.Decimal {
	return c.Business.DefaultInterestRate
}

// GetSchedulerLocation returns the location cron schedules are evaluated in
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	return c.Health.Timeout
}

// Address returns the listen address of the HTTP server
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}
