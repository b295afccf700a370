package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName          string        `env:"DB_NAME" envDefault:"taskhub"`
	SSLMode         string        `env:"DB_SSL_MODE" envDefault:"disable"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	LogLevel        string        `env:"DB_LOG_LEVEL" envDefault:"warn"`
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GormLogLevel maps DB_LOG_LEVEL onto the gorm logger levels
func (c *DBConfig) GormLogLevel() logger.LogLevel {
	switch c.LogLevel {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Env             string        `env:"APP_ENV" envDefault:"development"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string `env:"JWT_SIGNING_KEY" envDefault:"taskhubsecretkey"`
	ExpirationHours int    `env:"JWT_EXPIRATION_HOURS" envDefault:"24"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Version string `env:"APP_VERSION" envDefault:"1.0.0"`
}

// RedisConfig configures the shared tenant cache. An empty Addr keeps the cache in process.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
}

// SecurityConfig holds credential and abuse-protection settings
type SecurityConfig struct {
	BcryptCost     int     `env:"BCRYPT_COST" envDefault:"10"`
	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
	LoginRateBurst int     `env:"LOGIN_RATE_BURST" envDefault:"10"`
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	WriteTimeout time.Duration `env:"AUDIT_WRITE_TIMEOUT" envDefault:"5s"`
}

// SuperAdminConfig seeds the platform operator account on startup
type SuperAdminConfig struct {
	Email    string `env:"SUPER_ADMIN_EMAIL"`
	Password string `env:"SUPER_ADMIN_PASSWORD"`
	FullName string `env:"SUPER_ADMIN_FULL_NAME" envDefault:"Super Admin"`
}

// Config holds all configuration
type Config struct {
	DB         DBConfig
	Server     ServerConfig
	JWT        JWTConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Redis      RedisConfig
	Security   SecurityConfig
	Audit      AuditConfig
	SuperAdmin SuperAdminConfig
}

// Load loads configuration from an optional .env file and the environment
func Load() (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}
	return Parse()
}

// Parse reads the environment into a Config
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.JWT.ExpirationHours <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", cfg.JWT.ExpirationHours)
	}
	return &cfg, nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_user", c.DB.User),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.Bool("redis_cache", c.Redis.Addr != ""),
	}
}
