package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the account and device store configuration.
type DatabaseConfig struct {
	// Driver selects the store: postgres, sqlite or memory.
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// SessionConfig holds session registry configuration.
type SessionConfig struct {
	// Driver selects the registry: redis or memory.
	Driver    string
	KeyPrefix string
}

// JWTConfig holds access token configuration.
type JWTConfig struct {
	Issuer         string
	Secret         string
	AccessTokenTTL time.Duration
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// Argon2 parameters
	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32

	MinPasswordLength int
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	AllowedOrigins   []string
	RateLimitEnabled bool
	RateLimitRPS     int
	RateLimitBurst   int

	// AdminAPIKey guards the /admin routes. Empty disables them.
	AdminAPIKey string

	// TrustedProxies may set X-Forwarded-For / X-Real-IP. Empty trusts none,
	// so the client IP is the TCP peer.
	TrustedProxies []string
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level           string
	Environment     string
	ViewerEnabled   bool
	SQLiteDBPath    string
	AsyncBufferSize int
	RetentionDays   int
}

// Load loads configuration from environment variables.
//
// A .env file in the working directory and the YAML file named by CONFIG_FILE
// are consulted first; variables already present in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(path); err != nil {
			return nil, err
		}
	}

	return fromEnv(), nil
}

func fromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8000),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", DriverPostgres),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "auth"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "auth_devices"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "./data/auth_devices.db"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Session: SessionConfig{
			Driver:    getEnv("SESSION_DRIVER", DriverRedis),
			KeyPrefix: getEnv("SESSION_KEY_PREFIX", "session:"),
		},
		JWT: JWTConfig{
			Issuer:         getEnv("JWT_ISSUER", "my-auth-app"),
			Secret:         getEnv("JWT_SECRET_KEY", ""),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 1*time.Hour),
		},
		Auth: AuthConfig{
			// Argon2id recommended parameters (OWASP)
			Argon2Memory:      getEnvUint32("ARGON2_MEMORY", 64*1024), // 64 MB
			Argon2Iterations:  getEnvUint32("ARGON2_ITERATIONS", 3),
			Argon2Parallelism: getEnvUint8("ARGON2_PARALLELISM", 4),
			Argon2SaltLength:  getEnvUint32("ARGON2_SALT_LENGTH", 16),
			Argon2KeyLength:   getEnvUint32("ARGON2_KEY_LENGTH", 32),
			MinPasswordLength: getEnvInt("MIN_PASSWORD_LENGTH", 1),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			RateLimitRPS:     getEnvInt("RATE_LIMIT_RPS", 100),
			RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 200),
			AdminAPIKey:      getEnv("ADMIN_API_KEY", ""),
			TrustedProxies:   getEnvSlice("TRUSTED_PROXIES", nil),
		},
		Logging: LoggingConfig{
			Level:           getEnv("LOG_LEVEL", "info"),
			Environment:     getEnv("APP_ENV", "development"),
			ViewerEnabled:   getEnvBool("LOG_VIEWER_ENABLED", false),
			SQLiteDBPath:    getEnv("LOG_SQLITE_PATH", "./data/logs.db"),
			AsyncBufferSize: getEnvInt("LOG_BUFFER_SIZE", 1000),
			RetentionDays:   getEnvInt("LOG_RETENTION_DAYS", 7),
		},
	}
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY must be set")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.Database.Driver)
	}
	switch c.Session.Driver {
	case DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("unsupported SESSION_DRIVER: %s", c.Session.Driver)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// applyFile exports the keys of a flat YAML document as environment
// variables, leaving variables that are already set untouched.
func applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	for key, value := range values {
		key = strings.ToUpper(key)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		var s string
		switch v := value.(type) {
		case []any:
			parts := make([]string, 0, len(v))
			for _, p := range v {
				parts = append(parts, fmt.Sprint(p))
			}
			s = strings.Join(parts, ",")
		default:
			s = fmt.Sprint(v)
		}
		if err := os.Setenv(key, s); err != nil {
			return fmt.Errorf("failed to apply %s: %w", key, err)
		}
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint32(key string, defaultValue uint32) uint32 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint32(intValue)
		}
	}
	return defaultValue
}

func getEnvUint8(key string, defaultValue uint8) uint8 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 8); err == nil {
			return uint8(intValue)
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
