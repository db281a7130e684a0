package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port        int
	Environment string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	UsersTable string
	TasksTable string

	TLS       bool
	TLSVerify bool

	ConnectTimeout   time.Duration
	ConnectAttempts  int
	ConnectBaseDelay time.Duration
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type RateLimitConfig struct {
	// Auth is the per-IP rate for /auth routes in limiter format ("20-M").
	// Empty disables.
	Auth string
}

type LogConfig struct {
	Level string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvInt("SERVER_PORT", 8080),
			Environment: getEnv("APP_ENV", "development"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnvInt("DB_PORT", 3306),
			User:             getEnv("DB_USER", "todo"),
			Password:         getEnv("DB_PASSWORD", ""),
			Name:             getEnv("DB_NAME", "todoapp"),
			UsersTable:       getEnv("DB_USERS_TABLE", "users"),
			TasksTable:       getEnv("DB_TASKS_TABLE", "tasks"),
			TLS:              getEnvBool("DB_TLS", false),
			TLSVerify:        getEnvBool("DB_TLS_VERIFY", true),
			ConnectTimeout:   getEnvDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
			ConnectAttempts:  getEnvInt("DB_CONNECT_ATTEMPTS", 10),
			ConnectBaseDelay: getEnvDuration("DB_CONNECT_BASE_DELAY", 1500*time.Millisecond),
		},
		JWT: JWTConfig{
			Secret: strings.TrimSpace(os.Getenv("JWT_SECRET")),
			TTL:    getEnvDuration("JWT_TTL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			Auth: getEnv("RATE_LIMIT_AUTH", "20-M"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Validate reports startup-class misconfiguration.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	for key, name := range map[string]string{
		"DB_NAME":        c.Database.Name,
		"DB_USERS_TABLE": c.Database.UsersTable,
		"DB_TASKS_TABLE": c.Database.TasksTable,
	} {
		if !identifierRegex.MatchString(name) {
			errs = append(errs, fmt.Errorf("%s must match [A-Za-z0-9_]+, got %q", key, name))
		}
	}
	if c.Database.ConnectAttempts < 1 {
		errs = append(errs, errors.New("DB_CONNECT_ATTEMPTS must be at least 1"))
	}
	if c.Database.ConnectBaseDelay <= 0 {
		errs = append(errs, errors.New("DB_CONNECT_BASE_DELAY must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvDuration accepts Go durations ("1.5s") and bare seconds ("30").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
