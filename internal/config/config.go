package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Backend  string
	Database DatabaseConfig
	SQLite   SQLiteConfig
	Auth     AuthConfig
	Budget   BudgetConfig
	AMQP     AMQPConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type SQLiteConfig struct {
	Path string
}

type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	AccessTokenTTL     time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

type BudgetConfig struct {
	DefaultAverageMonths int
	MaxAverageMonths     int
	CacheSize            int
	CacheTTL             time.Duration
}

// AMQPConfig is optional; an empty URL disables event fan-out.
type AMQPConfig struct {
	URL      string
	Exchange string
}

func (c AMQPConfig) Enabled() bool {
	return c.URL != ""
}

// Load reads the application configuration from the environment and .env.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")
	cfg.Backend = strings.ToLower(getEnv("DATA_BACKEND", BackendPostgres))

	serverPort, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return cfg, err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return cfg, err
	}

	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return cfg, err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.Server = ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         serverPort,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		CORSOrigins:  parseCSVEnv("CORS_ALLOWED_ORIGINS"),
	}

	dbPort, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return cfg, err
	}

	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return cfg, err
	}

	maxIdleConns, err := parseIntEnv("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return cfg, err
	}

	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return cfg, err
	}

	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return cfg, err
	}

	autoMigrate, err := parseBoolEnv("DB_AUTO_MIGRATE", true)
	if err != nil {
		return cfg, err
	}

	cfg.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "budget"),
		Password:        getEnv("DB_PASSWORD", "budget"),
		Name:            getEnv("DB_NAME", "budget_tracker"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
		AutoMigrate:     autoMigrate,
	}

	cfg.SQLite = SQLiteConfig{
		Path: getEnv("SQLITE_DB_PATH", "./data/budget.db"),
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return cfg, err
	}

	rateLimitPerMinute, err := parseIntEnv("API_RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return cfg, err
	}

	rateLimitBurst, err := parseIntEnv("API_RATE_LIMIT_BURST", 20)
	if err != nil {
		return cfg, err
	}

	cfg.Auth = AuthConfig{
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "budget-tracker"),
		AccessTokenTTL:     accessTTL,
		RateLimitPerMinute: rateLimitPerMinute,
		RateLimitBurst:     rateLimitBurst,
	}

	defaultAverageMonths, err := parseIntEnv("BUDGET_DEFAULT_AVERAGE_MONTHS", 3)
	if err != nil {
		return cfg, err
	}

	maxAverageMonths, err := parseIntEnv("BUDGET_MAX_AVERAGE_MONTHS", 24)
	if err != nil {
		return cfg, err
	}

	cacheSize, err := parseIntEnv("BUDGET_CACHE_SIZE", 512)
	if err != nil {
		return cfg, err
	}

	cacheTTL, err := parseDurationEnv("BUDGET_CACHE_TTL", 30*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.Budget = BudgetConfig{
		DefaultAverageMonths: defaultAverageMonths,
		MaxAverageMonths:     maxAverageMonths,
		CacheSize:            cacheSize,
		CacheTTL:             cacheTTL,
	}

	cfg.AMQP = AMQPConfig{
		URL:      getEnv("AMQP_URL", ""),
		Exchange: getEnv("AMQP_EXCHANGE", "budget.events"),
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	switch c.Backend {
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}

		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}

		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}

		if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
			return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_DB_PATH is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("DATA_BACKEND must be one of postgres, sqlite, memory")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be greater than 0")
	}

	if c.Auth.RateLimitPerMinute <= 0 {
		return fmt.Errorf("API_RATE_LIMIT_PER_MINUTE must be greater than 0")
	}

	if c.Auth.RateLimitBurst <= 0 {
		return fmt.Errorf("API_RATE_LIMIT_BURST must be greater than 0")
	}

	if c.Budget.DefaultAverageMonths > c.Budget.MaxAverageMonths {
		return fmt.Errorf("BUDGET_DEFAULT_AVERAGE_MONTHS cannot exceed BUDGET_MAX_AVERAGE_MONTHS")
	}

	if c.AMQP.Enabled() && c.AMQP.Exchange == "" {
		return fmt.Errorf("AMQP_EXCHANGE is required when AMQP_URL is set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseCSVEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
