package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Agent     AgentConfig
	Sync      SyncConfig
	Reconcile ReconcileConfig
	Anomaly   AnomalyConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name           string
	Version        string
	Port           int
	Env            string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	// URL takes precedence over the individual fields when set.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// JWTConfig holds operator token configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AgentConfig authenticates the collector agent. KeyHash is a bcrypt hash and
// wins over the plain Key.
type AgentConfig struct {
	Key       string
	KeyHash   string
	RateLimit float64
	Burst     int

	// MaxBodyBytes caps a done report, punches included.
	MaxBodyBytes int64
}

type SyncConfig struct {
	DefaultDays         int
	RunDeadline         time.Duration
	JanitorInterval     time.Duration
	JanitorThreshold    time.Duration
	AutoRequestInterval time.Duration
	Workers             int
	HeartbeatTTL        time.Duration
	InactivityDays      int
	ScheduleCacheTTL    time.Duration
}

type ReconcileConfig struct {
	DuplicateWindow time.Duration
	LunchThreshold  time.Duration
	MaxDailyHours   float64
	NightStart      string
	NightEnd        string
	PartialFraction float64
	MorningCutoff   string
	EveningCutoff   string
}

type AnomalyConfig struct {
	BreakAllowance time.Duration
	LateToAbsence  int
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

// Load reads the environment, after applying an optional .env file.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	p := &parser{}
	config := &Config{}

	config.App = AppConfig{
		Name:           getEnv("APP_NAME", "attendance-engine"),
		Version:        getEnv("APP_VERSION", "dev"),
		Port:           p.int("APP_PORT", 8080),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "America/Mexico_City"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
	}

	config.Database = DatabaseConfig{
		URL:      getEnv("DATABASE_URL", ""),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     p.int("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: p.int("DB_MAX_CONNS", 25),
		MinConns: p.int("DB_MIN_CONNS", 2),
	}

	config.JWT = p.jwt()

	config.Agent = AgentConfig{
		Key:       getEnv("AGENT_KEY", ""),
		KeyHash:   getEnv("AGENT_KEY_HASH", ""),
		RateLimit: p.float("AGENT_RATE_LIMIT", 2),
		Burst:     p.int("AGENT_RATE_BURST", 10),

		MaxBodyBytes: int64(p.int("AGENT_MAX_BODY_BYTES", 32<<20)),
	}

	config.Sync = SyncConfig{
		DefaultDays:         p.int("SYNC_DEFAULT_DAYS", 7),
		RunDeadline:         p.duration("SYNC_RUN_DEADLINE", 20*time.Minute),
		JanitorInterval:     p.duration("SYNC_JANITOR_INTERVAL", time.Hour),
		JanitorThreshold:    p.duration("SYNC_JANITOR_THRESHOLD", 30*time.Minute),
		AutoRequestInterval: p.duration("SYNC_AUTO_REQUEST_INTERVAL", 0),
		Workers:             p.int("SYNC_WORKERS", 4),
		HeartbeatTTL:        p.duration("SYNC_HEARTBEAT_TTL", 10*time.Minute),
		InactivityDays:      p.int("SYNC_INACTIVITY_DAYS", 60),
		ScheduleCacheTTL:    p.duration("SYNC_SCHEDULE_CACHE_TTL", 5*time.Minute),
	}

	config.Reconcile = ReconcileConfig{
		DuplicateWindow: p.duration("RECONCILE_DUPLICATE_WINDOW", 5*time.Minute),
		LunchThreshold:  p.duration("RECONCILE_LUNCH_THRESHOLD", 30*time.Minute),
		MaxDailyHours:   p.float("RECONCILE_MAX_DAILY_HOURS", 16),
		NightStart:      getEnv("RECONCILE_NIGHT_START", "22:00"),
		NightEnd:        getEnv("RECONCILE_NIGHT_END", "06:00"),
		PartialFraction: p.float("RECONCILE_PARTIAL_FRACTION", 0.5),
		MorningCutoff:   getEnv("RECONCILE_MORNING_CUTOFF", "06:00"),
		EveningCutoff:   getEnv("RECONCILE_EVENING_CUTOFF", "20:00"),
	}

	config.Anomaly = AnomalyConfig{
		BreakAllowance: p.duration("ANOMALY_BREAK_ALLOWANCE", 15*time.Minute),
		LateToAbsence:  p.int("LATE_TO_ABSENCE_COUNT", 6),
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadJWT reads only the operator token settings.
func LoadJWT() (JWTConfig, error) {
	if err := loadDotEnv(); err != nil {
		return JWTConfig{}, err
	}
	p := &parser{}
	cfg := p.jwt()
	if len(p.errs) > 0 {
		return JWTConfig{}, errors.Join(p.errs...)
	}
	return cfg, cfg.Validate()
}

func (c JWTConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.AccessExpiration <= 0 {
		return fmt.Errorf("JWT_ACCESS_EXPIRATION_TIME must be positive")
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD or DATABASE_URL is required")
	}
	if err := c.JWT.Validate(); err != nil {
		return err
	}
	if c.Agent.Key == "" && c.Agent.KeyHash == "" {
		return fmt.Errorf("AGENT_KEY or AGENT_KEY_HASH is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	if c.Sync.DefaultDays < 1 || c.Sync.DefaultDays > 90 {
		return fmt.Errorf("SYNC_DEFAULT_DAYS must be between 1 and 90")
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("SYNC_WORKERS must be at least 1")
	}
	if c.Sync.JanitorInterval <= 0 || c.Sync.JanitorThreshold <= 0 {
		return fmt.Errorf("SYNC_JANITOR_INTERVAL and SYNC_JANITOR_THRESHOLD must be positive")
	}
	// The janitor must not fail a run that is still inside its deadline.
	if c.Sync.RunDeadline <= 0 || c.Sync.RunDeadline >= c.Sync.JanitorThreshold {
		return fmt.Errorf("SYNC_RUN_DEADLINE (%s) must be positive and shorter than SYNC_JANITOR_THRESHOLD (%s)",
			c.Sync.RunDeadline, c.Sync.JanitorThreshold)
	}
	if c.Agent.MaxBodyBytes <= 0 {
		return fmt.Errorf("AGENT_MAX_BODY_BYTES must be positive")
	}
	if c.Reconcile.PartialFraction <= 0 || c.Reconcile.PartialFraction > 1 {
		return fmt.Errorf("RECONCILE_PARTIAL_FRACTION must be in (0, 1]")
	}
	if c.Reconcile.MaxDailyHours <= 0 || c.Reconcile.MaxDailyHours > 24 {
		return fmt.Errorf("RECONCILE_MAX_DAILY_HOURS must be in (0, 24]")
	}
	if c.Anomaly.BreakAllowance < 0 {
		return fmt.Errorf("ANOMALY_BREAK_ALLOWANCE must not be negative")
	}
	if c.Anomaly.LateToAbsence < 1 {
		return fmt.Errorf("LATE_TO_ABSENCE_COUNT must be at least 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

// Location returns the configured business timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		slog.Warn("Falling back to UTC", "timezone", c.App.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// parser collects conversion errors so every bad variable is reported at once.
type parser struct {
	errs []error
}

func (p *parser) jwt() JWTConfig {
	return JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: p.duration("JWT_ACCESS_EXPIRATION_TIME", time.Hour),
	}
}

func (p *parser) int(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return f
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}
