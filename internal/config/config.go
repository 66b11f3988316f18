package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultTokenLifetime is used when auth.token_lifetime is not set
	DefaultTokenLifetime = 24 * time.Hour
	// DefaultSessionSweepInterval is used when auth.session_sweep_interval is not set
	DefaultSessionSweepInterval = time.Hour
)

// Config holds the application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds the login throttling settings. Expiration is in seconds.
type RateLimitConfig struct {
	Max        int `yaml:"max"`
	Expiration int `yaml:"expiration"`
}

// AuthConfig holds auth-specific configuration
type AuthConfig struct {
	KeysPath             string `yaml:"keys_path"`
	ActiveKID            string `yaml:"active_kid"`
	TokenLifetime        string `yaml:"token_lifetime"`
	SessionSweepInterval string `yaml:"session_sweep_interval"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds redis-specific configuration. An empty Host disables Redis.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults fills in values that a partial config file leaves empty
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "penline"
	}
	if c.Auth.TokenLifetime == "" {
		c.Auth.TokenLifetime = DefaultTokenLifetime.String()
	}
	if c.Auth.SessionSweepInterval == "" {
		c.Auth.SessionSweepInterval = DefaultSessionSweepInterval.String()
	}
	if c.Server.RateLimit.Max == 0 {
		c.Server.RateLimit.Max = 20
	}
	if c.Server.RateLimit.Expiration == 0 {
		c.Server.RateLimit.Expiration = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Lifetime returns the configured token lifetime
func (a *AuthConfig) Lifetime() (time.Duration, error) {
	return parsePositiveDuration("auth.token_lifetime", a.TokenLifetime, DefaultTokenLifetime)
}

// SweepInterval returns how often expired sessions are purged. Zero disables the sweeper.
func (a *AuthConfig) SweepInterval() (time.Duration, error) {
	if strings.TrimSpace(a.SessionSweepInterval) == "0" {
		return 0, nil
	}
	return parsePositiveDuration("auth.session_sweep_interval", a.SessionSweepInterval, DefaultSessionSweepInterval)
}

func parsePositiveDuration(name, raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, raw)
	}
	return d, nil
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Enabled reports whether a Redis host is configured
func (r *RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Host) != ""
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := value == ""
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':' {
			continue
		}
		needsQuoting = true
		break
	}

	if !needsQuoting {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}

// URL returns the database connection URL in postgres:// format for golang-migrate
func (d *DatabaseConfig) URL() string {
	host := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     host,
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&search_path=public", url.QueryEscape(d.SSLMode)),
	}

	return u.String()
}
