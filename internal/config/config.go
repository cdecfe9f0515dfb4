package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Store backend names.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMariaDB  = "mariadb"
	BackendBadger   = "badger"
)

// Matcher implementations.
const (
	MatcherLinear = "linear"
	MatcherHNSW   = "hnsw"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Matching MatchingConfig `yaml:"matching"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // origins allowed for CORS and websocket upgrades
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StoreConfig struct {
	Backend      string `yaml:"backend"`
	DatabaseURL  string `yaml:"database_url"`   // PostgreSQL connection URL
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
	MariaDBDSN   string `yaml:"mariadb_dsn"`    // e.g. faceauth:faceauth@tcp(mariadb:3306)/faceauth
	BadgerDir    string `yaml:"badger_dir"`     // directory for the embedded store
}

type MatchingConfig struct {
	Dimension   int    `yaml:"dimension"` // embedding length every record must have
	Matcher     string `yaml:"matcher"`
	HNSWSearchK int    `yaml:"hnsw_search_k"`
}

type AuthConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second per connection, 0 disables
	RateBurst       int           `yaml:"rate_burst"`
	MaxMessageBytes int64         `yaml:"max_message_bytes"`
	PingInterval    time.Duration `yaml:"ping_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a non-negative float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated list, dropping empty entries.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the configuration from the embedded defaults file without
// environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load builds the configuration from embedded defaults and environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	cfg.Server.Host = envString("WEB_HOST", cfg.Server.Host)
	cfg.Server.Port = envInt("WEB_PORT", cfg.Server.Port)
	cfg.Server.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Store.Backend = strings.ToLower(envString("STORE_BACKEND", cfg.Store.Backend))
	cfg.Store.DatabaseURL = envString("DATABASE_URL", cfg.Store.DatabaseURL)
	cfg.Store.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Store.MaxOpenConns)
	cfg.Store.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Store.MaxIdleConns)
	cfg.Store.MariaDBDSN = envString("MARIADB_DSN", cfg.Store.MariaDBDSN)
	cfg.Store.BadgerDir = envString("BADGER_DIR", cfg.Store.BadgerDir)

	cfg.Matching.Dimension = envInt("FACE_EMBEDDING_DIM", cfg.Matching.Dimension)
	cfg.Matching.Matcher = strings.ToLower(envString("MATCHER", cfg.Matching.Matcher))
	cfg.Matching.HNSWSearchK = envInt("HNSW_SEARCH_K", cfg.Matching.HNSWSearchK)

	cfg.Auth.Timeout = envDuration("AUTH_TIMEOUT", cfg.Auth.Timeout)
	cfg.Auth.RateLimit = envFloat("AUTH_RATE_LIMIT", cfg.Auth.RateLimit)
	cfg.Auth.RateBurst = envInt("AUTH_RATE_BURST", cfg.Auth.RateBurst)
	cfg.Auth.MaxMessageBytes = int64(envInt("WS_MAX_MESSAGE_BYTES", int(cfg.Auth.MaxMessageBytes)))
	cfg.Auth.PingInterval = envDuration("WS_PING_INTERVAL", cfg.Auth.PingInterval)

	cfg.Log.Level = envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envString("LOG_FORMAT", cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend and matcher are usable.
func (c *Config) Validate() error {
	if c.Matching.Dimension <= 0 {
		return errors.New("FACE_EMBEDDING_DIM must be positive")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is required for the postgres backend")
		}
	case BackendMariaDB:
		if c.Store.MariaDBDSN == "" {
			return errors.New("MARIADB_DSN environment variable is required for the mariadb backend")
		}
	case BackendBadger:
		if c.Store.BadgerDir == "" {
			return errors.New("BADGER_DIR environment variable is required for the badger backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Matching.Matcher {
	case MatcherLinear, MatcherHNSW:
	default:
		return fmt.Errorf("unknown matcher %q", c.Matching.Matcher)
	}

	return nil
}
