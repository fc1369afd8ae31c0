// Package config provides configuration structures and loading for nlquery.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Databases DatabasesConfig `yaml:"databases" mapstructure:"databases"`
	Query     QueryConfig     `yaml:"query" mapstructure:"query"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig represents the HTTP listener settings.
type ServerConfig struct {
	Listen            string        `yaml:"listen" mapstructure:"listen"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	AllowedOrigins    []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	// TrustedProxies lists the addresses (IP or CIDR) whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty means clients are keyed by
	// their connection address only.
	TrustedProxies []string `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare IP becomes a single-host prefix.
func (s ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// DatabasesConfig holds one optional backend per supported dialect.
// A backend with neither DSN nor Host is treated as not configured.
type DatabasesConfig struct {
	Postgres DatabaseConfig `yaml:"postgresql" mapstructure:"postgresql"`
	MySQL    DatabaseConfig `yaml:"mysql" mapstructure:"mysql"`
	Oracle   DatabaseConfig `yaml:"oracle" mapstructure:"oracle"`
}

// DatabaseConfig represents a single database connection configuration.
type DatabaseConfig struct {
	DSN                string `yaml:"dsn" mapstructure:"dsn"` // takes precedence over the discrete fields
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"` // service name for Oracle
	TLS                string `yaml:"tls" mapstructure:"tls"`           // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// Configured reports whether enough connection details are present to attempt a connection.
func (d DatabaseConfig) Configured() bool {
	return d.DSN != "" || d.Host != ""
}

// QueryConfig represents the safety limits applied to every request.
type QueryConfig struct {
	MaxRows            int           `yaml:"max_rows" mapstructure:"max_rows"`
	Timeout            time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxQuestionLength  int           `yaml:"max_question_length" mapstructure:"max_question_length"`
	DefaultDialect     string        `yaml:"default_dialect" mapstructure:"default_dialect"`
	AllowSetOperations bool          `yaml:"allow_set_operations" mapstructure:"allow_set_operations"`
	MockFallback       bool          `yaml:"mock_fallback" mapstructure:"mock_fallback"`
}

// LLMConfig represents the optional language-model SQL generator.
type LLMConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Model       string        `yaml:"model" mapstructure:"model"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
}

// Active reports whether the generator should be consulted.
func (l LLMConfig) Active() bool {
	return l.Enabled && l.APIKey != ""
}

// RateLimitConfig represents per-client admission control.
type RateLimitConfig struct {
	Requests      int           `yaml:"requests" mapstructure:"requests"`
	Window        time.Duration `yaml:"window" mapstructure:"window"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:            ":8000",
			ReadHeaderTimeout: 10 * time.Second,
			MaxBodyBytes:      16 << 10,
			AllowedOrigins:    []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		Databases: DatabasesConfig{
			Postgres: DatabaseConfig{
				Port:               5432,
				TLS:                "preferred",
				MaxConnections:     10,
				MaxIdleConnections: 5,
			},
			MySQL: DatabaseConfig{
				Port:               3306,
				TLS:                "preferred",
				MaxConnections:     10,
				MaxIdleConnections: 5,
			},
			Oracle: DatabaseConfig{
				Port:               1521,
				TLS:                "disable",
				MaxConnections:     10,
				MaxIdleConnections: 5,
			},
		},
		Query: QueryConfig{
			MaxRows:            1000,
			Timeout:            30 * time.Second,
			MaxQuestionLength:  1000,
			DefaultDialect:     "postgresql",
			AllowSetOperations: false,
			MockFallback:       true,
		},
		LLM: LLMConfig{
			Enabled:     true,
			Model:       "gpt-4",
			Timeout:     20 * time.Second,
			Temperature: 0.1,
		},
		RateLimit: RateLimitConfig{
			Requests:      10,
			Window:        time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Database returns the backend configuration registered under a dialect name.
// The second return value is false for unknown names.
func (c *Config) Database(name string) (DatabaseConfig, bool) {
	switch name {
	case "postgresql":
		return c.Databases.Postgres, true
	case "mysql":
		return c.Databases.MySQL, true
	case "oracle":
		return c.Databases.Oracle, true
	default:
		return DatabaseConfig{}, false
	}
}
