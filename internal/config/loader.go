package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. NLQUERY_QUERY_MAX_ROWS.
const EnvPrefix = "NLQUERY"

// envKeys lists the configuration keys that may be overridden from the environment.
// Viper only resolves AutomaticEnv for keys it already knows about, so they are bound explicitly.
var envKeys = []string{
	"server.listen",
	"server.read_header_timeout",
	"server.max_body_bytes",
	"databases.postgresql.dsn",
	"databases.postgresql.host",
	"databases.postgresql.port",
	"databases.postgresql.user",
	"databases.postgresql.password",
	"databases.postgresql.database",
	"databases.mysql.dsn",
	"databases.mysql.host",
	"databases.mysql.port",
	"databases.mysql.user",
	"databases.mysql.password",
	"databases.mysql.database",
	"databases.oracle.dsn",
	"databases.oracle.host",
	"databases.oracle.port",
	"databases.oracle.user",
	"databases.oracle.password",
	"databases.oracle.database",
	"query.max_rows",
	"query.timeout",
	"query.max_question_length",
	"query.default_dialect",
	"query.allow_set_operations",
	"query.mock_fallback",
	"llm.enabled",
	"llm.api_key",
	"llm.model",
	"llm.base_url",
	"llm.timeout",
	"rate_limit.requests",
	"rate_limit.window",
	"logging.level",
	"logging.format",
	"logging.output",
}

// Load reads configuration from the specified file path.
// An empty path skips the file and yields defaults plus environment overrides.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		// Read the config file
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		// BindEnv only fails when called without a key.
		_ = v.BindEnv(key)
	}
	return v
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns in secret-bearing fields.
func substituteEnvVars(cfg *Config) {
	for _, db := range []*DatabaseConfig{&cfg.Databases.Postgres, &cfg.Databases.MySQL, &cfg.Databases.Oracle} {
		db.DSN = expandEnvVar(db.DSN)
		db.Host = expandEnvVar(db.Host)
		db.User = expandEnvVar(db.User)
		db.Password = expandEnvVar(db.Password)
		db.Database = expandEnvVar(db.Database)
	}

	cfg.LLM.APIKey = expandEnvVar(cfg.LLM.APIKey)
	cfg.LLM.BaseURL = expandEnvVar(cfg.LLM.BaseURL)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, maxRows int, timeout time.Duration, disableLLM bool) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if maxRows > 0 {
		c.Query.MaxRows = maxRows
	}
	if timeout > 0 {
		c.Query.Timeout = timeout
	}
	if disableLLM {
		c.LLM.Enabled = false
	}
}
