package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateDatabase("databases.postgresql", &c.Databases.Postgres)...)
	errors = append(errors, c.validateDatabase("databases.mysql", &c.Databases.MySQL)...)
	errors = append(errors, c.validateDatabase("databases.oracle", &c.Databases.Oracle)...)
	errors = append(errors, c.validateQuery()...)
	errors = append(errors, c.validateLLM()...)
	errors = append(errors, c.validateRateLimit()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateServer() ValidationErrors {
	var errors ValidationErrors

	if c.Server.Listen == "" {
		errors = append(errors, ValidationError{
			Field:   "server.listen",
			Message: "listen address is required",
		})
	}

	if c.Server.MaxBodyBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.max_body_bytes",
			Message: "max_body_bytes must be positive",
		})
	}

	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		errors = append(errors, ValidationError{
			Field:   "server.trusted_proxies",
			Message: err.Error(),
		})
	}

	return errors
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	// Unconfigured backends are legal: requests for them use the mock responder.
	if !db.Configured() {
		return nil
	}

	if db.DSN == "" {
		if db.Port <= 0 || db.Port > 65535 {
			errors = append(errors, ValidationError{
				Field:   prefix + ".port",
				Message: "port must be between 1 and 65535",
			})
		}

		if db.User == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".user",
				Message: "user is required",
			})
		}

		if db.Database == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".database",
				Message: "database name is required",
			})
		}
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateQuery() ValidationErrors {
	var errors ValidationErrors

	if c.Query.MaxRows <= 0 {
		errors = append(errors, ValidationError{
			Field:   "query.max_rows",
			Message: "max_rows must be positive",
		})
	}

	if c.Query.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "query.timeout",
			Message: "timeout must be positive",
		})
	}

	if c.Query.MaxQuestionLength <= 0 {
		errors = append(errors, ValidationError{
			Field:   "query.max_question_length",
			Message: "max_question_length must be positive",
		})
	}

	validDialects := map[string]bool{"postgresql": true, "mysql": true, "oracle": true}
	if !validDialects[c.Query.DefaultDialect] {
		errors = append(errors, ValidationError{
			Field:   "query.default_dialect",
			Message: "default_dialect must be 'postgresql', 'mysql', or 'oracle'",
		})
	}

	return errors
}

func (c *Config) validateLLM() ValidationErrors {
	var errors ValidationErrors

	if !c.LLM.Enabled {
		return nil
	}

	if c.LLM.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.model",
			Message: "model is required when llm is enabled",
		})
	}

	if c.LLM.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout",
			Message: "timeout cannot be negative",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	return errors
}

func (c *Config) validateRateLimit() ValidationErrors {
	var errors ValidationErrors

	if c.RateLimit.Requests <= 0 {
		errors = append(errors, ValidationError{
			Field:   "rate_limit.requests",
			Message: "requests must be positive",
		})
	}

	if c.RateLimit.Window <= 0 {
		errors = append(errors, ValidationError{
			Field:   "rate_limit.window",
			Message: "window must be positive",
		})
	}

	if c.RateLimit.SweepInterval < 0 {
		errors = append(errors, ValidationError{
			Field:   "rate_limit.sweep_interval",
			Message: "sweep_interval cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
