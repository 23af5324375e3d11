package database

import (
	"fmt"
	"time"

	"github.com/kbukum/ormtest/validation"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database connection configuration.
type Config struct {
	// Driver selects the GORM dialector: "sqlite" or "postgres".
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`

	// DSN is the driver-specific connection string.
	DSN string `mapstructure:"dsn" validate:"required"`

	// MaxOpenConns sets the maximum number of open connections to the database.
	MaxOpenConns int `mapstructure:"max_open_conns" validate:"min=1"`

	// MaxIdleConns sets the maximum number of idle connections in the pool.
	MaxIdleConns int `mapstructure:"max_idle_conns" validate:"min=1,ltefield=MaxOpenConns"`

	// ConnMaxLifetime is the maximum time a connection may be reused (e.g. "1h").
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `mapstructure:"max_retries" validate:"min=1"`

	// LogLevel is GORM's log level: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=silent error warn info"`

	// SlowQueryThreshold is the duration above which queries are logged as slow (e.g. "200ms").
	SlowQueryThreshold string `mapstructure:"slow_query_threshold"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "1h"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid conn_max_lifetime %q: %w", c.ConnMaxLifetime, err)
	}
	if _, err := time.ParseDuration(c.SlowQueryThreshold); err != nil {
		return fmt.Errorf("invalid slow_query_threshold %q: %w", c.SlowQueryThreshold, err)
	}
	return nil
}
