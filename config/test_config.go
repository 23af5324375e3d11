package config

import (
	"fmt"

	"github.com/kbukum/ormtest/database"
	"github.com/kbukum/ormtest/logger"
	"github.com/kbukum/ormtest/validation"
)

// DefaultName is the configuration name LoadTestConfig resolves
// (ormtest.yml) and the env prefix it binds (ORMTEST_).
const DefaultName = "ormtest"

// FixturesConfig controls database state reuse between tests.
type FixturesConfig struct {
	// CacheSchema creates the schema once and truncates on teardown.
	CacheSchema bool `yaml:"cache_schema" mapstructure:"cache_schema"`
	// CacheFixtures snapshots loaded fixtures and restores them instead of reloading.
	CacheFixtures bool `yaml:"cache_fixtures" mapstructure:"cache_fixtures"`
}

// TestConfig is the harness configuration.
type TestConfig struct {
	Database database.Config `yaml:"database" mapstructure:"database"`
	Logging  logger.Config   `yaml:"logging" mapstructure:"logging"`
	Fixtures FixturesConfig  `yaml:"fixtures" mapstructure:"fixtures"`
}

// ApplyDefaults fills zero values of nested sections.
func (c *TestConfig) ApplyDefaults() {
	c.Database.ApplyDefaults()
	c.Logging.ApplyDefaults()
}

// Validate checks every section and reports the first failing one.
func (c *TestConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("config.database: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// LoadTestConfig loads, defaults and validates the harness configuration.
// Without any file or environment input it yields an in-memory sqlite
// database with schema caching on and fixture caching off.
func LoadTestConfig(opts ...LoaderOption) (*TestConfig, error) {
	base := []LoaderOption{
		WithEnvPrefix(DefaultName),
		WithDefaults(map[string]interface{}{
			"database.driver":         database.DriverSQLite,
			"database.dsn":            "file::memory:?cache=shared",
			"fixtures.cache_schema":   true,
			"fixtures.cache_fixtures": false,
		}),
	}

	cfg := &TestConfig{}
	if err := LoadConfig(DefaultName, cfg, append(base, opts...)...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
