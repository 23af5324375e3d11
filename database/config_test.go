package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kbukum/ormtest/errors"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 2, cfg.MaxIdleConns)
	assert.Equal(t, "1h", cfg.ConnMaxLifetime)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "200ms", cfg.SlowQueryThreshold)
}

func TestConfig_ApplyDefaults_ClampsIdle(t *testing.T) {
	cfg := Config{MaxOpenConns: 1, MaxIdleConns: 4}
	cfg.ApplyDefaults()
	assert.Equal(t, 1, cfg.MaxIdleConns)
}

func TestConfig_ApplyDefaults_KeepsValues(t *testing.T) {
	cfg := Config{Driver: DriverPostgres, MaxOpenConns: 50, MaxIdleConns: 10, MaxRetries: 7}
	cfg.ApplyDefaults()
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, 50, cfg.MaxOpenConns)
	assert.Equal(t, 10, cfg.MaxIdleConns)
	assert.Equal(t, 7, cfg.MaxRetries)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := Config{DSN: "file:x?mode=memory"}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing dsn", func(c *Config) { c.DSN = "" }, "dsn: is required"},
		{"unknown driver", func(c *Config) { c.Driver = "oracle" }, "driver: must be one of"},
		{"idle above open", func(c *Config) { c.MaxIdleConns = c.MaxOpenConns + 1 }, "max_idle_conns"},
		{"bad lifetime", func(c *Config) { c.ConnMaxLifetime = "forever" }, "conn_max_lifetime"},
		{"bad threshold", func(c *Config) { c.SlowQueryThreshold = "slow" }, "slow_query_threshold"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector(Config{Driver: "oracle"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}
