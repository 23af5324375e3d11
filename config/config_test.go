package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/ormtest/database"
	apperrors "github.com/kbukum/ormtest/errors"
)

type fakeFS struct {
	files  map[string]bool
	loaded []string
}

func (f *fakeFS) Exists(path string) bool { return f.files[path] }

func (f *fakeFS) LoadEnv(path string) error {
	f.loaded = append(f.loaded, path)
	return nil
}

func TestResolveFiles_SearchOrder(t *testing.T) {
	fs := &fakeFS{files: map[string]bool{
		"../ormtest.yml":         true,
		"./testdata/ormtest.yml": true,
		"../.env":                true,
		"../../.env.test":        true,
	}}
	r := &Resolver{FileSystem: fs}

	files := r.ResolveFiles("ormtest", LoaderConfig{})
	assert.Equal(t, "./testdata/ormtest.yml", files.ConfigFile)
	assert.Equal(t, "../../.env.test", files.EnvFile)
}

func TestResolveFiles_ExplicitPathsWin(t *testing.T) {
	r := &Resolver{FileSystem: &fakeFS{files: map[string]bool{"./ormtest.yml": true}}}

	files := r.ResolveFiles("ormtest", LoaderConfig{ConfigFile: "custom.yml", EnvFile: "custom.env"})
	assert.Equal(t, "custom.yml", files.ConfigFile)
	assert.Equal(t, "custom.env", files.EnvFile)
}

func TestResolveFiles_NothingFound(t *testing.T) {
	r := &Resolver{FileSystem: &fakeFS{}}

	files := r.ResolveFiles("ormtest", LoaderConfig{})
	assert.Empty(t, files.ConfigFile)
	assert.Empty(t, files.EnvFile)
}

func TestEnvKeyVariants(t *testing.T) {
	variants := envKeyVariants("DATABASE_MAX_OPEN_CONNS")
	assert.Contains(t, variants, "database.max_open_conns")
	assert.Contains(t, variants, "database.max.open.conns")
	assert.Contains(t, variants, "database_max_open_conns")

	assert.Equal(t, []string{"debug"}, envKeyVariants("DEBUG"))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_YAMLAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yml", `
database:
  driver: postgres
  dsn: "host=localhost dbname=test"
`)

	var cfg TestConfig
	err := LoadConfig("app", &cfg,
		WithConfigFile(path),
		WithEnvFile(filepath.Join(dir, "missing.env")),
		WithEnvPrefix("APPTEST"),
		WithDefaults(map[string]interface{}{"fixtures.cache_schema": true}),
	)
	require.NoError(t, err)

	assert.Equal(t, database.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=localhost dbname=test", cfg.Database.DSN)
	assert.True(t, cfg.Fixtures.CacheSchema)
	assert.False(t, cfg.Fixtures.CacheFixtures)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yml", `
database:
  dsn: from-file
  max_open_conns: 4
`)
	t.Setenv("APPTEST_DATABASE_DSN", "from-env")
	t.Setenv("APPTEST_DATABASE_MAX_OPEN_CONNS", "7")
	t.Setenv("APPTEST_FIXTURES_CACHE_FIXTURES", "true")

	var cfg TestConfig
	err := LoadConfig("app", &cfg,
		WithConfigFile(path),
		WithEnvFile(filepath.Join(dir, "missing.env")),
		WithEnvPrefix("APPTEST"),
	)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.DSN)
	assert.Equal(t, 7, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Fixtures.CacheFixtures)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env.test", "APPENV_DATABASE_DSN=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("APPENV_DATABASE_DSN") })

	var cfg TestConfig
	err := LoadConfig("app", &cfg,
		WithConfigFile(filepath.Join(dir, "missing.yml")),
		WithEnvFile(envPath),
		WithEnvPrefix("APPENV"),
	)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Database.DSN)
}

func TestLoadConfig_BrokenYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yml", "database: [unterminated\n")

	var cfg TestConfig
	err := LoadConfig("app", &cfg, WithConfigFile(path), WithEnvPrefix("APPTEST"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadTestConfig_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadTestConfig(
		WithConfigFile(filepath.Join(dir, "none.yml")),
		WithEnvFile(filepath.Join(dir, "none.env")),
	)
	require.NoError(t, err)

	assert.Equal(t, database.DriverSQLite, cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.DSN)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Fixtures.CacheSchema)
	assert.False(t, cfg.Fixtures.CacheFixtures)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadTestConfig_InvalidDriver(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ORMTEST_DATABASE_DRIVER", "oracle")

	_, err := LoadTestConfig(
		WithConfigFile(filepath.Join(dir, "none.yml")),
		WithEnvFile(filepath.Join(dir, "none.env")),
	)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}
