// Package config loads harness configuration from YAML files, .env files
// and environment variables.
//
// Loading is backed by Viper. A config file (ormtest.yml) and an env file
// (.env.test, then .env) are searched for in the working directory, its
// testdata directory and up to two parent directories. Environment
// variables win over file values; with a prefix set (LoadTestConfig uses
// ORMTEST) only prefixed variables are bound:
//
//	ORMTEST_DATABASE_DSN=file:test.db  ->  database.dsn
//
// Usage:
//
//	cfg, err := config.LoadTestConfig()
package config
