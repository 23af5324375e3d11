// Package logger provides structured logging for ormtest using zerolog.
//
// Loggers are component scoped and accept map-based structured fields.
// Test code usually routes output through the running test with NewTest so
// that log lines only show up for failing or verbose tests.
//
// # Configuration
//
//	logging:
//	  level: "warn"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("session")
//	log.Debug("Flushed entities", map[string]interface{}{"inserted": 2})
package logger
