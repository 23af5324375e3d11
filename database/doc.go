// Package database opens GORM connections for test suites.
//
// The driver is chosen by Config.Driver ("sqlite" or "postgres"). Opening
// retries with a context-aware backoff, GORM's own logging is routed through
// the zerolog-backed logger package, and driver errors are translated into
// GORM's portable errors (gorm.ErrDuplicatedKey and friends).
//
//	cfg := database.Config{Driver: "sqlite", DSN: "file:users?mode=memory&cache=shared"}
//	db, err := database.Open(ctx, cfg, logger.Get("database"))
//	if err != nil { ... }
//	defer db.Close()
//
// # Subpackages
//
//   - migration: file-based schema migrations using golang-migrate
//   - testutil: isolated in-memory test database component and table helpers
package database
