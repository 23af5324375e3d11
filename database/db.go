package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/ormtest/errors"
	"github.com/kbukum/ormtest/logger"
)

// DB wraps a GORM database with ormtest logging.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// Dialector returns the GORM dialector for the configured driver.
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, apperrors.InvalidInput("driver", fmt.Sprintf("unsupported driver %q", cfg.Driver))
	}
}

// Open applies defaults, validates cfg and connects with retry logic.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithDialector(ctx, dialector, cfg, log)
}

// NewWithDialector creates a database connection using a provided dialector.
// The context allows cancellation of connection attempts during retries.
func NewWithDialector(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	gormLog := log.WithComponent("gorm")
	log = log.WithComponent("database")

	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger:         newGormLogger(gormLog, slowThreshold, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	var db *gorm.DB
	var err error

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("database connection canceled: %w", ctx.Err())
		}

		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
				err = pingErr
			} else {
				sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
				sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
				if lifetime, parseErr := time.ParseDuration(cfg.ConnMaxLifetime); parseErr == nil {
					sqlDB.SetConnMaxLifetime(lifetime)
				}

				log.Debug("Database connection established", map[string]interface{}{
					"driver":  cfg.Driver,
					"attempt": attempt,
				})
				return &DB{GormDB: db, log: log, cfg: cfg}, nil
			}
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(attempt) * 200 * time.Millisecond
			log.Warn("Database connection attempt failed, retrying", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
				"backoff": backoff.String(),
			})

			if waitErr := contextSleep(ctx, backoff); waitErr != nil {
				return nil, fmt.Errorf("database connection canceled during retry: %w", waitErr)
			}
		}
	}

	return nil, apperrors.ConnectionFailed(cfg.Driver).
		WithCause(fmt.Errorf("failed after %d attempts: %w", cfg.MaxRetries, err))
}

// contextSleep waits for the given duration or until context is canceled.
func contextSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Config returns the effective configuration (after defaults).
func (d *DB) Config() Config {
	return d.cfg
}

// Close closes the underlying sql.DB connection pool. Safe to call multiple times.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.log.Debug("Closing database connection")
	d.closed = true
	return sqlDB.Close()
}

// PingContext verifies the database connection is alive, respecting the context.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a GORM session scoped to the given context.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate runs GORM auto-migration for the given models.
func (d *DB) AutoMigrate(ctx context.Context, models ...interface{}) error {
	for _, model := range models {
		if err := d.GormDB.WithContext(ctx).AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	d.log.Debug("Auto-migration completed", map[string]interface{}{
		"models": len(models),
	})
	return nil
}

// TransactionFunc defines a function that runs within a transaction.
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction executes fn within a transaction with panic recovery.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx := d.GormDB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			d.log.Error("Transaction rolled back due to panic", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
