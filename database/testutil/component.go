package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/ormtest/component"
	"github.com/kbukum/ormtest/database"
	"github.com/kbukum/ormtest/logger"
	"github.com/kbukum/ormtest/testutil"
)

var _ component.Component = (*Component)(nil)
var _ testutil.TestComponent = (*Component)(nil)

// Component is a test database. By default it opens a private in-memory
// SQLite database.
type Component struct {
	cfg     database.Config
	log     *logger.Logger
	db      *database.DB
	models  []interface{}
	started bool
	mu      sync.RWMutex
}

// NewComponent creates a test database component backed by a fresh
// in-memory SQLite database.
func NewComponent() *Component {
	return &Component{
		cfg: MemoryConfig(),
		log: logger.Nop(),
	}
}

// MemoryConfig returns a config for a uniquely named in-memory SQLite
// database. A single connection keeps the shared-cache database free of
// table lock contention.
func MemoryConfig() database.Config {
	return database.Config{
		Driver:       database.DriverSQLite,
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// WithConfig replaces the connection config, e.g. to target PostgreSQL.
func (c *Component) WithConfig(cfg database.Config) *Component {
	c.cfg = cfg
	return c
}

// WithLogger sets the logger handed to the database layer.
func (c *Component) WithLogger(log *logger.Logger) *Component {
	c.log = log
	return c
}

// WithModels registers models for auto-migration on Start.
func (c *Component) WithModels(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB returns the underlying *gorm.DB, or nil if not started.
func (c *Component) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil
	}
	return c.db.GormDB
}

// Database returns the database wrapper, or nil if not started.
func (c *Component) Database() *database.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Name returns the component name.
func (c *Component) Name() string {
	return "database-test"
}

// Start opens the database and migrates registered models.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("component already started")
	}

	db, err := database.Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("failed to open test database: %w", err)
	}

	if len(c.models) > 0 {
		if err := db.AutoMigrate(ctx, c.models...); err != nil {
			_ = db.Close()
			return fmt.Errorf("auto-migrate failed: %w", err)
		}
	}

	c.db = db
	c.started = true
	return nil
}

// Stop closes the database connection.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.db == nil {
		return nil
	}

	c.started = false
	return c.db.Close()
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started || c.db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not started",
		}
	}

	if err := c.db.PingContext(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}

	return component.Health{
		Name:   c.Name(),
		Status: component.StatusHealthy,
	}
}

// Reset clears all data from all tables while preserving the schema.
func (c *Component) Reset(ctx context.Context) error {
	db, err := c.startedDB()
	if err != nil {
		return err
	}
	return TruncateAllTables(db.WithContext(ctx))
}

// Snapshot captures the rows of every table as a Snapshot.
func (c *Component) Snapshot(ctx context.Context) (interface{}, error) {
	db, err := c.startedDB()
	if err != nil {
		return nil, err
	}
	return SnapshotTables(db.WithContext(ctx))
}

// Restore returns the database to a state captured by Snapshot.
func (c *Component) Restore(ctx context.Context, snap interface{}) error {
	db, err := c.startedDB()
	if err != nil {
		return err
	}

	snapshot, ok := snap.(Snapshot)
	if !ok {
		return fmt.Errorf("invalid snapshot type: expected testutil.Snapshot, got %T", snap)
	}
	return RestoreTables(db.WithContext(ctx), snapshot)
}

func (c *Component) startedDB() (*gorm.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.started || c.db == nil {
		return nil, fmt.Errorf("component not started")
	}
	return c.db.GormDB, nil
}
