package ormtest

import (
	"context"
	"fmt"

	"github.com/kbukum/ormtest/config"
	"github.com/kbukum/ormtest/database"
	dbtestutil "github.com/kbukum/ormtest/database/testutil"
	"github.com/kbukum/ormtest/logger"
	"github.com/kbukum/ormtest/session"
	"github.com/kbukum/ormtest/testutil"
)

// loggedComponents are the component loggers Open registers from
// cfg.Logging.
var loggedComponents = []string{"ormtest", "session", "database", "testutil"}

// Environment is a database, a session over it and a helper, all built
// from one TestConfig. The database runs as a test component, so Reset and
// Close go through the component lifecycle.
type Environment struct {
	DB      *database.DB
	Session *session.EntityManager
	Helper  *OperationsHelper
	Log     *logger.Logger

	components *testutil.Manager
}

// Open connects to cfg.Database and wires a session and a helper whose
// cache toggles come from cfg.Fixtures. opts are applied to the helper.
func Open(ctx context.Context, cfg *config.TestConfig, opts ...Option) (*Environment, error) {
	logger.RegisterComponents(logger.New(&cfg.Logging), loggedComponents...)
	log := logger.Get("ormtest")

	store := dbtestutil.NewComponent().
		WithConfig(cfg.Database).
		WithLogger(logger.Get("database"))
	components := testutil.NewManager()
	components.Add(store)
	if err := components.StartAll(ctx); err != nil {
		return nil, err
	}

	db := store.Database()
	helperOpts := append([]Option{WithLogger(log)}, opts...)
	return &Environment{
		DB:         db,
		Session:    session.New(db.GormDB, session.WithLogger(logger.Get("session"))),
		Helper:     NewOperationsHelperFromConfig(cfg, helperOpts...),
		Log:        log,
		components: components,
	}, nil
}

// Reset clears the session and empties every table, keeping the schema.
func (e *Environment) Reset(ctx context.Context) error {
	e.Session.Clear()
	if err := e.components.ResetAll(ctx); err != nil {
		return fmt.Errorf("reset environment: %w", err)
	}
	return nil
}

// Close stops the database component.
func (e *Environment) Close() error {
	return e.components.StopAll(context.Background())
}
