package ormtest

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/kbukum/ormtest/config"
	dbtestutil "github.com/kbukum/ormtest/database/testutil"
	apperrors "github.com/kbukum/ormtest/errors"
	"github.com/kbukum/ormtest/logger"
	"github.com/kbukum/ormtest/observability"
)

const instrumentationName = "github.com/kbukum/ormtest"

// OperationsHelper prepares the database around each test: schema
// creation, fixture loading and cleanup, with optional caching of both.
type OperationsHelper struct {
	schema        Schema
	cacheSchema   bool
	cacheFixtures bool
	cache         *Cache
	log           *logger.Logger
	metrics       *observability.Metrics
}

// Option configures an OperationsHelper.
type Option func(*OperationsHelper)

// WithSchema sets the schema to create and drop. Without one the schema
// is managed elsewhere and the helper only truncates tables.
func WithSchema(schema Schema) Option {
	return func(h *OperationsHelper) { h.schema = schema }
}

// WithSchemaCache toggles creating the schema once and truncating between
// tests instead of dropping and recreating it. Default on.
func WithSchemaCache(enabled bool) Option {
	return func(h *OperationsHelper) { h.cacheSchema = enabled }
}

// WithFixtureCache toggles snapshotting loaded fixtures and restoring the
// snapshot on later setups instead of running the loaders. Default off.
func WithFixtureCache(enabled bool) Option {
	return func(h *OperationsHelper) { h.cacheFixtures = enabled }
}

// WithCache shares memoized state with other helpers.
func WithCache(cache *Cache) Option {
	return func(h *OperationsHelper) {
		if cache != nil {
			h.cache = cache
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(h *OperationsHelper) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMetrics sets the metric instruments. By default they are created on
// the global meter provider.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *OperationsHelper) { h.metrics = m }
}

// NewOperationsHelper creates a helper with schema caching on and fixture
// caching off, then applies opts.
func NewOperationsHelper(opts ...Option) *OperationsHelper {
	h := &OperationsHelper{
		cacheSchema: true,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cache == nil {
		h.cache = NewCache()
	}
	if h.metrics == nil {
		m, err := observability.NewMetrics(observability.Meter(instrumentationName))
		if err != nil {
			h.log.Warn("metrics disabled", logger.ErrorFields("new_metrics", err))
		}
		h.metrics = m
	}
	return h
}

// NewOperationsHelperFromConfig takes the cache toggles from cfg.
func NewOperationsHelperFromConfig(cfg *config.TestConfig, opts ...Option) *OperationsHelper {
	base := []Option{
		WithSchemaCache(cfg.Fixtures.CacheSchema),
		WithFixtureCache(cfg.Fixtures.CacheFixtures),
	}
	return NewOperationsHelper(append(base, opts...)...)
}

// SchemaCacheEnabled reports whether the schema is kept between tests.
func (h *OperationsHelper) SchemaCacheEnabled() bool { return h.cacheSchema }

// FixtureCacheEnabled reports whether fixtures are restored from snapshots.
func (h *OperationsHelper) FixtureCacheEnabled() bool { return h.cacheFixtures }

// SetUpDatabase clears em, makes sure the schema exists and holds no rows,
// then loads fixtures through loaders in order. Loader errors are returned
// unchanged.
func (h *OperationsHelper) SetUpDatabase(ctx context.Context, em EntityManager, loaders []FixtureLoader) (err error) {
	ctx, op := observability.StartOperation(ctx, observability.SpanSetUpDatabase,
		attribute.Bool(observability.AttrSchemaCached, h.cacheSchema),
		attribute.Bool(observability.AttrFixturesCached, h.cacheFixtures),
	)
	op.WithMetrics(h.metrics)
	defer func() { op.End(err) }()

	em.Clear()
	db := em.DB().WithContext(ctx)
	pool, err := db.DB()
	if err != nil {
		return apperrors.DatabaseError(err)
	}

	if err := h.prepareSchema(ctx, db, pool); err != nil {
		return err
	}

	key := loadersKey(loaders)
	if h.cacheFixtures {
		snap, ok := h.cache.snapshot(pool, key)
		h.metrics.RecordCache(ctx, "fixtures", ok)
		if ok {
			if err := dbtestutil.RestoreTables(db, snap); err != nil {
				return fmt.Errorf("restore fixtures: %w", err)
			}
			h.log.Debug("fixtures restored", map[string]interface{}{"loaders": key})
			return nil
		}
	}

	for _, loader := range loaders {
		if err := loader.Load(ctx, em); err != nil {
			return err
		}
	}

	if h.cacheFixtures {
		snap, err := dbtestutil.SnapshotTables(db)
		if err != nil {
			return fmt.Errorf("snapshot fixtures: %w", err)
		}
		h.cache.storeSnapshot(pool, key, snap)
	}

	h.log.Debug("database set up", logger.DurationFields("set_up_database", op.Duration()))
	return nil
}

// TearDownDatabase clears em and removes test state: the schema is dropped
// when schema caching is off, otherwise all tables are truncated.
func (h *OperationsHelper) TearDownDatabase(ctx context.Context, em EntityManager) (err error) {
	ctx, op := observability.StartOperation(ctx, observability.SpanTearDownDatabase,
		attribute.Bool(observability.AttrSchemaCached, h.cacheSchema),
	)
	op.WithMetrics(h.metrics)
	defer func() { op.End(err) }()

	em.Clear()
	db := em.DB().WithContext(ctx)
	pool, err := db.DB()
	if err != nil {
		return apperrors.DatabaseError(err)
	}

	if h.schema != nil && !h.cacheSchema {
		if err := h.schema.Drop(ctx, db); err != nil {
			return apperrors.SchemaError("drop", err)
		}
		h.cache.setSchemaCreated(pool, false)
		h.log.Debug("schema dropped")
		return nil
	}

	if err := dbtestutil.TruncateAllTables(db); err != nil {
		return apperrors.DatabaseError(err)
	}
	return nil
}

// prepareSchema leaves an empty schema behind: recreated from scratch, or
// truncated when it is cached.
func (h *OperationsHelper) prepareSchema(ctx context.Context, db *gorm.DB, pool *sql.DB) error {
	if h.schema == nil {
		if err := dbtestutil.TruncateAllTables(db); err != nil {
			return apperrors.DatabaseError(err)
		}
		return nil
	}

	if h.cacheSchema {
		created := h.cache.schemaCreated(pool)
		h.metrics.RecordCache(ctx, "schema", created)
		if created {
			if err := dbtestutil.TruncateAllTables(db); err != nil {
				return apperrors.DatabaseError(err)
			}
			return nil
		}
	}

	if err := h.schema.Drop(ctx, db); err != nil {
		return apperrors.SchemaError("drop", err)
	}
	if err := h.schema.Create(ctx, db); err != nil {
		return apperrors.SchemaError("create", err)
	}
	h.cache.setSchemaCreated(pool, true)
	h.log.Debug("schema created")
	return nil
}
