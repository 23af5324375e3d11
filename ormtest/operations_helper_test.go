package ormtest

import (
	"context"
	"embed"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"

	"github.com/kbukum/ormtest/config"
	"github.com/kbukum/ormtest/database/migration"
	dbtestutil "github.com/kbukum/ormtest/database/testutil"
	apperrors "github.com/kbukum/ormtest/errors"
	"github.com/kbukum/ormtest/logger"
	"github.com/kbukum/ormtest/observability"
	"github.com/kbukum/ormtest/session"
	"github.com/kbukum/ormtest/testutil"
)

//go:embed testdata/migrations/*.sql
var migrationsFS embed.FS

type note struct {
	ID   uint `gorm:"primaryKey"`
	Body string
}

// countingSchema records how often the wrapped schema is created and dropped.
type countingSchema struct {
	Schema
	creates, drops int
	createErr      error
}

func (s *countingSchema) Create(ctx context.Context, db *gorm.DB) error {
	s.creates++
	if s.createErr != nil {
		return s.createErr
	}
	return s.Schema.Create(ctx, db)
}

func (s *countingSchema) Drop(ctx context.Context, db *gorm.DB) error {
	s.drops++
	return s.Schema.Drop(ctx, db)
}

// noteLoader persists notes and counts its runs.
type noteLoader struct {
	runs  int
	notes []string
	err   error
}

func (l *noteLoader) Load(ctx context.Context, om ObjectManager) error {
	l.runs++
	if l.err != nil {
		return l.err
	}
	for i, body := range l.notes {
		if err := om.Persist(&note{ID: uint(i + 1), Body: body}); err != nil {
			return err
		}
	}
	return om.Flush(ctx)
}

func newSession(t *testing.T, models ...interface{}) (*session.EntityManager, *gorm.DB) {
	t.Helper()
	tc := dbtestutil.NewComponent().WithModels(models...)
	testutil.T(t).Setup(tc)
	return session.New(tc.DB()), tc.DB()
}

func TestNewOperationsHelper_Defaults(t *testing.T) {
	h := NewOperationsHelper()
	assert.True(t, h.SchemaCacheEnabled())
	assert.False(t, h.FixtureCacheEnabled())

	h = NewOperationsHelper(WithSchemaCache(false), WithFixtureCache(true))
	assert.False(t, h.SchemaCacheEnabled())
	assert.True(t, h.FixtureCacheEnabled())
}

func TestNewOperationsHelperFromConfig(t *testing.T) {
	cfg := &config.TestConfig{Fixtures: config.FixturesConfig{CacheSchema: false, CacheFixtures: true}}

	h := NewOperationsHelperFromConfig(cfg)
	assert.False(t, h.SchemaCacheEnabled())
	assert.True(t, h.FixtureCacheEnabled())

	h = NewOperationsHelperFromConfig(cfg, WithFixtureCache(false))
	assert.False(t, h.FixtureCacheEnabled(), "explicit options win over config")
}

func TestSetUpDatabase_SchemaCached(t *testing.T) {
	ctx := context.Background()
	em, db := newSession(t)
	schema := &countingSchema{Schema: Models(&note{})}
	loader := &noteLoader{notes: []string{"a", "b"}}
	h := NewOperationsHelper(WithSchema(schema), WithLogger(logger.NewTest(t, "debug")))

	require.NoError(t, h.SetUpDatabase(ctx, em, []FixtureLoader{loader}))
	dbtestutil.AssertRowCount(t, db, "notes", 2)

	require.NoError(t, h.TearDownDatabase(ctx, em))
	assert.True(t, dbtestutil.TableExists(db, "notes"))
	dbtestutil.AssertTableEmpty(t, db, "notes")

	require.NoError(t, h.SetUpDatabase(ctx, em, []FixtureLoader{loader}))
	assert.Equal(t, 1, schema.creates)
	assert.Equal(t, 2, loader.runs, "fixture cache is off")
	dbtestutil.AssertRowCount(t, db, "notes", 2)
}

func TestSetUpDatabase_SchemaNotCached(t *testing.T) {
	ctx := context.Background()
	em, db := newSession(t)
	schema := &countingSchema{Schema: Models(&note{})}
	h := NewOperationsHelper(WithSchema(schema), WithSchemaCache(false))

	for i := 0; i < 2; i++ {
		require.NoError(t, h.SetUpDatabase(ctx, em, []FixtureLoader{&noteLoader{notes: []string{"a"}}}))
		dbtestutil.AssertRowCount(t, db, "notes", 1)
		require.NoError(t, h.TearDownDatabase(ctx, em))
		assert.False(t, dbtestutil.TableExists(db, "notes"))
	}
	assert.Equal(t, 2, schema.creates)
	assert.Equal(t, 4, schema.drops)
}

func TestSetUpDatabase_FixtureCache(t *testing.T) {
	ctx := context.Background()
	em, db := newSession(t)
	loader := &noteLoader{notes: []string{"a", "b", "c"}}
	h := NewOperationsHelper(WithSchema(Models(&note{})), WithFixtureCache(true))

	for i := 0; i < 3; i++ {
		require.NoError(t, h.SetUpDatabase(ctx, em, []FixtureLoader{loader}))
		dbtestutil.AssertRowCount(t, db, "notes", 3)
		require.NoError(t, h.TearDownDatabase(ctx, em))
	}
	assert.Equal(t, 1, loader.runs)

	var bodies []string
	require.NoError(t, h.SetUpDatabase(ctx, em, []FixtureLoader{loader}))
	require.NoError(t, db.Model(&note{}).Order("id").Pluck("body", &bodies).Error)
	assert.Equal(t, []string{"a", "b", "c"}, bodies)
}

func TestSetUpDatabase_SharedCache(t *testing.T) {
	ctx := context.Background()
	em, _ := newSession(t)
	cache := NewCache()
	schema := &countingSchema{Schema: Models(&note{})}

	first := NewOperationsHelper(WithSchema(schema), WithCache(cache))
	second := NewOperationsHelper(WithSchema(schema), WithCache(cache))

	require.NoError(t, first.SetUpDatabase(ctx, em, nil))
	require.NoError(t, second.SetUpDatabase(ctx, em, nil))
	assert.Equal(t, 1, schema.creates)

	cache.Forget()
	require.NoError(t, second.SetUpDatabase(ctx, em, nil))
	assert.Equal(t, 2, schema.creates)
}

func TestSetUpDatabase_WithoutSchemaTruncates(t *testing.T) {
	ctx := context.Background()
	em, db := newSession(t, &note{})
	require.NoError(t, db.Create(&note{ID: 9, Body: "stale"}).Error)

	h := NewOperationsHelper()
	require.NoError(t, h.SetUpDatabase(ctx, em, []FixtureLoader{&noteLoader{notes: []string{"fresh"}}}))

	var bodies []string
	require.NoError(t, db.Model(&note{}).Pluck("body", &bodies).Error)
	assert.Equal(t, []string{"fresh"}, bodies)
}

func TestSetUpDatabase_ClearsSession(t *testing.T) {
	ctx := context.Background()
	em, _ := newSession(t, &note{})
	stale := &note{ID: 1, Body: "pending"}
	require.NoError(t, em.Persist(stale))

	require.NoError(t, NewOperationsHelper().SetUpDatabase(ctx, em, nil))
	assert.False(t, em.Contains(stale))
}

func TestSetUpDatabase_LoaderErrorUnchanged(t *testing.T) {
	boom := errors.New("load failed")
	em, _ := newSession(t)
	h := NewOperationsHelper(WithSchema(Models(&note{})))

	err := h.SetUpDatabase(context.Background(), em, []FixtureLoader{&noteLoader{err: boom}})
	assert.Same(t, boom, err)
}

func TestSetUpDatabase_SchemaError(t *testing.T) {
	em, _ := newSession(t)
	schema := &countingSchema{Schema: Models(&note{}), createErr: errors.New("no space")}
	h := NewOperationsHelper(WithSchema(schema))

	err := h.SetUpDatabase(context.Background(), em, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSchema))
	assert.ErrorIs(t, err, schema.createErr)
}

func TestSetUpDatabase_Migrations(t *testing.T) {
	ctx := context.Background()
	em, db := newSession(t)
	h := NewOperationsHelper(WithSchema(Migrations(migrationsFS, "testdata/migrations", migration.SQLite)))
	loader := FixtureLoaderFunc(func(ctx context.Context, om ObjectManager) error {
		if err := om.Persist(&note{ID: 1, Body: "migrated"}); err != nil {
			return err
		}
		return om.Flush(ctx)
	})

	require.NoError(t, h.SetUpDatabase(ctx, em, []FixtureLoader{loader}))
	dbtestutil.AssertRowCount(t, db, "notes", 1)

	require.NoError(t, h.TearDownDatabase(ctx, em))
	dbtestutil.AssertTableEmpty(t, db, "notes")
	dbtestutil.AssertRowCount(t, db, migration.VersionTable, 1)

	version, dirty, err := migration.Version(db, migrationsFS, "testdata/migrations", migration.SQLite)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestOperationsHelper_Spans(t *testing.T) {
	prev := otel.GetTracerProvider()
	recorder := tracetest.NewSpanRecorder()
	tp := observability.NewTracerProvider(observability.DefaultTracerConfig("ormtest-test"), sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	ctx := context.Background()
	em, _ := newSession(t)
	h := NewOperationsHelper(WithSchema(Models(&note{})))
	require.NoError(t, h.SetUpDatabase(ctx, em, nil))
	require.NoError(t, h.TearDownDatabase(ctx, em))

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{observability.SpanSetUpDatabase, observability.SpanTearDownDatabase}, names)
}

func TestOpen(t *testing.T) {
	cfg := &config.TestConfig{
		Database: dbtestutil.MemoryConfig(),
		Fixtures: config.FixturesConfig{CacheSchema: true, CacheFixtures: true},
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	env, err := Open(context.Background(), cfg, WithSchema(Models(&note{})))
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })

	assert.True(t, env.Helper.FixtureCacheEnabled())
	require.NoError(t, env.Helper.SetUpDatabase(context.Background(), env.Session, []FixtureLoader{&noteLoader{notes: []string{"x"}}}))
	dbtestutil.AssertRowCount(t, env.DB.GormDB, "notes", 1)
	assert.Equal(t, "session", logger.Get("session").Component())
}

func TestEnvironment_ResetAndClose(t *testing.T) {
	ctx := context.Background()
	cfg := &config.TestConfig{Database: dbtestutil.MemoryConfig()}
	cfg.ApplyDefaults()

	env, err := Open(ctx, cfg, WithSchema(Models(&note{})))
	require.NoError(t, err)
	require.NoError(t, env.Helper.SetUpDatabase(ctx, env.Session, []FixtureLoader{&noteLoader{notes: []string{"x", "y"}}}))

	first, err := env.Session.Find(ctx, &note{}, 1)
	require.NoError(t, err)
	require.True(t, env.Session.Contains(first))
	require.NoError(t, env.Reset(ctx))
	assert.False(t, env.Session.Contains(first))
	assert.True(t, dbtestutil.TableExists(env.DB.GormDB, "notes"))
	dbtestutil.AssertTableEmpty(t, env.DB.GormDB, "notes")

	require.NoError(t, env.Close())
	assert.Error(t, env.DB.PingContext(ctx))
	assert.NoError(t, env.Close(), "closing twice is a no-op")
}
