package ormtest

import (
	"context"

	"github.com/stretchr/testify/suite"

	apperrors "github.com/kbukum/ormtest/errors"
	"github.com/kbukum/ormtest/logger"
	"github.com/kbukum/ormtest/observability"
)

var errNoHooks = apperrors.New(apperrors.ErrCodeInternal,
	"ormtest: no hooks bound; run the suite with suite.Run or call Case.Bind")

// Case is the base of a fixture driven suite. Embed it in a suite that
// implements Hooks; suite.Run binds the hooks through SetS. Outside
// suite.Run, call Bind.
//
// The suite itself is the fixture source: its Load persists FixtureEntities.
type Case struct {
	suite.Suite

	hooks  Hooks
	helper *OperationsHelper
}

// SetS records the running suite. testify calls it before any test.
func (c *Case) SetS(s suite.TestingSuite) {
	c.Suite.SetS(s)
	if h, ok := s.(Hooks); ok {
		c.hooks = h
	}
}

// Bind sets the hooks explicitly.
func (c *Case) Bind(h Hooks) {
	c.hooks = h
}

// Load persists every entity from FixtureEntities, in order, then flushes
// once. Errors from the session are returned unchanged.
func (c *Case) Load(ctx context.Context, om ObjectManager) error {
	if c.hooks == nil {
		return errNoHooks
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanLoadFixtures)
	defer span.End()

	entities := c.hooks.FixtureEntities()
	observability.SetSpanAttribute(ctx, observability.AttrEntityCount, len(entities))
	for _, entity := range entities {
		if err := om.Persist(entity); err != nil {
			observability.SetSpanError(ctx, err)
			return err
		}
	}
	if err := om.Flush(ctx); err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}
	return nil
}

// OperationsHelper returns the helper, creating it on first use. The same
// helper serves the Case for its whole lifetime.
func (c *Case) OperationsHelper() *OperationsHelper {
	if c.helper == nil {
		c.helper = c.createOperationsHelper()
	}
	return c.helper
}

// createOperationsHelper uses the suite's factory when it has one.
// Otherwise the schema is cached and fixtures are reloaded for every
// test, so loaded entities are never handed out already managed.
func (c *Case) createOperationsHelper() *OperationsHelper {
	if f, ok := c.hooks.(OperationsHelperFactory); ok {
		if helper := f.CreateOperationsHelper(); helper != nil {
			return helper
		}
	}

	opts := []Option{
		WithSchemaCache(true),
		WithFixtureCache(false),
		WithLogger(logger.WithComponent("ormtest")),
	}
	if p, ok := c.hooks.(SchemaProvider); ok {
		opts = append(opts, WithSchema(p.Schema()))
	}
	return NewOperationsHelper(opts...)
}

// SetUpDatabase prepares the schema and loads the suite's fixtures.
// Failure stops the test.
func (c *Case) SetUpDatabase() {
	c.T().Helper()
	h := c.mustHooks()
	err := c.OperationsHelper().SetUpDatabase(c.context(), h.EntityManager(), []FixtureLoader{c.loader()})
	c.Require().NoError(err, "set up database")
}

// TearDownDatabase clears the session and drops or truncates the schema.
func (c *Case) TearDownDatabase() {
	c.T().Helper()
	h := c.mustHooks()
	err := c.OperationsHelper().TearDownDatabase(c.context(), h.EntityManager())
	c.Require().NoError(err, "tear down database")
}

// EnsureEntityManaged returns the managed instance of entity, or an error
// matched by IsEntityNotManaged when the store does not know it.
func (c *Case) EnsureEntityManaged(entity any) (any, error) {
	if c.hooks == nil {
		return nil, errNoHooks
	}
	return EnsureEntityManaged(c.context(), c.hooks.EntityManager(), entity)
}

// AssertSameEntities asserts that expected and actual denote the same
// managed entity.
func (c *Case) AssertSameEntities(expected, actual any, msgAndArgs ...interface{}) bool {
	c.T().Helper()
	h := c.mustHooks()
	return AssertSameEntities(c.T(), c.context(), h.EntityManager(), expected, actual, msgAndArgs...)
}

// AssertEntityCollectionEquals asserts that both collections merge to
// equal entities in the same order.
func (c *Case) AssertEntityCollectionEquals(expected, actual any, msgAndArgs ...interface{}) bool {
	c.T().Helper()
	h := c.mustHooks()
	return AssertEntityCollectionEquals(c.T(), c.context(), h.EntityManager(), expected, actual, msgAndArgs...)
}

// loader is the concrete suite when it carries Load (it does when it
// embeds Case), so fixture snapshots are keyed by the suite's type.
func (c *Case) loader() FixtureLoader {
	if l, ok := c.hooks.(FixtureLoader); ok {
		return l
	}
	return c
}

func (c *Case) mustHooks() Hooks {
	if c.hooks == nil {
		c.Require().FailNow(errNoHooks.Message)
	}
	return c.hooks
}

func (c *Case) context() context.Context {
	if t := c.T(); t != nil {
		return t.Context()
	}
	return context.Background()
}
