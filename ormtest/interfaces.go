package ormtest

import (
	"context"

	"gorm.io/gorm"

	"github.com/kbukum/ormtest/session"
)

// ObjectManager is the part of a session fixture loaders write through.
type ObjectManager interface {
	Persist(entity any) error
	Flush(ctx context.Context) error
}

// EntityManager is the live session a test runs against.
type EntityManager interface {
	ObjectManager
	// Merge returns the managed instance for entity's identity.
	Merge(ctx context.Context, entity any) (any, error)
	// IsScheduledForInsert reports whether entity is new to the store.
	IsScheduledForInsert(entity any) bool
	Detach(entity any)
	Clear()
	DB() *gorm.DB
}

var _ EntityManager = (*session.EntityManager)(nil)

// FixtureLoader puts fixture state into a session.
type FixtureLoader interface {
	Load(ctx context.Context, om ObjectManager) error
}

// FixtureLoaderFunc adapts a function to FixtureLoader.
type FixtureLoaderFunc func(ctx context.Context, om ObjectManager) error

// Load calls f.
func (f FixtureLoaderFunc) Load(ctx context.Context, om ObjectManager) error {
	return f(ctx, om)
}

// Hooks are supplied by the concrete suite embedding Case.
type Hooks interface {
	// FixtureEntities returns the detached entities to persist as fixtures,
	// in insertion order.
	FixtureEntities() []any
	// EntityManager returns the open session for the running test.
	EntityManager() EntityManager
}

// OperationsHelperFactory lets a suite replace the default helper.
type OperationsHelperFactory interface {
	CreateOperationsHelper() *OperationsHelper
}

// SchemaProvider lets a suite declare the schema the default helper
// creates and drops.
type SchemaProvider interface {
	Schema() Schema
}
