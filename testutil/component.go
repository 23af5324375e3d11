package testutil

import (
	"context"

	"github.com/kbukum/ormtest/component"
)

// TestComponent extends component.Component with testing-specific lifecycle methods.
type TestComponent interface {
	component.Component

	// Reset restores the component to its initial state.
	Reset(ctx context.Context) error

	// Snapshot captures the current state of the component.
	// The returned value can be passed to Restore to return to this state.
	Snapshot(ctx context.Context) (interface{}, error)

	// Restore restores the component to a previously captured state.
	Restore(ctx context.Context, snapshot interface{}) error
}
