// Package testutil provides lifecycle helpers for test components.
//
// A TestComponent is a component.Component that can also be reset between
// tests and snapshotted/restored. The database test component in
// database/testutil is the main implementation; ormtest uses its snapshot
// support to memoize fixture state.
//
// # Quick Start
//
//	func TestMyFeature(t *testing.T) {
//	    db := dbtestutil.NewComponent().WithModels(&User{})
//	    testutil.T(t).Setup(db)
//	    // db is stopped when the test ends
//	}
//
// Managing several components:
//
//	manager := testutil.NewManager()
//	manager.Add(db)
//	if err := manager.StartAll(ctx); err != nil { ... }
//	defer manager.StopAll(ctx)
package testutil
