// Package testutil provides database state helpers for tests.
//
// Component is an isolated in-memory SQLite database implementing
// component.Component and testutil.TestComponent. Every Component gets its
// own named shared-cache database, so parallel tests never see each other's
// rows.
//
//	db := dbtestutil.NewComponent().WithModels(&User{})
//	testutil.T(t).Setup(db)
//
// The table helpers (TableNames, TruncateAllTables, SnapshotTables,
// RestoreTables) work on any *gorm.DB and skip bookkeeping tables such as
// schema_migrations and sqlite_sequence.
package testutil
