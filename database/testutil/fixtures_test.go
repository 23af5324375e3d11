package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type tag struct {
	ID    uint `gorm:"primaryKey"`
	Label string
}

func TestIsSystemTable(t *testing.T) {
	assert.True(t, IsSystemTable("schema_migrations"))
	assert.True(t, IsSystemTable("sqlite_sequence"))
	assert.False(t, IsSystemTable("users"))
}

func TestTableNames(t *testing.T) {
	tc := startComponent(t)
	db := tc.DB()
	require.NoError(t, db.AutoMigrate(&tag{}))
	require.NoError(t, db.Exec("CREATE TABLE schema_migrations (version INTEGER, dirty BOOLEAN)").Error)

	tables, err := TableNames(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"tags", "users"}, tables)
}

func TestLoadFixture(t *testing.T) {
	tc := startComponent(t)
	db := tc.DB()

	MustLoadFixture(t, db, "users", []map[string]interface{}{
		{"id": 1, "name": "alice"},
		{"id": 2, "name": "bob"},
	})
	AssertRowCount(t, db, "users", 2)

	require.NoError(t, LoadFixture(db, "users", nil))
	AssertRowCount(t, db, "users", 2)

	err := LoadFixture(db, "missing", []map[string]interface{}{{"id": 1}})
	assert.Error(t, err)
}

func TestTruncateAllTables(t *testing.T) {
	tc := startComponent(t)
	db := tc.DB()
	require.NoError(t, db.AutoMigrate(&tag{}))
	require.NoError(t, db.Exec("CREATE TABLE schema_migrations (version INTEGER, dirty BOOLEAN)").Error)
	require.NoError(t, db.Exec("INSERT INTO schema_migrations VALUES (3, false)").Error)

	insertUsers(t, tc, "alice")
	MustLoadFixture(t, db, "tags", []map[string]interface{}{{"id": 1, "label": "go"}})

	require.NoError(t, TruncateAllTables(db))

	AssertTableEmpty(t, db, "users")
	AssertTableEmpty(t, db, "tags")
	AssertRowCount(t, db, "schema_migrations", 1)
}

func TestTruncateTable_Missing(t *testing.T) {
	tc := startComponent(t)
	assert.Error(t, TruncateTable(tc.DB(), "missing"))
}

func TestSnapshotTables(t *testing.T) {
	tc := startComponent(t)
	db := tc.DB()
	insertUsers(t, tc, "alice", "bob")

	snapshot, err := SnapshotTables(db)
	require.NoError(t, err)
	require.Contains(t, snapshot, "users")
	assert.Len(t, snapshot["users"], 2)

	require.NoError(t, TruncateAllTables(db))
	require.NoError(t, RestoreTables(db, snapshot))

	var names []string
	require.NoError(t, db.Model(&user{}).Order("id").Pluck("name", &names).Error)
	assert.Equal(t, []string{"alice", "bob"}, names)
}

func TestCountRows_Missing(t *testing.T) {
	tc := startComponent(t)
	_, err := CountRows(tc.DB(), "missing")
	assert.Error(t, err)
}

func createAccounts(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.Exec(`CREATE TABLE accounts (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id)
	)`).Error)
}

func TestOrderedTableNames(t *testing.T) {
	tc := startComponent(t)
	db := tc.DB()
	createAccounts(t, db)
	require.NoError(t, db.AutoMigrate(&tag{}))

	tables, err := OrderedTableNames(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"tags", "users", "accounts"}, tables)
}

func TestRestoreTables_ForeignKeys(t *testing.T) {
	tc := startComponent(t)
	db := tc.DB()
	createAccounts(t, db)
	insertUsers(t, tc, "alice")
	MustLoadFixture(t, db, "accounts", []map[string]interface{}{{"id": 10, "user_id": 1}})

	snapshot, err := SnapshotTables(db)
	require.NoError(t, err)

	require.NoError(t, RestoreTables(db, snapshot))
	AssertRowCount(t, db, "users", 1)
	AssertRowCount(t, db, "accounts", 1)

	require.NoError(t, TruncateAllTables(db))
	AssertTableEmpty(t, db, "users")
	AssertTableEmpty(t, db, "accounts")
}
