package testutil

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/ormtest/database/migration"
)

// Snapshot holds every row of every user table, keyed by table name.
type Snapshot map[string][]map[string]interface{}

// IsSystemTable reports whether table is bookkeeping that helpers must not touch.
func IsSystemTable(table string) bool {
	return table == migration.VersionTable || strings.HasPrefix(table, "sqlite_")
}

// TableNames returns the sorted user tables of db.
func TableNames(db *gorm.DB) ([]string, error) {
	all, err := db.Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	tables := make([]string, 0, len(all))
	for _, table := range all {
		if !IsSystemTable(table) {
			tables = append(tables, table)
		}
	}
	sort.Strings(tables)
	return tables, nil
}

// OrderedTableNames returns the user tables of db with every table listed
// after the tables its foreign keys reference. Ties, and tables caught in a
// reference cycle, keep alphabetical order. Foreign keys are read from
// SQLite and PostgreSQL catalogs; other dialects yield alphabetical order.
func OrderedTableNames(db *gorm.DB) ([]string, error) {
	tables, err := TableNames(db)
	if err != nil {
		return nil, err
	}

	parents := make(map[string][]string, len(tables))
	for _, table := range tables {
		refs, err := referencedTables(db, table)
		if err != nil {
			return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
		}
		parents[table] = refs
	}

	ordered := make([]string, 0, len(tables))
	placed := make(map[string]bool, len(tables))
	for len(ordered) < len(tables) {
		next := ""
		for _, table := range tables {
			if !placed[table] && parentsPlaced(table, parents[table], placed) {
				next = table
				break
			}
		}
		if next == "" {
			// cycle: fall back to the first remaining table
			for _, table := range tables {
				if !placed[table] {
					next = table
					break
				}
			}
		}
		placed[next] = true
		ordered = append(ordered, next)
	}
	return ordered, nil
}

func parentsPlaced(table string, refs []string, placed map[string]bool) bool {
	for _, ref := range refs {
		if ref != table && !IsSystemTable(ref) && !placed[ref] {
			return false
		}
	}
	return true
}

// referencedTables lists the tables table's foreign keys point to.
func referencedTables(db *gorm.DB, table string) ([]string, error) {
	var refs []string
	var err error
	switch db.Dialector.Name() {
	case "sqlite":
		err = db.Raw(`SELECT DISTINCT "table" FROM pragma_foreign_key_list(?)`, table).Scan(&refs).Error
	case "postgres":
		err = db.Raw(`SELECT DISTINCT ccu.table_name
FROM information_schema.table_constraints tc
JOIN information_schema.constraint_column_usage ccu
  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = ? AND tc.table_schema = current_schema()`, table).Scan(&refs).Error
	}
	return refs, err
}

// LoadFixture inserts rows into table. Each map is one row.
func LoadFixture(db *gorm.DB, table string, rows []map[string]interface{}) error {
	for _, row := range rows {
		if err := db.Table(table).Create(row).Error; err != nil {
			return fmt.Errorf("failed to insert fixture row into %s: %w", table, err)
		}
	}
	return nil
}

// MustLoadFixture loads rows and fails the test on error.
func MustLoadFixture(tb testing.TB, db *gorm.DB, table string, rows []map[string]interface{}) {
	tb.Helper()
	require.NoError(tb, LoadFixture(db, table, rows), "LoadFixture %s", table)
}

// TruncateTable removes all rows from table.
func TruncateTable(db *gorm.DB, table string) error {
	if err := db.Exec("DELETE FROM ?", clause.Table{Name: table}).Error; err != nil {
		return fmt.Errorf("failed to clear table %s: %w", table, err)
	}
	return nil
}

// TruncateAllTables removes all rows from every user table, keeping the
// schema. Referencing tables are cleared before the tables they reference.
func TruncateAllTables(db *gorm.DB) error {
	tables, err := OrderedTableNames(db)
	if err != nil {
		return err
	}
	for i := len(tables) - 1; i >= 0; i-- {
		if err := TruncateTable(db, tables[i]); err != nil {
			return err
		}
	}
	return nil
}

// SnapshotTables captures the rows of every user table.
func SnapshotTables(db *gorm.DB) (Snapshot, error) {
	tables, err := TableNames(db)
	if err != nil {
		return nil, err
	}
	snapshot := make(Snapshot, len(tables))
	for _, table := range tables {
		var rows []map[string]interface{}
		if err := db.Table(table).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to snapshot table %s: %w", table, err)
		}
		snapshot[table] = rows
	}
	return snapshot, nil
}

// RestoreTables truncates every user table and re-inserts the snapshot rows,
// all in one transaction. Referenced tables are filled first; snapshot
// tables missing from the database fail the restore.
func RestoreTables(db *gorm.DB, snapshot Snapshot) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := TruncateAllTables(tx); err != nil {
			return fmt.Errorf("failed to reset before restore: %w", err)
		}

		ordered, err := OrderedTableNames(tx)
		if err != nil {
			return err
		}
		tables := make([]string, 0, len(snapshot))
		seen := make(map[string]bool, len(snapshot))
		for _, table := range ordered {
			if _, ok := snapshot[table]; ok {
				tables = append(tables, table)
				seen[table] = true
			}
		}
		var rest []string
		for table := range snapshot {
			if !seen[table] {
				rest = append(rest, table)
			}
		}
		sort.Strings(rest)
		tables = append(tables, rest...)

		for _, table := range tables {
			if err := LoadFixture(tx, table, snapshot[table]); err != nil {
				return fmt.Errorf("failed to restore table %s: %w", table, err)
			}
		}
		return nil
	})
}

// TableExists checks if a table exists in the database.
func TableExists(db *gorm.DB, table string) bool {
	return db.Migrator().HasTable(table)
}

// CountRows returns the number of rows in table.
func CountRows(db *gorm.DB, table string) (int64, error) {
	var count int64
	err := db.Table(table).Count(&count).Error
	return count, err
}

// AssertTableEmpty fails the test if table has rows.
func AssertTableEmpty(tb testing.TB, db *gorm.DB, table string) bool {
	tb.Helper()
	return AssertRowCount(tb, db, table, 0)
}

// AssertRowCount fails the test if table does not hold expected rows.
func AssertRowCount(tb testing.TB, db *gorm.DB, table string, expected int64) bool {
	tb.Helper()
	count, err := CountRows(db, table)
	require.NoError(tb, err, "failed to count rows in %s", table)
	return assert.Equal(tb, expected, count, "table %s row count", table)
}
