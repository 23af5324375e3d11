package ormtest

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	dbtestutil "github.com/kbukum/ormtest/database/testutil"
)

// Cache remembers which databases already carry the schema and the
// fixture snapshots taken on them. Helpers sharing a Cache share that
// state; entries are per connection pool.
type Cache struct {
	mu       sync.Mutex
	schemas  map[*sql.DB]bool
	fixtures map[fixtureKey]dbtestutil.Snapshot
}

type fixtureKey struct {
	db      *sql.DB
	loaders string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		schemas:  make(map[*sql.DB]bool),
		fixtures: make(map[fixtureKey]dbtestutil.Snapshot),
	}
}

func (c *Cache) schemaCreated(db *sql.DB) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schemas[db]
}

func (c *Cache) setSchemaCreated(db *sql.DB, created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if created {
		c.schemas[db] = true
		return
	}
	delete(c.schemas, db)
}

func (c *Cache) snapshot(db *sql.DB, loaders string) (dbtestutil.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.fixtures[fixtureKey{db: db, loaders: loaders}]
	return snap, ok
}

func (c *Cache) storeSnapshot(db *sql.DB, loaders string, snap dbtestutil.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fixtures[fixtureKey{db: db, loaders: loaders}] = snap
}

// Forget drops all cached state.
func (c *Cache) Forget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas = make(map[*sql.DB]bool)
	c.fixtures = make(map[fixtureKey]dbtestutil.Snapshot)
}

// loadersKey identifies a loader set by its ordered Go types.
func loadersKey(loaders []FixtureLoader) string {
	names := make([]string, len(loaders))
	for i, l := range loaders {
		names[i] = fmt.Sprintf("%T", l)
	}
	return strings.Join(names, ",")
}
