// Package catalog implements the in-memory table registry: a map from
// table name to (schema, on-disk file) with no persistence. Tables live
// only for the process lifetime; CREATE TABLE definitions are never
// serialized.
package catalog

import (
	"errors"
	"sync"

	"minidb/pkg/types"
)

// ErrTableNotFound is returned by Get/Drop for a name that isn't registered.
var ErrTableNotFound = errors.New("table not found")

// Table is the catalog's entry for one table: its schema and the name of
// its backing heap file (<data_dir>/<name>.table, opened lazily by the
// buffer pool).
type Table struct {
	Name   string
	Schema *types.Schema
}

// Catalog is the in-memory name -> Table registry. It owns no disk state:
// Drop only removes the in-memory entry, and re-creating a name overwrites
// it with no disk side effects.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

// CreateTable registers name with schema, overwriting any existing entry
// for the same name.
func (c *Catalog) CreateTable(name string, schema *types.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	schema.TableName = name
	c.tables[name] = &Table{Name: name, Schema: schema}
}

// DropTable removes name from the in-memory map. The backing file, if any,
// is left on disk.
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[name]; !ok {
		return ErrTableNotFound
	}
	delete(c.tables, name)
	return nil
}

// Get returns the table registered under name.
func (c *Catalog) Get(name string) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	if !ok {
		return nil, ErrTableNotFound
	}
	return t, nil
}

// TableNames returns every registered table name, in no particular order.
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	return names
}
