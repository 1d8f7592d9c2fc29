/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package memorycatalog contains an implementation of the catalog.Catalog
// interface based on in-memory btrees. It is used by tests and by the
// vtplanner host, which seeds it from a YAML file.
package memorycatalog

import (
	"context"
	"sync"

	"github.com/google/btree"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

const btreeDegree = 16

// Catalog is a memory-based implementation of catalog.Catalog.
type Catalog struct {
	id   int64
	name string

	// mu protects the following fields.
	mu sync.RWMutex
	// dbs is ordered by database id.
	dbs      *btree.BTreeG[*database]
	dbByName map[string]*database
	// nextID is used for databases and tables created without an explicit id.
	nextID int64
	denied map[catalog.TableName]bool

	events *eventLog
}

type database struct {
	catalog.Database
	// tables is ordered by table id.
	tables *btree.BTreeG[*Table]
	byName map[string]*Table
}

// New returns an empty catalog named catalog.DefaultCatalog with id 0.
func New() *Catalog {
	return NewNamed(0, catalog.DefaultCatalog)
}

// NewNamed returns an empty catalog.
func NewNamed(id int64, name string) *Catalog {
	return &Catalog{
		id:       id,
		name:     name,
		dbs:      btree.NewG(btreeDegree, func(a, b *database) bool { return a.ID < b.ID }),
		dbByName: make(map[string]*database),
		nextID:   1,
		denied:   make(map[catalog.TableName]bool),
		events:   &eventLog{},
	}
}

// ID returns the catalog id.
func (c *Catalog) ID() int64 {
	return c.id
}

// Name returns the catalog name.
func (c *Catalog) Name() string {
	return c.name
}

// allocateID must be called with mu held. A zero id allocates a new one.
func (c *Catalog) allocateID(id int64) int64 {
	if id == 0 {
		id = c.nextID
	}
	if id >= c.nextID {
		c.nextID = id + 1
	}
	return id
}

// CreateDatabase creates a database. An id of 0 allocates one.
func (c *Catalog) CreateDatabase(name string, id int64) (catalog.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.dbByName[name]; ok {
		return catalog.Database{}, vterrors.Errorf(codes.AlreadyExists, "database %s already exists", name)
	}
	if id != 0 && c.idInUse(id) {
		return catalog.Database{}, vterrors.Errorf(codes.AlreadyExists, "object id %d already in use", id)
	}
	db := &database{
		Database: catalog.Database{ID: c.allocateID(id), Name: name, CatalogID: c.id},
		tables:   btree.NewG(btreeDegree, func(a, b *Table) bool { return a.id < b.id }),
		byName:   make(map[string]*Table),
	}
	c.dbs.ReplaceOrInsert(db)
	c.dbByName[name] = db
	return db.Database, nil
}

// idInUse must be called with mu held.
func (c *Catalog) idInUse(id int64) bool {
	if _, ok := c.dbs.Get(&database{Database: catalog.Database{ID: id}}); ok {
		return true
	}
	inUse := false
	c.dbs.Ascend(func(db *database) bool {
		if _, ok := db.tables.Get(&Table{id: id}); ok {
			inUse = true
		}
		return !inUse
	})
	return inUse
}

// TableSpec describes a table to create.
type TableSpec struct {
	// ID of 0 allocates one.
	ID           int64
	Name         string
	Capabilities catalog.Capability
	Columns      []catalog.Column
	// Indexes maps an index name to its columns. A base index named after
	// the table and holding every column is always present.
	Indexes map[string][]string
	// SkipPlanningLock marks tables that do not need a read lock during planning.
	SkipPlanningLock bool
	RowCount         int64
	DataSize         int64
	// ViewSQL is the definition of a CapView table.
	ViewSQL string
	SQLMode int64
}

// CreateTable creates a table in the named database.
func (c *Catalog) CreateTable(dbName string, spec TableSpec) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, ok := c.dbByName[dbName]
	if !ok {
		return nil, vterrors.Errorf(codes.NotFound, "database %s does not exist", dbName)
	}
	if _, ok := db.byName[spec.Name]; ok {
		return nil, vterrors.Errorf(codes.AlreadyExists, "table %s.%s already exists", dbName, spec.Name)
	}
	if spec.ID != 0 && c.idInUse(spec.ID) {
		return nil, vterrors.Errorf(codes.AlreadyExists, "object id %d already in use", spec.ID)
	}
	t := newTable(c, db.Database, c.allocateID(spec.ID), spec)
	db.tables.ReplaceOrInsert(t)
	db.byName[spec.Name] = t
	return t, nil
}

// DropTable removes a table. Handles already resolved stay usable.
func (c *Catalog) DropTable(name catalog.TableName) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, ok := c.dbByName[name.Database]
	if !ok {
		return catalog.NotFoundError(name)
	}
	t, ok := db.byName[name.Table]
	if !ok {
		return catalog.NotFoundError(name)
	}
	db.tables.Delete(t)
	delete(db.byName, name.Table)
	return nil
}

// Deny makes ResolveTable refuse access to name.
func (c *Catalog) Deny(name catalog.TableName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.denied[name] = true
}

// Table returns the concrete table, for tests and seeding.
func (c *Catalog) Table(name catalog.TableName) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	db, ok := c.dbByName[name.Database]
	if !ok {
		return nil, false
	}
	t, ok := db.byName[name.Table]
	return t, ok
}

// ResolveTable is part of the catalog.Resolver interface.
func (c *Catalog) ResolveTable(ctx context.Context, name catalog.TableName) (catalog.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, vterrors.Errorf(codes.Canceled, "resolving %s: %v", name, err)
	}
	if name.Catalog != "" && name.Catalog != c.name {
		return nil, catalog.NotFoundError(name)
	}
	c.mu.RLock()
	denied := c.denied[name]
	c.mu.RUnlock()
	if denied {
		return nil, vterrors.Errorf(codes.PermissionDenied, "access denied to table %s", name)
	}
	t, ok := c.Table(name)
	if !ok {
		return nil, catalog.NotFoundError(name)
	}
	return t, nil
}

// DatabaseIDs is part of the catalog.Catalog interface.
func (c *Catalog) DatabaseIDs() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int64, 0, c.dbs.Len())
	c.dbs.Ascend(func(db *database) bool {
		ids = append(ids, db.ID)
		return true
	})
	return ids
}

// Database is part of the catalog.Catalog interface.
func (c *Catalog) Database(id int64) (catalog.Database, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	db, ok := c.dbs.Get(&database{Database: catalog.Database{ID: id}})
	if !ok {
		return catalog.Database{}, false
	}
	return db.Database, true
}

// TablesOf is part of the catalog.Catalog interface.
func (c *Catalog) TablesOf(dbID int64) []catalog.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	db, ok := c.dbs.Get(&database{Database: catalog.Database{ID: dbID}})
	if !ok {
		return nil
	}
	tables := make([]catalog.Table, 0, db.tables.Len())
	db.tables.Ascend(func(t *Table) bool {
		tables = append(tables, t)
		return true
	})
	return tables
}

// LookupTableByID is part of the catalog.Catalog interface.
func (c *Catalog) LookupTableByID(catalogID, dbID, tableID int64) (catalog.Table, error) {
	if catalogID != c.id {
		return nil, vterrors.Errorf(codes.NotFound, "catalog %d does not exist", catalogID)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	db, ok := c.dbs.Get(&database{Database: catalog.Database{ID: dbID}})
	if !ok {
		return nil, vterrors.Errorf(codes.NotFound, "database %d does not exist", dbID)
	}
	t, ok := db.tables.Get(&Table{id: tableID})
	if !ok {
		return nil, vterrors.Errorf(codes.NotFound, "table %d does not exist in database %s", tableID, db.Name)
	}
	return t, nil
}

// LockEvents returns every read lock acquisition and release of the
// catalog's tables, in order.
func (c *Catalog) LockEvents() []LockEvent {
	return c.events.snapshot()
}

// ResetLockEvents clears the lock event log.
func (c *Catalog) ResetLockEvents() {
	c.events.reset()
}

var _ catalog.Catalog = (*Catalog)(nil)
