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

// Package catalog defines the narrow view of the metadata catalog that the
// planner state layer and the auto-analyze scheduler depend on. The live
// catalog is never accessed directly; everything goes through Resolver and
// Table.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/vterrors"
)

// DefaultCatalog is the name of the internal catalog. Names without a
// catalog part resolve against it.
const DefaultCatalog = "internal"

// UnknownRowCount is reported by AnalyzableTable.RowCount until the storage
// tier has reported row counts for the table.
const UnknownRowCount int64 = -1

var systemDatabases = map[string]bool{
	"__internal_schema":  true,
	"information_schema": true,
	"mysql":              true,
}

// IsSystemDatabase returns true for databases whose tables are never
// auto-analyzed.
func IsSystemDatabase(name string) bool {
	return systemDatabases[strings.ToLower(name)]
}

// TableName is a fully qualified table name.
type TableName struct {
	Catalog  string
	Database string
	Table    string
}

// NewTableName returns the name of table in database of the default catalog.
func NewTableName(database, table string) TableName {
	return TableName{Catalog: DefaultCatalog, Database: database, Table: table}
}

// ParseTableName parses "db.table" or "catalog.db.table".
func ParseTableName(s string) (TableName, error) {
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return TableName{}, vterrors.Errorf(codes.InvalidArgument, "invalid table name %q", s)
		}
	}
	switch len(parts) {
	case 2:
		return NewTableName(parts[0], parts[1]), nil
	case 3:
		return TableName{Catalog: parts[0], Database: parts[1], Table: parts[2]}, nil
	}
	return TableName{}, vterrors.Errorf(codes.InvalidArgument, "invalid table name %q: expected [catalog.]db.table", s)
}

// String returns catalog.db.table.
func (n TableName) String() string {
	c := n.Catalog
	if c == "" {
		c = DefaultCatalog
	}
	return c + "." + n.Database + "." + n.Table
}

// Capability is a set of table capabilities. The set of table kinds the
// planner cares about is closed, so kinds are expressed as flags rather than
// by inspecting concrete types.
type Capability uint32

const (
	// CapAutoAnalyze marks tables whose statistics may be collected automatically.
	CapAutoAnalyze Capability = 1 << iota
	// CapPartitioned marks partitioned tables.
	CapPartitioned
	// CapMVCC marks tables that support multi-version snapshot reads.
	CapMVCC
	// CapInternal marks tables owned by the internal catalog. Only these
	// are visited by the low priority sweep.
	CapInternal
	// CapView marks views.
	CapView
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapAutoAnalyze, "auto_analyze"},
	{CapPartitioned, "partitioned"},
	{CapMVCC, "mvcc"},
	{CapInternal, "internal"},
	{CapView, "view"},
}

// Has returns true if every flag in f is set.
func (c Capability) Has(f Capability) bool {
	return c&f == f
}

func (c Capability) String() string {
	var names []string
	for _, cn := range capabilityNames {
		if c.Has(cn.c) {
			names = append(names, cn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseCapability parses one capability name as printed by String.
func ParseCapability(s string) (Capability, error) {
	for _, cn := range capabilityNames {
		if strings.EqualFold(cn.name, s) {
			return cn.c, nil
		}
	}
	return 0, vterrors.Errorf(codes.InvalidArgument, "unknown table capability %q", s)
}

// Snapshot identifies a consistent point-in-time view of a table.
type Snapshot struct {
	Version   int64
	Timestamp time.Time
}

func (s *Snapshot) String() string {
	if s == nil {
		return "<none>"
	}
	return fmt.Sprintf("v%d@%s", s.Version, s.Timestamp.Format(time.RFC3339))
}

// SnapshotHint carries the time-travel and scan hints of a statement.
type SnapshotHint struct {
	// TableVersion pins the snapshot to a table version. Zero means latest.
	TableVersion int64
	// ScanParams are passed through to the snapshot resolution.
	ScanParams map[string]string
}

// Table is a handle to a catalog table with a stable id.
type Table interface {
	// ID is stable for the lifetime of the table and gives the global lock order.
	ID() int64
	Name() TableName
	Capabilities() Capability
	// NeedsReadLockDuringPlanning may change over the lifetime of a table.
	NeedsReadLockDuringPlanning() bool
	// TryReadLock waits up to timeout for a read lock.
	TryReadLock(timeout time.Duration) bool
	ReadUnlock()
	// LoadSnapshot resolves a snapshot. Only called on CapMVCC tables.
	LoadSnapshot(hint SnapshotHint) (*Snapshot, error)
}

// View is a table defined by a query.
type View interface {
	Table
	// ViewDefinition returns the defining statement and the sql mode it was
	// created under.
	ViewDefinition() (sql string, sqlMode int64)
}

// AnalyzableTable is a table whose column statistics can be collected.
type AnalyzableTable interface {
	Table
	CatalogID() int64
	DatabaseID() int64
	DatabaseName() string
	// Columns returns the base schema in column order.
	Columns() []Column
	Column(name string) (Column, bool)
	// ColumnIndexPairs returns one pair per (index, column) for each of
	// columns contained by an index of the table.
	ColumnIndexPairs(columns []string) []ColumnIndexPair
	// DataSize is in bytes.
	DataSize() int64
	// RowCount is UnknownRowCount until reported.
	RowCount() int64
	// Version changes whenever the table's data changes.
	Version() int64
	UpdateTime() time.Time
}

// Database describes one database of a catalog.
type Database struct {
	ID        int64
	Name      string
	CatalogID int64
}

// Resolver resolves names to table handles.
type Resolver interface {
	// ResolveTable returns a NotFound error if the table does not exist and a
	// PermissionDenied error if it may not be accessed.
	ResolveTable(ctx context.Context, name TableName) (Table, error)
}

// Catalog is the id based view of the catalog used by the auto-analyze
// daemons.
type Catalog interface {
	Resolver
	// DatabaseIDs returns every database id in ascending order.
	DatabaseIDs() []int64
	Database(id int64) (Database, bool)
	// TablesOf returns the tables of a database in ascending id order.
	TablesOf(dbID int64) []Table
	LookupTableByID(catalogID, dbID, tableID int64) (Table, error)
}

// NotFoundError returns the error reported for a missing table.
func NotFoundError(name TableName) error {
	return vterrors.Errorf(codes.NotFound, "table %s does not exist", name)
}
