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

package memorycatalog

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

// Table is the in-memory implementation of catalog.AnalyzableTable and
// catalog.View.
type Table struct {
	cat  *Catalog
	id   int64
	name catalog.TableName
	db   catalog.Database

	caps     atomic.Uint32
	skipLock atomic.Bool
	lock     tableLock

	snapshotLoads atomic.Int64

	// mu protects the following fields.
	mu          sync.RWMutex
	columns     []catalog.Column
	indexNames  []string
	indexes     map[string][]string
	rowCount    int64
	dataSize    int64
	version     int64
	updateTime  time.Time
	viewSQL     string
	sqlMode     int64
	snapshotErr error
}

func newTable(c *Catalog, db catalog.Database, id int64, spec TableSpec) *Table {
	t := &Table{
		cat:        c,
		id:         id,
		name:       catalog.TableName{Catalog: c.name, Database: db.Name, Table: spec.Name},
		db:         db,
		lock:       newTableLock(),
		columns:    append([]catalog.Column(nil), spec.Columns...),
		indexes:    make(map[string][]string),
		rowCount:   spec.RowCount,
		dataSize:   spec.DataSize,
		version:    1,
		updateTime: time.Now(),
		viewSQL:    spec.ViewSQL,
		sqlMode:    spec.SQLMode,
	}
	t.caps.Store(uint32(spec.Capabilities))
	t.skipLock.Store(spec.SkipPlanningLock)

	base := make([]string, 0, len(spec.Columns))
	for _, col := range spec.Columns {
		base = append(base, col.Name)
	}
	t.indexNames = append(t.indexNames, spec.Name)
	t.indexes[spec.Name] = base
	for name, cols := range spec.Indexes {
		if name == spec.Name {
			continue
		}
		t.indexNames = append(t.indexNames, name)
		t.indexes[name] = append([]string(nil), cols...)
	}
	// map iteration order is random; keep rollups sorted after the base index.
	slices.Sort(t.indexNames[1:])
	return t
}

// ID is part of the catalog.Table interface.
func (t *Table) ID() int64 {
	return t.id
}

// Name is part of the catalog.Table interface.
func (t *Table) Name() catalog.TableName {
	return t.name
}

// Capabilities is part of the catalog.Table interface.
func (t *Table) Capabilities() catalog.Capability {
	return catalog.Capability(t.caps.Load())
}

// SetCapabilities replaces the capability flags.
func (t *Table) SetCapabilities(c catalog.Capability) {
	t.caps.Store(uint32(c))
}

// NeedsReadLockDuringPlanning is part of the catalog.Table interface.
func (t *Table) NeedsReadLockDuringPlanning() bool {
	return !t.skipLock.Load()
}

// SetNeedsReadLock changes the answer of NeedsReadLockDuringPlanning.
func (t *Table) SetNeedsReadLock(needs bool) {
	t.skipLock.Store(!needs)
}

// TryReadLock is part of the catalog.Table interface.
func (t *Table) TryReadLock(timeout time.Duration) bool {
	ok := t.lock.tryRead(timeout)
	kind := ReadLocked
	if !ok {
		kind = ReadLockTimedOut
	}
	t.cat.events.add(LockEvent{TableID: t.id, Name: t.name, Kind: kind})
	return ok
}

// ReadUnlock is part of the catalog.Table interface. It panics if no read
// lock is held.
func (t *Table) ReadUnlock() {
	t.lock.readUnlock(t.name)
	t.cat.events.add(LockEvent{TableID: t.id, Name: t.name, Kind: ReadUnlocked})
}

// TryWriteLock waits up to timeout for exclusive access, as DDL would.
func (t *Table) TryWriteLock(timeout time.Duration) bool {
	return t.lock.tryWrite(timeout)
}

// WriteUnlock releases the lock taken by TryWriteLock.
func (t *Table) WriteUnlock() {
	t.lock.writeUnlock(t.name)
}

// ReadersHeld returns the number of read locks currently held.
func (t *Table) ReadersHeld() int64 {
	return t.lock.readers.Load()
}

// LoadSnapshot is part of the catalog.Table interface.
func (t *Table) LoadSnapshot(hint catalog.SnapshotHint) (*catalog.Snapshot, error) {
	t.snapshotLoads.Add(1)
	if !t.Capabilities().Has(catalog.CapMVCC) {
		return nil, vterrors.Errorf(codes.FailedPrecondition, "table %s does not support snapshot reads", t.name)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.snapshotErr != nil {
		return nil, t.snapshotErr
	}
	version := t.version
	if hint.TableVersion > 0 {
		if hint.TableVersion > t.version {
			return nil, vterrors.Errorf(codes.InvalidArgument, "table %s has no version %d, latest is %d", t.name, hint.TableVersion, t.version)
		}
		version = hint.TableVersion
	}
	return &catalog.Snapshot{Version: version, Timestamp: t.updateTime}, nil
}

// SnapshotLoads returns how many times LoadSnapshot was called.
func (t *Table) SnapshotLoads() int64 {
	return t.snapshotLoads.Load()
}

// SetSnapshotError makes LoadSnapshot fail with err. A nil err clears it.
func (t *Table) SetSnapshotError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshotErr = err
}

// ViewDefinition is part of the catalog.View interface.
func (t *Table) ViewDefinition() (string, int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.viewSQL, t.sqlMode
}

// CatalogID is part of the catalog.AnalyzableTable interface.
func (t *Table) CatalogID() int64 {
	return t.db.CatalogID
}

// DatabaseID is part of the catalog.AnalyzableTable interface.
func (t *Table) DatabaseID() int64 {
	return t.db.ID
}

// DatabaseName is part of the catalog.AnalyzableTable interface.
func (t *Table) DatabaseName() string {
	return t.db.Name
}

// Columns is part of the catalog.AnalyzableTable interface.
func (t *Table) Columns() []catalog.Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]catalog.Column(nil), t.columns...)
}

// Column is part of the catalog.AnalyzableTable interface.
func (t *Table) Column(name string) (catalog.Column, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, col := range t.columns {
		if col.Name == name {
			return col, true
		}
	}
	return catalog.Column{}, false
}

// ColumnIndexPairs is part of the catalog.AnalyzableTable interface.
// Pairs are ordered by index, base index first, then by columns.
func (t *Table) ColumnIndexPairs(columns []string) []catalog.ColumnIndexPair {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var pairs []catalog.ColumnIndexPair
	for _, index := range t.indexNames {
		members := t.indexes[index]
		for _, col := range columns {
			for _, m := range members {
				if m == col {
					pairs = append(pairs, catalog.ColumnIndexPair{Index: index, Column: col})
					break
				}
			}
		}
	}
	return pairs
}

// DataSize is part of the catalog.AnalyzableTable interface.
func (t *Table) DataSize() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dataSize
}

// SetDataSize sets the reported data size in bytes.
func (t *Table) SetDataSize(size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dataSize = size
}

// RowCount is part of the catalog.AnalyzableTable interface.
func (t *Table) RowCount() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rowCount
}

// SetRowCount sets the reported row count; catalog.UnknownRowCount means
// not reported yet.
func (t *Table) SetRowCount(rows int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rowCount = rows
}

// Version is part of the catalog.AnalyzableTable interface.
func (t *Table) Version() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// BumpVersion records a data change and returns the new version.
func (t *Table) BumpVersion() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.version++
	t.updateTime = time.Now()
	return t.version
}

// UpdateTime is part of the catalog.AnalyzableTable interface.
func (t *Table) UpdateTime() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updateTime
}

func (t *Table) String() string {
	return fmt.Sprintf("%s(id=%d)", t.name, t.id)
}

var (
	_ catalog.AnalyzableTable = (*Table)(nil)
	_ catalog.View            = (*Table)(nil)
)

// maxReaders bounds the number of concurrent readers of one table.
const maxReaders = 1 << 30

// tableLock is a read/write lock with bounded waits. A waiting writer
// blocks readers that arrive after it, as semaphore.Weighted serves
// waiters in FIFO order.
type tableLock struct {
	sem     *semaphore.Weighted
	readers atomic.Int64
	writer  atomic.Bool
}

func newTableLock() tableLock {
	return tableLock{sem: semaphore.NewWeighted(maxReaders)}
}

func (l *tableLock) acquire(timeout time.Duration, n int64) bool {
	if timeout <= 0 {
		return l.sem.TryAcquire(n)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.sem.Acquire(ctx, n) == nil
}

func (l *tableLock) tryRead(timeout time.Duration) bool {
	if !l.acquire(timeout, 1) {
		return false
	}
	l.readers.Add(1)
	return true
}

func (l *tableLock) readUnlock(name catalog.TableName) {
	if l.readers.Add(-1) < 0 {
		l.readers.Add(1)
		panic(fmt.Sprintf("memorycatalog: read unlock of %s without a read lock", name))
	}
	l.sem.Release(1)
}

func (l *tableLock) tryWrite(timeout time.Duration) bool {
	if !l.acquire(timeout, maxReaders) {
		return false
	}
	l.writer.Store(true)
	return true
}

func (l *tableLock) writeUnlock(name catalog.TableName) {
	if !l.writer.CompareAndSwap(true, false) {
		panic(fmt.Sprintf("memorycatalog: write unlock of %s without a write lock", name))
	}
	l.sem.Release(maxReaders)
}
