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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := New()
	_, err := c.CreateDatabase("db2", 200)
	require.NoError(t, err)
	_, err = c.CreateDatabase("db1", 100)
	require.NoError(t, err)
	for _, spec := range []TableSpec{
		{ID: 5, Name: "c", Capabilities: catalog.CapInternal},
		{ID: 1, Name: "a", Capabilities: catalog.CapInternal | catalog.CapMVCC},
		{ID: 3, Name: "b", Capabilities: catalog.CapInternal},
	} {
		_, err := c.CreateTable("db1", spec)
		require.NoError(t, err)
	}
	return c
}

func TestOrderedIDs(t *testing.T) {
	c := newTestCatalog(t)
	assert.Equal(t, []int64{100, 200}, c.DatabaseIDs())

	var ids []int64
	for _, tbl := range c.TablesOf(100) {
		ids = append(ids, tbl.ID())
	}
	assert.Equal(t, []int64{1, 3, 5}, ids)
	assert.Empty(t, c.TablesOf(200))
	assert.Nil(t, c.TablesOf(999))

	db, ok := c.Database(100)
	require.True(t, ok)
	assert.Equal(t, "db1", db.Name)
}

func TestAllocatedIDsDoNotCollide(t *testing.T) {
	c := newTestCatalog(t)
	db, err := c.CreateDatabase("db3", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(201), db.ID)
	tbl, err := c.CreateTable("db3", TableSpec{Name: "t"})
	require.NoError(t, err)
	assert.Equal(t, int64(202), tbl.ID())

	_, err = c.CreateTable("db3", TableSpec{ID: 3, Name: "dup"})
	assert.Equal(t, codes.AlreadyExists, vterrors.Code(err))
	_, err = c.CreateTable("db3", TableSpec{Name: "t"})
	assert.Equal(t, codes.AlreadyExists, vterrors.Code(err))
	_, err = c.CreateTable("nope", TableSpec{Name: "t"})
	assert.Equal(t, codes.NotFound, vterrors.Code(err))
}

func TestResolveTable(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	tbl, err := c.ResolveTable(ctx, catalog.NewTableName("db1", "a"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), tbl.ID())
	assert.Equal(t, "internal.db1.a", tbl.Name().String())

	_, err = c.ResolveTable(ctx, catalog.NewTableName("db1", "zz"))
	assert.Equal(t, codes.NotFound, vterrors.Code(err))

	_, err = c.ResolveTable(ctx, catalog.TableName{Catalog: "hive", Database: "db1", Table: "a"})
	assert.Equal(t, codes.NotFound, vterrors.Code(err))

	c.Deny(catalog.NewTableName("db1", "b"))
	_, err = c.ResolveTable(ctx, catalog.NewTableName("db1", "b"))
	assert.Equal(t, codes.PermissionDenied, vterrors.Code(err))

	require.NoError(t, c.DropTable(catalog.NewTableName("db1", "a")))
	_, err = c.ResolveTable(ctx, catalog.NewTableName("db1", "a"))
	assert.Equal(t, codes.NotFound, vterrors.Code(err))
	assert.Equal(t, codes.NotFound, vterrors.Code(c.DropTable(catalog.NewTableName("db1", "a"))))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.ResolveTable(canceled, catalog.NewTableName("db1", "b"))
	assert.Equal(t, codes.Canceled, vterrors.Code(err))
}

func TestLookupTableByID(t *testing.T) {
	c := newTestCatalog(t)
	tbl, err := c.LookupTableByID(0, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, "b", tbl.Name().Table)

	_, err = c.LookupTableByID(1, 100, 3)
	assert.Equal(t, codes.NotFound, vterrors.Code(err))
	_, err = c.LookupTableByID(0, 300, 3)
	assert.Equal(t, codes.NotFound, vterrors.Code(err))
	_, err = c.LookupTableByID(0, 100, 4)
	assert.Equal(t, codes.NotFound, vterrors.Code(err))
}

func TestReadLock(t *testing.T) {
	c := newTestCatalog(t)
	tbl, _ := c.Table(catalog.NewTableName("db1", "a"))

	require.True(t, tbl.TryReadLock(time.Second))
	require.True(t, tbl.TryReadLock(0))
	assert.EqualValues(t, 2, tbl.ReadersHeld())

	// a writer cannot get in while readers hold the table.
	assert.False(t, tbl.TryWriteLock(10*time.Millisecond))

	tbl.ReadUnlock()
	tbl.ReadUnlock()
	assert.EqualValues(t, 0, tbl.ReadersHeld())
	assert.Panics(t, tbl.ReadUnlock)

	require.True(t, tbl.TryWriteLock(0))
	assert.False(t, tbl.TryReadLock(10*time.Millisecond))
	tbl.WriteUnlock()
	assert.Panics(t, tbl.WriteUnlock)
	require.True(t, tbl.TryReadLock(0))
	tbl.ReadUnlock()

	kinds := make([]LockEventKind, 0)
	for _, e := range c.LockEvents() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []LockEventKind{
		ReadLocked, ReadLocked, ReadUnlocked, ReadUnlocked,
		ReadLockTimedOut, ReadLocked, ReadUnlocked,
	}, kinds)
	c.ResetLockEvents()
	assert.Empty(t, c.LockEvents())
}

func TestWaitingWriterBlocksNewReaders(t *testing.T) {
	c := newTestCatalog(t)
	tbl, _ := c.Table(catalog.NewTableName("db1", "a"))
	require.True(t, tbl.TryReadLock(0))

	writerDone := make(chan bool)
	go func() {
		writerDone <- tbl.TryWriteLock(time.Second)
	}()
	// once the writer is queued, new readers wait behind it.
	assert.Eventually(t, func() bool {
		if tbl.TryReadLock(0) {
			tbl.ReadUnlock()
			return false
		}
		return true
	}, time.Second, time.Millisecond)

	tbl.ReadUnlock()
	require.True(t, <-writerDone)
	tbl.WriteUnlock()
}

func TestLoadSnapshot(t *testing.T) {
	c := newTestCatalog(t)
	a, _ := c.Table(catalog.NewTableName("db1", "a"))
	b, _ := c.Table(catalog.NewTableName("db1", "b"))

	snap, err := a.LoadSnapshot(catalog.SnapshotHint{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap.Version)

	assert.EqualValues(t, 2, a.BumpVersion())
	snap, err = a.LoadSnapshot(catalog.SnapshotHint{TableVersion: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap.Version)

	_, err = a.LoadSnapshot(catalog.SnapshotHint{TableVersion: 9})
	assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))

	_, err = b.LoadSnapshot(catalog.SnapshotHint{})
	assert.Equal(t, codes.FailedPrecondition, vterrors.Code(err))

	a.SetSnapshotError(vterrors.New(codes.Unavailable, "storage unavailable"))
	_, err = a.LoadSnapshot(catalog.SnapshotHint{})
	assert.Equal(t, codes.Unavailable, vterrors.Code(err))
	assert.EqualValues(t, 4, a.SnapshotLoads())
}

func TestColumnIndexPairs(t *testing.T) {
	c := New()
	_, err := c.CreateDatabase("db", 0)
	require.NoError(t, err)
	tbl, err := c.CreateTable("db", TableSpec{
		Name: "t",
		Columns: []catalog.Column{
			{Name: "k", Type: catalog.TypeBigInt, Visible: true},
			{Name: "v", Type: catalog.TypeVarchar, Visible: true},
		},
		Indexes: map[string][]string{"r2": {"v"}, "r1": {"k", "v"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []catalog.ColumnIndexPair{
		{Index: "t", Column: "v"},
		{Index: "t", Column: "k"},
		{Index: "r1", Column: "v"},
		{Index: "r1", Column: "k"},
		{Index: "r2", Column: "v"},
	}, tbl.ColumnIndexPairs([]string{"v", "k"}))
	assert.Empty(t, tbl.ColumnIndexPairs([]string{"missing"}))

	col, ok := tbl.Column("k")
	require.True(t, ok)
	assert.Equal(t, catalog.TypeBigInt, col.Type)
	_, ok = tbl.Column("missing")
	assert.False(t, ok)
}
