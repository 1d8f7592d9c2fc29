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

package stmtctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

func TestLoadSnapshots(t *testing.T) {
	c := newCatalog(t, map[string]int64{"q": 1, "seeded": 2, "mv": 3, "plain": 4})
	plain := mustTable(t, c, "plain")
	plain.SetCapabilities(catalog.CapInternal)

	sc := New(c, Options{})
	defer sc.Close()
	register(t, sc, RoleQuery, "q", "seeded", "plain")
	register(t, sc, RoleMTMV, "mv")

	seeded := mustTable(t, c, "seeded")
	mvSnap := &catalog.Snapshot{Version: 42}
	require.True(t, sc.SetSnapshot(seeded, mvSnap))

	require.NoError(t, sc.LoadSnapshots(catalog.SnapshotHint{}))
	require.NoError(t, sc.LoadSnapshots(catalog.SnapshotHint{}))

	q := mustTable(t, c, "q")
	assert.EqualValues(t, 1, q.SnapshotLoads())
	assert.Zero(t, seeded.SnapshotLoads())
	assert.Zero(t, mustTable(t, c, "mv").SnapshotLoads())
	assert.Zero(t, plain.SnapshotLoads())

	snap, ok := sc.GetSnapshot(q)
	require.True(t, ok)
	assert.EqualValues(t, 1, snap.Version)

	got, ok := sc.GetSnapshot(seeded)
	require.True(t, ok)
	assert.Same(t, mvSnap, got)

	_, ok = sc.GetSnapshot(plain)
	assert.False(t, ok)
	_, ok = sc.GetSnapshot(mustTable(t, c, "mv"))
	assert.False(t, ok)
}

func TestSetSnapshotNeverReplaces(t *testing.T) {
	c := newCatalog(t, map[string]int64{"q": 1})
	q := mustTable(t, c, "q")
	sc := New(c, Options{})
	defer sc.Close()
	register(t, sc, RoleQuery, "q")

	require.NoError(t, sc.LoadSnapshots(catalog.SnapshotHint{}))
	first, _ := sc.GetSnapshot(q)

	q.BumpVersion()
	assert.False(t, sc.SetSnapshot(q, &catalog.Snapshot{Version: 2}))
	assert.False(t, sc.SetSnapshot(q, nil))
	require.NoError(t, sc.LoadSnapshots(catalog.SnapshotHint{}))
	got, _ := sc.GetSnapshot(q)
	assert.Same(t, first, got)
}

func TestSetSnapshotSkipsTablesWithoutMVCC(t *testing.T) {
	c := newCatalog(t, map[string]int64{"plain": 1})
	plain := mustTable(t, c, "plain")
	plain.SetCapabilities(catalog.CapInternal)
	sc := New(c, Options{})
	defer sc.Close()

	assert.False(t, sc.SetSnapshot(plain, &catalog.Snapshot{Version: 3}))
	snap, ok := sc.GetSnapshot(plain)
	assert.False(t, ok)
	assert.Nil(t, snap)

	// the table gaining MVCC later finds nothing cached.
	plain.SetCapabilities(catalog.CapInternal | catalog.CapMVCC)
	_, ok = sc.GetSnapshot(plain)
	assert.False(t, ok)
}

func TestLoadSnapshotsError(t *testing.T) {
	c := newCatalog(t, map[string]int64{"q": 1})
	q := mustTable(t, c, "q")
	q.SetSnapshotError(vterrors.New(codes.Unavailable, "no replicas"))
	sc := New(c, Options{})
	defer sc.Close()
	register(t, sc, RoleQuery, "q")

	err := sc.LoadSnapshots(catalog.SnapshotHint{})
	assert.Equal(t, codes.Unavailable, vterrors.Code(err))
	assert.ErrorContains(t, err, "loading snapshot of internal.db.q")

	q.SetSnapshotError(nil)
	require.NoError(t, sc.LoadSnapshots(catalog.SnapshotHint{}))
	_, ok := sc.GetSnapshot(q)
	assert.True(t, ok)
}

func TestLoadSnapshotsWithHint(t *testing.T) {
	c := newCatalog(t, map[string]int64{"q": 1})
	q := mustTable(t, c, "q")
	q.BumpVersion()
	sc := New(c, Options{})
	defer sc.Close()
	register(t, sc, RoleQuery, "q")

	require.NoError(t, sc.LoadSnapshots(catalog.SnapshotHint{TableVersion: 1}))
	snap, _ := sc.GetSnapshot(q)
	assert.EqualValues(t, 1, snap.Version)
}
