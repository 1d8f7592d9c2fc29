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
	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

type snapshotKey struct {
	catalog string
	tableID int64
}

func keyOf(t catalog.Table) snapshotKey {
	return snapshotKey{catalog: normalizeName(t.Name()).Catalog, tableID: t.ID()}
}

// LoadSnapshots resolves and caches a snapshot for every RoleQuery table
// that supports MVCC reads and has none cached yet. Snapshots seeded with
// SetSnapshot, e.g. by materialized view rewrite, are kept.
func (sc *StatementContext) LoadSnapshots(hint catalog.SnapshotHint) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.checkOpenLocked(); err != nil {
		return err
	}
	var err error
	byTableID(sc.tables[RoleQuery]).Ascend(func(t catalog.Table) bool {
		if !t.Capabilities().Has(catalog.CapMVCC) {
			return true
		}
		key := keyOf(t)
		if sc.snapshots[key] != nil {
			return true
		}
		var snap *catalog.Snapshot
		snap, err = t.LoadSnapshot(hint)
		if err != nil {
			err = vterrors.Wrapf(err, "loading snapshot of %s", t.Name())
			return false
		}
		sc.snapshots[key] = snap
		return true
	})
	return err
}

// GetSnapshot returns the snapshot cached for t, if any.
func (sc *StatementContext) GetSnapshot(t catalog.Table) (*catalog.Snapshot, bool) {
	if !t.Capabilities().Has(catalog.CapMVCC) {
		return nil, false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	snap := sc.snapshots[keyOf(t)]
	return snap, snap != nil
}

// SetSnapshot caches snap for t unless a snapshot is already cached. It
// returns true if snap was stored. Tables without CapMVCC never store a
// snapshot. A cached snapshot is never replaced, so
// every plan fragment of the statement observes the same version.
func (sc *StatementContext) SetSnapshot(t catalog.Table, snap *catalog.Snapshot) bool {
	if snap == nil || !t.Capabilities().Has(catalog.CapMVCC) {
		return false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state == Closed {
		return false
	}
	key := keyOf(t)
	if sc.snapshots[key] != nil {
		return false
	}
	sc.snapshots[key] = snap
	return true
}
