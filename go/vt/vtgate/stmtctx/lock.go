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
	"fmt"
	"time"

	"github.com/google/btree"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/log"
	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

// resource is one planner resource held by a statement, e.g. a table read
// lock. It is closed at most once.
type resource struct {
	name        string
	tableID     int64
	owner       int64
	statementID string
	sql         string
	acquiredAt  time.Time
	release     func()
	closed      bool
}

func (r *resource) close() (err error) {
	if r.closed {
		return nil
	}
	r.closed = true
	defer func() {
		if x := recover(); x != nil {
			err = vterrors.Errorf(codes.Internal, "close resource %s failed: %v", r.name, x)
		}
	}()
	r.release()
	return nil
}

func (r *resource) String() string {
	return fmt.Sprintf("Resource{name: %s, connection: %d, statement: %s, held: %v, sql: %q}",
		r.name, r.owner, r.statementID, time.Since(r.acquiredAt).Round(time.Millisecond), r.sql)
}

// byTableID orders tables by id, the global lock order. Inserting a table
// whose id is already present replaces it, so a table registered under
// several roles is visited once.
func byTableID(roles ...map[catalog.TableName]catalog.Table) *btree.BTreeG[catalog.Table] {
	order := btree.NewG(8, func(a, b catalog.Table) bool { return a.ID() < b.ID() })
	for _, tables := range roles {
		for _, t := range tables {
			order.ReplaceOrInsert(t)
		}
	}
	return order
}

// Lock takes a read lock on every table registered under any role, in
// ascending table id order, skipping tables that do not need one during
// planning. Each lock waits at most Options.LockTimeout.
//
// If a lock cannot be acquired, every lock taken so far is released in
// reverse order and an error wrapping ErrLockTimeout naming the table is
// returned; the statement stays in Created. Lock is a no-op while locks are
// held, when table locking is disabled, and when no table is registered. A
// Lock that took no lock leaves the statement Locked, and a later Lock still
// visits tables registered since.
//
// sc.mu is held while each TryReadLock waits, so Close, State and
// LeakedStatements on the same statement block for up to LockTimeout per
// table.
func (sc *StatementContext) Lock() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.checkOpenLocked(); err != nil {
		return err
	}
	if !sc.needLockTables || len(sc.resources) > 0 {
		return nil
	}
	order := byTableID(sc.tables[:]...)
	if order.Len() == 0 {
		return nil
	}

	var lockErr error
	order.Ascend(func(t catalog.Table) bool {
		if !t.NeedsReadLockDuringPlanning() {
			return true
		}
		if !t.TryReadLock(sc.opts.LockTimeout) {
			tableLockTimeouts.Add(t.Name().String(), 1)
			lockErr = vterrors.Wrapf(ErrLockTimeout, "failed to get read lock on table %s within %v", t.Name(), sc.opts.LockTimeout)
			return false
		}
		sc.resources = append(sc.resources, &resource{
			name:        "tableReadLock(" + t.Name().String() + ")",
			tableID:     t.ID(),
			owner:       sc.opts.ConnectionID,
			statementID: sc.id.String(),
			sql:         sc.opts.SQL,
			acquiredAt:  time.Now(),
			release:     t.ReadUnlock,
		})
		tableLocksAcquired.Add(1)
		resourcesHeld.Add(1)
		return true
	})
	if lockErr != nil {
		if err := sc.releaseLocked(); err != nil {
			log.Errorf("statement %s: releasing partial table locks: %v", sc.id, err)
		}
		return lockErr
	}
	sc.state = Locked
	return nil
}

// ReleasePlannerResources releases every held resource in reverse
// acquisition order. All releases are attempted; the first failure is
// returned.
func (sc *StatementContext) ReleasePlannerResources() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.releaseLocked()
}

// releaseLocked must be called with mu held.
func (sc *StatementContext) releaseLocked() error {
	var rec vterrors.FirstErrorRecorder
	for len(sc.resources) > 0 {
		r := sc.resources[len(sc.resources)-1]
		sc.resources = sc.resources[:len(sc.resources)-1]
		resourcesHeld.Add(-1)
		if err := r.close(); err != nil {
			releaseFailures.Add(1)
			rec.RecordError(err)
		}
	}
	if sc.state == Locked {
		sc.state = Created
	}
	if rec.HasErrors() {
		if dropped := rec.Dropped(); dropped > 0 {
			log.Errorf("statement %s: %d more planner resources failed to release", sc.id, dropped)
		}
		return vterrors.Wrapf(rec.Error(), "release planner resources of statement %s", sc.id)
	}
	return nil
}

// HeldResources describes the resources currently held, most recently
// acquired last.
func (sc *StatementContext) HeldResources() []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.heldResourcesLocked()
}

func (sc *StatementContext) heldResourcesLocked() []string {
	out := make([]string, 0, len(sc.resources))
	for _, r := range sc.resources {
		out = append(out, r.String())
	}
	return out
}

// LockedTableIDs returns the ids of the tables read locked by the statement,
// in acquisition order.
func (sc *StatementContext) LockedTableIDs() []int64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]int64, 0, len(sc.resources))
	for _, r := range sc.resources {
		out = append(out, r.tableID)
	}
	return out
}
