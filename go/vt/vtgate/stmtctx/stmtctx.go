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

// Package stmtctx holds the state of one statement while it is planned: the
// tables it references under each role, the read locks it holds on them, the
// MVCC snapshots it observed, the id generators for planning objects and the
// planner's per-statement bookkeeping.
//
// A StatementContext is owned by the goroutine planning the statement.
// Table registration, Lock, the snapshot cache and Close are additionally
// safe to call from another goroutine, e.g. one that cancels the statement.
// Every StatementContext must be closed; Run does that on every exit path.
package stmtctx

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/idgen"
)

// DefaultLockTimeout bounds the wait for each table read lock when Options
// does not set one.
const DefaultLockTimeout = time.Minute

var (
	// ErrLockTimeout is wrapped by the error Lock returns when a table read
	// lock could not be acquired in time. The statement may be retried.
	ErrLockTimeout = vterrors.New(codes.DeadlineExceeded, "table read lock timeout")
	// ErrResourceLeak is wrapped by CheckNoLeaks.
	ErrResourceLeak = vterrors.New(codes.Internal, "planner resources leaked")
	// ErrClosed is wrapped by operations on a closed StatementContext.
	ErrClosed = vterrors.New(codes.FailedPrecondition, "statement context is closed")
)

// Role tells why a table is referenced by a statement.
type Role int

const (
	// RoleQuery tables are read by the statement directly.
	RoleQuery Role = iota
	// RoleInsertTarget tables are written by the statement.
	RoleInsertTarget
	// RoleMTMV tables are materialized views, and their base tables, that
	// rewrite may use. Failing to resolve one is not an error.
	RoleMTMV

	numRoles
)

func (r Role) String() string {
	switch r {
	case RoleQuery:
		return "QUERY"
	case RoleInsertTarget:
		return "INSERT_TARGET"
	case RoleMTMV:
		return "MTMV"
	}
	return "UNKNOWN"
}

// State is the lifecycle state of a StatementContext.
type State int

const (
	// Created is the state from New until Lock succeeds.
	Created State = iota
	// Locked means every table needing a read lock is locked.
	Locked
	// Closed is terminal.
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Locked:
		return "Locked"
	case Closed:
		return "Closed"
	}
	return "Unknown"
}

// Options configures a StatementContext.
type Options struct {
	// SQL is the statement text, reported with held locks.
	SQL string
	// ConnectionID identifies the owning connection.
	ConnectionID int64
	// InitialExprID seeds the expression id generator.
	InitialExprID idgen.ExprID
	// LockTimeout bounds the wait for each table read lock.
	LockTimeout time.Duration
	// SkipTableLocks disables Lock.
	SkipTableLocks bool
	// PlaceholderIDs is the connection's placeholder generator. A statement
	// scoped generator is used when nil.
	PlaceholderIDs *idgen.Generator[idgen.PlaceholderID]
}

// StatementContext is the planning state of one statement.
type StatementContext struct {
	id       uuid.UUID
	resolver catalog.Resolver
	opts     Options
	openedAt time.Time

	exprIDs        *idgen.Generator[idgen.ExprID]
	relationIDs    *idgen.Generator[idgen.RelationID]
	cteIDs         *idgen.Generator[idgen.CTEID]
	objectIDs      *idgen.Generator[idgen.ObjectID]
	tableIDs       *idgen.Generator[idgen.TableID]
	placeholderIDs *idgen.Generator[idgen.PlaceholderID]

	// mu protects the fields below. It is never held while waiting on a
	// table lock of a table that is not being locked by this statement.
	mu             sync.Mutex
	state          State
	needLockTables bool
	tables         [numRoles]map[catalog.TableName]catalog.Table
	candidateMTMVs map[int64]catalog.Table
	viewInfos      map[catalog.TableName]ViewInfo
	// resources is a stack; the last element was acquired last.
	resources []*resource
	snapshots map[snapshotKey]*catalog.Snapshot

	cacheMu sync.Mutex
	cache   map[string]*cacheEntry

	planning
}

// New returns an open StatementContext. It must be closed with Close.
func New(resolver catalog.Resolver, opts Options) *StatementContext {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	placeholderIDs := opts.PlaceholderIDs
	if placeholderIDs == nil {
		placeholderIDs = idgen.NewGenerator[idgen.PlaceholderID](0)
	}
	sc := &StatementContext{
		id:             uuid.New(),
		resolver:       resolver,
		opts:           opts,
		openedAt:       time.Now(),
		exprIDs:        idgen.NewGenerator(opts.InitialExprID),
		relationIDs:    idgen.NewGenerator[idgen.RelationID](0),
		cteIDs:         idgen.NewGenerator[idgen.CTEID](0),
		objectIDs:      idgen.NewGenerator[idgen.ObjectID](0),
		tableIDs:       idgen.NewGenerator[idgen.TableID](0),
		placeholderIDs: placeholderIDs,
		needLockTables: !opts.SkipTableLocks,
		candidateMTMVs: make(map[int64]catalog.Table),
		viewInfos:      make(map[catalog.TableName]ViewInfo),
		snapshots:      make(map[snapshotKey]*catalog.Snapshot),
		cache:          make(map[string]*cacheEntry),
		planning:       newPlanning(),
	}
	for r := range sc.tables {
		sc.tables[r] = make(map[catalog.TableName]catalog.Table)
	}
	openStatements.add(sc)
	return sc
}

// Run creates a StatementContext, passes it to fn and closes it on every exit
// path, including a panic in fn. Errors from fn and from Close are joined.
func Run(ctx context.Context, resolver catalog.Resolver, opts Options, fn func(ctx context.Context, sc *StatementContext) error) (err error) {
	sc := New(resolver, opts)
	defer func() {
		err = errors.Join(err, sc.Close())
	}()
	return fn(ctx, sc)
}

// ID returns the unique id of the statement.
func (sc *StatementContext) ID() uuid.UUID {
	return sc.id
}

// SQL returns the statement text.
func (sc *StatementContext) SQL() string {
	return sc.opts.SQL
}

// ConnectionID returns the id of the owning connection.
func (sc *StatementContext) ConnectionID() int64 {
	return sc.opts.ConnectionID
}

// State returns the lifecycle state.
func (sc *StatementContext) State() State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// SetNeedLockTables enables or disables Lock.
func (sc *StatementContext) SetNeedLockTables(need bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.needLockTables = need
}

// Close releases every planner resource and moves the statement to Closed.
// It is idempotent: later calls find nothing to release and return nil.
// The first release failure is returned after all releases were attempted.
func (sc *StatementContext) Close() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	err := sc.releaseLocked()
	if sc.state != Closed {
		sc.state = Closed
		openStatements.remove(sc)
	}
	return err
}

// checkOpenLocked must be called with mu held.
func (sc *StatementContext) checkOpenLocked() error {
	if sc.state == Closed {
		return vterrors.Wrapf(ErrClosed, "statement %s", sc.id)
	}
	return nil
}

// NextExprID returns a new expression id.
func (sc *StatementContext) NextExprID() idgen.ExprID {
	return sc.exprIDs.Next()
}

// ExprIDs returns the expression id generator, for sub-planners that
// allocate ids on their own.
func (sc *StatementContext) ExprIDs() *idgen.Generator[idgen.ExprID] {
	return sc.exprIDs
}

// NextRelationID returns a new relation id.
func (sc *StatementContext) NextRelationID() idgen.RelationID {
	return sc.relationIDs.Next()
}

// NextCTEID returns a new CTE id.
func (sc *StatementContext) NextCTEID() idgen.CTEID {
	return sc.cteIDs.Next()
}

// NextObjectID returns a new object id.
func (sc *StatementContext) NextObjectID() idgen.ObjectID {
	return sc.objectIDs.Next()
}

// NextTableID returns a new statement scoped table id.
func (sc *StatementContext) NextTableID() idgen.TableID {
	return sc.tableIDs.Next()
}

// NextPlaceholderID returns a new placeholder id from the connection's
// generator, if one was given.
func (sc *StatementContext) NextPlaceholderID() idgen.PlaceholderID {
	return sc.placeholderIDs.Next()
}
