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
	"context"
	"sync"
	"time"

	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

// fakeTable is a catalog.View whose lock calls are counted.
type fakeTable struct {
	id        int64
	name      catalog.TableName
	caps      catalog.Capability
	skipLock  bool
	failLock  bool
	failPanic bool
	// when set, TryReadLock signals waiting and blocks until gate is closed.
	waiting chan struct{}
	gate    chan struct{}

	mu        sync.Mutex
	locks     int
	unlocks   int
	viewSQL   string
	viewReads int
}

func newFakeTable(id int64, table string) *fakeTable {
	return &fakeTable{id: id, name: catalog.NewTableName("db", table)}
}

func (f *fakeTable) ID() int64                         { return f.id }
func (f *fakeTable) Name() catalog.TableName           { return f.name }
func (f *fakeTable) Capabilities() catalog.Capability  { return f.caps }
func (f *fakeTable) NeedsReadLockDuringPlanning() bool { return !f.skipLock }
func (f *fakeTable) LoadSnapshot(catalog.SnapshotHint) (*catalog.Snapshot, error) {
	return &catalog.Snapshot{Version: 1}, nil
}

func (f *fakeTable) TryReadLock(time.Duration) bool {
	if f.gate != nil {
		close(f.waiting)
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLock {
		return false
	}
	f.locks++
	return true
}

func (f *fakeTable) ReadUnlock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocks++
	if f.failPanic {
		panic("unlock failed")
	}
}

func (f *fakeTable) ViewDefinition() (string, int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewReads++
	return f.viewSQL, 7
}

func (f *fakeTable) counts() (locks, unlocks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locks, f.unlocks
}

type fakeResolver map[catalog.TableName]catalog.Table

func (r fakeResolver) ResolveTable(_ context.Context, name catalog.TableName) (catalog.Table, error) {
	if t, ok := r[name]; ok {
		return t, nil
	}
	return nil, catalog.NotFoundError(name)
}

func resolverOf(tables ...*fakeTable) fakeResolver {
	r := make(fakeResolver)
	for _, t := range tables {
		r[t.name] = t
	}
	return r
}
