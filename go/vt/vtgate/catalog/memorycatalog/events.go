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
	"slices"
	"sync"

	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

// LockEventKind is the kind of a LockEvent.
type LockEventKind int

// Lock event kinds.
const (
	ReadLocked LockEventKind = iota
	ReadLockTimedOut
	ReadUnlocked
)

func (k LockEventKind) String() string {
	switch k {
	case ReadLocked:
		return "ReadLocked"
	case ReadLockTimedOut:
		return "ReadLockTimedOut"
	case ReadUnlocked:
		return "ReadUnlocked"
	}
	return "Unknown"
}

// LockEvent records one read lock operation on a table.
type LockEvent struct {
	TableID int64
	Name    catalog.TableName
	Kind    LockEventKind
}

type eventLog struct {
	mu     sync.Mutex
	events []LockEvent
}

func (l *eventLog) add(e LockEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) snapshot() []LockEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
