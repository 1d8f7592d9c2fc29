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

package statistics

import (
	"sync"

	"github.com/gammazero/deque"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/stats"
	"github.com/olapfe/planstate/go/vt/vterrors"
)

var (
	queriedColumnsRecorded = stats.NewCountersWithSingleLabel("StatsQueriedColumnsRecorded", "Queried columns recorded for analysis", "Tier")
	queriedColumnsDropped  = stats.NewCountersWithSingleLabel("StatsQueriedColumnsDropped", "Queried columns dropped because the queue was full", "Tier")
)

// ColumnQueue is a bounded FIFO of queried columns. It is safe for
// concurrent use.
type ColumnQueue struct {
	capacity int

	mu    sync.Mutex
	items deque.Deque[QueryColumn]
}

// NewColumnQueue returns a queue that holds at most capacity columns.
func NewColumnQueue(capacity int) *ColumnQueue {
	return &ColumnQueue{capacity: capacity}
}

// Offer adds qc at the tail. It returns false and drops qc if the queue is
// full.
func (q *ColumnQueue) Offer(qc QueryColumn) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() >= q.capacity {
		return false
	}
	q.items.PushBack(qc)
	return true
}

// Poll removes and returns the head of the queue.
func (q *ColumnQueue) Poll() (QueryColumn, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		return QueryColumn{}, false
	}
	return q.items.PopFront(), true
}

func (q *ColumnQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *ColumnQueue) Cap() int {
	return q.capacity
}

// Recorder is the query path's entry point into auto-analyze. Columns of
// the HIGH tier belong to tables without statistics, MID to tables whose
// statistics are stale.
type Recorder struct {
	high *ColumnQueue
	mid  *ColumnQueue
}

// NewRecorder returns a recorder with two queues of the given capacity.
func NewRecorder(capacity int) *Recorder {
	return &Recorder{
		high: NewColumnQueue(capacity),
		mid:  NewColumnQueue(capacity),
	}
}

// Queue returns the queue of a tier. Only HIGH and MID have one.
func (r *Recorder) Queue(tier PriorityTier) (*ColumnQueue, error) {
	switch tier {
	case TierHigh:
		return r.high, nil
	case TierMid:
		return r.mid, nil
	}
	return nil, vterrors.Errorf(codes.InvalidArgument, "no column queue for tier %v", tier)
}

// RecordQueriedColumns queues cols and returns how many were accepted.
// Columns that do not fit are dropped; they are recorded again the next
// time they are queried.
func (r *Recorder) RecordQueriedColumns(tier PriorityTier, cols ...QueryColumn) (int, error) {
	q, err := r.Queue(tier)
	if err != nil {
		return 0, err
	}
	accepted := 0
	for _, qc := range cols {
		if q.Offer(qc) {
			accepted++
		}
	}
	queriedColumnsRecorded.Add(tier.String(), int64(accepted))
	if dropped := len(cols) - accepted; dropped > 0 {
		queriedColumnsDropped.Add(tier.String(), int64(dropped))
	}
	return accepted, nil
}
