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

// Package jobqueue holds the four priority tiers of pending auto-analyze
// jobs shared by the appender and the collector.
package jobqueue

import (
	"maps"
	"slices"
	"sync"

	"github.com/gammazero/deque"

	"github.com/olapfe/planstate/go/stats"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
)

// DefaultCapacity is the number of tables a tier holds by default.
const DefaultCapacity = 100

var (
	jobsAppended = stats.NewCountersWithSingleLabel("AutoAnalyzeJobsAppended", "Column sets appended to a job map", "Tier")
	jobMapFull   = stats.NewCountersWithSingleLabel("AutoAnalyzeJobMapFull", "Appends refused because the job map was full", "Tier")
	jobsPopped   = stats.NewCountersWithSingleLabel("AutoAnalyzeJobsPopped", "Jobs taken from a job map", "Tier")
	jobMapSize   = stats.NewGaugesWithSingleLabel("AutoAnalyzeJobMapSize", "Tables waiting in a job map", "Tier")
)

// Job is the pending analysis of a set of pairs of one table.
type Job struct {
	Table catalog.TableName
	Pairs []catalog.ColumnIndexPair
	Tier  statistics.PriorityTier
}

type entry struct {
	pairs map[catalog.ColumnIndexPair]struct{}
}

func (e *entry) sortedPairs() []catalog.ColumnIndexPair {
	pairs := slices.Collect(maps.Keys(e.pairs))
	statistics.SortPairs(pairs)
	return pairs
}

// JobMap is a bounded, insertion ordered map from table name to the pairs
// waiting to be analyzed. All access goes through one mutex.
type JobMap struct {
	tier     statistics.PriorityTier
	capacity int

	mu      sync.Mutex
	entries map[catalog.TableName]*entry
	order   deque.Deque[catalog.TableName]
}

// NewJobMap returns an empty map that holds at most capacity tables.
func NewJobMap(tier statistics.PriorityTier, capacity int) *JobMap {
	return &JobMap{
		tier:     tier,
		capacity: capacity,
		entries:  make(map[catalog.TableName]*entry),
	}
}

// Append merges pairs into the entry of table. A table that is not present
// yet is refused when the map is full, in which case Append returns false
// and the pairs are dropped.
func (m *JobMap) Append(table catalog.TableName, pairs ...catalog.ColumnIndexPair) bool {
	if len(pairs) == 0 {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[table]
	if !ok {
		if len(m.entries) >= m.capacity {
			jobMapFull.Add(m.tier.String(), 1)
			return false
		}
		e = &entry{pairs: make(map[catalog.ColumnIndexPair]struct{}, len(pairs))}
		m.entries[table] = e
		m.order.PushBack(table)
		jobMapSize.Set(m.tier.String(), int64(len(m.entries)))
	}
	for _, p := range pairs {
		e.pairs[p] = struct{}{}
	}
	jobsAppended.Add(m.tier.String(), 1)
	return true
}

// PopFirst removes and returns the oldest entry.
func (m *JobMap) PopFirst() (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.order.Len() == 0 {
		return Job{}, false
	}
	table := m.order.PopFront()
	e := m.entries[table]
	delete(m.entries, table)
	jobsPopped.Add(m.tier.String(), 1)
	jobMapSize.Set(m.tier.String(), int64(len(m.entries)))
	return Job{Table: table, Pairs: e.sortedPairs(), Tier: m.tier}, true
}

func (m *JobMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *JobMap) Tier() statistics.PriorityTier {
	return m.tier
}

func (m *JobMap) Cap() int {
	return m.capacity
}

// Full reports whether a new table would be refused.
func (m *JobMap) Full() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries) >= m.capacity
}

func (m *JobMap) Contains(table catalog.TableName) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[table]
	return ok
}

// Snapshot returns the pending jobs in the order they would be popped.
func (m *JobMap) Snapshot() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := make([]Job, 0, m.order.Len())
	for i := 0; i < m.order.Len(); i++ {
		table := m.order.At(i)
		jobs = append(jobs, Job{Table: table, Pairs: m.entries[table].sortedPairs(), Tier: m.tier})
	}
	return jobs
}

// Queues holds one JobMap per tier. Each tier has its own lock.
type Queues struct {
	tiers [len(tierOrder)]*JobMap
}

var tierOrder = [...]statistics.PriorityTier{
	statistics.TierHigh,
	statistics.TierMid,
	statistics.TierLow,
	statistics.TierVeryLow,
}

// NewQueues returns four empty tiers of the given capacity.
func NewQueues(capacity int) *Queues {
	q := &Queues{}
	for i, tier := range tierOrder {
		q.tiers[i] = NewJobMap(tier, capacity)
	}
	return q
}

// Tier returns the map of one tier. It panics on an invalid tier.
func (q *Queues) Tier(t statistics.PriorityTier) *JobMap {
	return q.tiers[t]
}

// GetJob pops the oldest job of the highest non-empty tier.
func (q *Queues) GetJob() (Job, bool) {
	for _, m := range q.tiers {
		if job, ok := m.PopFirst(); ok {
			return job, true
		}
	}
	return Job{}, false
}

// Len returns the number of tables waiting across all tiers.
func (q *Queues) Len() int {
	n := 0
	for _, m := range q.tiers {
		n += m.Len()
	}
	return n
}

// Snapshot returns the pending jobs of every tier in serving order.
func (q *Queues) Snapshot() []Job {
	var jobs []Job
	for _, m := range q.tiers {
		jobs = append(jobs, m.Snapshot()...)
	}
	return jobs
}
