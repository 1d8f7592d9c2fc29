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

// Package memstats is an in-memory statistics store. It also implements the
// analyzer of the auto-analyze collector by recording, for every task, the
// table state the statistics were computed from.
package memstats

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/olapfe/planstate/go/vt/log"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
)

// AnalyzeHook runs before a task is recorded. A non-nil error fails the task.
type AnalyzeHook func(ctx context.Context, task *statistics.AnalysisTask) error

// Stats keeps the statistics bookkeeping of every table.
type Stats struct {
	tables *cache.Cache
	now    func() time.Time

	mu   sync.Mutex
	hook AnalyzeHook

	tasks atomic.Int64
}

// New returns an empty store.
func New() *Stats {
	return &Stats{
		tables: cache.New(cache.NoExpiration, 0),
		now:    time.Now,
	}
}

func key(tableID int64) string {
	return strconv.FormatInt(tableID, 10)
}

func (s *Stats) getOrCreate(tableID int64) *statistics.TableStatsMeta {
	k := key(tableID)
	if v, ok := s.tables.Get(k); ok {
		return v.(*statistics.TableStatsMeta)
	}
	// Add fails if another caller created the entry first.
	_ = s.tables.Add(k, statistics.NewTableStatsMeta(tableID), cache.NoExpiration)
	v, _ := s.tables.Get(k)
	return v.(*statistics.TableStatsMeta)
}

// FindTableStatsStatus is part of the statistics.Store interface.
func (s *Stats) FindTableStatsStatus(tableID int64) *statistics.TableStatsMeta {
	if v, ok := s.tables.Get(key(tableID)); ok {
		return v.(*statistics.TableStatsMeta)
	}
	return nil
}

// RemoveTableStats is part of the statistics.Store interface.
func (s *Stats) RemoveTableStats(tableID int64) {
	s.tables.Delete(key(tableID))
	log.Infof("Removed statistics of table %d", tableID)
}

// RecordTableUpdate accounts rows written to a table.
func (s *Stats) RecordTableUpdate(tableID int64, rows int64) {
	s.getOrCreate(tableID).AddUpdatedRows(rows)
}

// MarkPartitionChanged flags that every column of the table must be analyzed
// again.
func (s *Stats) MarkPartitionChanged(tableID int64) {
	s.getOrCreate(tableID).SetPartitionChanged(true)
}

// SetAnalyzeHook installs hook. A nil hook removes it.
func (s *Stats) SetAnalyzeHook(hook AnalyzeHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Analyze records the statistics of one pair as collected now, from the table
// state captured by the job.
func (s *Stats) Analyze(ctx context.Context, task *statistics.AnalysisTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, task); err != nil {
			return err
		}
	}
	job := task.Job
	s.getOrCreate(job.TableID).RecordAnalyzed(task.Pair, statistics.ColumnStatsMeta{
		UpdatedAt:    s.now(),
		TableVersion: job.TableVersion,
		UpdatedRows:  job.UpdatedRows,
		RowCount:     job.RowCount,
		Method:       job.Method,
	})
	s.tasks.Add(1)
	return nil
}

// TasksAnalyzed is the number of tasks recorded.
func (s *Stats) TasksAnalyzed() int64 {
	return s.tasks.Load()
}

// TableCount is the number of tables with bookkeeping.
func (s *Stats) TableCount() int {
	return s.tables.ItemCount()
}
