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

// Package statistics holds the model shared by the query path that records
// queried columns and the auto-analyze daemons that refresh their statistics.
package statistics

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/idgen"
)

// PriorityTier ranks analysis jobs. Lower values are served first.
type PriorityTier int

const (
	TierHigh PriorityTier = iota
	TierMid
	TierLow
	TierVeryLow
)

// AllTiers lists the tiers in the order the collector serves them.
var AllTiers = []PriorityTier{TierHigh, TierMid, TierLow, TierVeryLow}

func (t PriorityTier) String() string {
	switch t {
	case TierHigh:
		return "HIGH"
	case TierMid:
		return "MID"
	case TierLow:
		return "LOW"
	case TierVeryLow:
		return "VERY_LOW"
	}
	return fmt.Sprintf("PriorityTier(%d)", int(t))
}

// Valid reports whether t is one of the four tiers.
func (t PriorityTier) Valid() bool {
	return t >= TierHigh && t <= TierVeryLow
}

// AnalysisMethod says how column statistics are computed.
type AnalysisMethod int

const (
	MethodFull AnalysisMethod = iota
	MethodSample
)

func (m AnalysisMethod) String() string {
	if m == MethodSample {
		return "SAMPLE"
	}
	return "FULL"
}

// QueryColumn is a column referenced by a planned query, recorded so that
// its statistics can be refreshed.
type QueryColumn struct {
	CatalogID  int64
	DatabaseID int64
	TableID    int64
	Column     string
}

func (qc QueryColumn) String() string {
	return fmt.Sprintf("%d.%d.%d.%s", qc.CatalogID, qc.DatabaseID, qc.TableID, qc.Column)
}

// ColumnStatsMeta records when the statistics of one (index, column) pair
// were last collected and the table state they reflect.
type ColumnStatsMeta struct {
	UpdatedAt    time.Time
	TableVersion int64
	// UpdatedRows is the table's updated row counter at collection time.
	UpdatedRows int64
	RowCount    int64
	Method      AnalysisMethod
}

// TableStatsMeta is the statistics bookkeeping of one table. It is safe for
// concurrent use.
type TableStatsMeta struct {
	tableID int64

	mu               sync.RWMutex
	updatedRows      int64
	rowCount         int64
	partitionChanged bool
	columns          map[catalog.ColumnIndexPair]ColumnStatsMeta
}

// NewTableStatsMeta returns empty bookkeeping for a table.
func NewTableStatsMeta(tableID int64) *TableStatsMeta {
	return &TableStatsMeta{
		tableID: tableID,
		columns: make(map[catalog.ColumnIndexPair]ColumnStatsMeta),
	}
}

func (m *TableStatsMeta) TableID() int64 {
	return m.tableID
}

// UpdatedRows is the number of rows written to the table since it was created.
func (m *TableStatsMeta) UpdatedRows() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updatedRows
}

// AddUpdatedRows records rows written to the table.
func (m *TableStatsMeta) AddUpdatedRows(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedRows += n
}

// RowCount is the row count observed by the last analysis.
func (m *TableStatsMeta) RowCount() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rowCount
}

func (m *TableStatsMeta) PartitionChanged() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.partitionChanged
}

// SetPartitionChanged flags that partitions were loaded or dropped and every
// column needs to be analyzed again.
func (m *TableStatsMeta) SetPartitionChanged(changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partitionChanged = changed
}

// ColumnStats returns the bookkeeping of one pair.
func (m *TableStatsMeta) ColumnStats(pair catalog.ColumnIndexPair) (ColumnStatsMeta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cm, ok := m.columns[pair]
	return cm, ok
}

// RecordAnalyzed stores the outcome of analyzing one pair and updates the
// table level row count. The partition changed flag is left set until the
// whole job succeeds, see SetPartitionChanged.
func (m *TableStatsMeta) RecordAnalyzed(pair catalog.ColumnIndexPair, cm ColumnStatsMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns[pair] = cm
	m.rowCount = cm.RowCount
}

// ColumnsEmpty is true when no column of the table has statistics.
func (m *TableStatsMeta) ColumnsEmpty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.columns) == 0
}

// AnalyzedPairs returns the pairs with statistics, sorted.
func (m *TableStatsMeta) AnalyzedPairs() []catalog.ColumnIndexPair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.SortedFunc(maps.Keys(m.columns), comparePairs)
}

// Store is the statistics bookkeeping consulted by the auto-analyze daemons.
type Store interface {
	// FindTableStatsStatus returns nil for a table that was never analyzed.
	FindTableStatsStatus(tableID int64) *TableStatsMeta
	// RemoveTableStats drops every statistic recorded for the table.
	RemoveTableStats(tableID int64)
}

// AnalysisJob is the refresh of a set of pairs of one table.
type AnalysisJob struct {
	ID idgen.JobID
	// CorrelationID ties the log lines of one job and its tasks together.
	CorrelationID uuid.UUID

	CatalogID  int64
	DatabaseID int64
	TableID    int64
	TableName  catalog.TableName

	Pairs  []catalog.ColumnIndexPair
	Tier   PriorityTier
	Method AnalysisMethod
	// SampleRows is -1 for full analysis.
	SampleRows int64

	RowCount        int64
	UpdatedRows     int64
	TableVersion    int64
	TableUpdateTime time.Time
	CreatedAt       time.Time
}

// ColumnNames renders the pairs the way they are logged.
func (j *AnalysisJob) ColumnNames() string {
	return FormatPairs(j.Pairs)
}

func (j *AnalysisJob) String() string {
	return fmt.Sprintf("%v %v %v %v %v", j.ID, j.TableName, j.Tier, j.Method, j.ColumnNames())
}

// Tasks splits the job into one task per pair.
func (j *AnalysisJob) Tasks(ids *idgen.Generator[idgen.TaskID]) []*AnalysisTask {
	tasks := make([]*AnalysisTask, 0, len(j.Pairs))
	for _, pair := range j.Pairs {
		tasks = append(tasks, &AnalysisTask{
			ID:   ids.Next(),
			Job:  j,
			Pair: pair,
		})
	}
	return tasks
}

// AnalysisTask computes the statistics of one pair.
type AnalysisTask struct {
	ID   idgen.TaskID
	Job  *AnalysisJob
	Pair catalog.ColumnIndexPair
}

func (t *AnalysisTask) String() string {
	return fmt.Sprintf("%v(%v %v %v)", t.ID, t.Job.ID, t.Job.TableName, t.Pair)
}

// FormatPairs renders pairs as "[index.column,...]".
func FormatPairs(pairs []catalog.ColumnIndexPair) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// SortPairs orders pairs by index, then column.
func SortPairs(pairs []catalog.ColumnIndexPair) {
	slices.SortFunc(pairs, comparePairs)
}

func comparePairs(a, b catalog.ColumnIndexPair) int {
	if c := strings.Compare(a.Index, b.Index); c != 0 {
		return c
	}
	return strings.Compare(a.Column, b.Column)
}
