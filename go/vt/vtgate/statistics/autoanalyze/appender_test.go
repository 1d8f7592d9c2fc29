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

package autoanalyze

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog/memorycatalog"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
)

func TestAppendColumnsToJobsMergesPerTable(t *testing.T) {
	e := newTestEnv(t, 10)
	orders := e.createTable(t, "db", 10, "orders", 100, analyzable, "a", "b")
	a := e.newAppender()

	_, err := e.recorder.RecordQueriedColumns(statistics.TierHigh, queried(orders, "a"), queried(orders, "b"))
	require.NoError(t, err)
	_, err = e.recorder.RecordQueriedColumns(statistics.TierHigh, queried(orders, "a"))
	require.NoError(t, err)

	high := e.queues.Tier(statistics.TierHigh)
	n := a.AppendColumnsToJobs(context.Background(), e.queue(t, statistics.TierHigh), high)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, high.Len())

	job, ok := high.PopFirst()
	require.True(t, ok)
	want := []catalog.ColumnIndexPair{pair(orders, "a"), pair(orders, "b")}
	if diff := cmp.Diff(want, job.Pairs); diff != "" {
		t.Errorf("job pairs mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, orders.Name(), job.Table)
}

func TestAppendColumnsToJobsDiscards(t *testing.T) {
	e := newTestEnv(t, 10)
	orders := e.createTable(t, "db", 10, "orders", 100, analyzable, "a", "healthy")
	system := e.createTable(t, "information_schema", 20, "tables", 100, analyzable, "a")
	_, err := e.cat.CreateTable("db", memorycatalog.TableSpec{
		ID:           30,
		Name:         "docs",
		Capabilities: analyzable,
		Columns: []catalog.Column{
			{Name: "doc", Type: catalog.TypeJSON, Visible: true},
			{Name: "invisible", Type: catalog.TypeInt},
		},
	})
	require.NoError(t, err)
	docs, _ := e.cat.Table(catalog.NewTableName("db", "docs"))
	e.analyzed(orders, time.Now())

	q := e.queue(t, statistics.TierMid)
	for _, qc := range []statistics.QueryColumn{
		{CatalogID: 0, DatabaseID: 1, TableID: 999, Column: "a"},
		queried(system, "a"),
		queried(docs, "doc"),
		queried(docs, "invisible"),
		queried(docs, "missing"),
		queried(orders, "healthy"),
	} {
		require.True(t, q.Offer(qc))
	}

	mid := e.queues.Tier(statistics.TierMid)
	assert.Equal(t, 0, e.newAppender().AppendColumnsToJobs(context.Background(), q, mid))
	assert.Equal(t, 0, mid.Len())
	assert.Equal(t, 0, q.Len())
}

func TestAppendColumnsToJobsStopsWhenFull(t *testing.T) {
	e := newTestEnv(t, 1)
	t1 := e.createTable(t, "db", 10, "t1", 100, analyzable, "a")
	t2 := e.createTable(t, "db", 11, "t2", 100, analyzable, "a")
	t3 := e.createTable(t, "db", 12, "t3", 100, analyzable, "a")

	q := e.queue(t, statistics.TierHigh)
	for _, tbl := range []*memorycatalog.Table{t1, t2, t3, t1} {
		require.True(t, q.Offer(queried(tbl, "a")))
	}
	high := e.queues.Tier(statistics.TierHigh)
	assert.Equal(t, 1, e.newAppender().AppendColumnsToJobs(context.Background(), q, high))

	assert.Equal(t, 1, high.Len())
	assert.True(t, high.Contains(t1.Name()))
	assert.False(t, high.Contains(t2.Name()))
	// t2 was dropped, the rest waits for the next round.
	assert.Equal(t, 2, q.Len())
}

func TestAppendColumnsToJobsDrainsSnapshotOfQueue(t *testing.T) {
	e := newTestEnv(t, 10)
	orders := e.createTable(t, "db", 10, "orders", 100, analyzable, "a")
	q := e.queue(t, statistics.TierHigh)
	require.True(t, q.Offer(queried(orders, "a")))

	size := q.Len()
	high := e.queues.Tier(statistics.TierHigh)
	assert.Equal(t, size, e.newAppender().AppendColumnsToJobs(context.Background(), q, high))
	assert.Equal(t, 0, q.Len())
}

func TestAppendToLowJobsSweepsInBatches(t *testing.T) {
	e := newTestEnv(t, 10)
	e.cfg.TableBatchSize = 2
	_, err := e.cat.CreateDatabase("db2", 3)
	require.NoError(t, err)
	t10 := e.createTable(t, "db", 10, "t10", 100, analyzable, "a")
	t12 := e.createTable(t, "db", 12, "t12", 100, analyzable, "a")
	e.createTable(t, "db", 11, "external", 100, catalog.CapAutoAnalyze, "a")
	e.createTable(t, "information_schema", 13, "sys", 100, analyzable, "a")
	t5 := e.createTable(t, "db2", 5, "t5", 100, analyzable, "a")

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	a := e.newAppender()
	a.now = func() time.Time { return now }
	low := e.queues.Tier(statistics.TierLow)
	veryLow := e.queues.Tier(statistics.TierVeryLow)

	assert.Equal(t, 2, a.AppendToLowJobs(low, veryLow))
	dbID, tableID := a.Cursor()
	assert.EqualValues(t, 1, dbID)
	assert.EqualValues(t, 12, tableID)

	// The next batch resets the table cursor when it moves to the next
	// database, so t5 is not skipped for having an id below 12.
	assert.Equal(t, 1, a.AppendToLowJobs(low, veryLow))
	dbID, tableID = a.Cursor()
	assert.EqualValues(t, 0, dbID)
	assert.EqualValues(t, 0, tableID)

	var got []string
	for _, job := range low.Snapshot() {
		got = append(got, job.Table.Table)
	}
	assert.Equal(t, []string{t10.Name().Table, t12.Name().Table, t5.Name().Table}, got)

	// The sweep completed; the next one waits for LowJobInterval.
	for {
		if _, ok := low.PopFirst(); !ok {
			break
		}
	}
	assert.Equal(t, 0, a.AppendToLowJobs(low, veryLow))
	now = now.Add(e.cfg.LowJobInterval)
	assert.Equal(t, 2, a.AppendToLowJobs(low, veryLow))
}

func TestAppendToLowJobsSkipsWideTables(t *testing.T) {
	e := newTestEnv(t, 10)
	e.cfg.TableWidthThreshold = 2
	e.createTable(t, "db", 10, "wide", 100, analyzable, "a", "b", "c")
	narrow := e.createTable(t, "db", 11, "narrow", 100, analyzable, "a", "b")

	low := e.queues.Tier(statistics.TierLow)
	assert.Equal(t, 1, e.newAppender().AppendToLowJobs(low, e.queues.Tier(statistics.TierVeryLow)))
	assert.True(t, low.Contains(narrow.Name()))
	assert.Equal(t, 1, low.Len())
}

func TestAppendToLowJobsLongTimeColumnsGoVeryLow(t *testing.T) {
	e := newTestEnv(t, 10)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	stale := e.createTable(t, "db", 10, "stale", 100, analyzable, "a")
	fresh := e.createTable(t, "db", 11, "fresh", 100, analyzable, "a")
	e.analyzed(stale, now.Add(-2*e.cfg.LongInterval))
	e.analyzed(fresh, now.Add(-time.Minute))
	stale.BumpVersion()
	fresh.BumpVersion()

	a := e.newAppender()
	a.now = func() time.Time { return now }
	low := e.queues.Tier(statistics.TierLow)
	veryLow := e.queues.Tier(statistics.TierVeryLow)
	assert.Equal(t, 1, a.AppendToLowJobs(low, veryLow))
	assert.Equal(t, 0, low.Len())
	assert.True(t, veryLow.Contains(stale.Name()))
	assert.False(t, veryLow.Contains(fresh.Name()))
}

func TestAppendToLowJobsStopsWhenLowIsFull(t *testing.T) {
	e := newTestEnv(t, 1)
	e.createTable(t, "db", 10, "t10", 100, analyzable, "a")
	e.createTable(t, "db", 11, "t11", 100, analyzable, "a")

	a := e.newAppender()
	low := e.queues.Tier(statistics.TierLow)
	assert.Equal(t, 1, a.AppendToLowJobs(low, e.queues.Tier(statistics.TierVeryLow)))
	_, tableID := a.Cursor()
	assert.EqualValues(t, 10, tableID, "the sweep resumes at t11")
}

func TestAppendJobsRound(t *testing.T) {
	e := newTestEnv(t, 10)
	orders := e.createTable(t, "db", 10, "orders", 100, analyzable, "a")
	items := e.createTable(t, "db", 11, "items", 100, analyzable, "b")
	_, err := e.recorder.RecordQueriedColumns(statistics.TierMid, queried(orders, "a"))
	require.NoError(t, err)

	e.cfg.InternalCatalogEnabled = false
	a := e.newAppender()
	a.AppendJobs(context.Background())
	assert.True(t, e.queues.Tier(statistics.TierMid).Contains(orders.Name()))
	assert.Equal(t, 0, e.queues.Tier(statistics.TierLow).Len())

	e.cfg.InternalCatalogEnabled = true
	a.AppendJobs(context.Background())
	assert.True(t, e.queues.Tier(statistics.TierLow).Contains(items.Name()))
}

type notReady struct{}

func (notReady) IsReady() bool { return false }

func TestAppenderWaitsForCollector(t *testing.T) {
	e := newTestEnv(t, 10)
	orders := e.createTable(t, "db", 10, "orders", 100, analyzable, "a")
	_, err := e.recorder.RecordQueriedColumns(statistics.TierHigh, queried(orders, "a"))
	require.NoError(t, err)

	a := NewAppender(e.cfg, e.cat, e.stats, e.recorder, e.queues, notReady{})
	a.round(context.Background())
	assert.Equal(t, 0, e.queues.Len())

	e.cfg.Enabled = false
	a.ready = nil
	a.round(context.Background())
	assert.Equal(t, 0, e.queues.Len())
	e.cfg.Enabled = true
	a.round(context.Background())
	assert.Equal(t, 2, e.queues.Len())
}
