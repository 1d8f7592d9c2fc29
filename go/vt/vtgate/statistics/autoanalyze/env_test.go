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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog/memorycatalog"
	"github.com/olapfe/planstate/go/vt/vtgate/plannerenv"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics/jobqueue"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics/memstats"
)

// testEnv is a catalog with databases "db" (id 1) and "information_schema"
// (id 2), and empty queues.
type testEnv struct {
	cfg      *plannerenv.AutoAnalyzeConfig
	cat      *memorycatalog.Catalog
	stats    *memstats.Stats
	recorder *statistics.Recorder
	queues   *jobqueue.Queues
}

func newTestEnv(t *testing.T, jobMapSize int) *testEnv {
	t.Helper()
	cfg := plannerenv.NewDefaultConfig().AutoAnalyze
	cfg.JobMapSize = jobMapSize
	cfg.LowJobInterval = time.Hour
	cat := memorycatalog.New()
	_, err := cat.CreateDatabase("db", 1)
	require.NoError(t, err)
	_, err = cat.CreateDatabase("information_schema", 2)
	require.NoError(t, err)
	return &testEnv{
		cfg:      &cfg,
		cat:      cat,
		stats:    memstats.New(),
		recorder: statistics.NewRecorder(cfg.ColumnQueueSize),
		queues:   jobqueue.NewQueues(jobMapSize),
	}
}

const analyzable = catalog.CapInternal | catalog.CapAutoAnalyze

func (e *testEnv) createTable(t *testing.T, db string, id int64, name string, rows int64, caps catalog.Capability, cols ...string) *memorycatalog.Table {
	t.Helper()
	spec := memorycatalog.TableSpec{ID: id, Name: name, Capabilities: caps, RowCount: rows}
	for _, c := range cols {
		spec.Columns = append(spec.Columns, catalog.Column{Name: c, Type: catalog.TypeInt, Visible: true})
	}
	tbl, err := e.cat.CreateTable(db, spec)
	require.NoError(t, err)
	return tbl
}

func (e *testEnv) newAppender() *Appender {
	return NewAppender(e.cfg, e.cat, e.stats, e.recorder, e.queues, nil)
}

func (e *testEnv) newCollector() *Collector {
	return NewCollector(e.cfg, e.cat, e.stats, e.queues, e.stats)
}

func (e *testEnv) queue(t *testing.T, tier statistics.PriorityTier) *statistics.ColumnQueue {
	t.Helper()
	q, err := e.recorder.Queue(tier)
	require.NoError(t, err)
	return q
}

func queried(tbl *memorycatalog.Table, column string) statistics.QueryColumn {
	return statistics.QueryColumn{
		CatalogID:  tbl.CatalogID(),
		DatabaseID: tbl.DatabaseID(),
		TableID:    tbl.ID(),
		Column:     column,
	}
}

func pair(tbl *memorycatalog.Table, column string) catalog.ColumnIndexPair {
	return catalog.ColumnIndexPair{Index: tbl.Name().Table, Column: column}
}

// analyzed marks every pair of tbl as freshly analyzed at its current state.
func (e *testEnv) analyzed(tbl *memorycatalog.Table, at time.Time) {
	e.stats.RecordTableUpdate(tbl.ID(), 0)
	meta := e.stats.FindTableStatsStatus(tbl.ID())
	for _, p := range tbl.ColumnIndexPairs(statistics.SupportedColumns(tbl)) {
		meta.RecordAnalyzed(p, statistics.ColumnStatsMeta{
			UpdatedAt:    at,
			TableVersion: tbl.Version(),
			UpdatedRows:  meta.UpdatedRows(),
			RowCount:     tbl.RowCount(),
		})
	}
}
