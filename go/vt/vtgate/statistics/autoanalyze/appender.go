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
	"sync"
	"time"

	"github.com/olapfe/planstate/go/sync2"
	"github.com/olapfe/planstate/go/vt/log"
	"github.com/olapfe/planstate/go/vt/logutil"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/plannerenv"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics/jobqueue"
)

// Readiness reports whether row counts are trustworthy enough to plan jobs.
type Readiness interface {
	IsReady() bool
}

var jobMapFullLogger = logutil.NewThrottledLogger("AutoAnalyzeAppender", 30*time.Second)

// Appender turns queried columns and a sweep of the catalog into analysis
// jobs.
type Appender struct {
	cfg      *plannerenv.AutoAnalyzeConfig
	catalog  catalog.Catalog
	store    statistics.Store
	recorder *statistics.Recorder
	queues   *jobqueue.Queues
	ready    Readiness
	now      func() time.Time

	daemon daemon

	// mu serializes rounds and guards the sweep cursor.
	mu              sync.Mutex
	currentDBID     int64
	currentTableID  int64
	lastRoundFinish time.Time
}

// NewAppender returns a stopped appender.
func NewAppender(cfg *plannerenv.AutoAnalyzeConfig, cat catalog.Catalog, store statistics.Store,
	recorder *statistics.Recorder, queues *jobqueue.Queues, ready Readiness) *Appender {
	a := &Appender{
		cfg:      cfg,
		catalog:  cat,
		store:    store,
		recorder: recorder,
		queues:   queues,
		ready:    ready,
		now:      time.Now,
	}
	a.daemon = daemon{
		name:     "AutoAnalyzeAppender",
		interval: cfg.AppendInterval,
		round:    a.round,
	}
	return a
}

// Open starts the appender. It returns false if it was running already.
func (a *Appender) Open() bool {
	return a.daemon.open()
}

// Close stops the appender and waits for the current round.
func (a *Appender) Close() {
	a.daemon.close()
}

func (a *Appender) IsRunning() bool {
	return a.daemon.isRunning()
}

func (a *Appender) State() sync2.ServiceState {
	return a.daemon.state()
}

func (a *Appender) round(ctx context.Context) {
	if !a.cfg.Enabled {
		return
	}
	if a.ready != nil && !a.ready.IsReady() {
		log.Infof("Statistics auto collector not ready, skip")
		return
	}
	a.AppendJobs(ctx)
}

// AppendJobs runs one round: drains the HIGH and MID column queues and, if
// enabled, appends the next batch of the catalog sweep.
func (a *Appender) AppendJobs(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, tier := range []statistics.PriorityTier{statistics.TierHigh, statistics.TierMid} {
		q, err := a.recorder.Queue(tier)
		if err != nil {
			continue
		}
		a.appendColumnsToJobs(ctx, q, a.queues.Tier(tier))
	}
	if a.cfg.InternalCatalogEnabled {
		a.appendToLowJobs(a.queues.Tier(statistics.TierLow), a.queues.Tier(statistics.TierVeryLow))
	}
}

// AppendColumnsToJobs drains the columns queued when the call started into
// jobs. It stops early when jobs is full.
func (a *Appender) AppendColumnsToJobs(ctx context.Context, queue *statistics.ColumnQueue, jobs *jobqueue.JobMap) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appendColumnsToJobs(ctx, queue, jobs)
}

func (a *Appender) appendColumnsToJobs(ctx context.Context, queue *statistics.ColumnQueue, jobs *jobqueue.JobMap) int {
	size := queue.Len()
	processed := 0
	for i := 0; i < size; i++ {
		qc, ok := queue.Poll()
		if !ok {
			continue
		}
		t, err := a.catalog.LookupTableByID(qc.CatalogID, qc.DatabaseID, qc.TableID)
		if err != nil {
			log.Warningf("Fail to find table %d.%d.%d for column %s: %v", qc.CatalogID, qc.DatabaseID, qc.TableID, qc.Column, err)
			columnsDiscarded.Add("TableNotFound", 1)
			continue
		}
		table, ok := t.(catalog.AnalyzableTable)
		if !ok {
			columnsDiscarded.Add("NotAnalyzable", 1)
			continue
		}
		if catalog.IsSystemDatabase(table.DatabaseName()) {
			columnsDiscarded.Add("SystemDatabase", 1)
			continue
		}
		col, ok := table.Column(qc.Column)
		if !ok || !statistics.Analyzable(col) {
			columnsDiscarded.Add("UnsupportedColumn", 1)
			continue
		}
		meta := a.store.FindTableStatsStatus(table.ID())
		var pairs []catalog.ColumnIndexPair
		for _, p := range table.ColumnIndexPairs([]string{qc.Column}) {
			if statistics.NeedAnalyzeColumn(table, p, meta, a.cfg.HealthThreshold) {
				pairs = append(pairs, p)
			}
		}
		if len(pairs) == 0 {
			columnsDiscarded.Add("Healthy", 1)
			continue
		}
		if !jobs.Append(table.Name(), pairs...) {
			jobMapFullLogger.Infof("%v job map full", jobs.Tier())
			break
		}
		columnsAppended.Add(jobs.Tier().String(), 1)
		processed++
	}
	if size > 0 {
		log.V(1).Infof("%d of %d columns append to jobs", processed, size)
	}
	return processed
}

// AppendToLowJobs appends the next batch of the sweep of the catalog. Pairs
// needing analysis go to low, pairs analyzed long ago on a changed table go
// to veryLow. It returns the number of tables appended.
func (a *Appender) AppendToLowJobs(low, veryLow *jobqueue.JobMap) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appendToLowJobs(low, veryLow)
}

func (a *Appender) appendToLowJobs(low, veryLow *jobqueue.JobMap) int {
	if a.now().Sub(a.lastRoundFinish) < a.cfg.LowJobInterval {
		return 0
	}
	processed := 0
	for _, dbID := range a.catalog.DatabaseIDs() {
		if dbID < a.currentDBID {
			continue
		}
		db, ok := a.catalog.Database(dbID)
		if !ok || catalog.IsSystemDatabase(db.Name) {
			continue
		}
		if dbID > a.currentDBID {
			a.currentDBID = dbID
			a.currentTableID = 0
		}
		for _, t := range a.catalog.TablesOf(dbID) {
			if t.ID() <= a.currentTableID || !t.Capabilities().Has(catalog.CapInternal) {
				continue
			}
			table, ok := t.(catalog.AnalyzableTable)
			if !ok || len(table.Columns()) > a.cfg.TableWidthThreshold {
				continue
			}
			appended, full := a.appendTable(table, low, veryLow)
			if full {
				log.V(1).Infof("Low priority job map is full")
				return processed
			}
			a.currentTableID = table.ID()
			if appended {
				processed++
				sweepTables.Add(1)
			}
			if processed >= a.cfg.TableBatchSize {
				return processed
			}
		}
	}
	log.V(1).Infof("All low priority internal tables are appended once")
	a.currentDBID = 0
	a.currentTableID = 0
	a.lastRoundFinish = a.now()
	sweepRounds.Add(1)
	return processed
}

// appendTable reports whether any pair was appended, and whether low was
// full.
func (a *Appender) appendTable(table catalog.AnalyzableTable, low, veryLow *jobqueue.JobMap) (appended, full bool) {
	meta := a.store.FindTableStatsStatus(table.ID())
	version := table.Version()
	now := a.now()
	name := table.Name()
	for _, p := range table.ColumnIndexPairs(statistics.SupportedColumns(table)) {
		switch {
		case statistics.NeedAnalyzeColumn(table, p, meta, a.cfg.HealthThreshold):
			if !low.Append(name, p) {
				return appended, true
			}
			appended = true
		case statistics.IsLongTimeColumn(p, meta, version, a.cfg.LongInterval, now):
			// A full very low map only drops this pair.
			if veryLow.Append(name, p) {
				appended = true
			}
		}
	}
	return appended, false
}

// Cursor returns the position of the catalog sweep.
func (a *Appender) Cursor() (dbID, tableID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentDBID, a.currentTableID
}
