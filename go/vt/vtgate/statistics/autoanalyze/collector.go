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
	"runtime/debug"
	"slices"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/sync2"
	"github.com/olapfe/planstate/go/vt/log"
	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/idgen"
	"github.com/olapfe/planstate/go/vt/vtgate/plannerenv"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics/jobqueue"
)

// skipCooldown is how long a skipped table is reported by RecentlySkipped
// and kept from being logged again.
const skipCooldown = 10 * time.Minute

// Skip reasons.
const (
	SkipUnsupported     = "Unsupported"
	SkipRowCountUnknown = "RowCountUnknown"
	SkipEmpty           = "Empty"
	SkipNothingToDo     = "NothingToDo"
)

// Collector executes analysis jobs, highest tier first.
type Collector struct {
	cfg      *plannerenv.AutoAnalyzeConfig
	catalog  catalog.Resolver
	store    statistics.Store
	queues   *jobqueue.Queues
	executor *TaskExecutor
	jobIDs   *idgen.Generator[idgen.JobID]
	taskIDs  *idgen.Generator[idgen.TaskID]
	now      func() time.Time

	// skipped maps a table name to the reason it was last skipped.
	skipped *cache.Cache
	ready   atomic.Bool

	daemon daemon
}

// NewCollector returns a stopped collector running tasks on analyzer.
func NewCollector(cfg *plannerenv.AutoAnalyzeConfig, resolver catalog.Resolver, store statistics.Store,
	queues *jobqueue.Queues, analyzer Analyzer) *Collector {
	c := &Collector{
		cfg:      cfg,
		catalog:  resolver,
		store:    store,
		queues:   queues,
		executor: NewTaskExecutor(analyzer, cfg.MaxConcurrentTasks),
		jobIDs:   idgen.NewGenerator[idgen.JobID](1),
		taskIDs:  idgen.NewGenerator[idgen.TaskID](1),
		now:      time.Now,
		skipped:  cache.New(skipCooldown, skipCooldown),
	}
	c.daemon = daemon{
		name:     "AutoAnalyzeCollector",
		interval: cfg.CheckInterval,
		round:    c.round,
	}
	return c
}

// Open starts the collector. It returns false if it was running already.
func (c *Collector) Open() bool {
	return c.daemon.open()
}

// Close stops the collector, waiting for the job in progress.
func (c *Collector) Close() {
	c.daemon.close()
}

// Shutdown closes the collector and its executor. It may not be opened again.
func (c *Collector) Shutdown() {
	c.Close()
	c.executor.Close()
}

func (c *Collector) IsRunning() bool {
	return c.daemon.isRunning()
}

func (c *Collector) State() sync2.ServiceState {
	return c.daemon.state()
}

// IsReady is true once the collector waited for row counts to be reported.
func (c *Collector) IsReady() bool {
	return c.ready.Load()
}

// Suspend pauses the collection rounds. The job in progress completes.
func (c *Collector) Suspend() {
	c.daemon.suspend()
}

func (c *Collector) Resume() {
	c.daemon.resume()
}

func (c *Collector) IsSuspended() bool {
	return c.daemon.isSuspended()
}

func (c *Collector) round(ctx context.Context) {
	if c.ready.Load() {
		c.Collect(ctx)
		return
	}
	// Row counts reported right after startup may be zero.
	select {
	case <-time.After(c.cfg.InitialDelay):
		c.ready.Store(true)
		log.Infof("Statistics auto collector is ready")
	case <-ctx.Done():
	}
}

// Collect executes jobs while collection is allowed and jobs are pending. It
// returns the number of jobs taken off the queues.
func (c *Collector) Collect(ctx context.Context) int {
	n := 0
	for c.cfg.CanCollect(c.now()) && ctx.Err() == nil {
		job, ok := c.queues.GetJob()
		if !ok {
			log.Infof("No auto analyze jobs to process.")
			break
		}
		n++
		if err := c.collectJob(ctx, job); err != nil {
			jobsFailed.Add(job.Tier.String(), 1)
			log.WarnS("auto analyze job failed", "table", job.Table.String(), "columns", statistics.FormatPairs(job.Pairs), "tier", job.Tier.String(), "err", err)
		}
	}
	return n
}

func (c *Collector) collectJob(ctx context.Context, job jobqueue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("auto analyze job %v panicked: %v\n%s", job.Table, r, debug.Stack())
			err = vterrors.Errorf(codes.Internal, "panic: %v", r)
		}
	}()
	t, err := c.catalog.ResolveTable(ctx, job.Table)
	if err != nil {
		return err
	}
	table, ok := SupportAutoAnalyze(t)
	if !ok {
		c.skip(job.Table, SkipUnsupported)
		return nil
	}
	return c.ProcessOneJob(ctx, table, job.Pairs, job.Tier)
}

// SupportAutoAnalyze returns t as an AnalyzableTable if its statistics may be
// collected automatically.
func SupportAutoAnalyze(t catalog.Table) (catalog.AnalyzableTable, bool) {
	if t == nil || !t.Capabilities().Has(catalog.CapAutoAnalyze) {
		return nil, false
	}
	table, ok := t.(catalog.AnalyzableTable)
	return table, ok
}

// AnalysisMethodFor samples tables of at least the huge table size, and every
// table when that size is zero. Partitioned tables are fully scanned when
// partition analysis is enabled.
func (c *Collector) AnalysisMethodFor(table catalog.AnalyzableTable) statistics.AnalysisMethod {
	method := statistics.MethodFull
	bound := c.cfg.HugeTableLowerBoundSize
	if bound == 0 || uint64(max(table.DataSize(), 0)) >= bound {
		method = statistics.MethodSample
	}
	if c.cfg.PartitionAnalyzeEnabled && table.Capabilities().Has(catalog.CapPartitioned) {
		method = statistics.MethodFull
	}
	return method
}

// ProcessOneJob analyzes the pairs of table that need it.
func (c *Collector) ProcessOneJob(ctx context.Context, table catalog.AnalyzableTable, pairs []catalog.ColumnIndexPair, tier statistics.PriorityTier) error {
	method := c.AnalysisMethodFor(table)
	meta := c.store.FindTableStatsStatus(table.ID())
	rowCount := table.RowCount()
	if !c.ReadyToSample(table, rowCount, meta, method == statistics.MethodSample) {
		return nil
	}
	pairs = appendAllColumns(table, pairs, meta)
	version := table.Version()
	now := c.now()
	pairs = slices.DeleteFunc(pairs, func(p catalog.ColumnIndexPair) bool {
		return !statistics.NeedAnalyzeColumn(table, p, meta, c.cfg.HealthThreshold) &&
			!statistics.IsLongTimeColumn(p, meta, version, c.cfg.LongInterval, now)
	})
	job := c.createJob(table, pairs, tier, method, rowCount, meta, version)
	if job == nil {
		c.skip(table.Name(), SkipNothingToDo)
		return nil
	}
	log.InfoS("auto analyze table", "table", table.Name().String(), "rows", rowCount,
		"size", humanize.IBytes(uint64(max(table.DataSize(), 0))), "job", job.ID.String(), "correlation", job.CorrelationID.String(),
		"method", job.Method.String(), "columns", job.ColumnNames())
	if err := c.ExecuteJob(ctx, job); err != nil {
		return vterrors.Wrapf(err, "fail to auto analyze table %v, columns %s", table.Name(), job.ColumnNames())
	}
	jobsProcessed.Add(tier.String(), 1)
	return nil
}

// ReadyToSample reports whether table may be sampled now. An empty table is
// never sampled, and the statistics it had are removed.
func (c *Collector) ReadyToSample(table catalog.AnalyzableTable, rowCount int64, meta *statistics.TableStatsMeta, sample bool) bool {
	if !sample {
		return true
	}
	if rowCount == catalog.UnknownRowCount {
		c.skip(table.Name(), SkipRowCountUnknown)
		return false
	}
	if rowCount <= 0 {
		c.skip(table.Name(), SkipEmpty)
		if meta != nil && !meta.ColumnsEmpty() {
			log.Infof("Table %v is empty, remove its old stats", table.Name())
			c.store.RemoveTableStats(table.ID())
			staleStatsRemoved.Add(1)
		}
		return false
	}
	return true
}

// appendAllColumns adds every supported column when partitions changed.
func appendAllColumns(table catalog.AnalyzableTable, pairs []catalog.ColumnIndexPair, meta *statistics.TableStatsMeta) []catalog.ColumnIndexPair {
	if meta == nil || !meta.PartitionChanged() {
		return pairs
	}
	for _, p := range table.ColumnIndexPairs(statistics.SupportedColumns(table)) {
		if !slices.Contains(pairs, p) {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

func (c *Collector) createJob(table catalog.AnalyzableTable, pairs []catalog.ColumnIndexPair, tier statistics.PriorityTier,
	method statistics.AnalysisMethod, rowCount int64, meta *statistics.TableStatsMeta, version int64) *statistics.AnalysisJob {
	if len(pairs) == 0 {
		return nil
	}
	sampleRows := int64(-1)
	if method == statistics.MethodSample {
		sampleRows = c.cfg.HugeTableSampleRows
	}
	var updatedRows int64
	if meta != nil {
		updatedRows = meta.UpdatedRows()
	}
	statistics.SortPairs(pairs)
	return &statistics.AnalysisJob{
		ID:              c.jobIDs.Next(),
		CorrelationID:   uuid.New(),
		CatalogID:       table.CatalogID(),
		DatabaseID:      table.DatabaseID(),
		TableID:         table.ID(),
		TableName:       table.Name(),
		Pairs:           pairs,
		Tier:            tier,
		Method:          method,
		SampleRows:      sampleRows,
		RowCount:        rowCount,
		UpdatedRows:     updatedRows,
		TableVersion:    version,
		TableUpdateTime: table.UpdateTime(),
		CreatedAt:       c.now(),
	}
}

// ExecuteJob submits one task per pair of job and waits for all of them. It
// returns the first task failure.
func (c *Collector) ExecuteJob(ctx context.Context, job *statistics.AnalysisJob) error {
	var g errgroup.Group
	for _, task := range job.Tasks(c.taskIDs) {
		f := c.executor.Submit(ctx, task)
		g.Go(func() error {
			return f.Wait(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if meta := c.store.FindTableStatsStatus(job.TableID); meta != nil {
		meta.SetPartitionChanged(false)
	}
	return nil
}

func (c *Collector) skip(name catalog.TableName, reason string) {
	tablesSkipped.Add(reason, 1)
	key := name.String()
	if prev, ok := c.skipped.Get(key); ok && prev == reason {
		return
	}
	c.skipped.SetDefault(key, reason)
	log.Infof("Skip auto analyzing table %v: %s", name, reason)
}

// RecentlySkipped returns the tables skipped within the last few minutes with
// the reason.
func (c *Collector) RecentlySkipped() map[string]string {
	items := c.skipped.Items()
	out := make(map[string]string, len(items))
	for k, item := range items {
		out[k] = item.Object.(string)
	}
	return out
}
