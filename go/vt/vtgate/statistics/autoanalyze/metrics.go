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

import "github.com/olapfe/planstate/go/stats"

var (
	roundPanics       = stats.NewCountersWithSingleLabel("AutoAnalyzeRoundPanics", "Daemon rounds that panicked", "Daemon")
	roundsRun         = stats.NewCountersWithSingleLabel("AutoAnalyzeRounds", "Daemon rounds run", "Daemon")
	columnsAppended   = stats.NewCountersWithSingleLabel("AutoAnalyzeColumnsAppended", "Queried columns turned into jobs", "Tier")
	columnsDiscarded  = stats.NewCountersWithSingleLabel("AutoAnalyzeColumnsDiscarded", "Queried columns discarded by the appender", "Reason")
	sweepTables       = stats.NewCounter("AutoAnalyzeSweepTables", "Tables appended by the catalog sweep")
	sweepRounds       = stats.NewCounter("AutoAnalyzeSweepRounds", "Completed sweeps of the whole catalog")
	jobsProcessed     = stats.NewCountersWithSingleLabel("AutoAnalyzeJobsProcessed", "Analysis jobs executed", "Tier")
	jobsFailed        = stats.NewCountersWithSingleLabel("AutoAnalyzeJobsFailed", "Analysis jobs that failed", "Tier")
	tablesSkipped     = stats.NewCountersWithSingleLabel("AutoAnalyzeTablesSkipped", "Jobs skipped by the collector", "Reason")
	staleStatsRemoved = stats.NewCounter("AutoAnalyzeStaleStatsRemoved", "Statistics dropped because the table became empty")
	tasksSubmitted    = stats.NewCounter("AutoAnalyzeTasksSubmitted", "Analysis tasks submitted to the executor")
	tasksFailed       = stats.NewCounter("AutoAnalyzeTasksFailed", "Analysis tasks that failed")
	tasksRunning      = stats.NewGauge("AutoAnalyzeTasksRunning", "Analysis tasks currently running")
)
