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

package stmtctx

import "github.com/olapfe/planstate/go/stats"

var (
	tableLocksAcquired  = stats.NewCounter("PlannerTableLocksAcquired", "Table read locks acquired during planning")
	tableLockTimeouts   = stats.NewCountersWithSingleLabel("PlannerTableLockTimeouts", "Table read lock attempts that timed out during planning", "Table")
	resourcesHeld       = stats.NewGauge("PlannerResourcesHeld", "Planner resources currently held by open statements")
	releaseFailures     = stats.NewCounter("PlannerResourceReleaseFailures", "Planner resources that failed to release")
	statementsOpen      = stats.NewGauge("PlannerStatementsOpen", "Statement contexts not closed yet")
	mtmvResolveFailures = stats.NewCounter("PlannerMTMVResolveFailures", "Materialized view candidates dropped because they could not be resolved")
)
