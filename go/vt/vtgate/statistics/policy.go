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
	"time"

	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

// TableHealth scores how current the statistics of a table are, from 0 to
// 100, given the rows written since they were collected.
func TableHealth(totalRows, updatedRows int64) int {
	if updatedRows <= 0 {
		return 100
	}
	if totalRows <= 0 || updatedRows >= totalRows {
		return 0
	}
	return int((1 - float64(updatedRows)/float64(totalRows)) * 100)
}

// NeedAnalyzeColumn reports whether the statistics of pair are missing or
// stale. meta may be nil.
func NeedAnalyzeColumn(table catalog.AnalyzableTable, pair catalog.ColumnIndexPair, meta *TableStatsMeta, healthThreshold int) bool {
	if meta == nil || meta.PartitionChanged() {
		return true
	}
	cm, ok := meta.ColumnStats(pair)
	if !ok {
		return true
	}
	rows := table.RowCount()
	// First load into a table analyzed while empty.
	if cm.RowCount == 0 && rows > 0 {
		return true
	}
	return TableHealth(rows, meta.UpdatedRows()-cm.UpdatedRows) < healthThreshold
}

// IsLongTimeColumn reports whether pair was analyzed more than interval ago
// and the table has changed since.
func IsLongTimeColumn(pair catalog.ColumnIndexPair, meta *TableStatsMeta, version int64, interval time.Duration, now time.Time) bool {
	if meta == nil {
		return false
	}
	cm, ok := meta.ColumnStats(pair)
	if !ok {
		return false
	}
	if now.Sub(cm.UpdatedAt) < interval {
		return false
	}
	return cm.TableVersion != version
}

// SupportedColumns returns the names of the columns whose type can be
// analyzed, in schema order.
func SupportedColumns(table catalog.AnalyzableTable) []string {
	var names []string
	for _, col := range table.Columns() {
		if col.Type.Unsupported() {
			continue
		}
		names = append(names, col.Name)
	}
	return names
}

// Analyzable reports whether a single column may be queued for analysis.
func Analyzable(col catalog.Column) bool {
	return col.Visible && !col.Type.Unsupported()
}
