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

package memstats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olapfe/planstate/go/test/utils"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/idgen"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
)

var mustMatchColumnStats = utils.MustMatchFn("UpdatedAt")

func TestStoreBookkeeping(t *testing.T) {
	s := New()
	assert.Nil(t, s.FindTableStatsStatus(7))

	s.RecordTableUpdate(7, 10)
	s.RecordTableUpdate(7, 5)
	meta := s.FindTableStatsStatus(7)
	require.NotNil(t, meta)
	assert.EqualValues(t, 15, meta.UpdatedRows())
	assert.True(t, meta.ColumnsEmpty())

	s.MarkPartitionChanged(7)
	assert.True(t, meta.PartitionChanged())
	assert.Equal(t, 1, s.TableCount())

	s.RemoveTableStats(7)
	assert.Nil(t, s.FindTableStatsStatus(7))
	assert.Equal(t, 0, s.TableCount())
}

func TestAnalyzeRecordsJobState(t *testing.T) {
	s := New()
	job := &statistics.AnalysisJob{
		ID:           idgen.JobID(1),
		TableID:      3,
		Pairs:        []catalog.ColumnIndexPair{{Index: "t", Column: "a"}},
		Method:       statistics.MethodSample,
		RowCount:     100,
		UpdatedRows:  40,
		TableVersion: 9,
	}
	s.MarkPartitionChanged(3)
	tasks := job.Tasks(idgen.NewGenerator[idgen.TaskID](1))
	require.NoError(t, s.Analyze(context.Background(), tasks[0]))
	assert.EqualValues(t, 1, s.TasksAnalyzed())

	meta := s.FindTableStatsStatus(3)
	require.NotNil(t, meta)
	assert.True(t, meta.PartitionChanged(), "cleared by the collector once the whole job succeeds")
	cm, ok := meta.ColumnStats(catalog.ColumnIndexPair{Index: "t", Column: "a"})
	require.True(t, ok)
	mustMatchColumnStats(t, statistics.ColumnStatsMeta{
		TableVersion: 9,
		UpdatedRows:  40,
		RowCount:     100,
		Method:       statistics.MethodSample,
	}, cm, "column stats of t.a")
	assert.False(t, cm.UpdatedAt.IsZero())
}

func TestAnalyzeHookAndCancel(t *testing.T) {
	s := New()
	job := &statistics.AnalysisJob{TableID: 4, Pairs: []catalog.ColumnIndexPair{{Index: "t", Column: "a"}}}
	task := job.Tasks(idgen.NewGenerator[idgen.TaskID](1))[0]

	boom := errors.New("boom")
	s.SetAnalyzeHook(func(ctx context.Context, task *statistics.AnalysisTask) error { return boom })
	assert.ErrorIs(t, s.Analyze(context.Background(), task), boom)
	assert.Nil(t, s.FindTableStatsStatus(4))

	s.SetAnalyzeHook(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Analyze(ctx, task), context.Canceled)
	assert.EqualValues(t, 0, s.TasksAnalyzed())
}
