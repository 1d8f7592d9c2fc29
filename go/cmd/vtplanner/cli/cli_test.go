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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog/memorycatalog"
	"github.com/olapfe/planstate/go/vt/vtgate/plannerenv"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
	"github.com/olapfe/planstate/go/vt/vtgate/stmtctx"
)

const seedYAML = `
databases:
  - name: db
    id: 1
    tables:
      - name: a
        id: 10
        capabilities: [internal, auto_analyze]
        rowCount: 100
        columns:
          - {name: id, type: bigint}
      - name: b
        id: 2
        capabilities: [internal]
        columns:
          - {name: id, type: bigint}
      - name: c
        id: 5
        capabilities: [internal, mvcc]
        columns:
          - {name: id, type: bigint}
`

func seededCatalog(t *testing.T) *memorycatalog.Catalog {
	t.Helper()
	cat, err := memorycatalog.LoadSeed([]byte(seedYAML))
	require.NoError(t, err)
	return cat
}

func TestLockCheckOrder(t *testing.T) {
	cat := seededCatalog(t)
	var out bytes.Buffer
	opts := plannerenv.NewDefaultConfig().StatementOptions("lockcheck", 0)
	err := runLockCheck(context.Background(), &out, cat, opts, []string{"db.a", "db.b"}, "", []string{"db.c"})
	require.NoError(t, err)
	assert.Equal(t, "1\t2\tinternal.db.b\n2\t5\tinternal.db.c\n3\t10\tinternal.db.a\n", out.String())

	for _, name := range []string{"a", "b", "c"} {
		tbl, ok := cat.Table(catalog.NewTableName("db", name))
		require.True(t, ok)
		assert.Zero(t, tbl.ReadersHeld(), name)
	}
}

func TestLockCheckErrors(t *testing.T) {
	cat := seededCatalog(t)
	opts := plannerenv.NewDefaultConfig().StatementOptions("lockcheck", 0)
	var out bytes.Buffer

	err := runLockCheck(context.Background(), &out, cat, opts, []string{"db.missing"}, "", nil)
	assert.Equal(t, codes.NotFound, vterrors.Code(err))

	err = runLockCheck(context.Background(), &out, cat, opts, []string{"nodots"}, "", nil)
	assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))

	// Unresolvable materialized views are ignored.
	err = runLockCheck(context.Background(), &out, cat, opts, []string{"db.a"}, "db.b", []string{"db.nomv"})
	require.NoError(t, err)
	assert.Equal(t, "1\t2\tinternal.db.b\n2\t10\tinternal.db.a\n", out.String())
}

func TestJobsHandler(t *testing.T) {
	cat := seededCatalog(t)
	aa := plannerenv.NewDefaultConfig().AutoAnalyze
	d := newDaemons(cat, &aa)
	defer d.close()

	tbl, ok := cat.Table(catalog.NewTableName("db", "a"))
	require.True(t, ok)
	pair := catalog.ColumnIndexPair{Index: "a", Column: "id"}
	require.True(t, d.queues.Tier(statistics.TierMid).Append(tbl.Name(), pair))

	rec := httptest.NewRecorder()
	jobsHandler(d).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got jobsStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.CollectorReady)
	assert.Equal(t, "Stopped", got.CollectorState)
	assert.Equal(t, "Stopped", got.AppenderState)
	require.Len(t, got.Pending, 1)
	assert.Equal(t, jobStatus{Tier: "MID", Table: "internal.db.a", Columns: []string{"a.id"}}, got.Pending[0])
}

func TestDebugRouter(t *testing.T) {
	cat := seededCatalog(t)
	aa := plannerenv.NewDefaultConfig().AutoAnalyze
	d := newDaemons(cat, &aa)
	defer d.close()
	router := newRouter(d)

	tbl, ok := cat.Table(catalog.NewTableName("db", "c"))
	require.True(t, ok)
	require.True(t, d.queues.Tier(statistics.TierHigh).Append(tbl.Name(), catalog.ColumnIndexPair{Index: "c", Column: "id"}))

	serve := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec
	}

	rec := serve(http.MethodGet, "/debug/jobs?format=tree")
	require.Equal(t, http.StatusOK, rec.Code)
	tree := rec.Body.String()
	assert.True(t, strings.HasPrefix(tree, "pending analysis jobs\n"), tree)
	assert.Contains(t, tree, "HIGH")
	assert.Contains(t, tree, "internal.db.c")
	assert.Contains(t, tree, "└── c.id")
	assert.Less(t, strings.Index(tree, "HIGH"), strings.Index(tree, "VERY_LOW"))

	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost, "/debug/collector/suspend").Code)
	assert.True(t, d.collector.IsSuspended())
	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost, "/debug/collector/resume").Code)
	assert.False(t, d.collector.IsSuspended())

	assert.Equal(t, http.StatusMethodNotAllowed, serve(http.MethodGet, "/debug/collector/suspend").Code)
	assert.Equal(t, http.StatusNotFound, serve(http.MethodPost, "/debug/collector/restart").Code)
}

func TestDebugLeaks(t *testing.T) {
	cat := seededCatalog(t)
	aa := plannerenv.NewDefaultConfig().AutoAnalyze
	d := newDaemons(cat, &aa)
	defer d.close()
	router := newRouter(d)

	leaksOf := func(id string) []leakStatus {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/leaks", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var all []leakStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
		var out []leakStatus
		for _, l := range all {
			if l.StatementID == id {
				out = append(out, l)
			}
		}
		return out
	}

	sc := stmtctx.New(cat, stmtctx.Options{SQL: "select * from db.b", ConnectionID: 9})
	_, err := sc.GetAndCacheTable(context.Background(), catalog.NewTableName("db", "b"), stmtctx.RoleQuery)
	require.NoError(t, err)
	assert.Empty(t, leaksOf(sc.ID().String()), "no resources held yet")

	require.NoError(t, sc.Lock())
	leaks := leaksOf(sc.ID().String())
	require.Len(t, leaks, 1)
	assert.EqualValues(t, 9, leaks[0].ConnectionID)
	assert.Equal(t, "select * from db.b", leaks[0].SQL)
	require.Len(t, leaks[0].Resources, 1)
	assert.Contains(t, leaks[0].Resources[0], "tableReadLock(internal.db.b)")

	require.NoError(t, sc.Close())
	assert.Empty(t, leaksOf(sc.ID().String()))
	assert.Equal(t, http.StatusMethodNotAllowed, func() int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/debug/leaks", nil))
		return rec.Code
	}())
}

func TestCommandFlagsAndConfig(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(seedYAML), 0o644))
	conf := filepath.Join(dir, "planner.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("planner-table-lock-timeout: 7s\n"), 0o644))

	var out bytes.Buffer
	Main.SetOut(&out)
	Main.SetArgs([]string{"lockcheck", "--config", conf, "--catalog-seed", seed, "db.a"})
	require.NoError(t, Main.Execute())
	assert.Equal(t, "1\t10\tinternal.db.a\n", out.String())
	assert.Equal(t, "7s", cfg.LockTimeout.String())
}
