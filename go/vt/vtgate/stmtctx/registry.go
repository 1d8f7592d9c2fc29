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

import (
	"cmp"
	"context"
	"slices"

	"github.com/olapfe/planstate/go/vt/log"
	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

// ViewInfo is the definition of a view as captured by the statement.
type ViewInfo struct {
	SQL     string
	SQLMode int64
}

func normalizeName(name catalog.TableName) catalog.TableName {
	if name.Catalog == "" {
		name.Catalog = catalog.DefaultCatalog
	}
	return name
}

// GetAndCacheTable returns the table registered under name for role,
// resolving and registering it on first use. Later calls for the same role
// and name return the same handle even if the catalog changed meanwhile.
//
// Resolution failures are returned for RoleQuery and RoleInsertTarget. For
// RoleMTMV they are logged and (nil, nil) is returned: a candidate
// materialized view that disappeared is dropped from consideration.
func (sc *StatementContext) GetAndCacheTable(ctx context.Context, name catalog.TableName, role Role) (catalog.Table, error) {
	name = normalizeName(name)
	sc.mu.Lock()
	if err := sc.checkOpenLocked(); err != nil {
		sc.mu.Unlock()
		return nil, err
	}
	if t, ok := sc.tables[role][name]; ok {
		sc.mu.Unlock()
		return t, nil
	}
	sc.mu.Unlock()

	t, err := sc.resolver.ResolveTable(ctx, name)
	if err == nil && t == nil {
		err = catalog.NotFoundError(name)
	}
	if err != nil {
		if role == RoleMTMV {
			mtmvResolveFailures.Add(1)
			log.Warningf("statement %s: dropping materialized view candidate %s: %v", sc.id, name, err)
			return nil, nil
		}
		return nil, vterrors.Wrapf(err, "resolving %s table %s", role, name)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.checkOpenLocked(); err != nil {
		return nil, err
	}
	// a concurrent caller may have registered it first; keep theirs.
	if existing, ok := sc.tables[role][name]; ok {
		return existing, nil
	}
	sc.tables[role][name] = t
	return t, nil
}

// Tables returns a copy of the tables registered under role.
func (sc *StatementContext) Tables(role Role) map[catalog.TableName]catalog.Table {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make(map[catalog.TableName]catalog.Table, len(sc.tables[role]))
	for k, v := range sc.tables[role] {
		out[k] = v
	}
	return out
}

// SetTables replaces the tables registered under role. It is used when
// tables are collected outside of GetAndCacheTable.
func (sc *StatementContext) SetTables(role Role, tables map[catalog.TableName]catalog.Table) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.checkOpenLocked(); err != nil {
		return err
	}
	m := make(map[catalog.TableName]catalog.Table, len(tables))
	for k, v := range tables {
		m[normalizeName(k)] = v
	}
	sc.tables[role] = m
	return nil
}

// AddCandidateMTMV records a materialized view that rewrite may use.
func (sc *StatementContext) AddCandidateMTMV(mv catalog.Table) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.candidateMTMVs[mv.ID()] = mv
}

// CandidateMTMVs returns the candidate materialized views by ascending id.
func (sc *StatementContext) CandidateMTMVs() []catalog.Table {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]catalog.Table, 0, len(sc.candidateMTMVs))
	for _, mv := range sc.candidateMTMVs {
		out = append(out, mv)
	}
	slices.SortFunc(out, func(a, b catalog.Table) int { return cmp.Compare(a.ID(), b.ID()) })
	return out
}

// GetAndCacheViewInfo returns the definition of view, reading it under the
// view's read lock the first time so that later changes to the view do not
// affect this statement. sc.mu is held while the view lock is awaited.
func (sc *StatementContext) GetAndCacheViewInfo(name catalog.TableName, view catalog.View) (ViewInfo, error) {
	name = normalizeName(name)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.checkOpenLocked(); err != nil {
		return ViewInfo{}, err
	}
	if vi, ok := sc.viewInfos[name]; ok {
		return vi, nil
	}
	if !view.TryReadLock(sc.opts.LockTimeout) {
		return ViewInfo{}, vterrors.Wrapf(ErrLockTimeout, "failed to get read lock on view %s", name)
	}
	sqlText, sqlMode := view.ViewDefinition()
	view.ReadUnlock()
	vi := ViewInfo{SQL: sqlText, SQLMode: sqlMode}
	sc.viewInfos[name] = vi
	return vi, nil
}
