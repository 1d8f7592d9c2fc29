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
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olapfe/planstate/go/vt/log"
	"github.com/olapfe/planstate/go/vt/vterrors"
)

// statementRegistry tracks every statement that has not been closed. A
// statement stays referenced until Close, so a statement that is never closed
// is never collected and keeps showing up in LeakedStatements once it holds
// resources.
type statementRegistry struct {
	mu         sync.Mutex
	statements map[uuid.UUID]*StatementContext
}

var openStatements = &statementRegistry{statements: make(map[uuid.UUID]*StatementContext)}

func (r *statementRegistry) add(sc *StatementContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements[sc.id] = sc
	statementsOpen.Set(int64(len(r.statements)))
}

func (r *statementRegistry) remove(sc *StatementContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.statements, sc.id)
	statementsOpen.Set(int64(len(r.statements)))
}

func (r *statementRegistry) list() []*StatementContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*StatementContext, 0, len(r.statements))
	for _, sc := range r.statements {
		out = append(out, sc)
	}
	return out
}

// LeakReport describes an unclosed statement holding planner resources.
type LeakReport struct {
	StatementID  uuid.UUID
	ConnectionID int64
	SQL          string
	OpenFor      time.Duration
	Resources    []string
}

func (lr LeakReport) String() string {
	return "statement " + lr.StatementID.String() + " open for " + lr.OpenFor.Round(time.Millisecond).String() +
		" holds:\n  " + strings.Join(lr.Resources, "\n  ")
}

// LeakedStatements returns a report for every statement that is not closed
// and still holds planner resources, oldest first. A held table read lock
// blocks DDL on the table until the statement is closed.
func LeakedStatements() []LeakReport {
	var out []LeakReport
	for _, sc := range openStatements.list() {
		sc.mu.Lock()
		if len(sc.resources) > 0 {
			out = append(out, LeakReport{
				StatementID:  sc.id,
				ConnectionID: sc.opts.ConnectionID,
				SQL:          sc.opts.SQL,
				OpenFor:      time.Since(sc.openedAt),
				Resources:    sc.heldResourcesLocked(),
			})
		}
		sc.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b LeakReport) int { return cmp.Compare(b.OpenFor, a.OpenFor) })
	return out
}

// CheckNoLeaks logs every leaked statement and returns an error wrapping
// ErrResourceLeak if there is any.
func CheckNoLeaks() error {
	leaks := LeakedStatements()
	if len(leaks) == 0 {
		return nil
	}
	reports := make([]string, 0, len(leaks))
	for _, l := range leaks {
		log.Errorf("resource leak: %v", l)
		reports = append(reports, l.String())
	}
	return vterrors.Wrapf(ErrResourceLeak, "%d statements hold planner resources:\n%s", len(leaks), strings.Join(reports, "\n"))
}
