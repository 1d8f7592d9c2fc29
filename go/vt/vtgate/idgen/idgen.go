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

// Package idgen issues the typed, strictly increasing identifiers used for
// planning-time objects: expressions, relations, CTEs, statement-scoped
// tables and placeholders.
//
// A Generator is safe for concurrent use. Ids are never reissued within the
// lifetime of one Generator; the int64 range is assumed never to be
// exhausted by one statement or connection.
package idgen

import (
	"strconv"
	"sync/atomic"
)

// Generator hands out ids of type T.
type Generator[T ~int64] struct {
	next atomic.Int64
}

// NewGenerator returns a Generator whose first id is initial. Seeding is used
// to resume a sequence, e.g. placeholder ids of a prepared statement that
// must not collide with a previous execution.
func NewGenerator[T ~int64](initial T) *Generator[T] {
	g := &Generator[T]{}
	g.next.Store(int64(initial))
	return g
}

// Next returns an id strictly greater than every id previously returned by g.
func (g *Generator[T]) Next() T {
	return T(g.next.Add(1) - 1)
}

// Peek returns the id the next call to Next would return, without
// consuming it.
func (g *Generator[T]) Peek() T {
	return T(g.next.Load())
}

type (
	// ExprID identifies a scalar expression of a plan.
	ExprID int64
	// RelationID identifies a relation (a table reference or derived table).
	RelationID int64
	// CTEID identifies a common table expression.
	CTEID int64
	// TableID is a statement-scoped id assigned to each physical table the
	// first time planning references it.
	TableID int64
	// ObjectID identifies any other planner object.
	ObjectID int64
	// PlaceholderID identifies a prepared-statement placeholder. Its
	// generator is connection-scoped.
	PlaceholderID int64
	// JobID identifies an auto-analyze job.
	JobID int64
	// TaskID identifies a column task within an auto-analyze job.
	TaskID int64
)

func (id ExprID) String() string        { return "expr#" + strconv.FormatInt(int64(id), 10) }
func (id RelationID) String() string    { return "rel#" + strconv.FormatInt(int64(id), 10) }
func (id CTEID) String() string         { return "cte#" + strconv.FormatInt(int64(id), 10) }
func (id TableID) String() string       { return "table#" + strconv.FormatInt(int64(id), 10) }
func (id ObjectID) String() string      { return "obj#" + strconv.FormatInt(int64(id), 10) }
func (id PlaceholderID) String() string { return "?" + strconv.FormatInt(int64(id), 10) }
func (id JobID) String() string         { return "job#" + strconv.FormatInt(int64(id), 10) }
func (id TaskID) String() string        { return "task#" + strconv.FormatInt(int64(id), 10) }
