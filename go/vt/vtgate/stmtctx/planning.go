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
	"slices"
	"strings"

	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/idgen"
)

// RelationStats are the estimated statistics of a relation.
type RelationStats struct {
	RowCount float64
	// ColumnNDV is the number of distinct values per output column.
	ColumnNDV map[string]float64
}

// Hint is an optimizer hint of the statement.
type Hint struct {
	Name        string
	Params      []string
	SyntaxError bool
}

// planning is the bookkeeping of the planner. It is only used by the
// goroutine planning the statement and is not synchronized.
type planning struct {
	maxNAryInnerJoin int
	joinCount        int

	hasNondeterministic      bool
	disableJoinReorderReason string
	tableIDMapping           map[snapshotKey]idgen.TableID
	cteConsumers             map[idgen.CTEID][]idgen.RelationID
	cteOutputs               map[idgen.CTEID][]idgen.ExprID
	cteProducerStats         map[idgen.CTEID]*RelationStats
	consumerFilters          map[idgen.RelationID][]string
	rewrittenCTEProducer     map[idgen.CTEID]any
	rewrittenCTEConsumer     map[idgen.CTEID]any
	relationStats            map[idgen.RelationID]*RelationStats
	keySlots                 map[idgen.ExprID]bool
	viewDDLs                 map[string]bool
	hints                    []Hint
}

func newPlanning() planning {
	return planning{
		tableIDMapping:       make(map[snapshotKey]idgen.TableID),
		cteConsumers:         make(map[idgen.CTEID][]idgen.RelationID),
		cteOutputs:           make(map[idgen.CTEID][]idgen.ExprID),
		cteProducerStats:     make(map[idgen.CTEID]*RelationStats),
		consumerFilters:      make(map[idgen.RelationID][]string),
		rewrittenCTEProducer: make(map[idgen.CTEID]any),
		rewrittenCTEConsumer: make(map[idgen.CTEID]any),
		relationStats:        make(map[idgen.RelationID]*RelationStats),
		keySlots:             make(map[idgen.ExprID]bool),
		viewDDLs:             make(map[string]bool),
	}
}

// TableIDFor returns the statement scoped id of t, assigning the next
// table id the first time t is seen.
func (sc *StatementContext) TableIDFor(t catalog.Table) idgen.TableID {
	key := keyOf(t)
	if id, ok := sc.tableIDMapping[key]; ok {
		return id
	}
	id := sc.NextTableID()
	sc.tableIDMapping[key] = id
	return id
}

// SetMaxNAryInnerJoin keeps the largest n-ary inner join seen.
func (sc *StatementContext) SetMaxNAryInnerJoin(n int) {
	sc.maxNAryInnerJoin = max(sc.maxNAryInnerJoin, n)
}

// MaxNAryInnerJoin returns the largest n-ary inner join seen.
func (sc *StatementContext) MaxNAryInnerJoin() int {
	return sc.maxNAryInnerJoin
}

// SetMaxContinuousJoin keeps the longest chain of continuous joins seen.
func (sc *StatementContext) SetMaxContinuousJoin(n int) {
	sc.joinCount = max(sc.joinCount, n)
}

// MaxContinuousJoin returns the longest chain of continuous joins seen.
func (sc *StatementContext) MaxContinuousJoin() int {
	return sc.joinCount
}

// SetHasNondeterministic marks the statement as using nondeterministic functions.
func (sc *StatementContext) SetHasNondeterministic(v bool) {
	sc.hasNondeterministic = v
}

// HasNondeterministic reports whether the statement uses nondeterministic functions.
func (sc *StatementContext) HasNondeterministic() bool {
	return sc.hasNondeterministic
}

// SetDisableJoinReorderReason records why join reorder is disabled.
func (sc *StatementContext) SetDisableJoinReorderReason(reason string) {
	sc.disableJoinReorderReason = reason
}

// DisableJoinReorderReason returns why join reorder is disabled, if it is.
func (sc *StatementContext) DisableJoinReorderReason() (string, bool) {
	return sc.disableJoinReorderReason, sc.disableJoinReorderReason != ""
}

// AddCTEConsumer records a consumer relation of a CTE.
func (sc *StatementContext) AddCTEConsumer(cte idgen.CTEID, consumer idgen.RelationID) {
	if !slices.Contains(sc.cteConsumers[cte], consumer) {
		sc.cteConsumers[cte] = append(sc.cteConsumers[cte], consumer)
	}
}

// CTEConsumers returns the consumer relations of a CTE.
func (sc *StatementContext) CTEConsumers(cte idgen.CTEID) []idgen.RelationID {
	return sc.cteConsumers[cte]
}

// SetCTEOutputs records the output expressions of a CTE.
func (sc *StatementContext) SetCTEOutputs(cte idgen.CTEID, outputs []idgen.ExprID) {
	sc.cteOutputs[cte] = outputs
}

// CTEOutputs returns the output expressions of a CTE.
func (sc *StatementContext) CTEOutputs(cte idgen.CTEID) []idgen.ExprID {
	return sc.cteOutputs[cte]
}

// AddConsumerFilter records a filter pushed to a CTE consumer.
func (sc *StatementContext) AddConsumerFilter(consumer idgen.RelationID, filter string) {
	sc.consumerFilters[consumer] = append(sc.consumerFilters[consumer], filter)
}

// ConsumerFilters returns the filters pushed to a CTE consumer.
func (sc *StatementContext) ConsumerFilters(consumer idgen.RelationID) []string {
	return sc.consumerFilters[consumer]
}

// SetRewrittenCTEProducer caches the rewritten plan of a CTE producer.
func (sc *StatementContext) SetRewrittenCTEProducer(cte idgen.CTEID, plan any) {
	sc.rewrittenCTEProducer[cte] = plan
}

// RewrittenCTEProducer returns the rewritten plan of a CTE producer.
func (sc *StatementContext) RewrittenCTEProducer(cte idgen.CTEID) (any, bool) {
	p, ok := sc.rewrittenCTEProducer[cte]
	return p, ok
}

// SetRewrittenCTEConsumer caches the rewritten plan of a CTE consumer.
func (sc *StatementContext) SetRewrittenCTEConsumer(cte idgen.CTEID, plan any) {
	sc.rewrittenCTEConsumer[cte] = plan
}

// RewrittenCTEConsumer returns the rewritten plan of a CTE consumer.
func (sc *StatementContext) RewrittenCTEConsumer(cte idgen.CTEID) (any, bool) {
	p, ok := sc.rewrittenCTEConsumer[cte]
	return p, ok
}

// SetProducerStats records the statistics of a CTE producer.
func (sc *StatementContext) SetProducerStats(cte idgen.CTEID, s *RelationStats) {
	sc.cteProducerStats[cte] = s
}

// ProducerStats returns the statistics of a CTE producer, or nil.
func (sc *StatementContext) ProducerStats(cte idgen.CTEID) *RelationStats {
	return sc.cteProducerStats[cte]
}

// AddStatistics records statistics for a relation, e.g. from a
// materialized view, to use instead of deriving them.
func (sc *StatementContext) AddStatistics(id idgen.RelationID, s *RelationStats) {
	if s == nil {
		return
	}
	sc.relationStats[id] = s
}

// Statistics returns the statistics recorded for a relation.
func (sc *StatementContext) Statistics(id idgen.RelationID) (*RelationStats, bool) {
	s, ok := sc.relationStats[id]
	return s, ok
}

// AddKeySlot marks an expression as a key slot: one used in a join,
// filter or grouping.
func (sc *StatementContext) AddKeySlot(id idgen.ExprID) {
	sc.keySlots[id] = true
}

// IsKeySlot reports whether the expression is a key slot.
func (sc *StatementContext) IsKeySlot(id idgen.ExprID) bool {
	return sc.keySlots[id]
}

// AddViewDDL records the DDL of a view the statement depends on.
func (sc *StatementContext) AddViewDDL(ddl string) {
	sc.viewDDLs[ddl] = true
}

// ViewDDLs returns the recorded view DDLs, sorted.
func (sc *StatementContext) ViewDDLs() []string {
	out := make([]string, 0, len(sc.viewDDLs))
	for ddl := range sc.viewDDLs {
		out = append(out, ddl)
	}
	slices.Sort(out)
	return out
}

// AddHint records an optimizer hint.
func (sc *StatementContext) AddHint(h Hint) {
	sc.hints = append(sc.hints, h)
}

// Hints returns the recorded hints in order.
func (sc *StatementContext) Hints() []Hint {
	return sc.hints
}

// UseMVHint returns the first well-formed hint named name, such as
// USE_MV or NO_USE_MV.
func (sc *StatementContext) UseMVHint(name string) (Hint, bool) {
	for _, h := range sc.hints {
		if h.SyntaxError {
			continue
		}
		if strings.EqualFold(h.Name, name) {
			return h, true
		}
	}
	return Hint{}, false
}
