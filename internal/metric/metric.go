// Package metric implements the optional Metric Filter Hook (component G):
// predicates carrying a metric triple are checked against an externally
// supplied event_id -> {metric -> number} table rather than against the
// log itself (spec.md §4.G).
package metric

import (
	"github.com/gyunamister/goproq/internal/model"
)

// Source is the externally supplied metric table. Implementations are
// expected to be immutable snapshots; the evaluator never mutates one.
type Source interface {
	// Value returns the value of metric for event e, and whether it is
	// present. A missing value means the event carries no such metric.
	Value(e model.EventID, metric string) (float64, bool)
}

// MapSource is a Source backed by a plain nested map, the shape callers
// most often already have on hand (e.g. decoded from JSON).
type MapSource map[model.EventID]map[string]float64

func (m MapSource) Value(e model.EventID, metric string) (float64, bool) {
	byMetric, ok := m[e]
	if !ok {
		return 0, false
	}
	v, ok := byMetric[metric]
	return v, ok
}

// Filter partitions events by whether they satisfy the metric triple:
// events whose metric value is missing are treated as not satisfying.
// Mirrors the spec's filter(objects, metric, op, value) -> (satisfied,
// not-satisfied) contract, except at the event rather than the object
// level. The Evaluator does not call Filter: it calls Satisfies (or
// SatisfiesEdge) once per candidate event and resolves the object-level
// verdict itself (a node or edge may carry more than one object).
func Filter(src Source, events []model.EventID, metric string, op model.CompareOp, value float64) (satisfied, unsatisfied []model.EventID) {
	for _, e := range events {
		v, ok := src.Value(e, metric)
		if ok && op.SatisfiesFloat(v, value) {
			satisfied = append(satisfied, e)
		} else {
			unsatisfied = append(unsatisfied, e)
		}
	}
	return satisfied, unsatisfied
}

// Satisfies reports whether a single event satisfies the metric triple.
func Satisfies(src Source, e model.EventID, metric string, op model.CompareOp, value float64) bool {
	v, ok := src.Value(e, metric)
	if !ok {
		return false
	}
	return op.SatisfiesFloat(v, value)
}

// EdgeValue computes the edge-level metric reading used by
// ControlFlowQuery edge-metric triples: the difference between the
// target event's metric reading and the source event's, matching the
// "end.lead_time - start.lead_time" shape described for duration-like
// metrics. Returns ok=false if either endpoint lacks the metric.
func EdgeValue(src Source, from, to model.EventID, metric string) (float64, bool) {
	sv, ok := src.Value(from, metric)
	if !ok {
		return 0, false
	}
	tv, ok := src.Value(to, metric)
	if !ok {
		return 0, false
	}
	return tv - sv, true
}

// SatisfiesEdge reports whether the edge from->to satisfies the edge
// metric triple.
func SatisfiesEdge(src Source, from, to model.EventID, metric string, op model.CompareOp, value float64) bool {
	v, ok := EdgeValue(src, from, to, metric)
	if !ok {
		return false
	}
	return op.SatisfiesFloat(v, value)
}
