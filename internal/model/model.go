// Package model holds the small value types shared by every layer of the
// engine: object/event identifiers, comparison operators and cardinality
// clauses. Keeping them in one leaf package avoids the query/index/eval
// packages each rolling their own copies (and diverging).
package model

import "strings"

// EventID identifies an event within a log. Event ids are totally ordered
// numerically by the importer; the index additionally orders by
// (end timestamp, id) wherever the spec calls for tie-breaking.
type EventID string

// ObjectID identifies an object within a log.
type ObjectID string

// ObjectType is the category of an object (e.g. "order", "item"). The
// pseudo-type AnyObjectType refers to the union of all object types in a
// process execution; types prefixed "WC" are wildcards narrowed by
// intersection across a query's predicates.
type ObjectType string

// Activity is a textual label on an event.
type Activity string

// AnyObjectType is the pseudo-type referring to the flattened union of all
// object types present in a process execution.
const AnyObjectType ObjectType = "ANY"

// IsAny reports whether ot is the ANY pseudo-type.
func (ot ObjectType) IsAny() bool { return ot == AnyObjectType }

// IsWildcard reports whether ot is a wildcard placeholder (WC-prefixed).
func (ot ObjectType) IsWildcard() bool { return strings.HasPrefix(string(ot), "WC") }

// CompareOp is one of the three comparison operators the query language
// supports for cardinality clauses.
type CompareOp string

const (
	OpGTE CompareOp = "gte"
	OpLTE CompareOp = "lte"
	OpEQ  CompareOp = "eq"
)

// Satisfies reports whether count op n holds.
func (op CompareOp) Satisfies(count, n int) bool {
	switch op {
	case OpGTE:
		return count >= n
	case OpLTE:
		return count <= n
	case OpEQ:
		return count == n
	default:
		return false
	}
}

// SatisfiesFloat reports whether ratio op p holds, for relative-cardinality
// checks (e.g. a fraction of objects satisfying a sub-predicate).
func (op CompareOp) SatisfiesFloat(ratio, p float64) bool {
	switch op {
	case OpGTE:
		return ratio >= p
	case OpLTE:
		return ratio <= p
	case OpEQ:
		return ratio == p
	default:
		return false
	}
}

// Cardinality is an (op, n) pair constraining a count. A nil *Cardinality
// means "no constraint" wherever the spec describes an optional clause.
type Cardinality struct {
	Op CompareOp
	N  int
}

// Check reports whether count satisfies c, treating a nil receiver as
// always-satisfied (absent clause).
func (c *Cardinality) Check(count int) bool {
	if c == nil {
		return true
	}
	return c.Op.Satisfies(count, c.N)
}

// RelativeCardinality is an (op, p) pair constraining a fraction in [0,1].
// This realizes the legacy format's p/p_operator/p_mode=="relative" case.
type RelativeCardinality struct {
	Op CompareOp
	P  float64
}

// Check reports whether satisfied/total satisfies c. A nil receiver is
// always-satisfied; a zero total is treated as satisfied (vacuous), matching
// the original implementation's relative-mode short-circuit.
func (c *RelativeCardinality) Check(satisfied, total int) bool {
	if c == nil {
		return true
	}
	if total == 0 {
		return true
	}
	return c.Op.SatisfiesFloat(float64(satisfied)/float64(total), c.P)
}

// Quantifier selects between existential and universal activity-set checks.
type Quantifier string

const (
	QuantifierAny Quantifier = "ANY"
	QuantifierAll Quantifier = "ALL"
)

// MetricTriple is the optional (metric, op, value) filter an atomic
// predicate may carry, consumed by the metric filter hook.
type MetricTriple struct {
	Metric string
	Op     CompareOp
	Value  float64
}
