// Package query defines the typed, closed sum-type AST for the query
// language: atomic predicates over object types, activities and
// control-flow relations, composed with AND/OR/NOT. Modeled on the
// teacher's closed Pattern/Clause sum types (datalog/query/types.go) —
// equality is structural, dispatch is exhaustive, and every variant
// round-trips through Serialize/Parse (see serialize.go).
package query

import (
	"fmt"
	"strings"

	"github.com/gyunamister/goproq/internal/model"
)

// Query is the closed sum type of the query AST. Every variant below
// implements it; there is no other way to satisfy the interface from
// outside the package (the unexported method pins the set).
type Query interface {
	fmt.Stringer
	isQuery()
}

// ActivityKind selects which shape of activity predicate an
// ActivityComponent expresses.
type ActivityKind string

const (
	ActivitySingle     ActivityKind = "single"
	ActivityStart      ActivityKind = "start"
	ActivityEnd        ActivityKind = "end"
	ActivityQuantified ActivityKind = "quantified"
	ActivityCardinality ActivityKind = "cardinality"
)

// ObjectComponent selects the object type (possibly ANY or a wildcard) an
// ActivityQuery ranges over, with an optional cardinality on the object
// count (default is "at least 1" when absent, applied by the evaluator).
type ObjectComponent struct {
	ObjectType  model.ObjectType
	Cardinality *model.Cardinality
}

func (c ObjectComponent) String() string {
	if c.Cardinality == nil {
		return string(c.ObjectType)
	}
	return fmt.Sprintf("%s(%s %d)", c.ObjectType, c.Cardinality.Op, c.Cardinality.N)
}

// ActivityComponent describes the per-object activity predicate δ(o, ·).
type ActivityComponent struct {
	Activities  []model.Activity
	Kind        ActivityKind
	Quantifier  model.Quantifier   // only meaningful for ActivityQuantified
	Cardinality *model.Cardinality // only meaningful for ActivityCardinality
	NodeMetric  *model.MetricTriple
}

func (c ActivityComponent) String() string {
	acts := make([]string, len(c.Activities))
	for i, a := range c.Activities {
		acts[i] = string(a)
	}
	switch c.Kind {
	case ActivityQuantified:
		return fmt.Sprintf("%s(%s){%s}", c.Kind, c.Quantifier, strings.Join(acts, ","))
	case ActivityCardinality:
		return fmt.Sprintf("%s(%s %s %d)", c.Kind, strings.Join(acts, ","), c.Cardinality.Op, c.Cardinality.N)
	default:
		return fmt.Sprintf("%s{%s}", c.Kind, strings.Join(acts, ","))
	}
}

// ActivityQuery is Q_a = (ObjectComponent, ActivityComponent).
type ActivityQuery struct {
	Object   ObjectComponent
	Activity ActivityComponent
}

func (ActivityQuery) isQuery() {}
func (q ActivityQuery) String() string {
	return fmt.Sprintf("ActivityQuery[%s, %s]", q.Object, q.Activity)
}

// ObjectTypeComponent is a cardinality over |objects of type ot in P|.
type ObjectTypeComponent struct {
	ObjectType  model.ObjectType
	Cardinality *model.Cardinality
}

func (c ObjectTypeComponent) String() string {
	if c.Cardinality == nil {
		return string(c.ObjectType)
	}
	return fmt.Sprintf("%s(%s %d)", c.ObjectType, c.Cardinality.Op, c.Cardinality.N)
}

// ObjectTypeQuery is Q_ot = (ObjectTypeComponent).
type ObjectTypeQuery struct {
	Component ObjectTypeComponent
}

func (ObjectTypeQuery) isQuery() {}
func (q ObjectTypeQuery) String() string { return fmt.Sprintf("ObjectTypeQuery[%s]", q.Component) }

// TemporalRelation distinguishes directly-follows from eventually-follows.
type TemporalRelation string

const (
	DF TemporalRelation = "DF"
	EF TemporalRelation = "EF"
)

// ConstraintComponent carries up to two cardinality clauses for a
// ControlFlowQuery: an object cardinality (|dom(M)|, absolute or relative)
// and a relationship cardinality (min_{(o1,o2)} |M(o1,o2)|).
type ConstraintComponent struct {
	Object         *model.Cardinality         // |dom(M)| op n
	ObjectRelative *model.RelativeCardinality // |dom(M)| / |O1| op p (relative mode)
	Relationship   *model.Cardinality         // min pair count op n
}

func (c ConstraintComponent) String() string {
	var parts []string
	if c.Object != nil {
		parts = append(parts, fmt.Sprintf("obj(%s %d)", c.Object.Op, c.Object.N))
	}
	if c.ObjectRelative != nil {
		parts = append(parts, fmt.Sprintf("obj%%(%s %.2f)", c.ObjectRelative.Op, c.ObjectRelative.P))
	}
	if c.Relationship != nil {
		parts = append(parts, fmt.Sprintf("rel(%s %d)", c.Relationship.Op, c.Relationship.N))
	}
	if len(parts) == 0 {
		return "nonempty"
	}
	return strings.Join(parts, ",")
}

// ControlFlowQuery is Q_cf = (Q_a^1, Q_a^2, T, ConstraintComponent).
type ControlFlowQuery struct {
	First      ActivityQuery
	Second     ActivityQuery
	Relation   TemporalRelation
	Constraint ConstraintComponent
	EdgeMetric *model.MetricTriple
}

func (ControlFlowQuery) isQuery() {}
func (q ControlFlowQuery) String() string {
	return fmt.Sprintf("ControlFlowQuery[%s %s %s | %s]", q.First, q.Relation, q.Second, q.Constraint)
}

// ObjectListQuery is the [EXPANSION] containsObjects predicate: an explicit
// list of needed object ids checked against a candidate object set with an
// ANY/ALL quantifier.
type ObjectListQuery struct {
	ObjectType model.ObjectType
	Objects    []model.ObjectID
	Quantifier model.Quantifier
}

func (ObjectListQuery) isQuery() {}
func (q ObjectListQuery) String() string {
	ids := make([]string, len(q.Objects))
	for i, o := range q.Objects {
		ids[i] = string(o)
	}
	return fmt.Sprintf("ObjectListQuery[%s %s{%s}]", q.ObjectType, q.Quantifier, strings.Join(ids, ","))
}

// AlwaysTrue is the [EXPANSION] no-op atomic query for legacy "isParallel"
// nodes: it passes every candidate object set through unchanged.
type AlwaysTrue struct{}

func (AlwaysTrue) isQuery() {}
func (AlwaysTrue) String() string { return "AlwaysTrue" }

// And, Or and Not implement ComposedQuery with standard short-circuit
// semantics (see internal/eval).
type And struct{ Left, Right Query }
type Or struct{ Left, Right Query }
type Not struct{ Operand Query }

func (And) isQuery() {}
func (Or) isQuery()  {}
func (Not) isQuery() {}

func (q And) String() string { return fmt.Sprintf("AND(%s, %s)", q.Left, q.Right) }
func (q Or) String() string  { return fmt.Sprintf("OR(%s, %s)", q.Left, q.Right) }
func (q Not) String() string { return fmt.Sprintf("NOT(%s)", q.Operand) }
