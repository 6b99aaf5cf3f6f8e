// Package convert implements the Converter (component C): translating
// legacy flat query records and graphical query diagrams into the typed
// query.Query AST (spec.md §4.C).
package convert

import (
	"fmt"
	"math"

	"github.com/gyunamister/goproq/internal/apperr"
	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/query"
)

// Resolver optionally validates that activity/object type names
// referenced by a legacy record or diagram node are known to the log
// being queried. Strict mode uses it to reject unresolved names at
// conversion time; permissive mode (the default) lets them through —
// they simply never match at evaluation time.
type Resolver interface {
	KnownActivity(a model.Activity) bool
	KnownObjectType(ot model.ObjectType) bool
}

// Options configures a conversion pass.
type Options struct {
	// Strict rejects unresolved activity/object type names with
	// ConversionError (apperr.KindUnknownName) instead of letting them
	// through unchanged (spec.md §4.C: "default: permissive").
	Strict bool
	// Resolver is consulted only when Strict is true.
	Resolver Resolver
	// Warn, when set, is called with a human-readable message whenever a
	// conversion absorbs an ambiguity rather than failing loudly
	// (currently: diagram multi-root selection, spec.md §4.C "choose the
	// first by diagram id and warn"). Package convert never logs itself.
	Warn func(string)
}

func (o Options) warn(format string, args ...interface{}) {
	if o.Warn == nil {
		return
	}
	o.Warn(fmt.Sprintf(format, args...))
}

const anyObjectType = "ANY"

// ConvertLegacy translates one legacy flat query record into the typed
// AST. Supported tags: isStart, isEnd, isContainedEvent,
// areContainedEvents, containsObjectsOfType, isDirectlyFollowed,
// isEventuallyFollowed, plus the [EXPANSION] tags containsObjects,
// isParallel and the atomic boolean_operator field (NOT).
func ConvertLegacy(rec map[string]interface{}, opts Options) (query.Query, error) {
	tag, _ := rec["query"].(string)
	if tag == "" {
		return nil, apperr.New(apperr.KindConversion, "legacy record missing or empty \"query\" tag")
	}

	var q query.Query
	var err error
	switch tag {
	case "isStart":
		q, err = convertActivity(rec, query.ActivityStart, opts)
	case "isEnd":
		q, err = convertActivity(rec, query.ActivityEnd, opts)
	case "isContainedEvent":
		q, err = convertContainedEvent(rec, opts)
	case "areContainedEvents":
		q, err = convertQuantified(rec, opts)
	case "containsObjectsOfType":
		q, err = convertObjectType(rec, opts)
	case "isDirectlyFollowed":
		q, err = convertControlFlow(rec, query.DF, opts)
	case "isEventuallyFollowed":
		q, err = convertControlFlow(rec, query.EF, opts)
	case "containsObjects":
		q, err = convertObjectList(rec)
	case "isParallel":
		q, err = query.AlwaysTrue{}, nil
	default:
		return nil, apperr.New(apperr.KindConversion, "unknown legacy query tag %q", tag)
	}
	if err != nil {
		return nil, err
	}

	if b, ok := rec["boolean_operator"].(string); ok && b == "NOT" {
		return query.Not{Operand: q}, nil
	}
	return q, nil
}

func objectType(rec map[string]interface{}) model.ObjectType {
	if ot, ok := rec["object_type"].(string); ok && ot != "" {
		return model.ObjectType(ot)
	}
	return anyObjectType
}

func activities(rec map[string]interface{}, key string) []model.Activity {
	switch v := rec[key].(type) {
	case string:
		return []model.Activity{model.Activity(v)}
	case []string:
		out := make([]model.Activity, len(v))
		for i, s := range v {
			out[i] = model.Activity(s)
		}
		return out
	case []interface{}:
		var out []model.Activity
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, model.Activity(s))
			}
		}
		return out
	default:
		return nil
	}
}

func cardinality(rec map[string]interface{}, opKey, nKey string) *model.Cardinality {
	opStr, ok := rec[opKey].(string)
	if !ok {
		return nil
	}
	n := toInt(rec[nKey])
	return &model.Cardinality{Op: model.CompareOp(opStr), N: n}
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func checkResolved(ot model.ObjectType, acts []model.Activity, opts Options) error {
	if !opts.Strict || opts.Resolver == nil {
		return nil
	}
	if ot != anyObjectType && !ot.IsWildcard() && !opts.Resolver.KnownObjectType(ot) {
		return apperr.New(apperr.KindUnknownName, "unknown object type %q", ot)
	}
	for _, a := range acts {
		if !opts.Resolver.KnownActivity(a) {
			return apperr.New(apperr.KindUnknownName, "unknown activity %q", a)
		}
	}
	return nil
}

func convertActivity(rec map[string]interface{}, kind query.ActivityKind, opts Options) (query.Query, error) {
	ot := objectType(rec)
	acts := activities(rec, "event_activity")
	if err := checkResolved(ot, acts, opts); err != nil {
		return nil, err
	}
	return query.ActivityQuery{
		Object:   query.ObjectComponent{ObjectType: ot, Cardinality: cardinality(rec, "n_operator", "n")},
		Activity: query.ActivityComponent{Activities: acts, Kind: kind},
	}, nil
}

func convertContainedEvent(rec map[string]interface{}, opts Options) (query.Query, error) {
	ot := objectType(rec)
	acts := activities(rec, "event_activity")
	if err := checkResolved(ot, acts, opts); err != nil {
		return nil, err
	}
	ac := query.ActivityComponent{Activities: acts, Kind: query.ActivitySingle}
	if card := cardinality(rec, "n_operator", "n"); card != nil {
		ac.Kind = query.ActivityCardinality
		ac.Cardinality = card
	}
	return query.ActivityQuery{
		Object:   query.ObjectComponent{ObjectType: ot},
		Activity: ac,
	}, nil
}

func convertQuantified(rec map[string]interface{}, opts Options) (query.Query, error) {
	ot := objectType(rec)
	acts := activities(rec, "event_activity")
	if err := checkResolved(ot, acts, opts); err != nil {
		return nil, err
	}
	quant := model.QuantifierAny
	if q, _ := rec["quantifier"].(string); q == string(model.QuantifierAll) {
		quant = model.QuantifierAll
	}
	return query.ActivityQuery{
		Object:   query.ObjectComponent{ObjectType: ot},
		Activity: query.ActivityComponent{Activities: acts, Kind: query.ActivityQuantified, Quantifier: quant},
	}, nil
}

func convertObjectType(rec map[string]interface{}, opts Options) (query.Query, error) {
	ot := objectType(rec)
	if err := checkResolved(ot, nil, opts); err != nil {
		return nil, err
	}
	return query.ObjectTypeQuery{
		Component: query.ObjectTypeComponent{ObjectType: ot, Cardinality: cardinality(rec, "n_operator", "n")},
	}, nil
}

// convertControlFlow implements isDirectlyFollowed/isEventuallyFollowed:
// n_operator/n map to the relationship cardinality; p_operator/p (rounded
// down to a natural) map to the object cardinality of the constraint.
func convertControlFlow(rec map[string]interface{}, rel query.TemporalRelation, opts Options) (query.Query, error) {
	firstType := model.ObjectType(anyObjectType)
	if ft, ok := rec["first_type"].(string); ok && ft != "" {
		firstType = model.ObjectType(ft)
	}
	secondType := model.ObjectType(anyObjectType)
	if st, ok := rec["second_type"].(string); ok && st != "" {
		secondType = model.ObjectType(st)
	}
	firstActs := activities(rec, "first_activity")
	secondActs := activities(rec, "second_activity")
	if err := checkResolved(firstType, firstActs, opts); err != nil {
		return nil, err
	}
	if err := checkResolved(secondType, secondActs, opts); err != nil {
		return nil, err
	}

	first := query.ActivityQuery{
		Object:   query.ObjectComponent{ObjectType: firstType},
		Activity: query.ActivityComponent{Activities: firstActs, Kind: query.ActivitySingle},
	}
	second := query.ActivityQuery{
		Object:   query.ObjectComponent{ObjectType: secondType},
		Activity: query.ActivityComponent{Activities: secondActs, Kind: query.ActivitySingle},
	}

	var constraint query.ConstraintComponent
	if card := cardinality(rec, "n_operator", "n"); card != nil {
		constraint.Relationship = card
	}
	if opStr, ok := rec["p_operator"].(string); ok {
		p := toFloat(rec["p"])
		if mode, _ := rec["p_mode"].(string); mode == "relative" {
			constraint.ObjectRelative = &model.RelativeCardinality{Op: model.CompareOp(opStr), P: p}
		} else {
			constraint.Object = &model.Cardinality{Op: model.CompareOp(opStr), N: int(math.Floor(p))}
		}
	}

	return query.ControlFlowQuery{First: first, Second: second, Relation: rel, Constraint: constraint}, nil
}

// convertObjectList implements the [EXPANSION] containsObjects predicate:
// an explicit object id list checked with an ANY/ALL quantifier.
func convertObjectList(rec map[string]interface{}) (query.Query, error) {
	ot := objectType(rec)
	rawIDs, _ := rec["needed_objects"].([]interface{})
	if rawIDs == nil {
		if ss, ok := rec["needed_objects"].([]string); ok {
			ids := make([]model.ObjectID, len(ss))
			for i, s := range ss {
				ids[i] = model.ObjectID(s)
			}
			quant := quantifierOf(rec)
			return query.ObjectListQuery{ObjectType: ot, Objects: ids, Quantifier: quant}, nil
		}
		return nil, apperr.New(apperr.KindConversion, "containsObjects missing \"needed_objects\" list")
	}
	ids := make([]model.ObjectID, 0, len(rawIDs))
	for _, x := range rawIDs {
		if s, ok := x.(string); ok {
			ids = append(ids, model.ObjectID(s))
		}
	}
	return query.ObjectListQuery{ObjectType: ot, Objects: ids, Quantifier: quantifierOf(rec)}, nil
}

func quantifierOf(rec map[string]interface{}) model.Quantifier {
	if q, _ := rec["quantifier"].(string); q == string(model.QuantifierAll) {
		return model.QuantifierAll
	}
	return model.QuantifierAny
}
