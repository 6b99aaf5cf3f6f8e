// Package eval implements the Evaluator (component D): the single entry
// point Φ(q, p) -> bool plus a Witness, against one process execution of
// an indexed log (spec.md §4.D).
package eval

import (
	"fmt"

	"github.com/gyunamister/goproq/internal/apperr"
	"github.com/gyunamister/goproq/internal/index"
	"github.com/gyunamister/goproq/internal/metric"
	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/query"
)

// Options carries the Evaluator's optional collaborators.
type Options struct {
	// Metrics is the externally supplied metric table consulted when a
	// predicate carries a metric triple. Nil disables metric filtering;
	// predicates with a metric triple then never narrow (behave as if
	// the triple were absent), matching "the hook is optional".
	Metrics metric.Source

	// SafetyCap overrides the temporal-mapping candidate-pair cap
	// (spec.md §4.D rule 4, §9 "document it as a configurable
	// parameter"). Zero or negative means controlFlowSafetyCap (10000).
	SafetyCap int

	// Warn, when set, is called with a human-readable message whenever
	// evaluation absorbs a condition locally rather than failing loudly
	// (currently: the temporal-mapping safety cap, spec.md §7
	// "SafetyAbort ... Driver logs a warning"). Package eval never logs
	// itself; this hook is how the cap-hit surfaces to whichever caller
	// installs one. Safe to call concurrently: Full mode runs one
	// Evaluate per worker goroutine.
	Warn func(string)
}

func (o Options) warn(format string, args ...interface{}) {
	if o.Warn == nil {
		return
	}
	o.Warn(fmt.Sprintf(format, args...))
}

func (o Options) safetyCap() int {
	if o.SafetyCap > 0 {
		return o.SafetyCap
	}
	return controlFlowSafetyCap
}

// ctx carries per-call state: the log, the execution under test, the
// collaborators and the wildcard binding table. Never shared across
// Evaluate calls (spec.md §3: wildcard state resets per query).
type ctx struct {
	log  *index.Log
	p    *index.Execution
	opts Options
	wc   *wildcardState
}

// Evaluate implements Φ(q, p). It returns the satisfaction bool, a
// Witness when satisfied (nil otherwise), and an error only when the AST
// reaching it is malformed (spec.md: "raises EvalError only on malformed
// AST reaching the evaluator, indicates planner bug").
func Evaluate(q query.Query, log *index.Log, p *index.Execution, opts Options) (bool, *Witness, error) {
	c := &ctx{log: log, p: p, opts: opts, wc: newWildcardState()}
	return c.eval(q)
}

func (c *ctx) eval(q query.Query) (bool, *Witness, error) {
	switch v := q.(type) {
	case query.ActivityQuery:
		ok, w := c.evalActivityQuery(v)
		return ok, w, nil
	case query.ObjectTypeQuery:
		ok, w := c.evalObjectTypeQuery(v)
		return ok, w, nil
	case query.ControlFlowQuery:
		return c.evalControlFlowQuery(v)
	case query.ObjectListQuery:
		ok, w := c.evalObjectListQuery(v)
		return ok, w, nil
	case query.AlwaysTrue:
		return true, newWitness(), nil
	case query.And:
		return c.evalAnd(v)
	case query.Or:
		return c.evalOr(v)
	case query.Not:
		return c.evalNot(v)
	default:
		return false, nil, apperr.New(apperr.KindEval, "unknown query variant %T reached the evaluator", q)
	}
}

// --- ActivityQuery -----------------------------------------------------

func (c *ctx) evalActivityQuery(q query.ActivityQuery) (bool, *Witness) {
	ot := q.Object.ObjectType

	if ot.IsAny() {
		for _, t := range c.log.ObjectTypes() {
			if ok, w := c.evalActivityForType(t, q); ok {
				return true, w
			}
		}
		return false, nil
	}

	if ot.IsWildcard() {
		candidates := c.wc.candidates(ot, c.log.ObjectTypes())
		w := newWitness()
		var succeeding []model.ObjectType
		for _, t := range candidates {
			if ok, sub := c.evalActivityForType(t, q); ok {
				succeeding = append(succeeding, t)
				mergeWitness(w, sub)
			}
		}
		c.wc.bind(ot, succeeding)
		if len(succeeding) == 0 {
			return false, nil
		}
		return true, w
	}

	return c.evalActivityForType(ot, q)
}

// evalActivityForType checks (c_o, c_a) against a single concrete object
// type: Ψ1 (object cardinality) then Ψ2 (every object satisfies δ).
func (c *ctx) evalActivityForType(ot model.ObjectType, q query.ActivityQuery) (bool, *Witness) {
	objs := c.p.ObjectsOf(ot)

	cardOK := len(objs) >= 1
	if q.Object.Cardinality != nil {
		cardOK = q.Object.Cardinality.Check(len(objs))
	}
	if !cardOK {
		return false, nil
	}

	w := newWitness()
	for _, o := range objs {
		ok, contributing := c.satisfiesActivity(o, q.Activity)
		if !ok {
			return false, nil
		}
		w.SatisfiedObjects[ot] = append(w.SatisfiedObjects[ot], o)
		w.ContributingEvents[o] = contributing
	}

	if q.Activity.NodeMetric != nil && c.opts.Metrics != nil {
		w = c.filterByNodeMetric(ot, w, q.Activity.NodeMetric)
		if len(w.SatisfiedObjects[ot]) == 0 {
			return false, nil
		}
	}
	return true, w
}

// satisfiesActivity implements δ(o, c_a) and returns the event ids that
// witness the match.
func (c *ctx) satisfiesActivity(o model.ObjectID, ac query.ActivityComponent) (bool, []model.EventID) {
	trace := c.p.ObjectEvents(o)
	if len(trace) == 0 {
		return false, nil
	}

	switch ac.Kind {
	case query.ActivitySingle:
		for _, e := range trace {
			if a, _ := c.log.EventActivity(e); containsActivity(ac.Activities, a) {
				return true, []model.EventID{e}
			}
		}
		return false, nil

	case query.ActivityStart:
		e := trace[0]
		if a, _ := c.log.EventActivity(e); containsActivity(ac.Activities, a) {
			return true, []model.EventID{e}
		}
		return false, nil

	case query.ActivityEnd:
		e := trace[len(trace)-1]
		if a, _ := c.log.EventActivity(e); containsActivity(ac.Activities, a) {
			return true, []model.EventID{e}
		}
		return false, nil

	case query.ActivityQuantified:
		var matched []model.EventID
		seen := make(map[model.Activity]bool)
		for _, e := range trace {
			a, _ := c.log.EventActivity(e)
			if containsActivity(ac.Activities, a) {
				matched = append(matched, e)
				seen[a] = true
			}
		}
		switch ac.Quantifier {
		case model.QuantifierAll:
			for _, a := range ac.Activities {
				if !seen[a] {
					return false, nil
				}
			}
			return true, matched
		default: // QuantifierAny
			return len(matched) > 0, matched
		}

	case query.ActivityCardinality:
		var target model.Activity
		if len(ac.Activities) > 0 {
			target = ac.Activities[0]
		}
		var matched []model.EventID
		for _, e := range trace {
			if a, _ := c.log.EventActivity(e); a == target {
				matched = append(matched, e)
			}
		}
		if ac.Cardinality.Check(len(matched)) {
			return true, matched
		}
		return false, nil
	}
	return false, nil
}

func containsActivity(activities []model.Activity, a model.Activity) bool {
	for _, x := range activities {
		if x == a {
			return true
		}
	}
	return false
}

func (c *ctx) filterByNodeMetric(ot model.ObjectType, w *Witness, mt *model.MetricTriple) *Witness {
	filtered := newWitness()
	for _, o := range w.SatisfiedObjects[ot] {
		evs := w.ContributingEvents[o]
		for _, e := range evs {
			if metric.Satisfies(c.opts.Metrics, e, mt.Metric, mt.Op, mt.Value) {
				filtered.SatisfiedObjects[ot] = append(filtered.SatisfiedObjects[ot], o)
				filtered.ContributingEvents[o] = evs
				break
			}
		}
	}
	return filtered
}

// --- ObjectTypeQuery -----------------------------------------------------

func (c *ctx) evalObjectTypeQuery(q query.ObjectTypeQuery) (bool, *Witness) {
	ot := q.Component.ObjectType
	card := q.Component.Cardinality

	if ot.IsAny() {
		for _, t := range c.log.ObjectTypes() {
			if ok, w := c.evalObjectTypeForType(t, card); ok {
				return true, w
			}
		}
		return false, nil
	}

	if ot.IsWildcard() {
		candidates := c.wc.candidates(ot, c.log.ObjectTypes())
		w := newWitness()
		var succeeding []model.ObjectType
		for _, t := range candidates {
			if ok, sub := c.evalObjectTypeForType(t, card); ok {
				succeeding = append(succeeding, t)
				mergeWitness(w, sub)
			}
		}
		c.wc.bind(ot, succeeding)
		if len(succeeding) == 0 {
			return false, nil
		}
		return true, w
	}

	return c.evalObjectTypeForType(ot, card)
}

func (c *ctx) evalObjectTypeForType(ot model.ObjectType, card *model.Cardinality) (bool, *Witness) {
	objs := c.p.ObjectsOf(ot)
	ok := len(objs) >= 1
	if card != nil {
		ok = card.Check(len(objs))
	}
	if !ok {
		return false, nil
	}
	w := newWitness()
	w.SatisfiedObjects[ot] = append(w.SatisfiedObjects[ot], objs...)
	return true, w
}

// --- ObjectListQuery ([EXPANSION] containsObjects) ----------------------

func (c *ctx) evalObjectListQuery(q query.ObjectListQuery) (bool, *Witness) {
	present := make(map[model.ObjectID]bool)
	for _, o := range c.p.ObjectsOf(q.ObjectType) {
		present[o] = true
	}

	var matched []model.ObjectID
	allPresent := len(q.Objects) > 0
	for _, o := range q.Objects {
		if present[o] {
			matched = append(matched, o)
		} else {
			allPresent = false
		}
	}

	var ok bool
	switch q.Quantifier {
	case model.QuantifierAll:
		ok = allPresent
	default:
		ok = len(matched) > 0
	}
	if !ok {
		return false, nil
	}
	w := newWitness()
	w.SatisfiedObjects[q.ObjectType] = matched
	return true, w
}

// --- ControlFlowQuery -----------------------------------------------------

// controlFlowSafetyCap is the 10,000-candidate-pair limit (spec.md §4.D
// rule 4) that prevents quadratic blowup on pathological executions.
const controlFlowSafetyCap = 10000

func (c *ctx) evalControlFlowQuery(q query.ControlFlowQuery) (bool, *Witness, error) {
	ok1, w1, err := c.eval(q.First)
	if err != nil {
		return false, nil, err
	}
	if !ok1 {
		return false, nil, nil
	}
	ok2, w2, err := c.eval(q.Second)
	if err != nil {
		return false, nil, err
	}
	if !ok2 {
		return false, nil, nil
	}

	objs1 := objectsFromWitness(w1)
	objs2 := objectsFromWitness(w2)

	if cap := c.opts.safetyCap(); len(objs1)*len(objs2) > cap {
		c.opts.warn("control-flow temporal mapping aborted: %d x %d candidate pairs exceeds the %d-pair safety cap; predicate treated as unsatisfied", len(objs1), len(objs2), cap)
		return false, nil, nil
	}

	mapping := make(map[[2]model.ObjectID][][2]model.EventID)
	for _, o1 := range objs1 {
		events1 := c.eventsWithActivity(o1, q.First.Activity.Activities)
		if len(events1) == 0 {
			continue
		}
		for _, o2 := range objs2 {
			events2 := c.eventsWithActivity(o2, q.Second.Activity.Activities)
			if len(events2) == 0 {
				continue
			}
			var pairs [][2]model.EventID
			for _, e1 := range events1 {
				for _, e2 := range events2 {
					if q.Relation == query.EF && e1 == e2 {
						// reflexive path, not counted.
						continue
					}
					var holds bool
					switch q.Relation {
					case query.DF:
						holds = c.p.Graph.HasEdge(e1, e2)
					case query.EF:
						holds = c.p.Graph.Reachable(e1, e2)
					}
					if !holds {
						continue
					}
					if q.EdgeMetric != nil && c.opts.Metrics != nil {
						if !metric.SatisfiesEdge(c.opts.Metrics, e1, e2, q.EdgeMetric.Metric, q.EdgeMetric.Op, q.EdgeMetric.Value) {
							continue
						}
					}
					pairs = append(pairs, [2]model.EventID{e1, e2})
				}
			}
			if len(pairs) > 0 {
				mapping[[2]model.ObjectID{o1, o2}] = pairs
			}
		}
	}

	domSize := len(mapping)
	minPairCount := -1
	for _, pairs := range mapping {
		if minPairCount == -1 || len(pairs) < minPairCount {
			minPairCount = len(pairs)
		}
	}

	noConstraint := q.Constraint.Object == nil && q.Constraint.ObjectRelative == nil && q.Constraint.Relationship == nil
	var satisfied bool
	if noConstraint {
		satisfied = domSize > 0
	} else {
		satisfied = true
		if q.Constraint.Object != nil {
			satisfied = satisfied && q.Constraint.Object.Check(domSize)
		}
		if q.Constraint.ObjectRelative != nil {
			satisfied = satisfied && q.Constraint.ObjectRelative.Check(domSize, len(objs1))
		}
		if q.Constraint.Relationship != nil {
			satisfied = satisfied && minPairCount != -1 && q.Constraint.Relationship.Check(minPairCount)
		}
	}
	if !satisfied {
		return false, nil, nil
	}

	w := newWitness()
	for pair, events := range mapping {
		w.TemporalMapping = append(w.TemporalMapping, TemporalPair{O1: pair[0], O2: pair[1], Events: events})
	}
	w.Children = []*Witness{w1, w2}
	return true, w, nil
}

func (c *ctx) eventsWithActivity(o model.ObjectID, activities []model.Activity) []model.EventID {
	var out []model.EventID
	for _, e := range c.p.ObjectEvents(o) {
		if a, _ := c.log.EventActivity(e); containsActivity(activities, a) {
			out = append(out, e)
		}
	}
	return out
}

// --- Composed (AND/OR/NOT) -----------------------------------------------

func (c *ctx) evalAnd(q query.And) (bool, *Witness, error) {
	ok1, w1, err := c.eval(q.Left)
	if err != nil {
		return false, nil, err
	}
	if !ok1 {
		return false, nil, nil
	}
	ok2, w2, err := c.eval(q.Right)
	if err != nil {
		return false, nil, err
	}
	if !ok2 {
		return false, nil, nil
	}
	w := newWitness()
	w.Children = []*Witness{w1, w2}
	return true, w, nil
}

func (c *ctx) evalOr(q query.Or) (bool, *Witness, error) {
	ok1, w1, err := c.eval(q.Left)
	if err != nil {
		return false, nil, err
	}
	if ok1 {
		w := newWitness()
		w.Children = []*Witness{w1}
		return true, w, nil
	}
	ok2, w2, err := c.eval(q.Right)
	if err != nil {
		return false, nil, err
	}
	if !ok2 {
		return false, nil, nil
	}
	w := newWitness()
	w.Children = []*Witness{w2}
	return true, w, nil
}

// evalNot negates Ψ. The witness marks Negated, nests the operand's own
// witness (when it produced one) and lists as SatisfiedObjects every
// object of the execution that the operand's witness does not list.
func (c *ctx) evalNot(q query.Not) (bool, *Witness, error) {
	ok, w, err := c.eval(q.Operand)
	if err != nil {
		return false, nil, err
	}
	nw := newWitness()
	nw.Negated = true
	if w != nil {
		nw.Children = []*Witness{w}
	}
	for ot, objs := range c.p.Objects {
		excluded := make(map[model.ObjectID]bool)
		if w != nil {
			for _, o := range w.SatisfiedObjects[ot] {
				excluded[o] = true
			}
		}
		for _, o := range objs {
			if !excluded[o] {
				nw.SatisfiedObjects[ot] = append(nw.SatisfiedObjects[ot], o)
			}
		}
	}
	return !ok, nw, nil
}

func mergeWitness(dst, src *Witness) {
	if src == nil {
		return
	}
	for t, ids := range src.SatisfiedObjects {
		dst.SatisfiedObjects[t] = append(dst.SatisfiedObjects[t], ids...)
	}
	for o, evs := range src.ContributingEvents {
		dst.ContributingEvents[o] = evs
	}
}

func objectsFromWitness(w *Witness) []model.ObjectID {
	if w == nil {
		return nil
	}
	var out []model.ObjectID
	for _, ids := range w.SatisfiedObjects {
		out = append(out, ids...)
	}
	return out
}
