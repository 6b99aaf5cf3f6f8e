package eval_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gyunamister/goproq/internal/eval"
	"github.com/gyunamister/goproq/internal/index"
	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/ocel"
	"github.com/gyunamister/goproq/internal/ocel/oceltest"
	"github.com/gyunamister/goproq/internal/query"
)

func t0(mins int) time.Time { return time.Date(2024, 1, 1, 0, mins, 0, 0, time.UTC) }

func evalAll(t *testing.T, log *index.Log, q query.Query) []int {
	t.Helper()
	var indices []int
	for i, p := range log.Executions() {
		ok, _, err := eval.Evaluate(q, log, p, eval.Options{})
		require.NoError(t, err)
		if ok {
			indices = append(indices, i)
		}
	}
	return indices
}

// S1 — ObjectTypeQuery: 4 executions with order counts [2,1,0,3]; query
// (ot=order, >=, 2) selects indices [0, 3].
func TestS1_ObjectTypeQuery(t *testing.T) {
	counts := []int{2, 1, 0, 3}
	var events []oceltest.EventSpec
	var executions []oceltest.ExecutionSpec
	for i, n := range counts {
		var ids []model.ObjectID
		for j := 0; j < n; j++ {
			ids = append(ids, model.ObjectID(execObjID(i, j)))
		}
		evID := model.EventID(execObjID(i, -1))
		events = append(events, oceltest.EventSpec{
			ID: evID, Activity: "A", End: t0(i + 1),
			Objects: map[model.ObjectType][]model.ObjectID{"order": ids},
		})
		executions = append(executions, oceltest.ExecutionSpec{
			Events:  []model.EventID{evID},
			Objects: objectRefs("order", ids),
		})
	}
	fx := oceltest.New([]model.ObjectType{"order"}, events, executions)
	log, err := index.Build(fx)
	require.NoError(t, err)

	q := query.ObjectTypeQuery{Component: query.ObjectTypeComponent{
		ObjectType:  "order",
		Cardinality: &model.Cardinality{Op: model.OpGTE, N: 2},
	}}
	require.Equal(t, []int{0, 3}, evalAll(t, log, q))
}

func execObjID(exec, obj int) string {
	if obj < 0 {
		return "e" + itoa(exec)
	}
	return "o" + itoa(exec) + "_" + itoa(obj)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func objectRefs(ot model.ObjectType, ids []model.ObjectID) []ocel.ObjectRef {
	out := make([]ocel.ObjectRef, len(ids))
	for i, id := range ids {
		out[i] = ocel.ObjectRef{Type: ot, ID: id}
	}
	return out
}

// S2 — start activity: executions 0 and 2 begin order o1 with "Create PO";
// others with "Cancel". ActivityQuery(ot=order, start, {"Create PO"})
// selects indices [0, 2].
func TestS2_StartActivity(t *testing.T) {
	starts := []model.Activity{"Create PO", "Cancel", "Create PO", "Cancel"}
	var events []oceltest.EventSpec
	var executions []oceltest.ExecutionSpec
	for i, first := range starts {
		e1 := model.EventID(execObjID(i, -1) + "a")
		e2 := model.EventID(execObjID(i, -1) + "b")
		events = append(events,
			oceltest.EventSpec{ID: e1, Activity: first, End: t0(i*10 + 1), Objects: map[model.ObjectType][]model.ObjectID{"order": {"o1"}}},
			oceltest.EventSpec{ID: e2, Activity: "Ship", End: t0(i*10 + 2), Objects: map[model.ObjectType][]model.ObjectID{"order": {"o1"}}},
		)
		executions = append(executions, oceltest.ExecutionSpec{
			Events:  []model.EventID{e1, e2},
			Edges:   [][2]model.EventID{{e1, e2}},
			Objects: []ocel.ObjectRef{{Type: "order", ID: "o1"}},
		})
	}
	fx := oceltest.New([]model.ObjectType{"order"}, events, executions)
	log, err := index.Build(fx)
	require.NoError(t, err)

	q := query.ActivityQuery{
		Object:   query.ObjectComponent{ObjectType: "order"},
		Activity: query.ActivityComponent{Activities: []model.Activity{"Create PO"}, Kind: query.ActivityStart},
	}
	require.Equal(t, []int{0, 2}, evalAll(t, log, q))
}

// S3 — DF with relationship cardinality: object i1 has 3 Pick->Pack edges;
// ControlFlow(Pick/item, Pack/item, DF, rel=3) is satisfied.
func TestS3_DFRelationshipCardinality(t *testing.T) {
	events := []oceltest.EventSpec{
		{ID: "e1", Activity: "Pick", End: t0(1), Objects: map[model.ObjectType][]model.ObjectID{"item": {"i1"}}},
		{ID: "e2", Activity: "Pack", End: t0(2), Objects: map[model.ObjectType][]model.ObjectID{"item": {"i1"}}},
		{ID: "e3", Activity: "Pick", End: t0(3), Objects: map[model.ObjectType][]model.ObjectID{"item": {"i1"}}},
		{ID: "e4", Activity: "Pack", End: t0(4), Objects: map[model.ObjectType][]model.ObjectID{"item": {"i1"}}},
		{ID: "e5", Activity: "Pick", End: t0(5), Objects: map[model.ObjectType][]model.ObjectID{"item": {"i1"}}},
		{ID: "e6", Activity: "Pack", End: t0(6), Objects: map[model.ObjectType][]model.ObjectID{"item": {"i1"}}},
	}
	exec := oceltest.ExecutionSpec{
		Events: []model.EventID{"e1", "e2", "e3", "e4", "e5", "e6"},
		Edges: [][2]model.EventID{
			{"e1", "e2"}, {"e2", "e3"}, {"e3", "e4"}, {"e4", "e5"}, {"e5", "e6"},
		},
		Objects: []ocel.ObjectRef{{Type: "item", ID: "i1"}},
	}
	fx := oceltest.New([]model.ObjectType{"item"}, events, []oceltest.ExecutionSpec{exec})
	log, err := index.Build(fx)
	require.NoError(t, err)

	pick := query.ActivityQuery{Object: query.ObjectComponent{ObjectType: "item"}, Activity: query.ActivityComponent{Activities: []model.Activity{"Pick"}, Kind: query.ActivitySingle}}
	pack := query.ActivityQuery{Object: query.ObjectComponent{ObjectType: "item"}, Activity: query.ActivityComponent{Activities: []model.Activity{"Pack"}, Kind: query.ActivitySingle}}
	q := query.ControlFlowQuery{
		First: pick, Second: pack, Relation: query.DF,
		Constraint: query.ConstraintComponent{Relationship: &model.Cardinality{Op: model.OpEQ, N: 3}},
	}
	require.Equal(t, []int{0}, evalAll(t, log, q))
}

// S4 — EF: path A -> X -> B on object o1. DF(A,B) fails; EF(A,B) succeeds.
func TestS4_EFvsDF(t *testing.T) {
	events := []oceltest.EventSpec{
		{ID: "e1", Activity: "A", End: t0(1), Objects: map[model.ObjectType][]model.ObjectID{"order": {"o1"}}},
		{ID: "e2", Activity: "X", End: t0(2), Objects: map[model.ObjectType][]model.ObjectID{"order": {"o1"}}},
		{ID: "e3", Activity: "B", End: t0(3), Objects: map[model.ObjectType][]model.ObjectID{"order": {"o1"}}},
	}
	exec := oceltest.ExecutionSpec{
		Events:  []model.EventID{"e1", "e2", "e3"},
		Edges:   [][2]model.EventID{{"e1", "e2"}, {"e2", "e3"}},
		Objects: []ocel.ObjectRef{{Type: "order", ID: "o1"}},
	}
	fx := oceltest.New([]model.ObjectType{"order"}, events, []oceltest.ExecutionSpec{exec})
	log, err := index.Build(fx)
	require.NoError(t, err)

	a := query.ActivityQuery{Object: query.ObjectComponent{ObjectType: "order"}, Activity: query.ActivityComponent{Activities: []model.Activity{"A"}, Kind: query.ActivitySingle}}
	b := query.ActivityQuery{Object: query.ObjectComponent{ObjectType: "order"}, Activity: query.ActivityComponent{Activities: []model.Activity{"B"}, Kind: query.ActivitySingle}}

	dfQuery := query.ControlFlowQuery{First: a, Second: b, Relation: query.DF}
	efQuery := query.ControlFlowQuery{First: a, Second: b, Relation: query.EF}

	require.Empty(t, evalAll(t, log, dfQuery))
	require.Equal(t, []int{0}, evalAll(t, log, efQuery))
}

// SafetyAbort — temporal-mapping cap hit: 3 "item" objects each with a
// Pick->Pack edge gives a 3x3=9 candidate-pair domain; with SafetyCap
// lowered to 2 the cap trips, the predicate is treated as unsatisfied
// (not an error), and the Warn hook fires exactly once (spec.md §7,
// §9 "document it as a configurable parameter").
func TestControlFlow_SafetyAbort_WarnsAndTreatsAsUnsatisfied(t *testing.T) {
	var events []oceltest.EventSpec
	var refs []ocel.ObjectRef
	for i := 0; i < 3; i++ {
		id := model.ObjectID(execObjID(0, i))
		pick := model.EventID(string(id) + "-pick")
		pack := model.EventID(string(id) + "-pack")
		events = append(events,
			oceltest.EventSpec{ID: pick, Activity: "Pick", End: t0(i*2 + 1), Objects: map[model.ObjectType][]model.ObjectID{"item": {id}}},
			oceltest.EventSpec{ID: pack, Activity: "Pack", End: t0(i*2 + 2), Objects: map[model.ObjectType][]model.ObjectID{"item": {id}}},
		)
		refs = append(refs, ocel.ObjectRef{Type: "item", ID: id})
	}
	var eventIDs []model.EventID
	var edges [][2]model.EventID
	for _, e := range events {
		eventIDs = append(eventIDs, e.ID)
	}
	for i := 0; i < 3; i++ {
		edges = append(edges, [2]model.EventID{eventIDs[i*2], eventIDs[i*2+1]})
	}
	exec := oceltest.ExecutionSpec{Events: eventIDs, Edges: edges, Objects: refs}
	fx := oceltest.New([]model.ObjectType{"item"}, events, []oceltest.ExecutionSpec{exec})
	log, err := index.Build(fx)
	require.NoError(t, err)

	pick := query.ActivityQuery{Object: query.ObjectComponent{ObjectType: "item"}, Activity: query.ActivityComponent{Activities: []model.Activity{"Pick"}, Kind: query.ActivitySingle}}
	pack := query.ActivityQuery{Object: query.ObjectComponent{ObjectType: "item"}, Activity: query.ActivityComponent{Activities: []model.Activity{"Pack"}, Kind: query.ActivitySingle}}
	q := query.ControlFlowQuery{First: pick, Second: pack, Relation: query.DF}

	var warnings []string
	opts := eval.Options{SafetyCap: 2, Warn: func(msg string) { warnings = append(warnings, msg) }}

	ok, w, err := eval.Evaluate(q, log, log.Execution(0), opts)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, w)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "safety cap")
}

// S5 — NOT composition: given S1's result [0,3] out of 4, NOT((order,>=,2))
// selects [1, 2].
func TestS5_NotComposition(t *testing.T) {
	counts := []int{2, 1, 0, 3}
	var events []oceltest.EventSpec
	var executions []oceltest.ExecutionSpec
	for i, n := range counts {
		var ids []model.ObjectID
		for j := 0; j < n; j++ {
			ids = append(ids, model.ObjectID(execObjID(i, j)))
		}
		evID := model.EventID(execObjID(i, -1))
		events = append(events, oceltest.EventSpec{
			ID: evID, Activity: "A", End: t0(i + 1),
			Objects: map[model.ObjectType][]model.ObjectID{"order": ids},
		})
		executions = append(executions, oceltest.ExecutionSpec{
			Events:  []model.EventID{evID},
			Objects: objectRefs("order", ids),
		})
	}
	fx := oceltest.New([]model.ObjectType{"order"}, events, executions)
	log, err := index.Build(fx)
	require.NoError(t, err)

	inner := query.ObjectTypeQuery{Component: query.ObjectTypeComponent{
		ObjectType:  "order",
		Cardinality: &model.Cardinality{Op: model.OpGTE, N: 2},
	}}
	require.Equal(t, []int{1, 2}, evalAll(t, log, query.Not{Operand: inner}))
}

// S6 — Wildcard intersection: WC1 first satisfied only by order objects,
// second only by item objects; the AND composition must fail in every
// execution whose order/item object types do not overlap.
func TestS6_WildcardIntersection(t *testing.T) {
	events := []oceltest.EventSpec{
		{ID: "e1", Activity: "Create", End: t0(1), Objects: map[model.ObjectType][]model.ObjectID{"order": {"o1"}}},
		{ID: "e2", Activity: "Pack", End: t0(2), Objects: map[model.ObjectType][]model.ObjectID{"item": {"i1"}}},
	}
	exec := oceltest.ExecutionSpec{
		Events: []model.EventID{"e1", "e2"},
		Objects: []ocel.ObjectRef{
			{Type: "order", ID: "o1"},
			{Type: "item", ID: "i1"},
		},
	}
	fx := oceltest.New([]model.ObjectType{"order", "item"}, events, []oceltest.ExecutionSpec{exec})
	log, err := index.Build(fx)
	require.NoError(t, err)

	// First predicate: only "order" objects satisfy "Create".
	first := query.ActivityQuery{
		Object:   query.ObjectComponent{ObjectType: "WC1"},
		Activity: query.ActivityComponent{Activities: []model.Activity{"Create"}, Kind: query.ActivitySingle},
	}
	// Second predicate: only "item" objects satisfy "Pack" — disjoint from
	// the type WC1 already bound to, so the AND must fail.
	second := query.ActivityQuery{
		Object:   query.ObjectComponent{ObjectType: "WC1"},
		Activity: query.ActivityComponent{Activities: []model.Activity{"Pack"}, Kind: query.ActivitySingle},
	}
	q := query.And{Left: first, Right: second}
	require.Empty(t, evalAll(t, log, q))
}
