package drive_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gyunamister/goproq/internal/apperr"
	"github.com/gyunamister/goproq/internal/drive"
	"github.com/gyunamister/goproq/internal/index"
	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/ocel"
	"github.com/gyunamister/goproq/internal/ocel/oceltest"
	"github.com/gyunamister/goproq/internal/query"
)

func baseTime(mins int) time.Time {
	return time.Date(2024, 1, 1, 0, mins, 0, 0, time.UTC)
}

// buildOrderCountFixture builds spec.md §8 scenario S1: 4 executions with
// order counts [2,1,0,3].
func buildOrderCountFixture(t *testing.T) *index.Log {
	t.Helper()
	counts := []int{2, 1, 0, 3}
	var events []oceltest.EventSpec
	var execs []oceltest.ExecutionSpec
	eid := 0
	for execIdx, n := range counts {
		var evIDs []model.EventID
		var edges [][2]model.EventID
		var objs []ocel.ObjectRef
		var prev model.EventID
		for i := 0; i < n; i++ {
			eid++
			id := model.EventID(fmt.Sprintf("e%d", eid))
			oid := model.ObjectID(fmt.Sprintf("order-%d-%d", execIdx, i))
			events = append(events, oceltest.EventSpec{
				ID:       id,
				Activity: "Create PO",
				End:      baseTime(eid),
				Objects:  map[model.ObjectType][]model.ObjectID{"order": {oid}},
			})
			evIDs = append(evIDs, id)
			objs = append(objs, ocel.ObjectRef{Type: "order", ID: oid})
			if prev != "" {
				edges = append(edges, [2]model.EventID{prev, id})
			}
			prev = id
		}
		execs = append(execs, oceltest.ExecutionSpec{Events: evIDs, Edges: edges, Objects: objs})
	}
	fx := oceltest.New([]model.ObjectType{"order"}, events, execs)
	l, err := index.Build(fx)
	require.NoError(t, err)
	return l
}

func orderCountQuery(op model.CompareOp, n int) query.Query {
	return query.ObjectTypeQuery{
		Component: query.ObjectTypeComponent{
			ObjectType:  "order",
			Cardinality: &model.Cardinality{Op: op, N: n},
		},
	}
}

func TestExecute_Full_S1_ObjectTypeQuery(t *testing.T) {
	log := buildOrderCountFixture(t)
	q := orderCountQuery(model.OpGTE, 2)

	res, err := drive.Execute(q, log, drive.Options{Name: "s1"})
	require.NoError(t, err)
	require.Equal(t, []int{0, 3}, res.Indices)
	require.Equal(t, 2, res.Length)
	require.Len(t, res.DetailedResults, 2)
	require.NotNil(t, res.DetailedResults[0])
	require.NotNil(t, res.DetailedResults[3])
	require.Equal(t, "ObjectTypeQuery", res.QueryStructure["type"])
	require.Equal(t, "s1", res.Run.Name)
	require.False(t, res.Run.Start.After(res.Run.End))
}

func TestExecute_Full_NoMatch(t *testing.T) {
	log := buildOrderCountFixture(t)
	q := orderCountQuery(model.OpGTE, 10)

	res, err := drive.Execute(q, log, drive.Options{})
	require.NoError(t, err)
	require.Equal(t, 0, res.Length)
	require.Empty(t, res.Indices)
	require.Empty(t, res.DetailedResults)
}

func TestExecute_Full_WorkerCountClamped(t *testing.T) {
	log := buildOrderCountFixture(t)
	q := orderCountQuery(model.OpGTE, 2)

	res, err := drive.Execute(q, log, drive.Options{Workers: 64})
	require.NoError(t, err)
	require.Equal(t, []int{0, 3}, res.Indices)
}

func TestExecute_Live_FindsMatchWithinTimeout(t *testing.T) {
	log := buildOrderCountFixture(t)
	q := orderCountQuery(model.OpGTE, 2)

	res, err := drive.Execute(q, log, drive.Options{Live: true, Timeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, 1, res.Length)
	require.Contains(t, []int{0, 3}, res.Indices[0])
}

// TestExecute_Full_SafetyAbort_WarnHookFires exercises the Driver-level
// side of the temporal-mapping safety cap (spec.md §7: "Driver logs a
// warning"): with a low SafetyCap and an execution whose candidate-pair
// domain exceeds it, the control-flow predicate is simply unsatisfied and
// the caller-supplied Eval.Warn fires exactly once.
func TestExecute_Full_SafetyAbort_WarnHookFires(t *testing.T) {
	var events []oceltest.EventSpec
	var refs []ocel.ObjectRef
	var evIDs []model.EventID
	for i := 0; i < 3; i++ {
		id := model.ObjectID(fmt.Sprintf("item-%d", i))
		pick := model.EventID(fmt.Sprintf("item-%d-pick", i))
		pack := model.EventID(fmt.Sprintf("item-%d-pack", i))
		events = append(events,
			oceltest.EventSpec{ID: pick, Activity: "Pick", End: baseTime(i*2 + 1), Objects: map[model.ObjectType][]model.ObjectID{"item": {id}}},
			oceltest.EventSpec{ID: pack, Activity: "Pack", End: baseTime(i*2 + 2), Objects: map[model.ObjectType][]model.ObjectID{"item": {id}}},
		)
		evIDs = append(evIDs, pick, pack)
		refs = append(refs, ocel.ObjectRef{Type: "item", ID: id})
	}
	var edges [][2]model.EventID
	for i := 0; i < 3; i++ {
		edges = append(edges, [2]model.EventID{evIDs[i*2], evIDs[i*2+1]})
	}
	fx := oceltest.New([]model.ObjectType{"item"}, events, []oceltest.ExecutionSpec{{Events: evIDs, Edges: edges, Objects: refs}})
	log, err := index.Build(fx)
	require.NoError(t, err)

	pick := query.ActivityQuery{Object: query.ObjectComponent{ObjectType: "item"}, Activity: query.ActivityComponent{Activities: []model.Activity{"Pick"}, Kind: query.ActivitySingle}}
	pack := query.ActivityQuery{Object: query.ObjectComponent{ObjectType: "item"}, Activity: query.ActivityComponent{Activities: []model.Activity{"Pack"}, Kind: query.ActivitySingle}}
	q := query.ControlFlowQuery{First: pick, Second: pack, Relation: query.DF}

	var warnings int
	dopts := drive.Options{}
	dopts.Eval.SafetyCap = 2
	dopts.Eval.Warn = func(string) { warnings++ }

	res, err := drive.Execute(q, log, dopts)
	require.NoError(t, err)
	require.Equal(t, 0, res.Length)
	require.Equal(t, 1, warnings)
}

func TestExecute_Live_NoMatchRaisesTimeout(t *testing.T) {
	log := buildOrderCountFixture(t)
	q := orderCountQuery(model.OpGTE, 10)

	_, err := drive.Execute(q, log, drive.Options{Live: true, Timeout: time.Second})
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.ErrTimeout))
}
