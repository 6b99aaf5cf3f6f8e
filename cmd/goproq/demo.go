package main

import (
	"time"

	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/ocel"
)

// demoGraph is the order-fulfillment demo log's per-execution DAG, a
// hand-authored ocel.Graph mirroring the shape oceltest.Fixture builds for
// tests — kept separate here so the CLI doesn't depend on a test helper
// package.
type demoGraph struct {
	nodes []model.EventID
	edges map[model.EventID][]model.EventID
}

func (g *demoGraph) Nodes() []model.EventID { return g.nodes }
func (g *demoGraph) OutEdges(e model.EventID) []model.EventID { return g.edges[e] }

type demoEvent struct {
	activity model.Activity
	start    time.Time
	end      time.Time
	objects  map[model.ObjectType][]model.ObjectID
}

// demoSource is a small in-memory order-fulfillment log: three executions
// of Create PO -> Approve -> Pick -> Pack -> Ship over "order" and "item"
// objects, one of which is cancelled after approval instead of shipped.
// Mirrors the teacher's runDemo building synthetic data inline rather than
// reading a file — OCEL file import is out of this engine's scope.
type demoSource struct {
	events     map[model.EventID]demoEvent
	executions [][]model.EventID
	execEdges  [][][2]model.EventID
	execObjs   [][]ocel.ObjectRef
}

func buildDemoSource() *demoSource {
	t := func(mins int) time.Time { return time.Date(2026, 1, 1, 9, mins, 0, 0, time.UTC) }

	src := &demoSource{events: make(map[model.EventID]demoEvent)}

	addExec := func(orderID model.ObjectID, items []model.ObjectID, acts []model.Activity, base int) {
		var ids []model.EventID
		var edges [][2]model.EventID

		for i, a := range acts {
			id := model.EventID(string(orderID) + "-" + string(a))
			src.events[id] = demoEvent{
				activity: a,
				start:    t(base + i),
				end:      t(base + i + 1),
				objects:  map[model.ObjectType][]model.ObjectID{"order": {orderID}, "item": items},
			}
			ids = append(ids, id)
			if i > 0 {
				edges = append(edges, [2]model.EventID{ids[i-1], id})
			}
		}

		var refs []ocel.ObjectRef
		refs = append(refs, ocel.ObjectRef{Type: "order", ID: orderID})
		for _, it := range items {
			refs = append(refs, ocel.ObjectRef{Type: "item", ID: it})
		}

		src.executions = append(src.executions, ids)
		src.execEdges = append(src.execEdges, edges)
		src.execObjs = append(src.execObjs, refs)
	}

	addExec("order-1", []model.ObjectID{"item-1", "item-2"},
		[]model.Activity{"Create PO", "Approve", "Pick", "Pack", "Ship"}, 0)
	addExec("order-2", []model.ObjectID{"item-3"},
		[]model.Activity{"Create PO", "Approve", "Pick", "Pack", "Ship"}, 10)
	addExec("order-3", []model.ObjectID{"item-4"},
		[]model.Activity{"Create PO", "Approve", "Cancel"}, 20)

	return src
}

func (s *demoSource) ObjectTypes() []model.ObjectType { return []model.ObjectType{"order", "item"} }

func (s *demoSource) ProcessExecutions() [][]model.EventID { return s.executions }

func (s *demoSource) ProcessExecutionObjects() [][]ocel.ObjectRef { return s.execObjs }

func (s *demoSource) Graph(idx int) ocel.Graph {
	edges := make(map[model.EventID][]model.EventID)
	for _, e := range s.execEdges[idx] {
		edges[e[0]] = append(edges[e[0]], e[1])
	}
	return &demoGraph{nodes: s.executions[idx], edges: edges}
}

func (s *demoSource) EventActivity(e model.EventID) model.Activity { return s.events[e].activity }

func (s *demoSource) EventTimestamp(e model.EventID) time.Time { return s.events[e].end }

func (s *demoSource) EventStartTimestamp(e model.EventID) time.Time { return s.events[e].start }

func (s *demoSource) EventObjects(e model.EventID, ot model.ObjectType) []model.ObjectID {
	return s.events[e].objects[ot]
}
