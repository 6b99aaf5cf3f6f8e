// Package index builds and serves the per-execution indexes the Evaluator
// and Planner read: event/activity maps, object lists by type and the
// annotated execution graph with edge-object sets computed by per-object
// projected succession (spec.md §3, §4.A). Modeled on the teacher's
// multi-index storage layer (datalog/storage/database.go) — built once,
// immutable afterwards, safe to share read-only across goroutines
// (spec.md §5).
package index

import (
	"fmt"
	"sort"

	"github.com/gyunamister/goproq/internal/apperr"
	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/ocel"
)

// Log is the immutable index over an OCEL source: a total event->activity
// map, its inverse, and one Execution per process execution.
type Log struct {
	eventActivity  map[model.EventID]model.Activity
	activityEvents map[model.Activity][]model.EventID
	objectTypes    []model.ObjectType
	executions     []*Execution
}

// EventActivity returns the activity of an event. Total over events of the
// log (spec.md §3 invariant).
func (l *Log) EventActivity(e model.EventID) (model.Activity, bool) {
	a, ok := l.eventActivity[e]
	return a, ok
}

// ActivityEvents returns every event with the given activity, in
// insertion (log) order.
func (l *Log) ActivityEvents(a model.Activity) []model.EventID {
	return l.activityEvents[a]
}

// ObjectTypes lists every object type present in the log.
func (l *Log) ObjectTypes() []model.ObjectType { return l.objectTypes }

// Executions returns every process execution's index, in source order.
func (l *Log) Executions() []*Execution { return l.executions }

// Execution returns the i'th process execution, or nil if out of range.
func (l *Log) Execution(i int) *Execution {
	if i < 0 || i >= len(l.executions) {
		return nil
	}
	return l.executions[i]
}

// Execution is the per-process-execution index: object lists by type, the
// flattened ANY list, the annotated DAG, and each object's sorted trace of
// events within this execution.
type Execution struct {
	Index            int
	Objects          map[model.ObjectType][]model.ObjectID
	ObjectsFlattened []model.ObjectID
	Graph            *Graph

	objectEvents map[model.ObjectID][]model.EventID // sorted by (end ts, id)
	objectOf     map[model.ObjectID]model.ObjectType
}

// ObjectsOf returns the object ids of type ot in this execution, or the
// flattened ANY list when ot is the ANY pseudo-type.
func (e *Execution) ObjectsOf(ot model.ObjectType) []model.ObjectID {
	if ot.IsAny() {
		return e.ObjectsFlattened
	}
	return e.Objects[ot]
}

// ObjectEvents returns the events containing object o within this
// execution, sorted ascending by (end timestamp, event id).
func (e *Execution) ObjectEvents(o model.ObjectID) []model.EventID {
	return e.objectEvents[o]
}

// TypeOf returns the object type of o within this execution.
func (e *Execution) TypeOf(o model.ObjectID) (model.ObjectType, bool) {
	t, ok := e.objectOf[o]
	return t, ok
}

// Graph is the annotated execution DAG: an arena-backed adjacency list
// (indices, not pointers — spec.md §9 Design Notes) over the execution's
// event ids, with per-node object unions and per-edge traversing-object
// sets.
type Graph struct {
	nodes      []model.EventID
	nodeIndex  map[model.EventID]int
	nodeObjs   [][]model.ObjectID
	adjacency  [][]int
	reverseAdj [][]int
	edgeObjs   map[[2]int][]model.ObjectID
}

// Nodes returns the event ids of this graph, in arena (index) order.
func (g *Graph) Nodes() []model.EventID { return g.nodes }

// NodeObjects returns the union of objects related to node e.
func (g *Graph) NodeObjects(e model.EventID) []model.ObjectID {
	i, ok := g.nodeIndex[e]
	if !ok {
		return nil
	}
	return g.nodeObjs[i]
}

// HasEdge reports whether a direct edge u->v exists.
func (g *Graph) HasEdge(u, v model.EventID) bool {
	ui, ok := g.nodeIndex[u]
	if !ok {
		return false
	}
	vi, ok := g.nodeIndex[v]
	if !ok {
		return false
	}
	for _, n := range g.adjacency[ui] {
		if n == vi {
			return true
		}
	}
	return false
}

// EdgeObjects returns the object ids that traverse edge u->v (empty slice
// if no such edge or no traversing objects).
func (g *Graph) EdgeObjects(u, v model.EventID) []model.ObjectID {
	ui, ok := g.nodeIndex[u]
	if !ok {
		return nil
	}
	vi, ok := g.nodeIndex[v]
	if !ok {
		return nil
	}
	return g.edgeObjs[[2]int{ui, vi}]
}

// Successors returns the direct successors of e.
func (g *Graph) Successors(e model.EventID) []model.EventID {
	i, ok := g.nodeIndex[e]
	if !ok {
		return nil
	}
	out := make([]model.EventID, len(g.adjacency[i]))
	for k, n := range g.adjacency[i] {
		out[k] = g.nodes[n]
	}
	return out
}

// Reachable reports whether there is a directed path from u to v
// (u != v required by callers that want strict EF semantics).
func (g *Graph) Reachable(u, v model.EventID) bool {
	path := g.ShortestPath(u, v)
	return path != nil
}

// ShortestPath returns the node sequence of a shortest directed path from
// u to v (inclusive of both endpoints), or nil if none exists. Reachable
// uses it for EF checks (BFS replaces the exponential all-simple-paths
// scan); EF witnesses record only the (e1, e2) event pairs, not the edges
// of this path.
func (g *Graph) ShortestPath(u, v model.EventID) []model.EventID {
	ui, ok := g.nodeIndex[u]
	if !ok {
		return nil
	}
	vi, ok := g.nodeIndex[v]
	if !ok {
		return nil
	}
	if ui == vi {
		return nil
	}
	prev := make(map[int]int)
	visited := make(map[int]bool)
	queue := []int{ui}
	visited[ui] = true
	found := false
	for len(queue) > 0 && !found {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.adjacency[cur] {
			if visited[n] {
				continue
			}
			visited[n] = true
			prev[n] = cur
			if n == vi {
				found = true
				break
			}
			queue = append(queue, n)
		}
	}
	if !visited[vi] {
		return nil
	}
	var pathIdx []int
	for cur := vi; ; {
		pathIdx = append([]int{cur}, pathIdx...)
		if cur == ui {
			break
		}
		cur = prev[cur]
	}
	path := make([]model.EventID, len(pathIdx))
	for i, idx := range pathIdx {
		path[i] = g.nodes[idx]
	}
	return path
}

// Build constructs the Log Index from an OCEL source (component A). It is
// pure and eager: every field is computed once here; nothing mutates
// afterwards.
func Build(src ocel.Source) (*Log, error) {
	l := &Log{
		eventActivity:  make(map[model.EventID]model.Activity),
		activityEvents: make(map[model.Activity][]model.EventID),
		objectTypes:    src.ObjectTypes(),
	}

	executions := src.ProcessExecutions()
	peObjects := src.ProcessExecutionObjects()
	if len(peObjects) != len(executions) {
		return nil, apperr.New(apperr.KindEval, "process_execution_objects length %d does not match process_executions length %d", len(peObjects), len(executions))
	}

	for idx, eventIDs := range executions {
		g := src.Graph(idx)
		graph, err := buildGraph(src, g, eventIDs)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindEval, err, "building graph for execution %d", idx)
		}

		for _, e := range eventIDs {
			a := src.EventActivity(e)
			l.eventActivity[e] = a
			l.activityEvents[a] = append(l.activityEvents[a], e)
		}

		exec := &Execution{
			Index:    idx,
			Objects:  make(map[model.ObjectType][]model.ObjectID),
			Graph:    graph,
			objectOf: make(map[model.ObjectID]model.ObjectType),
		}
		for _, ref := range peObjects[idx] {
			exec.Objects[ref.Type] = append(exec.Objects[ref.Type], ref.ID)
			exec.objectOf[ref.ID] = ref.Type
		}
		for _, ot := range l.objectTypes {
			exec.ObjectsFlattened = append(exec.ObjectsFlattened, exec.Objects[ot]...)
		}

		exec.objectEvents = buildObjectTraces(src, eventIDs, exec)
		annotateEdges(graph, exec)

		l.executions = append(l.executions, exec)
	}

	return l, nil
}

func buildGraph(src ocel.Source, g ocel.Graph, eventIDs []model.EventID) (*Graph, error) {
	graph := &Graph{
		nodeIndex: make(map[model.EventID]int),
		edgeObjs:  make(map[[2]int][]model.ObjectID),
	}
	nodes := g.Nodes()
	graph.nodes = append(graph.nodes, nodes...)
	for i, n := range graph.nodes {
		graph.nodeIndex[n] = i
	}
	graph.adjacency = make([][]int, len(graph.nodes))
	graph.reverseAdj = make([][]int, len(graph.nodes))
	for i, n := range graph.nodes {
		for _, succ := range g.OutEdges(n) {
			si, ok := graph.nodeIndex[succ]
			if !ok {
				return nil, apperr.New(apperr.KindEval, "edge target %s not a node of this execution's graph", succ)
			}
			graph.adjacency[i] = append(graph.adjacency[i], si)
			graph.reverseAdj[si] = append(graph.reverseAdj[si], i)
		}
	}

	graph.nodeObjs = make([][]model.ObjectID, len(graph.nodes))
	for i, n := range graph.nodes {
		seen := make(map[model.ObjectID]bool)
		var union []model.ObjectID
		for _, ot := range src.ObjectTypes() {
			for _, o := range src.EventObjects(n, ot) {
				if !seen[o] {
					seen[o] = true
					union = append(union, o)
				}
			}
		}
		graph.nodeObjs[i] = union
	}

	if err := checkAcyclic(graph); err != nil {
		return nil, err
	}

	_ = eventIDs // nodes come from g.Nodes(); eventIDs kept for future cross-checks
	return graph, nil
}

func checkAcyclic(g *Graph) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.nodes))
	var visit func(i int) error
	visit = func(i int) error {
		color[i] = gray
		for _, n := range g.adjacency[i] {
			switch color[n] {
			case gray:
				return apperr.New(apperr.KindEval, "execution graph contains a cycle involving %s", g.nodes[i])
			case white:
				if err := visit(n); err != nil {
					return err
				}
			}
		}
		color[i] = black
		return nil
	}
	for i := range g.nodes {
		if color[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildObjectTraces computes, for every object present in this execution,
// its sorted (end timestamp, id) trace of events — used both for
// start/end tie-breaking (spec.md §9 Open Question 2) and for the
// per-object-type projected-succession edge annotation below.
func buildObjectTraces(src ocel.Source, eventIDs []model.EventID, exec *Execution) map[model.ObjectID][]model.EventID {
	traces := make(map[model.ObjectID][]model.EventID)
	for _, e := range eventIDs {
		for ot := range exec.Objects {
			for _, o := range src.EventObjects(e, ot) {
				traces[o] = append(traces[o], e)
			}
		}
	}
	for o, events := range traces {
		sortEventsByTimestamp(src, events)
		traces[o] = events
	}
	return traces
}

func sortEventsByTimestamp(src ocel.Source, events []model.EventID) {
	sort.SliceStable(events, func(i, j int) bool {
		ti := src.EventTimestamp(events[i])
		tj := src.EventTimestamp(events[j])
		if ti.Equal(tj) {
			return events[i] < events[j]
		}
		return ti.Before(tj)
	})
}

// annotateEdges computes the authoritative edge-object set by
// per-object-type projected succession (spec.md §3): for each object, walk
// its own sorted trace and, for every consecutive pair that is also a
// direct edge of the DAG, record the object id on that edge. A naive
// source.objects ∩ target.objects is NOT used — it is incorrect whenever
// an object touches both endpoints without its own trace passing directly
// between them.
func annotateEdges(g *Graph, exec *Execution) {
	for o, trace := range exec.objectEvents {
		for i := 0; i+1 < len(trace); i++ {
			u, v := trace[i], trace[i+1]
			if !g.HasEdge(u, v) {
				continue
			}
			ui := g.nodeIndex[u]
			vi := g.nodeIndex[v]
			key := [2]int{ui, vi}
			g.edgeObjs[key] = append(g.edgeObjs[key], o)
		}
	}
}

// String is a debug rendering, deliberately terse (matches the teacher's
// QueryPlan.String style).
func (l *Log) String() string {
	return fmt.Sprintf("Log{executions=%d, activities=%d, objectTypes=%v}", len(l.executions), len(l.activityEvents), l.objectTypes)
}

// Summary builds the ocel.Metadata block the graphical query builder
// consumes (spec.md §4.D expansion 5, grounded on the original's
// GET /pq/ocel_metadata at pq.py:38-39): sorted activities, sorted object
// types with the ANY pseudo-type prepended, and basic log statistics.
// Lives here rather than in package ocel because it walks a *Log, and
// package ocel cannot import index (index already imports ocel).
func Summary(l *Log) ocel.Metadata {
	activities := make([]model.Activity, 0, len(l.activityEvents))
	for a := range l.activityEvents {
		activities = append(activities, a)
	}
	sort.Slice(activities, func(i, j int) bool { return activities[i] < activities[j] })

	objectTypes := make([]model.ObjectType, 0, len(l.objectTypes)+1)
	objectTypes = append(objectTypes, model.AnyObjectType)
	rest := append([]model.ObjectType{}, l.objectTypes...)
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	objectTypes = append(objectTypes, rest...)

	uniqueObjects := make(map[model.ObjectID]bool)
	for _, exec := range l.executions {
		for _, id := range exec.ObjectsFlattened {
			uniqueObjects[id] = true
		}
	}

	return ocel.Metadata{
		Activities:  activities,
		ObjectTypes: objectTypes,
		Stats: ocel.Stats{
			TotalEvents:            len(l.eventActivity),
			TotalObjects:           len(uniqueObjects),
			TotalProcessExecutions: len(l.executions),
			NumActivities:          len(activities),
			NumObjectTypes:         len(rest),
		},
	}
}
