// Package oceltest provides a tiny in-memory ocel.Source builder for tests
// across the engine: the index, eval and drive tests all exercise the same
// fixture shape rather than each hand-rolling a fake.
package oceltest

import (
	"time"

	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/ocel"
)

// EventSpec describes one event to seed into the fixture.
type EventSpec struct {
	ID      model.EventID
	Activity model.Activity
	Start   time.Time
	End     time.Time
	Objects map[model.ObjectType][]model.ObjectID
}

// ExecutionSpec describes one process execution: its events, the DAG edges
// between them, and its (type, id) object pairs.
type ExecutionSpec struct {
	Events  []model.EventID
	Edges   [][2]model.EventID
	Objects []ocel.ObjectRef
}

// Fixture is a minimal, immutable ocel.Source built from specs.
type Fixture struct {
	objectTypes []model.ObjectType
	events      map[model.EventID]EventSpec
	executions  []ExecutionSpec
}

// New builds a Fixture. objectTypes should list every type referenced by
// events/executions (order is preserved for ObjectsFlattened ordering).
func New(objectTypes []model.ObjectType, events []EventSpec, executions []ExecutionSpec) *Fixture {
	em := make(map[model.EventID]EventSpec, len(events))
	for _, e := range events {
		em[e.ID] = e
	}
	return &Fixture{objectTypes: objectTypes, events: em, executions: executions}
}

func (f *Fixture) ObjectTypes() []model.ObjectType { return f.objectTypes }

func (f *Fixture) ProcessExecutions() [][]model.EventID {
	out := make([][]model.EventID, len(f.executions))
	for i, e := range f.executions {
		out[i] = e.Events
	}
	return out
}

func (f *Fixture) ProcessExecutionObjects() [][]ocel.ObjectRef {
	out := make([][]ocel.ObjectRef, len(f.executions))
	for i, e := range f.executions {
		out[i] = e.Objects
	}
	return out
}

func (f *Fixture) Graph(idx int) ocel.Graph {
	return &fixtureGraph{exec: f.executions[idx]}
}

func (f *Fixture) EventActivity(e model.EventID) model.Activity { return f.events[e].Activity }

func (f *Fixture) EventTimestamp(e model.EventID) time.Time { return f.events[e].End }

func (f *Fixture) EventStartTimestamp(e model.EventID) time.Time { return f.events[e].Start }

func (f *Fixture) EventObjects(e model.EventID, ot model.ObjectType) []model.ObjectID {
	return f.events[e].Objects[ot]
}

type fixtureGraph struct {
	exec ExecutionSpec
}

func (g *fixtureGraph) Nodes() []model.EventID { return g.exec.Events }

func (g *fixtureGraph) OutEdges(e model.EventID) []model.EventID {
	var out []model.EventID
	for _, edge := range g.exec.Edges {
		if edge[0] == e {
			out = append(out, edge[1])
		}
	}
	return out
}
