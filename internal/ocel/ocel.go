// Package ocel defines the external-collaborator contract the engine
// consumes: an already-imported object-centric event log plus its
// precomputed process executions and per-execution object sets. OCEL file
// import/export, CSV remapping and variant calculation live outside this
// module (spec.md §1 Non-goals) — callers implement Source over whatever
// importer they use; internal/index builds on top of it.
package ocel

import (
	"time"

	"github.com/gyunamister/goproq/internal/model"
)

// Graph is a process execution's DAG, as supplied by the variant/execution
// extraction collaborator. Nodes are event ids; edges are given by
// OutEdges. The index package is responsible for checking acyclicity and
// annotating edges with traversing object ids (spec.md §3).
type Graph interface {
	Nodes() []model.EventID
	OutEdges(e model.EventID) []model.EventID
}

// ObjectRef is a (type, id) pair, matching OCEL's process_execution_objects
// accessor.
type ObjectRef struct {
	Type model.ObjectType
	ID   model.ObjectID
}

// Source is the flat event/object accessor the spec's §6 "Consumed from
// external collaborators" section describes: object_types,
// process_executions, process_execution_objects,
// get_process_execution_graph, and the per-event dataframe-like fields.
type Source interface {
	// ObjectTypes lists every object type present in the log.
	ObjectTypes() []model.ObjectType

	// ProcessExecutions returns, for each process execution, the set of
	// event ids it contains.
	ProcessExecutions() [][]model.EventID

	// ProcessExecutionObjects returns, for each process execution, its
	// (type, id) object pairs.
	ProcessExecutionObjects() [][]ObjectRef

	// Graph returns the plain DAG for process execution idx; internal/index
	// adds the edge-object annotation.
	Graph(idx int) Graph

	// EventActivity returns the activity label of an event. Total over
	// events of the log.
	EventActivity(e model.EventID) model.Activity

	// EventTimestamp returns the end timestamp of an event.
	EventTimestamp(e model.EventID) time.Time

	// EventStartTimestamp returns the start timestamp of an event.
	EventStartTimestamp(e model.EventID) time.Time

	// EventObjects returns the objects of type ot related to event e.
	EventObjects(e model.EventID, ot model.ObjectType) []model.ObjectID
}

// MetadataSource is an optional extension a Source may implement to expose
// a global metadata block and per-event attribute map. The Export helper
// (spec.md §6) preserves both verbatim when present; a Source that does
// not implement it simply exports without them. OCEL file import/export
// itself stays a Non-goal (spec.md §1) — this only lets an in-memory
// Source pass arbitrary attributes through a subset operation.
type MetadataSource interface {
	Metadata() map[string]interface{}
	EventAttributes(e model.EventID) map[string]interface{}
}

// Metadata is the activities/object-types/statistics summary the original
// exposes at `PUT /pq/ocel_metadata` for the graphical query builder
// (spec.md §4.D expansion), re-specified here as a plain data type. The
// builder itself lives in internal/index (index.Summary) rather than here:
// building it requires walking a *index.Log, and index already imports
// ocel, so a Log-consuming function cannot live in this package without
// an import cycle. Metadata stays import-free so either side can hand it
// to a caller.
type Metadata struct {
	Activities  []model.Activity
	ObjectTypes []model.ObjectType
	Stats       Stats
}

// Stats is Metadata's statistics block, mirroring the original's
// `statistics` dict (pq.py's get_ocel_metadata).
type Stats struct {
	TotalEvents            int
	TotalObjects            int
	TotalProcessExecutions int
	NumActivities          int
	NumObjectTypes         int
}

// Identity names a (log, extraction settings) pair for cache invalidation
// purposes (spec.md §3 Lifecycle: "invalidated when either identity
// changes").
type Identity struct {
	LogID              string
	ExtractionSettings string
}

// Key returns a single string suitable for use as a cache key.
func (id Identity) Key() string {
	return id.LogID + "\x00" + id.ExtractionSettings
}
