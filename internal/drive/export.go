package drive

import (
	"sort"
	"time"

	"github.com/gyunamister/goproq/internal/index"
	"github.com/gyunamister/goproq/internal/model"
	"github.com/gyunamister/goproq/internal/ocel"
)

// ExportedEvent is one event of an exported subset log, timestamps
// rendered ISO-8601 per spec.md §6.
type ExportedEvent struct {
	ID         model.EventID
	Activity   model.Activity
	Timestamp  string
	Start      string
	Objects    map[model.ObjectType][]model.ObjectID
	Attributes map[string]interface{}
}

// ExportedLog is the Export helper's output: the union of matched
// executions' events and the objects they reference, plus whatever
// metadata/attributes src.(ocel.MetadataSource) exposes, carried verbatim.
type ExportedLog struct {
	Metadata map[string]interface{}
	Events   []ExportedEvent
	Objects  []ocel.ObjectRef
}

// ExportSubset implements spec.md §6's Export helper: given result indices,
// filter events to the union of matched execution event sets and objects
// to those referenced, preserving any metadata/attribute blocks verbatim.
func ExportSubset(src ocel.Source, log *index.Log, indices []int) ExportedLog {
	meta, _ := src.(ocel.MetadataSource)

	seenEvents := make(map[model.EventID]bool)
	seenObjects := make(map[ocel.ObjectRef]bool)
	var events []ExportedEvent
	var objects []ocel.ObjectRef

	for _, idx := range indices {
		exec := log.Execution(idx)
		if exec == nil {
			continue
		}
		for _, eid := range exec.Graph.Nodes() {
			if seenEvents[eid] {
				continue
			}
			seenEvents[eid] = true
			events = append(events, exportEvent(src, meta, eid))
		}
		for ot, ids := range exec.Objects {
			for _, oid := range ids {
				ref := ocel.ObjectRef{Type: ot, ID: oid}
				if !seenObjects[ref] {
					seenObjects[ref] = true
					objects = append(objects, ref)
				}
			}
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	sort.Slice(objects, func(i, j int) bool {
		if objects[i].Type != objects[j].Type {
			return objects[i].Type < objects[j].Type
		}
		return objects[i].ID < objects[j].ID
	})

	var globalMeta map[string]interface{}
	if meta != nil {
		globalMeta = meta.Metadata()
	}

	return ExportedLog{Metadata: globalMeta, Events: events, Objects: objects}
}

func exportEvent(src ocel.Source, meta ocel.MetadataSource, eid model.EventID) ExportedEvent {
	ee := ExportedEvent{
		ID:        eid,
		Activity:  src.EventActivity(eid),
		Timestamp: src.EventTimestamp(eid).UTC().Format(time.RFC3339),
		Start:     src.EventStartTimestamp(eid).UTC().Format(time.RFC3339),
		Objects:   make(map[model.ObjectType][]model.ObjectID),
	}
	for _, ot := range src.ObjectTypes() {
		if objs := src.EventObjects(eid, ot); len(objs) > 0 {
			ee.Objects[ot] = objs
		}
	}
	if meta != nil {
		ee.Attributes = meta.EventAttributes(eid)
	}
	return ee
}
